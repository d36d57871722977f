package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/bar-occupancy/internal/container"
	"github.com/oksasatya/bar-occupancy/internal/interface/middleware"
	"github.com/oksasatya/bar-occupancy/pkg/validation"
)

// NewEngine returns a gin engine with the global middleware and every module registered.
func NewEngine(c *container.Container) *gin.Engine {
	cfg := c.Config
	validation.Init()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RealIP())
	// cors.New panics without at least one allowed origin
	if origins := cfg.CORSOrigins(); len(origins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
			ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	if cfg.HTTPLogEnabled {
		r.Use(middleware.RequestLogger(c.Logger))
	}

	reg := NewRegistry(r)
	if err := InitModules(reg, c); err != nil {
		panic(err)
	}
	reg.RegisterAll()
	c.Logger.WithField("modules", reg.Names()).Debug("routes registered")
	return r
}
