package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/bar-occupancy/internal/application"
	handlers "github.com/oksasatya/bar-occupancy/internal/interface/http"
	"github.com/oksasatya/bar-occupancy/internal/interface/middleware"
)

// BarModule wires the occupancy routes.
// Public: GET /api/bars, GET /api/bars/search, GET /api/bars/:id
// Protected: PATCH /api/bars/:id/count
type BarModule struct {
	Handler *handlers.BarHandler
	Gate    *application.AuthService
	RDB     *redis.Client
}

func NewBarModule(h *handlers.BarHandler, gate *application.AuthService, rdb *redis.Client) *BarModule {
	return &BarModule{Handler: h, Gate: gate, RDB: rdb}
}

func (m *BarModule) Name() string { return "bars" }

func (m *BarModule) Register(rg *gin.RouterGroup) {
	rg.GET("/bars", m.Handler.ListBars)
	rg.GET("/bars/search", m.Handler.SearchBars)
	rg.GET("/bars/:id", m.Handler.GetBar)

	auth := rg.Group("/")
	auth.Use(middleware.Auth(m.Gate))
	auth.Use(middleware.RateLimit(m.RDB, 120, time.Minute, middleware.KeyByUserID(), nil))
	{
		auth.PATCH("/bars/:id/count", m.Handler.UpdateCount)
	}
}
