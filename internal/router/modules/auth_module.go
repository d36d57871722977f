package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/bar-occupancy/internal/application"
	handlers "github.com/oksasatya/bar-occupancy/internal/interface/http"
	"github.com/oksasatya/bar-occupancy/internal/interface/middleware"
)

// AuthModule wires account and session routes.
// Public: POST /api/register, POST /api/login, POST /api/logout
// Protected: GET /api/user
type AuthModule struct {
	Handler *handlers.AuthHandler
	Gate    *application.AuthService
	RDB     *redis.Client
}

func NewAuthModule(h *handlers.AuthHandler, gate *application.AuthService, rdb *redis.Client) *AuthModule {
	return &AuthModule{Handler: h, Gate: gate, RDB: rdb}
}

func (m *AuthModule) Name() string { return "auth" }

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	loginLimiter := middleware.RateLimit(m.RDB, 10, time.Minute, middleware.KeyByIPAndPath(), nil)   // 10 req/min per IP
	registerLimiter := middleware.RateLimit(m.RDB, 5, time.Minute, middleware.KeyByIPAndPath(), nil) // 5 req/min per IP

	rg.POST("/register", registerLimiter, m.Handler.Register)
	rg.POST("/login", loginLimiter, m.Handler.Login)
	rg.POST("/logout", m.Handler.Logout)

	auth := rg.Group("/")
	auth.Use(middleware.Auth(m.Gate))
	{
		auth.GET("/user", m.Handler.Me)
	}
}
