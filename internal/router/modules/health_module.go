package modules

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/bar-occupancy/internal/domain/entity"
	"github.com/oksasatya/bar-occupancy/pkg/response"
)

// BarLister is the read the health probe performs against the store.
type BarLister interface {
	ListBars(ctx context.Context) ([]entity.Bar, error)
}

type healthStatus struct {
	Store string `json:"store"`
	Bars  int    `json:"bars"`
}

type HealthModule struct {
	Bars    BarLister
	Backend string
}

func NewHealthModule(bars BarLister, backend string) *HealthModule {
	return &HealthModule{Bars: bars, Backend: backend}
}

func (m *HealthModule) Name() string { return "health" }

func (m *HealthModule) Register(rg *gin.RouterGroup) {
	rg.GET("/healthz", m.check)
}

func (m *HealthModule) check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	bars, err := m.Bars.ListBars(ctx)
	if err != nil {
		response.Fail(c, http.StatusServiceUnavailable, "store unavailable", err.Error())
		return
	}
	response.Write(c, response.Success(c, http.StatusOK, healthStatus{Store: m.Backend, Bars: len(bars)}, "ok", nil))
}
