package router

import (
	"github.com/oksasatya/bar-occupancy/internal/container"
	handlers "github.com/oksasatya/bar-occupancy/internal/interface/http"
	"github.com/oksasatya/bar-occupancy/internal/router/modules"
)

// InitModules builds the handlers from c and queues their modules.
// Call once during startup, before RegisterAll.
func InitModules(r *Registry, c *container.Container) error {
	cfg := c.Config

	bars := handlers.NewBarHandler(c.Occupancy, c.Search, c.Logger)
	auth := handlers.NewAuthHandler(c.Auth, c.Logger, cfg.CookieDomain, cfg.CookieSecure)

	mods := []Module{
		modules.NewHealthModule(c.Occupancy, cfg.StoreBackend),
		modules.NewBarModule(bars, c.Auth, c.Redis),
		modules.NewAuthModule(auth, c.Auth, c.Redis),
	}
	if cfg.DebugMetricsEnabled {
		mods = append(mods, modules.NewDebugModule(c.Redis))
	}
	for _, m := range mods {
		if err := r.Add(m); err != nil {
			return err
		}
	}
	return nil
}
