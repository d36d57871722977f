package router

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

// Registry collects modules and the middleware shared by the /api group.
type Registry struct {
	Engine      *gin.Engine
	API         *gin.RouterGroup
	middlewares []gin.HandlerFunc
	modules     []Module
	names       map[string]struct{}
	registered  bool
}

func NewRegistry(engine *gin.Engine) *Registry {
	return &Registry{
		Engine: engine,
		API:    engine.Group("/api"),
		names:  make(map[string]struct{}),
	}
}

// Use adds middleware applied to every module route.
func (r *Registry) Use(mw ...gin.HandlerFunc) {
	r.middlewares = append(r.middlewares, mw...)
}

// Add queues mod for registration. A second module with the same name is an error.
func (r *Registry) Add(mod Module) error {
	if _, dup := r.names[mod.Name()]; dup {
		return fmt.Errorf("router: module %q already added", mod.Name())
	}
	r.names[mod.Name()] = struct{}{}
	r.modules = append(r.modules, mod)
	return nil
}

// RegisterAll mounts every queued module on the /api group. Later calls are no-ops.
func (r *Registry) RegisterAll() {
	if r.registered {
		return
	}
	r.registered = true
	if len(r.middlewares) > 0 {
		r.API.Use(r.middlewares...)
	}
	for _, m := range r.modules {
		m.Register(r.API)
	}
}

// Names lists module names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.modules))
	for _, m := range r.modules {
		out = append(out, m.Name())
	}
	return out
}
