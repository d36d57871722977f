package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/bar-occupancy/internal/application"
	"github.com/oksasatya/bar-occupancy/internal/domain/entity"
	"github.com/oksasatya/bar-occupancy/pkg/helpers"
	"github.com/oksasatya/bar-occupancy/pkg/response"
)

const (
	CtxUserKey   = "user"
	CtxUserIDKey = "userID"
)

// Auth resolves the session cookie through the gate and rejects anonymous
// callers with 401. On success the user is stored in the Gin context.
func Auth(gate *application.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(helpers.SessionCookie)
		if err != nil || token == "" {
			response.Fail(c, http.StatusUnauthorized, "unauthorized", "missing session")
			return
		}
		u, err := gate.Resolve(c.Request.Context(), token)
		if err != nil {
			response.Fail(c, http.StatusUnauthorized, "unauthorized", "invalid or expired session")
			return
		}
		c.Set(CtxUserKey, u)
		c.Set(CtxUserIDKey, u.ID)
		c.Next()
	}
}

// CurrentUser returns the user placed in the context by Auth.
func CurrentUser(c *gin.Context) (*entity.User, bool) {
	v, ok := c.Get(CtxUserKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*entity.User)
	return u, ok && u != nil
}

// IsAuthenticated reports whether Auth accepted the request.
func IsAuthenticated(c *gin.Context) bool {
	_, ok := CurrentUser(c)
	return ok
}
