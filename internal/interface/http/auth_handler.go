package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/bar-occupancy/internal/application"
	"github.com/oksasatya/bar-occupancy/internal/interface/middleware"
	"github.com/oksasatya/bar-occupancy/pkg/helpers"
	"github.com/oksasatya/bar-occupancy/pkg/response"
	"github.com/oksasatya/bar-occupancy/pkg/validation"
)

type AuthHandler struct {
	Gate    *application.AuthService
	Logger  *logrus.Logger
	Cookies *helpers.Manager
}

func NewAuthHandler(gate *application.AuthService, logger *logrus.Logger, cookieDomain string, cookieSecure bool) *AuthHandler {
	return &AuthHandler{Gate: gate, Logger: logger, Cookies: helpers.NewCookie(cookieDomain, cookieSecure)}
}

type registerRequest struct {
	Username string `json:"username" binding:"required,uname"`
	Password string `json:"password" binding:"required,pwd"`
}

// Login only checks presence.
type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func clientIP(c *gin.Context) string {
	if ip := c.GetString("real_ip"); ip != "" {
		return ip
	}
	return c.ClientIP()
}

// Register POST /api/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Gate.Register(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, application.ErrUsernameTaken) {
		response.Fail(c, http.StatusConflict, "username already exists", map[string]string{"username": "already taken"})
		return
	}
	if err != nil {
		helpers.LogError(h.Logger, "register failed", err, logrus.Fields{"ip": clientIP(c)})
		response.Fail(c, http.StatusInternalServerError, "registration failed", nil)
		return
	}
	ticket, err := h.Gate.IssueSession(c.Request.Context(), u)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, "session creation failed", nil)
		return
	}
	h.Cookies.SetSession(c, ticket.Token, ticket.ExpiresAt)
	response.Write(c, response.Success(c, http.StatusCreated, u, "registered", map[string]any{"expires_at": ticket.ExpiresAt}))
}

// Login POST /api/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, ticket, err := h.Gate.Login(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, application.ErrInvalidCredentials) {
		helpers.LogInfo(h.Logger, "login rejected", logrus.Fields{"username": req.Username, "ip": clientIP(c)})
		response.Fail(c, http.StatusUnauthorized, "invalid credentials", nil)
		return
	}
	if err != nil {
		helpers.LogError(h.Logger, "login failed", err, logrus.Fields{"username": req.Username})
		response.Fail(c, http.StatusInternalServerError, "login failed", nil)
		return
	}
	h.Cookies.SetSession(c, ticket.Token, ticket.ExpiresAt)
	response.Write(c, response.Success(c, http.StatusOK, u, "login successful", map[string]any{"expires_at": ticket.ExpiresAt}))
}

// Logout POST /api/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if token, err := c.Cookie(helpers.SessionCookie); err == nil {
		if err := h.Gate.Logout(c.Request.Context(), token); err != nil {
			helpers.LogError(h.Logger, "session revoke failed", err, nil)
		}
	}
	h.Cookies.Clear(c)
	response.Write(c, response.Success[any](c, http.StatusOK, nil, "logged out", nil))
}

// Me GET /api/user
func (h *AuthHandler) Me(c *gin.Context) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	response.Write(c, response.Success(c, http.StatusOK, u, "ok", nil))
}
