package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/bar-occupancy/internal/application"
	"github.com/oksasatya/bar-occupancy/internal/interface/middleware"
	"github.com/oksasatya/bar-occupancy/pkg/response"
	"github.com/oksasatya/bar-occupancy/pkg/validation"
)

// BarNotFoundText is the plain-text body of every 404 for an unknown bar.
const BarNotFoundText = "Bar not found"

type BarHandler struct {
	Occupancy *application.OccupancyService
	Search    *application.SearchService
	Logger    *logrus.Logger
}

func NewBarHandler(occ *application.OccupancyService, search *application.SearchService, logger *logrus.Logger) *BarHandler {
	return &BarHandler{Occupancy: occ, Search: search, Logger: logger}
}

type updateCountRequest struct {
	Count *int `json:"count" binding:"required,min=0"`
}

// ListBars GET /api/bars
func (h *BarHandler) ListBars(c *gin.Context) {
	bars, err := h.Occupancy.ListBars(c.Request.Context())
	if err != nil {
		h.internal(c, "list bars failed", err)
		return
	}
	c.JSON(http.StatusOK, bars)
}

// GetBar GET /api/bars/:id
func (h *BarHandler) GetBar(c *gin.Context) {
	id, ok := barID(c)
	if !ok {
		return
	}
	b, err := h.Occupancy.GetBar(c.Request.Context(), id)
	if errors.Is(err, application.ErrBarNotFound) {
		c.String(http.StatusNotFound, BarNotFoundText)
		return
	}
	if err != nil {
		h.internal(c, "get bar failed", err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// UpdateCount PATCH /api/bars/:id/count {count}
func (h *BarHandler) UpdateCount(c *gin.Context) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	id, ok := barID(c)
	if !ok {
		return
	}
	var req updateCountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	b, err := h.Occupancy.UpdateCount(c.Request.Context(), u, id, *req.Count)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, b)
	case errors.Is(err, application.ErrBarNotFound):
		c.String(http.StatusNotFound, BarNotFoundText)
	case errors.Is(err, application.ErrForbidden):
		response.Fail(c, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, application.ErrInvalidCount):
		response.Fail(c, http.StatusBadRequest, "invalid payload", map[string]string{"count": "must be at least 0"})
	case errors.Is(err, application.ErrUnauthenticated):
		response.Fail(c, http.StatusUnauthorized, "unauthorized", nil)
	default:
		h.internal(c, "update bar count failed", err)
	}
}

// SearchBars GET /api/bars/search?q=&size=
func (h *BarHandler) SearchBars(c *gin.Context) {
	size := 0
	if s := c.Query("size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			response.Fail(c, http.StatusBadRequest, "invalid query", map[string]string{"size": "must be a non-negative integer"})
			return
		}
		size = n
	}
	bars, err := h.Search.Search(c.Request.Context(), c.Query("q"), size)
	if err != nil {
		h.internal(c, "search bars failed", err)
		return
	}
	c.JSON(http.StatusOK, bars)
}

func (h *BarHandler) internal(c *gin.Context, msg string, err error) {
	if h.Logger != nil {
		h.Logger.WithError(err).WithField("request_id", c.GetString("request_id")).Error(msg)
	}
	response.Fail(c, http.StatusInternalServerError, "internal error", nil)
}

// barID parses the :id path parameter, writing a 400 when it is not an integer.
func barID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid bar id", map[string]string{"id": "must be an integer"})
		return 0, false
	}
	return id, true
}
