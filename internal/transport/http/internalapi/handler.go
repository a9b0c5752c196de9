// Package internalapi provides the internal HTTP API: sweep triggers
// and metrics. Not exposed publicly.
package internalapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hanloto/fortuna/internal/service"
)

// Handler handles internal HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new internal handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers internal routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/internal/sweep/sessions", h.SweepSessions)
	e.POST("/internal/sweep/recommendations", h.SweepRecommendations)
	e.POST("/internal/purge/recommendations", h.PurgeRecommendations)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

// SweepSessions force-closes expired-but-active sessions.
// POST /internal/sweep/sessions
func (h *Handler) SweepSessions(c echo.Context) error {
	closed, err := h.service.SweepSessions(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]int{"closed": closed})
}

// SweepRecommendations expires stale generation requests.
// POST /internal/sweep/recommendations
func (h *Handler) SweepRecommendations(c echo.Context) error {
	expired, err := h.service.SweepRecommendations(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]int{"expired": expired})
}

// PurgeRecommendations deletes expired generation requests.
// POST /internal/purge/recommendations
func (h *Handler) PurgeRecommendations(c echo.Context) error {
	purged, err := h.service.PurgeRecommendations(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]int{"purged": purged})
}
