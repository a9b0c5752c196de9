// Package v1 provides the public HTTP API.
package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hanloto/fortuna/internal/domain"
	"github.com/hanloto/fortuna/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers public routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Session API
	e.POST("/v1/sessions", h.CreateSession)
	e.GET("/v1/sessions/:session_id", h.GetSession)
	e.POST("/v1/sessions/:session_id/chat", h.ChatTurn)
	e.POST("/v1/sessions/:session_id/extend", h.ExtendSession)
	e.POST("/v1/sessions/:session_id/close", h.CloseSession)
	e.GET("/v1/sessions/:session_id/logs", h.GetConversationLog)
	e.GET("/v1/users/:user_id/sessions", h.ListUserSessions)

	// Recommendation API
	e.POST("/v1/recommendations/prepare", h.PrepareRecommendation)
	e.POST("/v1/recommendations/:params_id/link", h.LinkToOrder)
	e.POST("/v1/recommendations/orders/:order_id/generate", h.GenerateFromOrder)
	e.POST("/v1/recommendations/free", h.GenerateFree)
	e.GET("/v1/recommendations/:params_id", h.GetRecommendation)
	e.GET("/v1/recommendations/orders/:order_id/result", h.GetOrderResult)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

// writeError maps domain errors to HTTP responses. Upstream detail is
// reduced to a generic retryable message.
func writeError(c echo.Context, err error) error {
	var (
		ve *domain.ValidationError
		nf *domain.NotFoundError
		fe *domain.ForbiddenError
		se *domain.InvalidStateError
		ce *domain.ConflictError
		ue *domain.UpstreamError
	)
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, errorBody("validation_error", err.Error(), false))
	case errors.As(err, &nf):
		return c.JSON(http.StatusNotFound, errorBody("not_found", err.Error(), false))
	case errors.As(err, &fe):
		return c.JSON(http.StatusForbidden, errorBody("forbidden", err.Error(), false))
	case errors.As(err, &se):
		return c.JSON(http.StatusConflict, errorBody("invalid_state", err.Error(), false))
	case errors.As(err, &ce):
		return c.JSON(http.StatusConflict, errorBody("conflict", "concurrent update, please retry", true))
	case errors.As(err, &ue):
		return c.JSON(http.StatusBadGateway, errorBody("upstream_error", "temporary failure, please retry", true))
	default:
		return c.JSON(http.StatusInternalServerError, errorBody("internal_error", "internal error", false))
	}
}

func errorBody(code, message string, retryable bool) map[string]interface{} {
	return map[string]interface{}{
		"error": map[string]interface{}{
			"code":      code,
			"message":   message,
			"retryable": retryable,
		},
	}
}
