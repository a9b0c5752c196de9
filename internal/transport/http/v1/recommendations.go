package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hanloto/fortuna/internal/domain"
	"github.com/hanloto/fortuna/internal/service"
)

type prepareRequest struct {
	UserID    string             `json:"user_id"`
	Type      string             `json:"type"`
	GameCount int                `json:"game_count"`
	Round     int                `json:"round,omitempty"`
	Conds     *domain.Conditions `json:"conditions,omitempty"`
}

// PrepareRecommendation creates a PENDING paid generation request.
// POST /v1/recommendations/prepare
func (h *Handler) PrepareRecommendation(c echo.Context) error {
	var req prepareRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("validation_error", "invalid request body", false))
	}

	params, err := h.service.Prepare(c.Request().Context(), service.PrepareRequest{
		UserID:    req.UserID,
		Type:      domain.RecommendationType(req.Type),
		GameCount: req.GameCount,
		Round:     req.Round,
		Conds:     req.Conds,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, params)
}

type linkOrderRequest struct {
	OrderID string `json:"order_id"`
}

// LinkToOrder attaches an order to a pending request.
// POST /v1/recommendations/:params_id/link
func (h *Handler) LinkToOrder(c echo.Context) error {
	var req linkOrderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("validation_error", "invalid request body", false))
	}

	params, err := h.service.LinkToOrder(c.Request().Context(), c.Param("params_id"), req.OrderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, params)
}

type generateRequest struct {
	UserID string `json:"user_id"`
}

// GenerateFromOrder runs the payment-gated generation for an order.
// POST /v1/recommendations/orders/:order_id/generate
func (h *Handler) GenerateFromOrder(c echo.Context) error {
	var req generateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("validation_error", "invalid request body", false))
	}

	result, err := h.service.GenerateFromOrder(c.Request().Context(), c.Param("order_id"), req.UserID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

type freeGenerateRequest struct {
	UserID    string             `json:"user_id"`
	GameCount int                `json:"game_count"`
	Round     int                `json:"round,omitempty"`
	Conds     *domain.Conditions `json:"conditions,omitempty"`
}

// GenerateFree runs the unpaid direct generation path.
// POST /v1/recommendations/free
func (h *Handler) GenerateFree(c echo.Context) error {
	var req freeGenerateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("validation_error", "invalid request body", false))
	}

	result, err := h.service.GenerateFree(c.Request().Context(), service.FreeGenerateRequest{
		UserID:    req.UserID,
		GameCount: req.GameCount,
		Round:     req.Round,
		Conds:     req.Conds,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// GetRecommendation retrieves a generation request by id.
// GET /v1/recommendations/:params_id
func (h *Handler) GetRecommendation(c echo.Context) error {
	params, err := h.service.GetParams(c.Request().Context(), c.Param("params_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, params)
}

// GetOrderResult retrieves the committed result of an order.
// GET /v1/recommendations/orders/:order_id/result
func (h *Handler) GetOrderResult(c echo.Context) error {
	result, err := h.service.GetResultByOrder(c.Request().Context(), c.Param("order_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}
