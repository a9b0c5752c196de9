package v1

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hanloto/fortuna/internal/domain"
	"github.com/hanloto/fortuna/internal/service"
)

type createSessionRequest struct {
	UserID         string          `json:"user_id"`
	Category       string          `json:"category"`
	Mode           string          `json:"mode,omitempty"`
	InitialSeconds int             `json:"initial_seconds"`
	RequestedForm  string          `json:"requested_form,omitempty"`
	OriginalInput  string          `json:"original_input,omitempty"`
	UserData       json.RawMessage `json:"user_data,omitempty"`
}

// CreateSession creates a new consultation session.
// POST /v1/sessions
func (h *Handler) CreateSession(c echo.Context) error {
	var req createSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("validation_error", "invalid request body", false))
	}

	sess, err := h.service.CreateSession(c.Request().Context(), service.CreateSessionRequest{
		UserID:         req.UserID,
		Category:       domain.Category(req.Category),
		Mode:           domain.InteractionMode(req.Mode),
		InitialSeconds: req.InitialSeconds,
		RequestedForm:  req.RequestedForm,
		OriginalInput:  req.OriginalInput,
		UserData:       req.UserData,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, sess)
}

// GetSession retrieves a session.
// GET /v1/sessions/:session_id
func (h *Handler) GetSession(c echo.Context) error {
	sess, err := h.service.GetSession(c.Request().Context(), c.Param("session_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, sess)
}

type chatTurnRequest struct {
	UserInput string `json:"user_input"`
}

// ChatTurn runs one consultation exchange.
// POST /v1/sessions/:session_id/chat
func (h *Handler) ChatTurn(c echo.Context) error {
	var req chatTurnRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("validation_error", "invalid request body", false))
	}

	result, err := h.service.ChatTurn(c.Request().Context(), c.Param("session_id"), req.UserInput)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

type extendSessionRequest struct {
	Seconds int `json:"seconds"`
}

// ExtendSession grants extra time after a top-up.
// POST /v1/sessions/:session_id/extend
func (h *Handler) ExtendSession(c echo.Context) error {
	var req extendSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("validation_error", "invalid request body", false))
	}

	sess, err := h.service.ExtendSession(c.Request().Context(), c.Param("session_id"), req.Seconds)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, sess)
}

// CloseSession terminates a session.
// POST /v1/sessions/:session_id/close
func (h *Handler) CloseSession(c echo.Context) error {
	sess, err := h.service.CloseSession(c.Request().Context(), c.Param("session_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, sess)
}

// GetConversationLog returns all exchanges of a session, oldest first.
// GET /v1/sessions/:session_id/logs
func (h *Handler) GetConversationLog(c echo.Context) error {
	entries, err := h.service.GetConversationLog(c.Request().Context(), c.Param("session_id"))
	if err != nil {
		return writeError(c, err)
	}
	if entries == nil {
		entries = []domain.ConversationLogEntry{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"entries": entries,
	})
}

// ListUserSessions lists a user's sessions.
// GET /v1/users/:user_id/sessions?active=true
func (h *Handler) ListUserSessions(c echo.Context) error {
	activeOnly := c.QueryParam("active") == "true"
	sessions, err := h.service.ListUserSessions(c.Request().Context(), c.Param("user_id"), activeOnly)
	if err != nil {
		return writeError(c, err)
	}
	if sessions == nil {
		sessions = []domain.Session{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"sessions": sessions,
	})
}
