// Package domain defines the core domain models for the consultation service.
package domain

import (
	"encoding/json"
	"time"
)

// InteractionMode selects how a session consumes the consultation.
type InteractionMode string

const (
	ModeChat     InteractionMode = "chat"
	ModeDocument InteractionMode = "document"
)

// PaymentPromptThresholdSeconds is the remaining-time threshold at or
// below which an active session should surface a top-up prompt.
const PaymentPromptThresholdSeconds = 30

// Session is a time-boxed, single-topic consultation unit. Its time
// budget shrinks as turns consume it and grows on paid extensions.
// Transitions never mutate in place: each returns a new snapshot the
// caller persists, so a lost write cannot corrupt a shared pointer.
type Session struct {
	SessionID        string          `json:"session_id"`
	UserID           string          `json:"user_id"`
	Category         Category        `json:"category"`
	Mode             InteractionMode `json:"mode"`
	RemainingSeconds int             `json:"remaining_seconds"`
	ExpiresAt        time.Time       `json:"expires_at"`
	IsActive         bool            `json:"is_active"`
	RequestedForm    string          `json:"requested_form,omitempty"`
	OriginalInput    string          `json:"original_input,omitempty"`
	UserData         json.RawMessage `json:"user_data,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	// Version guards read-modify-write cycles at the store.
	Version int64 `json:"-"`
}

// NewSession creates an active session with an initial time grant.
func NewSession(sessionID, userID string, category Category, mode InteractionMode, initialSeconds int, now time.Time) (*Session, error) {
	if sessionID == "" {
		return nil, NewValidationError("session_id", "must not be empty")
	}
	if userID == "" {
		return nil, NewValidationError("user_id", "must not be empty")
	}
	if initialSeconds < 0 {
		return nil, NewValidationError("initial_seconds", "must not be negative")
	}
	if !category.Valid() {
		return nil, NewValidationError("category", "unknown category "+string(category))
	}
	return &Session{
		SessionID:        sessionID,
		UserID:           userID,
		Category:         category,
		Mode:             mode,
		RemainingSeconds: initialSeconds,
		ExpiresAt:        now.Add(time.Duration(initialSeconds) * time.Second),
		IsActive:         initialSeconds > 0,
		CreatedAt:        now,
	}, nil
}

// ConsumeTime deducts seconds from the budget, clamped at zero.
// Consuming past the budget is not an error; the session simply closes.
func (s *Session) ConsumeTime(seconds int, now time.Time) *Session {
	next := *s
	next.RemainingSeconds = s.RemainingSeconds - seconds
	if next.RemainingSeconds <= 0 {
		next.RemainingSeconds = 0
		next.IsActive = false
		next.ExpiresAt = now
		return &next
	}
	next.IsActive = true
	next.ExpiresAt = now.Add(time.Duration(next.RemainingSeconds) * time.Second)
	return &next
}

// AddTime grants extra seconds and recomputes the deadline. The
// arithmetic is unconditional; callers that must not resurrect closed
// sessions check IsActive before calling (the service extension path
// rejects inactive sessions with an InvalidStateError).
func (s *Session) AddTime(seconds int, now time.Time) *Session {
	next := *s
	next.RemainingSeconds = s.RemainingSeconds + seconds
	next.ExpiresAt = now.Add(time.Duration(next.RemainingSeconds) * time.Second)
	if next.RemainingSeconds > 0 {
		next.IsActive = true
	}
	return &next
}

// Close returns the terminal snapshot: zero budget, inactive, deadline now.
func (s *Session) Close(now time.Time) *Session {
	next := *s
	next.RemainingSeconds = 0
	next.IsActive = false
	next.ExpiresAt = now
	return &next
}

// NeedsPaymentPrompt reports whether the session is running low enough
// that the caller should surface a top-up message. Pure predicate.
func (s *Session) NeedsPaymentPrompt() bool {
	return s.IsActive && s.RemainingSeconds > 0 && s.RemainingSeconds <= PaymentPromptThresholdSeconds
}

// Expired reports whether the wall-clock deadline has passed.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// ConversationLogEntry records one exchange of a session. Entries are
// append-only and immutable once written.
type ConversationLogEntry struct {
	LogID          string    `json:"log_id"`
	SessionID      string    `json:"session_id"`
	UserInput      string    `json:"user_input"`
	AssistantReply string    `json:"assistant_reply"`
	ElapsedSeconds int       `json:"elapsed_seconds"`
	// Paid is true iff this exchange actually reduced the session budget.
	Paid      bool      `json:"paid"`
	CreatedAt time.Time `json:"created_at"`
}
