// Package store provides persistence for sessions, conversation logs,
// recommendation requests, results and order projections.
package store

import (
	"context"
	"time"

	"github.com/hanloto/fortuna/internal/domain"
)

// Store is the persistence boundary. Reads return (nil, nil) for
// missing records; the service layer turns that into NotFoundError.
type Store interface {
	// Sessions
	CreateSession(ctx context.Context, s *domain.Session) error
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
	GetSessionsByUser(ctx context.Context, userID string, activeOnly bool) ([]domain.Session, error)
	FindActiveSession(ctx context.Context, userID string, category domain.Category) (*domain.Session, error)
	// UpdateSession writes the snapshot guarded by its Version and
	// bumps it; a moved version yields ConflictError.
	UpdateSession(ctx context.Context, s *domain.Session) error
	// SweepExpiredSessions force-closes sessions whose deadline passed
	// while still marked active and returns how many it closed.
	SweepExpiredSessions(ctx context.Context, now time.Time) (int, error)

	// Conversation log (append-only)
	AppendLogEntry(ctx context.Context, e *domain.ConversationLogEntry) error
	GetLogEntry(ctx context.Context, logID string) (*domain.ConversationLogEntry, error)
	GetLogEntries(ctx context.Context, sessionID string) ([]domain.ConversationLogEntry, error)
	// GetRecentLogEntries returns the last k entries, oldest first.
	GetRecentLogEntries(ctx context.Context, sessionID string, k int) ([]domain.ConversationLogEntry, error)

	// Recommendation params
	CreateParams(ctx context.Context, p *domain.RecommendationParams) error
	GetParams(ctx context.Context, paramsID string) (*domain.RecommendationParams, error)
	GetParamsByUser(ctx context.Context, userID string) ([]domain.RecommendationParams, error)
	GetParamsByOrderID(ctx context.Context, orderID string) (*domain.RecommendationParams, error)
	GetParamsByStatus(ctx context.Context, status domain.RecommendationStatus) ([]domain.RecommendationParams, error)
	UpdateParams(ctx context.Context, p *domain.RecommendationParams) error
	// LinkParamsToOrder attaches an order iff the request is still
	// PENDING, moving it to PAYMENT_PENDING. linked=false means the
	// status moved first. An order already attached to another request
	// yields ConflictError.
	LinkParamsToOrder(ctx context.Context, paramsID, orderID string, now time.Time) (bool, error)
	// TransitionParamsStatus moves the request to the target status iff
	// its current status is one of from. moved=false means another
	// writer got there first; the caller re-reads instead of clobbering.
	TransitionParamsStatus(ctx context.Context, paramsID string, to domain.RecommendationStatus, now time.Time, from ...domain.RecommendationStatus) (bool, error)
	// ClaimForGeneration atomically moves the request to GENERATING
	// iff its status still permits generation. Exactly one of two
	// racing callers wins; the loser gets claimed=false.
	ClaimForGeneration(ctx context.Context, paramsID string, now time.Time) (bool, error)
	DeleteParams(ctx context.Context, paramsID string) error
	// SweepExpiredParams marks stale non-terminal requests EXPIRED.
	SweepExpiredParams(ctx context.Context, now time.Time) (int, error)
	// PurgeExpiredParams deletes requests that are expired and
	// non-terminal or already marked EXPIRED.
	PurgeExpiredParams(ctx context.Context, now time.Time) (int, error)

	// Results
	CreateResult(ctx context.Context, r *domain.RecommendationResult) error
	GetResult(ctx context.Context, resultID string) (*domain.RecommendationResult, error)
	GetResultByOrderID(ctx context.Context, orderID string) (*domain.RecommendationResult, error)
	GetRecentResults(ctx context.Context, userID string, limit int) ([]domain.RecommendationResult, error)

	// Orders (local projection of the order collaborator)
	CreateOrder(ctx context.Context, o *domain.Order) error
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus, now time.Time) error

	Close() error
}
