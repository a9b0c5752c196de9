package service

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/hanloto/fortuna/internal/adapter/oracle"
	"github.com/hanloto/fortuna/internal/domain"
)

const (
	// chatOverheadSeconds is charged on top of measured oracle time
	// for every paid turn.
	chatOverheadSeconds = 5
	// contextWindow is how many prior exchanges the oracle sees.
	contextWindow = 3
	// maxCategorySuggestions bounds the drift redirect notice.
	maxCategorySuggestions = 3
)

// CreateSessionRequest carries the inputs for a new session.
type CreateSessionRequest struct {
	UserID         string
	Category       domain.Category
	Mode           domain.InteractionMode
	InitialSeconds int
	RequestedForm  string
	OriginalInput  string
	UserData       []byte
}

// CreateSession creates and persists a new consultation session.
func (s *Service) CreateSession(ctx context.Context, req CreateSessionRequest) (*domain.Session, error) {
	mode := req.Mode
	if mode == "" {
		mode = domain.ModeChat
	}
	sess, err := domain.NewSession("sess_"+uuid.New().String()[:8], req.UserID, req.Category, mode, req.InitialSeconds, s.now())
	if err != nil {
		return nil, err
	}
	sess.RequestedForm = req.RequestedForm
	sess.OriginalInput = req.OriginalInput
	sess.UserData = req.UserData

	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return sess, nil
}

// GetSession loads a session by id.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if sess == nil {
		return nil, domain.NewNotFoundError("session", sessionID)
	}
	return sess, nil
}

// ListUserSessions lists a user's sessions, optionally active only.
func (s *Service) ListUserSessions(ctx context.Context, userID string, activeOnly bool) ([]domain.Session, error) {
	sessions, err := s.store.GetSessionsByUser(ctx, userID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// ExtendSession grants extra seconds after a top-up. A closed session
// is never resurrected here; the caller gets an InvalidStateError and
// must create a new session instead.
func (s *Service) ExtendSession(ctx context.Context, sessionID string, seconds int) (*domain.Session, error) {
	if seconds <= 0 {
		return nil, domain.NewValidationError("seconds", "must be positive")
	}
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.IsActive {
		return nil, domain.NewInvalidStateError("extend", "inactive")
	}

	next := sess.AddTime(seconds, s.now())
	if err := s.store.UpdateSession(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

// CloseSession terminates a session explicitly.
func (s *Service) CloseSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	next := sess.Close(s.now())
	if err := s.store.UpdateSession(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

// GetConversationLog returns all exchanges of a session, oldest first.
func (s *Service) GetConversationLog(ctx context.Context, sessionID string) ([]domain.ConversationLogEntry, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	entries, err := s.store.GetLogEntries(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation log: %w", err)
	}
	return entries, nil
}

// ChatTurnResult is the outcome of one consultation turn.
type ChatTurnResult struct {
	Reply string `json:"reply"`
	// Drift is set when the utterance belongs to another category; the
	// turn is then not time-accounted and Reply is a redirect notice.
	Drift               bool              `json:"drift,omitempty"`
	DetectedCategory    domain.Category   `json:"detected_category,omitempty"`
	SuggestedCategories []domain.Category `json:"suggested_categories,omitempty"`
	// NeedsPayment flags the near-threshold upsell prompt. Exhausted
	// replaces it when the budget hit zero on this turn.
	NeedsPayment    bool            `json:"needs_payment,omitempty"`
	Exhausted       bool            `json:"exhausted,omitempty"`
	ConsumedSeconds int             `json:"consumed_seconds"`
	Session         *domain.Session `json:"session"`
}

// ChatTurn runs one end-to-end consultation exchange: drift check,
// context fetch, oracle call, time accounting, log append, persist.
func (s *Service) ChatTurn(ctx context.Context, sessionID, userInput string) (*ChatTurnResult, error) {
	if userInput == "" {
		return nil, domain.NewValidationError("user_input", "must not be empty")
	}

	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.IsActive || sess.RemainingSeconds <= 0 {
		return nil, domain.NewInvalidStateError("chat", "inactive")
	}

	// Off-topic input redirects instead of consuming time.
	if detected, drifted := domain.DetectDrift(sess.Category, userInput); drifted {
		s.metrics.ChatTurns.WithLabelValues("drift").Inc()
		return &ChatTurnResult{
			Reply:               fmt.Sprintf("이 상담은 %s 전용입니다. %s 상담을 새로 시작해 주세요.", sess.Category, detected),
			Drift:               true,
			DetectedCategory:    detected,
			SuggestedCategories: s.suggestions.SuggestCategories(sess.Category, maxCategorySuggestions),
			Session:             sess,
		}, nil
	}

	history, err := s.store.GetRecentLogEntries(ctx, sessionID, contextWindow)
	if err != nil {
		log.Printf("WARN: failed to load chat context: %v", err)
		history = nil
	}
	priorContext := make([]oracle.ChatExchange, 0, len(history))
	for _, h := range history {
		priorContext = append(priorContext, oracle.ChatExchange{UserInput: h.UserInput, AssistantReply: h.AssistantReply})
	}

	started := s.now()
	reply, err := s.oracle.GenerateChatReply(ctx, &oracle.ChatRequest{
		Category:     sess.Category,
		UserInput:    userInput,
		PriorContext: priorContext,
	})
	finished := s.now()
	s.metrics.observeOracleLatency(finished.Sub(started))
	if err != nil {
		s.metrics.ChatTurns.WithLabelValues("error").Inc()
		return nil, domain.NewUpstreamError("oracle", err)
	}

	elapsed := int(finished.Sub(started).Seconds())
	consumed := elapsed + chatOverheadSeconds

	// Paid iff the turn actually reduced the budget; the active guard
	// above makes this always true today, but the log carries the
	// authoritative flag.
	paid := sess.RemainingSeconds > 0
	next := sess.ConsumeTime(consumed, finished)

	result := &ChatTurnResult{
		Reply:           reply.Reply,
		ConsumedSeconds: consumed,
		Session:         next,
	}
	if next.RemainingSeconds == 0 {
		result.Exhausted = true
		result.Reply += "\n\n상담 시간이 모두 소진되었습니다. 시간을 충전하시면 상담을 이어갈 수 있습니다."
	} else if next.NeedsPaymentPrompt() {
		result.NeedsPayment = true
		result.Reply += "\n\n상담 시간이 곧 종료됩니다. 계속하시려면 시간을 충전해 주세요."
	}

	// The session write lands first: a version conflict aborts the turn
	// before anything is logged, so a client retry cannot leave a paid
	// entry behind for time that was never charged.
	if err := s.store.UpdateSession(ctx, next); err != nil {
		return nil, err
	}

	entry := &domain.ConversationLogEntry{
		LogID:          "log_" + uuid.New().String()[:8],
		SessionID:      sessionID,
		UserInput:      userInput,
		AssistantReply: result.Reply,
		ElapsedSeconds: consumed,
		Paid:           paid,
		CreatedAt:      finished,
	}
	if err := s.store.AppendLogEntry(ctx, entry); err != nil {
		// The turn is already charged; losing one log row must not fail it.
		log.Printf("ERROR: failed to append conversation log: %v", err)
	}

	outcome := "ok"
	if result.Exhausted {
		outcome = "exhausted"
	}
	s.metrics.ChatTurns.WithLabelValues(outcome).Inc()
	return result, nil
}
