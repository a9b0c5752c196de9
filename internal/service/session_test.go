package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanloto/fortuna/internal/adapter/oracle"
	"github.com/hanloto/fortuna/internal/domain"
	store "github.com/hanloto/fortuna/internal/repository"
)

func TestCreateAndGetSession(t *testing.T) {
	clock := newFakeClock()
	svc, _ := newTestService(t, oracle.NewMockOracle(), clock)
	ctx := context.Background()

	sess, err := svc.CreateSession(ctx, CreateSessionRequest{
		UserID:         "user_1",
		Category:       domain.CategoryLove,
		InitialSeconds: 600,
		UserData:       []byte(`{"birth":"1990-01-01"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ModeChat, sess.Mode)
	assert.True(t, sess.IsActive)

	got, err := svc.GetSession(ctx, sess.SessionID)
	require.NoError(t, err)
	assert.Equal(t, sess.SessionID, got.SessionID)
	assert.Equal(t, 600, got.RemainingSeconds)
}

func TestGetSessionNotFound(t *testing.T) {
	clock := newFakeClock()
	svc, _ := newTestService(t, oracle.NewMockOracle(), clock)

	_, err := svc.GetSession(context.Background(), "sess_missing")
	var nf *domain.NotFoundError
	require.True(t, errors.As(err, &nf))
}

func TestChatTurnTimeAccounting(t *testing.T) {
	clock := newFakeClock()
	mock := oracle.NewMockOracle()
	slow := &slowOracle{MockOracle: mock, clock: clock, delay: 7 * time.Second}
	svc, st := newTestService(t, slow, clock)
	ctx := context.Background()

	sess, err := svc.CreateSession(ctx, CreateSessionRequest{
		UserID:         "user_1",
		Category:       domain.CategoryLuckyNumber,
		InitialSeconds: 40,
	})
	require.NoError(t, err)

	// 7s measured + 5s overhead = 12s consumed.
	res, err := svc.ChatTurn(ctx, sess.SessionID, "이번 주 로또 번호 봐줘")
	require.NoError(t, err)
	assert.Equal(t, 12, res.ConsumedSeconds)
	assert.Equal(t, 28, res.Session.RemainingSeconds)
	assert.False(t, res.Exhausted)
	// 28s remaining is at or below the prompt threshold.
	assert.True(t, res.NeedsPayment)
	assert.Contains(t, res.Reply, "충전")

	entries, err := st.GetLogEntries(ctx, sess.SessionID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Paid)
	assert.Equal(t, 12, entries[0].ElapsedSeconds)

	// A 25s oracle call overshoots the 28s budget: clamp, close, swap in
	// the exhausted message.
	slow.delay = 25 * time.Second
	res, err = svc.ChatTurn(ctx, sess.SessionID, "로또 번호 하나 더")
	require.NoError(t, err)
	assert.Equal(t, 30, res.ConsumedSeconds)
	assert.Equal(t, 0, res.Session.RemainingSeconds)
	assert.True(t, res.Exhausted)
	assert.False(t, res.NeedsPayment)
	assert.False(t, res.Session.IsActive)
	assert.Contains(t, res.Reply, "소진")

	// The closed session rejects further turns.
	_, err = svc.ChatTurn(ctx, sess.SessionID, "복권 한 번만 더")
	var ise *domain.InvalidStateError
	require.True(t, errors.As(err, &ise))
	assert.Equal(t, 2, mock.ChatCalls)
}

func TestChatTurnDrift(t *testing.T) {
	clock := newFakeClock()
	mock := oracle.NewMockOracle()
	svc, st := newTestService(t, mock, clock)
	ctx := context.Background()

	sess, err := svc.CreateSession(ctx, CreateSessionRequest{
		UserID:         "user_1",
		Category:       domain.CategoryLuckyNumber,
		InitialSeconds: 600,
	})
	require.NoError(t, err)

	res, err := svc.ChatTurn(ctx, sess.SessionID, "오늘 연애운 봐줘")
	require.NoError(t, err)
	assert.True(t, res.Drift)
	assert.Equal(t, domain.CategoryLove, res.DetectedCategory)
	assert.Equal(t, []domain.Category{domain.CategoryLove, domain.CategoryWealth, domain.CategoryCareer}, res.SuggestedCategories)
	assert.Equal(t, 0, res.ConsumedSeconds)

	// A drift turn never reaches the oracle, logs nothing and costs nothing.
	assert.Equal(t, 0, mock.ChatCalls)
	entries, err := st.GetLogEntries(ctx, sess.SessionID)
	require.NoError(t, err)
	assert.Empty(t, entries)
	fresh, err := svc.GetSession(ctx, sess.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 600, fresh.RemainingSeconds)
}

func TestChatTurnOracleError(t *testing.T) {
	clock := newFakeClock()
	mock := oracle.NewMockOracle()
	mock.ChatErr = errors.New("oracle down")
	svc, _ := newTestService(t, mock, clock)
	ctx := context.Background()

	sess, err := svc.CreateSession(ctx, CreateSessionRequest{
		UserID:         "user_1",
		Category:       domain.CategoryLove,
		InitialSeconds: 600,
	})
	require.NoError(t, err)

	_, err = svc.ChatTurn(ctx, sess.SessionID, "짝사랑 고백해도 될까")
	require.Error(t, err)
	assert.True(t, domain.IsRetryable(err))

	// A failed turn costs nothing.
	fresh, err := svc.GetSession(ctx, sess.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 600, fresh.RemainingSeconds)
}

// conflictingStore fails a set number of session updates with a version
// conflict, standing in for a concurrent writer racing the turn.
type conflictingStore struct {
	*store.SQLiteStore
	failures int
}

func (c *conflictingStore) UpdateSession(ctx context.Context, sess *domain.Session) error {
	if c.failures > 0 {
		c.failures--
		return domain.NewConflictError("session", sess.SessionID)
	}
	return c.SQLiteStore.UpdateSession(ctx, sess)
}

func TestChatTurnConflictLeavesNoLogEntry(t *testing.T) {
	clock := newFakeClock()
	mock := oracle.NewMockOracle()
	svc, st := newTestService(t, mock, clock)
	ctx := context.Background()

	sess, err := svc.CreateSession(ctx, CreateSessionRequest{
		UserID:         "user_1",
		Category:       domain.CategoryLove,
		InitialSeconds: 600,
	})
	require.NoError(t, err)

	svc.store = &conflictingStore{SQLiteStore: st, failures: 1}

	_, err = svc.ChatTurn(ctx, sess.SessionID, "짝사랑 고백해도 될까")
	var ce *domain.ConflictError
	require.True(t, errors.As(err, &ce))

	// The aborted turn leaves no paid exchange and charges nothing.
	entries, err := st.GetLogEntries(ctx, sess.SessionID)
	require.NoError(t, err)
	assert.Empty(t, entries)
	fresh, err := svc.GetSession(ctx, sess.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 600, fresh.RemainingSeconds)

	// A retry goes through and logs exactly one entry.
	res, err := svc.ChatTurn(ctx, sess.SessionID, "짝사랑 고백해도 될까")
	require.NoError(t, err)
	entries, err = st.GetLogEntries(ctx, sess.SessionID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, res.ConsumedSeconds, entries[0].ElapsedSeconds)
}

func TestChatTurnValidation(t *testing.T) {
	clock := newFakeClock()
	svc, _ := newTestService(t, oracle.NewMockOracle(), clock)

	_, err := svc.ChatTurn(context.Background(), "sess_x", "")
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
}

func TestExtendSession(t *testing.T) {
	clock := newFakeClock()
	svc, _ := newTestService(t, oracle.NewMockOracle(), clock)
	ctx := context.Background()

	sess, err := svc.CreateSession(ctx, CreateSessionRequest{
		UserID:         "user_1",
		Category:       domain.CategoryWealth,
		InitialSeconds: 100,
	})
	require.NoError(t, err)

	extended, err := svc.ExtendSession(ctx, sess.SessionID, 300)
	require.NoError(t, err)
	assert.Equal(t, 400, extended.RemainingSeconds)

	_, err = svc.ExtendSession(ctx, sess.SessionID, 0)
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))

	// A closed session is never resurrected by an extension.
	_, err = svc.CloseSession(ctx, sess.SessionID)
	require.NoError(t, err)
	_, err = svc.ExtendSession(ctx, sess.SessionID, 300)
	var ise *domain.InvalidStateError
	require.True(t, errors.As(err, &ise))
}

func TestCloseSession(t *testing.T) {
	clock := newFakeClock()
	svc, _ := newTestService(t, oracle.NewMockOracle(), clock)
	ctx := context.Background()

	sess, err := svc.CreateSession(ctx, CreateSessionRequest{
		UserID:         "user_1",
		Category:       domain.CategoryDream,
		InitialSeconds: 600,
	})
	require.NoError(t, err)

	closed, err := svc.CloseSession(ctx, sess.SessionID)
	require.NoError(t, err)
	assert.False(t, closed.IsActive)
	assert.Equal(t, 0, closed.RemainingSeconds)
}

func TestListUserSessions(t *testing.T) {
	clock := newFakeClock()
	svc, _ := newTestService(t, oracle.NewMockOracle(), clock)
	ctx := context.Background()

	a, err := svc.CreateSession(ctx, CreateSessionRequest{UserID: "user_1", Category: domain.CategoryLove, InitialSeconds: 600})
	require.NoError(t, err)
	_, err = svc.CreateSession(ctx, CreateSessionRequest{UserID: "user_1", Category: domain.CategoryWealth, InitialSeconds: 600})
	require.NoError(t, err)
	_, err = svc.CloseSession(ctx, a.SessionID)
	require.NoError(t, err)

	all, err := svc.ListUserSessions(ctx, "user_1", false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := svc.ListUserSessions(ctx, "user_1", true)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestGetConversationLogMissingSession(t *testing.T) {
	clock := newFakeClock()
	svc, _ := newTestService(t, oracle.NewMockOracle(), clock)

	_, err := svc.GetConversationLog(context.Background(), "sess_missing")
	var nf *domain.NotFoundError
	require.True(t, errors.As(err, &nf))
}
