package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanloto/fortuna/config"
	"github.com/hanloto/fortuna/internal/adapter/oracle"
	"github.com/hanloto/fortuna/internal/adapter/orders"
	"github.com/hanloto/fortuna/internal/adapter/rounds"
	"github.com/hanloto/fortuna/internal/domain"
	store "github.com/hanloto/fortuna/internal/repository"
	"github.com/hanloto/fortuna/internal/service"
	"github.com/hanloto/fortuna/policy"
)

// Prometheus instruments register on the default registry once per
// process, so every test server shares one set.
var testMetrics = service.NewMetrics("fortuna_v1_test")

func newTestServer(t *testing.T) (*echo.Echo, *store.SQLiteStore, *oracle.MockOracle) {
	t.Helper()
	st, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	gate, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	require.NoError(t, err)

	mock := oracle.NewMockOracle()
	cfg := &config.Config{LookupTimeout: time.Second}
	svc := service.New(st, mock, orders.NewStoreGateway(st), &rounds.Static{Round: 1099}, gate, domain.OrderedSuggestions{}, cfg, testMetrics)

	e := echo.New()
	NewHandler(svc).RegisterRoutes(e)
	return e, st, mock
}

func doJSON(t *testing.T, e *echo.Echo, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func errorCode(t *testing.T, body map[string]interface{}) (string, bool) {
	t.Helper()
	errObj, ok := body["error"].(map[string]interface{})
	require.True(t, ok, "expected error envelope, got %v", body)
	code, _ := errObj["code"].(string)
	retryable, _ := errObj["retryable"].(bool)
	return code, retryable
}

func TestHealth(t *testing.T) {
	e, _, _ := newTestServer(t)
	rec, body := doJSON(t, e, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
}

func TestCreateAndGetSessionEndpoint(t *testing.T) {
	e, _, _ := newTestServer(t)

	rec, body := doJSON(t, e, http.MethodPost, "/v1/sessions", map[string]interface{}{
		"user_id":         "user_1",
		"category":        "LOVE",
		"initial_seconds": 600,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	sessionID, _ := body["session_id"].(string)
	require.NotEmpty(t, sessionID)
	assert.Equal(t, float64(600), body["remaining_seconds"])

	rec, body = doJSON(t, e, http.MethodGet, "/v1/sessions/"+sessionID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, sessionID, body["session_id"])
}

func TestCreateSessionValidation(t *testing.T) {
	e, _, _ := newTestServer(t)

	rec, body := doJSON(t, e, http.MethodPost, "/v1/sessions", map[string]interface{}{
		"user_id":         "user_1",
		"category":        "ASTROLOGY",
		"initial_seconds": 600,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	code, retryable := errorCode(t, body)
	assert.Equal(t, "validation_error", code)
	assert.False(t, retryable)
}

func TestGetSessionNotFoundEndpoint(t *testing.T) {
	e, _, _ := newTestServer(t)

	rec, body := doJSON(t, e, http.MethodGet, "/v1/sessions/sess_missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	code, _ := errorCode(t, body)
	assert.Equal(t, "not_found", code)
}

func TestChatTurnEndpoint(t *testing.T) {
	e, _, mock := newTestServer(t)

	_, created := doJSON(t, e, http.MethodPost, "/v1/sessions", map[string]interface{}{
		"user_id":         "user_1",
		"category":        "LUCKY_NUMBER",
		"initial_seconds": 600,
	})
	sessionID := created["session_id"].(string)

	rec, body := doJSON(t, e, http.MethodPost, "/v1/sessions/"+sessionID+"/chat", map[string]interface{}{
		"user_input": "이번 주 로또 번호 봐줘",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body["reply"], "[MOCK]")
	// The mock replies instantly, leaving only the per-turn overhead.
	assert.Equal(t, float64(5), body["consumed_seconds"])
	assert.Equal(t, 1, mock.ChatCalls)

	// Logs carry the exchange.
	rec, body = doJSON(t, e, http.MethodGet, "/v1/sessions/"+sessionID+"/logs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := body["entries"].([]interface{})
	assert.Len(t, entries, 1)
}

func TestChatTurnOnClosedSession(t *testing.T) {
	e, _, _ := newTestServer(t)

	_, created := doJSON(t, e, http.MethodPost, "/v1/sessions", map[string]interface{}{
		"user_id":         "user_1",
		"category":        "LOVE",
		"initial_seconds": 600,
	})
	sessionID := created["session_id"].(string)

	rec, _ := doJSON(t, e, http.MethodPost, "/v1/sessions/"+sessionID+"/close", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := doJSON(t, e, http.MethodPost, "/v1/sessions/"+sessionID+"/chat", map[string]interface{}{
		"user_input": "연애운 봐줘",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	code, retryable := errorCode(t, body)
	assert.Equal(t, "invalid_state", code)
	assert.False(t, retryable)
}

func TestExtendSessionEndpoint(t *testing.T) {
	e, _, _ := newTestServer(t)

	_, created := doJSON(t, e, http.MethodPost, "/v1/sessions", map[string]interface{}{
		"user_id":         "user_1",
		"category":        "WEALTH",
		"initial_seconds": 100,
	})
	sessionID := created["session_id"].(string)

	rec, body := doJSON(t, e, http.MethodPost, "/v1/sessions/"+sessionID+"/extend", map[string]interface{}{
		"seconds": 300,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(400), body["remaining_seconds"])

	rec, body = doJSON(t, e, http.MethodPost, "/v1/sessions/"+sessionID+"/extend", map[string]interface{}{
		"seconds": -5,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	code, _ := errorCode(t, body)
	assert.Equal(t, "validation_error", code)
}

func TestListUserSessionsEndpoint(t *testing.T) {
	e, _, _ := newTestServer(t)

	doJSON(t, e, http.MethodPost, "/v1/sessions", map[string]interface{}{
		"user_id": "user_1", "category": "LOVE", "initial_seconds": 600,
	})
	doJSON(t, e, http.MethodPost, "/v1/sessions", map[string]interface{}{
		"user_id": "user_1", "category": "DREAM", "initial_seconds": 600,
	})

	rec, body := doJSON(t, e, http.MethodGet, "/v1/users/user_1/sessions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["sessions"].([]interface{}), 2)

	rec, body = doJSON(t, e, http.MethodGet, "/v1/users/user_2/sessions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["sessions"].([]interface{}), 0)
}

func TestRecommendationOrderFlowEndpoint(t *testing.T) {
	e, st, mock := newTestServer(t)
	ctx := context.Background()

	rec, body := doJSON(t, e, http.MethodPost, "/v1/recommendations/prepare", map[string]interface{}{
		"user_id":    "user_1",
		"type":       "PREMIUM",
		"game_count": 2,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	paramsID := body["params_id"].(string)
	assert.Equal(t, "PENDING", body["status"])

	rec, body = doJSON(t, e, http.MethodPost, "/v1/recommendations/"+paramsID+"/link", map[string]interface{}{
		"order_id": "order_1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "PAYMENT_PENDING", body["status"])

	now := time.Now().UTC()
	require.NoError(t, st.CreateOrder(ctx, &domain.Order{
		OrderID: "order_1", UserID: "user_1", Status: domain.OrderPaid, CreatedAt: now, UpdatedAt: now,
	}))

	rec, body = doJSON(t, e, http.MethodPost, "/v1/recommendations/orders/order_1/generate", map[string]interface{}{
		"user_id": "user_1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	resultID := body["result_id"].(string)
	assert.Len(t, body["number_sets"].([]interface{}), 2)

	// Repeat call replays the stored result.
	rec, body = doJSON(t, e, http.MethodPost, "/v1/recommendations/orders/order_1/generate", map[string]interface{}{
		"user_id": "user_1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, resultID, body["result_id"])
	assert.Equal(t, 1, mock.GenerateCalls)

	rec, body = doJSON(t, e, http.MethodGet, "/v1/recommendations/orders/order_1/result", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, resultID, body["result_id"])

	rec, body = doJSON(t, e, http.MethodGet, "/v1/recommendations/"+paramsID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "COMPLETED", body["status"])
}

func TestGenerateFromOrderForbiddenEndpoint(t *testing.T) {
	e, st, _ := newTestServer(t)
	ctx := context.Background()

	_, body := doJSON(t, e, http.MethodPost, "/v1/recommendations/prepare", map[string]interface{}{
		"user_id": "user_1", "type": "PREMIUM", "game_count": 2,
	})
	paramsID := body["params_id"].(string)
	doJSON(t, e, http.MethodPost, "/v1/recommendations/"+paramsID+"/link", map[string]interface{}{
		"order_id": "order_1",
	})
	now := time.Now().UTC()
	require.NoError(t, st.CreateOrder(ctx, &domain.Order{
		OrderID: "order_1", UserID: "user_1", Status: domain.OrderPaid, CreatedAt: now, UpdatedAt: now,
	}))

	rec, body := doJSON(t, e, http.MethodPost, "/v1/recommendations/orders/order_1/generate", map[string]interface{}{
		"user_id": "user_2",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	code, _ := errorCode(t, body)
	assert.Equal(t, "forbidden", code)
}

func TestGenerateFreeEndpoint(t *testing.T) {
	e, _, _ := newTestServer(t)

	rec, body := doJSON(t, e, http.MethodPost, "/v1/recommendations/free", map[string]interface{}{
		"user_id":    "user_1",
		"game_count": 3,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["number_sets"].([]interface{}), 3)

	rec, body = doJSON(t, e, http.MethodPost, "/v1/recommendations/free", map[string]interface{}{
		"user_id":    "user_1",
		"game_count": 6,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	code, _ := errorCode(t, body)
	assert.Equal(t, "validation_error", code)
}

func TestUpstreamFailureMapsToBadGateway(t *testing.T) {
	e, st, mock := newTestServer(t)
	ctx := context.Background()
	mock.Malformed = true

	_, body := doJSON(t, e, http.MethodPost, "/v1/recommendations/prepare", map[string]interface{}{
		"user_id": "user_1", "type": "PREMIUM", "game_count": 2,
	})
	paramsID := body["params_id"].(string)
	doJSON(t, e, http.MethodPost, "/v1/recommendations/"+paramsID+"/link", map[string]interface{}{
		"order_id": "order_1",
	})
	now := time.Now().UTC()
	require.NoError(t, st.CreateOrder(ctx, &domain.Order{
		OrderID: "order_1", UserID: "user_1", Status: domain.OrderPaid, CreatedAt: now, UpdatedAt: now,
	}))

	rec, body := doJSON(t, e, http.MethodPost, "/v1/recommendations/orders/order_1/generate", map[string]interface{}{
		"user_id": "user_1",
	})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	code, retryable := errorCode(t, body)
	assert.Equal(t, "upstream_error", code)
	assert.True(t, retryable)
	// Oracle internals never leak into responses.
	errObj := body["error"].(map[string]interface{})
	assert.Equal(t, "temporary failure, please retry", errObj["message"])
}
