package orders

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanloto/fortuna/internal/domain"
)

func TestClientGetOrderStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/orders/order_1":
			json.NewEncoder(w).Encode(statusResponse{OrderID: "order_1", Status: domain.OrderPaid})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	c := NewClient(server.URL, 5*time.Second)

	status, err := c.GetOrderStatus(context.Background(), "order_1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPaid, status)

	_, err = c.GetOrderStatus(context.Background(), "order_missing")
	var nf *domain.NotFoundError
	require.True(t, errors.As(err, &nf))
}

func TestClientSetOrderStatus(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := NewClient(server.URL, 5*time.Second)
	require.NoError(t, c.SetOrderStatus(context.Background(), "order_1", domain.OrderPaid))
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/orders/order_1/status", gotPath)
	assert.Equal(t, "PAID", gotBody["status"])
}
