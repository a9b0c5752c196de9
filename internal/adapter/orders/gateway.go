// Package orders provides access to the order/payment collaborator.
package orders

import (
	"context"
	"time"

	"github.com/hanloto/fortuna/internal/domain"
	store "github.com/hanloto/fortuna/internal/repository"
)

// Gateway reports and updates order payment status. The collaborator is
// the source of truth for payment; this core reconciles against it but
// never assumes it is transactionally consistent with its own writes.
type Gateway interface {
	GetOrderStatus(ctx context.Context, orderID string) (domain.OrderStatus, error)
	SetOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error
}

// StoreGateway serves order status from the local order projection.
// This is the default wiring; deployments with a separate order system
// swap in an HTTP gateway.
type StoreGateway struct {
	store store.Store
	now   func() time.Time
}

// NewStoreGateway creates a store-backed gateway.
func NewStoreGateway(s store.Store) *StoreGateway {
	return &StoreGateway{store: s, now: time.Now}
}

var _ Gateway = (*StoreGateway)(nil)

// GetOrderStatus returns the projected status of an order.
func (g *StoreGateway) GetOrderStatus(ctx context.Context, orderID string) (domain.OrderStatus, error) {
	order, err := g.store.GetOrder(ctx, orderID)
	if err != nil {
		return "", err
	}
	if order == nil {
		return "", domain.NewNotFoundError("order", orderID)
	}
	return order.Status, nil
}

// SetOrderStatus updates the projected status of an order.
func (g *StoreGateway) SetOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	return g.store.UpdateOrderStatus(ctx, orderID, status, g.now())
}
