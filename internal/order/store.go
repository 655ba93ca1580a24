package order

import (
	"context"
	"time"
)

// Store describes persistence for orders and their change requests.
// DecideChange must lock both the change request and its order, verify the
// request is still REQUESTED, and on approval call Apply on the order —
// mutation and status flip commit atomically. CompleteOrder flips an active
// order to COMPLETED.
type Store interface {
	GetOrder(ctx context.Context, id string) (Order, error)
	GetOrderByOffer(ctx context.Context, offerID string) (Order, error)
	ListOrders(ctx context.Context, providerID string) ([]Order, error)
	CompleteOrder(ctx context.Context, id string, at time.Time) (Order, error)
	ListDueOrders(ctx context.Context, asOf time.Time) ([]Order, error)

	CreateChangeRequest(ctx context.Context, cr ChangeRequest) error
	GetChangeRequest(ctx context.Context, id string) (ChangeRequest, error)
	ListChangeRequests(ctx context.Context, orderID string) ([]ChangeRequest, error)
	DecideChange(ctx context.Context, changeRequestID string, approve bool, decider Party, at time.Time) (ChangeRequest, Order, error)
}
