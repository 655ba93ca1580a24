package request

import "context"

// Store describes persistence for service requests. Closing a request also
// happens atomically inside offer acceptance; that path lives in the offer
// store's decide transaction, not here.
type Store interface {
	GetRequest(ctx context.Context, id string) (ServiceRequest, error)
	SaveRequest(ctx context.Context, r ServiceRequest) (created bool, err error)
	ListRequests(ctx context.Context, contractID string) ([]ServiceRequest, error)
	CloseRequest(ctx context.Context, id, reason string) error
}
