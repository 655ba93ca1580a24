package offer

import (
	"context"

	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/order"
)

// Store describes persistence for offers. DecideOffer is the one
// transactional entry point: it must lock the offer row, replay idempotent
// decisions, and on acceptance create the candidate order (get-or-create
// keyed on the offer id) and close the parent request — all in one
// transaction so two concurrent accepts can never spawn two orders.
type Store interface {
	CreateOffer(ctx context.Context, o Offer) error
	GetOffer(ctx context.Context, id string) (Offer, error)
	SaveOffer(ctx context.Context, o Offer) error
	ListOffersByProvider(ctx context.Context, providerID string) ([]Offer, error)
	ListOffersForRequest(ctx context.Context, serviceRequestID string) ([]Offer, error)
	DecideOffer(ctx context.Context, offerID string, decision Decision, candidate order.Order) (Offer, order.Order, error)
}
