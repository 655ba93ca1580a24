package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/fault"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/ids"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/tenancy"
)

// Service manages active orders and the extension/substitution change
// workflow with dual-party approval.
type Service struct {
	store   Store
	tenants *tenancy.Service
	now     func() time.Time
}

// Option configures Service behavior.
type Option func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the order service.
func NewService(store Store, tenants *tenancy.Service, opts ...Option) (*Service, error) {
	if store == nil || tenants == nil {
		return nil, errors.New("order service requires store and tenancy")
	}
	s := &Service{store: store, tenants: tenants, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Actor identifies who is calling: the party plus, for provider-side calls,
// the session user whose tenant scope applies. External actors carry no
// user id.
type Actor struct {
	Party  Party
	UserID string
}

// scope returns the provider id the actor is confined to, or empty for the
// external side (which sees every order).
func (s *Service) scope(ctx context.Context, actor Actor) (string, error) {
	if actor.Party == PartyExternal {
		return "", nil
	}
	user, err := s.tenants.RequireRole(ctx, actor.UserID,
		tenancy.RoleProviderAdmin, tenancy.RoleSupplierRepresentative, tenancy.RoleContractCoordinator)
	if err != nil {
		return "", err
	}
	if user.ProviderID == "" {
		return "", fmt.Errorf("%w: provider membership unset", fault.ErrTenantBoundary)
	}
	return user.ProviderID, nil
}

// loadScoped fetches the order and enforces the tenant boundary. A foreign
// order reads as not-found so the caller learns nothing about other
// tenants' engagements.
func (s *Service) loadScoped(ctx context.Context, actor Actor, orderID string) (Order, error) {
	providerID, err := s.scope(ctx, actor)
	if err != nil {
		return Order{}, err
	}
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if providerID != "" && o.ProviderID != providerID {
		return Order{}, fmt.Errorf("%w: order %s", fault.ErrNotFound, orderID)
	}
	return o, nil
}

// Get returns one order within the actor's tenant scope.
func (s *Service) Get(ctx context.Context, actor Actor, orderID string) (Order, error) {
	return s.loadScoped(ctx, actor, orderID)
}

// List returns the actor's orders: the provider's own for session actors,
// everything for the external side.
func (s *Service) List(ctx context.Context, actor Actor) ([]Order, error) {
	providerID, err := s.scope(ctx, actor)
	if err != nil {
		return nil, err
	}
	return s.store.ListOrders(ctx, providerID)
}

// Complete explicitly finishes an active order.
func (s *Service) Complete(ctx context.Context, actor Actor, orderID string) (Order, error) {
	o, err := s.loadScoped(ctx, actor, orderID)
	if err != nil {
		return Order{}, err
	}
	if o.Status == StatusCompleted {
		return o, nil // idempotent
	}
	return s.store.CompleteOrder(ctx, orderID, s.now().UTC())
}

// CompleteDue completes every active order whose end date has passed.
// Triggered synchronously by an operator or integration call; there is no
// background sweep.
func (s *Service) CompleteDue(ctx context.Context) (int, error) {
	now := s.now().UTC()
	due, err := s.store.ListDueOrders(ctx, now)
	if err != nil {
		return 0, err
	}
	completed := 0
	for _, o := range due {
		if _, err := s.store.CompleteOrder(ctx, o.ID, now); err != nil {
			return completed, err
		}
		completed++
	}
	return completed, nil
}

// ChangeInput is a proposed mutation of an active order.
type ChangeInput struct {
	Kind              ChangeKind
	Note              string
	NewEndDate        time.Time
	AdditionalManDays int
	NewSpecialistID   string
}

// CreateChange records a change request against an active order. A change
// request initiated here can only be decided by the opposite party; it is
// never auto-applied.
func (s *Service) CreateChange(ctx context.Context, actor Actor, orderID string, in ChangeInput) (ChangeRequest, error) {
	o, err := s.loadScoped(ctx, actor, orderID)
	if err != nil {
		return ChangeRequest{}, err
	}
	if o.Status != StatusActive {
		return ChangeRequest{}, fmt.Errorf("%w: order %s is %s, change requests need an active order", fault.ErrValidation, o.ID, o.Status)
	}
	switch in.Kind {
	case ChangeExtension:
		if in.NewEndDate.IsZero() || !in.NewEndDate.After(o.EndDate) {
			return ChangeRequest{}, fmt.Errorf("%w: extension end date must be after current end date", fault.ErrValidation)
		}
		if in.AdditionalManDays <= 0 {
			return ChangeRequest{}, fmt.Errorf("%w: additional man-days must be positive", fault.ErrValidation)
		}
	case ChangeSubstitution:
		if in.NewSpecialistID == "" {
			return ChangeRequest{}, fmt.Errorf("%w: substitution requires a new specialist", fault.ErrValidation)
		}
		if err := s.checkSubstitute(ctx, o, in.NewSpecialistID); err != nil {
			return ChangeRequest{}, err
		}
	default:
		return ChangeRequest{}, fmt.Errorf("%w: unknown change kind %q", fault.ErrValidation, in.Kind)
	}

	now := s.now().UTC()
	cr := ChangeRequest{
		ID:                ids.New(),
		OrderID:           o.ID,
		Kind:              in.Kind,
		InitiatedBy:       actor.Party,
		InitiatorID:       actor.UserID,
		Status:            ChangeRequested,
		Note:              in.Note,
		NewEndDate:        in.NewEndDate,
		AdditionalManDays: in.AdditionalManDays,
		NewSpecialistID:   in.NewSpecialistID,
		CreatedAt:         now,
	}
	if err := s.store.CreateChangeRequest(ctx, cr); err != nil {
		return ChangeRequest{}, err
	}
	return cr, nil
}

// ListChanges returns the change requests of one order in tenant scope.
func (s *Service) ListChanges(ctx context.Context, actor Actor, orderID string) ([]ChangeRequest, error) {
	if _, err := s.loadScoped(ctx, actor, orderID); err != nil {
		return nil, err
	}
	return s.store.ListChangeRequests(ctx, orderID)
}

// DecideChange approves or rejects a pending change request. The deciding
// party must be the opposite of the initiator; the same side can never both
// create and decide a request. Approval applies the change to the order
// atomically with the status flip; rejection never touches the order.
func (s *Service) DecideChange(ctx context.Context, actor Actor, changeRequestID string, approve bool) (ChangeRequest, Order, error) {
	cr, err := s.store.GetChangeRequest(ctx, changeRequestID)
	if err != nil {
		return ChangeRequest{}, Order{}, err
	}
	o, err := s.loadScoped(ctx, actor, cr.OrderID)
	if err != nil {
		return ChangeRequest{}, Order{}, err
	}
	if actor.Party == cr.InitiatedBy {
		return ChangeRequest{}, Order{}, fmt.Errorf("%w: change request was initiated by %s, only the counterparty may decide", fault.ErrRoleDenied, cr.InitiatedBy)
	}
	if cr.Status != ChangeRequested {
		if (cr.Status == ChangeApproved) == approve {
			return cr, o, nil // idempotent replay of the same decision
		}
		return ChangeRequest{}, Order{}, fmt.Errorf("%w: change request already %s", fault.ErrConflict, cr.Status)
	}
	if approve && cr.Kind == ChangeSubstitution {
		if err := s.checkSubstitute(ctx, o, cr.NewSpecialistID); err != nil {
			return ChangeRequest{}, Order{}, err
		}
	}
	return s.store.DecideChange(ctx, changeRequestID, approve, actor.Party, s.now().UTC())
}

// checkSubstitute verifies the proposed specialist belongs to the order's
// provider and holds an active specialist role. Cross-tenant substitution
// is a boundary violation, not a validation nit.
func (s *Service) checkSubstitute(ctx context.Context, o Order, specialistID string) error {
	specialist, err := s.tenants.Principal(ctx, specialistID)
	if err != nil {
		return err
	}
	if specialist.User.ProviderID == "" || specialist.User.ProviderID != o.ProviderID {
		return fmt.Errorf("%w: specialist %s does not belong to the order's provider", fault.ErrTenantBoundary, specialistID)
	}
	ok, err := s.tenants.HasActiveRole(ctx, specialistID, tenancy.RoleSpecialist, tenancy.RoleFilter{})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: user %s holds no active specialist role", fault.ErrValidation, specialistID)
	}
	return nil
}
