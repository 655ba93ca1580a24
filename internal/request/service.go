package request

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/contract"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/fault"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/ids"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/tenancy"
)

// ContractSource is the slice of the contract registry this service needs.
type ContractSource interface {
	GetContract(ctx context.Context, id string) (contract.Contract, error)
}

// Service manages the service-request lifecycle. Deadline expiry is enforced
// lazily at offer submission (see offer.Service); this service never runs a
// background sweep.
type Service struct {
	store     Store
	contracts ContractSource
	tenants   *tenancy.Service
	now       func() time.Time
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

// NewService constructs the request service.
func NewService(store Store, contracts ContractSource, tenants *tenancy.Service, opts ...Option) (*Service, error) {
	if store == nil || contracts == nil || tenants == nil {
		return nil, errors.New("request service requires store, contract source and tenancy")
	}
	s := &Service{store: store, contracts: contracts, tenants: tenants, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateInput is an internally created staffing demand. External creation
// goes through the integration sync instead and lands in Upsert.
type CreateInput struct {
	ContractID      string
	Title           string
	Type            string
	Role            string
	Domain          string
	ExperienceLevel string
	TechnologyLevel string
	StartDate       time.Time
	EndDate         time.Time
	ManDays         int
	OnsiteDays      int
	Languages       []string
	MustHave        []string
	NiceToHave      []string
}

// Create validates the demand against the linked contract's configuration
// and opens it. The bidding deadline and cycle count come from the matched
// accepted-type row.
func (s *Service) Create(ctx context.Context, actorID string, in CreateInput) (ServiceRequest, error) {
	if _, err := s.tenants.RequireRole(ctx, actorID, tenancy.RoleContractCoordinator, tenancy.RoleProviderAdmin); err != nil {
		return ServiceRequest{}, err
	}
	reqType, err := ParseType(in.Type)
	if err != nil {
		return ServiceRequest{}, err
	}
	if in.Title == "" {
		return ServiceRequest{}, fmt.Errorf("%w: title is required", fault.ErrValidation)
	}
	if in.ManDays <= 0 {
		return ServiceRequest{}, fmt.Errorf("%w: man_days must be positive", fault.ErrValidation)
	}
	if in.OnsiteDays < 0 || in.OnsiteDays > in.ManDays {
		return ServiceRequest{}, fmt.Errorf("%w: onsite_days must be between 0 and man_days", fault.ErrValidation)
	}

	c, err := s.contracts.GetContract(ctx, in.ContractID)
	if err != nil {
		return ServiceRequest{}, err
	}
	mustHave := normalizeCriteria(in.MustHave)
	niceToHave := normalizeCriteria(in.NiceToHave)
	window, err := contract.ValidateRequestAgainstContract(
		c.Config,
		string(reqType),
		[]contract.RoleRequirement{{Role: in.Role, Domain: in.Domain, ExperienceLevel: in.ExperienceLevel}},
		mustHave,
		niceToHave,
	)
	if err != nil {
		return ServiceRequest{}, err
	}

	now := s.now().UTC()
	sr := ServiceRequest{
		ID:              ids.New(),
		ContractID:      c.ID,
		Title:           in.Title,
		Type:            reqType,
		Role:            in.Role,
		Domain:          in.Domain,
		ExperienceLevel: contract.NormalizeExperience(in.ExperienceLevel),
		TechnologyLevel: in.TechnologyLevel,
		StartDate:       in.StartDate,
		EndDate:         in.EndDate,
		ManDays:         in.ManDays,
		OnsiteDays:      in.OnsiteDays,
		Languages:       in.Languages,
		MustHave:        mustHave,
		NiceToHave:      niceToHave,
		OfferDeadlineAt: now.AddDate(0, 0, window.BiddingDeadlineDays),
		OfferCycles:     window.OfferCycles,
		Status:          StatusOpen,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if _, err := s.store.SaveRequest(ctx, sr); err != nil {
		return ServiceRequest{}, err
	}
	return sr, nil
}

// Upsert ingests an externally owned request during sync, idempotent by
// external id. The linked contract must already be known locally; otherwise
// the item is skipped by the sync adapter.
func (s *Service) Upsert(ctx context.Context, sr ServiceRequest) (ServiceRequest, bool, error) {
	if sr.ID == "" {
		return ServiceRequest{}, false, fmt.Errorf("%w: service request id is required", fault.ErrValidation)
	}
	if _, err := s.contracts.GetContract(ctx, sr.ContractID); err != nil {
		return ServiceRequest{}, false, err
	}
	now := s.now().UTC()
	stored, err := s.store.GetRequest(ctx, sr.ID)
	switch {
	case err == nil:
		sr.CreatedAt = stored.CreatedAt
		if stored.Status == StatusClosed {
			// A closed request never reopens from a stale sync payload.
			sr.Status = StatusClosed
			sr.ClosedReason = stored.ClosedReason
		}
	case errors.Is(err, fault.ErrNotFound):
		sr.CreatedAt = now
	default:
		return ServiceRequest{}, false, err
	}
	if sr.Status == "" {
		sr.Status = StatusOpen
	}
	sr.UpdatedAt = now
	created, err := s.store.SaveRequest(ctx, sr)
	if err != nil {
		return ServiceRequest{}, false, err
	}
	return sr, created, nil
}

// Get returns one request.
func (s *Service) Get(ctx context.Context, id string) (ServiceRequest, error) {
	return s.store.GetRequest(ctx, id)
}

// List returns requests, optionally scoped to one contract.
func (s *Service) List(ctx context.Context, contractID string) ([]ServiceRequest, error) {
	return s.store.ListRequests(ctx, contractID)
}

// Close force-closes an open request, e.g. after a budget change. A closed
// request rejects new offers with a specific error rather than dropping
// them.
func (s *Service) Close(ctx context.Context, actorID, id, reason string) error {
	if _, err := s.tenants.RequireRole(ctx, actorID, tenancy.RoleContractCoordinator, tenancy.RoleProviderAdmin); err != nil {
		return err
	}
	sr, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return err
	}
	if sr.Status == StatusClosed {
		return nil // idempotent
	}
	if reason == "" {
		reason = "closed by actor"
	}
	return s.store.CloseRequest(ctx, id, reason)
}
