package offer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/contract"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/fault"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/ids"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/order"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/request"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/tenancy"
)

// ContractSource is the slice of the contract registry this service needs.
// Always hits the store: rate ceilings may change between form render and
// submit, so there is no config caching here.
type ContractSource interface {
	GetContract(ctx context.Context, id string) (contract.Contract, error)
	GetAward(ctx context.Context, contractID, providerID string) (contract.ProviderAward, error)
}

// RequestSource loads the service request an offer bids against.
type RequestSource interface {
	GetRequest(ctx context.Context, id string) (request.ServiceRequest, error)
}

// Service creates, edits, withdraws and decides offers.
type Service struct {
	store     Store
	contracts ContractSource
	requests  RequestSource
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

// NewService constructs the offer service.
func NewService(store Store, contracts ContractSource, requests RequestSource, tenants *tenancy.Service, opts ...Option) (*Service, error) {
	if store == nil || contracts == nil || requests == nil || tenants == nil {
		return nil, errors.New("offer service requires store, contract source, request source and tenancy")
	}
	s := &Service{store: store, contracts: contracts, requests: requests, tenants: tenants, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// submitterRoles may create and manage offers for their provider.
var submitterRoles = []tenancy.Role{
	tenancy.RoleProviderAdmin,
	tenancy.RoleSupplierRepresentative,
	tenancy.RoleContractCoordinator,
}

// CreateInput is a new bid against an open service request.
type CreateInput struct {
	ServiceRequestID       string
	SpecialistID           string
	DailyRate              int64
	TravelCostPerOnsiteDay int64
	Relationship           string
	SubcontractorName      string
}

// Create validates and submits a new offer.
//
// Preconditions, in order: actor holds a submitter role; the request exists
// and is OPEN with its bidding deadline not passed (deadline expiry is
// enforced here, uniformly — there is no background sweep); the specialist
// belongs to the actor's provider and holds an active matching JOB
// assignment; the provider's award on the backing contract is ACTIVE; the
// request type is accepted by the contract config; the rate clears the
// matched ceiling.
func (s *Service) Create(ctx context.Context, actorID string, in CreateInput) (Offer, error) {
	actor, err := s.tenants.RequireRole(ctx, actorID, submitterRoles...)
	if err != nil {
		return Offer{}, err
	}
	if actor.ProviderID == "" {
		return Offer{}, fmt.Errorf("%w: provider membership unset", fault.ErrTenantBoundary)
	}
	rel, err := ParseRelationship(in.Relationship)
	if err != nil {
		return Offer{}, err
	}
	if rel == RelSubcontractor && in.SubcontractorName == "" {
		return Offer{}, fmt.Errorf("%w: subcontractor name is required for subcontractor offers", fault.ErrValidation)
	}
	if in.DailyRate <= 0 {
		return Offer{}, fmt.Errorf("%w: daily rate must be positive", fault.ErrValidation)
	}
	if in.TravelCostPerOnsiteDay < 0 {
		return Offer{}, fmt.Errorf("%w: travel cost must not be negative", fault.ErrValidation)
	}

	sr, err := s.requests.GetRequest(ctx, in.ServiceRequestID)
	if err != nil {
		return Offer{}, err
	}
	now := s.now().UTC()
	if sr.Status == request.StatusClosed {
		return Offer{}, fmt.Errorf("%w: service request %s is closed and accepts no offers", fault.ErrValidation, sr.ID)
	}
	if !sr.OfferDeadlineAt.IsZero() && now.After(sr.OfferDeadlineAt) {
		return Offer{}, fmt.Errorf("%w: bidding deadline for service request %s has passed", fault.ErrValidation, sr.ID)
	}

	specialist, job, err := s.checkSpecialist(ctx, actor.ProviderID, in.SpecialistID, sr.Role)
	if err != nil {
		return Offer{}, err
	}

	c, err := s.contracts.GetContract(ctx, sr.ContractID)
	if err != nil {
		return Offer{}, err
	}
	if err := s.requireActiveAward(ctx, c.ID, actor.ProviderID); err != nil {
		return Offer{}, err
	}
	if _, err := contract.ValidateRequestAgainstContract(c.Config, string(sr.Type), nil, sr.MustHave, sr.NiceToHave); err != nil {
		return Offer{}, err
	}
	if err := contract.ValidateRatePolicy(c.Config, in.DailyRate, job.RoleName, job.ExperienceLevel, job.TechnologyLevel); err != nil {
		return Offer{}, err
	}

	attrs := assignmentAttributes(job)
	o := Offer{
		ID:                     ids.New(),
		ServiceRequestID:       sr.ID,
		ContractID:             c.ID,
		ProviderID:             actor.ProviderID,
		SubmitterID:            actor.ID,
		SpecialistID:           specialist.ID,
		DailyRate:              in.DailyRate,
		TravelCostPerOnsiteDay: in.TravelCostPerOnsiteDay,
		TotalCost:              TotalCost(in.DailyRate, sr.ManDays, in.TravelCostPerOnsiteDay, sr.OnsiteDays),
		Relationship:           rel,
		SubcontractorName:      in.SubcontractorName,
		Status:                 StatusSubmitted,
		MustHaveMatchPercent:   matchPercent(sr.MustHave, attrs),
		NiceToHaveMatchPercent: matchPercent(sr.NiceToHave, attrs),
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if err := s.store.CreateOffer(ctx, o); err != nil {
		return Offer{}, err
	}
	return o, nil
}

// EditInput carries the fields an edit may change; nil means keep.
type EditInput struct {
	SpecialistID           *string
	DailyRate              *int64
	TravelCostPerOnsiteDay *int64
	Relationship           *string
	SubcontractorName      *string
}

// Edit merges the changed fields into the offer, re-runs rate-policy
// validation whenever rate or specialist changed (a specialist swap may
// change the applicable experience/technology level), and recomputes
// TotalCost from scratch — a stale stored cost is never trusted.
func (s *Service) Edit(ctx context.Context, actorID, offerID string, in EditInput) (Offer, error) {
	o, err := s.loadEditable(ctx, actorID, offerID)
	if err != nil {
		return Offer{}, err
	}
	sr, err := s.requests.GetRequest(ctx, o.ServiceRequestID)
	if err != nil {
		return Offer{}, err
	}

	rateOrSpecialistChanged := false
	if in.SpecialistID != nil && *in.SpecialistID != o.SpecialistID {
		o.SpecialistID = *in.SpecialistID
		rateOrSpecialistChanged = true
	}
	if in.DailyRate != nil && *in.DailyRate != o.DailyRate {
		if *in.DailyRate <= 0 {
			return Offer{}, fmt.Errorf("%w: daily rate must be positive", fault.ErrValidation)
		}
		o.DailyRate = *in.DailyRate
		rateOrSpecialistChanged = true
	}
	if in.TravelCostPerOnsiteDay != nil {
		if *in.TravelCostPerOnsiteDay < 0 {
			return Offer{}, fmt.Errorf("%w: travel cost must not be negative", fault.ErrValidation)
		}
		o.TravelCostPerOnsiteDay = *in.TravelCostPerOnsiteDay
	}
	if in.Relationship != nil {
		rel, err := ParseRelationship(*in.Relationship)
		if err != nil {
			return Offer{}, err
		}
		o.Relationship = rel
	}
	if in.SubcontractorName != nil {
		o.SubcontractorName = *in.SubcontractorName
	}
	if o.Relationship == RelSubcontractor && o.SubcontractorName == "" {
		return Offer{}, fmt.Errorf("%w: subcontractor name is required for subcontractor offers", fault.ErrValidation)
	}

	if rateOrSpecialistChanged {
		_, job, err := s.checkSpecialist(ctx, o.ProviderID, o.SpecialistID, sr.Role)
		if err != nil {
			return Offer{}, err
		}
		c, err := s.contracts.GetContract(ctx, o.ContractID)
		if err != nil {
			return Offer{}, err
		}
		if err := contract.ValidateRatePolicy(c.Config, o.DailyRate, job.RoleName, job.ExperienceLevel, job.TechnologyLevel); err != nil {
			return Offer{}, err
		}
		attrs := assignmentAttributes(job)
		o.MustHaveMatchPercent = matchPercent(sr.MustHave, attrs)
		o.NiceToHaveMatchPercent = matchPercent(sr.NiceToHave, attrs)
	}

	o.TotalCost = TotalCost(o.DailyRate, sr.ManDays, o.TravelCostPerOnsiteDay, sr.OnsiteDays)
	o.UpdatedAt = s.now().UTC()
	if err := s.store.SaveOffer(ctx, o); err != nil {
		return Offer{}, err
	}
	return o, nil
}

// Withdraw terminally retracts the offer. Same actor/state preconditions as
// Edit; no further edits afterwards.
func (s *Service) Withdraw(ctx context.Context, actorID, offerID string) (Offer, error) {
	o, err := s.loadEditable(ctx, actorID, offerID)
	if err != nil {
		return Offer{}, err
	}
	o.Status = StatusWithdrawn
	o.UpdatedAt = s.now().UTC()
	if err := s.store.SaveOffer(ctx, o); err != nil {
		return Offer{}, err
	}
	return o, nil
}

// Decide accepts or rejects a submitted offer. Idempotent: repeating an
// already-applied outcome returns the existing result; a conflicting
// outcome fails. On accept the store creates exactly one order
// (get-or-create keyed on the offer) and closes the parent request, all in
// one transaction.
func (s *Service) Decide(ctx context.Context, offerID string, decision Decision) (Offer, order.Order, error) {
	switch decision {
	case DecisionAccept, DecisionReject:
	default:
		return Offer{}, order.Order{}, fmt.Errorf("%w: unknown decision %q", fault.ErrValidation, decision)
	}
	o, err := s.store.GetOffer(ctx, offerID)
	if err != nil {
		return Offer{}, order.Order{}, err
	}
	sr, err := s.requests.GetRequest(ctx, o.ServiceRequestID)
	if err != nil {
		return Offer{}, order.Order{}, err
	}
	now := s.now().UTC()
	candidate := order.Order{
		ID:               ids.New(),
		OfferID:          o.ID,
		ServiceRequestID: sr.ID,
		ContractID:       o.ContractID,
		ProviderID:       o.ProviderID,
		SpecialistID:     o.SpecialistID,
		Title:            sr.Title,
		StartDate:        sr.StartDate,
		EndDate:          sr.EndDate,
		ManDays:          sr.ManDays,
		TotalCost:        o.TotalCost,
		Status:           order.StatusActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	return s.store.DecideOffer(ctx, offerID, decision, candidate)
}

// Get returns one offer within the actor's tenant scope. Foreign offers
// read as not-found.
func (s *Service) Get(ctx context.Context, actorID, offerID string) (Offer, error) {
	actor, err := s.tenants.RequireRole(ctx, actorID, submitterRoles...)
	if err != nil {
		return Offer{}, err
	}
	o, err := s.store.GetOffer(ctx, offerID)
	if err != nil {
		return Offer{}, err
	}
	if o.ProviderID != actor.ProviderID {
		return Offer{}, fmt.Errorf("%w: offer %s", fault.ErrNotFound, offerID)
	}
	return o, nil
}

// List returns the actor's provider's offers.
func (s *Service) List(ctx context.Context, actorID string) ([]Offer, error) {
	actor, err := s.tenants.RequireRole(ctx, actorID, submitterRoles...)
	if err != nil {
		return nil, err
	}
	return s.store.ListOffersByProvider(ctx, actor.ProviderID)
}

// ListForRequest returns the actor's provider's offers on one service
// request. Other providers' bids stay invisible.
func (s *Service) ListForRequest(ctx context.Context, actorID, serviceRequestID string) ([]Offer, error) {
	actor, err := s.tenants.RequireRole(ctx, actorID, submitterRoles...)
	if err != nil {
		return nil, err
	}
	all, err := s.store.ListOffersForRequest(ctx, serviceRequestID)
	if err != nil {
		return nil, err
	}
	out := make([]Offer, 0, len(all))
	for _, o := range all {
		if o.ProviderID == actor.ProviderID {
			out = append(out, o)
		}
	}
	return out, nil
}

// loadEditable enforces the shared edit/withdraw preconditions: the actor
// is the original submitter or a provider admin of the same tenant, and the
// offer is not terminal.
func (s *Service) loadEditable(ctx context.Context, actorID, offerID string) (Offer, error) {
	actor, err := s.tenants.RequireRole(ctx, actorID, submitterRoles...)
	if err != nil {
		return Offer{}, err
	}
	o, err := s.store.GetOffer(ctx, offerID)
	if err != nil {
		return Offer{}, err
	}
	if o.ProviderID != actor.ProviderID {
		return Offer{}, fmt.Errorf("%w: offer %s", fault.ErrNotFound, offerID)
	}
	if actor.ID != o.SubmitterID {
		isAdmin, err := s.tenants.HasActiveRole(ctx, actorID, tenancy.RoleProviderAdmin, tenancy.RoleFilter{})
		if err != nil {
			return Offer{}, err
		}
		if !isAdmin {
			return Offer{}, fmt.Errorf("%w: only the submitter or a provider admin may modify the offer", fault.ErrRoleDenied)
		}
	}
	if o.Status.Terminal() {
		return Offer{}, fmt.Errorf("%w: offer is %s and can no longer change", fault.ErrValidation, o.Status)
	}
	return o, nil
}

// checkSpecialist verifies tenant membership and returns the specialist's
// active JOB assignment matched on the request's role name.
func (s *Service) checkSpecialist(ctx context.Context, providerID, specialistID, roleName string) (tenancy.User, tenancy.RoleAssignment, error) {
	specialist, err := s.tenants.Principal(ctx, specialistID)
	if err != nil {
		return tenancy.User{}, tenancy.RoleAssignment{}, err
	}
	if specialist.User.ProviderID == "" || specialist.User.ProviderID != providerID {
		return tenancy.User{}, tenancy.RoleAssignment{}, fmt.Errorf("%w: specialist %s does not belong to the actor's provider", fault.ErrTenantBoundary, specialistID)
	}
	job, err := s.tenants.ActiveJobAssignment(ctx, specialistID, roleName)
	if err != nil {
		return tenancy.User{}, tenancy.RoleAssignment{}, err
	}
	return specialist.User, job, nil
}

func (s *Service) requireActiveAward(ctx context.Context, contractID, providerID string) error {
	award, err := s.contracts.GetAward(ctx, contractID, providerID)
	if err != nil {
		if errors.Is(err, fault.ErrNotFound) {
			return fmt.Errorf("%w: provider holds no active award on contract %s", fault.ErrValidation, contractID)
		}
		return err
	}
	if award.Status != contract.AwardActive {
		return fmt.Errorf("%w: provider award on contract %s is %s, needs ACTIVE", fault.ErrValidation, contractID, award.Status)
	}
	return nil
}

func assignmentAttributes(a tenancy.RoleAssignment) []string {
	return []string{a.RoleName, a.Domain, a.GroupName, a.ExperienceLevel, a.TechnologyLevel}
}
