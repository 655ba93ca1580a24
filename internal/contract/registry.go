package contract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/fault"
)

// Registry holds contract snapshots synced from the external authority and
// answers award/visibility questions for providers. Configuration is always
// read from the store; nothing is cached between requests because ceilings
// and acceptance rules may change between render and submit.
type Registry struct {
	store Store
	now   func() time.Time
}

// RegistryOption configures Registry behavior.
type RegistryOption func(*Registry)

// WithRegistryClock overrides the time source (useful for tests).
func WithRegistryClock(fn func() time.Time) RegistryOption {
	return func(r *Registry) {
		if fn != nil {
			r.now = fn
		}
	}
}

// NewRegistry constructs the contract registry.
func NewRegistry(store Store, opts ...RegistryOption) (*Registry, error) {
	if store == nil {
		return nil, errors.New("contract store is required")
	}
	r := &Registry{store: store, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Upsert ingests an external payload, idempotent by external id. Returns the
// stored snapshot and whether the row was created. Merge precedence is
// documented on merge(); created_at is never overwritten.
func (r *Registry) Upsert(ctx context.Context, payload Payload) (Contract, bool, error) {
	incoming, err := payload.ToContract()
	if err != nil {
		return Contract{}, false, err
	}
	now := r.now().UTC()
	stored, err := r.store.GetContract(ctx, incoming.ID)
	switch {
	case err == nil:
		incoming = merge(stored, incoming)
	case errors.Is(err, fault.ErrNotFound):
		incoming.CreatedAt = now
	default:
		return Contract{}, false, err
	}
	incoming.UpdatedAt = now
	created, err := r.store.SaveContract(ctx, incoming)
	if err != nil {
		return Contract{}, false, err
	}
	return incoming, created, nil
}

// AllowedConfig returns the contract's typed configuration.
func (r *Registry) AllowedConfig(ctx context.Context, contractID string) (AllowedConfiguration, error) {
	c, err := r.store.GetContract(ctx, contractID)
	if err != nil {
		return AllowedConfiguration{}, err
	}
	return c.Config, nil
}

// Get returns a single contract as seen by the given provider. DRAFT
// contracts are invisible to providers: the caller gets a not-found, never a
// hint the contract exists.
func (r *Registry) Get(ctx context.Context, contractID, providerID string) (View, error) {
	c, err := r.store.GetContract(ctx, contractID)
	if err != nil {
		return View{}, err
	}
	if c.Status == StatusDraft && providerID != "" {
		return View{}, fmt.Errorf("%w: contract %s", fault.ErrNotFound, contractID)
	}
	view := View{Contract: c}
	if providerID != "" {
		award, err := r.store.GetAward(ctx, contractID, providerID)
		if err == nil {
			view.AwardStatus = award.Status
		} else if !errors.Is(err, fault.ErrNotFound) {
			return View{}, err
		}
	}
	return view, nil
}

// ListVisible returns every non-DRAFT contract, each decorated with the
// caller's award status. An empty providerID (integration principal) sees
// everything including DRAFT.
func (r *Registry) ListVisible(ctx context.Context, providerID string) ([]View, error) {
	contracts, err := r.store.ListContracts(ctx)
	if err != nil {
		return nil, err
	}
	awards := map[string]AwardStatus{}
	if providerID != "" {
		list, err := r.store.ListAwards(ctx, providerID)
		if err != nil {
			return nil, err
		}
		for _, a := range list {
			awards[a.ContractID] = a.Status
		}
	}
	views := make([]View, 0, len(contracts))
	for _, c := range contracts {
		if c.Status == StatusDraft && providerID != "" {
			continue
		}
		views = append(views, View{Contract: c, AwardStatus: awards[c.ID]})
	}
	return views, nil
}

// SetProviderStatus upserts the per-provider award record, idempotently.
// The store applies the contract-status ratchet in the same transaction.
func (r *Registry) SetProviderStatus(ctx context.Context, contractID, providerID string, status AwardStatus, note string) (ProviderAward, error) {
	if contractID == "" || providerID == "" {
		return ProviderAward{}, fmt.Errorf("%w: contract id and provider id are required", fault.ErrValidation)
	}
	switch status {
	case AwardInNegotiation, AwardActive, AwardExpired:
	default:
		return ProviderAward{}, fmt.Errorf("%w: unknown provider status %q", fault.ErrValidation, status)
	}
	award := ProviderAward{
		ContractID: contractID,
		ProviderID: providerID,
		Status:     status,
		AwardedAt:  r.now().UTC(),
		Note:       note,
	}
	if _, err := r.store.ApplyProviderStatus(ctx, award); err != nil {
		return ProviderAward{}, err
	}
	return award, nil
}

// RequireActiveAward fails unless the provider holds an ACTIVE award on the
// contract. Gate for every service-request/offer transaction.
func (r *Registry) RequireActiveAward(ctx context.Context, contractID, providerID string) error {
	award, err := r.store.GetAward(ctx, contractID, providerID)
	if err != nil {
		if errors.Is(err, fault.ErrNotFound) {
			return fmt.Errorf("%w: provider holds no active award on contract %s", fault.ErrValidation, contractID)
		}
		return err
	}
	if award.Status != AwardActive {
		return fmt.Errorf("%w: provider award on contract %s is %s, needs ACTIVE", fault.ErrValidation, contractID, award.Status)
	}
	return nil
}
