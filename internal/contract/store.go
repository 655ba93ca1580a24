package contract

import "context"

// Store describes persistence for contract snapshots and provider awards.
// ApplyProviderStatus must be atomic: the award upsert and the status
// ratchet (RatchetOnAward) commit together or not at all.
type Store interface {
	GetContract(ctx context.Context, id string) (Contract, error)
	SaveContract(ctx context.Context, c Contract) (created bool, err error)
	ListContracts(ctx context.Context) ([]Contract, error)

	GetAward(ctx context.Context, contractID, providerID string) (ProviderAward, error)
	ListAwards(ctx context.Context, providerID string) ([]ProviderAward, error)
	ApplyProviderStatus(ctx context.Context, award ProviderAward) (Contract, error)
}
