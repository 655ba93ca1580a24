package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/contract"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/fault"
)

const contractColumns = `
	id, title, kind, status, publishing_date, offer_deadline_at,
	stakeholders, scope_of_work, terms_and_conditions, weighting,
	config, versions_and_documents, raw_snapshot, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContract(row rowScanner) (contract.Contract, error) {
	var c contract.Contract
	var publishing, deadline sql.NullTime
	var stakeholders, weighting, config, versions, raw []byte
	err := row.Scan(&c.ID, &c.Title, &c.Kind, &c.Status, &publishing, &deadline,
		&stakeholders, &c.ScopeOfWork, &c.TermsAndConditions, &weighting,
		&config, &versions, &raw, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return contract.Contract{}, err
	}
	c.PublishingDate = fromNullTime(publishing)
	c.OfferDeadlineAt = fromNullTime(deadline)
	if err := unmarshalJSON(stakeholders, &c.Stakeholders); err != nil {
		return contract.Contract{}, fmt.Errorf("decode stakeholders: %w", err)
	}
	if err := unmarshalJSON(weighting, &c.Weighting); err != nil {
		return contract.Contract{}, fmt.Errorf("decode weighting: %w", err)
	}
	if err := unmarshalJSON(config, &c.Config); err != nil {
		return contract.Contract{}, fmt.Errorf("decode config: %w", err)
	}
	if err := unmarshalJSON(versions, &c.VersionsAndDocs); err != nil {
		return contract.Contract{}, fmt.Errorf("decode versions: %w", err)
	}
	if len(raw) > 0 {
		c.RawSnapshot = json.RawMessage(raw)
	}
	return c, nil
}

func (s *Store) GetContract(ctx context.Context, id string) (contract.Contract, error) {
	row := s.db.QueryRowContext(ctx, `select`+contractColumns+` from contracts where id=$1`, id)
	c, err := scanContract(row)
	if errors.Is(err, sql.ErrNoRows) {
		return contract.Contract{}, fmt.Errorf("%w: contract %s", fault.ErrNotFound, id)
	}
	if err != nil {
		return contract.Contract{}, fmt.Errorf("get contract: %w", err)
	}
	return c, nil
}

func contractArgs(c contract.Contract) ([]any, error) {
	stakeholders, err := marshalJSON(c.Stakeholders)
	if err != nil {
		return nil, err
	}
	weighting, err := marshalJSON(c.Weighting)
	if err != nil {
		return nil, err
	}
	config, err := marshalJSON(c.Config)
	if err != nil {
		return nil, err
	}
	versions, err := marshalJSON(c.VersionsAndDocs)
	if err != nil {
		return nil, err
	}
	raw, err := marshalJSON(c.RawSnapshot)
	if err != nil {
		return nil, err
	}
	return []any{
		c.ID, c.Title, c.Kind, c.Status, nullTime(c.PublishingDate), nullTime(c.OfferDeadlineAt),
		stakeholders, c.ScopeOfWork, c.TermsAndConditions, weighting,
		config, versions, raw, c.CreatedAt, c.UpdatedAt,
	}, nil
}

func (s *Store) SaveContract(ctx context.Context, c contract.Contract) (bool, error) {
	args, err := contractArgs(c)
	if err != nil {
		return false, fmt.Errorf("encode contract: %w", err)
	}
	var inserted bool
	err = s.db.QueryRowContext(ctx, `
		insert into contracts (`+contractColumns+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		on conflict (id) do update
		set title=excluded.title, kind=excluded.kind, status=excluded.status,
		    publishing_date=excluded.publishing_date, offer_deadline_at=excluded.offer_deadline_at,
		    stakeholders=excluded.stakeholders, scope_of_work=excluded.scope_of_work,
		    terms_and_conditions=excluded.terms_and_conditions, weighting=excluded.weighting,
		    config=excluded.config, versions_and_documents=excluded.versions_and_documents,
		    raw_snapshot=excluded.raw_snapshot, updated_at=excluded.updated_at
		returning (xmax = 0)`, args...).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("save contract: %w", err)
	}
	return inserted, nil
}

func (s *Store) ListContracts(ctx context.Context) ([]contract.Contract, error) {
	rows, err := s.db.QueryContext(ctx, `select`+contractColumns+` from contracts order by id`)
	if err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	defer rows.Close()

	var out []contract.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contract: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) GetAward(ctx context.Context, contractID, providerID string) (contract.ProviderAward, error) {
	var a contract.ProviderAward
	err := s.db.GetContext(ctx, &a, `
		select contract_id, provider_id, status, awarded_at, note
		from provider_awards where contract_id=$1 and provider_id=$2`, contractID, providerID)
	if errors.Is(err, sql.ErrNoRows) {
		return contract.ProviderAward{}, fmt.Errorf("%w: award for contract %s provider %s", fault.ErrNotFound, contractID, providerID)
	}
	if err != nil {
		return contract.ProviderAward{}, fmt.Errorf("get award: %w", err)
	}
	return a, nil
}

func (s *Store) ListAwards(ctx context.Context, providerID string) ([]contract.ProviderAward, error) {
	var out []contract.ProviderAward
	err := s.db.SelectContext(ctx, &out, `
		select contract_id, provider_id, status, awarded_at, note
		from provider_awards where provider_id=$1 order by contract_id`, providerID)
	if err != nil {
		return nil, fmt.Errorf("list awards: %w", err)
	}
	return out, nil
}

// ApplyProviderStatus upserts the award and ratchets the contract status in
// one transaction, with the contract row locked for the duration.
func (s *Store) ApplyProviderStatus(ctx context.Context, award contract.ProviderAward) (contract.Contract, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return contract.Contract{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	c, err := lockContract(ctx, tx, award.ContractID)
	if err != nil {
		return contract.Contract{}, err
	}

	if _, err := tx.ExecContext(ctx, `
		insert into provider_awards (contract_id, provider_id, status, awarded_at, note)
		values ($1,$2,$3,$4,$5)
		on conflict (contract_id, provider_id) do update
		set status=excluded.status, awarded_at=excluded.awarded_at, note=excluded.note`,
		award.ContractID, award.ProviderID, award.Status, award.AwardedAt, award.Note); err != nil {
		return contract.Contract{}, fmt.Errorf("upsert award: %w", err)
	}

	if next, changed := contract.RatchetOnAward(c.Status, award.Status); changed {
		if _, err := tx.ExecContext(ctx, `
			update contracts set status=$2, updated_at=$3 where id=$1`,
			c.ID, next, award.AwardedAt); err != nil {
			return contract.Contract{}, fmt.Errorf("ratchet contract status: %w", err)
		}
		c.Status = next
		c.UpdatedAt = award.AwardedAt
	}

	if err := tx.Commit(); err != nil {
		return contract.Contract{}, fmt.Errorf("commit: %w", err)
	}
	return c, nil
}

func lockContract(ctx context.Context, tx *sqlx.Tx, id string) (contract.Contract, error) {
	row := tx.QueryRowContext(ctx, `select`+contractColumns+` from contracts where id=$1 for update`, id)
	c, err := scanContract(row)
	if errors.Is(err, sql.ErrNoRows) {
		return contract.Contract{}, fmt.Errorf("%w: contract %s", fault.ErrNotFound, id)
	}
	if err != nil {
		return contract.Contract{}, fmt.Errorf("lock contract: %w", err)
	}
	return c, nil
}
