package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/fault"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/request"
)

const requestColumns = `
	id, contract_id, title, type, role, domain, experience_level, technology_level,
	start_date, end_date, man_days, onsite_days, languages, must_have, nice_to_have,
	offer_deadline_at, offer_cycles, status, closed_reason, created_at, updated_at`

func scanRequest(row rowScanner) (request.ServiceRequest, error) {
	var r request.ServiceRequest
	var deadline sql.NullTime
	var languages, mustHave, niceToHave []byte
	err := row.Scan(&r.ID, &r.ContractID, &r.Title, &r.Type, &r.Role, &r.Domain,
		&r.ExperienceLevel, &r.TechnologyLevel, &r.StartDate, &r.EndDate,
		&r.ManDays, &r.OnsiteDays, &languages, &mustHave, &niceToHave,
		&deadline, &r.OfferCycles, &r.Status, &r.ClosedReason, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return request.ServiceRequest{}, err
	}
	r.OfferDeadlineAt = fromNullTime(deadline)
	if err := unmarshalJSON(languages, &r.Languages); err != nil {
		return request.ServiceRequest{}, fmt.Errorf("decode languages: %w", err)
	}
	if err := unmarshalJSON(mustHave, &r.MustHave); err != nil {
		return request.ServiceRequest{}, fmt.Errorf("decode must-have: %w", err)
	}
	if err := unmarshalJSON(niceToHave, &r.NiceToHave); err != nil {
		return request.ServiceRequest{}, fmt.Errorf("decode nice-to-have: %w", err)
	}
	return r, nil
}

func (s *Store) GetRequest(ctx context.Context, id string) (request.ServiceRequest, error) {
	row := s.db.QueryRowContext(ctx, `select`+requestColumns+` from service_requests where id=$1`, id)
	r, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return request.ServiceRequest{}, fmt.Errorf("%w: service request %s", fault.ErrNotFound, id)
	}
	if err != nil {
		return request.ServiceRequest{}, fmt.Errorf("get service request: %w", err)
	}
	return r, nil
}

func (s *Store) SaveRequest(ctx context.Context, r request.ServiceRequest) (bool, error) {
	languages, err := marshalJSON(r.Languages)
	if err != nil {
		return false, fmt.Errorf("encode languages: %w", err)
	}
	mustHave, err := marshalJSON(r.MustHave)
	if err != nil {
		return false, fmt.Errorf("encode must-have: %w", err)
	}
	niceToHave, err := marshalJSON(r.NiceToHave)
	if err != nil {
		return false, fmt.Errorf("encode nice-to-have: %w", err)
	}
	var inserted bool
	err = s.db.QueryRowContext(ctx, `
		insert into service_requests (`+requestColumns+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
		on conflict (id) do update
		set contract_id=excluded.contract_id, title=excluded.title, type=excluded.type,
		    role=excluded.role, domain=excluded.domain,
		    experience_level=excluded.experience_level, technology_level=excluded.technology_level,
		    start_date=excluded.start_date, end_date=excluded.end_date,
		    man_days=excluded.man_days, onsite_days=excluded.onsite_days,
		    languages=excluded.languages, must_have=excluded.must_have, nice_to_have=excluded.nice_to_have,
		    offer_deadline_at=excluded.offer_deadline_at, offer_cycles=excluded.offer_cycles,
		    status=excluded.status, closed_reason=excluded.closed_reason, updated_at=excluded.updated_at
		returning (xmax = 0)`,
		r.ID, r.ContractID, r.Title, r.Type, r.Role, r.Domain, r.ExperienceLevel, r.TechnologyLevel,
		r.StartDate, r.EndDate, r.ManDays, r.OnsiteDays, languages, mustHave, niceToHave,
		nullTime(r.OfferDeadlineAt), r.OfferCycles, r.Status, r.ClosedReason, r.CreatedAt, r.UpdatedAt).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("save service request: %w", err)
	}
	return inserted, nil
}

func (s *Store) ListRequests(ctx context.Context, contractID string) ([]request.ServiceRequest, error) {
	query := `select` + requestColumns + ` from service_requests`
	var args []any
	if contractID != "" {
		query += ` where contract_id=$1`
		args = append(args, contractID)
	}
	query += ` order by id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list service requests: %w", err)
	}
	defer rows.Close()

	var out []request.ServiceRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service request: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) CloseRequest(ctx context.Context, id, reason string) error {
	res, err := s.db.ExecContext(ctx, `
		update service_requests
		set status=$2, closed_reason=$3, updated_at=$4
		where id=$1 and status<>$2`,
		id, request.StatusClosed, reason, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("close service request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists bool
		if err := s.db.QueryRowContext(ctx,
			`select exists(select 1 from service_requests where id=$1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("close service request: %w", err)
		}
		if !exists {
			return fmt.Errorf("%w: service request %s", fault.ErrNotFound, id)
		}
		// already closed; keep the original reason
	}
	return nil
}
