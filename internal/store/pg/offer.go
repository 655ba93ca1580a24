package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/fault"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/offer"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/order"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/request"
)

const offerColumns = `
	id, service_request_id, contract_id, provider_id, submitter_id, specialist_id,
	daily_rate, travel_cost_per_onsite_day, total_cost, contractual_relationship,
	subcontractor_name, status, must_have_match_percent, nice_to_have_match_percent,
	created_at, updated_at`

func (s *Store) CreateOffer(ctx context.Context, o offer.Offer) error {
	_, err := s.db.NamedExecContext(ctx, `
		insert into offers (`+offerColumns+`)
		values (:id, :service_request_id, :contract_id, :provider_id, :submitter_id, :specialist_id,
		        :daily_rate, :travel_cost_per_onsite_day, :total_cost, :contractual_relationship,
		        :subcontractor_name, :status, :must_have_match_percent, :nice_to_have_match_percent,
		        :created_at, :updated_at)`, o)
	if err != nil {
		return fmt.Errorf("create offer: %w", err)
	}
	return nil
}

func (s *Store) GetOffer(ctx context.Context, id string) (offer.Offer, error) {
	var o offer.Offer
	err := s.db.GetContext(ctx, &o, `select`+offerColumns+` from offers where id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return offer.Offer{}, fmt.Errorf("%w: offer %s", fault.ErrNotFound, id)
	}
	if err != nil {
		return offer.Offer{}, fmt.Errorf("get offer: %w", err)
	}
	return o, nil
}

func (s *Store) SaveOffer(ctx context.Context, o offer.Offer) error {
	res, err := s.db.NamedExecContext(ctx, `
		update offers
		set specialist_id=:specialist_id, daily_rate=:daily_rate,
		    travel_cost_per_onsite_day=:travel_cost_per_onsite_day, total_cost=:total_cost,
		    contractual_relationship=:contractual_relationship, subcontractor_name=:subcontractor_name,
		    status=:status, must_have_match_percent=:must_have_match_percent,
		    nice_to_have_match_percent=:nice_to_have_match_percent, updated_at=:updated_at
		where id=:id`, o)
	if err != nil {
		return fmt.Errorf("save offer: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: offer %s", fault.ErrNotFound, o.ID)
	}
	return nil
}

func (s *Store) ListOffersByProvider(ctx context.Context, providerID string) ([]offer.Offer, error) {
	query := `select` + offerColumns + ` from offers`
	var args []any
	if providerID != "" {
		query += ` where provider_id=$1`
		args = append(args, providerID)
	}
	query += ` order by id`

	var out []offer.Offer
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("list offers: %w", err)
	}
	return out, nil
}

func (s *Store) ListOffersForRequest(ctx context.Context, serviceRequestID string) ([]offer.Offer, error) {
	var out []offer.Offer
	err := s.db.SelectContext(ctx, &out,
		`select`+offerColumns+` from offers where service_request_id=$1 order by id`, serviceRequestID)
	if err != nil {
		return nil, fmt.Errorf("list offers for request: %w", err)
	}
	return out, nil
}

// DecideOffer locks the offer row, replays terminal outcomes idempotently
// and, on accept, get-or-creates the order keyed on the offer id and closes
// the parent request — one transaction, so concurrent accepts can never
// spawn two orders.
func (s *Store) DecideOffer(ctx context.Context, offerID string, decision offer.Decision, candidate order.Order) (offer.Offer, order.Order, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return offer.Offer{}, order.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var o offer.Offer
	err = tx.GetContext(ctx, &o, `select`+offerColumns+` from offers where id=$1 for update`, offerID)
	if errors.Is(err, sql.ErrNoRows) {
		return offer.Offer{}, order.Order{}, fmt.Errorf("%w: offer %s", fault.ErrNotFound, offerID)
	}
	if err != nil {
		return offer.Offer{}, order.Order{}, fmt.Errorf("lock offer: %w", err)
	}

	switch o.Status {
	case offer.StatusSubmitted:
		// decidable
	case offer.StatusAccepted:
		if decision == offer.DecisionAccept {
			existing, err := txOrderByOffer(ctx, tx, offerID)
			if err != nil {
				return offer.Offer{}, order.Order{}, err
			}
			return o, existing, tx.Commit()
		}
		return offer.Offer{}, order.Order{}, fmt.Errorf("%w: offer %s is already accepted", fault.ErrConflict, offerID)
	case offer.StatusRejected:
		if decision == offer.DecisionReject {
			return o, order.Order{}, tx.Commit()
		}
		return offer.Offer{}, order.Order{}, fmt.Errorf("%w: offer %s is already rejected", fault.ErrConflict, offerID)
	default:
		return offer.Offer{}, order.Order{}, fmt.Errorf("%w: offer %s is %s and cannot be decided", fault.ErrValidation, offerID, o.Status)
	}

	now := candidate.CreatedAt
	newStatus := offer.StatusRejected
	if decision == offer.DecisionAccept {
		newStatus = offer.StatusAccepted
	}
	if _, err := tx.ExecContext(ctx,
		`update offers set status=$2, updated_at=$3 where id=$1`, offerID, newStatus, now); err != nil {
		return offer.Offer{}, order.Order{}, fmt.Errorf("update offer status: %w", err)
	}
	o.Status = newStatus
	o.UpdatedAt = now

	if decision == offer.DecisionReject {
		return o, order.Order{}, tx.Commit()
	}

	// on conflict (offer_id) do nothing keeps the first order; re-read to
	// return whichever row actually exists.
	history, err := marshalJSON(candidate.ChangeHistory)
	if err != nil {
		return offer.Offer{}, order.Order{}, fmt.Errorf("encode change history: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		insert into orders
		  (id, offer_id, service_request_id, contract_id, provider_id, specialist_id,
		   title, start_date, end_date, location, man_days, total_cost, status,
		   change_history, created_at, updated_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		on conflict (offer_id) do nothing`,
		candidate.ID, candidate.OfferID, candidate.ServiceRequestID, candidate.ContractID,
		candidate.ProviderID, candidate.SpecialistID, candidate.Title,
		nullTime(candidate.StartDate), nullTime(candidate.EndDate), candidate.Location,
		candidate.ManDays, candidate.TotalCost, candidate.Status,
		history, candidate.CreatedAt, candidate.UpdatedAt); err != nil {
		return offer.Offer{}, order.Order{}, fmt.Errorf("create order: %w", err)
	}
	created, err := txOrderByOffer(ctx, tx, offerID)
	if err != nil {
		return offer.Offer{}, order.Order{}, err
	}

	if _, err := tx.ExecContext(ctx, `
		update service_requests set status=$2, closed_reason=$3, updated_at=$4
		where id=$1 and status<>$2`,
		o.ServiceRequestID, request.StatusClosed, "offer accepted", now); err != nil {
		return offer.Offer{}, order.Order{}, fmt.Errorf("close service request: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return offer.Offer{}, order.Order{}, fmt.Errorf("commit: %w", err)
	}
	return o, created, nil
}
