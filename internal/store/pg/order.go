package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/fault"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/order"
)

const orderColumns = `
	id, offer_id, service_request_id, contract_id, provider_id, specialist_id,
	title, start_date, end_date, location, man_days, total_cost, status,
	change_history, created_at, updated_at`

const changeColumns = `
	id, order_id, kind, initiated_by, initiator_id, status, note,
	new_end_date, additional_man_days, new_specialist_id,
	decided_by, decided_at, created_at`

func scanOrder(row rowScanner) (order.Order, error) {
	var o order.Order
	var start, end sql.NullTime
	var history []byte
	err := row.Scan(&o.ID, &o.OfferID, &o.ServiceRequestID, &o.ContractID, &o.ProviderID,
		&o.SpecialistID, &o.Title, &start, &end, &o.Location, &o.ManDays, &o.TotalCost,
		&o.Status, &history, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return order.Order{}, err
	}
	o.StartDate = fromNullTime(start)
	o.EndDate = fromNullTime(end)
	if err := unmarshalJSON(history, &o.ChangeHistory); err != nil {
		return order.Order{}, fmt.Errorf("decode change history: %w", err)
	}
	return o, nil
}

func scanChange(row rowScanner) (order.ChangeRequest, error) {
	var cr order.ChangeRequest
	var newEnd, decidedAt sql.NullTime
	var decidedBy sql.NullString
	err := row.Scan(&cr.ID, &cr.OrderID, &cr.Kind, &cr.InitiatedBy, &cr.InitiatorID,
		&cr.Status, &cr.Note, &newEnd, &cr.AdditionalManDays, &cr.NewSpecialistID,
		&decidedBy, &decidedAt, &cr.CreatedAt)
	if err != nil {
		return order.ChangeRequest{}, err
	}
	cr.NewEndDate = fromNullTime(newEnd)
	cr.DecidedAt = fromNullTime(decidedAt)
	cr.DecidedBy = order.Party(decidedBy.String)
	return cr, nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (order.Order, error) {
	row := s.db.QueryRowContext(ctx, `select`+orderColumns+` from orders where id=$1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return order.Order{}, fmt.Errorf("%w: order %s", fault.ErrNotFound, id)
	}
	if err != nil {
		return order.Order{}, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

func (s *Store) GetOrderByOffer(ctx context.Context, offerID string) (order.Order, error) {
	row := s.db.QueryRowContext(ctx, `select`+orderColumns+` from orders where offer_id=$1`, offerID)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return order.Order{}, fmt.Errorf("%w: order for offer %s", fault.ErrNotFound, offerID)
	}
	if err != nil {
		return order.Order{}, fmt.Errorf("get order by offer: %w", err)
	}
	return o, nil
}

func txOrderByOffer(ctx context.Context, tx *sqlx.Tx, offerID string) (order.Order, error) {
	row := tx.QueryRowContext(ctx, `select`+orderColumns+` from orders where offer_id=$1`, offerID)
	o, err := scanOrder(row)
	if err != nil {
		return order.Order{}, fmt.Errorf("read order by offer: %w", err)
	}
	return o, nil
}

func (s *Store) ListOrders(ctx context.Context, providerID string) ([]order.Order, error) {
	query := `select` + orderColumns + ` from orders`
	var args []any
	if providerID != "" {
		query += ` where provider_id=$1`
		args = append(args, providerID)
	}
	query += ` order by id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var out []order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) CompleteOrder(ctx context.Context, id string, at time.Time) (order.Order, error) {
	_, err := s.db.ExecContext(ctx, `
		update orders set status=$2, updated_at=$3
		where id=$1 and status<>$2`, id, order.StatusCompleted, at)
	if err != nil {
		return order.Order{}, fmt.Errorf("complete order: %w", err)
	}
	return s.GetOrder(ctx, id)
}

func (s *Store) ListDueOrders(ctx context.Context, asOf time.Time) ([]order.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		select`+orderColumns+` from orders
		where status=$1 and end_date is not null and end_date < $2
		order by id`, order.StatusActive, asOf)
	if err != nil {
		return nil, fmt.Errorf("list due orders: %w", err)
	}
	defer rows.Close()

	var out []order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) CreateChangeRequest(ctx context.Context, cr order.ChangeRequest) error {
	_, err := s.db.ExecContext(ctx, `
		insert into change_requests (`+changeColumns+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		cr.ID, cr.OrderID, cr.Kind, cr.InitiatedBy, cr.InitiatorID, cr.Status, cr.Note,
		nullTime(cr.NewEndDate), cr.AdditionalManDays, cr.NewSpecialistID,
		nullString(string(cr.DecidedBy)), nullTime(cr.DecidedAt), cr.CreatedAt)
	if err != nil {
		return fmt.Errorf("create change request: %w", err)
	}
	return nil
}

func (s *Store) GetChangeRequest(ctx context.Context, id string) (order.ChangeRequest, error) {
	row := s.db.QueryRowContext(ctx, `select`+changeColumns+` from change_requests where id=$1`, id)
	cr, err := scanChange(row)
	if errors.Is(err, sql.ErrNoRows) {
		return order.ChangeRequest{}, fmt.Errorf("%w: change request %s", fault.ErrNotFound, id)
	}
	if err != nil {
		return order.ChangeRequest{}, fmt.Errorf("get change request: %w", err)
	}
	return cr, nil
}

func (s *Store) ListChangeRequests(ctx context.Context, orderID string) ([]order.ChangeRequest, error) {
	rows, err := s.db.QueryContext(ctx,
		`select`+changeColumns+` from change_requests where order_id=$1 order by created_at`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list change requests: %w", err)
	}
	defer rows.Close()

	var out []order.ChangeRequest
	for rows.Next() {
		cr, err := scanChange(rows)
		if err != nil {
			return nil, fmt.Errorf("scan change request: %w", err)
		}
		out = append(out, cr)
	}
	return out, rows.Err()
}

// DecideChange locks the change request and its order, then flips the
// status and, on approval, applies the mutation to the order in the same
// transaction. Terminal requests replay idempotently for the same verdict.
func (s *Store) DecideChange(ctx context.Context, changeRequestID string, approve bool, decider order.Party, at time.Time) (order.ChangeRequest, order.Order, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return order.ChangeRequest{}, order.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `select`+changeColumns+` from change_requests where id=$1 for update`, changeRequestID)
	cr, err := scanChange(row)
	if errors.Is(err, sql.ErrNoRows) {
		return order.ChangeRequest{}, order.Order{}, fmt.Errorf("%w: change request %s", fault.ErrNotFound, changeRequestID)
	}
	if err != nil {
		return order.ChangeRequest{}, order.Order{}, fmt.Errorf("lock change request: %w", err)
	}

	row = tx.QueryRowContext(ctx, `select`+orderColumns+` from orders where id=$1 for update`, cr.OrderID)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return order.ChangeRequest{}, order.Order{}, fmt.Errorf("%w: order %s", fault.ErrNotFound, cr.OrderID)
	}
	if err != nil {
		return order.ChangeRequest{}, order.Order{}, fmt.Errorf("lock order: %w", err)
	}

	if cr.Status != order.ChangeRequested {
		if (cr.Status == order.ChangeApproved) == approve {
			return cr, o, tx.Commit()
		}
		return order.ChangeRequest{}, order.Order{}, fmt.Errorf("%w: change request %s is already %s", fault.ErrConflict, changeRequestID, cr.Status)
	}

	if approve {
		if err := order.Apply(&o, cr, at); err != nil {
			return order.ChangeRequest{}, order.Order{}, err
		}
		history, err := marshalJSON(o.ChangeHistory)
		if err != nil {
			return order.ChangeRequest{}, order.Order{}, fmt.Errorf("encode change history: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			update orders
			set end_date=$2, man_days=$3, specialist_id=$4, change_history=$5, updated_at=$6
			where id=$1`,
			o.ID, nullTime(o.EndDate), o.ManDays, o.SpecialistID, history, o.UpdatedAt); err != nil {
			return order.ChangeRequest{}, order.Order{}, fmt.Errorf("apply change to order: %w", err)
		}
		cr.Status = order.ChangeApproved
	} else {
		cr.Status = order.ChangeRejected
	}
	cr.DecidedBy = decider
	cr.DecidedAt = at

	if _, err := tx.ExecContext(ctx, `
		update change_requests set status=$2, decided_by=$3, decided_at=$4
		where id=$1`, cr.ID, cr.Status, string(cr.DecidedBy), cr.DecidedAt); err != nil {
		return order.ChangeRequest{}, order.Order{}, fmt.Errorf("update change request: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return order.ChangeRequest{}, order.Order{}, fmt.Errorf("commit: %w", err)
	}
	return cr, o, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
