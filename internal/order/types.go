package order

import (
	"fmt"
	"time"

	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/fault"
)

// Status is the order lifecycle: ACTIVE until completed, COMPLETED terminal.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
)

// Party identifies which side of the engagement acted. Provider-side actors
// authenticate through the session API; the external PM side comes in
// through the API-key integration channel.
type Party string

const (
	PartyProvider Party = "PROVIDER"
	PartyExternal Party = "EXTERNAL"
)

// Opposite returns the counterparty.
func (p Party) Opposite() Party {
	if p == PartyProvider {
		return PartyExternal
	}
	return PartyProvider
}

// ChangeKind is the type of post-award mutation.
type ChangeKind string

const (
	ChangeExtension    ChangeKind = "EXTENSION"
	ChangeSubstitution ChangeKind = "SUBSTITUTION"
)

// ChangeStatus is the change-request lifecycle. REQUESTED is the only
// non-terminal state.
type ChangeStatus string

const (
	ChangeRequested ChangeStatus = "REQUESTED"
	ChangeApproved  ChangeStatus = "APPROVED"
	ChangeRejected  ChangeStatus = "REJECTED"
)

// ChangeEntry is one line of an order's append-only change history.
type ChangeEntry struct {
	At              time.Time  `json:"at"`
	ChangeRequestID string     `json:"change_request_id"`
	Kind            ChangeKind `json:"kind"`
	Summary         string     `json:"summary"`
}

// Order is the binding engagement spawned exactly once per accepted offer.
type Order struct {
	ID               string        `json:"id" db:"id"`
	OfferID          string        `json:"offer_id" db:"offer_id"`
	ServiceRequestID string        `json:"service_request_id" db:"service_request_id"`
	ContractID       string        `json:"contract_id" db:"contract_id"`
	ProviderID       string        `json:"provider_id" db:"provider_id"`
	SpecialistID     string        `json:"specialist_id" db:"specialist_id"`
	Title            string        `json:"title" db:"title"`
	StartDate        time.Time     `json:"start_date" db:"start_date"`
	EndDate          time.Time     `json:"end_date" db:"end_date"`
	Location         string        `json:"location,omitempty" db:"location"`
	ManDays          int           `json:"man_days" db:"man_days"`
	TotalCost        int64         `json:"total_cost" db:"total_cost"`
	Status           Status        `json:"status" db:"status"`
	ChangeHistory    []ChangeEntry `json:"change_history,omitempty"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at" db:"updated_at"`
}

// ChangeRequest proposes a mutation to an active order. Only the party that
// did not initiate it may decide it.
type ChangeRequest struct {
	ID          string       `json:"id" db:"id"`
	OrderID     string       `json:"order_id" db:"order_id"`
	Kind        ChangeKind   `json:"kind" db:"kind"`
	InitiatedBy Party        `json:"initiated_by" db:"initiated_by"`
	InitiatorID string       `json:"initiator_id,omitempty" db:"initiator_id"`
	Status      ChangeStatus `json:"status" db:"status"`
	Note        string       `json:"note,omitempty" db:"note"`

	// Extension payload.
	NewEndDate        time.Time `json:"new_end_date,omitempty" db:"new_end_date"`
	AdditionalManDays int       `json:"additional_man_days,omitempty" db:"additional_man_days"`

	// Substitution payload.
	NewSpecialistID string `json:"new_specialist_id,omitempty" db:"new_specialist_id"`

	DecidedBy Party     `json:"decided_by,omitempty" db:"decided_by"`
	DecidedAt time.Time `json:"decided_at,omitempty" db:"decided_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Apply mutates the order per the approved change request and appends one
// history entry. Pure on its inputs; both store implementations call it
// inside their decide transaction so the mutation and the status flip
// commit together.
func Apply(o *Order, cr ChangeRequest, at time.Time) error {
	if o.Status != StatusActive {
		return fmt.Errorf("%w: order %s is %s, changes apply to active orders only", fault.ErrValidation, o.ID, o.Status)
	}
	switch cr.Kind {
	case ChangeExtension:
		if cr.NewEndDate.IsZero() || !cr.NewEndDate.After(o.EndDate) {
			return fmt.Errorf("%w: extension end date must be after current end date", fault.ErrValidation)
		}
		if cr.AdditionalManDays <= 0 {
			return fmt.Errorf("%w: additional man-days must be positive", fault.ErrValidation)
		}
		o.EndDate = cr.NewEndDate
		o.ManDays += cr.AdditionalManDays
		o.ChangeHistory = append(o.ChangeHistory, ChangeEntry{
			At:              at,
			ChangeRequestID: cr.ID,
			Kind:            cr.Kind,
			Summary:         fmt.Sprintf("extended to %s, +%d man-days", cr.NewEndDate.Format("2006-01-02"), cr.AdditionalManDays),
		})
	case ChangeSubstitution:
		if cr.NewSpecialistID == "" {
			return fmt.Errorf("%w: substitution requires a new specialist", fault.ErrValidation)
		}
		previous := o.SpecialistID
		o.SpecialistID = cr.NewSpecialistID
		// The old specialist stays in history; the record is never purged.
		o.ChangeHistory = append(o.ChangeHistory, ChangeEntry{
			At:              at,
			ChangeRequestID: cr.ID,
			Kind:            cr.Kind,
			Summary:         fmt.Sprintf("specialist %s replaced by %s", previous, cr.NewSpecialistID),
		})
	default:
		return fmt.Errorf("%w: unknown change kind %q", fault.ErrValidation, cr.Kind)
	}
	o.UpdatedAt = at
	return nil
}
