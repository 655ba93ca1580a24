package request

import (
	"fmt"
	"strings"
	"time"

	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/contract"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/fault"
)

// Type classifies the staffing demand.
type Type string

const (
	TypeSingle       Type = "SINGLE"
	TypeMulti        Type = "MULTI"
	TypeTeam         Type = "TEAM"
	TypeWorkContract Type = "WORK_CONTRACT"
)

// ParseType canonicalizes an external request type spelling.
func ParseType(raw string) (Type, error) {
	switch Type(contract.NormalizeRequestType(raw)) {
	case TypeSingle:
		return TypeSingle, nil
	case TypeMulti:
		return TypeMulti, nil
	case TypeTeam:
		return TypeTeam, nil
	case TypeWorkContract:
		return TypeWorkContract, nil
	default:
		return "", fmt.Errorf("%w: unknown service request type %q", fault.ErrValidation, raw)
	}
}

// Status is the request lifecycle: OPEN accepts offers, CLOSED is terminal.
type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusClosed Status = "CLOSED"
)

// ServiceRequest is a posted staffing need linked to exactly one contract.
// Owned by the external request system; local creation is validated against
// the linked contract's configuration first.
type ServiceRequest struct {
	ID              string    `json:"id" db:"id"`
	ContractID      string    `json:"contract_id" db:"contract_id"`
	Title           string    `json:"title" db:"title"`
	Type            Type      `json:"type" db:"type"`
	Role            string    `json:"role" db:"role"`
	Domain          string    `json:"domain,omitempty" db:"domain"`
	ExperienceLevel string    `json:"experience_level,omitempty" db:"experience_level"`
	TechnologyLevel string    `json:"technology_level,omitempty" db:"technology_level"`
	StartDate       time.Time `json:"start_date" db:"start_date"`
	EndDate         time.Time `json:"end_date" db:"end_date"`
	ManDays         int       `json:"man_days" db:"man_days"`
	OnsiteDays      int       `json:"onsite_days" db:"onsite_days"`
	Languages       []string  `json:"languages,omitempty"`
	MustHave        []string  `json:"must_have,omitempty"`
	NiceToHave      []string  `json:"nice_to_have,omitempty"`
	OfferDeadlineAt time.Time `json:"offer_deadline_at" db:"offer_deadline_at"`
	OfferCycles     int       `json:"offer_cycles" db:"offer_cycles"`
	Status          Status    `json:"status" db:"status"`
	ClosedReason    string    `json:"closed_reason,omitempty" db:"closed_reason"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// RoleRequirement converts the request's demanded role into the shape the
// contract validation engine checks against allow-lists.
func (r ServiceRequest) RoleRequirement() contract.RoleRequirement {
	return contract.RoleRequirement{
		Role:            r.Role,
		Domain:          r.Domain,
		ExperienceLevel: r.ExperienceLevel,
	}
}

// normalizeCriteria trims entries and drops empties while preserving order.
func normalizeCriteria(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
