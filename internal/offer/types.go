package offer

import (
	"fmt"
	"strings"
	"time"

	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/fault"
)

// Status is the offer lifecycle. ACCEPTED, REJECTED and WITHDRAWN are
// terminal; only non-terminal offers may be edited.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusSubmitted Status = "SUBMITTED"
	StatusWithdrawn Status = "WITHDRAWN"
	StatusAccepted  Status = "ACCEPTED"
	StatusRejected  Status = "REJECTED"
)

// Terminal reports whether the offer can no longer change.
func (s Status) Terminal() bool {
	return s == StatusAccepted || s == StatusRejected || s == StatusWithdrawn
}

// Relationship is the contractual link between provider and specialist.
type Relationship string

const (
	RelEmployee      Relationship = "EMPLOYEE"
	RelFreelancer    Relationship = "FREELANCER"
	RelSubcontractor Relationship = "SUBCONTRACTOR"
)

// ParseRelationship canonicalizes an external spelling.
func ParseRelationship(raw string) (Relationship, error) {
	switch Relationship(strings.ToUpper(strings.TrimSpace(raw))) {
	case RelEmployee:
		return RelEmployee, nil
	case RelFreelancer:
		return RelFreelancer, nil
	case RelSubcontractor:
		return RelSubcontractor, nil
	default:
		return "", fmt.Errorf("%w: unknown contractual relationship %q", fault.ErrValidation, raw)
	}
}

// Decision is an accept/reject verdict on a submitted offer.
type Decision string

const (
	DecisionAccept Decision = "ACCEPTED"
	DecisionReject Decision = "REJECTED"
)

// Offer is a provider's bid against a service request. TotalCost is always
// derived, never trusted from input:
//
//	total_cost = daily_rate*man_days + travel_cost_per_onsite_day*onsite_days
type Offer struct {
	ID                     string       `json:"id" db:"id"`
	ServiceRequestID       string       `json:"service_request_id" db:"service_request_id"`
	ContractID             string       `json:"contract_id" db:"contract_id"`
	ProviderID             string       `json:"provider_id" db:"provider_id"`
	SubmitterID            string       `json:"submitter_id" db:"submitter_id"`
	SpecialistID           string       `json:"specialist_id" db:"specialist_id"`
	DailyRate              int64        `json:"daily_rate" db:"daily_rate"`
	TravelCostPerOnsiteDay int64        `json:"travel_cost_per_onsite_day" db:"travel_cost_per_onsite_day"`
	TotalCost              int64        `json:"total_cost" db:"total_cost"`
	Relationship           Relationship `json:"contractual_relationship" db:"contractual_relationship"`
	SubcontractorName      string       `json:"subcontractor_name,omitempty" db:"subcontractor_name"`
	Status                 Status       `json:"status" db:"status"`
	MustHaveMatchPercent   int          `json:"must_have_match_percent" db:"must_have_match_percent"`
	NiceToHaveMatchPercent int          `json:"nice_to_have_match_percent" db:"nice_to_have_match_percent"`
	CreatedAt              time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time    `json:"updated_at" db:"updated_at"`
}

// TotalCost computes the derived offer cost for the given demand volume.
func TotalCost(dailyRate int64, manDays int, travelCostPerOnsiteDay int64, onsiteDays int) int64 {
	return dailyRate*int64(manDays) + travelCostPerOnsiteDay*int64(onsiteDays)
}

// matchPercent reports which share of the criteria the specialist's
// assignment attributes satisfy. A criterion matches when it equals one of
// the attributes, case-insensitively. Empty criteria count as a full match.
func matchPercent(criteria, attributes []string) int {
	if len(criteria) == 0 {
		return 100
	}
	hits := 0
	for _, c := range criteria {
		for _, a := range attributes {
			if strings.EqualFold(strings.TrimSpace(c), strings.TrimSpace(a)) {
				hits++
				break
			}
		}
	}
	return hits * 100 / len(criteria)
}
