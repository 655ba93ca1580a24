package contract

import (
	"encoding/json"
	"time"
)

// Status mirrors the lifecycle owned by the external contract authority.
// Providers never drive these transitions directly.
type Status string

const (
	StatusDraft         Status = "DRAFT"
	StatusPublished     Status = "PUBLISHED"
	StatusInNegotiation Status = "IN_NEGOTIATION"
	StatusActive        Status = "ACTIVE"
	StatusExpired       Status = "EXPIRED"
)

// AwardStatus is the per-(contract, provider) award state.
type AwardStatus string

const (
	AwardInNegotiation AwardStatus = "IN_NEGOTIATION"
	AwardActive        AwardStatus = "ACTIVE"
	AwardExpired       AwardStatus = "EXPIRED"
)

// Weighting is the functional/commercial evaluation split in percent.
type Weighting struct {
	FunctionalPercent int `json:"functionalPercent"`
	CommercialPercent int `json:"commercialPercent"`
}

// AcceptedRequestType declares whether a service-request type may be
// transacted under the contract and with which bidding window.
type AcceptedRequestType struct {
	Type                string `json:"type"`
	IsAccepted          bool   `json:"isAccepted"`
	BiddingDeadlineDays int    `json:"biddingDeadlineDays"`
	OfferCycles         int    `json:"offerCycles"`
}

// RateCeiling is one row of the contract's rate matrix. MaxDailyRate is an
// integer amount in the pricing currency, exactly as the external payload
// carries it.
type RateCeiling struct {
	Role            string `json:"role"`
	ExperienceLevel string `json:"experienceLevel"`
	TechnologyLevel string `json:"technologyLevel"`
	MaxDailyRate    int64  `json:"maxDailyRate"`
}

// PricingRules caps what providers may charge per matched role row.
type PricingRules struct {
	Currency      string        `json:"currency"`
	MaxDailyRates []RateCeiling `json:"maxDailyRates,omitempty"`
}

// AllowedConfiguration is the contract's typed configuration, validated at
// the sync boundary. Its JSON shape is a public interface shared with the
// external contract authority and must stay backward compatible.
type AllowedConfiguration struct {
	Domains                     []string              `json:"domains,omitempty"`
	Roles                       []string              `json:"roles,omitempty"`
	ExperienceLevels            []string              `json:"experienceLevels,omitempty"`
	TechnologyLevels            []string              `json:"technologyLevels,omitempty"`
	AcceptedServiceRequestTypes []AcceptedRequestType `json:"acceptedServiceRequestTypes,omitempty"`
	PricingRules                PricingRules          `json:"pricingRules"`

	// EnforceRoleAllowList switches on the per-role domain/name/experience
	// allow-list check at offer validation. The external authority has not
	// activated this yet; the engine must keep supporting it.
	EnforceRoleAllowList bool `json:"enforceRoleAllowList,omitempty"`
}

// IsZero reports whether the configuration carries no usable rules. A zero
// incoming config never overwrites a stored one during merge.
func (c AllowedConfiguration) IsZero() bool {
	return len(c.AcceptedServiceRequestTypes) == 0 &&
		len(c.PricingRules.MaxDailyRates) == 0 &&
		len(c.Domains) == 0 && len(c.Roles) == 0 &&
		len(c.ExperienceLevels) == 0 && len(c.TechnologyLevels) == 0
}

// Contract is the locally held snapshot of an externally owned agreement.
// RawSnapshot keeps the last full payload for audit.
type Contract struct {
	ID                 string               `json:"id" db:"id"`
	Title              string               `json:"title" db:"title"`
	Kind               string               `json:"kind" db:"kind"`
	Status             Status               `json:"status" db:"status"`
	PublishingDate     time.Time            `json:"publishing_date,omitempty" db:"publishing_date"`
	OfferDeadlineAt    time.Time            `json:"offer_deadline_at,omitempty" db:"offer_deadline_at"`
	Stakeholders       []string             `json:"stakeholders,omitempty"`
	ScopeOfWork        string               `json:"scope_of_work,omitempty" db:"scope_of_work"`
	TermsAndConditions string               `json:"terms_and_conditions,omitempty" db:"terms_and_conditions"`
	Weighting          Weighting            `json:"weighting"`
	Config             AllowedConfiguration `json:"config"`
	VersionsAndDocs    []string             `json:"versions_and_documents,omitempty"`
	RawSnapshot        json.RawMessage      `json:"-"`
	CreatedAt          time.Time            `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at" db:"updated_at"`
}

// ProviderAward records a provider's standing on a contract. Unique per
// (contract, provider).
type ProviderAward struct {
	ContractID string      `json:"contract_id" db:"contract_id"`
	ProviderID string      `json:"provider_id" db:"provider_id"`
	Status     AwardStatus `json:"status" db:"status"`
	AwardedAt  time.Time   `json:"awarded_at" db:"awarded_at"`
	Note       string      `json:"note,omitempty" db:"note"`
}

// View decorates a contract with the calling provider's award status for
// listings.
type View struct {
	Contract
	AwardStatus AwardStatus `json:"award_status,omitempty"`
}

// RatchetOnAward returns the contract status after an award transition.
// Activation is a one-directional ratchet: an ACTIVE award promotes a
// PUBLISHED or IN_NEGOTIATION contract to ACTIVE and nothing ever demotes
// automatically. Both store implementations apply this inside their
// transaction.
func RatchetOnAward(current Status, award AwardStatus) (Status, bool) {
	if award != AwardActive {
		return current, false
	}
	if current == StatusPublished || current == StatusInNegotiation {
		return StatusActive, true
	}
	return current, false
}
