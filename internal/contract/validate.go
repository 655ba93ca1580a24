package contract

import (
	"fmt"
	"strings"

	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/fault"
)

// Bounds on weighted criteria attached to a service request.
const (
	MaxMustHaveCriteria   = 3
	MaxNiceToHaveCriteria = 5
)

// BidWindow is what a validated request inherits from the contract
// configuration: how long bidding stays open and how many offer cycles run.
type BidWindow struct {
	BiddingDeadlineDays int
	OfferCycles         int
}

// RoleRequirement is one role demanded by a service request, checked against
// the contract allow-lists when enforcement is switched on.
type RoleRequirement struct {
	Role            string
	Domain          string
	ExperienceLevel string
}

// NormalizeRequestType canonicalizes an external request type spelling.
func NormalizeRequestType(raw string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(raw), "-", "_"))
}

// experience synonyms used by the external systems. Lookup keys are
// lower-case.
var experienceSynonyms = map[string]string{
	"mid":          "Intermediate",
	"mid-level":    "Intermediate",
	"middle":       "Intermediate",
	"intermediate": "Intermediate",
	"junior":       "Junior",
	"senior":       "Senior",
	"expert":       "Expert",
}

// NormalizeExperience maps experience-level synonyms onto the canonical
// vocabulary ("Mid" becomes "Intermediate"). Unknown levels pass through
// trimmed so an exact row match can still succeed.
func NormalizeExperience(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if canonical, ok := experienceSynonyms[strings.ToLower(trimmed)]; ok {
		return canonical
	}
	return trimmed
}

// ValidateRequestAgainstContract checks a proposed service request against
// the contract's allowed configuration. Pure: no clock, no store.
//
// The per-role allow-list check only runs when the configuration sets
// EnforceRoleAllowList; the external authority ships it disabled today but
// the engine keeps the path alive.
func ValidateRequestAgainstContract(cfg AllowedConfiguration, requestType string, roles []RoleRequirement, mustHave, niceToHave []string) (BidWindow, error) {
	canonical := NormalizeRequestType(requestType)

	var accepted *AcceptedRequestType
	for i := range cfg.AcceptedServiceRequestTypes {
		if NormalizeRequestType(cfg.AcceptedServiceRequestTypes[i].Type) == canonical {
			accepted = &cfg.AcceptedServiceRequestTypes[i]
			break
		}
	}
	if accepted == nil || !accepted.IsAccepted {
		return BidWindow{}, fmt.Errorf("%w: request type %s is not accepted by the contract", fault.ErrValidation, canonical)
	}

	if len(mustHave) > MaxMustHaveCriteria {
		return BidWindow{}, fmt.Errorf("%w: at most %d must-have criteria allowed, got %d", fault.ErrValidation, MaxMustHaveCriteria, len(mustHave))
	}
	if len(niceToHave) > MaxNiceToHaveCriteria {
		return BidWindow{}, fmt.Errorf("%w: at most %d nice-to-have criteria allowed, got %d", fault.ErrValidation, MaxNiceToHaveCriteria, len(niceToHave))
	}

	if cfg.EnforceRoleAllowList {
		for _, role := range roles {
			if err := checkRoleAllowed(cfg, role); err != nil {
				return BidWindow{}, err
			}
		}
	}

	window := BidWindow{
		BiddingDeadlineDays: accepted.BiddingDeadlineDays,
		OfferCycles:         accepted.OfferCycles,
	}
	if window.BiddingDeadlineDays < 0 {
		window.BiddingDeadlineDays = 0
	}
	// Any cycle count outside {1,2} collapses to 1.
	if window.OfferCycles != 1 && window.OfferCycles != 2 {
		window.OfferCycles = 1
	}
	return window, nil
}

func checkRoleAllowed(cfg AllowedConfiguration, role RoleRequirement) error {
	if len(cfg.Roles) > 0 && !containsFold(cfg.Roles, role.Role) {
		return fmt.Errorf("%w: role %q is not allowed by the contract", fault.ErrValidation, role.Role)
	}
	if role.Domain != "" && len(cfg.Domains) > 0 && !containsFold(cfg.Domains, role.Domain) {
		return fmt.Errorf("%w: domain %q is not allowed by the contract", fault.ErrValidation, role.Domain)
	}
	if role.ExperienceLevel != "" && len(cfg.ExperienceLevels) > 0 &&
		!containsFold(cfg.ExperienceLevels, NormalizeExperience(role.ExperienceLevel)) {
		return fmt.Errorf("%w: experience level %q is not allowed by the contract", fault.ErrValidation, role.ExperienceLevel)
	}
	return nil
}

// FindMaxDailyRate looks the role/experience/technology triple up in the
// contract's rate matrix. Exact match only after experience normalization:
// no fuzzy or partial matching, and no wildcard unless a row explicitly
// leaves a column empty.
func FindMaxDailyRate(cfg AllowedConfiguration, role, experienceLevel, technologyLevel string) (int64, bool) {
	exp := NormalizeExperience(experienceLevel)
	for _, row := range cfg.PricingRules.MaxDailyRates {
		if !strings.EqualFold(row.Role, role) {
			continue
		}
		if row.ExperienceLevel != "" && !strings.EqualFold(NormalizeExperience(row.ExperienceLevel), exp) {
			continue
		}
		if row.TechnologyLevel != "" && !strings.EqualFold(row.TechnologyLevel, technologyLevel) {
			continue
		}
		return row.MaxDailyRate, true
	}
	return 0, false
}

// ValidateRatePolicy fails when no policy row matches the specialist's
// levels or when the proposed rate exceeds the matched ceiling. Runs on
// every offer create and on every edit that changes rate or specialist.
func ValidateRatePolicy(cfg AllowedConfiguration, proposedRate int64, role, experienceLevel, technologyLevel string) error {
	ceiling, ok := FindMaxDailyRate(cfg, role, experienceLevel, technologyLevel)
	if !ok {
		return fmt.Errorf("%w: no rate policy for role %q, experience %q, technology %q", fault.ErrValidation, role, experienceLevel, technologyLevel)
	}
	if proposedRate > ceiling {
		return fmt.Errorf("%w: daily rate %d exceeds max %d", fault.ErrValidation, proposedRate, ceiling)
	}
	return nil
}

func containsFold(list []string, needle string) bool {
	for _, v := range list {
		if strings.EqualFold(v, needle) {
			return true
		}
	}
	return false
}
