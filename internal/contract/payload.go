package contract

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/fault"
)

// Payload is the canonical JSON shape the external contract authority sends
// on sync and webhook calls. Field names are part of the shared wire
// contract; evolve backward compatibly.
type Payload struct {
	ContractID         string               `json:"contractId"`
	ID                 string               `json:"id,omitempty"`
	Title              string               `json:"title"`
	Kind               string               `json:"kind,omitempty"`
	Status             string               `json:"status"`
	PublishingDate     string               `json:"publishingDate,omitempty"`
	OfferDeadlineAt    string               `json:"offerDeadlineAt,omitempty"`
	Stakeholders       []string             `json:"stakeholders,omitempty"`
	ScopeOfWork        string               `json:"scopeOfWork,omitempty"`
	TermsAndConditions string               `json:"termsAndConditions,omitempty"`
	Weighting          Weighting            `json:"weighting"`
	AllowedConfig      AllowedConfiguration `json:"allowedConfiguration"`
	VersionsAndDocs    []string             `json:"versionsAndDocuments,omitempty"`
}

// ExternalID returns whichever identifier field the payload populated.
func (p Payload) ExternalID() string {
	if id := strings.TrimSpace(p.ContractID); id != "" {
		return id
	}
	return strings.TrimSpace(p.ID)
}

// ParseStatus canonicalizes an external status string.
func ParseStatus(raw string) (Status, error) {
	switch Status(strings.ToUpper(strings.TrimSpace(raw))) {
	case StatusDraft:
		return StatusDraft, nil
	case StatusPublished:
		return StatusPublished, nil
	case StatusInNegotiation:
		return StatusInNegotiation, nil
	case StatusActive:
		return StatusActive, nil
	case StatusExpired:
		return StatusExpired, nil
	default:
		return "", fmt.Errorf("%w: unknown contract status %q", fault.ErrValidation, raw)
	}
}

// ParseAwardStatus canonicalizes an external award status string.
func ParseAwardStatus(raw string) (AwardStatus, error) {
	switch AwardStatus(strings.ToUpper(strings.TrimSpace(raw))) {
	case AwardInNegotiation:
		return AwardInNegotiation, nil
	case AwardActive:
		return AwardActive, nil
	case AwardExpired:
		return AwardExpired, nil
	default:
		return "", fmt.Errorf("%w: unknown provider status %q", fault.ErrValidation, raw)
	}
}

// ToContract validates the payload and converts it into a contract snapshot.
// Timestamps accept RFC 3339 or plain dates; malformed ones fail the item,
// not the batch.
func (p Payload) ToContract() (Contract, error) {
	id := p.ExternalID()
	if id == "" {
		return Contract{}, fmt.Errorf("%w: contract id is required", fault.ErrValidation)
	}
	if strings.TrimSpace(p.Title) == "" {
		return Contract{}, fmt.Errorf("%w: contract title is required", fault.ErrValidation)
	}
	status, err := ParseStatus(p.Status)
	if err != nil {
		return Contract{}, err
	}
	publishing, err := parseFlexibleTime(p.PublishingDate)
	if err != nil {
		return Contract{}, fmt.Errorf("%w: publishingDate: %v", fault.ErrValidation, err)
	}
	deadline, err := parseFlexibleTime(p.OfferDeadlineAt)
	if err != nil {
		return Contract{}, fmt.Errorf("%w: offerDeadlineAt: %v", fault.ErrValidation, err)
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return Contract{}, err
	}
	return Contract{
		ID:                 id,
		Title:              strings.TrimSpace(p.Title),
		Kind:               strings.TrimSpace(p.Kind),
		Status:             status,
		PublishingDate:     publishing,
		OfferDeadlineAt:    deadline,
		Stakeholders:       p.Stakeholders,
		ScopeOfWork:        p.ScopeOfWork,
		TermsAndConditions: p.TermsAndConditions,
		Weighting:          p.Weighting,
		Config:             p.AllowedConfig,
		VersionsAndDocs:    p.VersionsAndDocs,
		RawSnapshot:        raw,
	}, nil
}

func parseFlexibleTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", raw)
}
