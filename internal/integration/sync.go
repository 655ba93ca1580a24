// Package integration adapts the platform to the external contract
// authority ("Group2") and the external service-request owner ("Group3").
// Inbound sync is a tolerant per-item upsert; outbound calls are
// best-effort and never roll back committed local state.
package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/contract"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/fault"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/request"
)

// ServiceRequestPayload is the canonical JSON shape the external request
// owner sends for staffing demand.
type ServiceRequestPayload struct {
	ID              string   `json:"id"`
	ContractID      string   `json:"contractId"`
	Title           string   `json:"title"`
	Type            string   `json:"type"`
	Role            string   `json:"role"`
	Domain          string   `json:"domain,omitempty"`
	ExperienceLevel string   `json:"experienceLevel,omitempty"`
	TechnologyLevel string   `json:"technologyLevel,omitempty"`
	StartDate       string   `json:"startDate,omitempty"`
	EndDate         string   `json:"endDate,omitempty"`
	ManDays         int      `json:"manDays"`
	OnsiteDays      int      `json:"onsiteDays"`
	Languages       []string `json:"languages,omitempty"`
	MustHave        []string `json:"mustHave,omitempty"`
	NiceToHave      []string `json:"niceToHave,omitempty"`
	OfferDeadlineAt string   `json:"offerDeadlineAt,omitempty"`
	OfferCycles     int      `json:"offerCycles,omitempty"`
	Status          string   `json:"status,omitempty"`
}

// Report summarizes a sync batch. Skipped items carry their reason in
// Errors; a bad item never aborts the batch.
type Report struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

// Sync ingests external snapshots through the same validation and upsert
// paths internal actors use, so internal and external mutations can never
// diverge.
type Sync struct {
	contracts *contract.Registry
	requests  *request.Service
}

// NewSync constructs the sync adapter.
func NewSync(contracts *contract.Registry, requests *request.Service) (*Sync, error) {
	if contracts == nil || requests == nil {
		return nil, errors.New("sync requires contract registry and request service")
	}
	return &Sync{contracts: contracts, requests: requests}, nil
}

// Contracts upserts a batch of contract payloads keyed by external id.
func (s *Sync) Contracts(ctx context.Context, payloads []contract.Payload) Report {
	var rep Report
	for i, p := range payloads {
		_, created, err := s.contracts.Upsert(ctx, p)
		if err != nil {
			rep.Skipped++
			rep.Errors = append(rep.Errors, fmt.Sprintf("item %d (%s): %v", i, p.ExternalID(), err))
			continue
		}
		if created {
			rep.Created++
		} else {
			rep.Updated++
		}
	}
	return rep
}

// ServiceRequests upserts a batch of service-request payloads. Items whose
// backing contract is unknown locally are skipped and counted.
func (s *Sync) ServiceRequests(ctx context.Context, payloads []ServiceRequestPayload) Report {
	var rep Report
	for i, p := range payloads {
		sr, err := p.toRequest()
		if err == nil {
			_, created, upsertErr := s.requests.Upsert(ctx, sr)
			err = upsertErr
			if err == nil {
				if created {
					rep.Created++
				} else {
					rep.Updated++
				}
				continue
			}
		}
		rep.Skipped++
		rep.Errors = append(rep.Errors, fmt.Sprintf("item %d (%s): %v", i, p.ID, err))
	}
	return rep
}

func (p ServiceRequestPayload) toRequest() (request.ServiceRequest, error) {
	if strings.TrimSpace(p.ID) == "" {
		return request.ServiceRequest{}, fmt.Errorf("%w: service request id is required", fault.ErrValidation)
	}
	if strings.TrimSpace(p.ContractID) == "" {
		return request.ServiceRequest{}, fmt.Errorf("%w: contract id is required", fault.ErrValidation)
	}
	reqType, err := request.ParseType(p.Type)
	if err != nil {
		return request.ServiceRequest{}, err
	}
	var status request.Status
	switch strings.ToUpper(strings.TrimSpace(p.Status)) {
	case "", "OPEN", "PUBLISHED":
		status = request.StatusOpen
	case "CLOSED":
		status = request.StatusClosed
	default:
		return request.ServiceRequest{}, fmt.Errorf("%w: unknown service request status %q", fault.ErrValidation, p.Status)
	}
	start, err := parseTime(p.StartDate)
	if err != nil {
		return request.ServiceRequest{}, err
	}
	end, err := parseTime(p.EndDate)
	if err != nil {
		return request.ServiceRequest{}, err
	}
	deadline, err := parseTime(p.OfferDeadlineAt)
	if err != nil {
		return request.ServiceRequest{}, err
	}
	if len(p.MustHave) > contract.MaxMustHaveCriteria {
		return request.ServiceRequest{}, fmt.Errorf("%w: at most %d must-have criteria allowed", fault.ErrValidation, contract.MaxMustHaveCriteria)
	}
	if len(p.NiceToHave) > contract.MaxNiceToHaveCriteria {
		return request.ServiceRequest{}, fmt.Errorf("%w: at most %d nice-to-have criteria allowed", fault.ErrValidation, contract.MaxNiceToHaveCriteria)
	}
	cycles := p.OfferCycles
	if cycles != 1 && cycles != 2 {
		cycles = 1
	}
	return request.ServiceRequest{
		ID:              strings.TrimSpace(p.ID),
		ContractID:      strings.TrimSpace(p.ContractID),
		Title:           strings.TrimSpace(p.Title),
		Type:            reqType,
		Role:            strings.TrimSpace(p.Role),
		Domain:          strings.TrimSpace(p.Domain),
		ExperienceLevel: contract.NormalizeExperience(p.ExperienceLevel),
		TechnologyLevel: strings.TrimSpace(p.TechnologyLevel),
		StartDate:       start,
		EndDate:         end,
		ManDays:         p.ManDays,
		OnsiteDays:      p.OnsiteDays,
		Languages:       p.Languages,
		MustHave:        p.MustHave,
		NiceToHave:      p.NiceToHave,
		OfferDeadlineAt: deadline,
		OfferCycles:     cycles,
		Status:          status,
	}, nil
}

func parseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparseable timestamp %q", fault.ErrValidation, raw)
}
