package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/request"
)

type createServiceRequestRequest struct {
	ContractID      string   `json:"contract_id"`
	Title           string   `json:"title"`
	Type            string   `json:"type"`
	Role            string   `json:"role"`
	Domain          string   `json:"domain"`
	ExperienceLevel string   `json:"experience_level"`
	TechnologyLevel string   `json:"technology_level"`
	StartDate       string   `json:"start_date"`
	EndDate         string   `json:"end_date"`
	ManDays         int      `json:"man_days"`
	OnsiteDays      int      `json:"onsite_days"`
	Languages       []string `json:"languages"`
	MustHave        []string `json:"must_have"`
	NiceToHave      []string `json:"nice_to_have"`
}

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

func (a *API) handleCreateServiceRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionUserID(w, r)
	if !ok {
		return
	}
	var req createServiceRequestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "start_date must be RFC3339 or YYYY-MM-DD")
		return
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "end_date must be RFC3339 or YYYY-MM-DD")
		return
	}

	sr, err := a.requests.Create(r.Context(), userID, request.CreateInput{
		ContractID:      req.ContractID,
		Title:           req.Title,
		Type:            req.Type,
		Role:            req.Role,
		Domain:          req.Domain,
		ExperienceLevel: req.ExperienceLevel,
		TechnologyLevel: req.TechnologyLevel,
		StartDate:       start,
		EndDate:         end,
		ManDays:         req.ManDays,
		OnsiteDays:      req.OnsiteDays,
		Languages:       req.Languages,
		MustHave:        req.MustHave,
		NiceToHave:      req.NiceToHave,
	})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	a.trail.LogEvent(r.Context(), "service_request.created", map[string]any{
		"service_request_id": sr.ID,
		"contract_id":        sr.ContractID,
		"type":               string(sr.Type),
	})
	writeJSON(w, http.StatusCreated, sr)
}

func (a *API) handleListServiceRequests(w http.ResponseWriter, r *http.Request) {
	if _, ok := sessionUserID(w, r); !ok {
		return
	}
	items, err := a.requests.List(r.Context(), r.URL.Query().Get("contract_id"))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) handleGetServiceRequest(w http.ResponseWriter, r *http.Request) {
	if _, ok := sessionUserID(w, r); !ok {
		return
	}
	sr, err := a.requests.Get(r.Context(), chi.URLParam(r, "requestID"))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sr)
}

type closeServiceRequestRequest struct {
	Reason string `json:"reason"`
}

func (a *API) handleCloseServiceRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionUserID(w, r)
	if !ok {
		return
	}
	var req closeServiceRequestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	id := chi.URLParam(r, "requestID")
	if err := a.requests.Close(r.Context(), userID, id, req.Reason); err != nil {
		handleDomainError(w, r, err)
		return
	}
	a.trail.LogEvent(r.Context(), "service_request.closed", map[string]any{
		"service_request_id": id,
		"reason":             req.Reason,
	})
	writeJSON(w, http.StatusOK, map[string]any{"status": "closed"})
}
