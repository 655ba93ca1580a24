package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/obs"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/offer"
)

type createOfferRequest struct {
	ServiceRequestID       string `json:"service_request_id"`
	SpecialistID           string `json:"specialist_id"`
	DailyRate              int64  `json:"daily_rate"`
	TravelCostPerOnsiteDay int64  `json:"travel_cost_per_onsite_day"`
	Relationship           string `json:"contractual_relationship"`
	SubcontractorName      string `json:"subcontractor_name"`
}

func (a *API) handleCreateOffer(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionUserID(w, r)
	if !ok {
		return
	}
	var req createOfferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	o, err := a.offers.Create(r.Context(), userID, offer.CreateInput{
		ServiceRequestID:       req.ServiceRequestID,
		SpecialistID:           req.SpecialistID,
		DailyRate:              req.DailyRate,
		TravelCostPerOnsiteDay: req.TravelCostPerOnsiteDay,
		Relationship:           req.Relationship,
		SubcontractorName:      req.SubcontractorName,
	})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	a.trail.LogEvent(r.Context(), "offer.submitted", map[string]any{
		"offer_id":           o.ID,
		"service_request_id": o.ServiceRequestID,
		"total_cost":         o.TotalCost,
	})
	// The local submission is committed; forwarding to the request owner is
	// best-effort and surfaces as a warning, never as a failure.
	resp := map[string]any{"offer": o}
	if a.outbound != nil {
		if err := a.outbound.ForwardOfferSubmission(r.Context(), o); err != nil {
			obs.ObserveWebhook("offer_forward", "error")
			resp["warning"] = "offer stored, forwarding to the request owner failed"
		} else {
			obs.ObserveWebhook("offer_forward", "ok")
		}
	}
	writeJSON(w, http.StatusCreated, resp)
}

type editOfferRequest struct {
	SpecialistID           *string `json:"specialist_id"`
	DailyRate              *int64  `json:"daily_rate"`
	TravelCostPerOnsiteDay *int64  `json:"travel_cost_per_onsite_day"`
	Relationship           *string `json:"contractual_relationship"`
	SubcontractorName      *string `json:"subcontractor_name"`
}

func (a *API) handleEditOffer(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionUserID(w, r)
	if !ok {
		return
	}
	var req editOfferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	o, err := a.offers.Edit(r.Context(), userID, chi.URLParam(r, "offerID"), offer.EditInput{
		SpecialistID:           req.SpecialistID,
		DailyRate:              req.DailyRate,
		TravelCostPerOnsiteDay: req.TravelCostPerOnsiteDay,
		Relationship:           req.Relationship,
		SubcontractorName:      req.SubcontractorName,
	})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	a.trail.LogEvent(r.Context(), "offer.edited", map[string]any{"offer_id": o.ID})
	writeJSON(w, http.StatusOK, o)
}

func (a *API) handleWithdrawOffer(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionUserID(w, r)
	if !ok {
		return
	}
	o, err := a.offers.Withdraw(r.Context(), userID, chi.URLParam(r, "offerID"))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	a.trail.LogEvent(r.Context(), "offer.withdrawn", map[string]any{"offer_id": o.ID})
	writeJSON(w, http.StatusOK, o)
}

func (a *API) handleGetOffer(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionUserID(w, r)
	if !ok {
		return
	}
	o, err := a.offers.Get(r.Context(), userID, chi.URLParam(r, "offerID"))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (a *API) handleListOffers(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionUserID(w, r)
	if !ok {
		return
	}
	items, err := a.offers.List(r.Context(), userID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) handleListOffersForRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionUserID(w, r)
	if !ok {
		return
	}
	items, err := a.offers.ListForRequest(r.Context(), userID, chi.URLParam(r, "requestID"))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}
