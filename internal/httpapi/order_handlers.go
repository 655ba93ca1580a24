package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/obs"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/order"
)

func sessionActor(w http.ResponseWriter, r *http.Request) (order.Actor, bool) {
	userID, ok := sessionUserID(w, r)
	if !ok {
		return order.Actor{}, false
	}
	return order.Actor{Party: order.PartyProvider, UserID: userID}, true
}

func (a *API) handleListOrders(w http.ResponseWriter, r *http.Request) {
	actor, ok := sessionActor(w, r)
	if !ok {
		return
	}
	items, err := a.orders.List(r.Context(), actor)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := sessionActor(w, r)
	if !ok {
		return
	}
	o, err := a.orders.Get(r.Context(), actor, chi.URLParam(r, "orderID"))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (a *API) handleCompleteOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := sessionActor(w, r)
	if !ok {
		return
	}
	o, err := a.orders.Complete(r.Context(), actor, chi.URLParam(r, "orderID"))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	a.trail.LogEvent(r.Context(), "order.completed", map[string]any{"order_id": o.ID})
	writeJSON(w, http.StatusOK, o)
}

type changeRequestRequest struct {
	Kind              string `json:"kind"`
	Note              string `json:"note"`
	NewEndDate        string `json:"new_end_date"`
	AdditionalManDays int    `json:"additional_man_days"`
	NewSpecialistID   string `json:"new_specialist_id"`
}

func (a *API) createChange(w http.ResponseWriter, r *http.Request, actor order.Actor) {
	var req changeRequestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	newEnd, err := parseDate(req.NewEndDate)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "new_end_date must be RFC3339 or YYYY-MM-DD")
		return
	}

	cr, err := a.orders.CreateChange(r.Context(), actor, chi.URLParam(r, "orderID"), order.ChangeInput{
		Kind:              order.ChangeKind(req.Kind),
		Note:              req.Note,
		NewEndDate:        newEnd,
		AdditionalManDays: req.AdditionalManDays,
		NewSpecialistID:   req.NewSpecialistID,
	})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	a.trail.LogEvent(r.Context(), "order.change_requested", map[string]any{
		"order_id":          cr.OrderID,
		"change_request_id": cr.ID,
		"kind":              string(cr.Kind),
		"initiated_by":      string(cr.InitiatedBy),
	})
	resp := map[string]any{"change_request": cr}
	// Provider-initiated changes are forwarded to the contract authority for
	// the counterparty decision; a delivery failure is a warning only.
	if actor.Party == order.PartyProvider && a.outbound != nil {
		if err := a.outbound.ForwardChangeRequest(r.Context(), cr); err != nil {
			obs.ObserveWebhook("change_forward", "error")
			resp["warning"] = "change request stored, forwarding to the contract authority failed"
		} else {
			obs.ObserveWebhook("change_forward", "ok")
		}
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (a *API) handleCreateChangeRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := sessionActor(w, r)
	if !ok {
		return
	}
	a.createChange(w, r, actor)
}

func (a *API) handleListChangeRequests(w http.ResponseWriter, r *http.Request) {
	actor, ok := sessionActor(w, r)
	if !ok {
		return
	}
	items, err := a.orders.ListChanges(r.Context(), actor, chi.URLParam(r, "orderID"))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

type decisionRequest struct {
	Decision string `json:"decision"`
}

func (d decisionRequest) approve(w http.ResponseWriter, r *http.Request) (bool, bool) {
	switch d.Decision {
	case "APPROVED":
		return true, true
	case "REJECTED":
		return false, true
	default:
		writeError(w, r, http.StatusUnprocessableEntity, "decision must be APPROVED or REJECTED")
		return false, false
	}
}

func (a *API) decideChange(w http.ResponseWriter, r *http.Request, actor order.Actor) {
	var req decisionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	approve, ok := req.approve(w, r)
	if !ok {
		return
	}

	cr, o, err := a.orders.DecideChange(r.Context(), actor, chi.URLParam(r, "changeRequestID"), approve)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	a.trail.LogEvent(r.Context(), "order.change_decided", map[string]any{
		"order_id":          cr.OrderID,
		"change_request_id": cr.ID,
		"status":            string(cr.Status),
		"decided_by":        string(cr.DecidedBy),
	})
	writeJSON(w, http.StatusOK, map[string]any{"change_request": cr, "order": o})
}

func (a *API) handleDecideChangeRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := sessionActor(w, r)
	if !ok {
		return
	}
	a.decideChange(w, r, actor)
}
