package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/contract"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/integration"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/obs"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/offer"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/order"
)

type contractSyncRequest struct {
	Items []contract.Payload `json:"items"`
}

// handleSyncContracts ingests a batch of contract snapshots from the
// external contract authority. Re-delivery of the same batch is harmless:
// every item is an upsert.
func (a *API) handleSyncContracts(w http.ResponseWriter, r *http.Request) {
	var req contractSyncRequest
	if err := decodeJSON(w, r, &req); err != nil {
		obs.ObserveWebhook("contracts_sync", "bad_request")
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Items) == 0 {
		obs.ObserveWebhook("contracts_sync", "bad_request")
		writeError(w, r, http.StatusBadRequest, "items are required")
		return
	}

	report := a.sync.Contracts(r.Context(), req.Items)
	obs.ObserveWebhook("contracts_sync", "ok")
	a.trail.LogEvent(r.Context(), "integration.contracts_synced", map[string]any{
		"created": report.Created,
		"updated": report.Updated,
		"skipped": report.Skipped,
	})
	writeJSON(w, http.StatusOK, report)
}

type serviceRequestSyncRequest struct {
	Items []integration.ServiceRequestPayload `json:"items"`
}

func (a *API) handleSyncServiceRequests(w http.ResponseWriter, r *http.Request) {
	var req serviceRequestSyncRequest
	if err := decodeJSON(w, r, &req); err != nil {
		obs.ObserveWebhook("service_requests_sync", "bad_request")
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Items) == 0 {
		obs.ObserveWebhook("service_requests_sync", "bad_request")
		writeError(w, r, http.StatusBadRequest, "items are required")
		return
	}

	report := a.sync.ServiceRequests(r.Context(), req.Items)
	obs.ObserveWebhook("service_requests_sync", "ok")
	a.trail.LogEvent(r.Context(), "integration.service_requests_synced", map[string]any{
		"created": report.Created,
		"updated": report.Updated,
		"skipped": report.Skipped,
	})
	writeJSON(w, http.StatusOK, report)
}

type providerStatusRequest struct {
	ProviderID string `json:"provider_id"`
	Status     string `json:"status"`
	Note       string `json:"note"`
}

// handleProviderStatus records an award transition for one provider on one
// contract, ratcheting the contract status where the transition calls for
// it.
func (a *API) handleProviderStatus(w http.ResponseWriter, r *http.Request) {
	var req providerStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		obs.ObserveWebhook("provider_status", "bad_request")
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.ProviderID) == "" {
		obs.ObserveWebhook("provider_status", "bad_request")
		writeError(w, r, http.StatusBadRequest, "provider_id is required")
		return
	}

	contractID := chi.URLParam(r, "contractID")
	award, err := a.contracts.SetProviderStatus(r.Context(), contractID, req.ProviderID,
		contract.AwardStatus(strings.ToUpper(strings.TrimSpace(req.Status))), req.Note)
	if err != nil {
		obs.ObserveWebhook("provider_status", "error")
		handleDomainError(w, r, err)
		return
	}

	obs.ObserveWebhook("provider_status", "ok")
	a.trail.LogEvent(r.Context(), "integration.provider_status", map[string]any{
		"contract_id": award.ContractID,
		"provider_id": award.ProviderID,
		"status":      string(award.Status),
	})
	writeJSON(w, http.StatusOK, award)
}

type offerDecisionRequest struct {
	OfferID  string `json:"offer_id,omitempty"`
	Decision string `json:"decision"`
}

// handleDecideOffer applies the request owner's verdict on an offer.
// Replaying the same verdict is idempotent; a SUBMITTED echo is
// acknowledged without touching anything.
func (a *API) handleDecideOffer(w http.ResponseWriter, r *http.Request) {
	var req offerDecisionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		obs.ObserveWebhook("offer_decision", "bad_request")
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	offerID := chi.URLParam(r, "offerID")
	if req.OfferID != "" && req.OfferID != offerID {
		obs.ObserveWebhook("offer_decision", "bad_request")
		writeError(w, r, http.StatusBadRequest, "offer_id in body does not match the path")
		return
	}

	decision := strings.ToUpper(strings.TrimSpace(req.Decision))
	if decision == string(offer.StatusSubmitted) {
		// Status echo from the request owner, nothing to apply.
		obs.ObserveWebhook("offer_decision", "noop")
		writeJSON(w, http.StatusOK, map[string]any{"status": "acknowledged"})
		return
	}

	o, created, err := a.offers.Decide(r.Context(), offerID, offer.Decision(decision))
	if err != nil {
		obs.ObserveWebhook("offer_decision", "error")
		handleDomainError(w, r, err)
		return
	}

	obs.ObserveWebhook("offer_decision", "ok")
	fields := map[string]any{
		"offer_id": o.ID,
		"decision": decision,
	}
	resp := map[string]any{"offer": o}
	if o.Status == offer.StatusAccepted {
		fields["order_id"] = created.ID
		resp["order"] = created
	}
	a.trail.LogEvent(r.Context(), "offer.decided", fields)
	writeJSON(w, http.StatusOK, resp)
}

func externalActor() order.Actor {
	return order.Actor{Party: order.PartyExternal}
}

func (a *API) handleIntegrationListOrders(w http.ResponseWriter, r *http.Request) {
	items, err := a.orders.List(r.Context(), externalActor())
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// handleCompleteDueOrders sweeps every active order whose end date has
// passed. Completion is otherwise lazy; this is the explicit trigger.
func (a *API) handleCompleteDueOrders(w http.ResponseWriter, r *http.Request) {
	n, err := a.orders.CompleteDue(r.Context())
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	a.trail.LogEvent(r.Context(), "order.completed_due", map[string]any{"completed": n})
	writeJSON(w, http.StatusOK, map[string]any{"completed": n})
}

func (a *API) handleIntegrationCreateChange(w http.ResponseWriter, r *http.Request) {
	a.createChange(w, r, externalActor())
}

func (a *API) handleIntegrationDecideChange(w http.ResponseWriter, r *http.Request) {
	a.decideChange(w, r, externalActor())
}
