package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/auth"
)

// sessionProviderID resolves the caller's tenant. Session callers without a
// provider are rejected: contract visibility is tenant-scoped.
func sessionProviderID(w http.ResponseWriter, r *http.Request) (string, bool) {
	providerID, ok := auth.ProviderIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusForbidden, "provider membership unset")
		return "", false
	}
	return providerID, true
}

func (a *API) handleListContracts(w http.ResponseWriter, r *http.Request) {
	providerID, ok := sessionProviderID(w, r)
	if !ok {
		return
	}
	views, err := a.contracts.ListVisible(r.Context(), providerID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": views})
}

func (a *API) handleGetContract(w http.ResponseWriter, r *http.Request) {
	providerID, ok := sessionProviderID(w, r)
	if !ok {
		return
	}
	view, err := a.contracts.Get(r.Context(), chi.URLParam(r, "contractID"), providerID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
