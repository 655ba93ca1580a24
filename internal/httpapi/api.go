// Package httpapi is the HTTP surface: the session API for provider users,
// the API-key integration channel for the external contract and request
// systems, and the operational endpoints.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/audit"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/auth"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/contract"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/integration"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/obs"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/offer"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/order"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/request"
)

// ReadyProbe checks backing-store readiness, typically a DB ping.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Config carries everything the HTTP layer needs.
type Config struct {
	Sessions  *auth.Sessions
	Contracts *contract.Registry
	Requests  *request.Service
	Offers    *offer.Service
	Orders    *order.Service
	Sync      *integration.Sync
	Outbound  *integration.Client
	Trail     *audit.Trail
	Ready     ReadyProbe
	APIKey    string
	Version   string
}

// API is the HTTP layer.
type API struct {
	router    chi.Router
	sessions  *auth.Sessions
	contracts *contract.Registry
	requests  *request.Service
	offers    *offer.Service
	orders    *order.Service
	sync      *integration.Sync
	outbound  *integration.Client
	trail     *audit.Trail
	ready     ReadyProbe
	apiKey    string
	version   string
}

// New wires the router. Session routes require a Bearer token; integration
// routes require the static API key; operational endpoints are public.
func New(cfg Config) *API {
	a := &API{
		router:    chi.NewRouter(),
		sessions:  cfg.Sessions,
		contracts: cfg.Contracts,
		requests:  cfg.Requests,
		offers:    cfg.Offers,
		orders:    cfg.Orders,
		sync:      cfg.Sync,
		outbound:  cfg.Outbound,
		trail:     cfg.Trail,
		ready:     cfg.Ready,
		apiKey:    cfg.APIKey,
		version:   cfg.Version,
	}
	if a.trail == nil {
		a.trail = audit.NewTrail()
	}

	r := a.router

	r.Get("/healthz", a.handleHealthz)
	r.Get("/readyz", a.handleReadyz)
	r.Method(http.MethodGet, "/metrics", obs.Handler())

	r.Post("/v1/auth/token", a.handleAuthToken)

	r.Group(func(r chi.Router) {
		r.Use(a.withSession)

		r.Get("/v1/contracts", a.handleListContracts)
		r.Get("/v1/contracts/{contractID}", a.handleGetContract)

		r.Post("/v1/service-requests", a.handleCreateServiceRequest)
		r.Get("/v1/service-requests", a.handleListServiceRequests)
		r.Get("/v1/service-requests/{requestID}", a.handleGetServiceRequest)
		r.Post("/v1/service-requests/{requestID}/close", a.handleCloseServiceRequest)
		r.Get("/v1/service-requests/{requestID}/offers", a.handleListOffersForRequest)

		r.Post("/v1/offers", a.handleCreateOffer)
		r.Get("/v1/offers", a.handleListOffers)
		r.Get("/v1/offers/{offerID}", a.handleGetOffer)
		r.Patch("/v1/offers/{offerID}", a.handleEditOffer)
		r.Post("/v1/offers/{offerID}/withdraw", a.handleWithdrawOffer)

		r.Get("/v1/orders", a.handleListOrders)
		r.Get("/v1/orders/{orderID}", a.handleGetOrder)
		r.Post("/v1/orders/{orderID}/complete", a.handleCompleteOrder)
		r.Post("/v1/orders/{orderID}/change-requests", a.handleCreateChangeRequest)
		r.Get("/v1/orders/{orderID}/change-requests", a.handleListChangeRequests)
		r.Post("/v1/change-requests/{changeRequestID}/decision", a.handleDecideChangeRequest)
	})

	r.Route("/v1/integration", func(r chi.Router) {
		r.Use(a.withAPIKey)

		r.Post("/webhooks/contracts", a.handleSyncContracts)
		r.Post("/webhooks/service-requests", a.handleSyncServiceRequests)
		r.Post("/contracts/{contractID}/provider-status", a.handleProviderStatus)
		r.Post("/offers/{offerID}/decision", a.handleDecideOffer)

		r.Get("/orders", a.handleIntegrationListOrders)
		r.Post("/orders/complete-due", a.handleCompleteDueOrders)
		r.Post("/orders/{orderID}/change-requests", a.handleIntegrationCreateChange)
		r.Post("/change-requests/{changeRequestID}/decision", a.handleIntegrationDecideChange)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "resource not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		methodNotAllowed(w, r)
	})

	return a
}

// Handler returns the fully wrapped handler chain.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.router
	h = obs.Instrument(h)
	h = Logging(h)
	h = RateLimit(h, 50, 25)
	h = MaxBodyBytes(h, 1<<20)
	h = SecurityHeaders(h)
	h = RequestID(h)
	return h
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "provider-management-api",
		"version": a.version,
	})
}

func (a *API) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.ready.Check(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}
