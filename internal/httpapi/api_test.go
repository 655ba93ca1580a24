package httpapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/auth"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/contract"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/httpapi"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/integration"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/offer"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/order"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/request"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/store/memory"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/tenancy"
)

const (
	testAPIKey   = "integration-test-key"
	testPassword = "str0ng-password"
)

var testNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

type env struct {
	srv   *httptest.Server
	store *memory.Store
}

func newEnv(t *testing.T) *env {
	t.Helper()
	t.Setenv("PMS_AUTH_SECRET", "httpapi-test-secret")
	auth.ResetSecretForTests()
	t.Cleanup(auth.ResetSecretForTests)

	ctx := t.Context()
	st := memory.New()
	clock := func() time.Time { return testNow }

	seed := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	hash, err := auth.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	seed(st.SaveProvider(ctx, tenancy.Provider{ID: "prov-1", Name: "Acme Staffing", Status: tenancy.ProviderActive}))
	seed(st.SaveUser(ctx, tenancy.User{
		ID: "user-admin", ProviderID: "prov-1", Email: "admin@acme.test",
		PasswordHash: hash, Status: "active",
	}))
	seed(st.SaveUser(ctx, tenancy.User{ID: "user-spec", ProviderID: "prov-1", Email: "spec@acme.test", Status: "active"}))
	seed(st.SaveAssignment(ctx, tenancy.RoleAssignment{
		ID: "ra-admin", UserID: "user-admin", Role: tenancy.RoleProviderAdmin,
		Status: tenancy.AssignmentActive, ValidFrom: testNow.AddDate(0, -6, 0),
	}))
	seed(st.SaveAssignment(ctx, tenancy.RoleAssignment{
		ID: "ra-job", UserID: "user-spec", Role: tenancy.RoleJob,
		RoleName: "Backend Developer", Domain: "IT", ExperienceLevel: "Senior", TechnologyLevel: "Go",
		Status: tenancy.AssignmentActive, ValidFrom: testNow.AddDate(0, -6, 0),
	}))
	if _, err := st.SaveContract(ctx, contract.Contract{
		ID:     "ctr-1",
		Title:  "IT Staffing Frame",
		Status: contract.StatusActive,
		Config: contract.AllowedConfiguration{
			AcceptedServiceRequestTypes: []contract.AcceptedRequestType{
				{Type: "SINGLE", IsAccepted: true, BiddingDeadlineDays: 7, OfferCycles: 1},
			},
			PricingRules: contract.PricingRules{
				Currency: "EUR",
				MaxDailyRates: []contract.RateCeiling{
					{Role: "Backend Developer", ExperienceLevel: "Senior", MaxDailyRate: 900},
				},
			},
		},
		CreatedAt: testNow.AddDate(0, -1, 0),
		UpdatedAt: testNow.AddDate(0, -1, 0),
	}); err != nil {
		t.Fatalf("seed contract: %v", err)
	}
	if _, err := st.ApplyProviderStatus(ctx, contract.ProviderAward{
		ContractID: "ctr-1", ProviderID: "prov-1", Status: contract.AwardActive, AwardedAt: testNow,
	}); err != nil {
		t.Fatalf("seed award: %v", err)
	}
	if _, err := st.SaveRequest(ctx, request.ServiceRequest{
		ID: "req-1", ContractID: "ctr-1", Title: "Backend Developer needed",
		Type: request.TypeSingle, Role: "Backend Developer",
		ManDays: 20, OnsiteDays: 5, MustHave: []string{"Go"},
		OfferDeadlineAt: testNow.AddDate(0, 0, 7), OfferCycles: 1,
		Status: request.StatusOpen, CreatedAt: testNow, UpdatedAt: testNow,
	}); err != nil {
		t.Fatalf("seed request: %v", err)
	}

	tenants, err := tenancy.NewService(st, tenancy.WithClock(clock))
	if err != nil {
		t.Fatalf("tenancy: %v", err)
	}
	contracts, err := contract.NewRegistry(st, contract.WithRegistryClock(clock))
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	requests, err := request.NewService(st, st, tenants, request.WithClock(clock))
	if err != nil {
		t.Fatalf("requests: %v", err)
	}
	offers, err := offer.NewService(st, st, st, tenants, offer.WithClock(clock))
	if err != nil {
		t.Fatalf("offers: %v", err)
	}
	orders, err := order.NewService(st, tenants, order.WithClock(clock))
	if err != nil {
		t.Fatalf("orders: %v", err)
	}
	sync, err := integration.NewSync(contracts, requests)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}

	api := httpapi.New(httpapi.Config{
		Sessions:  auth.NewSessions(st),
		Contracts: contracts,
		Requests:  requests,
		Offers:    offers,
		Orders:    orders,
		Sync:      sync,
		APIKey:    testAPIKey,
		Version:   "test",
	})
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	return &env{srv: srv, store: st}
}

// call sends a JSON request and decodes the JSON response into a generic map.
func (e *env) call(t *testing.T, method, path string, headers map[string]string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := e.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response of %s %s: %v", method, path, err)
	}
	return resp.StatusCode, decoded
}

func (e *env) login(t *testing.T) string {
	t.Helper()
	code, body := e.call(t, http.MethodPost, "/v1/auth/token", nil, map[string]string{
		"email": "admin@acme.test", "password": testPassword,
	})
	if code != http.StatusOK {
		t.Fatalf("login status = %d, body %v", code, body)
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatalf("login response carries no token: %v", body)
	}
	return token
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func apiKey() map[string]string {
	return map[string]string{"X-Api-Key": testAPIKey}
}

func TestHealthz(t *testing.T) {
	e := newEnv(t)
	code, body := e.call(t, http.MethodGet, "/healthz", nil, nil)
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body["status"] != "ok" || body["version"] != "test" {
		t.Fatalf("body = %v", body)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	e := newEnv(t)
	code, body := e.call(t, http.MethodPost, "/v1/auth/token", nil, map[string]string{
		"email": "admin@acme.test", "password": "wrong-password",
	})
	if code != http.StatusUnauthorized {
		t.Fatalf("status = %d, body %v", code, body)
	}
}

func TestSessionRoutesRequireBearer(t *testing.T) {
	e := newEnv(t)
	if code, _ := e.call(t, http.MethodGet, "/v1/offers", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("missing token: status = %d", code)
	}
	if code, _ := e.call(t, http.MethodGet, "/v1/offers", bearer("garbage"), nil); code != http.StatusUnauthorized {
		t.Fatalf("garbage token: status = %d", code)
	}
}

func TestIntegrationRoutesRequireAPIKey(t *testing.T) {
	e := newEnv(t)
	body := map[string]any{"items": []map[string]any{}}
	if code, _ := e.call(t, http.MethodPost, "/v1/integration/webhooks/contracts", nil, body); code != http.StatusUnauthorized {
		t.Fatalf("missing key: status = %d", code)
	}
	wrong := map[string]string{"X-Api-Key": "wrong-key"}
	if code, _ := e.call(t, http.MethodPost, "/v1/integration/webhooks/contracts", wrong, body); code != http.StatusUnauthorized {
		t.Fatalf("wrong key: status = %d", code)
	}
}

func TestOfferLifecycleOverHTTP(t *testing.T) {
	e := newEnv(t)
	token := e.login(t)

	code, body := e.call(t, http.MethodPost, "/v1/offers", bearer(token), map[string]any{
		"service_request_id":         "req-1",
		"specialist_id":              "user-spec",
		"daily_rate":                 850,
		"travel_cost_per_onsite_day": 100,
		"contractual_relationship":   "EMPLOYEE",
	})
	if code != http.StatusCreated {
		t.Fatalf("create offer: status = %d, body %v", code, body)
	}
	created, _ := body["offer"].(map[string]any)
	offerID, _ := created["id"].(string)
	if offerID == "" {
		t.Fatalf("create response carries no offer id: %v", body)
	}
	if created["total_cost"] != float64(850*20+100*5) {
		t.Fatalf("total_cost = %v", created["total_cost"])
	}

	// A rate above the matched ceiling fails closed with a validation status.
	code, body = e.call(t, http.MethodPatch, "/v1/offers/"+offerID, bearer(token), map[string]any{
		"daily_rate": 1200,
	})
	if code != http.StatusUnprocessableEntity {
		t.Fatalf("over-ceiling edit: status = %d, body %v", code, body)
	}

	// The request owner accepts over the integration channel.
	code, body = e.call(t, http.MethodPost, "/v1/integration/offers/"+offerID+"/decision", apiKey(), map[string]any{
		"decision": "ACCEPTED",
	})
	if code != http.StatusOK {
		t.Fatalf("decision: status = %d, body %v", code, body)
	}
	ord, _ := body["order"].(map[string]any)
	orderID, _ := ord["id"].(string)
	if orderID == "" {
		t.Fatalf("accept response carries no order: %v", body)
	}

	// Replaying the same verdict is idempotent and returns the same order.
	code, body = e.call(t, http.MethodPost, "/v1/integration/offers/"+offerID+"/decision", apiKey(), map[string]any{
		"decision": "ACCEPTED",
	})
	if code != http.StatusOK {
		t.Fatalf("replay: status = %d, body %v", code, body)
	}
	if replayed, _ := body["order"].(map[string]any); replayed["id"] != orderID {
		t.Fatalf("replay order id = %v, want %s", replayed["id"], orderID)
	}

	// Flipping the verdict afterwards is a conflict.
	code, body = e.call(t, http.MethodPost, "/v1/integration/offers/"+offerID+"/decision", apiKey(), map[string]any{
		"decision": "REJECTED",
	})
	if code != http.StatusConflict {
		t.Fatalf("flip: status = %d, body %v", code, body)
	}

	// The parent request closed on accept; the order shows up for the session.
	code, body = e.call(t, http.MethodGet, "/v1/service-requests/req-1", bearer(token), nil)
	if code != http.StatusOK || body["status"] != "CLOSED" {
		t.Fatalf("request after accept: status = %d, body %v", code, body)
	}
	code, body = e.call(t, http.MethodGet, "/v1/orders/"+orderID, bearer(token), nil)
	if code != http.StatusOK {
		t.Fatalf("get order: status = %d, body %v", code, body)
	}
}

func TestOfferDecisionSubmittedEchoIsNoOp(t *testing.T) {
	e := newEnv(t)
	code, body := e.call(t, http.MethodPost, "/v1/integration/offers/off-unknown/decision", apiKey(), map[string]any{
		"decision": "SUBMITTED",
	})
	if code != http.StatusOK {
		t.Fatalf("status = %d, body %v", code, body)
	}
	if body["status"] != "acknowledged" {
		t.Fatalf("body = %v, want acknowledged", body)
	}
}

func TestOfferDecisionBodyPathMismatch(t *testing.T) {
	e := newEnv(t)
	code, body := e.call(t, http.MethodPost, "/v1/integration/offers/off-1/decision", apiKey(), map[string]any{
		"offer_id": "off-2", "decision": "ACCEPTED",
	})
	if code != http.StatusBadRequest {
		t.Fatalf("status = %d, body %v", code, body)
	}
}

func TestContractWebhookIsIdempotent(t *testing.T) {
	e := newEnv(t)
	payload := map[string]any{"items": []map[string]any{
		{"contractId": "ctr-new", "title": "Second Frame", "status": "PUBLISHED"},
	}}

	code, body := e.call(t, http.MethodPost, "/v1/integration/webhooks/contracts", apiKey(), payload)
	if code != http.StatusOK || body["created"] != float64(1) {
		t.Fatalf("first delivery: status = %d, body %v", code, body)
	}
	code, body = e.call(t, http.MethodPost, "/v1/integration/webhooks/contracts", apiKey(), payload)
	if code != http.StatusOK || body["updated"] != float64(1) || body["created"] != float64(0) {
		t.Fatalf("second delivery: status = %d, body %v", code, body)
	}
}

func TestFaultStatusMapping(t *testing.T) {
	e := newEnv(t)
	token := e.login(t)

	if code, _ := e.call(t, http.MethodGet, "/v1/offers/off-missing", bearer(token), nil); code != http.StatusNotFound {
		t.Fatalf("unknown offer: status = %d", code)
	}
	if code, _ := e.call(t, http.MethodGet, "/v1/nowhere", bearer(token), nil); code != http.StatusNotFound {
		t.Fatalf("unknown route: status = %d", code)
	}

	// Unknown body fields are rejected, not silently dropped.
	code, body := e.call(t, http.MethodPost, "/v1/offers", bearer(token), map[string]any{
		"service_request_id": "req-1", "surprise": true,
	})
	if code != http.StatusBadRequest {
		t.Fatalf("unknown field: status = %d, body %v", code, body)
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	e := newEnv(t)
	req, err := http.NewRequest(http.MethodGet, e.srv.URL+"/healthz", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("X-Request-Id", "rid-12345")
	resp, err := e.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("X-Request-Id"); got != "rid-12345" {
		t.Fatalf("X-Request-Id = %q, want echo", got)
	}

	resp2, err := e.srv.Client().Get(e.srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp2.Body.Close()
	if resp2.Header.Get("X-Request-Id") == "" {
		t.Fatal("no generated request id on response")
	}
}
