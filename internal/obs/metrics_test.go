package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                                     "/",
		"/metrics":                             "/metrics",
		"/v1/contracts/c-100":                  "/v1/contracts/:id",
		"/v1/offers/01ABC/decision":            "/v1/offers/:id/decision",
		"/v1/orders/01ABC/change-requests":     "/v1/orders/:id/change-requests",
		"/v1/change-requests/01ABC/decision":   "/v1/change-requests/:id/decision",
		"/v1/integration/webhooks/contracts":   "/v1/integration/webhooks/contracts",
		"/v1/integration/orders/complete-due":  "/v1/integration/orders/complete-due",
		"/v1/service-requests/sr-7?limit=10":   "/v1/service-requests/:id",
		"/v1/integration/offers/of-1/decision": "/v1/integration/offers/:id/decision",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
