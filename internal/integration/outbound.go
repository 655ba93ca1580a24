package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/fault"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/offer"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/order"
)

const defaultOutboundTimeout = 10 * time.Second

// Client forwards local state changes to the external systems. Calls are
// best-effort with a bounded timeout: a failure is reported to the caller
// as fault.ErrExternalIntegration but the local transaction that already
// committed stays committed. Reconciliation happens by retry/sync, not by
// two-phase commit.
type Client struct {
	group2URL string // contract authority
	group3URL string // service-request owner
	apiKey    string
	http      *http.Client
}

// ClientOption configures Client behavior.
type ClientOption func(*Client)

// WithTimeout bounds each outbound call.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient swaps the underlying HTTP client (useful for tests).
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// NewClient constructs the outbound client. Empty base URLs disable the
// respective direction; Forward* calls then succeed as no-ops.
func NewClient(group2URL, group3URL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		group2URL: strings.TrimRight(group2URL, "/"),
		group3URL: strings.TrimRight(group3URL, "/"),
		apiKey:    apiKey,
		http:      &http.Client{Timeout: defaultOutboundTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ForwardOfferSubmission notifies the service-request owner about a new or
// updated bid.
func (c *Client) ForwardOfferSubmission(ctx context.Context, o offer.Offer) error {
	if c.group3URL == "" {
		return nil
	}
	body := map[string]any{
		"serviceOfferId":   o.ID,
		"serviceRequestId": o.ServiceRequestID,
		"providerId":       o.ProviderID,
		"dailyRate":        o.DailyRate,
		"totalCost":        o.TotalCost,
		"status":           o.Status,
	}
	return c.post(ctx, c.group3URL+"/service-offers", body)
}

// ForwardChangeRequest notifies the contract authority about a
// provider-initiated change request awaiting the external decision.
func (c *Client) ForwardChangeRequest(ctx context.Context, cr order.ChangeRequest) error {
	if c.group2URL == "" {
		return nil
	}
	body := map[string]any{
		"orderId":         cr.OrderID,
		"changeRequestId": cr.ID,
		"type":            cr.Kind,
		"initiatedBy":     cr.InitiatedBy,
		"body": map[string]any{
			"newEndDate":        formatTime(cr.NewEndDate),
			"additionalManDays": cr.AdditionalManDays,
			"newSpecialistId":   cr.NewSpecialistID,
			"note":              cr.Note,
		},
	}
	return c.post(ctx, c.group2URL+"/change-requests", body)
}

func (c *Client) post(ctx context.Context, url string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", fault.ErrExternalIntegration, url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s returned %d", fault.ErrExternalIntegration, url, resp.StatusCode)
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
