package integration_test

import (
	"context"
	"testing"
	"time"

	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/contract"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/integration"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/request"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/store/memory"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/tenancy"
)

var testNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	sync  *integration.Sync
	store *memory.Store
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	st := memory.New()
	clock := func() time.Time { return testNow }

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
	sync, err := integration.NewSync(contracts, requests)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	return fixture{sync: sync, store: st}
}

func contractPayload(id string) contract.Payload {
	return contract.Payload{
		ContractID:     id,
		Title:          "IT Staffing Frame",
		Status:         "ACTIVE",
		PublishingDate: "2026-07-01",
		AllowedConfig: contract.AllowedConfiguration{
			AcceptedServiceRequestTypes: []contract.AcceptedRequestType{
				{Type: "SINGLE", IsAccepted: true, BiddingDeadlineDays: 7, OfferCycles: 1},
			},
		},
	}
}

func requestPayload(id, contractID string) integration.ServiceRequestPayload {
	return integration.ServiceRequestPayload{
		ID:         id,
		ContractID: contractID,
		Title:      "Backend Developer",
		Type:       "SINGLE",
		Role:       "Backend Developer",
		ManDays:    20,
		OnsiteDays: 5,
	}
}

func TestContractsBatchCountsPerItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rep := f.sync.Contracts(ctx, []contract.Payload{
		contractPayload("ctr-1"),
		{ContractID: "ctr-bad", Title: "Broken", Status: "SHREDDED"},
		contractPayload("ctr-2"),
	})
	if rep.Created != 2 || rep.Updated != 0 || rep.Skipped != 1 {
		t.Fatalf("report = %+v, want 2 created, 1 skipped", rep)
	}
	if len(rep.Errors) != 1 {
		t.Fatalf("errors = %v, want one entry", rep.Errors)
	}

	// Re-delivery of the same batch flips created into updated; the bad
	// item is skipped again instead of poisoning the rest.
	rep = f.sync.Contracts(ctx, []contract.Payload{
		contractPayload("ctr-1"),
		{ContractID: "ctr-bad", Title: "Broken", Status: "SHREDDED"},
		contractPayload("ctr-2"),
	})
	if rep.Created != 0 || rep.Updated != 2 || rep.Skipped != 1 {
		t.Fatalf("replay report = %+v, want 2 updated, 1 skipped", rep)
	}
}

func TestServiceRequestsSkipUnknownContract(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if rep := f.sync.Contracts(ctx, []contract.Payload{contractPayload("ctr-1")}); rep.Created != 1 {
		t.Fatalf("contract seed report = %+v", rep)
	}

	rep := f.sync.ServiceRequests(ctx, []integration.ServiceRequestPayload{
		requestPayload("req-1", "ctr-1"),
		requestPayload("req-orphan", "ctr-unknown"),
	})
	if rep.Created != 1 || rep.Skipped != 1 {
		t.Fatalf("report = %+v, want 1 created, 1 skipped", rep)
	}

	if _, err := f.store.GetRequest(ctx, "req-orphan"); err == nil {
		t.Fatal("orphaned request was stored")
	}
	sr, err := f.store.GetRequest(ctx, "req-1")
	if err != nil {
		t.Fatalf("get request: %v", err)
	}
	if sr.Status != request.StatusOpen {
		t.Fatalf("status = %s, want OPEN", sr.Status)
	}
}

func TestClosedRequestNeverReopensFromSync(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.sync.Contracts(ctx, []contract.Payload{contractPayload("ctr-1")})
	if rep := f.sync.ServiceRequests(ctx, []integration.ServiceRequestPayload{requestPayload("req-1", "ctr-1")}); rep.Created != 1 {
		t.Fatalf("seed report = %+v", rep)
	}
	if err := f.store.CloseRequest(ctx, "req-1", "offer accepted"); err != nil {
		t.Fatalf("close: %v", err)
	}

	// A stale snapshot still says OPEN. The sync updates the row but the
	// closed status and its reason win.
	stale := requestPayload("req-1", "ctr-1")
	stale.Status = "OPEN"
	stale.ManDays = 25
	rep := f.sync.ServiceRequests(ctx, []integration.ServiceRequestPayload{stale})
	if rep.Updated != 1 {
		t.Fatalf("report = %+v, want 1 updated", rep)
	}

	sr, err := f.store.GetRequest(ctx, "req-1")
	if err != nil {
		t.Fatalf("get request: %v", err)
	}
	if sr.Status != request.StatusClosed {
		t.Fatalf("status = %s, want CLOSED", sr.Status)
	}
	if sr.ClosedReason != "offer accepted" {
		t.Fatalf("closed reason = %q, want original reason kept", sr.ClosedReason)
	}
	if sr.ManDays != 25 {
		t.Fatalf("man days = %d, want snapshot fields still applied", sr.ManDays)
	}
}

func TestServiceRequestPayloadValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.sync.Contracts(ctx, []contract.Payload{contractPayload("ctr-1")})

	cases := []struct {
		name   string
		mutate func(*integration.ServiceRequestPayload)
	}{
		{"missing id", func(p *integration.ServiceRequestPayload) { p.ID = "" }},
		{"missing contract", func(p *integration.ServiceRequestPayload) { p.ContractID = " " }},
		{"unknown type", func(p *integration.ServiceRequestPayload) { p.Type = "SQUAD" }},
		{"unknown status", func(p *integration.ServiceRequestPayload) { p.Status = "PAUSED" }},
		{"bad timestamp", func(p *integration.ServiceRequestPayload) { p.StartDate = "yesterday" }},
		{"too many must-have", func(p *integration.ServiceRequestPayload) {
			p.MustHave = []string{"Go", "SQL", "Docker", "K8s"}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := requestPayload("req-x", "ctr-1")
			tc.mutate(&p)
			rep := f.sync.ServiceRequests(ctx, []integration.ServiceRequestPayload{p})
			if rep.Skipped != 1 || rep.Created != 0 {
				t.Fatalf("report = %+v, want skip", rep)
			}
		})
	}
}
