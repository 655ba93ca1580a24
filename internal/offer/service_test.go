package offer_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/contract"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/fault"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/offer"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/order"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/request"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/store/memory"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/tenancy"
)

var testNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store  *memory.Store
	offers *offer.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st := memory.New()
	clock := func() time.Time { return testNow }

	seed := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	seed(st.SaveProvider(ctx, tenancy.Provider{ID: "prov-1", Name: "Acme Staffing", Status: tenancy.ProviderActive}))
	seed(st.SaveProvider(ctx, tenancy.Provider{ID: "prov-2", Name: "Globex", Status: tenancy.ProviderActive}))

	users := []tenancy.User{
		{ID: "user-admin", ProviderID: "prov-1", Email: "admin@acme.test", Status: "active"},
		{ID: "user-rep", ProviderID: "prov-1", Email: "rep@acme.test", Status: "active"},
		{ID: "user-spec", ProviderID: "prov-1", Email: "spec@acme.test", Status: "active"},
		{ID: "user-outside", ProviderID: "prov-2", Email: "out@globex.test", Status: "active"},
	}
	for _, u := range users {
		seed(st.SaveUser(ctx, u))
	}

	assignments := []tenancy.RoleAssignment{
		{ID: "ra-1", UserID: "user-admin", Role: tenancy.RoleProviderAdmin, Status: tenancy.AssignmentActive, ValidFrom: testNow.AddDate(-1, 0, 0)},
		{ID: "ra-2", UserID: "user-rep", Role: tenancy.RoleSupplierRepresentative, Status: tenancy.AssignmentActive, ValidFrom: testNow.AddDate(-1, 0, 0)},
		{ID: "ra-3", UserID: "user-spec", Role: tenancy.RoleSpecialist, Status: tenancy.AssignmentActive, ValidFrom: testNow.AddDate(-1, 0, 0)},
		{
			ID: "ra-4", UserID: "user-spec", Role: tenancy.RoleJob,
			RoleName: "Backend Developer", Domain: "IT", ExperienceLevel: "Senior", TechnologyLevel: "Go",
			Status: tenancy.AssignmentActive, ValidFrom: testNow.AddDate(-1, 0, 0),
		},
	}
	for _, a := range assignments {
		seed(st.SaveAssignment(ctx, a))
	}

	_, err := st.SaveContract(ctx, contract.Contract{
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
					{Role: "Backend Developer", ExperienceLevel: "Senior", TechnologyLevel: "", MaxDailyRate: 900},
				},
			},
		},
		CreatedAt: testNow.AddDate(0, -1, 0),
		UpdatedAt: testNow.AddDate(0, -1, 0),
	})
	seed(err)
	_, err = st.ApplyProviderStatus(ctx, contract.ProviderAward{
		ContractID: "ctr-1", ProviderID: "prov-1", Status: contract.AwardActive, AwardedAt: testNow.AddDate(0, -1, 0),
	})
	seed(err)

	_, err = st.SaveRequest(ctx, request.ServiceRequest{
		ID:              "req-1",
		ContractID:      "ctr-1",
		Title:           "Senior Go engineer",
		Type:            request.TypeSingle,
		Role:            "Backend Developer",
		Domain:          "IT",
		ExperienceLevel: "Senior",
		StartDate:       testNow.AddDate(0, 1, 0),
		EndDate:         testNow.AddDate(0, 4, 0),
		ManDays:         20,
		OnsiteDays:      5,
		MustHave:        []string{"Go"},
		NiceToHave:      []string{"Kubernetes"},
		OfferDeadlineAt: testNow.AddDate(0, 0, 7),
		OfferCycles:     1,
		Status:          request.StatusOpen,
		CreatedAt:       testNow.AddDate(0, 0, -3),
		UpdatedAt:       testNow.AddDate(0, 0, -3),
	})
	seed(err)

	tenants, err := tenancy.NewService(st, tenancy.WithClock(clock))
	seed(err)
	offers, err := offer.NewService(st, st, st, tenants, offer.WithClock(clock))
	seed(err)

	return &fixture{store: st, offers: offers}
}

func validInput() offer.CreateInput {
	return offer.CreateInput{
		ServiceRequestID:       "req-1",
		SpecialistID:           "user-spec",
		DailyRate:              850,
		TravelCostPerOnsiteDay: 100,
		Relationship:           "EMPLOYEE",
	}
}

func TestCreateWithinRateCeiling(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	o, err := f.offers.Create(ctx, "user-rep", validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if o.Status != offer.StatusSubmitted {
		t.Fatalf("status = %s, want SUBMITTED", o.Status)
	}
	// 850*20 man-days + 100*5 onsite days
	if want := int64(17500); o.TotalCost != want {
		t.Fatalf("total cost = %d, want %d", o.TotalCost, want)
	}
	if o.MustHaveMatchPercent != 100 {
		t.Fatalf("must-have match = %d, want 100", o.MustHaveMatchPercent)
	}
	if o.NiceToHaveMatchPercent != 0 {
		t.Fatalf("nice-to-have match = %d, want 0", o.NiceToHaveMatchPercent)
	}
}

func TestCreateRejectsRateAboveCeiling(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := validInput()
	in.DailyRate = 950
	_, err := f.offers.Create(ctx, "user-rep", in)
	if !errors.Is(err, fault.ErrValidation) {
		t.Fatalf("err = %v, want validation failure", err)
	}
	if !strings.Contains(err.Error(), "daily rate 950 exceeds max 900") {
		t.Fatalf("err = %v, want rate ceiling message", err)
	}
}

func TestCreateForeignActorReadsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// prov-2 has no award on ctr-1 and no specialist; tenant boundary fires
	// before anything else about the offer leaks.
	_, err := f.offers.Create(ctx, "user-outside", validInput())
	if err == nil {
		t.Fatal("expected error for foreign actor")
	}
	if !errors.Is(err, fault.ErrRoleDenied) && !errors.Is(err, fault.ErrTenantBoundary) {
		t.Fatalf("err = %v, want role or boundary failure", err)
	}
}

func TestCreateSubcontractorNeedsName(t *testing.T) {
	f := newFixture(t)
	in := validInput()
	in.Relationship = "SUBCONTRACTOR"
	_, err := f.offers.Create(context.Background(), "user-rep", in)
	if !errors.Is(err, fault.ErrValidation) {
		t.Fatalf("err = %v, want validation failure", err)
	}
}

func TestCreateAfterDeadlineFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sr, err := f.store.GetRequest(ctx, "req-1")
	if err != nil {
		t.Fatalf("get request: %v", err)
	}
	sr.OfferDeadlineAt = testNow.AddDate(0, 0, -1)
	if _, err := f.store.SaveRequest(ctx, sr); err != nil {
		t.Fatalf("save request: %v", err)
	}

	_, err = f.offers.Create(ctx, "user-rep", validInput())
	if !errors.Is(err, fault.ErrValidation) || !strings.Contains(err.Error(), "deadline") {
		t.Fatalf("err = %v, want deadline failure", err)
	}
}

func TestEditRecomputesCostAndRevalidatesRate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	o, err := f.offers.Create(ctx, "user-rep", validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	tooHigh := int64(1200)
	if _, err := f.offers.Edit(ctx, "user-rep", o.ID, offer.EditInput{DailyRate: &tooHigh}); !errors.Is(err, fault.ErrValidation) {
		t.Fatalf("err = %v, want validation failure for rate above ceiling", err)
	}

	lower := int64(800)
	edited, err := f.offers.Edit(ctx, "user-rep", o.ID, offer.EditInput{DailyRate: &lower})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if want := int64(16500); edited.TotalCost != want {
		t.Fatalf("total cost = %d, want %d", edited.TotalCost, want)
	}
}

func TestWithdrawIsTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	o, err := f.offers.Create(ctx, "user-rep", validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.offers.Withdraw(ctx, "user-rep", o.ID); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	rate := int64(820)
	if _, err := f.offers.Edit(ctx, "user-rep", o.ID, offer.EditInput{DailyRate: &rate}); !errors.Is(err, fault.ErrValidation) {
		t.Fatalf("err = %v, want validation failure on terminal offer", err)
	}
}

func TestAcceptCreatesOneOrderAndClosesRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	o, err := f.offers.Create(ctx, "user-rep", validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	decided, created, err := f.offers.Decide(ctx, o.ID, offer.DecisionAccept)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if decided.Status != offer.StatusAccepted {
		t.Fatalf("status = %s, want ACCEPTED", decided.Status)
	}
	if created.OfferID != o.ID || created.Status != order.StatusActive {
		t.Fatalf("unexpected order: %+v", created)
	}

	sr, err := f.store.GetRequest(ctx, "req-1")
	if err != nil {
		t.Fatalf("get request: %v", err)
	}
	if sr.Status != request.StatusClosed {
		t.Fatalf("request status = %s, want CLOSED", sr.Status)
	}

	// Replaying the accept returns the same order instead of spawning a
	// second one.
	_, again, err := f.offers.Decide(ctx, o.ID, offer.DecisionAccept)
	if err != nil {
		t.Fatalf("replay decide: %v", err)
	}
	if again.ID != created.ID {
		t.Fatalf("replay created order %s, want %s", again.ID, created.ID)
	}

	if _, _, err := f.offers.Decide(ctx, o.ID, offer.DecisionReject); !errors.Is(err, fault.ErrConflict) {
		t.Fatalf("err = %v, want conflict for flipped decision", err)
	}
}

func TestConcurrentAcceptsSpawnOneOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	o, err := f.offers.Create(ctx, "user-rep", validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	const n = 16
	var wg sync.WaitGroup
	orderIDs := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, created, err := f.offers.Decide(ctx, o.ID, offer.DecisionAccept)
			orderIDs[i], errs[i] = created.ID, err
		}(i)
	}
	wg.Wait()

	var winner string
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("decide %d: %v", i, errs[i])
		}
		if winner == "" {
			winner = orderIDs[i]
		}
		if orderIDs[i] != winner {
			t.Fatalf("decide %d produced order %s, want %s", i, orderIDs[i], winner)
		}
	}

	all, err := f.store.ListOrders(ctx, "prov-1")
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("orders = %d, want exactly 1", len(all))
	}
}

func TestRejectCreatesNoOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	o, err := f.offers.Create(ctx, "user-rep", validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	decided, created, err := f.offers.Decide(ctx, o.ID, offer.DecisionReject)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if decided.Status != offer.StatusRejected || created.ID != "" {
		t.Fatalf("unexpected result: offer %s, order %+v", decided.Status, created)
	}

	sr, err := f.store.GetRequest(ctx, "req-1")
	if err != nil {
		t.Fatalf("get request: %v", err)
	}
	if sr.Status != request.StatusOpen {
		t.Fatalf("request status = %s, want OPEN after reject", sr.Status)
	}
}
