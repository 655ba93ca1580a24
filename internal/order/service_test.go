package order_test

import (
	"context"
	"errors"
	"testing"
	"time"

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
	orders *order.Service
}

var (
	providerActor = order.Actor{Party: order.PartyProvider, UserID: "user-admin"}
	externalSide  = order.Actor{Party: order.PartyExternal}
)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st := memory.New()

	seed := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	seed(st.SaveProvider(ctx, tenancy.Provider{ID: "prov-1", Name: "Acme Staffing", Status: tenancy.ProviderActive}))
	seed(st.SaveUser(ctx, tenancy.User{ID: "user-admin", ProviderID: "prov-1", Email: "admin@acme.test", Status: "active"}))
	seed(st.SaveUser(ctx, tenancy.User{ID: "user-spec", ProviderID: "prov-1", Email: "spec@acme.test", Status: "active"}))
	seed(st.SaveUser(ctx, tenancy.User{ID: "user-spec2", ProviderID: "prov-1", Email: "spec2@acme.test", Status: "active"}))
	seed(st.SaveUser(ctx, tenancy.User{ID: "user-foreign", ProviderID: "prov-2", Email: "f@other.test", Status: "active"}))
	seed(st.SaveAssignment(ctx, tenancy.RoleAssignment{
		ID: "ra-admin", UserID: "user-admin", Role: tenancy.RoleProviderAdmin,
		Status: tenancy.AssignmentActive, ValidFrom: testNow.AddDate(-1, 0, 0),
	}))
	seed(st.SaveAssignment(ctx, tenancy.RoleAssignment{
		ID: "ra-spec2", UserID: "user-spec2", Role: tenancy.RoleSpecialist,
		Status: tenancy.AssignmentActive, ValidFrom: testNow.AddDate(-1, 0, 0),
	}))

	tenants, err := tenancy.NewService(st, tenancy.WithClock(func() time.Time { return testNow }))
	seed(err)
	orders, err := order.NewService(st, tenants, order.WithClock(func() time.Time { return testNow }))
	seed(err)

	f := &fixture{store: st, orders: orders}
	f.seedOrder(t, "ord-1", order.StatusActive, testNow.AddDate(0, 3, 0))
	return f
}

// seedOrder walks the real accept path: request, submitted offer, decide.
func (f *fixture) seedOrder(t *testing.T, id string, status order.Status, endDate time.Time) {
	t.Helper()
	ctx := context.Background()

	if _, err := f.store.SaveRequest(ctx, request.ServiceRequest{
		ID: "req-" + id, ContractID: "ctr-1", Title: "Senior Go engineer",
		Type: request.TypeSingle, Role: "Backend Developer",
		StartDate: testNow.AddDate(0, 1, 0), EndDate: endDate,
		ManDays: 20, OnsiteDays: 5, Status: request.StatusOpen,
		CreatedAt: testNow, UpdatedAt: testNow,
	}); err != nil {
		t.Fatalf("seed request: %v", err)
	}
	if err := f.store.CreateOffer(ctx, offer.Offer{
		ID: "off-" + id, ServiceRequestID: "req-" + id, ContractID: "ctr-1",
		ProviderID: "prov-1", SubmitterID: "user-admin", SpecialistID: "user-spec",
		DailyRate: 850, TravelCostPerOnsiteDay: 100, TotalCost: 17500,
		Relationship: offer.RelEmployee, Status: offer.StatusSubmitted,
		CreatedAt: testNow, UpdatedAt: testNow,
	}); err != nil {
		t.Fatalf("seed offer: %v", err)
	}
	candidate := order.Order{
		ID: id, OfferID: "off-" + id, ServiceRequestID: "req-" + id,
		ContractID: "ctr-1", ProviderID: "prov-1", SpecialistID: "user-spec",
		Title: "Senior Go engineer", StartDate: testNow.AddDate(0, 1, 0), EndDate: endDate,
		ManDays: 20, TotalCost: 17500, Status: status,
		CreatedAt: testNow, UpdatedAt: testNow,
	}
	if _, _, err := f.store.DecideOffer(ctx, "off-"+id, offer.DecisionAccept, candidate); err != nil {
		t.Fatalf("seed order: %v", err)
	}
}

func TestExtensionApprovalMutatesOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	newEnd := testNow.AddDate(0, 6, 0)
	cr, err := f.orders.CreateChange(ctx, providerActor, "ord-1", order.ChangeInput{
		Kind:              order.ChangeExtension,
		NewEndDate:        newEnd,
		AdditionalManDays: 10,
	})
	if err != nil {
		t.Fatalf("create change: %v", err)
	}
	if cr.InitiatedBy != order.PartyProvider || cr.Status != order.ChangeRequested {
		t.Fatalf("unexpected change request: %+v", cr)
	}

	decided, o, err := f.orders.DecideChange(ctx, externalSide, cr.ID, true)
	if err != nil {
		t.Fatalf("decide change: %v", err)
	}
	if decided.Status != order.ChangeApproved || decided.DecidedBy != order.PartyExternal {
		t.Fatalf("unexpected decision: %+v", decided)
	}
	if !o.EndDate.Equal(newEnd) {
		t.Fatalf("end date = %s, want %s", o.EndDate, newEnd)
	}
	if o.ManDays != 30 {
		t.Fatalf("man days = %d, want 30", o.ManDays)
	}
	if len(o.ChangeHistory) != 1 || o.ChangeHistory[0].ChangeRequestID != cr.ID {
		t.Fatalf("change history = %+v, want one entry for %s", o.ChangeHistory, cr.ID)
	}
}

func TestInitiatorCannotDecideOwnChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cr, err := f.orders.CreateChange(ctx, providerActor, "ord-1", order.ChangeInput{
		Kind:              order.ChangeExtension,
		NewEndDate:        testNow.AddDate(0, 6, 0),
		AdditionalManDays: 5,
	})
	if err != nil {
		t.Fatalf("create change: %v", err)
	}

	_, _, err = f.orders.DecideChange(ctx, providerActor, cr.ID, true)
	if !errors.Is(err, fault.ErrRoleDenied) {
		t.Fatalf("err = %v, want role denied for same-side decision", err)
	}
}

func TestRejectionLeavesOrderUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	before, err := f.orders.Get(ctx, providerActor, "ord-1")
	if err != nil {
		t.Fatalf("get order: %v", err)
	}

	cr, err := f.orders.CreateChange(ctx, externalSide, "ord-1", order.ChangeInput{
		Kind:              order.ChangeExtension,
		NewEndDate:        testNow.AddDate(0, 9, 0),
		AdditionalManDays: 15,
	})
	if err != nil {
		t.Fatalf("create change: %v", err)
	}

	decided, after, err := f.orders.DecideChange(ctx, providerActor, cr.ID, false)
	if err != nil {
		t.Fatalf("decide change: %v", err)
	}
	if decided.Status != order.ChangeRejected {
		t.Fatalf("status = %s, want REJECTED", decided.Status)
	}
	if !after.EndDate.Equal(before.EndDate) || after.ManDays != before.ManDays {
		t.Fatalf("order mutated on rejection: %+v", after)
	}

	// Same-verdict replay is idempotent; the opposite verdict conflicts.
	if _, _, err := f.orders.DecideChange(ctx, providerActor, cr.ID, false); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if _, _, err := f.orders.DecideChange(ctx, providerActor, cr.ID, true); !errors.Is(err, fault.ErrConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestSubstitutionKeepsPreviousSpecialistInHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cr, err := f.orders.CreateChange(ctx, providerActor, "ord-1", order.ChangeInput{
		Kind:            order.ChangeSubstitution,
		NewSpecialistID: "user-spec2",
	})
	if err != nil {
		t.Fatalf("create change: %v", err)
	}

	_, o, err := f.orders.DecideChange(ctx, externalSide, cr.ID, true)
	if err != nil {
		t.Fatalf("decide change: %v", err)
	}
	if o.SpecialistID != "user-spec2" {
		t.Fatalf("specialist = %s, want user-spec2", o.SpecialistID)
	}
	if len(o.ChangeHistory) != 1 {
		t.Fatalf("history = %+v, want one entry", o.ChangeHistory)
	}
	if got := o.ChangeHistory[0].Summary; got != "specialist user-spec replaced by user-spec2" {
		t.Fatalf("summary = %q", got)
	}
}

func TestSubstitutionAcrossTenantIsBoundaryViolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.orders.CreateChange(ctx, providerActor, "ord-1", order.ChangeInput{
		Kind:            order.ChangeSubstitution,
		NewSpecialistID: "user-foreign",
	})
	if !errors.Is(err, fault.ErrTenantBoundary) {
		t.Fatalf("err = %v, want tenant boundary", err)
	}
}

func TestCompleteIsIdempotentAndCompleteDueSweeps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	done, err := f.orders.Complete(ctx, providerActor, "ord-1")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != order.StatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", done.Status)
	}
	if _, err := f.orders.Complete(ctx, providerActor, "ord-1"); err != nil {
		t.Fatalf("replay complete: %v", err)
	}

	f.seedOrder(t, "ord-due", order.StatusActive, testNow.AddDate(0, 0, -1))
	n, err := f.orders.CompleteDue(ctx)
	if err != nil {
		t.Fatalf("complete due: %v", err)
	}
	if n != 1 {
		t.Fatalf("completed = %d, want 1", n)
	}
	swept, err := f.orders.Get(ctx, externalSide, "ord-due")
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if swept.Status != order.StatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", swept.Status)
	}
}

func TestForeignOrderReadsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// A second tenant's admin must not even learn the order exists.
	if err := f.store.SaveProvider(ctx, tenancy.Provider{ID: "prov-2", Name: "Globex", Status: tenancy.ProviderActive}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := f.store.SaveUser(ctx, tenancy.User{ID: "user-outside", ProviderID: "prov-2", Email: "o@globex.test", Status: "active"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := f.store.SaveAssignment(ctx, tenancy.RoleAssignment{
		ID: "ra-out", UserID: "user-outside", Role: tenancy.RoleProviderAdmin,
		Status: tenancy.AssignmentActive, ValidFrom: testNow.AddDate(-1, 0, 0),
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err := f.orders.Get(ctx, order.Actor{Party: order.PartyProvider, UserID: "user-outside"}, "ord-1")
	if !errors.Is(err, fault.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}
