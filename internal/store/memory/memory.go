// Package memory is the in-process store used by tests and by local runs
// without a database. It implements every domain store interface behind one
// mutex, so the transactional methods get the same all-or-nothing behavior
// the Postgres store provides with row locks.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/contract"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/fault"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/offer"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/order"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/request"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/tenancy"
)

// Store holds everything in maps guarded by one RWMutex.
type Store struct {
	mu sync.RWMutex

	providers   map[string]tenancy.Provider
	users       map[string]tenancy.User
	assignments map[string]tenancy.RoleAssignment

	contracts map[string]contract.Contract
	awards    map[string]contract.ProviderAward // contractID|providerID

	requests map[string]request.ServiceRequest

	offers map[string]offer.Offer

	orders        map[string]order.Order
	ordersByOffer map[string]string // offerID -> orderID
	changes       map[string]order.ChangeRequest
}

// New creates an empty store.
func New() *Store {
	return &Store{
		providers:     make(map[string]tenancy.Provider),
		users:         make(map[string]tenancy.User),
		assignments:   make(map[string]tenancy.RoleAssignment),
		contracts:     make(map[string]contract.Contract),
		awards:        make(map[string]contract.ProviderAward),
		requests:      make(map[string]request.ServiceRequest),
		offers:        make(map[string]offer.Offer),
		orders:        make(map[string]order.Order),
		ordersByOffer: make(map[string]string),
		changes:       make(map[string]order.ChangeRequest),
	}
}

func awardKey(contractID, providerID string) string {
	return contractID + "|" + providerID
}

// --- tenancy.Store ---

func (s *Store) GetProvider(ctx context.Context, id string) (tenancy.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.providers[id]
	if !ok {
		return tenancy.Provider{}, fmt.Errorf("%w: provider %s", fault.ErrNotFound, id)
	}
	return p, nil
}

func (s *Store) SaveProvider(ctx context.Context, p tenancy.Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers[p.ID] = p
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (tenancy.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return tenancy.User{}, fmt.Errorf("%w: user %s", fault.ErrNotFound, id)
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (tenancy.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return tenancy.User{}, fmt.Errorf("%w: user %s", fault.ErrNotFound, email)
}

func (s *Store) SaveUser(ctx context.Context, u tenancy.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	return nil
}

func (s *Store) ListAssignments(ctx context.Context, userID string) ([]tenancy.RoleAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []tenancy.RoleAssignment
	for _, a := range s.assignments {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) SaveAssignment(ctx context.Context, a tenancy.RoleAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments[a.ID] = a
	return nil
}

func (s *Store) RevokeAssignment(ctx context.Context, assignmentID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assignments[assignmentID]
	if !ok {
		return fmt.Errorf("%w: assignment %s", fault.ErrNotFound, assignmentID)
	}
	if a.Status == tenancy.AssignmentRevoked {
		return nil // already revoked
	}
	a.Status = tenancy.AssignmentRevoked
	a.ValidTo = at
	s.assignments[assignmentID] = a
	return nil
}

// --- contract.Store ---

func (s *Store) GetContract(ctx context.Context, id string) (contract.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contracts[id]
	if !ok {
		return contract.Contract{}, fmt.Errorf("%w: contract %s", fault.ErrNotFound, id)
	}
	return c, nil
}

func (s *Store) SaveContract(ctx context.Context, c contract.Contract) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, existed := s.contracts[c.ID]
	s.contracts[c.ID] = c
	return !existed, nil
}

func (s *Store) ListContracts(ctx context.Context) ([]contract.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]contract.Contract, 0, len(s.contracts))
	for _, c := range s.contracts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetAward(ctx context.Context, contractID, providerID string) (contract.ProviderAward, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.awards[awardKey(contractID, providerID)]
	if !ok {
		return contract.ProviderAward{}, fmt.Errorf("%w: award for contract %s provider %s", fault.ErrNotFound, contractID, providerID)
	}
	return a, nil
}

func (s *Store) ListAwards(ctx context.Context, providerID string) ([]contract.ProviderAward, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []contract.ProviderAward
	for _, a := range s.awards {
		if a.ProviderID == providerID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ContractID < out[j].ContractID })
	return out, nil
}

func (s *Store) ApplyProviderStatus(ctx context.Context, award contract.ProviderAward) (contract.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contracts[award.ContractID]
	if !ok {
		return contract.Contract{}, fmt.Errorf("%w: contract %s", fault.ErrNotFound, award.ContractID)
	}
	s.awards[awardKey(award.ContractID, award.ProviderID)] = award
	if next, changed := contract.RatchetOnAward(c.Status, award.Status); changed {
		c.Status = next
		c.UpdatedAt = award.AwardedAt
		s.contracts[c.ID] = c
	}
	return c, nil
}

// --- request.Store ---

func (s *Store) GetRequest(ctx context.Context, id string) (request.ServiceRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[id]
	if !ok {
		return request.ServiceRequest{}, fmt.Errorf("%w: service request %s", fault.ErrNotFound, id)
	}
	return r, nil
}

func (s *Store) SaveRequest(ctx context.Context, r request.ServiceRequest) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, existed := s.requests[r.ID]
	s.requests[r.ID] = r
	return !existed, nil
}

func (s *Store) ListRequests(ctx context.Context, contractID string) ([]request.ServiceRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []request.ServiceRequest
	for _, r := range s.requests {
		if contractID == "" || r.ContractID == contractID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CloseRequest(ctx context.Context, id, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeRequestLocked(id, reason, time.Now().UTC())
}

func (s *Store) closeRequestLocked(id, reason string, at time.Time) error {
	r, ok := s.requests[id]
	if !ok {
		return fmt.Errorf("%w: service request %s", fault.ErrNotFound, id)
	}
	if r.Status == request.StatusClosed {
		return nil // already closed, keep the original reason
	}
	r.Status = request.StatusClosed
	r.ClosedReason = reason
	r.UpdatedAt = at
	s.requests[id] = r
	return nil
}

// --- offer.Store ---

func (s *Store) CreateOffer(ctx context.Context, o offer.Offer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.offers[o.ID]; exists {
		return fmt.Errorf("%w: offer %s already exists", fault.ErrConflict, o.ID)
	}
	s.offers[o.ID] = o
	return nil
}

func (s *Store) GetOffer(ctx context.Context, id string) (offer.Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.offers[id]
	if !ok {
		return offer.Offer{}, fmt.Errorf("%w: offer %s", fault.ErrNotFound, id)
	}
	return o, nil
}

func (s *Store) SaveOffer(ctx context.Context, o offer.Offer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.offers[o.ID]; !ok {
		return fmt.Errorf("%w: offer %s", fault.ErrNotFound, o.ID)
	}
	s.offers[o.ID] = o
	return nil
}

func (s *Store) ListOffersByProvider(ctx context.Context, providerID string) ([]offer.Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []offer.Offer
	for _, o := range s.offers {
		if providerID == "" || o.ProviderID == providerID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListOffersForRequest(ctx context.Context, serviceRequestID string) ([]offer.Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []offer.Offer
	for _, o := range s.offers {
		if o.ServiceRequestID == serviceRequestID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DecideOffer applies an accept/reject verdict under the store mutex so two
// concurrent accepts observe each other. Replaying an already-applied
// outcome returns the stored result; a conflicting outcome fails with a
// conflict. On accept the order is get-or-create keyed on the offer id and
// the parent request is closed in the same critical section.
func (s *Store) DecideOffer(ctx context.Context, offerID string, decision offer.Decision, candidate order.Order) (offer.Offer, order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.offers[offerID]
	if !ok {
		return offer.Offer{}, order.Order{}, fmt.Errorf("%w: offer %s", fault.ErrNotFound, offerID)
	}
	switch o.Status {
	case offer.StatusSubmitted:
		// decidable
	case offer.StatusAccepted:
		if decision == offer.DecisionAccept {
			return o, s.orderForOfferLocked(offerID), nil
		}
		return offer.Offer{}, order.Order{}, fmt.Errorf("%w: offer %s is already accepted", fault.ErrConflict, offerID)
	case offer.StatusRejected:
		if decision == offer.DecisionReject {
			return o, order.Order{}, nil
		}
		return offer.Offer{}, order.Order{}, fmt.Errorf("%w: offer %s is already rejected", fault.ErrConflict, offerID)
	default:
		return offer.Offer{}, order.Order{}, fmt.Errorf("%w: offer %s is %s and cannot be decided", fault.ErrValidation, offerID, o.Status)
	}

	now := candidate.CreatedAt
	if decision == offer.DecisionReject {
		o.Status = offer.StatusRejected
		o.UpdatedAt = now
		s.offers[offerID] = o
		return o, order.Order{}, nil
	}

	o.Status = offer.StatusAccepted
	o.UpdatedAt = now
	s.offers[offerID] = o

	if existingID, ok := s.ordersByOffer[offerID]; ok {
		return o, s.orders[existingID], nil
	}
	s.orders[candidate.ID] = candidate
	s.ordersByOffer[offerID] = candidate.ID
	if err := s.closeRequestLocked(o.ServiceRequestID, "offer accepted", now); err != nil {
		// Undo so a retry can run the whole decision again.
		delete(s.orders, candidate.ID)
		delete(s.ordersByOffer, offerID)
		return offer.Offer{}, order.Order{}, err
	}
	return o, candidate, nil
}

func (s *Store) orderForOfferLocked(offerID string) order.Order {
	if id, ok := s.ordersByOffer[offerID]; ok {
		return s.orders[id]
	}
	return order.Order{}
}

// --- order.Store ---

func (s *Store) GetOrder(ctx context.Context, id string) (order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return order.Order{}, fmt.Errorf("%w: order %s", fault.ErrNotFound, id)
	}
	return o, nil
}

func (s *Store) GetOrderByOffer(ctx context.Context, offerID string) (order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.ordersByOffer[offerID]
	if !ok {
		return order.Order{}, fmt.Errorf("%w: order for offer %s", fault.ErrNotFound, offerID)
	}
	return s.orders[id], nil
}

func (s *Store) ListOrders(ctx context.Context, providerID string) ([]order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []order.Order
	for _, o := range s.orders {
		if providerID == "" || o.ProviderID == providerID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CompleteOrder(ctx context.Context, id string, at time.Time) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return order.Order{}, fmt.Errorf("%w: order %s", fault.ErrNotFound, id)
	}
	if o.Status == order.StatusCompleted {
		return o, nil
	}
	o.Status = order.StatusCompleted
	o.UpdatedAt = at
	s.orders[id] = o
	return o, nil
}

func (s *Store) ListDueOrders(ctx context.Context, asOf time.Time) ([]order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []order.Order
	for _, o := range s.orders {
		if o.Status == order.StatusActive && !o.EndDate.IsZero() && o.EndDate.Before(asOf) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CreateChangeRequest(ctx context.Context, cr order.ChangeRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.changes[cr.ID]; exists {
		return fmt.Errorf("%w: change request %s already exists", fault.ErrConflict, cr.ID)
	}
	if _, ok := s.orders[cr.OrderID]; !ok {
		return fmt.Errorf("%w: order %s", fault.ErrNotFound, cr.OrderID)
	}
	s.changes[cr.ID] = cr
	return nil
}

func (s *Store) GetChangeRequest(ctx context.Context, id string) (order.ChangeRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cr, ok := s.changes[id]
	if !ok {
		return order.ChangeRequest{}, fmt.Errorf("%w: change request %s", fault.ErrNotFound, id)
	}
	return cr, nil
}

func (s *Store) ListChangeRequests(ctx context.Context, orderID string) ([]order.ChangeRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []order.ChangeRequest
	for _, cr := range s.changes {
		if cr.OrderID == orderID {
			out = append(out, cr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// DecideChange flips a pending change request and, on approval, applies the
// mutation to the order in the same critical section. Terminal requests
// replay idempotently for the same verdict and conflict for the opposite
// one.
func (s *Store) DecideChange(ctx context.Context, changeRequestID string, approve bool, decider order.Party, at time.Time) (order.ChangeRequest, order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cr, ok := s.changes[changeRequestID]
	if !ok {
		return order.ChangeRequest{}, order.Order{}, fmt.Errorf("%w: change request %s", fault.ErrNotFound, changeRequestID)
	}
	o, ok := s.orders[cr.OrderID]
	if !ok {
		return order.ChangeRequest{}, order.Order{}, fmt.Errorf("%w: order %s", fault.ErrNotFound, cr.OrderID)
	}
	if cr.Status != order.ChangeRequested {
		if (cr.Status == order.ChangeApproved) == approve {
			return cr, o, nil
		}
		return order.ChangeRequest{}, order.Order{}, fmt.Errorf("%w: change request %s is already %s", fault.ErrConflict, changeRequestID, cr.Status)
	}

	if approve {
		if err := order.Apply(&o, cr, at); err != nil {
			return order.ChangeRequest{}, order.Order{}, err
		}
		s.orders[o.ID] = o
		cr.Status = order.ChangeApproved
	} else {
		cr.Status = order.ChangeRejected
	}
	cr.DecidedBy = decider
	cr.DecidedAt = at
	s.changes[changeRequestID] = cr
	return cr, o, nil
}
