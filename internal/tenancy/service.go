package tenancy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/fault"
)

// Service resolves provider membership and active role sets. Every check
// loads assignments from the store so a revocation is visible on the very
// next call; nothing is cached in process.
type Service struct {
	store Store
	now   func() time.Time
}

// Option configures Service behavior.
type Option func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the tenancy service.
func NewService(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("tenancy store is required")
	}
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Principal loads the user together with all of its role assignments.
func (s *Service) Principal(ctx context.Context, userID string) (Principal, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return Principal{}, err
	}
	assignments, err := s.store.ListAssignments(ctx, userID)
	if err != nil {
		return Principal{}, err
	}
	return Principal{User: user, Assignments: assignments}, nil
}

// HasActiveRole reports whether the user currently holds the role. Only
// ACTIVE assignments inside their validity window count.
func (s *Service) HasActiveRole(ctx context.Context, userID string, role Role, f RoleFilter) (bool, error) {
	assignments, err := s.store.ListAssignments(ctx, userID)
	if err != nil {
		return false, err
	}
	now := s.now()
	for _, a := range assignments {
		if a.Role == role && a.ActiveAt(now) && f.matches(a) {
			return true, nil
		}
	}
	return false, nil
}

// RequireRole loads the user and fails with the specific role requirement
// when none of the given roles is currently active.
func (s *Service) RequireRole(ctx context.Context, userID string, roles ...Role) (User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return User{}, err
	}
	for _, role := range roles {
		ok, err := s.HasActiveRole(ctx, userID, role, RoleFilter{})
		if err != nil {
			return User{}, err
		}
		if ok {
			return user, nil
		}
	}
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return User{}, fmt.Errorf("%w: requires one of %s", fault.ErrRoleDenied, strings.Join(names, ", "))
}

// SameProvider reports whether both users belong to the same provider.
// Fails closed: an unset provider on either side is a boundary error, never
// a silent false.
func (s *Service) SameProvider(ctx context.Context, aID, bID string) (bool, error) {
	a, err := s.store.GetUser(ctx, aID)
	if err != nil {
		return false, err
	}
	b, err := s.store.GetUser(ctx, bID)
	if err != nil {
		return false, err
	}
	if a.ProviderID == "" || b.ProviderID == "" {
		return false, fmt.Errorf("%w: provider membership unset", fault.ErrTenantBoundary)
	}
	return a.ProviderID == b.ProviderID, nil
}

// ActiveJobAssignment returns the user's currently active JOB assignment for
// the given staffing role name. The offer engine uses the matched experience
// and technology levels for rate-policy lookups.
func (s *Service) ActiveJobAssignment(ctx context.Context, userID, roleName string) (RoleAssignment, error) {
	assignments, err := s.store.ListAssignments(ctx, userID)
	if err != nil {
		return RoleAssignment{}, err
	}
	now := s.now()
	for _, a := range assignments {
		if a.Role == RoleJob && a.ActiveAt(now) && strings.EqualFold(a.RoleName, roleName) {
			return a, nil
		}
	}
	return RoleAssignment{}, fmt.Errorf("%w: no active JOB assignment for role %q", fault.ErrValidation, roleName)
}

// Revoke flips the assignment to REVOKED and closes its validity window.
// The row is kept; authorization checks ignore it from now on.
func (s *Service) Revoke(ctx context.Context, assignmentID string) error {
	return s.store.RevokeAssignment(ctx, assignmentID, s.now())
}
