package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/fault"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/tenancy"
)

// DefaultSessionTTL is how long an issued session token stays valid.
const DefaultSessionTTL = 12 * time.Hour

// Sessions authenticates users against the tenant directory and issues
// session tokens.
type Sessions struct {
	store tenancy.Store
	ttl   time.Duration
	now   func() time.Time
}

// SessionOption customizes a Sessions service.
type SessionOption func(*Sessions)

// WithSessionTTL overrides the issued token lifetime.
func WithSessionTTL(ttl time.Duration) SessionOption {
	return func(s *Sessions) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Sessions) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSessions builds a session service over the tenant directory.
func NewSessions(store tenancy.Store, opts ...SessionOption) *Sessions {
	s := &Sessions{
		store: store,
		ttl:   DefaultSessionTTL,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Session is the result of a successful login.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id"`
	Provider  string    `json:"provider_id"`
	Roles     []string  `json:"roles"`
}

// Login verifies credentials and issues a session token. Credential
// failures are indistinguishable from unknown accounts on purpose.
func (s *Sessions) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return Session{}, fmt.Errorf("%w: invalid credentials", fault.ErrUnauthorized)
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, fault.ErrNotFound) {
			return Session{}, fmt.Errorf("%w: invalid credentials", fault.ErrUnauthorized)
		}
		return Session{}, fmt.Errorf("lookup user: %w", err)
	}
	if !VerifyPassword(user.PasswordHash, password) {
		return Session{}, fmt.Errorf("%w: invalid credentials", fault.ErrUnauthorized)
	}
	if user.Status != string(tenancy.ProviderActive) {
		return Session{}, fmt.Errorf("%w: account disabled", fault.ErrUnauthorized)
	}

	roles, err := s.activeRoles(ctx, user.ID)
	if err != nil {
		return Session{}, err
	}

	token, err := GenerateToken(user.ID, user.ProviderID, roles, s.ttl)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	return Session{
		Token:     token,
		ExpiresAt: s.now().Add(s.ttl),
		UserID:    user.ID,
		Provider:  user.ProviderID,
		Roles:     roles,
	}, nil
}

func (s *Sessions) activeRoles(ctx context.Context, userID string) ([]string, error) {
	assignments, err := s.store.ListAssignments(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	at := s.now()
	var roles []string
	for _, a := range assignments {
		if !a.ActiveAt(at) {
			continue
		}
		roles = append(roles, string(a.Role))
	}
	return dedupeRoles(roles), nil
}
