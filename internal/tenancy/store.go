package tenancy

import (
	"context"
	"time"
)

// Store describes the persistence operations the tenancy service needs.
// Assignments are append-only: revocation is an update, never a delete.
type Store interface {
	GetProvider(ctx context.Context, id string) (Provider, error)
	SaveProvider(ctx context.Context, p Provider) error

	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	SaveUser(ctx context.Context, u User) error

	ListAssignments(ctx context.Context, userID string) ([]RoleAssignment, error)
	SaveAssignment(ctx context.Context, a RoleAssignment) error
	RevokeAssignment(ctx context.Context, assignmentID string, at time.Time) error
}
