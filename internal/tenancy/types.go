package tenancy

import (
	"strings"
	"time"
)

// ProviderStatus toggles a tenant on or off without deleting it.
type ProviderStatus string

const (
	ProviderActive   ProviderStatus = "active"
	ProviderInactive ProviderStatus = "inactive"
)

// Provider is a tenant: a supplier organization offering staffing specialists.
// Immutable once created except for status toggling.
type Provider struct {
	ID        string         `json:"id" db:"id"`
	Name      string         `json:"name" db:"name"`
	Status    ProviderStatus `json:"status" db:"status"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at"`
}

// Role is a system role used for authorization. JOB-type assignments carry a
// free-form staffing role name on top and are used for rate-policy matching,
// never for authorization.
type Role string

const (
	RoleProviderAdmin          Role = "PROVIDER_ADMIN"
	RoleSupplierRepresentative Role = "SUPPLIER_REPRESENTATIVE"
	RoleContractCoordinator    Role = "CONTRACT_COORDINATOR"
	RoleSpecialist             Role = "SPECIALIST"
	RoleJob                    Role = "JOB"
)

// AssignmentStatus tracks whether a role assignment still grants anything.
// Assignments are never deleted; revocation flips the status and stamps
// valid_to.
type AssignmentStatus string

const (
	AssignmentActive  AssignmentStatus = "ACTIVE"
	AssignmentRevoked AssignmentStatus = "REVOKED"
)

// RoleAssignment binds a user to a role within optional domain/group scope.
// JOB assignments additionally carry RoleName plus experience and technology
// levels, matched against contract rate ceilings at offer time.
type RoleAssignment struct {
	ID              string           `json:"id" db:"id"`
	UserID          string           `json:"user_id" db:"user_id"`
	Role            Role             `json:"role" db:"role"`
	RoleName        string           `json:"role_name,omitempty" db:"role_name"`
	Domain          string           `json:"domain,omitempty" db:"domain"`
	GroupName       string           `json:"group_name,omitempty" db:"group_name"`
	ExperienceLevel string           `json:"experience_level,omitempty" db:"experience_level"`
	TechnologyLevel string           `json:"technology_level,omitempty" db:"technology_level"`
	Status          AssignmentStatus `json:"status" db:"status"`
	ValidFrom       time.Time        `json:"valid_from" db:"valid_from"`
	ValidTo         time.Time        `json:"valid_to,omitempty" db:"valid_to"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
}

// ActiveAt reports whether the assignment grants its role at instant t.
// A zero ValidTo means open-ended.
func (a RoleAssignment) ActiveAt(t time.Time) bool {
	if a.Status != AssignmentActive {
		return false
	}
	if !a.ValidFrom.IsZero() && t.Before(a.ValidFrom) {
		return false
	}
	if !a.ValidTo.IsZero() && t.After(a.ValidTo) {
		return false
	}
	return true
}

// User is a principal. ProviderID is empty only for integration/service
// principals acting for the external contract or request owner.
type User struct {
	ID           string    `json:"id" db:"id"`
	ProviderID   string    `json:"provider_id,omitempty" db:"provider_id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Status       string    `json:"status" db:"status"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Principal is a user with freshly loaded role assignments.
type Principal struct {
	User        User
	Assignments []RoleAssignment
}

// RoleFilter scopes a role check to an optional domain and group.
type RoleFilter struct {
	Domain    string
	GroupName string
}

func (f RoleFilter) matches(a RoleAssignment) bool {
	if f.Domain != "" && !strings.EqualFold(f.Domain, a.Domain) {
		return false
	}
	if f.GroupName != "" && !strings.EqualFold(f.GroupName, a.GroupName) {
		return false
	}
	return true
}
