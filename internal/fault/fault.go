// Package fault defines the error taxonomy shared by all domain services.
// Callers classify with errors.Is and attach a human-readable reason by
// wrapping, e.g. fmt.Errorf("%w: daily rate 950 exceeds max 900", fault.ErrValidation).
package fault

import "errors"

var (
	// ErrNotFound covers both truly absent entities and entities filtered
	// out by tenant scope. The two are indistinguishable to the caller.
	ErrNotFound = errors.New("not found")

	// ErrTenantBoundary marks a cross-provider access attempt. Surfaced as
	// an authorization failure, never silently filtered.
	ErrTenantBoundary = errors.New("tenant boundary violation")

	// ErrRoleDenied means the principal lacks a required active role.
	ErrRoleDenied = errors.New("role denied")

	// ErrValidation covers contract-config mismatches, rate-ceiling
	// breaches, malformed payloads and state-precondition violations.
	ErrValidation = errors.New("validation failed")

	// ErrConflict marks a state transition that contradicts an already
	// committed decision, e.g. rejecting an accepted offer.
	ErrConflict = errors.New("conflict")

	// ErrUnauthorized means the request carries no usable credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrExternalIntegration marks an upstream sync/webhook target failure.
	// Local state committed before the call stays committed.
	ErrExternalIntegration = errors.New("external integration failure")
)
