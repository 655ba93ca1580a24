// Package audit records the platform activity trail: who did what to which
// entity, as structured JSON lines. Entries are append-only and best-effort;
// a failed audit write never rolls back the operation it describes.
package audit

import (
	"context"
	"time"

	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/auth"
	"github.com/Muhammad-Talha-S/provider-management-system-sub000/internal/obs"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// ContextWithRequestID attaches the correlation id that LogEvent stamps on
// every entry produced under this context.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext extracts the correlation id, if any.
func RequestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

// Trail emits activity entries. The zero value writes to the shared logger.
type Trail struct {
	now func() time.Time
}

// NewTrail builds an activity trail with a real clock.
func NewTrail() *Trail {
	return &Trail{now: func() time.Time { return time.Now().UTC() }}
}

// WithClock overrides the time source, for tests.
func (t *Trail) WithClock(now func() time.Time) *Trail {
	if now != nil {
		t.now = now
	}
	return t
}

// LogEvent records one activity entry. Identity and correlation fields are
// pulled from the context; explicit fields win over derived ones.
func (t *Trail) LogEvent(ctx context.Context, event string, fields map[string]any) {
	clock := t.now
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	entry := map[string]any{
		"ts":    clock().Format(time.RFC3339Nano),
		"level": "info",
		"kind":  "activity",
		"event": event,
	}
	if rid := RequestIDFromContext(ctx); rid != "" {
		entry["request_id"] = rid
	}
	if userID, ok := auth.UserIDFromContext(ctx); ok {
		entry["user_id"] = userID
	}
	if providerID, ok := auth.ProviderIDFromContext(ctx); ok {
		entry["provider_id"] = providerID
	}
	for k, v := range fields {
		if v == nil {
			continue
		}
		entry[k] = v
	}
	obs.LogRequest(entry)
}
