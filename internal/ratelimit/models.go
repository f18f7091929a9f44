// Package ratelimit implements the sliding-window request gate shared by the
// relay endpoints. Every non-throttled request appends one immutable Attempt
// to the store; the decision is a count of attempts inside the window.
package ratelimit

import (
	"context"
	"strings"
	"time"
)

// Attempt records one observed request. Immutable once written; old attempts
// are purged by housekeeping, never updated.
type Attempt struct {
	ClientKey string
	Form      string
	CreatedAt time.Time
}

// Store is the shared persistence behind the limiter. Implementations must
// provide atomic single-record insert and time-bounded count; no transactions
// are required (see the concurrency note on Limiter.Allow).
type Store interface {
	// Count returns the number of attempts for the client+form pair with
	// CreatedAt strictly after since.
	Count(ctx context.Context, clientKey, form string, since time.Time) (int, error)

	// Record appends one attempt.
	Record(ctx context.Context, attempt Attempt) error

	// PurgeOlderThan removes attempts older than cutoff across all clients
	// and forms, returning how many were removed.
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// SanitizeKeySegment escapes the delimiter in key segments so a forged
// forwarded-for value containing ':' cannot collide with another bucket.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}
