package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"notifygate/internal/platform/metrics"
)

// DefaultWindow matches the 60-second window the site's quotas are stated in.
const DefaultWindow = time.Minute

// Limiter gates requests with a sliding window counted from the shared store.
type Limiter struct {
	store   Store
	window  time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithWindow overrides the sliding window length.
func WithWindow(window time.Duration) Option {
	return func(l *Limiter) {
		l.window = window
	}
}

// WithMetrics attaches Prometheus instruments.
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Limiter) {
		l.metrics = m
	}
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// New creates a Limiter over the given store.
func New(store Store, logger *slog.Logger, opts ...Option) (*Limiter, error) {
	if store == nil {
		return nil, errors.New("attempt store is required")
	}
	l := &Limiter{
		store:  store,
		window: DefaultWindow,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Allow reports whether a request for the given client and form may proceed
// under the supplied limit, recording the attempt when it may.
//
// The window is counted from attempt timestamps newer than now-window. A
// rejected attempt is not recorded, so being throttled does not extend the
// throttle. Concurrent requests can race between count and record and exceed
// the limit by a small margin; that is acceptable for an abuse deterrent and
// not worth a lock on the hot path.
//
// Store failures fail open: a storage outage must not take the public contact
// form down with it. The outage is logged and counted so it doesn't hide.
func (l *Limiter) Allow(ctx context.Context, clientKey, form string, limit int) bool {
	now := l.now()
	since := now.Add(-l.window)
	key := SanitizeKeySegment(clientKey)

	// Best-effort storage bound. The count below is already time-bounded,
	// so a failed purge affects storage growth, not correctness.
	if _, err := l.store.PurgeOlderThan(ctx, since); err != nil {
		l.logger.DebugContext(ctx, "rate limit purge failed", "error", err)
	}

	count, err := l.store.Count(ctx, key, form, since)
	if err != nil {
		l.metrics.RecordStoreError()
		l.logger.WarnContext(ctx, "rate limit count failed, failing open",
			"error", err,
			"form", form,
		)
		return true
	}

	if count >= limit {
		return false
	}

	if err := l.store.Record(ctx, Attempt{ClientKey: key, Form: form, CreatedAt: now}); err != nil {
		l.metrics.RecordStoreError()
		l.logger.WarnContext(ctx, "rate limit record failed, failing open",
			"error", err,
			"form", form,
		)
	}
	return true
}

// RunHousekeeping purges expired attempts on the given interval until ctx is
// cancelled. Purge failures are logged and retried on the next tick.
func (l *Limiter) RunHousekeeping(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			cutoff := l.now().Add(-l.window)
			removed, err := l.store.PurgeOlderThan(ctx, cutoff)
			if err != nil {
				l.logger.WarnContext(ctx, "housekeeping purge failed", "error", err)
				continue
			}
			if removed > 0 {
				l.logger.DebugContext(ctx, "purged expired attempts", "removed", removed)
			}
		}
	}
}
