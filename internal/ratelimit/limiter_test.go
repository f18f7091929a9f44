package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// fakeStore lets tests script store failures and inspect recorded attempts.
type fakeStore struct {
	mu        sync.Mutex
	attempts  []Attempt
	countErr  error
	recordErr error
	purgeErr  error
	purges    int
}

func (f *fakeStore) Count(_ context.Context, clientKey, form string, since time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.countErr != nil {
		return 0, f.countErr
	}
	count := 0
	for _, a := range f.attempts {
		if a.ClientKey == clientKey && a.Form == form && a.CreatedAt.After(since) {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) Record(_ context.Context, attempt Attempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return f.recordErr
	}
	f.attempts = append(f.attempts, attempt)
	return nil
}

func (f *fakeStore) PurgeOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purges++
	if f.purgeErr != nil {
		return 0, f.purgeErr
	}
	kept := f.attempts[:0]
	var removed int64
	for _, a := range f.attempts {
		if a.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	f.attempts = kept
	return removed, nil
}

func (f *fakeStore) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.attempts)
}

type LimiterSuite struct {
	suite.Suite
	store   *fakeStore
	limiter *Limiter
	ctx     context.Context
	now     time.Time
}

func TestLimiterSuite(t *testing.T) {
	suite.Run(t, new(LimiterSuite))
}

func (s *LimiterSuite) SetupTest() {
	s.store = &fakeStore{}
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var err error
	s.limiter, err = New(s.store, slog.New(slog.DiscardHandler),
		WithClock(func() time.Time { return s.now }),
	)
	s.Require().NoError(err)
}

func (s *LimiterSuite) TestNewRequiresStore() {
	_, err := New(nil, slog.New(slog.DiscardHandler))
	s.Error(err)
}

func (s *LimiterSuite) TestAllowUpToLimit() {
	for i := range 3 {
		s.True(s.limiter.Allow(s.ctx, "1.2.3.4", "contact", 3), "request %d should pass", i+1)
	}
	s.False(s.limiter.Allow(s.ctx, "1.2.3.4", "contact", 3), "request over the limit must be throttled")
	s.Len(s.store.attempts, 3, "the rejected attempt must not be recorded")
}

func (s *LimiterSuite) TestRejectedAttemptDoesNotExtendThrottle() {
	for range 3 {
		s.limiter.Allow(s.ctx, "1.2.3.4", "contact", 3)
	}
	for range 10 {
		s.False(s.limiter.Allow(s.ctx, "1.2.3.4", "contact", 3))
	}

	// Once the recorded attempts age out, the client is clean again even
	// though it hammered the endpoint while throttled.
	s.now = s.now.Add(61 * time.Second)
	s.True(s.limiter.Allow(s.ctx, "1.2.3.4", "contact", 3))
}

func (s *LimiterSuite) TestSlidingWindow() {
	s.limiter.Allow(s.ctx, "1.2.3.4", "contact", 3)
	s.now = s.now.Add(30 * time.Second)
	s.limiter.Allow(s.ctx, "1.2.3.4", "contact", 3)
	s.limiter.Allow(s.ctx, "1.2.3.4", "contact", 3)

	s.False(s.limiter.Allow(s.ctx, "1.2.3.4", "contact", 3))

	// 31s later the first attempt has left the window but the two at +30s
	// remain, so one slot is free.
	s.now = s.now.Add(31 * time.Second)
	s.True(s.limiter.Allow(s.ctx, "1.2.3.4", "contact", 3))
	s.False(s.limiter.Allow(s.ctx, "1.2.3.4", "contact", 3))
}

func (s *LimiterSuite) TestBucketsAreIndependent() {
	for range 3 {
		s.limiter.Allow(s.ctx, "1.2.3.4", "contact", 3)
	}
	s.False(s.limiter.Allow(s.ctx, "1.2.3.4", "contact", 3))

	s.True(s.limiter.Allow(s.ctx, "1.2.3.4", "contribution", 3), "forms have separate buckets")
	s.True(s.limiter.Allow(s.ctx, "5.6.7.8", "contact", 3), "clients have separate buckets")
}

func (s *LimiterSuite) TestAuthenticatedTierGetsHigherCeiling() {
	for i := range 10 {
		s.True(s.limiter.Allow(s.ctx, "user-123", "contact", 10), "request %d", i+1)
	}
	s.False(s.limiter.Allow(s.ctx, "user-123", "contact", 10))
}

func (s *LimiterSuite) TestFailOpenOnCountError() {
	s.store.countErr = errors.New("store unreachable")

	s.True(s.limiter.Allow(s.ctx, "1.2.3.4", "contact", 3),
		"a storage outage must not take the contact form down")
}

func (s *LimiterSuite) TestFailOpenOnRecordError() {
	s.store.recordErr = errors.New("store unreachable")

	s.True(s.limiter.Allow(s.ctx, "1.2.3.4", "contact", 3))
}

func (s *LimiterSuite) TestPurgeFailureIsNonFatal() {
	s.store.purgeErr = errors.New("store busy")

	s.True(s.limiter.Allow(s.ctx, "1.2.3.4", "contact", 3))
	s.Len(s.store.attempts, 1)
	s.Equal(1, s.store.purges, "purge is attempted before every count")
}

func (s *LimiterSuite) TestKeySegmentsAreSanitized() {
	s.limiter.Allow(s.ctx, "1.2.3.4:evil", "contact", 3)

	s.Require().Len(s.store.attempts, 1)
	s.Equal("1.2.3.4_evil", s.store.attempts[0].ClientKey)
}

func (s *LimiterSuite) TestHousekeepingPurgesAndStopsOnCancel() {
	s.Require().NoError(s.store.Record(s.ctx, Attempt{
		ClientKey: "1.2.3.4", Form: "contact", CreatedAt: s.now.Add(-5 * time.Minute),
	}))

	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan error, 1)
	go func() {
		done <- s.limiter.RunHousekeeping(ctx, 10*time.Millisecond)
	}()

	s.Eventually(func() bool {
		return s.store.len() == 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	s.ErrorIs(<-done, context.Canceled)
}
