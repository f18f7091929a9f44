// Package store provides the attempt-store implementations behind the rate
// limiter: in-memory for tests and single-node dev, Postgres and Redis for
// deployments where multiple instances share state.
package store

import (
	"context"
	"sync"
	"time"

	"notifygate/internal/ratelimit"
)

// Memory is an in-memory attempt store. Safe for concurrent use but local to
// one process; production deployments should use Postgres or Redis.
type Memory struct {
	mu       sync.Mutex
	attempts []ratelimit.Attempt
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

func (s *Memory) Count(_ context.Context, clientKey, form string, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, a := range s.attempts {
		if a.ClientKey == clientKey && a.Form == form && a.CreatedAt.After(since) {
			count++
		}
	}
	return count, nil
}

func (s *Memory) Record(_ context.Context, attempt ratelimit.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, attempt)
	return nil
}

func (s *Memory) PurgeOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.attempts[:0]
	var removed int64
	for _, a := range s.attempts {
		if a.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	s.attempts = kept
	return removed, nil
}

// Len reports the number of stored attempts. Test helper.
func (s *Memory) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.attempts)
}
