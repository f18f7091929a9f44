package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"notifygate/internal/ratelimit"
)

const (
	// Redis key prefix for attempt journals.
	attemptKeyPrefix = "relay:attempts:"

	// Keys expire well after the window so purge is a safety net, not a
	// correctness requirement.
	attemptKeyTTL = 10 * time.Minute
)

// Redis keeps one sorted set per client+form pair, scored by attempt time in
// unix nanoseconds, so the window count is a single ZCOUNT.
type Redis struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed attempt store.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func attemptKey(clientKey, form string) string {
	return attemptKeyPrefix + clientKey + ":" + form
}

func (s *Redis) Count(ctx context.Context, clientKey, form string, since time.Time) (int, error) {
	min := "(" + strconv.FormatInt(since.UnixNano(), 10)
	n, err := s.client.ZCount(ctx, attemptKey(clientKey, form), min, "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("count attempts: %w", err)
	}
	return int(n), nil
}

func (s *Redis) Record(ctx context.Context, attempt ratelimit.Attempt) error {
	key := attemptKey(attempt.ClientKey, attempt.Form)
	pipe := s.client.Pipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(attempt.CreatedAt.UnixNano()),
		Member: uuid.NewString(),
	})
	pipe.Expire(ctx, key, attemptKeyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

// PurgeOlderThan trims expired members from every attempt journal. Keys also
// carry a TTL, so a failed or skipped purge only delays reclamation.
func (s *Redis) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	max := "(" + strconv.FormatInt(cutoff.UnixNano(), 10)

	var removed int64
	iter := s.client.Scan(ctx, 0, attemptKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		n, err := s.client.ZRemRangeByScore(ctx, iter.Val(), "-inf", max).Result()
		if err != nil {
			return removed, fmt.Errorf("purge attempts: %w", err)
		}
		removed += n
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("scan attempt keys: %w", err)
	}
	return removed, nil
}
