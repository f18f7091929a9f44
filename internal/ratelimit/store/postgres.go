package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"notifygate/internal/ratelimit"
)

// Postgres persists attempts in the relay_attempts table. This store is pure
// I/O; the window arithmetic and throttle decision live in the limiter.
//
// Expected schema:
//
//	CREATE TABLE relay_attempts (
//	    client_key TEXT        NOT NULL,
//	    form       TEXT        NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX relay_attempts_lookup_idx
//	    ON relay_attempts (client_key, form, created_at);
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a Postgres-backed attempt store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) Count(ctx context.Context, clientKey, form string, since time.Time) (int, error) {
	query := `
		SELECT count(*)
		FROM relay_attempts
		WHERE client_key = $1 AND form = $2 AND created_at > $3
	`
	var count int
	if err := s.pool.QueryRow(ctx, query, clientKey, form, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("count attempts: %w", err)
	}
	return count, nil
}

func (s *Postgres) Record(ctx context.Context, attempt ratelimit.Attempt) error {
	query := `
		INSERT INTO relay_attempts (client_key, form, created_at)
		VALUES ($1, $2, $3)
	`
	if _, err := s.pool.Exec(ctx, query, attempt.ClientKey, attempt.Form, attempt.CreatedAt); err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

func (s *Postgres) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM relay_attempts WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge attempts: %w", err)
	}
	return tag.RowsAffected(), nil
}
