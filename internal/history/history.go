// Package history persists finished utterances to PostgreSQL so a
// conversation can be reviewed after the session ends. Persistence is
// optional: when no DSN is configured the application simply does not
// construct a store.
//
// The [Sink] adapter decouples database latency from the channel pipelines
// with a small buffered worker; a slow or unavailable database costs log
// warnings, never audio.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voxbridge/voxbridge/internal/subtitle"
)

const ddlUtterances = `
CREATE TABLE IF NOT EXISTS utterances (
    id          BIGSERIAL    PRIMARY KEY,
    channel     TEXT         NOT NULL,
    source_lang TEXT         NOT NULL,
    target_lang TEXT         NOT NULL,
    original    TEXT         NOT NULL,
    translated  TEXT         NOT NULL,
    spoken_at   TIMESTAMPTZ  NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_utterances_spoken_at
    ON utterances (spoken_at);

CREATE INDEX IF NOT EXISTS idx_utterances_channel_spoken_at
    ON utterances (channel, spoken_at);
`

// Store is the PostgreSQL-backed conversation log. All operations are safe
// for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to the database at dsn, verifies the connection, and
// ensures the schema exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("history: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("history: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("history: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("history: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Migrate ensures the utterances table and its indexes exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddlUtterances); err != nil {
		return fmt.Errorf("create utterances table: %w", err)
	}
	return nil
}

// Record inserts one finished utterance.
func (s *Store) Record(ctx context.Context, entry subtitle.Entry) error {
	const q = `
		INSERT INTO utterances (channel, source_lang, target_lang, original, translated, spoken_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.pool.Exec(ctx, q,
		entry.Channel,
		entry.SourceLang,
		entry.TargetLang,
		entry.Original,
		entry.Translated,
		entry.At,
	)
	if err != nil {
		return fmt.Errorf("history: insert utterance: %w", err)
	}
	return nil
}

// Recent returns the most recent utterances, newest first, up to limit.
func (s *Store) Recent(ctx context.Context, limit int) ([]subtitle.Entry, error) {
	const q = `
		SELECT channel, source_lang, target_lang, original, translated, spoken_at
		FROM utterances
		ORDER BY spoken_at DESC
		LIMIT $1`

	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query recent: %w", err)
	}
	defer rows.Close()

	var entries []subtitle.Entry
	for rows.Next() {
		var e subtitle.Entry
		var at time.Time
		if err := rows.Scan(&e.Channel, &e.SourceLang, &e.TargetLang, &e.Original, &e.Translated, &at); err != nil {
			return nil, fmt.Errorf("history: scan utterance: %w", err)
		}
		e.At = at
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate utterances: %w", err)
	}
	return entries, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}
