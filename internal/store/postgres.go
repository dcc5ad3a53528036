package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/email-finder/internal/db"
	"github.com/sells-group/email-finder/internal/model"
)

// PostgresStore implements PatternStore using pgx.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

var _ PatternStore = (*PostgresStore)(nil)

// NewPostgres connects to connString and returns a PostgresStore.
func NewPostgres(ctx context.Context, connString string, poolCfg *db.PoolConfig) (*PostgresStore, error) {
	pool, err := db.Connect(ctx, connString, poolCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. The caller owns its lifecycle.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS email_patterns (
	domain        TEXT PRIMARY KEY,
	template      TEXT NOT NULL,
	confidence    DOUBLE PRECISION NOT NULL,
	sample_size   INTEGER NOT NULL DEFAULT 0,
	matches       JSONB,
	verifications INTEGER NOT NULL DEFAULT 0,
	successes     INTEGER NOT NULL DEFAULT 0,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_email_patterns_updated_at ON email_patterns(updated_at);
`

const postgresPatternColumns = `domain, template, confidence, sample_size, matches, verifications, successes, updated_at`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) GetPattern(ctx context.Context, domain string) (*Record, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+postgresPatternColumns+` FROM email_patterns WHERE domain = $1`,
		normalizeDomain(domain),
	)
	r, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get pattern %s", domain)
	}
	return r, nil
}

func (s *PostgresStore) SavePattern(ctx context.Context, p model.Pattern) (*Record, error) {
	matches, err := marshalMatches(p.Matches)
	if err != nil {
		return nil, err
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO email_patterns (domain, template, confidence, sample_size, matches, verifications, successes, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, 0, $6)
		ON CONFLICT (domain) DO UPDATE SET
			confidence = CASE WHEN email_patterns.template = EXCLUDED.template THEN email_patterns.confidence ELSE EXCLUDED.confidence END,
			verifications = CASE WHEN email_patterns.template = EXCLUDED.template THEN email_patterns.verifications ELSE 0 END,
			successes = CASE WHEN email_patterns.template = EXCLUDED.template THEN email_patterns.successes ELSE 0 END,
			template = EXCLUDED.template,
			sample_size = EXCLUDED.sample_size,
			matches = EXCLUDED.matches,
			updated_at = EXCLUDED.updated_at
		RETURNING `+postgresPatternColumns,
		normalizeDomain(p.Domain), string(p.Template), p.Confidence, p.SampleSize, matches, time.Now().UTC(),
	)
	r, err := scanRecord(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: save pattern %s", p.Domain)
	}
	return r, nil
}

// ImportPatterns bulk-loads patterns through a staged COPY.
func (s *PostgresStore) ImportPatterns(ctx context.Context, patterns []model.Pattern) (int64, error) {
	now := time.Now().UTC()
	rows := make([][]any, 0, len(patterns))
	for _, p := range patterns {
		matches, err := marshalMatches(p.Matches)
		if err != nil {
			return 0, err
		}
		rows = append(rows, []any{
			normalizeDomain(p.Domain), string(p.Template), p.Confidence, p.SampleSize, matches, now,
		})
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "email_patterns",
		Columns:      []string{"domain", "template", "confidence", "sample_size", "matches", "updated_at"},
		ConflictKeys: []string{"domain"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: import patterns")
	}
	return n, nil
}

func (s *PostgresStore) RecordVerification(ctx context.Context, domain string, success bool) (*Record, error) {
	inc := 0
	if success {
		inc = 1
	}
	row := s.pool.QueryRow(ctx, `
		UPDATE email_patterns
		SET verifications = verifications + 1, successes = successes + $1, updated_at = $2
		WHERE domain = $3
		RETURNING `+postgresPatternColumns,
		inc, time.Now().UTC(), normalizeDomain(domain),
	)
	r, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: record verification %s", domain)
	}
	return r, nil
}

func (s *PostgresStore) SetConfidence(ctx context.Context, domain string, confidence float64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE email_patterns SET confidence = $1, updated_at = $2 WHERE domain = $3`,
		confidence, time.Now().UTC(), normalizeDomain(domain),
	)
	return eris.Wrapf(err, "postgres: set confidence %s", domain)
}

func (s *PostgresStore) ListPatterns(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+postgresPatternColumns+` FROM email_patterns ORDER BY domain LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list patterns")
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan pattern")
		}
		out = append(out, *r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate patterns")
}
