package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/email-finder/internal/model"
)

// SQLiteStore implements PatternStore using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

var _ PatternStore = (*SQLiteStore)(nil)

// NewSQLite opens a SQLite database at dsn and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS email_patterns (
	domain        TEXT PRIMARY KEY,
	template      TEXT NOT NULL,
	confidence    REAL NOT NULL,
	sample_size   INTEGER NOT NULL DEFAULT 0,
	matches       TEXT,
	verifications INTEGER NOT NULL DEFAULT 0,
	successes     INTEGER NOT NULL DEFAULT 0,
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_email_patterns_updated_at ON email_patterns(updated_at);
`

const sqlitePatternColumns = `domain, template, confidence, sample_size, matches, verifications, successes, updated_at`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetPattern(ctx context.Context, domain string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqlitePatternColumns+` FROM email_patterns WHERE domain = ?`,
		normalizeDomain(domain),
	)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get pattern %s", domain)
	}
	return r, nil
}

func (s *SQLiteStore) SavePattern(ctx context.Context, p model.Pattern) (*Record, error) {
	matches, err := marshalMatches(p.Matches)
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO email_patterns (domain, template, confidence, sample_size, matches, verifications, successes, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, 0, ?)
		ON CONFLICT(domain) DO UPDATE SET
			confidence = CASE WHEN email_patterns.template = excluded.template THEN email_patterns.confidence ELSE excluded.confidence END,
			verifications = CASE WHEN email_patterns.template = excluded.template THEN email_patterns.verifications ELSE 0 END,
			successes = CASE WHEN email_patterns.template = excluded.template THEN email_patterns.successes ELSE 0 END,
			template = excluded.template,
			sample_size = excluded.sample_size,
			matches = excluded.matches,
			updated_at = excluded.updated_at
		RETURNING `+sqlitePatternColumns,
		normalizeDomain(p.Domain), string(p.Template), p.Confidence, p.SampleSize, matches, time.Now().UTC(),
	)
	r, err := scanRecord(row)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: save pattern %s", p.Domain)
	}
	return r, nil
}

func (s *SQLiteStore) ImportPatterns(ctx context.Context, patterns []model.Pattern) (int64, error) {
	if len(patterns) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: import: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	var n int64
	for _, p := range patterns {
		matches, err := marshalMatches(p.Matches)
		if err != nil {
			return 0, err
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO email_patterns (domain, template, confidence, sample_size, matches, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(domain) DO UPDATE SET
				template = excluded.template,
				confidence = excluded.confidence,
				sample_size = excluded.sample_size,
				matches = excluded.matches,
				updated_at = excluded.updated_at`,
			normalizeDomain(p.Domain), string(p.Template), p.Confidence, p.SampleSize, matches, now,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: import pattern %s", p.Domain)
		}
		affected, _ := res.RowsAffected()
		n += affected
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: import: commit tx")
	}
	return n, nil
}

func (s *SQLiteStore) RecordVerification(ctx context.Context, domain string, success bool) (*Record, error) {
	inc := 0
	if success {
		inc = 1
	}
	row := s.db.QueryRowContext(ctx, `
		UPDATE email_patterns
		SET verifications = verifications + 1, successes = successes + ?, updated_at = ?
		WHERE domain = ?
		RETURNING `+sqlitePatternColumns,
		inc, time.Now().UTC(), normalizeDomain(domain),
	)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: record verification %s", domain)
	}
	return r, nil
}

func (s *SQLiteStore) SetConfidence(ctx context.Context, domain string, confidence float64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE email_patterns SET confidence = ?, updated_at = ? WHERE domain = ?`,
		confidence, time.Now().UTC(), normalizeDomain(domain),
	)
	return eris.Wrapf(err, "sqlite: set confidence %s", domain)
}

func (s *SQLiteStore) ListPatterns(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqlitePatternColumns+` FROM email_patterns ORDER BY domain LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list patterns")
	}
	defer rows.Close() //nolint:errcheck

	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan pattern")
		}
		out = append(out, *r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate patterns")
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRecord(row scannable) (*Record, error) {
	var (
		r        Record
		template string
		matches  []byte
	)
	err := row.Scan(
		&r.Pattern.Domain, &template, &r.Pattern.Confidence, &r.Pattern.SampleSize,
		&matches, &r.Verifications, &r.Successes, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Pattern.Template = model.Template(template)
	if r.Pattern.Matches, err = unmarshalMatches(matches); err != nil {
		return nil, err
	}
	return &r, nil
}

func marshalMatches(m map[model.Template]int) ([]byte, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal matches")
	}
	return b, nil
}

func unmarshalMatches(b []byte) (map[model.Template]int, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var m map[model.Template]int
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal matches")
	}
	return m, nil
}
