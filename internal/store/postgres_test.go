package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/email-finder/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })
	return NewPostgresWithPool(mock), mock
}

var patternCols = []string{"domain", "template", "confidence", "sample_size", "matches", "verifications", "successes", "updated_at"}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS email_patterns`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetPattern(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT domain, template, confidence, sample_size, matches, verifications, successes, updated_at FROM email_patterns WHERE domain = \$1`).
		WithArgs("acme.com").
		WillReturnRows(pgxmock.NewRows(patternCols).
			AddRow("acme.com", "first.last", 0.8, 3, []byte(`{"first.last":3}`), 4, 3, now))

	rec, err := s.GetPattern(context.Background(), "www.acme.com")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, model.TemplateFirstDotLast, rec.Pattern.Template)
	assert.Equal(t, 3, rec.Pattern.Matches[model.TemplateFirstDotLast])
	assert.Equal(t, 4, rec.Verifications)
	assert.InDelta(t, 0.75, rec.Stats().SuccessRate(), 0.0001)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetPattern_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM email_patterns WHERE domain = \$1`).
		WithArgs("unknown.com").
		WillReturnError(pgx.ErrNoRows)

	rec, err := s.GetPattern(context.Background(), "unknown.com")
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetPattern_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM email_patterns WHERE domain = \$1`).
		WithArgs("acme.com").
		WillReturnError(errors.New("connection reset"))

	_, err := s.GetPattern(context.Background(), "acme.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get pattern")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SavePattern(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`INSERT INTO email_patterns .* ON CONFLICT \(domain\) DO UPDATE SET`).
		WithArgs("acme.com", "first.last", 0.8, 3, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(patternCols).
			AddRow("acme.com", "first.last", 0.8, 3, []byte(`{"first.last":3}`), 0, 0, now))

	rec, err := s.SavePattern(context.Background(), acmePattern(model.TemplateFirstDotLast, 0.8))
	require.NoError(t, err)
	assert.InDelta(t, 0.8, rec.Pattern.Confidence, 0.0001)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordVerification(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`UPDATE email_patterns\s+SET verifications = verifications \+ 1`).
		WithArgs(1, pgxmock.AnyArg(), "acme.com").
		WillReturnRows(pgxmock.NewRows(patternCols).
			AddRow("acme.com", "first.last", 0.8, 3, []byte(`{}`), 3, 3, now))

	rec, err := s.RecordVerification(context.Background(), "acme.com", true)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 3, rec.Successes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordVerification_NoPattern(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`UPDATE email_patterns`).
		WithArgs(0, pgxmock.AnyArg(), "acme.com").
		WillReturnError(pgx.ErrNoRows)

	rec, err := s.RecordVerification(context.Background(), "acme.com", false)
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetConfidence(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE email_patterns SET confidence = \$1`).
		WithArgs(0.85, pgxmock.AnyArg(), "acme.com").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.SetConfidence(context.Background(), "acme.com", 0.85))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ImportPatterns(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	cols := []string{"domain", "template", "confidence", "sample_size", "matches", "updated_at"}
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_stage_email_patterns"}, cols).WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "email_patterns"`).WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := s.ImportPatterns(context.Background(), []model.Pattern{
		acmePattern(model.TemplateFirstDotLast, 0.8),
		{Domain: "globex.com", Template: model.TemplateFLast, Confidence: 0.7},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListPatterns(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT .* FROM email_patterns ORDER BY domain LIMIT \$1`).
		WithArgs(defaultListLimit).
		WillReturnRows(pgxmock.NewRows(patternCols).
			AddRow("acme.com", "first.last", 0.8, 3, []byte(`{"first.last":3}`), 0, 0, now).
			AddRow("globex.com", "flast", 0.7, 2, []byte(`{"flast":2}`), 1, 1, now))

	list, err := s.ListPatterns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "globex.com", list[1].Pattern.Domain)
	assert.Equal(t, model.TemplateFLast, list[1].Pattern.Template)
	assert.NoError(t, mock.ExpectationsWereMet())
}
