package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nlsql/internal/config"
	"github.com/roach88/nlsql/internal/emitter"
	"github.com/roach88/nlsql/internal/resolve"
	"github.com/roach88/nlsql/internal/store"
)

func okResult(dialect emitter.Dialect) resolve.Result {
	return resolve.Result{
		ID:                  "0190a1b2-c3d4-7e5f-8a9b-0c1d2e3f4a5b",
		Input:               "show age in people",
		Dialect:             dialect,
		OK:                  true,
		SerializedCanonical: "select users.age from users",
		SQL:                 `SELECT "users"."age" FROM "users";`,
	}
}

func TestBackendsProcess_Execute(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT "users"."age" FROM "users" LIMIT 5`).
		WillReturnRows(sqlmock.NewRows([]string{"age"}).AddRow(36).AddRow(nil))

	b := &backends{target: db, execute: true, limit: 5}
	out, err := b.process(context.Background(), okResult(emitter.SQLite), "fp")
	require.NoError(t, err)

	assert.False(t, out.Failed())
	require.NotNil(t, out.Rows)
	assert.Equal(t, []string{"age"}, out.Rows.Columns)
	assert.Equal(t, [][]string{{"36"}, {"NULL"}}, out.Rows.Values)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBackendsProcess_ExecError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).WillReturnError(assert.AnError)

	b := &backends{target: db, execute: true}
	out, err := b.process(context.Background(), okResult(emitter.SQLite), "fp")
	require.NoError(t, err)

	assert.True(t, out.OK)
	assert.True(t, out.Failed())
	assert.Contains(t, out.ExecError, "failed to execute SQL")
	assert.Nil(t, out.Rows)
}

func TestBackendsProcess_VerifyOnlySQLite(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`EXPLAIN SELECT "users"."age" FROM "users"`).WillReturnError(assert.AnError)

	b := &backends{target: db, verify: true}
	out, err := b.process(context.Background(), okResult(emitter.SQLite), "fp")
	require.NoError(t, err)
	require.Len(t, out.Warnings, 1)
	assert.True(t, strings.HasPrefix(out.Warnings[0], "SQLite rejected statement"))

	// Other dialects never reach the database.
	out, err = b.process(context.Background(), okResult(emitter.Postgres), "fp")
	require.NoError(t, err)
	assert.Empty(t, out.Warnings)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBackendsProcess_FailureSkipsExecution(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	h, err := store.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer h.Close()

	res := resolve.Result{
		ID:           "0190a1b2-c3d4-7e5f-8a9b-0c1d2e3f4a5c",
		Input:        "show salary in people",
		Dialect:      emitter.SQLite,
		FailCategory: resolve.FailNormalizerZero,
	}
	b := &backends{target: db, history: h, execute: true, verify: true}
	out, err := b.process(context.Background(), res, "catalog-fp")
	require.NoError(t, err)
	assert.True(t, out.Failed())
	assert.Empty(t, out.ExecError)
	assert.NoError(t, mock.ExpectationsWereMet())

	records, err := h.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.False(t, records[0].OK)
	assert.Equal(t, "normalizer_zero", records[0].FailCategory)
	assert.Equal(t, "catalog-fp", records[0].Catalog)
}

func TestOpenBackends(t *testing.T) {
	_, err := openBackends(&config.Config{ExecuteSQL: true})
	require.Error(t, err)
	assert.Equal(t, "--execute requires --db", err.Error())

	b, err := openBackends(&config.Config{})
	require.NoError(t, err)
	assert.Nil(t, b.target)
	assert.Nil(t, b.history)
	b.Close()

	_, err = openBackends(&config.Config{DB: filepath.Join(t.TempDir(), "missing.db")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target database")
}

func TestRenderRows(t *testing.T) {
	var buf bytes.Buffer
	renderRows(&buf, &store.Rows{Columns: []string{"name", "age"}, Values: [][]string{{"ada", "36"}}})
	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "ada")
	assert.True(t, strings.HasSuffix(out, "(1 row)\n"))

	buf.Reset()
	renderRows(&buf, &store.Rows{Columns: []string{"name"}})
	assert.True(t, strings.HasSuffix(buf.String(), "(0 rows)\n"))

	buf.Reset()
	renderRows(&buf, &store.Rows{})
	assert.Equal(t, "(0 rows)\n", buf.String())
}

func TestRenderHistory(t *testing.T) {
	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	renderHistory(&buf, []store.Record{
		{ID: "a", Input: "show age in people", Dialect: "sqlite", OK: true, SQL: "SELECT 1;", Relaxed: true, CreatedAt: at},
		{ID: "b", Input: "show salary in people", Dialect: "postgres", FailCategory: "normalizer_zero", CreatedAt: at},
	})
	out := buf.String()
	assert.Contains(t, out, "SELECT 1; (lenient)")
	assert.Contains(t, out, "[FAIL:normalizer_zero]")
	assert.Contains(t, out, "✓")
	assert.Contains(t, out, "✗")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
	assert.Equal(t, "a b", truncate("a\nb", 10))
}
