package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesFileAndSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	require.NoError(t, err, "database file was not created")

	var count int
	require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM resolutions").Scan(&count))
	assert.Zero(t, count)
}

func TestOpen_ReopenKeepsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, Record{ID: "r1", Input: "show age in people", Dialect: "sqlite", OK: true}))
	require.NoError(t, s.Close())

	// Reopening applies the schema and migrations again without touching rows.
	for i := 0; i < 3; i++ {
		s, err = Open(path)
		require.NoError(t, err, "open %d", i)
		records, err := s.List(ctx, 0)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "show age in people", records[0].Input)
		require.NoError(t, s.Close())
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/history.db")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to database")
}

func TestClose(t *testing.T) {
	assert.NoError(t, (&Store{}).Close(), "zero Store")

	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.NotPanics(t, func() { _ = s.Close() })
}

func TestPragmas(t *testing.T) {
	s := openHistory(t)

	testCases := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"}, // NORMAL
		{"busy_timeout", "5000"},
		{"user_version", "1"},
	}

	for _, tc := range testCases {
		t.Run(tc.pragma, func(t *testing.T) {
			assert.NoError(t, s.verifyPragma(tc.pragma, tc.want))
		})
	}
}

func TestSchema_Resolutions(t *testing.T) {
	s := openHistory(t)

	assert.ElementsMatch(t, []string{
		"id", "input", "dialect", "ok", "canonical", "sql_text",
		"fail_category", "relaxed", "catalog", "created_at",
	}, tableColumns(t, s.DB(), "resolutions"))
	assert.Contains(t, tableIndexes(t, s.DB(), "resolutions"), "idx_resolutions_created")
}

func TestSchema_DuplicateID(t *testing.T) {
	s := openHistory(t)
	ctx := context.Background()

	rec := Record{ID: "r1", Input: "show age in people", Dialect: "sqlite"}
	require.NoError(t, s.Append(ctx, rec))
	err := s.Append(ctx, rec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "append resolution r1")
}

func TestMigration_UpgradesVersionZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	// A version 0 database has the table without the catalog column.
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE resolutions (
		id TEXT PRIMARY KEY, input TEXT NOT NULL, dialect TEXT NOT NULL, ok INTEGER NOT NULL,
		canonical TEXT NOT NULL DEFAULT '', sql_text TEXT NOT NULL DEFAULT '',
		fail_category TEXT NOT NULL DEFAULT '', relaxed INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO resolutions (id, input, dialect, ok, created_at)
		VALUES ('old', 'show age', 'sqlite', 1, '2024-01-01T00:00:00.000000000Z')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	assert.Contains(t, tableColumns(t, s.DB(), "resolutions"), "catalog")
	assert.NoError(t, s.verifyPragma("user_version", "1"))

	records, err := s.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Empty(t, records[0].Catalog)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), records[0].CreatedAt)
}

func tableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	return queryNames(t, db, "SELECT name FROM pragma_table_info(?)", table)
}

func tableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	return queryNames(t, db, "SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=?", table)
}

func queryNames(t *testing.T, db *sql.DB, query string, args ...any) []string {
	t.Helper()
	rows, err := db.Query(query, args...)
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	return names
}
