package emitter

import (
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v5"
	"github.com/xwb1989/sqlparser"
)

// Verify parses sql with the dialect's own parser when one is available.
// PostgreSQL uses libpg_query, MySQL uses the vitess-derived sqlparser.
// SQLite and DuckDB have no in-process parser here and always pass; the
// store can check SQLite statements against a live database instead.
func Verify(sql string, d Dialect) error {
	var err error
	switch d {
	case Postgres:
		_, err = pg_query.Parse(sql)
	case MySQL:
		_, err = sqlparser.Parse(strings.TrimSuffix(strings.TrimSpace(sql), ";"))
	}
	if err != nil {
		return &VerifyError{Dialect: d, SQL: sql, Err: err}
	}
	return nil
}
