package emitter

import (
	"fmt"
	"slices"
	"strings"
)

// Dialect is a target SQL dialect.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
	DuckDB   Dialect = "duckdb"
	MySQL    Dialect = "mysql"
)

// Dialects lists the supported dialects.
var Dialects = []Dialect{SQLite, Postgres, DuckDB, MySQL}

// ParseDialect resolves a dialect name. "postgresql" and "pg" are accepted
// for postgres.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql", "pg":
		return Postgres, nil
	case "duckdb":
		return DuckDB, nil
	case "mysql":
		return MySQL, nil
	}
	return "", fmt.Errorf("unknown dialect %q (want one of %s)", name, dialectNames())
}

func dialectNames() string {
	names := make([]string, len(Dialects))
	for i, d := range Dialects {
		names[i] = string(d)
	}
	slices.Sort(names)
	return strings.Join(names, ", ")
}

// Title is the display name used in warnings.
func (d Dialect) Title() string {
	switch d {
	case SQLite:
		return "SQLite"
	case Postgres:
		return "PostgreSQL"
	case DuckDB:
		return "DuckDB"
	case MySQL:
		return "MySQL"
	}
	return string(d)
}

// SupportsSpatial reports whether ST_* functions are built in.
func (d Dialect) SupportsSpatial() bool {
	return d == Postgres || d == MySQL
}

// Quote quotes an identifier, quoting each dotted part separately.
func (d Dialect) Quote(ident string) string {
	q := `"`
	if d == MySQL {
		q = "`"
	}
	parts := strings.Split(ident, ".")
	for i, p := range parts {
		parts[i] = q + strings.ReplaceAll(p, q, q+q) + q
	}
	return strings.Join(parts, ".")
}
