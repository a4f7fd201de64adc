package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Querier is the subset of *sql.DB used to run emitted SQL.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Rows is a fully read query result. Values are rendered as text; NULL is
// "NULL".
type Rows struct {
	Columns []string   `json:"columns"`
	Values  [][]string `json:"rows"`
}

// OpenTarget opens the database emitted SQL runs against.
func OpenTarget(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// WithLimit strips a trailing semicolon and appends "LIMIT n" when n > 0.
func WithLimit(stmt string, n int) string {
	stmt = strings.TrimSuffix(strings.TrimSpace(stmt), ";")
	if n > 0 {
		stmt = fmt.Sprintf("%s LIMIT %d", stmt, n)
	}
	return stmt
}

// Run executes an emitted SELECT with a row limit and reads every row.
func Run(ctx context.Context, q Querier, stmt string, limit int) (*Rows, error) {
	rows, err := q.QueryContext(ctx, WithLimit(stmt, limit))
	if err != nil {
		return nil, fmt.Errorf("failed to execute SQL: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}
	out := &Rows{Columns: cols}

	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make([]string, len(cols))
		for i, v := range raw {
			row[i] = render(v)
		}
		out.Values = append(out.Values, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return out, nil
}

// Explain asks SQLite to plan stmt without running it. A nil error means
// the statement is valid against this database's schema.
func Explain(ctx context.Context, q Querier, stmt string) error {
	rows, err := q.QueryContext(ctx, "EXPLAIN "+WithLimit(stmt, 0))
	if err != nil {
		return fmt.Errorf("SQLite rejected statement: %w", err)
	}
	return rows.Close()
}

func render(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}
