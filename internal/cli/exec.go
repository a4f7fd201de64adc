package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/nlsql/internal/config"
	"github.com/roach88/nlsql/internal/emitter"
	"github.com/roach88/nlsql/internal/resolve"
	"github.com/roach88/nlsql/internal/store"
)

// backends are the optional databases around resolution: the target that
// emitted SQL runs against and the history log.
type backends struct {
	target  *sql.DB
	history *store.Store
	execute bool
	limit   int
	verify  bool
}

// openBackends opens what cfg asks for. --execute without --db is a usage
// error.
func openBackends(cfg *config.Config) (*backends, error) {
	b := &backends{execute: cfg.ExecuteSQL, limit: cfg.LimitRows, verify: cfg.VerifySQL}
	if cfg.ExecuteSQL && cfg.DB == "" {
		return nil, errors.New("--execute requires --db")
	}
	if cfg.DB != "" {
		db, err := store.OpenTarget(cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("target database %s: %w", cfg.DB, err)
		}
		b.target = db
	}
	if cfg.History != "" {
		h, err := store.Open(cfg.History)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("history database %s: %w", cfg.History, err)
		}
		b.history = h
	}
	return b, nil
}

func (b *backends) Close() {
	if b.target != nil {
		b.target.Close()
	}
	if b.history != nil {
		b.history.Close()
	}
}

// QueryOutput is one resolved query with its execution result.
type QueryOutput struct {
	resolve.Result
	Rows      *store.Rows `json:"rows,omitempty"`
	ExecError string      `json:"exec_error,omitempty"`
}

// Failed reports whether the query failed to resolve or to run.
func (q QueryOutput) Failed() bool {
	return !q.OK || q.ExecError != ""
}

// process runs the post-resolution steps in order: sqlite verification,
// execution and history.
func (b *backends) process(ctx context.Context, res resolve.Result, fingerprint string) (QueryOutput, error) {
	out := QueryOutput{Result: res}

	if res.OK && b.verify && b.target != nil && res.Dialect == emitter.SQLite {
		if err := store.Explain(ctx, b.target, res.SQL); err != nil {
			out.Warnings = append(out.Warnings, err.Error())
		}
	}

	if res.OK && b.execute {
		rows, err := store.Run(ctx, b.target, res.SQL, b.limit)
		if err != nil {
			out.ExecError = err.Error()
		} else {
			out.Rows = rows
		}
	}

	if b.history != nil {
		err := b.history.Append(ctx, store.Record{
			ID:           res.ID,
			Input:        res.Input,
			Dialect:      string(res.Dialect),
			OK:           res.OK,
			Canonical:    res.Canonical(),
			SQL:          res.SQL,
			FailCategory: string(res.FailCategory),
			Relaxed:      res.Relaxed,
			Catalog:      fingerprint,
		})
		if err != nil {
			return out, err
		}
	}
	return out, nil
}
