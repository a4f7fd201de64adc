package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/nlsql/internal/artifacts"
	"github.com/roach88/nlsql/internal/binder"
	"github.com/roach88/nlsql/internal/emitter"
	"github.com/roach88/nlsql/internal/resolve"
	"github.com/roach88/nlsql/internal/store"
	"github.com/roach88/nlsql/internal/testutil"
)

// Harness is the scenario execution engine.
// It resolves cases with deterministic resolution ids.
type Harness struct {
	set      *artifacts.Set
	resolver *resolve.Resolver
	db       *store.Store
	logger   *slog.Logger
	jobs     int
}

// Option configures Run.
type Option func(*Harness)

// WithJobs resolves up to n cases concurrently. Results stay in case order.
func WithJobs(n int) Option {
	return func(h *Harness) {
		h.jobs = n
	}
}

// WithArtifacts reuses an already loaded artifact set instead of loading
// the scenario's directory.
func WithArtifacts(set *artifacts.Set) Option {
	return func(h *Harness) {
		h.set = set
	}
}

// WithLogger sets the logger passed to the resolver.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// Run executes a scenario and returns the result.
//
// Setup statements, if any, run in a fresh in-memory database so scenarios
// stay isolated. An error is returned only when the scenario cannot run at
// all; failed expectations are reported in the Result.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		jobs:   1,
	}
	for _, opt := range opts {
		opt(h)
	}

	if h.set == nil {
		set, err := artifacts.Load(scenario.Artifacts)
		if err != nil {
			return nil, fmt.Errorf("failed to load artifacts: %w", err)
		}
		h.set = set
	}

	dialect := emitter.SQLite
	if scenario.Dialect != "" {
		d, err := emitter.ParseDialect(scenario.Dialect)
		if err != nil {
			return nil, err
		}
		dialect = d
	}

	autoRelax := true
	if scenario.AutoRelax != nil {
		autoRelax = *scenario.AutoRelax
	}

	h.resolver = resolve.New(h.set.Catalog, h.set.Vocabulary, h.set.Grammar,
		resolve.WithDialect(dialect),
		resolve.WithAutoRelax(autoRelax),
		resolve.WithIDGenerator(testutil.NewSequenceIDGenerator("res")),
		resolve.WithLogger(h.logger),
	)

	if len(scenario.Setup) > 0 {
		db, err := store.Open(":memory:")
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory database: %w", err)
		}
		defer db.Close()
		for i, stmt := range scenario.Setup {
			if _, err := db.DB().ExecContext(ctx, stmt); err != nil {
				return nil, fmt.Errorf("setup[%d]: %w", i, err)
			}
		}
		h.db = db
	}

	reqs, err := requests(scenario.Cases)
	if err != nil {
		return nil, err
	}
	resolved, err := h.resolver.ResolveBatch(ctx, reqs, h.jobs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cases: %w", err)
	}

	result := NewResult()
	for i, res := range resolved {
		cr := newCaseResult(res)
		cr.Errors = h.check(ctx, &cr, scenario.Cases[i].Expect)
		for _, msg := range cr.Errors {
			result.AddError(fmt.Sprintf("cases[%d] %q: %s", i, cr.Input, msg))
		}
		result.Cases = append(result.Cases, cr)
	}
	return result, nil
}

func requests(cases []Case) ([]resolve.Request, error) {
	reqs := make([]resolve.Request, len(cases))
	for i, c := range cases {
		req := resolve.Request{Text: c.Input, TopK: c.TopK}
		if c.Dialect != "" {
			d, err := emitter.ParseDialect(c.Dialect)
			if err != nil {
				return nil, fmt.Errorf("cases[%d]: %w", i, err)
			}
			req.Dialect = d
		}
		if c.Strict != nil {
			opts := binder.StrictOptions()
			if !*c.Strict {
				opts = binder.RelaxedOptions()
			}
			req.Binder = &opts
		}
		reqs[i] = req
	}
	return reqs, nil
}

// check evaluates e against cr, running the SQL when rows are expected.
func (h *Harness) check(ctx context.Context, cr *CaseResult, e Expect) []string {
	errs := checkExpect(*cr, e)
	if e.Rows == nil {
		return errs
	}
	if !cr.OK {
		return append(errs, "rows: no SQL to execute")
	}

	rows, err := store.Run(ctx, h.db.DB(), cr.SQL, 0)
	if err != nil {
		return append(errs, fmt.Sprintf("rows: %v", err))
	}
	cr.Rows = len(rows.Values)
	if cr.Rows != *e.Rows {
		errs = append(errs, (&ExpectationError{
			Field:    "rows",
			Expected: fmt.Sprint(*e.Rows),
			Actual:   fmt.Sprint(cr.Rows),
		}).Error())
	}
	return errs
}
