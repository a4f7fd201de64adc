// Package emitter renders bindings as SQL SELECT statements for a dialect.
package emitter

import (
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"

	"github.com/roach88/nlsql/internal/binder"
	"github.com/roach88/nlsql/internal/ir"
	"github.com/roach88/nlsql/internal/tokenize"
)

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Result is one emitted statement plus its non-fatal warnings.
type Result struct {
	SQL      string
	Warnings []string
}

// Emitter compiles bindings against one catalog.
type Emitter struct {
	catalog *ir.Catalog
	binder  *binder.Binder
	verify  bool
	logger  *slog.Logger
}

// Option configures an Emitter.
type Option func(*Emitter)

// WithBinder sets the binder EmitCanonical uses. Defaults to strict binding.
func WithBinder(b *binder.Binder) Option {
	return func(e *Emitter) {
		e.binder = b
	}
}

// WithVerify runs the dialect parser over every emitted statement and
// reports a failure as a warning.
func WithVerify(verify bool) Option {
	return func(e *Emitter) {
		e.verify = verify
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Emitter) {
		e.logger = l
	}
}

// New creates an Emitter for c.
func New(c *ir.Catalog, opts ...Option) *Emitter {
	e := &Emitter{catalog: c, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	if e.binder == nil {
		e.binder = binder.New(c, binder.StrictOptions())
	}
	return e
}

// EmitCanonical binds a canonical string and emits it.
func (e *Emitter) EmitCanonical(canonical string, d Dialect) (Result, error) {
	b, err := e.binder.Bind(tokenize.Canonical(canonical))
	if err != nil {
		return Result{}, err
	}
	return e.Emit(b, d)
}

// Emit renders b as `SELECT <items> FROM <table>;`.
func (e *Emitter) Emit(b ir.Binding, d Dialect) (Result, error) {
	if len(b.Items) == 0 {
		return Result{}, fmt.Errorf("cannot emit binding with no select items")
	}
	if b.Table == "" {
		return Result{}, fmt.Errorf("cannot emit binding with no table")
	}

	r := &render{catalog: e.catalog, dialect: d, table: b.Table}
	items := make([]string, 0, len(b.Items))
	for _, it := range b.Items {
		s, err := r.selectable(it)
		if err != nil {
			return Result{}, err
		}
		items = append(items, s)
	}

	sql := fmt.Sprintf("SELECT %s FROM %s;", strings.Join(items, ", "), d.Quote(b.Table))

	if e.verify {
		if err := Verify(sql, d); err != nil {
			e.logger.Warn("emitted SQL failed verification", "dialect", d, "error", err)
			r.warn(err.Error())
		}
	}
	return Result{SQL: sql, Warnings: r.warnings}, nil
}

type render struct {
	catalog  *ir.Catalog
	dialect  Dialect
	table    string
	warnings []string
}

func (r *render) warn(msg string) {
	if !slices.Contains(r.warnings, msg) {
		r.warnings = append(r.warnings, msg)
	}
}

func (r *render) selectable(s ir.Selectable) (string, error) {
	switch v := s.(type) {
	case ir.ColumnRef:
		return r.column(v), nil
	case ir.FunctionCall:
		return r.function(v)
	default:
		return "", fmt.Errorf("unsupported selectable type: %T", s)
	}
}

// column qualifies with the owning table, falling back to the FROM table.
func (r *render) column(ref ir.ColumnRef) string {
	owner := r.table
	if col, ok := r.catalog.Column(ref.ID); ok && col.Table != "" {
		owner = col.Table
	}
	return r.dialect.Quote(owner) + "." + r.dialect.Quote(ir.ColumnName(ref.ID))
}

func (r *render) function(call ir.FunctionCall) (string, error) {
	fn, _ := r.catalog.Function(call.Function)

	if strings.HasPrefix(strings.ToLower(call.Function), "st_") && !r.dialect.SupportsSpatial() {
		r.warn(fmt.Sprintf("Function '%s' looks PostGIS; %s may not support it.", call.Function, r.dialect.Title()))
	}

	args := call.Args
	if n := fn.Arity(); n > 0 && len(args) > n {
		r.warn(fmt.Sprintf("Function '%s' takes %d argument(s); ignoring %d extra.", call.Function, n, len(args)-n))
		args = args[:n]
	}

	rendered := make([]string, 0, len(args))
	for _, a := range args {
		s, err := r.selectable(a)
		if err != nil {
			return "", err
		}
		rendered = append(rendered, s)
	}

	if fn.Template == "" {
		return fmt.Sprintf("%s(%s)", call.Function, strings.Join(rendered, ", ")), nil
	}
	return r.fill(call.Function, fn, rendered)
}

// fill substitutes template placeholders. Declared roles map to the argument
// at the same index; {column} and {value} fall back to the first and second
// argument; {columns} is every argument; {table} is the FROM table.
func (r *render) fill(name string, fn ir.Function, args []string) (string, error) {
	var missing string
	out := placeholderPattern.ReplaceAllStringFunc(fn.Template, func(m string) string {
		key := m[1 : len(m)-1]
		idx := slices.Index(fn.Args, key)
		switch {
		case idx >= 0:
		case key == "table":
			return r.dialect.Quote(r.table)
		case key == "columns":
			if len(args) == 0 && missing == "" {
				missing = key
			}
			return strings.Join(args, ", ")
		case key == "column":
			idx = 0
		case key == "value":
			idx = 1
		default:
			idx = len(args)
		}
		if idx >= len(args) {
			if missing == "" {
				missing = key
			}
			return m
		}
		return args[idx]
	})
	if missing != "" {
		return "", &TemplateError{Function: name, Placeholder: missing, Args: len(args)}
	}
	return out, nil
}

// Placeholders lists the placeholder names used by a template, in order of
// first use.
func Placeholders(template string) []string {
	var out []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(template, -1) {
		if !slices.Contains(out, m[1]) {
			out = append(out, m[1])
		}
	}
	return out
}

// KnownPlaceholder reports whether name can ever be filled for fn. Calls
// are cut to fn.Arity() arguments before filling, so the positional
// fallbacks only count when the arity leaves room for them; arity 0 is
// unbounded.
func KnownPlaceholder(fn ir.Function, name string) bool {
	if slices.Contains(fn.Args, name) {
		return true
	}
	n := fn.Arity()
	switch name {
	case "table":
		return true
	case "columns", "column":
		return n == 0 || n >= 1
	case "value":
		return n == 0 || n >= 2
	}
	return false
}
