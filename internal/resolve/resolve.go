// Package resolve turns natural-language text into SQL by composing the
// normalizer, binder, grammar and emitter, trying candidates in order and
// relaxing strictness when every failure is a type mismatch.
package resolve

import (
	"errors"
	"log/slog"

	"github.com/roach88/nlsql/internal/binder"
	"github.com/roach88/nlsql/internal/emitter"
	"github.com/roach88/nlsql/internal/grammar"
	"github.com/roach88/nlsql/internal/ir"
	"github.com/roach88/nlsql/internal/normalize"
	"github.com/roach88/nlsql/internal/tokenize"
)

// DefaultTopK is how many candidates are tried when no budget is given.
const DefaultTopK = 5

// MaxTopK bounds the candidate budget.
const MaxTopK = 50

// Resolver is safe for concurrent use once constructed: the catalog,
// grammar and normalizer are read-only.
type Resolver struct {
	catalog    *ir.Catalog
	grammar    *grammar.Grammar
	normalizer *normalize.Normalizer
	binderOpts binder.Options
	autoRelax  bool
	topk       int
	dialect    emitter.Dialect
	verify     bool
	ids        IDGenerator
	logger     *slog.Logger

	normOpts []normalize.Option
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithTopK sets the default candidate budget. Clamped to 1..MaxTopK.
func WithTopK(k int) Option {
	return func(r *Resolver) {
		r.topk = ClampTopK(k)
	}
}

// WithLimits sets the normalizer's search caps.
func WithLimits(l normalize.Limits) Option {
	return func(r *Resolver) {
		r.normOpts = append(r.normOpts, normalize.WithLimits(l))
	}
}

// WithCaseInsensitive toggles case folding in the normalizer.
func WithCaseInsensitive(on bool) Option {
	return func(r *Resolver) {
		r.normOpts = append(r.normOpts, normalize.WithCaseInsensitive(on))
	}
}

// WithRecording keeps normalizer search events in diagnostics.
func WithRecording(on bool) Option {
	return func(r *Resolver) {
		r.normOpts = append(r.normOpts, normalize.WithRecording(on))
	}
}

// WithBinderOptions sets the first-pass binder strictness.
func WithBinderOptions(o binder.Options) Option {
	return func(r *Resolver) {
		r.binderOpts = o
	}
}

// WithAutoRelax retries a strict binder_fail once with coercion on when
// every binder error was a type mismatch.
func WithAutoRelax(on bool) Option {
	return func(r *Resolver) {
		r.autoRelax = on
	}
}

// WithDialect sets the default SQL dialect.
func WithDialect(d emitter.Dialect) Option {
	return func(r *Resolver) {
		r.dialect = d
	}
}

// WithVerify checks emitted SQL with the dialect's parser.
func WithVerify(on bool) Option {
	return func(r *Resolver) {
		r.verify = on
	}
}

// WithIDGenerator sets the resolution id source.
func WithIDGenerator(g IDGenerator) Option {
	return func(r *Resolver) {
		r.ids = g
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = l
	}
}

// New creates a Resolver. g must already have passed catalog validation.
func New(c *ir.Catalog, vocab ir.Vocabulary, g *grammar.Grammar, opts ...Option) *Resolver {
	r := &Resolver{
		catalog:    c,
		grammar:    g,
		binderOpts: binder.StrictOptions(),
		autoRelax:  true,
		topk:       DefaultTopK,
		dialect:    emitter.SQLite,
		ids:        UUIDv7Generator{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.normalizer = normalize.New(vocab, c, r.normOpts...)
	return r
}

// ClampTopK clamps k to 1..MaxTopK; zero or less means DefaultTopK.
func ClampTopK(k int) int {
	switch {
	case k <= 0:
		return DefaultTopK
	case k > MaxTopK:
		return MaxTopK
	}
	return k
}

// Catalog returns the resolver's catalog.
func (r *Resolver) Catalog() *ir.Catalog {
	return r.catalog
}

// Request overrides the resolver defaults for one call. Zero fields keep
// the defaults.
type Request struct {
	Text    string
	Dialect emitter.Dialect
	TopK    int
	Binder  *binder.Options
}

// Resolve resolves text with the resolver's defaults.
func (r *Resolver) Resolve(text string) Result {
	return r.ResolveRequest(Request{Text: text})
}

// ResolveRequest runs the full pipeline. It never returns an error: a
// failure is a Result with OK false, a FailCategory and diagnostics.
func (r *Resolver) ResolveRequest(req Request) Result {
	dialect := req.Dialect
	if dialect == "" {
		dialect = r.dialect
	}
	topk := r.topk
	if req.TopK != 0 {
		topk = ClampTopK(req.TopK)
	}
	opts := r.binderOpts
	if req.Binder != nil {
		opts = *req.Binder
	}

	res := Result{ID: r.ids.Generate(), Input: req.Text, Dialect: dialect}
	norm := r.normalizer.Normalize(req.Text)
	res.Diagnostics.Candidates = norm.Candidates
	res.Diagnostics.Normalizer = norm.Stats
	res.Diagnostics.Events = norm.Events
	if norm.Truncated != nil {
		res.Diagnostics.Truncated = norm.Truncated.Error()
	}

	if len(norm.Candidates) == 0 {
		res.FailCategory = FailNormalizerZero
		res.Error = "no normalization candidates"
		return res
	}

	out := r.attempt(res, norm.Candidates, topk, dialect, opts)
	if out.OK || out.FailCategory != FailBinder || !r.autoRelax || !opts.StrictTypes || !onlyTypeErrors(out.bindErrs) {
		return out
	}

	r.logger.Info("retrying resolution with coercion", "id", res.ID, "errors", len(out.bindErrs))
	relaxed := r.attempt(res, norm.Candidates, topk, dialect, opts.Relaxed())
	relaxed.Relaxed = true
	if !relaxed.OK {
		// Report the strict failure; it names the real mismatch.
		return out
	}
	return relaxed
}

func onlyTypeErrors(errs []*binder.BindError) bool {
	if len(errs) == 0 {
		return false
	}
	for _, e := range errs {
		if e.Kind != binder.KindTypeIncompatible {
			return false
		}
	}
	return true
}

// attempt tries up to topk candidates with one binder configuration.
func (r *Resolver) attempt(base Result, candidates []string, topk int, dialect emitter.Dialect, opts binder.Options) Result {
	res := base
	res.Diagnostics.Strict = opts.StrictTypes
	b := binder.New(r.catalog, opts)
	em := emitter.New(r.catalog, emitter.WithBinder(b), emitter.WithVerify(r.verify), emitter.WithLogger(r.logger))

	for _, cand := range candidates[:min(topk, len(candidates))] {
		res.Diagnostics.Considered++
		a := Attempt{Candidate: cand}

		toks := tokenize.Canonical(cand)
		binding, trace, err := b.BindWithTrace(toks)
		if kind, _ := binder.KindOf(err); kind == binder.KindUnknownIdentifier {
			if rewritten, ok := contextualize(toks, r.catalog); ok {
				a.Rewrites = append(a.Rewrites, "context")
				a.Trace = append(a.Trace, trace...)
				toks = rewritten
				binding, trace, err = b.BindWithTrace(toks)
			}
		}
		a.Canonical = tokenize.Join(toks)
		a.Trace = append(a.Trace, trace...)
		if err != nil {
			a.BindError = err.Error()
			res.Diagnostics.BinderErrors = append(res.Diagnostics.BinderErrors, err.Error())
			res.Diagnostics.Attempts = append(res.Diagnostics.Attempts, a)
			var be *binder.BindError
			if errors.As(err, &be) {
				res.bindErrs = append(res.bindErrs, be)
			}
			continue
		}
		res.Diagnostics.Bound++

		serialized, err := r.reparse(b.Serialize(binding))
		a.Serialized = serialized
		if err != nil {
			a.ParseError = err.Error()
			res.Diagnostics.ParserErrors = append(res.Diagnostics.ParserErrors, err.Error())
			res.Diagnostics.Attempts = append(res.Diagnostics.Attempts, a)
			continue
		}
		res.Diagnostics.Parsed++

		emitted, err := em.Emit(binding, dialect)
		if err != nil {
			a.EmitError = err.Error()
			res.Diagnostics.EmitterErrors = append(res.Diagnostics.EmitterErrors, err.Error())
			res.Diagnostics.Attempts = append(res.Diagnostics.Attempts, a)
			continue
		}
		res.Diagnostics.Attempts = append(res.Diagnostics.Attempts, a)
		for _, w := range emitted.Warnings {
			r.logger.Debug("emitter warning", "id", res.ID, "warning", w)
		}

		res.OK = true
		res.ChosenCanonical = a.Canonical
		res.SerializedCanonical = serialized
		res.SQL = emitted.SQL
		res.Warnings = emitted.Warnings
		return res
	}

	switch {
	case res.Diagnostics.Bound == 0:
		res.FailCategory = FailBinder
		res.Error = mostSpecific(res.bindErrs, res.Diagnostics.BinderErrors)
	case res.Diagnostics.Parsed == 0:
		res.FailCategory = FailParser
		res.Error = res.Diagnostics.ParserErrors[0]
	default:
		res.FailCategory = FailEmitter
		res.Error = res.Diagnostics.EmitterErrors[0]
	}
	return res
}

// reparse checks a serialized binding against the grammar, sanitizing list
// connectors once if the plain form is rejected.
func (r *Resolver) reparse(serialized string) (string, error) {
	if r.grammar.AcceptsString(serialized) {
		return serialized, nil
	}
	if sanitized, changed := normalize.Sanitize(serialized, r.catalog.Connectors); changed && r.grammar.AcceptsString(sanitized) {
		return sanitized, nil
	}
	return serialized, &grammar.RejectedError{Canonical: serialized, Stage: "reparse"}
}

// mostSpecific picks the binder error that got furthest into its input.
func mostSpecific(errs []*binder.BindError, msgs []string) string {
	if len(errs) == 0 {
		if len(msgs) > 0 {
			return msgs[0]
		}
		return "no candidate could be bound"
	}
	best := errs[0]
	for _, e := range errs[1:] {
		if e.Pos > best.Pos {
			best = e
		}
	}
	return best.Error()
}
