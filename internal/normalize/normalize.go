// Package normalize resolves natural-language phrases into canonical token
// strings using an alias vocabulary.
//
// The search is a breadth-first expansion of the leftmost unmapped token
// run, trying the longest alias span first. Keywords and connectors pass
// through untouched. Two caps (nodes enqueued, finals collected) bound the
// search for any vocabulary; hitting a cap returns partial results.
package normalize

import (
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/nlsql/internal/ir"
	"github.com/roach88/nlsql/internal/tokenize"
)

// Deterministic values that mean "discard as filler".
var fillerSentinels = map[string]bool{"": true, "skip": true, "_skip": true}

// Adjacent token pairs that make a final candidate nonsensical.
var badBigrams = map[[2]string]bool{
	{"of", "of"}:     true,
	{"from", "from"}: true,
	{"and", "and"}:   true,
	{",", ","}:       true,
}

// Normalizer maps phrases to canonical candidates.
//
// A Normalizer is read-only after New and safe for concurrent use.
type Normalizer struct {
	lookup          map[string][]string
	passthrough     map[string]bool
	connectors      ir.Connectors
	maxWords        int
	caseInsensitive bool
	limits          Limits
	record          bool
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithLimits sets the search caps. Zero fields keep their defaults.
func WithLimits(l Limits) Option {
	return func(n *Normalizer) {
		if l.MaxNodes > 0 {
			n.limits.MaxNodes = l.MaxNodes
		}
		if l.MaxResults > 0 {
			n.limits.MaxResults = l.MaxResults
		}
	}
}

// WithCaseInsensitive folds case on input and on alias keys.
func WithCaseInsensitive(on bool) Option {
	return func(n *Normalizer) {
		n.caseInsensitive = on
	}
}

// WithRecording attaches search events to every Outcome.
func WithRecording(on bool) Option {
	return func(n *Normalizer) {
		n.record = on
	}
}

// New builds a Normalizer over vocab. When catalog is non-nil, identity
// entries for every catalog id are added, along with "t . c" bridges for
// dotted column ids and "t.c" aliases for bare column ids, and the
// catalog's connector surfaces pass through like keywords.
func New(vocab ir.Vocabulary, catalog *ir.Catalog, opts ...Option) *Normalizer {
	n := &Normalizer{limits: DefaultLimits()}
	for _, opt := range opts {
		opt(n)
	}

	lookup := buildLookup(vocab, catalog)
	if n.caseInsensitive {
		lookup = foldKeys(lookup)
	}
	n.lookup = lookup
	n.passthrough = make(map[string]bool)
	for _, k := range ir.Keywords {
		n.passthrough[k] = true
	}
	if catalog != nil {
		n.connectors = catalog.Connectors
		for _, surface := range catalog.Connectors {
			if surface != "" {
				n.passthrough[surface] = true
			}
		}
	}
	n.maxWords = 1
	for k := range lookup {
		if w := len(strings.Split(k, " ")); w > n.maxWords {
			n.maxWords = w
		}
	}
	return n
}

// Limits returns the configured search caps.
func (n *Normalizer) Limits() Limits {
	return n.limits
}

// Lookup returns the candidate canonical ids for an alias phrase.
func (n *Normalizer) Lookup(phrase string) []string {
	return slices.Clone(n.lookup[phrase])
}

// Outcome is the raw result of one search.
type Outcome struct {
	Candidates []string
	// Truncated is non-nil when a cap stopped the search early.
	Truncated *CapExceededError
	Events    []Event
}

// Candidates runs the alias search over text. Candidates keep the original
// token order and are de-duplicated; an empty result is the normalizer_zero
// condition, not an error.
func (n *Normalizer) Candidates(text string) Outcome {
	var rec *recorder
	if n.record {
		rec = &recorder{}
	}

	s := norm.NFC.String(text)
	if n.caseInsensitive {
		s = cases.Fold().String(s)
	}
	toks := tokenize.Tokens(s)
	rec.log("tokens", "%s", strings.Join(toks, " "))

	seed := make(phrase, len(toks))
	for i, t := range toks {
		seed[i] = piece{text: t, mapped: n.passthrough[t]}
	}
	rec.log("seed", "%s", seed.describe())

	finals, truncated := n.search(seed, rec)

	seen := make(map[string]bool, len(finals))
	var out []string
	for _, f := range finals {
		fields := strings.Fields(f)
		if hasBadBigram(fields) {
			rec.log("prune", "bigram in %q", f)
			continue
		}
		joined := strings.Join(fields, " ")
		if joined == "" || seen[joined] {
			continue
		}
		seen[joined] = true
		out = append(out, joined)
	}

	if truncated != nil {
		slog.Warn("normalizer search truncated",
			"cap", truncated.Cap,
			"limit", truncated.Limit,
			"candidates", len(out))
	}

	return Outcome{Candidates: out, Truncated: truncated, Events: rec.Events()}
}

type piece struct {
	text   string
	mapped bool
}

type phrase []piece

func (p phrase) key() string {
	var b strings.Builder
	for _, pc := range p {
		b.WriteString(pc.text)
		if pc.mapped {
			b.WriteString("\x00m\x01")
		} else {
			b.WriteString("\x00u\x01")
		}
	}
	return b.String()
}

func (p phrase) leftmostUnmapped() int {
	for i, pc := range p {
		if !pc.mapped {
			return i
		}
	}
	return -1
}

func (p phrase) join() string {
	parts := make([]string, 0, len(p))
	for _, pc := range p {
		if pc.text != "" {
			parts = append(parts, pc.text)
		}
	}
	return strings.Join(parts, " ")
}

func (p phrase) describe() string {
	parts := make([]string, len(p))
	for i, pc := range p {
		if pc.mapped {
			parts[i] = pc.text + "*"
		} else {
			parts[i] = pc.text
		}
	}
	return strings.Join(parts, " ")
}

// search is the BFS over partial phrases. Returns the finals collected and
// the cap that stopped it, if any.
func (n *Normalizer) search(seed phrase, rec *recorder) ([]string, *CapExceededError) {
	budget := newSearchBudget(n.limits)
	queue := []phrase{seed}
	seen := map[string]bool{seed.key(): true}
	var finals []string

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		i := cur.leftmostUnmapped()
		if i < 0 {
			if err := budget.collect(); err != nil {
				ce := err.(*CapExceededError)
				rec.fail("final_cap_exceeded", "cap=%d", ce.Limit)
				return finals, ce
			}
			finals = append(finals, cur.join())
			continue
		}

		r := i
		for r < len(cur) && !cur[r].mapped {
			r++
		}
		run := r - i

		tried := false
		for span := min(n.maxWords, run); span > 0; span-- {
			words := make([]string, span)
			for k := range span {
				words[k] = cur[i+k].text
			}
			options := n.lookup[strings.Join(words, " ")]
			if len(options) == 0 {
				continue
			}
			tried = true
			for _, opt := range options {
				next := make(phrase, 0, len(cur)-span+1)
				next = append(next, cur[:i]...)
				next = append(next, piece{text: opt, mapped: true})
				next = append(next, cur[i+span:]...)
				k := next.key()
				if seen[k] {
					continue
				}
				seen[k] = true
				if err := budget.expand(); err != nil {
					ce := err.(*CapExceededError)
					rec.fail("node_cap_exceeded", "cap=%d", ce.Limit)
					return finals, ce
				}
				queue = append(queue, next)
			}
		}
		if !tried {
			rec.log("prune", "leftmost=%q run_len=%d", cur[i].text, run)
		}
	}
	return finals, nil
}

func hasBadBigram(fields []string) bool {
	for i := 1; i < len(fields); i++ {
		if badBigrams[[2]string{fields[i-1], fields[i]}] {
			return true
		}
	}
	return false
}

// buildLookup merges the vocabulary into one alias → candidates map.
//
// Order per key: ambiguous candidates first, then the deterministic target,
// then identities. Keys are visited in sorted order so the result does not
// depend on map iteration.
func buildLookup(vocab ir.Vocabulary, catalog *ir.Catalog) map[string][]string {
	out := make(map[string][]string)
	add := func(key, val string) {
		if !slices.Contains(out[key], val) {
			out[key] = append(out[key], val)
		}
	}

	for _, k := range sortedKeys(vocab.NonDeterministic) {
		for _, v := range vocab.NonDeterministic[k] {
			if fillerSentinels[v] {
				v = ""
			}
			add(k, v)
		}
	}
	for _, k := range sortedKeys(vocab.Deterministic) {
		v := vocab.Deterministic[k]
		if fillerSentinels[v] {
			v = ""
		}
		add(k, v)
	}

	// Every canonical target is also reachable by its own spelling.
	for _, k := range sortedKeys(out) {
		for _, v := range out[k] {
			if v != "" && !ir.IsKeyword(v) {
				add(v, v)
			}
		}
	}

	if catalog == nil {
		return out
	}
	for _, id := range catalog.CanonicalIDs() {
		add(id, id)
	}
	for _, id := range catalog.ColumnIDs() {
		col := catalog.Columns[id]
		if lhs, rhs, ok := strings.Cut(id, "."); ok {
			add(lhs+" . "+rhs, id)
			continue
		}
		if col.Table != "" {
			add(col.Table+"."+id, id)
			add(col.Table+" . "+id, id)
		}
	}
	return out
}

func foldKeys(m map[string][]string) map[string][]string {
	fold := cases.Fold()
	out := make(map[string][]string, len(m))
	for _, k := range sortedKeys(m) {
		fk := fold.String(k)
		for _, v := range m[k] {
			if !slices.Contains(out[fk], v) {
				out[fk] = append(out[fk], v)
			}
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
