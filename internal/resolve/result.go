package resolve

import (
	"fmt"
	"strings"

	"github.com/roach88/nlsql/internal/binder"
	"github.com/roach88/nlsql/internal/emitter"
	"github.com/roach88/nlsql/internal/normalize"
	"github.com/roach88/nlsql/internal/tokenize"
)

// FailCategory buckets a failed resolution by the last stage any candidate
// reached.
type FailCategory string

const (
	// FailNormalizerZero means the normalizer produced no candidate.
	FailNormalizerZero FailCategory = "normalizer_zero"

	// FailBinder means no candidate bound.
	FailBinder FailCategory = "binder_fail"

	// FailParser means candidates bound but none survived the grammar.
	FailParser FailCategory = "parser_fail"

	// FailEmitter means a candidate parsed but its SQL could not be
	// rendered. Catalog validation makes this unreachable for templates
	// whose placeholders are all satisfiable.
	FailEmitter FailCategory = "emitter_fail"
)

// Attempt records what happened to one normalizer candidate.
type Attempt struct {
	Candidate  string   `json:"candidate"`
	Canonical  string   `json:"canonical,omitempty"`
	Rewrites   []string `json:"rewrites,omitempty"`
	Trace      []string `json:"trace,omitempty"`
	BindError  string   `json:"bind_error,omitempty"`
	Serialized string   `json:"serialized,omitempty"`
	ParseError string   `json:"parse_error,omitempty"`
	EmitError  string   `json:"emit_error,omitempty"`
}

// Diagnostics carries enough of the pipeline's intermediate state to debug
// a resolution without re-running it.
type Diagnostics struct {
	Candidates    []string          `json:"candidates"`
	Considered    int               `json:"considered"`
	Bound         int               `json:"bound"`
	Parsed        int               `json:"parsed"`
	BinderErrors  []string          `json:"binder_errors,omitempty"`
	ParserErrors  []string          `json:"parser_errors,omitempty"`
	EmitterErrors []string          `json:"emitter_errors,omitempty"`
	Attempts      []Attempt         `json:"attempts,omitempty"`
	Normalizer    normalize.Stats   `json:"normalizer"`
	Events        []normalize.Event `json:"events,omitempty"`
	Truncated     string            `json:"truncated,omitempty"`
	Strict        bool              `json:"strict"`
}

// Result is the outcome of one resolution. ChosenCanonical is the canonical
// that bound, after any rewrite of the normalizer candidate it came from.
type Result struct {
	ID                  string          `json:"id"`
	Input               string          `json:"input"`
	Dialect             emitter.Dialect `json:"dialect"`
	OK                  bool            `json:"ok"`
	ChosenCanonical     string          `json:"chosen_canonical,omitempty"`
	SerializedCanonical string          `json:"serialized_canonical,omitempty"`
	SQL                 string          `json:"sql,omitempty"`
	Warnings            []string        `json:"warnings,omitempty"`
	Relaxed             bool            `json:"relaxed,omitempty"`
	FailCategory        FailCategory    `json:"fail_category,omitempty"`
	Error               string          `json:"error,omitempty"`
	Diagnostics         Diagnostics     `json:"diagnostics"`

	bindErrs []*binder.BindError
}

// Canonical returns the serialized canonical, or the chosen candidate when
// nothing was serialized.
func (r Result) Canonical() string {
	if r.SerializedCanonical != "" {
		return r.SerializedCanonical
	}
	return r.ChosenCanonical
}

// EmitMode selects what FormatResult prints for a success.
type EmitMode string

const (
	EmitCanonical EmitMode = "canonical"
	EmitSQL       EmitMode = "sql"
	EmitBoth      EmitMode = "both"
	EmitTokens    EmitMode = "tokens"
)

// ParseEmitMode validates an emit mode name.
func ParseEmitMode(s string) (EmitMode, error) {
	switch m := EmitMode(strings.ToLower(s)); m {
	case EmitCanonical, EmitSQL, EmitBoth, EmitTokens:
		return m, nil
	}
	return "", fmt.Errorf("unknown emit mode %q (want canonical, sql, both or tokens)", s)
}

// FormatError renders a failed result as a one-line summary plus short
// hints. Internal traces are never included.
func FormatError(r Result) string {
	lines := []string{fmt.Sprintf("[FAIL:%s] %s", r.FailCategory, summary(r))}

	d := r.Diagnostics
	if n := len(d.Candidates); n > 0 {
		lines = append(lines, fmt.Sprintf("- candidates tried: %d/%d", min(n, d.Considered), n))
	}
	if d.Normalizer.RawCandidates > 0 || d.Normalizer.SanitizedCount > 0 {
		lines = append(lines, fmt.Sprintf("- normalization: raw=%d sanitized=%d",
			d.Normalizer.RawCandidates, d.Normalizer.SanitizedCount))
	}
	return strings.Join(lines, "\n")
}

func summary(r Result) string {
	switch r.FailCategory {
	case FailNormalizerZero:
		return "No normalization candidates were produced from the input."
	case FailBinder:
		return "Binding failed: " + firstLine(r.Error)
	case FailParser:
		return "Parsing failed: " + firstLine(r.Error)
	case FailEmitter:
		return "Emission failed: " + firstLine(r.Error)
	}
	return firstLine(r.Error)
}

func firstLine(s string) string {
	s, _, _ = strings.Cut(s, "\n")
	return s
}

// FormatResult renders a result for the console. Failures go through
// FormatError. In debug mode a "-- diagnostics" tail follows.
func FormatResult(r Result, mode EmitMode, debug bool) string {
	if !r.OK {
		return FormatError(r)
	}

	var lines []string
	switch mode {
	case EmitCanonical:
		lines = []string{r.Canonical()}
	case EmitTokens:
		lines = []string{fmt.Sprintf("%q", tokenize.Canonical(r.Canonical()))}
	case EmitSQL:
		lines = []string{r.SQL}
	default:
		lines = []string{r.Canonical(), r.SQL}
	}
	if r.Relaxed {
		lines = append(lines, "(auto: lenient)")
	}

	if debug {
		d := r.Diagnostics
		lines = append(lines, "-- diagnostics")
		lines = append(lines, fmt.Sprintf("candidates=%d considered=%d bound=%d parsed=%d",
			len(d.Candidates), d.Considered, d.Bound, d.Parsed))
		if raw, san := d.Normalizer.RawCandidates, d.Normalizer.SanitizedCount; raw > 0 || san > 0 {
			note := "no list sanitation"
			if d.Normalizer.Rewritten > 0 {
				note = "lists sanitized"
			}
			lines = append(lines, fmt.Sprintf("normalizer: raw=%d sanitized=%d (%s)", raw, san, note))
		}
		if d.Truncated != "" {
			lines = append(lines, "truncated: "+d.Truncated)
		}
		if len(r.Warnings) > 0 {
			lines = append(lines, "warnings: "+strings.Join(r.Warnings, "; "))
		}
	}
	return strings.Join(lines, "\n")
}
