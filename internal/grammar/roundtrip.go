package grammar

import (
	"errors"
	"fmt"

	"github.com/roach88/nlsql/internal/binder"
	"github.com/roach88/nlsql/internal/ir"
	"github.com/roach88/nlsql/internal/normalize"
	"github.com/roach88/nlsql/internal/tokenize"
)

// RoundTripReport summarizes a round-trip run.
type RoundTripReport struct {
	Checked  int
	Failures []*RejectedError
}

// Err joins all failures, or returns nil when every string survived.
func (r RoundTripReport) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return fmt.Errorf("round trip failed for %d of %d canonical(s): %w", len(r.Failures), r.Checked, errors.Join(errs...))
}

// RoundTrip checks each canonical string s: s is accepted, bind(s)
// succeeds, serialize(bind(s)) is accepted both as is and after list
// sanitization, and binding it again yields the same Binding.
func RoundTrip(g *Grammar, b *binder.Binder, canonicals []string) RoundTripReport {
	var report RoundTripReport
	for _, s := range canonicals {
		report.Checked++
		if f := roundTripOne(g, b, s); f != nil {
			report.Failures = append(report.Failures, f)
		}
	}
	return report
}

func roundTripOne(g *Grammar, b *binder.Binder, s string) *RejectedError {
	if !g.AcceptsString(s) {
		return &RejectedError{Canonical: s, Stage: "generate"}
	}
	first, err := b.Bind(tokenize.Canonical(s))
	if err != nil {
		return &RejectedError{Canonical: s, Stage: "bind", Err: err}
	}

	serialized := b.Serialize(first)
	if !g.AcceptsString(serialized) {
		return &RejectedError{Canonical: serialized, Stage: "reparse"}
	}
	if sanitized, _ := normalize.Sanitize(serialized, b.Catalog().Connectors); !g.AcceptsString(sanitized) {
		return &RejectedError{Canonical: sanitized, Stage: "sanitize"}
	}

	second, err := b.Bind(tokenize.Canonical(serialized))
	if err != nil {
		return &RejectedError{Canonical: serialized, Stage: "rebind", Err: err}
	}
	if !first.Equal(second) {
		return &RejectedError{
			Canonical: serialized,
			Stage:     "rebind",
			Err:       fmt.Errorf("binding changed: %s", binder.Serialize(second)),
		}
	}
	return nil
}

// CheckRoundTrip runs RoundTrip over samples strings from a seeded
// Generator with a strict binder.
func CheckRoundTrip(g *Grammar, c *ir.Catalog, samples int, seed uint64) RoundTripReport {
	gen := NewGenerator(c, seed)
	return RoundTrip(g, binder.New(c, binder.StrictOptions()), gen.Sample(samples))
}
