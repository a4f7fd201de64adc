package grammar

import (
	"errors"
	"fmt"

	"github.com/roach88/nlsql/internal/ir"
)

// RejectedError signals a grammar/binder mismatch: a canonical string that
// should be in the language is not, or a string in the language that does
// not survive bind and serialize. With a correct catalog it never occurs,
// so it is fatal at catalog load.
type RejectedError struct {
	Canonical string
	Stage     string // "minimal", "generate", "bind", "reparse", "sanitize" or "rebind"
	Err       error
}

// Error implements the error interface.
func (e *RejectedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("grammar rejected %q at %s: %v", e.Canonical, e.Stage, e.Err)
	}
	return fmt.Sprintf("grammar rejected %q at %s", e.Canonical, e.Stage)
}

// Unwrap returns the underlying error, if any.
func (e *RejectedError) Unwrap() error {
	return e.Err
}

// IsRejectedError returns true if the error is a RejectedError.
// Uses errors.As to handle wrapped errors.
func IsRejectedError(err error) bool {
	var re *RejectedError
	return errors.As(err, &re)
}

// MinimalPhrase returns "select <column> from <table>" for the first table
// (in id order) that owns a column.
func MinimalPhrase(c *ir.Catalog) (string, bool) {
	from := c.Connectors.Surface(ir.ConnectorFrom)
	for _, table := range c.TableIDs() {
		t := c.Tables[table]
		for _, col := range t.Columns {
			if _, ok := c.Column(col); ok {
				return "select " + col + " " + from + " " + table, true
			}
		}
	}
	return "", false
}

// Validate checks that g accepts the catalog's minimal phrase.
func Validate(g *Grammar, c *ir.Catalog) error {
	phrase, ok := MinimalPhrase(c)
	if !ok {
		return &RejectedError{Stage: "minimal", Err: errors.New("catalog has no table with a column")}
	}
	if !g.AcceptsString(phrase) {
		return &RejectedError{Canonical: phrase, Stage: "minimal"}
	}
	return nil
}

// Build generates, compiles and validates the grammar for c.
func Build(c *ir.Catalog) (*Grammar, error) {
	g, err := Compile(Generate(c))
	if err != nil {
		return nil, fmt.Errorf("compile canonical grammar: %w", err)
	}
	if err := Validate(g, c); err != nil {
		return nil, err
	}
	return g, nil
}
