package compiler

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/roach88/nlsql/internal/emitter"
	"github.com/roach88/nlsql/internal/ir"
)

// Validation error codes (E200-E299)
const (
	ErrNoTables             = "E201" // catalog declares no table
	ErrColumnTableMissing   = "E202" // column names a table that does not exist
	ErrColumnNotListed      = "E203" // table and column disagree on ownership
	ErrPlaceholderUnbound   = "E204" // template placeholder can never be filled
	ErrConnectorMissing     = "E205" // required connector has no surface
	ErrIdentityMissing      = "E206" // canonical id has no identity alias
	ErrInvalidFunctionClass = "E207" // unknown function class
	ErrIDCollision          = "E208" // same id used for two kinds of thing
	ErrInvalidIdentifier    = "E209" // id would not survive tokenization
	ErrAliasTargetEmpty     = "E210" // ambiguous alias with no targets
)

// ValidationError represents a catalog validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// identPattern is one canonical token: a word, or dotted words.
var identPattern = regexp.MustCompile(`^[A-Za-z0-9_]+(?:\.[A-Za-z0-9_]+)*$`)

// requiredConnectors must all have a non-empty surface.
var requiredConnectors = []string{ir.ConnectorAnd, ir.ConnectorOf, ir.ConnectorFrom, ir.ConnectorComma}

// Validate checks a catalog and its vocabulary against the catalog-load
// rules. Returns all errors found (does not fail-fast), in a stable order.
func Validate(c *ir.Catalog, vocab ir.Vocabulary) []ValidationError {
	var errs []ValidationError
	add := func(code, field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Code: code})
	}

	if len(c.Tables) == 0 {
		add(ErrNoTables, "tables", "at least one table is required")
	}

	for _, name := range c.TableIDs() {
		field := "tables." + name
		if !identPattern.MatchString(name) {
			add(ErrInvalidIdentifier, field, "table id %q is not a single canonical token", name)
		}
		for _, id := range c.Tables[name].Columns {
			col, ok := c.Column(id)
			switch {
			case !ok:
				add(ErrColumnNotListed, field, "lists column %q, which is not declared", id)
			case col.Table != name:
				add(ErrColumnNotListed, field, "lists column %q, which belongs to %q", id, col.Table)
			}
		}
	}

	for _, id := range c.ColumnIDs() {
		field := "columns." + id
		col := c.Columns[id]
		if !identPattern.MatchString(id) {
			add(ErrInvalidIdentifier, field, "column id %q is not a single canonical token", id)
		}
		t, ok := c.Table(col.Table)
		if !ok {
			add(ErrColumnTableMissing, field, "table %q does not exist", col.Table)
			continue
		}
		if !slices.Contains(t.Columns, id) {
			add(ErrColumnNotListed, field, "table %q does not list it", col.Table)
		}
		if _, ok := c.Tables[id]; ok {
			add(ErrIDCollision, field, "%q is also a table id", id)
		}
	}

	for _, name := range c.FunctionIDs() {
		field := "functions." + name
		fn := c.Functions[name]
		if !identPattern.MatchString(name) {
			add(ErrInvalidIdentifier, field, "function id %q is not a single canonical token", name)
		}
		switch fn.Class {
		case "", ir.ClassProjection, ir.ClassOrdering:
		default:
			add(ErrInvalidFunctionClass, field+".class", "unknown class %q", fn.Class)
		}
		for _, p := range emitter.Placeholders(fn.Template) {
			if !emitter.KnownPlaceholder(fn, p) {
				add(ErrPlaceholderUnbound, field+".template", "placeholder {%s} matches no argument role", p)
			}
		}
		if _, ok := c.Tables[name]; ok {
			add(ErrIDCollision, field, "%q is also a table id", name)
		}
		if _, ok := c.Columns[name]; ok {
			add(ErrIDCollision, field, "%q is also a column id", name)
		}
	}

	for _, name := range requiredConnectors {
		if c.Connectors[name] == "" {
			add(ErrConnectorMissing, "connectors."+name, "connector %s has no surface", name)
		}
	}

	for _, id := range c.CanonicalIDs() {
		if !vocab.HasIdentity(id) {
			add(ErrIdentityMissing, "vocabulary", "canonical id %q has no identity alias", id)
		}
	}

	phrases := make([]string, 0, len(vocab.NonDeterministic))
	for phrase := range vocab.NonDeterministic {
		phrases = append(phrases, phrase)
	}
	slices.Sort(phrases)
	for _, phrase := range phrases {
		if len(vocab.NonDeterministic[phrase]) == 0 {
			add(ErrAliasTargetEmpty, "vocabulary."+phrase, "ambiguous alias has no targets")
		}
	}

	return errs
}
