package compiler

import (
	"errors"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsCompileError returns true if the error is a CompileError.
func IsCompileError(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce)
}

// formatCUEError converts a CUE error into a CompileError. The position
// comes from the first error that carries one; failing that, from the field
// the error names within at, and finally from at itself.
func formatCUEError(err error, at cue.Value) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &CompileError{Field: "cue", Message: err.Error(), Pos: at.Pos()}
	}

	for _, e := range errs {
		if positions := cueerrors.Positions(e); len(positions) > 0 {
			return &CompileError{Field: errorField(e), Message: errorMessage(e), Pos: positions[0]}
		}
	}

	first := errs[0]
	pos := at.Pos()
	if fv := lookupErrorPath(at, first.Path()); fv.Exists() && fv.Pos().IsValid() {
		pos = fv.Pos()
	}
	return &CompileError{Field: errorField(first), Message: errorMessage(first), Pos: pos}
}

// errorField is the dotted CUE path of e without the schema definition.
func errorField(e cueerrors.Error) string {
	if path := fieldPath(e.Path()); len(path) > 0 {
		return strings.Join(path, ".")
	}
	return "cue"
}

func errorMessage(e cueerrors.Error) string {
	format, args := e.Msg()
	return fmt.Sprintf(format, args...)
}

// fieldPath drops definition selectors such as #Catalog, which name the
// schema rather than a field of the catalog source.
func fieldPath(path []string) []string {
	out := make([]string, 0, len(path))
	for _, sel := range path {
		if strings.HasPrefix(sel, "#") {
			continue
		}
		out = append(out, sel)
	}
	return out
}

func lookupErrorPath(v cue.Value, path []string) cue.Value {
	sels := fieldPath(path)
	if len(sels) == 0 {
		return cue.Value{}
	}
	selectors := make([]cue.Selector, len(sels))
	for i, sel := range sels {
		selectors[i] = cue.Str(sel)
	}
	return v.LookupPath(cue.MakePath(selectors...))
}
