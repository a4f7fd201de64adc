package binder

import (
	"errors"
	"fmt"
)

// Kind classifies a BindError.
type Kind string

const (
	// KindUnexpectedToken: a token (or end of input) that does not fit the
	// grammar at its position.
	KindUnexpectedToken Kind = "unexpected-token"

	// KindUnknownIdentifier: a table, column or function the catalog does not
	// know, or a column that does not belong to the FROM table.
	KindUnknownIdentifier Kind = "unknown-identifier"

	// KindTypeIncompatible: a function argument rejected by the function's
	// compatibility rule under strict typing, or one that coercion could
	// not replace.
	KindTypeIncompatible Kind = "type-incompatible"

	// KindDisallowedNestedFunction: a function in argument position.
	KindDisallowedNestedFunction Kind = "disallowed-nested-function"

	// KindTrailingTokens: input left over after the table.
	KindTrailingTokens Kind = "trailing-tokens"
)

// BindError reports why a canonical token stream could not be bound.
//
// Pos is the zero-based token index; Surface is the token text at Pos, or
// empty at end of input.
type BindError struct {
	Kind    Kind
	Pos     int
	Surface string
	Message string
}

// Error implements the error interface.
func (e *BindError) Error() string {
	surface := e.Surface
	if surface == "" {
		surface = "<end>"
	}
	return fmt.Sprintf("bind %s at token %d (%s): %s", e.Kind, e.Pos, surface, e.Message)
}

// IsBindError returns true if the error is a BindError.
// Uses errors.As to handle wrapped errors.
func IsBindError(err error) bool {
	var be *BindError
	return errors.As(err, &be)
}

// KindOf returns the kind of a (possibly wrapped) BindError.
func KindOf(err error) (Kind, bool) {
	var be *BindError
	if errors.As(err, &be) {
		return be.Kind, true
	}
	return "", false
}

// IsTypeIncompatible reports whether err is a type-incompatible BindError.
func IsTypeIncompatible(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindTypeIncompatible
}
