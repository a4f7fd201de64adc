package emitter

import (
	"errors"
	"fmt"
)

// TemplateError reports a template placeholder with no argument to fill it.
type TemplateError struct {
	Function    string
	Placeholder string
	Args        int
}

// Error implements the error interface.
func (e *TemplateError) Error() string {
	return fmt.Sprintf("function %q template needs {%s} but got %d argument(s)", e.Function, e.Placeholder, e.Args)
}

// IsTemplateError returns true if the error is a TemplateError.
// Uses errors.As to handle wrapped errors.
func IsTemplateError(err error) bool {
	var te *TemplateError
	return errors.As(err, &te)
}

// VerifyError reports emitted SQL that a dialect parser rejected.
type VerifyError struct {
	Dialect Dialect
	SQL     string
	Err     error
}

// Error implements the error interface.
func (e *VerifyError) Error() string {
	return fmt.Sprintf("%s syntax check failed: %v", e.Dialect.Title(), e.Err)
}

// Unwrap returns the parser error.
func (e *VerifyError) Unwrap() error {
	return e.Err
}

// IsVerifyError returns true if the error is a VerifyError.
// Uses errors.As to handle wrapped errors.
func IsVerifyError(err error) bool {
	var ve *VerifyError
	return errors.As(err, &ve)
}
