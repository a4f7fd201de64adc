package artifacts

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"

	"github.com/roach88/nlsql/internal/compiler"
)

// Load error codes (E001-E099), shared by every command that reads an
// artifact directory.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No catalog files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build or catalog compile failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeDecode      = "E008" // YAML artifact could not be decoded
	ErrCodeGate        = "E009" // Catalog-load gate failed
)

// LoadError represents an error that occurred while loading artifacts.
type LoadError struct {
	Code    string
	Path    string
	Message string
	Pos     token.Pos // CUE position if available

	// Violations lists every catalog rule that failed, for E009.
	Violations []compiler.ValidationError
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsLoadError returns true if the error is a LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}

// CodeOf returns the LoadError code carried by err, or ErrCodeGeneric.
func CodeOf(err error) string {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Code
	}
	return ErrCodeGeneric
}
