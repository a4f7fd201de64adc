package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/nlsql/internal/artifacts"
	"github.com/roach88/nlsql/internal/compiler"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Samples int
	Seed    uint64
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid       bool                       `json:"valid"`
	Fingerprint string                     `json:"fingerprint,omitempty"`
	Errors      []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <artifacts-dir>",
		Short: "Check an artifact directory against the catalog-load gates",
		Long: `Run the catalog-load gates without writing anything:

  - every table, column, function and connector is well formed (E2xx)
  - every canonical id has an identity alias
  - the grammar compiles and accepts the minimal phrase
  - seeded canonical phrases survive bind, serialize and parse

Exit codes:
  0 - Catalog valid
  1 - One or more gates failed
  2 - Command error (directory missing, unreadable files)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Samples, "samples", artifacts.DefaultRoundTripSamples, "round-trip phrases to check (0 disables)")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", artifacts.DefaultRoundTripSeed, "round-trip generator seed")

	return cmd
}

func runValidate(opts *ValidateOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	set, err := artifacts.Load(dir, artifacts.WithRoundTrip(opts.Samples, opts.Seed))
	if err != nil {
		var le *artifacts.LoadError
		if errors.As(err, &le) && le.Code == artifacts.ErrCodeGate {
			return outputValidationErrors(formatter, gateErrors(le))
		}
		return outputLoadError(formatter, err)
	}

	formatter.VerboseLog("Checked %d table(s), %d column(s), %d function(s) from %s",
		len(set.Catalog.Tables), len(set.Catalog.Columns), len(set.Catalog.Functions), set.Dir)

	if formatter.JSON() {
		return formatter.Success(ValidationResult{Valid: true, Fingerprint: set.Fingerprint})
	}
	formatter.Pass("Catalog valid (%s)", set.Fingerprint[:12])
	return nil
}

// gateErrors lists the violations of a gate failure. Grammar and round-trip
// gates carry a single message.
func gateErrors(le *artifacts.LoadError) []compiler.ValidationError {
	if len(le.Violations) > 0 {
		return le.Violations
	}
	return []compiler.ValidationError{{Field: "grammar", Message: le.Message, Code: le.Code}}
}

// outputValidationErrors outputs every violation. Gate failures are
// validation failures (exit code 1).
func outputValidationErrors(f *OutputFormatter, errs []compiler.ValidationError) error {
	msg := fmt.Sprintf("validation failed with %d error(s)", len(errs))

	if f.JSON() {
		if err := f.Respond(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error:  &CLIError{Code: ErrCodeValidation, Message: msg},
		}); err != nil {
			return err
		}
		return NewExitError(ExitFailure, msg)
	}

	f.Fail("Validation failed")
	fmt.Fprintln(f.Writer)
	for _, e := range errs {
		fmt.Fprintf(f.Writer, "  %s: %s: %s\n", e.Code, e.Field, e.Message)
	}
	return NewExitError(ExitFailure, msg)
}
