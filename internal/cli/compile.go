package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/nlsql/internal/artifacts"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // directory for the YAML artifact set
}

// CompilationResult summarizes a compiled artifact directory.
type CompilationResult struct {
	Source      artifacts.Source `json:"source"`
	Files       []string         `json:"files"`
	Tables      map[string]int   `json:"tables"` // table -> column count
	Columns     int              `json:"columns"`
	Functions   int              `json:"functions"`
	Aliases     int              `json:"aliases"`
	Fingerprint string           `json:"fingerprint"`
	Output      string           `json:"output,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <artifacts-dir>",
		Short: "Compile a catalog into a YAML artifact set",
		Long: `Compile a CUE catalog (or re-check a YAML artifact set), run every
catalog-load gate, and optionally write h_binder.yaml, h_vocabulary.yaml
and h_grammar.ebnf to --output.

The written set includes identity and inflected table aliases, so it loads
without the CUE toolchain.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output directory for the YAML artifact set")

	return cmd
}

func runCompile(opts *CompileOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	set, err := loadArtifacts(formatter, dir)
	if err != nil {
		return err
	}

	result := CompilationResult{
		Source:      set.Source,
		Files:       set.Files,
		Tables:      make(map[string]int, len(set.Catalog.Tables)),
		Columns:     len(set.Catalog.Columns),
		Functions:   len(set.Catalog.Functions),
		Aliases:     len(set.Vocabulary.Deterministic) + len(set.Vocabulary.NonDeterministic),
		Fingerprint: set.Fingerprint,
	}
	for name, t := range set.Catalog.Tables {
		result.Tables[name] = len(t.Columns)
	}

	if opts.Output != "" {
		if err := artifacts.Write(opts.Output, set.Catalog, set.Vocabulary, set.Grammar.Text()); err != nil {
			return outputLoadError(formatter, err)
		}
		result.Output = opts.Output
	}

	return outputCompileSuccess(formatter, set, result)
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(f *OutputFormatter, set *artifacts.Set, result CompilationResult) error {
	if f.JSON() {
		return f.Success(result)
	}

	w := f.Writer
	f.Pass("Compiled catalog: %d table(s), %d column(s), %d function(s), %d alias(es)",
		len(result.Tables), result.Columns, result.Functions, result.Aliases)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Tables:")
	for _, name := range set.Catalog.TableIDs() {
		fmt.Fprintf(w, "  %s: %d column(s)\n", name, result.Tables[name])
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Fingerprint: %s\n", result.Fingerprint)
	if result.Output != "" {
		fmt.Fprintf(w, "Wrote artifact set to %s\n", result.Output)
	}
	return nil
}
