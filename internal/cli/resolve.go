package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/nlsql/internal/resolve"
)

// ResolveOptions holds flags for the resolve command. Resolution and
// execution settings travel through config.Load instead.
type ResolveOptions struct {
	*RootOptions
	Emit  string // canonical|sql|both|tokens
	Debug bool   // diagnostics tail and search events
	File  string // one query per line; "-" is stdin
	Jobs  int    // concurrent resolutions for --file
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve [query...]",
		Short: "Resolve natural language to SQL",
		Long: `Resolve a natural-language request into its canonical phrase and SQL.

The words after the command form one query. With --file, every non-empty
line that does not start with # is a query; they are resolved concurrently
and printed in input order.

Exit codes:
  0 - Every query resolved (and ran, with --execute)
  1 - One or more queries failed
  2 - Command error (bad flags, artifacts, databases)

Examples:
  nlsql resolve show the average of age in people
  nlsql resolve --emit both --dialect postgres show area of geom in cities
  nlsql resolve --file queries.txt --jobs 8 --format json
  nlsql resolve --execute --db app.db show name in people`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(opts, args, cmd)
		},
	}

	addResolverFlags(cmd.Flags())
	addExecFlags(cmd.Flags())
	cmd.Flags().StringVar(&opts.Emit, "emit", string(resolve.EmitSQL), "what to print on success (canonical|sql|both|tokens)")
	cmd.Flags().BoolVar(&opts.Debug, "debug", false, "print diagnostics after each result")
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "read queries from a file, one per line (- for stdin)")
	cmd.Flags().IntVarP(&opts.Jobs, "jobs", "j", 4, "concurrent resolutions")

	return cmd
}

func runResolve(opts *ResolveOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	mode, err := resolve.ParseEmitMode(opts.Emit)
	if err != nil {
		_ = formatter.Error(ErrCodeUsage, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid --emit", err)
	}

	queries, err := collectQueries(args, opts.File, cmd.InOrStdin())
	if err != nil {
		_ = formatter.Error(ErrCodeUsage, err.Error(), nil)
		return WrapExitError(ExitCommandError, "no queries", err)
	}

	sess, err := openSession(formatter, opts.RootOptions, cmd, opts.Debug)
	if err != nil {
		return err
	}

	b, err := openBackends(sess.cfg)
	if err != nil {
		_ = formatter.Error(ErrCodeExecute, err.Error(), nil)
		return WrapExitError(ExitCommandError, "database setup failed", err)
	}
	defer b.Close()

	reqs := make([]resolve.Request, len(queries))
	for i, q := range queries {
		reqs[i] = resolve.Request{Text: q}
	}
	formatter.VerboseLog("Resolving %d queries with %d job(s)", len(reqs), opts.Jobs)

	ctx := cmd.Context()
	results, err := sess.resolver.ResolveBatch(ctx, reqs, opts.Jobs)
	if err != nil {
		_ = formatter.Error(ErrCodeResolve, err.Error(), nil)
		return WrapExitError(ExitCommandError, "resolution interrupted", err)
	}

	outputs := make([]QueryOutput, len(results))
	failed := 0
	for i, res := range results {
		out, err := b.process(ctx, res, sess.set.Fingerprint)
		if err != nil {
			_ = formatter.Error(ErrCodeHistory, err.Error(), nil)
			return WrapExitError(ExitCommandError, "history write failed", err)
		}
		outputs[i] = out
		if out.Failed() {
			failed++
		}
	}

	if formatter.JSON() {
		return outputResolveJSON(formatter, outputs, failed)
	}
	outputResolveText(formatter.Writer, outputs, mode, opts.Debug)
	return resolveExit(failed, len(outputs))
}

// collectQueries returns the query from args or the lines of file.
func collectQueries(args []string, file string, stdin io.Reader) ([]string, error) {
	if file == "" {
		q := strings.TrimSpace(strings.Join(args, " "))
		if q == "" {
			return nil, fmt.Errorf("no query given: pass text or --file")
		}
		return []string{q}, nil
	}
	if len(args) > 0 {
		return nil, fmt.Errorf("query text and --file are mutually exclusive")
	}

	var r io.Reader = stdin
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("failed to open query file: %w", err)
		}
		defer f.Close()
		r = f
	}

	var queries []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		queries = append(queries, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read queries: %w", err)
	}
	if len(queries) == 0 {
		return nil, fmt.Errorf("no queries in %s", file)
	}
	return queries, nil
}

func outputResolveText(w io.Writer, outputs []QueryOutput, mode resolve.EmitMode, debug bool) {
	multi := len(outputs) > 1
	for i, out := range outputs {
		if multi {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "> %s\n", out.Input)
		}
		fmt.Fprintln(w, resolve.FormatResult(out.Result, mode, debug))
		if out.ExecError != "" {
			fmt.Fprintf(w, "Error [%s]: %s\n", ErrCodeExecute, out.ExecError)
		}
		if out.Rows != nil {
			renderRows(w, out.Rows)
		}
	}
}

func outputResolveJSON(f *OutputFormatter, outputs []QueryOutput, failed int) error {
	var data any = outputs
	if len(outputs) == 1 {
		data = outputs[0]
	}
	resp := CLIResponse{Status: "ok", Data: data}
	if failed > 0 {
		resp.Status = "error"
		resp.Error = &CLIError{Code: ErrCodeResolve, Message: failureMessage(failed, len(outputs))}
	}
	if err := f.Respond(resp); err != nil {
		return err
	}
	return resolveExit(failed, len(outputs))
}

func resolveExit(failed, total int) error {
	if failed == 0 {
		return nil
	}
	return NewExitError(ExitFailure, failureMessage(failed, total))
}

func failureMessage(failed, total int) string {
	return fmt.Sprintf("%d of %d queries failed", failed, total)
}
