package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/nlsql/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Count int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List logged resolutions",
		Long: `List resolutions recorded with --history, newest first.

The history database comes from --history, NLSQL_HISTORY or the history
key of nlsql.yaml.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	addArtifactsFlag(cmd.Flags())
	cmd.Flags().String("history", "", "sqlite database resolutions were logged to")
	cmd.Flags().IntVarP(&opts.Count, "count", "n", 20, "records to show (0 = all)")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := loadConfig(formatter, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	if cfg.History == "" {
		err := errors.New("no history database configured (use --history)")
		_ = formatter.Error(ErrCodeHistory, err.Error(), nil)
		return WrapExitError(ExitCommandError, "history", err)
	}

	s, err := store.Open(cfg.History)
	if err != nil {
		_ = formatter.Error(ErrCodeHistory, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open history", err)
	}
	defer s.Close()

	records, err := s.List(cmd.Context(), opts.Count)
	if err != nil {
		_ = formatter.Error(ErrCodeHistory, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read history", err)
	}
	if records == nil {
		records = []store.Record{}
	}

	if formatter.JSON() {
		return formatter.Success(records)
	}
	if len(records) == 0 {
		fmt.Fprintln(formatter.Writer, "No resolutions recorded.")
		return nil
	}
	renderHistory(formatter.Writer, records)
	return nil
}
