package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/nlsql/internal/tokenize"
)

// TokensOptions holds flags for the tokens command.
type TokensOptions struct {
	*RootOptions
	Canonical bool
}

// TokensResult is the JSON payload of the tokens command.
type TokensResult struct {
	Input  string   `json:"input"`
	Tokens []string `json:"tokens"`
}

// NewTokensCommand creates the tokens command.
func NewTokensCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TokensOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "tokens <text...>",
		Short: "Show how text is tokenized",
		Long: `Print the tokens the normalizer sees for a piece of text.

With --canonical the text is split as a canonical phrase, where an
apostrophe is punctuation rather than part of a word.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(opts.RootOptions, cmd)
			text := strings.Join(args, " ")

			split := tokenize.Tokens
			if opts.Canonical {
				split = tokenize.Canonical
			}
			toks := split(text)
			if toks == nil {
				toks = []string{}
			}

			if f.JSON() {
				return f.Success(TokensResult{Input: text, Tokens: toks})
			}
			fmt.Fprintf(f.Writer, "%q\n", toks)
			f.VerboseLog("%d token(s)", len(toks))
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.Canonical, "canonical", false, "split as a canonical phrase")

	return cmd
}
