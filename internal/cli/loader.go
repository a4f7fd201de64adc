package cli

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/roach88/nlsql/internal/artifacts"
	"github.com/roach88/nlsql/internal/config"
	"github.com/roach88/nlsql/internal/emitter"
	"github.com/roach88/nlsql/internal/resolve"
)

// addArtifactsFlag registers --artifacts. Its value reaches commands
// through config.Load, not a bound variable.
func addArtifactsFlag(fs *pflag.FlagSet) {
	fs.StringP("artifacts", "a", config.DefaultArtifacts, "artifact directory (CUE catalog or YAML artifact set)")
}

// addResolverFlags registers the flags that shape resolution. Only flags
// the user sets override the config file and environment.
func addResolverFlags(fs *pflag.FlagSet) {
	addArtifactsFlag(fs)
	fs.String("dialect", string(emitter.SQLite), "SQL dialect (sqlite|postgres|duckdb|mysql)")
	fs.Int("topk", resolve.DefaultTopK, "normalizer candidates to try (1-50)")
	fs.Bool("strict", true, "strict type binding; --strict=false coerces")
	fs.Bool("auto-relax", true, "retry type mismatches once with coercion")
	fs.String("coerce-scope", "table", "where coercion may look for columns (table|catalog)")
	fs.Bool("case-insensitive", true, "fold case while normalizing")
	fs.Bool("verify", false, "check emitted SQL with the dialect's parser")
}

// addExecFlags registers the SQL execution flags.
func addExecFlags(fs *pflag.FlagSet) {
	fs.Bool("execute", false, "run emitted SQL against --db")
	fs.Int("limit", config.DefaultLimitRows, "row limit appended to executed SQL (0 = none)")
	fs.String("db", "", "sqlite database for --execute")
	fs.String("history", "", "sqlite database to log resolutions to")
}

// session is what every resolving command needs.
type session struct {
	cfg      *config.Config
	set      *artifacts.Set
	resolver *resolve.Resolver
}

// loadConfig reads the layered config and maps failures to exit code 2.
func loadConfig(f *OutputFormatter, opts *RootOptions, cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(opts.Config, cmd.Flags())
	if err != nil {
		_ = f.Error(ErrCodeConfig, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	if cfg.File != "" {
		f.VerboseLog("Using config file %s", cfg.File)
	}
	return cfg, nil
}

// loadArtifacts loads and gates the artifact directory. Load failures are
// command errors.
func loadArtifacts(f *OutputFormatter, dir string) (*artifacts.Set, error) {
	set, err := artifacts.Load(dir)
	if err != nil {
		return nil, outputLoadError(f, err)
	}
	f.VerboseLog("Loaded %s artifacts from %s (%d file(s), fingerprint %s)",
		set.Source, set.Dir, len(set.Files), set.Fingerprint[:12])
	return set, nil
}

// outputLoadError reports an artifact error with its code.
func outputLoadError(f *OutputFormatter, err error) error {
	code := artifacts.CodeOf(err)
	var le *artifacts.LoadError
	if errors.As(err, &le) && len(le.Violations) > 0 {
		_ = f.Error(code, le.Message, le.Violations)
	} else {
		_ = f.Error(code, err.Error(), nil)
	}
	return WrapExitError(ExitCommandError, code, err)
}

// openSession loads config and artifacts and builds a resolver.
func openSession(f *OutputFormatter, opts *RootOptions, cmd *cobra.Command, recording bool) (*session, error) {
	cfg, err := loadConfig(f, opts, cmd)
	if err != nil {
		return nil, err
	}
	set, err := loadArtifacts(f, cfg.Artifacts)
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, set: set, resolver: newResolver(cfg, set, recording)}, nil
}

func newResolver(cfg *config.Config, set *artifacts.Set, recording bool) *resolve.Resolver {
	ropts := append(cfg.ResolverOptions(),
		resolve.WithRecording(recording),
		resolve.WithLogger(slog.Default()),
	)
	return resolve.New(set.Catalog, set.Vocabulary, set.Grammar, ropts...)
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
