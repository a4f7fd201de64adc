package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/roach88/nlsql/internal/artifacts"
	"github.com/roach88/nlsql/internal/config"
	"github.com/roach88/nlsql/internal/emitter"
	"github.com/roach88/nlsql/internal/resolve"
	"github.com/roach88/nlsql/internal/store"
	"github.com/roach88/nlsql/internal/tokenize"
)

// ShellOptions holds flags for the shell command.
type ShellOptions struct {
	*RootOptions
	Emit        string
	Watch       bool
	HistoryFile string // readline line history, not the resolution log
}

// reloadDelay debounces bursts of file events from editors.
const reloadDelay = 200 * time.Millisecond

var shellCommands = []string{
	":help", ":quit", ":q", ":mode", ":strict", ":engine", ":topk", ":debug",
	":tokens", ":execute", ":db", ":reload", ":settings",
}

// NewShellCommand creates the shell command.
func NewShellCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShellOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Resolve queries interactively",
		Long: `Start an interactive session. Every line is resolved as a query;
lines starting with ':' are commands (type :help).

With --watch (the default) the artifact directory is reloaded whenever a
file in it changes. A reload that fails its gates keeps the previous
catalog.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(opts, cmd)
		},
	}

	addResolverFlags(cmd.Flags())
	addExecFlags(cmd.Flags())
	cmd.Flags().StringVar(&opts.Emit, "emit", string(resolve.EmitBoth), "what to print on success (canonical|sql|both|tokens)")
	cmd.Flags().BoolVar(&opts.Watch, "watch", true, "reload artifacts when they change")
	cmd.Flags().StringVar(&opts.HistoryFile, "line-history", "", "file to keep typed lines in")

	return cmd
}

func runShell(opts *ShellOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	formatter.Format = "text"

	mode, err := resolve.ParseEmitMode(opts.Emit)
	if err != nil {
		_ = formatter.Error(ErrCodeUsage, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid --emit", err)
	}

	sess, err := openSession(formatter, opts.RootOptions, cmd, false)
	if err != nil {
		return err
	}
	b, err := openBackends(sess.cfg)
	if err != nil {
		_ = formatter.Error(ErrCodeExecute, err.Error(), nil)
		return WrapExitError(ExitCommandError, "database setup failed", err)
	}
	defer b.Close()

	sh := newShell(sess.cfg, sess.set, b, cmd.OutOrStdout())
	sh.mode = mode

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	if opts.Watch {
		if err := sh.Watch(ctx); err != nil {
			slog.Warn("artifact watch disabled", "dir", sess.set.Dir, "error", err)
		}
	}

	items := make([]readline.PrefixCompleterInterface, len(shellCommands))
	for i, c := range shellCommands {
		items[i] = readline.PcItem(c)
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "nlsql> ",
		HistoryFile:     opts.HistoryFile,
		AutoComplete:    readline.NewPrefixCompleter(items...),
		InterruptPrompt: "^C",
		EOFPrompt:       ":quit",
		Stdin:           io.NopCloser(cmd.InOrStdin()),
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		_ = formatter.Error(ErrCodeUsage, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to start shell", err)
	}
	defer rl.Close()

	sh.banner()
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				fmt.Fprintln(sh.out, "(use :quit to exit)")
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if sh.Exec(ctx, line) {
			return nil
		}
	}
}

// Shell is one interactive session. Exec runs on a single goroutine; only
// the artifact set and resolver are swapped concurrently by Watch.
type Shell struct {
	mu       sync.Mutex
	cfg      config.Config
	set      *artifacts.Set
	resolver *resolve.Resolver
	backends *backends
	out      io.Writer

	mode   resolve.EmitMode
	debug  bool
	tokens bool
}

// newShell creates a session over a loaded artifact set. cfg is copied.
func newShell(cfg *config.Config, set *artifacts.Set, b *backends, out io.Writer) *Shell {
	s := &Shell{cfg: *cfg, set: set, backends: b, out: out, mode: resolve.EmitBoth}
	s.resolver = newResolver(&s.cfg, set, false)
	return s
}

func (s *Shell) banner() {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, "nlsql shell: %d table(s) from %s, dialect %s. Type :help for commands.\n",
		len(s.set.Catalog.Tables), s.set.Dir, s.cfg.Dialect().Title())
}

// Set returns the artifact set in use.
func (s *Shell) Set() *artifacts.Set {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set
}

// Exec handles one input line and reports whether the session should end.
func (s *Shell) Exec(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return false
	case strings.HasPrefix(line, ":"):
		return s.meta(line)
	}

	s.mu.Lock()
	r, fp := s.resolver, s.set.Fingerprint
	mode, debug, showTokens := s.mode, s.debug, s.tokens
	s.mu.Unlock()

	out, err := s.backends.process(ctx, r.Resolve(line), fp)

	// The watcher reports reloads on s.out under mu.
	s.mu.Lock()
	defer s.mu.Unlock()
	if showTokens {
		fmt.Fprintf(s.out, "tokens: %q\n", tokenize.Tokens(line))
	}
	if err != nil {
		fmt.Fprintf(s.out, "Error [%s]: %v\n", ErrCodeHistory, err)
	}
	outputResolveText(s.out, []QueryOutput{out}, mode, debug)
	return false
}

func (s *Shell) meta(line string) bool {
	fields := strings.Fields(line)
	name, args := fields[0], fields[1:]
	arg := ""
	if len(args) > 0 {
		arg = args[0]
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch name {
	case ":quit", ":q", ":exit":
		return true
	case ":help":
		s.help()
	case ":settings":
		s.settings()
	case ":mode":
		m, err := resolve.ParseEmitMode(arg)
		if err != nil {
			s.usage(err)
			return false
		}
		s.mode = m
		fmt.Fprintf(s.out, "mode: %s\n", m)
	case ":strict":
		on, err := parseSwitch(arg)
		if err != nil {
			s.usage(err)
			return false
		}
		s.cfg.StrictBinding = on
		s.rebuild()
		fmt.Fprintf(s.out, "strict: %s\n", onOff(on))
	case ":engine":
		d, err := emitter.ParseDialect(arg)
		if err != nil {
			s.usage(err)
			return false
		}
		s.cfg.Engine = string(d)
		s.rebuild()
		fmt.Fprintf(s.out, "engine: %s\n", d)
	case ":topk":
		k, err := strconv.Atoi(arg)
		if err != nil || k <= 0 {
			s.usage(fmt.Errorf("topk wants a positive integer, got %q", arg))
			return false
		}
		s.cfg.TopK = resolve.ClampTopK(k)
		s.rebuild()
		fmt.Fprintf(s.out, "topk: %d\n", s.cfg.TopK)
	case ":debug":
		on, err := parseSwitch(arg)
		if err != nil {
			s.usage(err)
			return false
		}
		s.debug = on
		s.rebuild()
		fmt.Fprintf(s.out, "debug: %s\n", onOff(on))
	case ":tokens":
		on, err := parseSwitch(arg)
		if err != nil {
			s.usage(err)
			return false
		}
		s.tokens = on
		fmt.Fprintf(s.out, "tokens: %s\n", onOff(on))
	case ":execute":
		on, err := parseSwitch(arg)
		if err != nil {
			s.usage(err)
			return false
		}
		if on && s.backends.target == nil {
			s.usage(errors.New("no database: use :db <path> first"))
			return false
		}
		s.backends.execute = on
		fmt.Fprintf(s.out, "execute: %s\n", onOff(on))
	case ":db":
		if arg == "" {
			s.usage(errors.New(":db wants a path"))
			return false
		}
		db, err := store.OpenTarget(arg)
		if err != nil {
			s.usage(err)
			return false
		}
		if s.backends.target != nil {
			s.backends.target.Close()
		}
		s.backends.target = db
		s.cfg.DB = arg
		fmt.Fprintf(s.out, "db: %s\n", arg)
	case ":reload":
		s.reloadLocked()
	default:
		s.usage(fmt.Errorf("unknown command %s (type :help)", name))
	}
	return false
}

// rebuild replaces the resolver after a settings change. Caller holds mu.
func (s *Shell) rebuild() {
	s.resolver = newResolver(&s.cfg, s.set, s.debug)
}

// reloadLocked reloads the artifact directory. Caller holds mu.
func (s *Shell) reloadLocked() {
	set, err := artifacts.Load(s.set.Dir)
	if err != nil {
		slog.Warn("artifact reload failed", "dir", s.set.Dir, "error", err)
		fmt.Fprintf(s.out, "reload failed, keeping previous catalog: %v\n", err)
		return
	}
	s.set = set
	s.rebuild()
	fmt.Fprintf(s.out, "reloaded %s (%s)\n", set.Dir, set.Fingerprint[:12])
}

// Watch reloads the artifact directory after it changes, until ctx ends.
func (s *Shell) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(s.Set().Dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", s.Set().Dir, err)
	}

	go func() {
		defer watcher.Close()
		var timer *time.Timer
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !isArtifactFile(event.Name) {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
					!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
					continue
				}
				slog.Debug("artifact changed", "file", event.Name, "op", event.Op.String())
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(reloadDelay, func() {
					if ctx.Err() != nil {
						return
					}
					s.mu.Lock()
					defer s.mu.Unlock()
					s.reloadLocked()
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("artifact watch error", "error", err)
			}
		}
	}()
	return nil
}

func isArtifactFile(path string) bool {
	switch filepath.Ext(path) {
	case ".cue", ".yaml", ".yml", ".ebnf":
		return true
	}
	return false
}

func (s *Shell) help() {
	fmt.Fprint(s.out, `Commands:
  :mode canonical|sql|both|tokens   what to print for a resolved query
  :strict on|off                    strict type binding
  :engine <dialect>                 sqlite, postgres, duckdb or mysql
  :topk <n>                         candidates to try (1-50)
  :debug on|off                     diagnostics after each result
  :tokens on|off                    show input tokens
  :db <path>                        sqlite database to run SQL against
  :execute on|off                   run resolved SQL against :db
  :reload                           reload the artifact directory
  :settings                         show current settings
  :quit                             leave the shell
`)
}

func (s *Shell) settings() {
	fmt.Fprintf(s.out, "artifacts: %s (%s)\n", s.set.Dir, s.set.Fingerprint[:12])
	fmt.Fprintf(s.out, "engine: %s  topk: %d  strict: %s  auto_relax: %s\n",
		s.cfg.Engine, s.cfg.TopK, onOff(s.cfg.StrictBinding), onOff(s.cfg.AutoRelax))
	fmt.Fprintf(s.out, "mode: %s  debug: %s  tokens: %s  execute: %s\n",
		s.mode, onOff(s.debug), onOff(s.tokens), onOff(s.backends.execute))
	if s.cfg.DB != "" {
		fmt.Fprintf(s.out, "db: %s  limit: %d\n", s.cfg.DB, s.cfg.LimitRows)
	}
}

func (s *Shell) usage(err error) {
	fmt.Fprintf(s.out, "Error [%s]: %v\n", ErrCodeUsage, err)
}

func parseSwitch(arg string) (bool, error) {
	switch strings.ToLower(arg) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("want on or off, got %q", arg)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
