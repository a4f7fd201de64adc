// Package config loads nlsql runtime configuration from defaults, a YAML
// file, NLSQL_* environment variables and command-line flags, in that order
// of increasing precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/roach88/nlsql/internal/binder"
	"github.com/roach88/nlsql/internal/emitter"
	"github.com/roach88/nlsql/internal/normalize"
	"github.com/roach88/nlsql/internal/resolve"
)

// FileName is the config file looked up when none is given.
const FileName = "nlsql.yaml"

// EnvPrefix prefixes environment overrides: NLSQL_TOPK=10.
const EnvPrefix = "NLSQL_"

// DefaultArtifacts is the artifact directory when none is configured.
const DefaultArtifacts = "artifacts"

// DefaultLimitRows caps executed queries.
const DefaultLimitRows = 1000

// Config holds all runtime options.
type Config struct {
	Artifacts           string `koanf:"artifacts"`
	Engine              string `koanf:"engine"`
	TopK                int    `koanf:"topk"`
	CaseInsensitive     bool   `koanf:"case_insensitive"`
	StrictBinding       bool   `koanf:"strict_binding"`
	AutoRelax           bool   `koanf:"auto_relax"`
	CoerceScope         string `koanf:"coerce_scope"`
	AllowOrderingInArgs bool   `koanf:"allow_ordering_in_args"`
	CapNodes            int    `koanf:"cap_nodes"`
	CapResults          int    `koanf:"cap_results"`
	ExecuteSQL          bool   `koanf:"execute_sql"`
	LimitRows           int    `koanf:"limit_rows"`
	DB                  string `koanf:"db"`
	History             string `koanf:"history"`
	VerifySQL           bool   `koanf:"verify_sql"`

	// File is the config file that was read, if any.
	File string `koanf:"-"`
}

// Defaults returns the built-in configuration.
func Defaults() map[string]any {
	limits := normalize.DefaultLimits()
	return map[string]any{
		"artifacts":              DefaultArtifacts,
		"engine":                 string(emitter.SQLite),
		"topk":                   resolve.DefaultTopK,
		"case_insensitive":       true,
		"strict_binding":         true,
		"auto_relax":             true,
		"coerce_scope":           string(binder.ScopeTable),
		"allow_ordering_in_args": false,
		"cap_nodes":              limits.MaxNodes,
		"cap_results":            limits.MaxResults,
		"execute_sql":            false,
		"limit_rows":             DefaultLimitRows,
		"db":                     "",
		"history":                "",
		"verify_sql":             false,
	}
}

// flagKeys maps flag names that differ from their config key.
var flagKeys = map[string]string{
	"dialect": "engine",
	"strict":  "strict_binding",
	"execute": "execute_sql",
	"limit":   "limit_rows",
	"verify":  "verify_sql",
}

// Load builds a Config. cfgFile may be empty, in which case nlsql.yaml is
// looked for in the working directory and then in the artifact directory.
// Only flags the user actually set take part. flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	path := findConfigFile(cfgFile, artifactsHint(flags))
	if cfgFile != "" {
		if _, err := os.Stat(cfgFile); err != nil {
			return nil, fmt.Errorf("config file %s: %w", cfgFile, err)
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	// 3. Environment: NLSQL_CAP_NODES -> cap_nodes
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			if mapped, ok := flagKeys[f.Name]; ok {
				key = mapped
			}
			if _, known := Defaults()[key]; !known {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = path

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// artifactsHint is the artifact directory from a set flag or the
// environment, used only to find the config file.
func artifactsHint(flags *pflag.FlagSet) string {
	if flags != nil && flags.Changed("artifacts") {
		if v, err := flags.GetString("artifacts"); err == nil && v != "" {
			return v
		}
	}
	if v := os.Getenv(EnvPrefix + "ARTIFACTS"); v != "" {
		return v
	}
	return DefaultArtifacts
}

// findConfigFile finds the config file to use.
// Priority: explicit path > ./nlsql.yaml > <artifacts>/nlsql.yaml
func findConfigFile(explicit, artifacts string) string {
	if explicit != "" {
		return explicit
	}
	for _, candidate := range []string{FileName, filepath.Join(artifacts, FileName)} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// Validate rejects unknown enumerations and clamps numeric limits.
func (c *Config) Validate() error {
	d, err := emitter.ParseDialect(c.Engine)
	if err != nil {
		return fmt.Errorf("invalid engine: %w", err)
	}
	c.Engine = string(d)

	switch binder.CoerceScope(strings.ToLower(c.CoerceScope)) {
	case binder.ScopeTable, "":
		c.CoerceScope = string(binder.ScopeTable)
	case binder.ScopeCatalog:
		c.CoerceScope = string(binder.ScopeCatalog)
	default:
		return fmt.Errorf("invalid coerce_scope %q (want table or catalog)", c.CoerceScope)
	}

	c.TopK = resolve.ClampTopK(c.TopK)
	defaults := normalize.DefaultLimits()
	if c.CapNodes <= 0 {
		c.CapNodes = defaults.MaxNodes
	}
	if c.CapResults <= 0 {
		c.CapResults = defaults.MaxResults
	}
	if c.LimitRows < 0 {
		c.LimitRows = 0
	}
	return nil
}

// Dialect returns the validated engine.
func (c *Config) Dialect() emitter.Dialect {
	return emitter.Dialect(c.Engine)
}

// BinderOptions returns the first-pass binder strictness. Non-strict
// binding coerces.
func (c *Config) BinderOptions() binder.Options {
	return binder.Options{
		StrictTypes:         c.StrictBinding,
		CoerceTypes:         !c.StrictBinding,
		AllowOrderingInArgs: c.AllowOrderingInArgs,
		CoerceScope:         binder.CoerceScope(c.CoerceScope),
	}
}

// Limits returns the normalizer search caps.
func (c *Config) Limits() normalize.Limits {
	return normalize.Limits{MaxNodes: c.CapNodes, MaxResults: c.CapResults}
}

// ResolverOptions translates the config into resolver options.
func (c *Config) ResolverOptions() []resolve.Option {
	return []resolve.Option{
		resolve.WithTopK(c.TopK),
		resolve.WithDialect(c.Dialect()),
		resolve.WithCaseInsensitive(c.CaseInsensitive),
		resolve.WithLimits(c.Limits()),
		resolve.WithBinderOptions(c.BinderOptions()),
		resolve.WithAutoRelax(c.AutoRelax),
		resolve.WithVerify(c.VerifySQL),
	}
}
