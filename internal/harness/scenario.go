package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/nlsql/internal/emitter"
	"github.com/roach88/nlsql/internal/resolve"
)

// Scenario is a named list of resolution cases over one artifact set.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Artifacts is the artifact directory, relative to the scenario file.
	Artifacts string `yaml:"artifacts"`

	// Dialect is the default dialect for cases that do not name one.
	Dialect string `yaml:"dialect,omitempty"`

	// AutoRelax turns the lenient retry of strict type failures off when
	// false. Defaults to on.
	AutoRelax *bool `yaml:"auto_relax,omitempty"`

	// Setup holds SQL statements run against a fresh in-memory database
	// before any case. Required when a case expects rows.
	Setup []string `yaml:"setup,omitempty"`

	// Cases are resolved in order.
	Cases []Case `yaml:"cases"`
}

// Case is one input and what it must resolve to.
type Case struct {
	Input   string `yaml:"input"`
	Dialect string `yaml:"dialect,omitempty"`
	TopK    int    `yaml:"topk,omitempty"`

	// Strict overrides strict binding for this case. Auto-relax still
	// applies to strict cases.
	Strict *bool `yaml:"strict,omitempty"`

	Expect Expect `yaml:"expect"`
}

// Expect lists the checked properties of a resolution. Nil or empty fields
// are not checked.
type Expect struct {
	OK           *bool    `yaml:"ok,omitempty"`
	Canonical    string   `yaml:"canonical,omitempty"`
	SQL          string   `yaml:"sql,omitempty"`
	SQLContains  string   `yaml:"sql_contains,omitempty"`
	FailCategory string   `yaml:"fail_category,omitempty"`
	Relaxed      *bool    `yaml:"relaxed,omitempty"`
	Warnings     []string `yaml:"warnings,omitempty"`
	Rows         *int     `yaml:"rows,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// The artifact path is resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "expects:" vs "expect:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Artifacts != "" && !filepath.IsAbs(scenario.Artifacts) {
		scenario.Artifacts = filepath.Join(filepath.Dir(path), scenario.Artifacts)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every .yaml file in dir, in name order.
func LoadScenarios(dir string) ([]*Scenario, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no scenario files found in %s", dir)
	}

	scenarios := make([]*Scenario, 0, len(matches))
	for _, path := range matches {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Artifacts == "" {
		return fmt.Errorf("artifacts is required")
	}
	if _, err := os.Stat(s.Artifacts); os.IsNotExist(err) {
		return fmt.Errorf("artifact directory not found: %s", s.Artifacts)
	}
	if s.Dialect != "" {
		if _, err := emitter.ParseDialect(s.Dialect); err != nil {
			return err
		}
	}
	if len(s.Cases) == 0 {
		return fmt.Errorf("cases list is required and must be non-empty")
	}

	for i, c := range s.Cases {
		if err := validateCase(i, &c, len(s.Setup) > 0); err != nil {
			return err
		}
	}
	return nil
}

func validateCase(index int, c *Case, haveDB bool) error {
	if c.Input == "" {
		return fmt.Errorf("cases[%d]: input is required", index)
	}
	if c.Dialect != "" {
		if _, err := emitter.ParseDialect(c.Dialect); err != nil {
			return fmt.Errorf("cases[%d]: %w", index, err)
		}
	}
	if c.TopK < 0 {
		return fmt.Errorf("cases[%d]: topk must be non-negative", index)
	}

	e := c.Expect
	if e.FailCategory != "" {
		switch resolve.FailCategory(e.FailCategory) {
		case resolve.FailNormalizerZero, resolve.FailBinder, resolve.FailParser, resolve.FailEmitter:
		default:
			return fmt.Errorf("cases[%d].expect: unknown fail_category %q", index, e.FailCategory)
		}
	}
	if e.Rows != nil {
		if !haveDB {
			return fmt.Errorf("cases[%d].expect: rows requires setup statements", index)
		}
		if *e.Rows < 0 {
			return fmt.Errorf("cases[%d].expect: rows must be non-negative", index)
		}
	}
	if e.OK == nil && e.Canonical == "" && e.SQL == "" && e.SQLContains == "" &&
		e.FailCategory == "" && e.Relaxed == nil && len(e.Warnings) == 0 && e.Rows == nil {
		return fmt.Errorf("cases[%d]: expect must check at least one field", index)
	}
	return nil
}
