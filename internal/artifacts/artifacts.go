// Package artifacts loads the catalog, alias vocabulary and grammar that the
// resolver runs against, and refuses to hand out a set that fails the
// catalog-load gates.
//
// An artifact directory holds either CUE catalog files (compiled with
// internal/compiler) or a YAML artifact set:
//
//	h_binder.yaml      catalogs: {tables, columns, functions, connectors}
//	h_vocabulary.yaml  deterministic_aliases, non_deterministic_aliases
//
// The YAML set is what Write produces from a compiled CUE catalog.
package artifacts

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"github.com/jinzhu/inflection"

	"github.com/roach88/nlsql/internal/compiler"
	"github.com/roach88/nlsql/internal/grammar"
	"github.com/roach88/nlsql/internal/ir"
)

// Artifact file names.
const (
	BinderFile     = "h_binder.yaml"
	VocabularyFile = "h_vocabulary.yaml"
	GrammarFile    = "h_grammar.ebnf"
)

// Source records which kind of artifact directory a Set came from.
type Source string

const (
	SourceCUE  Source = "cue"
	SourceYAML Source = "yaml"
)

// Default round-trip gate parameters.
const (
	DefaultRoundTripSamples        = 50
	DefaultRoundTripSeed    uint64 = 7
)

// Set is a loaded, gated artifact set. It is read-only once returned and may
// be shared by concurrent resolvers.
type Set struct {
	Dir         string
	Source      Source
	Files       []string
	Catalog     *ir.Catalog
	Vocabulary  ir.Vocabulary
	Grammar     *grammar.Grammar
	Fingerprint string
}

type options struct {
	samples     int
	seed        uint64
	inflections bool
}

// Option configures Load.
type Option func(*options)

// WithRoundTrip sets how many seeded canonical strings the round-trip gate
// checks. samples <= 0 disables the gate.
func WithRoundTrip(samples int, seed uint64) Option {
	return func(o *options) {
		o.samples = samples
		o.seed = seed
	}
}

// WithInflections toggles plural/singular table aliases (default on).
func WithInflections(on bool) Option {
	return func(o *options) {
		o.inflections = on
	}
}

// Load reads the artifact directory dir, runs the catalog-load gates and
// returns the set. Any failure is a *LoadError; the caller should treat it
// as fatal.
func Load(dir string, opts ...Option) (*Set, error) {
	o := options{samples: DefaultRoundTripSamples, seed: DefaultRoundTripSeed, inflections: true}
	for _, opt := range opts {
		opt(&o)
	}

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Path: dir, Message: "artifact directory not found"}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Path: dir, Message: fmt.Sprintf("error accessing artifact directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Path: dir, Message: "not a directory"}
	}

	var set *Set
	if _, err := os.Stat(filepath.Join(dir, BinderFile)); err == nil {
		set, err = loadYAML(dir)
		if err != nil {
			return nil, err
		}
	} else {
		set, err = loadCUE(dir)
		if err != nil {
			return nil, err
		}
	}

	if o.inflections {
		set.Vocabulary = AddInflections(set.Catalog, set.Vocabulary)
	}

	g, err := Check(set.Catalog, set.Vocabulary, o.samples, o.seed)
	if err != nil {
		return nil, err
	}
	set.Grammar = g

	fp, err := ir.CatalogFingerprint(set.Catalog)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeGeneric, Path: dir, Message: err.Error()}
	}
	set.Fingerprint = fp

	slog.Info("catalog loaded",
		"dir", dir,
		"source", set.Source,
		"tables", len(set.Catalog.Tables),
		"columns", len(set.Catalog.Columns),
		"functions", len(set.Catalog.Functions),
		"fingerprint", fp[:12],
	)
	return set, nil
}

// Check runs the catalog-load gates: coded catalog validation, grammar
// compilation with the minimal phrase, and a seeded round trip. It returns
// the compiled grammar.
func Check(c *ir.Catalog, vocab ir.Vocabulary, samples int, seed uint64) (*grammar.Grammar, error) {
	if verrs := compiler.Validate(c, vocab); len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i, ve := range verrs {
			errs[i] = ve
		}
		return nil, &LoadError{
			Code:       ErrCodeGate,
			Message:    fmt.Sprintf("catalog validation failed with %d error(s): %v", len(verrs), errors.Join(errs...)),
			Violations: verrs,
		}
	}

	g, err := grammar.Build(c)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeGate, Message: err.Error()}
	}

	if samples > 0 {
		if err := grammar.CheckRoundTrip(g, c, samples, seed).Err(); err != nil {
			return nil, &LoadError{Code: ErrCodeGate, Message: err.Error()}
		}
	}
	return g, nil
}

// AddInflections returns vocab with the plural and singular forms of every
// table id mapped to the table. Forms that already mean something (an
// alias, a keyword or another canonical id) are left alone.
func AddInflections(c *ir.Catalog, vocab ir.Vocabulary) ir.Vocabulary {
	out := ir.Vocabulary{
		Deterministic:    make(map[string]string, len(vocab.Deterministic)),
		NonDeterministic: vocab.NonDeterministic,
	}
	for k, v := range vocab.Deterministic {
		out.Deterministic[k] = v
	}

	ids := make(map[string]bool)
	for _, id := range c.CanonicalIDs() {
		ids[id] = true
	}

	for _, table := range c.TableIDs() {
		lower := strings.ToLower(table)
		for _, form := range []string{inflection.Plural(lower), inflection.Singular(lower)} {
			if form == table || ids[form] || ir.IsKeyword(form) {
				continue
			}
			if _, ok := out.Deterministic[form]; ok {
				continue
			}
			if _, ok := out.NonDeterministic[form]; ok {
				continue
			}
			out.Deterministic[form] = table
			slog.Debug("inflected table alias", "alias", form, "table", table)
		}
	}
	return out
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func loadCUE(dir string) (*Set, error) {
	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Path: dir, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Path: dir, Message: fmt.Sprintf("no CUE files or %s found", BinderFile)}
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Path: dir, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Path: dir, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Path: dir, Message: fmt.Sprintf("building CUE value: %v", err)}
	}

	c, vocab, err := compiler.CompileCatalog(value)
	if err != nil {
		return nil, convertCompileError(err, dir)
	}
	return &Set{Dir: dir, Source: SourceCUE, Files: files, Catalog: c, Vocabulary: vocab}, nil
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, dir string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    ErrCodeBuildFailed,
			Message: compileErr.Field + ": " + compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeBuildFailed, Path: dir, Message: err.Error()}
}
