package artifacts

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/nlsql/internal/ir"
)

// binderFile is the on-disk shape of h_binder.yaml.
type binderFile struct {
	Catalogs *ir.Catalog `yaml:"catalogs"`
}

func loadYAML(dir string) (*Set, error) {
	binderPath := filepath.Join(dir, BinderFile)
	var bf binderFile
	if err := decodeFile(binderPath, &bf); err != nil {
		return nil, err
	}
	if bf.Catalogs == nil {
		return nil, &LoadError{Code: ErrCodeDecode, Path: binderPath, Message: "missing catalogs section"}
	}
	c := bf.Catalogs
	if c.Connectors == nil {
		c.Connectors = ir.DefaultConnectors()
	}

	vocabPath := filepath.Join(dir, VocabularyFile)
	var vocab ir.Vocabulary
	if err := decodeFile(vocabPath, &vocab); err != nil {
		return nil, err
	}

	return &Set{
		Dir:        dir,
		Source:     SourceYAML,
		Files:      []string{binderPath, vocabPath},
		Catalog:    c,
		Vocabulary: vocab,
	}, nil
}

// decodeFile strictly decodes one YAML document from path into out.
func decodeFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &LoadError{Code: ErrCodeNotFound, Path: path, Message: "file not found"}
	}
	if err != nil {
		return &LoadError{Code: ErrCodeLoadFailed, Path: path, Message: err.Error()}
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return &LoadError{Code: ErrCodeDecode, Path: path, Message: "empty file"}
		}
		return &LoadError{Code: ErrCodeDecode, Path: path, Message: err.Error()}
	}
	return nil
}

// Write stores c, vocab and the grammar text as a YAML artifact set in dir,
// creating dir if needed. The result loads back through Load.
func Write(dir string, c *ir.Catalog, vocab ir.Vocabulary, grammarText string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &LoadError{Code: ErrCodeWriteFailed, Path: dir, Message: err.Error()}
	}

	if err := writeYAML(filepath.Join(dir, BinderFile), binderFile{Catalogs: c}); err != nil {
		return err
	}
	if err := writeYAML(filepath.Join(dir, VocabularyFile), vocab); err != nil {
		return err
	}
	path := filepath.Join(dir, GrammarFile)
	if err := os.WriteFile(path, []byte(grammarText), 0o644); err != nil {
		return &LoadError{Code: ErrCodeWriteFailed, Path: path, Message: err.Error()}
	}
	return nil
}

func writeYAML(path string, v any) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return &LoadError{Code: ErrCodeWriteFailed, Path: path, Message: fmt.Sprintf("encoding: %v", err)}
	}
	if err := enc.Close(); err != nil {
		return &LoadError{Code: ErrCodeWriteFailed, Path: path, Message: err.Error()}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return &LoadError{Code: ErrCodeWriteFailed, Path: path, Message: err.Error()}
	}
	return nil
}
