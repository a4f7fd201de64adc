package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content fingerprints. The version suffix allows the
// encoding to change without colliding with old fingerprints.
const (
	DomainCatalog    = "nlsql/catalog/v1"
	DomainVocabulary = "nlsql/vocabulary/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// CatalogFingerprint identifies a catalog by content. Two catalogs with the
// same tables, columns, functions and connectors share a fingerprint
// regardless of map iteration order.
func CatalogFingerprint(c *Catalog) (string, error) {
	tables := make(map[string]any, len(c.Tables))
	for id, t := range c.Tables {
		tables[id] = nonNil(t.Columns)
	}
	columns := make(map[string]any, len(c.Columns))
	for id, col := range c.Columns {
		columns[id] = map[string]any{
			"table":         col.Table,
			"type":          col.Type,
			"type_category": col.TypeCategory,
			"labels":        nonNil(col.Labels),
		}
	}
	functions := make(map[string]any, len(c.Functions))
	for id, fn := range c.Functions {
		functions[id] = map[string]any{
			"args":           nonNil(fn.Args),
			"class":          string(fn.Class),
			"template":       fn.Template,
			"returns_type":   fn.Returns,
			"accepted_types": nonNil(fn.Rule.AcceptedTypes),
			"label_rules":    nonNil(fn.Rule.LabelRules),
		}
	}
	connectors := make(map[string]any, len(c.Connectors))
	for k, v := range c.Connectors {
		connectors[k] = v
	}

	data, err := MarshalCanonical(map[string]any{
		"version":    CatalogVersion,
		"tables":     tables,
		"columns":    columns,
		"functions":  functions,
		"connectors": connectors,
	})
	if err != nil {
		return "", fmt.Errorf("CatalogFingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainCatalog, data), nil
}

// VocabularyFingerprint identifies a vocabulary by content.
func VocabularyFingerprint(v Vocabulary) (string, error) {
	det := make(map[string]any, len(v.Deterministic))
	for k, val := range v.Deterministic {
		det[k] = val
	}
	nd := make(map[string]any, len(v.NonDeterministic))
	for k, vals := range v.NonDeterministic {
		nd[k] = nonNil(vals)
	}
	data, err := MarshalCanonical(map[string]any{
		"deterministic":     det,
		"non_deterministic": nd,
	})
	if err != nil {
		return "", fmt.Errorf("VocabularyFingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainVocabulary, data), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
