package ir

import (
	"slices"
	"strings"
)

// FunctionClass separates projection functions from clause-only markers.
type FunctionClass string

const (
	// ClassProjection functions may appear in a SELECT list.
	ClassProjection FunctionClass = "projection"

	// ClassOrdering functions (sort markers) only make sense in an ORDER BY
	// clause. They are never selectable at top level and are rejected as
	// arguments unless explicitly allowed.
	ClassOrdering FunctionClass = "ordering"
)

// Catalog is the immutable description of tables, columns and functions.
//
// All three maps are keyed by canonical id. Column ids may be bare ("age")
// or dotted ("users.age"); either way Column.Table names the owning table.
type Catalog struct {
	Tables     map[string]Table    `json:"tables" yaml:"tables"`
	Columns    map[string]Column   `json:"columns" yaml:"columns"`
	Functions  map[string]Function `json:"functions" yaml:"functions"`
	Connectors Connectors          `json:"connectors" yaml:"connectors"`
}

// Table lists the canonical ids of the columns it owns, in declaration order.
type Table struct {
	Columns []string `json:"columns" yaml:"columns"`
}

// Column describes one column of one table.
type Column struct {
	Table        string   `json:"table" yaml:"table"`
	Type         string   `json:"type,omitempty" yaml:"type,omitempty"`
	TypeCategory string   `json:"type_category,omitempty" yaml:"type_category,omitempty"`
	Labels       []string `json:"labels,omitempty" yaml:"labels,omitempty"`
}

// Function describes a callable canonical function.
//
// Args holds the declared argument roles in order ("column", "value", ...);
// its length is the declared arity. An empty Args means variadic.
type Function struct {
	Args     []string          `json:"args,omitempty" yaml:"args,omitempty"`
	Class    FunctionClass     `json:"class,omitempty" yaml:"class,omitempty"`
	Template string            `json:"template,omitempty" yaml:"template,omitempty"`
	Returns  string            `json:"returns_type,omitempty" yaml:"returns_type,omitempty"`
	Rule     CompatibilityRule `json:"rule" yaml:"rule"`
}

// Arity returns the declared argument count, or 0 when undeclared.
func (f Function) Arity() int {
	return len(f.Args)
}

// IsOrdering reports whether f is a clause-only ordering marker.
func (f Function) IsOrdering() bool {
	return f.Class == ClassOrdering
}

// CompatibilityRule constrains which columns a function accepts.
//
// AcceptedTypes is matched case-insensitively against a column's Type or
// TypeCategory; "any" matches everything. LabelRules entries are either a
// required label ("postgis") or an excluded one ("not id"). Empty fields are
// permissive.
type CompatibilityRule struct {
	AcceptedTypes []string `json:"accepted_types,omitempty" yaml:"accepted_types,omitempty"`
	LabelRules    []string `json:"label_rules,omitempty" yaml:"label_rules,omitempty"`
}

// Accepts evaluates the rule against col.
func (r CompatibilityRule) Accepts(col Column) bool {
	if len(r.AcceptedTypes) > 0 {
		typ := strings.ToLower(col.Type)
		cat := strings.ToLower(col.TypeCategory)
		ok := false
		for _, t := range r.AcceptedTypes {
			t = strings.ToLower(t)
			if t == "any" || (typ != "" && t == typ) || (cat != "" && t == cat) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}

	labels := make(map[string]bool, len(col.Labels))
	for _, l := range col.Labels {
		labels[strings.ToLower(l)] = true
	}
	for _, rule := range r.LabelRules {
		rule = strings.ToLower(strings.TrimSpace(rule))
		if excluded, ok := strings.CutPrefix(rule, "not "); ok {
			if labels[strings.TrimSpace(excluded)] {
				return false
			}
			continue
		}
		if !labels[rule] {
			return false
		}
	}
	return true
}

// Connectors maps connector names to their surface text.
type Connectors map[string]string

// Required connector names.
const (
	ConnectorAnd   = "AND"
	ConnectorOf    = "OF"
	ConnectorFrom  = "FROM"
	ConnectorComma = "COMMA"
)

// DefaultConnectors returns the standard connector surfaces.
func DefaultConnectors() Connectors {
	return Connectors{
		ConnectorAnd:   "and",
		ConnectorOf:    "of",
		ConnectorFrom:  "from",
		ConnectorComma: ",",
	}
}

// Surface returns the surface text for name, falling back to the default.
func (c Connectors) Surface(name string) string {
	if s, ok := c[name]; ok && s != "" {
		return s
	}
	return DefaultConnectors()[name]
}

// IsSurface reports whether tok is the surface of any connector.
func (c Connectors) IsSurface(tok string) bool {
	for name := range DefaultConnectors() {
		if c.Surface(name) == tok {
			return true
		}
	}
	for name := range c {
		if c.Surface(name) == tok {
			return true
		}
	}
	return false
}

// Table looks up a table by id.
func (c *Catalog) Table(id string) (Table, bool) {
	t, ok := c.Tables[id]
	return t, ok
}

// Column looks up a column by id.
func (c *Catalog) Column(id string) (Column, bool) {
	col, ok := c.Columns[id]
	return col, ok
}

// Function looks up a function by id.
func (c *Catalog) Function(id string) (Function, bool) {
	fn, ok := c.Functions[id]
	return fn, ok
}

// TableIDs returns all table ids, sorted.
func (c *Catalog) TableIDs() []string {
	return sortedKeys(c.Tables)
}

// ColumnIDs returns all column ids, sorted.
func (c *Catalog) ColumnIDs() []string {
	return sortedKeys(c.Columns)
}

// FunctionIDs returns all function ids, sorted.
func (c *Catalog) FunctionIDs() []string {
	return sortedKeys(c.Functions)
}

// SelectableFunctionIDs returns the sorted ids of non-ordering functions.
func (c *Catalog) SelectableFunctionIDs() []string {
	var out []string
	for _, id := range c.FunctionIDs() {
		if !c.Functions[id].IsOrdering() {
			out = append(out, id)
		}
	}
	return out
}

// CanonicalIDs returns every table, column and function id, sorted and
// de-duplicated.
func (c *Catalog) CanonicalIDs() []string {
	ids := slices.Concat(c.TableIDs(), c.ColumnIDs(), c.FunctionIDs())
	slices.Sort(ids)
	return slices.Compact(ids)
}

// ColumnName returns the SQL name of a column id: the part after the last
// dot for dotted ids, the id itself otherwise.
func ColumnName(id string) string {
	if i := strings.LastIndex(id, "."); i >= 0 {
		return id[i+1:]
	}
	return id
}

// ResolveColumn finds the column id a table-qualified reference points at.
// Both "users.age" (dotted id) and "age" owned by users are accepted.
func (c *Catalog) ResolveColumn(table, name string) (string, bool) {
	dotted := table + "." + name
	if _, ok := c.Columns[dotted]; ok {
		return dotted, true
	}
	if col, ok := c.Columns[name]; ok && col.Table == table {
		return name, true
	}
	return "", false
}

// ColumnsByBasename returns the column ids of table whose SQL name is base.
func (c *Catalog) ColumnsByBasename(table, base string) []string {
	t, ok := c.Tables[table]
	if !ok {
		return nil
	}
	var out []string
	for _, id := range t.Columns {
		if ColumnName(id) == base {
			out = append(out, id)
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
