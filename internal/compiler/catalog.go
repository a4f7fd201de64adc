// Package compiler turns a CUE catalog source into an ir.Catalog and its
// alias vocabulary, and checks the result against the catalog-load rules.
package compiler

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/nlsql/internal/ir"
)

//go:embed schema.cue
var schemaSource string

// CompileString compiles catalog source text. filename is only used in
// error positions.
func CompileString(src, filename string) (*ir.Catalog, ir.Vocabulary, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(filename))
	return CompileCatalog(v)
}

// CompileCatalog checks v against the catalog schema and converts it.
//
// Column ids are the column names, or "table.column" for tables marked
// qualified. Every canonical id gets an identity alias.
func CompileCatalog(v cue.Value) (*ir.Catalog, ir.Vocabulary, error) {
	if err := v.Err(); err != nil {
		return nil, ir.Vocabulary{}, formatCUEError(err, v)
	}

	schema := v.Context().CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, ir.Vocabulary{}, fmt.Errorf("catalog schema: %w", err)
	}
	src := v
	v = schema.LookupPath(cue.ParsePath("#Catalog")).Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, ir.Vocabulary{}, formatCUEError(err, src)
	}

	c := &ir.Catalog{
		Tables:     make(map[string]ir.Table),
		Columns:    make(map[string]ir.Column),
		Functions:  make(map[string]ir.Function),
		Connectors: ir.DefaultConnectors(),
	}

	if err := parseTables(v, c); err != nil {
		return nil, ir.Vocabulary{}, err
	}
	if err := parseFunctions(v, c); err != nil {
		return nil, ir.Vocabulary{}, err
	}
	if err := parseConnectors(v, c); err != nil {
		return nil, ir.Vocabulary{}, err
	}
	vocab, err := parseAliases(v)
	if err != nil {
		return nil, ir.Vocabulary{}, err
	}
	return c, vocab.WithIdentities(c.CanonicalIDs()), nil
}

// parseTables fills tables and columns, keeping column declaration order.
func parseTables(v cue.Value, c *ir.Catalog) error {
	iter, err := v.LookupPath(cue.ParsePath("tables")).Fields()
	if err != nil {
		return formatCUEError(err, v)
	}
	if !iter.Next() {
		return &CompileError{Field: "tables", Message: "at least one table is required", Pos: v.Pos()}
	}

	for {
		name := iter.Label()
		tv := iter.Value()

		qualified, err := optionalBool(tv, "qualified")
		if err != nil {
			return err
		}

		colIter, err := tv.LookupPath(cue.ParsePath("columns")).Fields()
		if err != nil {
			return formatCUEError(err, tv)
		}
		var table ir.Table
		for colIter.Next() {
			id := colIter.Label()
			if qualified {
				id = name + "." + id
			}
			if _, dup := c.Columns[id]; dup {
				return &CompileError{
					Field:   fmt.Sprintf("tables.%s.columns.%s", name, colIter.Label()),
					Message: fmt.Sprintf("column id %q is already declared by table %q", id, c.Columns[id].Table),
					Pos:     colIter.Value().Pos(),
				}
			}
			col, err := parseColumn(colIter.Value(), name)
			if err != nil {
				return err
			}
			c.Columns[id] = col
			table.Columns = append(table.Columns, id)
		}
		c.Tables[name] = table

		if !iter.Next() {
			return nil
		}
	}
}

func parseColumn(v cue.Value, table string) (ir.Column, error) {
	col := ir.Column{Table: table}
	var err error
	if col.Type, err = optionalString(v, "type"); err != nil {
		return col, err
	}
	if col.TypeCategory, err = optionalString(v, "category"); err != nil {
		return col, err
	}
	if col.Labels, err = stringList(v, "labels"); err != nil {
		return col, err
	}
	return col, nil
}

// parseFunctions extracts function definitions. A function without args is
// variadic.
func parseFunctions(v cue.Value, c *ir.Catalog) error {
	fv := v.LookupPath(cue.ParsePath("functions"))
	if !fv.Exists() {
		return nil
	}
	iter, err := fv.Fields()
	if err != nil {
		return formatCUEError(err, fv)
	}

	for iter.Next() {
		fnv := iter.Value()
		fn := ir.Function{Class: ir.ClassProjection}

		if fn.Args, err = stringList(fnv, "args"); err != nil {
			return err
		}
		class, err := optionalString(fnv, "class")
		if err != nil {
			return err
		}
		if class != "" {
			fn.Class = ir.FunctionClass(class)
		}
		if fn.Template, err = optionalString(fnv, "template"); err != nil {
			return err
		}
		if fn.Returns, err = optionalString(fnv, "returns"); err != nil {
			return err
		}
		if fn.Rule.AcceptedTypes, err = stringList(fnv, "accepts"); err != nil {
			return err
		}
		if fn.Rule.LabelRules, err = stringList(fnv, "labels"); err != nil {
			return err
		}
		c.Functions[iter.Label()] = fn
	}
	return nil
}

// parseConnectors overrides default connector surfaces.
func parseConnectors(v cue.Value, c *ir.Catalog) error {
	cv := v.LookupPath(cue.ParsePath("connectors"))
	if !cv.Exists() {
		return nil
	}
	iter, err := cv.Fields()
	if err != nil {
		return formatCUEError(err, cv)
	}
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return formatCUEError(err, iter.Value())
		}
		c.Connectors[iter.Label()] = s
	}
	return nil
}

// parseAliases reads "phrase": "id" as deterministic and
// "phrase": ["id", ...] as ambiguous.
func parseAliases(v cue.Value) (ir.Vocabulary, error) {
	vocab := ir.Vocabulary{
		Deterministic:    make(map[string]string),
		NonDeterministic: make(map[string][]string),
	}
	av := v.LookupPath(cue.ParsePath("aliases"))
	if !av.Exists() {
		return vocab, nil
	}
	iter, err := av.Fields()
	if err != nil {
		return vocab, formatCUEError(err, av)
	}

	for iter.Next() {
		phrase, val := iter.Label(), iter.Value()
		if s, err := val.String(); err == nil {
			vocab.Deterministic[phrase] = s
			continue
		}
		var ids []string
		if err := val.Decode(&ids); err != nil {
			return vocab, &CompileError{
				Field:   "aliases." + phrase,
				Message: "must be a canonical id or a list of ids",
				Pos:     val.Pos(),
			}
		}
		vocab.NonDeterministic[phrase] = ids
	}
	return vocab, nil
}

func optionalString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err, fv)
	}
	return s, nil
}

func optionalBool(v cue.Value, field string) (bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return false, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return false, formatCUEError(err, fv)
	}
	return b, nil
}

func stringList(v cue.Value, field string) ([]string, error) {
	lv := v.LookupPath(cue.ParsePath(field))
	if !lv.Exists() {
		return nil, nil
	}
	iter, err := lv.List()
	if err != nil {
		return nil, formatCUEError(err, lv)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err, iter.Value())
		}
		out = append(out, s)
	}
	return out, nil
}
