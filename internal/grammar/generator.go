package grammar

import (
	"math/rand/v2"
	"strings"

	"github.com/roach88/nlsql/internal/ir"
)

// Generator produces random canonical strings for round-trip stress tests.
//
// Output is a deterministic function of the catalog and the seed. Each
// string selects one to three items from one table; about 30% of items are
// function calls whose arguments are compatible columns of that table.
// Variadic functions are only placed last, since "f of a and b" is
// ambiguous in any other position.
type Generator struct {
	catalog   *ir.Catalog
	rng       *rand.Rand
	tables    []string
	functions []string
}

// NewGenerator creates a generator seeded with seed.
func NewGenerator(c *ir.Catalog, seed uint64) *Generator {
	var tables []string
	for _, id := range c.TableIDs() {
		if len(c.Tables[id].Columns) > 0 {
			tables = append(tables, id)
		}
	}
	return &Generator{
		catalog:   c,
		rng:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		tables:    tables,
		functions: c.SelectableFunctionIDs(),
	}
}

// Next returns one canonical string, or false when the catalog has no table
// with columns.
func (g *Generator) Next() (string, bool) {
	if len(g.tables) == 0 {
		return "", false
	}
	c := g.catalog
	table := g.tables[g.rng.IntN(len(g.tables))]
	cols := c.Tables[table].Columns

	k := []int{1, 1, 2, 2, 3}[g.rng.IntN(5)]
	items := make([]string, 0, k)
	for i := 0; i < k; i++ {
		last := i == k-1
		if len(g.functions) > 0 && g.rng.Float64() < 0.30 {
			if item, ok := g.functionItem(table, last); ok {
				items = append(items, item)
				continue
			}
		}
		items = append(items, cols[g.rng.IntN(len(cols))])
	}

	connector := c.Connectors.Surface(ir.ConnectorFrom)
	if g.rng.IntN(5) == 0 {
		connector = c.Connectors.Surface(ir.ConnectorOf)
	}
	return "select " + g.join(items) + " " + connector + " " + table, true
}

// Sample returns n canonical strings.
func (g *Generator) Sample(n int) []string {
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		s, ok := g.Next()
		if !ok {
			break
		}
		out = append(out, s)
	}
	return out
}

func (g *Generator) functionItem(table string, last bool) (string, bool) {
	c := g.catalog
	name := g.functions[g.rng.IntN(len(g.functions))]
	fn := c.Functions[name]
	if fn.Arity() == 0 && !last {
		return "", false
	}

	var compatible []string
	for _, id := range c.Tables[table].Columns {
		if col, ok := c.Column(id); ok && fn.Rule.Accepts(col) {
			compatible = append(compatible, id)
		}
	}
	if len(compatible) == 0 {
		return "", false
	}

	n := fn.Arity()
	if n == 0 {
		n = 1 + g.rng.IntN(2)
	}
	args := make([]string, n)
	for i := range args {
		args[i] = compatible[g.rng.IntN(len(compatible))]
	}
	return name + " " + c.Connectors.Surface(ir.ConnectorOf) + " " + g.joinArgs(args), true
}

// join joins top-level items, randomly choosing the plain or Oxford form.
func (g *Generator) join(items []string) string {
	and := g.catalog.Connectors.Surface(ir.ConnectorAnd)
	comma := g.catalog.Connectors.Surface(ir.ConnectorComma)
	switch len(items) {
	case 1:
		return items[0]
	case 2:
		return items[0] + " " + and + " " + items[1]
	}
	head := strings.Join(items[:len(items)-1], comma+" ")
	if g.rng.IntN(2) == 0 {
		return head + comma + " " + and + " " + items[len(items)-1]
	}
	return head + " " + and + " " + items[len(items)-1]
}

// joinArgs joins arguments with commas only, so the list cannot swallow a
// following "and" item.
func (g *Generator) joinArgs(args []string) string {
	comma := g.catalog.Connectors.Surface(ir.ConnectorComma)
	return strings.Join(args, comma+" ")
}
