package resolve

import (
	"strings"

	"github.com/roach88/nlsql/internal/ir"
)

// contextualize rewrites column names that the FROM table does not own to
// that table's column with the same base name. A token is only rewritten
// when exactly one such column exists. The FROM table is the last token.
func contextualize(toks []string, c *ir.Catalog) ([]string, bool) {
	if len(toks) == 0 {
		return toks, false
	}
	table := toks[len(toks)-1]
	if _, ok := c.Table(table); !ok {
		return toks, false
	}

	out := make([]string, len(toks))
	copy(out, toks)
	changed := false
	for i, tok := range toks[:len(toks)-1] {
		if !rewritable(tok, table, c) {
			continue
		}
		matches := c.ColumnsByBasename(table, ir.ColumnName(tok))
		if len(matches) != 1 || matches[0] == tok {
			continue
		}
		out[i] = matches[0]
		changed = true
	}
	return out, changed
}

func rewritable(tok, table string, c *ir.Catalog) bool {
	if ir.IsKeyword(tok) || c.Connectors.IsSurface(tok) {
		return false
	}
	if _, ok := c.Function(tok); ok {
		return false
	}
	if _, ok := c.Table(tok); ok {
		return false
	}
	if col, ok := c.Column(tok); ok {
		return col.Table != table
	}
	// An explicit "t.c" names its table; leave it for the binder to report.
	return !strings.Contains(tok, ".")
}
