package grammar

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/nlsql/internal/ir"
)

// Generate renders the canonical grammar for c.
//
// Function arguments are COLUMN only, so nested calls are not in the
// language. Ordering functions are left out of FUNCTION since they cannot be
// selected.
func Generate(c *ir.Catalog) string {
	conn := c.Connectors
	and := strconv.Quote(conn.Surface(ir.ConnectorAnd))
	of := strconv.Quote(conn.Surface(ir.ConnectorOf))
	from := strconv.Quote(conn.Surface(ir.ConnectorFrom))
	comma := strconv.Quote(conn.Surface(ir.ConnectorComma))

	var b strings.Builder
	b.WriteString("// Canonical query grammar, generated from the catalog.\n")
	fmt.Fprintf(&b, "query      : %q items connector TABLE\n", "select")
	fmt.Fprintf(&b, "connector  : %s | %s\n", from, of)
	fmt.Fprintf(&b, "items      : selectable (%s selectable)* (%s? %s selectable)?\n", comma, comma, and)
	fmt.Fprintf(&b, "selectable : COLUMN | FUNCTION (%s args)?\n", of)
	fmt.Fprintf(&b, "args       : COLUMN (%s COLUMN)* (%s? %s COLUMN)?\n", comma, comma, and)
	b.WriteString("\n")
	writeTerminal(&b, "TABLE", c.TableIDs())
	writeTerminal(&b, "COLUMN", c.ColumnIDs())
	writeTerminal(&b, "FUNCTION", c.SelectableFunctionIDs())
	return b.String()
}

func writeTerminal(b *strings.Builder, name string, ids []string) {
	fmt.Fprintf(b, "%-10s :", name)
	if len(ids) == 0 {
		// The tokenizer never yields an empty token.
		b.WriteString(" \"\"\n")
		return
	}
	for i, id := range ids {
		if i == 0 {
			fmt.Fprintf(b, " %s\n", strconv.Quote(id))
			continue
		}
		fmt.Fprintf(b, "           | %s\n", strconv.Quote(id))
	}
}
