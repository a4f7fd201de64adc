package binder

import (
	"strings"

	"github.com/roach88/nlsql/internal/ir"
)

// Serialize renders a Binding back to its canonical string with the default
// connectors.
//
// Lists of one item are bare, two items are joined with "and", three or
// more use the Oxford form "a, b, and c". Functions render as
// "fn of <args>".
func Serialize(b ir.Binding) string {
	return SerializeWith(b, ir.DefaultConnectors())
}

// SerializeWith is Serialize using the given connector surfaces.
func SerializeWith(b ir.Binding, conn ir.Connectors) string {
	s := serializer{
		and:   conn.Surface(ir.ConnectorAnd),
		of:    conn.Surface(ir.ConnectorOf),
		from:  conn.Surface(ir.ConnectorFrom),
		comma: conn.Surface(ir.ConnectorComma),
	}
	return selectKeyword + " " + s.list(b.Items) + " " + s.from + " " + b.Table
}

// Serialize renders b with this binder's catalog connectors.
func (bn *Binder) Serialize(b ir.Binding) string {
	return SerializeWith(b, bn.catalog.Connectors)
}

type serializer struct {
	and, of, from, comma string
}

func (s serializer) list(items []ir.Selectable) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = s.item(it)
	}
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	case 2:
		return parts[0] + " " + s.and + " " + parts[1]
	default:
		head := strings.Join(parts[:len(parts)-1], s.comma+" ")
		return head + s.comma + " " + s.and + " " + parts[len(parts)-1]
	}
}

func (s serializer) item(it ir.Selectable) string {
	switch v := it.(type) {
	case ir.ColumnRef:
		return v.ID
	case ir.FunctionCall:
		if len(v.Args) == 0 {
			return v.Function
		}
		return v.Function + " " + s.of + " " + s.list(v.Args)
	default:
		return ""
	}
}
