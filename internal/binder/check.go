package binder

import (
	"fmt"
	"log/slog"

	"github.com/roach88/nlsql/internal/ir"
)

// check verifies table membership and argument compatibility, applying the
// coercion policy, and converts parsed nodes into an immutable Binding.
func (p *parser) check(items []node, table string) (ir.Binding, error) {
	binding := ir.Binding{Table: table, Items: make([]ir.Selectable, 0, len(items))}
	for _, n := range items {
		sel, err := p.checkNode(n, table, "")
		if err != nil {
			return ir.Binding{}, err
		}
		binding.Items = append(binding.Items, sel)
	}
	return binding, nil
}

// checkNode converts n. fn is the enclosing function id when n is an
// argument.
func (p *parser) checkNode(n node, table, fn string) (ir.Selectable, error) {
	if n.column != "" {
		col, _ := p.b.catalog.Column(n.column)
		if col.Table != table {
			return nil, &BindError{
				Kind:    KindUnknownIdentifier,
				Pos:     n.pos,
				Surface: n.surface,
				Message: fmt.Sprintf("column %q is not in table %q", n.column, table),
			}
		}
		ref := ir.ColumnRef{ID: n.column, Qualifier: n.qualifier}
		if fn == "" {
			return ref, nil
		}
		return p.checkArgument(ref, n, fn, table)
	}

	call := ir.FunctionCall{Function: n.function}
	for _, a := range n.args {
		arg, err := p.checkNode(a, table, n.function)
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)
	}
	return call, nil
}

// checkArgument applies the compatibility rule of fn to a column argument.
func (p *parser) checkArgument(ref ir.ColumnRef, n node, fn, table string) (ir.Selectable, error) {
	c := p.b.catalog
	f, _ := c.Function(fn)
	col, _ := c.Column(ref.ID)
	if f.Rule.Accepts(col) {
		return ref, nil
	}

	opts := p.b.opts
	incompatible := &BindError{
		Kind:    KindTypeIncompatible,
		Pos:     n.pos,
		Surface: n.surface,
		Message: fmt.Sprintf("column %q (%s) is not compatible with %q", ref.ID, describeType(col), fn),
	}

	switch {
	case opts.StrictTypes:
		return nil, incompatible

	case opts.CoerceTypes:
		replacement, ok := p.coerce(f, table)
		if !ok {
			if opts.scope() == ScopeCatalog {
				p.tracef("WARN no compatible column for %s; keeping %s", fn, ref.ID)
				return ref, nil
			}
			incompatible.Message += fmt.Sprintf(" and table %q has no compatible column", table)
			return nil, incompatible
		}
		p.tracef("coerce %s -> %s for %s", ref.ID, replacement, fn)
		slog.Debug("coerced function argument",
			"function", fn,
			"from", ref.ID,
			"to", replacement)
		return ir.ColumnRef{ID: replacement}, nil

	default:
		p.tracef("WARN tolerating %s for %s", ref.ID, fn)
		slog.Debug("tolerated incompatible argument",
			"function", fn,
			"column", ref.ID)
		return ref, nil
	}
}

// coerce finds the first column compatible with f: in table declaration
// order first, then, for ScopeCatalog, across all columns in id order.
func (p *parser) coerce(f ir.Function, table string) (string, bool) {
	c := p.b.catalog
	if t, ok := c.Table(table); ok {
		for _, id := range t.Columns {
			if col, ok := c.Column(id); ok && f.Rule.Accepts(col) {
				return id, true
			}
		}
	}
	if p.b.opts.scope() != ScopeCatalog {
		return "", false
	}
	for _, id := range c.ColumnIDs() {
		if f.Rule.Accepts(c.Columns[id]) {
			p.tracef("WARN coercion left table %s for %s", table, id)
			return id, true
		}
	}
	return "", false
}

func describeType(col ir.Column) string {
	switch {
	case col.Type != "" && col.TypeCategory != "" && col.Type != col.TypeCategory:
		return col.Type + "/" + col.TypeCategory
	case col.Type != "":
		return col.Type
	case col.TypeCategory != "":
		return col.TypeCategory
	default:
		return "untyped"
	}
}
