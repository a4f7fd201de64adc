// Package binder parses canonical token streams into typed bindings.
//
// The parser is recursive descent over
//
//	select <items> (from|of) <table>
//
// where items and function argument lists share one list shape: comma
// separated, with an optional final "and" or ", and" (Oxford) tail. Once
// parsing succeeds, every column is checked against the FROM table and every
// function argument against its function's compatibility rule.
package binder

import (
	"fmt"
	"strings"

	"github.com/roach88/nlsql/internal/ir"
)

const selectKeyword = "select"

// Binder binds token streams against one catalog.
//
// A Binder is read-only after New and safe for concurrent use; each Bind
// call works on its own parser state.
type Binder struct {
	catalog *ir.Catalog
	opts    Options

	and, of, from, comma string
}

// New creates a Binder for c.
func New(c *ir.Catalog, opts Options) *Binder {
	return &Binder{
		catalog: c,
		opts:    opts,
		and:     c.Connectors.Surface(ir.ConnectorAnd),
		of:      c.Connectors.Surface(ir.ConnectorOf),
		from:    c.Connectors.Surface(ir.ConnectorFrom),
		comma:   c.Connectors.Surface(ir.ConnectorComma),
	}
}

// Options returns the binder's strictness configuration.
func (b *Binder) Options() Options {
	return b.opts
}

// Catalog returns the catalog the binder resolves against.
func (b *Binder) Catalog() *ir.Catalog {
	return b.catalog
}

// Trace is the list of "[pos=N] message" lines recorded while binding.
type Trace []string

// String joins the trace one line per entry.
func (t Trace) String() string {
	return strings.Join(t, "\n")
}

// Bind parses tokens into a Binding.
func (b *Binder) Bind(tokens []string) (ir.Binding, error) {
	binding, _, err := b.BindWithTrace(tokens)
	return binding, err
}

// BindWithTrace is Bind that also returns the parse trace, including on
// failure.
func (b *Binder) BindWithTrace(tokens []string) (ir.Binding, Trace, error) {
	p := &parser{b: b, toks: tokens}
	items, table, err := p.parseQuery()
	if err != nil {
		p.tracef("FAIL %v", err)
		return ir.Binding{}, p.trace, err
	}

	binding, err := p.check(items, table)
	if err != nil {
		p.tracef("FAIL %v", err)
		return ir.Binding{}, p.trace, err
	}
	p.tracef("bound %d item(s) over %s", len(binding.Items), binding.Table)
	return binding, p.trace, nil
}

// node is a parsed selectable with the token positions needed for error
// reporting after parsing.
type node struct {
	pos       int
	surface   string
	column    string // column id; empty for functions
	qualifier string
	function  string
	args      []node
}

type parser struct {
	b     *Binder
	toks  []string
	pos   int
	trace Trace
}

func (p *parser) tracef(format string, args ...any) {
	p.trace = append(p.trace, fmt.Sprintf("[pos=%d] ", p.pos)+fmt.Sprintf(format, args...))
}

func (p *parser) peek() string {
	return p.peekAt(p.pos)
}

func (p *parser) peekAt(i int) string {
	if i < len(p.toks) {
		return p.toks[i]
	}
	return ""
}

func (p *parser) atEnd() bool {
	return p.pos >= len(p.toks)
}

// accept consumes tok if it is next.
func (p *parser) accept(tok string) bool {
	if !p.atEnd() && p.toks[p.pos] == tok {
		p.pos++
		return true
	}
	return false
}

func (p *parser) errorf(kind Kind, pos int, format string, args ...any) *BindError {
	return &BindError{Kind: kind, Pos: pos, Surface: p.peekAt(pos), Message: fmt.Sprintf(format, args...)}
}

func (p *parser) unexpected(want string) *BindError {
	if p.atEnd() {
		return p.errorf(KindUnexpectedToken, p.pos, "expected %s, got end of input", want)
	}
	return p.errorf(KindUnexpectedToken, p.pos, "expected %s, got %q", want, p.peek())
}

func (p *parser) parseQuery() ([]node, string, error) {
	if !p.accept(selectKeyword) {
		return nil, "", p.unexpected(fmt.Sprintf("%q", selectKeyword))
	}
	p.tracef("select")

	items, err := p.parseList(p.parseItem)
	if err != nil {
		return nil, "", err
	}

	if !p.accept(p.b.from) && !p.accept(p.b.of) {
		return nil, "", p.unexpected(fmt.Sprintf("%q or %q", p.b.from, p.b.of))
	}

	if p.atEnd() {
		return nil, "", p.unexpected("table")
	}
	table := p.peek()
	if _, ok := p.b.catalog.Table(table); !ok {
		return nil, "", p.errorf(KindUnknownIdentifier, p.pos, "unknown table %q", table)
	}
	p.pos++
	p.tracef("table %s", table)

	if !p.atEnd() {
		return nil, "", p.errorf(KindTrailingTokens, p.pos, "unexpected %d token(s) after table", len(p.toks)-p.pos)
	}
	return items, table, nil
}

// parseList parses: item ("," item)* (","? "and" item)?
//
// An Oxford tail is tried first at every comma; when "and" does not follow,
// the cursor rewinds and the comma is an ordinary separator.
func (p *parser) parseList(item func() (node, error)) ([]node, error) {
	first, err := item()
	if err != nil {
		return nil, err
	}
	items := []node{first}

	for {
		save := p.pos
		if p.accept(p.b.comma) && p.accept(p.b.and) {
			p.tracef("oxford tail")
			last, err := item()
			if err != nil {
				return nil, err
			}
			return append(items, last), nil
		}
		p.pos = save

		if p.accept(p.b.comma) {
			next, err := item()
			if err != nil {
				return nil, err
			}
			items = append(items, next)
			continue
		}

		if p.accept(p.b.and) {
			last, err := item()
			if err != nil {
				return nil, err
			}
			return append(items, last), nil
		}
		return items, nil
	}
}

// parseItem parses a top-level selectable.
func (p *parser) parseItem() (node, error) {
	start := p.pos
	if col, ok, err := p.parseColumn(); ok || err != nil {
		return col, err
	}

	tok := p.peek()
	fn, ok := p.b.catalog.Function(tok)
	if !ok {
		if p.atEnd() || p.isConnector(tok) {
			return node{}, p.unexpected("column or function")
		}
		return node{}, p.errorf(KindUnknownIdentifier, start, "unknown column or function %q", tok)
	}
	if fn.IsOrdering() {
		return node{}, p.errorf(KindUnexpectedToken, start, "ordering function %q cannot be selected", tok)
	}
	p.pos++
	p.tracef("function %s", tok)

	n := node{pos: start, surface: tok, function: tok}
	args, err := p.parseArgs(tok, fn)
	if err != nil {
		return node{}, err
	}
	n.args = args
	return n, nil
}

// parseArgs parses the optional "of <args>" after a function name.
//
// "of" doubles as the table connector, so the argument list is only entered
// when the token after "of" can start an argument. Within the list a
// separator is only consumed when another argument follows, and a function
// with a declared arity stops after that many arguments; either way the
// cursor rewinds so the outer list sees the separator.
func (p *parser) parseArgs(name string, fn ir.Function) ([]node, error) {
	save := p.pos
	if !p.accept(p.b.of) {
		return nil, nil
	}
	if !p.startsArgument(p.pos) {
		p.pos = save
		return nil, nil
	}

	first, err := p.parseArg()
	if err != nil {
		return nil, err
	}
	args := []node{first}
	full := func() bool { return fn.Arity() > 0 && len(args) >= fn.Arity() }

	for !full() {
		save := p.pos
		if p.accept(p.b.comma) && p.accept(p.b.and) && p.startsArgument(p.pos) {
			last, err := p.parseArg()
			if err != nil {
				return nil, err
			}
			p.tracef("%s args oxford tail", name)
			return append(args, last), nil
		}
		p.pos = save

		if p.accept(p.b.comma) && p.startsArgument(p.pos) {
			next, err := p.parseArg()
			if err != nil {
				return nil, err
			}
			args = append(args, next)
			continue
		}
		p.pos = save

		if p.accept(p.b.and) && p.startsArgument(p.pos) {
			last, err := p.parseArg()
			if err != nil {
				return nil, err
			}
			return append(args, last), nil
		}
		p.pos = save
		break
	}
	return args, nil
}

// startsArgument reports whether the token at i can begin an argument:
// a column reference, or any function (which parseArg then rejects or, for
// allowed ordering functions, accepts). Connectors and tables cannot.
func (p *parser) startsArgument(i int) bool {
	tok := p.peekAt(i)
	if tok == "" || p.isConnector(tok) {
		return false
	}
	if _, ok := p.b.catalog.Function(tok); ok {
		return i == p.pos && p.pos > 0 && p.toks[p.pos-1] == p.b.of
	}
	if _, ok := p.b.catalog.Table(tok); ok && p.peekAt(i+1) != "." {
		return false
	}
	return true
}

// parseArg parses one function argument.
func (p *parser) parseArg() (node, error) {
	start := p.pos
	if col, ok, err := p.parseColumn(); ok || err != nil {
		return col, err
	}

	tok := p.peek()
	fn, ok := p.b.catalog.Function(tok)
	if !ok {
		return node{}, p.errorf(KindUnknownIdentifier, start, "unknown column %q", tok)
	}
	if !fn.IsOrdering() || !p.b.opts.AllowOrderingInArgs {
		return node{}, p.errorf(KindDisallowedNestedFunction, start, "function %q is not allowed as an argument", tok)
	}
	p.pos++
	p.tracef("nested ordering function %s", tok)

	n := node{pos: start, surface: tok, function: tok}
	if p.accept(p.b.of) {
		col, ok, err := p.parseColumn()
		if err != nil {
			return node{}, err
		}
		if !ok {
			return node{}, p.unexpected("column")
		}
		n.args = []node{col}
	}
	return n, nil
}

// parseColumn consumes a column reference if one is next. The bool reports
// whether the next tokens were a column reference at all.
//
// Accepted forms: a column id ("age", "users.age"), a dotted token whose
// table part is advisory ("users.age" for bare id "age"), and the spaced
// form "users . age".
func (p *parser) parseColumn() (node, bool, error) {
	start := p.pos
	tok := p.peek()
	if tok == "" {
		return node{}, false, nil
	}
	c := p.b.catalog

	if _, ok := c.Column(tok); ok {
		p.pos++
		p.tracef("column %s", tok)
		return node{pos: start, surface: tok, column: tok}, true, nil
	}

	var table, name string
	var width int
	switch {
	case p.peekAt(start+1) == "." && p.peekAt(start+2) != "":
		if _, ok := c.Table(tok); !ok {
			return node{}, false, nil
		}
		table, name, width = tok, p.peekAt(start+2), 3
	case strings.Contains(tok, "."):
		i := strings.LastIndex(tok, ".")
		table, name, width = tok[:i], tok[i+1:], 1
	default:
		return node{}, false, nil
	}

	surface := strings.Join(p.toks[start:start+width], " ")
	if _, ok := c.Table(table); !ok {
		return node{}, false, p.errorf(KindUnknownIdentifier, start, "unknown table %q in %q", table, surface)
	}
	if id, ok := c.ResolveColumn(table, name); ok {
		p.pos += width
		p.tracef("column %s (qualified %s)", id, table)
		return node{pos: start, surface: surface, column: id, qualifier: table}, true, nil
	}
	if col, ok := c.Column(name); ok {
		p.pos += width
		p.tracef("WARN %s is owned by %s, not %s", name, col.Table, table)
		return node{pos: start, surface: surface, column: name, qualifier: table}, true, nil
	}
	return node{}, false, p.errorf(KindUnknownIdentifier, start, "unknown column %q", surface)
}

func (p *parser) isConnector(tok string) bool {
	switch tok {
	case p.b.and, p.b.of, p.b.from, p.b.comma, selectKeyword:
		return true
	}
	return false
}
