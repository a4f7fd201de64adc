package grammar

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode"
)

// CompileError reports grammar text that does not compile.
type CompileError struct {
	Line    int
	Col     int
	Message string
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	return fmt.Sprintf("grammar:%d:%d: %s", e.Line, e.Col, e.Message)
}

// IsCompileError returns true if the error is a CompileError.
// Uses errors.As to handle wrapped errors.
func IsCompileError(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce)
}

// expr is a sealed interface for grammar expressions.
type expr interface {
	exprNode()
}

type literal struct{ value string }

type ref struct {
	name      string
	line, col int
}

type sequence struct{ items []expr }

type choice struct{ options []expr }

// repeat covers "?" (min 0, once), "*" (min 0, many) and "+" (min 1, many).
type repeat struct {
	inner expr
	min   int
	many  bool
}

func (literal) exprNode()  {}
func (ref) exprNode()      {}
func (sequence) exprNode() {}
func (choice) exprNode()   {}
func (repeat) exprNode()   {}

// Grammar is a compiled grammar. It is immutable and safe for concurrent
// use.
type Grammar struct {
	text      string
	start     string
	order     []string
	rules     map[string]expr
	terminals map[string]map[string]bool
}

// Compile parses grammar text.
func Compile(text string) (*Grammar, error) {
	toks, err := lex(text)
	if err != nil {
		return nil, err
	}
	p := &grammarParser{toks: toks}
	g := &Grammar{
		text:      text,
		rules:     make(map[string]expr),
		terminals: make(map[string]map[string]bool),
	}

	for !p.done() {
		name := p.next()
		if name.kind != tokName {
			return nil, name.errorf("expected rule name, got %q", name.text)
		}
		if colon := p.next(); colon.kind != tokPunct || colon.text != ":" {
			return nil, colon.errorf("expected ':' after rule %q", name.text)
		}
		if _, dup := g.rules[name.text]; dup {
			return nil, name.errorf("rule %q defined twice", name.text)
		}
		body, err := p.parseAlt()
		if err != nil {
			return nil, err
		}
		g.rules[name.text] = body
		g.order = append(g.order, name.text)
		if set, ok := terminalSet(name.text, body); ok {
			g.terminals[name.text] = set
		}
	}

	if len(g.order) == 0 {
		return nil, &CompileError{Line: 1, Col: 1, Message: "grammar has no rules"}
	}
	g.start = g.order[0]

	for _, name := range g.order {
		if err := g.checkRefs(g.rules[name]); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func (g *Grammar) checkRefs(e expr) error {
	switch v := e.(type) {
	case ref:
		if _, ok := g.rules[v.name]; !ok {
			return &CompileError{Line: v.line, Col: v.col, Message: fmt.Sprintf("undefined rule %q", v.name)}
		}
	case sequence:
		for _, it := range v.items {
			if err := g.checkRefs(it); err != nil {
				return err
			}
		}
	case choice:
		for _, o := range v.options {
			if err := g.checkRefs(o); err != nil {
				return err
			}
		}
	case repeat:
		return g.checkRefs(v.inner)
	}
	return nil
}

// terminalSet recognizes upper-case rules made only of string alternatives.
func terminalSet(name string, body expr) (map[string]bool, bool) {
	if strings.ToUpper(name) != name {
		return nil, false
	}
	set := make(map[string]bool)
	switch v := body.(type) {
	case literal:
		set[v.value] = true
	case choice:
		for _, o := range v.options {
			lit, ok := o.(literal)
			if !ok {
				return nil, false
			}
			set[lit.value] = true
		}
	default:
		return nil, false
	}
	return set, true
}

// Text returns the source the grammar was compiled from.
func (g *Grammar) Text() string {
	return g.text
}

// Start returns the start rule name.
func (g *Grammar) Start() string {
	return g.start
}

// Rules returns rule names in definition order.
func (g *Grammar) Rules() []string {
	return slices.Clone(g.order)
}

// Terminal returns the sorted members of a terminal set, or nil when name
// is not a terminal set.
func (g *Grammar) Terminal(name string) []string {
	set, ok := g.terminals[name]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		if k != "" {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}

type tokKind int

const (
	tokName tokKind = iota
	tokString
	tokPunct
	tokEOF
)

type gtoken struct {
	kind      tokKind
	text      string
	line, col int
}

func (t gtoken) errorf(format string, args ...any) *CompileError {
	return &CompileError{Line: t.line, Col: t.col, Message: fmt.Sprintf(format, args...)}
}

func lex(src string) ([]gtoken, error) {
	var out []gtoken
	line, col := 1, 1
	runes := []rune(src)
	i := 0
	advance := func(n int) {
		for k := 0; k < n; k++ {
			if runes[i] == '\n' {
				line++
				col = 1
			} else {
				col++
			}
			i++
		}
	}

	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			advance(1)
		case r == '/' && i+1 < len(runes) && runes[i+1] == '/':
			for i < len(runes) && runes[i] != '\n' {
				advance(1)
			}
		case r == '"':
			startLine, startCol := line, col
			j := i + 1
			for j < len(runes) && runes[j] != '"' {
				if runes[j] == '\\' {
					j++
				}
				if j < len(runes) && runes[j] == '\n' {
					break
				}
				j++
			}
			if j >= len(runes) || runes[j] != '"' {
				return nil, &CompileError{Line: startLine, Col: startCol, Message: "unterminated string"}
			}
			raw := string(runes[i : j+1])
			val, err := strconv.Unquote(raw)
			if err != nil {
				return nil, &CompileError{Line: startLine, Col: startCol, Message: fmt.Sprintf("bad string %s", raw)}
			}
			out = append(out, gtoken{kind: tokString, text: val, line: startLine, col: startCol})
			advance(j + 1 - i)
		case r == '_' || unicode.IsLetter(r):
			startLine, startCol := line, col
			j := i
			for j < len(runes) && (runes[j] == '_' || unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j])) {
				j++
			}
			out = append(out, gtoken{kind: tokName, text: string(runes[i:j]), line: startLine, col: startCol})
			advance(j - i)
		case strings.ContainsRune(":|()[]*+?", r):
			out = append(out, gtoken{kind: tokPunct, text: string(r), line: line, col: col})
			advance(1)
		default:
			return nil, &CompileError{Line: line, Col: col, Message: fmt.Sprintf("unexpected character %q", r)}
		}
	}
	out = append(out, gtoken{kind: tokEOF, line: line, col: col})
	return out, nil
}

type grammarParser struct {
	toks []gtoken
	pos  int
}

func (p *grammarParser) peek() gtoken {
	return p.toks[p.pos]
}

func (p *grammarParser) next() gtoken {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *grammarParser) done() bool {
	return p.peek().kind == tokEOF
}

// atRuleStart reports whether the next tokens are "NAME :".
func (p *grammarParser) atRuleStart() bool {
	t := p.peek()
	if t.kind != tokName || p.pos+1 >= len(p.toks) {
		return false
	}
	n := p.toks[p.pos+1]
	return n.kind == tokPunct && n.text == ":"
}

func (p *grammarParser) isPunct(text string) bool {
	t := p.peek()
	return t.kind == tokPunct && t.text == text
}

func (p *grammarParser) parseAlt() (expr, error) {
	first, err := p.parseSeq()
	if err != nil {
		return nil, err
	}
	options := []expr{first}
	for p.isPunct("|") {
		p.next()
		next, err := p.parseSeq()
		if err != nil {
			return nil, err
		}
		options = append(options, next)
	}
	if len(options) == 1 {
		return first, nil
	}
	return choice{options: options}, nil
}

func (p *grammarParser) parseSeq() (expr, error) {
	var items []expr
	for {
		if p.done() || p.atRuleStart() || p.isPunct("|") || p.isPunct(")") || p.isPunct("]") {
			break
		}
		it, err := p.parseItem()
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if len(items) == 1 {
		return items[0], nil
	}
	return sequence{items: items}, nil
}

func (p *grammarParser) parseItem() (expr, error) {
	atom, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	switch {
	case p.isPunct("?"):
		p.next()
		return repeat{inner: atom, min: 0}, nil
	case p.isPunct("*"):
		p.next()
		return repeat{inner: atom, min: 0, many: true}, nil
	case p.isPunct("+"):
		p.next()
		return repeat{inner: atom, min: 1, many: true}, nil
	}
	return atom, nil
}

func (p *grammarParser) parseAtom() (expr, error) {
	t := p.next()
	switch {
	case t.kind == tokString:
		return literal{value: t.text}, nil
	case t.kind == tokName:
		return ref{name: t.text, line: t.line, col: t.col}, nil
	case t.kind == tokPunct && (t.text == "(" || t.text == "["):
		closer := ")"
		if t.text == "[" {
			closer = "]"
		}
		inner, err := p.parseAlt()
		if err != nil {
			return nil, err
		}
		if end := p.next(); end.kind != tokPunct || end.text != closer {
			return nil, end.errorf("expected %q to close %q at %d:%d", closer, t.text, t.line, t.col)
		}
		if closer == "]" {
			return repeat{inner: inner, min: 0}, nil
		}
		return inner, nil
	case t.kind == tokEOF:
		return nil, t.errorf("unexpected end of grammar")
	default:
		return nil, t.errorf("unexpected %q", t.text)
	}
}
