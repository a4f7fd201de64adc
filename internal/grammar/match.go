package grammar

import (
	"slices"

	"github.com/roach88/nlsql/internal/tokenize"
)

// Accepts reports whether the start rule derives exactly tokens.
func (g *Grammar) Accepts(tokens []string) bool {
	m := &matcher{
		g:      g,
		toks:   tokens,
		memo:   make(map[memoKey][]int),
		active: make(map[memoKey]bool),
	}
	return slices.Contains(m.match(ref{name: g.start}, 0), len(tokens))
}

// AcceptsString tokenizes a canonical string and checks it.
func (g *Grammar) AcceptsString(canonical string) bool {
	return g.Accepts(tokenize.Canonical(canonical))
}

type memoKey struct {
	rule string
	pos  int
}

// matcher computes, for an expression and a start position, every position
// where a match of that expression can end.
type matcher struct {
	g      *Grammar
	toks   []string
	memo   map[memoKey][]int
	active map[memoKey]bool
}

func (m *matcher) match(e expr, pos int) []int {
	switch v := e.(type) {
	case literal:
		if pos < len(m.toks) && m.toks[pos] == v.value {
			return []int{pos + 1}
		}
		return nil

	case ref:
		if set, ok := m.g.terminals[v.name]; ok {
			if pos < len(m.toks) && set[m.toks[pos]] {
				return []int{pos + 1}
			}
			return nil
		}
		key := memoKey{rule: v.name, pos: pos}
		if ends, ok := m.memo[key]; ok {
			return ends
		}
		// Left recursion never matches rather than looping.
		if m.active[key] {
			return nil
		}
		m.active[key] = true
		ends := m.match(m.g.rules[v.name], pos)
		delete(m.active, key)
		m.memo[key] = ends
		return ends

	case sequence:
		frontier := []int{pos}
		for _, it := range v.items {
			var next []int
			for _, p := range frontier {
				next = union(next, m.match(it, p))
			}
			if len(next) == 0 {
				return nil
			}
			frontier = next
		}
		return frontier

	case choice:
		var out []int
		for _, o := range v.options {
			out = union(out, m.match(o, pos))
		}
		return out

	case repeat:
		var out []int
		if v.min == 0 {
			out = []int{pos}
		}
		seen := map[int]bool{pos: true}
		frontier := []int{pos}
		for count := 1; len(frontier) > 0; count++ {
			var next []int
			for _, p := range frontier {
				for _, end := range m.match(v.inner, p) {
					if !seen[end] {
						seen[end] = true
						next = append(next, end)
					}
				}
			}
			if count >= v.min {
				out = union(out, next)
			}
			if !v.many {
				break
			}
			frontier = next
		}
		return out
	}
	return nil
}

// union merges two sorted, duplicate-free position lists.
func union(a, b []int) []int {
	if len(a) == 0 {
		return slices.Clone(b)
	}
	out := append(slices.Clone(a), b...)
	slices.Sort(out)
	return slices.Compact(out)
}
