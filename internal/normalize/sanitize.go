package normalize

import (
	"github.com/roach88/nlsql/internal/ir"
	"github.com/roach88/nlsql/internal/tokenize"
)

// Sanitize rewrites "and" list joins between item-like tokens into commas:
// "A and B" becomes "A, B" and "A, B, and C" becomes "A, B, C". Keywords
// and connector surfaces are never item-like, so the "and" next to "of" or
// "from" around a function's argument list or the table is left alone.
// Repeated commas are coalesced. The second result reports whether anything
// changed.
func Sanitize(canonical string, conn ir.Connectors) (string, bool) {
	and := conn.Surface(ir.ConnectorAnd)
	comma := conn.Surface(ir.ConnectorComma)
	itemLike := func(tok string) bool {
		return !ir.IsKeyword(tok) && !conn.IsSurface(tok)
	}

	toks := tokenize.Canonical(canonical)
	out := make([]string, 0, len(toks))
	changed := false

	for i, tok := range toks {
		if tok == and && i > 0 && i+1 < len(toks) && itemLike(toks[i+1]) {
			prev := out[len(out)-1]
			switch {
			case prev == comma && len(out) >= 2 && itemLike(out[len(out)-2]):
				changed = true
				continue
			case itemLike(prev):
				out = append(out, comma)
				changed = true
				continue
			}
		}
		if tok == comma && len(out) > 0 && out[len(out)-1] == comma {
			changed = true
			continue
		}
		out = append(out, tok)
	}

	return tokenize.Join(out), changed
}

// Stats summarizes the sanitization pass over one search.
type Stats struct {
	// RawCandidates counts finals produced by the alias search.
	RawCandidates int `json:"raw_candidates"`
	// SanitizedCount counts distinct candidates after sanitization.
	SanitizedCount int `json:"sanitized_count"`
	// Rewritten counts candidates whose list connectors were changed.
	Rewritten int `json:"rewritten"`
}

// Result is a search followed by list-connector sanitization.
type Result struct {
	Candidates []string
	Stats      Stats
	Truncated  *CapExceededError
	Events     []Event
}

// Normalize runs Candidates and sanitizes each candidate, de-duplicating
// while keeping the search order. Never fails; zero candidates is a valid
// outcome.
func (n *Normalizer) Normalize(text string) Result {
	outcome := n.Candidates(text)

	res := Result{
		Truncated: outcome.Truncated,
		Events:    outcome.Events,
	}
	res.Stats.RawCandidates = len(outcome.Candidates)

	seen := make(map[string]bool, len(outcome.Candidates))
	for _, c := range outcome.Candidates {
		s, changed := Sanitize(c, n.connectors)
		if changed {
			res.Stats.Rewritten++
		}
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		res.Candidates = append(res.Candidates, s)
	}
	res.Stats.SanitizedCount = len(res.Candidates)
	return res
}
