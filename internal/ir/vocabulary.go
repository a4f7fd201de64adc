package ir

// Vocabulary maps natural-language surface phrases to canonical ids.
//
// Phrases are space-joined token sequences. A Deterministic entry whose value
// is the empty string marks the phrase as filler to be discarded.
// NonDeterministic candidate lists are ordered; that order is the order in
// which the normalizer explores alternatives.
type Vocabulary struct {
	Deterministic    map[string]string   `json:"deterministic" yaml:"deterministic_aliases"`
	NonDeterministic map[string][]string `json:"non_deterministic" yaml:"non_deterministic_aliases"`
}

// Keywords are passed through the normalizer unchanged and never take part
// in alias ambiguity.
var Keywords = []string{"select", "from", "of", "and", "or", ","}

// IsKeyword reports whether tok is a reserved keyword or connector.
func IsKeyword(tok string) bool {
	for _, k := range Keywords {
		if tok == k {
			return true
		}
	}
	return false
}

// HasIdentity reports whether id round-trips through the vocabulary: either
// a deterministic entry id→id or id listed among its own ambiguous
// candidates.
func (v Vocabulary) HasIdentity(id string) bool {
	if got, ok := v.Deterministic[id]; ok && got == id {
		return true
	}
	for _, cand := range v.NonDeterministic[id] {
		if cand == id {
			return true
		}
	}
	return false
}

// WithIdentities returns a copy of v with an identity entry added for every
// id that lacks one. Existing deterministic entries are preserved.
func (v Vocabulary) WithIdentities(ids []string) Vocabulary {
	out := Vocabulary{
		Deterministic:    make(map[string]string, len(v.Deterministic)+len(ids)),
		NonDeterministic: make(map[string][]string, len(v.NonDeterministic)),
	}
	for k, val := range v.Deterministic {
		out.Deterministic[k] = val
	}
	for k, vals := range v.NonDeterministic {
		out.NonDeterministic[k] = append([]string(nil), vals...)
	}
	for _, id := range ids {
		if out.HasIdentity(id) {
			continue
		}
		if _, taken := out.Deterministic[id]; taken {
			// Ambiguous: keep the existing mapping and offer the identity too.
			out.NonDeterministic[id] = append(out.NonDeterministic[id], out.Deterministic[id], id)
			delete(out.Deterministic, id)
			continue
		}
		out.Deterministic[id] = id
	}
	return out
}
