// Package tokenize splits text into the atomic tokens shared by the
// normalizer, the grammar engine and the binder.
package tokenize

import (
	"regexp"
	"strings"
)

// Multi-character operators first, then dotted identifiers, then words,
// then any single non-space character.
var (
	textPattern      = regexp.MustCompile(`\|\||&&|<=|>=|!=|==|<>|[A-Za-z0-9_]+(?:\.[A-Za-z0-9_]+)+|[A-Za-z0-9_']+|[^\sA-Za-z0-9_]`)
	canonicalPattern = regexp.MustCompile(`\|\||&&|<=|>=|!=|==|<>|[A-Za-z0-9_]+(?:\.[A-Za-z0-9_]+)+|[A-Za-z0-9_]+|[^\sA-Za-z0-9_]`)
)

// Tokens splits natural-language text. Apostrophes stay inside words so
// "user's" is one token. Never fails; empty input yields nil.
func Tokens(s string) []string {
	return textPattern.FindAllString(s, -1)
}

// Canonical splits a canonical string. Identical to Tokens except that
// apostrophes are punctuation.
func Canonical(s string) []string {
	return canonicalPattern.FindAllString(s, -1)
}

// Join is the inverse of Canonical: tokens are separated by single spaces
// and commas attach to the preceding token.
func Join(toks []string) string {
	var b strings.Builder
	for i, t := range toks {
		if i > 0 && t != "," {
			b.WriteByte(' ')
		}
		b.WriteString(t)
	}
	return b.String()
}
