// Package grammar generates, compiles and checks the canonical query
// grammar.
//
// The grammar text is a small EBNF dialect:
//
//	rule     : alt
//	alt      : seq ("|" seq)*
//	seq      : item*
//	item     : atom ("*" | "+" | "?")?
//	atom     : STRING | NAME | "(" alt ")" | "[" alt "]"
//
// Rules may continue on following lines that start with whitespace or "|".
// "//" starts a comment. A rule whose name is all upper case and whose body
// is only string alternatives is a terminal set, matched by token
// membership. The first rule is the start rule.
//
// Acceptance is a set-of-positions recognizer over token sequences, so
// ambiguous rules (the optional Oxford comma, "of" as both argument marker
// and table connector) are handled without backtracking heuristics.
package grammar
