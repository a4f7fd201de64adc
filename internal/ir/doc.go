// Package ir provides the shared, read-only data model for nlsql.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Catalog and Vocabulary are flat maps keyed by canonical id; every
//     cross-reference is an id lookup, never an embedded pointer
//   - Selectable is a sealed sum type (ColumnRef | FunctionCall)
//   - A Binding is never mutated after construction
//   - All JSON/YAML tags use snake_case
package ir
