package ir

import "slices"

// Selectable is a sealed interface for items of a SELECT list.
//
// Only ColumnRef and FunctionCall implement it. Function arguments are
// Selectables too, but the binder only admits ColumnRef arguments (plus
// ordering functions when explicitly enabled).
type Selectable interface {
	selectable()
}

// ColumnRef references a catalog column by canonical id.
//
// Qualifier holds the table part the user wrote ("users" in "users.age");
// it is advisory and not used for emission.
type ColumnRef struct {
	ID        string `json:"id"`
	Qualifier string `json:"qualifier,omitempty"`
}

func (ColumnRef) selectable() {}

// FunctionCall applies a catalog function to arguments.
type FunctionCall struct {
	Function string       `json:"function"`
	Args     []Selectable `json:"args,omitempty"`
}

func (FunctionCall) selectable() {}

// WithArg returns a copy of f with argument i replaced.
func (f FunctionCall) WithArg(i int, arg Selectable) FunctionCall {
	args := slices.Clone(f.Args)
	args[i] = arg
	return FunctionCall{Function: f.Function, Args: args}
}

// Binding is a bound query: ordered selectables over one table.
type Binding struct {
	Items []Selectable `json:"items"`
	Table string       `json:"table"`
}

// Equal reports structural equality of two bindings. Column qualifiers are
// ignored.
func (b Binding) Equal(other Binding) bool {
	if b.Table != other.Table || len(b.Items) != len(other.Items) {
		return false
	}
	for i := range b.Items {
		if !selectableEqual(b.Items[i], other.Items[i]) {
			return false
		}
	}
	return true
}

func selectableEqual(a, b Selectable) bool {
	switch av := a.(type) {
	case ColumnRef:
		bv, ok := b.(ColumnRef)
		return ok && av.ID == bv.ID
	case FunctionCall:
		bv, ok := b.(FunctionCall)
		if !ok || av.Function != bv.Function || len(av.Args) != len(bv.Args) {
			return false
		}
		for i := range av.Args {
			if !selectableEqual(av.Args[i], bv.Args[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
