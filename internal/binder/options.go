package binder

// CoerceScope bounds where coercion may look for a replacement column.
type CoerceScope string

const (
	// ScopeTable only considers columns of the FROM table. When none is
	// compatible, coercion fails with a type-incompatible error.
	ScopeTable CoerceScope = "table"

	// ScopeCatalog falls back to the first compatible column anywhere in
	// the catalog, and tolerates the argument when none exists.
	ScopeCatalog CoerceScope = "catalog"
)

// Options is the binder's strictness configuration.
//
// Policies for an argument rejected by its function's rule, in order:
// StrictTypes fails the bind; CoerceTypes replaces the argument; otherwise
// it is kept as-is and traced.
type Options struct {
	StrictTypes         bool        `json:"strict_types"`
	CoerceTypes         bool        `json:"coerce_types"`
	AllowOrderingInArgs bool        `json:"allow_ordering_functions_in_args"`
	CoerceScope         CoerceScope `json:"coerce_scope,omitempty"`
}

// StrictOptions rejects every incompatible argument.
func StrictOptions() Options {
	return Options{StrictTypes: true, CoerceScope: ScopeTable}
}

// RelaxedOptions coerces incompatible arguments within the FROM table.
func RelaxedOptions() Options {
	return Options{CoerceTypes: true, CoerceScope: ScopeTable}
}

// Relaxed returns a copy of o with strict typing off and coercion on.
func (o Options) Relaxed() Options {
	o.StrictTypes = false
	o.CoerceTypes = true
	return o
}

func (o Options) scope() CoerceScope {
	if o.CoerceScope == "" {
		return ScopeTable
	}
	return o.CoerceScope
}
