package ir

// Version constants for the catalog format and the resolver.
const (
	// CatalogVersion is the catalog schema version.
	CatalogVersion = "1"

	// EngineVersion is the nlsql resolver version.
	EngineVersion = "0.1.0"
)
