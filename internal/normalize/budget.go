package normalize

import (
	"errors"
	"fmt"
)

// Names of the two search caps.
const (
	CapNodes   = "nodes"
	CapResults = "results"
)

// Limits bounds the alias search.
//
// MaxNodes caps the number of partial phrases enqueued; MaxResults caps the
// number of final candidates collected. Exceeding either stops the search
// early with whatever finals have been collected so far.
type Limits struct {
	MaxNodes   int `json:"max_nodes"`
	MaxResults int `json:"max_results"`
}

// DefaultLimits returns the standard caps (200 nodes, 200 results).
func DefaultLimits() Limits {
	return Limits{MaxNodes: 200, MaxResults: 200}
}

// searchBudget tracks one search against its Limits.
//
// Each Normalize call owns a fresh budget, so Normalizer itself stays
// read-only and safe for concurrent use.
type searchBudget struct {
	limits  Limits
	nodes   int
	results int
}

func newSearchBudget(l Limits) *searchBudget {
	return &searchBudget{limits: l}
}

// expand counts one enqueued phrase. Returns CapExceededError once the
// node cap is passed.
func (b *searchBudget) expand() error {
	b.nodes++
	if b.limits.MaxNodes > 0 && b.nodes > b.limits.MaxNodes {
		return &CapExceededError{Cap: CapNodes, Count: b.nodes, Limit: b.limits.MaxNodes}
	}
	return nil
}

// collect counts one final candidate. Returns CapExceededError when the
// candidate would exceed the result cap; the caller must not keep it.
func (b *searchBudget) collect() error {
	b.results++
	if b.limits.MaxResults > 0 && b.results > b.limits.MaxResults {
		return &CapExceededError{Cap: CapResults, Count: b.results, Limit: b.limits.MaxResults}
	}
	return nil
}

// CapExceededError reports which search cap stopped the normalizer.
//
// It is not a failure: the search returns its partial results and the
// error is kept for diagnostics.
type CapExceededError struct {
	Cap   string // CapNodes or CapResults
	Count int
	Limit int
}

// Error implements the error interface.
func (e *CapExceededError) Error() string {
	return fmt.Sprintf("normalizer %s cap exceeded: %d > %d limit", e.Cap, e.Count, e.Limit)
}

// IsCapExceededError returns true if the error is a CapExceededError.
// Uses errors.As to handle wrapped errors.
func IsCapExceededError(err error) bool {
	var ce *CapExceededError
	return errors.As(err, &ce)
}
