package harness

import "github.com/roach88/nlsql/internal/resolve"

// CaseResult is what one case resolved to, plus any failed expectations.
type CaseResult struct {
	Input        string   `json:"input"`
	Dialect      string   `json:"dialect"`
	OK           bool     `json:"ok"`
	Canonical    string   `json:"canonical,omitempty"`
	SQL          string   `json:"sql,omitempty"`
	FailCategory string   `json:"fail_category,omitempty"`
	Relaxed      bool     `json:"relaxed,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
	Rows         int      `json:"rows,omitempty"`
	Errors       []string `json:"errors,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation of every case held.
	Pass bool `json:"pass"`

	// Cases holds one entry per scenario case, in order.
	Cases []CaseResult `json:"cases"`

	// Errors contains expectation failures as "cases[i]: ..." lines.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Cases:  []CaseResult{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// newCaseResult copies the checked fields of a resolution.
func newCaseResult(res resolve.Result) CaseResult {
	return CaseResult{
		Input:        res.Input,
		Dialect:      string(res.Dialect),
		OK:           res.OK,
		Canonical:    res.Canonical(),
		SQL:          res.SQL,
		FailCategory: string(res.FailCategory),
		Relaxed:      res.Relaxed,
		Warnings:     res.Warnings,
	}
}
