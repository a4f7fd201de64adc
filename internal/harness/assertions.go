package harness

import (
	"fmt"
	"strings"
)

// ExpectationError describes one expectation a resolution did not meet.
type ExpectationError struct {
	Field    string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *ExpectationError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Field, e.Expected, e.Actual)
}

// checkExpect compares every set field of e with cr. Rows are checked
// separately since they need the database.
func checkExpect(cr CaseResult, e Expect) []string {
	var errs []string
	fail := func(field, expected, actual string) {
		errs = append(errs, (&ExpectationError{Field: field, Expected: expected, Actual: actual}).Error())
	}

	if e.OK != nil && *e.OK != cr.OK {
		fail("ok", fmt.Sprint(*e.OK), fmt.Sprint(cr.OK))
	}
	if e.Canonical != "" && e.Canonical != cr.Canonical {
		fail("canonical", quote(e.Canonical), quote(cr.Canonical))
	}
	if e.SQL != "" && e.SQL != cr.SQL {
		fail("sql", quote(e.SQL), quote(cr.SQL))
	}
	if e.SQLContains != "" && !strings.Contains(cr.SQL, e.SQLContains) {
		fail("sql_contains", "SQL containing "+quote(e.SQLContains), quote(cr.SQL))
	}
	if e.FailCategory != "" && e.FailCategory != cr.FailCategory {
		fail("fail_category", e.FailCategory, orNone(cr.FailCategory))
	}
	if e.Relaxed != nil && *e.Relaxed != cr.Relaxed {
		fail("relaxed", fmt.Sprint(*e.Relaxed), fmt.Sprint(cr.Relaxed))
	}
	for _, want := range e.Warnings {
		if !anyContains(cr.Warnings, want) {
			fail("warnings", "a warning containing "+quote(want), fmt.Sprintf("%q", cr.Warnings))
		}
	}
	return errs
}

func anyContains(list []string, sub string) bool {
	for _, s := range list {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func quote(s string) string {
	return fmt.Sprintf("%q", s)
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
