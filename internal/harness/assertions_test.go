package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func TestCheckExpect(t *testing.T) {
	ok := CaseResult{
		Input:     "show age in people",
		OK:        true,
		Canonical: "select age from users",
		SQL:       `SELECT "users"."age" FROM "users";`,
		Warnings:  []string{"Function 'st_area' looks PostGIS; SQLite may not support it."},
	}
	failed := CaseResult{Input: "show salary in people", FailCategory: "normalizer_zero"}

	testCases := []struct {
		name   string
		result CaseResult
		expect Expect
		want   []string
	}{
		{
			name:   "all fields match",
			result: ok,
			expect: Expect{
				OK:          ptr(true),
				Canonical:   "select age from users",
				SQL:         `SELECT "users"."age" FROM "users";`,
				SQLContains: `"age"`,
				Relaxed:     ptr(false),
				Warnings:    []string{"PostGIS"},
			},
		},
		{
			name:   "ok mismatch",
			result: failed,
			expect: Expect{OK: ptr(true)},
			want:   []string{"ok: expected true, got false"},
		},
		{
			name:   "canonical mismatch",
			result: ok,
			expect: Expect{Canonical: "select name from users"},
			want:   []string{`canonical: expected "select name from users", got "select age from users"`},
		},
		{
			name:   "sql substring missing",
			result: ok,
			expect: Expect{SQLContains: "COUNT"},
			want:   []string{`sql_contains: expected SQL containing "COUNT", got "SELECT \"users\".\"age\" FROM \"users\";"`},
		},
		{
			name:   "fail category on success",
			result: ok,
			expect: Expect{FailCategory: "binder_fail"},
			want:   []string{"fail_category: expected binder_fail, got none"},
		},
		{
			name:   "missing warning",
			result: failed,
			expect: Expect{Warnings: []string{"PostGIS"}},
			want:   []string{`warnings: expected a warning containing "PostGIS", got []`},
		},
		{
			name:   "several failures",
			result: failed,
			expect: Expect{OK: ptr(true), Relaxed: ptr(true)},
			want: []string{
				"ok: expected true, got false",
				"relaxed: expected true, got false",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, checkExpect(tc.result, tc.expect))
		})
	}
}
