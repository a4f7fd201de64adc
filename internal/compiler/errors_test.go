package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatCUEError_FallsBackToValuePosition(t *testing.T) {
	v := cuecontext.New().CompileString("functions: f: class: 42\n", cue.Filename("fallback.cue"))
	require.NoError(t, v.Err())
	class := v.LookupPath(cue.ParsePath("functions.f.class"))

	testCases := []struct {
		name string
		err  error
		at   cue.Value
	}{
		{"unpositioned error at the field", cueerrors.Newf(token.NoPos, "no position"), class},
		{"plain error", assert.AnError, class},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := formatCUEError(tc.err, tc.at)
			require.True(t, IsCompileError(err))

			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.True(t, ce.Pos.IsValid())
			assert.Equal(t, "fallback.cue", ce.Pos.Filename())
			assert.Equal(t, 1, ce.Pos.Line())
		})
	}
}

func TestFormatCUEError_Nil(t *testing.T) {
	assert.NoError(t, formatCUEError(nil, cue.Value{}))
}
