package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/flowc/frontend"
	"github.com/wudi/flowc/typecheck"
)

func TestTranslateScalarDefinitionIsOnePointStatement(t *testing.T) {
	scope, errs := frontend.ParseModule("t", "a = 5\nb = a + 3\n", nil)
	require.False(t, errs.HasErrors(), errs.String())

	checker := typecheck.New()
	require.NoError(t, checker.Process(scope))
	require.False(t, checker.Errors().HasErrors())

	tr := New()
	prog, err := tr.Translate(scope)
	require.NoError(t, err)
	require.Len(t, prog.Statements, 2)
	assert.Equal(t, "a", prog.Statements[0].Name)
	assert.Equal(t, -1, prog.Statements[0].FlowDim)
}

func TestTranslateArrayLiteralProducesAffineWrite(t *testing.T) {
	scope, errs := frontend.ParseModule("t", "squares = [i in 0..4: i*i]\n", nil)
	require.False(t, errs.HasErrors(), errs.String())

	checker := typecheck.New()
	require.NoError(t, checker.Process(scope))
	require.False(t, checker.Errors().HasErrors(), checker.Errors().String())

	tr := New()
	prog, err := tr.Translate(scope)
	require.NoError(t, err)
	require.Len(t, prog.Arrays, 1)
	assert.Equal(t, "squares", prog.Arrays[0].Name)
	require.Len(t, prog.Statements, 1)
	stmt := prog.Statements[0]
	require.NotNil(t, stmt.Write)
	assert.Equal(t, "squares", stmt.Write.ArrayName)
	assert.Equal(t, []string{"squares_i0"}, stmt.Write.InDims)
}

func TestTranslateSelfRecursivePatternsYieldsInfiniteStatement(t *testing.T) {
	scope, errs := frontend.ParseModule("t", "fib = {0 => 0, 1 => 1, n => fib(n-1) + fib(n-2)}\n", nil)
	require.False(t, errs.HasErrors(), errs.String())

	checker := typecheck.New()
	require.NoError(t, checker.Process(scope))
	require.False(t, checker.Errors().HasErrors(), checker.Errors().String())

	tr := New()
	prog, err := tr.Translate(scope)
	require.NoError(t, err)
	require.Len(t, prog.Statements, 1)
	stmt := prog.Statements[0]
	assert.Equal(t, 0, stmt.FlowDim)
	assert.Len(t, stmt.Reads, 2, "the two fib(n-1)/fib(n-2) self-applications should each yield a read relation")
}
