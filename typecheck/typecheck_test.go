package typecheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/flowc/fir"
	"github.com/wudi/flowc/primitives"
	"github.com/wudi/flowc/sourcepos"
)

func pos() sourcepos.Range { return sourcepos.Single("t", sourcepos.Pos{Line: 1, Column: 1}) }

func TestResultTypeArithmeticPromotesToReal(t *testing.T) {
	k, err := ResultType("+", []primitives.Type{primitives.IntConst(), primitives.RealConst()})
	require.NoError(t, err)
	assert.Equal(t, primitives.Real, k.ElemKind())
}

func TestResultTypeComparisonYieldsBoolean(t *testing.T) {
	k, err := ResultType("<", []primitives.Type{primitives.IntConst(), primitives.IntConst()})
	require.NoError(t, err)
	assert.Equal(t, primitives.Boolean, k.ElemKind())
}

func TestResultTypeRejectsBooleanArithmetic(t *testing.T) {
	_, err := ResultType("+", []primitives.Type{primitives.BoolConst(), primitives.IntConst()})
	assert.Error(t, err)
}

func TestProcessSimpleScalarChain(t *testing.T) {
	scope := fir.NewScope(nil)
	a := fir.NewIdentifier(1, "a", fir.NewIntConst(pos(), 2), false, pos())
	scope.Declare(a)
	b := fir.NewIdentifier(2, "b", fir.NewPrimitive(pos(), "+", fir.NewReference(pos(), a), fir.NewIntConst(pos(), 3)), false, pos())
	scope.Declare(b)

	c := New()
	require.NoError(t, c.Process(scope))
	assert.False(t, c.Errors().HasErrors())
	assert.Equal(t, primitives.Integer, a.Type.ElemKind())
	assert.Equal(t, primitives.Integer, b.Type.ElemKind())
}

func TestProcessSelfRecursiveArrayReachesFixedPoint(t *testing.T) {
	scope := fir.NewScope(nil)
	fib := fir.NewIdentifier(1, "fib", nil, true, pos())
	scope.Declare(fib)
	selfRef := fir.NewArraySelfRef(pos(), fib)
	// fib = {0 => 0, n => fib(n-1)} : every clause int, self-ref folds in
	fib.Def = fir.NewArrayPatterns(pos(), []fir.ArrayPattern{
		{ExplicitIndex: int64p(0), Body: fir.NewIntConst(pos(), 0)},
		{Var: fir.NewArrayVar("n", pos(), nil), Body: selfRef},
	})

	c := New()
	require.NoError(t, c.Process(scope))
	assert.False(t, c.Errors().HasErrors())
	assert.Equal(t, primitives.Integer, fib.Type.ElemKind())
}

func int64p(v int64) *int64 { return &v }
