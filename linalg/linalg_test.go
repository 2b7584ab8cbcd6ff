package linalg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinExprArithmetic(t *testing.T) {
	e := Var("i").Add(Const(3)).Scale(2)
	assert.Equal(t, int64(2), e.Coeff("i"))
	assert.Equal(t, int64(6), e.ConstTerm())

	v, ok := e.Eval(map[string]int64{"i": 5})
	require.True(t, ok)
	assert.Equal(t, int64(16), v)

	_, ok = e.Eval(map[string]int64{})
	assert.False(t, ok, "eval must fail when a variable is unbound")
}

func TestLinExprShiftAndSub(t *testing.T) {
	a := Var("t").Shift(2)
	b := Var("t").Shift(-1)
	diff := a.Sub(b)
	assert.True(t, diff.IsConstant())
	assert.Equal(t, int64(3), diff.ConstTerm())
}

func TestLinExprVarsSorted(t *testing.T) {
	e := Var("z").Add(Var("a")).Add(Var("m"))
	assert.Equal(t, []string{"a", "m", "z"}, e.Vars())
}

func TestLinearSetContains(t *testing.T) {
	// 0 <= i < 10
	s := NewLinearSet([]string{"i"}, nil,
		Constraint{Expr: Var("i").Scale(-1), Op: Le},
		Constraint{Expr: Var("i").Shift(-9), Op: Le},
	)
	assert.True(t, s.Contains([]int64{0}, nil))
	assert.True(t, s.Contains([]int64{9}, nil))
	assert.False(t, s.Contains([]int64{10}, nil))
	assert.False(t, s.Contains([]int64{-1}, nil))
}

func TestLinearSetMatrixNormalizesStrict(t *testing.T) {
	s := NewLinearSet([]string{"i"}, nil, Constraint{Expr: Var("i").Shift(-5), Op: Lt})
	rows := s.Matrix()
	require.Len(t, rows, 1)
	assert.Equal(t, int64(-4), rows[0][1]) // i - 5 < 0  ==>  i - 4 <= 0
}

func TestGCDLCM(t *testing.T) {
	assert.Equal(t, int64(6), GCD(12, 18))
	assert.Equal(t, int64(36), LCM(12, 18))
	assert.Equal(t, int64(0), LCM(0, 5))
	assert.Equal(t, int64(60), LCMAll([]int64{4, 15, 20}))
}
