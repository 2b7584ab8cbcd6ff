package fir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/flowc/primitives"
	"github.com/wudi/flowc/sourcepos"
)

func pos() sourcepos.Range {
	return sourcepos.Single("t", sourcepos.Pos{Line: 1, Column: 1})
}

func TestScopeDeclareAndLookupFindsEnclosing(t *testing.T) {
	parent := NewScope(nil)
	parent.Declare(NewIdentifier(1, "a", NewIntConst(pos(), 1), false, pos()))

	child := NewScope(parent)
	child.Declare(NewIdentifier(2, "b", NewIntConst(pos(), 2), false, pos()))

	a, ok := child.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, "a", a.Name)

	_, ok = parent.Lookup("b")
	assert.False(t, ok, "a parent scope must not see a child's declarations")
}

func TestScopeLookupMissingReturnsFalse(t *testing.T) {
	s := NewScope(nil)
	_, ok := s.Lookup("nope")
	assert.False(t, ok)
}

func TestNewIdentifierStartsUndefined(t *testing.T) {
	id := NewIdentifier(1, "x", nil, true, pos())
	assert.Equal(t, primitives.UndefinedType, id.Type)
	assert.True(t, id.IsRecursive)
	assert.Equal(t, "x", id.RefName())
}

func TestReferenceKindAndSelfRef(t *testing.T) {
	id := NewIdentifier(1, "fib", nil, true, pos())
	ref := NewReference(pos(), id)
	assert.Equal(t, KindReference, ref.Kind())
	assert.Same(t, id, ref.Referent)

	self := NewArraySelfRef(pos(), id)
	assert.Equal(t, KindArraySelfRef, self.Kind())
	assert.Same(t, id, self.Array)
}

func TestArrayAndArrayPatternsKinds(t *testing.T) {
	v := NewArrayVar("i", pos(), nil)
	arr := NewArray(pos(), []*ArrayVar{v}, NewIntConst(pos(), 0), NewScope(nil), false)
	assert.Equal(t, KindArray, arr.Kind())
	assert.Len(t, arr.Vars, 1)

	zero := int64(0)
	pats := NewArrayPatterns(pos(), []ArrayPattern{
		{ExplicitIndex: &zero, Body: NewIntConst(pos(), 0)},
		{Var: NewArrayVar("n", pos(), nil), Body: NewIntConst(pos(), 1)},
	})
	assert.Equal(t, KindArrayPatterns, pats.Kind())
	assert.Len(t, pats.Patterns, 2)
	assert.Nil(t, pats.Patterns[1].ExplicitIndex)
}

func TestPrimitiveAndOperationCarryOperands(t *testing.T) {
	p := NewPrimitive(pos(), "+", NewIntConst(pos(), 1), NewIntConst(pos(), 2))
	assert.Equal(t, KindPrimitive, p.Kind())
	assert.Len(t, p.Operands, 2)

	op := NewOperation(pos(), ArrayEnumerate, NewIntConst(pos(), 0), NewIntConst(pos(), 4))
	assert.Equal(t, KindOperation, op.Kind())
	assert.Equal(t, ArrayEnumerate, op.Op)
}

func TestFunctionAndFuncAppKinds(t *testing.T) {
	param := NewFuncVar("x", pos())
	fn := NewFunction(pos(), []*FuncVar{param}, NewReference(pos(), &Identifier{Name: "x"}), NewScope(nil))
	assert.Equal(t, KindFunction, fn.Kind())
	assert.Len(t, fn.Params, 1)

	app := NewFuncApp(pos(), fn, NewIntConst(pos(), 1))
	assert.Equal(t, KindFuncApp, app.Kind())
	assert.Len(t, app.Args, 1)
}

func TestBaseTypeRoundTrips(t *testing.T) {
	c := NewIntConst(pos(), 42)
	assert.Equal(t, primitives.UndefinedType, c.Type())
	c.SetType(primitives.IntConst())
	assert.Equal(t, primitives.Integer, c.Type().ElemKind())
}
