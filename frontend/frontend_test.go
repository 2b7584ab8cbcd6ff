package frontend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/flowc/fir"
)

func TestLexerTokenizesOperatorsAndKeywords(t *testing.T) {
	lex := New("t", "a + 3 .. inf and not")
	var kinds []TokenKind
	for {
		tok := lex.Next()
		kinds = append(kinds, tok.Kind)
		if tok.Kind == TokEOF {
			break
		}
	}
	assert.Equal(t, []TokenKind{TokIdent, TokPlus, TokInt, TokDotDot, TokKeyword, TokKeyword, TokKeyword, TokEOF}, kinds)
}

func TestParseModuleScalarChain(t *testing.T) {
	src := "a = 5\nb = a + 3\n"
	scope, errs := ParseModule("t", src, nil)
	require.False(t, errs.HasErrors(), errs.String())
	require.Len(t, scope.Identifiers, 2)

	a, ok := scope.Lookup("a")
	require.True(t, ok)
	_, isInt := a.Def.(*fir.IntConst)
	assert.True(t, isInt)

	b, ok := scope.Lookup("b")
	require.True(t, ok)
	prim, isPrim := b.Def.(*fir.Primitive)
	require.True(t, isPrim)
	assert.Equal(t, "+", prim.Op)
	assert.False(t, b.IsRecursive)
}

func TestParseModuleArrayLiteral(t *testing.T) {
	src := "squares = [i in 0..4: i*i]\n"
	scope, errs := ParseModule("t", src, nil)
	require.False(t, errs.HasErrors(), errs.String())

	sq, ok := scope.Lookup("squares")
	require.True(t, ok)
	arr, isArr := sq.Def.(*fir.Array)
	require.True(t, isArr)
	require.Len(t, arr.Vars, 1)
	assert.Equal(t, "i", arr.Vars[0].Name)
	require.NotNil(t, arr.Vars[0].Range)
}

func TestParseModuleSelfRecursivePattern(t *testing.T) {
	src := "fib = {0 => 0, 1 => 1, n => fib(n-1) + fib(n-2)}\n"
	scope, errs := ParseModule("t", src, nil)
	require.False(t, errs.HasErrors(), errs.String())

	fibID, ok := scope.Lookup("fib")
	require.True(t, ok)
	assert.True(t, fibID.IsRecursive)
	pats, isPats := fibID.Def.(*fir.ArrayPatterns)
	require.True(t, isPats)
	assert.Len(t, pats.Patterns, 3)
}

func TestParseModuleUndefinedSymbol(t *testing.T) {
	src := "a = b + 1\n"
	_, errs := ParseModule("t", src, nil)
	assert.True(t, errs.HasErrors())
}

func TestParseModuleFunctionDefinition(t *testing.T) {
	src := "add(x, y) = x + y\nresult = add(2, 3)\n"
	scope, errs := ParseModule("t", src, nil)
	require.False(t, errs.HasErrors(), errs.String())

	add, ok := scope.Lookup("add")
	require.True(t, ok)
	fn, isFn := add.Def.(*fir.Function)
	require.True(t, isFn)
	assert.Len(t, fn.Params, 2)

	result, ok := scope.Lookup("result")
	require.True(t, ok)
	_, isApp := result.Def.(*fir.FuncApp)
	assert.True(t, isApp)
}
