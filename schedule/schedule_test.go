package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/flowc/linalg"
	"github.com/wudi/flowc/polyhedral"
	"github.com/wudi/flowc/primitives"
)

func infiniteArray(name string) *polyhedral.Array {
	return &polyhedral.Array{Name: name, Shape: []primitives.Dim{primitives.Inf}, Elem: primitives.Integer, FlowDim: 0}
}

// buildPipeline returns x (producer), y (a 2:1 downsampling reader of
// x), and z (a reader of x at a forward offset of 2, needing a
// 3-cell live range on x).
func buildPipeline() *polyhedral.Program {
	x := infiniteArray("x")
	xDef := &polyhedral.Statement{Name: "x_def", Domain: []primitives.Dim{primitives.Inf}, Array: x, FlowDim: 0}
	xDef.Write = &polyhedral.Relation{ArrayName: "x", InDims: xDef.IterVars(), OutExprs: []*linalg.LinExpr{linalg.Var(xDef.IterVars()[0])}}

	y := infiniteArray("y")
	yDef := &polyhedral.Statement{Name: "y_def", Domain: []primitives.Dim{primitives.Inf}, Array: y, FlowDim: 0}
	yDef.Write = &polyhedral.Relation{ArrayName: "y", InDims: yDef.IterVars(), OutExprs: []*linalg.LinExpr{linalg.Var(yDef.IterVars()[0])}}
	yDef.Reads = []*polyhedral.Relation{{ArrayName: "x", InDims: yDef.IterVars(), OutExprs: []*linalg.LinExpr{linalg.Var(yDef.IterVars()[0]).Scale(2)}}}

	z := infiniteArray("z")
	zDef := &polyhedral.Statement{Name: "z_def", Domain: []primitives.Dim{primitives.Inf}, Array: z, FlowDim: 0}
	zDef.Write = &polyhedral.Relation{ArrayName: "z", InDims: zDef.IterVars(), OutExprs: []*linalg.LinExpr{linalg.Var(zDef.IterVars()[0])}}
	zDef.Reads = []*polyhedral.Relation{{ArrayName: "x", InDims: zDef.IterVars(), OutExprs: []*linalg.LinExpr{linalg.Var(zDef.IterVars()[0]).Shift(2)}}}

	return &polyhedral.Program{Statements: []*polyhedral.Statement{xDef, yDef, zDef}, Arrays: []*polyhedral.Array{x, y, z}}
}

func TestRunInfiniteOnlyComputesRatesAndPeriod(t *testing.T) {
	prog := buildPipeline()
	require.NoError(t, prog.CheckInvariants())

	ctx := NewContext()
	defer ctx.Release()
	res, err := Run(ctx, prog)
	require.NoError(t, err)

	assert.Equal(t, InfiniteOnly, res.State)
	assert.Equal(t, int64(1), res.Rate["x"])
	assert.Equal(t, int64(2), res.Rate["y"])
	assert.Equal(t, int64(2), res.LeastCommonPeriod)
	assert.Equal(t, int64(2), res.PeriodSpan("x"))
	assert.Equal(t, int64(1), res.PeriodSpan("y"))
}

func TestRunFiniteOnlyTopologicallyOrders(t *testing.T) {
	a := &polyhedral.Statement{Name: "a", Domain: []primitives.Dim{3}, FlowDim: -1}
	b := &polyhedral.Statement{Name: "b", Domain: []primitives.Dim{3}, FlowDim: -1}
	arr := &polyhedral.Array{Name: "a_arr", Shape: []primitives.Dim{3}, Elem: primitives.Integer, FlowDim: -1}
	a.Array = arr
	a.Write = &polyhedral.Relation{ArrayName: "a_arr", InDims: a.IterVars(), OutExprs: []*linalg.LinExpr{linalg.Var(a.IterVars()[0])}}
	b.Reads = []*polyhedral.Relation{{ArrayName: "a_arr", InDims: b.IterVars(), OutExprs: []*linalg.LinExpr{linalg.Var(b.IterVars()[0])}}}

	prog := &polyhedral.Program{Statements: []*polyhedral.Statement{b, a}, Arrays: []*polyhedral.Array{arr}}
	ctx := NewContext()
	res, err := Run(ctx, prog)
	require.NoError(t, err)
	assert.Equal(t, FiniteOnly, res.State)
	assert.Less(t, res.Statements["a"].Rank, res.Statements["b"].Rank)
}

func TestRunDetectsFiniteCycle(t *testing.T) {
	a := &polyhedral.Statement{Name: "a", Domain: []primitives.Dim{3}, FlowDim: -1}
	b := &polyhedral.Statement{Name: "b", Domain: []primitives.Dim{3}, FlowDim: -1}
	arrA := &polyhedral.Array{Name: "a_arr", Shape: []primitives.Dim{3}, Elem: primitives.Integer, FlowDim: -1}
	arrB := &polyhedral.Array{Name: "b_arr", Shape: []primitives.Dim{3}, Elem: primitives.Integer, FlowDim: -1}
	a.Array, b.Array = arrA, arrB
	a.Write = &polyhedral.Relation{ArrayName: "a_arr", InDims: a.IterVars(), OutExprs: []*linalg.LinExpr{linalg.Var(a.IterVars()[0])}}
	b.Write = &polyhedral.Relation{ArrayName: "b_arr", InDims: b.IterVars(), OutExprs: []*linalg.LinExpr{linalg.Var(b.IterVars()[0])}}
	a.Reads = []*polyhedral.Relation{{ArrayName: "b_arr", InDims: a.IterVars(), OutExprs: []*linalg.LinExpr{linalg.Var(a.IterVars()[0])}}}
	b.Reads = []*polyhedral.Relation{{ArrayName: "a_arr", InDims: b.IterVars(), OutExprs: []*linalg.LinExpr{linalg.Var(b.IterVars()[0])}}}

	prog := &polyhedral.Program{Statements: []*polyhedral.Statement{a, b}, Arrays: []*polyhedral.Array{arrA, arrB}}
	ctx := NewContext()
	_, err := Run(ctx, prog)
	assert.Error(t, err)
}
