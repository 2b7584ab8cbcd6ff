package astemit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/flowc/linalg"
	"github.com/wudi/flowc/polyhedral"
	"github.com/wudi/flowc/primitives"
	"github.com/wudi/flowc/schedule"
)

func TestBuildFiniteStatementYieldsLoopNest(t *testing.T) {
	arrA := &polyhedral.Array{Name: "a_arr", Shape: []primitives.Dim{4}, Elem: primitives.Integer, FlowDim: -1}
	a := &polyhedral.Statement{Name: "a", Domain: []primitives.Dim{4}, Array: arrA, FlowDim: -1}
	a.Write = &polyhedral.Relation{ArrayName: "a_arr", InDims: a.IterVars(), OutExprs: []*linalg.LinExpr{linalg.Var(a.IterVars()[0])}}

	prog := &polyhedral.Program{Statements: []*polyhedral.Statement{a}, Arrays: []*polyhedral.Array{arrA}}
	require.NoError(t, prog.CheckInvariants())

	ctx := schedule.NewContext()
	defer ctx.Release()
	sched, err := schedule.Run(ctx, prog)
	require.NoError(t, err)

	b := NewBuilder(prog)
	ast, err := Build(b, prog, sched)
	require.NoError(t, err)
	require.Len(t, ast.Finite, 1)
	assert.Equal(t, NodeLoop, ast.Finite[0].Kind)
	assert.Equal(t, "a_i0", ast.Finite[0].Var)
	require.Len(t, ast.Finite[0].Children, 1)
	assert.Equal(t, NodeStmt, ast.Finite[0].Children[0].Kind)
}

func TestBuildInfiniteLoopHasNoUpperBound(t *testing.T) {
	x := &polyhedral.Array{Name: "x", Shape: []primitives.Dim{primitives.Inf}, Elem: primitives.Integer, FlowDim: 0}
	xDef := &polyhedral.Statement{Name: "x_def", Domain: []primitives.Dim{primitives.Inf}, Array: x, FlowDim: 0}
	xDef.Write = &polyhedral.Relation{ArrayName: "x", InDims: xDef.IterVars(), OutExprs: []*linalg.LinExpr{linalg.Var(xDef.IterVars()[0])}}
	prog := &polyhedral.Program{Statements: []*polyhedral.Statement{xDef}, Arrays: []*polyhedral.Array{x}}

	ctx := schedule.NewContext()
	sched, err := schedule.Run(ctx, prog)
	require.NoError(t, err)

	b := NewBuilder(prog)
	ast, err := Build(b, prog, sched)
	require.NoError(t, err)
	require.Len(t, ast.Infinite, 1)
	assert.Nil(t, ast.Infinite[0].Hi)
}

func TestWalkVisitsEveryNode(t *testing.T) {
	leaf := &Node{Kind: NodeStmt}
	root := &Node{Kind: NodeLoop, Children: []*Node{leaf}}
	var seen []NodeKind
	Walk(root, func(n *Node) { seen = append(seen, n.Kind) })
	assert.Equal(t, []NodeKind{NodeLoop, NodeStmt}, seen)
}
