package backend

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/flowc/astemit"
	"github.com/wudi/flowc/linalg"
	"github.com/wudi/flowc/polyhedral"
	"github.com/wudi/flowc/primitives"
	"github.com/wudi/flowc/schedule"
)

func TestPrintEmitsGlobalAndKernel(t *testing.T) {
	x := &polyhedral.Array{Name: "x", Shape: []primitives.Dim{primitives.Inf}, Elem: primitives.Integer, FlowDim: 0, BufferSize: []int{3}}
	xDef := &polyhedral.Statement{Name: "x_def", Domain: []primitives.Dim{primitives.Inf}, Array: x, FlowDim: 0}
	xDef.Write = &polyhedral.Relation{ArrayName: "x", InDims: xDef.IterVars(), OutExprs: []*linalg.LinExpr{linalg.Var(xDef.IterVars()[0])}}
	prog := &polyhedral.Program{Statements: []*polyhedral.Statement{xDef}, Arrays: []*polyhedral.Array{x}}

	ctx := schedule.NewContext()
	defer ctx.Release()
	sched, err := schedule.Run(ctx, prog)
	require.NoError(t, err)

	builder := astemit.NewBuilder(prog)
	ast, err := astemit.Build(builder, prog, sched)
	require.NoError(t, err)

	out := NewPrinter(builder, prog).Print(ast)
	assert.True(t, strings.Contains(out, "@x = global [3 x i64]"))
	assert.True(t, strings.Contains(out, "define void @kernel()"))
	assert.True(t, strings.Contains(out, "@flowc_eval_x_def"))
}

func TestLLTypeMapping(t *testing.T) {
	assert.Equal(t, "i64", llType(primitives.Integer))
	assert.Equal(t, "double", llType(primitives.Real))
	assert.Equal(t, "{double, double}", llType(primitives.Complex))
	assert.Equal(t, "i1", llType(primitives.Boolean))
}
