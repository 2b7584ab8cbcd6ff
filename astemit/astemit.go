// Package astemit turns a scheduled program into a tree of loop,
// conditional, and statement nodes that a textual backend can walk
// directly, instead of handing the schedule to an external code
// generator.
//
// Node construction is driven by two small callbacks, MakeStatement and
// LookupID, mirroring the make_statement/lookup_id hooks the original
// CLooG-based pipeline used to bridge its AST back into the host
// compiler's own statement and symbol objects; here the
// default callbacks are the obvious ones and a caller only needs to
// override them for a different backend.
package astemit

import (
	"fmt"

	"github.com/wudi/flowc/diag"
	"github.com/wudi/flowc/linalg"
	"github.com/wudi/flowc/polyhedral"
	"github.com/wudi/flowc/schedule"
)

// NodeKind tags one AST node produced by Build.
type NodeKind int

const (
	NodeLoop NodeKind = iota
	NodeIf
	NodeBlock
	NodeStmt
)

// Node is one AST element. Loop nodes range Var over [Lo, Hi); Hi == nil
// means an unbounded loop (only ever the outermost loop of an infinite
// statement). If nodes guard Children on Cond holding.
type Node struct {
	Kind NodeKind

	Var string
	Lo  *linalg.LinExpr
	Hi  *linalg.LinExpr // nil for an unbounded loop

	Cond *linalg.LinExpr // NodeIf: true when Cond evaluates to 0 (an equality guard)

	Statement *polyhedral.Statement // NodeStmt
	IterVars  []string              // NodeStmt: the enclosing loop variables in order

	Children []*Node
}

// MakeStatementFunc builds the leaf node for one statement instance.
type MakeStatementFunc func(stmt *polyhedral.Statement, iterVars []string) *Node

// LookupIDFunc resolves an array reference by name. Build does not
// call it; it is kept on the Builder for a backend to use.
type LookupIDFunc func(name string) (*polyhedral.Array, bool)

// Builder holds the callbacks used while constructing the tree.
type Builder struct {
	MakeStatement MakeStatementFunc
	LookupID      LookupIDFunc
}

// NewBuilder returns a Builder with the default callbacks: a plain
// NodeStmt per statement, and direct lookup into prog.Arrays.
func NewBuilder(prog *polyhedral.Program) *Builder {
	byName := map[string]*polyhedral.Array{}
	for _, a := range prog.Arrays {
		byName[a.Name] = a
	}
	return &Builder{
		MakeStatement: func(stmt *polyhedral.Statement, iterVars []string) *Node {
			return &Node{Kind: NodeStmt, Statement: stmt, IterVars: iterVars}
		},
		LookupID: func(name string) (*polyhedral.Array, bool) {
			a, ok := byName[name]
			return a, ok
		},
	}
}

// Program is the emitted AST: the finite-domain block (schedule phase
// -1) followed by the infinite-domain block (schedule phase 0), per
// the combined-schedule state machine.
type Program struct {
	Finite   []*Node
	Infinite []*Node
}

// Build walks prog in schedule order and constructs one loop nest per
// statement.
func Build(b *Builder, prog *polyhedral.Program, sched *schedule.Result) (*Program, error) {
	out := &Program{}

	finiteOrder := orderedByRank(prog, sched, false)
	for _, stmt := range finiteOrder {
		n, err := buildNest(b, stmt, nil, 0)
		if err != nil {
			return nil, err
		}
		out.Finite = append(out.Finite, n)
	}

	infiniteOrder := orderedByRank(prog, sched, true)
	for _, stmt := range infiniteOrder {
		n, err := buildNest(b, stmt, nil, 0)
		if err != nil {
			return nil, err
		}
		out.Infinite = append(out.Infinite, n)
	}
	return out, nil
}

func orderedByRank(prog *polyhedral.Program, sched *schedule.Result, infinite bool) []*polyhedral.Statement {
	var stmts []*polyhedral.Statement
	for _, s := range prog.Statements {
		if s.IsInfinite() == infinite {
			stmts = append(stmts, s)
		}
	}
	if sched == nil {
		return stmts
	}
	less := func(i, j int) bool {
		si, sj := sched.Statements[stmts[i].Name], sched.Statements[stmts[j].Name]
		if si == nil || sj == nil {
			return stmts[i].Name < stmts[j].Name
		}
		if infinite {
			return si.Phase < sj.Phase
		}
		return si.Rank < sj.Rank
	}
	// insertion sort: statement counts are small
	for i := 1; i < len(stmts); i++ {
		for j := i; j > 0 && less(j, j-1); j-- {
			stmts[j], stmts[j-1] = stmts[j-1], stmts[j]
		}
	}
	return stmts
}

// buildNest recurses over stmt.Domain, innermost dimension last,
// producing Loop(dim0, Loop(dim1, ... Stmt)).
func buildNest(b *Builder, stmt *polyhedral.Statement, iterVars []string, dim int) (*Node, error) {
	vars := stmt.IterVars()
	if dim == len(vars) {
		return b.MakeStatement(stmt, iterVars), nil
	}
	v := vars[dim]
	lo := linalg.Const(0)
	var hi *linalg.LinExpr
	d := stmt.Domain[dim]
	if d.IsInfinite() {
		if dim != stmt.FlowDim {
			return nil, diag.NewUnlocated(diag.BackendError, "statement %q has an unbounded non-flow dimension %d", stmt.Name, dim)
		}
	} else {
		hi = linalg.Const(int64(d))
	}
	child, err := buildNest(b, stmt, append(iterVars, v), dim+1)
	if err != nil {
		return nil, err
	}
	return &Node{Kind: NodeLoop, Var: v, Lo: lo, Hi: hi, Children: []*Node{child}}, nil
}

// Walk performs a depth-first traversal of n, calling visit on every
// node including n itself.
func Walk(n *Node, visit func(*Node)) {
	if n == nil {
		return
	}
	visit(n)
	for _, c := range n.Children {
		Walk(c, visit)
	}
}

func (n *Node) String() string {
	switch n.Kind {
	case NodeLoop:
		hi := "inf"
		if n.Hi != nil {
			hi = n.Hi.String()
		}
		return fmt.Sprintf("for %s in [%s, %s)", n.Var, n.Lo, hi)
	case NodeIf:
		return fmt.Sprintf("if %s == 0", n.Cond)
	case NodeStmt:
		return fmt.Sprintf("stmt %s(%v)", n.Statement.Name, n.IterVars)
	default:
		return "block"
	}
}
