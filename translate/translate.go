// Package translate is the FIR→polyhedral translator: it lowers each
// defining array expression to a statement with an affine write
// relation and the read relations found by walking the body for
// ArrayApp nodes. Array applications are not beta-reduced: an ArrayApp
// whose object names a top-level array (or is a self-reference) becomes
// a read relation, and an ArrayApp on any other object yields none.
package translate

import (
	"fmt"

	"github.com/wudi/flowc/diag"
	"github.com/wudi/flowc/fir"
	"github.com/wudi/flowc/linalg"
	"github.com/wudi/flowc/polyhedral"
	"github.com/wudi/flowc/primitives"
)

// Translator accumulates the statement and array sets of one
// compilation.
type Translator struct {
	stmts  []*polyhedral.Statement
	arrays []*polyhedral.Array
	byName map[string]*polyhedral.Array
}

// New returns an empty Translator.
func New() *Translator {
	return &Translator{byName: map[string]*polyhedral.Array{}}
}

// Translate lowers every identifier in scope to zero-or-more
// statements plus, for array-typed identifiers, one owning array.
func (t *Translator) Translate(scope *fir.Scope) (*polyhedral.Program, error) {
	for _, id := range scope.Identifiers {
		if err := t.translateIdentifier(id); err != nil {
			return nil, err
		}
	}
	prog := &polyhedral.Program{Statements: t.stmts, Arrays: t.arrays}
	if err := prog.CheckInvariants(); err != nil {
		return nil, err
	}
	return prog, nil
}

func (t *Translator) translateIdentifier(id *fir.Identifier) error {
	switch def := id.Def.(type) {
	case *fir.Array:
		return t.translateArray(id, def)
	case *fir.ArrayPatterns:
		return t.translatePatterns(id, def)
	case *fir.Operation:
		return t.translateOperation(id, def)
	default:
		// Plain scalar-valued top-level definition: one statement, a
		// one-point iteration domain, no owning array.
		t.stmts = append(t.stmts, &polyhedral.Statement{
			Name:    id.Name,
			Domain:  []primitives.Dim{1},
			Expr:    id.Def,
			FlowDim: -1,
		})
		return nil
	}
}

func (t *Translator) declareArray(name string, shape []primitives.Dim, elem primitives.Kind) *polyhedral.Array {
	arr := &polyhedral.Array{Name: name, Shape: shape, Elem: elem, FlowDim: flowDimOf(shape)}
	t.arrays = append(t.arrays, arr)
	t.byName[name] = arr
	return arr
}

func flowDimOf(shape []primitives.Dim) int {
	for i, d := range shape {
		if d.IsInfinite() {
			return i
		}
	}
	return -1
}

// translateArray lowers `id = [v1, v2, ...: body]` into one statement
// whose write relation is the identity on the bound variables, each
// shifted by its range's lower bound (0 for a plain or unbounded range).
func (t *Translator) translateArray(id *fir.Identifier, a *fir.Array) error {
	varName := map[*fir.ArrayVar]string{}
	iterVars := make([]string, len(a.Vars))
	shape := make([]primitives.Dim, len(a.Vars))
	offsets := make([]*linalg.LinExpr, len(a.Vars))

	for i, v := range a.Vars {
		iterVars[i] = fmt.Sprintf("%s_i%d", id.Name, i)
		varName[v] = iterVars[i]
		size, offset, err := t.rangeExtent(v.Range, varName, iterVars[:i])
		if err != nil {
			return err
		}
		shape[i] = size
		offsets[i] = offset
	}

	elem := id.Type.ElemKind()
	arr := t.declareArray(id.Name, shape, elem)

	stmt := &polyhedral.Statement{
		Name:    id.Name,
		Domain:  shape,
		Expr:    a.Body,
		Array:   arr,
		FlowDim: flowDimOf(shape),
	}
	write := &polyhedral.Relation{ArrayName: id.Name, InDims: iterVars}
	for i := range a.Vars {
		write.OutExprs = append(write.OutExprs, linalg.Var(iterVars[i]).Add(offsets[i]))
	}
	stmt.Write = write

	reads, err := t.collectReads(a.Body, id, varName, iterVars)
	if err != nil {
		return err
	}
	stmt.Reads = reads
	t.stmts = append(t.stmts, stmt)
	return nil
}

// rangeExtent resolves an ArrayVar's range expression to a (size,
// offset) pair: size is the dimension's extent (Inf if unbounded),
// offset is the affine expression (in terms of the already-bound
// outer iterator names) added to the local 0-based iterator to
// recover the original index — this is array_enumerate's lowering
// into a per-dimension linear index offset, used directly for a
// "lo..hi" range such as `i..i+3`.
func (t *Translator) rangeExtent(rng fir.Expr, varName map[*fir.ArrayVar]string, outerVars []string) (primitives.Dim, *linalg.LinExpr, error) {
	if rng == nil {
		return primitives.Inf, linalg.Const(0), nil
	}
	if enum, ok := rng.(*fir.Operation); ok && enum.Op == fir.ArrayEnumerate && len(enum.Operands) == 2 {
		lo, err := affineOf(enum.Operands[0], varName)
		if err != nil {
			return 0, nil, err
		}
		hi, err := affineOf(enum.Operands[1], varName)
		if err != nil {
			return 0, nil, err
		}
		extent := hi.Sub(lo)
		if !extent.IsConstant() {
			return 0, nil, diag.New(diag.AffineExpected, rng.Pos(), "enumerated range extent must be constant")
		}
		return primitives.Dim(extent.ConstTerm()), lo, nil
	}
	size, err := affineOf(rng, varName)
	if err != nil {
		return 0, nil, err
	}
	if !size.IsConstant() {
		return 0, nil, diag.New(diag.AffineExpected, rng.Pos(), "array bound must be constant")
	}
	return primitives.Dim(size.ConstTerm()), linalg.Const(0), nil
}

// translatePatterns lowers a piecewise ArrayPatterns literal (e.g. a
// recursive Fibonacci-style definition) into one statement over the
// infinite domain, with the clauses folded into a CaseExpr: explicit
// indices become equality guards, the general clause becomes an
// unguarded (nil Cond) default arm.
func (t *Translator) translatePatterns(id *fir.Identifier, p *fir.ArrayPatterns) error {
	iterVar := fmt.Sprintf("%s_i0", id.Name)
	var boundVar *fir.ArrayVar
	var cases []fir.CaseClause
	varName := map[*fir.ArrayVar]string{}

	for _, pat := range p.Patterns {
		if pat.ExplicitIndex != nil {
			idx := *pat.ExplicitIndex
			cond := fir.NewPrimitive(pat.Body.Pos(), "==",
				fir.NewAffineExpr(pat.Body.Pos(), linalg.Var(iterVar)),
				fir.NewIntConst(pat.Body.Pos(), idx))
			cases = append(cases, fir.CaseClause{Cond: cond, Result: pat.Body})
			continue
		}
		boundVar = pat.Var
		if boundVar != nil {
			varName[boundVar] = iterVar
		}
		cases = append(cases, fir.CaseClause{Cond: nil, Result: pat.Body})
	}

	body := fir.NewCaseExpr(p.Pos(), cases)
	elem := id.Type.ElemKind()
	shape := []primitives.Dim{primitives.Inf}
	arr := t.declareArray(id.Name, shape, elem)

	stmt := &polyhedral.Statement{
		Name:    id.Name,
		Domain:  shape,
		Expr:    body,
		Array:   arr,
		FlowDim: 0,
	}
	stmt.Write = &polyhedral.Relation{
		ArrayName: id.Name,
		InDims:    []string{iterVar},
		OutExprs:  []*linalg.LinExpr{linalg.Var(iterVar)},
	}
	reads, err := t.collectReads(body, id, varName, []string{iterVar})
	if err != nil {
		return err
	}
	stmt.Reads = reads
	t.stmts = append(t.stmts, stmt)
	return nil
}

// translateOperation lowers a top-level `a ++ b` / array_enumerate
// definition into one statement per operand, each writing a disjoint,
// offset-shifted slice of the same output array.
func (t *Translator) translateOperation(id *fir.Identifier, op *fir.Operation) error {
	arrType, ok := id.Type.(primitives.Array)
	if !ok {
		return diag.New(diag.InvalidArgumentTypes, op.Pos(), "array_concat/array_enumerate definition %q did not resolve to an array type", id.Name)
	}
	elem := arrType.Elem
	totalShape := arrType.Shape
	if totalShape == nil {
		totalShape = []primitives.Dim{primitives.Inf}
	}
	arr := t.declareArray(id.Name, totalShape, elem)

	var cumulative int64
	for oi, operand := range op.Operands {
		opArrType, _ := operand.Type().(primitives.Array)
		size := primitives.Dim(0)
		if len(opArrType.Shape) > 0 {
			size = opArrType.Shape[0]
		}
		name := fmt.Sprintf("%s_part%d", id.Name, oi)
		iterVar := name + "_i0"
		domain := []primitives.Dim{size}
		flowDim := -1
		if size.IsInfinite() {
			flowDim = 0
		}

		stmt := &polyhedral.Statement{
			Name:    name,
			Domain:  domain,
			Expr:    fir.NewArrayApp(operand.Pos(), operand, fir.NewAffineExpr(operand.Pos(), linalg.Var(iterVar))),
			Array:   arr,
			FlowDim: flowDim,
		}
		stmt.Write = &polyhedral.Relation{
			ArrayName: id.Name,
			InDims:    []string{iterVar},
			OutExprs:  []*linalg.LinExpr{linalg.Var(iterVar).Shift(cumulative)},
		}
		if ref, ok := operandSourceName(operand); ok {
			stmt.Reads = []*polyhedral.Relation{{
				ArrayName: ref,
				InDims:    []string{iterVar},
				OutExprs:  []*linalg.LinExpr{linalg.Var(iterVar)},
			}}
		}
		t.stmts = append(t.stmts, stmt)
		if !size.IsInfinite() {
			cumulative += int64(size)
		}
	}
	return nil
}

func operandSourceName(e fir.Expr) (string, bool) {
	ref, ok := e.(*fir.Reference)
	if !ok {
		return "", false
	}
	if id, ok := ref.Referent.(*fir.Identifier); ok {
		return id.Name, true
	}
	return "", false
}

// collectReads walks body for every ArrayApp and turns it into a read
// relation from the enclosing statement's iteration space.
func (t *Translator) collectReads(body fir.Expr, owner *fir.Identifier, varName map[*fir.ArrayVar]string, iterVars []string) ([]*polyhedral.Relation, error) {
	var reads []*polyhedral.Relation
	var walk func(fir.Expr) error
	walk = func(e fir.Expr) error {
		if e == nil {
			return nil
		}
		switch n := e.(type) {
		case *fir.ArrayApp:
			target, err := t.targetArrayName(n.Object, owner)
			if err != nil {
				return err
			}
			if target != "" {
				exprs := make([]*linalg.LinExpr, len(n.Args))
				for i, a := range n.Args {
					le, err := affineOf(a, varName)
					if err != nil {
						return err
					}
					exprs[i] = le
				}
				reads = append(reads, &polyhedral.Relation{ArrayName: target, InDims: iterVars, OutExprs: exprs})
			}
			return walk(n.Object)
		case *fir.Primitive:
			for _, o := range n.Operands {
				if err := walk(o); err != nil {
					return err
				}
			}
		case *fir.Operation:
			for _, o := range n.Operands {
				if err := walk(o); err != nil {
					return err
				}
			}
		case *fir.CaseExpr:
			for _, c := range n.Cases {
				if c.Cond != nil {
					if err := walk(c.Cond); err != nil {
						return err
					}
				}
				if err := walk(c.Result); err != nil {
					return err
				}
			}
		case *fir.FuncApp:
			for _, a := range n.Args {
				if err := walk(a); err != nil {
					return err
				}
			}
			return walk(n.Object)
		}
		return nil
	}
	if err := walk(body); err != nil {
		return nil, err
	}
	return reads, nil
}

func (t *Translator) targetArrayName(object fir.Expr, owner *fir.Identifier) (string, error) {
	switch o := object.(type) {
	case *fir.ArraySelfRef:
		return owner.Name, nil
	case *fir.Reference:
		if id, ok := o.Referent.(*fir.Identifier); ok {
			return id.Name, nil
		}
		return "", nil
	default:
		return "", nil
	}
}

// affineOf coerces a FIR expression to an affine linear expression
// over the given bound-variable names, failing with AffineExpected
// when it cannot.
func affineOf(e fir.Expr, varName map[*fir.ArrayVar]string) (*linalg.LinExpr, error) {
	switch n := e.(type) {
	case *fir.IntConst:
		return linalg.Const(n.Value), nil
	case *fir.AffineExpr:
		return n.Linexpr, nil
	case *fir.Reference:
		if av, ok := n.Referent.(*fir.ArrayVar); ok {
			if name, ok := varName[av]; ok {
				return linalg.Var(name), nil
			}
			return linalg.Var(av.Name), nil
		}
		return nil, diag.New(diag.AffineExpected, e.Pos(), "reference is not affine")
	case *fir.Primitive:
		switch n.Op {
		case "+":
			if len(n.Operands) != 2 {
				break
			}
			a, err := affineOf(n.Operands[0], varName)
			if err != nil {
				return nil, err
			}
			b, err := affineOf(n.Operands[1], varName)
			if err != nil {
				return nil, err
			}
			return a.Add(b), nil
		case "-":
			if len(n.Operands) != 2 {
				break
			}
			a, err := affineOf(n.Operands[0], varName)
			if err != nil {
				return nil, err
			}
			b, err := affineOf(n.Operands[1], varName)
			if err != nil {
				return nil, err
			}
			return a.Sub(b), nil
		case "neg":
			if len(n.Operands) != 1 {
				break
			}
			a, err := affineOf(n.Operands[0], varName)
			if err != nil {
				return nil, err
			}
			return a.Scale(-1), nil
		case "*":
			if len(n.Operands) != 2 {
				break
			}
			a, err := affineOf(n.Operands[0], varName)
			if err != nil {
				return nil, err
			}
			b, err := affineOf(n.Operands[1], varName)
			if err != nil {
				return nil, err
			}
			if a.IsConstant() {
				return b.Scale(a.ConstTerm()), nil
			}
			if b.IsConstant() {
				return a.Scale(b.ConstTerm()), nil
			}
		}
	}
	return nil, diag.New(diag.AffineExpected, e.Pos(), "expression is not affine")
}
