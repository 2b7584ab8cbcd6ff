// Package typecheck assigns a primitive element type and array shape
// to every identifier and expression reachable from a scope, resolving
// mutual and self recursion by a two-pass fixed point.
package typecheck

import (
	"github.com/wudi/flowc/diag"
	"github.com/wudi/flowc/fir"
	"github.com/wudi/flowc/primitives"
)

// Checker holds the state of one type-checking run: which identifiers
// are mid-inference (to resolve ArraySelfRef and detect the recursive
// second pass) and the accumulated diagnostics.
type Checker struct {
	stack []*fir.Identifier
	errs  diag.List
}

// New returns a fresh Checker.
func New() *Checker { return &Checker{} }

// Errors returns every diagnostic raised during Process.
func (c *Checker) Errors() *diag.List { return &c.errs }

// Process populates identifier.Type for every identifier in scope,
// recursing through References and resolving cycles by running an
// identifier's defining expression twice when it is self-recursive:
// the self-ref's type equals the first pass's result, so a second
// pass reaches a fixed point by construction.
func (c *Checker) Process(scope *fir.Scope) error {
	for _, id := range scope.Identifiers {
		if err := c.visit(id); err != nil {
			return err
		}
	}
	return nil
}

func (c *Checker) visit(id *fir.Identifier) error {
	if !primitives.IsUndefined(id.Type) {
		return nil
	}
	for _, onStack := range c.stack {
		if onStack == id {
			// Cycle reached through a plain Reference (mutual
			// recursion): leave undefined for this pass: the
			// identifier that owns the cycle's recursive array will
			// rerun it on its second pass.
			return nil
		}
	}
	c.stack = append(c.stack, id)
	defer func() { c.stack = c.stack[:len(c.stack)-1] }()

	t, err := c.infer(id.Def)
	if err != nil {
		return err
	}
	id.Type = t

	if id.IsRecursive {
		t2, err := c.infer(id.Def)
		if err != nil {
			return err
		}
		if primitives.IsUndefined(t2) {
			d := diag.New(diag.AmbiguousResult, id.Pos, "identifier %q has no type after second pass", id.Name)
			c.errs.Add(d)
			return d
		}
		id.Type = t2
	}
	return nil
}

// infer computes the type of e, recursing into referenced identifiers
// as needed. It never returns a nil primitives.Type; on failure it
// returns primitives.UndefinedType together with a non-nil error, and
// the error has already been appended to c.errs.
func (c *Checker) infer(e fir.Expr) (primitives.Type, error) {
	switch n := e.(type) {
	case *fir.IntConst:
		return primitives.IntConst(), nil
	case *fir.RealConst:
		return primitives.RealConst(), nil
	case *fir.ComplexConst:
		return primitives.ComplexConst(), nil
	case *fir.BoolConst:
		return primitives.BoolConst(), nil
	case *fir.Infinity:
		return primitives.InfinityType(), nil

	case *fir.Primitive:
		argTypes := make([]primitives.Type, len(n.Operands))
		for i, op := range n.Operands {
			t, err := c.infer(op)
			if err != nil {
				return primitives.UndefinedType, err
			}
			argTypes[i] = t
		}
		for _, t := range argTypes {
			if primitives.IsUndefined(t) {
				// an operand still depends on an unresolved
				// self-reference (first fixed-point pass); like
				// joinElemKind, carry no constraint until the second pass
				return primitives.UndefinedType, nil
			}
		}
		t, err := ResultType(n.Op, argTypes)
		if err != nil {
			d := diag.New(errCode(err), n.Pos(), "%s", err.Error())
			c.errs.Add(d)
			return primitives.UndefinedType, d
		}
		return t, nil

	case *fir.Operation:
		// array_concat / array_enumerate: element kind is the common
		// type of every operand's element kind; shape is resolved by
		// the translator, not here.
		var kind primitives.Kind = primitives.Undefined
		for _, op := range n.Operands {
			t, err := c.infer(op)
			if err != nil {
				return primitives.UndefinedType, err
			}
			joined, err := joinElemKind(kind, t.ElemKind())
			if err != nil {
				d := diag.New(diag.IncompatibleCases, n.Pos(), "array operands have incompatible element types: %s", err)
				c.errs.Add(d)
				return primitives.UndefinedType, d
			}
			kind = joined
		}
		return primitives.Array{Shape: nil, Elem: kind}, nil

	case *fir.Reference:
		switch ref := n.Referent.(type) {
		case *fir.Identifier:
			if err := c.visit(ref); err != nil {
				return primitives.UndefinedType, err
			}
			return ref.Type, nil
		case *fir.Variable:
			return primitives.UndefinedType, nil
		case *fir.ArrayVar:
			return primitives.IntConst(), nil
		case *fir.FuncVar:
			return primitives.UndefinedType, nil
		default:
			return primitives.UndefinedType, nil
		}

	case *fir.ArraySelfRef:
		if n.Array != nil {
			return n.Array.Type, nil
		}
		return primitives.UndefinedType, nil

	case *fir.Array:
		bodyType, err := c.infer(n.Body)
		if err != nil {
			return primitives.UndefinedType, err
		}
		shape := make([]primitives.Dim, len(n.Vars))
		for i, v := range n.Vars {
			if v.Range == nil {
				shape[i] = primitives.Inf
			} else {
				shape[i] = primitives.Dim(0) // resolved by the translator from the range expression
			}
		}
		return primitives.Array{Shape: shape, Elem: bodyType.ElemKind()}, nil

	case *fir.ArrayPatterns:
		var kind primitives.Kind = primitives.Undefined
		for _, p := range n.Patterns {
			t, err := c.infer(p.Body)
			if err != nil {
				return primitives.UndefinedType, err
			}
			joined, err := joinElemKind(kind, t.ElemKind())
			if err != nil {
				d := diag.New(diag.IncompatibleCases, n.Pos(), "array patterns have incompatible types: %s", err)
				c.errs.Add(d)
				return primitives.UndefinedType, d
			}
			kind = joined
		}
		return primitives.Array{Shape: []primitives.Dim{primitives.Inf}, Elem: kind}, nil

	case *fir.ArrayApp:
		t, err := c.infer(n.Object)
		if err != nil {
			return primitives.UndefinedType, err
		}
		if arr, ok := t.(primitives.Array); ok {
			return primitives.Scalar{Kind: arr.Elem, Data: true}, nil
		}
		return t, nil

	case *fir.ArraySize:
		return primitives.IntConst(), nil

	case *fir.FuncApp:
		t, err := c.infer(n.Object)
		if err != nil {
			return primitives.UndefinedType, err
		}
		if _, ok := t.(primitives.Function); ok {
			return primitives.UndefinedType, nil
		}
		return t, nil

	case *fir.Function:
		bodyType, err := c.infer(n.Body)
		if err != nil {
			return primitives.UndefinedType, err
		}
		_ = bodyType
		return primitives.Function{Arity: len(n.Params)}, nil

	case *fir.CaseExpr:
		var result primitives.Kind = primitives.Undefined
		var resultType primitives.Type
		for _, cl := range n.Cases {
			t, err := c.infer(cl.Result)
			if err != nil {
				return primitives.UndefinedType, err
			}
			if resultType == nil || primitives.IsUndefined(resultType) {
				resultType = t
			}
			joined, err := joinElemKind(result, t.ElemKind())
			if err != nil {
				d := diag.New(diag.IncompatibleCases, n.Pos(), "incompatible case result types: %s", err)
				c.errs.Add(d)
				return primitives.UndefinedType, d
			}
			result = joined
		}
		if arr, ok := resultType.(primitives.Array); ok {
			arr.Elem = result
			return arr, nil
		}
		return primitives.Scalar{Kind: result, Data: true}, nil

	case *fir.AffineExpr:
		return primitives.IntConst(), nil

	case *fir.AffineSet:
		return primitives.BoolConst(), nil

	default:
		return primitives.UndefinedType, nil
	}
}

// joinElemKind folds b into the running kind a, treating Undefined (an
// unresolved self-reference on the first fixed-point pass) as a
// wildcard that carries no constraint rather than a type error: the
// second pass, run only for self-recursive identifiers, sees the
// self-reference's real kind and re-validates the join for real.
func joinElemKind(a, b primitives.Kind) (primitives.Kind, error) {
	if a == primitives.Undefined {
		return b, nil
	}
	if b == primitives.Undefined {
		return a, nil
	}
	return primitives.CommonType(a, b)
}

func errCode(err error) diag.Code {
	if ce, ok := err.(codeError); ok {
		return ce.code
	}
	return diag.InvalidArgumentTypes
}
