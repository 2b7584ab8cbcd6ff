package typecheck

import (
	"fmt"

	"github.com/wudi/flowc/diag"
	"github.com/wudi/flowc/primitives"
)

// codeError pins a diag.Code to a plain error so infer can report the
// precise diagnostic kind (InvalidArgumentTypes vs AmbiguousCall)
// without typecheck.infer needing to know operator internals.
type codeError struct {
	code diag.Code
	msg  string
}

func (e codeError) Error() string { return e.msg }

// class buckets the primitive operators into the four families
// result_type dispatches over.
type class int

const (
	arithmetic class = iota // + - * /
	comparison               // < <= > >= == !=
	logical                  // and or not xor
	unary                    // neg
)

var opClass = map[string]class{
	"+": arithmetic, "-": arithmetic, "*": arithmetic, "/": arithmetic,
	"neg": unary,
	"<": comparison, "<=": comparison, ">": comparison, ">=": comparison,
	"==": comparison, "!=": comparison,
	"and": logical, "or": logical, "not": logical, "xor": logical,
}

// ResultType implements result_type(op, arg_types):
// arithmetic ops join numeric operands via common_type, comparisons
// join numeric operands and produce boolean, logical ops require
// boolean operands and produce boolean. Unknown operators fail with
// InvalidArgumentTypes; operators whose operand count doesn't match
// their family fail with AmbiguousCall.
func ResultType(op string, args []primitives.Type) (primitives.Type, error) {
	cl, known := opClass[op]
	if !known {
		return nil, codeError{diag.InvalidArgumentTypes, fmt.Sprintf("unknown primitive operator %q", op)}
	}

	switch cl {
	case unary:
		if len(args) != 1 {
			return nil, codeError{diag.AmbiguousCall, fmt.Sprintf("operator %q expects 1 argument, got %d", op, len(args))}
		}
		k := args[0].ElemKind()
		if !isNumeric(k) {
			return nil, codeError{diag.InvalidArgumentTypes, fmt.Sprintf("operator %q requires a numeric operand, got %s", op, k)}
		}
		scalar, ok := args[0].(primitives.Scalar)
		if !ok {
			return nil, codeError{diag.InvalidArgumentTypes, fmt.Sprintf("operator %q requires a scalar operand, got %s", op, args[0])}
		}
		return primitives.Scalar{Kind: k, Data: true, Affine: scalar.Affine}, nil

	case arithmetic:
		if len(args) != 2 {
			return nil, codeError{diag.AmbiguousCall, fmt.Sprintf("operator %q expects 2 arguments, got %d", op, len(args))}
		}
		a, b := args[0].ElemKind(), args[1].ElemKind()
		if !isNumeric(a) || !isNumeric(b) {
			return nil, codeError{diag.InvalidArgumentTypes, fmt.Sprintf("operator %q requires numeric operands, got %s and %s", op, a, b)}
		}
		k, err := primitives.CommonType(a, b)
		if err != nil {
			return nil, codeError{diag.InvalidArgumentTypes, err.Error()}
		}
		affine := isAffineOperand(args[0]) && isAffineOperand(args[1]) && op != "*" && op != "/" || (op == "*" && (isConstOperand(args[0]) || isConstOperand(args[1])))
		return primitives.Scalar{Kind: k, Data: true, Affine: affine}, nil

	case comparison:
		if len(args) != 2 {
			return nil, codeError{diag.AmbiguousCall, fmt.Sprintf("operator %q expects 2 arguments, got %d", op, len(args))}
		}
		a, b := args[0].ElemKind(), args[1].ElemKind()
		if !isNumeric(a) || !isNumeric(b) {
			return nil, codeError{diag.InvalidArgumentTypes, fmt.Sprintf("operator %q requires numeric operands, got %s and %s", op, a, b)}
		}
		if _, err := primitives.CommonType(a, b); err != nil {
			return nil, codeError{diag.InvalidArgumentTypes, err.Error()}
		}
		return primitives.BoolConst(), nil

	case logical:
		for _, a := range args {
			if a.ElemKind() != primitives.Boolean {
				return nil, codeError{diag.InvalidArgumentTypes, fmt.Sprintf("operator %q requires boolean operands, got %s", op, a.ElemKind())}
			}
		}
		if op == "not" && len(args) != 1 {
			return nil, codeError{diag.AmbiguousCall, "operator \"not\" expects 1 argument"}
		}
		if op != "not" && len(args) != 2 {
			return nil, codeError{diag.AmbiguousCall, fmt.Sprintf("operator %q expects 2 arguments, got %d", op, len(args))}
		}
		return primitives.BoolConst(), nil
	}
	return nil, codeError{diag.InvalidArgumentTypes, fmt.Sprintf("unhandled operator %q", op)}
}

func isNumeric(k primitives.Kind) bool {
	return k == primitives.Integer || k == primitives.Real || k == primitives.Complex
}

func isAffineOperand(t primitives.Type) bool {
	s, ok := t.(primitives.Scalar)
	return ok && s.Affine
}

func isConstOperand(t primitives.Type) bool {
	s, ok := t.(primitives.Scalar)
	return ok && s.Constant
}
