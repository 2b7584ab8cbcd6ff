// Package linalg is the linear algebra kernel: affine
// expressions over named variables and the linear sets built from
// them, used throughout the polyhedral model to describe iteration
// domains, write relations, and read relations.
package linalg

import (
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/exp/slices"
)

// constTerm is the distinguished null-variable key carrying a
// LinExpr's constant term.
const constTerm = ""

// LinExpr is sum(c_i * v_i) + c: a mapping from variable name to
// integer coefficient, plus a constant term under the empty key.
type LinExpr struct {
	coeffs map[string]int64
}

// NewLinExpr returns the zero expression.
func NewLinExpr() *LinExpr {
	return &LinExpr{coeffs: map[string]int64{}}
}

// Const returns a constant-only expression.
func Const(c int64) *LinExpr {
	e := NewLinExpr()
	e.coeffs[constTerm] = c
	return e
}

// Var returns the expression 1*name.
func Var(name string) *LinExpr {
	e := NewLinExpr()
	e.coeffs[name] = 1
	return e
}

// Clone returns a deep copy.
func (e *LinExpr) Clone() *LinExpr {
	n := NewLinExpr()
	for k, v := range e.coeffs {
		n.coeffs[k] = v
	}
	return n
}

// AddTerm adds coeff*name to e in place and returns e. name == "" adds
// to the constant term.
func (e *LinExpr) AddTerm(name string, coeff int64) *LinExpr {
	e.coeffs[name] += coeff
	if e.coeffs[name] == 0 {
		delete(e.coeffs, name)
	}
	return e
}

// Coeff returns the coefficient of name (0 if absent).
func (e *LinExpr) Coeff(name string) int64 { return e.coeffs[name] }

// ConstTerm returns the constant term.
func (e *LinExpr) ConstTerm() int64 { return e.coeffs[constTerm] }

// Vars returns the non-constant variable names in e, sorted for
// deterministic iteration.
func (e *LinExpr) Vars() []string {
	vars := make([]string, 0, len(e.coeffs))
	for k := range e.coeffs {
		if k != constTerm {
			vars = append(vars, k)
		}
	}
	slices.Sort(vars)
	return vars
}

// Add returns e + other.
func (e *LinExpr) Add(other *LinExpr) *LinExpr {
	n := e.Clone()
	for k, v := range other.coeffs {
		n.AddTerm(k, v)
	}
	return n
}

// Sub returns e - other.
func (e *LinExpr) Sub(other *LinExpr) *LinExpr {
	n := e.Clone()
	for k, v := range other.coeffs {
		n.AddTerm(k, -v)
	}
	return n
}

// Scale returns e * c.
func (e *LinExpr) Scale(c int64) *LinExpr {
	n := NewLinExpr()
	for k, v := range e.coeffs {
		n.coeffs[k] = v * c
	}
	return n
}

// Shift returns e shifted by a constant delta.
func (e *LinExpr) Shift(delta int64) *LinExpr {
	return e.Add(Const(delta))
}

// Eval evaluates e under the given variable assignment. Every
// non-constant variable in e must be present in env.
func (e *LinExpr) Eval(env map[string]int64) (int64, bool) {
	total := e.ConstTerm()
	for _, v := range e.Vars() {
		val, ok := env[v]
		if !ok {
			return 0, false
		}
		total += e.coeffs[v] * val
	}
	return total, true
}

// IsConstant reports whether e has no variable terms.
func (e *LinExpr) IsConstant() bool {
	return len(e.Vars()) == 0
}

func (e *LinExpr) String() string {
	var parts []string
	for _, v := range e.Vars() {
		c := e.coeffs[v]
		switch c {
		case 1:
			parts = append(parts, v)
		case -1:
			parts = append(parts, "-"+v)
		default:
			parts = append(parts, fmt.Sprintf("%d*%s", c, v))
		}
	}
	if c := e.ConstTerm(); c != 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%d", c))
	}
	return strings.Join(parts, " + ")
}

// CmpOp is the relational operator of one LinearSet constraint.
type CmpOp int

const (
	Eq CmpOp = iota // expr == 0
	Le              // expr <= 0
	Lt              // expr < 0
)

// Constraint is one row of a linear set: cmp(expr, 0).
type Constraint struct {
	Expr *LinExpr
	Op   CmpOp
}

func (c Constraint) String() string {
	sym := map[CmpOp]string{Eq: "==", Le: "<=", Lt: "<"}[c.Op]
	return fmt.Sprintf("%s %s 0", c.Expr, sym)
}

// Satisfied reports whether the constraint holds under env.
func (c Constraint) Satisfied(env map[string]int64) (bool, bool) {
	v, ok := c.Expr.Eval(env)
	if !ok {
		return false, false
	}
	switch c.Op {
	case Eq:
		return v == 0, true
	case Le:
		return v <= 0, true
	case Lt:
		return v < 0, true
	}
	return false, true
}

// LinearSet is a conjunction of constraints over input and output
// variable tuples; it is the canonical representation of an iteration
// domain or an index relation.
type LinearSet struct {
	InDims      []string
	OutDims     []string
	Constraints []Constraint
}

// NewLinearSet builds an (possibly empty) set over the given input and
// output dimension names.
func NewLinearSet(inDims, outDims []string, constraints ...Constraint) *LinearSet {
	return &LinearSet{InDims: append([]string{}, inDims...), OutDims: append([]string{}, outDims...), Constraints: constraints}
}

// And returns the conjunction of s and other, which must share the
// same input/output dimension names.
func (s *LinearSet) And(other *LinearSet) *LinearSet {
	n := &LinearSet{InDims: s.InDims, OutDims: s.OutDims}
	n.Constraints = append(n.Constraints, s.Constraints...)
	n.Constraints = append(n.Constraints, other.Constraints...)
	return n
}

// Contains reports whether the point (in, out) satisfies every
// constraint.
func (s *LinearSet) Contains(in, out []int64) bool {
	env := map[string]int64{}
	for i, name := range s.InDims {
		env[name] = in[i]
	}
	for i, name := range s.OutDims {
		env[name] = out[i]
	}
	for _, c := range s.Constraints {
		ok, known := c.Satisfied(env)
		if !known || !ok {
			return false
		}
	}
	return true
}

// Matrix converts s losslessly to a constraint matrix: rows are
// constraints, columns are in-dims ∥ out-dims ∥ constant.
// Strict (Lt) rows are normalized to Le by adding 1 to the constant
// column (expr < 0 ⇔ expr + 1 <= 0), since every coefficient here is
// integral.
func (s *LinearSet) Matrix() [][]int64 {
	cols := len(s.InDims) + len(s.OutDims) + 1
	rows := make([][]int64, len(s.Constraints))
	for i, c := range s.Constraints {
		row := make([]int64, cols)
		for j, name := range s.InDims {
			row[j] = c.Expr.Coeff(name)
		}
		for j, name := range s.OutDims {
			row[len(s.InDims)+j] = c.Expr.Coeff(name)
		}
		row[cols-1] = c.Expr.ConstTerm()
		if c.Op == Lt {
			row[cols-1]++
		}
		rows[i] = row
	}
	return rows
}

// GCD returns the non-negative greatest common divisor of a and b.
func GCD(a, b int64) int64 {
	x, y := new(big.Int).SetInt64(a), new(big.Int).SetInt64(b)
	return new(big.Int).GCD(nil, nil, x.Abs(x), y.Abs(y)).Int64()
}

// LCM returns the non-negative least common multiple of a and b, or 0
// if either is 0.
func LCM(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	g := GCD(a, b)
	if g == 0 {
		return 0
	}
	x, y := a/g, b
	if x < 0 {
		x = -x
	}
	if y < 0 {
		y = -y
	}
	return x * y
}

// LCMAll folds LCM across a non-empty slice.
func LCMAll(vals []int64) int64 {
	if len(vals) == 0 {
		return 0
	}
	l := vals[0]
	if l < 0 {
		l = -l
	}
	for _, v := range vals[1:] {
		l = LCM(l, v)
	}
	return l
}
