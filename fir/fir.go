// Package fir is the functional intermediate representation: scalars,
// lambda-indexed array generators, array application and
// concatenation, case expressions, and self- and mutual recursion
// between named definitions.
//
// Expressions are a closed sum type dispatched by Kind; every variant
// embeds base for its source range and resolved type, matching the
// "tagged variants" the type checker and translator switch on
// exhaustively.
package fir

import (
	"github.com/wudi/flowc/linalg"
	"github.com/wudi/flowc/primitives"
	"github.com/wudi/flowc/sourcepos"
)

// ExprKind tags the FIR expression variants
type ExprKind int

const (
	KindIntConst ExprKind = iota
	KindRealConst
	KindComplexConst
	KindBoolConst
	KindInfinity
	KindPrimitive
	KindOperation
	KindReference
	KindArraySelfRef
	KindArray
	KindArrayPatterns
	KindArrayApp
	KindArraySize
	KindFuncApp
	KindFunction
	KindCaseExpr
	KindAffineExpr
	KindAffineSet
)

// OperationKind distinguishes the two variadic array operators.
type OperationKind int

const (
	ArrayConcat OperationKind = iota
	ArrayEnumerate
)

// Expr is the common interface of every FIR node.
type Expr interface {
	Kind() ExprKind
	Pos() sourcepos.Range
	Type() primitives.Type
	SetType(primitives.Type)
}

type base struct {
	pos sourcepos.Range
	typ primitives.Type
}

func newBase(pos sourcepos.Range) base {
	return base{pos: pos, typ: primitives.UndefinedType}
}

func (b *base) Pos() sourcepos.Range        { return b.pos }
func (b *base) Type() primitives.Type       { return b.typ }
func (b *base) SetType(t primitives.Type)   { b.typ = t }

// IntConst is an integer literal.
type IntConst struct {
	base
	Value int64
}

func NewIntConst(pos sourcepos.Range, v int64) *IntConst {
	return &IntConst{base: newBase(pos), Value: v}
}
func (*IntConst) Kind() ExprKind { return KindIntConst }

// RealConst is a floating-point literal.
type RealConst struct {
	base
	Value float64
}

func NewRealConst(pos sourcepos.Range, v float64) *RealConst {
	return &RealConst{base: newBase(pos), Value: v}
}
func (*RealConst) Kind() ExprKind { return KindRealConst }

// ComplexConst is a complex literal.
type ComplexConst struct {
	base
	Real, Imag float64
}

func NewComplexConst(pos sourcepos.Range, re, im float64) *ComplexConst {
	return &ComplexConst{base: newBase(pos), Real: re, Imag: im}
}
func (*ComplexConst) Kind() ExprKind { return KindComplexConst }

// BoolConst is a boolean literal.
type BoolConst struct {
	base
	Value bool
}

func NewBoolConst(pos sourcepos.Range, v bool) *BoolConst {
	return &BoolConst{base: newBase(pos), Value: v}
}
func (*BoolConst) Kind() ExprKind { return KindBoolConst }

// Infinity is the literal infinite sentinel value.
type Infinity struct{ base }

func NewInfinity(pos sourcepos.Range) *Infinity {
	return &Infinity{base: newBase(pos)}
}
func (*Infinity) Kind() ExprKind { return KindInfinity }

// Primitive applies a named scalar operator to its operands.
type Primitive struct {
	base
	Op       string
	Operands []Expr
}

func NewPrimitive(pos sourcepos.Range, op string, operands ...Expr) *Primitive {
	return &Primitive{base: newBase(pos), Op: op, Operands: operands}
}
func (*Primitive) Kind() ExprKind { return KindPrimitive }

// Operation is array_concat or array_enumerate over its operands.
type Operation struct {
	base
	Op       OperationKind
	Operands []Expr
}

func NewOperation(pos sourcepos.Range, op OperationKind, operands ...Expr) *Operation {
	return &Operation{base: newBase(pos), Op: op, Operands: operands}
}
func (*Operation) Kind() ExprKind { return KindOperation }

// Referent is whatever a Reference names: a bound Variable or a
// top-level Identifier. A Reference never owns its referent.
type Referent interface {
	RefName() string
}

// Reference is a use of a bound variable or a named identifier.
type Reference struct {
	base
	Referent Referent
}

func NewReference(pos sourcepos.Range, ref Referent) *Reference {
	return &Reference{base: newBase(pos), Referent: ref}
}
func (*Reference) Kind() ExprKind { return KindReference }

// ArraySelfRef back-references the enclosing recursive array's
// identifier; it does not own it.
type ArraySelfRef struct {
	base
	Array *Identifier
}

func NewArraySelfRef(pos sourcepos.Range, array *Identifier) *ArraySelfRef {
	return &ArraySelfRef{base: newBase(pos), Array: array}
}
func (*ArraySelfRef) Kind() ExprKind { return KindArraySelfRef }

// Array is a lambda-indexed array generator: bound variables, a body
// expression, a local scope of helper definitions, and whether the
// body contains a self-reference.
type Array struct {
	base
	Vars        []*ArrayVar
	Body        Expr
	LocalScope  *Scope
	IsRecursive bool
}

func NewArray(pos sourcepos.Range, vars []*ArrayVar, body Expr, local *Scope, recursive bool) *Array {
	return &Array{base: newBase(pos), Vars: vars, Body: body, LocalScope: local, IsRecursive: recursive}
}
func (*Array) Kind() ExprKind { return KindArray }

// ArrayPattern is one clause of an ArrayPatterns literal: either an
// explicit single-index definition (ExplicitIndex != nil) or a
// general clause bound by Var over the remaining domain.
type ArrayPattern struct {
	ExplicitIndex *int64
	Var           *ArrayVar
	Body          Expr
}

// ArrayPatterns is a piecewise array literal, e.g. a recursive
// Fibonacci-style definition.
type ArrayPatterns struct {
	base
	Patterns []ArrayPattern
}

func NewArrayPatterns(pos sourcepos.Range, patterns []ArrayPattern) *ArrayPatterns {
	return &ArrayPatterns{base: newBase(pos), Patterns: patterns}
}
func (*ArrayPatterns) Kind() ExprKind { return KindArrayPatterns }

// ArrayApp applies an array-valued expression to index arguments.
type ArrayApp struct {
	base
	Object Expr
	Args   []Expr
}

func NewArrayApp(pos sourcepos.Range, object Expr, args ...Expr) *ArrayApp {
	return &ArrayApp{base: newBase(pos), Object: object, Args: args}
}
func (*ArrayApp) Kind() ExprKind { return KindArrayApp }

// ArraySize queries the shape of an array, either the whole shape
// (Dim == nil) or one dimension.
type ArraySize struct {
	base
	Object Expr
	Dim    *int
}

func NewArraySize(pos sourcepos.Range, object Expr, dim *int) *ArraySize {
	return &ArraySize{base: newBase(pos), Object: object, Dim: dim}
}
func (*ArraySize) Kind() ExprKind { return KindArraySize }

// FuncApp applies a function-valued expression to arguments.
type FuncApp struct {
	base
	Object Expr
	Args   []Expr
}

func NewFuncApp(pos sourcepos.Range, object Expr, args ...Expr) *FuncApp {
	return &FuncApp{base: newBase(pos), Object: object, Args: args}
}
func (*FuncApp) Kind() ExprKind { return KindFuncApp }

// Function is a lambda over scalar parameters.
type Function struct {
	base
	Params     []*FuncVar
	Body       Expr
	LocalScope *Scope
}

func NewFunction(pos sourcepos.Range, params []*FuncVar, body Expr, local *Scope) *Function {
	return &Function{base: newBase(pos), Params: params, Body: body, LocalScope: local}
}
func (*Function) Kind() ExprKind { return KindFunction }

// CaseClause is one (condition, result) arm of a CaseExpr.
type CaseClause struct {
	Cond   Expr // nil for the default/else arm
	Result Expr
}

// CaseExpr folds common_type across every clause's result type.
type CaseExpr struct {
	base
	Cases []CaseClause
}

func NewCaseExpr(pos sourcepos.Range, cases []CaseClause) *CaseExpr {
	return &CaseExpr{base: newBase(pos), Cases: cases}
}
func (*CaseExpr) Kind() ExprKind { return KindCaseExpr }

// AffineExpr wraps a linalg.LinExpr that was already recognized as
// affine by the translator, e.g. an ArrayApp argument.
type AffineExpr struct {
	base
	Linexpr *linalg.LinExpr
}

func NewAffineExpr(pos sourcepos.Range, e *linalg.LinExpr) *AffineExpr {
	return &AffineExpr{base: newBase(pos), Linexpr: e}
}
func (*AffineExpr) Kind() ExprKind { return KindAffineExpr }

// AffineSet wraps a linalg.LinearSet, used for a CaseExpr condition or
// an ArrayVar range expressed purely in terms of affine comparisons.
type AffineSet struct {
	base
	Set *linalg.LinearSet
}

func NewAffineSet(pos sourcepos.Range, s *linalg.LinearSet) *AffineSet {
	return &AffineSet{base: newBase(pos), Set: s}
}
func (*AffineSet) Kind() ExprKind { return KindAffineSet }
