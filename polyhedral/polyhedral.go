// Package polyhedral is the polyhedral model: statements
// with an integer iteration domain, an affine write relation into an
// array, and a set of affine read relations into other arrays.
package polyhedral

import (
	"fmt"

	"github.com/wudi/flowc/fir"
	"github.com/wudi/flowc/linalg"
	"github.com/wudi/flowc/primitives"
)

// Array is a buffer written by exactly one Statement.
type Array struct {
	Name        string
	Shape       []primitives.Dim
	Elem        primitives.Kind
	FlowDim     int // index of the infinite dimension, or -1
	Period      int
	PeriodOffset int
	BufferSize  []int
	InterPeriodDependency bool
}

// Rank is the array's dimensionality.
func (a *Array) Rank() int { return len(a.Shape) }

// Relation is an affine map from a statement's iteration space to an
// array's index space, expressed as one linear equation per output
// dimension: out[d] = linexpr_d(in...).
type Relation struct {
	ArrayName string
	InDims    []string
	OutExprs  []*linalg.LinExpr // len == target array rank
}

// OutDim is the relation's output arity.
func (r *Relation) OutDim() int { return len(r.OutExprs) }

// Apply evaluates the relation at iteration point `in`.
func (r *Relation) Apply(in []int64) ([]int64, bool) {
	env := map[string]int64{}
	for i, name := range r.InDims {
		env[name] = in[i]
	}
	out := make([]int64, len(r.OutExprs))
	for i, e := range r.OutExprs {
		v, ok := e.Eval(env)
		if !ok {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

// Statement is one definition lowered to the polyhedral model: a name,
// an iteration domain (vector of per-dimension sizes, possibly
// infinite), a resolved FIR expression, the array it writes (nil for
// a scalar-valued top-level definition), the infinite flow dimension
// index (-1 if finite), and its write/read relations.
type Statement struct {
	Name     string
	Domain   []primitives.Dim
	Expr     fir.Expr
	Array    *Array
	FlowDim  int
	Write    *Relation
	Reads    []*Relation
}

// IsInfinite reports whether the statement has an unbounded dimension.
func (s *Statement) IsInfinite() bool { return s.FlowDim >= 0 }

// IterVars returns the canonical per-dimension iterator names
// "<name>_i0".."<name>_i{n-1}" used as InDims on this statement's
// relations.
func (s *Statement) IterVars() []string {
	vars := make([]string, len(s.Domain))
	for i := range vars {
		vars[i] = fmt.Sprintf("%s_i%d", s.Name, i)
	}
	return vars
}

// Program is the output of the translator: the full
// statement and array sets of one compilation.
type Program struct {
	Statements []*Statement
	Arrays     []*Array
}

// CheckInvariants verifies the polyhedral model's structural
// invariants: at most one writer per array, every read relation is
// affine with output arity equal to its target array's rank, and a
// flow-dimension statement's write maps that dimension to the array's
// flow dimension with coefficient 1.
func (p *Program) CheckInvariants() error {
	writers := map[string]*Statement{}
	for _, s := range p.Statements {
		if s.Array == nil {
			continue
		}
		if prev, ok := writers[s.Array.Name]; ok {
			return fmt.Errorf("array %q has more than one writer: %q and %q", s.Array.Name, prev.Name, s.Name)
		}
		writers[s.Array.Name] = s

		if s.Write == nil {
			return fmt.Errorf("statement %q writes array %q but has no write relation", s.Name, s.Array.Name)
		}
		if s.Write.OutDim() != s.Array.Rank() {
			return fmt.Errorf("statement %q write relation has arity %d, array %q has rank %d", s.Name, s.Write.OutDim(), s.Array.Name, s.Array.Rank())
		}
		if s.FlowDim >= 0 {
			if s.FlowDim >= len(s.Domain) || !s.Domain[s.FlowDim].IsInfinite() {
				return fmt.Errorf("statement %q declares flow_dim %d but domain there is not infinite", s.Name, s.FlowDim)
			}
			coeff := s.Write.OutExprs[s.Array.FlowDim].Coeff(s.IterVars()[s.FlowDim])
			if coeff != 1 {
				return fmt.Errorf("statement %q write relation maps flow dim with coefficient %d, want 1", s.Name, coeff)
			}
		}
	}
	for _, s := range p.Statements {
		for _, r := range s.Reads {
			target := findArray(p.Arrays, r.ArrayName)
			if target == nil {
				return fmt.Errorf("statement %q reads undeclared array %q", s.Name, r.ArrayName)
			}
			if r.OutDim() != target.Rank() {
				return fmt.Errorf("statement %q read of %q has arity %d, array has rank %d", s.Name, r.ArrayName, r.OutDim(), target.Rank())
			}
		}
	}
	return nil
}

func findArray(arrays []*Array, name string) *Array {
	for _, a := range arrays {
		if a.Name == name {
			return a
		}
	}
	return nil
}
