package fir

import (
	"github.com/wudi/flowc/primitives"
	"github.com/wudi/flowc/sourcepos"
)

// Variable is a bound name: a lambda parameter or an Array's index
// variable. Variable.RefName satisfies Referent so a plain Reference
// can point at one.
type Variable struct {
	Name     string
	Pos      sourcepos.Range
	RefCount int
}

func (v *Variable) RefName() string { return v.Name }

// ArrayVar is an Array's bound index variable, with an optional range
// expression (nil means unbounded, i.e. the axis is ∞).
type ArrayVar struct {
	Variable
	Range Expr
}

func NewArrayVar(name string, pos sourcepos.Range, rng Expr) *ArrayVar {
	return &ArrayVar{Variable: Variable{Name: name, Pos: pos}, Range: rng}
}

// FuncVar is a Function's scalar parameter, with an optional qualified
// name used when it denotes an imported symbol.
type FuncVar struct {
	Variable
	Qualified string
}

func NewFuncVar(name string, pos sourcepos.Range) *FuncVar {
	return &FuncVar{Variable: Variable{Name: name, Pos: pos}}
}

// Identifier is a node of the definition graph: a named top-level
// definition, its defining expression, and its resolved type.
// Identifiers are stored in a Scope and referenced by Reference nodes
// that carry a *Identifier but do not own it.
type Identifier struct {
	Handle      int
	Name        string
	Def         Expr
	Type        primitives.Type
	IsRecursive bool
	Pos         sourcepos.Range
}

// NewIdentifier returns an identifier with its type initialized to
// the undefined sentinel.
func NewIdentifier(handle int, name string, def Expr, recursive bool, pos sourcepos.Range) *Identifier {
	return &Identifier{Handle: handle, Name: name, Def: def, Type: primitives.UndefinedType, IsRecursive: recursive, Pos: pos}
}

func (id *Identifier) RefName() string { return id.Name }

// Scope is an ordered list of identifiers in declaration order (the
// frontend declares top-level definitions in source order); Declare
// appends and does not reorder identifiers by dependency.
type Scope struct {
	Parent      *Scope
	Identifiers []*Identifier
	byName      map[string]*Identifier
}

func NewScope(parent *Scope) *Scope {
	return &Scope{Parent: parent, byName: map[string]*Identifier{}}
}

// Declare adds id to the scope, indexed by name.
func (s *Scope) Declare(id *Identifier) {
	s.Identifiers = append(s.Identifiers, id)
	if s.byName == nil {
		s.byName = map[string]*Identifier{}
	}
	s.byName[id.Name] = id
}

// Lookup finds name in this scope or an enclosing one.
func (s *Scope) Lookup(name string) (*Identifier, bool) {
	for scope := s; scope != nil; scope = scope.Parent {
		if id, ok := scope.byName[name]; ok {
			return id, true
		}
	}
	return nil, false
}
