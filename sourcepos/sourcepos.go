// Package sourcepos locates compiler diagnostics in source text.
//
// A Range is a module×(line,col)–(line,col) span; every FIR node,
// token, and diagnostic carries one.
package sourcepos

import "fmt"

// Pos is a single line/column location, one-based.
type Pos struct {
	Line   int
	Column int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Range spans from Start to End within one source Module.
type Range struct {
	Module string
	Start  Pos
	End    Pos
}

func (r Range) String() string {
	if r.Module == "" {
		return fmt.Sprintf("%s-%s", r.Start, r.End)
	}
	return fmt.Sprintf("%s:%s-%s", r.Module, r.Start, r.End)
}

// Single returns a zero-width range at p.
func Single(module string, p Pos) Range {
	return Range{Module: module, Start: p, End: p}
}

// Span merges a and b into the smallest range covering both.
func Span(a, b Range) Range {
	r := Range{Module: a.Module}
	r.Start = a.Start
	r.End = b.End
	if b.Start.Line < r.Start.Line || (b.Start.Line == r.Start.Line && b.Start.Column < r.Start.Column) {
		r.Start = b.Start
	}
	if a.End.Line > r.End.Line || (a.End.Line == r.End.Line && a.End.Column > r.End.Column) {
		r.End = a.End
	}
	return r
}
