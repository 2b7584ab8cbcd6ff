// Package backend is the textual code generator: it walks an
// astemit.Program and prints a pseudo-LLVM-IR module (the compiler's
// "out.ll" artifact), reading array sizes and element kinds directly
// from the polyhedral model. The Printer keeps the astemit.Builder it
// is given but calls neither of its callbacks.
package backend

import (
	"fmt"
	"strings"

	"github.com/wudi/flowc/astemit"
	"github.com/wudi/flowc/polyhedral"
	"github.com/wudi/flowc/primitives"
)

// Printer accumulates one module's textual IR.
type Printer struct {
	b        *astemit.Builder
	prog     *polyhedral.Program
	out      strings.Builder
	indent   int
	tmpCount int
}

// NewPrinter returns a Printer bound to prog's array table.
func NewPrinter(b *astemit.Builder, prog *polyhedral.Program) *Printer {
	return &Printer{b: b, prog: prog}
}

func (p *Printer) line(format string, args ...interface{}) {
	p.out.WriteString(strings.Repeat("  ", p.indent))
	fmt.Fprintf(&p.out, format, args...)
	p.out.WriteByte('\n')
}

func (p *Printer) temp() string {
	p.tmpCount++
	return fmt.Sprintf("%%t%d", p.tmpCount)
}

// Print renders ast as a single `define void @kernel()` pseudo-IR
// function, one global ring-buffer allocation per array, followed by
// the finite block and then the infinite block.
func (p *Printer) Print(ast *astemit.Program) string {
	for _, a := range p.prog.Arrays {
		p.line("@%s = global [%s x %s] zeroinitializer, align 8", a.Name, sizeProduct(a.BufferSize), llType(a.Elem))
	}
	p.line("")
	p.line("define void @kernel() {")
	p.indent++
	p.line("entry:")
	for _, n := range ast.Finite {
		p.printNode(n)
	}
	for _, n := range ast.Infinite {
		p.printNode(n)
	}
	p.line("ret void")
	p.indent--
	p.line("}")
	return p.out.String()
}

func (p *Printer) printNode(n *astemit.Node) {
	switch n.Kind {
	case astemit.NodeLoop:
		hi := "inf"
		if n.Hi != nil {
			hi = n.Hi.String()
		}
		p.line("; loop %s in [%s, %s)", n.Var, n.Lo, hi)
		p.line("br label %%loop.%s.header", n.Var)
		p.line("loop.%s.header:", n.Var)
		p.indent++
		for _, c := range n.Children {
			p.printNode(c)
		}
		p.indent--
		p.line("br label %%loop.%s.header", n.Var)
	case astemit.NodeIf:
		p.line("; if %s == 0", n.Cond)
		p.indent++
		for _, c := range n.Children {
			p.printNode(c)
		}
		p.indent--
	case astemit.NodeStmt:
		p.printStatement(n)
	case astemit.NodeBlock:
		for _, c := range n.Children {
			p.printNode(c)
		}
	}
}

func (p *Printer) printStatement(n *astemit.Node) {
	s := n.Statement
	p.line("; statement %s(%s)", s.Name, strings.Join(n.IterVars, ", "))
	if s.Array != nil {
		idx := p.temp()
		p.line("%s = call i64 @flowc_index(%s)", idx, strings.Join(n.IterVars, ", "))
		val := p.temp()
		p.line("%s = call %s @flowc_eval_%s(%s)", val, llType(s.Array.Elem), s.Name, strings.Join(n.IterVars, ", "))
		p.line("store %s %s, %s* getelementptr(@%s, i64 %s)", llType(s.Array.Elem), val, llType(s.Array.Elem), s.Array.Name, idx)
		return
	}
	val := p.temp()
	p.line("%s = call i64 @flowc_eval_%s()", val, s.Name)
}

func sizeProduct(dims []int) string {
	total := 1
	for _, d := range dims {
		if d > 0 {
			total *= d
		}
	}
	return fmt.Sprintf("%d", total)
}

func llType(k primitives.Kind) string {
	switch k {
	case primitives.Integer:
		return "i64"
	case primitives.Real:
		return "double"
	case primitives.Complex:
		return "{double, double}"
	case primitives.Boolean:
		return "i1"
	default:
		return "i64"
	}
}
