// Package diag implements the compiler's error taxonomy: a closed set
// of typed, source-located diagnostics and the process exit codes
// derived from them.
//
// Diagnostic.Render quotes the offending source line with a caret
// underline beneath its column, a line-lookup-then-caret algorithm
// generalized here across the whole ten-code taxonomy.
package diag

import (
	"fmt"
	"strings"

	"github.com/wudi/flowc/sourcepos"
)

// Code is one of the closed set of diagnostic kinds
type Code int

const (
	IoError Code = iota
	ParseError
	UndefinedSymbol
	AmbiguousResult
	IncompatibleCases
	InvalidArgumentTypes
	AmbiguousCall
	AffineExpected
	SchedulerFailure
	BackendError
)

func (c Code) String() string {
	names := [...]string{
		"IoError", "ParseError", "UndefinedSymbol", "AmbiguousResult",
		"IncompatibleCases", "InvalidArgumentTypes", "AmbiguousCall",
		"AffineExpected", "SchedulerFailure", "BackendError",
	}
	if int(c) < len(names) {
		return names[c]
	}
	return "UnknownError"
}

// CommandLineExitCode is returned for CLI usage errors that occur
// before any diagnostic-producing phase runs, e.g. a missing source
// file argument.
const CommandLineExitCode = 1

// ExitCode maps a diagnostic's phase to the process exit code a CLI
// invocation should return for it.
func (c Code) ExitCode() int {
	switch c {
	case IoError:
		return 2
	case ParseError:
		return 3
	case UndefinedSymbol:
		return 4
	case AmbiguousResult, IncompatibleCases, InvalidArgumentTypes, AmbiguousCall, AffineExpected:
		return 5
	case SchedulerFailure:
		return 5
	case BackendError:
		return 6
	default:
		return CommandLineExitCode
	}
}

// Diagnostic is one compiler error: a code, a message, an optional
// source range, and optionally the source text it was found in (for
// caret rendering).
type Diagnostic struct {
	Code    Code
	Message string
	Range   *sourcepos.Range
	Source  string
}

// New builds a located diagnostic.
func New(code Code, rng sourcepos.Range, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{Code: code, Message: fmt.Sprintf(format, args...), Range: &rng}
}

// NewUnlocated builds a diagnostic with no source range (e.g. IoError
// on a file that couldn't be opened at all).
func NewUnlocated(code Code, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithSource attaches the full source text so Render can quote it.
func (d *Diagnostic) WithSource(src string) *Diagnostic {
	d.Source = src
	return d
}

func (d *Diagnostic) Error() string { return d.String() }

func (d *Diagnostic) String() string {
	if d.Range == nil {
		return fmt.Sprintf("%s: %s", d.Code, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", d.Range, d.Code, d.Message)
}

// Render quotes the offending line with a caret underline beneath the
// range's start column.
func (d *Diagnostic) Render() string {
	if d.Range == nil || d.Source == "" {
		return d.String()
	}
	lines := strings.Split(d.Source, "\n")
	line := d.Range.Start.Line
	if line <= 0 || line > len(lines) {
		return d.String()
	}
	var b strings.Builder
	b.WriteString(d.String())
	b.WriteString("\n")
	fmt.Fprintf(&b, "  %d | %s\n", line, lines[line-1])
	b.WriteString("    | ")
	for i := 1; i < d.Range.Start.Column; i++ {
		b.WriteByte(' ')
	}
	b.WriteByte('^')
	b.WriteByte('\n')
	return b.String()
}

// List accumulates diagnostics for one compilation, mirroring the
// teacher's ErrorReporter (collect-then-report, one HasErrors gate
// before any phase consumes downstream results).
type List struct {
	items []*Diagnostic
}

func (l *List) Add(d *Diagnostic)    { l.items = append(l.items, d) }
func (l *List) HasErrors() bool      { return len(l.items) > 0 }
func (l *List) Count() int           { return len(l.items) }
func (l *List) Items() []*Diagnostic { return l.items }

// WorstExitCode returns the exit code of the first fatal diagnostic,
// or 0 if the list is empty. Every diagnostic in this taxonomy is
// fatal, so this is simply the first diagnostic's code.
func (l *List) WorstExitCode() int {
	if len(l.items) == 0 {
		return 0
	}
	return l.items[0].Code.ExitCode()
}

func (l *List) String() string {
	var b strings.Builder
	for i, d := range l.items {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(d.Render())
	}
	return b.String()
}
