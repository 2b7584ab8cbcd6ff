// Command flowc compiles a functional stream-processing module into a
// bounded-memory dataflow kernel: lex/parse, type-check, translate to
// the polyhedral model, schedule, size buffers, emit a loop-nest AST,
// and print pseudo-LLVM-IR.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"

	"github.com/wudi/flowc/astemit"
	"github.com/wudi/flowc/backend"
	"github.com/wudi/flowc/bufsize"
	"github.com/wudi/flowc/config"
	"github.com/wudi/flowc/diag"
	"github.com/wudi/flowc/fir"
	"github.com/wudi/flowc/frontend"
	"github.com/wudi/flowc/polyhedral"
	"github.com/wudi/flowc/primitives"
	"github.com/wudi/flowc/schedule"
	"github.com/wudi/flowc/translate"
	"github.com/wudi/flowc/typecheck"
)

func main() {
	app := &cli.Command{
		Name:  "flowc",
		Usage: "Compiler for a pure functional stream-processing language",
		Commands: []*cli.Command{
			symbolsCommand,
		},
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write generated IR to <file> (default out.ll)"},
			&cli.BoolFlag{Name: "print-tokens", Aliases: []string{"t"}, Usage: "Print the lexed token stream and exit"},
			&cli.BoolFlag{Name: "print-ast", Aliases: []string{"s"}, Usage: "Print the emitted loop-nest AST and exit"},
			&cli.BoolFlag{Name: "list-symbols", Aliases: []string{"l"}, Usage: "List top-level identifiers with resolved types and exit"},
			&cli.StringSliceFlag{Name: "generate", Aliases: []string{"g"}, Usage: "Emit only the named top-level symbol(s); their dependencies are not added"},
			&cli.StringFlag{Name: "config", Usage: "Path to a .flowc.yaml config file"},
			&cli.BoolFlag{Name: "no-color", Usage: "Disable colored diagnostic output"},
		},
		Action: runCompile,
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "flowc: %v\n", err)
		os.Exit(1)
	}
}

func runCompile(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args().Slice()
	if len(args) == 0 {
		return cli.Exit("expected a source file argument", diag.CommandLineExitCode)
	}
	path := args[0]

	src, err := os.ReadFile(path)
	if err != nil {
		return cli.Exit(fmt.Sprintf("reading %s: %v", path, err), diag.IoError.ExitCode())
	}

	cfg, err := config.Discover(cmd.String("config"), path)
	if err != nil {
		return cli.Exit(fmt.Sprintf("loading config: %v", err), diag.IoError.ExitCode())
	}
	colorDefault := isatty.IsTerminal(os.Stdout.Fd())
	useColor := cfg.ResolveColor(cmd.Bool("no-color"), colorDefault)

	module := filepath.Base(path)
	lex := frontend.New(module, string(src))
	if cmd.Bool("print-tokens") {
		for {
			tok := lex.Next()
			fmt.Printf("%-12v %-20q %s\n", tok.Kind, tok.Text, tok.Pos)
			if tok.Kind == frontend.TokEOF {
				break
			}
		}
		return nil
	}

	scope, perrs := frontend.ParseModule(module, string(src), nil)
	if perrs.HasErrors() {
		return reportAndExit(perrs, string(src), useColor)
	}

	checker := typecheck.New()
	if err := checker.Process(scope); err != nil {
		checker.Errors().Add(diag.NewUnlocated(diag.UndefinedSymbol, "%v", err))
	}
	if checker.Errors().HasErrors() {
		return reportAndExit(checker.Errors(), string(src), useColor)
	}

	if cmd.Bool("list-symbols") {
		printSymbols(scope)
		return nil
	}

	if gen := cmd.StringSlice("generate"); len(gen) > 0 {
		scope = restrictScope(scope, gen)
	}

	prog, err := translate.New().Translate(scope)
	if err != nil {
		return reportAndExit(singleton(err), string(src), useColor)
	}

	schedCtx := schedule.NewContext()
	defer schedCtx.Release()
	sched, err := schedule.Run(schedCtx, prog)
	if err != nil {
		return reportAndExit(singleton(err), string(src), useColor)
	}

	sizer := bufsize.New(prog, sched)
	if err := sizer.Run(); err != nil {
		return reportAndExit(singleton(err), string(src), useColor)
	}
	if err := bufsize.Validate(prog); err != nil {
		return reportAndExit(singleton(err), string(src), useColor)
	}

	builder := astemit.NewBuilder(prog)
	ast, err := astemit.Build(builder, prog, sched)
	if err != nil {
		return reportAndExit(singleton(err), string(src), useColor)
	}

	if cmd.Bool("print-ast") {
		printAST(ast)
		return nil
	}

	printer := backend.NewPrinter(builder, prog)
	compileID := uuid.NewString()
	ir := fmt.Sprintf("; compile-id: %s\n%s", compileID, printer.Print(ast))

	totalCells := int64(0)
	for _, a := range prog.Arrays {
		cells := int64(1)
		for _, sz := range a.BufferSize {
			cells *= int64(sz)
		}
		totalCells += cells
	}
	fmt.Fprintf(os.Stderr, "flowc: compiled %s, %s total buffer cells across %d array(s)\n", module, humanize.Comma(totalCells), len(prog.Arrays))

	outPath := cfg.ResolveOutput(cmd.String("output"), "out.ll")
	if outPath == "" {
		fmt.Print(ir)
	} else {
		if err := os.WriteFile(outPath, []byte(ir), 0o644); err != nil {
			return cli.Exit(fmt.Sprintf("writing %s: %v", outPath, err), diag.IoError.ExitCode())
		}
		descPath := descPathFor(outPath)
		if err := writeDescription(descPath, prog); err != nil {
			return cli.Exit(fmt.Sprintf("writing %s: %v", descPath, err), diag.IoError.ExitCode())
		}
	}
	return nil
}

func singleton(err error) *diag.List {
	l := &diag.List{}
	if d, ok := err.(*diag.Diagnostic); ok {
		l.Add(d)
	} else {
		l.Add(diag.NewUnlocated(diag.BackendError, "%v", err))
	}
	return l
}

func reportAndExit(errs *diag.List, src string, color bool) error {
	for _, d := range errs.Items() {
		d.WithSource(src)
		msg := d.Render()
		if color {
			msg = "\033[31m" + msg + "\033[0m"
		}
		fmt.Fprint(os.Stderr, msg)
	}
	return cli.Exit("compilation failed", errs.WorstExitCode())
}

func printSymbols(scope *fir.Scope) {
	for _, id := range scope.Identifiers {
		kind := "value"
		if id.IsRecursive {
			kind = "recursive value"
		}
		fmt.Printf("%-4d %-20s %-14s %s\n", id.Handle, id.Name, kind, id.Type)
	}
}

func restrictScope(scope *fir.Scope, names []string) *fir.Scope {
	want := map[string]bool{}
	for _, n := range names {
		want[n] = true
	}
	restricted := fir.NewScope(nil)
	for _, id := range scope.Identifiers {
		if want[id.Name] {
			restricted.Declare(id)
		}
	}
	return restricted
}

func printAST(p *astemit.Program) {
	var walk func(n *astemit.Node, depth int)
	walk = func(n *astemit.Node, depth int) {
		fmt.Printf("%s%s\n", strings.Repeat("  ", depth), n)
		for _, c := range n.Children {
			walk(c, depth+1)
		}
	}
	for _, n := range p.Finite {
		walk(n, 0)
	}
	for _, n := range p.Infinite {
		walk(n, 0)
	}
}

// statementDescription is one infinite statement's out.desc entry:
// init and period come from its array's PeriodOffset/Period, size
// lists the statement's remaining finite dimensions in order.
type statementDescription struct {
	Init   int   `json:"init"`
	Period int   `json:"period"`
	Size   []int `json:"size"`
}

// description is the out.desc artifact shape: the program's input
// streams, its single output stream, and the per-statement buffer
// cell counts, marshaled with plain encoding/json since no pack
// dependency offers a struct codec this simple would benefit from.
type description struct {
	Inputs  []statementDescription `json:"inputs"`
	Output  statementDescription   `json:"output"`
	Buffers []int                  `json:"buffers"`
}

func descPathFor(outPath string) string {
	ext := filepath.Ext(outPath)
	return strings.TrimSuffix(outPath, ext) + ".desc"
}

func finiteDims(domain []primitives.Dim, flowDim int) []int {
	var sizes []int
	for i, d := range domain {
		if i == flowDim {
			continue
		}
		sizes = append(sizes, int(d))
	}
	return sizes
}

// writeDescription classifies every infinite statement as an input or
// the program's output (the last infinite statement whose array no
// statement reads is the output; if every array is read, the last
// infinite statement is; all others are inputs, so nothing is
// silently dropped) and records every statement's buffer cell count.
func writeDescription(path string, prog *polyhedral.Program) error {
	readFrom := map[string]bool{}
	for _, st := range prog.Statements {
		for _, r := range st.Reads {
			readFrom[r.ArrayName] = true
		}
	}

	var infinite []*polyhedral.Statement
	for _, st := range prog.Statements {
		if st.FlowDim >= 0 && st.Array != nil {
			infinite = append(infinite, st)
		}
	}

	outputIdx := len(infinite) - 1
	for i := len(infinite) - 1; i >= 0; i-- {
		if !readFrom[infinite[i].Array.Name] {
			outputIdx = i
			break
		}
	}

	desc := description{Buffers: make([]int, len(prog.Statements))}
	for i, st := range infinite {
		sd := statementDescription{
			Init:   st.Array.PeriodOffset,
			Period: st.Array.Period,
			Size:   finiteDims(st.Domain, st.FlowDim),
		}
		if i == outputIdx {
			desc.Output = sd
		} else {
			desc.Inputs = append(desc.Inputs, sd)
		}
	}

	for i, st := range prog.Statements {
		if st.Array == nil {
			continue
		}
		cells := 1
		for _, sz := range st.Array.BufferSize {
			cells *= sz
		}
		desc.Buffers[i] = cells
	}

	data, err := json.MarshalIndent(desc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

var symbolsCommand = &cli.Command{
	Name:  "symbols",
	Usage: "Interactively browse a module's top-level identifiers",
	Action: func(ctx context.Context, cmd *cli.Command) error {
		args := cmd.Args().Slice()
		if len(args) == 0 {
			return cli.Exit("expected a source file argument", diag.CommandLineExitCode)
		}
		return runSymbolBrowser(args[0])
	},
}

func runSymbolBrowser(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	module := filepath.Base(path)
	scope, perrs := frontend.ParseModule(module, string(src), nil)
	if perrs.HasErrors() {
		fmt.Print(perrs.String())
		return fmt.Errorf("%s failed to parse", path)
	}
	checker := typecheck.New()
	_ = checker.Process(scope)
	if checker.Errors().HasErrors() {
		fmt.Print(checker.Errors().String())
	}

	rl, err := readline.New("flowc symbols> ")
	if err != nil {
		return err
	}
	defer rl.Close()

	fmt.Printf("%d symbols loaded from %s. Type a name to inspect it, or 'list'.\n", len(scope.Identifiers), path)
	for {
		line, err := rl.Readline()
		if err != nil {
			return nil
		}
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case line == "exit" || line == "quit":
			return nil
		case line == "list":
			printSymbols(scope)
		default:
			id, ok := scope.Lookup(line)
			if !ok {
				fmt.Printf("no such symbol: %s\n", line)
				continue
			}
			fmt.Printf("%s : %s\n", id.Name, id.Type)
			if id.Def != nil {
				fmt.Printf("  defined at %s\n", id.Def.Pos())
			}
		}
	}
}
