package frontend

import (
	"strconv"

	"github.com/wudi/flowc/diag"
	"github.com/wudi/flowc/fir"
	"github.com/wudi/flowc/sourcepos"
)

// ParseModule parses one module's top-level definitions directly into
// a fresh child scope of parent (nil for the root module).
//
// Parsing runs in two passes so forward and mutual references resolve
// like any other lookup: pass one scans only definition headers
// (IDENT, optional parameter list, '=') and pre-declares every name
// with a nil Def; pass two parses each definition's right-hand side
// against the now-complete scope and fills in Def, setting
// IsRecursive when the body referenced a definition whose Def was
// still nil at that point: its own name, or any later (forward)
// definition.
func ParseModule(module, src string, parent *fir.Scope) (*fir.Scope, *diag.List) {
	scope := fir.NewScope(parent)
	errs := &diag.List{}

	headers, err := splitDefinitions(module, src)
	if err != nil {
		errs.Add(err.(*diag.Diagnostic))
		return scope, errs
	}

	type pending struct {
		id     *fir.Identifier
		params []*fir.FuncVar
		rhs    string
	}
	var work []pending
	for h, d := range headers {
		id := fir.NewIdentifier(h+1, d.name, nil, false, d.namePos)
		scope.Declare(id)
		work = append(work, pending{id: id, params: d.params, rhs: d.rhs})
	}

	for _, w := range work {
		ep := newExprParser(module, w.rhs, scope, w.params)
		body, err := ep.parseExpr()
		if err != nil {
			errs.Add(err.(*diag.Diagnostic))
			continue
		}
		if ep.tok.Kind != TokEOF {
			errs.Add(diag.New(diag.ParseError, ep.tok.Pos, "unexpected trailing token %q after definition of %q", ep.tok.Text, w.id.Name))
		}
		if len(w.params) > 0 {
			body = fir.NewFunction(w.id.Pos, w.params, body, fir.NewScope(scope))
		}
		w.id.Def = body
		w.id.IsRecursive = ep.sawSelf
	}
	return scope, errs
}

type defHeader struct {
	name    string
	namePos sourcepos.Range
	params  []*fir.FuncVar
	rhs     string
}

// splitDefinitions performs a lightweight first pass over module-level
// structure only: it finds each `IDENT ('(' params ')')? '='` header
// and records the raw text of its right-hand side, up to (but not
// including) the next such header. The RHS text is re-lexed from
// scratch by a fresh exprParser in pass two, so this pass only needs
// enough lookahead to avoid mistaking a nested identifier for the
// start of the next definition.
func splitDefinitions(module, src string) ([]defHeader, error) {
	l := New(module, src)
	var out []defHeader
	for {
		tok := l.Next()
		if tok.Kind == TokEOF {
			break
		}
		if tok.Kind != TokIdent {
			return nil, diag.New(diag.ParseError, tok.Pos, "expected a definition name, got %q", tok.Text)
		}
		name := tok.Text
		namePos := tok.Pos

		var params []*fir.FuncVar
		save := *l
		next := l.Next()
		if next.Kind == TokLParen {
			for {
				pt := l.Next()
				if pt.Kind == TokRParen {
					break
				}
				if pt.Kind != TokIdent {
					return nil, diag.New(diag.ParseError, pt.Pos, "expected a parameter name, got %q", pt.Text)
				}
				params = append(params, fir.NewFuncVar(pt.Text, pt.Pos))
				sep := l.Next()
				if sep.Kind == TokRParen {
					break
				}
				if sep.Kind != TokComma {
					return nil, diag.New(diag.ParseError, sep.Pos, "expected ',' or ')' in parameter list")
				}
			}
			next = l.Next()
		} else {
			*l = save
			next = l.Next()
		}
		if next.Kind != TokEquals {
			return nil, diag.New(diag.ParseError, next.Pos, "expected '=' after definition name %q", name)
		}

		rhsStart := l.pos
		for {
			before := *l
			t := l.Next()
			if t.Kind == TokEOF {
				break
			}
			if t.Kind == TokIdent && isUpcomingHeader(l) {
				*l = before
				break
			}
		}
		rhsEnd := l.pos
		out = append(out, defHeader{name: name, namePos: namePos, params: params, rhs: src[rhsStart:rhsEnd]})
	}
	return out, nil
}

// isUpcomingHeader reports whether l, positioned just after an
// identifier token, is looking at the rest of a new definition header
// (an optional parameter list followed by '='). l is restored to its
// entry position before returning.
func isUpcomingHeader(l *Lexer) bool {
	save := *l
	defer func() { *l = save }()

	n := l.Next()
	if n.Kind == TokEquals {
		return true
	}
	if n.Kind != TokLParen {
		return false
	}
	depth := 1
	for depth > 0 {
		t := l.Next()
		if t.Kind == TokEOF {
			return false
		}
		if t.Kind == TokLParen {
			depth++
		}
		if t.Kind == TokRParen {
			depth--
		}
	}
	return l.Next().Kind == TokEquals
}

// bindEnv is a small linked scope of bound variables (function
// parameters and array/pattern index variables), searched innermost
// first before falling back to the enclosing fir.Scope of top-level
// definitions.
type bindEnv struct {
	name string
	ref  fir.Referent
	next *bindEnv
}

func (e *bindEnv) lookup(name string) (fir.Referent, bool) {
	for b := e; b != nil; b = b.next {
		if b.name == name {
			return b.ref, true
		}
	}
	return nil, false
}

// exprParser parses one definition's right-hand side against an
// already-populated enclosing scope plus whatever locals are bound by
// the time a given Primary is reached.
type exprParser struct {
	lex     *Lexer
	tok     Token
	scope   *fir.Scope
	env     *bindEnv
	sawSelf bool
}

func newExprParser(module, src string, scope *fir.Scope, params []*fir.FuncVar) *exprParser {
	var env *bindEnv
	for _, fv := range params {
		env = &bindEnv{name: fv.Name, ref: fv, next: env}
	}
	ep := &exprParser{lex: New(module, src), scope: scope, env: env}
	ep.next()
	return ep
}

func (p *exprParser) next() { p.tok = p.lex.Next() }

func (p *exprParser) expect(k TokenKind, what string) error {
	if p.tok.Kind != k {
		return diag.New(diag.ParseError, p.tok.Pos, "expected %s, got %q", what, p.tok.Text)
	}
	p.next()
	return nil
}

func (p *exprParser) parseExpr() (fir.Expr, error) { return p.parseOr() }

func (p *exprParser) parseOr() (fir.Expr, error) {
	lhs, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.tok.Kind == TokKeyword && (p.tok.Text == "or" || p.tok.Text == "xor") {
		op := p.tok.Text
		pos := p.tok.Pos
		p.next()
		rhs, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		lhs = fir.NewPrimitive(pos, op, lhs, rhs)
	}
	return lhs, nil
}

func (p *exprParser) parseAnd() (fir.Expr, error) {
	lhs, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.tok.Kind == TokKeyword && p.tok.Text == "and" {
		pos := p.tok.Pos
		p.next()
		rhs, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		lhs = fir.NewPrimitive(pos, "and", lhs, rhs)
	}
	return lhs, nil
}

func (p *exprParser) parseNot() (fir.Expr, error) {
	if p.tok.Kind == TokKeyword && p.tok.Text == "not" {
		pos := p.tok.Pos
		p.next()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return fir.NewPrimitive(pos, "not", operand), nil
	}
	return p.parseConcat()
}

func (p *exprParser) parseConcat() (fir.Expr, error) {
	lhs, err := p.parseCmp()
	if err != nil {
		return nil, err
	}
	if p.tok.Kind != TokPlusPlus {
		return lhs, nil
	}
	pos := lhs.Pos()
	operands := []fir.Expr{lhs}
	for p.tok.Kind == TokPlusPlus {
		p.next()
		rhs, err := p.parseCmp()
		if err != nil {
			return nil, err
		}
		operands = append(operands, rhs)
	}
	return fir.NewOperation(pos, fir.ArrayConcat, operands...), nil
}

func (p *exprParser) parseCmp() (fir.Expr, error) {
	lhs, err := p.parseAdd()
	if err != nil {
		return nil, err
	}
	ops := map[TokenKind]string{TokLt: "<", TokLe: "<=", TokGt: ">", TokGe: ">=", TokEq: "==", TokNe: "!="}
	if op, ok := ops[p.tok.Kind]; ok {
		pos := p.tok.Pos
		p.next()
		rhs, err := p.parseAdd()
		if err != nil {
			return nil, err
		}
		return fir.NewPrimitive(pos, op, lhs, rhs), nil
	}
	return lhs, nil
}

func (p *exprParser) parseAdd() (fir.Expr, error) {
	lhs, err := p.parseMul()
	if err != nil {
		return nil, err
	}
	for p.tok.Kind == TokPlus || p.tok.Kind == TokMinus {
		op := "+"
		if p.tok.Kind == TokMinus {
			op = "-"
		}
		pos := p.tok.Pos
		p.next()
		rhs, err := p.parseMul()
		if err != nil {
			return nil, err
		}
		lhs = fir.NewPrimitive(pos, op, lhs, rhs)
	}
	return lhs, nil
}

func (p *exprParser) parseMul() (fir.Expr, error) {
	lhs, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.tok.Kind == TokStar || p.tok.Kind == TokSlash {
		op := "*"
		if p.tok.Kind == TokSlash {
			op = "/"
		}
		pos := p.tok.Pos
		p.next()
		rhs, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		lhs = fir.NewPrimitive(pos, op, lhs, rhs)
	}
	return lhs, nil
}

func (p *exprParser) parseUnary() (fir.Expr, error) {
	if p.tok.Kind == TokMinus {
		pos := p.tok.Pos
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return fir.NewPrimitive(pos, "neg", operand), nil
	}
	return p.parsePostfix()
}

func (p *exprParser) parsePostfix() (fir.Expr, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.tok.Kind {
		case TokLParen:
			pos := p.tok.Pos
			p.next()
			var args []fir.Expr
			for p.tok.Kind != TokRParen {
				a, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				args = append(args, a)
				if p.tok.Kind == TokComma {
					p.next()
					continue
				}
				break
			}
			if err := p.expect(TokRParen, "')'"); err != nil {
				return nil, err
			}
			if ref, ok := e.(*fir.Reference); ok && ref.Referent.RefName() == "array_enumerate" && len(args) == 2 {
				e = fir.NewOperation(pos, fir.ArrayEnumerate, args...)
				continue
			}
			if isArrayValued(e) {
				e = fir.NewArrayApp(pos, e, args...)
				continue
			}
			e = fir.NewFuncApp(pos, e, args...)
		case TokDot:
			p.next()
			if p.tok.Kind != TokIdent || p.tok.Text != "size" {
				return nil, diag.New(diag.ParseError, p.tok.Pos, "expected 'size' after '.'")
			}
			pos := p.tok.Pos
			p.next()
			var dim *int
			if p.tok.Kind == TokLParen {
				p.next()
				if p.tok.Kind != TokInt {
					return nil, diag.New(diag.ParseError, p.tok.Pos, "expected an integer dimension index")
				}
				n, _ := strconv.Atoi(p.tok.Text)
				dim = &n
				p.next()
				if err := p.expect(TokRParen, "')'"); err != nil {
					return nil, err
				}
			}
			e = fir.NewArraySize(pos, e, dim)
		default:
			return e, nil
		}
	}
}

// isArrayValued is a syntactic hint only, used to pick ArrayApp over
// FuncApp at parse time; the type checker is the real authority and
// rejects the application outright if the callee turns out not to be
// array-shaped. A bound ArrayVar, a reference to a not-yet-parsed
// (forward or self) definition, or a reference to an Identifier whose
// body is already known to be an Array/ArrayPatterns/Operation all
// count as array-valued.
func isArrayValued(e fir.Expr) bool {
	ref, ok := e.(*fir.Reference)
	if !ok {
		return false
	}
	id, ok := ref.Referent.(*fir.Identifier)
	if !ok {
		_, isArrayVar := ref.Referent.(*fir.ArrayVar)
		return isArrayVar
	}
	switch id.Def.(type) {
	case *fir.Array, *fir.ArrayPatterns, *fir.Operation:
		return true
	case nil:
		return true
	default:
		return false
	}
}

func (p *exprParser) parsePrimary() (fir.Expr, error) {
	tok := p.tok
	switch tok.Kind {
	case TokInt:
		v, _ := strconv.ParseInt(tok.Text, 10, 64)
		p.next()
		return fir.NewIntConst(tok.Pos, v), nil
	case TokReal:
		v, _ := strconv.ParseFloat(tok.Text, 64)
		p.next()
		return fir.NewRealConst(tok.Pos, v), nil
	case TokKeyword:
		switch tok.Text {
		case "true":
			p.next()
			return fir.NewBoolConst(tok.Pos, true), nil
		case "false":
			p.next()
			return fir.NewBoolConst(tok.Pos, false), nil
		case "inf":
			p.next()
			return fir.NewInfinity(tok.Pos), nil
		}
		return nil, diag.New(diag.ParseError, tok.Pos, "unexpected keyword %q", tok.Text)
	case TokIdent:
		p.next()
		if ref, ok := p.env.lookup(tok.Text); ok {
			return fir.NewReference(tok.Pos, ref), nil
		}
		if id, ok := p.scope.Lookup(tok.Text); ok {
			if id.Def == nil {
				p.sawSelf = true
			}
			return fir.NewReference(tok.Pos, id), nil
		}
		if tok.Text == "array_enumerate" && p.tok.Kind == TokLParen {
			// reserved callee: parsePostfix lowers the call to an Operation
			return fir.NewReference(tok.Pos, &fir.Variable{Name: tok.Text, Pos: tok.Pos}), nil
		}
		return nil, diag.New(diag.UndefinedSymbol, tok.Pos, "undefined symbol %q", tok.Text)
	case TokLParen:
		p.next()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokRParen, "')'"); err != nil {
			return nil, err
		}
		return e, nil
	case TokLBracket:
		return p.parseArrayLiteral()
	case TokLBrace:
		return p.parsePatternLiteral()
	}
	return nil, diag.New(diag.ParseError, tok.Pos, "unexpected token %q", tok.Text)
}

func (p *exprParser) parseArrayLiteral() (fir.Expr, error) {
	start := p.tok.Pos
	p.next()
	savedEnv := p.env
	var vars []*fir.ArrayVar
	for {
		if p.tok.Kind != TokIdent {
			return nil, diag.New(diag.ParseError, p.tok.Pos, "expected a bound variable name")
		}
		name := p.tok.Text
		pos := p.tok.Pos
		p.next()
		var rng fir.Expr
		if p.tok.Kind == TokKeyword && p.tok.Text == "in" {
			p.next()
			lo, err := p.parseAdd()
			if err != nil {
				return nil, err
			}
			if err := p.expect(TokDotDot, "'..'"); err != nil {
				return nil, err
			}
			hi, err := p.parseAdd()
			if err != nil {
				return nil, err
			}
			rng = fir.NewOperation(pos, fir.ArrayEnumerate, lo, hi)
		}
		av := fir.NewArrayVar(name, pos, rng)
		vars = append(vars, av)
		p.env = &bindEnv{name: name, ref: av, next: p.env}
		if p.tok.Kind == TokComma {
			p.next()
			continue
		}
		break
	}
	if err := p.expect(TokColon, "':'"); err != nil {
		return nil, err
	}
	body, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(TokRBracket, "']'"); err != nil {
		return nil, err
	}
	p.env = savedEnv
	return fir.NewArray(start, vars, body, fir.NewScope(p.scope), p.sawSelf), nil
}

func (p *exprParser) parsePatternLiteral() (fir.Expr, error) {
	start := p.tok.Pos
	p.next()
	savedEnv := p.env
	var patterns []fir.ArrayPattern
	for {
		var pat fir.ArrayPattern
		switch p.tok.Kind {
		case TokInt:
			v, _ := strconv.ParseInt(p.tok.Text, 10, 64)
			pat.ExplicitIndex = &v
			p.next()
		case TokIdent:
			av := fir.NewArrayVar(p.tok.Text, p.tok.Pos, nil)
			pat.Var = av
			p.env = &bindEnv{name: av.Name, ref: av, next: p.env}
			p.next()
		default:
			return nil, diag.New(diag.ParseError, p.tok.Pos, "expected an integer or a bound variable in a pattern clause")
		}
		if err := p.expect(TokFatArrow, "'=>'"); err != nil {
			return nil, err
		}
		body, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		pat.Body = body
		patterns = append(patterns, pat)
		p.env = savedEnv
		if p.tok.Kind == TokComma {
			p.next()
			continue
		}
		break
	}
	if err := p.expect(TokRBrace, "'}'"); err != nil {
		return nil, err
	}
	return fir.NewArrayPatterns(start, patterns), nil
}
