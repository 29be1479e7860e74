package parser

import (
	"strings"

	"github.com/mkerian10/pluto/internal/ast"
	"github.com/mkerian10/pluto/internal/token"
)

// parseExpr is the entry point for expression parsing: range operators bind
// loosest (spec.md §4.A), then the usual precedence-climbing chain down to
// postfix/primary.
func (p *Parser) parseExpr() ast.Expr {
	lhs := p.parseOr()
	if p.cur().Kind == token.DotDot || p.cur().Kind == token.DotDotEq {
		inclusive := p.cur().Kind == token.DotDotEq
		p.advance()
		rhs := p.parseOr()
		return ast.Range{Start: lhs, End: rhs, Inclusive: inclusive}
	}
	return lhs
}

func (p *Parser) parseOr() ast.Expr {
	lhs := p.parseAnd()
	for p.cur().Kind == token.PipePipe {
		p.advance()
		rhs := p.parseAnd()
		lhs = ast.BinOp{Op: ast.OpOr, LHS: lhs, RHS: rhs}
	}
	return lhs
}

func (p *Parser) parseAnd() ast.Expr {
	lhs := p.parseEquality()
	for p.cur().Kind == token.AmpAmp {
		p.advance()
		rhs := p.parseEquality()
		lhs = ast.BinOp{Op: ast.OpAnd, LHS: lhs, RHS: rhs}
	}
	return lhs
}

func (p *Parser) parseEquality() ast.Expr {
	lhs := p.parseRelational()
	for {
		var op ast.BinOpKind
		switch p.cur().Kind {
		case token.Eq:
			op = ast.OpEq
		case token.Neq:
			op = ast.OpNeq
		default:
			return lhs
		}
		p.advance()
		rhs := p.parseRelational()
		lhs = ast.BinOp{Op: op, LHS: lhs, RHS: rhs}
	}
}

func (p *Parser) parseRelational() ast.Expr {
	lhs := p.parseBitOr()
	for {
		var op ast.BinOpKind
		switch p.cur().Kind {
		case token.Lt:
			op = ast.OpLt
		case token.Lte:
			op = ast.OpLte
		case token.Gt:
			op = ast.OpGt
		case token.Gte:
			op = ast.OpGte
		default:
			return lhs
		}
		p.advance()
		rhs := p.parseBitOr()
		lhs = ast.BinOp{Op: op, LHS: lhs, RHS: rhs}
	}
}

func (p *Parser) parseBitOr() ast.Expr {
	lhs := p.parseBitXor()
	for p.cur().Kind == token.Pipe {
		p.advance()
		rhs := p.parseBitXor()
		lhs = ast.BinOp{Op: ast.OpBitOr, LHS: lhs, RHS: rhs}
	}
	return lhs
}

func (p *Parser) parseBitXor() ast.Expr {
	lhs := p.parseBitAnd()
	for p.cur().Kind == token.Caret {
		p.advance()
		rhs := p.parseBitAnd()
		lhs = ast.BinOp{Op: ast.OpBitXor, LHS: lhs, RHS: rhs}
	}
	return lhs
}

func (p *Parser) parseBitAnd() ast.Expr {
	lhs := p.parseShift()
	for p.cur().Kind == token.Amp {
		p.advance()
		rhs := p.parseShift()
		lhs = ast.BinOp{Op: ast.OpBitAnd, LHS: lhs, RHS: rhs}
	}
	return lhs
}

func (p *Parser) parseShift() ast.Expr {
	lhs := p.parseAdditive()
	for {
		var op ast.BinOpKind
		switch p.cur().Kind {
		case token.Shl:
			op = ast.OpShl
		case token.Shr:
			op = ast.OpShr
		default:
			return lhs
		}
		p.advance()
		rhs := p.parseAdditive()
		lhs = ast.BinOp{Op: op, LHS: lhs, RHS: rhs}
	}
}

func (p *Parser) parseAdditive() ast.Expr {
	lhs := p.parseMultiplicative()
	for {
		var op ast.BinOpKind
		switch p.cur().Kind {
		case token.Plus:
			op = ast.OpAdd
		case token.Minus:
			op = ast.OpSub
		default:
			return lhs
		}
		p.advance()
		rhs := p.parseMultiplicative()
		lhs = ast.BinOp{Op: op, LHS: lhs, RHS: rhs}
	}
}

func (p *Parser) parseMultiplicative() ast.Expr {
	lhs := p.parseUnaryExpr()
	for {
		var op ast.BinOpKind
		switch p.cur().Kind {
		case token.Star:
			op = ast.OpMul
		case token.Slash:
			op = ast.OpDiv
		case token.Percent:
			op = ast.OpMod
		default:
			return lhs
		}
		p.advance()
		rhs := p.parseUnaryExpr()
		lhs = ast.BinOp{Op: op, LHS: lhs, RHS: rhs}
	}
}

func (p *Parser) parseUnaryExpr() ast.Expr {
	switch p.cur().Kind {
	case token.Minus:
		p.advance()
		return ast.UnaryOp{Op: ast.OpNeg, Operand: p.parseUnaryExpr()}
	case token.Bang:
		p.advance()
		return ast.UnaryOp{Op: ast.OpNot, Operand: p.parseUnaryExpr()}
	case token.Tilde:
		p.advance()
		return ast.UnaryOp{Op: ast.OpBitNot, Operand: p.parseUnaryExpr()}
	default:
		return p.parsePostfix()
	}
}

// parsePostfix handles the chain of postfix forms: call, method call,
// index, field access, `?` nullable-propagate, `!` error-propagate,
// `as Type` cast, and `catch ...`/`catch e { ... }`.
func (p *Parser) parsePostfix() ast.Expr {
	e := p.parsePrimary()
	for {
		switch p.cur().Kind {
		case token.LParen:
			e = ast.Call{Name: ast.Spanned[string]{Node: exprName(e)}, Args: p.parseArgs(), TargetID: ast.NoID()}
		case token.Dot:
			p.advance()
			nameTok := p.expect(token.Ident, "field or method name")
			if p.at(token.LParen) {
				e = ast.MethodCall{Object: e, Method: ast.NewSpanned(nameTok.Lit, nameTok.Span), Args: p.parseArgs(), TargetID: ast.NoID()}
			} else {
				e = ast.FieldAccess{Object: e, Field: nameTok.Lit, TargetID: ast.NoID()}
			}
		case token.LBracket:
			p.advance()
			idx := p.parseExpr()
			p.expect(token.RBracket, "']'")
			e = ast.Index{Object: e, Idx: idx}
		case token.Question:
			p.advance()
			e = ast.NullablePropagate{Operand: e}
		case token.Bang:
			p.advance()
			e = ast.ErrorPropagate{Operand: e}
		case token.KwAs:
			p.advance()
			target := p.parseType()
			e = ast.Cast{Operand: e, Target: target}
		case token.KwCatch:
			p.advance()
			e = p.parseCatchTail(e)
		default:
			return e
		}
	}
}

func exprName(e ast.Expr) string {
	if id, ok := e.(ast.Ident); ok {
		return id.Name
	}
	return ""
}

func (p *Parser) parseCatchTail(operand ast.Expr) ast.Expr {
	c := ast.Catch{Operand: operand}
	if p.at(token.LBrace) {
		c.HasBlock = true
		c.Block = p.parseBlock()
		return c
	}
	if p.cur().Kind == token.Ident {
		// `catch e { ... }` binds the error identifier for the block form.
		save := p.mark()
		nameTok := p.advance()
		if p.at(token.LBrace) {
			c.Binding = nameTok.Lit
			c.HasBlock = true
			c.Block = p.parseBlock()
			return c
		}
		p.restore(save)
	}
	c.Fallback = p.parseUnaryExpr()
	return c
}

func (p *Parser) parseArgs() []ast.Expr {
	p.expect(token.LParen, "'('")
	var args []ast.Expr
	for !p.at(token.RParen) {
		args = append(args, p.parseExpr())
		if _, ok := p.accept(token.Comma); !ok {
			break
		}
	}
	p.expect(token.RParen, "')'")
	return args
}

func (p *Parser) parsePrimary() ast.Expr {
	t := p.cur()
	switch t.Kind {
	case token.IntLit:
		p.advance()
		return ast.IntLit{Value: parseIntLit(t.Lit)}
	case token.HexLit:
		p.advance()
		return ast.IntLit{Value: parseHexLit(t.Lit)}
	case token.FloatLit:
		p.advance()
		return ast.FloatLit{Value: parseFloatLit(t.Lit)}
	case token.True:
		p.advance()
		return ast.BoolLit{Value: true}
	case token.False:
		p.advance()
		return ast.BoolLit{Value: false}
	case token.StringLit:
		p.advance()
		return ast.StringLit{Value: t.Lit}
	case token.ByteLit:
		p.advance()
		return ast.ByteLit{Value: t.Lit[0]}
	case token.InterpStringLit:
		p.advance()
		return p.parseInterpString(t)
	case token.KwNone:
		p.advance()
		return ast.NoneLit{}
	case token.KwOld:
		p.advance()
		p.expect(token.LParen, "'('")
		inner := p.parseExpr()
		p.expect(token.RParen, "')'")
		return ast.Old{Operand: inner}
	case token.KwSpawn:
		p.advance()
		return ast.Spawn{Call: p.parseUnaryExpr()}
	case token.KwMatch:
		return p.parseMatchExpr()
	case token.KwSelect:
		return p.parseSelectExpr()
	case token.FatArrow:
		return p.parseClosure(nil)
	case token.LParen:
		return p.parseParenOrClosure()
	case token.LBracket:
		return p.parseArrayLit()
	case token.LBrace:
		return p.parseBraceLit()
	case token.Ident:
		return p.parseIdentLed()
	default:
		p.errorf(t.Span, "expected an expression")
		p.advance()
		return ast.NoneLit{}
	}
}

// parseIdentLed covers every production that begins with a bare identifier:
// plain variable reference, free-function call (handled by parsePostfix's
// LParen case once this returns an Ident), `chan(T, cap)` construction,
// struct literal `Name{...}`, enum constructor `Enum.Variant(...)`, and
// generic instantiation `Name<T>{...}`/`Name<T>(...)`.
func (p *Parser) parseIdentLed() ast.Expr {
	nameTok := p.advance()
	name := nameTok.Lit

	if name == "chan" && p.at(token.LParen) {
		p.advance()
		elem := p.parseType()
		var cap ast.Expr
		if _, ok := p.accept(token.Comma); ok {
			cap = p.parseExpr()
		}
		p.expect(token.RParen, "')'")
		return ast.ChanMake{ElemType: elem, Capacity: cap}
	}

	if p.at(token.Lt) {
		if genericSuffix, ok := p.tryParseGenericSuffix(); ok {
			_ = genericSuffix // type arguments are parsed and discarded; the resulting expression carries only the base name
		}
	}

	if p.at(token.Dot) {
		save := p.mark()
		p.advance()
		variantTok := p.cur()
		if variantTok.Kind == token.Ident {
			p.advance()
			if p.at(token.LParen) {
				args := p.parseArgs()
				return ast.EnumCtor{EnumName: name, Variant: variantTok.Lit, Args: args, EnumID: ast.NoID(), VariantID: ast.NoID()}
			}
		}
		p.restore(save)
	}

	if p.at(token.LBrace) && startsUpper(name) {
		return p.parseStructLitBody(name)
	}

	return ast.Ident{Name: name, TargetID: ast.NoID()}
}

// tryParseGenericSuffix speculatively parses a `<Type, ...>` suffix after an
// identifier, used only to consume explicit type arguments ahead of a call
// or struct literal; on failure (doesn't close with '>' followed by '('/'{')
// it rolls back so `<` is free to be parsed as a comparison operator by the
// caller's enclosing precedence level instead.
func (p *Parser) tryParseGenericSuffix() ([]*ast.Type, bool) {
	save := p.mark()
	p.enterAngle()
	p.advance() // '<'
	var args []*ast.Type
	ok := true
	for !p.at(token.Gt) {
		if p.at(token.EOF) || p.at(token.RBrace) || p.at(token.Newline) {
			ok = false
			break
		}
		args = append(args, p.parseType())
		if _, commaOK := p.accept(token.Comma); !commaOK {
			break
		}
	}
	if ok && p.at(token.Gt) {
		p.advance()
		p.exitAngle()
		if p.at(token.LParen) || p.at(token.LBrace) {
			return args, true
		}
	}
	p.exitAngle()
	p.restore(save)
	return nil, false
}

func startsUpper(s string) bool {
	return len(s) > 0 && s[0] >= 'A' && s[0] <= 'Z'
}

func (p *Parser) parseStructLitBody(className string) ast.Expr {
	p.expect(token.LBrace, "'{'")
	p.skipStatementTerminator()
	var fields []ast.StructLitField
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		fnameTok := p.expect(token.Ident, "field name")
		p.expect(token.Colon, "':'")
		val := p.parseExpr()
		fields = append(fields, ast.StructLitField{Name: fnameTok.Lit, Value: val})
		if _, ok := p.accept(token.Comma); !ok {
			p.skipStatementTerminator()
		}
	}
	p.expect(token.RBrace, "'}'")
	return ast.StructLit{ClassName: className, Fields: fields, TargetID: ast.NoID()}
}

func (p *Parser) parseArrayLit() ast.Expr {
	p.expect(token.LBracket, "'['")
	var elems []ast.Expr
	for !p.at(token.RBracket) {
		elems = append(elems, p.parseExpr())
		if _, ok := p.accept(token.Comma); !ok {
			break
		}
	}
	p.expect(token.RBracket, "']'")
	return ast.ArrayLit{Elems: elems}
}

// parseBraceLit disambiguates `{elem, elem}` (SetLit) from `{k: v, k: v}`
// (MapLit) by looking one element ahead for a following colon.
func (p *Parser) parseBraceLit() ast.Expr {
	p.expect(token.LBrace, "'{'")
	if p.at(token.RBrace) {
		p.advance()
		return ast.SetLit{}
	}
	first := p.parseExpr()
	if _, ok := p.accept(token.Colon); ok {
		val := p.parseExpr()
		entries := []ast.MapEntry{{Key: first, Value: val}}
		for {
			if _, ok := p.accept(token.Comma); !ok {
				break
			}
			if p.at(token.RBrace) {
				break
			}
			k := p.parseExpr()
			p.expect(token.Colon, "':'")
			v := p.parseExpr()
			entries = append(entries, ast.MapEntry{Key: k, Value: v})
		}
		p.expect(token.RBrace, "'}'")
		return ast.MapLit{Entries: entries}
	}
	elems := []ast.Expr{first}
	for {
		if _, ok := p.accept(token.Comma); !ok {
			break
		}
		if p.at(token.RBrace) {
			break
		}
		elems = append(elems, p.parseExpr())
	}
	p.expect(token.RBrace, "'}'")
	return ast.SetLit{Elems: elems}
}

// parseParenOrClosure disambiguates a parenthesised expression from a
// closure parameter list `(a: int, b: int) => { ... }` by speculatively
// parsing as a param list and checking for a following `=>`.
func (p *Parser) parseParenOrClosure() ast.Expr {
	save := p.mark()
	p.advance() // '('
	var params []ast.Param
	ok := true
	for !p.at(token.RParen) {
		if p.cur().Kind != token.Ident {
			ok = false
			break
		}
		params = append(params, p.parseParamNoColonRequired())
		if _, commaOK := p.accept(token.Comma); !commaOK {
			break
		}
	}
	if ok && p.at(token.RParen) {
		p.advance()
		if p.at(token.FatArrow) {
			return p.parseClosure(params)
		}
	}
	p.restore(save)

	p.expect(token.LParen, "'('")
	inner := p.parseExpr()
	p.expect(token.RParen, "')'")
	return inner
}

// parseParamNoColonRequired accepts `name` or `name: Type` — untyped
// closure parameters are legal and left to the checker to infer (§4.E).
func (p *Parser) parseParamNoColonRequired() ast.Param {
	nameTok := p.expect(token.Ident, "parameter name")
	var typ *ast.Type
	if _, ok := p.accept(token.Colon); ok {
		typ = p.parseType()
	}
	return ast.Param{ID: ast.NewID(), Name: nameTok.Lit, Type: typ}
}

func (p *Parser) parseClosure(params []ast.Param) ast.Expr {
	p.expect(token.FatArrow, "'=>'")
	body := p.parseBlock()
	return ast.Closure{Params: params, Body: body}
}

func (p *Parser) parseMatchExpr() ast.Expr {
	p.expect(token.KwMatch, "'match'")
	scrutinee := p.parseExpr()
	p.expect(token.LBrace, "'{'")
	p.skipStatementTerminator()
	var arms []ast.MatchArm
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		arms = append(arms, p.parseMatchArm())
		p.skipStatementTerminator()
	}
	p.expect(token.RBrace, "'}'")
	return ast.Match{Scrutinee: scrutinee, Arms: arms}
}

func (p *Parser) parseSelectExpr() ast.Expr {
	p.expect(token.KwSelect, "'select'")
	p.expect(token.LBrace, "'{'")
	p.skipStatementTerminator()
	var arms []ast.SelectArm
	var hasDefault bool
	var def []ast.Spanned[ast.Stmt]
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		if p.cur().Kind == token.KwDefault {
			p.advance()
			p.expect(token.FatArrow, "'=>'")
			def = p.parseBlock()
			hasDefault = true
		} else {
			arms = append(arms, p.parseSelectArm())
		}
		p.skipStatementTerminator()
	}
	p.expect(token.RBrace, "'}'")
	return ast.SelectExpr{Arms: arms, HasDefault: hasDefault, Default: def}
}

// parseInterpString re-lexes/parses each embedded `{expr}` span of an
// f"...{expr}..." literal into its own sub-expression, keeping the main
// lexer a single forward pass with no nested-lexer recursion (the lexer's
// own doc comment on lexInterpString notes this split of responsibility).
func (p *Parser) parseInterpString(t token.Token) ast.Expr {
	raw := t.Lit // includes leading 'f"' ... trailing '"'
	body := raw
	if strings.HasPrefix(body, `f"`) {
		body = body[2:]
	}
	body = strings.TrimSuffix(body, `"`)

	var parts []ast.InterpPart
	var textBuf strings.Builder
	i := 0
	for i < len(body) {
		c := body[i]
		if c == '\\' && i+1 < len(body) {
			textBuf.WriteByte(unescapeOne(body[i+1]))
			i += 2
			continue
		}
		if c == '{' {
			if textBuf.Len() > 0 {
				parts = append(parts, ast.InterpPart{Text: textBuf.String()})
				textBuf.Reset()
			}
			depth := 1
			j := i + 1
			for j < len(body) && depth > 0 {
				if body[j] == '{' {
					depth++
				} else if body[j] == '}' {
					depth--
					if depth == 0 {
						break
					}
				}
				j++
			}
			sub := body[i+1 : j]
			subParser := New(sub, t.Span.FileID)
			e := subParser.parseExpr()
			parts = append(parts, ast.InterpPart{Expr: e})
			i = j + 1
			continue
		}
		textBuf.WriteByte(c)
		i++
	}
	if textBuf.Len() > 0 {
		parts = append(parts, ast.InterpPart{Text: textBuf.String()})
	}
	return ast.InterpString{Parts: parts}
}

func unescapeOne(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	default:
		return c
	}
}

func parseIntLit(lit string) int64 {
	var v int64
	for _, c := range lit {
		if c == '_' {
			continue
		}
		v = v*10 + int64(c-'0')
	}
	return v
}

func parseHexLit(lit string) int64 {
	var v int64
	s := lit[2:] // strip "0x"
	for _, c := range s {
		if c == '_' {
			continue
		}
		v <<= 4
		switch {
		case c >= '0' && c <= '9':
			v |= int64(c - '0')
		case c >= 'a' && c <= 'f':
			v |= int64(c-'a') + 10
		case c >= 'A' && c <= 'F':
			v |= int64(c-'A') + 10
		}
	}
	return v
}

func parseFloatLit(lit string) float64 {
	var intPart, fracPart int64
	var fracDigits int
	var expPart int64
	expNeg := false
	i := 0
	for i < len(lit) && lit[i] != '.' && lit[i] != 'e' && lit[i] != 'E' {
		if lit[i] != '_' {
			intPart = intPart*10 + int64(lit[i]-'0')
		}
		i++
	}
	if i < len(lit) && lit[i] == '.' {
		i++
		for i < len(lit) && lit[i] != 'e' && lit[i] != 'E' {
			if lit[i] != '_' {
				fracPart = fracPart*10 + int64(lit[i]-'0')
				fracDigits++
			}
			i++
		}
	}
	if i < len(lit) && (lit[i] == 'e' || lit[i] == 'E') {
		i++
		if i < len(lit) && (lit[i] == '+' || lit[i] == '-') {
			expNeg = lit[i] == '-'
			i++
		}
		for i < len(lit) {
			expPart = expPart*10 + int64(lit[i]-'0')
			i++
		}
	}
	result := float64(intPart)
	if fracDigits > 0 {
		div := 1.0
		for k := 0; k < fracDigits; k++ {
			div *= 10
		}
		result += float64(fracPart) / div
	}
	if expPart > 0 {
		scale := 1.0
		for k := int64(0); k < expPart; k++ {
			scale *= 10
		}
		if expNeg {
			result /= scale
		} else {
			result *= scale
		}
	}
	return result
}
