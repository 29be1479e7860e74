package parser

import (
	"github.com/mkerian10/pluto/internal/ast"
	"github.com/mkerian10/pluto/internal/token"
)

func (p *Parser) parseStmt() ast.Spanned[ast.Stmt] {
	start := p.cur().Span
	var s ast.Stmt
	switch p.cur().Kind {
	case token.KwLet:
		s = p.parseLetStmt()
	case token.KwIf:
		s = p.parseIfStmt()
	case token.KwWhile:
		s = p.parseWhileStmt()
	case token.KwFor:
		s = p.parseForStmt()
	case token.KwReturn:
		s = p.parseReturnStmt()
	case token.KwRaise:
		s = p.parseRaiseStmt()
	case token.KwMatch:
		s = p.parseMatchStmt()
	case token.KwSelect:
		s = p.parseSelectStmt()
	case token.KwScope:
		s = p.parseScopeStmt()
	case token.LBrace:
		s = ast.BlockStmt{Body: p.parseBlock()}
	default:
		s = p.parseExprOrAssignStmt()
	}
	return ast.NewSpanned(s, p.span(start))
}

// parseLetStmt handles both `let name = expr` and the destructuring
// `let tx, rx = chan(T, cap)` form the sender-cleanup pre-scan (§4.I) keys
// off of (ChanPair=true whenever two names are bound from a ChanMake).
func (p *Parser) parseLetStmt() ast.Stmt {
	p.expect(token.KwLet, "'let'")
	var names []string
	names = append(names, p.expect(token.Ident, "binding name").Lit)
	for p.at(token.Comma) {
		p.advance()
		names = append(names, p.expect(token.Ident, "binding name").Lit)
	}
	p.expect(token.Assign, "'='")
	val := p.parseExpr()
	_, isChan := val.(ast.ChanMake)
	return ast.LetStmt{Names: names, Value: val, ChanPair: len(names) == 2 && isChan}
}

func (p *Parser) parseIfStmt() ast.Stmt {
	p.expect(token.KwIf, "'if'")
	cond := p.parseExpr()
	then := p.parseBlock()
	var els []ast.Spanned[ast.Stmt]
	if _, ok := p.accept(token.KwElse); ok {
		if p.at(token.KwIf) {
			elseStart := p.cur().Span
			nested := p.parseIfStmt()
			els = []ast.Spanned[ast.Stmt]{ast.NewSpanned(nested, p.span(elseStart))}
		} else {
			els = p.parseBlock()
		}
	}
	return ast.IfStmt{Cond: cond, Then: then, Else: els}
}

func (p *Parser) parseWhileStmt() ast.Stmt {
	p.expect(token.KwWhile, "'while'")
	cond := p.parseExpr()
	body := p.parseBlock()
	return ast.WhileStmt{Cond: cond, Body: body}
}

func (p *Parser) parseForStmt() ast.Stmt {
	p.expect(token.KwFor, "'for'")
	binding := p.expect(token.Ident, "loop binding").Lit
	p.expect(token.KwIn, "'in'")
	iter := p.parseExpr()
	body := p.parseBlock()
	return ast.ForStmt{Binding: binding, Iterable: iter, Body: body}
}

func (p *Parser) parseReturnStmt() ast.Stmt {
	p.expect(token.KwReturn, "'return'")
	k := p.curRaw().Kind
	if k == token.Newline || k == token.Semicolon || k == token.RBrace || k == token.EOF {
		return ast.ReturnStmt{}
	}
	return ast.ReturnStmt{Value: p.parseExpr()}
}

func (p *Parser) parseRaiseStmt() ast.Stmt {
	p.expect(token.KwRaise, "'raise'")
	e := p.parseExpr()
	return ast.RaiseStmt{ErrorExpr: e, ErrorID: ast.NoID()}
}

func (p *Parser) parseMatchStmt() ast.Stmt {
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
	return ast.MatchStmt{Scrutinee: scrutinee, Arms: arms}
}

func (p *Parser) parseMatchArm() ast.MatchArm {
	pat := p.parsePattern()
	var guard ast.Expr
	if _, ok := p.accept(token.KwIf); ok {
		guard = p.parseExpr()
	}
	p.expect(token.FatArrow, "'=>'")
	var body []ast.Spanned[ast.Stmt]
	if p.at(token.LBrace) {
		body = p.parseBlock()
	} else {
		exprStart := p.cur().Span
		e := p.parseExpr()
		body = []ast.Spanned[ast.Stmt]{ast.NewSpanned(ast.Stmt(ast.ExprStmt{Expr: e}), p.span(exprStart))}
	}
	return ast.MatchArm{Pattern: pat, Guard: guard, Body: body}
}

func (p *Parser) parsePattern() ast.Pattern {
	if p.cur().Kind == token.Ident && p.cur().Lit == "_" {
		p.advance()
		return ast.WildcardPattern{}
	}
	if p.cur().Kind == token.Ident {
		// Lookahead for EnumName.Variant(bindings...) or Variant(bindings...).
		name := p.advance().Lit
		if p.at(token.Dot) {
			p.advance()
			variantTok := p.expect(token.Ident, "variant name")
			ep := ast.EnumPattern{EnumName: name, Variant: variantTok.Lit, EnumID: ast.NoID(), VariantID: ast.NoID()}
			if _, ok := p.accept(token.LParen); ok {
				for !p.at(token.RParen) {
					ep.Bindings = append(ep.Bindings, p.expect(token.Ident, "binding").Lit)
					if _, ok := p.accept(token.Comma); !ok {
						break
					}
				}
				p.expect(token.RParen, "')'")
			}
			return ep
		}
		if p.at(token.LParen) {
			ep := ast.EnumPattern{Variant: name, EnumID: ast.NoID(), VariantID: ast.NoID()}
			p.advance()
			for !p.at(token.RParen) {
				ep.Bindings = append(ep.Bindings, p.expect(token.Ident, "binding").Lit)
				if _, ok := p.accept(token.Comma); !ok {
					break
				}
			}
			p.expect(token.RParen, "')'")
			return ep
		}
		// Bare identifier binding pattern — represented as a 0-arg enum
		// pattern with a single implicit binding, matching the "catch e"
		// binding style the rest of the grammar uses for irrefutable binds.
		return ast.EnumPattern{Variant: name, Bindings: []string{name}, EnumID: ast.NoID(), VariantID: ast.NoID()}
	}
	lit := p.parseUnaryExpr()
	return ast.LiteralPattern{Expr: lit}
}

func (p *Parser) parseSelectStmt() ast.Stmt {
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
	return ast.SelectStmt{Arms: arms, HasDefault: hasDefault, Default: def}
}

func (p *Parser) parseSelectArm() ast.SelectArm {
	binding := ""
	if p.at(token.KwLet) {
		p.advance()
		binding = p.expect(token.Ident, "receive binding").Lit
		p.expect(token.Assign, "'='")
	}
	channel := p.parseUnaryExpr()
	op := ast.SelectRecv
	var sendVal ast.Expr
	if _, ok := p.accept(token.Assign); ok {
		op = ast.SelectSend
		sendVal = p.parseExpr()
	}
	p.expect(token.FatArrow, "'=>'")
	body := p.parseBlock()
	return ast.SelectArm{Op: op, Channel: channel, SendValue: sendVal, Binding: binding, Body: body}
}

func (p *Parser) parseScopeStmt() ast.Stmt {
	p.expect(token.KwScope, "'scope'")
	var seeds []ast.Expr
	if _, ok := p.accept(token.LParen); ok {
		for !p.at(token.RParen) {
			seeds = append(seeds, p.parseExpr())
			if _, ok := p.accept(token.Comma); !ok {
				break
			}
		}
		p.expect(token.RParen, "')'")
	}
	body := p.parseBlock()
	return ast.ScopeStmt{Seeds: seeds, Body: body}
}

func (p *Parser) parseExprOrAssignStmt() ast.Stmt {
	e := p.parseExpr()
	if _, ok := p.accept(token.Assign); ok {
		val := p.parseExpr()
		return ast.AssignStmt{Target: e, Value: val}
	}
	return ast.ExprStmt{Expr: e}
}
