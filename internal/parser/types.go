package parser

import (
	"github.com/mkerian10/pluto/internal/ast"
	"github.com/mkerian10/pluto/internal/token"
)

// parseType parses a type expression: a basic name, `[T]` array, `{T}` set,
// `{K: V}` map, `chan<T>`, `task<T>`, a closure type `(T, T) -> T`, or a
// generic instantiation `Name<T, T>`. Angle-bracket nesting bumps the
// lexer's SetAngleDepth so `>>` splits correctly (§4.A).
func (p *Parser) parseType() *ast.Type {
	switch p.cur().Kind {
	case token.LBracket:
		p.advance()
		elem := p.parseType()
		p.expect(token.RBracket, "']'")
		return ast.ArrayOf(elem)
	case token.LBrace:
		p.advance()
		first := p.parseType()
		if _, ok := p.accept(token.Colon); ok {
			val := p.parseType()
			p.expect(token.RBrace, "'}'")
			return ast.MapOf(first, val)
		}
		p.expect(token.RBrace, "'}'")
		return ast.SetOf(first)
	case token.LParen:
		p.advance()
		var params []*ast.Type
		for !p.at(token.RParen) {
			params = append(params, p.parseType())
			if _, ok := p.accept(token.Comma); !ok {
				break
			}
		}
		p.expect(token.RParen, "')'")
		p.expect(token.Arrow, "'->'")
		ret := p.parseType()
		return ast.ClosureType(params, ret)
	case token.Ident:
		name := p.advance().Lit
		switch name {
		case "int":
			return ast.Basic(ast.TInt)
		case "float":
			return ast.Basic(ast.TFloat)
		case "bool":
			return ast.Basic(ast.TBool)
		case "byte":
			return ast.Basic(ast.TByte)
		case "string":
			return ast.Basic(ast.TString)
		case "void":
			return ast.Basic(ast.TVoid)
		case "chan":
			return ast.ChanOf(p.parseAngleArg())
		case "task":
			return ast.TaskOf(p.parseAngleArg())
		}
		if p.at(token.Lt) {
			p.enterAngle()
			var args []*ast.Type
			for !p.at(token.Gt) {
				args = append(args, p.parseType())
				if _, ok := p.accept(token.Comma); !ok {
					break
				}
			}
			p.exitAngle()
			p.expect(token.Gt, "'>'")
			return ast.Generic(name, args)
		}
		return ast.Named(ast.TClass, name, ast.NoID())
	default:
		p.errorf(p.cur().Span, "expected a type")
		p.advance()
		return ast.Basic(ast.TUnknown)
	}
}

// parseAngleArg parses the single `<T>` argument of chan<T>/task<T>.
func (p *Parser) parseAngleArg() *ast.Type {
	p.expect(token.Lt, "'<'")
	p.enterAngle()
	t := p.parseType()
	p.exitAngle()
	p.expect(token.Gt, "'>'")
	return t
}
