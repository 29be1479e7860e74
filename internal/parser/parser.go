// Package parser implements the Pluto recursive-descent parser: token
// stream in, *ast.Program out, with a fresh ast.ID minted for every
// nameable declaration as it is parsed (spec.md §4.A).
//
// Shape grounded on the teacher's own eval pipeline (interp.go's
// compileSrc → CFG build), generalised from "one file, incremental" to
// "one file, whole-program AST" since Pluto's later passes (module
// flattening, monomorphisation) need a complete tree rather than an
// incrementally-extended one.
package parser

import (
	"fmt"

	"github.com/mkerian10/pluto/internal/ast"
	"github.com/mkerian10/pluto/internal/lexer"
	"github.com/mkerian10/pluto/internal/token"
)

// Error is a syntax-level parse failure. Per §4.A, no recovery is
// attempted beyond skipping to the next top-level fn/class/etc declaration.
type Error struct {
	Msg  string
	Span ast.Span
}

func (e *Error) Error() string { return fmt.Sprintf("parse error at %s: %s", e.Span, e.Msg) }

type Parser struct {
	lex    *lexer.Lexer
	buf    []token.Token // small on-demand lookahead buffer
	fileID uint32
	errs   []*Error

	angleDepth int
	lastSpan   ast.Span // span of the most recently consumed token
	consumed   int      // monotonic count of tokens popped, used to detect stuck loops

	// inPrelude marks a parser built by NewForPrelude. The parser itself
	// performs no name-collision checks, so nothing reads the flag;
	// collisions are checked by internal/prelude.Inject.
	inPrelude bool
}

// New builds a parser that drives the lexer token-by-token (rather than
// pre-lexing the whole file), since the angle-bracket ">>"-splitting rule
// needs the parser to tell the lexer, in real time, when it has entered or
// left a `<...>` type-argument context (§4.A).
func New(src string, fileID uint32) *Parser {
	return &Parser{lex: lexer.New(src, fileID), fileID: fileID}
}

// NewForPrelude builds the parser for the embedded prelude source; it
// parses exactly like New and only sets inPrelude (mirrors
// original_source/src/prelude.rs's Parser::new_without_prelude).
func NewForPrelude(src string, fileID uint32) *Parser {
	p := New(src, fileID)
	p.inPrelude = true
	return p
}

func (p *Parser) Errors() []*Error { return p.errs }

func (p *Parser) errorf(span ast.Span, format string, args ...any) {
	p.errs = append(p.errs, &Error{Msg: fmt.Sprintf(format, args...), Span: span})
}

// fill ensures the lookahead buffer holds at least n tokens.
func (p *Parser) fill(n int) {
	for len(p.buf) < n {
		p.buf = append(p.buf, p.lex.Next())
	}
}

func (p *Parser) peekRawAt(i int) token.Token {
	p.fill(i + 1)
	return p.buf[i]
}

// cur returns the next significant (non-Newline) token without consuming it.
func (p *Parser) cur() token.Token {
	i := 0
	for {
		t := p.peekRawAt(i)
		if t.Kind != token.Newline {
			return t
		}
		i++
	}
}

// curRaw peeks the immediate next token without skipping newlines — used
// where newline is itself significant (statement termination).
func (p *Parser) curRaw() token.Token {
	return p.peekRawAt(0)
}

func (p *Parser) popFront() token.Token {
	p.fill(1)
	t := p.buf[0]
	p.buf = p.buf[1:]
	p.lastSpan = t.Span
	p.consumed++
	return t
}

func (p *Parser) skipNewlines(required bool) {
	for p.curRaw().Kind == token.Newline {
		p.popFront()
	}
	_ = required
}

func (p *Parser) advance() token.Token {
	p.skipNewlines(false)
	return p.popFront()
}

func (p *Parser) at(k token.Kind) bool { return p.cur().Kind == k }

func (p *Parser) accept(k token.Kind) (token.Token, bool) {
	if p.at(k) {
		return p.advance(), true
	}
	return token.Token{}, false
}

func (p *Parser) expect(k token.Kind, what string) token.Token {
	t := p.cur()
	if t.Kind != k {
		p.errorf(t.Span, "expected %s", what)
		return t
	}
	return p.advance()
}

// skipStatementTerminator consumes one or more newlines/semicolons,
// per §4.A's "newline- or semicolon-terminated" rule.
func (p *Parser) skipStatementTerminator() {
	for {
		k := p.curRaw().Kind
		if k == token.Newline || k == token.Semicolon {
			p.popFront()
			continue
		}
		break
	}
}

// span builds the full span of a production that began at start, ending at
// the most recently consumed token.
func (p *Parser) span(start ast.Span) ast.Span {
	return ast.Span{Start: start.Start, End: p.lastSpan.End, FileID: p.fileID}
}

// ParseProgram parses a whole file into a *ast.Program. Failures from a
// single declaration are recorded and parsing resumes at the next
// recognised top-level keyword, matching §4.A's "skip to next top-level
// fn/class/etc" recovery rule.
func (p *Parser) ParseProgram() (*ast.Program, []*Error) {
	prog := ast.NewProgram()
	for {
		p.skipNewlines(false)
		if p.at(token.EOF) {
			break
		}
		before := p.consumed
		p.parseTopLevel(prog)
		if p.consumed == before {
			// Nothing consumed — avoid an infinite loop on unexpected input.
			p.errorf(p.cur().Span, "unexpected token %q", p.cur().Lit)
			p.advance()
		}
	}
	return prog, p.errs
}

func (p *Parser) parseTopLevel(prog *ast.Program) {
	switch p.cur().Kind {
	case token.KwImport:
		p.parseImport()
	case token.KwFn:
		prog.Functions = append(prog.Functions, p.parseFunction(false))
	case token.KwClass:
		prog.Classes = append(prog.Classes, p.parseClass())
	case token.KwEnum:
		prog.Enums = append(prog.Enums, p.parseEnum())
	case token.KwTrait:
		prog.Traits = append(prog.Traits, p.parseTrait())
	case token.KwError:
		prog.Errors = append(prog.Errors, p.parseErrorDecl())
	case token.KwExtern:
		p.parseExtern(prog)
	case token.KwApp:
		app := p.parseApp()
		prog.App = &app
	case token.KwStage:
		prog.Stages = append(prog.Stages, p.parseStage())
	case token.KwTest:
		prog.Tests = append(prog.Tests, p.parseTest())
	default:
		p.errorf(p.cur().Span, "expected a top-level declaration")
		p.advance()
	}
	p.skipStatementTerminator()
}

func (p *Parser) parseImport() {
	p.advance() // 'import'
	p.parseIdentPath()
}

// parseIdentPath parses a dotted identifier path (module.sub.Name) and
// returns the joined string.
func (p *Parser) parseIdentPath() string {
	name := p.expect(token.Ident, "identifier").Lit
	for p.at(token.Dot) {
		p.advance()
		name += "." + p.expect(token.Ident, "identifier").Lit
	}
	return name
}

// enterAngle/exitAngle coordinate with the lexer's ">>"-splitting rule
// (§4.A): every time the parser commits to being inside a `<...>`
// type-argument list it bumps the lexer's angle-bracket depth counter so a
// following ">>" lexes as two Gt tokens instead of one Shr token. This only
// works because the parser drives the lexer one token at a time (see New) —
// the depth change takes effect on the very next Next() call, before any
// lookahead has a chance to lex past the boundary under the old depth.
func (p *Parser) enterAngle() {
	p.angleDepth++
	p.lex.SetAngleDepth(p.angleDepth)
}

func (p *Parser) exitAngle() {
	p.angleDepth--
	if p.angleDepth < 0 {
		p.angleDepth = 0
	}
	p.lex.SetAngleDepth(p.angleDepth)
}

// parserMark is a speculative-parse checkpoint, used to disambiguate
// `name<Type, ...>(...)` generic instantiation syntax from a `<` comparison
// expression: try the generic-args parse, and roll everything — lexer
// cursor, lookahead buffer, angle depth, and any errors recorded along the
// way — back to the checkpoint if it turns out not to close with '>'.
type parserMark struct {
	lexPos, lexErrs int
	buf             []token.Token
	angleDepth      int
	errCount        int
	lastSpan        ast.Span
	consumed        int
}

func (p *Parser) mark() parserMark {
	lp, le := p.lex.Mark()
	bufCopy := make([]token.Token, len(p.buf))
	copy(bufCopy, p.buf)
	return parserMark{
		lexPos: lp, lexErrs: le,
		buf: bufCopy, angleDepth: p.angleDepth,
		errCount: len(p.errs), lastSpan: p.lastSpan, consumed: p.consumed,
	}
}

func (p *Parser) restore(m parserMark) {
	p.lex.Reset(m.lexPos, m.lexErrs)
	p.buf = m.buf
	p.angleDepth = m.angleDepth
	p.lex.SetAngleDepth(m.angleDepth)
	p.errs = p.errs[:m.errCount]
	p.lastSpan = m.lastSpan
	p.consumed = m.consumed
}
