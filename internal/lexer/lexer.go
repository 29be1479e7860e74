// Package lexer scans Pluto source text into a token.Token stream.
//
// Structurally this follows the teacher's use of go/scanner in spirit (one
// forward-only cursor over the source text producing span-carrying tokens)
// but is hand-written rather than reusing go/scanner, since Pluto's literal
// grammar (byte literals, hex literals with `_` separators, f-string
// interpolation, `..=` ranges) has no analogue in Go's own lexical grammar.
package lexer

import (
	"fmt"
	"strings"

	"github.com/mkerian10/pluto/internal/ast"
	"github.com/mkerian10/pluto/internal/token"
)

// Error is a span-carrying syntax error produced by the lexer. Per spec.md
// §4.A, no recovery is attempted inside a single token — the caller (the
// parser) is responsible for skipping to the next top-level declaration.
type Error struct {
	Msg  string
	Span ast.Span
}

func (e *Error) Error() string { return fmt.Sprintf("lex error at %s: %s", e.Span, e.Msg) }

type Lexer struct {
	src    string
	fileID uint32
	pos    int // byte offset of the next unread rune
	errs   []*Error

	// angleDepth tracks nested `<...>` type-argument contexts so `>>` can
	// be split into two `>` tokens per spec.md §4.A's ambiguity rule.
	angleDepth int
}

func New(src string, fileID uint32) *Lexer {
	return &Lexer{src: src, fileID: fileID}
}

func (l *Lexer) Errors() []*Error { return l.errs }

func (l *Lexer) errorf(start int, format string, args ...any) {
	l.errs = append(l.errs, &Error{Msg: fmt.Sprintf(format, args...), Span: l.span(start)})
}

func (l *Lexer) span(start int) ast.Span {
	return ast.Span{Start: start, End: l.pos, FileID: l.fileID}
}

func (l *Lexer) peek() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekAt(off int) byte {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

func (l *Lexer) advance() byte {
	c := l.src[l.pos]
	l.pos++
	return c
}

// Lex scans the entire source into a token slice terminated by an EOF
// token. Lexer-level failures do not halt the scan, so the parser can still
// see as much of the token stream as possible; Lex discards its Lexer, so
// callers that need those failures use New, Next and Errors() instead.
func Lex(src string, fileID uint32) []token.Token {
	l := New(src, fileID)
	var toks []token.Token
	for {
		t := l.Next()
		toks = append(toks, t)
		if t.Kind == token.EOF {
			break
		}
	}
	return toks
}

func isDigit(c byte) bool    { return c >= '0' && c <= '9' }
func isHexDigit(c byte) bool { return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') }
func isAlpha(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
func isAlnum(c byte) bool { return isAlpha(c) || isDigit(c) }

func (l *Lexer) skipWhitespaceAndComments() {
	for l.pos < len(l.src) {
		c := l.peek()
		switch {
		case c == ' ' || c == '\t' || c == '\r':
			l.pos++
		case c == '/' && l.peekAt(1) == '/':
			for l.pos < len(l.src) && l.peek() != '\n' {
				l.pos++
			}
		case c == '/' && l.peekAt(1) == '*':
			l.pos += 2
			for l.pos < len(l.src) && !(l.peek() == '*' && l.peekAt(1) == '/') {
				l.pos++
			}
			if l.pos < len(l.src) {
				l.pos += 2
			}
		default:
			return
		}
	}
}

// Next scans and returns the next token. Blocks are brace-delimited and
// statements are newline- or semicolon-terminated per §4.A, so Newline is
// itself a significant token the parser consumes as a statement
// terminator (it is not just whitespace).
func (l *Lexer) Next() token.Token {
	l.skipWhitespaceAndComments()
	start := l.pos
	if l.pos >= len(l.src) {
		return token.Token{Kind: token.EOF, Span: l.span(start)}
	}

	c := l.peek()

	if c == '\n' {
		l.advance()
		return token.Token{Kind: token.Newline, Span: l.span(start)}
	}

	if c == 'f' && l.peekAt(1) == '"' {
		l.advance()
		return l.lexInterpString(start)
	}
	if isAlpha(c) {
		return l.lexIdentOrKeyword(start)
	}
	if isDigit(c) {
		return l.lexNumber(start)
	}
	if c == '"' {
		return l.lexString(start)
	}

	return l.lexOperator(start)
}

func (l *Lexer) lexIdentOrKeyword(start int) token.Token {
	for l.pos < len(l.src) && isAlnum(l.peek()) {
		l.pos++
	}
	lit := l.src[start:l.pos]
	kind := token.Lookup(lit)
	return token.Token{Kind: kind, Lit: lit, Span: l.span(start)}
}

// lexNumber handles int, float, hex (with `_` separators), and the
// `N as byte` narrowing form is left to the parser (it sees an IntLit
// followed by `as`/`byte` tokens).
func (l *Lexer) lexNumber(start int) token.Token {
	if l.peek() == '0' && (l.peekAt(1) == 'x' || l.peekAt(1) == 'X') {
		l.pos += 2
		for l.pos < len(l.src) && (isHexDigit(l.peek()) || l.peek() == '_') {
			l.pos++
		}
		return token.Token{Kind: token.HexLit, Lit: l.src[start:l.pos], Span: l.span(start)}
	}

	isFloat := false
	for l.pos < len(l.src) && (isDigit(l.peek()) || l.peek() == '_') {
		l.pos++
	}
	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		isFloat = true
		l.pos++
		for l.pos < len(l.src) && (isDigit(l.peek()) || l.peek() == '_') {
			l.pos++
		}
	}
	if l.peek() == 'e' || l.peek() == 'E' {
		save := l.pos
		l.pos++
		if l.peek() == '+' || l.peek() == '-' {
			l.pos++
		}
		if isDigit(l.peek()) {
			isFloat = true
			for l.pos < len(l.src) && isDigit(l.peek()) {
				l.pos++
			}
		} else {
			l.pos = save
		}
	}
	kind := token.IntLit
	if isFloat {
		kind = token.FloatLit
	}
	return token.Token{Kind: kind, Lit: l.src[start:l.pos], Span: l.span(start)}
}

func (l *Lexer) lexString(start int) token.Token {
	l.advance() // opening quote
	var sb strings.Builder
	for l.pos < len(l.src) && l.peek() != '"' {
		c := l.advance()
		if c == '\\' && l.pos < len(l.src) {
			sb.WriteByte(c)
			sb.WriteByte(l.advance())
			continue
		}
		sb.WriteByte(c)
	}
	if l.pos >= len(l.src) {
		l.errorf(start, "unterminated string literal")
	} else {
		l.advance() // closing quote
	}
	return token.Token{Kind: token.StringLit, Lit: unescape(sb.String()), Span: l.span(start)}
}

// lexInterpString scans an f"...{expr}..." literal as a single raw token;
// the parser re-lexes/parses the embedded `{expr}` spans (keeps the lexer
// a single forward pass with no nested-lexer recursion).
func (l *Lexer) lexInterpString(start int) token.Token {
	l.advance() // opening quote
	depth := 0
	for l.pos < len(l.src) {
		c := l.peek()
		if c == '"' && depth == 0 {
			break
		}
		if c == '\\' {
			l.pos += 2
			continue
		}
		if c == '{' {
			depth++
		} else if c == '}' && depth > 0 {
			depth--
		}
		l.pos++
	}
	if l.pos >= len(l.src) {
		l.errorf(start, "unterminated interpolated string literal")
	} else {
		l.advance()
	}
	return token.Token{Kind: token.InterpStringLit, Lit: l.src[start:l.pos], Span: l.span(start)}
}

func unescape(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			switch s[i] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case '0':
				sb.WriteByte(0)
			case '"':
				sb.WriteByte('"')
			case '\\':
				sb.WriteByte('\\')
			default:
				sb.WriteByte(s[i])
			}
			continue
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

func (l *Lexer) lexOperator(start int) token.Token {
	c := l.advance()
	two := func(second byte, k2, k1 token.Kind) token.Token {
		if l.peek() == second {
			l.advance()
			return token.Token{Kind: k2, Span: l.span(start)}
		}
		return token.Token{Kind: k1, Span: l.span(start)}
	}

	switch c {
	case '(':
		return token.Token{Kind: token.LParen, Span: l.span(start)}
	case ')':
		return token.Token{Kind: token.RParen, Span: l.span(start)}
	case '{':
		return token.Token{Kind: token.LBrace, Span: l.span(start)}
	case '}':
		return token.Token{Kind: token.RBrace, Span: l.span(start)}
	case '[':
		return token.Token{Kind: token.LBracket, Span: l.span(start)}
	case ']':
		return token.Token{Kind: token.RBracket, Span: l.span(start)}
	case ',':
		return token.Token{Kind: token.Comma, Span: l.span(start)}
	case ';':
		return token.Token{Kind: token.Semicolon, Span: l.span(start)}
	case ':':
		return token.Token{Kind: token.Colon, Span: l.span(start)}
	case '~':
		return token.Token{Kind: token.Tilde, Span: l.span(start)}
	case '.':
		if l.peek() == '.' {
			l.advance()
			if l.peek() == '=' {
				l.advance()
				return token.Token{Kind: token.DotDotEq, Span: l.span(start)}
			}
			return token.Token{Kind: token.DotDot, Span: l.span(start)}
		}
		return token.Token{Kind: token.Dot, Span: l.span(start)}
	case '?':
		return token.Token{Kind: token.Question, Span: l.span(start)}
	case '!':
		return two('=', token.Neq, token.Bang)
	case '=':
		if l.peek() == '=' {
			l.advance()
			return token.Token{Kind: token.Eq, Span: l.span(start)}
		}
		if l.peek() == '>' {
			l.advance()
			return token.Token{Kind: token.FatArrow, Span: l.span(start)}
		}
		return token.Token{Kind: token.Assign, Span: l.span(start)}
	case '+':
		return token.Token{Kind: token.Plus, Span: l.span(start)}
	case '-':
		if l.peek() == '>' {
			l.advance()
			return token.Token{Kind: token.Arrow, Span: l.span(start)}
		}
		return token.Token{Kind: token.Minus, Span: l.span(start)}
	case '*':
		return token.Token{Kind: token.Star, Span: l.span(start)}
	case '/':
		return token.Token{Kind: token.Slash, Span: l.span(start)}
	case '%':
		return token.Token{Kind: token.Percent, Span: l.span(start)}
	case '<':
		if l.peek() == '<' {
			l.advance()
			return token.Token{Kind: token.Shl, Span: l.span(start)}
		}
		return two('=', token.Lte, token.Lt)
	case '>':
		// Ambiguity rule (§4.A): inside type-argument contexts, `>>`
		// always lexes as two separate `>` tokens rather than Shr. The
		// parser tracks angle-bracket depth and tells us via SetAngleDepth;
		// outside that context we still prefer the greedy `>=`/`>>` forms.
		if l.angleDepth > 0 {
			return two('=', token.Gte, token.Gt)
		}
		if l.peek() == '>' {
			l.advance()
			return token.Token{Kind: token.Shr, Span: l.span(start)}
		}
		return two('=', token.Gte, token.Gt)
	case '&':
		return two('&', token.AmpAmp, token.Amp)
	case '|':
		return two('|', token.PipePipe, token.Pipe)
	case '^':
		return token.Token{Kind: token.Caret, Span: l.span(start)}
	}

	l.errorf(start, "unexpected character %q", c)
	return token.Token{Kind: token.Illegal, Lit: string(c), Span: l.span(start)}
}

// SetAngleDepth lets the parser tell the lexer it is inside (or has left)
// a type-argument context, so `>>` lexes per the §4.A ambiguity rule. The
// parser calls this as it enters/exits `Name<...>` productions.
func (l *Lexer) SetAngleDepth(depth int) { l.angleDepth = depth }

// Mark/Reset let the parser backtrack a speculative parse (used to
// disambiguate `name<Type>(...)` generic instantiation from a `<`
// comparison — see parser.tryParseTypeArgs). Reset also truncates any
// lexer errors recorded during the abandoned attempt.
func (l *Lexer) Mark() (pos int, errCount int) { return l.pos, len(l.errs) }

func (l *Lexer) Reset(pos, errCount int) {
	l.pos = pos
	l.errs = l.errs[:errCount]
}
