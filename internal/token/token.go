// Package token defines the Pluto lexical token kinds, mirroring the shape
// of Go's own go/token package the teacher imports directly (interp.go's
// token.Pos/token.FileSet), adapted to Pluto's own operator and literal set
// (spec.md §4.A).
package token

import "github.com/mkerian10/pluto/internal/ast"

type Kind int

const (
	EOF Kind = iota
	Illegal

	Ident
	IntLit
	FloatLit
	HexLit
	StringLit
	InterpStringLit
	ByteLit
	True
	False

	// Keywords
	KwFn
	KwClass
	KwEnum
	KwTrait
	KwError
	KwExtern
	KwApp
	KwStage
	KwTest
	KwLet
	KwIf
	KwElse
	KwWhile
	KwFor
	KwIn
	KwReturn
	KwRaise
	KwRaises
	KwCatch
	KwMatch
	KwSelect
	KwSpawn
	KwScope
	KwAmbient
	KwRequires
	KwEnsures
	KwInvariant
	KwOld
	KwAs
	KwImport
	KwRust
	KwOverride
	KwPrivate
	KwDefault
	KwSelf
	KwNone

	// Punctuation / operators
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Comma
	Dot
	DotDot
	DotDotEq
	Colon
	Semicolon
	Arrow    // ->
	FatArrow // =>
	Question // ?
	Bang     // !
	Assign
	Plus
	Minus
	Star
	Slash
	Percent
	Eq
	Neq
	Lt
	Lte
	Gt
	Gte
	AmpAmp
	PipePipe
	Amp
	Pipe
	Caret
	Tilde
	Shl
	Shr
	Newline
)

// Token is one lexed token with its span into the file being scanned.
type Token struct {
	Kind Kind
	Lit  string
	Span ast.Span
}

var keywords = map[string]Kind{
	"fn": KwFn, "class": KwClass, "enum": KwEnum, "trait": KwTrait,
	"error": KwError, "extern": KwExtern, "app": KwApp, "stage": KwStage,
	"test": KwTest, "let": KwLet, "if": KwIf, "else": KwElse,
	"while": KwWhile, "for": KwFor, "in": KwIn, "return": KwReturn,
	"raise": KwRaise, "raises": KwRaises, "catch": KwCatch, "match": KwMatch,
	"select": KwSelect, "spawn": KwSpawn, "scope": KwScope, "ambient": KwAmbient,
	"requires": KwRequires, "ensures": KwEnsures, "invariant": KwInvariant,
	"old": KwOld, "as": KwAs, "import": KwImport, "rust": KwRust,
	"override": KwOverride, "private": KwPrivate, "default": KwDefault,
	"self": KwSelf, "none": KwNone, "true": True, "false": False,
}

// Lookup resolves an identifier to its keyword Kind, or Ident if it is a
// plain identifier.
func Lookup(ident string) Kind {
	if k, ok := keywords[ident]; ok {
		return k
	}
	return Ident
}
