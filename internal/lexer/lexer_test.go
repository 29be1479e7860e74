package lexer

import (
	"testing"

	"github.com/mkerian10/pluto/internal/token"
)

func kinds(toks []token.Token) []token.Kind {
	ks := make([]token.Kind, len(toks))
	for i, t := range toks {
		ks[i] = t.Kind
	}
	return ks
}

func TestLexBasicArithmetic(t *testing.T) {
	toks := Lex("1+1", 0)
	got := kinds(toks)
	want := []token.Kind{token.IntLit, token.Plus, token.IntLit, token.EOF}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %v want %v", i, got[i], want[i])
		}
	}
}

func TestLexHexLiteral(t *testing.T) {
	toks := Lex("0xFF_00", 0)
	if toks[0].Kind != token.HexLit || toks[0].Lit != "0xFF_00" {
		t.Fatalf("got %+v", toks[0])
	}
}

func TestLexShrSplitsInAngleContext(t *testing.T) {
	l := New("Box<Box<int>>", 0)
	var got []token.Kind
	for {
		if got != nil && got[len(got)-1] == token.Lt {
			l.SetAngleDepth(l.angleDepth + 1)
		}
		tok := l.Next()
		got = append(got, tok.Kind)
		if tok.Kind == token.Gt {
			if l.angleDepth > 0 {
				l.SetAngleDepth(l.angleDepth - 1)
			}
		}
		if tok.Kind == token.EOF {
			break
		}
	}
	// Inside angle-bracket context, ">>" must lex as two '>' tokens, not Shr.
	count := 0
	for _, k := range got {
		if k == token.Gt {
			count++
		}
		if k == token.Shr {
			t.Fatalf("expected split '>' '>' tokens, got a Shr token: %v", got)
		}
	}
	if count != 2 {
		t.Fatalf("expected 2 '>' tokens, got %d: %v", count, got)
	}
}

func TestLexRangeOperators(t *testing.T) {
	toks := Lex("0..10 0..=10", 0)
	var kindsFound []token.Kind
	for _, tk := range toks {
		if tk.Kind == token.DotDot || tk.Kind == token.DotDotEq {
			kindsFound = append(kindsFound, tk.Kind)
		}
	}
	if len(kindsFound) != 2 || kindsFound[0] != token.DotDot || kindsFound[1] != token.DotDotEq {
		t.Fatalf("got %v", kindsFound)
	}
}

func TestLexInterpolatedString(t *testing.T) {
	toks := Lex(`f"hi {name}!"`, 0)
	if toks[0].Kind != token.InterpStringLit {
		t.Fatalf("got %+v", toks[0])
	}
}

func TestLexStringEscapes(t *testing.T) {
	toks := Lex(`"a\nb"`, 0)
	if toks[0].Lit != "a\nb" {
		t.Fatalf("got %q", toks[0].Lit)
	}
}

func TestLexKeywordsVsIdent(t *testing.T) {
	toks := Lex("fn foo", 0)
	if toks[0].Kind != token.KwFn || toks[1].Kind != token.Ident {
		t.Fatalf("got %+v", toks)
	}
}

func TestLexNewlineIsSignificant(t *testing.T) {
	toks := Lex("let x = 1\nlet y = 2", 0)
	found := false
	for _, tk := range toks {
		if tk.Kind == token.Newline {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a Newline token to separate statements")
	}
}
