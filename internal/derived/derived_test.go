package derived

import (
	"bytes"
	"errors"
	"testing"

	"github.com/mkerian10/pluto/internal/ast"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	prog := ast.NewProgram()
	fn := &ast.Function{
		ID:   ast.NewID(),
		Name: ast.NewSpanned("main", ast.Span{}),
	}
	prog.Functions = append(prog.Functions, ast.Spanned[*ast.Function]{Node: fn})

	info := NewDerivedInfo()
	info.FnSignatures[fn.ID.String()] = FnSignature{ReturnType: ast.Basic(ast.TVoid)}
	info.DIOrder = []string{"a", "b"}

	data, err := Encode(prog, "fn main() {}", info)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	cont, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if cont.Source != "fn main() {}" {
		t.Fatalf("source mismatch: %q", cont.Source)
	}
	if len(cont.Program.Functions) != 1 || cont.Program.Functions[0].Node.Name.Node != "main" {
		t.Fatalf("program round-trip mismatch: %+v", cont.Program.Functions)
	}
	if len(cont.Info.DIOrder) != 2 {
		t.Fatalf("derived info round-trip mismatch: %+v", cont.Info.DIOrder)
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	_, err := Decode([]byte("not a container"))
	if !errors.Is(err, ErrBadMagic) {
		t.Fatalf("expected ErrBadMagic, got %v", err)
	}
}

func TestDecodeDetectsStaleHash(t *testing.T) {
	prog := ast.NewProgram()
	data, err := Encode(prog, "original", NewDerivedInfo())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	// Flip a byte inside the source frame to simulate an edited source file
	// whose derived data hasn't been regenerated yet.
	idx := bytes.Index(data, []byte("original"))
	if idx < 0 {
		t.Fatalf("source text not found in encoded container")
	}
	data[idx] ^= 0xFF

	_, err = Decode(data)
	if !errors.Is(err, ErrStaleHash) {
		t.Fatalf("expected ErrStaleHash, got %v", err)
	}
}
