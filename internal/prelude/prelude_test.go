package prelude

import (
	"testing"

	"github.com/mkerian10/pluto/internal/ast"
)

func TestEnumNamesIncludesOption(t *testing.T) {
	names := EnumNames()
	if _, ok := names["Option"]; !ok {
		t.Fatalf("expected prelude to declare Option, got %v", names)
	}
}

func TestInjectPrependsEnums(t *testing.T) {
	prog := ast.NewProgram()
	if err := Inject(prog); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prog.Enums) != 1 || prog.Enums[0].Node.Name.Node != "Option" {
		t.Fatalf("expected Option enum prepended, got %+v", prog.Enums)
	}
}

func TestInjectRejectsNameCollision(t *testing.T) {
	prog := ast.NewProgram()
	prog.Enums = append(prog.Enums, ast.NewSpanned(&ast.Enum{
		Name: ast.NewSpanned("Option", ast.Span{}),
	}, ast.Span{}))
	if err := Inject(prog); err == nil {
		t.Fatal("expected collision error, got nil")
	}
}
