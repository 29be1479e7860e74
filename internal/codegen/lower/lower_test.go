package lower

import (
	"strings"
	"testing"

	"github.com/mkerian10/pluto/internal/ast"
	"github.com/mkerian10/pluto/internal/codegen/backend/text"
)

// add(a, b) { return a + b } lowers to a single entry block ending in a
// return of the addition result.
func TestLowerSimpleFunction(t *testing.T) {
	fn := &ast.Function{
		ID:   ast.NewID(),
		Name: ast.NewSpanned("add", ast.Span{}),
		Params: []ast.Param{
			{ID: ast.NewID(), Name: "a", Type: ast.Basic(ast.TInt)},
			{ID: ast.NewID(), Name: "b", Type: ast.Basic(ast.TInt)},
		},
		Return: ast.Basic(ast.TInt),
		Body: []ast.Spanned[ast.Stmt]{
			ast.NewSpanned[ast.Stmt](ast.ReturnStmt{
				Value: ast.BinOp{Op: ast.OpAdd, LHS: ast.Ident{Name: "a"}, RHS: ast.Ident{Name: "b"}},
			}, ast.Span{}),
		},
	}
	prog := ast.NewProgram()
	prog.Functions = append(prog.Functions, ast.NewSpanned(fn, ast.Span{}))

	mod, diags := Lower(prog)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if len(mod.Functions) != 1 || mod.Functions[0].Name != "add" {
		t.Fatalf("expected one lowered function named add, got %+v", mod.Functions)
	}
	entry := mod.Functions[0].Blocks[0]
	if entry.Term.Value == "" {
		t.Fatalf("expected a return with a value, got %+v", entry.Term)
	}

	out, err := text.New().Emit(mod)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if !strings.Contains(string(out), "func add(a, b)") {
		t.Fatalf("expected rendered signature, got:\n%s", out)
	}
	if !strings.Contains(string(out), " = add ") {
		t.Fatalf("expected an add instruction, got:\n%s", out)
	}
}

// A trailing if/else where both branches return should not leave the join
// block's terminator unset.
func TestLowerIfElseBothReturn(t *testing.T) {
	fn := &ast.Function{
		ID:   ast.NewID(),
		Name: ast.NewSpanned("pick", ast.Span{}),
		Body: []ast.Spanned[ast.Stmt]{
			ast.NewSpanned[ast.Stmt](ast.IfStmt{
				Cond: ast.BoolLit{Value: true},
				Then: []ast.Spanned[ast.Stmt]{ast.NewSpanned[ast.Stmt](ast.ReturnStmt{Value: ast.IntLit{Value: 1}}, ast.Span{})},
				Else: []ast.Spanned[ast.Stmt]{ast.NewSpanned[ast.Stmt](ast.ReturnStmt{Value: ast.IntLit{Value: 2}}, ast.Span{})},
			}, ast.Span{}),
		},
	}
	prog := ast.NewProgram()
	prog.Functions = append(prog.Functions, ast.NewSpanned(fn, ast.Span{}))

	mod, diags := Lower(prog)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if _, err := text.New().Emit(mod); err != nil {
		t.Fatalf("Emit: %v", err)
	}
}
