package mono

import (
	"testing"

	"github.com/mkerian10/pluto/internal/ast"
	"github.com/mkerian10/pluto/internal/sema"
)

func span() ast.Span { return ast.Span{Start: 0, End: 1, FileID: 1} }

func TestMonomorphizeGeneratesMangledClass(t *testing.T) {
	box := &ast.Class{
		ID:         ast.NewID(),
		Name:       ast.NewSpanned("Box", span()),
		TypeParams: []string{"T"},
		Fields:     []ast.Field{{ID: ast.NewID(), Name: "value", Type: ast.TypeParam("T")}},
	}
	user := &ast.Class{
		ID:   ast.NewID(),
		Name: ast.NewSpanned("User", span()),
		Fields: []ast.Field{
			{ID: ast.NewID(), Name: "boxed", Type: ast.Generic("Box", []*ast.Type{ast.Basic(ast.TInt)})},
		},
	}
	prog := &ast.Program{
		Classes: []ast.Spanned[*ast.Class]{
			{Node: box, Span: span()},
			{Node: user, Span: span()},
		},
	}
	env := sema.BuildEnv(prog)

	m := NewMonomorphizer(env)
	m.Run(prog)

	if len(m.Diagnostics()) != 0 {
		t.Fatalf("unexpected diagnostics: %v", m.Diagnostics())
	}
	if user.Fields[0].Type.Kind != ast.TClass {
		t.Fatalf("expected field type resolved to TClass, got %v", user.Fields[0].Type.Kind)
	}
	wantName := "Box$$Int"
	if user.Fields[0].Type.Name != wantName {
		t.Fatalf("expected mangled name %q, got %q", wantName, user.Fields[0].Type.Name)
	}

	found := false
	for _, c := range prog.Classes {
		if c.Node.Name.Node == wantName {
			found = true
			if c.Node.Fields[0].Type.Kind != ast.TInt {
				t.Fatalf("expected substituted field type Int, got %v", c.Node.Fields[0].Type.Kind)
			}
		}
	}
	if !found {
		t.Fatalf("expected generated class %q in prog.Classes", wantName)
	}
}

func TestLiftClosuresExtractsCaptures(t *testing.T) {
	fn := &ast.Function{
		ID:   ast.NewID(),
		Name: ast.NewSpanned("makeAdder", span()),
		Params: []ast.Param{
			{ID: ast.NewID(), Name: "base", Type: ast.Basic(ast.TInt)},
		},
		Body: []ast.Spanned[ast.Stmt]{
			{Span: span(), Node: ast.LetStmt{
				Names: []string{"f"},
				Value: ast.Closure{
					Params: []ast.Param{{ID: ast.NewID(), Name: "x", Type: ast.Basic(ast.TInt)}},
					Body: []ast.Spanned[ast.Stmt]{
						{Span: span(), Node: ast.ReturnStmt{Value: ast.BinOp{
							Op:  ast.OpAdd,
							LHS: ast.Ident{Name: "base"},
							RHS: ast.Ident{Name: "x"},
						}}},
					},
				},
			}},
		},
	}
	prog := &ast.Program{Functions: []ast.Spanned[*ast.Function]{{Node: fn, Span: span()}}}

	l := NewClosureLifter()
	l.Run(prog)

	letStmt := fn.Body[0].Node.(ast.LetStmt)
	create, ok := letStmt.Value.(ast.ClosureCreate)
	if !ok {
		t.Fatalf("expected Closure replaced by ClosureCreate, got %T", letStmt.Value)
	}
	if len(create.Captures) != 1 || create.Captures[0] != "base" {
		t.Fatalf("expected capture list [base], got %v", create.Captures)
	}

	found := false
	for _, lifted := range prog.Functions {
		if lifted.Node.Name.Node == create.FnName {
			found = true
			if len(lifted.Node.Params) != 2 || lifted.Node.Params[0].Name != "base" || lifted.Node.Params[1].Name != "x" {
				t.Fatalf("expected lifted params [base, x], got %v", lifted.Node.Params)
			}
		}
	}
	if !found {
		t.Fatalf("expected lifted function %q appended to prog.Functions", create.FnName)
	}
}
