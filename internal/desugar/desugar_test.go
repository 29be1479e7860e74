package desugar

import (
	"testing"

	"github.com/mkerian10/pluto/internal/ast"
)

func span() ast.Span { return ast.Span{} }

func namedSpan(s string) ast.Spanned[string] { return ast.NewSpanned(s, span()) }

func TestFlattenStagesMergesParentMethods(t *testing.T) {
	base := &ast.Stage{
		Name: namedSpan("Base"),
		RequiredMethods: []ast.TraitMethod{
			{Name: namedSpan("handle")},
		},
	}
	derived := &ast.Stage{
		Name:   namedSpan("Derived"),
		Parent: ptr(namedSpan("Base")),
		Methods: []ast.Spanned[*ast.Function]{
			ast.NewSpanned(&ast.Function{Name: namedSpan("handle"), IsOverride: true}, span()),
		},
	}
	prog := ast.NewProgram()
	prog.Stages = []ast.Spanned[*ast.Stage]{
		ast.NewSpanned(base, span()),
		ast.NewSpanned(derived, span()),
	}

	if err := FlattenStages(prog); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prog.Stages) != 1 {
		t.Fatalf("expected abstract Base to be dropped, got %d stages", len(prog.Stages))
	}
	if prog.Stages[0].Node.Name.Node != "Derived" {
		t.Fatalf("expected surviving stage to be Derived, got %q", prog.Stages[0].Node.Name.Node)
	}
	if len(prog.Stages[0].Node.RequiredMethods) != 0 {
		t.Fatalf("expected no remaining required methods, got %+v", prog.Stages[0].Node.RequiredMethods)
	}
}

func TestFlattenStagesRejectsUnknownOverride(t *testing.T) {
	derived := &ast.Stage{
		Name: namedSpan("Derived"),
		Methods: []ast.Spanned[*ast.Function]{
			ast.NewSpanned(&ast.Function{Name: namedSpan("handle"), IsOverride: true}, span()),
		},
	}
	prog := ast.NewProgram()
	prog.Stages = []ast.Spanned[*ast.Stage]{ast.NewSpanned(derived, span())}
	if err := FlattenStages(prog); err == nil {
		t.Fatal("expected an error for an override with no parent method")
	}
}

func TestDesugarAmbientParamRewritesToFieldAccess(t *testing.T) {
	fn := &ast.Function{
		Name: namedSpan("run"),
		Params: []ast.Param{
			{Name: "logger", Type: &ast.Type{Kind: ast.TClass, Name: "Logger"}, Ambient: true},
		},
		Body: []ast.Spanned[ast.Stmt]{
			ast.NewSpanned[ast.Stmt](ast.ExprStmt{Expr: ast.MethodCall{
				Object: ast.Ident{Name: "logger"},
				Method: namedSpan("info"),
			}}, span()),
		},
	}
	injected := desugarFunctionBody(fn)
	if len(fn.Params) != 0 {
		t.Fatalf("expected ambient param removed, got %+v", fn.Params)
	}
	if len(injected) != 1 || injected[0].Name != "__ambient_logger" {
		t.Fatalf("expected one injected field, got %+v", injected)
	}
	call := fn.Body[0].Node.(ast.ExprStmt).Expr.(ast.MethodCall)
	fa, ok := call.Object.(ast.FieldAccess)
	if !ok {
		t.Fatalf("expected object rewritten to FieldAccess, got %T", call.Object)
	}
	if fa.Field != "__ambient_logger" {
		t.Fatalf("expected field %q, got %q", "__ambient_logger", fa.Field)
	}
}

func TestDesugarSpawnWrapsCallInClosure(t *testing.T) {
	body := []ast.Spanned[ast.Stmt]{
		ast.NewSpanned[ast.Stmt](ast.ExprStmt{Expr: ast.Spawn{Call: ast.Call{Name: namedSpan("doWork")}}}, span()),
	}
	out := desugarSpawnAndCall(body)
	spawn := out[0].Node.(ast.ExprStmt).Expr.(ast.Spawn)
	if _, ok := spawn.Call.(ast.Closure); !ok {
		t.Fatalf("expected Spawn.Call to be wrapped in a Closure, got %T", spawn.Call)
	}
}

func ptr[T any](v T) *T { return &v }
