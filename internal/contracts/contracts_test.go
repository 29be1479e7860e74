package contracts

import (
	"testing"

	"github.com/mkerian10/pluto/internal/ast"
)

func contract(kind ast.ContractKind, e ast.Expr) ast.Contract {
	return ast.Contract{
		Kind: ast.NewSpanned(kind, ast.Span{}),
		Expr: ast.NewSpanned(e, ast.Span{}),
	}
}

func oneClassInvariant(e ast.Expr) *ast.Program {
	prog := ast.NewProgram()
	prog.Classes = append(prog.Classes, ast.NewSpanned(&ast.Class{
		Name:       ast.NewSpanned("C", ast.Span{}),
		Invariants: []ast.Contract{contract(ast.ContractInvariant, e)},
	}, ast.Span{}))
	return prog
}

func TestAllowedDecidableFragment(t *testing.T) {
	allowed := []ast.Expr{
		ast.IntLit{Value: 42},
		ast.FloatLit{Value: 3.14},
		ast.BoolLit{Value: true},
		ast.NoneLit{},
		ast.Ident{Name: "x"},
		ast.BinOp{Op: ast.OpLt, LHS: ast.Ident{Name: "x"}, RHS: ast.IntLit{Value: 10}},
		ast.UnaryOp{Op: ast.OpNeg, Operand: ast.IntLit{Value: 5}},
		ast.FieldAccess{Object: ast.Ident{Name: "self"}, Field: "value"},
		ast.MethodCall{Object: ast.Ident{Name: "items"}, Method: ast.NewSpanned("len", ast.Span{})},
	}
	for _, e := range allowed {
		if diags := Validate(oneClassInvariant(e)); len(diags) != 0 {
			t.Errorf("expected %T to be allowed, got diagnostics: %v", e, diags)
		}
	}
}

func TestRejectedExpressions(t *testing.T) {
	rejected := []ast.Expr{
		ast.StringLit{Value: "hello"},
		ast.InterpString{},
		ast.StructLit{ClassName: "Point"},
		ast.ArrayLit{},
		ast.MapLit{},
		ast.SetLit{},
		ast.Closure{},
		ast.Spawn{Call: ast.IntLit{Value: 1}},
		ast.Cast{Operand: ast.IntLit{Value: 1}},
		ast.Index{Object: ast.Ident{Name: "arr"}, Idx: ast.IntLit{Value: 0}},
		ast.Range{Start: ast.IntLit{Value: 0}, End: ast.IntLit{Value: 10}},
		ast.ErrorPropagate{Operand: ast.Ident{Name: "x"}},
		ast.NullablePropagate{Operand: ast.Ident{Name: "x"}},
		ast.MethodCall{Object: ast.Ident{Name: "x"}, Method: ast.NewSpanned("foo", ast.Span{})},
		ast.MethodCall{Object: ast.Ident{Name: "x"}, Method: ast.NewSpanned("foo", ast.Span{}), Args: []ast.Expr{ast.IntLit{Value: 1}}},
		ast.Call{Name: ast.NewSpanned("foo", ast.Span{})},
	}
	for _, e := range rejected {
		if diags := Validate(oneClassInvariant(e)); len(diags) == 0 {
			t.Errorf("expected %T to be rejected", e)
		}
	}
}

func TestOldAllowedOnlyInEnsures(t *testing.T) {
	oldExpr := ast.Old{Operand: ast.Ident{Name: "x"}}

	prog := ast.NewProgram()
	prog.Functions = append(prog.Functions, ast.NewSpanned(&ast.Function{
		Name:      ast.NewSpanned("f", ast.Span{}),
		Contracts: []ast.Contract{contract(ast.ContractEnsures, oldExpr)},
	}, ast.Span{}))
	if diags := Validate(prog); len(diags) != 0 {
		t.Errorf("expected old() in ensures to be allowed, got %v", diags)
	}

	for _, kind := range []ast.ContractKind{ast.ContractInvariant, ast.ContractRequires} {
		prog := ast.NewProgram()
		prog.Functions = append(prog.Functions, ast.NewSpanned(&ast.Function{
			Name:      ast.NewSpanned("f", ast.Span{}),
			Contracts: []ast.Contract{contract(kind, oldExpr)},
		}, ast.Span{}))
		if diags := Validate(prog); len(diags) == 0 {
			t.Errorf("expected old() outside ensures (kind %v) to be rejected", kind)
		}
	}
}
