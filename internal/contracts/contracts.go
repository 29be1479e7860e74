// Package contracts validates that every invariant/requires/ensures clause
// in a program stays within the decidable fragment spec.md §4.D allows:
// a syntax-restricted sublanguage the checker can later treat as pure and
// side-effect free. Runs after parsing, before the type checker.
//
// Ported node-for-node from original_source/src/contracts.rs's
// validate_decidable_fragment, which enumerates every rejected Expr
// variant explicitly rather than falling through a default case — kept
// that way here so a newly added ast.Expr case must be triaged by hand
// instead of silently passing validation.
package contracts

import (
	"fmt"

	"github.com/mkerian10/pluto/internal/ast"
	"github.com/mkerian10/pluto/internal/diag"
)

// Validate walks every contract clause reachable from prog — class
// invariants and method contracts, top-level function contracts, the
// app's method contracts, stage method contracts, and trait method
// signature contracts — and reports one diagnostic per clause that steps
// outside the decidable fragment.
func Validate(prog *ast.Program) []*diag.Diagnostic {
	var out []*diag.Diagnostic

	check := func(contracts []ast.Contract) {
		for _, c := range contracts {
			if err := validate(c.Expr.Node, c.Kind.Node); err != nil {
				out = append(out, diag.New(diag.Syntax, c.Expr.Span, "%s", err))
			}
		}
	}

	for _, c := range prog.Classes {
		check(c.Node.Invariants)
		for _, m := range c.Node.Methods {
			check(m.Node.Contracts)
		}
	}
	for _, fn := range prog.Functions {
		check(fn.Node.Contracts)
	}
	if prog.App != nil {
		for _, m := range prog.App.Node.Methods {
			check(m.Node.Contracts)
		}
	}
	for _, s := range prog.Stages {
		for _, m := range s.Node.Methods {
			check(m.Node.Contracts)
		}
	}
	for _, tr := range prog.Traits {
		for _, m := range tr.Node.Methods {
			check(m.Contracts)
		}
	}
	return out
}

// validate reports an error the first time it finds an expression kind
// outside the decidable fragment. kind distinguishes requires/ensures/
// invariant clauses since old() is legal only inside ensures.
func validate(e ast.Expr, kind ast.ContractKind) error {
	switch n := e.(type) {
	case ast.IntLit, ast.FloatLit, ast.BoolLit, ast.NoneLit, ast.Ident:
		return nil

	case ast.BinOp:
		if err := validate(n.LHS, kind); err != nil {
			return err
		}
		return validate(n.RHS, kind)

	case ast.UnaryOp:
		return validate(n.Operand, kind)

	case ast.FieldAccess:
		return validate(n.Object, kind)

	case ast.MethodCall:
		if n.Method.Node == "len" && len(n.Args) == 0 {
			return validate(n.Object, kind)
		}
		return fmt.Errorf("method call '.%s()' is not allowed in contract expressions (only '.len()' is permitted)", n.Method.Node)

	case ast.Old:
		if kind != ast.ContractEnsures {
			return fmt.Errorf("old() is only allowed in ensures clauses")
		}
		return validate(n.Operand, kind)

	case ast.Call:
		return fmt.Errorf("function call '%s()' is not allowed in contract expressions", n.Name.Node)

	case ast.NullablePropagate:
		return fmt.Errorf("null propagation is not allowed in contract expressions")
	case ast.ErrorPropagate:
		return fmt.Errorf("error propagation is not allowed in contract expressions")
	case ast.StringLit:
		return fmt.Errorf("string literals are not allowed in contract expressions")
	case ast.InterpString:
		return fmt.Errorf("string interpolation is not allowed in contract expressions")
	case ast.StructLit:
		return fmt.Errorf("struct literals are not allowed in contract expressions")
	case ast.ArrayLit:
		return fmt.Errorf("array literals are not allowed in contract expressions")
	case ast.MapLit:
		return fmt.Errorf("map literals are not allowed in contract expressions")
	case ast.SetLit:
		return fmt.Errorf("set literals are not allowed in contract expressions")
	case ast.Closure, ast.ClosureCreate:
		return fmt.Errorf("closures are not allowed in contract expressions")
	case ast.Spawn:
		return fmt.Errorf("spawn is not allowed in contract expressions")
	case ast.Cast:
		return fmt.Errorf("type casts are not allowed in contract expressions")
	case ast.Index:
		return fmt.Errorf("index expressions are not allowed in contract expressions")
	case ast.Range:
		return fmt.Errorf("range expressions are not allowed in contract expressions")
	case ast.Catch:
		return fmt.Errorf("catch expressions are not allowed in contract expressions")
	case ast.EnumCtor:
		return fmt.Errorf("enum expressions are not allowed in contract expressions")
	case ast.Match, ast.SelectExpr:
		return fmt.Errorf("match/select expressions are not allowed in contract expressions")
	case ast.AmbientRef:
		return fmt.Errorf("ambient references are not allowed in contract expressions")
	case ast.ChanMake:
		return fmt.Errorf("channel creation is not allowed in contract expressions")
	case ast.TraitWrap:
		return validate(n.Operand, kind)
	default:
		return fmt.Errorf("expression of type %T is not allowed in contract expressions", e)
	}
}
