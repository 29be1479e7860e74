package sema

import "github.com/mkerian10/pluto/internal/ast"

// InferErrorSets computes, as a fixed point, which functions may raise an
// uncaught error: a function is fallible if its body contains a `raise`
// not inside a handler, or calls another fallible function with `!`
// (ast.ErrorPropagate) rather than wrapping the call in `catch`. Runs to a
// fixed point because fallibility is transitive through ordinary calls —
// marking one function fallible can make its callers fallible in turn —
// and the call graph's visit order isn't known in advance.
func InferErrorSets(prog *ast.Program, env *Env) {
	allFns := collectAllFunctions(prog)

	changed := true
	for changed {
		changed = false
		for _, fn := range allFns {
			if fn.IsFallible {
				continue
			}
			if functionRaises(fn.Body, allFns) {
				fn.IsFallible = true
				changed = true
			}
		}
	}
}

func collectAllFunctions(prog *ast.Program) map[string]*ast.Function {
	out := map[string]*ast.Function{}
	for _, fn := range prog.Functions {
		out[fn.Node.Name.Node] = fn.Node
	}
	for _, c := range prog.Classes {
		for _, m := range c.Node.Methods {
			out[c.Node.Name.Node+"$"+m.Node.Name.Node] = m.Node
		}
	}
	if prog.App != nil {
		for _, m := range prog.App.Node.Methods {
			out[prog.App.Node.Name.Node+"$"+m.Node.Name.Node] = m.Node
		}
	}
	for _, s := range prog.Stages {
		for _, m := range s.Node.Methods {
			out[s.Node.Name.Node+"$"+m.Node.Name.Node] = m.Node
		}
	}
	return out
}

// functionRaises reports whether body contains a `raise` statement not
// already inside a catch block, or an ErrorPropagate (`expr!`) targeting
// a call whose callee is already known fallible. Catch blocks and
// fallback-shorthand catches absorb propagation from their own operand,
// so a raise/propagate nested inside one does not make the enclosing
// function fallible.
func functionRaises(body []ast.Spanned[ast.Stmt], fns map[string]*ast.Function) bool {
	found := false
	var walkStmts func([]ast.Spanned[ast.Stmt])
	var walkExpr func(ast.Expr)

	walkExpr = func(e ast.Expr) {
		if found || e == nil {
			return
		}
		switch n := e.(type) {
		case ast.ErrorPropagate:
			if call, ok := n.Operand.(ast.Call); ok {
				if callee, ok := fns[call.Name.Node]; ok && callee.IsFallible {
					found = true
					return
				}
			}
			if _, ok := n.Operand.(ast.MethodCall); ok {
				// Method-call fallibility needs the receiver's static type to
				// resolve which owner's method table to check; this walk has
				// no receiver types, so it conservatively treats the call as
				// fallible.
				found = true
				return
			}
			walkExpr(n.Operand)
		case ast.Catch:
			walkExpr(n.Operand)
			if n.Fallback != nil {
				walkExpr(n.Fallback)
			}
			// n.Block/n.Fallback absorb any raise that would otherwise
			// propagate — the operand itself was already walked above for
			// *other* reasons (e.g. nested raises inside its own subexpressions)
			// but a raise happening *because* of this catch's own operand is
			// handled by the operand's own evaluation, not walked again here.
		case ast.BinOp:
			walkExpr(n.LHS)
			walkExpr(n.RHS)
		case ast.UnaryOp:
			walkExpr(n.Operand)
		case ast.FieldAccess:
			walkExpr(n.Object)
		case ast.Call:
			for _, a := range n.Args {
				walkExpr(a)
			}
		case ast.MethodCall:
			walkExpr(n.Object)
			for _, a := range n.Args {
				walkExpr(a)
			}
		case ast.Index:
			walkExpr(n.Object)
			walkExpr(n.Idx)
		case ast.StructLit:
			for _, f := range n.Fields {
				walkExpr(f.Value)
			}
		case ast.ArrayLit:
			for _, el := range n.Elems {
				walkExpr(el)
			}
		case ast.Match:
			walkExpr(n.Scrutinee)
			for _, a := range n.Arms {
				walkStmts(a.Body)
			}
		}
	}

	walkStmts = func(stmts []ast.Spanned[ast.Stmt]) {
		for _, s := range stmts {
			if found {
				return
			}
			switch n := s.Node.(type) {
			case ast.RaiseStmt:
				found = true
			case ast.ExprStmt:
				walkExpr(n.Expr)
			case ast.LetStmt:
				walkExpr(n.Value)
			case ast.AssignStmt:
				walkExpr(n.Value)
			case ast.ReturnStmt:
				if n.Value != nil {
					walkExpr(n.Value)
				}
			case ast.IfStmt:
				walkExpr(n.Cond)
				walkStmts(n.Then)
				walkStmts(n.Else)
			case ast.WhileStmt:
				walkExpr(n.Cond)
				walkStmts(n.Body)
			case ast.ForStmt:
				walkExpr(n.Iterable)
				walkStmts(n.Body)
			case ast.MatchStmt:
				walkExpr(n.Scrutinee)
				for _, a := range n.Arms {
					walkStmts(a.Body)
				}
			case ast.SelectStmt:
				for _, a := range n.Arms {
					walkStmts(a.Body)
				}
				walkStmts(n.Default)
			case ast.ScopeStmt:
				for _, sd := range n.Seeds {
					walkExpr(sd)
				}
				walkStmts(n.Body)
			case ast.BlockStmt:
				walkStmts(n.Body)
			}
		}
	}

	walkStmts(body)
	return found
}
