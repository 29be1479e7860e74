package sema

import "github.com/mkerian10/pluto/internal/ast"

// CoerceTraits runs after Check and rewrites every assignment, return, call
// argument, and struct-literal field whose declared target is a trait but
// whose value is a class implementing it, wrapping the value in
// ast.TraitWrap so codegen (§4.I) can emit the fat-pointer conversion
// without re-deriving the coercion site itself.
func (c *Checker) CoerceTraits(prog *ast.Program) {
	for _, fn := range prog.Functions {
		c.coerceFunction(fn.Node, nil)
	}
	for _, cl := range prog.Classes {
		selfType := ast.Named(ast.TClass, cl.Node.Name.Node, ast.NoID())
		for _, m := range cl.Node.Methods {
			c.coerceFunction(m.Node, selfType)
		}
	}
	if prog.App != nil {
		selfType := ast.Named(ast.TClass, prog.App.Node.Name.Node, ast.NoID())
		for _, m := range prog.App.Node.Methods {
			c.coerceFunction(m.Node, selfType)
		}
	}
	for _, s := range prog.Stages {
		selfType := ast.Named(ast.TClass, s.Node.Name.Node, ast.NoID())
		for _, m := range s.Node.Methods {
			c.coerceFunction(m.Node, selfType)
		}
	}
}

func (c *Checker) coerceFunction(fn *ast.Function, self *ast.Type) {
	sc := newScope(self)
	for _, p := range fn.Params {
		sc.vars[p.Name] = p.Type
	}
	c.coerceStmts(fn.Body, sc, fn.Return)
}

// implementsTrait reports whether class className declares it implements
// traitName. Only the declared claim is consulted; no pass checks it
// structurally against the trait's methods.
func (c *Checker) implementsTrait(className, traitName string) bool {
	cl, ok := c.env.Classes[className]
	if !ok {
		return false
	}
	for _, t := range cl.Implements {
		if t.Node == traitName {
			return true
		}
	}
	return false
}

// wrapIfNeeded returns a TraitWrap around value when target is a trait
// type, value's inferred type is a class, and that class claims the
// trait — otherwise it returns value unchanged.
func (c *Checker) wrapIfNeeded(target *ast.Type, value ast.Expr, sc *scope, span ast.Span) ast.Expr {
	if target == nil || target.Kind != ast.TTrait {
		return value
	}
	if _, ok := value.(ast.TraitWrap); ok {
		return value
	}
	valType := c.infer(value, sc, span)
	if valType == nil || valType.Kind != ast.TClass {
		return value
	}
	if !c.implementsTrait(valType.Name, target.Name) {
		return value
	}
	return ast.TraitWrap{Operand: value, TraitName: target.Name}
}

func (c *Checker) coerceStmts(stmts []ast.Spanned[ast.Stmt], sc *scope, fnReturn *ast.Type) {
	for i := range stmts {
		c.coerceStmt(&stmts[i], sc, fnReturn)
	}
}

func (c *Checker) coerceStmt(s *ast.Spanned[ast.Stmt], sc *scope, fnReturn *ast.Type) {
	switch n := s.Node.(type) {
	case ast.ExprStmt:
		n.Expr = c.coerceExpr(n.Expr, sc, s.Span)
		s.Node = n

	case ast.LetStmt:
		n.Value = c.coerceExpr(n.Value, sc, s.Span)
		t := c.infer(n.Value, sc, s.Span)
		if len(n.Names) == 1 {
			sc.vars[n.Names[0]] = t
		}
		s.Node = n

	case ast.AssignStmt:
		targetType := c.infer(n.Target, sc, s.Span)
		n.Value = c.wrapIfNeeded(targetType, c.coerceExpr(n.Value, sc, s.Span), sc, s.Span)
		s.Node = n

	case ast.ReturnStmt:
		if n.Value != nil {
			n.Value = c.wrapIfNeeded(fnReturn, c.coerceExpr(n.Value, sc, s.Span), sc, s.Span)
			s.Node = n
		}

	case ast.IfStmt:
		n.Cond = c.coerceExpr(n.Cond, sc, s.Span)
		c.coerceStmts(n.Then, sc.child(), fnReturn)
		c.coerceStmts(n.Else, sc.child(), fnReturn)
		s.Node = n

	case ast.WhileStmt:
		n.Cond = c.coerceExpr(n.Cond, sc, s.Span)
		c.coerceStmts(n.Body, sc.child(), fnReturn)
		s.Node = n

	case ast.ForStmt:
		iterType := c.infer(n.Iterable, sc, s.Span)
		body := sc.child()
		body.vars[n.Binding] = elementTypeOf(iterType)
		c.coerceStmts(n.Body, body, fnReturn)
		s.Node = n

	case ast.MatchStmt:
		for i := range n.Arms {
			armScope := sc.child()
			bindPattern(n.Arms[i].Pattern, c.env, armScope)
			c.coerceStmts(n.Arms[i].Body, armScope, fnReturn)
		}
		s.Node = n

	case ast.SelectStmt:
		for i := range n.Arms {
			armScope := sc.child()
			if n.Arms[i].Binding != "" {
				armScope.vars[n.Arms[i].Binding] = elementTypeOf(c.infer(n.Arms[i].Channel, sc, s.Span))
			}
			c.coerceStmts(n.Arms[i].Body, armScope, fnReturn)
		}
		c.coerceStmts(n.Default, sc.child(), fnReturn)
		s.Node = n

	case ast.ScopeStmt:
		c.coerceStmts(n.Body, sc.child(), fnReturn)
		s.Node = n

	case ast.BlockStmt:
		c.coerceStmts(n.Body, sc.child(), fnReturn)
		s.Node = n
	}
}

// coerceExpr handles the expression positions that carry an independently
// known target type — call arguments (against the callee's declared
// params) and struct-literal field values (against the field's declared
// type) — recursing first so nested calls/literals are fixed up
// inside-out.
func (c *Checker) coerceExpr(e ast.Expr, sc *scope, span ast.Span) ast.Expr {
	switch n := e.(type) {
	case ast.Call:
		fn, ok := c.env.Functions[n.Name.Node]
		for i, a := range n.Args {
			a = c.coerceExpr(a, sc, span)
			if ok && i < len(fn.Params) {
				a = c.wrapIfNeeded(fn.Params[i].Type, a, sc, span)
			}
			n.Args[i] = a
		}
		return n

	case ast.MethodCall:
		n.Object = c.coerceExpr(n.Object, sc, span)
		objType := c.infer(n.Object, sc, span)
		var m *ast.Function
		if objType != nil {
			m = c.env.method(objType.Name, n.Method.Node)
		}
		for i, a := range n.Args {
			a = c.coerceExpr(a, sc, span)
			if m != nil && i < len(m.Params) {
				a = c.wrapIfNeeded(m.Params[i].Type, a, sc, span)
			}
			n.Args[i] = a
		}
		return n

	case ast.StructLit:
		cl := c.env.Classes[n.ClassName]
		for i, f := range n.Fields {
			f.Value = c.coerceExpr(f.Value, sc, span)
			if cl != nil {
				if ft := c.env.fieldType(n.ClassName, f.Name); ft != nil {
					f.Value = c.wrapIfNeeded(ft, f.Value, sc, span)
				}
			}
			n.Fields[i] = f
		}
		return n

	case ast.BinOp:
		n.LHS = c.coerceExpr(n.LHS, sc, span)
		n.RHS = c.coerceExpr(n.RHS, sc, span)
		return n

	case ast.UnaryOp:
		n.Operand = c.coerceExpr(n.Operand, sc, span)
		return n

	case ast.FieldAccess:
		n.Object = c.coerceExpr(n.Object, sc, span)
		return n

	default:
		return e
	}
}
