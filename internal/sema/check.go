package sema

import (
	"github.com/mkerian10/pluto/internal/ast"
	"github.com/mkerian10/pluto/internal/diag"
)

// Checker holds the whole-program environment and accumulates diagnostics
// as it checks every function/method body in turn.
type Checker struct {
	env   *Env
	diags []*diag.Diagnostic
}

func NewChecker(env *Env) *Checker { return &Checker{env: env} }

func (c *Checker) Diagnostics() []*diag.Diagnostic { return c.diags }

func (c *Checker) errorf(span ast.Span, format string, args ...any) {
	c.diags = append(c.diags, diag.New(diag.Type, span, format, args...))
}

// scope is a function body's local variable environment, chained to an
// optional enclosing self type for field lookups inside methods.
type scope struct {
	vars   map[string]*ast.Type
	self   *ast.Type
	parent *scope
}

func newScope(self *ast.Type) *scope {
	return &scope{vars: map[string]*ast.Type{}, self: self}
}

func (s *scope) child() *scope {
	return &scope{vars: map[string]*ast.Type{}, self: s.self, parent: s}
}

// lookup searches this scope and its ancestors for name.
func (s *scope) lookup(name string) *ast.Type {
	for cur := s; cur != nil; cur = cur.parent {
		if t, ok := cur.vars[name]; ok {
			return t
		}
	}
	return nil
}

// Check runs the full checker: every top-level function, every class
// method (with "self" bound to the class), every app method, every stage
// method, and every trait default-body method.
func (c *Checker) Check(prog *ast.Program) {
	for _, fn := range prog.Functions {
		c.checkFunction(fn.Node, nil)
	}
	for _, cl := range prog.Classes {
		selfType := ast.Named(ast.TClass, cl.Node.Name.Node, ast.NoID())
		for _, m := range cl.Node.Methods {
			c.checkFunction(m.Node, selfType)
		}
	}
	if prog.App != nil {
		selfType := ast.Named(ast.TClass, prog.App.Node.Name.Node, ast.NoID())
		for _, m := range prog.App.Node.Methods {
			c.checkFunction(m.Node, selfType)
		}
	}
	for _, s := range prog.Stages {
		selfType := ast.Named(ast.TClass, s.Node.Name.Node, ast.NoID())
		for _, m := range s.Node.Methods {
			c.checkFunction(m.Node, selfType)
		}
	}
	for _, tr := range prog.Traits {
		selfType := ast.Named(ast.TTrait, tr.Node.Name.Node, ast.NoID())
		for _, m := range tr.Node.Methods {
			if m.HasBody {
				sc := newScope(selfType)
				for _, p := range m.Params {
					sc.vars[p.Name] = p.Type
				}
				c.checkStmts(m.Body, sc)
			}
		}
	}
}

func (c *Checker) checkFunction(fn *ast.Function, self *ast.Type) {
	sc := newScope(self)
	for _, p := range fn.Params {
		sc.vars[p.Name] = p.Type
	}
	c.checkStmts(fn.Body, sc)
}

func (c *Checker) checkStmts(stmts []ast.Spanned[ast.Stmt], sc *scope) {
	for _, s := range stmts {
		c.checkStmt(s, sc)
	}
}

func (c *Checker) checkStmt(s ast.Spanned[ast.Stmt], sc *scope) {
	switch n := s.Node.(type) {
	case ast.ExprStmt:
		c.infer(n.Expr, sc, s.Span)

	case ast.LetStmt:
		t := c.infer(n.Value, sc, s.Span)
		if len(n.Names) == 1 {
			sc.vars[n.Names[0]] = t
		} else if n.ChanPair && t != nil && t.Kind == ast.TChan {
			if len(n.Names) == 2 {
				sc.vars[n.Names[0]] = t
				sc.vars[n.Names[1]] = t
			}
		} else {
			for _, name := range n.Names {
				sc.vars[name] = t
			}
		}

	case ast.AssignStmt:
		targetType := c.infer(n.Target, sc, s.Span)
		valType := c.infer(n.Value, sc, s.Span)
		if targetType != nil && valType != nil && !typeAssignable(targetType, valType) {
			c.errorf(s.Span, "cannot assign %s to %s", valType, targetType)
		}

	case ast.ReturnStmt:
		if n.Value != nil {
			c.infer(n.Value, sc, s.Span)
		}

	case ast.IfStmt:
		c.infer(n.Cond, sc, s.Span)
		c.checkStmts(n.Then, sc.child())
		c.checkStmts(n.Else, sc.child())

	case ast.WhileStmt:
		c.infer(n.Cond, sc, s.Span)
		c.checkStmts(n.Body, sc.child())

	case ast.ForStmt:
		iterType := c.infer(n.Iterable, sc, s.Span)
		body := sc.child()
		body.vars[n.Binding] = elementTypeOf(iterType)
		c.checkStmts(n.Body, body)

	case ast.RaiseStmt:
		if _, ok := c.env.Errors[errorNameOf(n.ErrorExpr)]; !ok {
			if name := errorNameOf(n.ErrorExpr); name != "" {
				c.errorf(s.Span, "raise of undeclared error %q", name)
			}
		}

	case ast.MatchStmt:
		c.infer(n.Scrutinee, sc, s.Span)
		for _, a := range n.Arms {
			armScope := sc.child()
			bindPattern(a.Pattern, c.env, armScope)
			if a.Guard != nil {
				c.infer(a.Guard, armScope, s.Span)
			}
			c.checkStmts(a.Body, armScope)
		}

	case ast.SelectStmt:
		for _, a := range n.Arms {
			c.infer(a.Channel, sc, s.Span)
			armScope := sc.child()
			if a.Binding != "" {
				armScope.vars[a.Binding] = elementTypeOf(c.infer(a.Channel, sc, s.Span))
			}
			c.checkStmts(a.Body, armScope)
		}
		c.checkStmts(n.Default, sc.child())

	case ast.ScopeStmt:
		for _, seed := range n.Seeds {
			c.infer(seed, sc, s.Span)
		}
		c.checkStmts(n.Body, sc.child())

	case ast.BlockStmt:
		c.checkStmts(n.Body, sc.child())
	}
}

func errorNameOf(e ast.Expr) string {
	if sl, ok := e.(ast.StructLit); ok {
		return sl.ClassName
	}
	return ""
}

func bindPattern(p ast.Pattern, env *Env, sc *scope) {
	ep, ok := p.(ast.EnumPattern)
	if !ok {
		return
	}
	en, ok := env.Enums[ep.EnumName]
	if !ok {
		return
	}
	for _, v := range en.Variants {
		if v.Name.Node != ep.Variant {
			continue
		}
		for i, b := range ep.Bindings {
			if i < len(v.Fields) {
				sc.vars[b] = v.Fields[i]
			}
		}
	}
}

func elementTypeOf(t *ast.Type) *ast.Type {
	if t == nil {
		return nil
	}
	switch t.Kind {
	case ast.TArray, ast.TSet, ast.TChan, ast.TTask:
		return t.Elem
	case ast.TMap:
		return t.Value
	case ast.TString:
		return ast.Basic(ast.TByte)
	default:
		return t
	}
}

// infer computes an expression's type, recording a diagnostic and
// returning nil for an unknown identifier or a field that doesn't exist
// rather than panicking. A call to a name that is not a declared function
// (a built-in) returns nil without a diagnostic. The pipeline records
// these diagnostics as warnings and still runs §4.F/§4.G afterwards.
func (c *Checker) infer(e ast.Expr, sc *scope, span ast.Span) *ast.Type {
	switch n := e.(type) {
	case ast.IntLit:
		return ast.Basic(ast.TInt)
	case ast.FloatLit:
		return ast.Basic(ast.TFloat)
	case ast.BoolLit:
		return ast.Basic(ast.TBool)
	case ast.ByteLit:
		return ast.Basic(ast.TByte)
	case ast.StringLit:
		return ast.Basic(ast.TString)
	case ast.NoneLit:
		return ast.Basic(ast.TVoid)
	case ast.InterpString:
		for _, p := range n.Parts {
			if p.Expr != nil {
				c.infer(p.Expr, sc, span)
			}
		}
		return ast.Basic(ast.TString)

	case ast.Ident:
		if n.Name == "self" && sc.self != nil {
			return sc.self
		}
		if t := sc.lookup(n.Name); t != nil {
			return t
		}
		c.errorf(span, "undefined identifier %q", n.Name)
		return nil

	case ast.FieldAccess:
		objType := c.infer(n.Object, sc, span)
		if objType == nil || objType.Kind != ast.TClass {
			return nil
		}
		ft := c.env.fieldType(objType.Name, n.Field)
		if ft == nil {
			c.errorf(span, "class %q has no field %q", objType.Name, n.Field)
		}
		return ft

	case ast.BinOp:
		lhs := c.infer(n.LHS, sc, span)
		c.infer(n.RHS, sc, span)
		switch n.Op {
		case ast.OpEq, ast.OpNeq, ast.OpLt, ast.OpLte, ast.OpGt, ast.OpGte, ast.OpAnd, ast.OpOr:
			return ast.Basic(ast.TBool)
		default:
			return lhs
		}

	case ast.UnaryOp:
		t := c.infer(n.Operand, sc, span)
		if n.Op == ast.OpNot {
			return ast.Basic(ast.TBool)
		}
		return t

	case ast.Call:
		for _, a := range n.Args {
			c.infer(a, sc, span)
		}
		if fn, ok := c.env.Functions[n.Name.Node]; ok {
			return fn.Return
		}
		return nil

	case ast.MethodCall:
		objType := c.infer(n.Object, sc, span)
		for _, a := range n.Args {
			c.infer(a, sc, span)
		}
		if n.Method.Node == "len" {
			return ast.Basic(ast.TInt)
		}
		if objType == nil {
			return nil
		}
		owner := objType.Name
		if m := c.env.method(owner, n.Method.Node); m != nil {
			return m.Return
		}
		return nil

	case ast.Index:
		objType := c.infer(n.Object, sc, span)
		c.infer(n.Idx, sc, span)
		return elementTypeOf(objType)

	case ast.Range:
		c.infer(n.Start, sc, span)
		c.infer(n.End, sc, span)
		return ast.ArrayOf(ast.Basic(ast.TInt))

	case ast.StructLit:
		for _, f := range n.Fields {
			c.infer(f.Value, sc, span)
		}
		return ast.Named(ast.TClass, n.ClassName, n.TargetID)

	case ast.EnumCtor:
		for _, a := range n.Args {
			c.infer(a, sc, span)
		}
		return ast.Named(ast.TEnum, n.EnumName, n.EnumID)

	case ast.ArrayLit:
		var elem *ast.Type
		for _, el := range n.Elems {
			t := c.infer(el, sc, span)
			if elem == nil {
				elem = t
			}
		}
		return ast.ArrayOf(elem)

	case ast.MapLit:
		var key, val *ast.Type
		for _, entry := range n.Entries {
			k := c.infer(entry.Key, sc, span)
			v := c.infer(entry.Value, sc, span)
			if key == nil {
				key, val = k, v
			}
		}
		return ast.MapOf(key, val)

	case ast.SetLit:
		var elem *ast.Type
		for _, el := range n.Elems {
			t := c.infer(el, sc, span)
			if elem == nil {
				elem = t
			}
		}
		return ast.SetOf(elem)

	case ast.Closure:
		body := sc.child()
		for _, p := range n.Params {
			body.vars[p.Name] = p.Type
		}
		c.checkStmts(n.Body, body)
		var params []*ast.Type
		for _, p := range n.Params {
			params = append(params, p.Type)
		}
		return ast.ClosureType(params, nil)

	case ast.ClosureCreate:
		return ast.ClosureType(nil, nil)

	case ast.Spawn:
		t := c.infer(n.Call, sc, span)
		return ast.TaskOf(t)

	case ast.Cast:
		c.infer(n.Operand, sc, span)
		return n.Target

	case ast.NullablePropagate:
		return c.infer(n.Operand, sc, span)

	case ast.ErrorPropagate:
		return c.infer(n.Operand, sc, span)

	case ast.Catch:
		t := c.infer(n.Operand, sc, span)
		if n.HasBlock {
			body := sc.child()
			if n.Binding != "" {
				body.vars[n.Binding] = ast.Basic(ast.TError)
			}
			c.checkStmts(n.Block, body)
		}
		if n.Fallback != nil {
			c.infer(n.Fallback, sc, span)
		}
		return t

	case ast.Old:
		return c.infer(n.Operand, sc, span)

	case ast.Match:
		c.infer(n.Scrutinee, sc, span)
		var result *ast.Type
		for _, a := range n.Arms {
			armScope := sc.child()
			bindPattern(a.Pattern, c.env, armScope)
			if a.Guard != nil {
				c.infer(a.Guard, armScope, span)
			}
			c.checkStmts(a.Body, armScope)
		}
		return result

	case ast.SelectExpr:
		for _, a := range n.Arms {
			c.infer(a.Channel, sc, span)
			armScope := sc.child()
			if a.Binding != "" {
				armScope.vars[a.Binding] = elementTypeOf(c.infer(a.Channel, sc, span))
			}
			c.checkStmts(a.Body, armScope)
		}
		c.checkStmts(n.Default, sc.child())
		return nil

	case ast.AmbientRef:
		return ast.Named(ast.TClass, n.TypeName, ast.NoID())

	case ast.ChanMake:
		c.infer(n.Capacity, sc, span)
		return ast.ChanOf(n.ElemType)

	case ast.TraitWrap:
		c.infer(n.Operand, sc, span)
		return ast.Named(ast.TTrait, n.TraitName, ast.NoID())
	}
	return nil
}

// typeAssignable allows exact structural matches plus class→trait
// coercion (checked separately by coerce.go's wrapping pass); here it
// just permits the assignment so coerce.go can decide whether a TraitWrap
// is needed.
func typeAssignable(target, val *ast.Type) bool {
	if target.Equal(val) {
		return true
	}
	if target.Kind == ast.TTrait && val.Kind == ast.TClass {
		return true
	}
	if target.Kind == ast.TTypeParam || val.Kind == ast.TTypeParam {
		return true
	}
	return false
}
