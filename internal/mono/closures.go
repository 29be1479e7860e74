package mono

import (
	"fmt"

	"github.com/mkerian10/pluto/internal/ast"
)

// ClosureLifter replaces every ast.Closure literal with an ast.ClosureCreate
// referencing a synthesised top-level function, per codegen/lower.rs's
// precondition that "closures should be lifted before codegen". The
// lifted function's parameter list is the closure's own params prefixed
// with one parameter per captured variable (named identically to the
// captured variable), so the body needs no rewriting at all — every
// identifier it already references, whether a capture or an own param,
// resolves to an ordinary function parameter.
type ClosureLifter struct {
	lifted  []ast.Spanned[*ast.Function]
	counter int
}

func NewClosureLifter() *ClosureLifter { return &ClosureLifter{} }

// Lifted returns the synthesised top-level functions generated so far.
// Run has already appended them to prog.Functions; callers use this only
// to inspect them.
func (l *ClosureLifter) Lifted() []ast.Spanned[*ast.Function] { return l.lifted }

func (l *ClosureLifter) Run(prog *ast.Program) {
	for _, fn := range prog.Functions {
		l.liftFunction(fn.Node)
	}
	for _, c := range prog.Classes {
		for _, m := range c.Node.Methods {
			l.liftFunction(m.Node)
		}
	}
	if prog.App != nil {
		for _, m := range prog.App.Node.Methods {
			l.liftFunction(m.Node)
		}
	}
	for _, s := range prog.Stages {
		for _, m := range s.Node.Methods {
			l.liftFunction(m.Node)
		}
	}
	prog.Functions = append(prog.Functions, l.lifted...)
}

func (l *ClosureLifter) liftFunction(fn *ast.Function) {
	sc := newBoundSet(nil)
	for _, p := range fn.Params {
		sc.bind(p.Name)
	}
	fn.Body = l.liftStmts(fn.Body, sc)
}

// boundSet tracks which identifiers are bound by enclosing scopes (params,
// let-bindings, for/match/catch bindings) so a closure literal encountered
// partway through a body knows which free identifiers it reads are
// genuine captures versus globals (function/class/enum names, which are
// resolved by name at every call site regardless and never need capturing).
type boundSet struct {
	names  map[string]bool
	parent *boundSet
}

func newBoundSet(parent *boundSet) *boundSet { return &boundSet{names: map[string]bool{}, parent: parent} }

func (b *boundSet) bind(name string) { b.names[name] = true }

func (b *boundSet) has(name string) bool {
	for cur := b; cur != nil; cur = cur.parent {
		if cur.names[name] {
			return true
		}
	}
	return false
}

func (l *ClosureLifter) liftStmts(stmts []ast.Spanned[ast.Stmt], sc *boundSet) []ast.Spanned[ast.Stmt] {
	for i := range stmts {
		stmts[i].Node = l.liftStmt(stmts[i].Node, sc)
	}
	return stmts
}

func (l *ClosureLifter) liftStmt(s ast.Stmt, sc *boundSet) ast.Stmt {
	switch n := s.(type) {
	case ast.ExprStmt:
		n.Expr = l.liftExpr(n.Expr, sc)
		return n
	case ast.LetStmt:
		n.Value = l.liftExpr(n.Value, sc)
		for _, name := range n.Names {
			sc.bind(name)
		}
		return n
	case ast.AssignStmt:
		n.Target = l.liftExpr(n.Target, sc)
		n.Value = l.liftExpr(n.Value, sc)
		return n
	case ast.ReturnStmt:
		if n.Value != nil {
			n.Value = l.liftExpr(n.Value, sc)
		}
		return n
	case ast.IfStmt:
		n.Cond = l.liftExpr(n.Cond, sc)
		n.Then = l.liftStmts(n.Then, newBoundSet(sc))
		n.Else = l.liftStmts(n.Else, newBoundSet(sc))
		return n
	case ast.WhileStmt:
		n.Cond = l.liftExpr(n.Cond, sc)
		n.Body = l.liftStmts(n.Body, newBoundSet(sc))
		return n
	case ast.ForStmt:
		n.Iterable = l.liftExpr(n.Iterable, sc)
		body := newBoundSet(sc)
		body.bind(n.Binding)
		n.Body = l.liftStmts(n.Body, body)
		return n
	case ast.RaiseStmt:
		n.ErrorExpr = l.liftExpr(n.ErrorExpr, sc)
		return n
	case ast.MatchStmt:
		n.Scrutinee = l.liftExpr(n.Scrutinee, sc)
		for i := range n.Arms {
			armScope := newBoundSet(sc)
			bindPatternNames(n.Arms[i].Pattern, armScope)
			if n.Arms[i].Guard != nil {
				n.Arms[i].Guard = l.liftExpr(n.Arms[i].Guard, armScope)
			}
			n.Arms[i].Body = l.liftStmts(n.Arms[i].Body, armScope)
		}
		return n
	case ast.SelectStmt:
		for i := range n.Arms {
			n.Arms[i].Channel = l.liftExpr(n.Arms[i].Channel, sc)
			armScope := newBoundSet(sc)
			if n.Arms[i].Binding != "" {
				armScope.bind(n.Arms[i].Binding)
			}
			n.Arms[i].Body = l.liftStmts(n.Arms[i].Body, armScope)
		}
		n.Default = l.liftStmts(n.Default, newBoundSet(sc))
		return n
	case ast.ScopeStmt:
		for i, seed := range n.Seeds {
			n.Seeds[i] = l.liftExpr(seed, sc)
		}
		n.Body = l.liftStmts(n.Body, newBoundSet(sc))
		return n
	case ast.BlockStmt:
		n.Body = l.liftStmts(n.Body, newBoundSet(sc))
		return n
	default:
		return s
	}
}

func bindPatternNames(p ast.Pattern, sc *boundSet) {
	if ep, ok := p.(ast.EnumPattern); ok {
		for _, b := range ep.Bindings {
			sc.bind(b)
		}
	}
}

// liftExpr recurses into every sub-expression and replaces any ast.Closure
// it finds. For a closure, the free-variable analysis runs on the raw body
// first (collectFreeIdents walks nested raw Closures itself), and only then
// are closures nested in that body lifted.
func (l *ClosureLifter) liftExpr(e ast.Expr, sc *boundSet) ast.Expr {
	switch n := e.(type) {
	case ast.Closure:
		inner := newBoundSet(sc)
		for _, p := range n.Params {
			inner.bind(p.Name)
		}
		free := map[string]bool{}
		collectFreeIdents(n.Body, inner, free)
		n.Body = l.liftStmts(n.Body, inner)

		captures := make([]string, 0, len(free))
		for name := range free {
			captures = append(captures, name)
		}
		l.counter++
		name := fmt.Sprintf("__closure_%d", l.counter)
		fn := &ast.Function{
			ID:   ast.NewID(),
			Name: ast.NewSpanned(name, ast.Span{}),
			Body: n.Body,
		}
		for _, cap := range captures {
			fn.Params = append(fn.Params, ast.Param{ID: ast.NewID(), Name: cap})
		}
		fn.Params = append(fn.Params, n.Params...)
		l.lifted = append(l.lifted, ast.Spanned[*ast.Function]{Node: fn})
		return ast.ClosureCreate{FnName: name, Captures: captures}

	case ast.BinOp:
		n.LHS = l.liftExpr(n.LHS, sc)
		n.RHS = l.liftExpr(n.RHS, sc)
		return n
	case ast.UnaryOp:
		n.Operand = l.liftExpr(n.Operand, sc)
		return n
	case ast.FieldAccess:
		n.Object = l.liftExpr(n.Object, sc)
		return n
	case ast.Call:
		for i, a := range n.Args {
			n.Args[i] = l.liftExpr(a, sc)
		}
		return n
	case ast.MethodCall:
		n.Object = l.liftExpr(n.Object, sc)
		for i, a := range n.Args {
			n.Args[i] = l.liftExpr(a, sc)
		}
		return n
	case ast.Index:
		n.Object = l.liftExpr(n.Object, sc)
		n.Idx = l.liftExpr(n.Idx, sc)
		return n
	case ast.Range:
		n.Start = l.liftExpr(n.Start, sc)
		n.End = l.liftExpr(n.End, sc)
		return n
	case ast.StructLit:
		for i, f := range n.Fields {
			f.Value = l.liftExpr(f.Value, sc)
			n.Fields[i] = f
		}
		return n
	case ast.EnumCtor:
		for i, a := range n.Args {
			n.Args[i] = l.liftExpr(a, sc)
		}
		return n
	case ast.ArrayLit:
		for i, el := range n.Elems {
			n.Elems[i] = l.liftExpr(el, sc)
		}
		return n
	case ast.MapLit:
		for i, entry := range n.Entries {
			entry.Key = l.liftExpr(entry.Key, sc)
			entry.Value = l.liftExpr(entry.Value, sc)
			n.Entries[i] = entry
		}
		return n
	case ast.SetLit:
		for i, el := range n.Elems {
			n.Elems[i] = l.liftExpr(el, sc)
		}
		return n
	case ast.Spawn:
		n.Call = l.liftExpr(n.Call, sc)
		return n
	case ast.Cast:
		n.Operand = l.liftExpr(n.Operand, sc)
		return n
	case ast.NullablePropagate:
		n.Operand = l.liftExpr(n.Operand, sc)
		return n
	case ast.ErrorPropagate:
		n.Operand = l.liftExpr(n.Operand, sc)
		return n
	case ast.Catch:
		n.Operand = l.liftExpr(n.Operand, sc)
		if n.HasBlock {
			body := newBoundSet(sc)
			if n.Binding != "" {
				body.bind(n.Binding)
			}
			n.Block = l.liftStmts(n.Block, body)
		}
		if n.Fallback != nil {
			n.Fallback = l.liftExpr(n.Fallback, sc)
		}
		return n
	case ast.Old:
		n.Operand = l.liftExpr(n.Operand, sc)
		return n
	case ast.Match:
		n.Scrutinee = l.liftExpr(n.Scrutinee, sc)
		for i := range n.Arms {
			armScope := newBoundSet(sc)
			bindPatternNames(n.Arms[i].Pattern, armScope)
			if n.Arms[i].Guard != nil {
				n.Arms[i].Guard = l.liftExpr(n.Arms[i].Guard, armScope)
			}
			n.Arms[i].Body = l.liftStmts(n.Arms[i].Body, armScope)
		}
		return n
	case ast.SelectExpr:
		for i := range n.Arms {
			n.Arms[i].Channel = l.liftExpr(n.Arms[i].Channel, sc)
			armScope := newBoundSet(sc)
			if n.Arms[i].Binding != "" {
				armScope.bind(n.Arms[i].Binding)
			}
			n.Arms[i].Body = l.liftStmts(n.Arms[i].Body, armScope)
		}
		n.Default = l.liftStmts(n.Default, newBoundSet(sc))
		return n
	case ast.ChanMake:
		n.Capacity = l.liftExpr(n.Capacity, sc)
		return n
	case ast.TraitWrap:
		n.Operand = l.liftExpr(n.Operand, sc)
		return n
	default:
		return e
	}
}

// collectFreeIdents walks body (without mutating it) recording every
// identifier referenced that is not bound anywhere in the enclosing chain
// rooted at bound — those are exactly the names the lifted function must
// receive as capture parameters.
func collectFreeIdents(body []ast.Spanned[ast.Stmt], bound *boundSet, free map[string]bool) {
	var walkExpr func(ast.Expr)
	var walkStmts func([]ast.Spanned[ast.Stmt])

	walkExpr = func(e ast.Expr) {
		switch n := e.(type) {
		case ast.Ident:
			if n.Name != "self" && !bound.has(n.Name) {
				free[n.Name] = true
			}
		case ast.FieldAccess:
			walkExpr(n.Object)
		case ast.BinOp:
			walkExpr(n.LHS)
			walkExpr(n.RHS)
		case ast.UnaryOp:
			walkExpr(n.Operand)
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
		case ast.Spawn:
			walkExpr(n.Call)
		case ast.ErrorPropagate:
			walkExpr(n.Operand)
		case ast.NullablePropagate:
			walkExpr(n.Operand)
		case ast.Closure:
			inner := newBoundSet(bound)
			for _, p := range n.Params {
				inner.bind(p.Name)
			}
			collectFreeIdents(n.Body, inner, free)
		}
	}

	walkStmts = func(stmts []ast.Spanned[ast.Stmt]) {
		for _, s := range stmts {
			switch n := s.Node.(type) {
			case ast.ExprStmt:
				walkExpr(n.Expr)
			case ast.LetStmt:
				walkExpr(n.Value)
				for _, name := range n.Names {
					bound.bind(name)
				}
			case ast.AssignStmt:
				walkExpr(n.Target)
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
				bound.bind(n.Binding)
				walkStmts(n.Body)
			case ast.MatchStmt:
				walkExpr(n.Scrutinee)
				for _, a := range n.Arms {
					bindPatternNames(a.Pattern, bound)
					walkStmts(a.Body)
				}
			case ast.BlockStmt:
				walkStmts(n.Body)
			}
		}
	}

	walkStmts(body)
}
