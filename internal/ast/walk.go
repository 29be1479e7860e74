package ast

// TransformExpr rewrites e bottom-up: every child expression is transformed
// first, then fn is applied to the (possibly rebuilt) node itself. This is
// the shared recursion every pass that rewrites expressions (desugar,
// monomorphisation, closure lifting) is built on, modelled on the teacher's
// node.Walk(in, out) — the out callback there plays the same "process after
// children" role fn plays here.
func TransformExpr(e Expr, fn func(Expr) Expr) Expr {
	if e == nil {
		return fn(nil)
	}
	switch n := e.(type) {
	case IntLit, FloatLit, BoolLit, ByteLit, StringLit, NoneLit, Ident, AmbientRef:
		return fn(n)
	case InterpString:
		parts := make([]InterpPart, len(n.Parts))
		for i, p := range n.Parts {
			parts[i] = InterpPart{Text: p.Text, Expr: TransformExpr(p.Expr, fn)}
		}
		return fn(InterpString{Parts: parts})
	case FieldAccess:
		n.Object = TransformExpr(n.Object, fn)
		return fn(n)
	case BinOp:
		n.LHS = TransformExpr(n.LHS, fn)
		n.RHS = TransformExpr(n.RHS, fn)
		return fn(n)
	case UnaryOp:
		n.Operand = TransformExpr(n.Operand, fn)
		return fn(n)
	case Call:
		args := make([]Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = TransformExpr(a, fn)
		}
		n.Args = args
		return fn(n)
	case MethodCall:
		n.Object = TransformExpr(n.Object, fn)
		args := make([]Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = TransformExpr(a, fn)
		}
		n.Args = args
		return fn(n)
	case Index:
		n.Object = TransformExpr(n.Object, fn)
		n.Idx = TransformExpr(n.Idx, fn)
		return fn(n)
	case Range:
		n.Start = TransformExpr(n.Start, fn)
		n.End = TransformExpr(n.End, fn)
		return fn(n)
	case StructLit:
		fields := make([]StructLitField, len(n.Fields))
		for i, f := range n.Fields {
			fields[i] = StructLitField{Name: f.Name, Value: TransformExpr(f.Value, fn)}
		}
		n.Fields = fields
		return fn(n)
	case EnumCtor:
		args := make([]Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = TransformExpr(a, fn)
		}
		n.Args = args
		return fn(n)
	case ArrayLit:
		elems := make([]Expr, len(n.Elems))
		for i, el := range n.Elems {
			elems[i] = TransformExpr(el, fn)
		}
		n.Elems = elems
		return fn(n)
	case MapLit:
		entries := make([]MapEntry, len(n.Entries))
		for i, me := range n.Entries {
			entries[i] = MapEntry{Key: TransformExpr(me.Key, fn), Value: TransformExpr(me.Value, fn)}
		}
		n.Entries = entries
		return fn(n)
	case SetLit:
		elems := make([]Expr, len(n.Elems))
		for i, el := range n.Elems {
			elems[i] = TransformExpr(el, fn)
		}
		n.Elems = elems
		return fn(n)
	case Closure:
		n.Body = TransformStmts(n.Body, fn)
		return fn(n)
	case ClosureCreate:
		return fn(n)
	case Spawn:
		n.Call = TransformExpr(n.Call, fn)
		return fn(n)
	case Cast:
		n.Operand = TransformExpr(n.Operand, fn)
		return fn(n)
	case NullablePropagate:
		n.Operand = TransformExpr(n.Operand, fn)
		return fn(n)
	case ErrorPropagate:
		n.Operand = TransformExpr(n.Operand, fn)
		return fn(n)
	case Catch:
		n.Operand = TransformExpr(n.Operand, fn)
		if n.Fallback != nil {
			n.Fallback = TransformExpr(n.Fallback, fn)
		}
		n.Block = TransformStmts(n.Block, fn)
		return fn(n)
	case Old:
		n.Operand = TransformExpr(n.Operand, fn)
		return fn(n)
	case Match:
		n.Scrutinee = TransformExpr(n.Scrutinee, fn)
		arms := make([]MatchArm, len(n.Arms))
		for i, a := range n.Arms {
			a.Guard = TransformExpr(a.Guard, fn)
			a.Body = TransformStmts(a.Body, fn)
			arms[i] = a
		}
		n.Arms = arms
		return fn(n)
	case SelectExpr:
		arms := make([]SelectArm, len(n.Arms))
		for i, a := range n.Arms {
			a.Channel = TransformExpr(a.Channel, fn)
			if a.SendValue != nil {
				a.SendValue = TransformExpr(a.SendValue, fn)
			}
			a.Body = TransformStmts(a.Body, fn)
			arms[i] = a
		}
		n.Arms = arms
		n.Default = TransformStmts(n.Default, fn)
		return fn(n)
	case ChanMake:
		if n.Capacity != nil {
			n.Capacity = TransformExpr(n.Capacity, fn)
		}
		return fn(n)
	case TraitWrap:
		n.Operand = TransformExpr(n.Operand, fn)
		return fn(n)
	default:
		return fn(n)
	}
}

// TransformStmts rewrites every expression reachable from stmts, recursing
// into nested blocks (if/while/for/match/select/scope bodies).
func TransformStmts(stmts []Spanned[Stmt], fn func(Expr) Expr) []Spanned[Stmt] {
	out := make([]Spanned[Stmt], len(stmts))
	for i, s := range stmts {
		out[i] = Spanned[Stmt]{Node: transformStmt(s.Node, fn), Span: s.Span}
	}
	return out
}

func transformStmt(s Stmt, fn func(Expr) Expr) Stmt {
	switch n := s.(type) {
	case ExprStmt:
		n.Expr = TransformExpr(n.Expr, fn)
		return n
	case LetStmt:
		n.Value = TransformExpr(n.Value, fn)
		return n
	case AssignStmt:
		n.Target = TransformExpr(n.Target, fn)
		n.Value = TransformExpr(n.Value, fn)
		return n
	case ReturnStmt:
		if n.Value != nil {
			n.Value = TransformExpr(n.Value, fn)
		}
		return n
	case IfStmt:
		n.Cond = TransformExpr(n.Cond, fn)
		n.Then = TransformStmts(n.Then, fn)
		n.Else = TransformStmts(n.Else, fn)
		return n
	case WhileStmt:
		n.Cond = TransformExpr(n.Cond, fn)
		n.Body = TransformStmts(n.Body, fn)
		return n
	case ForStmt:
		n.Iterable = TransformExpr(n.Iterable, fn)
		n.Body = TransformStmts(n.Body, fn)
		return n
	case RaiseStmt:
		n.ErrorExpr = TransformExpr(n.ErrorExpr, fn)
		return n
	case MatchStmt:
		n.Scrutinee = TransformExpr(n.Scrutinee, fn)
		arms := make([]MatchArm, len(n.Arms))
		for i, a := range n.Arms {
			a.Guard = TransformExpr(a.Guard, fn)
			a.Body = TransformStmts(a.Body, fn)
			arms[i] = a
		}
		n.Arms = arms
		return n
	case SelectStmt:
		arms := make([]SelectArm, len(n.Arms))
		for i, a := range n.Arms {
			a.Channel = TransformExpr(a.Channel, fn)
			if a.SendValue != nil {
				a.SendValue = TransformExpr(a.SendValue, fn)
			}
			a.Body = TransformStmts(a.Body, fn)
			arms[i] = a
		}
		n.Arms = arms
		n.Default = TransformStmts(n.Default, fn)
		return n
	case ScopeStmt:
		seeds := make([]Expr, len(n.Seeds))
		for i, sd := range n.Seeds {
			seeds[i] = TransformExpr(sd, fn)
		}
		n.Seeds = seeds
		n.Body = TransformStmts(n.Body, fn)
		return n
	case BlockStmt:
		n.Body = TransformStmts(n.Body, fn)
		return n
	default:
		return s
	}
}
