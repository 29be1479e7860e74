// Package lower implements IR lowering (SPEC_FULL §4.I): walks a checked,
// monomorphised, cross-reference-resolved *ast.Program and emits one
// internal/codegen/ir.Module.
//
// Structured as a two-level compiler state — moduleLowerer holds the
// module being built and the diagnostics collected so far,
// funcLowerer holds one function's block/value-naming state — mirroring
// the pack's only bytecode-compiler example (other_examples' lang
// compiler's pcomp/fcomp split: a program-level compiler minting
// per-function compiler states that each own their own block list and
// local-variable table).
package lower

import (
	"fmt"

	"github.com/mkerian10/pluto/internal/ast"
	"github.com/mkerian10/pluto/internal/codegen/ir"
	"github.com/mkerian10/pluto/internal/diag"
)

type moduleLowerer struct {
	mod   *ir.Module
	diags []*diag.Diagnostic
}

// Lower produces an ir.Module from prog. prog must already have passed
// through desugar, contracts, sema (check+DI+error-sets), mono, and
// resolver — lowering assumes every TargetID/EnumID/VariantID/ErrorID
// slot that can be resolved already has been, and that no TGeneric type
// or bare ast.Closure literal remains.
func Lower(prog *ast.Program) (*ir.Module, []*diag.Diagnostic) {
	ml := &moduleLowerer{mod: &ir.Module{}}

	for _, fn := range prog.Functions {
		ml.lowerFunction(fn.Node.Name.Node, fn.Node)
	}
	for _, c := range prog.Classes {
		for _, m := range c.Node.Methods {
			ml.lowerFunction(mangle(c.Node.Name.Node, m.Node.Name.Node), m.Node)
		}
	}
	if prog.App != nil {
		for _, m := range prog.App.Node.Methods {
			name := mangle(prog.App.Node.Name.Node, m.Node.Name.Node)
			ml.lowerFunction(name, m.Node)
			if m.Node.Name.Node == "main" {
				ml.mod.AppMain = name
			}
		}
	}
	for _, s := range prog.Stages {
		for _, m := range s.Node.Methods {
			ml.lowerFunction(mangle(s.Node.Name.Node, m.Node.Name.Node), m.Node)
		}
	}
	for _, tr := range prog.Traits {
		for _, m := range tr.Node.Methods {
			if !m.HasBody {
				continue
			}
			name := mangle(tr.Node.Name.Node, m.Name.Node)
			ml.lowerFunction(name, &ast.Function{Name: ast.NewSpanned(name, ast.Span{}), Params: m.Params, Return: m.Return, Body: m.Body})
		}
	}
	for _, tb := range prog.Tests {
		name := "t$" + tb.Node.Name.Node
		ml.mod.TestEntries = append(ml.mod.TestEntries, name)
		ml.lowerFunction(name, &ast.Function{Name: ast.NewSpanned(name, tb.Span), Body: tb.Node.Body})
	}

	return ml.mod, ml.diags
}

func mangle(owner, method string) string { return owner + "$" + method }

func (ml *moduleLowerer) errorf(format string, args ...any) {
	ml.diags = append(ml.diags, diag.New(diag.Codegen, ast.Span{}, format, args...))
}

// funcLowerer owns one function's emission state: the block currently
// being appended to, a monotonically increasing value counter for
// synthesized SSA-ish temporaries, and the local-variable → value-name
// table.
type funcLowerer struct {
	ml      *moduleLowerer
	fn      *ir.Function
	cur     *ir.Block
	counter int
	locals  map[string]string
	sealed  bool
}

func (ml *moduleLowerer) lowerFunction(name string, astFn *ast.Function) {
	fn := ml.mod.NewFunction(name)
	fn.IsFallible = astFn.IsFallible
	for _, p := range astFn.Params {
		fn.Params = append(fn.Params, p.Name)
	}
	fl := &funcLowerer{ml: ml, fn: fn, locals: map[string]string{}}
	fl.cur = fn.Block("entry")
	for _, p := range astFn.Params {
		fl.locals[p.Name] = p.Name
	}
	fl.lowerStmts(astFn.Body)
	if !fl.sealed {
		fl.cur.Term = ir.Terminator{Kind: ir.TermReturn}
	}
}

func (fl *funcLowerer) fresh() string {
	fl.counter++
	return fmt.Sprintf("%%%d", fl.counter)
}

func (fl *funcLowerer) emit(ins ir.Instruction) string {
	if ins.Dst == "" && opProducesValue(ins.Op) {
		ins.Dst = fl.fresh()
	}
	fl.cur.Instrs = append(fl.cur.Instrs, ins)
	return ins.Dst
}

func opProducesValue(op ir.Op) bool {
	switch op {
	case ir.OpStoreLocal, ir.OpStoreField, ir.OpChanSend, ir.OpRaise:
		return false
	default:
		return true
	}
}

func (fl *funcLowerer) newBlock(label string) *ir.Block {
	fl.counter++
	return fl.fn.Block(fmt.Sprintf("%s_%d", label, fl.counter))
}

func (fl *funcLowerer) lowerStmts(stmts []ast.Spanned[ast.Stmt]) {
	for _, s := range stmts {
		if fl.sealed {
			return
		}
		fl.lowerStmt(s.Node)
	}
}

func (fl *funcLowerer) lowerStmt(s ast.Stmt) {
	switch n := s.(type) {
	case ast.ExprStmt:
		fl.lowerExpr(n.Expr)

	case ast.LetStmt:
		v := fl.lowerExpr(n.Value)
		if len(n.Names) == 1 {
			fl.locals[n.Names[0]] = v
		}

	case ast.AssignStmt:
		v := fl.lowerExpr(n.Value)
		if id, ok := n.Target.(ast.Ident); ok {
			fl.locals[id.Name] = v
			fl.emit(ir.Instruction{Op: ir.OpStoreLocal, Args: []string{v}, Str: id.Name})
		} else if fa, ok := n.Target.(ast.FieldAccess); ok {
			obj := fl.lowerExpr(fa.Object)
			fl.emit(ir.Instruction{Op: ir.OpStoreField, Args: []string{obj, v}, Str: fa.Field})
		}

	case ast.ReturnStmt:
		var v string
		if n.Value != nil {
			v = fl.lowerExpr(n.Value)
		}
		fl.cur.Term = ir.Terminator{Kind: ir.TermReturn, Value: v}
		fl.sealed = true

	case ast.RaiseStmt:
		v := fl.lowerExpr(n.ErrorExpr)
		fl.emit(ir.Instruction{Op: ir.OpRaise, Args: []string{v}})
		fl.cur.Term = ir.Terminator{Kind: ir.TermReturn}
		fl.sealed = true

	case ast.IfStmt:
		cond := fl.lowerExpr(n.Cond)
		thenBlock := fl.newBlock("then")
		elseBlock := fl.newBlock("else")
		join := fl.newBlock("endif")
		fl.cur.Term = ir.Terminator{Kind: ir.TermBranch, Value: cond, Target: thenBlock.Label, Alt: elseBlock.Label}

		fl.cur = thenBlock
		fl.sealed = false
		fl.lowerStmts(n.Then)
		if !fl.sealed {
			fl.cur.Term = ir.Terminator{Kind: ir.TermJump, Target: join.Label}
		}

		fl.cur = elseBlock
		fl.sealed = false
		fl.lowerStmts(n.Else)
		if !fl.sealed {
			fl.cur.Term = ir.Terminator{Kind: ir.TermJump, Target: join.Label}
		}

		fl.cur = join
		fl.sealed = false

	case ast.WhileStmt:
		head := fl.newBlock("whead")
		body := fl.newBlock("wbody")
		after := fl.newBlock("wafter")
		fl.cur.Term = ir.Terminator{Kind: ir.TermJump, Target: head.Label}

		fl.cur = head
		cond := fl.lowerExpr(n.Cond)
		fl.cur.Term = ir.Terminator{Kind: ir.TermBranch, Value: cond, Target: body.Label, Alt: after.Label}

		fl.cur = body
		fl.sealed = false
		fl.lowerStmts(n.Body)
		if !fl.sealed {
			fl.cur.Term = ir.Terminator{Kind: ir.TermJump, Target: head.Label}
		}

		fl.cur = after
		fl.sealed = false

	case ast.ForStmt:
		// Lowered as a head/body/after loop driven by the iter_has_next and
		// iter_next runtime calls on the iterable, whatever its checked
		// type; no type-specific iteration strategy is emitted here.
		iterable := fl.lowerExpr(n.Iterable)
		head := fl.newBlock("fhead")
		body := fl.newBlock("fbody")
		after := fl.newBlock("fafter")
		fl.cur.Term = ir.Terminator{Kind: ir.TermJump, Target: head.Label}

		fl.cur = head
		cond := fl.emit(ir.Instruction{Op: ir.OpCallRuntime, Str: "iter_has_next", Args: []string{iterable}})
		fl.cur.Term = ir.Terminator{Kind: ir.TermBranch, Value: cond, Target: body.Label, Alt: after.Label}

		fl.cur = body
		fl.sealed = false
		elem := fl.emit(ir.Instruction{Op: ir.OpCallRuntime, Str: "iter_next", Args: []string{iterable}})
		fl.locals[n.Binding] = elem
		fl.lowerStmts(n.Body)
		if !fl.sealed {
			fl.cur.Term = ir.Terminator{Kind: ir.TermJump, Target: head.Label}
		}

		fl.cur = after
		fl.sealed = false

	case ast.MatchStmt:
		fl.lowerMatch(n.Scrutinee, n.Arms)

	case ast.ScopeStmt:
		for _, seed := range n.Seeds {
			fl.lowerExpr(seed)
		}
		fl.lowerStmts(n.Body)

	case ast.BlockStmt:
		fl.lowerStmts(n.Body)

	case ast.SelectStmt:
		// No select buffer (3xN slot protocol) or dispatch call is emitted:
		// each arm's channel and body, then the default, are lowered in
		// sequence so downstream analysis sees every reachable block.
		for _, a := range n.Arms {
			fl.lowerExpr(a.Channel)
			fl.lowerStmts(a.Body)
		}
		fl.lowerStmts(n.Default)
	}
}

// lowerMatch branches on an enum_tag runtime call for each arm in turn.
// MatchArm.Guard is not evaluated: an arm with a guard is entered on the
// tag branch alone, exactly like an unguarded arm.
func (fl *funcLowerer) lowerMatch(scrutinee ast.Expr, arms []ast.MatchArm) {
	v := fl.lowerExpr(scrutinee)
	join := fl.newBlock("endmatch")
	for _, arm := range arms {
		armBlock := fl.newBlock("arm")
		nextCheck := fl.newBlock("check")
		tag := fl.emit(ir.Instruction{Op: ir.OpCallRuntime, Str: "enum_tag", Args: []string{v}})
		fl.cur.Term = ir.Terminator{Kind: ir.TermBranch, Value: tag, Target: armBlock.Label, Alt: nextCheck.Label}

		fl.cur = armBlock
		fl.sealed = false
		bindMatchLocals(arm.Pattern, v, fl)
		fl.lowerStmts(arm.Body)
		if !fl.sealed {
			fl.cur.Term = ir.Terminator{Kind: ir.TermJump, Target: join.Label}
		}

		fl.cur = nextCheck
		fl.sealed = false
	}
	fl.cur.Term = ir.Terminator{Kind: ir.TermJump, Target: join.Label}
	fl.cur = join
	fl.sealed = false
}

func bindMatchLocals(p ast.Pattern, scrutinee string, fl *funcLowerer) {
	ep, ok := p.(ast.EnumPattern)
	if !ok {
		return
	}
	for i, b := range ep.Bindings {
		fl.locals[b] = fl.emit(ir.Instruction{Op: ir.OpCallRuntime, Str: "enum_field", Args: []string{scrutinee}, Imm: int64(i)})
	}
}

func (fl *funcLowerer) lowerExpr(e ast.Expr) string {
	switch n := e.(type) {
	case ast.IntLit:
		return fl.emit(ir.Instruction{Op: ir.OpConstInt, Imm: n.Value})
	case ast.FloatLit:
		return fl.emit(ir.Instruction{Op: ir.OpConstFloat, Str: fmt.Sprintf("%g", n.Value)})
	case ast.BoolLit:
		imm := int64(0)
		if n.Value {
			imm = 1
		}
		return fl.emit(ir.Instruction{Op: ir.OpConstBool, Imm: imm})
	case ast.ByteLit:
		return fl.emit(ir.Instruction{Op: ir.OpConstByte, Imm: int64(n.Value)})
	case ast.StringLit:
		return fl.emit(ir.Instruction{Op: ir.OpConstString, Str: n.Value})
	case ast.NoneLit:
		return fl.emit(ir.Instruction{Op: ir.OpCallRuntime, Str: "option_none"})

	case ast.Ident:
		if v, ok := fl.locals[n.Name]; ok {
			return v
		}
		return fl.emit(ir.Instruction{Op: ir.OpLoadLocal, Str: n.Name})

	case ast.FieldAccess:
		obj := fl.lowerExpr(n.Object)
		return fl.emit(ir.Instruction{Op: ir.OpLoadField, Args: []string{obj}, Str: n.Field})

	case ast.BinOp:
		lhs := fl.lowerExpr(n.LHS)
		rhs := fl.lowerExpr(n.RHS)
		return fl.emit(ir.Instruction{Op: binOp(n.Op), Args: []string{lhs, rhs}})

	case ast.UnaryOp:
		v := fl.lowerExpr(n.Operand)
		return fl.emit(ir.Instruction{Op: unaryOp(n.Op), Args: []string{v}})

	case ast.Call:
		var args []string
		for _, a := range n.Args {
			args = append(args, fl.lowerExpr(a))
		}
		return fl.emit(ir.Instruction{Op: ir.OpCall, Args: args, Str: n.Name.Node})

	case ast.MethodCall:
		obj := fl.lowerExpr(n.Object)
		args := []string{obj}
		for _, a := range n.Args {
			args = append(args, fl.lowerExpr(a))
		}
		return fl.emit(ir.Instruction{Op: ir.OpCall, Args: args, Str: n.Method.Node})

	case ast.StructLit:
		v := fl.emit(ir.Instruction{Op: ir.OpAlloc, Str: n.ClassName, Imm: int64(len(n.Fields))})
		for _, f := range n.Fields {
			fv := fl.lowerExpr(f.Value)
			fl.emit(ir.Instruction{Op: ir.OpStoreField, Args: []string{v, fv}, Str: f.Name})
		}
		return v

	case ast.EnumCtor:
		var args []string
		for _, a := range n.Args {
			args = append(args, fl.lowerExpr(a))
		}
		return fl.emit(ir.Instruction{Op: ir.OpCallRuntime, Str: "enum_ctor$" + n.EnumName + "$" + n.Variant, Args: args})

	case ast.ArrayLit:
		var args []string
		for _, el := range n.Elems {
			args = append(args, fl.lowerExpr(el))
		}
		return fl.emit(ir.Instruction{Op: ir.OpCallRuntime, Str: "array_new", Args: args})

	case ast.SetLit:
		var args []string
		for _, el := range n.Elems {
			args = append(args, fl.lowerExpr(el))
		}
		return fl.emit(ir.Instruction{Op: ir.OpCallRuntime, Str: "set_new", Args: args})

	case ast.MapLit:
		var args []string
		for _, entry := range n.Entries {
			args = append(args, fl.lowerExpr(entry.Key), fl.lowerExpr(entry.Value))
		}
		return fl.emit(ir.Instruction{Op: ir.OpCallRuntime, Str: "map_new", Args: args})

	case ast.Index:
		obj := fl.lowerExpr(n.Object)
		idx := fl.lowerExpr(n.Idx)
		return fl.emit(ir.Instruction{Op: ir.OpCallRuntime, Str: "index_get", Args: []string{obj, idx}})

	case ast.ClosureCreate:
		var args []string
		for _, capName := range n.Captures {
			args = append(args, fl.lowerExpr(ast.Ident{Name: capName}))
		}
		return fl.emit(ir.Instruction{Op: ir.OpClosureCreate, Str: n.FnName, Args: args})

	case ast.Spawn:
		v := fl.lowerExpr(n.Call)
		return fl.emit(ir.Instruction{Op: ir.OpSpawnTask, Args: []string{v}})

	case ast.Cast:
		v := fl.lowerExpr(n.Operand)
		return fl.emit(ir.Instruction{Op: ir.OpCallRuntime, Str: "cast", Args: []string{v}})

	case ast.ErrorPropagate:
		v := fl.lowerExpr(n.Operand)
		fl.emit(ir.Instruction{Op: ir.OpPropagateCheck, Args: []string{v}})
		return v

	case ast.NullablePropagate:
		return fl.lowerExpr(n.Operand)

	case ast.Catch:
		v := fl.lowerExpr(n.Operand)
		if n.HasBlock {
			fl.lowerStmts(n.Block)
		}
		if n.Fallback != nil {
			return fl.lowerExpr(n.Fallback)
		}
		return v

	case ast.Old:
		v := fl.lowerExpr(n.Operand)
		return fl.emit(ir.Instruction{Op: ir.OpOldSnapshot, Args: []string{v}})

	case ast.TraitWrap:
		return fl.lowerExpr(n.Operand)

	case ast.ChanMake:
		capVal := fl.lowerExpr(n.Capacity)
		return fl.emit(ir.Instruction{Op: ir.OpChanMake, Args: []string{capVal}})

	case ast.Match:
		fl.lowerMatch(n.Scrutinee, n.Arms)
		return fl.fresh()

	case ast.Range:
		start := fl.lowerExpr(n.Start)
		end := fl.lowerExpr(n.End)
		imm := int64(0)
		if n.Inclusive {
			imm = 1
		}
		return fl.emit(ir.Instruction{Op: ir.OpCallRuntime, Str: "range_new", Args: []string{start, end}, Imm: imm})

	case ast.InterpString:
		var args []string
		for _, part := range n.Parts {
			if part.Expr == nil {
				args = append(args, fl.emit(ir.Instruction{Op: ir.OpConstString, Str: part.Text}))
			} else {
				args = append(args, fl.lowerExpr(part.Expr))
			}
		}
		return fl.emit(ir.Instruction{Op: ir.OpCallRuntime, Str: "string_interp", Args: args})

	case ast.SelectExpr:
		// Same simplification as the SelectStmt form: arm bodies are
		// lowered in sequence so every reachable block is emitted; no
		// rtselect dispatch call is emitted.
		for _, a := range n.Arms {
			fl.lowerExpr(a.Channel)
			fl.lowerStmts(a.Body)
		}
		fl.lowerStmts(n.Default)
		return fl.fresh()

	case ast.AmbientRef:
		fl.ml.errorf("lower: unresolved AmbientRef(%s) reached codegen — desugar should have rewritten it to a field access", n.TypeName)
		return fl.fresh()

	case ast.Closure:
		fl.ml.errorf("lower: bare closure literal reached codegen — closures should be lifted before codegen")
		return fl.fresh()

	default:
		fl.ml.errorf("lower: unsupported expression %T", e)
		return fl.fresh()
	}
}

func unaryOp(op ast.UnaryOpKind) ir.Op {
	switch op {
	case ast.OpNot:
		return ir.OpNot
	case ast.OpBitNot:
		return ir.OpBitNot
	default:
		return ir.OpNeg
	}
}

func binOp(op ast.BinOpKind) ir.Op {
	switch op {
	case ast.OpAdd:
		return ir.OpAdd
	case ast.OpSub:
		return ir.OpSub
	case ast.OpMul:
		return ir.OpMul
	case ast.OpDiv:
		return ir.OpDiv
	case ast.OpMod:
		return ir.OpMod
	case ast.OpEq:
		return ir.OpEq
	case ast.OpNeq:
		return ir.OpNeq
	case ast.OpLt:
		return ir.OpLt
	case ast.OpLte:
		return ir.OpLte
	case ast.OpGt:
		return ir.OpGt
	case ast.OpGte:
		return ir.OpGte
	case ast.OpAnd:
		return ir.OpAnd
	case ast.OpOr:
		return ir.OpOr
	case ast.OpBitAnd:
		return ir.OpBitAnd
	case ast.OpBitOr:
		return ir.OpBitOr
	case ast.OpBitXor:
		return ir.OpBitXor
	case ast.OpShl:
		return ir.OpShl
	case ast.OpShr:
		return ir.OpShr
	default:
		return ir.OpAdd
	}
}
