// Package resolver implements cross-reference resolution (SPEC_FULL
// §4.G): after monomorphisation has settled every declaration's final
// name, this pass builds one whole-program index of declaration UUIDs and
// walks every expression/statement filling in the use-site reference
// slots (TargetID, EnumID, VariantID, ErrorID) that earlier passes left
// as OptionalID{}. Ported closely from original_source/src/xref.rs's
// DeclIndex/resolve_cross_refs.
package resolver

import "github.com/mkerian10/pluto/internal/ast"

type variantKey struct{ enum, variant string }

// DeclIndex maps every declared name to the UUID it resolves to.
type DeclIndex struct {
	fnIndex      map[string]ast.ID
	classIndex   map[string]ast.ID
	enumIndex    map[string]ast.ID
	variantIndex map[variantKey]ast.ID
	errorIndex   map[string]ast.ID
}

// mangleMethod matches internal/sema's Class$method / App$method /
// Stage$method owner-mangling convention so fn_index keys line up with
// what error-set inference and codegen both already use to key methods.
func mangleMethod(owner, method string) string { return owner + "$" + method }

func BuildIndex(prog *ast.Program) *DeclIndex {
	idx := &DeclIndex{
		fnIndex:      map[string]ast.ID{},
		classIndex:   map[string]ast.ID{},
		enumIndex:    map[string]ast.ID{},
		variantIndex: map[variantKey]ast.ID{},
		errorIndex:   map[string]ast.ID{},
	}

	for _, f := range prog.Functions {
		idx.fnIndex[f.Node.Name.Node] = f.Node.ID
	}
	for _, c := range prog.Classes {
		idx.classIndex[c.Node.Name.Node] = c.Node.ID
		for _, m := range c.Node.Methods {
			idx.fnIndex[mangleMethod(c.Node.Name.Node, m.Node.Name.Node)] = m.Node.ID
		}
	}
	for _, e := range prog.Enums {
		idx.enumIndex[e.Node.Name.Node] = e.Node.ID
		for _, v := range e.Node.Variants {
			idx.variantIndex[variantKey{e.Node.Name.Node, v.Name.Node}] = v.ID
		}
	}
	for _, err := range prog.Errors {
		idx.errorIndex[err.Node.Name.Node] = err.Node.ID
	}
	if prog.App != nil {
		for _, m := range prog.App.Node.Methods {
			idx.fnIndex[mangleMethod(prog.App.Node.Name.Node, m.Node.Name.Node)] = m.Node.ID
		}
	}
	for _, s := range prog.Stages {
		for _, m := range s.Node.Methods {
			idx.fnIndex[mangleMethod(s.Node.Name.Node, m.Node.Name.Node)] = m.Node.ID
		}
	}
	// Extern functions have no declaration UUID in the AST and are left
	// unresolved, same as any other unrecognised name (print/expect/etc.);
	// trait methods are reached only through an implementing class's own
	// method entry, never indexed directly by trait name.

	return idx
}

// Resolve builds a DeclIndex from prog and fills every TargetID/EnumID/
// VariantID/ErrorID slot it can find a match for; names that resolve to
// nothing (built-ins, extern calls) are left as OptionalID{} exactly as
// the parser produced them.
func Resolve(prog *ast.Program) {
	idx := BuildIndex(prog)
	for _, f := range prog.Functions {
		idx.resolveStmts(f.Node.Body)
	}
	for _, c := range prog.Classes {
		for _, m := range c.Node.Methods {
			idx.resolveStmts(m.Node.Body)
		}
	}
	if prog.App != nil {
		for _, m := range prog.App.Node.Methods {
			idx.resolveStmts(m.Node.Body)
		}
	}
	for _, s := range prog.Stages {
		for _, m := range s.Node.Methods {
			idx.resolveStmts(m.Node.Body)
		}
	}
}

func some(id ast.ID) ast.OptionalID { return ast.SomeID(id) }

func (idx *DeclIndex) resolveStmts(stmts []ast.Spanned[ast.Stmt]) {
	for i := range stmts {
		stmts[i].Node = idx.resolveStmt(stmts[i].Node)
	}
}

func (idx *DeclIndex) resolveStmt(s ast.Stmt) ast.Stmt {
	switch n := s.(type) {
	case ast.ExprStmt:
		n.Expr = idx.resolveExpr(n.Expr)
		return n
	case ast.LetStmt:
		n.Value = idx.resolveExpr(n.Value)
		return n
	case ast.AssignStmt:
		n.Target = idx.resolveExpr(n.Target)
		n.Value = idx.resolveExpr(n.Value)
		return n
	case ast.ReturnStmt:
		if n.Value != nil {
			n.Value = idx.resolveExpr(n.Value)
		}
		return n
	case ast.IfStmt:
		n.Cond = idx.resolveExpr(n.Cond)
		idx.resolveStmts(n.Then)
		idx.resolveStmts(n.Else)
		return n
	case ast.WhileStmt:
		n.Cond = idx.resolveExpr(n.Cond)
		idx.resolveStmts(n.Body)
		return n
	case ast.ForStmt:
		n.Iterable = idx.resolveExpr(n.Iterable)
		idx.resolveStmts(n.Body)
		return n
	case ast.RaiseStmt:
		n.ErrorExpr = idx.resolveExpr(n.ErrorExpr)
		if name := errorNameOf(n.ErrorExpr); name != "" {
			if id, ok := idx.errorIndex[name]; ok {
				n.ErrorID = some(id)
			}
		}
		return n
	case ast.MatchStmt:
		n.Scrutinee = idx.resolveExpr(n.Scrutinee)
		for i := range n.Arms {
			n.Arms[i].Pattern = idx.resolvePattern(n.Arms[i].Pattern)
			if n.Arms[i].Guard != nil {
				n.Arms[i].Guard = idx.resolveExpr(n.Arms[i].Guard)
			}
			idx.resolveStmts(n.Arms[i].Body)
		}
		return n
	case ast.SelectStmt:
		for i := range n.Arms {
			n.Arms[i].Channel = idx.resolveExpr(n.Arms[i].Channel)
			if n.Arms[i].SendValue != nil {
				n.Arms[i].SendValue = idx.resolveExpr(n.Arms[i].SendValue)
			}
			idx.resolveStmts(n.Arms[i].Body)
		}
		idx.resolveStmts(n.Default)
		return n
	case ast.ScopeStmt:
		for i, seed := range n.Seeds {
			n.Seeds[i] = idx.resolveExpr(seed)
		}
		idx.resolveStmts(n.Body)
		return n
	case ast.BlockStmt:
		idx.resolveStmts(n.Body)
		return n
	default:
		return s
	}
}

func (idx *DeclIndex) resolvePattern(p ast.Pattern) ast.Pattern {
	ep, ok := p.(ast.EnumPattern)
	if !ok {
		return p
	}
	if id, ok := idx.enumIndex[ep.EnumName]; ok {
		ep.EnumID = some(id)
	}
	if id, ok := idx.variantIndex[variantKey{ep.EnumName, ep.Variant}]; ok {
		ep.VariantID = some(id)
	}
	return ep
}

func errorNameOf(e ast.Expr) string {
	if sl, ok := e.(ast.StructLit); ok {
		return sl.ClassName
	}
	return ""
}

func (idx *DeclIndex) resolveExpr(e ast.Expr) ast.Expr {
	switch n := e.(type) {
	case ast.Call:
		for i, a := range n.Args {
			n.Args[i] = idx.resolveExpr(a)
		}
		if id, ok := idx.fnIndex[n.Name.Node]; ok {
			n.TargetID = some(id)
		}
		return n

	case ast.MethodCall:
		n.Object = idx.resolveExpr(n.Object)
		for i, a := range n.Args {
			n.Args[i] = idx.resolveExpr(a)
		}
		return n

	case ast.StructLit:
		for i, f := range n.Fields {
			f.Value = idx.resolveExpr(f.Value)
			n.Fields[i] = f
		}
		if id, ok := idx.classIndex[n.ClassName]; ok {
			n.TargetID = some(id)
		}
		return n

	case ast.EnumCtor:
		for i, a := range n.Args {
			n.Args[i] = idx.resolveExpr(a)
		}
		if id, ok := idx.enumIndex[n.EnumName]; ok {
			n.EnumID = some(id)
		}
		if id, ok := idx.variantIndex[variantKey{n.EnumName, n.Variant}]; ok {
			n.VariantID = some(id)
		}
		return n

	case ast.ClosureCreate:
		if id, ok := idx.fnIndex[n.FnName]; ok {
			n.TargetID = some(id)
		}
		return n

	case ast.FieldAccess:
		n.Object = idx.resolveExpr(n.Object)
		return n
	case ast.BinOp:
		n.LHS = idx.resolveExpr(n.LHS)
		n.RHS = idx.resolveExpr(n.RHS)
		return n
	case ast.UnaryOp:
		n.Operand = idx.resolveExpr(n.Operand)
		return n
	case ast.Index:
		n.Object = idx.resolveExpr(n.Object)
		n.Idx = idx.resolveExpr(n.Idx)
		return n
	case ast.Range:
		n.Start = idx.resolveExpr(n.Start)
		n.End = idx.resolveExpr(n.End)
		return n
	case ast.ArrayLit:
		for i, el := range n.Elems {
			n.Elems[i] = idx.resolveExpr(el)
		}
		return n
	case ast.MapLit:
		for i, entry := range n.Entries {
			entry.Key = idx.resolveExpr(entry.Key)
			entry.Value = idx.resolveExpr(entry.Value)
			n.Entries[i] = entry
		}
		return n
	case ast.SetLit:
		for i, el := range n.Elems {
			n.Elems[i] = idx.resolveExpr(el)
		}
		return n
	case ast.Closure:
		idx.resolveStmts(n.Body)
		return n
	case ast.Spawn:
		n.Call = idx.resolveExpr(n.Call)
		return n
	case ast.Cast:
		n.Operand = idx.resolveExpr(n.Operand)
		return n
	case ast.NullablePropagate:
		n.Operand = idx.resolveExpr(n.Operand)
		return n
	case ast.ErrorPropagate:
		n.Operand = idx.resolveExpr(n.Operand)
		return n
	case ast.Catch:
		n.Operand = idx.resolveExpr(n.Operand)
		if n.HasBlock {
			idx.resolveStmts(n.Block)
		}
		if n.Fallback != nil {
			n.Fallback = idx.resolveExpr(n.Fallback)
		}
		return n
	case ast.Old:
		n.Operand = idx.resolveExpr(n.Operand)
		return n
	case ast.Match:
		n.Scrutinee = idx.resolveExpr(n.Scrutinee)
		for i := range n.Arms {
			n.Arms[i].Pattern = idx.resolvePattern(n.Arms[i].Pattern)
			if n.Arms[i].Guard != nil {
				n.Arms[i].Guard = idx.resolveExpr(n.Arms[i].Guard)
			}
			idx.resolveStmts(n.Arms[i].Body)
		}
		return n
	case ast.SelectExpr:
		for i := range n.Arms {
			n.Arms[i].Channel = idx.resolveExpr(n.Arms[i].Channel)
			idx.resolveStmts(n.Arms[i].Body)
		}
		idx.resolveStmts(n.Default)
		return n
	case ast.ChanMake:
		n.Capacity = idx.resolveExpr(n.Capacity)
		return n
	case ast.TraitWrap:
		n.Operand = idx.resolveExpr(n.Operand)
		return n
	default:
		return e
	}
}
