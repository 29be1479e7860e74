// Package mono implements monomorphisation and closure lifting (SPEC_FULL
// §4.F), the pass that runs after type checking and before cross-reference
// resolution: every generic class/function type annotation is resolved to
// a concrete instantiation named by ast.Type.Mangle(), and every closure
// literal is replaced by a top-level function plus an ast.ClosureCreate
// site, exactly the two preconditions codegen/mod.rs and codegen/lower.rs
// assert ("Generic TypeExpr should not reach codegen — monomorphize should
// have resolved it", "closures should be lifted before codegen").
//
// No file in original_source/ survived the corpus filter for this stage
// specifically (mono.rs, if it ever existed, was filtered out); this
// package is grounded on what codegen/lower.rs and codegen/mod.rs assume
// of their input instead — their own comments describe the exact shape
// monomorphisation and lifting must leave behind.
package mono

import (
	"github.com/mkerian10/pluto/internal/ast"
	"github.com/mkerian10/pluto/internal/diag"
	"github.com/mkerian10/pluto/internal/sema"
)

// Monomorphizer collects generic instantiations demanded by the program's
// own type annotations and generates one concrete class/function per
// distinct instantiation.
type Monomorphizer struct {
	env   *sema.Env
	diags []*diag.Diagnostic

	classInstances map[string]*ast.Class
	fnInstances    map[string]*ast.Function
}

func NewMonomorphizer(env *sema.Env) *Monomorphizer {
	return &Monomorphizer{
		env:            env,
		classInstances: map[string]*ast.Class{},
		fnInstances:    map[string]*ast.Function{},
	}
}

func (m *Monomorphizer) Diagnostics() []*diag.Diagnostic { return m.diags }

// Run resolves every TGeneric type reachable from prog's declarations to a
// concrete TClass reference (instantiating the generic on first use) and
// appends the generated instances to prog.Classes/prog.Functions.
func (m *Monomorphizer) Run(prog *ast.Program) {
	for _, fn := range prog.Functions {
		m.resolveFunctionTypes(fn.Node)
	}
	for _, c := range prog.Classes {
		for i := range c.Node.Fields {
			c.Node.Fields[i].Type = m.resolveType(c.Node.Fields[i].Type)
		}
		for _, meth := range c.Node.Methods {
			m.resolveFunctionTypes(meth.Node)
		}
	}
	if prog.App != nil {
		for _, meth := range prog.App.Node.Methods {
			m.resolveFunctionTypes(meth.Node)
		}
	}
	for _, s := range prog.Stages {
		for _, meth := range s.Node.Methods {
			m.resolveFunctionTypes(meth.Node)
		}
	}

	for _, c := range m.classInstances {
		prog.Classes = append(prog.Classes, ast.Spanned[*ast.Class]{Node: c})
	}
	for _, fn := range m.fnInstances {
		prog.Functions = append(prog.Functions, ast.Spanned[*ast.Function]{Node: fn})
	}
}

func (m *Monomorphizer) resolveFunctionTypes(fn *ast.Function) {
	for i := range fn.Params {
		fn.Params[i].Type = m.resolveType(fn.Params[i].Type)
	}
	fn.Return = m.resolveType(fn.Return)
}

// resolveType rewrites a TGeneric reference into a TClass naming the
// mangled instantiation, generating that instantiation the first time it
// is demanded, and recurses into compound types (arrays/maps/closures/...)
// so a generic nested inside one still gets instantiated.
func (m *Monomorphizer) resolveType(t *ast.Type) *ast.Type {
	if t == nil {
		return nil
	}
	switch t.Kind {
	case ast.TGeneric:
		mangled := t.Mangle()
		if _, ok := m.classInstances[mangled]; !ok {
			if _, ok := m.fnInstances[mangled]; !ok {
				m.instantiate(t, mangled)
			}
		}
		return ast.Named(ast.TClass, mangled, ast.NoID())
	case ast.TArray, ast.TSet, ast.TChan, ast.TTask:
		t.Elem = m.resolveType(t.Elem)
		return t
	case ast.TMap:
		t.Key = m.resolveType(t.Key)
		t.Value = m.resolveType(t.Value)
		return t
	case ast.TClosure:
		for i := range t.Params {
			t.Params[i] = m.resolveType(t.Params[i])
		}
		t.Return = m.resolveType(t.Return)
		return t
	default:
		return t
	}
}

// instantiate generates the concrete class or function named by the
// generic's base name, substituting TypeParams -> t.Args throughout a deep
// copy of the declaration, keyed by mangled name so repeated uses of the
// same instantiation (e.g. Box<Int> referenced twice) share one copy.
func (m *Monomorphizer) instantiate(t *ast.Type, mangled string) {
	if gc, ok := m.env.Classes[t.Name]; ok {
		if len(gc.TypeParams) != len(t.Args) {
			m.diags = append(m.diags, diag.New(diag.Type, ast.Span{},
				"generic class %q expects %d type argument(s), got %d", t.Name, len(gc.TypeParams), len(t.Args)))
			return
		}
		subst := bindings(gc.TypeParams, t.Args)
		inst := &ast.Class{
			ID:         ast.NewID(),
			Name:       ast.NewSpanned(mangled, gc.Name.Span),
			Lifecycle:  gc.Lifecycle,
			Implements: gc.Implements,
		}
		for _, f := range gc.Fields {
			inst.Fields = append(inst.Fields, ast.Field{ID: ast.NewID(), Name: f.Name, Type: substType(f.Type, subst), IsInjected: f.IsInjected})
		}
		for _, meth := range gc.Methods {
			inst.Methods = append(inst.Methods, ast.Spanned[*ast.Function]{Node: substFunction(meth.Node, subst), Span: meth.Span})
		}
		for _, inv := range gc.Invariants {
			inst.Invariants = append(inst.Invariants, inv)
		}
		m.classInstances[mangled] = inst
		return
	}
	if gf, ok := m.env.Functions[t.Name]; ok {
		if len(gf.TypeParams) != len(t.Args) {
			m.diags = append(m.diags, diag.New(diag.Type, ast.Span{},
				"generic function %q expects %d type argument(s), got %d", t.Name, len(gf.TypeParams), len(t.Args)))
			return
		}
		subst := bindings(gf.TypeParams, t.Args)
		inst := substFunction(gf, subst)
		inst.Name = ast.NewSpanned(mangled, gf.Name.Span)
		inst.TypeParams = nil
		m.fnInstances[mangled] = inst
		return
	}
	m.diags = append(m.diags, diag.New(diag.Type, ast.Span{}, "no generic class or function named %q", t.Name))
}

func bindings(params []string, args []*ast.Type) map[string]*ast.Type {
	out := map[string]*ast.Type{}
	for i, p := range params {
		if i < len(args) {
			out[p] = args[i]
		}
	}
	return out
}

// substFunction deep-copies fn with every TTypeParam occurrence in its
// signature replaced per subst; the body is left untouched (expressions
// carry no standalone type-parameter nodes — their types flow from the
// already-substituted params/return at the points that need them, such as
// a Cast's Target).
func substFunction(fn *ast.Function, subst map[string]*ast.Type) *ast.Function {
	out := &ast.Function{
		ID:         ast.NewID(),
		Name:       fn.Name,
		IsFallible: fn.IsFallible,
		Contracts:  fn.Contracts,
		Body:       fn.Body,
		IsPrivate:  fn.IsPrivate,
		IsOverride: fn.IsOverride,
		TypeParams: fn.TypeParams,
	}
	for _, p := range fn.Params {
		out.Params = append(out.Params, ast.Param{ID: ast.NewID(), Name: p.Name, Type: substType(p.Type, subst), Ambient: p.Ambient})
	}
	out.Return = substType(fn.Return, subst)
	return out
}

func substType(t *ast.Type, subst map[string]*ast.Type) *ast.Type {
	if t == nil {
		return nil
	}
	switch t.Kind {
	case ast.TTypeParam:
		if repl, ok := subst[t.Name]; ok {
			return repl
		}
		return t
	case ast.TArray:
		return ast.ArrayOf(substType(t.Elem, subst))
	case ast.TSet:
		return ast.SetOf(substType(t.Elem, subst))
	case ast.TChan:
		return ast.ChanOf(substType(t.Elem, subst))
	case ast.TTask:
		return ast.TaskOf(substType(t.Elem, subst))
	case ast.TMap:
		return ast.MapOf(substType(t.Key, subst), substType(t.Value, subst))
	case ast.TClosure:
		params := make([]*ast.Type, len(t.Params))
		for i, p := range t.Params {
			params[i] = substType(p, subst)
		}
		return ast.ClosureType(params, substType(t.Return, subst))
	case ast.TGeneric:
		args := make([]*ast.Type, len(t.Args))
		for i, a := range t.Args {
			args[i] = substType(a, subst)
		}
		g := ast.Generic(t.Name, args)
		return ast.Named(ast.TClass, g.Mangle(), ast.NoID())
	default:
		return t
	}
}
