package sema

import "github.com/mkerian10/pluto/internal/ast"

// ReclassifyTypeNames walks the parameter and return types of every
// top-level function and class/app/stage/trait method, plus class field
// types (app/stage fields, enum/error payloads and types inside bodies
// are not walked), and resolves the parser's blanket ast.TClass guess (§4.A leaves every named
// type as TClass since it can't yet tell a class from an enum, trait, or
// type parameter) into the right TypeKind, using typeParams — the
// enclosing function/class's own generic parameter names — to recognise
// shadowing. Resolves the Open Question the parser's ledger entry
// deferred to this pass.
func ReclassifyTypeNames(prog *ast.Program, env *Env) {
	for _, fn := range prog.Functions {
		reclassifyFunction(fn.Node, env, fn.Node.TypeParams)
	}
	for _, c := range prog.Classes {
		for _, f := range c.Node.Fields {
			reclassifyType(f.Type, env, c.Node.TypeParams)
		}
		for _, m := range c.Node.Methods {
			reclassifyFunction(m.Node, env, append(append([]string{}, c.Node.TypeParams...), m.Node.TypeParams...))
		}
	}
	if prog.App != nil {
		for _, m := range prog.App.Node.Methods {
			reclassifyFunction(m.Node, env, m.Node.TypeParams)
		}
	}
	for _, s := range prog.Stages {
		for _, m := range s.Node.Methods {
			reclassifyFunction(m.Node, env, m.Node.TypeParams)
		}
	}
	for _, tr := range prog.Traits {
		for _, m := range tr.Node.Methods {
			for i := range m.Params {
				reclassifyType(m.Params[i].Type, env, nil)
			}
			if m.Return != nil {
				reclassifyType(m.Return, env, nil)
			}
		}
	}
}

func reclassifyFunction(fn *ast.Function, env *Env, typeParams []string) {
	for i := range fn.Params {
		reclassifyType(fn.Params[i].Type, env, typeParams)
	}
	if fn.Return != nil {
		reclassifyType(fn.Return, env, typeParams)
	}
}

func reclassifyType(t *ast.Type, env *Env, typeParams []string) {
	if t == nil {
		return
	}
	switch t.Kind {
	case ast.TClass:
		for _, tp := range typeParams {
			if tp == t.Name {
				t.Kind = ast.TTypeParam
				return
			}
		}
		if resolved := env.classType(t.Name); resolved != nil {
			t.Kind = resolved.Kind
			t.Decl = resolved.Decl
		}
	case ast.TArray, ast.TSet, ast.TChan, ast.TTask:
		reclassifyType(t.Elem, env, typeParams)
	case ast.TMap:
		reclassifyType(t.Key, env, typeParams)
		reclassifyType(t.Value, env, typeParams)
	case ast.TClosure:
		for _, p := range t.Params {
			reclassifyType(p, env, typeParams)
		}
		reclassifyType(t.Return, env, typeParams)
	case ast.TGeneric:
		for _, a := range t.Args {
			reclassifyType(a, env, typeParams)
		}
	}
}
