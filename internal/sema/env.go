// Package sema implements the Pluto type checker (SPEC_FULL §4.E): a
// two-layer pass — build a whole-program environment of declared names,
// then check every function/method body against it — plus the DI
// dependency-lifecycle validator and the error-set (raises) inference
// pass that run alongside it.
//
// Grounded on the teacher's own two-phase interpreter habit (interp.go
// builds a universe/scope table before walking a CFG to evaluate it);
// here "evaluate" becomes "check", and the universe becomes Env.
package sema

import "github.com/mkerian10/pluto/internal/ast"

// Env is the whole-program declaration environment built once before any
// function body is checked, so forward references (a function calling one
// declared later in the file) resolve without a second pass.
type Env struct {
	Classes   map[string]*ast.Class
	Enums     map[string]*ast.Enum
	Traits    map[string]*ast.Trait
	Errors    map[string]*ast.ErrorDecl
	Functions map[string]*ast.Function
	App       *ast.App
	Stages    map[string]*ast.Stage
}

// BuildEnv indexes every top-level declaration in prog by name.
func BuildEnv(prog *ast.Program) *Env {
	env := &Env{
		Classes:   map[string]*ast.Class{},
		Enums:     map[string]*ast.Enum{},
		Traits:    map[string]*ast.Trait{},
		Errors:    map[string]*ast.ErrorDecl{},
		Functions: map[string]*ast.Function{},
		Stages:    map[string]*ast.Stage{},
	}
	for _, c := range prog.Classes {
		env.Classes[c.Node.Name.Node] = c.Node
	}
	for _, e := range prog.Enums {
		env.Enums[e.Node.Name.Node] = e.Node
	}
	for _, tr := range prog.Traits {
		env.Traits[tr.Node.Name.Node] = tr.Node
	}
	for _, er := range prog.Errors {
		env.Errors[er.Node.Name.Node] = er.Node
	}
	for _, fn := range prog.Functions {
		env.Functions[fn.Node.Name.Node] = fn.Node
	}
	for _, s := range prog.Stages {
		env.Stages[s.Node.Name.Node] = s.Node
	}
	if prog.App != nil {
		env.App = prog.App.Node
	}
	return env
}

// classType returns a fully-typed TClass/TEnum/TTrait reference for name,
// or nil if name isn't any declared type.
func (env *Env) classType(name string) *ast.Type {
	if _, ok := env.Enums[name]; ok {
		return ast.Named(ast.TEnum, name, ast.NoID())
	}
	if _, ok := env.Traits[name]; ok {
		return ast.Named(ast.TTrait, name, ast.NoID())
	}
	if _, ok := env.Classes[name]; ok {
		return ast.Named(ast.TClass, name, ast.NoID())
	}
	return nil
}

// fieldType looks up a field's declared type on a class, following no
// inheritance (Pluto classes don't have field inheritance — only stages
// do, and that's flattened away by desugar before sema runs).
func (env *Env) fieldType(className, fieldName string) *ast.Type {
	c, ok := env.Classes[className]
	if !ok {
		return nil
	}
	for _, f := range c.Fields {
		if f.Name == fieldName {
			return f.Type
		}
	}
	return nil
}

// method looks up a method by owner type name (class, app, or stage) and
// method name.
func (env *Env) method(ownerName, methodName string) *ast.Function {
	if c, ok := env.Classes[ownerName]; ok {
		for _, m := range c.Methods {
			if m.Node.Name.Node == methodName {
				return m.Node
			}
		}
	}
	if env.App != nil && env.App.Name.Node == ownerName {
		for _, m := range env.App.Methods {
			if m.Node.Name.Node == methodName {
				return m.Node
			}
		}
	}
	if s, ok := env.Stages[ownerName]; ok {
		for _, m := range s.Methods {
			if m.Node.Name.Node == methodName {
				return m.Node
			}
		}
	}
	return nil
}
