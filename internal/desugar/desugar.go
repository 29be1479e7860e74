// Package desugar rewrites surface sugar into the smaller core the type
// checker and later passes actually see (SPEC_FULL §4.C): stage
// inheritance is flattened first (stages.go), then `ambient` parameters
// are rewritten to field reads and `spawn expr` is wrapped into a closure
// call the monomorphiser can lift. `scope { ... }` blocks are not
// rewritten here; their seeds reach later passes unchanged.
//
// Grounded on the teacher's own bottom-up tree-rewrite habit (interp.go's
// CFG-building walk mutates nodes in place as it descends); here the walk
// is threaded through ast.TransformStmts instead of a bespoke visitor,
// since every later pass (monomorphisation, closure lifting) reuses the
// same helper.
package desugar

import "github.com/mkerian10/pluto/internal/ast"

// Run applies every desugaring pass to prog in the order SPEC_FULL §4.C
// gives: stage flattening, then ambient/spawn desugar. There is no
// scope-block pass.
func Run(prog *ast.Program) error {
	if err := FlattenStages(prog); err != nil {
		return err
	}
	desugarFunctions(prog)
	desugarStages(prog)
	desugarApp(prog)
	return nil
}

func desugarFunctions(prog *ast.Program) {
	for _, fn := range prog.Functions {
		desugarFunctionBody(fn.Node)
	}
	for _, c := range prog.Classes {
		seen := make(map[string]bool, len(c.Node.Fields))
		for _, f := range c.Node.Fields {
			seen[f.Name] = true
		}
		for _, m := range c.Node.Methods {
			for _, f := range desugarFunctionBody(m.Node) {
				if !seen[f.Name] {
					seen[f.Name] = true
					c.Node.Fields = append(c.Node.Fields, f)
				}
			}
		}
	}
}

func desugarStages(prog *ast.Program) {
	for _, s := range prog.Stages {
		seen := make(map[string]bool, len(s.Node.InjectFields))
		for _, f := range s.Node.InjectFields {
			seen[f.Name] = true
		}
		for _, m := range s.Node.Methods {
			for _, f := range desugarFunctionBody(m.Node) {
				if !seen[f.Name] {
					seen[f.Name] = true
					s.Node.InjectFields = append(s.Node.InjectFields, f)
				}
			}
		}
	}
}

func desugarApp(prog *ast.Program) {
	if prog.App == nil {
		return
	}
	seen := make(map[string]bool, len(prog.App.Node.Fields))
	for _, f := range prog.App.Node.Fields {
		seen[f.Name] = true
	}
	for _, m := range prog.App.Node.Methods {
		for _, f := range desugarFunctionBody(m.Node) {
			if !seen[f.Name] {
				seen[f.Name] = true
				prog.App.Node.Fields = append(prog.App.Node.Fields, f)
			}
		}
	}
}

// desugarFunctionBody rewrites a single function: every `ambient T`
// parameter is removed from Params and every occurrence of its name in
// the body is rewritten directly to a FieldAccess (`self.__ambient_<name>`)
// against a synthesised injected field on the enclosing stage/class/app. The synthesised field is returned to
// the caller, which merges it into the owner's field list (deduplicated,
// since multiple methods may share the same ambient parameter name).
func desugarFunctionBody(fn *ast.Function) []ast.Field {
	var ambientParams []ast.Param
	var kept []ast.Param
	for _, p := range fn.Params {
		if p.Ambient {
			ambientParams = append(ambientParams, p)
		} else {
			kept = append(kept, p)
		}
	}
	fn.Params = kept
	if len(ambientParams) == 0 {
		fn.Body = desugarSpawnAndCall(fn.Body)
		return nil
	}

	fieldOf := make(map[string]string, len(ambientParams))
	var injected []ast.Field
	for _, p := range ambientParams {
		fieldName := "__ambient_" + p.Name
		fieldOf[p.Name] = fieldName
		injected = append(injected, ast.Field{ID: ast.NewID(), Name: fieldName, Type: p.Type, IsInjected: true})
	}

	fn.Body = ast.TransformStmts(fn.Body, func(e ast.Expr) ast.Expr {
		if id, ok := e.(ast.Ident); ok {
			if field, ok := fieldOf[id.Name]; ok {
				return ast.FieldAccess{Object: ast.Ident{Name: "self"}, Field: field}
			}
		}
		return e
	})
	fn.Body = desugarSpawnAndCall(fn.Body)
	return injected
}

// desugarSpawnAndCall wraps every `spawn expr` call-expression argument in
// a zero-argument closure, per §4.C: "spawn (=> { return callexpr })". The
// monomorphiser's closure-lifting pass (§4.F) turns that closure into a
// synthesised top-level function plus a ClosureCreate allocation; after
// this rewrite Spawn.Call is always a Closure invocation wrapping a Call.
func desugarSpawnAndCall(body []ast.Spanned[ast.Stmt]) []ast.Spanned[ast.Stmt] {
	return ast.TransformStmts(body, func(e ast.Expr) ast.Expr {
		sp, ok := e.(ast.Spawn)
		if !ok {
			return e
		}
		if _, alreadyClosure := sp.Call.(ast.Closure); alreadyClosure {
			return sp
		}
		wrapped := ast.Closure{
			Body: []ast.Spanned[ast.Stmt]{
				ast.NewSpanned[ast.Stmt](ast.ReturnStmt{Value: sp.Call}, ast.Span{}),
			},
		}
		return ast.Spawn{Call: wrapped}
	})
}
