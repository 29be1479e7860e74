package sema

import (
	"fmt"

	"github.com/mkerian10/pluto/internal/ast"
)

// lifecycleAllowed reports whether a class of lifecycle dependent may hold
// a field of lifecycle dependency, per the captive-dependency rule as
// applied here: a dependency must be a singleton, with one named
// exception (a scoped class may hold a transient — a fresh
// transient is constructed every time the scope itself is constructed, so
// there's no staleness risk). Every other non-singleton dependency
// (scoped on scoped, transient on scoped or transient) is rejected, and a
// singleton may only depend on other singletons. App is treated as singleton-equivalent
// for this check, since it's the DI root and constructed exactly once.
func lifecycleAllowed(dependent, dependency ast.Lifecycle) bool {
	if dependency == ast.LifecycleSingleton {
		return true
	}
	return dependent == ast.LifecycleScoped && dependency == ast.LifecycleTransient
}

// CheckDI validates every class's (and the app's) injected-field
// dependencies against the lifecycle rule above, and topologically sorts
// the singleton classes into a construction order — singletons can only
// depend on other singletons, so that order only needs the singleton
// subgraph; a cycle there is reported as a distinct diagnostic from an
// ordinary lifecycle violation.
func CheckDI(prog *ast.Program, env *Env) ([]string, []error) {
	var errs []error

	dependencyClasses := func(fields []ast.Field) []string {
		var out []string
		for _, f := range fields {
			if f.Type != nil && f.Type.Kind == ast.TClass {
				out = append(out, f.Type.Name)
			}
		}
		return out
	}

	for _, c := range prog.Classes {
		for _, depName := range dependencyClasses(c.Node.Fields) {
			dep, ok := env.Classes[depName]
			if !ok {
				continue
			}
			if !lifecycleAllowed(c.Node.Lifecycle, dep.Lifecycle) {
				errs = append(errs, fmt.Errorf(
					"class %q (%s) cannot depend on class %q (%s): dependency has too short a scope",
					c.Node.Name.Node, lifecycleName(c.Node.Lifecycle), depName, lifecycleName(dep.Lifecycle)))
			}
		}
	}

	if prog.App != nil {
		for _, depName := range dependencyClasses(prog.App.Node.Fields) {
			dep, ok := env.Classes[depName]
			if !ok {
				continue
			}
			if dep.Lifecycle != ast.LifecycleSingleton {
				errs = append(errs, fmt.Errorf(
					"app %q cannot depend on class %q (%s): the app is constructed once and cannot hold a shorter-lived scope",
					prog.App.Node.Name.Node, depName, lifecycleName(dep.Lifecycle)))
			}
		}
	}

	order, cycleErr := topoSortSingletons(prog, env, dependencyClasses)
	if cycleErr != nil {
		errs = append(errs, cycleErr)
	}
	return order, errs
}

func lifecycleName(l ast.Lifecycle) string {
	switch l {
	case ast.LifecycleSingleton:
		return "singleton"
	case ast.LifecycleScoped:
		return "scoped"
	default:
		return "transient"
	}
}

// topoSortSingletons orders singleton classes so each one is constructed
// after every singleton it depends on (Tarjan-style DFS postorder). The
// lifecycle rule above does not rule out cycles among singletons; the
// first cycle found is returned as an error and no order is produced.
func topoSortSingletons(prog *ast.Program, env *Env, deps func([]ast.Field) []string) ([]string, error) {
	const (
		white = iota
		gray
		black
	)
	color := map[string]int{}
	var order []string
	var cycleErr error

	var visit func(name string, chain []string)
	visit = func(name string, chain []string) {
		if cycleErr != nil || color[name] == black {
			return
		}
		if color[name] == gray {
			cycleErr = fmt.Errorf("circular singleton dependency: %v -> %s", chain, name)
			return
		}
		c, ok := env.Classes[name]
		if !ok || c.Lifecycle != ast.LifecycleSingleton {
			return
		}
		color[name] = gray
		for _, dep := range deps(c.Fields) {
			visit(dep, append(chain, name))
			if cycleErr != nil {
				return
			}
		}
		color[name] = black
		order = append(order, name)
	}

	for _, c := range prog.Classes {
		if c.Node.Lifecycle == ast.LifecycleSingleton {
			visit(c.Node.Name.Node, nil)
			if cycleErr != nil {
				return nil, cycleErr
			}
		}
	}
	return order, nil
}
