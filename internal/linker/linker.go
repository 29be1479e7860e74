// Package linker models the driver shape SPEC_FULL §4.K describes without
// actually invoking a system linker: argument assembly for a notional
// `cc`/`ld` invocation, plus a symbol-table cross-check that every
// OpCallRuntime/OpCall in a lowered module resolves to either another
// function in the same module or a name internal/runtime/abi actually
// exports. Real object emission is out of scope (there is no object-code
// backend in this repo, only internal/codegen/backend/text).
package linker

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mkerian10/pluto/internal/codegen/ir"
	"github.com/mkerian10/pluto/internal/runtime/abi"
)

// Plan is the assembled argument list a real `cc`/`ld` invocation would
// receive, plus the diagnostics produced while assembling it.
type Plan struct {
	OutputPath string
	Args       []string
	Warnings   []string
}

// Options configures Link's output shape.
type Options struct {
	OutputPath string
	ExtraLibs  []string // additional -l flags, e.g. for `extern rust` crates
}

// Link cross-checks every call site in mod against the set of functions
// mod itself defines plus abi.EntryPoints, then assembles the argument
// list a real linker invocation would use. It returns an error only for an
// unresolved call target; a missing AppMain (mod has no app) is a warning
// on the returned Plan. Unused functions are not reported.
func Link(mod *ir.Module, opts Options) (*Plan, error) {
	defined := make(map[string]bool, len(mod.Functions))
	for _, fn := range mod.Functions {
		defined[fn.Name] = true
	}

	var unresolved []string
	for _, fn := range mod.Functions {
		for _, blk := range fn.Blocks {
			for _, ins := range blk.Instrs {
				switch ins.Op {
				case ir.OpCall, ir.OpClosureCreate:
					if ins.Str != "" && !defined[ins.Str] {
						unresolved = append(unresolved, fmt.Sprintf("%s: call to undefined function %q", fn.Name, ins.Str))
					}
				case ir.OpCallRuntime:
					if err := checkRuntimeSymbol(ins.Str); err != nil {
						unresolved = append(unresolved, fmt.Sprintf("%s: %v", fn.Name, err))
					}
				}
			}
		}
	}
	if len(unresolved) > 0 {
		sort.Strings(unresolved)
		return nil, fmt.Errorf("linker: unresolved symbols:\n  %s", strings.Join(unresolved, "\n  "))
	}

	plan := &Plan{OutputPath: opts.OutputPath}
	if mod.AppMain == "" {
		plan.Warnings = append(plan.Warnings, "module has no App; emitting a library object with no entry point")
	}

	plan.Args = append(plan.Args, "-o", opts.OutputPath)
	for _, lib := range opts.ExtraLibs {
		plan.Args = append(plan.Args, "-l"+lib)
	}
	if mod.AppMain != "" {
		plan.Args = append(plan.Args, "--entry", mod.AppMain)
	}
	for _, t := range mod.TestEntries {
		plan.Args = append(plan.Args, "--test-entry", t)
	}
	return plan, nil
}

// checkRuntimeSymbol accepts a literal abi.EntryPoints name or an
// "enum_ctor$Enum$Variant" dynamically-mangled constructor name — those
// are dispatched through DerivedInfo's enum layout at runtime rather than
// being individually exported ABI symbols.
func checkRuntimeSymbol(name string) error {
	if strings.HasPrefix(name, "enum_ctor$") {
		return nil
	}
	return abi.CheckEntryPoint(name)
}
