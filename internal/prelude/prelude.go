// Package prelude embeds and injects Pluto's one built-in type family:
// the nullable `Option<T>` enum every program gets for free (SPEC_FULL
// §4.C). Grounded on original_source/src/prelude.rs's OnceLock<PreludeData>
// cache, ported to sync.OnceValue since Go 1.21.
package prelude

import (
	"fmt"
	"sync"

	"github.com/mkerian10/pluto/internal/ast"
	"github.com/mkerian10/pluto/internal/parser"
)

// Source is the fixed prelude program text, parsed exactly once and
// prepended to every compiled program.
const Source = "enum Option<T> {\n\tSome(T)\n\tNone\n}\n"

// preludeFileID is reserved for the prelude's own synthetic source file;
// real module files start numbering at 0 from the caller's perspective but
// the prelude is always parsed under this fixed, out-of-band id so its
// spans never collide with user source.
const preludeFileID = ^uint32(0)

type data struct {
	enums     []ast.Spanned[*ast.Enum]
	enumNames map[string]struct{}
}

var get = sync.OnceValue(func() *data {
	p := parser.NewForPrelude(Source, preludeFileID)
	prog, errs := p.ParseProgram()
	if len(errs) != 0 {
		panic(fmt.Sprintf("prelude failed to parse: %v", errs[0]))
	}
	names := make(map[string]struct{}, len(prog.Enums))
	for _, e := range prog.Enums {
		names[e.Node.Name.Node] = struct{}{}
	}
	return &data{enums: prog.Enums, enumNames: names}
})

// EnumNames returns the set of type names the prelude declares, the same
// set Inject checks user declarations against.
func EnumNames() map[string]struct{} { return get().enumNames }

// Inject prepends the prelude's enums to prog and rejects any user
// declaration (enum, class, trait, or error) that reuses a prelude name.
// Mirrors original_source/src/prelude.rs's inject_prelude.
func Inject(prog *ast.Program) error {
	d := get()
	for name := range d.enumNames {
		for _, e := range prog.Enums {
			if e.Node.Name.Node == name {
				return fmt.Errorf("cannot define enum %q: conflicts with built-in prelude type", name)
			}
		}
		for _, c := range prog.Classes {
			if c.Node.Name.Node == name {
				return fmt.Errorf("cannot define class %q: conflicts with built-in prelude type", name)
			}
		}
		for _, tr := range prog.Traits {
			if tr.Node.Name.Node == name {
				return fmt.Errorf("cannot define trait %q: conflicts with built-in prelude type", name)
			}
		}
		for _, er := range prog.Errors {
			if er.Node.Name.Node == name {
				return fmt.Errorf("cannot define error %q: conflicts with built-in prelude type", name)
			}
		}
	}

	merged := make([]ast.Spanned[*ast.Enum], 0, len(d.enums)+len(prog.Enums))
	merged = append(merged, d.enums...)
	merged = append(merged, prog.Enums...)
	prog.Enums = merged
	return nil
}
