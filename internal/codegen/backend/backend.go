// Package backend defines the object-emission boundary SPEC_FULL §4.I
// names explicitly: internal/codegen/lower produces one target-independent
// ir.Module, and a Backend turns it into bytes. internal/codegen/backend/text
// is the only Backend implemented in this repo — a deterministic
// human-readable rendering used for golden-file tests — standing in for
// the Cranelift-style native emitter the full toolchain would plug in here.
package backend

import "github.com/mkerian10/pluto/internal/codegen/ir"

// Backend turns a lowered module into its final on-disk form. Implementations
// own their own object/byte format; Emit must not mutate mod.
type Backend interface {
	Name() string
	Emit(mod *ir.Module) ([]byte, error)
}
