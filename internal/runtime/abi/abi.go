// Package abi is the cgo-free façade a lowered Pluto program's OpCallRuntime
// instructions address by name (SPEC_FULL §4.J): Go methods for the
// pluto_* entry points, named the way a real C ABI would export them, and
// EntryPoints, the name list internal/linker's symbol-table cross-check
// validates codegen's runtime-call sites against (the placeholder names
// lowering emits, such as enum_tag or iter_next, have no Go function here).
//
// No cgo/C-ABI boundary actually exists in this repo (there is no native
// code generator behind internal/codegen/backend/text) — this package
// models the shape that boundary would have: a registry of named,
// fixed-signature entry points over internal/runtime/{memheap,rtchan,
// rttask,rtselect}.
package abi

import (
	"context"
	"fmt"

	"github.com/mkerian10/pluto/internal/runtime/memheap"
	"github.com/mkerian10/pluto/internal/runtime/rtchan"
	"github.com/mkerian10/pluto/internal/runtime/rttask"
)

// Runtime bundles one program's live runtime state, which is its object
// heap; channels and tasks are returned to the caller and not tracked
// here. A real native backend would thread an opaque pointer to this
// through every call; nothing in this repo's codegen calls it.
type Runtime struct {
	Heap *memheap.Heap
}

func New() *Runtime { return &Runtime{Heap: memheap.New()} }

// EntryPoints lists every ABI symbol this runtime exports, by name, for
// internal/linker to check a lowered module's OpCallRuntime call sites
// against — unresolved names at link time are a real link error, not a
// late panic.
var EntryPoints = []string{
	"pluto_alloc",
	"pluto_free",
	"pluto_chan_make",
	"pluto_chan_send",
	"pluto_chan_recv",
	"pluto_chan_close",
	"pluto_spawn",
	"pluto_task_await",
	"enum_tag",
	"enum_field",
	"enum_ctor",
	"array_new",
	"set_new",
	"map_new",
	"index_get",
	"range_new",
	"string_interp",
	"iter_has_next",
	"iter_next",
	"option_none",
	"cast",
}

// Alloc implements the "pluto_alloc" entry point.
func (r *Runtime) Alloc(slots uint32) (uint32, error) { return r.Heap.Alloc(slots) }

// Free implements the "pluto_free" entry point.
func (r *Runtime) Free(slots, offset uint32) error { return r.Heap.Free(slots, offset) }

// ChanMake implements the "pluto_chan_make" entry point.
func (r *Runtime) ChanMake(capacity uint32) *rtchan.Chan { return rtchan.Make(capacity) }

// ChanSend/ChanRecv/ChanClose implement their matching entry points,
// forwarding straight to internal/runtime/rtchan.
func (r *Runtime) ChanSend(ctx context.Context, ch *rtchan.Chan, v any) error {
	return ch.Send(ctx, v)
}

func (r *Runtime) ChanRecv(ctx context.Context, ch *rtchan.Chan) (any, bool, error) {
	return ch.Recv(ctx)
}

func (r *Runtime) ChanClose(ch *rtchan.Chan) { ch.Close() }

// Spawn implements the "pluto_spawn" entry point.
func (r *Runtime) Spawn(ctx context.Context, fn func(context.Context) (any, error)) *rttask.Task {
	return rttask.Spawn(ctx, fn)
}

// TaskAwait implements the "pluto_task_await" entry point.
func (r *Runtime) TaskAwait(ctx context.Context, t *rttask.Task) (any, error) {
	return t.Await(ctx)
}

// CheckEntryPoint returns an error for a name the ABI does not export.
func CheckEntryPoint(name string) error {
	for _, e := range EntryPoints {
		if e == name {
			return nil
		}
	}
	return fmt.Errorf("abi: unknown runtime entry point %q", name)
}
