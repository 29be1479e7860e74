// Package memheap implements the compiled program's object heap (SPEC_FULL
// §4.J): a segregated free-list allocator over pointer-sized slots, sized
// from a class/enum/error/closure-environment layout computed by
// internal/derived.
//
// Grounded on
// _examples/nmxmxh-inos_v1/kernel/threads/arena/slab.go's SlabAllocator:
// one SlabCache per fixed size class, each tracking free objects in a
// page's bitmap. Adapted from a shared-array-buffer-backed byte arena to a
// notional slot address space that hands out offsets only, with no backing
// store (no SAB/wasm bridge to target here), and
// the size-class ladder is widened to cover Pluto's word-sized object
// layout (structs/enums are N*8-byte slots, not bytes).
package memheap

import (
	"fmt"
	"sync"
)

const (
	pageSlots = 64 // objects per page for a given size class, mirrors slab.go's fixed-page-per-class design
	wordSize  = 8  // one pointer-sized slot
)

// sizeClasses is the slot-count ladder a class/enum/closure-environment
// layout is rounded up to, widened from slab.go's byte-granularity ladder
// (8B..256B) to Pluto's slot-granularity one (1..64 pointer-sized fields).
var sizeClasses = []uint32{1, 2, 3, 4, 6, 8, 12, 16, 24, 32, 48, 64}

// Heap is one program's object space: one Page-backed cache per size class.
type Heap struct {
	mu     sync.Mutex
	caches []*sizeCache
}

type sizeCache struct {
	slots uint32
	pages []*page
}

type page struct {
	base      uint32 // offset into the notional address space, in slots
	bitmap    uint64 // free-slot bitmap, one bit per object (pageSlots<=64 assumed per page granularity below)
	allocated uint32
}

// New builds an empty Heap; pages are allocated lazily per size class on
// first Alloc of that class.
func New() *Heap {
	h := &Heap{}
	for _, slots := range sizeClasses {
		h.caches = append(h.caches, &sizeCache{slots: slots})
	}
	return h
}

// sizeClassFor rounds a requested slot count up to the next size class.
func sizeClassFor(slots uint32) (int, error) {
	for i, c := range sizeClasses {
		if slots <= c {
			return i, nil
		}
	}
	return 0, fmt.Errorf("memheap: object of %d slots exceeds largest size class (%d)", slots, sizeClasses[len(sizeClasses)-1])
}

// Alloc reserves one object of the given slot count (e.g. a class's field
// count, an enum's widest variant, or a closure environment's capture
// count+1 for the function pointer) and returns its slot offset.
func (h *Heap) Alloc(slots uint32) (uint32, error) {
	idx, err := sizeClassFor(slots)
	if err != nil {
		return 0, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.caches[idx].alloc()
}

// Free releases a slot previously returned by Alloc for the given slot
// count. The caller must pass the same slots value Alloc was given — the
// heap does not track per-object size once allocated, matching slab.go's
// own offset->cache lookup-by-scan tradeoff avoided here for simplicity.
func (h *Heap) Free(slots, offset uint32) error {
	idx, err := sizeClassFor(slots)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.caches[idx].free(offset)
}

func (sc *sizeCache) alloc() (uint32, error) {
	for _, p := range sc.pages {
		if p.allocated < pageSlots {
			return sc.allocFrom(p)
		}
	}
	p := &page{
		base:   uint32(len(sc.pages)) * pageSlots * sc.slots,
		bitmap: ^uint64(0),
	}
	sc.pages = append(sc.pages, p)
	return sc.allocFrom(p)
}

func (sc *sizeCache) allocFrom(p *page) (uint32, error) {
	for i := 0; i < pageSlots && i < 64; i++ {
		if p.bitmap&(1<<uint(i)) != 0 {
			p.bitmap &^= 1 << uint(i)
			p.allocated++
			return p.base + uint32(i)*sc.slots, nil
		}
	}
	return 0, fmt.Errorf("memheap: page exhausted for size class %d", sc.slots)
}

func (sc *sizeCache) free(offset uint32) error {
	for _, p := range sc.pages {
		span := pageSlots * sc.slots
		if offset < p.base || offset >= p.base+span {
			continue
		}
		rel := (offset - p.base) / sc.slots
		if rel >= 64 {
			return fmt.Errorf("memheap: offset %d out of page-bitmap range", offset)
		}
		if p.bitmap&(1<<rel) != 0 {
			return fmt.Errorf("memheap: double free at offset %d", offset)
		}
		p.bitmap |= 1 << rel
		p.allocated--
		return nil
	}
	return fmt.Errorf("memheap: offset %d not owned by this heap", offset)
}

// Stats reports per-size-class utilisation, mirroring slab.go's SlabStats.
type Stats struct {
	Slots     uint32
	Pages     int
	Allocated uint32
	Capacity  uint32
}

func (h *Heap) Stats() []Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Stats, len(h.caches))
	for i, sc := range h.caches {
		var allocated, capacity uint32
		for _, p := range sc.pages {
			allocated += p.allocated
			capacity += pageSlots
		}
		out[i] = Stats{Slots: sc.slots, Pages: len(sc.pages), Allocated: allocated, Capacity: capacity}
	}
	return out
}
