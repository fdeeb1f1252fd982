// Package heap implements spec §2.4/§4.4: a single mutex-guarded
// free-list allocator over one fixed reserved region, grown to 32 MiB to
// host the compositor's backbuffer and every window's per-window buffer.
//
// Grounded on the teacher's buddy allocator discipline in
// src/lib/upbeat/buddy_decl.go (one lock around metadata updates, a fixed
// pool of node storage instead of a general-purpose allocator allocating
// its own bookkeeping) but simplified to the single free-list the spec
// calls for rather than the teacher's multi-order buddy lists — a buddy
// allocator is more machinery than a frame/backbuffer heap needs, and the
// spec is explicit about "a single locked free-list allocator", so this
// package does not adopt the buddy structure even though it is the
// teacher's own approach to the same general problem (documented as an
// Open Question resolution in DESIGN.md).
package heap

import (
	"sync"
	"unsafe"

	"chronos/internal/kerr"
)

const minBlock = 16 // smallest split-off block; also the header's own size rounding

type blockHeader struct {
	size uintptr // usable bytes following this header
	free bool
	next *blockHeader
}

const headerSize = unsafe.Sizeof(blockHeader{})

// Heap is one reserved byte region carved up by an intrusive free list.
type Heap struct {
	mu         sync.Mutex
	base       uintptr
	size       uintptr
	hhdmOffset uintptr
	free       *blockHeader
	used       uintptr
}

// New reserves [base, base+size) as the heap's backing storage and seeds
// it with a single free block spanning the whole region. The caller owns
// ensuring base..base+size is mapped and not used for anything else.
// hhdmOffset is the virtual offset at which physical address 0 is mapped
// (bootinfo.Handover.HHDMOffset); base is expected to already live inside
// that mapping, so AllocFrame can hand back the physical frame number
// paging.Mapper actually needs rather than this heap's own virtual
// pointers.
func New(base uintptr, size uintptr, hhdmOffset uintptr) *Heap {
	h := &Heap{base: base, size: size, hhdmOffset: hhdmOffset}
	root := (*blockHeader)(unsafe.Pointer(base))
	*root = blockHeader{size: size - headerSize, free: true}
	h.free = root
	return h
}

func align(n uintptr) uintptr {
	const a = 16
	return (n + a - 1) &^ (a - 1)
}

// Alloc returns n bytes, or a HeapExhausted error if no free block is
// large enough. Callers that cannot tolerate failure (the compositor's
// backbuffer at init) are expected to panic-halt via trust.Fatalf on a
// non-nil error; callers that can tolerate it (ramfs, window creation)
// surface the error to the shell (spec §7).
func (h *Heap) Alloc(n uintptr) (uintptr, kerr.Code) {
	if n == 0 {
		n = 1
	}
	want := align(n)

	h.mu.Lock()
	defer h.mu.Unlock()

	var prev *blockHeader
	for b := h.free; b != nil; prev, b = b, b.next {
		if !b.free || b.size < want {
			continue
		}
		remaining := b.size - want
		if remaining >= headerSize+minBlock {
			h.split(b, want, prev)
		} else {
			b.free = false
			h.unlink(b, prev)
		}
		h.used += want
		return uintptr(unsafe.Pointer(b)) + headerSize, kerr.None
	}
	return 0, kerr.New(kerr.Heap, kerr.HeapExhausted)
}

// AllocZeroed is Alloc followed by a zero-fill, used (through AllocFrame)
// for MapFreshUser's backing pages, matching the teacher's explicit
// zero-fill of newly handed-out pages before exposing them to new code.
func (h *Heap) AllocZeroed(n uintptr) (uintptr, kerr.Code) {
	ptr, code := h.Alloc(n)
	if code != kerr.None {
		return 0, code
	}
	dst := unsafe.Slice((*byte)(unsafe.Pointer(ptr)), int(align(n)))
	for i := range dst {
		dst[i] = 0
	}
	return ptr, kerr.None
}

func (h *Heap) split(b *blockHeader, want uintptr, prev *blockHeader) {
	tailAddr := uintptr(unsafe.Pointer(b)) + headerSize + want
	tail := (*blockHeader)(unsafe.Pointer(tailAddr))
	*tail = blockHeader{size: b.size - want - headerSize, free: true, next: b.next}
	b.size = want
	b.free = false
	if prev == nil {
		h.free = tail
	} else {
		prev.next = tail
	}
}

func (h *Heap) unlink(b *blockHeader, prev *blockHeader) {
	if prev == nil {
		h.free = b.next
	} else {
		prev.next = b.next
	}
	b.next = nil
}

// Free returns a pointer previously handed out by Alloc to the free list.
// Adjacent free blocks are not coalesced across this simple list; a
// long-running kernel session can fragment, same trade-off the teacher's
// fixed-size buddy pools make explicit rather than hide.
func (h *Heap) Free(ptr uintptr) kerr.Code {
	if ptr < h.base+headerSize || ptr >= h.base+h.size {
		return kerr.New(kerr.Heap, kerr.HeapBadFree)
	}
	b := (*blockHeader)(unsafe.Pointer(ptr - headerSize))
	h.mu.Lock()
	defer h.mu.Unlock()
	if b.free {
		return kerr.New(kerr.Heap, kerr.HeapBadFree)
	}
	b.free = true
	b.next = h.free
	h.free = b
	h.used -= b.size
	return kerr.None
}

// Stats reports coarse heap usage. The `top` command does not display it.
type Stats struct {
	TotalBytes     uintptr
	UsedBytes      uintptr
	LargestFree    uintptr
}

func (h *Heap) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	var largest uintptr
	for b := h.free; b != nil; b = b.next {
		if b.free && b.size > largest {
			largest = b.size
		}
	}
	return Stats{TotalBytes: h.size, UsedBytes: h.used, LargestFree: largest}
}

// AllocFrame satisfies paging.FrameAllocator by handing out page-aligned
// 4KiB frames carved from this heap, so the loader's MapFreshUser can get
// backing pages without a separate physical-frame allocator. paging.Mapper
// writes the returned value straight into page-table entries and adds its
// own hhdm offset when it needs to reach the frame again, so this must
// return a physical frame number, not this heap's HHDM-relative pointer.
func (h *Heap) AllocFrame() (uintptr, bool) {
	const pageSize = 4096
	ptr, code := h.AllocZeroed(pageSize + pageSize) // pad for alignment slack
	if code != kerr.None {
		return 0, false
	}
	aligned := (ptr + pageSize - 1) &^ (pageSize - 1)
	return aligned - h.hhdmOffset, true
}
