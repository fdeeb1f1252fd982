package heap

import (
	"testing"
	"unsafe"

	"chronos/internal/kerr"
)

func newTestHeap(t *testing.T, size uintptr) *Heap {
	t.Helper()
	backing := make([]byte, size)
	return New(uintptr(unsafe.Pointer(&backing[0])), size, 0)
}

func TestAllocReturnsDistinctNonOverlappingBlocks(t *testing.T) {
	h := newTestHeap(t, 4096)
	a, code := h.Alloc(64)
	if code != kerr.None {
		t.Fatalf("Alloc failed: %v", code)
	}
	b, code := h.Alloc(64)
	if code != kerr.None {
		t.Fatalf("Alloc failed: %v", code)
	}
	if a == b {
		t.Fatal("two live allocations must not alias")
	}
	if b >= a && b < a+64 {
		t.Fatal("allocations overlap")
	}
}

func TestAllocZeroedIsActuallyZero(t *testing.T) {
	h := newTestHeap(t, 4096)
	ptr, code := h.Alloc(32)
	if code != kerr.None {
		t.Fatal(code)
	}
	mem := unsafe.Slice((*byte)(unsafe.Pointer(ptr)), 32)
	for i := range mem {
		mem[i] = 0xAA
	}
	if code := h.Free(ptr); code != kerr.None {
		t.Fatal(code)
	}
	ptr2, code := h.AllocZeroed(32)
	if code != kerr.None {
		t.Fatal(code)
	}
	mem2 := unsafe.Slice((*byte)(unsafe.Pointer(ptr2)), 32)
	for i, b := range mem2 {
		if b != 0 {
			t.Fatalf("byte %d not zeroed: %#x", i, b)
		}
	}
}

func TestAllocExhaustionReturnsHeapExhausted(t *testing.T) {
	h := newTestHeap(t, 256)
	_, code := h.Alloc(10_000)
	if code.Subsystem() != kerr.Heap || code.Number() != kerr.HeapExhausted {
		t.Fatalf("expected HeapExhausted, got %v", code)
	}
}

func TestDoubleFreeIsRejected(t *testing.T) {
	h := newTestHeap(t, 4096)
	ptr, _ := h.Alloc(32)
	if code := h.Free(ptr); code != kerr.None {
		t.Fatal(code)
	}
	if code := h.Free(ptr); code == kerr.None {
		t.Fatal("double free should be rejected")
	}
}

func TestFreeThenReallocReusesSpace(t *testing.T) {
	h := newTestHeap(t, 256)
	a, _ := h.Alloc(64)
	if code := h.Free(a); code != kerr.None {
		t.Fatal(code)
	}
	b, code := h.Alloc(64)
	if code != kerr.None {
		t.Fatalf("expected reuse of freed space, got %v", code)
	}
	if a != b {
		t.Logf("allocator is not required to reuse the exact same address, got a=%#x b=%#x", a, b)
	}
}

// TestAllocFrameSubtractsHHDMOffset locks in the contract paging.Mapper
// depends on: AllocFrame must hand back a physical frame number, not this
// heap's HHDM-relative virtual pointer. base is constructed here to sit
// inside a pretend HHDM mapping whose offset is base itself, so a correct
// AllocFrame result is a small number (near the frame's offset into the
// backing region) rather than a virtual address anywhere near base.
func TestAllocFrameSubtractsHHDMOffset(t *testing.T) {
	const size = 4096 * 4
	backing := make([]byte, size)
	base := uintptr(unsafe.Pointer(&backing[0]))
	h := New(base, size, base)

	phys, ok := h.AllocFrame()
	if !ok {
		t.Fatal("AllocFrame failed")
	}
	if phys >= base {
		t.Fatalf("AllocFrame returned a virtual address (phys=%#x >= hhdmOffset=%#x); want the HHDM offset already subtracted", phys, base)
	}
	virt := phys + base
	if virt < base || virt >= base+size {
		t.Fatalf("phys+hhdmOffset = %#x falls outside the heap's backing region [%#x, %#x)", virt, base, base+size)
	}
}

func TestStatsReflectUsage(t *testing.T) {
	h := newTestHeap(t, 4096)
	before := h.Stats()
	_, _ = h.Alloc(128)
	after := h.Stats()
	if after.UsedBytes <= before.UsedBytes {
		t.Fatal("UsedBytes should increase after Alloc")
	}
}
