package paging

import "testing"

func TestIndicesRoundTripPML4Slot(t *testing.T) {
	va := uintptr(0x4000_0000) // 1 GiB, a clean PDPT-level boundary
	l4, l3, l2, l1 := indices(va)
	if l4 != 0 || l3 != 1 || l2 != 0 || l1 != 0 {
		t.Fatalf("indices(%#x) = (%d,%d,%d,%d), want (0,1,0,0)", va, l4, l3, l2, l1)
	}
}

func TestIndicesDistinguishUserCodeAndStackVA(t *testing.T) {
	code := uintptr(0x0040_0000)
	stack := uintptr(0x0060_0000)
	cl4, cl3, cl2, cl1 := indices(code)
	sl4, sl3, sl2, sl1 := indices(stack)
	if cl4 != sl4 || cl3 != sl3 || cl1 != sl1 {
		t.Fatalf("expected code/stack to share PML4/PDPT/PT slots, got code=(%d,%d,%d) stack=(%d,%d,%d)",
			cl4, cl3, cl1, sl4, sl3, sl1)
	}
	if cl2 == sl2 {
		t.Fatalf("code and stack VAs 2MiB apart must land in different PD slots")
	}
}

func TestEntryFlagBitsAreDisjoint(t *testing.T) {
	combo := Present | Writable | User | PageSize
	for _, bit := range []uint64{Present, Writable, User, PageSize} {
		if combo&bit == 0 {
			t.Fatalf("bit %#x missing from OR of all flags", bit)
		}
	}
	if Present&Writable != 0 || Present&User != 0 || Writable&User != 0 {
		t.Fatal("flag bits must not overlap")
	}
}
