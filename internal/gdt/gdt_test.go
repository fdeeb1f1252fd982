package gdt

import (
	"testing"

	"chronos/internal/kerr"
)

func TestSelectorEncodesIndexAndRPL(t *testing.T) {
	cases := []struct {
		seg  int
		rpl  uint8
		want uint16
	}{
		{SegNull, 0, 0},
		{SegKernelCS, 0, 0x08},
		{SegUserCS, 3, 0x23},
		{SegUserDS, 3, 0x1b},
	}
	for _, c := range cases {
		if got := Selector(c.seg, c.rpl); got != c.want {
			t.Errorf("Selector(%d,%d) = %#x, want %#x", c.seg, c.rpl, got, c.want)
		}
	}
}

func TestUserSelectorsCarryRing3(t *testing.T) {
	if UserCodeSelector()&0x3 != 3 {
		t.Fatal("user code selector must request ring 3")
	}
	if UserDataSelector()&0x3 != 3 {
		t.Fatal("user data selector must request ring 3")
	}
	if KernelCodeSelector()&0x3 != 0 {
		t.Fatal("kernel code selector must request ring 0")
	}
}

func TestNewInstallsDescriptorsAndRSP0(t *testing.T) {
	table := New(0xffff_8000_0001_0000, 0xffff_8000_0002_0000)
	if table.RSP0() != 0xffff_8000_0001_0000 {
		t.Fatalf("RSP0 = %#x, want the kernel stack top passed to New", table.RSP0())
	}
	if table.Validate() != kerr.None {
		t.Fatalf("freshly built table should validate clean")
	}
	table.SetStack0(0xffff_8000_0003_0000)
	if table.RSP0() != 0xffff_8000_0003_0000 {
		t.Fatal("SetStack0 did not update RSP0")
	}
}
