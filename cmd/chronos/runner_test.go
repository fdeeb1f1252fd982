package main

import "testing"

func newTestRunner() *moduleRunner {
	r := newModuleRunner(nil, nil)
	r.ranges[7] = userRange{codeBase: 0x400000, codeLen: 0x1000, stackBase: 0x600000, stackLen: 0x1000}
	return r
}

func TestContainsAcceptsRangeEntirelyWithinCode(t *testing.T) {
	r := newTestRunner()
	if !r.Contains(7, 0x400010, 0x10) {
		t.Fatal("expected a small range inside the code region to be contained")
	}
}

func TestContainsAcceptsRangeEntirelyWithinStack(t *testing.T) {
	r := newTestRunner()
	if !r.Contains(7, 0x600100, 0x20) {
		t.Fatal("expected a small range inside the stack region to be contained")
	}
}

func TestContainsRejectsRangeCrossingRegionBoundary(t *testing.T) {
	r := newTestRunner()
	if r.Contains(7, 0x400ff0, 0x20) {
		t.Fatal("expected a range that runs past the end of the code region to be rejected")
	}
}

func TestContainsRejectsUnknownTask(t *testing.T) {
	r := newTestRunner()
	if r.Contains(99, 0x400000, 0x10) {
		t.Fatal("expected an unrecorded task id to fail closed")
	}
}

func TestContainsRejectsOverflowingLength(t *testing.T) {
	r := newTestRunner()
	if r.Contains(7, 0x400000, ^uintptr(0)) {
		t.Fatal("expected a length that overflows ptr+length to be rejected")
	}
}

func TestContainsRejectsRangeBetweenCodeAndStack(t *testing.T) {
	r := newTestRunner()
	if r.Contains(7, 0x500000, 0x10) {
		t.Fatal("expected a range in neither mapped region to be rejected")
	}
}
