package loader

import (
	"bytes"
	"debug/elf"
	"testing"

	"chronos/internal/kerr"
)

func TestLoadFlatBinaryWithoutPrologue(t *testing.T) {
	body := []byte{0x90, 0x90, 0xc3} // nop; nop; ret
	img, err := Load(body)
	if err != kerr.None {
		t.Fatalf("Load: %v", err)
	}
	if img.EntryOffset != 0 {
		t.Fatalf("EntryOffset = %d, want 0 for a binary shorter than the prologue size", img.EntryOffset)
	}
	if !bytes.Equal(img.Bytes, body) {
		t.Fatal("flat binary bytes should pass through unchanged")
	}
}

func TestLoadFlatBinaryWithPrologueSkipsHeader(t *testing.T) {
	module := make([]byte, 0x80+4)
	module[0x80] = 0x90
	img, err := Load(module)
	if err != kerr.None {
		t.Fatalf("Load: %v", err)
	}
	if img.EntryOffset != 0x80 {
		t.Fatalf("EntryOffset = %#x, want 0x80", img.EntryOffset)
	}
}

func TestLoadRejectsOversizedFlatBinary(t *testing.T) {
	huge := make([]byte, 17*1024*1024)
	if _, err := Load(huge); err == kerr.None {
		t.Fatal("expected LoaderTooLarge for a binary exceeding UserMaxSize")
	}
}

// buildMinimalELF64 constructs the smallest valid little-endian ELF64
// executable with one PT_LOAD segment, entirely by hand (no external
// toolchain), so loadELF can be exercised without a real compiled fixture.
func buildMinimalELF64(t *testing.T, vaddr uint64, code []byte) []byte {
	t.Helper()
	const ehsize = 64
	const phsize = 56

	entry := vaddr // the PT_LOAD segment's first byte is code[0]

	buf := make([]byte, ehsize+phsize+len(code))
	// e_ident
	copy(buf[0:4], elfMagic)
	buf[4] = 2 // ELFCLASS64
	buf[5] = 1 // little-endian
	buf[6] = 1 // EV_CURRENT
	// e_type = ET_EXEC
	le16(buf[16:], uint16(elf.ET_EXEC))
	// e_machine = EM_X86_64
	le16(buf[18:], uint16(elf.EM_X86_64))
	// e_version
	le32(buf[20:], 1)
	// e_entry
	le64(buf[24:], entry)
	// e_phoff
	le64(buf[32:], ehsize)
	// e_ehsize
	le16(buf[52:], ehsize)
	// e_phentsize
	le16(buf[54:], phsize)
	// e_phnum
	le16(buf[56:], 1)

	ph := buf[ehsize:]
	le32(ph[0:], uint32(elf.PT_LOAD))
	le32(ph[4:], uint32(elf.PF_X|elf.PF_R))
	le64(ph[8:], ehsize+phsize)     // p_offset
	le64(ph[16:], vaddr)            // p_vaddr
	le64(ph[24:], vaddr)            // p_paddr
	le64(ph[32:], uint64(len(code))) // p_filesz
	le64(ph[40:], uint64(len(code))) // p_memsz

	copy(buf[ehsize+phsize:], code)
	return buf
}

func le16(b []byte, v uint16) { b[0] = byte(v); b[1] = byte(v >> 8) }
func le32(b []byte, v uint32) {
	for i := 0; i < 4; i++ {
		b[i] = byte(v >> (8 * i))
	}
}
func le64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func TestLoadELFFlattensSingleLoadSegment(t *testing.T) {
	code := []byte{0xb8, 1, 0, 0, 0, 0xc3} // mov eax,1; ret
	module := buildMinimalELF64(t, 0x400000, code)

	img, err := Load(module)
	if err != kerr.None {
		t.Fatalf("Load: %v", err)
	}
	if len(img.Bytes) < len(code) {
		t.Fatalf("flattened image too short: %d bytes", len(img.Bytes))
	}
	gotEntryBytes := img.Bytes[img.EntryOffset : img.EntryOffset+uintptr(len(code))]
	if !bytes.Equal(gotEntryBytes, code) {
		t.Fatalf("bytes at EntryOffset = %x, want %x", gotEntryBytes, code)
	}
}

func TestLoadRejectsNonELFNonFlatGarbageAsFlat(t *testing.T) {
	// Anything not starting with the ELF magic is treated as a flat
	// binary — there is no third format, so garbage just loads as-is.
	garbage := []byte{0x00, 0x01, 0x02}
	img, err := Load(garbage)
	if err != kerr.None {
		t.Fatalf("Load: %v", err)
	}
	if !bytes.Equal(img.Bytes, garbage) {
		t.Fatal("non-ELF input should pass through the flat path unchanged")
	}
}
