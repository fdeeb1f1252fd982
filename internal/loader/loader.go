// Package loader implements the two binary formats the shell's run/rundisk
// commands accept (spec §6): a flat entry-point binary at a fixed virtual
// address, and — supplementing the distilled spec from
// original_source/elf.rs — a minimal ELF64 executable read with the
// standard library's debug/elf, the same package the teacher's own
// elf_support.go uses for its host-side ELF inspection tool, now reused
// kernel-side for the one thing spec §1 still allows: section walking, no
// relocation.
package loader

import (
	"bytes"
	"debug/elf"

	"chronos/internal/bootcfg"
	"chronos/internal/kerr"
)

var elfMagic = []byte{0x7f, 'E', 'L', 'F'}

// Image is a binary ready to be copied into a freshly mapped user region:
// the bytes to copy and the entry point's offset from the start of that
// region.
type Image struct {
	Bytes       []byte
	EntryOffset uintptr
}

// Load inspects module to decide flat-binary vs ELF64 and returns an Image
// sized to fit within bootcfg.UserMaxSize. Flat binaries are returned
// unchanged past their optional bootcfg.FlatBinaryPrologue; ELF64 binaries
// are flattened to a single contiguous image spanning their lowest to
// highest loadable virtual address, non-loaded gaps zero-filled, exactly
// what map_fresh_user's "copy file bytes... into this freshly mapped
// contiguous user region" (spec §4.3) expects to receive.
func Load(module []byte) (Image, kerr.Code) {
	if bytes.HasPrefix(module, elfMagic) {
		return loadELF(module)
	}
	return loadFlat(module)
}

func loadFlat(module []byte) (Image, kerr.Code) {
	if uintptr(len(module)) > bootcfg.UserMaxSize {
		return Image{}, kerr.New(kerr.Loader, kerr.LoaderTooLarge)
	}
	entryOffset := uintptr(0)
	if len(module) >= bootcfg.FlatBinaryPrologue {
		entryOffset = bootcfg.FlatBinaryPrologue
	}
	return Image{Bytes: module, EntryOffset: entryOffset}, kerr.None
}

// loadELF walks the ELF64 program headers with debug/elf, flattens every
// PT_LOAD segment into one contiguous byte slice relative to the lowest
// virtual address seen, and records the entry point's offset within that
// slice. No relocation, no dynamic symbols, no section-header-only
// binaries — exactly the boundary spec §1 leaves in scope.
func loadELF(module []byte) (Image, kerr.Code) {
	f, err := elf.NewFile(bytes.NewReader(module))
	if err != nil {
		return Image{}, kerr.New(kerr.Loader, kerr.LoaderBadMagic)
	}
	defer f.Close()

	if f.Class != elf.ELFCLASS64 || f.Machine != elf.EM_X86_64 {
		return Image{}, kerr.New(kerr.Loader, kerr.LoaderBadMagic)
	}

	var lo, hi uint64
	haveLoad := false
	type seg struct {
		vaddr uint64
		data  []byte
	}
	var segs []seg

	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		data := make([]byte, prog.Filesz)
		if prog.Filesz > 0 {
			if _, err := prog.ReadAt(data, 0); err != nil {
				return Image{}, kerr.New(kerr.Loader, kerr.LoaderBadMagic)
			}
		}
		segs = append(segs, seg{vaddr: prog.Vaddr, data: data})
		end := prog.Vaddr + prog.Memsz
		if !haveLoad || prog.Vaddr < lo {
			lo = prog.Vaddr
		}
		if end > hi {
			hi = end
		}
		haveLoad = true
	}
	if !haveLoad {
		return Image{}, kerr.New(kerr.Loader, kerr.LoaderBadMagic)
	}

	size := uintptr(hi - lo)
	if size > bootcfg.UserMaxSize {
		return Image{}, kerr.New(kerr.Loader, kerr.LoaderTooLarge)
	}
	flat := make([]byte, size)
	for _, s := range segs {
		copy(flat[s.vaddr-lo:], s.data)
	}

	return Image{Bytes: flat, EntryOffset: uintptr(f.Entry - lo)}, kerr.None
}

// ModuleLister finds a boot module by name (the other binary source
// `run` accepts, per spec §6's bootloader-handover "Modules" list).
type ModuleLister interface {
	FindModule(name string) (base uintptr, size uintptr, ok bool)
}

func LoadModule(lister ModuleLister, name string, readPhys func(base, size uintptr) []byte) (Image, kerr.Code) {
	base, size, ok := lister.FindModule(name)
	if !ok {
		return Image{}, kerr.New(kerr.Loader, kerr.LoaderModuleNotFound)
	}
	return Load(readPhys(base, size))
}
