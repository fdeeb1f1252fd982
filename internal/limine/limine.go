// Package limine implements just enough of the Limine boot protocol to
// build a bootinfo.Handover: the framebuffer, HHDM offset, memory map, and
// module requests original_source's main.rs issues via the `limine` crate
// (FramebufferRequest, HhdmRequest, MemoryMapRequest), translated here into
// the protocol's actual wire layout — a fixed-size request struct the
// bootloader scans for by magic number and fills in a response pointer on,
// the same request/response handshake the Rust original performs, minus
// the crate's builder API.
package limine

import (
	"unsafe"

	"chronos/internal/bootinfo"
)

// commonMagic identifies every Limine request/response struct regardless of
// which one it is; the bootloader's scanner looks for these two words
// followed by the four id words below.
var commonMagic = [2]uint64{0xc7b1dd30df4c8b88, 0x0a82e883a194f07b}

// requestHeader is the fixed prologue every Limine request shares: the
// magic pair, two request-specific id words, and a revision the bootloader
// echoes back as unsupported-if-lower.
type requestHeader struct {
	magic    [2]uint64
	idExtra  [2]uint64
	revision uint64
}

func newHeader(idExtra [2]uint64) requestHeader {
	return requestHeader{magic: commonMagic, idExtra: idExtra}
}

var (
	framebufferIDExtra = [2]uint64{0x9d5827dcd881dd75, 0xa3148604f6fab11b}
	hhdmIDExtra        = [2]uint64{0x48dcf1cb8ad2b852, 0x63984e959a98244b}
	memmapIDExtra      = [2]uint64{0x67cf3d9d378a806f, 0xe304acdfc50c3c62}
	moduleIDExtra      = [2]uint64{0x3e7e279702be32af, 0xca1c4f3bd1280cee}
)

// rawFramebuffer mirrors struct limine_framebuffer: a linear ARGB buffer
// plus geometry, everything bootinfo.Framebuffer needs.
type rawFramebuffer struct {
	address uintptr
	width   uint64
	height  uint64
	pitch   uint64
	bpp     uint16
	_       [58]byte // memory-model/mask fields this kernel never reads
}

type framebufferResponse struct {
	revision       uint64
	framebufferCnt uint64
	framebuffers   **rawFramebuffer
}

// FramebufferRequest is the boot-time request the linker places in the
// `.limine_requests` section (wired by the boot glue's linker script, not
// by this package); Response is filled in by the bootloader before the
// kernel's entry point runs.
type FramebufferRequest struct {
	requestHeader
	Response *framebufferResponse
}

func NewFramebufferRequest() *FramebufferRequest {
	return &FramebufferRequest{requestHeader: newHeader(framebufferIDExtra)}
}

type hhdmResponse struct {
	revision uint64
	Offset   uint64
}

type HHDMRequest struct {
	requestHeader
	Response *hhdmResponse
}

func NewHHDMRequest() *HHDMRequest {
	return &HHDMRequest{requestHeader: newHeader(hhdmIDExtra)}
}

// rawMemmapEntry mirrors struct limine_memmap_entry.
type rawMemmapEntry struct {
	base   uint64
	length uint64
	kind   uint64
}

// limine_memmap_entry.kind values, per the protocol spec.
const (
	kindUsable                = 0
	kindReserved              = 1
	kindACPIReclaimable       = 2
	kindACPINVS               = 3
	kindBadMemory             = 4
	kindBootloaderReclaimable = 5
	kindKernelAndModules      = 6
	kindFramebuffer           = 7
)

type memmapResponse struct {
	revision uint64
	entryCnt uint64
	entries  **rawMemmapEntry
}

type MemmapRequest struct {
	requestHeader
	Response *memmapResponse
}

func NewMemmapRequest() *MemmapRequest {
	return &MemmapRequest{requestHeader: newHeader(memmapIDExtra)}
}

// rawFile mirrors struct limine_file: enough of a staged module to name it
// and locate its bytes.
type rawFile struct {
	revision uint64
	address  uintptr
	size     uint64
	path     *byte
	cmdline  *byte
	_        [40]byte // media type / partition index / GUIDs this kernel never reads
}

type moduleResponse struct {
	revision  uint64
	moduleCnt uint64
	modules   **rawFile
}

type ModuleRequest struct {
	requestHeader
	Response *moduleResponse
}

func NewModuleRequest() *ModuleRequest {
	return &ModuleRequest{requestHeader: newHeader(moduleIDExtra)}
}

func cString(p *byte) string {
	if p == nil {
		return ""
	}
	n := 0
	for *(*byte)(unsafe.Pointer(uintptr(unsafe.Pointer(p)) + uintptr(n))) != 0 {
		n++
	}
	return string(unsafe.Slice(p, n))
}

func memmapKind(k uint64) bootinfo.MemoryKind {
	switch k {
	case kindReserved:
		return bootinfo.MemoryReserved
	case kindACPIReclaimable:
		return bootinfo.MemoryACPIReclaimable
	case kindBadMemory:
		return bootinfo.MemoryBadMemory
	case kindBootloaderReclaimable:
		return bootinfo.MemoryBootloaderReclaimable
	case kindKernelAndModules:
		return bootinfo.MemoryKernelAndModules
	case kindFramebuffer:
		return bootinfo.MemoryFramebuffer
	default:
		return bootinfo.MemoryUsable
	}
}

// BuildHandover assembles a bootinfo.Handover from the four requests'
// responses, once the bootloader has filled them in. Any request whose
// Response is still nil (bootloader too old, or protocol revision
// mismatch) yields the zero value for that section rather than a panic —
// spec §4's boot sequence tolerates a headless/diskless boot for testing.
func BuildHandover(fb *FramebufferRequest, hhdm *HHDMRequest, mm *MemmapRequest, mod *ModuleRequest) *bootinfo.Handover {
	h := &bootinfo.Handover{}

	if fb.Response != nil && fb.Response.framebufferCnt > 0 {
		first := *(**rawFramebuffer)(unsafe.Pointer(fb.Response.framebuffers))
		h.Framebuffer = bootinfo.Framebuffer{
			Base:   first.address,
			Pitch:  uint32(first.pitch),
			Width:  uint32(first.width),
			Height: uint32(first.height),
			Bpp:    uint32(first.bpp),
		}
	}

	if hhdm.Response != nil {
		h.HHDMOffset = uintptr(hhdm.Response.Offset)
	}

	if mm.Response != nil {
		entries := unsafe.Slice(mm.Response.entries, int(mm.Response.entryCnt))
		h.MemoryMap = make([]bootinfo.MemoryRegion, len(entries))
		for i, e := range entries {
			h.MemoryMap[i] = bootinfo.MemoryRegion{
				Base:   uintptr(e.base),
				Length: uintptr(e.length),
				Kind:   memmapKind(e.kind),
			}
		}
	}

	if mod.Response != nil {
		files := unsafe.Slice(mod.Response.modules, int(mod.Response.moduleCnt))
		h.Modules = make([]bootinfo.Module, len(files))
		for i, f := range files {
			h.Modules[i] = bootinfo.Module{
				Name: cString(f.path),
				Base: f.address,
				Size: uintptr(f.size),
			}
		}
	}

	return h
}
