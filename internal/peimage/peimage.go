// Package peimage implements the payload-side PE self-walk: DOS/NT
// header parse, Import Directory walk, and the lockstep INT/IAT
// traversal that resolves a (module, function) pair to its IAT slot
// address. The standard library's debug/pe cannot serve this since it
// only parses on-disk files, never an already-mapped, already-relocated
// image; this package walks IMAGE_IMPORT_DESCRIPTOR entries by hand.
package peimage

import (
	"encoding/binary"
	"strings"
	"unicode/utf8"

	"github.com/nestybox/winjector/internal/werrors"
)

const (
	dosHeaderELfanewOffset = 0x3C
	peSignatureSize        = 4
	fileHeaderSize         = 20

	peOptMagicPE32    = 0x10B
	peOptMagicPE32p   = 0x20B
	importDirIndex    = 1
	dataDirEntrySize  = 8
	importDirOff32    = 96 + importDirIndex*dataDirEntrySize  // 104
	importDirOff64    = 112 + importDirIndex*dataDirEntrySize // 120

	importDescriptorSize = 20 // OriginalFirstThunk, TimeDateStamp, ForwarderChain, Name, FirstThunk

	ordinalFlag32 = uint64(0x80000000)
	ordinalFlag64 = uint64(0x8000000000000000)

	maxCStringLen = 4096 // defends against a corrupt image with no terminator
)

// Image is a parsed PE header sufficient to walk the Import Directory.
type Image struct {
	mem             Memory
	base            uintptr
	is64            bool
	wordSize        int
	importDirVA     uintptr
}

// NewImage parses the DOS/NT/optional headers at base and locates the
// Import Directory.
func NewImage(mem Memory, base uintptr) (*Image, error) {
	elfanew := binary.LittleEndian.Uint32(mem.Read(base+dosHeaderELfanewOffset, 4))
	ntBase := base + uintptr(elfanew)

	sig := mem.Read(ntBase, peSignatureSize)
	if string(sig) != "PE\x00\x00" {
		return nil, werrors.New(werrors.PEParseError, "peimage.NewImage", nil)
	}

	optHeaderBase := ntBase + peSignatureSize + fileHeaderSize
	magic := binary.LittleEndian.Uint16(mem.Read(optHeaderBase, 2))

	var importDirOff uintptr
	var is64 bool
	switch magic {
	case peOptMagicPE32:
		importDirOff = importDirOff32
		is64 = false
	case peOptMagicPE32p:
		importDirOff = importDirOff64
		is64 = true
	default:
		return nil, werrors.New(werrors.PEParseError, "peimage.NewImage.magic", nil)
	}

	importRVA := binary.LittleEndian.Uint32(mem.Read(optHeaderBase+importDirOff, 4))
	if importRVA == 0 {
		return nil, werrors.New(werrors.PEParseError, "peimage.NewImage.noImportDirectory", nil)
	}

	wordSize := 4
	if is64 {
		wordSize = 8
	}

	return &Image{
		mem:         mem,
		base:        base,
		is64:        is64,
		wordSize:    wordSize,
		importDirVA: base + uintptr(importRVA),
	}, nil
}

// importDescriptor is the 20-byte IMAGE_IMPORT_DESCRIPTOR, parsed
// field-by-field rather than via a Go struct, since the layout must match
// the in-memory image exactly and nothing here is portable across
// architectures anyway.
type importDescriptor struct {
	originalFirstThunk uint32
	nameRVA            uint32
	firstThunk         uint32
}

func (img *Image) readDescriptor(addr uintptr) importDescriptor {
	raw := img.mem.Read(addr, importDescriptorSize)
	return importDescriptor{
		originalFirstThunk: binary.LittleEndian.Uint32(raw[0:4]),
		nameRVA:            binary.LittleEndian.Uint32(raw[12:16]),
		firstThunk:         binary.LittleEndian.Uint32(raw[16:20]),
	}
}

func (img *Image) isZeroDescriptor(d importDescriptor) bool {
	return d.originalFirstThunk == 0 && d.nameRVA == 0 && d.firstThunk == 0
}

func (img *Image) readCString(addr uintptr) (string, error) {
	var buf []byte
	for i := 0; i < maxCStringLen; i++ {
		b := img.mem.Read(addr+uintptr(i), 1)
		if b[0] == 0 {
			break
		}
		buf = append(buf, b[0])
	}
	if !utf8.Valid(buf) {
		return "", werrors.New(werrors.ModuleNameDecodeError, "peimage.readCString", nil)
	}
	return string(buf), nil
}

func (img *Image) thunkValue(addr uintptr) uint64 {
	raw := img.mem.Read(addr, img.wordSize)
	if img.wordSize == 8 {
		return binary.LittleEndian.Uint64(raw)
	}
	return uint64(binary.LittleEndian.Uint32(raw))
}

func (img *Image) isOrdinal(thunk uint64) bool {
	if img.is64 {
		return thunk&ordinalFlag64 != 0
	}
	return thunk&ordinalFlag32 != 0
}

// FindIATSlot walks the Import Directory looking for moduleName, then
// walks that module's INT/IAT in lockstep looking for functionName,
// skipping ordinal imports rather than misreading them as names. It
// returns the address of the IAT slot, not its contents.
func (img *Image) FindIATSlot(moduleName, functionName string) (uintptr, error) {
	moduleFound := false

	for i := 0; ; i++ {
		descAddr := img.importDirVA + uintptr(i*importDescriptorSize)
		desc := img.readDescriptor(descAddr)
		if img.isZeroDescriptor(desc) {
			break
		}

		name, err := img.readCString(img.base + uintptr(desc.nameRVA))
		if err != nil {
			return 0, err
		}
		if !strings.EqualFold(name, moduleName) {
			continue
		}
		moduleFound = true

		intBase := img.base + uintptr(desc.originalFirstThunk)
		iatBase := img.base + uintptr(desc.firstThunk)

		for j := 0; ; j++ {
			thunkAddr := intBase + uintptr(j*img.wordSize)
			thunk := img.thunkValue(thunkAddr)
			if thunk == 0 {
				break
			}
			if img.isOrdinal(thunk) {
				continue
			}

			// thunk is an RVA to IMAGE_IMPORT_BY_NAME: Hint(2) + name.
			fn, err := img.readCString(img.base + uintptr(thunk) + 2)
			if err != nil {
				return 0, werrors.New(werrors.FunctionNameDecodeError, "peimage.FindIATSlot", err)
			}
			if fn == functionName {
				return iatBase + uintptr(j*img.wordSize), nil
			}
		}
	}

	if !moduleFound {
		return 0, werrors.New(werrors.ImportModuleNotFound, "peimage.FindIATSlot", nil)
	}
	return 0, werrors.New(werrors.ImportFunctionNotFound, "peimage.FindIATSlot", nil)
}
