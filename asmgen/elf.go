package asmgen

import (
	"encoding/binary"
	"fmt"
	"os"
)

// loadAddr is the fixed virtual base address for the single PT_LOAD
// segment, a conventional non-PIE choice (matches the address
// traditional `ld -static -no-pie` picks).
const loadAddr = 0x400000

const (
	ehdrSize = 64
	phdrSize = 56
)

// Writeout resolves every pending fixup against the final code/data
// layout, lays out one PT_LOAD ELF64 executable segment (code and
// interned string data together, per spec.md §1's "no separate
// compilation" simplicity), and writes path with the executable bit
// set. entry is the label _start was fixed to.
func (a *Assembler) Writeout(path string, entry *Label) error {
	if !entry.fixed {
		return fmt.Errorf("asmgen: entry label was never fixed")
	}

	codeBase := int64(loadAddr) + ehdrSize + phdrSize
	dataBase := codeBase + int64(len(a.code))

	dataOffsets := make([]int64, len(a.strings))
	var data []byte
	for i, s := range a.strings {
		dataOffsets[i] = int64(len(data))
		data = append(data, s...)
	}

	code := make([]byte, len(a.code))
	copy(code, a.code)

	for _, f := range a.fixups {
		switch f.kind {
		case fixupAbs64Label:
			addr := codeBase + int64(f.label.offset)
			binary.LittleEndian.PutUint64(code[f.offset:], uint64(addr))
		case fixupAbs64Data:
			addr := dataBase + dataOffsets[f.data]
			binary.LittleEndian.PutUint64(code[f.offset:], uint64(addr))
		case fixupRel32:
			instrEnd := codeBase + int64(f.offset) + 4
			target := codeBase + int64(f.label.offset)
			rel := target - instrEnd
			binary.LittleEndian.PutUint32(code[f.offset:], uint32(int32(rel)))
		}
	}

	fileSize := ehdrSize + phdrSize + len(code) + len(data)
	out := make([]byte, fileSize)

	writeEhdr(out, codeBase+int64(entry.offset), uint64(fileSize))
	writePhdr(out[ehdrSize:], uint64(fileSize))
	copy(out[ehdrSize+phdrSize:], code)
	copy(out[ehdrSize+phdrSize+len(code):], data)

	return os.WriteFile(path, out, 0o755)
}

func writeEhdr(b []byte, entry int64, fileSize uint64) {
	copy(b[0:4], []byte{0x7F, 'E', 'L', 'F'})
	b[4] = 2 // ELFCLASS64
	b[5] = 1 // little-endian
	b[6] = 1 // EI_VERSION
	b[7] = 0 // ELFOSABI_SYSV
	binary.LittleEndian.PutUint16(b[16:], 2)          // e_type = ET_EXEC
	binary.LittleEndian.PutUint16(b[18:], 0x3E)       // e_machine = EM_X86_64
	binary.LittleEndian.PutUint32(b[20:], 1)          // e_version
	binary.LittleEndian.PutUint64(b[24:], uint64(entry))
	binary.LittleEndian.PutUint64(b[32:], ehdrSize) // e_phoff
	binary.LittleEndian.PutUint64(b[40:], 0)        // e_shoff
	binary.LittleEndian.PutUint32(b[48:], 0)        // e_flags
	binary.LittleEndian.PutUint16(b[52:], ehdrSize) // e_ehsize
	binary.LittleEndian.PutUint16(b[54:], phdrSize) // e_phentsize
	binary.LittleEndian.PutUint16(b[56:], 1)        // e_phnum
	binary.LittleEndian.PutUint16(b[58:], 0)        // e_shentsize
	binary.LittleEndian.PutUint16(b[60:], 0)        // e_shnum
	binary.LittleEndian.PutUint16(b[62:], 0)        // e_shstrndx
}

func writePhdr(b []byte, fileSize uint64) {
	binary.LittleEndian.PutUint32(b[0:], 1)          // p_type = PT_LOAD
	binary.LittleEndian.PutUint32(b[4:], 5) // p_flags = PF_R|PF_X
	binary.LittleEndian.PutUint64(b[8:], 0)          // p_offset
	binary.LittleEndian.PutUint64(b[16:], loadAddr)  // p_vaddr
	binary.LittleEndian.PutUint64(b[24:], loadAddr)  // p_paddr
	binary.LittleEndian.PutUint64(b[32:], fileSize)  // p_filesz
	binary.LittleEndian.PutUint64(b[40:], fileSize)  // p_memsz
	binary.LittleEndian.PutUint64(b[48:], 0x1000)    // p_align
}
