package main

import "bytes"

// ELF64 constants this writer needs. Grounded in spec.md §4.9 and
// generalized from xyproto/flapc's elf_complete.go, which wrote a
// fixed single-binary ET_EXEC layout; here the output is always
// ET_REL with an open section set instead of a fixed segment table.
const (
	elfMagic0 = 0x7f
	etRel     = 1
	emX86_64  = 62
	evCurrent = 1

	ehdrSize = 64
	shdrSize = 64
	symSize  = 24
)

// BuildSectionSymbols creates the one STT_SECTION pseudo-symbol each
// real section gets in .symtab. Exposed separately from WriteObject so
// reloc.go's FinalizeRelocations can rewrite local-symbol relocations
// against these same Symbol instances before the object's final byte
// layout (and their .symtab Index) is known.
func BuildSectionSymbols(ss *SectionSet) map[*Section]*Symbol {
	sectionSymbols := make(map[*Section]*Symbol)
	for _, sec := range ss.All() {
		if sec.Type == SHT_NULL {
			continue
		}
		sectionSymbols[sec] = &Symbol{Name: "", Type: TypeSection, Section: sec, Defined: true, Binding: BindLocal}
	}
	return sectionSymbols
}

// AssignSymbolIndices fixes every symbol's final .symtab Index —
// section symbols first, then user locals, then user globals — without
// writing any bytes. Relocations reference a symbol's Index (via
// reloc.go's EmitRelaEntries), and those relocation records must be
// finalized and written into their .rela.* sections before WriteObject
// computes the object's byte layout, so index assignment has to happen
// as its own early step rather than inline with symtab serialization.
func AssignSymbolIndices(ss *SectionSet, symtab *SymbolTable, sectionSymbols map[*Section]*Symbol) (locals, globals []*Symbol, firstGlobal int) {
	symtab.Each(func(sym *Symbol) {
		if sym.IsLocalOnly() {
			return
		}
		if sym.Binding == BindLocal {
			locals = append(locals, sym)
		} else {
			globals = append(globals, sym)
		}
	})
	index := 1
	for _, sec := range ss.All() {
		if sec.Type == SHT_NULL {
			continue
		}
		sym, ok := sectionSymbols[sec]
		if !ok {
			continue
		}
		sym.Index = index
		index++
	}
	for _, s := range locals {
		s.Index = index
		index++
	}
	firstGlobal = index
	for _, s := range globals {
		s.Index = index
		index++
	}
	return locals, globals, firstGlobal
}

// WriteObject serializes ss into a complete ELF64 ET_REL byte image.
// Symbol table layout is two-pass per spec.md §4.3/§4.9: local symbols
// first (index 1..n, after the mandatory null entry), then globals,
// with sh_info on .symtab set to the index of the first global. locals,
// globals and firstGlobal must come from AssignSymbolIndices, called
// earlier against the same sectionSymbols map, so the bytes written
// here agree with whatever index EmitRelaEntries already baked into
// the .rela.* sections.
func WriteObject(ss *SectionSet, sectionSymbols map[*Section]*Symbol, locals, globals []*Symbol, firstGlobal int) []byte {
	// NewSectionSet already creates .strtab eagerly, so reuse and reset
	// that same Section instance rather than building a detached one —
	// a detached buffer here would hold the real string bytes while the
	// section actually serialized at the end stays empty.
	strtab, ok := ss.Get(".strtab")
	if !ok {
		strtab = newSection(".strtab", SHT_STRTAB, 0, 1)
		ss.add(strtab)
	}
	strtab.buf.Reset()
	strtab.EmitByte(0)
	shstrtab, _ := ss.Get(".shstrtab")
	symtabSec, _ := ss.Get(".symtab")

	strIdx := map[string]uint32{}
	addStr := func(s *Section, name string) uint32 {
		if name == "" {
			return 0
		}
		if off, ok := strIdx[s.Name+"\x00"+name]; ok {
			return off
		}
		off := uint32(s.Size())
		s.Emit([]byte(name))
		s.EmitByte(0)
		strIdx[s.Name+"\x00"+name] = off
		return off
	}

	symtabSec.EmitByte(0)
	for i := 1; i < symSize; i++ {
		symtabSec.EmitByte(0)
	}
	writeSym := func(sym *Symbol) {
		nameOff := addStr(strtab, sym.Name)
		var shndx uint16
		var value, size uint64
		if sym.Defined && sym.Section != nil {
			if idx, ok := sectionHeaderIndex(ss, sym.Section); ok {
				shndx = idx
			}
			value = uint64(sym.Value)
			size = uint64(sym.Size)
		}
		info := byte(sym.Binding)<<4 | byte(sym.Type)
		emitSymEntry(symtabSec, nameOff, info, shndx, value, size)
	}

	// STT_SECTION entries are always local, so they must precede every
	// global in the table; GAS emits them first, before any user local.
	for _, sec := range ss.All() {
		if sec.Type == SHT_NULL {
			continue
		}
		if _, ok := sectionSymbols[sec]; !ok {
			continue
		}
		if idx, ok := sectionHeaderIndex(ss, sec); ok {
			emitSymEntry(symtabSec, 0, byte(BindLocal)<<4|byte(TypeSection), idx, 0, 0)
		}
	}
	for _, s := range locals {
		writeSym(s)
	}
	for _, s := range globals {
		writeSym(s)
	}

	symtabSec.Rela = nil // .symtab never itself carries relocations

	// assign section header string names and indices
	for i, sec := range ss.All() {
		sec.HeaderIdx = i
	}
	shstrIdx := map[string]uint32{}
	shstrtab.buf.Reset()
	shstrtab.EmitByte(0)
	off := uint32(1)
	for _, sec := range ss.All() {
		if sec.Name == "" {
			continue
		}
		shstrIdx[sec.Name] = off
		shstrtab.Emit([]byte(sec.Name))
		shstrtab.EmitByte(0)
		off += uint32(len(sec.Name)) + 1
	}

	symtabSec.Align = 8

	sections := ss.All()
	nsecs := len(sections)
	var body bytes.Buffer
	shOffsets := make([]uint64, nsecs)
	curOff := uint64(ehdrSize)

	for i, sec := range sections {
		if sec.Type == SHT_NULL || sec.Type == SHT_NOBITS {
			shOffsets[i] = 0
			continue
		}
		align := sec.Align
		if align < 16 {
			align = 16
		}
		pad := alignUp(curOff, align) - curOff
		for k := uint64(0); k < pad; k++ {
			body.WriteByte(0)
		}
		curOff += pad
		shOffsets[i] = curOff
		body.Write(sec.Bytes())
		curOff += uint64(sec.Size())
	}

	shOffTableOff := alignUp(curOff, 8)
	for k := curOff; k < shOffTableOff; k++ {
		body.WriteByte(0)
	}

	var out bytes.Buffer
	writeEhdr(&out, uint64(ehdrSize)+uint64(body.Len()), uint16(nsecs), shstrtabIndex(ss))
	out.Write(body.Bytes())

	for i, sec := range sections {
		var link, info uint32
		entsize := uint64(0)
		switch sec.Type {
		case SHT_SYMTAB:
			link = uint32(strtabIndex(ss))
			info = uint32(firstGlobal)
			entsize = symSize
		case SHT_RELA:
			link = uint32(symtabIndex(ss))
			info = uint32(targetSectionIndex(ss, sec))
			entsize = 24
		}
		writeShdr(&out, shstrIdx[sec.Name], sec.Type, sec.Flags, shOffsets[i], sectionFileSize(sec), link, info, sec.Align, entsize)
	}

	return out.Bytes()
}

func sectionFileSize(sec *Section) uint64 {
	if sec.Type == SHT_NOBITS {
		return uint64(sec.BSSSize)
	}
	return uint64(sec.Size())
}

func alignUp(v, align uint64) uint64 {
	if align == 0 {
		return v
	}
	r := v % align
	if r == 0 {
		return v
	}
	return v + (align - r)
}

func sectionHeaderIndex(ss *SectionSet, sec *Section) (uint16, bool) {
	for i, s := range ss.All() {
		if s == sec {
			return uint16(i), true
		}
	}
	return 0, false
}

func shstrtabIndex(ss *SectionSet) uint16 {
	i, _ := sectionHeaderIndex(ss, mustGet(ss, ".shstrtab"))
	return i
}

func strtabIndex(ss *SectionSet) uint16 {
	i, _ := sectionHeaderIndex(ss, mustGet(ss, ".strtab"))
	return i
}

func symtabIndex(ss *SectionSet) uint16 {
	i, _ := sectionHeaderIndex(ss, mustGet(ss, ".symtab"))
	return i
}

func targetSectionIndex(ss *SectionSet, rela *Section) uint16 {
	target := rela.Name[len(".rela"):]
	i, _ := sectionHeaderIndex(ss, mustGet(ss, target))
	return i
}

func mustGet(ss *SectionSet, name string) *Section {
	s, _ := ss.Get(name)
	return s
}

func emitSymEntry(symtab *Section, nameOff uint32, info byte, shndx uint16, value, size uint64) {
	var buf [symSize]byte
	putUint32(buf[0:4], nameOff)
	buf[4] = info
	buf[5] = 0 // st_other
	putUint16(buf[6:8], shndx)
	putUint64(buf[8:16], value)
	putUint64(buf[16:24], size)
	symtab.Emit(buf[:])
}

func putUint32(b []byte, v uint32) {
	for i := 0; i < 4; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func putUint16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

func writeEhdr(out *bytes.Buffer, shoff uint64, shnum, shstrndx uint16) {
	var e [ehdrSize]byte
	e[0] = elfMagic0
	e[1], e[2], e[3] = 'E', 'L', 'F'
	e[4] = 2 // ELFCLASS64
	e[5] = 1 // ELFDATA2LSB
	e[6] = evCurrent
	// e_ident[7..15] left zero (ELFOSABI_NONE, padding)
	putUint16(e[16:18], etRel)
	putUint16(e[18:20], emX86_64)
	putUint32(e[20:24], evCurrent)
	putUint64(e[24:32], 0) // e_entry: none in a relocatable object
	putUint64(e[32:40], 0) // e_phoff: no program headers
	putUint64(e[40:48], shoff)
	putUint32(e[48:52], 0) // e_flags
	putUint16(e[52:54], ehdrSize)
	putUint16(e[54:56], 0) // e_phentsize
	putUint16(e[56:58], 0) // e_phnum
	putUint16(e[58:60], shdrSize)
	putUint16(e[60:62], shnum)
	putUint16(e[62:64], shstrndx)
	out.Write(e[:])
}

func writeShdr(out *bytes.Buffer, nameOff uint32, typ uint32, flags uint64, offset, size uint64, link, info uint32, align uint64, entsize uint64) {
	var s [shdrSize]byte
	putUint32(s[0:4], nameOff)
	putUint32(s[4:8], typ)
	putUint64(s[8:16], flags)
	putUint64(s[16:24], 0) // sh_addr: zero in a relocatable object
	putUint64(s[24:32], offset)
	putUint64(s[32:40], size)
	putUint32(s[40:44], link)
	putUint32(s[44:48], info)
	putUint64(s[48:56], align)
	putUint64(s[56:64], entsize)
	out.Write(s[:])
}
