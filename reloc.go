package main

// ELF64 relocation type numbers. relocType picks among them:
// R_X86_64_PC32 for every 4-byte PC-relative site (RIP-relative
// operands and near call/branch alike), R_X86_64_64 for 8-byte absolute
// sites, R_X86_64_32S for 4-byte absolute sites, and R_X86_64_32 for
// any other width. R_X86_64_PLT32 is declared but never emitted.
const (
	R_X86_64_64     = 1
	R_X86_64_PC32   = 2
	R_X86_64_32     = 10
	R_X86_64_32S    = 11
	R_X86_64_PLT32  = 4
)

// RelocationRecord mirrors one Elf64_Rela entry prior to final
// layout: Offset is filled in once the owning section's chunk stream
// has been materialized (chunk.Offset + reloc.OffsetInChunk).
type RelocationRecord struct {
	Section *Section // the section the relocation applies against (.text, .data, ...)
	Offset  uint64
	Symbol  *Symbol
	Type    uint32
	Addend  int64
}

// CollectRelocations walks cs's chunks after Relax/Materialize have
// fixed every offset, turning each chunk's PendingReloc into a
// RelocationRecord with an absolute section offset.
func CollectRelocations(cs *ChunkStream) []*RelocationRecord {
	var out []*RelocationRecord
	for _, c := range cs.Chunks {
		if c.Reloc == nil {
			continue
		}
		out = append(out, &RelocationRecord{
			Section: cs.Section,
			Offset:  uint64(c.Offset + c.Reloc.OffsetInChunk),
			Symbol:  c.Reloc.Symbol,
			Type:    relocType(c.Reloc),
			Addend:  c.Reloc.Addend,
		})
	}
	return out
}

func relocType(r *PendingReloc) uint32 {
	switch {
	case r.PCRel && r.Width == 4:
		return R_X86_64_PC32
	case !r.PCRel && r.Width == 8:
		return R_X86_64_64
	case !r.PCRel && r.Width == 4:
		return R_X86_64_32S
	default:
		return R_X86_64_32
	}
}

// FinalizeRelocations rewrites every local-symbol relocation's addend
// to be section-relative (symbol.Value + user addend) and its Symbol
// to the section's own STT_SECTION entry, per spec.md §4.8: a
// relocation against a locally-defined symbol is emitted against that
// symbol's section, not the symbol itself, since only section symbols
// are guaranteed to survive into the linked output unchanged.
// sectionSymbols maps each Section to its STT_SECTION Symbol — built
// once by the ELF serialiser (elfwriter.go) before relocations are
// finalized.
func FinalizeRelocations(recs []*RelocationRecord, sectionSymbols map[*Section]*Symbol) {
	for _, r := range recs {
		sym := r.Symbol
		if sym == nil || !sym.Defined {
			continue // undefined global: relocation stays against the symbol itself
		}
		if sym.Binding == BindGlobal && !sym.IsLocalOnly() {
			continue // defined global: linker may still override via interposition
		}
		secSym, ok := sectionSymbols[sym.Section]
		if !ok {
			continue
		}
		r.Addend += sym.Value
		r.Symbol = secSym
	}
}

// EmitRelaEntries appends recs as Elf64_Rela records (24 bytes each:
// r_offset, r_info, r_addend) into sec.Rela, assuming every Symbol's
// final .symtab Index has already been assigned.
func EmitRelaEntries(ss *SectionSet, recs []*RelocationRecord) {
	bySection := make(map[*Section][]*RelocationRecord)
	for _, r := range recs {
		bySection[r.Section] = append(bySection[r.Section], r)
	}
	for sec, list := range bySection {
		rela := ss.RelaFor(sec)
		for _, r := range list {
			var buf [24]byte
			putUint64(buf[0:8], r.Offset)
			info := uint64(r.Symbol.Index)<<32 | uint64(r.Type)
			putUint64(buf[8:16], info)
			putInt64(buf[16:24], r.Addend)
			rela.Emit(buf[:])
		}
	}
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func putInt64(b []byte, v int64) { putUint64(b, uint64(v)) }
