package main

// ChunkKind tags what kind of content a Chunk holds. Grounded on
// xyproto/flapc's BufferWrapper append-only model (emit.go), split
// here into a tagged sequence so the branch relaxer (relax.go) can
// rewrite a Code chunk's bytes in place without touching its
// neighbors, and so .size/.align directives can defer their value or
// byte count until every label in the file has a final offset.
type ChunkKind int

const (
	ChunkCode ChunkKind = iota
	ChunkData
	ChunkZero
	ChunkAlign
	ChunkSizeExpr
)

// Chunk is one unit of a section's pending content. A Branch chunk
// carries two pre-encoded alternatives (short and long form); the
// relaxer picks between them by toggling UsingShort, and Bytes()
// always reflects the active choice.
type Chunk struct {
	Kind ChunkKind

	// ChunkCode / ChunkData
	Primary   []byte // the instruction's current bytes
	IsBranch  bool
	Short     []byte // rel8 form, nil if the mnemonic has none
	Long      []byte // rel32 form
	UsingShort bool
	Target    *Symbol // branch/call target, for relaxation distance checks
	PCRelSite int     // offset within the chosen form of the displacement field

	// relocation carried by this chunk's current form (if any)
	Reloc     *PendingReloc
	LongReloc *PendingReloc // the long form's relocation, used when the target is never resolved locally

	// ChunkZero / ChunkAlign
	ZeroLen  int
	AlignTo  int
	AlignFillByte byte
	// alignFillLen is the exact pad length assignOffsets computed for
	// this chunk at its current position (0..AlignTo-1); Materialize
	// recomputes the same length from the section's size.
	alignFillLen int

	// ChunkSizeExpr: a deferred ".size name, expr" whose value can only
	// be known once relaxation has converged
	SizeSym  *Symbol
	SizeExpr *Expr

	// Offset within the owning section, filled by the relaxer's final
	// layout pass.
	Offset int

	// labelsHere lists the symbols that must be defined at this
	// chunk's start offset once layout is known.
	labelsHere []*Symbol
}

// Bytes returns the chunk's current encoded form. Callers must only
// call this after the relaxer's fixpoint has converged (or, for chunks
// outside .text, immediately — only branches relax).
func (c *Chunk) Bytes() []byte {
	switch c.Kind {
	case ChunkCode, ChunkData:
		if c.IsBranch && c.UsingShort {
			return c.Short
		}
		if c.IsBranch {
			return c.Long
		}
		return c.Primary
	case ChunkZero, ChunkAlign:
		return nil // size-only; relax.go's Materialize emits the fill bytes
	default:
		return nil
	}
}

// Len returns the chunk's current byte length, without requiring
// Bytes() to allocate zero-fill.
func (c *Chunk) Len() int {
	switch c.Kind {
	case ChunkCode, ChunkData:
		if c.IsBranch && c.UsingShort {
			return len(c.Short)
		}
		if c.IsBranch {
			return len(c.Long)
		}
		return len(c.Primary)
	case ChunkZero:
		return c.ZeroLen
	case ChunkAlign:
		return c.alignFillLen
	case ChunkSizeExpr:
		return 0
	default:
		return 0
	}
}

func newCodeChunk(inst *Instruction) *Chunk {
	return newBytesChunk(ChunkCode, inst.Bytes, inst)
}

// newDataChunk wraps a directive-emitted byte run (.byte/.word/.long/
// .quad/.string/.ascii) the same way newCodeChunk wraps an encoded
// instruction, so .data content relaxes and relocates identically.
func newDataChunk(bytes []byte, reloc *PendingReloc) *Chunk {
	c := &Chunk{Kind: ChunkData, Primary: bytes, Reloc: reloc}
	return c
}

func newBytesChunk(kind ChunkKind, bytes []byte, inst *Instruction) *Chunk {
	c := &Chunk{Kind: kind, Primary: bytes}
	if inst.HasReloc {
		c.Reloc = &PendingReloc{
			OffsetInChunk: inst.RelocOffset,
			Width:         inst.RelocWidth,
			Symbol:        inst.RelocSymbol,
			Addend:        inst.RelocAddend,
			PCRel:         inst.RelocPCRel,
		}
	}
	return c
}

// newBranchChunk builds a two-form (short/long) branch chunk from a
// pair of already-encoded alternative Instructions, defaulting to the
// long (primary) form — the relaxer only ever shrinks a branch down to
// its short form, never grows it back, mirroring the frag/reduce model
// this relaxer is grounded on: every branch starts using the larger
// encoding, and reduction only ever flips it to the smaller one.
func newBranchChunk(target *Symbol, short, long *Instruction) *Chunk {
	c := &Chunk{Kind: ChunkCode, IsBranch: true, Target: target, UsingShort: false}
	if short != nil {
		c.Short = short.Bytes
	}
	c.Long = long.Bytes
	if long.HasReloc {
		c.LongReloc = &PendingReloc{
			OffsetInChunk: long.RelocOffset,
			Width:         long.RelocWidth,
			Symbol:        long.RelocSymbol,
			Addend:        long.RelocAddend,
			PCRel:         long.RelocPCRel,
		}
	}
	return c
}

func newZeroChunk(n int) *Chunk { return &Chunk{Kind: ChunkZero, ZeroLen: n} }

func newAlignChunk(to int, fill byte) *Chunk {
	return &Chunk{Kind: ChunkAlign, AlignTo: to, AlignFillByte: fill}
}

func newSizeExprChunk(sym *Symbol, expr *Expr) *Chunk {
	return &Chunk{Kind: ChunkSizeExpr, SizeSym: sym, SizeExpr: expr}
}

// PendingReloc is a relocation site recorded against a chunk's current
// byte form rather than final section offset; reloc.go finalizes these
// into ELF Rela records once the chunk stream's layout is fixed.
type PendingReloc struct {
	OffsetInChunk int
	Width         int
	Symbol        *Symbol
	Addend        int64
	PCRel         bool
}

// ChunkStream is the ordered, append-only list of chunks queued for one
// section (almost always .text, since only .text carries branches that
// need relaxation, but the model is section-agnostic).
type ChunkStream struct {
	Section *Section
	Chunks  []*Chunk
	// pendingLabels are symbols seen since the last chunk was appended;
	// they bind to the offset of the NEXT chunk appended (spec.md §4.6:
	// "a label attaches to whatever follows it").
	pendingLabels []*Symbol
}

func NewChunkStream(sec *Section) *ChunkStream {
	return &ChunkStream{Section: sec}
}

// AttachLabel queues sym to be bound to the start offset of the next
// chunk appended to this stream.
func (cs *ChunkStream) AttachLabel(sym *Symbol) {
	cs.pendingLabels = append(cs.pendingLabels, sym)
}

// Append adds c to the stream and resolves every pending label against
// c's eventual start offset (bound later by relax.go's assignOffsets,
// which sets each label's Section, Value and Defined).
func (cs *ChunkStream) Append(c *Chunk) {
	if len(cs.pendingLabels) > 0 {
		c.labelsHere = append(c.labelsHere, cs.pendingLabels...)
		cs.pendingLabels = nil
	}
	cs.Chunks = append(cs.Chunks, c)
}
