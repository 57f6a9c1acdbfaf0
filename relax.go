package main

// Relax computes final offsets for every chunk in cs, starting every
// branch chunk in its long (rel32) form and shrinking it to the short
// (rel8) form once the target's displacement is proven to fit, then
// iterating to a fixpoint. A branch only ever shrinks, never grows
// back — so each iteration either leaves the layout unchanged (done)
// or strictly decreases total size, bounding the number of iterations
// by the number of branch chunks (an n^2-bounded termination, not an
// unbounded loop).
func Relax(cs *ChunkStream) {
	for {
		assignOffsets(cs)
		shrunk := false
		for _, c := range cs.Chunks {
			if !c.IsBranch || c.Short == nil || c.UsingShort {
				continue
			}
			if shortBranchFits(cs, c) {
				c.UsingShort = true
				shrunk = true
			}
		}
		if !shrunk {
			break
		}
	}
	assignOffsets(cs)
}

// assignOffsets walks the chunk stream in order, assigning each
// chunk's Offset and binding every label queued against it, using each
// chunk's CURRENT (possibly still-short) length. An align chunk's exact
// fill length is computed here, against the running offset, and cached
// in alignFillLen so Len() reports it exactly instead of AlignTo's
// upper bound — keeping every later chunk's Offset in sync with what
// Materialize will actually emit.
func assignOffsets(cs *ChunkStream) {
	off := 0
	for _, c := range cs.Chunks {
		if c.Kind == ChunkAlign {
			rem := off % c.AlignTo
			if rem != 0 {
				c.alignFillLen = c.AlignTo - rem
			} else {
				c.alignFillLen = 0
			}
		}
		for _, sym := range c.labelsHere {
			sym.Section = cs.Section
			sym.Value = int64(off)
			sym.Defined = true
		}
		c.Offset = off
		off += c.Len()
	}
}

// shortBranchFits reports whether c's rel8 displacement (target offset
// minus the offset just past the short encoding) still fits in a
// signed byte, using the CURRENT layout computed by assignOffsets.
func shortBranchFits(cs *ChunkStream, c *Chunk) bool {
	if c.Target == nil || !c.Target.Defined || c.Target.Section != cs.Section {
		// an undefined or cross-section target can never use the
		// short form; it needs a relocation, which only the long form
		// carries (spec.md §4.7).
		return false
	}
	disp := c.Target.Value - int64(c.Offset+len(c.Short))
	return disp >= -128 && disp <= 127
}

// finalizeBranch patches a converged branch chunk's active-form
// displacement field directly whenever the target resolved locally
// (same section, defined) — true for every short-form branch by
// construction, and for any long-form branch whose target simply
// never needed the short encoding's reach. Only a genuinely unresolved
// (extern) target keeps its long-form relocation instead.
func finalizeBranch(cs *ChunkStream, c *Chunk) {
	if !c.IsBranch {
		return
	}
	localTarget := c.Target != nil && c.Target.Defined && c.Target.Section == cs.Section
	if !localTarget {
		c.Reloc = c.LongReloc
		return
	}
	if c.UsingShort {
		disp := c.Target.Value - int64(c.Offset+len(c.Short))
		buf := make([]byte, len(c.Short))
		copy(buf, c.Short)
		buf[c.PCRelSite] = byte(int8(disp))
		c.Short = buf
		return
	}
	disp := c.Target.Value - int64(c.Offset+len(c.Long))
	buf := make([]byte, len(c.Long))
	copy(buf, c.Long)
	site := len(c.Long) - 4
	le := littleEndian(disp, 4)
	copy(buf[site:site+4], le)
	c.Long = buf
}

// FinalizeSizeExprs evaluates every deferred ".size name, expr" chunk
// now that relaxation has fixed every label's offset, writing the
// result into SizeSym.Size.
func FinalizeSizeExprs(cs *ChunkStream) {
	for _, c := range cs.Chunks {
		if c.Kind != ChunkSizeExpr {
			continue
		}
		v, err := c.SizeExpr.Evaluate()
		if err != nil {
			continue // the parser already reported this; keep Size at 0
		}
		c.SizeSym.Size = v
	}
}

// Materialize writes every chunk's final bytes into the owning
// section's buffer, in order, after relaxation and size-expr
// finalization have both completed. Each chunk lands at its
// Chunk.Offset, which reloc.go's CollectRelocations reads.
func Materialize(cs *ChunkStream) {
	for _, c := range cs.Chunks {
		if c.IsBranch {
			finalizeBranch(cs, c)
		}
		switch c.Kind {
		case ChunkCode, ChunkData:
			cs.Section.Emit(c.Bytes())
		case ChunkZero:
			cs.Section.EmitZero(c.ZeroLen)
		case ChunkAlign:
			rem := cs.Section.Size() % c.AlignTo
			if rem != 0 {
				n := c.AlignTo - rem
				for i := 0; i < n; i++ {
					cs.Section.EmitByte(c.AlignFillByte)
				}
			}
		case ChunkSizeExpr:
			// no bytes; already folded into SizeSym.Size
		}
	}
}
