package main

import "fmt"

// buildEncoding emits the concrete byte sequence for tmpl applied to
// ops, at the operation size opSize already derived by Encode. Order
// of emission: [legacy prefix: mandatory SSE prefix, else the 0x66
// operand-size override][REX][0x0F][opcode(s)][ModR/M][SIB]
// [displacement][immediate]. REX always sits directly before the
// 0x0F/opcode bytes.
func buildEncoding(tmpl *OpcodeTemplate, ops []*Operand, opSize uint8) (*Instruction, error) {
	effOps := ops
	var immOp *Operand
	if tmpl.Imm3 {
		if len(ops) != 3 {
			return nil, fmt.Errorf("imul3 form requires 3 operands")
		}
		immOp = ops[0]
		effOps = []*Operand{ops[1], ops[2]}
	}

	var effSpecs []OpSpec
	if tmpl.NOperands >= 1 && !tmpl.Imm3 {
		effSpecs = append(effSpecs, tmpl.Op1)
	}
	if tmpl.NOperands >= 2 && !tmpl.Imm3 {
		effSpecs = append(effSpecs, tmpl.Op2)
	}
	if tmpl.Imm3 {
		effSpecs = []OpSpec{tmpl.Op1, tmpl.Op2}
	}

	var regOp, rmOp, zOp *Operand
	for i, spec := range effSpecs {
		if i >= len(effOps) {
			break
		}
		op := effOps[i]
		switch spec.Mode {
		case AddrG, AddrV, AddrST:
			regOp = op
		case AddrE, AddrM, AddrW:
			rmOp = op
		case AddrZ:
			zOp = op
		case AddrI, AddrJ:
			immOp = op
		case AddrAcc:
			// implicit, contributes no bytes of its own
		}
	}

	rexW := (opSize == SizeQuad && !tmpl.WidthAgnostic) || tmpl.ForceRexW
	var rexR, rexX, rexB, forceRex bool

	legacy := byte(0)
	if tmpl.MandatoryPrefix != 0 {
		legacy = tmpl.MandatoryPrefix
	} else if opSize == SizeWord && rowSizeMask(*tmpl) != 0 && !tmpl.WidthAgnostic {
		legacy = 0x66
	}

	regField := byte(0)
	haveReg := false
	if regOp != nil {
		regField = byte(regOp.RegIndex & 7)
		haveReg = true
		if regOp.RegIndex >= 8 {
			rexR = true
		}
		if regOp.Alt8 {
			forceRex = true
		}
	} else if tmpl.RegExt >= 0 {
		regField = byte(tmpl.RegExt)
		haveReg = true
	}

	opcodeByte := tmpl.Opcode
	if zOp != nil {
		opcodeByte += byte(zOp.RegIndex & 7)
		if zOp.RegIndex >= 8 {
			rexB = true
		}
		if zOp.Alt8 {
			forceRex = true
		}
	}

	var modrm byte
	var sib *byte
	var disp []byte
	var dispIsReloc bool
	var dispSym *Symbol
	var dispAddend int64
	var dispPCRel bool

	if tmpl.NeedsModRM {
		if rmOp == nil {
			return nil, fmt.Errorf("internal: ModR/M form with no r/m operand")
		}
		switch rmOp.Kind {
		case OperandRegister:
			modrm = modrmByte(3, regField, byte(rmOp.RegIndex&7))
			if rmOp.RegIndex >= 8 {
				rexB = true
			}
			if rmOp.Alt8 {
				forceRex = true
			}
		case OperandMemory:
			m, s, d, reloc, sym, addend, pcrel, err := encodeMemoryOperand(rmOp, regField)
			if err != nil {
				return nil, err
			}
			modrm = m
			sib = s
			disp = d
			dispIsReloc = reloc
			dispSym = sym
			dispAddend = addend
			dispPCRel = pcrel
			if rmOp.Base != nil && rmOp.Base.RegIndex >= 8 && rmOp.Base.RegClass != RegRIP {
				rexB = true
			}
			if rmOp.Index != nil && rmOp.Index.RegIndex >= 8 {
				rexX = true
			}
		default:
			return nil, fmt.Errorf("internal: unexpected r/m operand kind")
		}
	} else if haveReg && tmpl.Has0F && tmpl.RegExt < 0 {
		// reg-only rows without ModR/M (none in this catalogue currently,
		// guarded defensively rather than silently mis-encoding)
		return nil, fmt.Errorf("internal: register operand without ModR/M support")
	}

	var buf []byte
	if legacy != 0 {
		buf = append(buf, legacy)
	}
	rex := byte(0x40)
	if rexW {
		rex |= 0x08
	}
	if rexR {
		rex |= 0x04
	}
	if rexX {
		rex |= 0x02
	}
	if rexB {
		rex |= 0x01
	}
	if rex != 0x40 || forceRex {
		buf = append(buf, rex)
	}
	if tmpl.Has0F {
		buf = append(buf, 0x0f)
	}
	buf = append(buf, opcodeByte)
	if tmpl.HasOpcode2 {
		buf = append(buf, tmpl.Opcode2)
	}
	if tmpl.NeedsModRM {
		buf = append(buf, modrm)
		if sib != nil {
			buf = append(buf, *sib)
		}
	}

	inst := &Instruction{}
	dispFieldOffset := -1
	if len(disp) > 0 {
		dispFieldOffset = len(buf)
		buf = append(buf, disp...)
	}

	immFieldOffset := -1
	immWidth := 0
	var immIsReloc bool
	var immSym *Symbol
	var immAddend int64
	var immPCRel bool
	if immOp != nil && tmpl.ImmBits != 1 {
		width := int(tmpl.ImmBits) / 8
		if sym, addend, ok := immOp.ImmExpr.asSymbolRefSafe(); ok {
			immIsReloc = true
			immSym = sym
			immAddend = addend
			immPCRel = tmpl.Branch || tmpl.IsCall
			immFieldOffset = len(buf)
			immWidth = width
			buf = append(buf, make([]byte, width)...)
		} else {
			val, err := immOp.evalSafe()
			if err != nil {
				return nil, err
			}
			buf = append(buf, littleEndian(val, width)...)
		}
	}

	inst.Bytes = buf

	if dispIsReloc {
		trailing := len(buf) - (dispFieldOffset + len(disp))
		width := len(disp)
		addend := dispAddend
		if dispPCRel {
			addend = dispAddend - int64(width) - int64(trailing)
		}
		inst.HasReloc = true
		inst.RelocOffset = dispFieldOffset
		inst.RelocWidth = width
		inst.RelocSymbol = dispSym
		inst.RelocAddend = addend
		inst.RelocPCRel = dispPCRel
	} else if immIsReloc {
		trailing := len(buf) - (immFieldOffset + immWidth)
		addend := immAddend
		if immPCRel {
			addend = immAddend - int64(immWidth) - int64(trailing)
		}
		inst.HasReloc = true
		inst.RelocOffset = immFieldOffset
		inst.RelocWidth = immWidth
		inst.RelocSymbol = immSym
		inst.RelocAddend = addend
		inst.RelocPCRel = immPCRel
	}

	return inst, nil
}

func modrmByte(mod, reg, rm byte) byte {
	return mod<<6 | (reg&7)<<3 | (rm & 7)
}

func sibByte(scale, index, base byte) byte {
	return scale<<6 | (index&7)<<3 | (base & 7)
}

func scaleBits(scale int) byte {
	switch scale {
	case 1:
		return 0
	case 2:
		return 1
	case 4:
		return 2
	case 8:
		return 3
	default:
		return 0
	}
}

// encodeMemoryOperand builds the ModR/M, optional SIB, and
// displacement bytes for a memory operand, per spec.md §4.5's
// addressing rules: RIP-relative via mod=00/rm=101, RSP/R12 always
// routed through a SIB byte, and RBP/R13 forced to an explicit
// disp8=0 when the source gave no displacement of its own.
func encodeMemoryOperand(mem *Operand, regField byte) (modrm byte, sib *byte, disp []byte, dispReloc bool, dispSym *Symbol, dispAddend int64, dispPCRel bool, err error) {
	if mem.Base != nil && mem.Base.RegClass == RegRIP {
		modrm = modrmByte(0, regField, 5)
		disp, dispReloc, dispSym, dispAddend, dispPCRel = dispBytes(mem, 4, true)
		return modrm, nil, disp, dispReloc, dispSym, dispAddend, dispPCRel, nil
	}

	hasIndex := mem.Index != nil
	hasBase := mem.Base != nil

	if !hasBase && !hasIndex {
		// absolute disp32, no base/index: SIB required (rm=100),
		// SIB base field = 101 signals "no base".
		modrm = modrmByte(0, regField, 4)
		s := sibByte(0, 4, 5)
		disp, dispReloc, dispSym, dispAddend, dispPCRel = dispBytes(mem, 4, false)
		return modrm, &s, disp, dispReloc, dispSym, dispAddend, dispPCRel, nil
	}

	needsSIB := hasIndex || (hasBase && mem.Base.RegIndex&7 == 4)

	baseLow := byte(5) // SIB "no base" encoding, overwritten below if hasBase
	if hasBase {
		baseLow = byte(mem.Base.RegIndex & 7)
	}

	rbpLikeNoDisp := hasBase && mem.Base.RegIndex&7 == 5 && mem.Disp == 0 && mem.DispSym == nil && mem.DispExpr == nil

	var mod byte
	var width int
	switch {
	case !hasBase:
		mod = 0
		width = 4
	case rbpLikeNoDisp:
		mod = 1
		width = 1
	case mem.Disp == 0 && mem.DispSym == nil && mem.DispExpr == nil:
		mod = 0
		width = 0
	case fitsInt8(mem.Disp) && mem.DispSym == nil && mem.DispExpr == nil:
		mod = 1
		width = 1
	default:
		mod = 2
		width = 4
	}

	if needsSIB {
		modrm = modrmByte(mod, regField, 4)
		scale := scaleBits(mem.Scale)
		indexLow := byte(4) // "no index"
		if hasIndex {
			indexLow = byte(mem.Index.RegIndex & 7)
		}
		s := sibByte(scale, indexLow, baseLow)
		sib = &s
	} else {
		modrm = modrmByte(mod, regField, baseLow)
	}

	if width > 0 {
		disp, dispReloc, dispSym, dispAddend, dispPCRel = dispBytes(mem, width, false)
	}
	return modrm, sib, disp, dispReloc, dispSym, dispAddend, dispPCRel, nil
}

func fitsInt8(v int64) bool { return v >= -128 && v <= 127 }

// dispBytes renders the displacement field: a literal constant, or (if
// the operand carries a symbol) a zero placeholder plus relocation
// bookkeeping the caller folds into the Instruction.
func dispBytes(mem *Operand, width int, pcrelHint bool) (b []byte, reloc bool, sym *Symbol, addend int64, pcrel bool) {
	if mem.DispExpr != nil {
		if s, a, ok := mem.DispExpr.AsSymbolRef(); ok {
			return make([]byte, width), true, s, a, pcrelHint
		}
		v, err := mem.DispExpr.Evaluate()
		if err == nil {
			return littleEndian(v, width), false, nil, 0, false
		}
	}
	if mem.DispSym != nil {
		return make([]byte, width), true, mem.DispSym, mem.Disp, pcrelHint
	}
	return littleEndian(mem.Disp, width), false, nil, 0, false
}

func littleEndian(v int64, width int) []byte {
	b := make([]byte, width)
	for i := 0; i < width; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}

// asSymbolRefSafe guards Expr.AsSymbolRef against a nil receiver for
// immediate operands that were never given an expression (a bare
// numeric literal).
func (e *Expr) asSymbolRefSafe() (*Symbol, int64, bool) {
	if e == nil {
		return nil, 0, false
	}
	return e.AsSymbolRef()
}

// evalSafe resolves an immediate operand's numeric value whether it
// was parsed as a bare literal (ImmValue) or as a folded expression.
func (o *Operand) evalSafe() (int64, error) {
	if o.ImmExpr == nil {
		return o.ImmValue, nil
	}
	return o.ImmExpr.Evaluate()
}
