package main

import (
	"bytes"
	"testing"
)

func TestModrmByte(t *testing.T) {
	cases := []struct {
		mod, reg, rm byte
		want         byte
	}{
		{3, 0, 0, 0xc0},
		{0, 7, 5, 0x3d},
		{1, 2, 4, 0x54},
	}
	for _, c := range cases {
		got := modrmByte(c.mod, c.reg, c.rm)
		if got != c.want {
			t.Errorf("modrmByte(%d,%d,%d) = %#x, want %#x", c.mod, c.reg, c.rm, got, c.want)
		}
	}
	// reg and rm fields are masked to 3 bits even if a caller passes a
	// full 0..15 register index (REX.R/REX.B supply the high bit
	// separately).
	if got := modrmByte(3, 15, 15); got != 0xff {
		t.Errorf("modrmByte(3,15,15) = %#x, want 0xff (low 3 bits of each field)", got)
	}
}

func TestSibByte(t *testing.T) {
	if got := sibByte(0, 4, 5); got != 0x25 {
		t.Errorf("sibByte(0,4,5) = %#x, want 0x25 (no-index, no-base SIB)", got)
	}
	if got := sibByte(3, 0, 4); got != 0xc4 {
		t.Errorf("sibByte(3,0,4) = %#x, want 0xc4", got)
	}
}

func TestScaleBits(t *testing.T) {
	cases := map[int]byte{1: 0, 2: 1, 4: 2, 8: 3, 3: 0}
	for scale, want := range cases {
		if got := scaleBits(scale); got != want {
			t.Errorf("scaleBits(%d) = %d, want %d", scale, got, want)
		}
	}
}

func TestFitsInt8(t *testing.T) {
	if !fitsInt8(127) || !fitsInt8(-128) {
		t.Error("127 and -128 must fit in a signed byte")
	}
	if fitsInt8(128) || fitsInt8(-129) {
		t.Error("128 and -129 must not fit in a signed byte")
	}
}

func TestLittleEndianEncodesLowByteFirst(t *testing.T) {
	got := littleEndian(0x01020304, 4)
	want := []byte{0x04, 0x03, 0x02, 0x01}
	if !bytes.Equal(got, want) {
		t.Errorf("littleEndian(0x01020304,4) = % x, want % x", got, want)
	}
}

func reg64(index int) *Operand {
	return &Operand{Kind: OperandRegister, RegClass: RegQuad, RegIndex: index}
}

// Absolute addressing with neither base nor index forces a SIB byte
// with base field 101 ("no base") and a 4-byte displacement.
func TestEncodeMemoryOperandAbsoluteNoBaseNoIndex(t *testing.T) {
	mem := &Operand{Kind: OperandMemory, Disp: 0x1000}
	modrm, sib, disp, reloc, _, _, _, err := encodeMemoryOperand(mem, 0)
	if err != nil {
		t.Fatalf("encodeMemoryOperand: %v", err)
	}
	if modrm != modrmByte(0, 0, 4) {
		t.Errorf("modrm = %#x, want mod=00 rm=100 (SIB escape)", modrm)
	}
	if sib == nil || *sib != sibByte(0, 4, 5) {
		t.Errorf("sib = %v, want base=101 (no base)", sib)
	}
	if len(disp) != 4 || reloc {
		t.Errorf("disp = % x reloc=%v, want a 4-byte literal displacement", disp, reloc)
	}
}

// RIP-relative addressing always takes mod=00, rm=101, regardless of
// any displacement value, per the x86-64 RIP-relative encoding rule.
func TestEncodeMemoryOperandRIPRelative(t *testing.T) {
	rip := &Operand{Kind: OperandRegister, RegClass: RegRIP}
	mem := &Operand{Kind: OperandMemory, Base: rip, DispSym: &Symbol{Name: "foo"}}
	modrm, sib, disp, reloc, sym, _, pcrel, err := encodeMemoryOperand(mem, 1)
	if err != nil {
		t.Fatalf("encodeMemoryOperand: %v", err)
	}
	if modrm != modrmByte(0, 1, 5) {
		t.Errorf("modrm = %#x, want mod=00 reg=1 rm=101", modrm)
	}
	if sib != nil {
		t.Errorf("RIP-relative form must not use a SIB byte, got %v", *sib)
	}
	if len(disp) != 4 || !reloc || sym == nil || sym.Name != "foo" || !pcrel {
		t.Errorf("disp=% x reloc=%v sym=%v pcrel=%v, want a pc-relative relocation to foo", disp, reloc, sym, pcrel)
	}
}

// %rsp and %r12 as a base register always route through a SIB byte
// even with no index, since rm=100 is the SIB escape.
func TestEncodeMemoryOperandRSPForcesSIB(t *testing.T) {
	rsp := reg64(4)
	mem := &Operand{Kind: OperandMemory, Base: rsp}
	_, sib, _, _, _, _, _, err := encodeMemoryOperand(mem, 0)
	if err != nil {
		t.Fatalf("encodeMemoryOperand: %v", err)
	}
	if sib == nil {
		t.Fatal("(%rsp) must encode through a SIB byte")
	}
	if *sib != sibByte(0, 4, 4) {
		t.Errorf("sib = %#x, want base=100 (rsp) index=100 (none)", *sib)
	}
}

// %rbp or %r13 as a bare base with no displacement must be forced to
// an explicit disp8=0, since mod=00/rm=101 is the RIP-relative escape.
func TestEncodeMemoryOperandRBPForcesDisp8Zero(t *testing.T) {
	rbp := reg64(5)
	mem := &Operand{Kind: OperandMemory, Base: rbp}
	modrm, sib, disp, reloc, _, _, _, err := encodeMemoryOperand(mem, 2)
	if err != nil {
		t.Fatalf("encodeMemoryOperand: %v", err)
	}
	if sib != nil {
		t.Errorf("(%%rbp) alone needs no SIB, got %v", *sib)
	}
	if modrm != modrmByte(1, 2, 5) {
		t.Errorf("modrm = %#x, want mod=01 (disp8) reg=2 rm=101 (rbp)", modrm)
	}
	if len(disp) != 1 || disp[0] != 0 || reloc {
		t.Errorf("disp = % x reloc=%v, want a single 0x00 byte", disp, reloc)
	}
}

// An ordinary register base (not rsp/r12/rbp/r13) with a small
// displacement takes the compact disp8 form without any SIB byte.
func TestEncodeMemoryOperandOrdinaryBaseDisp8(t *testing.T) {
	rax := reg64(0)
	mem := &Operand{Kind: OperandMemory, Base: rax, Disp: 8}
	modrm, sib, disp, _, _, _, _, err := encodeMemoryOperand(mem, 0)
	if err != nil {
		t.Fatalf("encodeMemoryOperand: %v", err)
	}
	if sib != nil {
		t.Errorf("(%%rax) with disp8 needs no SIB, got %v", *sib)
	}
	if modrm != modrmByte(1, 0, 0) {
		t.Errorf("modrm = %#x, want mod=01 rm=000 (rax)", modrm)
	}
	if len(disp) != 1 || disp[0] != 8 {
		t.Errorf("disp = % x, want a single byte 0x08", disp)
	}
}
