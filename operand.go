package main

// RegClass is the operand-size/register-file class of a register
// operand, matching spec.md §3's Operand data model.
type RegClass int

const (
	RegByte RegClass = iota
	RegWord
	RegLong
	RegQuad
	RegXMM
	RegST
	RegRIP
)

// Size in bits for the general-purpose register classes; 0 for
// classes (XMM, ST, RIP) the caller must size-check separately.
func (c RegClass) bits() int {
	switch c {
	case RegByte:
		return 8
	case RegWord:
		return 16
	case RegLong:
		return 32
	case RegQuad:
		return 64
	default:
		return 0
	}
}

// regInfo describes one %-prefixed register name.
type regInfo struct {
	Class  RegClass
	Index  int  // 0..15 (0..7 for ST(i))
	Alt8   bool // spl/bpl/sil/dil: low byte of RSP/RBP/RSI/RDI, needs REX to select
}

// registerTable maps every accepted AT&T register name to its class
// and encoding. Grounded in content (not structure — that table was a
// flat map[string]Register for a handful of GPRs) on xyproto/flapc's
// reg.go, extended here to the spec's full {byte,word,long,quad,xmm,
// st,rip} class set and alt-8-bit registers, which reg.go did not
// need for Flap's own code generator.
var registerTable = buildRegisterTable()

func buildRegisterTable() map[string]regInfo {
	t := make(map[string]regInfo, 128)
	quad := []string{"rax", "rcx", "rdx", "rbx", "rsp", "rbp", "rsi", "rdi",
		"r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15"}
	long := []string{"eax", "ecx", "edx", "ebx", "esp", "ebp", "esi", "edi",
		"r8d", "r9d", "r10d", "r11d", "r12d", "r13d", "r14d", "r15d"}
	word := []string{"ax", "cx", "dx", "bx", "sp", "bp", "si", "di",
		"r8w", "r9w", "r10w", "r11w", "r12w", "r13w", "r14w", "r15w"}
	byteLow := []string{"al", "cl", "dl", "bl", "spl", "bpl", "sil", "dil",
		"r8b", "r9b", "r10b", "r11b", "r12b", "r13b", "r14b", "r15b"}
	byteHigh := []string{"ah", "ch", "dh", "bh"} // no REX form; index 4..7 without REX

	for i, name := range quad {
		t[name] = regInfo{Class: RegQuad, Index: i}
	}
	for i, name := range long {
		t[name] = regInfo{Class: RegLong, Index: i}
	}
	for i, name := range word {
		t[name] = regInfo{Class: RegWord, Index: i}
	}
	for i, name := range byteLow {
		alt := i >= 4 && i <= 7 // spl, bpl, sil, dil
		t[name] = regInfo{Class: RegByte, Index: i, Alt8: alt}
	}
	for i, name := range byteHigh {
		t[name] = regInfo{Class: RegByte, Index: i + 4}
	}
	for i := 0; i <= 15; i++ {
		t[xmmName(i)] = regInfo{Class: RegXMM, Index: i}
	}
	for i := 0; i <= 7; i++ {
		t[stName(i)] = regInfo{Class: RegST, Index: i}
	}
	t["rip"] = regInfo{Class: RegRIP, Index: 0}
	return t
}

func xmmName(i int) string {
	return "xmm" + itoa(i)
}

func stName(i int) string {
	if i == 0 {
		return "st"
	}
	return "st(" + itoa(i) + ")"
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := [2]byte{}
	k := 0
	for n > 0 {
		digits[k] = byte('0' + n%10)
		n /= 10
		k++
	}
	out := make([]byte, k)
	for i := 0; i < k; i++ {
		out[i] = digits[k-1-i]
	}
	return string(out)
}

// OperandKind tags which of the three Operand shapes is in use.
type OperandKind int

const (
	OperandRegister OperandKind = iota
	OperandImmediate
	OperandMemory
)

// Operand is a tagged value capturing one assembly-source operand,
// per spec.md §3.
type Operand struct {
	Kind OperandKind

	// OperandRegister
	RegClass RegClass
	RegIndex int
	Alt8     bool

	// OperandImmediate
	ImmValue int64
	ImmWidth int // declared width in bits: 8, 16, 32, or 64
	ImmExpr  *Expr

	// OperandMemory
	Base     *Operand // nil or a register operand (may be RegRIP)
	Index    *Operand // nil or a register operand
	Scale    int       // 1, 2, 4, or 8 (only meaningful if Index != nil)
	Disp     int64
	DispSym  *Symbol // non-nil if the displacement carries a relocation
	DispExpr *Expr   // the parsed displacement expression, if any
	Indirect bool    // always true for OperandMemory; kept for clarity at call sites
}

// regNumber returns the 0..15 register number an encoder needs for
// ModR/M/REX/SIB fields.
func (o *Operand) regNumber() int { return o.RegIndex }

// needsRexForReg reports whether referencing this register operand
// forces a REX prefix: index >= 8, or it is one of the alt-8-bit
// registers spl/bpl/sil/dil. Per spec.md §9's resolved open question,
// REX is forced unconditionally for the alt-8-bit registers.
func (o *Operand) needsRexForReg() bool {
	return o.RegIndex >= 8 || o.Alt8
}
