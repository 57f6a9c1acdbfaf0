package main

// AddrMode is the addressing-mode code from spec.md's opcode template
// data model (E, G, M, I, J, Z, ST, W, V, Acc).
type AddrMode int

const (
	AddrNone AddrMode = iota
	AddrE             // ModR/M r/m: register or memory
	AddrG             // ModR/M reg: register only
	AddrM             // memory only, no register form
	AddrI             // immediate
	AddrJ             // relative branch displacement
	AddrZ             // register number encoded in the opcode's low 3 bits (+rd)
	AddrST            // x87 register stack, ST or ST(i)
	AddrW             // xmm register or memory
	AddrV             // xmm register, reg field only
	AddrAcc           // implicit accumulator (AL/AX/EAX/RAX)
)

// Size-class bits. A template operand's Sizes mask says which
// register classes that operand slot accepts; for AddrE/AddrW it also
// gates which working-size a memory operand is allowed under.
const (
	SizeByte uint8 = 1 << iota
	SizeWord
	SizeLong
	SizeQuad
	SizeXMM
	SizeST
)

// OpSpec constrains one operand slot of an OpcodeTemplate.
type OpSpec struct {
	Mode  AddrMode
	Sizes uint8
}

// OpcodeTemplate is one candidate encoding for a base mnemonic, per
// spec.md §3/§4.5. The catalogue carries one row per concrete
// operand-size class rather than a single runtime-parameterized row,
// so matching is a straightforward per-operand predicate rather than
// a second derived-size indirection.
type OpcodeTemplate struct {
	Mnemonic      string
	MandatoryPrefix byte // 0x66/0xF2/0xF3 SSE mandatory prefix, 0 if none
	Has0F         bool
	Opcode        byte
	HasOpcode2    bool
	Opcode2       byte
	RegExt        int8 // the /digit placed in ModR/M.reg when the row has no G/V/ST register operand (a register operand takes the field instead)
	NeedsModRM    bool
	NOperands     int
	Op1, Op2      OpSpec
	SignExtendImm bool // immediate is sign-extended from ImmBits into the operand width
	ImmBits       uint8 // 0, 8, 16, 32, or 64
	WidthAgnostic bool // no REX.W even when the working size is 64 (push/pop/call/jmp default to 64-bit)
	Branch        bool
	CondCode      byte
	IsCall        bool
	IsJmp         bool

	// Imm3 marks a 3-operand form (the imul $imm,%src,%dst family)
	// where AT&T operand 0 is an immediate not covered by Op1/Op2; in
	// that case Op1 matches ops[1] (the E/rm operand) and Op2 matches
	// ops[2] (the G/reg operand), and the immediate's width/sign-extend
	// policy come from ImmBits/SignExtendImm as usual.
	Imm3 bool

	// ForceRexW marks a zero-operand form whose 64-bit meaning cannot
	// be derived from any operand (cdqe, cqto): REX.W is always set
	// regardless of the alias's derived operation size.
	ForceRexW bool
}

func t(m OpcodeTemplate) OpcodeTemplate { return m }

// opcodeTable maps a base mnemonic (post-alias resolution) to its
// candidate templates, ordered so that table order is a meaningful
// tie-break (shorter/more specific forms listed first where encoded
// length ties are otherwise possible).
var opcodeTable = buildOpcodeTable()

func buildOpcodeTable() map[string][]OpcodeTemplate {
	tbl := make(map[string][]OpcodeTemplate)
	add := func(mnemonic string, templates ...OpcodeTemplate) {
		tbl[mnemonic] = append(tbl[mnemonic], templates...)
	}

	// --- mov ---------------------------------------------------------
	for _, sz := range []struct {
		bits   uint8
		opMR   byte
		opRM   byte
		opImmZ byte // B0/B8 +rd imm form
		opImmE byte // C6/C7 /0 imm form
		immBits uint8
	}{
		{SizeByte, 0x88, 0x8a, 0xb0, 0xc6, 8},
		{SizeWord, 0x89, 0x8b, 0xb8, 0xc7, 16},
		{SizeLong, 0x89, 0x8b, 0xb8, 0xc7, 32},
		{SizeQuad, 0x89, 0x8b, 0xb8, 0xc7, 32}, // C7 /0 imm32 sign-extended into the 64-bit dest; movabs covers the rest
	} {
		add("mov",
			t(OpcodeTemplate{Mnemonic: "mov", Opcode: sz.opMR, NeedsModRM: true, NOperands: 2,
				Op1: OpSpec{AddrG, sz.bits}, Op2: OpSpec{AddrE, sz.bits}}),
			t(OpcodeTemplate{Mnemonic: "mov", Opcode: sz.opRM, NeedsModRM: true, NOperands: 2,
				Op1: OpSpec{AddrE, sz.bits}, Op2: OpSpec{AddrG, sz.bits}}),
		)
		if sz.bits != SizeQuad {
			// B8+rd with REX.W takes a full imm64, so the 64-bit
			// register-in-opcode form is only the movabs row below.
			add("mov", t(OpcodeTemplate{Mnemonic: "mov", Opcode: sz.opImmZ, NOperands: 2, ImmBits: sz.immBits,
				Op1: OpSpec{AddrI, sz.bits}, Op2: OpSpec{AddrZ, sz.bits}}))
			add("mov", t(OpcodeTemplate{Mnemonic: "mov", Opcode: sz.opImmE, RegExt: 0, NeedsModRM: true, NOperands: 2,
				ImmBits: sz.immBits, Op1: OpSpec{AddrI, sz.bits}, Op2: OpSpec{AddrE, sz.bits}}))
		} else {
			// mov r/m64, imm32 (sign-extended) -- rejected by the matcher
			// whenever the immediate does not fit signed 32-bit.
			add("mov", t(OpcodeTemplate{Mnemonic: "mov", Opcode: 0xc7, RegExt: 0, NeedsModRM: true, NOperands: 2,
				SignExtendImm: true, ImmBits: 32, Op1: OpSpec{AddrI, SizeQuad}, Op2: OpSpec{AddrE, SizeQuad}}))
		}
	}
	// movabs: r64, imm64 -- always matches, so a 0x80000000-style
	// constant that fails the sign-extended 32-bit form above falls
	// through to this one. NeedsModRM=false, register in opcode byte.
	add("movabs", t(OpcodeTemplate{Mnemonic: "movabs", Opcode: 0xb8, NOperands: 2, ImmBits: 64,
		Op1: OpSpec{AddrI, SizeQuad}, Op2: OpSpec{AddrZ, SizeQuad}}))
	// mov also accepts a 64-bit immediate directly (spec scenario 3:
	// "mov $0x80000000, %rax" must select movabs); since "mov" and
	// "movabs" share operand shape, register the movabs form under
	// "mov" too so plain "mov $imm64, %reg" still resolves without
	// requiring the user to spell "movabs".
	add("mov", t(OpcodeTemplate{Mnemonic: "mov", Opcode: 0xb8, NOperands: 2, ImmBits: 64,
		Op1: OpSpec{AddrI, SizeQuad}, Op2: OpSpec{AddrZ, SizeQuad}}))

	// --- lea -----------------------------------------------------------
	for _, sz := range []uint8{SizeWord, SizeLong, SizeQuad} {
		add("lea", t(OpcodeTemplate{Mnemonic: "lea", Opcode: 0x8d, NeedsModRM: true, NOperands: 2,
			Op1: OpSpec{AddrM, sz}, Op2: OpSpec{AddrG, sz}}))
	}

	// --- arithmetic group (add, or, adc, sbb, and, sub, xor, cmp) ------
	arithGroup := []struct {
		name   string
		regExt int8
		accOp  byte // accumulator opcode base (04/05)
	}{
		{"add", 0, 0x04}, {"or", 1, 0x0c}, {"adc", 2, 0x14}, {"sbb", 3, 0x1c},
		{"and", 4, 0x24}, {"sub", 5, 0x2c}, {"xor", 6, 0x34}, {"cmp", 7, 0x3c},
	}
	for _, g := range arithGroup {
		mrBase := byte(g.regExt) << 3
		for _, sz := range []struct {
			bits    uint8
			immBits uint8
		}{{SizeByte, 8}, {SizeWord, 16}, {SizeLong, 32}, {SizeQuad, 32}} {
			var opMR, opRM byte
			if sz.bits == SizeByte {
				opMR, opRM = mrBase, mrBase+2
			} else {
				opMR, opRM = mrBase+1, mrBase+3
			}
			add(g.name,
				t(OpcodeTemplate{Mnemonic: g.name, Opcode: opMR, NeedsModRM: true, NOperands: 2,
					Op1: OpSpec{AddrG, sz.bits}, Op2: OpSpec{AddrE, sz.bits}}),
				t(OpcodeTemplate{Mnemonic: g.name, Opcode: opRM, NeedsModRM: true, NOperands: 2,
					Op1: OpSpec{AddrE, sz.bits}, Op2: OpSpec{AddrG, sz.bits}}),
			)
			// accumulator short form: op $imm, %al/%ax/%eax/%rax
			accImmBits := sz.immBits
			accOpcode := g.accOp
			if sz.bits == SizeByte {
				accImmBits = 8
			} else {
				accOpcode++
			}
			add(g.name, t(OpcodeTemplate{Mnemonic: g.name, Opcode: accOpcode, NOperands: 2, ImmBits: accImmBits,
				Op1: OpSpec{AddrI, sz.bits}, Op2: OpSpec{AddrAcc, sz.bits}}))
			// general immediate form: 80/81 /regExt
			if sz.bits == SizeByte {
				add(g.name, t(OpcodeTemplate{Mnemonic: g.name, Opcode: 0x80, RegExt: g.regExt, NeedsModRM: true,
					NOperands: 2, ImmBits: 8, Op1: OpSpec{AddrI, sz.bits}, Op2: OpSpec{AddrE, sz.bits}}))
			} else {
				add(g.name, t(OpcodeTemplate{Mnemonic: g.name, Opcode: 0x81, RegExt: g.regExt, NeedsModRM: true,
					NOperands: 2, ImmBits: sz.immBits, Op1: OpSpec{AddrI, sz.bits}, Op2: OpSpec{AddrE, sz.bits}}))
				// sign-extended imm8 form (0x83 /regExt): shorter,
				// selected automatically by shortest-match whenever
				// the immediate fits in signed 8 bits.
				add(g.name, t(OpcodeTemplate{Mnemonic: g.name, Opcode: 0x83, RegExt: g.regExt, NeedsModRM: true,
					NOperands: 2, ImmBits: 8, SignExtendImm: true, Op1: OpSpec{AddrI, sz.bits}, Op2: OpSpec{AddrE, sz.bits}}))
			}
		}
	}

	// --- test -----------------------------------------------------------
	for _, sz := range []struct {
		bits    uint8
		op      byte
		immBits uint8
		accOp   byte
	}{{SizeByte, 0x84, 8, 0xa8}, {SizeWord, 0x85, 16, 0xa9}, {SizeLong, 0x85, 32, 0xa9}, {SizeQuad, 0x85, 32, 0xa9}} {
		add("test",
			t(OpcodeTemplate{Mnemonic: "test", Opcode: sz.op, NeedsModRM: true, NOperands: 2,
				Op1: OpSpec{AddrG, sz.bits}, Op2: OpSpec{AddrE, sz.bits}}),
			t(OpcodeTemplate{Mnemonic: "test", Opcode: sz.accOp, NOperands: 2, ImmBits: sz.immBits,
				Op1: OpSpec{AddrI, sz.bits}, Op2: OpSpec{AddrAcc, sz.bits}}),
		)
		testImmOp := byte(0xf6)
		if sz.bits != SizeByte {
			testImmOp = 0xf7
		}
		add("test", t(OpcodeTemplate{Mnemonic: "test", Opcode: testImmOp, RegExt: 0, NeedsModRM: true, NOperands: 2,
			ImmBits: sz.immBits, Op1: OpSpec{AddrI, sz.bits}, Op2: OpSpec{AddrE, sz.bits}}))
	}

	// --- unary group 3/5 (not, neg, mul, imul, div, idiv; inc, dec) -----
	unary := []struct {
		name string
		ext  int8
	}{{"not", 2}, {"neg", 3}, {"mul", 4}, {"imul", 5}, {"div", 6}, {"idiv", 7}}
	for _, u := range unary {
		for _, sz := range []uint8{SizeByte, SizeWord, SizeLong, SizeQuad} {
			op := byte(0xf7)
			if sz == SizeByte {
				op = 0xf6
			}
			add(u.name, t(OpcodeTemplate{Mnemonic: u.name, Opcode: op, RegExt: u.ext, NeedsModRM: true, NOperands: 1,
				Op1: OpSpec{AddrE, sz}}))
		}
	}
	for _, sz := range []uint8{SizeWord, SizeLong, SizeQuad} {
		add("inc", t(OpcodeTemplate{Mnemonic: "inc", Opcode: 0xff, RegExt: 0, NeedsModRM: true, NOperands: 1, Op1: OpSpec{AddrE, sz}}))
		add("dec", t(OpcodeTemplate{Mnemonic: "dec", Opcode: 0xff, RegExt: 1, NeedsModRM: true, NOperands: 1, Op1: OpSpec{AddrE, sz}}))
	}
	add("inc", t(OpcodeTemplate{Mnemonic: "inc", Opcode: 0xfe, RegExt: 0, NeedsModRM: true, NOperands: 1, Op1: OpSpec{AddrE, SizeByte}}))
	add("dec", t(OpcodeTemplate{Mnemonic: "dec", Opcode: 0xfe, RegExt: 1, NeedsModRM: true, NOperands: 1, Op1: OpSpec{AddrE, SizeByte}}))

	// two-operand imul: imul r, r/m  (0F AF) and imul r, r/m, imm (69/6B)
	for _, sz := range []uint8{SizeWord, SizeLong, SizeQuad} {
		add("imul", t(OpcodeTemplate{Mnemonic: "imul", Has0F: true, Opcode: 0xaf, NeedsModRM: true, NOperands: 2,
			Op1: OpSpec{AddrE, sz}, Op2: OpSpec{AddrG, sz}}))
		add("imul", t(OpcodeTemplate{Mnemonic: "imul", Opcode: 0x69, NeedsModRM: true, NOperands: 3, ImmBits: szImmBits(sz),
			Op1: OpSpec{AddrE, sz}, Op2: OpSpec{AddrG, sz}, Imm3: true}))
		add("imul", t(OpcodeTemplate{Mnemonic: "imul", Opcode: 0x6b, NeedsModRM: true, NOperands: 3, ImmBits: 8, SignExtendImm: true,
			Op1: OpSpec{AddrE, sz}, Op2: OpSpec{AddrG, sz}, Imm3: true}))
	}

	// --- push/pop --------------------------------------------------------
	add("push",
		t(OpcodeTemplate{Mnemonic: "push", Opcode: 0x50, NOperands: 1, WidthAgnostic: true, Op1: OpSpec{AddrZ, SizeQuad}}),
		t(OpcodeTemplate{Mnemonic: "push", Opcode: 0xff, RegExt: 6, NeedsModRM: true, NOperands: 1, WidthAgnostic: true, Op1: OpSpec{AddrE, SizeQuad}}),
		t(OpcodeTemplate{Mnemonic: "push", Opcode: 0x6a, NOperands: 1, ImmBits: 8, SignExtendImm: true, Op1: OpSpec{AddrI, SizeQuad}}),
		t(OpcodeTemplate{Mnemonic: "push", Opcode: 0x68, NOperands: 1, ImmBits: 32, Op1: OpSpec{AddrI, SizeQuad}}),
	)
	add("pop",
		t(OpcodeTemplate{Mnemonic: "pop", Opcode: 0x58, NOperands: 1, WidthAgnostic: true, Op1: OpSpec{AddrZ, SizeQuad}}),
		t(OpcodeTemplate{Mnemonic: "pop", Opcode: 0x8f, RegExt: 0, NeedsModRM: true, NOperands: 1, WidthAgnostic: true, Op1: OpSpec{AddrE, SizeQuad}}),
	)

	// --- shift/rotate group 2 (rol, ror, rcl, rcr, shl/sal, shr, sar) ----
	shiftGroup := []struct {
		name string
		ext  int8
	}{{"rol", 0}, {"ror", 1}, {"rcl", 2}, {"rcr", 3}, {"shl", 4}, {"sal", 4}, {"shr", 5}, {"sar", 7}}
	for _, g := range shiftGroup {
		for _, sz := range []uint8{SizeByte, SizeWord, SizeLong, SizeQuad} {
			op1 := byte(0xd0)
			opCl := byte(0xd2)
			opImm := byte(0xc0)
			if sz != SizeByte {
				op1, opCl, opImm = 0xd1, 0xd3, 0xc1
			}
			add(g.name,
				// shift by 1 (no explicit count operand in our model: by-1
				// form is selected when the immediate operand folds to 1)
				t(OpcodeTemplate{Mnemonic: g.name, Opcode: op1, RegExt: g.ext, NeedsModRM: true, NOperands: 2,
					ImmBits: 1, Op1: OpSpec{AddrI, sz}, Op2: OpSpec{AddrE, sz}}),
				t(OpcodeTemplate{Mnemonic: g.name, Opcode: opImm, RegExt: g.ext, NeedsModRM: true, NOperands: 2,
					ImmBits: 8, Op1: OpSpec{AddrI, sz}, Op2: OpSpec{AddrE, sz}}),
			)
			add(g.name, t(OpcodeTemplate{Mnemonic: g.name, Opcode: opCl, RegExt: g.ext, NeedsModRM: true,
				NOperands: 2, Op1: OpSpec{AddrE, SizeByte}, Op2: OpSpec{AddrE, sz}}))
		}
	}

	// --- movzx / movsx ---------------------------------------------------
	movConv := []struct {
		name     string
		op2      byte
		srcSize  uint8
		dstSizes []uint8
	}{
		{"movzbw", 0xb6, SizeByte, []uint8{SizeWord}},
		{"movzbl", 0xb6, SizeByte, []uint8{SizeLong}},
		{"movzbq", 0xb6, SizeByte, []uint8{SizeQuad}},
		{"movzwl", 0xb7, SizeWord, []uint8{SizeLong}},
		{"movzwq", 0xb7, SizeWord, []uint8{SizeQuad}},
		{"movsbw", 0xbe, SizeByte, []uint8{SizeWord}},
		{"movsbl", 0xbe, SizeByte, []uint8{SizeLong}},
		{"movsbq", 0xbe, SizeByte, []uint8{SizeQuad}},
		{"movswl", 0xbf, SizeWord, []uint8{SizeLong}},
		{"movswq", 0xbf, SizeWord, []uint8{SizeQuad}},
	}
	for _, c := range movConv {
		add(c.name, t(OpcodeTemplate{Mnemonic: c.name, Has0F: true, Opcode: c.op2, NeedsModRM: true, NOperands: 2,
			Op1: OpSpec{AddrE, c.srcSize}, Op2: OpSpec{AddrG, c.dstSizes[0]}}))
	}
	add("movslq", t(OpcodeTemplate{Mnemonic: "movslq", Opcode: 0x63, NeedsModRM: true, NOperands: 2,
		Op1: OpSpec{AddrE, SizeLong}, Op2: OpSpec{AddrG, SizeQuad}}))

	// --- sign/zero extension of the accumulator --------------------------
	add("cbw", t(OpcodeTemplate{Mnemonic: "cbw", MandatoryPrefix: 0x66, Opcode: 0x98, NOperands: 0}))
	add("cwde", t(OpcodeTemplate{Mnemonic: "cwde", Opcode: 0x98, NOperands: 0}))
	add("cdqe", t(OpcodeTemplate{Mnemonic: "cdqe", Opcode: 0x98, NOperands: 0, ForceRexW: true}))
	add("cwd", t(OpcodeTemplate{Mnemonic: "cwd", MandatoryPrefix: 0x66, Opcode: 0x99, NOperands: 0}))
	add("cltd", t(OpcodeTemplate{Mnemonic: "cltd", Opcode: 0x99, NOperands: 0}))
	add("cqto", t(OpcodeTemplate{Mnemonic: "cqto", Opcode: 0x99, NOperands: 0, ForceRexW: true}))

	// --- control flow: ret, leave, nop, syscall --------------------------
	add("ret", t(OpcodeTemplate{Mnemonic: "ret", Opcode: 0xc3, NOperands: 0}))
	add("leave", t(OpcodeTemplate{Mnemonic: "leave", Opcode: 0xc9, NOperands: 0}))
	add("nop", t(OpcodeTemplate{Mnemonic: "nop", Opcode: 0x90, NOperands: 0}))
	add("syscall", t(OpcodeTemplate{Mnemonic: "syscall", Has0F: true, Opcode: 0x05, NOperands: 0}))
	add("cpuid", t(OpcodeTemplate{Mnemonic: "cpuid", Has0F: true, Opcode: 0xa2, NOperands: 0}))

	// --- call / jmp (unconditional, non-branch-relaxed forms) -----------
	add("call",
		t(OpcodeTemplate{Mnemonic: "call", Opcode: 0xe8, NOperands: 1, ImmBits: 32, IsCall: true, Op1: OpSpec{AddrJ, 0}}),
		t(OpcodeTemplate{Mnemonic: "call", Opcode: 0xff, RegExt: 2, NeedsModRM: true, NOperands: 1, WidthAgnostic: true, Op1: OpSpec{AddrE, SizeQuad}}),
	)

	// jmp and jcc are handled by the branch relaxer (chunk.go/relax.go)
	// as paired short/long templates; see buildBranchTemplates.
	buildBranchTemplates(add)

	// --- setcc -------------------------------------------------------------
	buildSetccTemplates(add)

	// --- basic SSE scalar float ops --------------------------------------
	buildSSETemplates(add)

	// --- x87 basics --------------------------------------------------------
	buildX87Templates(add)

	return tbl
}

func szImmBits(sz uint8) uint8 {
	switch sz {
	case SizeByte:
		return 8
	case SizeWord:
		return 16
	default:
		return 32
	}
}

// jccConditions maps the AT&T jcc/setcc condition suffix to its
// condition-code nibble (the low nibble of 0x70+cc / 0x0F80+cc /
// 0x0F90+cc). GAS accepts several synonyms per condition.
var jccConditions = map[string]byte{
	"o": 0x0, "no": 0x1,
	"b": 0x2, "c": 0x2, "nae": 0x2,
	"nb": 0x3, "nc": 0x3, "ae": 0x3,
	"e": 0x4, "z": 0x4,
	"ne": 0x5, "nz": 0x5,
	"be": 0x6, "na": 0x6,
	"nbe": 0x7, "a": 0x7,
	"s": 0x8, "ns": 0x9,
	"p": 0xa, "pe": 0xa,
	"np": 0xb, "po": 0xb,
	"l": 0xc, "nge": 0xc,
	"nl": 0xd, "ge": 0xd,
	"le": 0xe, "ng": 0xe,
	"nle": 0xf, "g": 0xf,
}

func buildBranchTemplates(add func(string, ...OpcodeTemplate)) {
	add("jmp",
		t(OpcodeTemplate{Mnemonic: "jmp", Opcode: 0xeb, NOperands: 1, ImmBits: 8, Branch: true, IsJmp: true, Op1: OpSpec{AddrJ, 0}}),
		t(OpcodeTemplate{Mnemonic: "jmp", Opcode: 0xe9, NOperands: 1, ImmBits: 32, Branch: true, IsJmp: true, Op1: OpSpec{AddrJ, 0}}),
		// jmp *%reg / jmp *mem: FF /4, never relaxed
		t(OpcodeTemplate{Mnemonic: "jmp", Opcode: 0xff, RegExt: 4, NeedsModRM: true, NOperands: 1, WidthAgnostic: true, IsJmp: true, Op1: OpSpec{AddrE, SizeQuad}}),
	)
	for suffix, cc := range jccConditions {
		name := "j" + suffix
		add(name,
			t(OpcodeTemplate{Mnemonic: name, Opcode: 0x70 + cc, NOperands: 1, ImmBits: 8, Branch: true, CondCode: cc, Op1: OpSpec{AddrJ, 0}}),
			t(OpcodeTemplate{Mnemonic: name, Has0F: true, Opcode: 0x80 + cc, NOperands: 1, ImmBits: 32, Branch: true, CondCode: cc, Op1: OpSpec{AddrJ, 0}}),
		)
	}
}

func buildSetccTemplates(add func(string, ...OpcodeTemplate)) {
	for suffix, cc := range jccConditions {
		name := "set" + suffix
		add(name, t(OpcodeTemplate{Mnemonic: name, Has0F: true, Opcode: 0x90 + cc, RegExt: 0, NeedsModRM: true,
			NOperands: 1, Op1: OpSpec{AddrE, SizeByte}}))
	}
}

func buildSSETemplates(add func(string, ...OpcodeTemplate)) {
	type sseOp struct {
		name   string
		prefix byte
		op     byte
	}
	ops := []sseOp{
		{"movss", 0xf3, 0x10}, {"movsd", 0xf2, 0x10},
		{"addss", 0xf3, 0x58}, {"addsd", 0xf2, 0x58},
		{"subss", 0xf3, 0x5c}, {"subsd", 0xf2, 0x5c},
		{"mulss", 0xf3, 0x59}, {"mulsd", 0xf2, 0x59},
		{"divss", 0xf3, 0x5e}, {"divsd", 0xf2, 0x5e},
		{"ucomiss", 0x00, 0x2e}, {"ucomisd", 0x66, 0x2e},
	}
	for _, o := range ops {
		add(o.name, t(OpcodeTemplate{Mnemonic: o.name, MandatoryPrefix: o.prefix, Has0F: true, Opcode: o.op,
			NeedsModRM: true, NOperands: 2, Op1: OpSpec{AddrW, SizeXMM}, Op2: OpSpec{AddrV, SizeXMM}}))
	}
	add("movq", t(OpcodeTemplate{Mnemonic: "movq", MandatoryPrefix: 0xf3, Has0F: true, Opcode: 0x7e,
		NeedsModRM: true, NOperands: 2, Op1: OpSpec{AddrW, SizeXMM}, Op2: OpSpec{AddrV, SizeXMM}}))
	add("cvtsi2sd", t(OpcodeTemplate{Mnemonic: "cvtsi2sd", MandatoryPrefix: 0xf2, Has0F: true, Opcode: 0x2a,
		NeedsModRM: true, NOperands: 2, Op1: OpSpec{AddrE, SizeQuad}, Op2: OpSpec{AddrV, SizeXMM}}))
	add("cvttsd2si", t(OpcodeTemplate{Mnemonic: "cvttsd2si", MandatoryPrefix: 0xf2, Has0F: true, Opcode: 0x2c,
		NeedsModRM: true, NOperands: 2, Op1: OpSpec{AddrW, SizeXMM}, Op2: OpSpec{AddrG, SizeQuad}}))
}

func buildX87Templates(add func(string, ...OpcodeTemplate)) {
	add("fld",
		t(OpcodeTemplate{Mnemonic: "fld", Opcode: 0xd9, RegExt: 0, NeedsModRM: true, NOperands: 1, Op1: OpSpec{AddrM, SizeST}}),
		t(OpcodeTemplate{Mnemonic: "fld", Opcode: 0xdd, RegExt: 0, NeedsModRM: true, NOperands: 1, Op1: OpSpec{AddrM, SizeQuad}}),
	)
	add("fstp",
		t(OpcodeTemplate{Mnemonic: "fstp", Opcode: 0xd9, RegExt: 3, NeedsModRM: true, NOperands: 1, Op1: OpSpec{AddrM, SizeST}}),
		t(OpcodeTemplate{Mnemonic: "fstp", Opcode: 0xdd, RegExt: 3, NeedsModRM: true, NOperands: 1, Op1: OpSpec{AddrM, SizeQuad}}),
	)
	add("fldz", t(OpcodeTemplate{Mnemonic: "fldz", Opcode: 0xd9, HasOpcode2: true, Opcode2: 0xe8, NOperands: 0}))
	add("faddp", t(OpcodeTemplate{Mnemonic: "faddp", Opcode: 0xde, HasOpcode2: true, Opcode2: 0xc1, NOperands: 0}))
}
