package main

// AliasEntry resolves a user-facing mnemonic spelling to the base key
// under which opcodeTable stores its candidate templates, plus the
// operand size the spelling fixes (0 if the mnemonic carries no size
// suffix and the size must be derived from the operands instead).
//
// Grounded on xyproto/flapc's instruction dispatch in codegen.go, which
// keyed a single map by bare mnemonic; generalized here to fold the
// b/w/l/q AT&T size-suffix family onto one opcodeTable entry apiece,
// since spec.md §4.5 treats "movl" and "mov %eax,..." as deriving the
// same 32-bit row from two different sources.
type AliasEntry struct {
	Base       string
	SizeSuffix uint8 // 0, SizeByte, SizeWord, SizeLong, or SizeQuad
}

var aliasTable = buildAliasTable()

func buildAliasTable() map[string]*AliasEntry {
	t := make(map[string]*AliasEntry, 256)

	plain := func(name string) { t[name] = &AliasEntry{Base: name} }
	sized := func(base string, suffix uint8, name string) { t[name] = &AliasEntry{Base: base, SizeSuffix: suffix} }

	// sizedFamily registers base, base+"b", base+"w", base+"l", base+"q"
	// all pointing at the same opcodeTable key, with the suffixed forms
	// fixing the operand size.
	sizedFamily := func(base string) {
		plain(base)
		sized(base, SizeByte, base+"b")
		sized(base, SizeWord, base+"w")
		sized(base, SizeLong, base+"l")
		sized(base, SizeQuad, base+"q")
	}

	for _, m := range []string{
		"mov", "add", "or", "adc", "sbb", "and", "sub", "xor", "cmp", "test",
		"not", "neg", "mul", "imul", "div", "idiv", "inc", "dec",
		"rol", "ror", "rcl", "rcr", "shl", "sal", "shr", "sar",
		"push", "pop", "lea",
	} {
		sizedFamily(m)
	}

	// literal 1:1 aliases: the opcodeTable key already names the exact
	// user-facing mnemonic, no suffix stripping involved.
	for _, m := range []string{
		"movzbw", "movzbl", "movzbq", "movzwl", "movzwq",
		"movsbw", "movsbl", "movsbq", "movswl", "movswq", "movslq",
		"movabs",
		"cbw", "cwde", "cdqe", "cwd", "cltd", "cqto",
		"ret", "leave", "nop", "syscall", "cpuid",
		"call", "jmp",
		"movss", "movsd", "addss", "addsd", "subss", "subsd",
		"mulss", "mulsd", "divss", "divsd", "ucomiss", "ucomisd",
		"movq", "cvtsi2sd", "cvttsd2si",
		"fld", "fstp", "fldz", "faddp",
	} {
		plain(m)
	}

	for cc := range jccConditions {
		plain("j" + cc)
		plain("set" + cc)
	}

	return t
}
