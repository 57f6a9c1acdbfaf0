package main

import "testing"

func parseOK(t *testing.T, src string) *Parser {
	t.Helper()
	p := NewParser("test.s", src)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return p
}

func textChunks(t *testing.T, p *Parser) []*Chunk {
	t.Helper()
	text, _ := p.sections.Get(".text")
	cs, ok := p.streams[text]
	if !ok {
		t.Fatalf("no chunk stream recorded for .text")
	}
	return cs.Chunks
}

// "jmp foo" (no "*") must parse as a direct branch target, not a
// memory dereference — the regression this session's fix addresses.
func TestParseDirectJmpIsBranchNotMemory(t *testing.T) {
	p := parseOK(t, "jmp foo\nfoo:\n")
	chunks := textChunks(t, p)
	if len(chunks) == 0 || !chunks[0].IsBranch {
		t.Fatalf("expected the first .text chunk to be a branch, got %+v", chunks)
	}
	if chunks[0].Target == nil || chunks[0].Target.Name != "foo" {
		t.Errorf("branch target = %+v, want symbol foo", chunks[0].Target)
	}
}

// "call foo" must resolve through the direct AddrJ path too, even
// though "call" itself is not a conditional/jmp branch mnemonic.
func TestParseDirectCallTargetIsImmediate(t *testing.T) {
	p := parseOK(t, "call foo\nfoo:\n")
	chunks := textChunks(t, p)
	if len(chunks) == 0 {
		t.Fatalf("expected at least one .text chunk")
	}
	// call is not itself relaxed (no short/long rel8/rel32 choice), so
	// it should come through as a plain code chunk, not IsBranch.
	if chunks[0].IsBranch {
		t.Errorf("call should not be treated as a relaxable branch chunk")
	}
	if len(chunks[0].Primary) == 0 {
		t.Errorf("expected call to encode to a non-empty instruction")
	}
}

// "call *%rax" is a register-indirect call: mod=11 direct register
// addressing, not a memory dereference.
func TestParseIndirectCallThroughRegister(t *testing.T) {
	p := parseOK(t, "call *%rax\n")
	chunks := textChunks(t, p)
	if len(chunks) == 0 {
		t.Fatalf("expected at least one .text chunk")
	}
	// 0xFF /2 indirect call through a bare register is a 2-byte
	// encoding (opcode + modrm, mod=11); a memory-through-address-zero
	// misparse would instead try (and fail) to build a SIB/disp form.
	if len(chunks[0].Primary) != 2 {
		t.Errorf("call *%%rax encoded to % x, want a 2-byte ff /2 direct-register form", chunks[0].Primary)
	}
	if chunks[0].Primary[0] != 0xff {
		t.Errorf("call *%%rax should start with opcode 0xff, got %x", chunks[0].Primary[0])
	}
}

// "call *(%rax)" is a genuine memory dereference through the address
// held in rax, distinct from the register-direct "call *%rax" above.
func TestParseIndirectCallThroughMemory(t *testing.T) {
	p := parseOK(t, "call *(%rax)\n")
	chunks := textChunks(t, p)
	if len(chunks) == 0 {
		t.Fatalf("expected at least one .text chunk")
	}
	if len(chunks[0].Primary) != 2 {
		t.Errorf("call *(%%rax) encoded to % x, want a 2-byte ff /2 [rax] form", chunks[0].Primary)
	}
}

func TestParseLabelDefinitionAttachesToNextChunk(t *testing.T) {
	p := parseOK(t, "start:\n  nop\n")
	sym, ok := p.symtab.Find("start")
	if !ok {
		t.Fatalf("label start was not recorded in the symbol table")
	}
	chunks := textChunks(t, p)
	if len(chunks) == 0 {
		t.Fatalf("expected at least one .text chunk")
	}
	found := false
	for _, s := range chunks[0].labelsHere {
		if s == sym {
			found = true
		}
	}
	if !found {
		t.Errorf("label start should attach to the chunk emitted right after it")
	}
}

func TestParseRedefiningLabelErrors(t *testing.T) {
	p := NewParser("test.s", "foo:\nfoo:\n")
	if err := p.Parse(); err == nil {
		t.Fatal("expected an error redefining the same label twice")
	}
}

// ".string \"abc\"" -> 61 62 63 00 (scenario 7).
func TestParseStringDirectiveNulTerminates(t *testing.T) {
	p := parseOK(t, ".data\n.string \"abc\"\n")
	data, _ := p.sections.Get(".data")
	cs := p.streams[data]
	if len(cs.Chunks) == 0 {
		t.Fatalf("expected a .data chunk for .string")
	}
	want := []byte{0x61, 0x62, 0x63, 0x00}
	got := cs.Chunks[0].Primary
	if len(got) != len(want) {
		t.Fatalf("got % x, want % x", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("byte %d = %x, want %x", i, got[i], want[i])
		}
	}
}

// ".quad -1" -> eight 0xff bytes (scenario 9).
func TestParseQuadNegativeOne(t *testing.T) {
	p := parseOK(t, ".data\n.quad -1\n")
	data, _ := p.sections.Get(".data")
	cs := p.streams[data]
	if len(cs.Chunks) == 0 {
		t.Fatalf("expected a .data chunk for .quad")
	}
	got := cs.Chunks[0].Primary
	if len(got) != 8 {
		t.Fatalf("got %d bytes, want 8", len(got))
	}
	for i, b := range got {
		if b != 0xff {
			t.Errorf("byte %d = %x, want ff", i, b)
		}
	}
}

func TestParseCommCreatesGlobalBssSymbol(t *testing.T) {
	p := parseOK(t, ".comm buf, 64, 16\n")
	sym, ok := p.symtab.Find("buf")
	if !ok {
		t.Fatalf(".comm should create a symbol named buf")
	}
	if sym.Binding != BindGlobal {
		t.Errorf(".comm symbol should be global, got binding %v", sym.Binding)
	}
	if sym.Size != 64 {
		t.Errorf("sym.Size = %d, want 64", sym.Size)
	}
	bss, _ := p.sections.Get(".bss")
	if bss.Align != 16 {
		t.Errorf(".bss alignment = %d, want 16 after a .comm with align 16", bss.Align)
	}
}

func TestParseSetRequiresConstantExpression(t *testing.T) {
	p := NewParser("test.s", ".set two, 1+1\n")
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	sym, _ := p.symtab.Find("two")
	if !sym.Defined || sym.Value != 2 {
		t.Errorf("two = %+v, want a defined constant 2", sym)
	}

	bad := NewParser("test.s", ".set alias, somelabel\n")
	if err := bad.Parse(); err == nil {
		t.Fatal("expected an error: .set's right-hand side must be a constant")
	}
}
