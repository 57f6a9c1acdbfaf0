package main

import (
	"fmt"
	"strconv"
)

// Parser drives the lexer and builds up every section's chunk stream,
// the symbol table, and the DWARF line-number program in one forward
// pass, exactly as GAS-style assemblers operate: one line's worth of
// lookahead, no backtracking.
type Parser struct {
	lex     *Lexer
	tok     Token
	file    string

	sections *SectionSet
	symtab   *SymbolTable
	streams  map[*Section]*ChunkStream
	curSec   *Section

	debug    *DebugLineBuilder
	dotCount int
}

func NewParser(file, src string) *Parser {
	p := &Parser{
		lex:      NewLexer(file, src),
		file:     file,
		sections: NewSectionSet(),
		streams:  make(map[*Section]*ChunkStream),
		debug:    NewDebugLineBuilder(),
	}
	p.symtab = NewSymbolTable(&p.curSec)
	text, _ := p.sections.Get(".text")
	p.curSec = text
	p.next()
	return p
}

func (p *Parser) next() {
	tok, err := p.lex.Next()
	if err != nil {
		panic(err) // lexical errors are *AsmError; Parse's deferred recover returns them (the first token, read by NewParser, reaches run's handler instead)
	}
	p.tok = tok
}

func (p *Parser) errorf(format string, args ...interface{}) *AsmError {
	return &AsmError{File: p.file, Line: p.tok.Line, Msg: fmt.Sprintf(format, args...)}
}

// stream returns (creating on demand) the chunk stream for the current
// section.
func (p *Parser) stream() *ChunkStream {
	cs, ok := p.streams[p.curSec]
	if !ok {
		cs = NewChunkStream(p.curSec)
		p.streams[p.curSec] = cs
	}
	return cs
}

// Parse runs the full statement loop until EOF, returning the first
// error encountered (assembly stops at the first error, per spec.md
// §7's no-batching policy).
func (p *Parser) Parse() (err *AsmError) {
	defer func() {
		if r := recover(); r != nil {
			if ae, ok := r.(*AsmError); ok {
				err = ae
				return
			}
			panic(r) // genuine internal errors propagate to main's recover
		}
	}()
	for p.tok.Type != TOKEN_EOF {
		p.parseStatement()
	}
	return nil
}

func (p *Parser) parseStatement() {
	switch p.tok.Type {
	case TOKEN_NEWLINE, TOKEN_SEMI:
		p.next()
	case TOKEN_DIRECTIVE:
		p.parseDirective()
		p.endOfStatement()
	case TOKEN_IDENT:
		name := p.tok.Value
		p.next()
		if p.tok.Type == TOKEN_COLON {
			p.next()
			p.defineLabel(name)
			return
		}
		p.parseInstruction(name)
		p.endOfStatement()
	default:
		panic(p.errorf("unexpected token %q", p.tok.Value))
	}
}

func (p *Parser) endOfStatement() {
	if p.tok.Type != TOKEN_NEWLINE && p.tok.Type != TOKEN_SEMI && p.tok.Type != TOKEN_EOF {
		panic(p.errorf("unexpected trailing token %q", p.tok.Value))
	}
	for p.tok.Type == TOKEN_NEWLINE || p.tok.Type == TOKEN_SEMI {
		p.next()
	}
}

func (p *Parser) defineLabel(name string) {
	sym := p.symtab.Lookup(name)
	if sym.Defined || sym.Section != nil {
		panic(p.errorf("symbol %q already defined", name))
	}
	p.stream().AttachLabel(sym)
	// Defined/Value are filled in by relax.go's assignOffsets once this
	// section's layout is known; setting Section now marks the label
	// pending, so a second definition is caught while Defined stays
	// false until layout.
	sym.Section = p.curSec
}

// anonymousDotSymbol materializes "." as a fresh compiler-private local
// symbol bound at the current chunk position, so Expr never needs an
// explicit "current offset" parameter (see expr.go's doc comment).
func (p *Parser) anonymousDotSymbol() *Symbol {
	p.dotCount++
	name := ".Ldot" + itoa(p.dotCount)
	sym := &Symbol{Name: name, Binding: BindLocal, Type: TypeNotype}
	p.stream().AttachLabel(sym)
	return sym
}

// --- expressions -----------------------------------------------------

func (p *Parser) parseExpr() *Expr {
	return p.parseAddSub()
}

func (p *Parser) parseAddSub() *Expr {
	left := p.parseMulDiv()
	for p.tok.Type == TOKEN_PLUS || p.tok.Type == TOKEN_MINUS {
		op := p.tok.Type
		p.next()
		right := p.parseMulDiv()
		var e *Expr
		var err error
		if op == TOKEN_PLUS {
			e, err = foldAdd(left, right)
		} else {
			e, err = foldSub(left, right)
		}
		if err != nil {
			panic(p.errorf("%s", err.Error()))
		}
		left = e
	}
	return left
}

func (p *Parser) parseMulDiv() *Expr {
	left := p.parseUnary()
	for p.tok.Type == TOKEN_STAR || p.tok.Type == TOKEN_SLASH {
		op := p.tok.Type
		p.next()
		right := p.parseUnary()
		var e *Expr
		var err error
		if op == TOKEN_STAR {
			e, err = foldMul(left, right)
		} else {
			e, err = foldDiv(left, right)
		}
		if err != nil {
			panic(p.errorf("%s", err.Error()))
		}
		left = e
	}
	return left
}

func (p *Parser) parseUnary() *Expr {
	if p.tok.Type == TOKEN_MINUS {
		p.next()
		e := p.parseUnary()
		folded, err := foldNeg(e)
		if err != nil {
			panic(p.errorf("%s", err.Error()))
		}
		return folded
	}
	if p.tok.Type == TOKEN_PLUS {
		p.next()
		return p.parseUnary()
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() *Expr {
	switch p.tok.Type {
	case TOKEN_NUMBER:
		v := parseNumberLiteral(p.tok.Value)
		p.next()
		return exprNumber(v)
	case TOKEN_DOT:
		p.next()
		sym := p.anonymousDotSymbol()
		return exprSymbol(sym, 0)
	case TOKEN_IDENT:
		name := p.tok.Value
		p.next()
		sym := p.symtab.Lookup(name)
		return exprSymbol(sym, 0)
	case TOKEN_LPAREN:
		p.next()
		e := p.parseExpr()
		p.expect(TOKEN_RPAREN)
		return e
	default:
		panic(p.errorf("expected an expression, found %q", p.tok.Value))
	}
}

func parseNumberLiteral(s string) int64 {
	if len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		v, _ := strconv.ParseUint(s[2:], 16, 64)
		return int64(v)
	}
	if len(s) > 1 && s[0] == '0' {
		v, _ := strconv.ParseUint(s, 8, 64)
		return int64(v)
	}
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}

func (p *Parser) expect(t TokenType) {
	if p.tok.Type != t {
		panic(p.errorf("unexpected token %q", p.tok.Value))
	}
	p.next()
}

// --- operands ----------------------------------------------------------

func (p *Parser) parseOperandList() []*Operand {
	var ops []*Operand
	if p.atStatementEnd() {
		return ops
	}
	ops = append(ops, p.parseOperand())
	for p.tok.Type == TOKEN_COMMA {
		p.next()
		ops = append(ops, p.parseOperand())
	}
	return ops
}

func (p *Parser) atStatementEnd() bool {
	return p.tok.Type == TOKEN_NEWLINE || p.tok.Type == TOKEN_SEMI || p.tok.Type == TOKEN_EOF
}

func (p *Parser) parseOperand() *Operand {
	switch p.tok.Type {
	case TOKEN_IMMEDIATE:
		p.next()
		e := p.parseExpr()
		if e.Kind == ExprNumber {
			return &Operand{Kind: OperandImmediate, ImmValue: e.Num}
		}
		return &Operand{Kind: OperandImmediate, ImmExpr: e}
	case TOKEN_REGISTER:
		reg := p.parseRegister()
		return reg
	case TOKEN_STAR:
		// indirect call/jmp target: "*%rax" (register-direct, same
		// Operand shape as any other register operand) or "*disp(%reg)"
		// (a genuine memory dereference).
		p.next()
		if p.tok.Type == TOKEN_REGISTER {
			return p.parseRegister()
		}
		return p.parseMemoryOrRegister()
	default:
		return p.parseMemoryOrRegister()
	}
}

func (p *Parser) parseRegister() *Operand {
	name := stripPercent(p.tok.Value)
	info, ok := registerTable[name]
	if !ok {
		panic(p.errorf("unknown register %%%s", name))
	}
	p.next()
	return &Operand{Kind: OperandRegister, RegClass: info.Class, RegIndex: info.Index, Alt8: info.Alt8}
}

func stripPercent(s string) string {
	if len(s) > 0 && s[0] == '%' {
		return s[1:]
	}
	return s
}

// parseMemoryOrRegister parses "disp(base,index,scale)" in any of its
// GAS-permitted partial forms, or a bare displacement expression with
// no parens (absolute address / relocatable symbol).
func (p *Parser) parseMemoryOrRegister() *Operand {
	mem := &Operand{Kind: OperandMemory, Indirect: true}

	if p.tok.Type != TOKEN_LPAREN {
		e := p.parseExpr()
		if sym, addend, ok := e.AsSymbolRef(); ok {
			mem.DispSym = sym
			mem.DispExpr = e
			mem.Disp = addend
		} else if e.Kind == ExprNumber {
			mem.Disp = e.Num
		} else {
			mem.DispExpr = e
		}
	}

	if p.tok.Type == TOKEN_LPAREN {
		p.next()
		if p.tok.Type == TOKEN_REGISTER {
			base := p.parseRegister()
			mem.Base = base
		}
		if p.tok.Type == TOKEN_COMMA {
			p.next()
			if p.tok.Type == TOKEN_REGISTER {
				idx := p.parseRegister()
				mem.Index = idx
			}
			if p.tok.Type == TOKEN_COMMA {
				p.next()
				scaleTok := p.tok
				p.expect(TOKEN_NUMBER)
				mem.Scale = int(parseNumberLiteral(scaleTok.Value))
			} else if mem.Index != nil {
				mem.Scale = 1
			}
		}
		p.expect(TOKEN_RPAREN)
	}

	return mem
}

// --- instructions --------------------------------------------------------

func (p *Parser) parseInstruction(mnemonic string) {
	var ops []*Operand
	if isDirectTargetMnemonic(mnemonic) && p.tok.Type != TOKEN_STAR {
		// "jmp label" / "call label" / "je label": a bare target with no
		// "*" is a direct rel8/rel32 displacement, not a memory
		// dereference, even though it reads as a plain identifier.
		// "jmp *...", "call *..." fall through to the general operand
		// parser instead, matching the E-form (register/memory indirect)
		// templates in opcode_table.go.
		ops = []*Operand{p.parseBranchTarget()}
	} else {
		ops = p.parseOperandList()
		ops = reverseATTOperands(ops, mnemonic)
	}

	inst, err := Encode(mnemonic, ops...)
	if err != nil {
		panic(p.errorf("%s", err.Error()))
	}
	if isBranchMnemonic(mnemonic) {
		p.emitBranch(mnemonic, ops, inst)
		return
	}
	p.stream().Append(newCodeChunk(inst))
}

// reverseATTOperands applies the implicit-shift-count-1 rule: a shift
// mnemonic given a single operand gets an implicit immediate 1 count
// prepended, matching the D0/D1 opcode row's 2-operand template shape.
func reverseATTOperands(ops []*Operand, mnemonic string) []*Operand {
	if len(ops) == 1 && isShiftMnemonic(mnemonic) {
		return []*Operand{{Kind: OperandImmediate, ImmValue: 1}, ops[0]}
	}
	return ops
}

func isShiftMnemonic(m string) bool {
	switch m {
	case "rol", "ror", "rcl", "rcr", "shl", "sal", "shr", "sar":
		return true
	default:
		return false
	}
}

func isBranchMnemonic(m string) bool {
	if m == "jmp" {
		return true
	}
	if len(m) > 1 && m[0] == 'j' {
		_, ok := jccConditions[m[1:]]
		return ok
	}
	return false
}

// isDirectTargetMnemonic reports whether m's single operand, when
// given with no leading "*", names a direct displacement target
// (AddrJ) rather than a register/memory operand. call's indirect form
// ("call *%rax") is the one non-branch mnemonic that still needs the
// "*" distinction, since plain "call label" must resolve to the AddrJ
// 0xE8 row rather than accidentally matching the 0xFF /2 AddrE row.
func isDirectTargetMnemonic(m string) bool {
	return m == "call" || isBranchMnemonic(m)
}

// parseBranchTarget parses a direct call/branch target: a constant
// expression, or a symbol reference to be relocated (or relaxed, for
// jmp/jcc) once its final address is known.
func (p *Parser) parseBranchTarget() *Operand {
	e := p.parseExpr()
	if e.Kind == ExprNumber {
		return &Operand{Kind: OperandImmediate, ImmValue: e.Num}
	}
	return &Operand{Kind: OperandImmediate, ImmExpr: e}
}

// emitBranch encodes both the short and long forms up front and queues
// a two-way chunk for the relaxer (relax.go) to pick between.
func (p *Parser) emitBranch(mnemonic string, ops []*Operand, chosen *Instruction) {
	sym, _, ok := ops[0].ImmExpr.asSymbolRefSafe()
	if !ok {
		p.stream().Append(newCodeChunk(chosen))
		return
	}
	alias := aliasTable[mnemonic]
	templates := opcodeTable[alias.Base]
	var shortInst, longInst *Instruction
	for i := range templates {
		tmpl := &templates[i]
		var err error
		var inst *Instruction
		if tmpl.ImmBits == 8 {
			inst, err = buildEncoding(tmpl, ops, SizeLong)
			if err == nil {
				shortInst = inst
			}
		} else {
			inst, err = buildEncoding(tmpl, ops, SizeLong)
			if err == nil {
				longInst = inst
			}
		}
	}
	c := newBranchChunk(sym, shortInst, longInst)
	if shortInst != nil {
		c.PCRelSite = len(shortInst.Bytes) - 1
	}
	p.stream().Append(c)
}

// --- directives ----------------------------------------------------------

func (p *Parser) parseDirective() {
	name := p.tok.Value
	p.next()
	switch name {
	case ".text":
		p.switchSection(".text", SHT_PROGBITS, SHF_ALLOC|SHF_EXECINSTR, 16)
	case ".data":
		p.switchSection(".data", SHT_PROGBITS, SHF_ALLOC|SHF_WRITE, 8)
	case ".rodata":
		p.switchSection(".rodata", SHT_PROGBITS, SHF_ALLOC, 8)
	case ".section":
		p.parseSectionDirective()
	case ".globl", ".global":
		p.symtab.SetGlobal(p.symtab.Lookup(p.expectIdent()))
	case ".local":
		p.symtab.SetLocal(p.symtab.Lookup(p.expectIdent()))
	case ".type":
		p.parseTypeDirective()
	case ".size":
		p.parseSizeDirective()
	case ".comm":
		p.parseCommDirective()
	case ".byte":
		p.parseDataList(1)
	case ".word", ".value":
		p.parseDataList(2)
	case ".long":
		p.parseDataList(4)
	case ".quad":
		p.parseDataList(8)
	case ".zero":
		n := p.parseConstExpr()
		p.stream().Append(newZeroChunk(int(n)))
	case ".align":
		to := p.parseConstExpr()
		p.stream().Append(newAlignChunk(int(to), alignFillFor(p.curSec)))
	case ".p2align":
		shift := p.parseConstExpr()
		p.stream().Append(newAlignChunk(1<<uint(shift), alignFillFor(p.curSec)))
	case ".string":
		p.parseStringDirective(true)
	case ".ascii":
		p.parseStringDirective(false)
	case ".set", ".equ":
		p.parseSetDirective()
	case ".file":
		p.parseFileDirective()
	case ".loc":
		p.parseLocDirective()
	case ".sleb128":
		v := p.parseConstExpr()
		p.emitRawData(appendSLEB128(nil, v))
	case ".uleb128":
		v := p.parseConstExpr()
		p.emitRawData(appendULEB128(nil, uint64(v)))
	default:
		panic(p.errorf("unsupported directive %q", name))
	}
}

func alignFillFor(sec *Section) byte {
	if sec.Flags&SHF_EXECINSTR != 0 {
		return 0x90 // NOP, so padding inside .text disassembles cleanly
	}
	return 0
}

func (p *Parser) switchSection(name string, typ uint32, flags uint64, align uint64) {
	p.curSec = p.sections.GetOrCreate(name, typ, flags, align)
}

func (p *Parser) parseSectionDirective() {
	name := p.expectIdentOrString()
	flags := uint64(SHF_ALLOC)
	typ := uint32(SHT_PROGBITS)
	if p.tok.Type == TOKEN_COMMA {
		p.next()
		flagStr := p.expectIdentOrString()
		flags = 0
		for _, ch := range flagStr {
			switch ch {
			case 'w':
				flags |= SHF_WRITE
			case 'a':
				flags |= SHF_ALLOC
			case 'x':
				flags |= SHF_EXECINSTR
			}
		}
	}
	p.curSec = p.sections.GetOrCreate(name, typ, flags, 1)
}

func (p *Parser) parseTypeDirective() {
	name := p.expectIdent()
	p.expect(TOKEN_COMMA)
	kind := p.expectIdentOrAtIdent()
	sym := p.symtab.Lookup(name)
	switch kind {
	case "function", "@function", "STT_FUNC":
		sym.Type = TypeFunction
	case "object", "@object", "STT_OBJECT":
		sym.Type = TypeObject
	default:
		sym.Type = TypeNotype
	}
}

func (p *Parser) parseSizeDirective() {
	name := p.expectIdent()
	p.expect(TOKEN_COMMA)
	sym := p.symtab.Lookup(name)
	expr := p.parseExpr()
	p.stream().Append(newSizeExprChunk(sym, expr))
}

func (p *Parser) parseCommDirective() {
	name := p.expectIdent()
	p.expect(TOKEN_COMMA)
	size := p.parseConstExpr()
	align := int64(1)
	if p.tok.Type == TOKEN_COMMA {
		p.next()
		align = p.parseConstExpr()
	}
	bss, _ := p.sections.Get(".bss")
	if align > int64(bss.Align) {
		bss.Align = uint64(align)
	}
	sym := p.symtab.Lookup(name)
	p.symtab.SetGlobal(sym)
	off := bss.EmitZero(int(size))
	p.symtab.Define(sym, bss, int64(off))
	sym.Size = size
}

func (p *Parser) parseDataList(width int) {
	for {
		e := p.parseExpr()
		p.emitSizedExpr(e, width)
		if p.tok.Type != TOKEN_COMMA {
			break
		}
		p.next()
	}
}

func (p *Parser) emitSizedExpr(e *Expr, width int) {
	if sym, addend, ok := e.AsSymbolRef(); ok {
		if width != 4 && width != 8 {
			panic(p.errorf("relocatable value requires .long or .quad, not a %d-byte field", width))
		}
		b := make([]byte, width)
		c := newDataChunk(b, &PendingReloc{OffsetInChunk: 0, Width: width, Symbol: sym, Addend: addend, PCRel: false})
		p.stream().Append(c)
		return
	}
	v, err := e.Evaluate()
	if err != nil {
		panic(p.errorf("%s", err.Error()))
	}
	p.stream().Append(newDataChunk(littleEndian(v, width), nil))
}

func (p *Parser) emitRawData(b []byte) {
	p.stream().Append(newDataChunk(b, nil))
}

func (p *Parser) parseStringDirective(nulTerminate bool) {
	if p.tok.Type != TOKEN_STRING {
		panic(p.errorf("expected a string literal"))
	}
	s := p.tok.Value
	p.next()
	b := []byte(s)
	if nulTerminate {
		b = append(b, 0)
	}
	p.emitRawData(b)
}

// parseSetDirective implements ".set name, expr" / ".equ name, expr"
// as a named constant: the right-hand side must fold to a plain
// number at the point of definition (spec.md's expression grammar
// gives no way to alias one symbol's address to another's before
// relaxation has run, so that case is rejected rather than silently
// mishandled).
func (p *Parser) parseSetDirective() {
	name := p.expectIdent()
	p.expect(TOKEN_COMMA)
	e := p.parseExpr()
	if e.Kind != ExprNumber {
		panic(p.errorf(".set/.equ requires a constant expression"))
	}
	sym := p.symtab.Lookup(name)
	if sym.Defined {
		panic(p.errorf("symbol %q already defined", name))
	}
	p.symtab.Define(sym, nil, e.Num)
}

func (p *Parser) parseFileDirective() {
	idx := p.parseConstExpr()
	if p.tok.Type != TOKEN_STRING {
		panic(p.errorf("expected a quoted file path"))
	}
	path := p.tok.Value
	p.next()
	if err := p.debug.AddFile(uint64(idx), path); err != nil {
		panic(err)
	}
}

func (p *Parser) parseLocDirective() {
	file := p.parseConstExpr()
	line := p.parseConstExpr()
	if p.tok.Type == TOKEN_NUMBER {
		p.next() // column, unused
	}
	sec, _ := p.sections.Get(".text")
	addr := uint64(sec.Size())
	if cs, ok := p.streams[sec]; ok {
		sum := 0
		for _, c := range cs.Chunks {
			sum += c.Len()
		}
		addr = uint64(sum)
	}
	p.debug.AddRow(addr, uint64(file), uint64(line))
}

func (p *Parser) parseConstExpr() int64 {
	e := p.parseExpr()
	v, err := e.Evaluate()
	if err != nil {
		panic(p.errorf("%s", err.Error()))
	}
	return v
}

func (p *Parser) expectIdent() string {
	if p.tok.Type != TOKEN_IDENT {
		panic(p.errorf("expected an identifier"))
	}
	v := p.tok.Value
	p.next()
	return v
}

func (p *Parser) expectIdentOrString() string {
	if p.tok.Type == TOKEN_STRING {
		v := p.tok.Value
		p.next()
		return v
	}
	return p.expectIdent()
}

func (p *Parser) expectIdentOrAtIdent() string {
	v := p.tok.Value
	if p.tok.Type != TOKEN_IDENT {
		panic(p.errorf("expected a symbol-type keyword"))
	}
	p.next()
	return v
}
