package main

import (
	"fmt"
	"os"
)

// main wires the CLI, parser, relaxer, and ELF serializer together.
// Error handling follows spec.md §7's two-tier model: a single
// *AsmError (lexical/syntactic/semantic) prints file:line and exits 1
// with no stack trace; any other recovered panic is treated as an
// assembler bug and printed without file/line, also exiting 1.
func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) (code int) {
	defer func() {
		if r := recover(); r != nil {
			printInternalError(r)
			code = 1
		}
	}()

	cfg, err := parseFlags(args)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	applyColorConfig(cfg)
	VerboseMode = cfg.Verbose

	src, err := os.ReadFile(cfg.Input)
	if err != nil {
		fmt.Fprintf(errOut, "%s: %v\n", cfg.Input, err)
		return 1
	}

	obj, asmErr := assemble(cfg.Input, string(src))
	if asmErr != nil {
		printAsmError(asmErr)
		return 1
	}

	if err := os.WriteFile(cfg.Output, obj, 0644); err != nil {
		fmt.Fprintf(errOut, "%s: %v\n", cfg.Output, err)
		return 1
	}
	verbosef("wrote %s (%d bytes)\n", cfg.Output, len(obj))
	return 0
}

// assemble drives one source file through every stage: parse, relax
// every section's chunk stream to a fixpoint, materialize bytes,
// collect and finalize relocations, then serialize the ELF64 object.
func assemble(file, src string) ([]byte, *AsmError) {
	p := NewParser(file, src)
	if err := p.Parse(); err != nil {
		return nil, err
	}

	for _, sec := range p.sections.All() {
		cs, ok := p.streams[sec]
		if !ok {
			continue
		}
		Relax(cs)
		FinalizeSizeExprs(cs)
	}

	if len(p.debug.Files) > 0 || len(p.debug.Rows) > 0 {
		dl := p.sections.GetOrCreate(".debug_line", SHT_PROGBITS, 0, 1)
		dl.Emit(p.debug.Build())
	}

	for _, sec := range p.sections.All() {
		if cs, ok := p.streams[sec]; ok {
			Materialize(cs)
		}
	}

	var recs []*RelocationRecord
	for _, sec := range p.sections.All() {
		if cs, ok := p.streams[sec]; ok {
			recs = append(recs, CollectRelocations(cs)...)
		}
	}

	sectionSymbols := BuildSectionSymbols(p.sections)
	locals, globals, firstGlobal := AssignSymbolIndices(p.sections, p.symtab, sectionSymbols)
	FinalizeRelocations(recs, sectionSymbols)
	EmitRelaEntries(p.sections, recs)

	verbosef("%d local symbol(s), %d global symbol(s), %d relocation(s)\n", len(locals), len(globals), len(recs))

	return WriteObject(p.sections, sectionSymbols, locals, globals, firstGlobal), nil
}
