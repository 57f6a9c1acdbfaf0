package main

import (
	"fmt"

	"github.com/fatih/color"
)

// AsmError is a single-line, file:line-prefixed user-visible error.
// Lexical, syntactic, and semantic failures all surface as *AsmError;
// there is no batching and no recovery, per the assembler's single
// error-then-abort propagation policy.
type AsmError struct {
	File string
	Line int
	Msg  string
}

func (e *AsmError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
}

// Color roles, following Manu343726/cucaracha's cmd/cpu/debug.go
// convention of one named *color.Color per semantic role rather than
// calling color.New inline at each print site.
var (
	colorLocation = color.New(color.FgCyan)
	colorMessage  = color.New(color.FgRed, color.Bold)
)

// printAsmError renders err to stderr, colorized when stderr is a
// terminal (color.NoColor tracks that automatically, including
// NO_COLOR and pipe detection).
func printAsmError(err *AsmError) {
	colorLocation.Fprintf(errOut, "%s:%d: ", err.File, err.Line)
	colorMessage.Fprintln(errOut, err.Msg)
}

// printInternalError renders a recovered panic. Per spec, internal
// errors carry no file/line — they indicate a bug in the assembler,
// not in the user's input.
func printInternalError(v interface{}) {
	colorMessage.Fprintf(errOut, "internal error: %v\n", v)
}
