package main

import "testing"

func TestAsmErrorFormatsFileAndLine(t *testing.T) {
	err := &AsmError{File: "foo.s", Line: 12, Msg: "unknown register %rzz"}
	want := "foo.s:12: unknown register %rzz"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
