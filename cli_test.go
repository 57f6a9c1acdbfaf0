package main

import "testing"

func TestParseFlagsDefaultsOutputToAOut(t *testing.T) {
	cfg, err := parseFlags([]string{"input.s"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if cfg.Input != "input.s" {
		t.Errorf("Input = %q, want input.s", cfg.Input)
	}
	if cfg.Output != "a.out" {
		t.Errorf("Output = %q, want a.out", cfg.Output)
	}
	if cfg.Verbose || cfg.NoColor {
		t.Errorf("Verbose/NoColor should default false, got %+v", cfg)
	}
}

func TestParseFlagsShortAndLongOutputBothWork(t *testing.T) {
	cfg, err := parseFlags([]string{"-o", "out.o", "input.s"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if cfg.Output != "out.o" {
		t.Errorf("Output = %q, want out.o", cfg.Output)
	}

	cfg2, err := parseFlags([]string{"--output", "other.o", "input.s"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if cfg2.Output != "other.o" {
		t.Errorf("Output = %q, want other.o", cfg2.Output)
	}
}

func TestParseFlagsVerboseShortAndLong(t *testing.T) {
	cfg, err := parseFlags([]string{"-v", "input.s"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if !cfg.Verbose {
		t.Error("expected Verbose = true with -v")
	}

	cfg2, err := parseFlags([]string{"--verbose", "input.s"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if !cfg2.Verbose {
		t.Error("expected Verbose = true with --verbose")
	}
}

func TestParseFlagsRequiresExactlyOneInput(t *testing.T) {
	if _, err := parseFlags([]string{}); err == nil {
		t.Error("expected an error with zero input files")
	}
	if _, err := parseFlags([]string{"a.s", "b.s"}); err == nil {
		t.Error("expected an error with more than one input file")
	}
}

func TestParseFlagsNoColor(t *testing.T) {
	cfg, err := parseFlags([]string{"--no-color", "input.s"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if !cfg.NoColor {
		t.Error("expected NoColor = true with --no-color")
	}
}
