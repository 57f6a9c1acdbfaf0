package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"
	env "github.com/xyproto/env/v2"
)

// errOut is where diagnostics and the internal-error handler write.
// A package variable (not a hardcoded os.Stderr at each call site) so
// tests can redirect it.
var errOut = os.Stderr

// VerboseMode enables the -v/--verbose progress lines (symbol and
// relocation counts, output file size); off by default, matching an
// assembler's normal silent-on-success behavior.
var VerboseMode = false

// Config holds the resolved command-line configuration. Defaults are
// seeded from environment variables first (WAS_OUTPUT, WAS_VERBOSE,
// WAS_NO_COLOR), then overridden by explicit flags, the same layering
// xyproto/flapc's flag.go applies via xyproto/env.
type Config struct {
	Input   string
	Output  string
	Verbose bool
	NoColor bool
}

func parseFlags(args []string) (*Config, error) {
	fs := flag.NewFlagSet("was", flag.ContinueOnError)
	fs.SetOutput(errOut)

	defaultOutput := env.Str("WAS_OUTPUT", "a.out")
	defaultVerbose := env.Bool("WAS_VERBOSE")
	defaultNoColor := env.Bool("WAS_NO_COLOR")

	cfg := &Config{}

	var output, outputLong string
	fs.StringVar(&output, "o", defaultOutput, "output object file path")
	fs.StringVar(&outputLong, "output", defaultOutput, "output object file path (long form)")

	var verbose, verboseLong bool
	fs.BoolVar(&verbose, "v", defaultVerbose, "verbose progress output")
	fs.BoolVar(&verboseLong, "verbose", defaultVerbose, "verbose progress output (long form)")

	var noColor bool
	fs.BoolVar(&noColor, "no-color", defaultNoColor, "disable colorized diagnostics")

	var help bool
	fs.BoolVar(&help, "h", false, "show usage")

	fs.Usage = func() { printUsage(fs) }

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if help {
		printUsage(fs)
		os.Exit(0)
	}

	rest := fs.Args()
	if len(rest) != 1 {
		return nil, fmt.Errorf("expected exactly one input file, got %d", len(rest))
	}
	cfg.Input = rest[0]

	cfg.Output = output
	if outputLong != defaultOutput {
		cfg.Output = outputLong
	}
	cfg.Verbose = verbose || verboseLong
	cfg.NoColor = noColor

	return cfg, nil
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintln(errOut, "was - x86-64 AT&T-syntax assembler producing an ELF64 relocatable object")
	fmt.Fprintln(errOut, "usage: was [-o|--output FILE] [-v|--verbose] [--no-color] SOURCE.s")
	fs.PrintDefaults()
}

func applyColorConfig(cfg *Config) {
	if cfg.NoColor {
		color.NoColor = true
	}
}

func verbosef(format string, args ...interface{}) {
	if VerboseMode {
		fmt.Fprintf(errOut, format, args...)
	}
}
