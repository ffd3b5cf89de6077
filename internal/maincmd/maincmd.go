// Package maincmd implements the rlox command-line tool: parsing flags,
// reading the script, and mapping compile/runtime outcomes to the exit
// codes a shell expects.
package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/caarlos0/env/v6"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/mna/mainer"
)

const binName = "rlox"

// usageError is the exact usage-error message mandated for any invocation
// whose argc isn't the one script argument; it is deliberately distinct
// from longUsage's richer, flag-documenting text below.
const usageError = "Usage: rlox [script]"

var (
	longUsage = fmt.Sprintf(`usage: %[1]s [<option>...] [script]
       %[1]s -h|--help
       %[1]s -v|--version

A bytecode compiler and virtual machine for the rlox programming language.

With no script argument, nothing is read; a script path is required.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.
       --trace                   Write the compiled chunk's disassembly to
                                  stderr before running it, and a run id
                                  with the exit code after it finishes.
`, binName)
)

// limits holds the optional VM resource tunables, read from RLOX_-prefixed
// environment variables when present. They are additive: the language has
// no construct that depends on them, they only bound a pathological
// script's resource usage.
type limits struct {
	MaxFrames int `env:"RLOX_MAX_FRAMES"`
}

// Cmd is the rlox command-line tool's flag and argument set, parsed by
// mainer.Parser from os.Args.
type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`
	Trace   bool `flag:"trace"`

	args []string
}

func (c *Cmd) SetArgs(args []string)          { c.args = args }
func (c *Cmd) SetFlags(_ map[string]bool)     {}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}
	if len(c.args) != 1 {
		return fmt.Errorf("expected exactly one script argument, got %d", len(c.args))
	}
	return nil
}

// Main is the tool's entry point: it returns the process exit code,
// following the convention a Lox implementation is expected to honor
// (64 for a usage error, 65 for a compile error, 70 for a runtime error).
func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{EnvVars: false}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintln(stdio.Stdout, usageError)
		return 64
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success
	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	if len(c.args) != 1 {
		fmt.Fprintln(stdio.Stdout, usageError)
		return 64
	}

	var lim limits
	_ = env.Parse(&lim) // absent/invalid env vars leave the VM defaults in place

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)

	var runID uuid.UUID
	if c.Trace {
		runID = uuid.New()
	}

	color := isatty.IsTerminal(os.Stderr.Fd())
	code := c.runFile(ctx, stdio, c.args[0], lim, color)

	if c.Trace {
		fmt.Fprintf(stdio.Stderr, "rlox: trace %s: exit %d\n", runID, code)
	}

	return mainer.ExitCode(code)
}
