package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
	"github.com/mna/rlox/lang/compiler"
	"github.com/mna/rlox/lang/machine"
)

// ansiRed and ansiReset bracket each compile error line when stderr is
// a real terminal (spec section 2: diagnostics are plain text otherwise,
// so piping rlox's stderr never embeds escape codes in a log file).
const (
	ansiRed   = "\x1b[31m"
	ansiReset = "\x1b[0m"
)

// runFile reads path, compiles it, and runs it to completion, returning
// the process exit code a shell expects: 64 if path cannot be read, 65 on
// a compile error, 70 on a runtime error, 0 on success. color controls
// whether compile errors are highlighted with ANSI escapes.
func (c *Cmd) runFile(ctx context.Context, stdio mainer.Stdio, path string, lim limits, color bool) int {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "%s: %s\n", binName, err)
		return 64
	}

	proto, errs := compiler.Compile(string(src))
	if len(errs) > 0 {
		for _, e := range errs {
			if color {
				fmt.Fprintln(stdio.Stderr, ansiRed+e.Error()+ansiReset)
			} else {
				fmt.Fprintln(stdio.Stderr, e.Error())
			}
		}
		return 65
	}

	if c.Trace {
		fmt.Fprint(stdio.Stderr, proto.Chunk.Disassemble(path))
	}

	th := &machine.Thread{
		Name:              path,
		Stdout:            stdio.Stdout,
		Stderr:            stdio.Stderr,
		Ctx:               ctx,
		MaxCallStackDepth: lim.MaxFrames,
	}
	if _, err := th.RunProgram(proto); err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return 70
	}
	return 0
}
