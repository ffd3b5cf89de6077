package machine

import (
	"context"
	"io"
	"os"
	"sync/atomic"

	"github.com/mna/rlox/lang/value"
)

// Thread is one execution of a compiled script: its value stack, its
// active call frames, and the I/O and resource limits that govern it.
// A Thread runs exactly one program; create a new one to run another.
type Thread struct {
	// Name is an optional name that describes the thread, mostly for
	// debugging and trace diagnostics.
	Name string

	// Stdout and Stderr are the standard I/O abstractions for the thread.
	// If nil, os.Stdout and os.Stderr are used, respectively.
	Stdout io.Writer
	Stderr io.Writer

	// MaxSteps is the maximum number of executed instructions before the
	// thread is cancelled. A value <= 0 means no limit.
	MaxSteps int

	// MaxCallStackDepth limits the number of nested function calls. If the
	// limit is reached, execution fails with a RuntimeError rather than
	// overflowing the Go call stack. A value <= 0 means no limit.
	MaxCallStackDepth int

	// Ctx, if set, cancels the thread when done; RunProgram defaults to
	// context.Background() when Ctx is nil.
	Ctx context.Context

	stack  []value.Value
	frames []frame

	steps, maxSteps uint64
	maxCallDepth    uint64
	cancelled       atomic.Bool

	stdout io.Writer
	stderr io.Writer
}

func (th *Thread) init() {
	if th.MaxSteps <= 0 {
		th.maxSteps-- // (MaxUint64)
	} else {
		th.maxSteps = uint64(th.MaxSteps)
	}
	if th.MaxCallStackDepth > 0 {
		th.maxCallDepth = uint64(th.MaxCallStackDepth)
	}
	if th.Stdout != nil {
		th.stdout = th.Stdout
	} else {
		th.stdout = os.Stdout
	}
	if th.Stderr != nil {
		th.stderr = th.Stderr
	} else {
		th.stderr = os.Stderr
	}
	if th.Ctx != nil {
		go func() {
			<-th.Ctx.Done()
			th.cancelled.Store(true)
		}()
	}
}
