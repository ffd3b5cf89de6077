package machine

import (
	"time"

	"github.com/mna/rlox/lang/value"
)

// clock implements the predeclared clock() function (spec section 4.4.5):
// the number of seconds since the Unix epoch, as a float, so scripts can
// measure elapsed wall-clock time between two calls.
func clock(_ []value.Value) (value.Value, error) {
	return value.Number(float64(time.Now().UnixNano()) / 1e9), nil
}

// natives maps each entry of chunk.PredeclaredNames to its implementation.
// RunProgram walks the names in that same order so slot
// assignment between compiler and machine never drifts.
var natives = map[string]*value.Native{
	"clock": {NativeName: "clock", Arity: 0, Fn: clock},
}
