package machine

import "github.com/mna/rlox/lang/value"

// frame is one active call's bookkeeping: which closure is running, where
// in its chunk execution has reached, and where its locals begin on the
// shared value stack.
type frame struct {
	closure *value.Closure
	ip      int
	base    int
}
