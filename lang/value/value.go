// Package value implements the runtime representation of rlox values: the
// tagged union described in spec section 3 (Nil, Bool, Number, heap
// objects, and lifted upvalue cells) plus the handful of heap object kinds
// the language needs (strings, closures).
package value

import (
	"math"
	"strconv"

	"github.com/mna/rlox/lang/chunk"
)

// Value is implemented by every runtime value the VM pushes onto its
// stack. It intentionally carries almost no behaviour: arithmetic,
// comparison and truthiness are free functions below, not methods, so
// that a Value implementation never has to reason about the other
// variants it can be combined with (mirrors the reference implementation's
// plain enum-and-match design, adapted to Go's lack of sum types).
type Value interface {
	// String renders the value the way the `print` statement and error
	// messages show it.
	String() string
	// Type names the value's runtime type, used in type-error messages.
	Type() string
}

// Nil is the single value of the nil type.
type Nil struct{}

func (Nil) String() string { return "nil" }
func (Nil) Type() string   { return "nil" }

// NilValue is the canonical Nil value.
var NilValue = Nil{}

// Bool is a boolean value.
type Bool bool

func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}
func (Bool) Type() string { return "bool" }

// Number is an IEEE-754 double.
type Number float64

func (n Number) String() string {
	f := float64(n)
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
func (Number) Type() string { return "number" }

// String is an immutable heap-allocated text string.
type String string

func (s String) String() string { return string(s) }
func (String) Type() string     { return "string" }

// Function is the immutable compiled form of a function literal or the
// top-level script (spec section 3). It wraps a chunk.FunctionProto, the
// compiler's representation, with the Value interface.
type Function struct {
	Proto *chunk.FunctionProto
}

func (f *Function) String() string {
	if f.Proto.Name == "" {
		return "<script>"
	}
	return "<fn " + f.Proto.Name + ">"
}
func (*Function) Type() string { return "function" }

// Name returns the function's declared name, or "<script>" for the
// top-level compilation unit.
func (f *Function) Name() string {
	if f.Proto.Name == "" {
		return "<script>"
	}
	return f.Proto.Name
}

// Upvalue is the shared mutable cell described in spec section 3: while
// the local variable it captures is still live on the VM stack, the stack
// slot itself holds a Lifted value referencing this same cell, so either
// side observes the other's writes. Each captured local gets its own
// *Upvalue, allocated once, so aliasing is by pointer identity.
type Upvalue struct {
	Value Value
}

// Closure pairs a Function with the concrete upvalue cells its free
// variables were resolved to at creation time.
type Closure struct {
	Function *Function
	Upvalues []*Upvalue
}

func (c *Closure) String() string { return c.Function.String() }
func (*Closure) Type() string     { return "closure" }

// Name returns the underlying function's name.
func (c *Closure) Name() string { return c.Function.Name() }

// Native is a host-implemented function exposed to scripts, such as
// clock() (spec section 4.4.5). Unlike Function/Closure it has no
// chunk.FunctionProto: calling it runs Fn directly rather than pushing a
// new bytecode frame.
type Native struct {
	NativeName string
	Arity      int
	Fn         func(args []Value) (Value, error)
}

func (n *Native) String() string { return "<native fn " + n.NativeName + ">" }
func (*Native) Type() string     { return "native function" }

// Name returns the native function's name.
func (n *Native) Name() string { return n.NativeName }

// Lifted wraps an *Upvalue cell as a Value. It only ever appears in a VM
// stack slot once a local has been captured (OpGetLocal and OpGetUpvalue
// push the dereferenced value, not the Lifted wrapper); every consumer of a stack value (arithmetic, comparison,
// printing, assignment, calls) must call Deref before using it, per spec
// section 3's "dual-role stack slot" design.
type Lifted struct {
	Cell *Upvalue
}

func (l Lifted) String() string { return Deref(l).String() }
func (l Lifted) Type() string   { return Deref(l).Type() }

// Deref returns v's underlying value, unwrapping a Lifted cell reference.
// It is idempotent and a no-op for any non-Lifted value.
func Deref(v Value) Value {
	if l, ok := v.(Lifted); ok {
		return l.Cell.Value
	}
	return v
}

// Truth reports a value's truthiness: nil and false are falsy, everything
// else (including 0 and the empty string) is truthy.
func Truth(v Value) bool {
	switch v := Deref(v).(type) {
	case Nil:
		return false
	case Bool:
		return bool(v)
	default:
		return true
	}
}

// Equal reports whether a and b are equal by the structural rules of spec
// section 3: Nil == Nil, numbers and booleans by value, strings by
// content, and function/closure values by identity.
func Equal(a, b Value) bool {
	a, b = Deref(a), Deref(b)
	switch av := a.(type) {
	case Nil:
		_, ok := b.(Nil)
		return ok
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Number:
		bv, ok := b.(Number)
		return ok && av == bv
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case *Closure:
		bv, ok := b.(*Closure)
		return ok && av == bv
	case *Function:
		bv, ok := b.(*Function)
		return ok && av == bv
	case *Native:
		bv, ok := b.(*Native)
		return ok && av == bv
	default:
		return false
	}
}
