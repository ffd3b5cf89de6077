package machine

import (
	"fmt"

	"github.com/mna/rlox/lang/chunk"
	"github.com/mna/rlox/lang/value"
)

// RunProgram executes top, the compiled top-level script, to completion.
// It seeds the stack slots reserved for chunk.PredeclaredNames with their
// native implementations, then drives the bytecode loop until the
// top-level frame returns.
func (th *Thread) RunProgram(top *chunk.FunctionProto) (value.Value, error) {
	th.init()

	fn := &value.Function{Proto: top}
	closure := &value.Closure{Function: fn}
	th.stack = append(th.stack, closure)
	for _, name := range chunk.PredeclaredNames {
		th.stack = append(th.stack, natives[name])
	}
	th.frames = append(th.frames, frame{closure: closure, base: 0})

	return th.run()
}

func (th *Thread) push(v value.Value) { th.stack = append(th.stack, v) }

func (th *Thread) pop() value.Value {
	v := th.stack[len(th.stack)-1]
	th.stack = th.stack[:len(th.stack)-1]
	return v
}

func (th *Thread) peek(distance int) value.Value {
	return th.stack[len(th.stack)-1-distance]
}

// captureUpvalue returns the shared cell for the local currently sitting
// at stack slot, lifting it the first time it is captured: the stack
// slot itself becomes a Lifted reference to the same cell (spec section
// 3), so later reads/writes through either side observe the other.
func (th *Thread) captureUpvalue(slot int) *value.Upvalue {
	if l, ok := th.stack[slot].(value.Lifted); ok {
		return l.Cell
	}
	cell := &value.Upvalue{Value: th.stack[slot]}
	th.stack[slot] = value.Lifted{Cell: cell}
	return cell
}

func constantValue(c any) value.Value {
	switch c := c.(type) {
	case float64:
		return value.Number(c)
	case string:
		return value.String(c)
	default:
		panic(fmt.Sprintf("unexpected constant %T: %[1]v", c))
	}
}

// run is the bytecode interpreter loop (spec section 4.4): one frame is
// active at a time, found at the end of th.frames; calls push a new
// frame, returns pop it, and the loop exits for good when the top-level
// script's own frame returns.
func (th *Thread) run() (value.Value, error) {
	for {
		if th.cancelled.Load() {
			return nil, th.runtimeError("execution cancelled")
		}
		th.steps++
		if th.steps > th.maxSteps {
			return nil, th.runtimeError("step limit exceeded")
		}

		f := &th.frames[len(th.frames)-1]
		code := f.closure.Function.Proto.Chunk
		op := chunk.OpCode(code.Code[f.ip])
		f.ip++

		switch op {
		case chunk.OpConstant:
			idx := code.ReadUint32(f.ip)
			f.ip += 4
			th.push(constantValue(code.Constants[idx]))

		case chunk.OpNil:
			th.push(value.NilValue)
		case chunk.OpTrue:
			th.push(value.Bool(true))
		case chunk.OpFalse:
			th.push(value.Bool(false))
		case chunk.OpPop:
			th.pop()

		case chunk.OpGetLocal:
			idx := code.ReadUint32(f.ip)
			f.ip += 4
			th.push(value.Deref(th.stack[f.base+int(idx)]))

		case chunk.OpSetLocal:
			idx := code.ReadUint32(f.ip)
			f.ip += 4
			slot := f.base + int(idx)
			v := value.Deref(th.peek(0))
			if l, ok := th.stack[slot].(value.Lifted); ok {
				l.Cell.Value = v
			} else {
				th.stack[slot] = v
			}

		case chunk.OpGetUpvalue:
			idx := code.ReadUint32(f.ip)
			f.ip += 4
			th.push(value.Deref(f.closure.Upvalues[idx].Value))

		case chunk.OpSetUpvalue:
			idx := code.ReadUint32(f.ip)
			f.ip += 4
			f.closure.Upvalues[idx].Value = value.Deref(th.peek(0))

		case chunk.OpEqual:
			b, a := th.pop(), th.pop()
			th.push(value.Bool(value.Equal(a, b)))

		case chunk.OpGreater, chunk.OpLess:
			b, a := th.pop(), th.pop()
			cmp, err := value.Compare(a, b)
			if err != nil {
				return nil, th.runtimeError(err.Error())
			}
			if op == chunk.OpGreater {
				th.push(value.Bool(cmp > 0))
			} else {
				th.push(value.Bool(cmp < 0))
			}

		case chunk.OpAdd, chunk.OpSubtract, chunk.OpMultiply, chunk.OpDivide:
			b, a := th.pop(), th.pop()
			var result value.Value
			var err error
			switch op {
			case chunk.OpAdd:
				result, err = value.Add(a, b)
			case chunk.OpSubtract:
				result, err = value.Subtract(a, b)
			case chunk.OpMultiply:
				result, err = value.Multiply(a, b)
			case chunk.OpDivide:
				result, err = value.Divide(a, b)
			}
			if err != nil {
				return nil, th.runtimeError(err.Error())
			}
			th.push(result)

		case chunk.OpNot:
			result, err := value.Not(th.pop())
			if err != nil {
				return nil, th.runtimeError(err.Error())
			}
			th.push(result)

		case chunk.OpNegate:
			result, err := value.Negate(th.pop())
			if err != nil {
				return nil, th.runtimeError(err.Error())
			}
			th.push(result)

		case chunk.OpPrint:
			fmt.Fprintln(th.stdout, th.pop().String())

		case chunk.OpJump:
			off := code.ReadUint32(f.ip)
			f.ip += 4 + int(off)

		case chunk.OpJumpIfFalse:
			off := code.ReadUint32(f.ip)
			f.ip += 4
			if !value.Truth(th.peek(0)) {
				f.ip += int(off)
			}

		case chunk.OpLoop:
			off := code.ReadUint32(f.ip)
			f.ip += 4 - int(off)

		case chunk.OpClosure:
			idx := code.ReadUint32(f.ip)
			f.ip += 4
			proto := code.Constants[idx].(*chunk.FunctionProto)
			upvalues := make([]*value.Upvalue, proto.UpvalueCount)
			for i := 0; i < proto.UpvalueCount; i++ {
				isLocal := code.Code[f.ip]
				f.ip++
				index := code.ReadUint32(f.ip)
				f.ip += 4
				if isLocal != 0 {
					upvalues[i] = th.captureUpvalue(f.base + int(index))
				} else {
					upvalues[i] = f.closure.Upvalues[index]
				}
			}
			th.push(&value.Closure{Function: &value.Function{Proto: proto}, Upvalues: upvalues})

		case chunk.OpCall:
			argCount := int(code.ReadUint32(f.ip))
			f.ip += 4
			if err := th.call(argCount); err != nil {
				return nil, err
			}

		case chunk.OpReturn:
			result := th.pop()
			returning := th.frames[len(th.frames)-1]
			th.frames = th.frames[:len(th.frames)-1]
			th.stack = th.stack[:returning.base]
			if len(th.frames) == 0 {
				return result, nil
			}
			th.push(result)

		default:
			return nil, th.runtimeError(fmt.Sprintf("unknown opcode %s", op))
		}
	}
}

// call implements OpCall: the callee and its argCount arguments already
// sit on top of the stack (spec section 4.4.5); a closure call pushes a
// new frame over them, a native call runs immediately and replaces them
// with its single result.
func (th *Thread) call(argCount int) error {
	callee := th.peek(argCount)
	switch c := callee.(type) {
	case *value.Closure:
		if argCount != c.Function.Proto.Arity {
			return th.runtimeError(fmt.Sprintf("Expected %d arguments but got %d.", c.Function.Proto.Arity, argCount))
		}
		if th.maxCallDepth > 0 && uint64(len(th.frames)) >= th.maxCallDepth {
			return th.runtimeError("Stack overflow.")
		}
		base := len(th.stack) - argCount - 1
		th.frames = append(th.frames, frame{closure: c, base: base})
		return nil
	case *value.Native:
		if argCount != c.Arity {
			return th.runtimeError(fmt.Sprintf("Expected %d arguments but got %d.", c.Arity, argCount))
		}
		args := make([]value.Value, argCount)
		for i := 0; i < argCount; i++ {
			args[i] = value.Deref(th.stack[len(th.stack)-argCount+i])
		}
		result, err := c.Fn(args)
		if err != nil {
			return th.runtimeError(err.Error())
		}
		th.stack = th.stack[:len(th.stack)-argCount-1]
		th.push(result)
		return nil
	default:
		return th.runtimeError("Can only call functions and classes.")
	}
}

// runtimeError builds a RuntimeError carrying the current call stack,
// innermost frame first (spec section 4.4.6).
func (th *Thread) runtimeError(message string) *RuntimeError {
	err := &RuntimeError{Message: message}
	for i := len(th.frames) - 1; i >= 0; i-- {
		f := th.frames[i]
		line := f.closure.Function.Proto.Chunk.Line(f.ip - 1)
		err.Trace = append(err.Trace, TraceFrame{Name: f.closure.Function.Name(), Line: line})
	}
	return err
}
