package chunk

import "fmt"

// OpCode is a single bytecode instruction. Every opcode occupies one byte;
// operands, where present, are inlined immediately after it in the code
// stream as a big-endian uint32 (the Closure opcode additionally trails a
// variable-length list of (uint8, uint32) upvalue descriptor pairs).
type OpCode uint8

// "x OP y" is a stack picture describing the operand stack before and after
// the instruction executes.
const ( //nolint:revive
	OpConstant OpCode = iota //                 - OpConstant<idx>   value
	OpNil                    //                 - OpNil             nil
	OpTrue                   //                 - OpTrue            true
	OpFalse                  //                 - OpFalse           false
	OpPop                    //             value OpPop              -

	OpGetLocal // - OpGetLocal<idx> value
	OpSetLocal // value OpSetLocal<idx> value (does not pop)

	OpGetUpvalue // - OpGetUpvalue<idx> value
	OpSetUpvalue // value OpSetUpvalue<idx> value (does not pop)

	OpEqual   //   a b OpEqual   bool
	OpGreater //   a b OpGreater bool
	OpLess    //   a b OpLess    bool

	OpAdd       //   a b OpAdd       a+b
	OpSubtract  //   a b OpSubtract  a-b
	OpMultiply  //   a b OpMultiply  a*b
	OpDivide    //   a b OpDivide    a/b
	OpNot       //     a OpNot       !a
	OpNegate    //     a OpNegate    -a

	OpPrint //     value OpPrint -

	OpJumpIfFalse // cond OpJumpIfFalse<off> cond (does not pop)
	OpJump        //    - OpJump<off>        -
	OpLoop        //    - OpLoop<off>        -

	OpCall // callee arg1..argN OpCall<argc> result

	// OpClosure<constIdx> (isLocal:u8 idx:u32){upvalueCount} closure
	OpClosure

	OpReturn //                     value OpReturn -

	// OpDebug is reserved for an external disassembler (out of scope for
	// this module) and is never emitted by the compiler.
	OpDebug OpCode = 0xFF
)

var opcodeNames = [...]string{
	OpConstant:    "OP_CONSTANT",
	OpNil:         "OP_NIL",
	OpTrue:        "OP_TRUE",
	OpFalse:       "OP_FALSE",
	OpPop:         "OP_POP",
	OpGetLocal:    "OP_GET_LOCAL",
	OpSetLocal:    "OP_SET_LOCAL",
	OpGetUpvalue:  "OP_GET_UPVALUE",
	OpSetUpvalue:  "OP_SET_UPVALUE",
	OpEqual:       "OP_EQUAL",
	OpGreater:     "OP_GREATER",
	OpLess:        "OP_LESS",
	OpAdd:         "OP_ADD",
	OpSubtract:    "OP_SUBTRACT",
	OpMultiply:    "OP_MULTIPLY",
	OpDivide:      "OP_DIVIDE",
	OpNot:         "OP_NOT",
	OpNegate:      "OP_NEGATE",
	OpPrint:       "OP_PRINT",
	OpJumpIfFalse: "OP_JUMP_IF_FALSE",
	OpJump:        "OP_JUMP",
	OpLoop:        "OP_LOOP",
	OpCall:        "OP_CALL",
	OpClosure:     "OP_CLOSURE",
	OpReturn:      "OP_RETURN",
}

func (op OpCode) String() string {
	if op == OpDebug {
		return "OP_DEBUG"
	}
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return fmt.Sprintf("illegal opcode (%d)", op)
}

// HasOperand reports whether op is followed by a big-endian uint32 operand
// in the code stream. OpClosure is true here too: its leading operand is
// the function's constant-pool index, the per-upvalue descriptor pairs
// that follow it are read separately by the compiler/VM.
func (op OpCode) HasOperand() bool {
	switch op {
	case OpConstant, OpGetLocal, OpSetLocal, OpGetUpvalue, OpSetUpvalue,
		OpJumpIfFalse, OpJump, OpLoop, OpCall, OpClosure:
		return true
	}
	return false
}
