package compiler_test

import (
	"testing"

	"github.com/mna/rlox/lang/chunk"
	"github.com/mna/rlox/lang/compiler"
	"github.com/stretchr/testify/require"
)

// ops extracts just the opcode sequence from a chunk's code stream, to
// assert on instruction shape without hard-coding operand offsets.
func ops(c *chunk.Chunk) []chunk.OpCode {
	var out []chunk.OpCode
	for off := 0; off < c.Len(); {
		op := chunk.OpCode(c.Code[off])
		out = append(out, op)
		if op == chunk.OpClosure {
			idx := c.ReadUint32(off + 1)
			off += 5
			if proto, ok := c.Constants[idx].(*chunk.FunctionProto); ok {
				off += proto.UpvalueCount * 5
			}
			continue
		}
		if op.HasOperand() {
			off += 5
		} else {
			off++
		}
	}
	return out
}

func TestCompileArithmeticExpressionStatement(t *testing.T) {
	proto, errs := compiler.Compile(`1 + 2 * 3;`)
	require.Empty(t, errs)
	require.Equal(t, []chunk.OpCode{
		chunk.OpConstant, chunk.OpConstant, chunk.OpConstant,
		chunk.OpMultiply, chunk.OpAdd, chunk.OpPop,
		chunk.OpNil, chunk.OpReturn,
	}, ops(proto.Chunk))
}

func TestCompileVarDeclarationIsLocalSlot(t *testing.T) {
	proto, errs := compiler.Compile(`var x = 1; print x;`)
	require.Empty(t, errs)
	require.Equal(t, []chunk.OpCode{
		chunk.OpConstant,
		chunk.OpGetLocal,
		chunk.OpPrint,
		chunk.OpNil, chunk.OpReturn,
	}, ops(proto.Chunk))
}

func TestCompileSelfReferenceInInitializerIsError(t *testing.T) {
	_, errs := compiler.Compile(`var a = a;`)
	require.NotEmpty(t, errs)
	require.Contains(t, errs[0].Message, "own initializer")
}

func TestCompileUnknownVariableIsError(t *testing.T) {
	_, errs := compiler.Compile(`print x;`)
	require.NotEmpty(t, errs)
	require.Contains(t, errs[0].Message, "Unknown variable")
}

func TestCompileIfElseEmitsJumps(t *testing.T) {
	proto, errs := compiler.Compile(`if (true) { print 1; } else { print 2; }`)
	require.Empty(t, errs)
	require.Equal(t, []chunk.OpCode{
		chunk.OpTrue,
		chunk.OpJumpIfFalse, chunk.OpPop,
		chunk.OpConstant, chunk.OpPrint,
		chunk.OpJump,
		chunk.OpPop,
		chunk.OpConstant, chunk.OpPrint,
		chunk.OpNil, chunk.OpReturn,
	}, ops(proto.Chunk))
}

func TestCompileWhileLoopEmitsLoop(t *testing.T) {
	proto, errs := compiler.Compile(`while (true) print 1;`)
	require.Empty(t, errs)
	require.Equal(t, []chunk.OpCode{
		chunk.OpTrue,
		chunk.OpJumpIfFalse, chunk.OpPop,
		chunk.OpConstant, chunk.OpPrint,
		chunk.OpLoop,
		chunk.OpPop,
		chunk.OpNil, chunk.OpReturn,
	}, ops(proto.Chunk))
}

func TestCompileFunctionEmitsClosureWithUpvalue(t *testing.T) {
	proto, errs := compiler.Compile(`
		fun outer() {
			var x = 1;
			fun inner() { return x; }
			return inner;
		}
	`)
	require.Empty(t, errs)
	require.Equal(t, []chunk.OpCode{
		chunk.OpClosure,
		chunk.OpNil, chunk.OpReturn,
	}, ops(proto.Chunk))

	outerConst := proto.Chunk.Constants[0].(*chunk.FunctionProto)
	require.Equal(t, 0, outerConst.UpvalueCount)
	require.Equal(t, []chunk.OpCode{
		chunk.OpConstant,
		chunk.OpClosure,
		chunk.OpGetLocal,
		chunk.OpReturn,
		chunk.OpNil, chunk.OpReturn,
	}, ops(outerConst.Chunk))

	innerConst := outerConst.Chunk.Constants[1].(*chunk.FunctionProto)
	require.Equal(t, 1, innerConst.UpvalueCount)
	require.Equal(t, []chunk.OpCode{
		chunk.OpGetUpvalue,
		chunk.OpReturn,
		chunk.OpNil, chunk.OpReturn,
	}, ops(innerConst.Chunk))
}

func TestCompileCallExpression(t *testing.T) {
	proto, errs := compiler.Compile(`
		fun f(a, b) { return a + b; }
		f(1, 2);
	`)
	require.Empty(t, errs)
	require.Equal(t, []chunk.OpCode{
		chunk.OpClosure,
		chunk.OpGetLocal,
		chunk.OpConstant,
		chunk.OpConstant,
		chunk.OpCall,
		chunk.OpPop,
		chunk.OpNil, chunk.OpReturn,
	}, ops(proto.Chunk))
}

func TestCompileErrorAtEndFormatsMessage(t *testing.T) {
	_, errs := compiler.Compile(`print 1`)
	require.NotEmpty(t, errs)
	require.Equal(t, "[line 1] Error at end: Expect ';' after value.", errs[0].Error())
}

func TestCompileErrorAtTokenFormatsMessage(t *testing.T) {
	_, errs := compiler.Compile("var;")
	require.NotEmpty(t, errs)
	require.Equal(t, "[line 1] Error at ';' : Expect variable name.", errs[0].Error())
}

func TestCompileReturnOutsideFunctionIsError(t *testing.T) {
	_, errs := compiler.Compile(`return 1;`)
	require.NotEmpty(t, errs)
	require.Contains(t, errs[0].Message, "top-level")
}

func TestCompileIllegalCharacterFormatsScanErrorWithoutLexeme(t *testing.T) {
	_, errs := compiler.Compile("var x = @;")
	require.NotEmpty(t, errs)
	require.Equal(t, "[line 1] Error: Unexpected character.", errs[0].Error())
}

func TestCompileUnterminatedStringFormatsScanErrorWithoutLexeme(t *testing.T) {
	_, errs := compiler.Compile("var x = \"abc;")
	require.NotEmpty(t, errs)
	require.Equal(t, "[line 1] Error: Unterminated string.", errs[0].Error())
}
