package chunk_test

import (
	"testing"

	"github.com/mna/rlox/lang/chunk"
	"github.com/stretchr/testify/require"
)

func TestWriteAndReadUint32Operand(t *testing.T) {
	c := chunk.New()
	_, err := c.WriteOp(chunk.OpJump, 3)
	require.NoError(t, err)
	off, err := c.WriteUint32(0xFFFFFFFF, 3)
	require.NoError(t, err)
	require.Equal(t, uint32(0xFFFFFFFF), c.ReadUint32(off))

	c.PatchUint32(off, 7)
	require.Equal(t, uint32(7), c.ReadUint32(off))
	require.Equal(t, c.Len(), len(c.Lines))
}

func TestAddConstantReturnsIndex(t *testing.T) {
	c := chunk.New()
	i0, err := c.AddConstant(1.0)
	require.NoError(t, err)
	i1, err := c.AddConstant("hi")
	require.NoError(t, err)
	require.Equal(t, uint32(0), i0)
	require.Equal(t, uint32(1), i1)
	require.Equal(t, []any{1.0, "hi"}, c.Constants)
}

func TestLineTableParallelsCode(t *testing.T) {
	c := chunk.New()
	_, _ = c.WriteOp(chunk.OpNil, 1)
	_, _ = c.WriteOp(chunk.OpPrint, 1)
	_, _ = c.WriteOp(chunk.OpReturn, 2)
	require.Equal(t, c.Len(), len(c.Lines))
	require.Equal(t, []int{1, 1, 2}, c.Lines)
}

func TestDisassembleCollapsesRepeatedLines(t *testing.T) {
	c := chunk.New()
	idx, _ := c.AddConstant(1.0)
	_, _ = c.WriteOp(chunk.OpConstant, 1)
	_, _ = c.WriteUint32(idx, 1)
	_, _ = c.WriteOp(chunk.OpPrint, 1)
	out := c.Disassemble("test")
	require.Contains(t, out, "== test ==")
	require.Contains(t, out, "OP_CONSTANT")
	require.Contains(t, out, "   | ") // second instruction shares line 1
}
