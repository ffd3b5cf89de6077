// Package chunk implements the byte-addressable instruction buffer shared
// by lang/compiler (which writes it) and lang/machine (which executes it):
// a code stream, a parallel per-byte line table, and a constant pool.
package chunk

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// maxLen is the largest number of elements a Chunk's code stream or
// constant pool may hold, per the bytecode format invariant that indices
// and code offsets fit in a uint32.
const maxLen = 1<<32 - 1

// Chunk is three parallel pieces of state: the instruction bytes, one
// source line per instruction byte, and the pool of constant values
// referenced by OpConstant/OpClosure. Constants are stored as untyped Go
// values (float64, string, or *FunctionProto) rather than a machine Value,
// so that this package has no dependency on lang/value or lang/machine;
// lang/machine's constant-loading step (see constantValue) converts them.
type Chunk struct {
	Code      []byte
	Lines     []int
	Constants []any
}

// New returns an empty chunk.
func New() *Chunk {
	return &Chunk{}
}

// Len returns the number of bytes currently written to the code stream.
func (c *Chunk) Len() int { return len(c.Code) }

// WriteByte appends a single byte (typically an OpCode) to the code
// stream, recording line as the source line of the instruction that byte
// belongs to. It returns the offset the byte was written at.
func (c *Chunk) WriteByte(b byte, line int) (int, error) {
	if len(c.Code) >= maxLen {
		return 0, fmt.Errorf("chunk: code exceeds %d bytes", maxLen)
	}
	off := len(c.Code)
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
	return off, nil
}

// WriteOp appends an opcode byte.
func (c *Chunk) WriteOp(op OpCode, line int) (int, error) {
	return c.WriteByte(byte(op), line)
}

// WriteUint32 appends a big-endian uint32 operand, one byte at a time, each
// recording line. It returns the offset of the operand's first byte.
func (c *Chunk) WriteUint32(v uint32, line int) (int, error) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	off := -1
	for i, b := range buf {
		o, err := c.WriteByte(b, line)
		if err != nil {
			return 0, err
		}
		if i == 0 {
			off = o
		}
	}
	return off, nil
}

// PatchUint32 overwrites the big-endian uint32 operand starting at byte
// offset off. Used to back-patch forward jump targets once known.
func (c *Chunk) PatchUint32(off int, v uint32) {
	binary.BigEndian.PutUint32(c.Code[off:off+4], v)
}

// ReadUint32 reads the big-endian uint32 operand starting at byte offset
// off.
func (c *Chunk) ReadUint32(off int) uint32 {
	return binary.BigEndian.Uint32(c.Code[off : off+4])
}

// AddConstant appends v to the constant pool and returns its index.
func (c *Chunk) AddConstant(v any) (uint32, error) {
	if len(c.Constants) >= maxLen {
		return 0, fmt.Errorf("chunk: more than %d constants", maxLen)
	}
	c.Constants = append(c.Constants, v)
	return uint32(len(c.Constants) - 1), nil
}

// Line returns the source line recorded for the instruction byte at
// offset off.
func (c *Chunk) Line(off int) int {
	if off < 0 || off >= len(c.Lines) {
		return 0
	}
	return c.Lines[off]
}

// FunctionProto is the compile-time representation of a compiled function
// body, stored in a constant pool slot and turned into a runtime closure
// by the OpClosure instruction. It corresponds to spec's Function type;
// lang/value wraps it to satisfy the Value interface.
type FunctionProto struct {
	Name         string
	Arity        int
	UpvalueCount int
	Chunk        *Chunk
}

// Disassemble renders a human-readable listing of the chunk, one line per
// instruction, in the pairing used by the reference implementation's
// debug disassembler (an external collaborator, out of scope for this
// module beyond this stable textual form): repeated line numbers collapse
// to "   |".
func (c *Chunk) Disassemble(name string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "== %s ==\n", name)
	for off := 0; off < len(c.Code); {
		off = c.disassembleInstruction(&sb, off)
	}
	return sb.String()
}

func (c *Chunk) disassembleInstruction(sb *strings.Builder, off int) int {
	fmt.Fprintf(sb, "%04d ", off)
	if off > 0 && c.Lines[off] == c.Lines[off-1] {
		sb.WriteString("   | ")
	} else {
		fmt.Fprintf(sb, "%4d ", c.Lines[off])
	}

	op := OpCode(c.Code[off])
	if op == OpClosure {
		idx := c.ReadUint32(off + 1)
		fmt.Fprintf(sb, "%-18s %4d\n", op, idx)
		next := off + 5
		if proto, ok := c.Constants[idx].(*FunctionProto); ok {
			for i := 0; i < proto.UpvalueCount; i++ {
				isLocal := c.Code[next]
				fidx := c.ReadUint32(next + 1)
				kind := "upvalue"
				if isLocal != 0 {
					kind = "local"
				}
				fmt.Fprintf(sb, "%04d      |                     %s %d\n", next, kind, fidx)
				next += 5
			}
		}
		return next
	}
	if !op.HasOperand() {
		fmt.Fprintf(sb, "%s\n", op)
		return off + 1
	}
	idx := c.ReadUint32(off + 1)
	fmt.Fprintf(sb, "%-18s %4d\n", op, idx)
	return off + 5
}
