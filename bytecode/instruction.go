package bytecode

import (
	"fmt"

	"github.com/candor-lang/candor/op"
)

// Instruction is one decoded operation. Operands A, B, and C name
// registers within the current frame's window or indexes into the
// program's tables, depending on the opcode. Cache is an inline-cache
// slot reserved for a future adaptive interpreter; it is always zero
// and is not serialized.
type Instruction struct {
	Op    op.Code
	A     uint16
	B     uint16
	C     uint16
	Cache uint32
}

// New returns an instruction with the given opcode and operands.
// Unused operand slots are zero.
func New(code op.Code, operands ...uint16) Instruction {
	ins := Instruction{Op: code}
	switch len(operands) {
	case 3:
		ins.C = operands[2]
		fallthrough
	case 2:
		ins.B = operands[1]
		fallthrough
	case 1:
		ins.A = operands[0]
	}
	return ins
}

// String renders the instruction for disassembly.
func (i Instruction) String() string {
	info := op.GetInfo(i.Op)
	if info.Name == "" {
		return fmt.Sprintf("INVALID(%d)", i.Op)
	}
	switch info.OperandCount {
	case 0:
		return info.Name
	case 1:
		return fmt.Sprintf("%-16s %d", info.Name, i.A)
	case 2:
		return fmt.Sprintf("%-16s %d %d", info.Name, i.A, i.B)
	default:
		return fmt.Sprintf("%-16s %d %d %d", info.Name, i.A, i.B, i.C)
	}
}
