package compiler

import (
	"fmt"
	"strings"
)

// Disassemble renders the instructions in code[from:to] as one
// "offset: mnemonic operand..." line per instruction, in encounter order.
// It is a debugging aid, not part of the bytecode format itself, used by
// tests to assert on generated code shape in readable form rather than on
// raw instruction bytes.
func Disassemble(code []byte, from, to int) string {
	var b strings.Builder
	pc := from
	for pc < to {
		op := Opcode(code[pc])
		size := Size(op)
		fmt.Fprintf(&b, "%04d: %s", pc, op)
		switch op {
		case OpPushInt:
			fmt.Fprintf(&b, " %d", ReadI64(code, pc+1))
		case OpPushFloat:
			fmt.Fprintf(&b, " %g", ReadF64(code, pc+1))
		case OpPushStr, OpPushBytes, OpPushFun, OpPushHost, OpPushClass, OpGetN,
			OpGetArg, OpSetArg, OpGetLocal, OpSetLocal, OpGetGlobal, OpSetGlobal,
			OpClosSet, OpClosGet, OpCellGetLocal, OpCellSetLocal, OpCellGetClos,
			OpCellSetClos, OpInstanceOf, OpArrayNew, OpDictNew, OpCall:
			fmt.Fprintf(&b, " %d", ReadU32(code, pc+1))
		case OpAddI64:
			fmt.Fprintf(&b, " %d", ReadI32(code, pc+1))
		case OpIfTrue, OpIfFalse, OpJump:
			off := ReadI32(code, pc+1)
			fmt.Fprintf(&b, " %d -> %04d", off, pc+size+int(off))
		case OpPanic:
			fmt.Fprintf(&b, " pos=%d", ReadU32(code, pc+1))
		case OpClosNew:
			fmt.Fprintf(&b, " fun=%d slots=%d", ReadU32(code, pc+1), ReadU32(code, pc+5))
		case OpNew:
			fmt.Fprintf(&b, " class=%d argc=%d", ReadU32(code, pc+1), ReadU32(code, pc+5))
		case OpCallMethod:
			fmt.Fprintf(&b, " name=%d argc=%d", ReadU32(code, pc+1), ReadU32(code, pc+5))
		case OpGetField, OpSetField:
			fmt.Fprintf(&b, " name=%d class=%d slot=%d", ReadU32(code, pc+1), ReadU32(code, pc+5), ReadU32(code, pc+9))
		case OpCallDirect, OpCallPC:
			fmt.Fprintf(&b, " pc=%d fun=%d locals=%d argc=%d",
				ReadU32(code, pc+1), ReadU32(code, pc+5), ReadU32(code, pc+9), ReadU32(code, pc+13))
		}
		b.WriteByte('\n')
		pc += size
	}
	return b.String()
}
