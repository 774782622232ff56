package compiler

import (
	"encoding/binary"
	"math"
)

// asm appends fixed-width encoded instructions to a shared byte buffer
// (an actor's instruction buffer). Every write method returns the buffer
// offset it wrote to, used by callers that need to back-patch later.
type asm struct {
	code *[]byte
}

func (a asm) pos() int { return len(*a.code) }

func (a asm) op(op Opcode) int {
	p := a.pos()
	*a.code = append(*a.code, byte(op))
	return p
}

func (a asm) u32(v uint32) int {
	p := a.pos()
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	*a.code = append(*a.code, buf[:]...)
	return p
}

func (a asm) i32(v int32) int { return a.u32(uint32(v)) }

func (a asm) u64(v uint64) int {
	p := a.pos()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	*a.code = append(*a.code, buf[:]...)
	return p
}

func (a asm) i64(v int64) int { return a.u64(uint64(v)) }

func (a asm) f64(v float64) int { return a.u64(math.Float64bits(v)) }

func (a asm) patchU32(at int, v uint32) {
	binary.LittleEndian.PutUint32((*a.code)[at:at+4], v)
}

func (a asm) patchI32(at int, v int32) { a.patchU32(at, uint32(v)) }

func readU32(code []byte, at int) uint32 { return binary.LittleEndian.Uint32(code[at : at+4]) }
func readI32(code []byte, at int) int32  { return int32(readU32(code, at)) }
func readU64(code []byte, at int) uint64 { return binary.LittleEndian.Uint64(code[at : at+8]) }
func readI64(code []byte, at int) int64  { return int64(readU64(code, at)) }
func readF64(code []byte, at int) float64 { return math.Float64frombits(readU64(code, at)) }

// ReadU32/ReadI32/ReadU64/ReadI64/ReadF64/PatchU32 are the exported forms
// of the decoders above, used by lang/machine's interpreter to decode
// operands and to self-patch call_direct/get_field/set_field in place.
func ReadU32(code []byte, at int) uint32  { return readU32(code, at) }
func ReadI32(code []byte, at int) int32   { return readI32(code, at) }
func ReadU64(code []byte, at int) uint64  { return readU64(code, at) }
func ReadI64(code []byte, at int) int64   { return readI64(code, at) }
func ReadF64(code []byte, at int) float64 { return readF64(code, at) }

func PatchU32(code []byte, at int, v uint32) { binary.LittleEndian.PutUint32(code[at:at+4], v) }
