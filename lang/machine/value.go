// Package machine implements the tagged-union value representation, the
// per-actor bump arena, and the bytecode interpreter that executes the
// instructions lang/compiler emits.
package machine

import (
	"fmt"
	"math"
)

// Tag identifies the variant of a Value.
type Tag uint8

const (
	TagUndef Tag = iota
	TagNil
	TagBool
	TagInt64
	TagFloat64
	TagFunID
	TagHostFn
	TagClassID
	TagString
	TagClosure
	TagCell
	TagObject
	TagArray
	TagByteArray
	TagDict
)

func (t Tag) String() string {
	switch t {
	case TagUndef:
		return "undef"
	case TagNil:
		return "nil"
	case TagBool:
		return "bool"
	case TagInt64:
		return "int64"
	case TagFloat64:
		return "float64"
	case TagFunID:
		return "fun"
	case TagHostFn:
		return "host_fn"
	case TagClassID:
		return "class"
	case TagString:
		return "string"
	case TagClosure:
		return "closure"
	case TagCell:
		return "cell"
	case TagObject:
		return "object"
	case TagArray:
		return "array"
	case TagByteArray:
		return "bytearray"
	case TagDict:
		return "dict"
	default:
		return "illegal"
	}
}

// Value is the tagged union every opcode pushes/pops. Immediate variants
// (Undef, Nil, Bool, Int64, Float64, FunId, ClassId) carry their payload
// inline in num; HostFn, also treated as immediate, carries its *HostFn in
// ptr; heap-referencing variants carry a pointer into some actor's arena
// in ptr. A Value is plain data: copying it copies the tag and payload,
// never the pointee.
type Value struct {
	tag Tag
	num uint64 // bool/int64 bits/float64 bits/fun id/class id
	ptr any    // *String, *Array, *ByteArray, *Object, *Closure, *Cell, *Dict, *HostFn
}

var (
	Undef = Value{tag: TagUndef}
	Nil   = Value{tag: TagNil}
	True  = Value{tag: TagBool, num: 1}
	False = Value{tag: TagBool, num: 0}
)

func Int64(i int64) Value     { return Value{tag: TagInt64, num: uint64(i)} }
func Float64(f float64) Value { return Value{tag: TagFloat64, num: math.Float64bits(f)} }
func Bool(b bool) Value {
	if b {
		return True
	}
	return False
}
func FunID(id uint32) Value   { return Value{tag: TagFunID, num: uint64(id)} }
func ClassID(id uint32) Value { return Value{tag: TagClassID, num: uint64(id)} }

// HostFn is the Go-side implementation of a host function. Fn receives the
// Runtime of the actor the call executes under.
type HostFn struct {
	Name  string
	Arity int
	Fn    func(rt Runtime, args []Value) (Value, error)
}

func HostFnValue(h *HostFn) Value { return Value{tag: TagHostFn, ptr: h} }

func heapValue(tag Tag, ptr any) Value { return Value{tag: tag, ptr: ptr} }

// Wrap* construct a Value around an already-allocated heap object,
// exported for lang/deepcopy (which allocates objects directly through
// Arena's New* methods while walking a source graph).
func WrapString(s *String) Value       { return heapValue(TagString, s) }
func WrapByteArray(b *ByteArray) Value { return heapValue(TagByteArray, b) }
func WrapArray(a *Array) Value         { return heapValue(TagArray, a) }
func WrapDict(d *Dict) Value           { return heapValue(TagDict, d) }
func WrapObject(o *Object) Value       { return heapValue(TagObject, o) }
func WrapClosure(c *Closure) Value     { return heapValue(TagClosure, c) }
func WrapCell(c *Cell) Value           { return heapValue(TagCell, c) }

func (v Value) Tag() Tag { return v.tag }
func (v Value) IsUndef() bool { return v.tag == TagUndef }
func (v Value) IsNil() bool   { return v.tag == TagNil }

func (v Value) AsBool() bool       { return v.num != 0 }
func (v Value) AsInt64() int64     { return int64(v.num) }
func (v Value) AsFloat64() float64 { return math.Float64frombits(v.num) }
func (v Value) AsFunID() uint32    { return uint32(v.num) }
func (v Value) AsClassID() uint32  { return uint32(v.num) }
func (v Value) AsHostFn() *HostFn  { return v.ptr.(*HostFn) }
func (v Value) AsString() *String { return v.ptr.(*String) }
func (v Value) AsArray() *Array   { return v.ptr.(*Array) }
func (v Value) AsByteArray() *ByteArray { return v.ptr.(*ByteArray) }
func (v Value) AsObject() *Object { return v.ptr.(*Object) }
func (v Value) AsClosure() *Closure { return v.ptr.(*Closure) }
func (v Value) AsCell() *Cell     { return v.ptr.(*Cell) }
func (v Value) AsDict() *Dict     { return v.ptr.(*Dict) }

// Ptr returns the heap pointer carried by a heap-referencing value, or nil
// for an immediate. Used by the deep-copy engine and by pointer-identity
// equality, uniformly across heap kinds.
func (v Value) Ptr() any {
	switch v.tag {
	case TagString, TagClosure, TagCell, TagObject, TagArray, TagByteArray, TagDict:
		return v.ptr
	default:
		return nil
	}
}

// Truth reports the value's boolean coercion: false for False, Nil and
// Undef, true otherwise. The interpreter's if_true/if_false (which also
// implement assert) do not use it: they require a Bool operand and fail on
// any other tag.
func (v Value) Truth() bool {
	switch v.tag {
	case TagBool:
		return v.num != 0
	case TagNil, TagUndef:
		return false
	default:
		return true
	}
}

// Equal implements the language's equality: numeric cross-comparison,
// content comparison for strings, pointer identity for every other heap
// kind, per spec.md §3.
func Equal(a, b Value) bool {
	switch {
	case isNumeric(a.tag) && isNumeric(b.tag):
		return numericEqual(a, b)
	case a.tag == TagString && b.tag == TagString:
		return string(a.AsString().Data()) == string(b.AsString().Data())
	case a.tag != b.tag:
		return false
	default:
		switch a.tag {
		case TagNil, TagUndef:
			return true
		case TagBool:
			return a.num == b.num
		case TagFunID, TagClassID:
			return a.num == b.num
		case TagHostFn:
			return a.ptr.(*HostFn) == b.ptr.(*HostFn)
		default:
			return a.Ptr() == b.Ptr()
		}
	}
}

func isNumeric(t Tag) bool { return t == TagInt64 || t == TagFloat64 }

func numericEqual(a, b Value) bool {
	af, bf := numericToFloat(a), numericToFloat(b)
	return af == bf
}

func numericToFloat(v Value) float64 {
	if v.tag == TagInt64 {
		return float64(v.AsInt64())
	}
	return v.AsFloat64()
}

// Compare orders two numeric or string values; it is a fatal error (not
// handled here) to compare any other combination, per §4.3.
func Compare(a, b Value) (int, bool) {
	if isNumeric(a.tag) && isNumeric(b.tag) {
		af, bf := numericToFloat(a), numericToFloat(b)
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}
	if a.tag == TagString && b.tag == TagString {
		as, bs := string(a.AsString().Data()), string(b.AsString().Data())
		switch {
		case as < bs:
			return -1, true
		case as > bs:
			return 1, true
		default:
			return 0, true
		}
	}
	return 0, false
}

func (v Value) String() string {
	switch v.tag {
	case TagUndef:
		return "<undef>"
	case TagNil:
		return "nil"
	case TagBool:
		return fmt.Sprintf("%v", v.AsBool())
	case TagInt64:
		return fmt.Sprintf("%d", v.AsInt64())
	case TagFloat64:
		return fmt.Sprintf("%g", v.AsFloat64())
	case TagFunID:
		return fmt.Sprintf("<fun %d>", v.AsFunID())
	case TagHostFn:
		return fmt.Sprintf("<host_fn %s>", v.AsHostFn().Name)
	case TagClassID:
		return fmt.Sprintf("<class %d>", v.AsClassID())
	case TagString:
		return string(v.AsString().Data())
	case TagClosure:
		return fmt.Sprintf("<closure fun=%d>", v.AsClosure().FunID)
	case TagCell:
		return fmt.Sprintf("<cell %s>", v.AsCell().Value.String())
	case TagObject:
		return fmt.Sprintf("<object class=%d>", v.AsObject().ClassID)
	case TagArray:
		return fmt.Sprintf("<array len=%d>", len(v.AsArray().Elems))
	case TagByteArray:
		return fmt.Sprintf("<bytearray len=%d>", len(v.AsByteArray().Bytes))
	case TagDict:
		return fmt.Sprintf("<dict len=%d>", v.AsDict().Len())
	default:
		return "<illegal>"
	}
}
