package machine

import "github.com/dolthub/swiss"

// String is an immutable byte sequence. Concatenation always allocates a
// fresh String; there is no in-place mutation path in the opcode set.
type String struct {
	Bytes []byte
}

func (s *String) Data() []byte { return s.Bytes }

// ByteArray is a contiguous, growable, arena-backed buffer of raw bytes.
// Growth doubles capacity; the old backing array is simply leaked, exactly
// like Array, since the arena never frees.
type ByteArray struct {
	Bytes []byte
}

// Array is a contiguous, growable, arena-backed list of Values.
type Array struct {
	Elems []Value
}

func (a *Array) Push(v Value) { a.Elems = append(a.Elems, v) }

// Dict is a hash map keyed by Value, backed by github.com/dolthub/swiss,
// exactly as the teacher's lang/machine/map.go wraps the same library.
// It has the same identity/copy semantics as Object: compared and hashed
// by address, copied by the deep-copy engine like any other heap value.
type Dict struct {
	m *swiss.Map[Value, Value]
}

func NewDict(size int) *Dict { return &Dict{m: swiss.NewMap[Value, Value](uint32(size))} }

func (d *Dict) Get(k Value) (Value, bool) { return d.m.Get(k) }
func (d *Dict) Set(k, v Value)             { d.m.Put(k, v) }
func (d *Dict) Len() int                   { return int(d.m.Count()) }
func (d *Dict) Each(f func(k, v Value))    { d.m.Iter(func(k, v Value) bool { f(k, v); return false }) }

// Object is a class instance: a fixed-size slot vector, one slot per
// field, indexed per the resolver's class field-slot assignment.
type Object struct {
	ClassID uint32
	Slots   []Value
}

// Closure pairs a function id with the vector of values it captured. Slot
// i holds whatever was pushed for capture index i at clos_new/clos_set
// time: a plain value for an immutable capture, a *Cell pointer for a
// mutable one.
type Closure struct {
	FunID uint32
	Slots []Value
}

// Cell is a one-value box backing a mutable local that escapes into a
// nested closure. The owning frame's local slot holds the Cell itself
// (as a Value wrapping this pointer); reads/writes by the owner and by
// any capturing closure all go through the same Cell.
type Cell struct {
	Value Value
}
