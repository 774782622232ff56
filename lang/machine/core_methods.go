package machine

import (
	"fmt"
	"math"

	"github.com/mna/glade/lang/resolver"
	"github.com/mna/glade/lang/token"
)

// Core-type methods consulted by call_method on a non-object receiver,
// per §4.7: Int64.to_s, Array.push/with_size, ByteArray.with_size,
// Float64.sqrt, String.len, and a handful of companions in the same
// idiom, registered once at package init.

func init() {
	registerCoreMethod(resolver.ClassInt64ID, "to_s", func(rt Runtime, fset *token.FileSet, recv Value, args []Value) (Value, error) {
		s, err := allocString(rt, fmt.Sprintf("%d", recv.AsInt64()))
		return s, err
	})
	registerCoreMethod(resolver.ClassFloat64ID, "to_s", func(rt Runtime, fset *token.FileSet, recv Value, args []Value) (Value, error) {
		return allocString(rt, fmt.Sprintf("%g", recv.AsFloat64()))
	})
	registerCoreMethod(resolver.ClassFloat64ID, "sqrt", func(rt Runtime, fset *token.FileSet, recv Value, args []Value) (Value, error) {
		return Float64(math.Sqrt(recv.AsFloat64())), nil
	})
	registerCoreMethod(resolver.ClassStringID, "len", func(rt Runtime, fset *token.FileSet, recv Value, args []Value) (Value, error) {
		return Int64(int64(len(recv.AsString().Data()))), nil
	})
	registerCoreMethod(resolver.ClassStringID, "to_s", func(rt Runtime, fset *token.FileSet, recv Value, args []Value) (Value, error) {
		return recv, nil
	})
	registerCoreMethod(resolver.ClassArrayID, "len", func(rt Runtime, fset *token.FileSet, recv Value, args []Value) (Value, error) {
		return Int64(int64(len(recv.AsArray().Elems))), nil
	})
	registerCoreMethod(resolver.ClassArrayID, "push", func(rt Runtime, fset *token.FileSet, recv Value, args []Value) (Value, error) {
		if len(args) != 1 {
			return Value{}, fmt.Errorf("Array.push: expected 1 arg, got %d", len(args))
		}
		if err := rt.Arena().GrowArray(recv.AsArray(), args[0]); err != nil {
			return Value{}, err
		}
		return Nil, nil
	})
	registerCoreMethod(resolver.ClassArrayID, "pop", func(rt Runtime, fset *token.FileSet, recv Value, args []Value) (Value, error) {
		a := recv.AsArray()
		if len(a.Elems) == 0 {
			return Nil, nil
		}
		last := a.Elems[len(a.Elems)-1]
		a.Elems = a.Elems[:len(a.Elems)-1]
		return last, nil
	})
	registerCoreMethod(resolver.ClassArrayID, "with_size", func(rt Runtime, fset *token.FileSet, recv Value, args []Value) (Value, error) {
		if len(args) != 1 || args[0].Tag() != TagInt64 {
			return Value{}, fmt.Errorf("Array.with_size: expected 1 int64 arg")
		}
		arr, err := rt.Arena().NewArrayWithSize(int(args[0].AsInt64()))
		if err != nil {
			return Value{}, err
		}
		return heapValue(TagArray, arr), nil
	})
	registerCoreMethod(resolver.ClassByteArrayID, "len", func(rt Runtime, fset *token.FileSet, recv Value, args []Value) (Value, error) {
		return Int64(int64(len(recv.AsByteArray().Bytes))), nil
	})
	registerCoreMethod(resolver.ClassByteArrayID, "with_size", func(rt Runtime, fset *token.FileSet, recv Value, args []Value) (Value, error) {
		if len(args) != 1 || args[0].Tag() != TagInt64 {
			return Value{}, fmt.Errorf("ByteArray.with_size: expected 1 int64 arg")
		}
		b, err := rt.Arena().NewByteArrayWithSize(int(args[0].AsInt64()))
		if err != nil {
			return Value{}, err
		}
		return heapValue(TagByteArray, b), nil
	})
	registerCoreMethod(ClassDictID, "len", func(rt Runtime, fset *token.FileSet, recv Value, args []Value) (Value, error) {
		return Int64(int64(recv.AsDict().Len())), nil
	})
}

func allocString(rt Runtime, s string) (Value, error) {
	str, err := rt.Arena().NewString([]byte(s))
	if err != nil {
		return Value{}, err
	}
	return heapValue(TagString, str), nil
}
