package machine

import (
	"golang.org/x/exp/slices"

	"github.com/mna/glade/lang/compiler"
	"github.com/mna/glade/lang/resolver"
	"github.com/mna/glade/lang/token"
)

// Interp is one actor's private execution state: its own instruction
// buffer (grown lazily as functions are first called), its own value and
// frame stacks, its own function-compilation cache, and its own globals
// vector. Only Prog (the resolved AST + constant pool) and the class
// registry are shared read-only across actors, per §4.6/§9.
type Interp struct {
	Prog  *Program
	Arena *Arena
	Rt    Runtime
	Fset  *token.FileSet
	Hosts map[string]*HostFn

	Globals []Value

	code      []byte
	funcCache map[uint32]compiledFunc

	stack  []Value
	frames []Frame
}

// NewInterp creates a fresh per-actor interpreter. globals is the actor's
// own globals vector (already deep-copied for a spawned actor, or freshly
// zero-valued for the initial actor).
func NewInterp(prog *Program, arena *Arena, rt Runtime, fset *token.FileSet, hosts map[string]*HostFn, globals []Value) *Interp {
	return &Interp{
		Prog:      prog,
		Arena:     arena,
		Rt:        rt,
		Fset:      fset,
		Hosts:     hosts,
		Globals:   globals,
		funcCache: map[uint32]compiledFunc{},
	}
}

func (in *Interp) errf(format string, args ...any) error {
	actorID := uint32(0)
	if in.Rt != nil {
		actorID = in.Rt.ActorID()
	}
	return newRuntimeErr(actorID, format, args...)
}

func (in *Interp) errAt(pos token.Pos, format string, args ...any) error {
	actorID := uint32(0)
	if in.Rt != nil {
		actorID = in.Rt.ActorID()
	}
	e := newRuntimeErr(actorID, format, args...)
	if in.Fset != nil {
		e.Pos = in.Fset.Position(pos)
	}
	return e
}

// ensureCompiled lazily lowers fn's AST to bytecode on first call inside
// this actor, appending to the actor's private instruction buffer, and
// caches the result by function id (§2, §4.2).
func (in *Interp) ensureCompiled(funID uint32) (compiledFunc, error) {
	if cf, ok := in.funcCache[funID]; ok {
		return cf, nil
	}
	fn, ok := in.Prog.Resolved.Funs[funID]
	if !ok {
		return compiledFunc{}, in.errf("call to unknown function id %d", funID)
	}
	entryPC, numParams, numLocals := compiler.Compile(fn, in.Prog.Pool, &in.code)
	cf := compiledFunc{entryPC: entryPC, numParams: numParams, numLocals: numLocals}
	in.funcCache[funID] = cf
	return cf, nil
}

// Call runs funID (the unit function, or any top-level entry point) with
// args and returns its result, per the Actor's run()/the CLI driver.
func (in *Interp) Call(funID uint32, args []Value) (Value, error) {
	cf, err := in.ensureCompiled(funID)
	if err != nil {
		return Value{}, err
	}
	if len(args) != cf.numParams {
		return Value{}, in.errf("call to function %d: expected %d args, got %d", funID, cf.numParams, len(args))
	}
	in.stack = append(in.stack, args...)
	in.frames = append(in.frames, Frame{
		FunID: funID, ArgC: len(args), BP: len(in.stack), RetPC: -1, PrevFrame: -1,
	})
	return in.run(cf.entryPC)
}

func (in *Interp) curFrame() *Frame { return &in.frames[len(in.frames)-1] }

func (in *Interp) push(v Value) { in.stack = append(in.stack, v) }

func (in *Interp) pop() Value {
	v := in.stack[len(in.stack)-1]
	in.stack = in.stack[:len(in.stack)-1]
	return v
}

func (in *Interp) popN(n int) []Value {
	v := append([]Value(nil), in.stack[len(in.stack)-n:]...)
	in.stack = in.stack[:len(in.stack)-n]
	return v
}

// run executes starting at pc until the outermost frame returns, and
// yields its return value.
func (in *Interp) run(pc int) (Value, error) {
	baseFrame := len(in.frames) - 1

	for {
		// in.code may have grown (lazy compilation of a function called on a
		// previous iteration, or earlier this iteration); re-read the slice
		// header every time rather than caching it across a potential append.
		code := in.code
		op := compiler.Opcode(code[pc])
		opStart := pc
		pc++

		switch op {
		case compiler.OpPushNil:
			in.push(Nil)
		case compiler.OpPushUndef:
			in.push(Undef)
		case compiler.OpPushTrue:
			in.push(True)
		case compiler.OpPushFalse:
			in.push(False)
		case compiler.OpPushInt:
			in.push(Int64(compiler.ReadI64(code, pc)))
			pc += 8
		case compiler.OpPushFloat:
			in.push(Float64(compiler.ReadF64(code, pc)))
			pc += 8
		case compiler.OpPushStr:
			idx := compiler.ReadU32(code, pc)
			pc += 4
			s, err := in.Arena.NewString([]byte(in.Prog.Pool.Strings[idx]))
			if err != nil {
				return Value{}, in.errf("%s", err)
			}
			in.push(heapValue(TagString, s))
		case compiler.OpPushBytes:
			idx := compiler.ReadU32(code, pc)
			pc += 4
			b, err := in.Arena.NewByteArray([]byte(in.Prog.Pool.Strings[idx]))
			if err != nil {
				return Value{}, in.errf("%s", err)
			}
			in.push(heapValue(TagByteArray, b))
		case compiler.OpPushFun:
			in.push(FunID(compiler.ReadU32(code, pc)))
			pc += 4
		case compiler.OpPushHost:
			idx := compiler.ReadU32(code, pc)
			pc += 4
			name := in.Prog.Pool.Names[idx]
			h, ok := in.Hosts[name]
			if !ok {
				return Value{}, in.errf("undefined host function %q", name)
			}
			in.push(HostFnValue(h))
		case compiler.OpPushClass:
			in.push(ClassID(compiler.ReadU32(code, pc)))
			pc += 4

		case compiler.OpPop:
			in.pop()
		case compiler.OpDup:
			in.push(in.stack[len(in.stack)-1])
		case compiler.OpSwap:
			n := len(in.stack)
			in.stack[n-1], in.stack[n-2] = in.stack[n-2], in.stack[n-1]
		case compiler.OpGetN:
			k := compiler.ReadU32(code, pc)
			pc += 4
			in.push(in.stack[len(in.stack)-1-int(k)])

		case compiler.OpGetArg:
			idx := int(compiler.ReadU32(code, pc))
			pc += 4
			f := in.curFrame()
			in.push(in.stack[f.BP-f.ArgC+idx])
		case compiler.OpSetArg:
			idx := int(compiler.ReadU32(code, pc))
			pc += 4
			f := in.curFrame()
			in.stack[f.BP-f.ArgC+idx] = in.pop()
		case compiler.OpGetLocal:
			idx := int(compiler.ReadU32(code, pc))
			pc += 4
			in.push(in.stack[in.curFrame().BP+idx])
		case compiler.OpSetLocal:
			idx := int(compiler.ReadU32(code, pc))
			pc += 4
			in.stack[in.curFrame().BP+idx] = in.pop()
		case compiler.OpGetGlobal:
			idx := int(compiler.ReadU32(code, pc))
			pc += 4
			if idx >= len(in.Globals) {
				return Value{}, in.errf("read of undefined global %d", idx)
			}
			v := in.Globals[idx]
			if v.IsUndef() {
				return Value{}, in.errf("read of undefined global %d", idx)
			}
			in.push(v)
		case compiler.OpSetGlobal:
			idx := int(compiler.ReadU32(code, pc))
			pc += 4
			for idx >= len(in.Globals) {
				in.Globals = append(in.Globals, Undef)
			}
			in.Globals[idx] = in.pop()

		case compiler.OpNewCell:
			c, err := in.Arena.NewCell(Nil)
			if err != nil {
				return Value{}, in.errf("%s", err)
			}
			in.push(heapValue(TagCell, c))
		case compiler.OpCellGetLocal:
			idx := int(compiler.ReadU32(code, pc))
			pc += 4
			cell := in.stack[in.curFrame().BP+idx].AsCell()
			in.push(cell.Value)
		case compiler.OpCellSetLocal:
			idx := int(compiler.ReadU32(code, pc))
			pc += 4
			cell := in.stack[in.curFrame().BP+idx].AsCell()
			cell.Value = in.pop()
		case compiler.OpClosGet:
			idx := int(compiler.ReadU32(code, pc))
			pc += 4
			in.push(in.curFrame().Closure.Slots[idx])
		case compiler.OpCellGetClos:
			idx := int(compiler.ReadU32(code, pc))
			pc += 4
			cell := in.curFrame().Closure.Slots[idx].AsCell()
			in.push(cell.Value)
		case compiler.OpCellSetClos:
			idx := int(compiler.ReadU32(code, pc))
			pc += 4
			cell := in.curFrame().Closure.Slots[idx].AsCell()
			cell.Value = in.pop()
		case compiler.OpClosNew:
			funID := compiler.ReadU32(code, pc)
			n := int(compiler.ReadU32(code, pc+4))
			pc += 8
			cl, err := in.Arena.NewClosure(funID, n)
			if err != nil {
				return Value{}, in.errf("%s", err)
			}
			in.push(heapValue(TagClosure, cl))
		case compiler.OpClosSet:
			idx := int(compiler.ReadU32(code, pc))
			pc += 4
			v := in.pop()
			in.stack[len(in.stack)-1].AsClosure().Slots[idx] = v

		case compiler.OpAdd, compiler.OpSub, compiler.OpMul, compiler.OpDiv,
			compiler.OpDivInt, compiler.OpMod:
			b := in.pop()
			a := in.pop()
			v, err := in.arith(op, a, b)
			if err != nil {
				return Value{}, err
			}
			in.push(v)
		case compiler.OpAddI64:
			c := compiler.ReadI32(code, pc)
			pc += 4
			a := in.pop()
			if a.Tag() != TagInt64 {
				return Value{}, in.errf("add_i64: operand is not an int64")
			}
			in.push(Int64(a.AsInt64() + int64(c)))

		case compiler.OpBitAnd, compiler.OpBitOr, compiler.OpBitXor,
			compiler.OpLShift, compiler.OpRShift:
			b := in.pop()
			a := in.pop()
			v, err := in.bitwise(op, a, b)
			if err != nil {
				return Value{}, err
			}
			in.push(v)

		case compiler.OpLt, compiler.OpLe, compiler.OpGt, compiler.OpGe:
			b := in.pop()
			a := in.pop()
			cmp, ok := Compare(a, b)
			if !ok {
				return Value{}, in.errf("cannot order %s and %s", a.Tag(), b.Tag())
			}
			in.push(Bool(compareOK(op, cmp)))
		case compiler.OpEq:
			b := in.pop()
			a := in.pop()
			in.push(Bool(Equal(a, b)))
		case compiler.OpNe:
			b := in.pop()
			a := in.pop()
			in.push(Bool(!Equal(a, b)))
		case compiler.OpNot:
			a := in.pop()
			if a.Tag() != TagBool {
				return Value{}, in.errf("not: operand is not a bool")
			}
			in.push(Bool(!a.AsBool()))

		case compiler.OpIfTrue:
			off := compiler.ReadI32(code, pc)
			pc += 4
			v := in.pop()
			if v.Tag() != TagBool {
				return Value{}, in.errf("if_true: operand is not a bool")
			}
			if v.AsBool() {
				pc += int(off)
			}
		case compiler.OpIfFalse:
			off := compiler.ReadI32(code, pc)
			pc += 4
			v := in.pop()
			if v.Tag() != TagBool {
				return Value{}, in.errf("if_false: operand is not a bool")
			}
			if !v.AsBool() {
				pc += int(off)
			}
		case compiler.OpJump:
			off := compiler.ReadI32(code, pc)
			pc += 4
			pc += int(off)
		case compiler.OpPanic:
			pos := token.Pos(compiler.ReadU32(code, pc))
			pc += 4
			return Value{}, in.errAt(pos, "assertion failed")

		case compiler.OpRet:
			retVal := in.pop()
			if len(in.frames)-1 == baseFrame {
				in.frames = in.frames[:baseFrame]
				return retVal, nil
			}
			f := in.frames[len(in.frames)-1]
			in.stack = in.stack[:f.BP-f.ArgC]
			in.frames = in.frames[:len(in.frames)-1]
			in.push(retVal)
			pc = f.RetPC
			code = in.code

		case compiler.OpNew:
			classID := compiler.ReadU32(code, pc)
			argc := int(compiler.ReadU32(code, pc+4))
			pc += 8
			args := in.popN(argc)
			v, err := in.newObject(classID, args)
			if err != nil {
				return Value{}, err
			}
			in.push(v)
		case compiler.OpInstanceOf:
			classID := compiler.ReadU32(code, pc)
			pc += 4
			v := in.pop()
			in.push(Bool(ClassOf(v) == classID))
		case compiler.OpGetField:
			nameIdx := compiler.ReadU32(code, pc)
			cachedClass := compiler.ReadU32(code, pc+4)
			cachedSlot := compiler.ReadU32(code, pc+8)
			obj := in.pop()
			if obj.Tag() != TagObject {
				return Value{}, in.errf("get_field: receiver is not an object")
			}
			o := obj.AsObject()
			slot, err := in.resolveFieldSlot(code, opStart, nameIdx, cachedClass, cachedSlot, o.ClassID)
			if err != nil {
				return Value{}, err
			}
			v := o.Slots[slot]
			if v.IsUndef() {
				return Value{}, in.errf("read of undefined field %q", in.Prog.Pool.Names[nameIdx])
			}
			in.push(v)
			pc += 12
		case compiler.OpSetField:
			nameIdx := compiler.ReadU32(code, pc)
			cachedClass := compiler.ReadU32(code, pc+4)
			cachedSlot := compiler.ReadU32(code, pc+8)
			val := in.pop()
			obj := in.pop()
			if obj.Tag() != TagObject {
				return Value{}, in.errf("set_field: receiver is not an object")
			}
			o := obj.AsObject()
			slot, err := in.resolveFieldSlot(code, opStart, nameIdx, cachedClass, cachedSlot, o.ClassID)
			if err != nil {
				return Value{}, err
			}
			o.Slots[slot] = val
			pc += 12

		case compiler.OpArrayNew:
			argc := int(compiler.ReadU32(code, pc))
			pc += 4
			elems := in.popN(argc)
			arr, err := in.Arena.NewArray(elems)
			if err != nil {
				return Value{}, in.errf("%s", err)
			}
			in.push(heapValue(TagArray, arr))
		case compiler.OpDictNew:
			argc := int(compiler.ReadU32(code, pc))
			pc += 4
			kv := in.popN(argc * 2)
			d, err := in.Arena.NewDict(argc)
			if err != nil {
				return Value{}, in.errf("%s", err)
			}
			for i := 0; i < len(kv); i += 2 {
				d.Set(kv[i], kv[i+1])
			}
			in.push(heapValue(TagDict, d))
		case compiler.OpGetIndex:
			idx := in.pop()
			prefix := in.pop()
			v, err := in.getIndex(prefix, idx)
			if err != nil {
				return Value{}, err
			}
			in.push(v)
		case compiler.OpSetIndex:
			val := in.pop()
			idx := in.pop()
			prefix := in.pop()
			if err := in.setIndex(prefix, idx, val); err != nil {
				return Value{}, err
			}

		case compiler.OpCall:
			argc := int(compiler.ReadU32(code, pc))
			pc += 4
			callee := in.pop()
			npc, err := in.dispatchCall(callee, argc, pc)
			if err != nil {
				return Value{}, err
			}
			if npc >= 0 {
				pc = npc
			}
		case compiler.OpCallDirect:
			funID := compiler.ReadU32(code, pc+4)
			argc := int(compiler.ReadU32(code, pc+12))
			cf, err := in.ensureCompiled(funID)
			if err != nil {
				return Value{}, err
			}
			code = in.code // ensureCompiled may have grown the instruction buffer
			code[opStart] = byte(compiler.OpCallPC)
			compiler.PatchU32(code, opStart+1, cf.entryPC)
			compiler.PatchU32(code, opStart+9, uint32(cf.numLocals))
			if err := in.pushCallFrame(funID, nil, argc, cf.numParams, pc+16); err != nil {
				return Value{}, err
			}
			pc = int(cf.entryPC)
		case compiler.OpCallPC:
			entryPC := compiler.ReadU32(code, pc)
			funID := compiler.ReadU32(code, pc+4)
			argc := int(compiler.ReadU32(code, pc+12))
			fn := in.Prog.Resolved.Funs[funID]
			if err := in.pushCallFrame(funID, nil, argc, len(fn.Params), pc+16); err != nil {
				return Value{}, err
			}
			pc = int(entryPC)
		case compiler.OpCallMethod:
			nameIdx := compiler.ReadU32(code, pc)
			argc := int(compiler.ReadU32(code, pc+4))
			pc += 8
			name := in.Prog.Pool.Names[nameIdx]
			npc, err := in.callMethod(name, argc, pc)
			if err != nil {
				return Value{}, err
			}
			if npc >= 0 {
				pc = npc
			}

		default:
			return Value{}, in.errf("illegal opcode %d", op)
		}
	}
}

func compareOK(op compiler.Opcode, cmp int) bool {
	switch op {
	case compiler.OpLt:
		return cmp < 0
	case compiler.OpLe:
		return cmp <= 0
	case compiler.OpGt:
		return cmp > 0
	case compiler.OpGe:
		return cmp >= 0
	default:
		return false
	}
}

// sortedFieldNames lists a class's field names in a stable order, so a
// "no such field" error reads the same across runs regardless of the
// registry map's iteration order.
func sortedFieldNames(class *resolver.Class) []string {
	names := make([]string, 0, len(class.Fields))
	for name := range class.Fields {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// resolveFieldSlot consults the inline cache for a get_field/set_field
// instruction at opStart, re-resolving (and rewriting the cache in place)
// on a miss, per §4.3's monomorphic inline-cache contract.
func (in *Interp) resolveFieldSlot(code []byte, opStart int, nameIdx, cachedClass, cachedSlot, actualClass uint32) (int, error) {
	if cachedClass == actualClass && cachedClass != 0 {
		return int(cachedSlot), nil
	}
	class, ok := in.Prog.Resolved.Classes[actualClass]
	if !ok {
		return 0, in.errf("class %d has no fields", actualClass)
	}
	name := in.Prog.Pool.Names[nameIdx]
	slot, ok := class.Fields[name]
	if !ok {
		return 0, in.errf("no such field %q on class %d, have %v", name, actualClass, sortedFieldNames(class))
	}
	compiler.PatchU32(code, opStart+5, actualClass)
	compiler.PatchU32(code, opStart+9, uint32(slot))
	return slot, nil
}

func (in *Interp) pushCallFrame(funID uint32, closure *Closure, argc, numParams, retPC int) error {
	if argc != numParams {
		fn := in.Prog.Resolved.Funs[funID]
		if !fn.VarArg || argc < numParams-1 {
			return in.errf("call to %s: expected %d args, got %d", fn.Name, numParams, argc)
		}
	}
	in.frames = append(in.frames, Frame{
		FunID: funID, Closure: closure, ArgC: argc, BP: len(in.stack), RetPC: retPC, PrevFrame: len(in.frames) - 1,
	})
	return nil
}

// dispatchCall handles the generic `call argc` opcode, whose callee value
// (on TOS, already popped by the caller) may be a HostFn, a plain FunId,
// or a Closure.
func (in *Interp) dispatchCall(callee Value, argc int, retPC int) (int, error) {
	switch callee.Tag() {
	case TagHostFn:
		h := callee.AsHostFn()
		args := in.popN(argc)
		if h.Arity != argc {
			return -1, in.errf("host function %q: expected %d args, got %d", h.Name, h.Arity, argc)
		}
		v, err := h.Fn(in.Rt, args)
		if err != nil {
			return -1, in.errf("host function %q: %s", h.Name, err)
		}
		in.push(v)
		return -1, nil
	case TagFunID:
		funID := callee.AsFunID()
		cf, err := in.ensureCompiled(funID)
		if err != nil {
			return -1, err
		}
		if err := in.pushCallFrame(funID, nil, argc, cf.numParams, retPC); err != nil {
			return -1, err
		}
		return int(cf.entryPC), nil
	case TagClosure:
		cl := callee.AsClosure()
		cf, err := in.ensureCompiled(cl.FunID)
		if err != nil {
			return -1, err
		}
		if err := in.pushCallFrame(cl.FunID, cl, argc, cf.numParams, retPC); err != nil {
			return -1, err
		}
		return int(cf.entryPC), nil
	default:
		return -1, in.errf("call: value of type %s is not callable", callee.Tag())
	}
}

func (in *Interp) callMethod(name string, argc int, retPC int) (int, error) {
	recvIdx := len(in.stack) - argc - 1
	recv := in.stack[recvIdx]
	if recv.Tag() == TagObject {
		o := recv.AsObject()
		class := in.Prog.Resolved.Classes[o.ClassID]
		if funID, ok := class.Methods[name]; ok {
			args := in.popN(argc)
			in.pop() // receiver
			in.push(recv)
			in.stack = append(in.stack, args...)
			cf, err := in.ensureCompiled(funID)
			if err != nil {
				return -1, err
			}
			if err := in.pushCallFrame(funID, nil, argc+1, cf.numParams, retPC); err != nil {
				return -1, err
			}
			return int(cf.entryPC), nil
		}
	}
	classID := ClassOf(recv)
	m, ok := LookupCoreMethod(classID, name)
	if !ok {
		return -1, in.errf("no such method %q on %s", name, recv.Tag())
	}
	args := in.popN(argc)
	in.pop() // receiver
	v, err := m(in.Rt, in.Fset, recv, args)
	if err != nil {
		return -1, in.errf("%s", err)
	}
	in.push(v)
	return -1, nil
}

func (in *Interp) newObject(classID uint32, args []Value) (Value, error) {
	class, ok := in.Prog.Resolved.Classes[classID]
	if !ok {
		return Value{}, in.errf("unknown class %d", classID)
	}
	obj, err := in.Arena.NewObject(classID, len(class.Fields))
	if err != nil {
		return Value{}, in.errf("%s", err)
	}
	for name, slot := range class.Fields {
		_ = name
		obj.Slots[slot] = Undef
	}
	if initID, ok := class.Methods["init"]; ok {
		v := heapValue(TagObject, obj)
		cf, err := in.ensureCompiled(initID)
		if err != nil {
			return Value{}, err
		}
		in.push(v)
		in.stack = append(in.stack, args...)
		retPC := -1
		if err := in.pushCallFrame(initID, nil, len(args)+1, cf.numParams, retPC); err != nil {
			return Value{}, err
		}
		if _, err := in.run(int(cf.entryPC)); err != nil {
			return Value{}, err
		}
	}
	return heapValue(TagObject, obj), nil
}

func (in *Interp) getIndex(prefix, idx Value) (Value, error) {
	switch prefix.Tag() {
	case TagArray:
		a := prefix.AsArray()
		i := idx.AsInt64()
		if idx.Tag() != TagInt64 || i < 0 || int(i) >= len(a.Elems) {
			return Value{}, in.errf("array index out of range")
		}
		return a.Elems[i], nil
	case TagByteArray:
		b := prefix.AsByteArray()
		i := idx.AsInt64()
		if idx.Tag() != TagInt64 || i < 0 || int(i) >= len(b.Bytes) {
			return Value{}, in.errf("bytearray index out of range")
		}
		return Int64(int64(b.Bytes[i])), nil
	case TagDict:
		v, ok := prefix.AsDict().Get(idx)
		if !ok {
			return Nil, nil
		}
		return v, nil
	default:
		return Value{}, in.errf("get_index: value of type %s is not indexable", prefix.Tag())
	}
}

func (in *Interp) setIndex(prefix, idx, val Value) error {
	switch prefix.Tag() {
	case TagArray:
		a := prefix.AsArray()
		i := idx.AsInt64()
		if idx.Tag() != TagInt64 || i < 0 || int(i) >= len(a.Elems) {
			return in.errf("array index out of range")
		}
		a.Elems[i] = val
		return nil
	case TagByteArray:
		b := prefix.AsByteArray()
		i := idx.AsInt64()
		if idx.Tag() != TagInt64 || i < 0 || int(i) >= len(b.Bytes) {
			return in.errf("bytearray index out of range")
		}
		if val.Tag() != TagInt64 {
			return in.errf("bytearray element must be an int64")
		}
		b.Bytes[i] = byte(val.AsInt64())
		return nil
	case TagDict:
		prefix.AsDict().Set(idx, val)
		return nil
	default:
		return in.errf("set_index: value of type %s is not indexable", prefix.Tag())
	}
}

func (in *Interp) arith(op compiler.Opcode, a, b Value) (Value, error) {
	if op == compiler.OpAdd && a.Tag() == TagString && b.Tag() == TagString {
		s, err := in.Arena.NewString(append(append([]byte(nil), a.AsString().Data()...), b.AsString().Data()...))
		if err != nil {
			return Value{}, in.errf("%s", err)
		}
		return heapValue(TagString, s), nil
	}
	if !isNumeric(a.tag) || !isNumeric(b.tag) {
		return Value{}, in.errf("arithmetic on non-numeric operand: %s, %s", a.Tag(), b.Tag())
	}
	bothInt := a.tag == TagInt64 && b.tag == TagInt64
	switch op {
	case compiler.OpAdd:
		if bothInt {
			return Int64(a.AsInt64() + b.AsInt64()), nil
		}
		return Float64(numericToFloat(a) + numericToFloat(b)), nil
	case compiler.OpSub:
		if bothInt {
			return Int64(a.AsInt64() - b.AsInt64()), nil
		}
		return Float64(numericToFloat(a) - numericToFloat(b)), nil
	case compiler.OpMul:
		if bothInt {
			return Int64(a.AsInt64() * b.AsInt64()), nil
		}
		return Float64(numericToFloat(a) * numericToFloat(b)), nil
	case compiler.OpDiv:
		if numericToFloat(b) == 0 {
			return Value{}, in.errf("division by zero")
		}
		return Float64(numericToFloat(a) / numericToFloat(b)), nil
	case compiler.OpDivInt:
		if !bothInt {
			return Value{}, in.errf("div_int requires int64 operands")
		}
		if b.AsInt64() == 0 {
			return Value{}, in.errf("division by zero")
		}
		return Int64(a.AsInt64() / b.AsInt64()), nil
	case compiler.OpMod:
		if !bothInt {
			return Value{}, in.errf("modulo requires int64 operands")
		}
		if b.AsInt64() == 0 {
			return Value{}, in.errf("division by zero")
		}
		return Int64(a.AsInt64() % b.AsInt64()), nil
	default:
		return Value{}, in.errf("illegal arithmetic opcode")
	}
}

func (in *Interp) bitwise(op compiler.Opcode, a, b Value) (Value, error) {
	if a.tag != TagInt64 || b.tag != TagInt64 {
		return Value{}, in.errf("bitwise operator requires int64 operands")
	}
	x, y := a.AsInt64(), b.AsInt64()
	switch op {
	case compiler.OpBitAnd:
		return Int64(x & y), nil
	case compiler.OpBitOr:
		return Int64(x | y), nil
	case compiler.OpBitXor:
		return Int64(x ^ y), nil
	case compiler.OpLShift:
		return Int64(x << uint(y)), nil
	case compiler.OpRShift:
		return Int64(x >> uint(y)), nil
	default:
		return Value{}, in.errf("illegal bitwise opcode")
	}
}
