package machine

import (
	"github.com/mna/glade/lang/compiler"
	"github.com/mna/glade/lang/resolver"
)

// ClassDictID is the reserved class id for the Dict core type (§9 domain
// addition; not part of the resolver's user-declarable class space, only
// used by instanceof/the class registry).
const ClassDictID uint32 = 10

// Program is the read-only, cross-actor-shared compiled program: the
// resolver's AST-level Program plus the constant pool built once over it.
// Every actor holds a *Program and lazily lowers individual functions
// into its own private instruction buffer (see Actor/Interp).
type Program struct {
	Resolved *resolver.Program
	Pool     *compiler.Pool
}

// NewProgram builds the shared, read-only program description: resolve
// must already have run.
func NewProgram(resolved *resolver.Program) *Program {
	return &Program{Resolved: resolved, Pool: compiler.BuildPool(resolved)}
}

// compiledFunc records where a lazily-compiled function landed in an
// actor's private instruction buffer.
type compiledFunc struct {
	entryPC   uint32
	numParams int
	numLocals int
}

// ClassOf returns the canonical core ClassId for any runtime value, used
// by instanceof and by the class registry's method lookup on non-object
// receivers, per §4.7.
func ClassOf(v Value) uint32 {
	switch v.Tag() {
	case TagNil, TagUndef:
		return resolver.ClassNilID
	case TagInt64:
		return resolver.ClassInt64ID
	case TagFloat64:
		return resolver.ClassFloat64ID
	case TagString:
		return resolver.ClassStringID
	case TagArray:
		return resolver.ClassArrayID
	case TagByteArray:
		return resolver.ClassByteArrayID
	case TagDict:
		return ClassDictID
	case TagObject:
		return v.AsObject().ClassID
	default:
		return resolver.ClassObjectID
	}
}
