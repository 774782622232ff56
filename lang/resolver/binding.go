package resolver

import "github.com/mna/glade/lang/ast"

// Kind identifies the declaration kind a Decl represents, mirroring the
// Decl variants named in the resolver's contract: Global/Arg/Local/
// Captured/Fun/Class.
type Kind int8

const (
	Undefined Kind = iota
	Global
	Arg
	Local
	Captured
	Fun
	Class
	Host
)

func (k Kind) String() string {
	switch k {
	case Global:
		return "global"
	case Arg:
		return "arg"
	case Local:
		return "local"
	case Captured:
		return "captured"
	case Fun:
		return "fun"
	case Class:
		return "class"
	case Host:
		return "host"
	default:
		return "undefined"
	}
}

// Decl is what an identifier resolves to. Exactly one of the Kind-specific
// fields below is meaningful for any given Kind.
type Decl struct {
	Kind Kind
	Name string

	Idx     int  // slot index for Global/Arg/Local/Captured
	Mutable bool // Global/Arg/Local/Captured

	SrcFun *Function // owning function, for Arg/Local (the unit function for Global)

	FunID   uint32 // Fun
	ClassID uint32 // Class
}

// Function is the AST-level function descriptor the resolver populates,
// matching the specification's Function record: name, params, var_arg,
// body, num_locals, captured, escaping, is_unit, class_id, id.
type Function struct {
	ID     uint32
	Name   string
	Params []string
	VarArg bool
	Body   *ast.Block

	NumLocals int

	// Captured maps a Decl owned by an enclosing function to this
	// function's dense closure-slot index for it.
	Captured map[*Decl]int
	// Escaping is the set of this function's own Arg/Local Decls that some
	// nested function captures; those locals must be boxed in a Cell.
	Escaping map[*Decl]bool

	IsUnit  bool
	ClassID uint32 // 0 if this function is not a method

	// Parent is the lexically enclosing function, nil for the unit function.
	Parent *Function
}

// Class is the resolver's class descriptor: name, fields (slot indices)
// and methods (function ids).
type Class struct {
	ID      uint32
	Name    string
	Fields  map[string]int
	Methods map[string]uint32
}

// Program is the resolver's output: every function and class in the
// compilation unit, plus the number of global slots and the entry
// (unit) function id.
type Program struct {
	Funs    map[uint32]*Function
	Classes map[uint32]*Class

	NumGlobals int
	MainFn     uint32
}
