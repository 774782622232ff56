// Package resolver binds every identifier in a parsed chunk to a
// declaration kind (global/arg/local/captured/function/class/host) and
// records, per function, the locals it owns, the outer variables it
// captures, and which of its own locals escape into a nested closure.
//
// Much of the scope-stack and capture-propagation approach here is adapted
// from the Starlark-in-Go resolver's treatment of Local/Cell/Free bindings:
// a block's variables live in a map consulted outward through a parent
// chain, and a use of an outer Arg/Local rewrites the reference to a
// Captured one while threading a capture slot through every intervening
// function.
package resolver

import (
	"fmt"

	"github.com/mna/glade/lang/ast"
	"github.com/mna/glade/lang/scanner"
	"github.com/mna/glade/lang/token"
)

// Core class ids, 1-255 reserved.
const (
	ClassNilID         uint32 = 1
	ClassObjectID      uint32 = 2
	ClassInt64ID       uint32 = 3
	ClassFloat64ID     uint32 = 4
	ClassStringID      uint32 = 5
	ClassArrayID       uint32 = 6
	ClassByteArrayID   uint32 = 7
	ClassUIEventID     uint32 = 8
	ClassAudioNeededID uint32 = 9

	firstUserClassID uint32 = 256
)

var coreClassNames = map[string]uint32{
	"Nil":         ClassNilID,
	"Object":      ClassObjectID,
	"Int64":       ClassInt64ID,
	"Float64":     ClassFloat64ID,
	"String":      ClassStringID,
	"Array":       ClassArrayID,
	"ByteArray":   ClassByteArrayID,
	"UIEvent":     ClassUIEventID,
	"AudioNeeded": ClassAudioNeededID,
}

type block struct {
	parent  *block
	fn      *Function
	vars    map[string]*Decl
	nextIdx *int
}

func newBlock(parent *block, fn *Function, nextIdx *int) *block {
	return &block{parent: parent, fn: fn, vars: map[string]*Decl{}, nextIdx: nextIdx}
}

type resolver struct {
	fset      *token.FileSet
	errors    scanner.ErrorList
	hostArity map[string]int

	prog        *Program
	nextFunID   uint32
	nextClassID uint32

	cur   *block
	curFn *Function
}

// Resolve binds every identifier reference in chunk and returns the
// resulting Program. hostArity maps each predeclared host function name to
// its fixed argument count, used to validate call sites and to make the
// names resolvable as Host declarations.
func Resolve(fset *token.FileSet, chunk *ast.Chunk, hostArity map[string]int) (*Program, error) {
	r := &resolver{
		fset:        fset,
		hostArity:   hostArity,
		prog:        &Program{Funs: map[uint32]*Function{}, Classes: map[uint32]*Class{}},
		nextClassID: firstUserClassID,
		nextFunID:   1,
	}

	root := newBlock(nil, nil, nil)
	for name, id := range coreClassNames {
		root.vars[name] = &Decl{Kind: Class, Name: name, ClassID: id}
	}
	for name := range hostArity {
		root.vars[name] = &Decl{Kind: Host, Name: name}
	}

	unitCounter := 0
	unit := &Function{
		ID: 0, Name: "$unit", IsUnit: true, Body: chunk.Block,
		Captured: map[*Decl]int{}, Escaping: map[*Decl]bool{},
	}
	r.prog.Funs[0] = unit
	r.curFn = unit
	r.cur = newBlock(root, unit, &unitCounter)

	r.resolveBlock(chunk.Block)

	unit.NumLocals = unitCounter
	r.prog.NumGlobals = unitCounter
	r.prog.MainFn = 0

	r.errors.Sort()
	if err := r.errors.Err(); err != nil {
		return r.prog, err
	}
	return r.prog, nil
}

func (r *resolver) errorf(pos token.Pos, format string, args ...interface{}) {
	r.errors.Add(r.fset.Position(pos), fmt.Sprintf(format, args...))
}

func (r *resolver) lookup(name string) *Decl {
	for b := r.cur; b != nil; b = b.parent {
		if d, ok := b.vars[name]; ok {
			return d
		}
	}
	return nil
}

// declare binds name in the current block, assigning it the next slot of
// the current function (or global slot, if the current function is the
// unit function).
func (r *resolver) declare(name string, mutable bool) *Decl {
	idx := *r.cur.nextIdx
	*r.cur.nextIdx = idx + 1
	kind := Local
	if r.curFn.IsUnit {
		kind = Global
	}
	d := &Decl{Kind: kind, Name: name, Idx: idx, Mutable: mutable, SrcFun: r.curFn}
	r.cur.vars[name] = d
	return d
}

// use resolves a name reference from the current function, rewriting a
// cross-function Arg/Local reference into a Captured one and threading the
// capture through every intervening function.
func (r *resolver) use(name string, pos token.Pos) *Decl {
	d := r.lookup(name)
	if d == nil {
		r.errorf(pos, "undefined identifier %q", name)
		return nil
	}
	switch d.Kind {
	case Global, Fun, Class, Host:
		return d
	default: // Arg, Local
		if d.SrcFun == r.curFn {
			return d
		}
		idx := r.capture(d, r.curFn)
		return &Decl{Kind: Captured, Name: d.Name, Idx: idx, Mutable: d.Mutable}
	}
}

// capture ensures fn (and every function between fn and d's owner) has a
// closure slot bound to d, marking d's owner's local as escaping once a
// descendant function captures it.
func (r *resolver) capture(d *Decl, fn *Function) int {
	if idx, ok := fn.Captured[d]; ok {
		return idx
	}
	idx := len(fn.Captured)
	fn.Captured[d] = idx
	if d.SrcFun == fn.Parent {
		if d.Kind == Local && d.Mutable {
			d.SrcFun.Escaping[d] = true
		}
	} else if fn.Parent != nil {
		r.capture(d, fn.Parent)
	}
	return idx
}

func (r *resolver) resolveBlock(b *ast.Block) {
	r.hoist(b.Stmts)
	for _, s := range b.Stmts {
		r.stmt(s)
	}
}

// hoist pre-declares every function-valued let, named function statement
// and class declaration in stmts so that forward and mutually recursive
// references resolve before any body is walked.
func (r *resolver) hoist(stmts []ast.Stmt) {
	for _, s := range stmts {
		switch n := s.(type) {
		case *ast.LetStmt:
			if fe, ok := n.Value.(*ast.FuncExpr); ok {
				fe.Resolved = r.hoistFunc(n.Name.Lit, !n.Mutable, fe.Params, fe.VarArg, fe.Body)
			}
		case *ast.FuncStmt:
			n.Resolved = r.hoistFunc(n.Name.Lit, true, n.Params, n.VarArg, n.Body)
		case *ast.ClassStmt:
			r.hoistClass(n)
		}
	}
}

func (r *resolver) hoistFunc(name string, immutable bool, params []*ast.IdentExpr, varArg bool, body *ast.Block) *Function {
	id := r.nextFunID
	r.nextFunID++
	fn := &Function{
		ID: id, Name: name, Params: paramNames(params), VarArg: varArg, Body: body,
		Parent: r.curFn, Captured: map[*Decl]int{}, Escaping: map[*Decl]bool{},
	}
	r.prog.Funs[id] = fn

	if r.curFn.IsUnit && immutable {
		r.cur.vars[name] = &Decl{Kind: Fun, Name: name, FunID: id}
	} else {
		r.declare(name, !immutable)
	}
	return fn
}

func (r *resolver) hoistClass(n *ast.ClassStmt) {
	id := r.nextClassID
	r.nextClassID++
	class := &Class{ID: id, Name: n.Name.Lit, Fields: map[string]int{}, Methods: map[string]uint32{}}
	for _, f := range n.Fields {
		if _, ok := class.Fields[f.Name.Lit]; !ok {
			class.Fields[f.Name.Lit] = len(class.Fields)
		}
	}
	for _, m := range n.Methods {
		discoverFields(class, m)
	}
	if len(class.Fields) > 65535 {
		r.errorf(n.Class, "class %q declares more than 65535 fields", n.Name.Lit)
	}
	r.prog.Classes[id] = class
	r.cur.vars[n.Name.Lit] = &Decl{Kind: Class, Name: n.Name.Lit, ClassID: id}

	for _, m := range n.Methods {
		fnID := r.nextFunID
		r.nextFunID++
		fn := &Function{
			ID: fnID, Name: n.Name.Lit + "." + m.Name.Lit, Params: paramNames(m.Params),
			VarArg: m.VarArg, Body: m.Body, ClassID: id, Parent: r.curFn,
			Captured: map[*Decl]int{}, Escaping: map[*Decl]bool{},
		}
		r.prog.Funs[fnID] = fn
		class.Methods[m.Name.Lit] = fnID
		m.Resolved = fn
	}
	n.Resolved = class
}

// discoverFields walks a method body for assignments to the receiver
// (its first parameter) and registers any field not already declared, in
// first-assignment order, per the data model's field-slot rule.
func discoverFields(class *Class, m *ast.FuncStmt) {
	if len(m.Params) == 0 || m.Body == nil {
		return
	}
	recv := m.Params[0].Lit
	var walk func(stmts []ast.Stmt)
	walk = func(stmts []ast.Stmt) {
		for _, s := range stmts {
			switch n := s.(type) {
			case *ast.AssignStmt:
				if me, ok := n.Left.(*ast.MemberExpr); ok {
					if id, ok := me.Left.(*ast.IdentExpr); ok && id.Lit == recv {
						if _, exists := class.Fields[me.Name]; !exists {
							class.Fields[me.Name] = len(class.Fields)
						}
					}
				}
			case *ast.IfStmt:
				walk(n.Then.Stmts)
				if n.Else != nil {
					walk(n.Else.Stmts)
				}
			case *ast.WhileStmt:
				walk(n.Body.Stmts)
			case *ast.ForStmt:
				walk(n.Body.Stmts)
			}
		}
	}
	walk(m.Body.Stmts)
}

func (r *resolver) resolveFunction(fn *Function) {
	prevFn, prevBlock := r.curFn, r.cur
	r.curFn = fn

	counter := 0
	fnBlock := newBlock(prevBlock, fn, &counter)
	r.cur = fnBlock

	for i, p := range fn.Params {
		fnBlock.vars[p] = &Decl{Kind: Arg, Name: p, Idx: i, Mutable: true, SrcFun: fn}
	}

	r.resolveBlock(fn.Body)
	fn.NumLocals = counter

	r.curFn = prevFn
	r.cur = prevBlock
}

func (r *resolver) stmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.LetStmt:
		if fe, ok := n.Value.(*ast.FuncExpr); ok {
			r.resolveFunction(fe.Resolved.(*Function))
			n.Name.Decl = r.lookup(n.Name.Lit)
			return
		}
		r.expr(n.Value)
		n.Name.Decl = r.declare(n.Name.Lit, n.Mutable)
	case *ast.FuncStmt:
		r.resolveFunction(n.Resolved.(*Function))
		n.Name.Decl = r.lookup(n.Name.Lit)
	case *ast.ClassStmt:
		for _, m := range n.Methods {
			r.resolveFunction(m.Resolved.(*Function))
		}
	case *ast.AssignStmt:
		r.expr(n.Right)
		r.expr(n.Left)
		r.checkAssignable(n.Left, n.OpPos)
	case *ast.ExprStmt:
		r.expr(n.X)
	case *ast.IfStmt:
		r.expr(n.Cond)
		r.resolveBlock(n.Then)
		if n.Else != nil {
			r.resolveBlock(n.Else)
		}
	case *ast.WhileStmt:
		r.expr(n.Cond)
		r.resolveBlock(n.Body)
	case *ast.ForStmt:
		prev := r.cur
		r.cur = newBlock(prev, r.curFn, prev.nextIdx)
		if n.Init != nil {
			r.stmt(n.Init)
		}
		if n.Cond != nil {
			r.expr(n.Cond)
		}
		r.resolveBlock(n.Body)
		if n.Post != nil {
			r.stmt(n.Post)
		}
		r.cur = prev
	case *ast.ReturnStmt:
		if n.Value != nil {
			r.expr(n.Value)
		}
	case *ast.BreakStmt, *ast.ContinueStmt:
		// nothing to resolve
	case *ast.AssertStmt:
		r.expr(n.Cond)
	}
}

func (r *resolver) checkAssignable(left ast.Expr, pos token.Pos) {
	id, ok := left.(*ast.IdentExpr)
	if !ok {
		return // member/index assignment is always permitted
	}
	d, _ := id.Decl.(*Decl)
	if d == nil {
		return
	}
	switch d.Kind {
	case Fun, Class, Host:
		r.errorf(pos, "cannot assign to %q", id.Lit)
	case Global, Local, Captured:
		if !d.Mutable {
			r.errorf(pos, "cannot assign to immutable %q", id.Lit)
		}
	}
}

func (r *resolver) expr(e ast.Expr) {
	switch n := e.(type) {
	case *ast.IdentExpr:
		n.Decl = r.use(n.Lit, n.Start)
	case *ast.LiteralExpr, *ast.ByteArrayExpr:
		// leaves, nothing to resolve
	case *ast.ArrayExpr:
		for _, it := range n.Items {
			r.expr(it)
		}
	case *ast.MapExpr:
		for _, kv := range n.Items {
			r.expr(kv.Key)
			r.expr(kv.Value)
		}
	case *ast.UnaryExpr:
		r.expr(n.Right)
	case *ast.BinaryExpr:
		r.expr(n.Left)
		r.expr(n.Right)
	case *ast.TernaryExpr:
		r.expr(n.Cond)
		r.expr(n.Then)
		r.expr(n.Else)
	case *ast.IndexExpr:
		r.expr(n.Prefix)
		r.expr(n.Index)
	case *ast.MemberExpr:
		r.expr(n.Left)
	case *ast.CallExpr:
		for _, a := range n.Args {
			r.expr(a)
		}
		r.resolveCallee(n)
	case *ast.FuncExpr:
		if n.Resolved == nil {
			n.Resolved = r.hoistFunc("$anon", true, n.Params, n.VarArg, n.Body)
		}
		r.resolveFunction(n.Resolved.(*Function))
	}
}

func (r *resolver) resolveCallee(n *ast.CallExpr) {
	id, isIdent := n.Fn.(*ast.IdentExpr)
	if !isIdent {
		r.expr(n.Fn)
		return
	}
	d := r.use(id.Lit, id.Start)
	id.Decl = d
	if d == nil {
		return
	}
	switch d.Kind {
	case Class:
		class := r.prog.Classes[d.ClassID]
		if initID, ok := class.Methods["init"]; ok {
			initFn := r.prog.Funs[initID]
			want := len(initFn.Params) - 1 // excluding implicit receiver
			if want != len(n.Args) {
				r.errorf(n.Lparen, "constructor %q expects %d argument(s), got %d", class.Name, want, len(n.Args))
			}
		} else if len(n.Args) != 0 {
			r.errorf(n.Lparen, "class %q has no init and takes no arguments", class.Name)
		}
	case Host:
		if want, ok := r.hostArity[d.Name]; ok && want != len(n.Args) {
			r.errorf(n.Lparen, "host function %q expects %d argument(s), got %d", d.Name, want, len(n.Args))
		}
	}
}

func paramNames(params []*ast.IdentExpr) []string {
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Lit
	}
	return names
}
