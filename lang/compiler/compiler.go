package compiler

import (
	"sort"

	"github.com/mna/glade/lang/ast"
	"github.com/mna/glade/lang/resolver"
	"github.com/mna/glade/lang/token"
)

// Compile lowers fn's body, appending instructions to the end of code (an
// actor's private instruction buffer), and returns the function's entry pc
// plus its parameter/local counts, for the caller to cache by function id.
// Compilation is lazy: callers invoke this at most once per (actor,
// function) pair, the first time the function is called inside that actor.
func Compile(fn *resolver.Function, pool *Pool, code *[]byte) (entryPC uint32, numParams, numLocals int) {
	c := &funcCompiler{fn: fn, pool: pool, a: asm{code: code}, escaping: map[int]bool{}}
	for d := range fn.Escaping {
		c.escaping[d.Idx] = true
	}

	entryPC = uint32(c.a.pos())
	for i := 0; i < fn.NumLocals; i++ {
		if c.escaping[i] {
			c.a.op(OpNewCell)
		} else {
			c.a.op(OpPushNil)
		}
	}

	if fn.Body != nil {
		c.genBlockStmts(fn.Body.Stmts)
	}
	// need-final-return: harmless if every path already returned, since
	// this tail is then simply unreachable.
	c.a.op(OpPushNil)
	c.a.op(OpRet)

	return entryPC, len(fn.Params), fn.NumLocals
}

type loopCtx struct {
	continueTarget int
	breaks         []int
}

type funcCompiler struct {
	fn       *resolver.Function
	pool     *Pool
	a        asm
	escaping map[int]bool
	loops    []*loopCtx
}

func (c *funcCompiler) emitJump(op Opcode) int {
	c.a.op(op)
	p := c.a.pos()
	c.a.i32(0)
	return p
}

func (c *funcCompiler) patchJumpHere(operandPos int) {
	target := c.a.pos()
	c.a.patchI32(operandPos, int32(target-(operandPos+4)))
}

func (c *funcCompiler) emitJumpTo(op Opcode, targetPC int) {
	c.a.op(op)
	p := c.a.pos()
	c.a.i32(int32(targetPC - (p + 4)))
}

func (c *funcCompiler) pushLoop(continueTarget int) {
	c.loops = append(c.loops, &loopCtx{continueTarget: continueTarget})
}

func (c *funcCompiler) popLoop() {
	l := c.loops[len(c.loops)-1]
	c.loops = c.loops[:len(c.loops)-1]
	for _, p := range l.breaks {
		c.patchJumpHere(p)
	}
}

func (c *funcCompiler) curLoop() *loopCtx { return c.loops[len(c.loops)-1] }

func (c *funcCompiler) genBlockStmts(stmts []ast.Stmt) {
	for _, s := range stmts {
		c.genStmt(s)
	}
}

func (c *funcCompiler) genStmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.LetStmt:
		c.genFuncValuedOrPlainLet(n.Name.Decl.(*resolver.Decl), n.Value)
	case *ast.FuncStmt:
		d := n.Name.Decl.(*resolver.Decl)
		if d.Kind != resolver.Fun {
			c.genClosure(n.Resolved.(*resolver.Function))
			c.genStoreDecl(d)
		}
	case *ast.ClassStmt:
		// no runtime effect at the declaration site; methods are compiled
		// lazily the first time call_method dispatches to them.
	case *ast.AssignStmt:
		c.genAssignStmt(n)
	case *ast.ExprStmt:
		c.genExpr(n.X)
		c.a.op(OpPop)
	case *ast.IfStmt:
		c.genIf(n)
	case *ast.WhileStmt:
		c.genWhile(n)
	case *ast.ForStmt:
		c.genFor(n)
	case *ast.ReturnStmt:
		if n.Value != nil {
			c.genExpr(n.Value)
		} else {
			c.a.op(OpPushNil)
		}
		c.a.op(OpRet)
	case *ast.BreakStmt:
		l := c.curLoop()
		l.breaks = append(l.breaks, c.emitJump(OpJump))
	case *ast.ContinueStmt:
		c.emitJumpTo(OpJump, c.curLoop().continueTarget)
	case *ast.AssertStmt:
		c.genExpr(n.Cond)
		skip := c.emitJump(OpIfTrue)
		c.a.op(OpPanic)
		c.a.u32(uint32(n.Assert))
		c.patchJumpHere(skip)
	}
}

// genFuncValuedOrPlainLet stores a `let` value into its decl's slot: a
// function-expression value is built as a closure, any other value is
// evaluated. It is a no-op for Fun-kind decls (pure global constants with
// nothing to execute at the declaration site) and for a nil value (a
// `fun name(...)` statement, handled by its caller instead).
func (c *funcCompiler) genFuncValuedOrPlainLet(d *resolver.Decl, value ast.Expr) {
	if d.Kind == resolver.Fun {
		return
	}
	if fe, ok := value.(*ast.FuncExpr); ok {
		c.genClosure(fe.Resolved.(*resolver.Function))
		c.genStoreDecl(d)
		return
	}
	if value == nil {
		return // a FuncStmt target; handled by the caller
	}
	c.genExpr(value)
	c.genStoreDecl(d)
}

func (c *funcCompiler) genAssignStmt(n *ast.AssignStmt) {
	if n.Op == token.EQ {
		c.genAssignTo(n.Left, func() { c.genExpr(n.Right) })
		return
	}
	binOp := n.Op.BinOpForAssign()
	c.genAssignTo(n.Left, func() {
		c.genExpr(n.Left)
		c.genExpr(n.Right)
		c.emitBinOp(binOp)
	})
}

func (c *funcCompiler) genAssignTo(left ast.Expr, emitValue func()) {
	switch t := left.(type) {
	case *ast.IdentExpr:
		emitValue()
		c.genStoreDecl(t.Decl.(*resolver.Decl))
	case *ast.MemberExpr:
		c.genExpr(t.Left)
		emitValue()
		c.a.op(OpSetField)
		c.a.u32(c.pool.NameIndex(t.Name))
		c.a.u32(0)
		c.a.u32(0)
	case *ast.IndexExpr:
		c.genExpr(t.Prefix)
		c.genExpr(t.Index)
		emitValue()
		c.a.op(OpSetIndex)
	}
}

func (c *funcCompiler) genIf(n *ast.IfStmt) {
	c.genExpr(n.Cond)
	elsePatch := c.emitJump(OpIfFalse)
	c.genBlockStmts(n.Then.Stmts)
	if n.Else != nil {
		endPatch := c.emitJump(OpJump)
		c.patchJumpHere(elsePatch)
		c.genBlockStmts(n.Else.Stmts)
		c.patchJumpHere(endPatch)
	} else {
		c.patchJumpHere(elsePatch)
	}
}

func (c *funcCompiler) genWhile(n *ast.WhileStmt) {
	testPC := c.a.pos()
	c.genExpr(n.Cond)
	endPatch := c.emitJump(OpIfFalse)
	c.pushLoop(testPC)
	c.genBlockStmts(n.Body.Stmts)
	c.emitJumpTo(OpJump, testPC)
	c.patchJumpHere(endPatch)
	c.popLoop()
}

// genFor desugars to {init; while(test){body; post;}}, exactly as
// specified: a continue inside the loop jumps to the test, so it skips
// the post-clause, matching the literal desugaring.
func (c *funcCompiler) genFor(n *ast.ForStmt) {
	if n.Init != nil {
		c.genStmt(n.Init)
	}
	testPC := c.a.pos()
	if n.Cond != nil {
		c.genExpr(n.Cond)
	} else {
		c.a.op(OpPushTrue)
	}
	endPatch := c.emitJump(OpIfFalse)
	c.pushLoop(testPC)
	c.genBlockStmts(n.Body.Stmts)
	if n.Post != nil {
		c.genStmt(n.Post)
	}
	c.emitJumpTo(OpJump, testPC)
	c.patchJumpHere(endPatch)
	c.popLoop()
}

func (c *funcCompiler) genExpr(e ast.Expr) {
	switch n := e.(type) {
	case *ast.IdentExpr:
		c.genLoadDecl(n.Decl.(*resolver.Decl))
	case *ast.LiteralExpr:
		c.genLiteral(n)
	case *ast.ByteArrayExpr:
		c.a.op(OpPushBytes)
		c.a.u32(c.pool.StringIndex(string(n.Value)))
	case *ast.ArrayExpr:
		for _, it := range n.Items {
			c.genExpr(it)
		}
		c.a.op(OpArrayNew)
		c.a.u32(uint32(len(n.Items)))
	case *ast.MapExpr:
		for _, kv := range n.Items {
			c.genExpr(kv.Key)
			c.genExpr(kv.Value)
		}
		c.a.op(OpDictNew)
		c.a.u32(uint32(len(n.Items)))
	case *ast.UnaryExpr:
		c.genUnary(n)
	case *ast.BinaryExpr:
		c.genBinary(n)
	case *ast.TernaryExpr:
		c.genExpr(n.Cond)
		elsePatch := c.emitJump(OpIfFalse)
		c.genExpr(n.Then)
		endPatch := c.emitJump(OpJump)
		c.patchJumpHere(elsePatch)
		c.genExpr(n.Else)
		c.patchJumpHere(endPatch)
	case *ast.IndexExpr:
		c.genExpr(n.Prefix)
		c.genExpr(n.Index)
		c.a.op(OpGetIndex)
	case *ast.MemberExpr:
		c.genExpr(n.Left)
		c.a.op(OpGetField)
		c.a.u32(c.pool.NameIndex(n.Name))
		c.a.u32(0)
		c.a.u32(0)
	case *ast.CallExpr:
		c.genCall(n)
	case *ast.FuncExpr:
		c.genClosure(n.Resolved.(*resolver.Function))
	}
}

func (c *funcCompiler) genLiteral(n *ast.LiteralExpr) {
	switch n.Type {
	case token.NIL:
		c.a.op(OpPushNil)
	case token.TRUE:
		c.a.op(OpPushTrue)
	case token.FALSE:
		c.a.op(OpPushFalse)
	case token.INT:
		c.a.op(OpPushInt)
		c.a.i64(n.Value.(int64))
	case token.FLOAT:
		c.a.op(OpPushFloat)
		c.a.f64(n.Value.(float64))
	case token.STRING:
		c.a.op(OpPushStr)
		c.a.u32(c.pool.StringIndex(n.Value.(string)))
	}
}

func (c *funcCompiler) genUnary(n *ast.UnaryExpr) {
	switch n.Op {
	case token.MINUS:
		c.a.op(OpPushInt)
		c.a.i64(0)
		c.genExpr(n.Right)
		c.a.op(OpSub)
	case token.NOT:
		c.genExpr(n.Right)
		c.a.op(OpNot)
	case token.TILDE:
		c.a.op(OpPushInt)
		c.a.i64(-1)
		c.genExpr(n.Right)
		c.a.op(OpBitXor)
	}
}

func (c *funcCompiler) genBinary(n *ast.BinaryExpr) {
	switch n.Op {
	case token.ANDAND:
		c.genExpr(n.Left)
		falsePatch := c.emitJump(OpIfFalse)
		c.genExpr(n.Right)
		endPatch := c.emitJump(OpJump)
		c.patchJumpHere(falsePatch)
		c.a.op(OpPushFalse)
		c.patchJumpHere(endPatch)
		return
	case token.OROR:
		c.genExpr(n.Left)
		falsePatch := c.emitJump(OpIfFalse)
		c.a.op(OpPushTrue)
		endPatch := c.emitJump(OpJump)
		c.patchJumpHere(falsePatch)
		c.genExpr(n.Right)
		c.patchJumpHere(endPatch)
		return
	}
	c.genExpr(n.Left)
	c.genExpr(n.Right)
	c.emitBinOp(n.Op)
}

func (c *funcCompiler) emitBinOp(op token.Token) {
	switch op {
	case token.PLUS:
		c.a.op(OpAdd)
	case token.MINUS:
		c.a.op(OpSub)
	case token.STAR:
		c.a.op(OpMul)
	case token.SLASH:
		c.a.op(OpDiv)
	case token.PERCENT:
		c.a.op(OpMod)
	case token.AMPERSAND:
		c.a.op(OpBitAnd)
	case token.PIPE:
		c.a.op(OpBitOr)
	case token.CIRCUMFLEX:
		c.a.op(OpBitXor)
	case token.LTLT:
		c.a.op(OpLShift)
	case token.GTGT:
		c.a.op(OpRShift)
	case token.LT:
		c.a.op(OpLt)
	case token.LE:
		c.a.op(OpLe)
	case token.GT:
		c.a.op(OpGt)
	case token.GE:
		c.a.op(OpGe)
	case token.EQEQ:
		c.a.op(OpEq)
	case token.NOTEQ:
		c.a.op(OpNe)
	}
}

func (c *funcCompiler) genCall(n *ast.CallExpr) {
	if me, ok := n.Fn.(*ast.MemberExpr); ok {
		c.genExpr(me.Left)
		for _, a := range n.Args {
			c.genExpr(a)
		}
		c.a.op(OpCallMethod)
		c.a.u32(c.pool.NameIndex(me.Name))
		c.a.u32(uint32(len(n.Args)))
		return
	}
	if id, ok := n.Fn.(*ast.IdentExpr); ok {
		d := id.Decl.(*resolver.Decl)
		switch d.Kind {
		case resolver.Class:
			for _, a := range n.Args {
				c.genExpr(a)
			}
			c.a.op(OpNew)
			c.a.u32(d.ClassID)
			c.a.u32(uint32(len(n.Args)))
			return
		case resolver.Fun:
			for _, a := range n.Args {
				c.genExpr(a)
			}
			c.a.op(OpCallDirect)
			c.a.u32(0) // entry pc, filled in by the interpreter's self-patch
			c.a.u32(d.FunID)
			c.a.u32(0) // num locals, filled in by the interpreter's self-patch
			c.a.u32(uint32(len(n.Args)))
			return
		}
	}
	for _, a := range n.Args {
		c.genExpr(a)
	}
	c.genExpr(n.Fn) // the callee goes on top of its arguments
	c.a.op(OpCall)
	c.a.u32(uint32(len(n.Args)))
}

func (c *funcCompiler) genLoadDecl(d *resolver.Decl) {
	switch d.Kind {
	case resolver.Global:
		c.a.op(OpGetGlobal)
		c.a.u32(uint32(d.Idx))
	case resolver.Arg:
		c.a.op(OpGetArg)
		c.a.u32(uint32(d.Idx))
	case resolver.Local:
		if d.SrcFun.Escaping[d] {
			c.a.op(OpCellGetLocal)
		} else {
			c.a.op(OpGetLocal)
		}
		c.a.u32(uint32(d.Idx))
	case resolver.Captured:
		if d.Mutable {
			c.a.op(OpCellGetClos)
		} else {
			c.a.op(OpClosGet)
		}
		c.a.u32(uint32(d.Idx))
	case resolver.Fun:
		c.a.op(OpPushFun)
		c.a.u32(d.FunID)
	case resolver.Class:
		c.a.op(OpPushClass)
		c.a.u32(d.ClassID)
	case resolver.Host:
		c.a.op(OpPushHost)
		c.a.u32(c.pool.NameIndex(d.Name))
	}
}

func (c *funcCompiler) genStoreDecl(d *resolver.Decl) {
	switch d.Kind {
	case resolver.Global:
		c.a.op(OpSetGlobal)
		c.a.u32(uint32(d.Idx))
	case resolver.Arg:
		c.a.op(OpSetArg)
		c.a.u32(uint32(d.Idx))
	case resolver.Local:
		if d.SrcFun.Escaping[d] {
			c.a.op(OpCellSetLocal)
		} else {
			c.a.op(OpSetLocal)
		}
		c.a.u32(uint32(d.Idx))
	case resolver.Captured:
		c.a.op(OpCellSetClos)
		c.a.u32(uint32(d.Idx))
	}
}

type capturePair struct {
	decl *resolver.Decl
	idx  int
}

func sortedCaptures(fn *resolver.Function) []capturePair {
	pairs := make([]capturePair, 0, len(fn.Captured))
	for d, idx := range fn.Captured {
		pairs = append(pairs, capturePair{d, idx})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].idx < pairs[j].idx })
	return pairs
}

// genClosure builds a closure value for fn at the current (enclosing)
// function's compile context: construct it, then fill each capture slot
// either from this function's own frame (if it owns the captured
// variable) or by forwarding a capture it itself already holds.
func (c *funcCompiler) genClosure(fn *resolver.Function) {
	c.a.op(OpClosNew)
	c.a.u32(fn.ID)
	c.a.u32(uint32(len(fn.Captured)))
	for _, pr := range sortedCaptures(fn) {
		c.genCaptureSource(pr.decl)
		c.a.op(OpClosSet)
		c.a.u32(uint32(pr.idx))
	}
}

// genCaptureSource pushes, in the CURRENT function's frame, the raw value
// to store into a nested closure's slot for decl: its own local/arg slot
// if it is decl's owner, or its own (already-established) capture of decl
// otherwise.
func (c *funcCompiler) genCaptureSource(decl *resolver.Decl) {
	if decl.SrcFun == c.fn {
		switch decl.Kind {
		case resolver.Local:
			c.a.op(OpGetLocal)
			c.a.u32(uint32(decl.Idx))
		case resolver.Arg:
			c.a.op(OpGetArg)
			c.a.u32(uint32(decl.Idx))
		}
		return
	}
	idx := c.fn.Captured[decl]
	c.a.op(OpClosGet)
	c.a.u32(uint32(idx))
}
