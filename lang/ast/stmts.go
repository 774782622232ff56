package ast

import "github.com/mna/glade/lang/token"

type (
	// LetStmt declares a variable: let x = v (mutable) or const x = v
	// (immutable).
	LetStmt struct {
		Let     token.Pos
		Mutable bool
		Name    *IdentExpr
		Eq      token.Pos
		Value   Expr
	}

	// AssignStmt assigns (or augmented-assigns) to an assignable expression.
	AssignStmt struct {
		Left  Expr
		Op    token.Token // EQ, PLUSEQ, MINUSEQ, STAREQ, SLASHEQ
		OpPos token.Pos
		Right Expr
	}

	// ExprStmt is a bare expression evaluated for effect, e.g. a call.
	ExprStmt struct {
		X Expr
	}

	// IfStmt is an if/else statement. Else is nil when there is no else
	// clause; it holds a single-statement Block wrapping a nested IfStmt
	// for an "else if" chain, matching how the parser desugars it.
	IfStmt struct {
		If   token.Pos
		Cond Expr
		Then *Block
		Else *Block
		End  token.Pos
	}

	// WhileStmt is a condition-only loop.
	WhileStmt struct {
		While token.Pos
		Cond  Expr
		Body  *Block
		End   token.Pos
	}

	// ForStmt is a three-clause loop: for init; cond; post { body }. Init
	// and Post may be nil.
	ForStmt struct {
		For  token.Pos
		Init Stmt
		Cond Expr
		Post Stmt
		Body *Block
		End  token.Pos
	}

	// ReturnStmt returns from the enclosing function. Value is nil for a
	// bare return.
	ReturnStmt struct {
		Return token.Pos
		Value  Expr
	}

	// BreakStmt exits the innermost enclosing loop.
	BreakStmt struct {
		Break token.Pos
	}

	// ContinueStmt jumps to the condition test of the innermost enclosing
	// loop; in a for loop the post clause is not run first.
	ContinueStmt struct {
		Continue token.Pos
	}

	// AssertStmt panics at runtime if Cond evaluates to a false value.
	AssertStmt struct {
		Assert token.Pos
		Cond   Expr
		End    token.Pos
	}

	// FuncStmt declares a named function. Resolved holds the
	// *resolver.Function built for it.
	FuncStmt struct {
		Fn       token.Pos
		Name     *IdentExpr
		Params   []*IdentExpr
		VarArg   bool
		Body     *Block
		End      token.Pos
		Resolved any
	}

	// FieldDecl is one field of a ClassStmt, with an optional default
	// initializer expression.
	FieldDecl struct {
		Name    *IdentExpr
		Default Expr
	}

	// ClassStmt declares a class: its fields and its methods (including,
	// by convention, an "init" method acting as constructor).
	ClassStmt struct {
		Class   token.Pos
		Name    *IdentExpr
		Fields  []*FieldDecl
		Methods []*FuncStmt
		End     token.Pos

		// Resolved holds the *resolver.Class built for it.
		Resolved any
	}
)

func (n *LetStmt) Span() (token.Pos, token.Pos) {
	_, end := n.Value.Span()
	return n.Let, end
}
func (n *LetStmt) stmt() {}

func (n *AssignStmt) Span() (token.Pos, token.Pos) {
	start, _ := n.Left.Span()
	_, end := n.Right.Span()
	return start, end
}
func (n *AssignStmt) stmt() {}

func (n *ExprStmt) Span() (token.Pos, token.Pos) { return n.X.Span() }
func (n *ExprStmt) stmt()                        {}

func (n *IfStmt) Span() (token.Pos, token.Pos) { return n.If, n.End }
func (n *IfStmt) stmt()                        {}

func (n *WhileStmt) Span() (token.Pos, token.Pos) { return n.While, n.End }
func (n *WhileStmt) stmt()                        {}

func (n *ForStmt) Span() (token.Pos, token.Pos) { return n.For, n.End }
func (n *ForStmt) stmt()                        {}

func (n *ReturnStmt) Span() (token.Pos, token.Pos) {
	if n.Value != nil {
		_, end := n.Value.Span()
		return n.Return, end
	}
	return n.Return, n.Return + token.Pos(len("return"))
}
func (n *ReturnStmt) stmt() {}

func (n *BreakStmt) Span() (token.Pos, token.Pos) {
	return n.Break, n.Break + token.Pos(len("break"))
}
func (n *BreakStmt) stmt() {}

func (n *ContinueStmt) Span() (token.Pos, token.Pos) {
	return n.Continue, n.Continue + token.Pos(len("continue"))
}
func (n *ContinueStmt) stmt() {}

func (n *AssertStmt) Span() (token.Pos, token.Pos) { return n.Assert, n.End }
func (n *AssertStmt) stmt()                        {}

func (n *FuncStmt) Span() (token.Pos, token.Pos) { return n.Fn, n.End }
func (n *FuncStmt) stmt()                        {}

func (n *ClassStmt) Span() (token.Pos, token.Pos) { return n.Class, n.End }
func (n *ClassStmt) stmt()                        {}

// IsValidStmt reports whether s is a recognized statement kind.
func IsValidStmt(s Stmt) bool {
	switch s.(type) {
	case *LetStmt, *AssignStmt, *ExprStmt, *IfStmt, *WhileStmt, *ForStmt,
		*ReturnStmt, *BreakStmt, *ContinueStmt, *AssertStmt, *FuncStmt, *ClassStmt:
		return true
	default:
		return false
	}
}
