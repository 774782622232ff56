package ast

import "github.com/mna/glade/lang/token"

type (
	// IdentExpr is an identifier reference. Decl is filled in by the
	// resolver (it holds a *resolver.Decl, kept as `any` to avoid an import
	// cycle between ast and resolver, exactly as the teacher's FuncStmt.Function
	// field does for its own resolver annotation).
	IdentExpr struct {
		Start token.Pos
		Lit   string
		Decl  any
	}

	// LiteralExpr is a nil/true/false/int/float/string literal.
	LiteralExpr struct {
		Type  token.Token
		Start token.Pos
		Raw   string
		Value interface{} // nil | int64 | float64 | string
	}

	// ByteArrayExpr is a byte-array literal, e.g. b"abc".
	ByteArrayExpr struct {
		Start token.Pos
		Raw   string
		Value []byte
	}

	// ArrayExpr is an array literal [a, b, c].
	ArrayExpr struct {
		Lbrack token.Pos
		Items  []Expr
		Rbrack token.Pos
	}

	// KeyVal is one key/value pair of a MapExpr.
	KeyVal struct {
		Key, Value Expr
	}

	// MapExpr is an object/dict literal {k: v, ...}.
	MapExpr struct {
		Lbrace token.Pos
		Items  []*KeyVal
		Rbrace token.Pos
	}

	// UnaryExpr is a unary operator expression, e.g. -x, !x, ~x.
	UnaryExpr struct {
		Op    token.Token
		OpPos token.Pos
		Right Expr
	}

	// BinaryExpr is a binary operator expression, e.g. x + y, x && y.
	BinaryExpr struct {
		Left  Expr
		Op    token.Token
		OpPos token.Pos
		Right Expr
	}

	// TernaryExpr is a conditional expression, cond ? then : else.
	TernaryExpr struct {
		Cond     Expr
		Question token.Pos
		Then     Expr
		Colon    token.Pos
		Else     Expr
	}

	// IndexExpr is an index expression, e.g. x[y].
	IndexExpr struct {
		Prefix Expr
		Lbrack token.Pos
		Index  Expr
		Rbrack token.Pos
	}

	// MemberExpr is a field/method selector, e.g. x.y.
	MemberExpr struct {
		Left    Expr
		Dot     token.Pos
		Name    string
		NamePos token.Pos
	}

	// CallExpr is a function/method call, e.g. f(a, b) or a.b(c).
	CallExpr struct {
		Fn     Expr
		Lparen token.Pos
		Args   []Expr
		Rparen token.Pos
	}

	// FuncExpr is a function literal (closure).
	FuncExpr struct {
		Fn     token.Pos
		Params []*IdentExpr
		VarArg bool
		Body   *Block
		End    token.Pos

		// Resolved holds the *resolver.Function built for this literal.
		Resolved any
	}
)

func (n *IdentExpr) Span() (token.Pos, token.Pos) { return n.Start, n.Start + token.Pos(len(n.Lit)) }
func (n *IdentExpr) expr()                        {}

func (n *LiteralExpr) Span() (token.Pos, token.Pos) { return n.Start, n.Start + token.Pos(len(n.Raw)) }
func (n *LiteralExpr) expr()                        {}

func (n *ByteArrayExpr) Span() (token.Pos, token.Pos) {
	return n.Start, n.Start + token.Pos(len(n.Raw))
}
func (n *ByteArrayExpr) expr() {}

func (n *ArrayExpr) Span() (token.Pos, token.Pos) { return n.Lbrack, n.Rbrack + 1 }
func (n *ArrayExpr) expr()                        {}

func (n *MapExpr) Span() (token.Pos, token.Pos) { return n.Lbrace, n.Rbrace + 1 }
func (n *MapExpr) expr()                        {}

func (n *UnaryExpr) Span() (token.Pos, token.Pos) {
	_, end := n.Right.Span()
	return n.OpPos, end
}
func (n *UnaryExpr) expr() {}

func (n *BinaryExpr) Span() (token.Pos, token.Pos) {
	start, _ := n.Left.Span()
	_, end := n.Right.Span()
	return start, end
}
func (n *BinaryExpr) expr() {}

func (n *TernaryExpr) Span() (token.Pos, token.Pos) {
	start, _ := n.Cond.Span()
	_, end := n.Else.Span()
	return start, end
}
func (n *TernaryExpr) expr() {}

func (n *IndexExpr) Span() (token.Pos, token.Pos) {
	start, _ := n.Prefix.Span()
	return start, n.Rbrack + 1
}
func (n *IndexExpr) expr() {}

func (n *MemberExpr) Span() (token.Pos, token.Pos) {
	start, _ := n.Left.Span()
	return start, n.NamePos + token.Pos(len(n.Name))
}
func (n *MemberExpr) expr() {}

func (n *CallExpr) Span() (token.Pos, token.Pos) {
	start, _ := n.Fn.Span()
	end := n.Rparen
	if end.IsValid() {
		end++
	} else if len(n.Args) > 0 {
		_, end = n.Args[len(n.Args)-1].Span()
	}
	return start, end
}
func (n *CallExpr) expr() {}

func (n *FuncExpr) Span() (token.Pos, token.Pos) { return n.Fn, n.End }
func (n *FuncExpr) expr()                        {}

// IsAssignable reports whether e may appear on the left of an assignment.
func IsAssignable(e Expr) bool {
	switch e.(type) {
	case *IdentExpr, *MemberExpr, *IndexExpr:
		return true
	default:
		return false
	}
}
