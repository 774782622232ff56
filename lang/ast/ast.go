// Package ast defines the abstract syntax tree produced by lang/parser and
// consumed by lang/resolver and lang/compiler. This is the fixed AST
// surface named in the specification's external-interfaces section: any
// conforming scanner/parser pair may be substituted as long as it builds
// this tree.
package ast

import "github.com/mna/glade/lang/token"

// Node is any node of the AST.
type Node interface {
	Span() (start, end token.Pos)
}

// Expr is an expression node.
type Expr interface {
	Node
	expr()
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmt()
}

// Chunk is the root of a parsed source file.
type Chunk struct {
	Name  string
	Block *Block
	EOF   token.Pos
}

func (n *Chunk) Span() (token.Pos, token.Pos) {
	if n.Block != nil {
		return n.Block.Span()
	}
	return n.EOF, n.EOF
}

// Block is a sequence of statements sharing a lexical scope.
type Block struct {
	Start, End token.Pos
	Stmts      []Stmt
}

func (n *Block) Span() (token.Pos, token.Pos) { return n.Start, n.End }
