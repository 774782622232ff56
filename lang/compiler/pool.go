package compiler

import (
	"github.com/mna/glade/lang/ast"
	"github.com/mna/glade/lang/resolver"
	"github.com/mna/glade/lang/token"
)

// Pool is the read-only string/name constant table shared by every actor.
// It is built once from the resolved program, before any actor starts
// compiling functions, so the table itself never needs locking.
type Pool struct {
	Strings []string
	Names   []string

	strIdx  map[string]uint32
	nameIdx map[string]uint32
}

func NewPool() *Pool {
	return &Pool{strIdx: map[string]uint32{}, nameIdx: map[string]uint32{}}
}

func (p *Pool) internString(s string) uint32 {
	if idx, ok := p.strIdx[s]; ok {
		return idx
	}
	idx := uint32(len(p.Strings))
	p.Strings = append(p.Strings, s)
	p.strIdx[s] = idx
	return idx
}

// StringIndex returns the pool index of s, interning it if BuildPool's
// walk somehow missed it (defensive; every codegen-visited literal is
// walked ahead of time).
func (p *Pool) StringIndex(s string) uint32 { return p.internString(s) }

// NameIndex returns the pool index of a field/method/host-function name.
func (p *Pool) NameIndex(s string) uint32 { return p.internName(s) }

func (p *Pool) internName(s string) uint32 {
	if idx, ok := p.nameIdx[s]; ok {
		return idx
	}
	idx := uint32(len(p.Names))
	p.Names = append(p.Names, s)
	p.nameIdx[s] = idx
	return idx
}

// BuildPool walks every function body in prog, interning every string
// literal, byte-array literal, field name and method name it finds.
func BuildPool(prog *resolver.Program) *Pool {
	p := NewPool()
	for _, fn := range prog.Funs {
		if fn.Body != nil {
			walkBlockConsts(p, fn.Body)
		}
	}
	for _, class := range prog.Classes {
		for name := range class.Fields {
			p.internName(name)
		}
		for name := range class.Methods {
			p.internName(name)
		}
	}
	return p
}

func walkBlockConsts(p *Pool, b *ast.Block) {
	for _, s := range b.Stmts {
		walkStmtConsts(p, s)
	}
}

func walkStmtConsts(p *Pool, s ast.Stmt) {
	switch n := s.(type) {
	case *ast.LetStmt:
		walkExprConsts(p, n.Value)
	case *ast.AssignStmt:
		walkExprConsts(p, n.Left)
		walkExprConsts(p, n.Right)
	case *ast.ExprStmt:
		walkExprConsts(p, n.X)
	case *ast.IfStmt:
		walkExprConsts(p, n.Cond)
		walkBlockConsts(p, n.Then)
		if n.Else != nil {
			walkBlockConsts(p, n.Else)
		}
	case *ast.WhileStmt:
		walkExprConsts(p, n.Cond)
		walkBlockConsts(p, n.Body)
	case *ast.ForStmt:
		if n.Init != nil {
			walkStmtConsts(p, n.Init)
		}
		if n.Cond != nil {
			walkExprConsts(p, n.Cond)
		}
		walkBlockConsts(p, n.Body)
		if n.Post != nil {
			walkStmtConsts(p, n.Post)
		}
	case *ast.ReturnStmt:
		if n.Value != nil {
			walkExprConsts(p, n.Value)
		}
	case *ast.AssertStmt:
		walkExprConsts(p, n.Cond)
	case *ast.FuncStmt:
		walkBlockConsts(p, n.Body)
	case *ast.ClassStmt:
		for _, m := range n.Methods {
			walkBlockConsts(p, m.Body)
		}
	}
}

func walkExprConsts(p *Pool, e ast.Expr) {
	switch n := e.(type) {
	case *ast.IdentExpr:
		if d, ok := n.Decl.(*resolver.Decl); ok && d.Kind == resolver.Host {
			p.internName(d.Name)
		}
	case *ast.LiteralExpr:
		if n.Type == token.STRING {
			p.internString(n.Value.(string))
		}
	case *ast.ByteArrayExpr:
		p.internString(string(n.Value))
	case *ast.ArrayExpr:
		for _, it := range n.Items {
			walkExprConsts(p, it)
		}
	case *ast.MapExpr:
		for _, kv := range n.Items {
			walkExprConsts(p, kv.Key)
			walkExprConsts(p, kv.Value)
		}
	case *ast.UnaryExpr:
		walkExprConsts(p, n.Right)
	case *ast.BinaryExpr:
		walkExprConsts(p, n.Left)
		walkExprConsts(p, n.Right)
	case *ast.TernaryExpr:
		walkExprConsts(p, n.Cond)
		walkExprConsts(p, n.Then)
		walkExprConsts(p, n.Else)
	case *ast.IndexExpr:
		walkExprConsts(p, n.Prefix)
		walkExprConsts(p, n.Index)
	case *ast.MemberExpr:
		walkExprConsts(p, n.Left)
		p.internName(n.Name)
	case *ast.CallExpr:
		if me, ok := n.Fn.(*ast.MemberExpr); ok {
			walkExprConsts(p, me.Left)
			p.internName(me.Name)
		} else {
			walkExprConsts(p, n.Fn)
		}
		for _, a := range n.Args {
			walkExprConsts(p, a)
		}
	case *ast.FuncExpr:
		walkBlockConsts(p, n.Body)
	}
}
