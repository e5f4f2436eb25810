// Package ast defines the abstract syntax tree the compiler consumes.
// Parsing happens upstream; this package is the input contract.
package ast

import (
	"github.com/candor-lang/candor/token"
)

// Node represents a portion of the syntax tree. All nodes have
// position information indicating where they appear in the source.
type Node interface {
	// Pos returns the position of the first character belonging to the node.
	Pos() token.Position

	// String returns a human friendly representation of the node. This
	// should be similar to the original source, but not necessarily
	// identical.
	String() string
}

// Stmt represents a statement node. Statements cause side effects but
// do not evaluate to a value.
type Stmt interface {
	Node
	stmtNode()
}

// Expr represents an expression node. Expressions evaluate to a value
// and may be embedded within other expressions.
type Expr interface {
	Node
	exprNode()
}

// Program is the root node: a sequence of top-level statements.
type Program struct {
	Statements []Stmt
}

func (p *Program) Pos() token.Position {
	if len(p.Statements) > 0 {
		return p.Statements[0].Pos()
	}
	return token.Position{}
}

func (p *Program) String() string {
	var out string
	for i, s := range p.Statements {
		if i > 0 {
			out += " "
		}
		out += s.String()
	}
	return out
}
