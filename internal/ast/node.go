package ast

import "gard/internal/source"

// Node is implemented by every syntax tree node.
type Node interface {
	Span() source.Span
}

// Expr: узел-выражение.
type Expr interface {
	Node
	exprNode()
}

// Stmt: узел-оператор; объявления тоже операторы.
type Stmt interface {
	Node
	stmtNode()
}

// Loc is embedded by every node and carries its source range.
type Loc struct {
	Range source.Span
}

func (l Loc) Span() source.Span { return l.Range }

// At is a shorthand for building a Loc.
func At(sp source.Span) Loc { return Loc{Range: sp} }

// File is the root of one parsed compilation unit.
type File struct {
	Loc
	Path  string
	Items []Stmt
}

// TypeRef is a type annotation: NAME ("<" args ">")? ("[]")*.
// Annotations are recorded but only checked where the runtime needs them
// (catch clauses, `is`, typed ledger maps).
type TypeRef struct {
	Loc
	Name  string
	Args  []*TypeRef
	Array int
}

func (t *TypeRef) String() string {
	if t == nil {
		return ""
	}
	s := t.Name
	if len(t.Args) > 0 {
		s += "<"
		for i, a := range t.Args {
			if i > 0 {
				s += ", "
			}
			s += a.String()
		}
		s += ">"
	}
	for range t.Array {
		s += "[]"
	}
	return s
}
