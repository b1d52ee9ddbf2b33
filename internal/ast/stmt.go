package ast

// DeclKind: вид привязки.
type DeclKind uint8

const (
	DeclLet DeclKind = iota
	DeclVar
	DeclConst
	DeclReadonly
)

func (k DeclKind) String() string {
	switch k {
	case DeclVar:
		return "var"
	case DeclConst:
		return "const"
	case DeclReadonly:
		return "readonly"
	}
	return "let"
}

// Immutable reports single-assignment bindings.
func (k DeclKind) Immutable() bool { return k == DeclConst || k == DeclReadonly }

type VarDecl struct {
	Loc
	Kind DeclKind
	Name string
	Type *TypeRef
	Init Expr
	Doc  string
}

type Block struct {
	Loc
	Stmts []Stmt
}

type ExprStmt struct {
	Loc
	X Expr
}

type If struct {
	Loc
	Cond Expr
	Then Stmt
	Else Stmt
}

type While struct {
	Loc
	Cond Expr
	Body Stmt
}

type DoWhile struct {
	Loc
	Body Stmt
	Cond Expr
}

// For is the C-style loop; Init is a *VarDecl, an *ExprStmt or nil.
type For struct {
	Loc
	Init Stmt
	Cond Expr
	Post Expr
	Body Stmt
}

type ForEach struct {
	Loc
	Kind DeclKind
	Name string
	Iter Expr
	Body Stmt
}

// CaseClause: Value == nil is `default`.
type CaseClause struct {
	Loc
	Value Expr
	Body  []Stmt
}

type Switch struct {
	Loc
	Tag   Expr
	Cases []*CaseClause
}

// CatchClause: Type == nil catches everything.
type CatchClause struct {
	Loc
	Name string
	Type *TypeRef
	Body *Block
}

type Try struct {
	Loc
	Body    *Block
	Catches []*CatchClause
	Finally *Block
}

type Throw struct {
	Loc
	X Expr
}

type Return struct {
	Loc
	X Expr
}

type Break struct{ Loc }

type Continue struct{ Loc }

type LockStmt struct {
	Loc
	Target Expr
	Body   *Block
}

type Unlock struct {
	Loc
	Target Expr
}

// Transfer is `transaction { From -> To : Amount }`.
type Transfer struct {
	Loc
	From, To, Amount Expr
}

func (*VarDecl) stmtNode()  {}
func (*Block) stmtNode()    {}
func (*ExprStmt) stmtNode() {}
func (*If) stmtNode()       {}
func (*While) stmtNode()    {}
func (*DoWhile) stmtNode()  {}
func (*For) stmtNode()      {}
func (*ForEach) stmtNode()  {}
func (*Switch) stmtNode()   {}
func (*Try) stmtNode()      {}
func (*Throw) stmtNode()    {}
func (*Return) stmtNode()   {}
func (*Break) stmtNode()    {}
func (*Continue) stmtNode() {}
func (*LockStmt) stmtNode() {}
func (*Unlock) stmtNode()   {}
func (*Transfer) stmtNode() {}
