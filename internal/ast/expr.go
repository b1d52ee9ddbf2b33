package ast

import "gard/internal/token"

// LitKind: вид литерала после разбора суффикса.
type LitKind uint8

const (
	LitNull LitKind = iota
	LitBool
	LitInt
	LitLong
	LitShort
	LitFloat
	LitDouble
	LitString
	LitChar
)

// Literal keeps both the lexeme (for printing) and the decoded value.
// Int holds integer and char values, Float floating ones, Str strings.
type Literal struct {
	Loc
	Kind  LitKind
	Raw   string
	Int   int64
	Float float64
	Str   string
	Bool  bool
}

type Ident struct {
	Loc
	Name string
}

type ThisExpr struct{ Loc }

type SuperExpr struct{ Loc }

// TemplatePart is literal text optionally followed by an embedded expression.
type TemplatePart struct {
	Text string
	X    Expr
}

type TemplateLit struct {
	Loc
	Parts []*TemplatePart
}

type Paren struct {
	Loc
	X Expr
}

// Unary covers prefix - ! ++ --.
type Unary struct {
	Loc
	Op token.Kind
	X  Expr
}

// Postfix covers x++ and x--.
type Postfix struct {
	Loc
	Op token.Kind
	X  Expr
}

// Binary covers arithmetic, comparison, && || and ??.
type Binary struct {
	Loc
	Op   token.Kind
	X, Y Expr
}

type IsExpr struct {
	Loc
	X    Expr
	Type *TypeRef
}

type TypeofExpr struct {
	Loc
	X Expr
}

type AwaitExpr struct {
	Loc
	X Expr
}

// SpawnExpr starts X as a new task and yields its handle.
type SpawnExpr struct {
	Loc
	X Expr
}

type NewExpr struct {
	Loc
	Class Expr
	Args  []Expr
}

// Assign: Op is token.Assign or a compound assignment.
type Assign struct {
	Loc
	Op     token.Kind
	Target Expr
	Value  Expr
}

type Ternary struct {
	Loc
	Cond, Then, Else Expr
}

type Call struct {
	Loc
	Fn       Expr
	Args     []Expr
	Optional bool // f?.(...) не поддерживается, флаг ставит a?.m(...)
}

type Member struct {
	Loc
	X        Expr
	Name     string
	Optional bool
}

type Index struct {
	Loc
	X, Index Expr
}

type ArrayLit struct {
	Loc
	Elems []Expr
}

type TupleLit struct {
	Loc
	Elems []Expr
}

type SetLit struct {
	Loc
	Elems []Expr
}

// MapEntry: an *Ident key names a string key, any other key is evaluated.
type MapEntry struct {
	Key, Value Expr
}

type MapLit struct {
	Loc
	Entries []*MapEntry
}

type Spread struct {
	Loc
	X Expr
}

type FuncLit struct {
	Loc
	Fn *Function
}

// ValidateExpr is validate(cond, msg); Msg may be nil.
type ValidateExpr struct {
	Loc
	Cond, Msg Expr
}

type EmitExpr struct {
	Loc
	Name string
	Args []Expr
}

// MatchArm: Pattern == nil means `_`. Exactly one of Body and Block is set.
type MatchArm struct {
	Loc
	Pattern Expr
	Arrow   token.Kind
	Body    Expr
	Block   *Block
}

type MatchExpr struct {
	Loc
	Subject Expr
	Arms    []*MatchArm
}

func (*Literal) exprNode()      {}
func (*Ident) exprNode()        {}
func (*ThisExpr) exprNode()     {}
func (*SuperExpr) exprNode()    {}
func (*TemplateLit) exprNode()  {}
func (*Paren) exprNode()        {}
func (*Unary) exprNode()        {}
func (*Postfix) exprNode()      {}
func (*Binary) exprNode()       {}
func (*IsExpr) exprNode()       {}
func (*TypeofExpr) exprNode()   {}
func (*AwaitExpr) exprNode()    {}
func (*SpawnExpr) exprNode()    {}
func (*NewExpr) exprNode()      {}
func (*Assign) exprNode()       {}
func (*Ternary) exprNode()      {}
func (*Call) exprNode()         {}
func (*Member) exprNode()       {}
func (*Index) exprNode()        {}
func (*ArrayLit) exprNode()     {}
func (*TupleLit) exprNode()     {}
func (*SetLit) exprNode()       {}
func (*MapLit) exprNode()       {}
func (*Spread) exprNode()       {}
func (*FuncLit) exprNode()      {}
func (*ValidateExpr) exprNode() {}
func (*EmitExpr) exprNode()     {}
func (*MatchExpr) exprNode()    {}

func (k LitKind) String() string {
	switch k {
	case LitNull:
		return "null"
	case LitBool:
		return "bool"
	case LitInt:
		return "int"
	case LitLong:
		return "long"
	case LitShort:
		return "short"
	case LitFloat:
		return "float"
	case LitDouble:
		return "double"
	case LitString:
		return "string"
	case LitChar:
		return "char"
	}
	return "literal"
}
