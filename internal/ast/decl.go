package ast

// Param is one formal parameter. A destructuring parameter has an empty
// Name and a non-nil Fields list; its fields bind by name.
type Param struct {
	Loc
	Name    string
	Type    *TypeRef
	Default Expr
	Rest    bool
	Fields  []*Param
}

// Destructured reports whether the parameter is an object pattern.
func (p *Param) Destructured() bool { return p.Fields != nil }

// Function is shared by declarations, methods, constructors and literals.
// Arrow functions with an expression body keep it in Expr; Body is nil then.
type Function struct {
	Loc
	Name   string
	Params []*Param
	Return *TypeRef
	Body   *Block
	Expr   Expr
	Async  bool
	Arrow  bool
}

type FuncDecl struct {
	Loc
	Fn         *Function
	Mods       Modifiers
	Decorators []string
	Doc        string
}

type FieldDecl struct {
	Loc
	Name string
	Type *TypeRef
	Init Expr
	Mods Modifiers
	Doc  string
}

// MethodDecl: Fn.Body == nil for abstract methods.
type MethodDecl struct {
	Loc
	Fn   *Function
	Mods Modifiers
	Doc  string
}

type ClassDecl struct {
	Loc
	Name       string
	Super      string
	Implements []string
	Mods       Modifiers
	Decorators []string
	Fields     []*FieldDecl
	Ctor       *Function
	Methods    []*MethodDecl
	Doc        string
}

// IsEvent reports the @event decorator.
func (c *ClassDecl) IsEvent() bool {
	for _, d := range c.Decorators {
		if d == "event" {
			return true
		}
	}
	return false
}

// InterfaceMember is a method signature; Params == nil for property members.
type InterfaceMember struct {
	Loc
	Name   string
	Method bool
	Params []*Param
	Type   *TypeRef
}

type InterfaceDecl struct {
	Loc
	Name    string
	Extends []string
	Members []*InterfaceMember
	Doc     string
}

// LedgerField is contract storage persisted by the ledger engine.
type LedgerField struct {
	Loc
	Name string
	Type *TypeRef
	Init Expr
	Doc  string
}

type ContractDecl struct {
	Loc
	Name       string
	Blockchain bool
	Ledger     []*LedgerField
	Fields     []*FieldDecl
	Ctor       *Function
	Methods    []*MethodDecl
	Classes    []*ClassDecl
	Doc        string
}

type ImportSpec struct {
	Loc
	Name  string
	Alias string
}

// Binding returns the local name the import introduces.
func (s *ImportSpec) Binding() string {
	if s.Alias != "" {
		return s.Alias
	}
	return s.Name
}

type ImportDecl struct {
	Loc
	Names []*ImportSpec
	Path  string
}

// ExportDecl wraps a declaration visible to importers.
type ExportDecl struct {
	Loc
	Decl Stmt
}

func (*FuncDecl) stmtNode()      {}
func (*ClassDecl) stmtNode()     {}
func (*InterfaceDecl) stmtNode() {}
func (*ContractDecl) stmtNode()  {}
func (*ImportDecl) stmtNode()    {}
func (*ExportDecl) stmtNode()    {}

// DeclName returns the name a declaration binds, or "".
func DeclName(s Stmt) string {
	switch d := s.(type) {
	case *FuncDecl:
		return d.Fn.Name
	case *ClassDecl:
		return d.Name
	case *InterfaceDecl:
		return d.Name
	case *ContractDecl:
		return d.Name
	case *VarDecl:
		return d.Name
	case *ExportDecl:
		return DeclName(d.Decl)
	}
	return ""
}

// DocOf returns the doc comment attached to a declaration.
func DocOf(s Stmt) string {
	switch d := s.(type) {
	case *FuncDecl:
		return d.Doc
	case *ClassDecl:
		return d.Doc
	case *InterfaceDecl:
		return d.Doc
	case *ContractDecl:
		return d.Doc
	case *VarDecl:
		return d.Doc
	case *ExportDecl:
		return DocOf(d.Decl)
	}
	return ""
}
