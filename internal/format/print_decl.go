package format

import (
	"strings"

	"gard/internal/ast"
)

func (p *printer) decl(s ast.Stmt) {
	switch d := s.(type) {
	case *ast.FuncDecl:
		p.doc(d.Doc)
		p.decorators(d.Decorators)
		p.mods(d.Mods)
		p.function(d.Fn)
	case *ast.ClassDecl:
		p.doc(d.Doc)
		p.class(d)
	case *ast.InterfaceDecl:
		p.doc(d.Doc)
		p.iface(d)
	case *ast.ContractDecl:
		p.doc(d.Doc)
		p.contract(d)
	case *ast.ImportDecl:
		names := make([]string, len(d.Names))
		for i, n := range d.Names {
			names[i] = n.Name
			if n.Alias != "" {
				names[i] += " as " + n.Alias
			}
		}
		p.w.WriteString("import { " + strings.Join(names, ", ") + " } from " + quote(d.Path) + ";")
	case *ast.ExportDecl:
		p.exportDecl(d)
	}
}

// exportDecl печатает doc перед `export`, где его и найдёт парсер.
func (p *printer) exportDecl(d *ast.ExportDecl) {
	p.doc(ast.DocOf(d.Decl))
	p.w.WriteString("export ")
	p.skipDoc = true
	p.stmt(d.Decl)
}

func (p *printer) function(fn *ast.Function) {
	p.w.WriteString("function " + fn.Name)
	p.params(fn.Params)
	if fn.Return != nil {
		p.w.WriteString(": " + fn.Return.String())
	}
	if fn.Body == nil {
		p.w.WriteString(";")
		return
	}
	p.w.WriteString(" ")
	p.block(fn.Body)
}

func (p *printer) params(ps []*ast.Param) {
	p.w.WriteString("(")
	for i, prm := range ps {
		if i > 0 {
			p.w.WriteString(", ")
		}
		p.param(prm)
	}
	p.w.WriteString(")")
}

func (p *printer) param(prm *ast.Param) {
	switch {
	case prm.Rest:
		p.w.WriteString("..." + prm.Name)
	case prm.Destructured():
		p.w.WriteString("{")
		for i, f := range prm.Fields {
			if i > 0 {
				p.w.WriteString(", ")
			}
			p.param(f)
		}
		p.w.WriteString("}")
	default:
		p.w.WriteString(prm.Name)
	}
	if prm.Type != nil {
		p.w.WriteString(": " + prm.Type.String())
	}
	if prm.Default != nil {
		p.w.WriteString(" = ")
		p.expr(prm.Default)
	}
}

func (p *printer) class(c *ast.ClassDecl) {
	p.decorators(c.Decorators)
	p.mods(c.Mods)
	p.w.WriteString("class " + c.Name)
	if c.Super != "" {
		p.w.WriteString(" extends " + c.Super)
	}
	if len(c.Implements) > 0 {
		p.w.WriteString(" implements " + strings.Join(c.Implements, ", "))
	}
	p.w.WriteString(" ")
	p.members(nil, c.Fields, c.Ctor, c.Methods, nil)
}

func (p *printer) contract(d *ast.ContractDecl) {
	if d.Blockchain {
		p.w.WriteString("blockchain ")
	}
	p.w.WriteString("contract " + d.Name + " ")
	p.members(d.Ledger, d.Fields, d.Ctor, d.Methods, d.Classes)
}

func (p *printer) members(ledger []*ast.LedgerField, fields []*ast.FieldDecl, ctor *ast.Function,
	methods []*ast.MethodDecl, classes []*ast.ClassDecl,
) {
	if len(ledger)+len(fields)+len(methods)+len(classes) == 0 && ctor == nil {
		p.w.WriteString("{}")
		return
	}
	p.w.WriteString("{")
	p.w.Newline()
	p.w.Indent()
	for _, l := range ledger {
		p.doc(l.Doc)
		p.w.WriteString("ledger " + l.Name + ": " + l.Type.String())
		if l.Init != nil {
			p.w.WriteString(" = ")
			p.expr(l.Init)
		}
		p.w.WriteString(";")
		p.w.Newline()
	}
	for _, f := range fields {
		p.doc(f.Doc)
		p.mods(f.Mods)
		p.w.WriteString(f.Name)
		if f.Type != nil {
			p.w.WriteString(": " + f.Type.String())
		}
		if f.Init != nil {
			p.w.WriteString(" = ")
			p.expr(f.Init)
		}
		p.w.WriteString(";")
		p.w.Newline()
	}
	for _, c := range classes {
		p.w.Newline()
		p.doc(c.Doc)
		p.class(c)
		p.w.Newline()
	}
	if ctor != nil {
		p.w.Newline()
		p.w.WriteString("constructor")
		p.params(ctor.Params)
		p.w.WriteString(" ")
		p.block(ctor.Body)
		p.w.Newline()
	}
	for _, m := range methods {
		p.w.Newline()
		p.doc(m.Doc)
		p.mods(m.Mods)
		p.function(m.Fn)
		p.w.Newline()
	}
	p.w.Dedent()
	p.w.WriteString("}")
}

func (p *printer) iface(d *ast.InterfaceDecl) {
	p.w.WriteString("interface " + d.Name)
	if len(d.Extends) > 0 {
		p.w.WriteString(" extends " + strings.Join(d.Extends, ", "))
	}
	if len(d.Members) == 0 {
		p.w.WriteString(" {}")
		return
	}
	p.w.WriteString(" {")
	p.w.Newline()
	p.w.Indent()
	for _, m := range d.Members {
		if m.Method {
			p.w.WriteString("function " + m.Name)
			p.params(m.Params)
		} else {
			p.w.WriteString(m.Name)
		}
		if m.Type != nil {
			p.w.WriteString(": " + m.Type.String())
		}
		p.w.WriteString(";")
		p.w.Newline()
	}
	p.w.Dedent()
	p.w.WriteString("}")
}
