package format

import (
	"gard/internal/ast"
)

func (p *printer) stmt(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.VarDecl:
		p.doc(s.Doc)
		p.varDecl(s)
		p.w.WriteString(";")
	case *ast.Block:
		p.block(s)
	case *ast.ExprStmt:
		p.expr(s.X)
		if _, ok := s.X.(*ast.MatchExpr); !ok {
			p.w.WriteString(";")
		}
	case *ast.If:
		p.w.WriteString("if (")
		p.expr(s.Cond)
		p.w.WriteString(") ")
		p.stmt(s.Then)
		if s.Else != nil {
			if _, ok := s.Then.(*ast.Block); ok {
				p.w.WriteString(" else ")
			} else {
				p.w.Newline()
				p.w.WriteString("else ")
			}
			p.stmt(s.Else)
		}
	case *ast.While:
		p.w.WriteString("while (")
		p.expr(s.Cond)
		p.w.WriteString(") ")
		p.stmt(s.Body)
	case *ast.DoWhile:
		p.w.WriteString("do ")
		p.stmt(s.Body)
		p.w.WriteString(" while (")
		p.expr(s.Cond)
		p.w.WriteString(");")
	case *ast.For:
		p.w.WriteString("for (")
		switch init := s.Init.(type) {
		case *ast.VarDecl:
			p.varDecl(init)
		case *ast.ExprStmt:
			p.expr(init.X)
		}
		p.w.WriteString(";")
		if s.Cond != nil {
			p.w.WriteString(" ")
			p.expr(s.Cond)
		}
		p.w.WriteString(";")
		if s.Post != nil {
			p.w.WriteString(" ")
			p.expr(s.Post)
		}
		p.w.WriteString(") ")
		p.stmt(s.Body)
	case *ast.ForEach:
		p.w.WriteString("foreach (")
		if s.Kind != ast.DeclLet {
			p.w.WriteString(s.Kind.String() + " ")
		}
		p.w.WriteString(s.Name + " in ")
		p.expr(s.Iter)
		p.w.WriteString(") ")
		p.stmt(s.Body)
	case *ast.Switch:
		p.switchStmt(s)
	case *ast.Try:
		p.w.WriteString("try ")
		p.block(s.Body)
		for _, c := range s.Catches {
			p.w.WriteString(" catch ")
			if c.Name != "" {
				p.w.WriteString("(" + c.Name)
				if c.Type != nil {
					p.w.WriteString(": " + c.Type.String())
				}
				p.w.WriteString(") ")
			}
			p.block(c.Body)
		}
		if s.Finally != nil {
			p.w.WriteString(" finally ")
			p.block(s.Finally)
		}
	case *ast.Throw:
		p.w.WriteString("throw ")
		p.expr(s.X)
		p.w.WriteString(";")
	case *ast.Return:
		p.w.WriteString("return")
		if s.X != nil {
			p.w.WriteString(" ")
			p.expr(s.X)
		}
		p.w.WriteString(";")
	case *ast.Break:
		p.w.WriteString("break;")
	case *ast.Continue:
		p.w.WriteString("continue;")
	case *ast.LockStmt:
		p.w.WriteString("lock (")
		p.expr(s.Target)
		p.w.WriteString(") ")
		p.block(s.Body)
	case *ast.Unlock:
		p.w.WriteString("unlock(")
		p.expr(s.Target)
		p.w.WriteString(");")
	case *ast.Transfer:
		p.w.WriteString("transaction { ")
		p.expr(s.From)
		p.w.WriteString(" -> ")
		p.expr(s.To)
		p.w.WriteString(" : ")
		p.expr(s.Amount)
		p.w.WriteString(" }")
	default:
		p.decl(s)
	}
}

func (p *printer) varDecl(d *ast.VarDecl) {
	p.w.WriteString(d.Kind.String() + " " + d.Name)
	if d.Type != nil {
		p.w.WriteString(": " + d.Type.String())
	}
	if d.Init != nil {
		p.w.WriteString(" = ")
		p.expr(d.Init)
	}
}

func (p *printer) block(b *ast.Block) {
	if len(b.Stmts) == 0 {
		p.w.WriteString("{}")
		return
	}
	p.w.WriteString("{")
	p.w.Newline()
	p.w.Indent()
	p.stmts(b.Stmts)
	p.w.Dedent()
	p.w.WriteString("}")
}

func (p *printer) stmts(list []ast.Stmt) {
	for _, s := range list {
		p.stmt(s)
		p.w.Newline()
	}
}

func (p *printer) switchStmt(s *ast.Switch) {
	p.w.WriteString("switch (")
	p.expr(s.Tag)
	p.w.WriteString(") {")
	p.w.Newline()
	p.w.Indent()
	for _, c := range s.Cases {
		if c.Value == nil {
			p.w.WriteString("default:")
		} else {
			p.w.WriteString("case ")
			p.expr(c.Value)
			p.w.WriteString(":")
		}
		p.w.Newline()
		p.w.Indent()
		p.stmts(c.Body)
		p.w.Dedent()
	}
	p.w.Dedent()
	p.w.WriteString("}")
}
