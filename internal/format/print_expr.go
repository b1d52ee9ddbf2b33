package format

import (
	"strings"

	"gard/internal/ast"
	"gard/internal/token"
)

func (p *printer) expr(x ast.Expr) {
	switch x := x.(type) {
	case *ast.Literal:
		if x.Raw == "" && x.Kind == ast.LitString {
			p.w.WriteString(quote(x.Str))
			return
		}
		p.w.WriteString(x.Raw)
	case *ast.Ident:
		p.w.WriteString(x.Name)
	case *ast.ThisExpr:
		p.w.WriteString("this")
	case *ast.SuperExpr:
		p.w.WriteString("super")
	case *ast.TemplateLit:
		p.w.WriteString("`")
		for _, part := range x.Parts {
			p.w.WriteString(templateText(part.Text))
			if part.X != nil {
				p.w.WriteString("${")
				p.expr(part.X)
				p.w.WriteString("}")
			}
		}
		p.w.WriteString("`")
	case *ast.Paren:
		p.w.WriteString("(")
		p.expr(x.X)
		p.w.WriteString(")")
	case *ast.Unary:
		op := x.Op.Lexeme()
		p.w.WriteString(op)
		// "- -x" и "- --x" не должны слипнуться в "--"
		if inner := Expr(x.X); (op == "-" || op == "--") && strings.HasPrefix(inner, "-") {
			p.w.WriteString(" ")
		}
		p.expr(x.X)
	case *ast.Postfix:
		p.expr(x.X)
		p.w.WriteString(x.Op.Lexeme())
	case *ast.Binary:
		p.expr(x.X)
		p.w.WriteString(" " + x.Op.Lexeme() + " ")
		p.expr(x.Y)
	case *ast.IsExpr:
		p.expr(x.X)
		p.w.WriteString(" is " + x.Type.String())
	case *ast.TypeofExpr:
		p.w.WriteString("typeof ")
		p.expr(x.X)
	case *ast.AwaitExpr:
		p.w.WriteString("await ")
		p.expr(x.X)
	case *ast.SpawnExpr:
		p.w.WriteString("spawn ")
		p.expr(x.X)
	case *ast.NewExpr:
		p.w.WriteString("new ")
		p.expr(x.Class)
		if x.Args != nil {
			p.args(x.Args)
		}
	case *ast.Assign:
		p.expr(x.Target)
		p.w.WriteString(" " + x.Op.Lexeme() + " ")
		p.expr(x.Value)
	case *ast.Ternary:
		p.expr(x.Cond)
		p.w.WriteString(" ? ")
		p.expr(x.Then)
		p.w.WriteString(" : ")
		p.expr(x.Else)
	case *ast.Call:
		p.expr(x.Fn)
		p.args(x.Args)
	case *ast.Member:
		p.expr(x.X)
		if x.Optional {
			p.w.WriteString("?.")
		} else {
			p.w.WriteString(".")
		}
		p.w.WriteString(x.Name)
	case *ast.Index:
		p.expr(x.X)
		p.w.WriteString("[")
		p.expr(x.Index)
		p.w.WriteString("]")
	case *ast.ArrayLit:
		p.w.WriteString("[")
		p.list(x.Elems)
		p.w.WriteString("]")
	case *ast.TupleLit:
		p.w.WriteString("(")
		p.list(x.Elems)
		if len(x.Elems) == 1 {
			p.w.WriteString(",")
		}
		p.w.WriteString(")")
	case *ast.SetLit:
		p.w.WriteString("#{")
		p.list(x.Elems)
		p.w.WriteString("}")
	case *ast.MapLit:
		p.mapLit(x)
	case *ast.Spread:
		p.w.WriteString("...")
		p.expr(x.X)
	case *ast.FuncLit:
		p.funcLit(x.Fn)
	case *ast.ValidateExpr:
		p.w.WriteString("validate(")
		p.expr(x.Cond)
		if x.Msg != nil {
			p.w.WriteString(", ")
			p.expr(x.Msg)
		}
		p.w.WriteString(")")
	case *ast.EmitExpr:
		p.w.WriteString("emit " + x.Name)
		p.args(x.Args)
	case *ast.MatchExpr:
		p.match(x)
	}
}

func (p *printer) list(xs []ast.Expr) {
	for i, x := range xs {
		if i > 0 {
			p.w.WriteString(", ")
		}
		p.expr(x)
	}
}

func (p *printer) args(xs []ast.Expr) {
	p.w.WriteString("(")
	p.list(xs)
	p.w.WriteString(")")
}

func (p *printer) mapLit(m *ast.MapLit) {
	if len(m.Entries) == 0 {
		p.w.WriteString("{}")
		return
	}
	p.w.WriteString("{")
	for i, e := range m.Entries {
		if i > 0 {
			p.w.WriteString(", ")
		}
		switch k := e.Key.(type) {
		case *ast.Ident, *ast.Literal:
			p.expr(k)
		default:
			p.w.WriteString("[")
			if paren, ok := k.(*ast.Paren); ok {
				p.expr(paren.X)
			} else {
				p.expr(k)
			}
			p.w.WriteString("]")
		}
		p.w.WriteString(": ")
		p.expr(e.Value)
	}
	p.w.WriteString("}")
}

func (p *printer) funcLit(fn *ast.Function) {
	if fn.Async {
		p.w.WriteString("async ")
	}
	if !fn.Arrow {
		p.function(fn)
		return
	}
	p.params(fn.Params)
	p.w.WriteString(" => ")
	if fn.Body != nil {
		p.block(fn.Body)
		return
	}
	p.expr(fn.Expr)
}

func (p *printer) match(m *ast.MatchExpr) {
	p.w.WriteString("match (")
	p.expr(m.Subject)
	p.w.WriteString(") {")
	p.w.Newline()
	p.w.Indent()
	for _, arm := range m.Arms {
		if arm.Pattern == nil {
			p.w.WriteString("_")
		} else {
			p.expr(arm.Pattern)
		}
		if arm.Arrow == token.Arrow {
			p.w.WriteString(" -> ")
		} else {
			p.w.WriteString(" => ")
		}
		if arm.Block != nil {
			p.block(arm.Block)
		} else {
			p.expr(arm.Body)
		}
		p.w.WriteString(",")
		p.w.Newline()
	}
	p.w.Dedent()
	p.w.WriteString("}")
}
