package parser

import (
	"gard/internal/ast"
	"gard/internal/diag"
	"gard/internal/source"
	"gard/internal/token"
)

// parseDecl: декораторы, модификаторы, затем function | class | interface | contract.
func (p *Parser) parseDecl() ast.Stmt {
	first := p.peek()
	doc := first.Doc()
	decorators := p.parseDecorators()
	mods := p.parseModifiers(false)

	switch p.peek().Kind {
	case token.KwFunction:
		fn := p.parseFunction(mods.Has(ast.ModAsync), true)
		return &ast.FuncDecl{Loc: ast.At(p.span(first.Span)), Fn: fn, Mods: mods, Decorators: decorators, Doc: doc}
	case token.KwClass:
		c := p.parseClass(mods, decorators)
		c.Doc = doc
		c.Loc = ast.At(p.span(first.Span))
		return c
	case token.KwInterface:
		d := p.parseInterface()
		d.Doc = doc
		d.Loc = ast.At(p.span(first.Span))
		return d
	case token.KwBlockchain, token.KwContract:
		d := p.parseContract()
		d.Doc = doc
		d.Loc = ast.At(p.span(first.Span))
		return d
	}
	p.failExpected("'function'", "'class'", "'interface'", "'contract'")
	return nil
}

func (p *Parser) parseDecorators() []string {
	var out []string
	for p.accept(token.At) {
		out = append(out, p.expectWord("decorator name").Text)
	}
	return out
}

// parseModifiers собирает модификаторы; readonly допустим только у членов класса.
func (p *Parser) parseModifiers(member bool) ast.Modifiers {
	var mods ast.Modifiers
	for {
		tok := p.peek()
		switch tok.Kind {
		case token.KwPublic, token.KwPrivate, token.KwProtected, token.KwStatic,
			token.KwAbstract, token.KwAsync, token.KwPayable, token.KwView, token.KwPure:
		case token.KwReadonly:
			if !member {
				return mods
			}
		default:
			return mods
		}
		m, _ := ast.ModifierByName(tok.Text)
		if mods.Has(m) {
			p.failAt(diag.SynUnexpectedToken, tok, tok.Span, "duplicate modifier "+tok.Text)
		}
		mods |= m
		p.advance()
	}
}

// parseFunction: function NAME? (params) (: type)? block.
func (p *Parser) parseFunction(async, named bool) *ast.Function {
	start := p.expect(token.KwFunction).Span
	fn := &ast.Function{Async: async}
	if named || p.at(token.Ident) {
		fn.Name = p.expectIdent("function name").Text
	}
	fn.Params = p.parseParams()
	if p.accept(token.Colon) {
		fn.Return = p.parseType()
	}
	fn.Body = p.parseBlock()
	fn.Loc = ast.At(p.span(start))
	return fn
}

// parseParams: "(" (param ("," param)*)? ")".
func (p *Parser) parseParams() []*ast.Param {
	p.expect(token.LParen)
	defer p.allowArrows()()
	var params []*ast.Param
	for !p.accept(token.RParen) {
		prm := p.parseParam()
		if len(params) > 0 && params[len(params)-1].Rest {
			p.failAt(diag.SynUnexpectedToken, p.peek(), prm.Span(), "rest parameter must be last")
		}
		params = append(params, prm)
		if !p.accept(token.Comma) {
			p.expect(token.RParen)
			break
		}
	}
	return params
}

func (p *Parser) parseParam() *ast.Param {
	start := p.peek().Span
	prm := &ast.Param{}
	switch {
	case p.accept(token.DotDotDot):
		prm.Rest = true
		prm.Name = p.expectIdent("parameter name").Text
	case p.accept(token.LBrace):
		prm.Fields = []*ast.Param{}
		for !p.accept(token.RBrace) {
			fs := p.peek().Span
			f := &ast.Param{Name: p.expectIdent("field name").Text}
			if p.accept(token.Colon) {
				f.Type = p.parseType()
			}
			if p.accept(token.Assign) {
				f.Default = p.parseExpr()
			}
			f.Loc = ast.At(p.span(fs))
			prm.Fields = append(prm.Fields, f)
			if !p.accept(token.Comma) {
				p.expect(token.RBrace)
				break
			}
		}
	default:
		prm.Name = p.expectIdent("parameter name").Text
	}
	if p.accept(token.Colon) {
		prm.Type = p.parseType()
	}
	if !prm.Rest && p.accept(token.Assign) {
		prm.Default = p.parseExpr()
	}
	prm.Loc = ast.At(p.span(start))
	return prm
}

// members: общий набор членов класса и контракта.
type members struct {
	fields  []*ast.FieldDecl
	ctor    *ast.Function
	methods []*ast.MethodDecl
	ledger  []*ast.LedgerField
	classes []*ast.ClassDecl
}

func (p *Parser) parseClass(mods ast.Modifiers, decorators []string) *ast.ClassDecl {
	p.expect(token.KwClass)
	c := &ast.ClassDecl{Mods: mods, Decorators: decorators}
	c.Name = p.expectIdent("class name").Text
	if p.accept(token.KwExtends) {
		c.Super = p.expectIdent("superclass name").Text
	}
	if p.accept(token.KwImplements) {
		for {
			c.Implements = append(c.Implements, p.expectIdent("interface name").Text)
			if !p.accept(token.Comma) {
				break
			}
		}
	}
	m := p.parseMembers(false)
	c.Fields, c.Ctor, c.Methods = m.fields, m.ctor, m.methods
	return c
}

func (p *Parser) parseContract() *ast.ContractDecl {
	d := &ast.ContractDecl{Blockchain: p.accept(token.KwBlockchain)}
	p.expect(token.KwContract)
	d.Name = p.expectIdent("contract name").Text
	m := p.parseMembers(true)
	d.Fields, d.Ctor, d.Methods, d.Ledger, d.Classes = m.fields, m.ctor, m.methods, m.ledger, m.classes
	return d
}

func (p *Parser) parseMembers(contract bool) members {
	var m members
	p.expect(token.LBrace)
	for !p.accept(token.RBrace) {
		if p.at(token.EOF) {
			p.failExpected(token.RBrace.String())
		}
		if p.accept(token.Semicolon) {
			continue
		}
		first := p.peek()
		doc := first.Doc()
		decorators := p.parseDecorators()
		mods := p.parseModifiers(true)
		tok := p.peek()

		switch {
		case tok.Kind == token.KwClass && contract:
			c := p.parseClass(mods, decorators)
			c.Doc = doc
			c.Loc = ast.At(p.span(first.Span))
			m.classes = append(m.classes, c)
			continue
		case len(decorators) > 0:
			p.failExpected("'class'")
		}

		switch {
		case tok.Kind == token.KwConstructor:
			if m.ctor != nil {
				p.failAt(diag.SynUnexpectedToken, tok, tok.Span, "duplicate constructor")
			}
			p.advance()
			fn := &ast.Function{Name: "constructor", Params: p.parseParams()}
			fn.Body = p.parseBlock()
			fn.Loc = ast.At(p.span(tok.Span))
			m.ctor = fn
		case tok.Kind == token.KwFunction:
			m.methods = append(m.methods, p.parseMethod(first.Span, mods, doc, true))
		case tok.IsWord() && p.peekAt(1).Kind == token.LParen && tok.Kind != token.KwLedger:
			m.methods = append(m.methods, p.parseMethod(first.Span, mods, doc, false))
		case tok.Kind == token.KwLedger && contract:
			p.advance()
			lf := &ast.LedgerField{Doc: doc}
			lf.Name = p.expectIdent("ledger field name").Text
			p.expect(token.Colon)
			lf.Type = p.parseType()
			if p.accept(token.Assign) {
				lf.Init = p.parseExpr()
			}
			p.expect(token.Semicolon)
			lf.Loc = ast.At(p.span(first.Span))
			m.ledger = append(m.ledger, lf)
		case tok.Kind == token.Ident:
			p.advance()
			f := &ast.FieldDecl{Name: tok.Text, Mods: mods, Doc: doc}
			if p.accept(token.Colon) {
				f.Type = p.parseType()
			}
			if p.accept(token.Assign) {
				f.Init = p.parseExpr()
			}
			p.expect(token.Semicolon)
			f.Loc = ast.At(p.span(first.Span))
			m.fields = append(m.fields, f)
		default:
			p.failExpected("member")
		}
	}
	return m
}

// parseMethod: (function)? NAME (params) (: type)? (block | ';' для abstract).
func (p *Parser) parseMethod(start source.Span, mods ast.Modifiers, doc string, kw bool) *ast.MethodDecl {
	if kw {
		p.expect(token.KwFunction)
	}
	fn := &ast.Function{Async: mods.Has(ast.ModAsync)}
	fn.Name = p.expectWord("method name").Text
	fn.Params = p.parseParams()
	if p.accept(token.Colon) {
		fn.Return = p.parseType()
	}
	if mods.Has(ast.ModAbstract) {
		p.expect(token.Semicolon)
	} else {
		fn.Body = p.parseBlock()
	}
	fn.Loc = ast.At(p.span(start))
	return &ast.MethodDecl{Loc: fn.Loc, Fn: fn, Mods: mods, Doc: doc}
}

func (p *Parser) parseInterface() *ast.InterfaceDecl {
	p.expect(token.KwInterface)
	d := &ast.InterfaceDecl{}
	d.Name = p.expectIdent("interface name").Text
	if p.accept(token.KwExtends) {
		for {
			d.Extends = append(d.Extends, p.expectIdent("interface name").Text)
			if !p.accept(token.Comma) {
				break
			}
		}
	}
	p.expect(token.LBrace)
	for !p.accept(token.RBrace) {
		if p.accept(token.Semicolon) {
			continue
		}
		start := p.peek().Span
		p.parseModifiers(true)
		im := &ast.InterfaceMember{}
		if p.accept(token.KwFunction) {
			im.Method = true
		}
		im.Name = p.expectWord("member name").Text
		if p.at(token.LParen) {
			im.Method = true
			im.Params = p.parseParams()
		} else if im.Method {
			p.failExpected(token.LParen.String())
		}
		if p.accept(token.Colon) {
			im.Type = p.parseType()
		}
		p.expect(token.Semicolon)
		im.Loc = ast.At(p.span(start))
		d.Members = append(d.Members, im)
	}
	return d
}

// parseType: NAME ("<" type ("," type)* ">")? ("[" "]")*.
func (p *Parser) parseType() *ast.TypeRef {
	name := p.expectWord("type")
	t := &ast.TypeRef{Name: name.Text}
	if p.accept(token.Lt) {
		for {
			t.Args = append(t.Args, p.parseType())
			if !p.accept(token.Comma) {
				break
			}
		}
		p.expect(token.Gt)
	}
	for p.at(token.LBracket) && p.peekAt(1).Kind == token.RBracket {
		p.advance()
		p.advance()
		t.Array++
	}
	t.Loc = ast.At(p.span(name.Span))
	return t
}
