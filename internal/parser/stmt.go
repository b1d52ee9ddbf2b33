package parser

import (
	"gard/internal/ast"
	"gard/internal/diag"
	"gard/internal/token"
)

// parseItem: элемент верхнего уровня: import, export, объявление или оператор.
func (p *Parser) parseItem() ast.Stmt {
	switch p.peek().Kind {
	case token.KwImport:
		return p.parseImport()
	case token.KwExport:
		kw := p.advance()
		start := kw.Span
		var decl ast.Stmt
		switch p.peek().Kind {
		case token.KwLet, token.KwVar, token.KwConst, token.KwReadonly:
			decl = p.parseVarDecl()
			p.expect(token.Semicolon)
		default:
			decl = p.parseDecl()
		}
		if doc := kw.Doc(); doc != "" {
			setDoc(decl, doc)
		}
		return &ast.ExportDecl{Loc: ast.At(p.span(start)), Decl: decl}
	}
	return p.parseStmt()
}

func (p *Parser) parseStmt() ast.Stmt {
	tok := p.peek()
	switch tok.Kind {
	case token.LBrace:
		return p.parseBlock()
	case token.KwLet, token.KwVar, token.KwConst, token.KwReadonly:
		d := p.parseVarDecl()
		p.expect(token.Semicolon)
		d.Loc = ast.At(p.span(d.Span()))
		return d
	case token.KwIf:
		return p.parseIf()
	case token.KwWhile:
		return p.parseWhile()
	case token.KwDo:
		return p.parseDoWhile()
	case token.KwFor:
		return p.parseFor()
	case token.KwForeach:
		return p.parseForEach()
	case token.KwSwitch:
		return p.parseSwitch()
	case token.KwTry:
		return p.parseTry()
	case token.KwThrow:
		p.advance()
		x := p.parseExpr()
		p.expect(token.Semicolon)
		return &ast.Throw{Loc: ast.At(p.span(tok.Span)), X: x}
	case token.KwReturn:
		p.advance()
		var x ast.Expr
		if !p.at(token.Semicolon) && !p.at(token.RBrace) {
			x = p.parseExpr()
		}
		p.expect(token.Semicolon)
		return &ast.Return{Loc: ast.At(p.span(tok.Span)), X: x}
	case token.KwBreak:
		p.advance()
		p.expect(token.Semicolon)
		return &ast.Break{Loc: ast.At(p.span(tok.Span))}
	case token.KwContinue:
		p.advance()
		p.expect(token.Semicolon)
		return &ast.Continue{Loc: ast.At(p.span(tok.Span))}
	case token.KwLock:
		p.advance()
		p.expect(token.LParen)
		target := p.parseExpr()
		p.expect(token.RParen)
		body := p.parseBlock()
		return &ast.LockStmt{Loc: ast.At(p.span(tok.Span)), Target: target, Body: body}
	case token.KwUnlock:
		p.advance()
		p.expect(token.LParen)
		target := p.parseExpr()
		p.expect(token.RParen)
		p.expect(token.Semicolon)
		return &ast.Unlock{Loc: ast.At(p.span(tok.Span)), Target: target}
	case token.KwTransaction:
		return p.parseTransfer()
	case token.KwMatch:
		m := p.parseMatch()
		p.accept(token.Semicolon)
		return &ast.ExprStmt{Loc: ast.At(p.span(tok.Span)), X: m}
	case token.KwImport, token.KwExport:
		p.failAt(diag.SynUnexpectedToken, tok, tok.Span, tok.Text+" is only allowed at top level")
	}
	if p.startsDecl() {
		return p.parseDecl()
	}

	x := p.parseExpr()
	p.expect(token.Semicolon)
	return &ast.ExprStmt{Loc: ast.At(p.span(tok.Span)), X: x}
}

// startsDecl отличает объявление от выражения: `function f`: объявление,
// `function (`: литерал функции.
func (p *Parser) startsDecl() bool {
	switch p.peek().Kind {
	case token.KwFunction:
		return p.peekAt(1).Kind == token.Ident
	case token.KwAsync:
		return p.peekAt(1).Kind == token.KwFunction && p.peekAt(2).Kind == token.Ident
	case token.KwClass, token.KwInterface, token.KwContract, token.KwBlockchain, token.At,
		token.KwAbstract, token.KwPublic, token.KwPrivate, token.KwProtected, token.KwStatic:
		return true
	}
	return false
}

func (p *Parser) parseBlock() *ast.Block {
	start := p.expect(token.LBrace).Span
	b := &ast.Block{}
	for !p.at(token.RBrace) {
		if p.at(token.EOF) {
			p.failExpected(token.RBrace.String())
		}
		if p.accept(token.Semicolon) {
			continue
		}
		b.Stmts = append(b.Stmts, p.parseStmt())
	}
	p.advance()
	b.Loc = ast.At(p.span(start))
	return b
}

// parseVarDecl разбирает `let|var|const|readonly NAME (: type)? (= expr)?` без ';'.
func (p *Parser) parseVarDecl() *ast.VarDecl {
	kw := p.advance()
	d := &ast.VarDecl{Doc: kw.Doc()}
	switch kw.Kind {
	case token.KwVar:
		d.Kind = ast.DeclVar
	case token.KwConst:
		d.Kind = ast.DeclConst
	case token.KwReadonly:
		d.Kind = ast.DeclReadonly
	default:
		d.Kind = ast.DeclLet
	}
	d.Name = p.expectIdent("variable name").Text
	if p.accept(token.Colon) {
		d.Type = p.parseType()
	}
	if p.accept(token.Assign) {
		d.Init = p.parseExpr()
	} else if d.Kind.Immutable() {
		p.failExpected(token.Assign.String())
	}
	d.Loc = ast.At(p.span(kw.Span))
	return d
}

func (p *Parser) parseParenExpr() ast.Expr {
	p.expect(token.LParen)
	defer p.allowArrows()()
	x := p.parseExpr()
	p.expect(token.RParen)
	return x
}

func (p *Parser) parseIf() ast.Stmt {
	start := p.advance().Span
	cond := p.parseParenExpr()
	then := p.parseStmt()
	var els ast.Stmt
	if p.accept(token.KwElse) {
		els = p.parseStmt()
	}
	return &ast.If{Loc: ast.At(p.span(start)), Cond: cond, Then: then, Else: els}
}

func (p *Parser) parseWhile() ast.Stmt {
	start := p.advance().Span
	cond := p.parseParenExpr()
	body := p.parseStmt()
	return &ast.While{Loc: ast.At(p.span(start)), Cond: cond, Body: body}
}

func (p *Parser) parseDoWhile() ast.Stmt {
	start := p.advance().Span
	body := p.parseStmt()
	p.expect(token.KwWhile)
	cond := p.parseParenExpr()
	p.expect(token.Semicolon)
	return &ast.DoWhile{Loc: ast.At(p.span(start)), Body: body, Cond: cond}
}

func (p *Parser) parseFor() ast.Stmt {
	start := p.advance().Span
	p.expect(token.LParen)
	f := &ast.For{}
	switch p.peek().Kind {
	case token.Semicolon:
	case token.KwLet, token.KwVar, token.KwConst:
		f.Init = p.parseVarDecl()
	default:
		x := p.parseExpr()
		f.Init = &ast.ExprStmt{Loc: ast.At(x.Span()), X: x}
	}
	p.expect(token.Semicolon)
	if !p.at(token.Semicolon) {
		f.Cond = p.parseExpr()
	}
	p.expect(token.Semicolon)
	if !p.at(token.RParen) {
		f.Post = p.parseExpr()
	}
	p.expect(token.RParen)
	f.Body = p.parseStmt()
	f.Loc = ast.At(p.span(start))
	return f
}

func (p *Parser) parseForEach() ast.Stmt {
	start := p.advance().Span
	p.expect(token.LParen)
	fe := &ast.ForEach{Kind: ast.DeclLet}
	switch {
	case p.accept(token.KwConst):
		fe.Kind = ast.DeclConst
	case p.accept(token.KwLet):
	case p.accept(token.KwVar):
		fe.Kind = ast.DeclVar
	}
	fe.Name = p.expectIdent("loop variable").Text
	p.expect(token.KwIn)
	fe.Iter = p.parseExpr()
	p.expect(token.RParen)
	fe.Body = p.parseStmt()
	fe.Loc = ast.At(p.span(start))
	return fe
}

// parseSwitch: default должен быть последним и единственным.
func (p *Parser) parseSwitch() ast.Stmt {
	start := p.advance().Span
	tag := p.parseParenExpr()
	p.expect(token.LBrace)
	sw := &ast.Switch{Tag: tag}
	var seenDefault bool
	for !p.accept(token.RBrace) {
		tok := p.peek()
		cc := &ast.CaseClause{}
		switch tok.Kind {
		case token.KwCase:
			if seenDefault {
				p.failAt(diag.SynCatchAllNotLast, tok, tok.Span, "case after default: default must be the last clause")
			}
			p.advance()
			cc.Value = p.parseExpr()
		case token.KwDefault:
			if seenDefault {
				p.failAt(diag.SynDuplicateDefault, tok, tok.Span, "duplicate default clause")
			}
			seenDefault = true
			p.advance()
		default:
			p.failExpected(token.KwCase.String(), token.KwDefault.String(), token.RBrace.String())
		}
		p.expect(token.Colon)
		for !p.at(token.KwCase) && !p.at(token.KwDefault) && !p.at(token.RBrace) {
			if p.at(token.EOF) {
				p.failExpected(token.RBrace.String())
			}
			if p.accept(token.Semicolon) {
				continue
			}
			cc.Body = append(cc.Body, p.parseStmt())
		}
		cc.Loc = ast.At(p.span(tok.Span))
		sw.Cases = append(sw.Cases, cc)
	}
	sw.Loc = ast.At(p.span(start))
	return sw
}

func (p *Parser) parseTry() ast.Stmt {
	start := p.advance().Span
	t := &ast.Try{Body: p.parseBlock()}
	var catchAll bool
	for p.at(token.KwCatch) {
		tok := p.advance()
		if catchAll {
			p.failAt(diag.SynCatchAllNotLast, tok, tok.Span, "catch after an untyped catch is unreachable")
		}
		cc := &ast.CatchClause{}
		if p.accept(token.LParen) {
			cc.Name = p.expectIdent("error binding").Text
			if p.accept(token.Colon) {
				cc.Type = p.parseType()
			}
			p.expect(token.RParen)
		}
		if cc.Type == nil || cc.Type.Name == "any" {
			catchAll = true
		}
		cc.Body = p.parseBlock()
		cc.Loc = ast.At(p.span(tok.Span))
		t.Catches = append(t.Catches, cc)
	}
	if p.accept(token.KwFinally) {
		t.Finally = p.parseBlock()
	}
	if len(t.Catches) == 0 && t.Finally == nil {
		p.failExpected(token.KwCatch.String(), token.KwFinally.String())
	}
	t.Loc = ast.At(p.span(start))
	return t
}

// parseTransfer: transaction { from -> to : amount } ;?
func (p *Parser) parseTransfer() ast.Stmt {
	start := p.advance().Span
	p.expect(token.LBrace)
	from := p.parseExpr()
	p.expect(token.Arrow)
	to := p.parseExpr()
	p.expect(token.Colon)
	amount := p.parseExpr()
	p.expect(token.RBrace)
	p.accept(token.Semicolon)
	return &ast.Transfer{Loc: ast.At(p.span(start)), From: from, To: to, Amount: amount}
}

// parseImport: import { A, B as C } from "path";
func (p *Parser) parseImport() ast.Stmt {
	start := p.advance().Span
	d := &ast.ImportDecl{}
	p.expect(token.LBrace)
	for !p.accept(token.RBrace) {
		name := p.expectWord("imported name")
		spec := &ast.ImportSpec{Name: name.Text}
		if p.at(token.Ident) && p.peek().Text == "as" {
			p.advance()
			spec.Alias = p.expectIdent("alias").Text
		}
		spec.Loc = ast.At(p.span(name.Span))
		d.Names = append(d.Names, spec)
		if !p.accept(token.Comma) {
			p.expect(token.RBrace)
			break
		}
	}
	if !(p.at(token.Ident) && p.peek().Text == "from") {
		p.failExpected("'from'")
	}
	p.advance()
	path := p.expect(token.StringLit)
	d.Path = unquoteString(path.Text)
	p.expect(token.Semicolon)
	d.Loc = ast.At(p.span(start))
	return d
}

// setDoc переносит doc-комментарий с `export` на само объявление.
func setDoc(s ast.Stmt, doc string) {
	switch d := s.(type) {
	case *ast.FuncDecl:
		d.Doc = doc
	case *ast.ClassDecl:
		d.Doc = doc
	case *ast.InterfaceDecl:
		d.Doc = doc
	case *ast.ContractDecl:
		d.Doc = doc
	case *ast.VarDecl:
		d.Doc = doc
	}
}
