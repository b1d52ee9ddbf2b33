package parser

import (
	"gard/internal/ast"
	"gard/internal/diag"
	"gard/internal/source"
	"gard/internal/token"
)

func (p *Parser) parsePrimary() ast.Expr {
	tok := p.peek()
	switch tok.Kind {
	case token.IntLit, token.FloatLit:
		p.advance()
		return p.numberLiteral(tok, false, tok.Span)
	case token.StringLit:
		p.advance()
		return &ast.Literal{Loc: ast.At(tok.Span), Kind: ast.LitString, Raw: tok.Text, Str: unquoteString(tok.Text)}
	case token.CharLit:
		p.advance()
		return p.charLiteral(tok)
	case token.TemplateLit:
		p.advance()
		return p.templateLiteral(tok)
	case token.KwTrue, token.KwFalse:
		p.advance()
		return &ast.Literal{Loc: ast.At(tok.Span), Kind: ast.LitBool, Raw: tok.Text, Bool: tok.Kind == token.KwTrue}
	case token.KwNull:
		p.advance()
		return &ast.Literal{Loc: ast.At(tok.Span), Kind: ast.LitNull, Raw: tok.Text}
	case token.KwThis:
		p.advance()
		return &ast.ThisExpr{Loc: ast.At(tok.Span)}
	case token.KwSuper:
		p.advance()
		return &ast.SuperExpr{Loc: ast.At(tok.Span)}
	case token.Ident:
		if !p.noArrow && p.peekAt(1).Kind == token.FatArrow {
			return p.parseArrow(false, tok.Span)
		}
		p.advance()
		return &ast.Ident{Loc: ast.At(tok.Span), Name: tok.Text}
	case token.LParen:
		if !p.noArrow && p.arrowAhead() {
			return p.parseArrow(false, tok.Span)
		}
		return p.parseGroup()
	case token.LBracket:
		p.advance()
		defer p.allowArrows()()
		elems := p.parseElems(token.RBracket)
		return &ast.ArrayLit{Loc: ast.At(p.span(tok.Span)), Elems: elems}
	case token.Hash:
		p.advance()
		p.expect(token.LBrace)
		defer p.allowArrows()()
		elems := p.parseElems(token.RBrace)
		return &ast.SetLit{Loc: ast.At(p.span(tok.Span)), Elems: elems}
	case token.LBrace:
		return p.parseMapLit()
	case token.KwFunction:
		fn := p.parseFunction(false, false)
		return &ast.FuncLit{Loc: fn.Loc, Fn: fn}
	case token.KwAsync:
		switch next := p.peekAt(1); {
		case next.Kind == token.KwFunction:
			p.advance()
			fn := p.parseFunction(true, false)
			fn.Loc = ast.At(p.span(tok.Span))
			return &ast.FuncLit{Loc: fn.Loc, Fn: fn}
		case next.Kind == token.Ident && p.peekAt(2).Kind == token.FatArrow,
			next.Kind == token.LParen:
			p.advance()
			return p.parseArrow(true, tok.Span)
		}
	case token.KwValidate:
		p.advance()
		p.expect(token.LParen)
		restore := p.allowArrows()
		v := &ast.ValidateExpr{Cond: p.parseExpr()}
		if p.accept(token.Comma) {
			v.Msg = p.parseExpr()
		}
		restore()
		p.expect(token.RParen)
		v.Loc = ast.At(p.span(tok.Span))
		return v
	case token.KwEmit:
		p.advance()
		name := p.expectIdent("event name")
		args := p.parseArgs()
		return &ast.EmitExpr{Loc: ast.At(p.span(tok.Span)), Name: name.Text, Args: args}
	case token.KwMatch:
		return p.parseMatch()
	}
	p.failExpected("expression")
	return nil
}

// parseGroup: (expr) это скобки, (a, b) и (a,) это кортеж.
func (p *Parser) parseGroup() ast.Expr {
	start := p.expect(token.LParen).Span
	defer p.allowArrows()()
	first := p.parseExpr()
	if !p.at(token.Comma) {
		p.expect(token.RParen)
		return &ast.Paren{Loc: ast.At(p.span(start)), X: first}
	}
	elems := []ast.Expr{first}
	for p.accept(token.Comma) {
		if p.at(token.RParen) {
			break
		}
		elems = append(elems, p.parseExpr())
	}
	p.expect(token.RParen)
	return &ast.TupleLit{Loc: ast.At(p.span(start)), Elems: elems}
}

func (p *Parser) parseElems(closer token.Kind) []ast.Expr {
	elems := []ast.Expr{}
	for !p.accept(closer) {
		elems = append(elems, p.parseElem())
		if !p.accept(token.Comma) {
			p.expect(closer)
			break
		}
	}
	return elems
}

// parseMapLit: { key: value, ... }; ключ: имя, литерал или [expr].
func (p *Parser) parseMapLit() ast.Expr {
	start := p.expect(token.LBrace).Span
	defer p.allowArrows()()
	m := &ast.MapLit{Entries: []*ast.MapEntry{}}
	for !p.accept(token.RBrace) {
		var key ast.Expr
		tok := p.peek()
		switch {
		case tok.Kind == token.StringLit || tok.Kind == token.IntLit || tok.Kind == token.CharLit:
			key = p.parsePrimary()
		case tok.Kind == token.LBracket:
			p.advance()
			key = p.parseExpr()
			p.expect(token.RBracket)
			if isStaticKey(key) {
				// [a] и a различаются: вычисляемый ключ оборачиваем в скобки
				key = &ast.Paren{Loc: ast.At(p.span(tok.Span)), X: key}
			}
		case tok.IsWord():
			p.advance()
			key = &ast.Ident{Loc: ast.At(tok.Span), Name: tok.Text}
		default:
			p.failExpected("map key")
		}
		p.expect(token.Colon)
		m.Entries = append(m.Entries, &ast.MapEntry{Key: key, Value: p.parseExpr()})
		if !p.accept(token.Comma) {
			p.expect(token.RBrace)
			break
		}
	}
	m.Loc = ast.At(p.span(start))
	return m
}

func isStaticKey(x ast.Expr) bool {
	switch x.(type) {
	case *ast.Ident, *ast.Literal:
		return true
	}
	return false
}

// arrowAhead: с текущей '(' ищем парную ')' и смотрим, идёт ли за ней '=>'.
func (p *Parser) arrowAhead() bool {
	depth := 0
	for i := p.pos; i < len(p.toks); i++ {
		switch p.toks[i].Kind {
		case token.LParen, token.LBracket, token.LBrace:
			depth++
		case token.RParen, token.RBracket, token.RBrace:
			depth--
			if depth == 0 {
				return i+1 < len(p.toks) && p.toks[i+1].Kind == token.FatArrow
			}
		case token.EOF:
			return false
		}
	}
	return false
}

// parseArrow: x => body | (params) => body; body: блок или выражение.
func (p *Parser) parseArrow(async bool, start source.Span) ast.Expr {
	fn := &ast.Function{Async: async, Arrow: true}
	if p.at(token.Ident) {
		name := p.advance()
		fn.Params = []*ast.Param{{Loc: ast.At(name.Span), Name: name.Text}}
	} else {
		fn.Params = p.parseParams()
	}
	p.expect(token.FatArrow)
	if p.at(token.LBrace) {
		fn.Body = p.parseBlock()
	} else {
		fn.Expr = p.parseAssign()
	}
	fn.Loc = ast.At(p.span(start))
	return &ast.FuncLit{Loc: fn.Loc, Fn: fn}
}

// parseMatch: match (expr) { pattern (=>|->) (expr | block) ,? ... }.
// Образцы проверяются сверху вниз, `_` обязан быть последним.
func (p *Parser) parseMatch() ast.Expr {
	start := p.expect(token.KwMatch).Span
	subject := p.parseParenExpr()
	p.expect(token.LBrace)
	m := &ast.MatchExpr{Subject: subject}
	var catchAll bool
	for !p.accept(token.RBrace) {
		tok := p.peek()
		if catchAll {
			p.failAt(diag.SynCatchAllNotLast, tok, tok.Span, "match arm after '_' is unreachable: '_' must be the last arm")
		}
		arm := &ast.MatchArm{}
		if p.accept(token.Underscore) {
			catchAll = true
		} else {
			saved := p.noArrow
			p.noArrow = true
			arm.Pattern = p.parseTernary()
			p.noArrow = saved
		}
		switch {
		case p.accept(token.FatArrow):
			arm.Arrow = token.FatArrow
		case p.accept(token.Arrow):
			arm.Arrow = token.Arrow
		default:
			p.failExpected(token.FatArrow.String(), token.Arrow.String())
		}
		if p.at(token.LBrace) {
			arm.Block = p.parseBlock()
		} else {
			arm.Body = p.parseAssign()
		}
		arm.Loc = ast.At(p.span(tok.Span))
		m.Arms = append(m.Arms, arm)
		if !p.accept(token.Comma) {
			p.accept(token.Semicolon)
		}
	}
	m.Loc = ast.At(p.span(start))
	return m
}
