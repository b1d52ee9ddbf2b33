package parser

import (
	"gard/internal/ast"
	"gard/internal/diag"
	"gard/internal/source"
	"gard/internal/token"
)

// Приоритеты бинарных операторов, чем больше, тем сильнее связывает.
// Присваивание, тернарник и ?? разбираются отдельными функциями ниже || .
const (
	precLogicalOr      = 1 // ||
	precLogicalAnd     = 2 // &&
	precEquality       = 3 // == !=
	precComparison     = 4 // < <= > >= is
	precAdditive       = 5 // + -
	precMultiplicative = 6 // * / %
)

func binaryPrec(k token.Kind) int {
	switch k {
	case token.OrOr:
		return precLogicalOr
	case token.AndAnd:
		return precLogicalAnd
	case token.EqEq, token.BangEq:
		return precEquality
	case token.Lt, token.LtEq, token.Gt, token.GtEq, token.KwIs:
		return precComparison
	case token.Plus, token.Minus:
		return precAdditive
	case token.Star, token.Slash, token.Percent:
		return precMultiplicative
	}
	return -1
}

func (p *Parser) parseExpr() ast.Expr { return p.parseAssign() }

// parseAssign: правоассоциативно, цель: имя, поле или индекс.
func (p *Parser) parseAssign() ast.Expr {
	start := p.peek().Span
	left := p.parseTernary()
	tok := p.peek()
	if !tok.Kind.IsAssignOp() {
		return left
	}
	p.checkTarget(left, tok)
	p.advance()
	right := p.parseAssign()
	return &ast.Assign{Loc: ast.At(p.span(start)), Op: tok.Kind, Target: left, Value: right}
}

func (p *Parser) checkTarget(x ast.Expr, op token.Token) {
	switch t := x.(type) {
	case *ast.Ident, *ast.Index:
		return
	case *ast.Member:
		if !t.Optional {
			return
		}
	}
	p.failAt(diag.SynInvalidTarget, op, x.Span(), "invalid target for "+op.Kind.String())
}

func (p *Parser) parseTernary() ast.Expr {
	start := p.peek().Span
	cond := p.parseCoalesce()
	if !p.accept(token.Question) {
		return cond
	}
	then := p.parseAssign()
	p.expect(token.Colon)
	els := p.parseAssign()
	return &ast.Ternary{Loc: ast.At(p.span(start)), Cond: cond, Then: then, Else: els}
}

func (p *Parser) parseCoalesce() ast.Expr {
	start := p.peek().Span
	x := p.parseBinary(precLogicalOr)
	for p.accept(token.QuestionQuestion) {
		y := p.parseBinary(precLogicalOr)
		x = &ast.Binary{Loc: ast.At(p.span(start)), Op: token.QuestionQuestion, X: x, Y: y}
	}
	return x
}

// parseBinary: precedence climbing, все бинарные операторы левоассоциативны.
func (p *Parser) parseBinary(minPrec int) ast.Expr {
	start := p.peek().Span
	x := p.parseUnary()
	for {
		op := p.peek().Kind
		prec := binaryPrec(op)
		if prec < minPrec {
			return x
		}
		p.advance()
		if op == token.KwIs {
			t := p.parseType()
			x = &ast.IsExpr{Loc: ast.At(p.span(start)), X: x, Type: t}
			continue
		}
		y := p.parseBinary(prec + 1)
		x = &ast.Binary{Loc: ast.At(p.span(start)), Op: op, X: x, Y: y}
	}
}

func (p *Parser) parseUnary() ast.Expr {
	tok := p.peek()
	switch tok.Kind {
	case token.Minus:
		// -<литерал> сворачивается в литерал, чтобы -2147483648 помещался в int
		next := p.peekAt(1)
		if next.Kind == token.IntLit || next.Kind == token.FloatLit {
			p.advance()
			lit := p.advance()
			return p.parsePostfix(p.numberLiteral(lit, true, tok.Span.Cover(lit.Span)), tok.Span)
		}
		p.advance()
		x := p.parseUnary()
		return &ast.Unary{Loc: ast.At(p.span(tok.Span)), Op: tok.Kind, X: x}
	case token.Bang:
		p.advance()
		x := p.parseUnary()
		return &ast.Unary{Loc: ast.At(p.span(tok.Span)), Op: tok.Kind, X: x}
	case token.PlusPlus, token.MinusMinus:
		p.advance()
		x := p.parseUnary()
		p.checkTarget(x, tok)
		return &ast.Unary{Loc: ast.At(p.span(tok.Span)), Op: tok.Kind, X: x}
	case token.KwAwait:
		p.advance()
		x := p.parseUnary()
		return &ast.AwaitExpr{Loc: ast.At(p.span(tok.Span)), X: x}
	case token.KwTypeof:
		p.advance()
		x := p.parseUnary()
		return &ast.TypeofExpr{Loc: ast.At(p.span(tok.Span)), X: x}
	case token.KwSpawn:
		p.advance()
		x := p.parseUnary()
		return &ast.SpawnExpr{Loc: ast.At(p.span(tok.Span)), X: x}
	case token.KwNew:
		return p.parsePostfix(p.parseNew(), tok.Span)
	}
	return p.parsePostfix(p.parsePrimary(), tok.Span)
}

// parseNew: new Name(.Name)* (args)?
func (p *Parser) parseNew() ast.Expr {
	start := p.advance().Span
	name := p.expectIdent("class name")
	var class ast.Expr = &ast.Ident{Loc: ast.At(name.Span), Name: name.Text}
	for p.at(token.Dot) {
		p.advance()
		m := p.expectWord("member name")
		class = &ast.Member{Loc: ast.At(p.span(name.Span)), X: class, Name: m.Text}
	}
	n := &ast.NewExpr{Class: class}
	if p.at(token.LParen) {
		n.Args = p.parseArgs()
	}
	n.Loc = ast.At(p.span(start))
	return n
}

func (p *Parser) parsePostfix(x ast.Expr, start source.Span) ast.Expr {
	for {
		tok := p.peek()
		switch tok.Kind {
		case token.LParen:
			args := p.parseArgs()
			opt := false
			if m, ok := x.(*ast.Member); ok {
				opt = m.Optional
			}
			x = &ast.Call{Loc: ast.At(p.span(start)), Fn: x, Args: args, Optional: opt}
		case token.LBracket:
			p.advance()
			restore := p.allowArrows()
			idx := p.parseExpr()
			restore()
			p.expect(token.RBracket)
			x = &ast.Index{Loc: ast.At(p.span(start)), X: x, Index: idx}
		case token.Dot, token.QuestionDot:
			p.advance()
			name := p.expectWord("member name")
			x = &ast.Member{Loc: ast.At(p.span(start)), X: x, Name: name.Text, Optional: tok.Kind == token.QuestionDot}
		case token.PlusPlus, token.MinusMinus:
			p.checkTarget(x, tok)
			p.advance()
			x = &ast.Postfix{Loc: ast.At(p.span(start)), Op: tok.Kind, X: x}
		default:
			return x
		}
	}
}

// parseArgs: "(" (arg ("," arg)* ","?)? ")", arg := "..." expr | expr.
func (p *Parser) parseArgs() []ast.Expr {
	p.expect(token.LParen)
	defer p.allowArrows()()
	args := []ast.Expr{}
	for !p.accept(token.RParen) {
		args = append(args, p.parseElem())
		if !p.accept(token.Comma) {
			p.expect(token.RParen)
			break
		}
	}
	return args
}

func (p *Parser) parseElem() ast.Expr {
	if p.at(token.DotDotDot) {
		start := p.advance().Span
		x := p.parseExpr()
		return &ast.Spread{Loc: ast.At(p.span(start)), X: x}
	}
	return p.parseExpr()
}
