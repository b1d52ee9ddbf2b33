package parser

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"fortio.org/safecast"
	"golang.org/x/text/unicode/norm"

	"gard/internal/ast"
	"gard/internal/diag"
	"gard/internal/lexer"
	"gard/internal/source"
	"gard/internal/token"
)

// unquoteString декодирует escape-последовательности и приводит текст к NFC.
func unquoteString(raw string) string {
	return norm.NFC.String(lexer.Unquote(raw))
}

// numberLiteral разбирает суффикс и проверяет ширину: литерал, не влезающий
// в свой тип,: синтаксическая ошибка, а не переполнение.
func (p *Parser) numberLiteral(tok token.Token, neg bool, sp source.Span) ast.Expr {
	raw := tok.Text
	if neg {
		raw = "-" + raw
	}
	lit := &ast.Literal{Loc: ast.At(sp), Raw: raw}
	text := strings.ReplaceAll(tok.Text, "_", "")

	overflow := func(kind string) {
		p.failAt(diag.SynLiteralOverflow, tok, sp, "literal "+raw+" overflows "+kind)
	}

	if tok.Kind == token.FloatLit {
		lit.Kind = ast.LitDouble
		bits := 64
		switch text[len(text)-1] {
		case 'f', 'F':
			lit.Kind, bits = ast.LitFloat, 32
			text = text[:len(text)-1]
		case 'd', 'D':
			text = text[:len(text)-1]
		}
		v, err := strconv.ParseFloat(text, bits)
		if err != nil {
			overflow(lit.Kind.String())
		}
		if neg {
			v = -v
		}
		lit.Float = v
		return lit
	}

	lit.Kind = ast.LitInt
	base := 10
	if len(text) > 2 && text[0] == '0' {
		switch text[1] {
		case 'x', 'X':
			base = 16
		case 'b', 'B':
			base = 2
		case 'o', 'O':
			base = 8
		}
		if base != 10 {
			text = text[2:]
		}
	}
	switch text[len(text)-1] {
	case 'L', 'l':
		lit.Kind = ast.LitLong
		text = text[:len(text)-1]
	case 's', 'S':
		lit.Kind = ast.LitShort
		text = text[:len(text)-1]
	}
	u, err := strconv.ParseUint(text, base, 64)
	if err != nil || (neg && u > 1<<63) {
		overflow(lit.Kind.String())
	}
	var n int64
	if neg {
		n = -int64(u) // u <= 1<<63: для 1<<63 получаем MinInt64
	} else if n, err = safecast.Conv[int64](u); err != nil {
		overflow(lit.Kind.String())
	}
	switch lit.Kind {
	case ast.LitInt:
		if _, err := safecast.Conv[int32](n); err != nil {
			overflow("int")
		}
	case ast.LitShort:
		if _, err := safecast.Conv[int16](n); err != nil {
			overflow("short")
		}
	}
	lit.Int = n
	return lit
}

func (p *Parser) charLiteral(tok token.Token) ast.Expr {
	s := lexer.Unquote(tok.Text)
	r, _ := utf8.DecodeRuneInString(s)
	return &ast.Literal{Loc: ast.At(tok.Span), Kind: ast.LitChar, Raw: tok.Text, Int: int64(r)}
}

// templateLiteral разбирает токены каждой дырки отдельным парсером.
func (p *Parser) templateLiteral(tok token.Token) ast.Expr {
	t := &ast.TemplateLit{Loc: ast.At(tok.Span)}
	for _, part := range tok.Template {
		tp := &ast.TemplatePart{Text: norm.NFC.String(part.Text)}
		if part.HasExpr {
			sub := newParser(p.file, part.Expr)
			if sub.at(token.EOF) {
				sub.failExpected("expression")
			}
			tp.X = sub.parseExpr()
			sub.expect(token.EOF)
		}
		t.Parts = append(t.Parts, tp)
	}
	return t
}
