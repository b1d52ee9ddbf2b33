package lexer

import (
	"strings"
	"unicode/utf8"

	"gard/internal/source"
	"gard/internal/token"
)

// scanString: "..." с escape-последовательностями, без переводов строки.
func (lx *Lexer) scanString() token.Token {
	start := lx.cursor.Mark()
	lx.cursor.Bump() // '"'
	for !lx.cursor.EOF() {
		switch lx.cursor.Peek() {
		case '"':
			lx.cursor.Bump()
			return lx.emit(token.StringLit, start)
		case '\\':
			if _, ok := lx.readEscape(); !ok {
				return token.Token{}
			}
		case '\n':
			lx.fail(UnterminatedString, lx.cursor.SpanFrom(start), "newline in string literal")
			return token.Token{}
		default:
			lx.cursor.BumpRune()
		}
	}
	lx.fail(UnterminatedString, lx.cursor.SpanFrom(start), "string literal is not closed")
	return token.Token{}
}

// scanChar: ровно одна руна или escape между одинарными кавычками.
func (lx *Lexer) scanChar() token.Token {
	start := lx.cursor.Mark()
	lx.cursor.Bump() // '\''
	switch {
	case lx.cursor.EOF() || lx.cursor.Peek() == '\n':
		lx.fail(UnterminatedString, lx.cursor.SpanFrom(start), "char literal is not closed")
		return token.Token{}
	case lx.cursor.Peek() == '\'':
		lx.cursor.Bump()
		lx.fail(InvalidCharacter, lx.cursor.SpanFrom(start), "empty char literal")
		return token.Token{}
	case lx.cursor.Peek() == '\\':
		if _, ok := lx.readEscape(); !ok {
			return token.Token{}
		}
	default:
		lx.cursor.BumpRune()
	}
	if !lx.cursor.Eat('\'') {
		if lx.cursor.EOF() || lx.cursor.Peek() == '\n' {
			lx.fail(UnterminatedString, lx.cursor.SpanFrom(start), "char literal is not closed")
		} else {
			at := lx.cursor.Mark()
			lx.cursor.BumpRune()
			lx.fail(InvalidCharacter, lx.cursor.SpanFrom(at), "char literal holds more than one character")
		}
		return token.Token{}
	}
	return lx.emit(token.CharLit, start)
}

// scanTemplate: `text ${expr} text`. Каждая дырка лексится отдельным
// под-лексером, который останавливается на парной '}'.
func (lx *Lexer) scanTemplate() token.Token {
	start := lx.cursor.Mark()
	lx.cursor.Bump() // '`'
	var (
		parts []token.TemplatePart
		buf   strings.Builder
	)
	for {
		if lx.cursor.EOF() {
			lx.fail(UnterminatedString, lx.cursor.SpanFrom(start), "template string is not closed")
			return token.Token{}
		}
		b := lx.cursor.Peek()
		switch {
		case b == '`':
			lx.cursor.Bump()
			parts = append(parts, token.TemplatePart{Text: buf.String()})
			tok := lx.emit(token.TemplateLit, start)
			tok.Template = parts
			return tok
		case b == '\\':
			r, ok := lx.readEscape()
			if !ok {
				return token.Token{}
			}
			buf.WriteRune(r)
		case b == '$' && lx.cursor.PeekAt(1) == '{':
			lx.cursor.Bump()
			lx.cursor.Bump()
			holeStart := lx.cursor.Off
			toks, ok := lx.lexHole(start)
			if !ok {
				return token.Token{}
			}
			parts = append(parts, token.TemplatePart{
				Text:    buf.String(),
				HasExpr: true,
				Expr:    toks,
				ExprSpan: source.Span{
					File:  lx.file.ID,
					Start: holeStart,
					End:   toks[len(toks)-1].Span.Start,
				},
			})
			buf.Reset()
		default:
			r, sz := lx.cursor.PeekRune()
			if sz == 0 {
				lx.fail(InvalidCharacter, lx.cursor.SpanFrom(lx.cursor.Mark()), "invalid utf-8")
				return token.Token{}
			}
			lx.cursor.BumpRune()
			buf.WriteRune(r)
		}
	}
}

// lexHole запускает вложенный лексер с той же позиции. Возвращённый срез
// заканчивается EOF на месте закрывающей '}'; курсор внешнего лексера
// переносится за неё.
func (lx *Lexer) lexHole(templateStart Mark) ([]token.Token, bool) {
	sub := &Lexer{
		file:   lx.file,
		cursor: lx.cursor.fork(),
	}
	var toks []token.Token
	depth := 0
	for {
		tok := sub.Next()
		switch tok.Kind {
		case token.Invalid:
			lx.fail(sub.err.Kind, sub.err.Span, sub.err.Msg)
			return nil, false
		case token.EOF:
			lx.cursor.Off = sub.cursor.Off
			lx.fail(UnterminatedString, lx.cursor.SpanFrom(templateStart), "template expression is not closed")
			return nil, false
		case token.LBrace:
			depth++
		case token.RBrace:
			if depth == 0 {
				toks = append(toks, token.Token{
					Kind:    token.EOF,
					Span:    tok.Span,
					Leading: tok.Leading,
				})
				toks[len(toks)-1].Span.End = tok.Span.Start
				lx.cursor.Off = tok.Span.End
				return toks, true
			}
			depth--
		}
		toks = append(toks, tok)
	}
}

// readEscape валидирует и декодирует escape, курсор стоит на '\'.
func (lx *Lexer) readEscape() (rune, bool) {
	start := lx.cursor.Mark()
	lx.cursor.Bump() // '\'
	b := lx.cursor.Bump()
	switch b {
	case 'n':
		return '\n', true
	case 't':
		return '\t', true
	case 'r':
		return '\r', true
	case '0':
		return 0, true
	case '\\', '"', '\'', '`', '$':
		return rune(b), true
	case 'x':
		h1, h2 := lx.cursor.Peek(), lx.cursor.PeekAt(1)
		if isHex(h1) && isHex(h2) {
			lx.cursor.Bump()
			lx.cursor.Bump()
			return rune(hexVal(h1)<<4 | hexVal(h2)), true
		}
	case 'u':
		if lx.cursor.Eat('{') {
			var r rune
			n := 0
			for isHex(lx.cursor.Peek()) && n < 6 {
				r = r<<4 | rune(hexVal(lx.cursor.Bump()))
				n++
			}
			if n > 0 && lx.cursor.Eat('}') && utf8.ValidRune(r) {
				return r, true
			}
		}
	case 0:
		if lx.cursor.EOF() {
			lx.fail(UnterminatedString, lx.cursor.SpanFrom(start), "escape at end of input")
			return 0, false
		}
	}
	lx.fail(InvalidCharacter, lx.cursor.SpanFrom(start), "invalid escape sequence")
	return 0, false
}

// Unquote decodes a validated string or char literal text (quotes included).
func Unquote(text string) string {
	if len(text) < 2 {
		return ""
	}
	body := text[1 : len(text)-1]
	if !strings.ContainsRune(body, '\\') {
		return body
	}
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 >= len(body) {
			b.WriteByte(c)
			continue
		}
		i++
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '0':
			b.WriteByte(0)
		case 'x':
			if i+2 < len(body) {
				b.WriteRune(rune(hexVal(body[i+1])<<4 | hexVal(body[i+2])))
				i += 2
			}
		case 'u':
			j := i + 2 // после "u{"
			var r rune
			for j < len(body) && body[j] != '}' {
				r = r<<4 | rune(hexVal(body[j]))
				j++
			}
			b.WriteRune(r)
			i = j
		default:
			b.WriteByte(body[i])
		}
	}
	return b.String()
}
