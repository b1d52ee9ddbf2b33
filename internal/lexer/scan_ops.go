package lexer

import (
	"gard/internal/token"
)

// Жадно: сначала 3-символьные, затем 2-символьные, затем одиночные.
func (lx *Lexer) scanOperatorOrPunct() token.Token {
	start := lx.cursor.Mark()

	if lx.cursor.EatString("...") {
		return lx.emit(token.DotDotDot, start)
	}
	for _, op := range twoCharOps {
		if lx.cursor.EatString(op.text) {
			return lx.emit(op.kind, start)
		}
	}
	// "?." только если за точкой не цифра: a?.5:1: это тернарник.
	if lx.cursor.Peek() == '?' && lx.cursor.PeekAt(1) == '.' && !isDec(lx.cursor.PeekAt(2)) {
		lx.cursor.Bump()
		lx.cursor.Bump()
		return lx.emit(token.QuestionDot, start)
	}

	ch := lx.cursor.Bump()
	if k, ok := singleCharOps[ch]; ok {
		return lx.emit(k, start)
	}
	lx.fail(InvalidCharacter, lx.cursor.SpanFrom(start), "unexpected character")
	return token.Token{}
}

var twoCharOps = []struct {
	text string
	kind token.Kind
}{
	{"++", token.PlusPlus},
	{"--", token.MinusMinus},
	{"+=", token.PlusAssign},
	{"-=", token.MinusAssign},
	{"*=", token.StarAssign},
	{"/=", token.SlashAssign},
	{"%=", token.PercentAssign},
	{"==", token.EqEq},
	{"!=", token.BangEq},
	{"<=", token.LtEq},
	{">=", token.GtEq},
	{"&&", token.AndAnd},
	{"||", token.OrOr},
	{"??", token.QuestionQuestion},
	{"->", token.Arrow},
	{"=>", token.FatArrow},
}

var singleCharOps = map[byte]token.Kind{
	'+': token.Plus,
	'-': token.Minus,
	'*': token.Star,
	'/': token.Slash,
	'%': token.Percent,
	'=': token.Assign,
	'!': token.Bang,
	'<': token.Lt,
	'>': token.Gt,
	'?': token.Question,
	':': token.Colon,
	';': token.Semicolon,
	',': token.Comma,
	'.': token.Dot,
	'(': token.LParen,
	')': token.RParen,
	'{': token.LBrace,
	'}': token.RBrace,
	'[': token.LBracket,
	']': token.RBracket,
	'@': token.At,
	'#': token.Hash,
}
