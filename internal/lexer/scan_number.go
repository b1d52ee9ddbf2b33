package lexer

import (
	"unicode/utf8"

	"gard/internal/token"
)

// Формы: 123, 1_000, 0x1F, 0b101, 0o17, 1.5, .5, 2e10, 1.5e-3.
// Суффиксы: L/l long, s/S short (только целые), f/F float, d/D double.
// У 0x-литералов f/d: это цифры, поэтому для них допустимы только L и s.
func (lx *Lexer) scanNumber() token.Token {
	start := lx.cursor.Mark()
	kind := token.IntLit

	if lx.cursor.Peek() == '0' {
		var digit func(byte) bool
		switch lx.cursor.PeekAt(1) {
		case 'x', 'X':
			digit = isHex
		case 'b', 'B':
			digit = func(b byte) bool { return b == '0' || b == '1' }
		case 'o', 'O':
			digit = func(b byte) bool { return b >= '0' && b <= '7' }
		}
		if digit != nil {
			lx.cursor.Bump()
			lx.cursor.Bump()
			n := 0
			for b := lx.cursor.Peek(); digit(b) || b == '_'; b = lx.cursor.Peek() {
				if b != '_' {
					n++
				}
				lx.cursor.Bump()
			}
			if n == 0 {
				lx.fail(InvalidCharacter, lx.cursor.SpanFrom(start), "missing digits after base prefix")
				return token.Token{}
			}
			switch lx.cursor.Peek() {
			case 'L', 'l', 's', 'S':
				lx.cursor.Bump()
			}
			return lx.finishNumber(kind, start)
		}
	}

	if lx.cursor.Peek() != '.' {
		lx.eatDecimals()
	}
	if lx.cursor.Peek() == '.' && isDec(lx.cursor.PeekAt(1)) {
		kind = token.FloatLit
		lx.cursor.Bump()
		lx.eatDecimals()
	}
	if b := lx.cursor.Peek(); b == 'e' || b == 'E' {
		next := lx.cursor.PeekAt(1)
		if isDec(next) || ((next == '+' || next == '-') && isDec(lx.cursor.PeekAt(2))) {
			kind = token.FloatLit
			lx.cursor.Bump()
			if next == '+' || next == '-' {
				lx.cursor.Bump()
			}
			lx.eatDecimals()
		}
	}

	switch lx.cursor.Peek() {
	case 'L', 'l', 's', 'S':
		if kind == token.IntLit {
			lx.cursor.Bump()
		}
	case 'f', 'F', 'd', 'D':
		kind = token.FloatLit
		lx.cursor.Bump()
	}
	return lx.finishNumber(kind, start)
}

func (lx *Lexer) eatDecimals() {
	for b := lx.cursor.Peek(); isDec(b) || b == '_'; b = lx.cursor.Peek() {
		lx.cursor.Bump()
	}
}

// finishNumber отвергает хвосты вроде 12abc или 1.5L.
func (lx *Lexer) finishNumber(kind token.Kind, start Mark) token.Token {
	if b := lx.cursor.Peek(); isIdentContinueByte(b) || b >= utf8.RuneSelf {
		at := lx.cursor.Mark()
		lx.cursor.Bump()
		lx.fail(InvalidCharacter, lx.cursor.SpanFrom(at), "invalid numeric literal")
		return token.Token{}
	}
	return lx.emit(kind, start)
}
