package lexer

import (
	"unicode"
	"unicode/utf8"

	"gard/internal/token"
)

const (
	clsIdentStart uint8 = 1 << iota
	clsDigit
	clsHex
)

// asciiClass classifies the ASCII range; non-ASCII identifiers go through
// the unicode tables.
var asciiClass = func() (t [utf8.RuneSelf]uint8) {
	for b := 'a'; b <= 'z'; b++ {
		t[b] |= clsIdentStart
	}
	for b := 'A'; b <= 'Z'; b++ {
		t[b] |= clsIdentStart
	}
	t['_'] |= clsIdentStart
	for b := '0'; b <= '9'; b++ {
		t[b] |= clsDigit | clsHex
	}
	for _, b := range "abcdefABCDEF" {
		t[b] |= clsHex
	}
	return t
}()

func is(b byte, cls uint8) bool { return b < utf8.RuneSelf && asciiClass[b]&cls != 0 }

func isIdentStartByte(b byte) bool    { return is(b, clsIdentStart) }
func isIdentContinueByte(b byte) bool { return is(b, clsIdentStart|clsDigit) }
func isDec(b byte) bool               { return is(b, clsDigit) }
func isHex(b byte) bool               { return is(b, clsHex) }

func isIdentStartRune(r rune) bool {
	if r < utf8.RuneSelf {
		return isIdentStartByte(byte(r))
	}
	return unicode.IsLetter(r)
}

func isIdentContinueRune(r rune) bool {
	if r < utf8.RuneSelf {
		return isIdentContinueByte(byte(r))
	}
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func hexVal(b byte) byte {
	switch {
	case b <= '9':
		return b - '0'
	case b >= 'a':
		return b - 'a' + 10
	}
	return b - 'A' + 10
}

// scanIdentOrKeyword reads an identifier and resolves reserved words.
func (lx *Lexer) scanIdentOrKeyword() token.Token {
	start := lx.cursor.Mark()
	if r, sz := lx.cursor.PeekRune(); sz == 0 || !isIdentStartRune(r) {
		lx.cursor.BumpRune()
		lx.fail(InvalidCharacter, lx.cursor.SpanFrom(start), "unexpected character")
		return token.Token{}
	}
	lx.cursor.BumpRune()
	for {
		// ASCII без декодирования рун
		if b := lx.cursor.Peek(); isIdentContinueByte(b) {
			lx.cursor.Off++
			continue
		}
		r, sz := lx.cursor.PeekRune()
		if sz == 0 || r < utf8.RuneSelf || !isIdentContinueRune(r) {
			break
		}
		lx.cursor.BumpRune()
	}
	tok := lx.emit(token.Ident, start)
	if k, ok := token.LookupKeyword(tok.Text); ok {
		tok.Kind = k
	}
	return tok
}
