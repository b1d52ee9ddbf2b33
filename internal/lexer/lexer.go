package lexer

import (
	"unicode/utf8"

	"gard/internal/diag"
	"gard/internal/source"
	"gard/internal/token"
)

type Options struct {
	// Reporter receives the fatal error as a diagnostic; may be nil.
	Reporter diag.Reporter
}

// Lexer turns a source file into a lazy token stream.
// Restart means constructing a new Lexer: there is no rewind.
type Lexer struct {
	file   *source.File
	cursor Cursor
	opts   Options
	look   *token.Token   // 1 элементный буфер
	hold   []token.Trivia // накопленные leading trivia
	err    *LexError
}

func New(file *source.File, opts Options) *Lexer {
	return &Lexer{
		file:   file,
		cursor: NewCursor(file),
		opts:   opts,
	}
}

// Tokenize drains a fresh lexer. The returned slice always ends with EOF
// unless an error occurred.
func Tokenize(file *source.File, opts Options) ([]token.Token, error) {
	lx := New(file, opts)
	out := make([]token.Token, 0, len(file.Content)/4+1)
	for {
		tok := lx.Next()
		if tok.Kind == token.Invalid {
			return out, lx.Err()
		}
		out = append(out, tok)
		if tok.Kind == token.EOF {
			return out, nil
		}
	}
}

// Err returns the first fatal error, if any.
func (lx *Lexer) Err() error {
	if lx.err == nil {
		return nil
	}
	return lx.err
}

// Next возвращает следующий значимый токен с собранным Leading.
// После EOF всегда EOF, после ошибки всегда Invalid.
func (lx *Lexer) Next() token.Token {
	if lx.look != nil {
		tok := *lx.look
		lx.look = nil
		return tok
	}
	if lx.err != nil {
		return lx.invalid()
	}

	lx.collectLeadingTrivia()
	if lx.err != nil {
		return lx.invalid()
	}
	if lx.cursor.EOF() {
		return token.Token{Kind: token.EOF, Span: lx.emptySpan(), Leading: lx.takeHold()}
	}

	ch := lx.cursor.Peek()
	var tok token.Token
	switch {
	case ch == '_' && !isIdentContinueByte(lx.cursor.PeekAt(1)):
		lx.cursor.Bump()
		tok = lx.emit(token.Underscore, lx.cursor.Mark()-1)
	case isIdentStartByte(ch) || ch >= utf8.RuneSelf:
		tok = lx.scanIdentOrKeyword()
	case isDec(ch), ch == '.' && isDec(lx.cursor.PeekAt(1)):
		tok = lx.scanNumber()
	case ch == '"':
		tok = lx.scanString()
	case ch == '\'':
		tok = lx.scanChar()
	case ch == '`':
		tok = lx.scanTemplate()
	default:
		tok = lx.scanOperatorOrPunct()
	}
	if lx.err != nil {
		return lx.invalid()
	}
	tok.Leading = lx.takeHold()
	return tok
}

// Peek возвращает следующий токен, не потребляя его.
func (lx *Lexer) Peek() token.Token {
	t := lx.Next()
	lx.look = &t
	return t
}

func (lx *Lexer) takeHold() []token.Trivia {
	if len(lx.hold) == 0 {
		return nil
	}
	h := lx.hold
	lx.hold = nil
	return h
}

func (lx *Lexer) emit(k token.Kind, start Mark) token.Token {
	sp := lx.cursor.SpanFrom(start)
	return token.Token{Kind: k, Span: sp, Text: string(lx.file.Content[sp.Start:sp.End])}
}

func (lx *Lexer) invalid() token.Token {
	return token.Token{Kind: token.Invalid, Span: lx.err.Span}
}

func (lx *Lexer) emptySpan() source.Span {
	return source.Span{File: lx.file.ID, Start: lx.cursor.Off, End: lx.cursor.Off}
}

// fail фиксирует первую ошибку; дальше лексер не восстанавливается.
func (lx *Lexer) fail(kind ErrorKind, sp source.Span, msg string) {
	if lx.err != nil {
		return
	}
	lx.err = &LexError{Kind: kind, Span: sp, Msg: msg}
	if lx.opts.Reporter != nil {
		lx.opts.Reporter.Report(diag.Diagnostic{Severity: diag.SevError, Code: lx.err.DiagCode(), Message: msg, Primary: sp})
	}
}
