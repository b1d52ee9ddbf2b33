package lexer

import (
	"fmt"

	"gard/internal/diag"
	"gard/internal/source"
)

// ErrorKind classifies fatal lexing failures.
type ErrorKind uint8

const (
	InvalidCharacter ErrorKind = iota + 1
	UnterminatedString
	UnterminatedComment
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidCharacter:
		return "invalid character"
	case UnterminatedString:
		return "unterminated string"
	case UnterminatedComment:
		return "unterminated comment"
	}
	return "lex error"
}

// LexError is fatal: the compilation unit is aborted, lexing does not recover.
type LexError struct {
	Kind ErrorKind
	Span source.Span
	Msg  string
}

func (e *LexError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s at offset %d", e.Kind, e.Span.Start)
	}
	return fmt.Sprintf("%s at offset %d: %s", e.Kind, e.Span.Start, e.Msg)
}

func (e *LexError) DiagCode() diag.Code {
	switch e.Kind {
	case UnterminatedString:
		return diag.LexUnterminatedString
	case UnterminatedComment:
		return diag.LexUnterminatedComment
	}
	return diag.LexInvalidCharacter
}

func (e *LexError) DiagSpan() source.Span { return e.Span }
