package parser

import (
	"fmt"
	"strings"

	"gard/internal/diag"
	"gard/internal/source"
	"gard/internal/token"
)

// SyntaxError is the single error a parse reports; there is no recovery.
type SyntaxError struct {
	Code     diag.Code
	Expected []string
	Found    token.Token
	Span     source.Span
	Msg      string
}

func (e *SyntaxError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	found := e.Found.Text
	if found == "" {
		found = e.Found.Kind.String()
	} else {
		found = "'" + found + "'"
	}
	if len(e.Expected) == 0 {
		return "unexpected " + found
	}
	return fmt.Sprintf("expected %s, found %s", joinExpected(e.Expected), found)
}

func (e *SyntaxError) DiagCode() diag.Code {
	if e.Code == 0 {
		return diag.SynUnexpectedToken
	}
	return e.Code
}

func (e *SyntaxError) DiagSpan() source.Span { return e.Span }

func joinExpected(xs []string) string {
	switch len(xs) {
	case 1:
		return xs[0]
	case 2:
		return xs[0] + " or " + xs[1]
	}
	return strings.Join(xs[:len(xs)-1], ", ") + " or " + xs[len(xs)-1]
}

// bailout разматывает стек парсера до Parse.
type bailout struct{ err *SyntaxError }
