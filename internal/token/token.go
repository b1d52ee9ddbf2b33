package token

import "gard/internal/source"

// Token represents a single source token with its location and trivia.
type Token struct {
	Kind    Kind
	Span    source.Span
	Text    string
	Leading []Trivia
	// Template is set only for TemplateLit.
	Template []TemplatePart
}

// TemplatePart is one segment of a template string: literal text followed by an
// optional `${...}` hole, already lexed into its own token run (terminated by EOF).
type TemplatePart struct {
	Text     string // cooked literal text before the hole
	HasExpr  bool
	Expr     []Token
	ExprSpan source.Span
}

// IsLiteral reports whether the token is a literal.
func (t Token) IsLiteral() bool { return t.Kind.IsLiteral() }

// IsKeyword reports whether the token is a language keyword.
func (t Token) IsKeyword() bool { return t.Kind.IsKeyword() }

// IsIdent reports whether the token is an identifier.
func (t Token) IsIdent() bool { return t.Kind == Ident }

// IsWord reports whether the token is an identifier or keyword; member names accept both.
func (t Token) IsWord() bool { return t.Kind == Ident || t.Kind.IsKeyword() }

// Doc returns the text of the doc-comment trivia attached to the token, joined by newlines.
func (t Token) Doc() string {
	var out string
	for _, tv := range t.Leading {
		if tv.Kind != TriviaDocLine && tv.Kind != TriviaDocBlock {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += tv.DocText()
	}
	return out
}
