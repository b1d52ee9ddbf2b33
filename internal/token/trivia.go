package token

import (
	"strings"

	"gard/internal/source"
)

type TriviaKind uint8

const (
	TriviaSpace TriviaKind = iota
	TriviaNewline
	TriviaLineComment
	TriviaBlockComment
	TriviaDocLine  // ///
	TriviaDocBlock // /** */
)

func (k TriviaKind) String() string {
	switch k {
	case TriviaSpace:
		return "space"
	case TriviaNewline:
		return "newline"
	case TriviaLineComment:
		return "line_comment"
	case TriviaBlockComment:
		return "block_comment"
	case TriviaDocLine:
		return "doc_line"
	case TriviaDocBlock:
		return "doc_block"
	}
	return "unknown"
}

type Trivia struct {
	Kind TriviaKind
	Span source.Span
	Text string
}

// DocText strips comment markers from a doc trivia.
func (tv Trivia) DocText() string {
	switch tv.Kind {
	case TriviaDocLine:
		return strings.TrimSpace(strings.TrimPrefix(tv.Text, "///"))
	case TriviaDocBlock:
		body := strings.TrimSuffix(strings.TrimPrefix(tv.Text, "/**"), "*/")
		lines := strings.Split(body, "\n")
		for i, l := range lines {
			lines[i] = strings.TrimPrefix(strings.TrimSpace(l), "* ")
			lines[i] = strings.TrimPrefix(lines[i], "*")
		}
		return strings.TrimSpace(strings.Join(lines, "\n"))
	}
	return ""
}
