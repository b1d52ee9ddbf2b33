package diagfmt

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"gard/internal/source"
	"gard/internal/token"
)

// TokenJSON is one entry of `gard tokenize --format json`.
type TokenJSON struct {
	Kind  string `json:"kind"`
	Text  string `json:"text,omitempty"`
	Line  uint32 `json:"line"`
	Col   uint32 `json:"col"`
	Start uint32 `json:"start"`
	End   uint32 `json:"end"`
	// Docs are the doc comments attached to the token as leading trivia.
	Docs     []string `json:"docs,omitempty"`
	Comments int      `json:"comments,omitempty"`
	Parts    int      `json:"template_parts,omitempty"`
}

func tokenRows(tokens []token.Token, fs *source.FileSet) []TokenJSON {
	rows := make([]TokenJSON, 0, len(tokens))
	for _, tok := range tokens {
		pos, _ := fs.Resolve(tok.Span)
		row := TokenJSON{
			Kind:  tok.Kind.String(),
			Text:  tok.Text,
			Line:  pos.Line,
			Col:   pos.Col,
			Start: tok.Span.Start,
			End:   tok.Span.End,
			Parts: len(tok.Template),
		}
		for _, tv := range tok.Leading {
			switch tv.Kind {
			case token.TriviaDocLine, token.TriviaDocBlock:
				row.Docs = append(row.Docs, tv.DocText())
			case token.TriviaLineComment, token.TriviaBlockComment:
				row.Comments++
			}
		}
		rows = append(rows, row)
		if tok.Kind == token.EOF {
			break
		}
	}
	return rows
}

// FormatTokensPretty prints one token per line: position, kind, text, then
// attached doc comments.
func FormatTokensPretty(w io.Writer, tokens []token.Token, fs *source.FileSet) error {
	rows := tokenRows(tokens, fs)
	kindWidth := 0
	for _, r := range rows {
		kindWidth = max(kindWidth, len(r.Kind))
	}
	for _, r := range rows {
		pos := fmt.Sprintf("%d:%d", r.Line, r.Col)
		line := fmt.Sprintf("%-8s %-*s", pos, kindWidth, r.Kind)
		if r.Text != "" {
			line += " " + strconv.Quote(r.Text)
		}
		if r.Parts > 0 {
			line += fmt.Sprintf(" [%d parts]", r.Parts)
		}
		for _, d := range r.Docs {
			line += " /// " + strconv.Quote(d)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// FormatTokensJSON writes the token list as an indented JSON array.
func FormatTokensJSON(w io.Writer, tokens []token.Token, fs *source.FileSet) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(tokenRows(tokens, fs))
}
