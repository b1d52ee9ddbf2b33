package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"gard/internal/lexer"
	"gard/internal/source"
)

func lexVirtual(t *testing.T, src string) (*source.FileSet, []TokenJSON, []byte) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("t.gard", []byte(src))
	toks, err := lexer.Tokenize(fs.Get(id), lexer.Options{})
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	var buf bytes.Buffer
	if err := FormatTokensJSON(&buf, toks, fs); err != nil {
		t.Fatalf("json: %v", err)
	}
	var rows []TokenJSON
	if err := json.Unmarshal(buf.Bytes(), &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	var pretty bytes.Buffer
	if err := FormatTokensPretty(&pretty, toks, fs); err != nil {
		t.Fatalf("pretty: %v", err)
	}
	return fs, rows, pretty.Bytes()
}

func TestTokenRowsCarryPositionsAndDocs(t *testing.T) {
	_, rows, pretty := lexVirtual(t, "/// answer\nlet x = 42;")
	if len(rows) != 6 {
		t.Fatalf("rows = %+v", rows)
	}
	first := rows[0]
	if first.Line != 2 || first.Col != 1 || len(first.Docs) != 1 || first.Docs[0] != "answer" {
		t.Fatalf("first = %+v", first)
	}
	if num := rows[3]; num.Text != "42" || num.Col != 9 || num.Start != 19 {
		t.Fatalf("number = %+v", num)
	}

	lines := strings.Split(strings.TrimSuffix(string(pretty), "\n"), "\n")
	if len(lines) != 6 || !strings.HasPrefix(lines[0], "2:1 ") || !strings.Contains(lines[0], `/// "answer"`) {
		t.Fatalf("pretty:\n%s", pretty)
	}
}
