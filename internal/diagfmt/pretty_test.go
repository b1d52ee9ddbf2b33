package diagfmt

import (
	"bytes"
	"strings"
	"testing"

	"gard/internal/diag"
	"gard/internal/source"
)

// TestPrettyPathModes проверяет различные режимы форматирования путей
func TestPrettyPathModes(t *testing.T) {
	fs := source.NewFileSet()
	content := []byte("let x = \"unterminated string\n")
	fileID := fs.AddVirtual("/home/user/project/src/test.gard", content)

	bag := diag.NewBag(10)
	bag.Add(diag.Diagnostic{
		Severity: diag.SevError,
		Code:     diag.LexUnterminatedString,
		Primary:  source.Span{File: fileID, Start: 8, End: 28},
		Message:  "Unterminated string literal",
	})

	tests := []struct {
		name     string
		mode     PathMode
		contains string
	}{
		{"Absolute path", PathAbsolute, "/home/user/project/src/test.gard:1:9"},
		{"Relative path", PathRelative, "src/test.gard:1:9"},
		{"Basename only", PathBase, "test.gard:1:9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			Pretty(&buf, bag, fs, PrettyOpts{PathMode: tt.mode, BaseDir: "/home/user/project"})
			output := buf.String()

			if !strings.Contains(output, tt.contains) {
				t.Errorf("Expected output to contain %q, got:\n%s", tt.contains, output)
			}
			if !strings.Contains(output, "ERROR LEX1002: Unterminated string literal") {
				t.Errorf("Expected header line, got:\n%s", output)
			}
		})
	}
}

func TestPrettyCaretLine(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("main.gard", []byte("let a = 1;\nlet b = oops;\n"))
	bag := diag.NewBag(4)
	bag.Add(diag.Diagnostic{
		Severity: diag.SevError,
		Code:     diag.RunUncaught,
		Primary:  source.Span{File: fileID, Start: 19, End: 23},
		Message:  "oops is not defined",
	})

	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{Context: 1})
	want := "main.gard:2:9: ERROR RUN3001: oops is not defined\n" +
		"1 | let a = 1;\n" +
		"2 | let b = oops;\n" +
		"  |         ^~~~\n" +
		"3 | \n"
	if buf.String() != want {
		t.Fatalf("got:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestPrettyWideRunes(t *testing.T) {
	fs := source.NewFileSet()
	// "日本" занимает 4 колонки
	fileID := fs.AddVirtual("w.gard", []byte("let s = \"日本\" + x;"))
	start := uint32(len("let s = \"日本\" + "))
	bag := diag.NewBag(1)
	bag.Add(diag.Diagnostic{Severity: diag.SevWarning, Code: diag.SynInfo, Primary: source.Span{File: fileID, Start: start, End: start + 1}, Message: "w"})

	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{})
	lines := strings.Split(buf.String(), "\n")
	if len(lines) < 3 {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}
	caret := lines[2]
	if got := strings.Index(caret, "^") - len("  | "); got != len("let s = \"") + 4 + len("\" + ") {
		t.Fatalf("caret at column %d:\n%s", got, buf.String())
	}
}

func TestPrettyWithoutLocation(t *testing.T) {
	bag := diag.NewBag(2)
	bag.Add(diag.Diagnostic{Severity: diag.SevError, Code: diag.CfgInvalid, Message: "bad config"})
	bag.Add(diag.Diagnostic{
		Severity: diag.SevError,
		Code:     diag.RunUncaught,
		Message:  "boom",
		Notes:    []diag.Note{{Msg: "thrown from task worker"}},
	})

	var buf bytes.Buffer
	Pretty(&buf, bag, source.NewFileSet(), PrettyOpts{ShowNotes: true})
	want := "ERROR CFG5001: bad config\n\nERROR RUN3001: boom\n  note: thrown from task worker\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestPrettyColor(t *testing.T) {
	bag := diag.NewBag(1)
	bag.Add(diag.Diagnostic{Severity: diag.SevError, Code: diag.RunUncaught, Message: "boom"})
	var plain, colored bytes.Buffer
	Pretty(&plain, bag, nil, PrettyOpts{})
	Pretty(&colored, bag, nil, PrettyOpts{Color: true})
	if strings.Contains(plain.String(), "\x1b[") {
		t.Fatal("plain output must not contain escapes")
	}
	if !strings.Contains(colored.String(), "\x1b[") {
		t.Fatal("colored output must contain escapes")
	}
}
