package diagfmt

import (
	"bytes"
	"encoding/json"
	"testing"

	"gard/internal/diag"
	"gard/internal/source"
)

func TestJSONRanges(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("dir/test.gard", []byte("function main() {\n\tlet x = \"unterminated\n}"))

	bag := diag.NewBag(10)
	bag.Add(diag.Diagnostic{
		Severity: diag.SevError,
		Code:     diag.LexUnterminatedString,
		Primary:  source.Span{File: id, Start: 27, End: 40},
		Message:  "Unterminated string literal",
		Notes:    []diag.Note{{Msg: "string starts here", Span: source.Span{File: id, Start: 27, End: 28}}},
	})
	bag.Add(diag.Diagnostic{Severity: diag.SevInfo, Code: diag.RunInfo, Message: "no position"})

	var buf bytes.Buffer
	if err := JSON(&buf, bag, fs, JSONOpts{Positions: true, PathMode: PathBase, Notes: true}); err != nil {
		t.Fatalf("JSON: %v", err)
	}
	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if out.Count != 2 || out.Total != 2 {
		t.Fatalf("count/total = %d/%d", out.Count, out.Total)
	}

	d := out.Diagnostics[0]
	if d.Severity != "ERROR" || d.Code != "LEX1002" || d.Title != "Unterminated string literal" {
		t.Errorf("header: %+v", d)
	}
	if d.Range == nil || d.Range.File != "test.gard" {
		t.Fatalf("range: %+v", d.Range)
	}
	if d.Range.Start != (PointJSON{Offset: 27, Line: 2, Col: 10}) {
		t.Errorf("start = %+v, want 27 @ 2:10", d.Range.Start)
	}
	if len(d.Notes) != 1 || d.Notes[0].Range == nil {
		t.Errorf("notes = %+v", d.Notes)
	}
	if out.Diagnostics[1].Range != nil {
		t.Error("spanless diagnostic must omit range")
	}
}

func TestJSONOffsetsOnly(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("a.gard", []byte("let x = 1;\n"))
	bag := diag.NewBag(4)
	bag.Add(diag.Diagnostic{Severity: diag.SevWarning, Code: diag.SynInfo, Message: "w", Primary: source.Span{File: id, Start: 4, End: 5}})

	out := BuildDiagnosticsOutput(bag, fs, JSONOpts{})
	if r := out.Diagnostics[0].Range; r.Start.Line != 0 || r.Start.Offset != 4 || r.File != "a.gard" {
		t.Fatalf("range = %+v", r)
	}
}

func TestJSONMax(t *testing.T) {
	bag := diag.NewBag(10)
	for range 5 {
		bag.Add(diag.Diagnostic{Severity: diag.SevWarning, Code: diag.SynInfo, Message: "w"})
	}
	out := BuildDiagnosticsOutput(bag, nil, JSONOpts{Max: 2})
	if out.Count != 2 || out.Total != 5 {
		t.Fatalf("count/total = %d/%d, want 2/5", out.Count, out.Total)
	}
}

func TestPathModes(t *testing.T) {
	for _, name := range []string{"auto", "absolute", "relative", "basename"} {
		m, err := ParsePathMode(name)
		if err != nil || m.String() != name {
			t.Fatalf("ParsePathMode(%q) = %v, %v", name, m, err)
		}
	}
	if _, err := ParsePathMode("short"); err == nil {
		t.Fatal("expected error")
	}
	if got := PathRelative.Render("/w/src/a.gard", "/w"); got != "src/a.gard" {
		t.Fatalf("relative = %q", got)
	}
	if got := PathBase.Render("/w/src/a.gard", ""); got != "a.gard" {
		t.Fatalf("basename = %q", got)
	}
}
