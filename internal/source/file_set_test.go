package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileSetLatestVersion(t *testing.T) {
	fs := NewFileSet()
	id1 := fs.Add("main.gard", []byte("let a = 1;"), 0)
	id2 := fs.Add("main.gard", []byte("let b = 2;"), 0)
	if id1 == id2 {
		t.Fatalf("expected distinct ids, got %d twice", id1)
	}
	f, ok := fs.Lookup("./main.gard")
	if !ok {
		t.Fatalf("lookup failed")
	}
	if f.ID != id2 {
		t.Errorf("lookup returned %d, want %d", f.ID, id2)
	}
	if string(fs.Get(id1).Content) != "let a = 1;" {
		t.Errorf("old version lost")
	}
}

func TestResolveLineCol(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("t.gard", []byte("ab\ncde\n\nf"))
	tests := []struct {
		off  uint32
		want LineCol
	}{
		{0, LineCol{1, 1}},
		{1, LineCol{1, 2}},
		{2, LineCol{1, 3}}, // сам '\n'
		{3, LineCol{2, 1}},
		{5, LineCol{2, 3}},
		{7, LineCol{3, 1}},
		{8, LineCol{4, 1}},
	}
	for _, tt := range tests {
		got, _ := fs.Resolve(Span{File: id, Start: tt.off, End: tt.off})
		if got != tt.want {
			t.Errorf("offset %d: got %+v, want %+v", tt.off, got, tt.want)
		}
	}
}

func TestGetLine(t *testing.T) {
	fs := NewFileSet()
	f := fs.Get(fs.AddVirtual("t.gard", []byte("first\nsecond\nthird")))
	for i, want := range []string{"first", "second", "third", ""} {
		if got := f.GetLine(uint32(i + 1)); got != want {
			t.Errorf("line %d: got %q, want %q", i+1, got, want)
		}
	}
}

func TestAddVirtualNormalizesCRLF(t *testing.T) {
	fs := NewFileSet()
	f := fs.Get(fs.AddVirtual("t.gard", []byte("a\r\nb")))
	if string(f.Content) != "a\nb" {
		t.Fatalf("content = %q", f.Content)
	}
}

func TestSpanCover(t *testing.T) {
	a := Span{File: 1, Start: 4, End: 8}
	b := Span{File: 1, Start: 2, End: 6}
	if got := a.Cover(b); got != (Span{File: 1, Start: 2, End: 8}) {
		t.Errorf("cover = %v", got)
	}
	other := Span{File: 2, Start: 0, End: 100}
	if got := a.Cover(other); got != a {
		t.Errorf("cross-file cover changed span: %v", got)
	}
}

func TestLoadStripsBOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bom.gard")
	if err := os.WriteFile(path, []byte("\xEF\xBB\xBFlet a;\r\nlet b;\r"), 0o600); err != nil {
		t.Fatal(err)
	}
	fs := NewFileSet()
	id, err := fs.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	f := fs.Get(id)
	if string(f.Content) != "let a;\nlet b;\r" {
		t.Fatalf("content = %q", f.Content)
	}
	if f.Flags != FileHadBOM|FileNormalizedCRLF {
		t.Fatalf("flags = %b", f.Flags)
	}
	if len(f.LineIdx) != 1 || f.LineIdx[0] != 6 {
		t.Fatalf("line index = %v", f.LineIdx)
	}
	if got := fs.Position(Span{File: id, Start: 7, End: 8}); got != filepath.ToSlash(filepath.Clean(path))+":2:1" {
		t.Fatalf("position = %s", got)
	}
}
