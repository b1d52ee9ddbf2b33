package diag

import (
	"errors"
	"testing"

	"gard/internal/source"
)

func TestBagLimitAndSort(t *testing.T) {
	b := NewBag(3)
	var r Reporter = b
	r.Report(Diagnostic{Code: SynUnexpectedToken, Severity: SevError, Primary: source.Span{Start: 9}, Message: "late"})
	r.Report(Diagnostic{Code: LexInvalidCharacter, Severity: SevWarning, Primary: source.Span{Start: 1}, Message: "early warn"})
	r.Report(Diagnostic{Code: LexInvalidCharacter, Severity: SevError, Primary: source.Span{Start: 1}, Message: "early err"})
	if b.Add(Diagnostic{Message: "overflow"}) {
		t.Fatalf("limit not enforced")
	}
	if !b.HasErrors() || !b.HasWarnings() {
		t.Fatalf("severity queries failed")
	}
	b.Sort()
	got := []string{b.Items()[0].Message, b.Items()[1].Message, b.Items()[2].Message}
	want := []string{"early err", "early warn", "late"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestDedup(t *testing.T) {
	b := NewBag(0)
	for range 3 {
		b.Add(Diagnostic{Code: SynUnexpectedToken, Primary: source.Span{Start: 4, End: 5}})
	}
	b.Add(Diagnostic{Code: SynUnexpectedToken, Primary: source.Span{Start: 6, End: 7}})
	b.Dedup()
	if b.Len() != 2 {
		t.Fatalf("len = %d, want 2", b.Len())
	}
}

func TestCodeID(t *testing.T) {
	cases := map[Code]string{
		LexUnterminatedString: "LEX1002",
		SynCatchAllNotLast:    "SYN2003",
		RunStalled:            "RUN3002",
		LedConflict:           "LED4002",
		CfgInvalid:            "CFG5001",
		UnknownCode:           "E0000",
	}
	for c, want := range cases {
		if c.ID() != want {
			t.Errorf("%d.ID() = %s, want %s", c, c.ID(), want)
		}
	}
}

type codedErr struct{}

func (codedErr) Error() string         { return "boom" }
func (codedErr) DiagCode() Code        { return RunUncaught }
func (codedErr) DiagSpan() source.Span { return source.Span{Start: 3, End: 4} }

func TestFromError(t *testing.T) {
	d := FromError(codedErr{})
	if d.Code != RunUncaught || d.Primary.Start != 3 || d.Message != "boom" {
		t.Fatalf("unexpected %+v", d)
	}
	d = FromError(errors.New("plain"))
	if d.Code != UnknownCode || d.Severity != SevError {
		t.Fatalf("unexpected %+v", d)
	}
}

func TestDiagnosticString(t *testing.T) {
	d := Diagnostic{Severity: SevWarning, Code: RunImport, Message: "missing"}
	if got := d.String(); got != "WARNING RUN3003: missing" {
		t.Fatalf("String() = %q", got)
	}
}
