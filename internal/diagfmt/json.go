package diagfmt

import (
	"encoding/json"
	"io"

	"gard/internal/diag"
	"gard/internal/source"
)

// PointJSON is one end of a RangeJSON. Line and Col are 1-based and omitted
// unless JSONOpts.Positions is set.
type PointJSON struct {
	Offset uint32 `json:"offset"`
	Line   uint32 `json:"line,omitempty"`
	Col    uint32 `json:"col,omitempty"`
}

// RangeJSON locates a diagnostic or a note.
type RangeJSON struct {
	File  string    `json:"file"`
	Start PointJSON `json:"start"`
	End   PointJSON `json:"end"`
}

type NoteJSON struct {
	Message string     `json:"message"`
	Range   *RangeJSON `json:"range,omitempty"`
}

type DiagnosticJSON struct {
	Severity string     `json:"severity"`
	Code     string     `json:"code"`
	Title    string     `json:"title"`
	Message  string     `json:"message"`
	Range    *RangeJSON `json:"range,omitempty"`
	Notes    []NoteJSON `json:"notes,omitempty"`
}

// DiagnosticsOutput is the document written by JSON. Count is the number of
// entries emitted, Total the size of the bag.
type DiagnosticsOutput struct {
	Count       int              `json:"count"`
	Total       int              `json:"total"`
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
}

type jsonBuilder struct {
	fs   *source.FileSet
	opts JSONOpts
}

// rangeOf is nil for spanless diagnostics (I/O, config, runtime).
func (b jsonBuilder) rangeOf(sp source.Span) *RangeJSON {
	if !hasLocation(b.fs, sp) {
		return nil
	}
	r := &RangeJSON{
		File:  b.opts.PathMode.Render(b.fs.Get(sp.File).Path, b.opts.BaseDir),
		Start: PointJSON{Offset: sp.Start},
		End:   PointJSON{Offset: sp.End},
	}
	if b.opts.Positions {
		from, to := b.fs.Resolve(sp)
		r.Start.Line, r.Start.Col = from.Line, from.Col
		r.End.Line, r.End.Col = to.Line, to.Col
	}
	return r
}

func (b jsonBuilder) diagnostic(d diag.Diagnostic) DiagnosticJSON {
	out := DiagnosticJSON{
		Severity: d.Severity.String(),
		Code:     d.Code.ID(),
		Title:    d.Code.Title(),
		Message:  d.Message,
		Range:    b.rangeOf(d.Primary),
	}
	if b.opts.Notes {
		for _, n := range d.Notes {
			out.Notes = append(out.Notes, NoteJSON{Message: n.Msg, Range: b.rangeOf(n.Span)})
		}
	}
	return out
}

// BuildDiagnosticsOutput converts bag without encoding it, for callers that
// embed diagnostics in a larger document.
func BuildDiagnosticsOutput(bag *diag.Bag, fs *source.FileSet, opts JSONOpts) DiagnosticsOutput {
	items := bag.Items()
	if opts.Max > 0 && len(items) > opts.Max {
		items = items[:opts.Max]
	}
	b := jsonBuilder{fs: fs, opts: opts}
	out := DiagnosticsOutput{
		Count:       len(items),
		Total:       bag.Len(),
		Diagnostics: make([]DiagnosticJSON, len(items)),
	}
	for i, d := range items {
		out.Diagnostics[i] = b.diagnostic(d)
	}
	return out
}

// JSON writes bag as an indented DiagnosticsOutput.
func JSON(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts JSONOpts) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(BuildDiagnosticsOutput(bag, fs, opts))
}
