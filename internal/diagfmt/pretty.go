package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"gard/internal/diag"
	"gard/internal/source"
)

type palette struct {
	err, warn, info, gutter, bold *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:    color.New(color.FgRed, color.Bold),
		warn:   color.New(color.FgYellow, color.Bold),
		info:   color.New(color.FgCyan, color.Bold),
		gutter: color.New(color.FgBlue),
		bold:   color.New(color.Bold),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.gutter, p.bold} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	}
	return p.info
}

// Pretty форматирует диагностики в человекочитаемый вид.
// Идёт по bag.Items() (ожидается bag.Sort() заранее).
// Для каждого diag печатает:
// <path>:<line>:<col>: <SEV> <CODE>: <Message>
// затем контекст строки с подчёркиванием ^~~~ по Span, затем Notes.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	if bag == nil {
		return
	}
	pal := newPalette(opts.Color)
	for i, d := range bag.Items() {
		if i > 0 {
			fmt.Fprintln(w)
		}
		prettyOne(w, d, fs, opts, pal)
	}
}

func prettyOne(w io.Writer, d diag.Diagnostic, fs *source.FileSet, opts PrettyOpts, pal palette) {
	sev := pal.severity(d.Severity)
	loc := ""
	if hasLocation(fs, d.Primary) {
		loc = pal.bold.Sprint(location(fs, d.Primary, opts.PathMode, opts.BaseDir)) + ": "
	}
	fmt.Fprintf(w, "%s%s %s: %s\n", loc, sev.Sprint(d.Severity.String()), sev.Sprint(d.Code.ID()), d.Message)
	if hasLocation(fs, d.Primary) {
		snippet(w, fs, d.Primary, opts.Context, pal, sev)
	}
	if !opts.ShowNotes {
		return
	}
	for _, n := range d.Notes {
		if hasLocation(fs, n.Span) {
			fmt.Fprintf(w, "  %s %s: %s\n", pal.info.Sprint("note:"), location(fs, n.Span, opts.PathMode, opts.BaseDir), n.Msg)
			snippet(w, fs, n.Span, 0, pal, pal.info)
			continue
		}
		fmt.Fprintf(w, "  %s %s\n", pal.info.Sprint("note:"), n.Msg)
	}
}

// hasLocation: диагностики без позиции (I/O, конфиг, рантайм) несут пустой Span{}.
func hasLocation(fs *source.FileSet, sp source.Span) bool {
	if fs == nil || int(sp.File) >= fs.Len() {
		return false
	}
	return sp.Start != 0 || sp.End != 0 || len(fs.Get(sp.File).Content) == 0
}

func location(fs *source.FileSet, sp source.Span, mode PathMode, base string) string {
	start, _ := fs.Resolve(sp)
	path := mode.Render(fs.Get(sp.File).Path, base)
	return fmt.Sprintf("%s:%d:%d", path, start.Line, start.Col)
}

func snippet(w io.Writer, fs *source.FileSet, sp source.Span, context int, pal palette, mark *color.Color) {
	f := fs.Get(sp.File)
	start, end := fs.Resolve(sp)
	first := start.Line
	last := start.Line
	if context > 0 {
		if first > uint32(context) {
			first -= uint32(context)
		} else {
			first = 1
		}
		last += uint32(context)
	}
	lines := uint32(len(f.LineIdx)) + 1
	if last > lines {
		last = lines
	}
	gw := len(fmt.Sprint(last))

	for ln := first; ln <= last; ln++ {
		text := f.GetLine(ln)
		fmt.Fprintf(w, "%s %s\n", pal.gutter.Sprintf("%*d |", gw, ln), text)
		if ln != start.Line {
			continue
		}
		from := int(start.Col) - 1
		to := len(text)
		if end.Line == start.Line {
			to = min(int(end.Col)-1, len(text))
		}
		from = min(from, len(text))
		fmt.Fprintf(w, "%s %s%s\n", pal.gutter.Sprintf("%*s |", gw, ""), pad(text[:from]), mark.Sprint(underline(text[from:max(from, to)])))
	}
}

// pad повторяет табы строки и заменяет остальное пробелами по ширине.
func pad(prefix string) string {
	var b strings.Builder
	for _, r := range prefix {
		if r == '\t' {
			b.WriteByte('\t')
			continue
		}
		b.WriteString(strings.Repeat(" ", runewidth.RuneWidth(r)))
	}
	return b.String()
}

func underline(text string) string {
	n := runewidth.StringWidth(text)
	if n <= 1 {
		return "^"
	}
	return "^" + strings.Repeat("~", n-1)
}
