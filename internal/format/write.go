package format

import "strings"

// Writer is the printer's output buffer. Indentation is emitted lazily, on
// the first write of each line, so empty lines stay empty.
type Writer struct {
	buf   []byte
	unit  string
	depth int
	fresh bool
}

func NewWriter(opt Options) *Writer {
	opt = opt.withDefaults()
	unit := strings.Repeat(" ", opt.IndentWidth)
	if opt.UseTabs {
		unit = "\t"
	}
	return &Writer{unit: unit, fresh: true}
}

func (w *Writer) String() string { return string(w.buf) }

// WriteString appends s; s may contain newlines of its own (template
// literals) which are copied as is.
func (w *Writer) WriteString(s string) {
	if s == "" {
		return
	}
	if w.fresh {
		for range w.depth {
			w.buf = append(w.buf, w.unit...)
		}
		w.fresh = false
	}
	w.buf = append(w.buf, s...)
}

// Newline ends the line, dropping spaces left before it.
func (w *Writer) Newline() {
	for !w.fresh && len(w.buf) > 0 && w.buf[len(w.buf)-1] == ' ' {
		w.buf = w.buf[:len(w.buf)-1]
	}
	w.buf = append(w.buf, '\n')
	w.fresh = true
}

func (w *Writer) Indent() { w.depth++ }

func (w *Writer) Dedent() {
	if w.depth > 0 {
		w.depth--
	}
}

// LineStart reports whether nothing was written since the last Newline.
func (w *Writer) LineStart() bool { return w.fresh }
