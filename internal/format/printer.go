package format

import (
	"strings"

	"gard/internal/ast"
)

type Options struct {
	IndentWidth int
	UseTabs     bool
}

func (o Options) withDefaults() Options {
	if o.IndentWidth == 0 {
		o.IndentWidth = 4
	}
	return o
}

type printer struct {
	w       *Writer
	skipDoc bool // doc уже напечатан перед export
}

// File prints a whole file; top-level items are separated by blank lines
// around declarations.
func File(f *ast.File, opt Options) string {
	p := &printer{w: NewWriter(opt)}
	var prevDecl bool
	for i, item := range f.Items {
		decl := isDecl(item)
		if i > 0 && (decl || prevDecl) {
			p.w.Newline()
		}
		p.stmt(item)
		p.w.Newline()
		prevDecl = decl
	}
	return p.w.String()
}

// Expr prints a single expression.
func Expr(x ast.Expr) string {
	p := &printer{w: NewWriter(Options{})}
	p.expr(x)
	return p.w.String()
}

func isDecl(s ast.Stmt) bool {
	switch s.(type) {
	case *ast.FuncDecl, *ast.ClassDecl, *ast.InterfaceDecl, *ast.ContractDecl, *ast.ExportDecl, *ast.ImportDecl:
		return true
	}
	return false
}

func (p *printer) doc(doc string) {
	if p.skipDoc {
		p.skipDoc = false
		return
	}
	if doc == "" {
		return
	}
	for _, line := range strings.Split(doc, "\n") {
		if line == "" {
			p.w.WriteString("///")
		} else {
			p.w.WriteString("/// " + line)
		}
		p.w.Newline()
	}
}

func (p *printer) mods(m ast.Modifiers) {
	if s := m.String(); s != "" {
		p.w.WriteString(s + " ")
	}
}

func (p *printer) decorators(ds []string) {
	for _, d := range ds {
		p.w.WriteString("@" + d)
		p.w.Newline()
	}
}

// quote печатает строковый литерал с экранированием, понятным лексеру.
func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		case 0:
			b.WriteString(`\0`)
		default:
			if r < 0x20 || r == 0x7f {
				b.WriteString(`\u{` + strings.ToUpper(hex(r)) + `}`)
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func hex(r rune) string {
	const digits = "0123456789abcdef"
	if r == 0 {
		return "0"
	}
	var out []byte
	for r > 0 {
		out = append([]byte{digits[r&0xf]}, out...)
		r >>= 4
	}
	return string(out)
}

func templateText(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '`':
			b.WriteString("\\`")
		case '\\':
			b.WriteString(`\\`)
		case '$':
			b.WriteString(`\$`)
		case 0:
			b.WriteString(`\0`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
