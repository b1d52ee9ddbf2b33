package parser

import (
	"fmt"
	"slices"

	"gard/internal/ast"
	"gard/internal/diag"
	"gard/internal/token"
)

// checkNamedArgs проверяет вызовы функций, объявленных в этом же файле:
// литерал-объект в позиции деструктурирующего параметра не может нести
// неизвестных ключей. Остальные вызовы проверяются во время исполнения.
func checkNamedArgs(f *ast.File) *SyntaxError {
	decls := make(map[string]*ast.Function)
	dup := make(map[string]bool)
	ast.Inspect(f, func(n ast.Node) bool {
		if d, ok := n.(*ast.FuncDecl); ok {
			if _, seen := decls[d.Fn.Name]; seen {
				dup[d.Fn.Name] = true
			}
			decls[d.Fn.Name] = d.Fn
		}
		return true
	})
	for name := range dup {
		delete(decls, name)
	}
	if len(decls) == 0 {
		return nil
	}

	var serr *SyntaxError
	ast.Inspect(f, func(n ast.Node) bool {
		if serr != nil {
			return false
		}
		call, ok := n.(*ast.Call)
		if !ok {
			return true
		}
		id, ok := call.Fn.(*ast.Ident)
		if !ok {
			return true
		}
		fn := decls[id.Name]
		if fn == nil {
			return true
		}
		for i, prm := range fn.Params {
			if !prm.Destructured() || i >= len(call.Args) {
				continue
			}
			m, ok := call.Args[i].(*ast.MapLit)
			if !ok {
				continue
			}
			names := make([]string, len(prm.Fields))
			for j, fld := range prm.Fields {
				names[j] = fld.Name
			}
			for _, e := range m.Entries {
				key, ok := StaticKey(e.Key)
				if !ok || slices.Contains(names, key) {
					continue
				}
				serr = &SyntaxError{
					Code:     diag.SynUnknownNamedArg,
					Expected: names,
					Found:    token.Token{Kind: token.Ident, Span: e.Key.Span(), Text: key},
					Span:     e.Key.Span(),
					Msg:      fmt.Sprintf("unknown named argument %q in call to %s", key, fn.Name),
				}
				return false
			}
		}
		return true
	})
	return serr
}

// StaticKey returns the string key of a map entry written as a name or a
// string literal.
func StaticKey(k ast.Expr) (string, bool) {
	switch k := k.(type) {
	case *ast.Ident:
		return k.Name, true
	case *ast.Literal:
		if k.Kind == ast.LitString {
			return k.Str, true
		}
	}
	return "", false
}
