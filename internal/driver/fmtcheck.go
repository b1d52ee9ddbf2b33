package driver

import (
	"fmt"

	"gard/internal/ast"
	"gard/internal/format"
	"gard/internal/parser"
	"gard/internal/source"
)

// RunFmtCheck prints f, re-parses the output and verifies coarse structural
// equality (the sequence of top-level item kinds) plus idempotence of the
// printer. 'ok' means both held.
func RunFmtCheck(sf *source.File, f *ast.File) (ok bool, msg string) {
	out := format.File(f, format.Options{})

	fs2 := source.NewFileSet()
	id := fs2.AddVirtual(sf.Path, []byte(out))
	second, err := parser.ParseFile(fs2, id)
	if err != nil {
		return false, fmt.Sprintf("fmt-check: reparse failed: %v", err)
	}

	if !sameTopItemKinds(f, second) {
		return false, "fmt-check: top-level item kinds differ after round-trip"
	}
	if again := format.File(second, format.Options{}); again != out {
		return false, "fmt-check: printer is not idempotent"
	}
	return true, "fmt-check: OK"
}

func sameTopItemKinds(a, b *ast.File) bool {
	if len(a.Items) != len(b.Items) {
		return false
	}
	for i := range a.Items {
		if fmt.Sprintf("%T", a.Items[i]) != fmt.Sprintf("%T", b.Items[i]) {
			return false
		}
	}
	return true
}
