package driver

import (
	"gard/internal/ast"
	"gard/internal/diag"
	"gard/internal/format"
	"gard/internal/lexer"
	"gard/internal/parser"
	"gard/internal/source"
	"gard/internal/token"
)

// TokenizeResult is the token stream of one file. Lexical errors land in
// Bag and the stream stops at the failing position.
type TokenizeResult struct {
	FileSet *source.FileSet
	File    *source.File
	Tokens  []token.Token
	Bag     *diag.Bag
}

// ParseResult holds one parsed file; AST is nil when Bag has an error.
type ParseResult struct {
	FileSet *source.FileSet
	File    *source.File
	AST     *ast.File
	Bag     *diag.Bag
}

// unit is a single file registered in its own FileSet.
type unit struct {
	fs *source.FileSet
	id source.FileID
}

func loadUnit(path string) (unit, error) {
	fs := source.NewFileSet()
	id, err := fs.Load(path)
	return unit{fs: fs, id: id}, err
}

func textUnit(name, src string) unit {
	fs := source.NewFileSet()
	return unit{fs: fs, id: fs.AddVirtual(name, []byte(src))}
}

func (u unit) tokenize(maxDiagnostics int) *TokenizeResult {
	res := &TokenizeResult{FileSet: u.fs, File: u.fs.Get(u.id), Bag: diag.NewBag(maxDiagnostics)}
	res.Tokens, _ = lexer.Tokenize(res.File, lexer.Options{Reporter: res.Bag})
	return res
}

func (u unit) parse(maxDiagnostics int) *ParseResult {
	res := &ParseResult{FileSet: u.fs, File: u.fs.Get(u.id), Bag: diag.NewBag(maxDiagnostics)}
	f, err := parser.ParseFile(u.fs, u.id)
	if err != nil {
		res.Bag.Add(diag.FromError(err))
		return res
	}
	res.AST = f
	return res
}

// Tokenize lexes a file from disk; the error covers I/O only.
func Tokenize(path string, maxDiagnostics int) (*TokenizeResult, error) {
	u, err := loadUnit(path)
	if err != nil {
		return nil, err
	}
	return u.tokenize(maxDiagnostics), nil
}

// TokenizeSource lexes in-memory text under a virtual name.
func TokenizeSource(name, src string, maxDiagnostics int) *TokenizeResult {
	return textUnit(name, src).tokenize(maxDiagnostics)
}

// Parse reads and parses a file from disk; the error covers I/O only.
func Parse(path string, maxDiagnostics int) (*ParseResult, error) {
	u, err := loadUnit(path)
	if err != nil {
		return nil, err
	}
	return u.parse(maxDiagnostics), nil
}

// ParseSource parses in-memory text under a virtual name.
func ParseSource(name, src string, maxDiagnostics int) *ParseResult {
	return textUnit(name, src).parse(maxDiagnostics)
}

func (u unit) print(opts format.Options) ([]byte, error) {
	f, err := parser.ParseFile(u.fs, u.id)
	if err != nil {
		return nil, err
	}
	return []byte(format.File(f, opts)), nil
}
