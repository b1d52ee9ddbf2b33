package interp

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru"

	"gard/internal/ast"
	"gard/internal/ledger"
	"gard/internal/parser"
	"gard/internal/value"
)

// Loader resolves an import path to source text.
type Loader interface {
	Load(path string) (string, error)
}

// MapLoader serves modules from memory.
type MapLoader map[string]string

func (m MapLoader) Load(path string) (string, error) {
	src, ok := m[path]
	if !ok {
		return "", fmt.Errorf("module %q not found", path)
	}
	return src, nil
}

// DirLoader reads modules relative to a root directory; the ".gard"
// extension is optional in import paths.
type DirLoader struct {
	Root string
}

func (d DirLoader) Load(path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(path))
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("module %q escapes %s", path, d.Root)
	}
	full := filepath.Join(d.Root, clean)
	if filepath.Ext(full) == "" {
		full += ".gard"
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("load module %q: %w", path, err)
	}
	return string(data), nil
}

const parseCacheSize = 64

type module struct {
	exports *value.Map
	loading bool
}

// moduleCache runs every imported module once per runtime; parsed files are
// kept in an ARC cache keyed by source hash.
type moduleCache struct {
	rt     *Runtime
	done   map[string]*module
	parsed *lru.ARCCache
}

func newModuleCache(rt *Runtime) *moduleCache {
	parsed, _ := lru.NewARC(parseCacheSize)
	return &moduleCache{rt: rt, done: make(map[string]*module), parsed: parsed}
}

func (mc *moduleCache) load(path string) (*value.Map, error) {
	if m, ok := mc.done[path]; ok {
		if m.loading {
			return nil, fmt.Errorf("import cycle through %q", path)
		}
		return m.exports, nil
	}
	src, err := mc.rt.loader.Load(path)
	if err != nil {
		return nil, err
	}
	file, err := mc.parse(path, src)
	if err != nil {
		return nil, err
	}
	m := &module{exports: value.NewMap(), loading: true}
	mc.done[path] = m
	scope := mc.rt.env.Push(mc.rt.global, true)
	if _, err := mc.rt.execModule(file, scope, m.exports); err != nil {
		delete(mc.done, path)
		mc.rt.env.Release(scope)
		return nil, err
	}
	m.loading = false
	return m.exports, nil
}

func (mc *moduleCache) parse(path, src string) (*ast.File, error) {
	key := ledger.Keccak256([]byte(path), []byte{0}, []byte(src))
	if f, ok := mc.parsed.Get(key); ok {
		return f.(*ast.File), nil
	}
	id := mc.rt.files.AddVirtual(path, []byte(src))
	f, err := parser.ParseFile(mc.rt.files, id)
	if err != nil {
		return nil, err
	}
	f.Path = path
	mc.parsed.Add(key, f)
	return f, nil
}

// importModule implements `import {a, b as c} from "path"`: only exported
// names of the module's top scope can be bound.
func (rt *Runtime) importModule(d *ast.ImportDecl, f FrameID) error {
	exports, err := rt.modules.load(d.Path)
	if err != nil {
		return rt.throwable(err, d.Span())
	}
	for _, spec := range d.Names {
		v, ok := exports.Get(value.Str(spec.Name))
		if !ok {
			return rt.throwf(spec.Span(), "UndefinedVariableError", "module %q does not export %s", d.Path, spec.Name)
		}
		if !rt.env.Declare(f, spec.Binding(), ast.DeclConst, v, true) {
			return rt.throwf(spec.Span(), "SyntaxError", "%s is already declared in this scope", spec.Binding())
		}
	}
	return nil
}
