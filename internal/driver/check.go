package driver

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"gard/internal/ast"
	"gard/internal/diag"
	"gard/internal/interp"
	"gard/internal/parser"
	"gard/internal/source"
)

// SourceExt is the extension of Gard source files.
const SourceExt = ".gard"

// Stage is the pipeline step a file is in.
type Stage uint8

const (
	StageQueued Stage = iota
	StageParse
	StageImports
	StageFormat
)

// Status of a file within its stage.
type Status uint8

const (
	StatusQueued Status = iota
	StatusWorking
	StatusDone
	StatusError
)

// Event reports progress of one file (File empty means the whole run).
type Event struct {
	File   string
	Stage  Stage
	Status Status
}

// CheckOptions configures Check.
type CheckOptions struct {
	// Jobs bounds parallelism; <= 0 means GOMAXPROCS.
	Jobs           int
	MaxDiagnostics int
	// FmtCheck also verifies that printing the AST and re-parsing it gives
	// the same structure.
	FmtCheck  bool
	Cache     *ModuleCache
	DiskCache *DiskCache
	// Events receives progress and must be drained; Check never closes it.
	Events chan<- Event
}

// CheckResult holds the outcome for one file.
type CheckResult struct {
	Path    string
	FileSet *source.FileSet
	FileID  source.FileID
	// AST is nil when parsing failed or the result came from the disk cache.
	AST        *ast.File
	Bag        *diag.Bag
	Imports    []string
	FmtChecked bool
	Cached     bool
}

// ListSourceFiles expands directories into the sorted list of .gard files
// below them; explicit file arguments are kept whatever their extension.
func ListSourceFiles(ctx context.Context, paths []string) ([]string, error) {
	var files []string
	seen := make(map[string]struct{})
	addFile := func(path string) {
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}

	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			addFile(p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if d.IsDir() {
				// служебный каталог с цепочкой и кешем
				if d.Name() == ".gard" {
					return filepath.SkipDir
				}
				return nil
			}
			if filepath.Ext(path) == SourceExt {
				addFile(path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Strings(files)
	return files, nil
}

// Check lexes and parses every file in parallel, verifies that relative
// imports resolve and optionally runs the format round trip. Results come
// back in input order.
func Check(ctx context.Context, files []string, opts CheckOptions) ([]*CheckResult, error) {
	if len(files) == 0 {
		return nil, nil
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	for _, f := range files {
		opts.emit(Event{File: f, Stage: StageQueued, Status: StatusQueued})
	}

	// индексы уникальны для каждой горутины, мьютекс не нужен
	results := make([]*CheckResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := checkFile(path, opts)
			status := StatusDone
			if res.Bag.HasErrors() {
				status = StatusError
			}
			opts.emit(Event{File: path, Status: status})
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (o CheckOptions) emit(ev Event) {
	if o.Events != nil {
		o.Events <- ev
	}
}

func checkFile(path string, opts CheckOptions) *CheckResult {
	fset := source.NewFileSet()
	res := &CheckResult{Path: path, FileSet: fset}
	id, err := fset.Load(path)
	if err != nil {
		res.Bag = diag.NewBag(opts.MaxDiagnostics)
		res.Bag.Add(diag.Diagnostic{
			Severity: diag.SevError,
			Code:     diag.RunImport,
			Message:  "failed to load file: " + err.Error(),
		})
		return res
	}
	res.FileID = id
	hash := fset.Get(id).Hash

	if hit, ok := opts.Cache.Get(path, hash); ok && (hit.FmtChecked || !opts.FmtCheck) {
		cached := *hit
		cached.Cached = true
		return &cached
	}
	var payload DiskPayload
	if ok, _ := opts.DiskCache.Get(hash, &payload); ok && payload.Path == path && (payload.FmtChecked || !opts.FmtCheck) {
		res.Bag = payloadDiagnostics(&payload, id, opts.MaxDiagnostics)
		res.Imports = payload.Imports
		res.FmtChecked = payload.FmtChecked
		res.Cached = true
		return res
	}

	res.Bag = diag.NewBag(opts.MaxDiagnostics)
	opts.emit(Event{File: path, Stage: StageParse, Status: StatusWorking})
	f, err := parser.ParseFile(fset, id)
	if err != nil {
		res.Bag.Add(diag.FromError(err))
	} else {
		res.AST = f
		opts.emit(Event{File: path, Stage: StageImports, Status: StatusWorking})
		res.Imports = checkImports(f, filepath.Dir(path), res.Bag)
		if opts.FmtCheck {
			opts.emit(Event{File: path, Stage: StageFormat, Status: StatusWorking})
			if ok, msg := RunFmtCheck(fset.Get(id), f); !ok {
				res.Bag.Add(diag.Diagnostic{Severity: diag.SevError, Code: diag.SynInfo, Message: msg})
			}
			res.FmtChecked = true
		}
	}

	opts.Cache.Put(path, hash, res)
	// битый кеш не должен ломать проверку
	_ = opts.DiskCache.Put(hash, resultToPayload(res))
	return res
}

// checkImports reports imports that the directory loader cannot resolve.
func checkImports(f *ast.File, dir string, bag *diag.Bag) []string {
	var paths []string
	loader := interp.DirLoader{Root: dir}
	for _, item := range f.Items {
		imp, ok := item.(*ast.ImportDecl)
		if !ok {
			continue
		}
		paths = append(paths, imp.Path)
		if _, err := loader.Load(imp.Path); err != nil {
			bag.Add(diag.Diagnostic{
				Severity: diag.SevWarning,
				Code:     diag.RunImport,
				Message:  fmt.Sprintf("import %q does not resolve: %v", imp.Path, err),
				Primary:  imp.Span(),
			})
		}
	}
	return paths
}
