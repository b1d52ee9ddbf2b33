package driver

import (
	"bytes"
	"context"
	"errors"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"gard/internal/format"
)

// FormatOptions configures FormatPaths.
type FormatOptions struct {
	Options format.Options
	// Check reports what would change and writes nothing.
	Check bool
	// Stdout returns the printed text in FormatResult.Formatted instead of
	// rewriting files.
	Stdout bool
	// Jobs bounds parallelism; <= 0 means GOMAXPROCS.
	Jobs int
}

// FormatResult is the outcome for one file. Err is per file and never stops
// the others.
type FormatResult struct {
	Path      string
	Changed   bool
	Err       error
	Formatted []byte
}

// FormatPaths pretty-prints every .gard file under paths. Results keep the
// order of ListSourceFiles.
func FormatPaths(ctx context.Context, paths []string, opts FormatOptions) ([]FormatResult, error) {
	files, err := ListSourceFiles(ctx, paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.New("format: no source files found")
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	results := make([]FormatResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = formatOne(path, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func formatOne(path string, opts FormatOptions) FormatResult {
	res := FormatResult{Path: path}
	u, err := loadUnit(path)
	if err != nil {
		res.Err = err
		return res
	}
	before := u.fs.Get(u.id).Content
	after, err := u.print(opts.Options)
	if err != nil {
		res.Err = err
		return res
	}
	res.Changed = !bytes.Equal(before, after)
	switch {
	case opts.Stdout:
		res.Formatted = after
	case opts.Check || !res.Changed:
	default:
		perm := os.FileMode(0o644)
		if info, err := os.Stat(path); err == nil {
			perm = info.Mode().Perm()
		}
		res.Err = os.WriteFile(path, after, perm)
	}
	return res
}

// FormatSource pretty-prints in-memory text.
func FormatSource(name, src string, opts format.Options) (string, error) {
	out, err := textUnit(name, src).print(opts)
	return string(out), err
}
