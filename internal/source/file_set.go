package source

import (
	"crypto/sha256"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"fortio.org/safecast"
)

// FileSet owns every source file of one run and resolves spans to positions.
type FileSet struct {
	files  []File
	latest map[string]FileID
}

func NewFileSet() *FileSet {
	return &FileSet{latest: make(map[string]FileID)}
}

func cleanPath(p string) string { return filepath.ToSlash(filepath.Clean(p)) }

// Add stores content under path and returns a fresh FileID. Adding the same
// path twice keeps both versions; lookups by path see the latest. Content
// must already be normalized and under 4GiB.
func (fs *FileSet) Add(path string, content []byte, flags FileFlags) FileID {
	n, err := safecast.Conv[uint32](len(fs.files))
	if err != nil {
		panic(fmt.Errorf("source: too many files: %w", err))
	}
	if uint64(len(content)) > math.MaxUint32 {
		panic(fmt.Errorf("source: %s exceeds 4GiB", path))
	}
	id := FileID(n)
	path = cleanPath(path)
	fs.files = append(fs.files, File{
		ID:      id,
		Path:    path,
		Content: content,
		LineIdx: indexLines(content),
		Hash:    sha256.Sum256(content),
		Flags:   flags,
	})
	fs.latest[path] = id
	return id
}

// Load reads path from disk, normalizes it and adds it.
func (fs *FileSet) Load(path string) (FileID, error) {
	// #nosec G304 -- path is provided by the caller
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	if uint64(len(content)) > math.MaxUint32 {
		return 0, fmt.Errorf("%s: file too large (%d bytes)", path, len(content))
	}
	content, flags := normalize(content)
	return fs.Add(path, content, flags), nil
}

// AddVirtual adds an in-memory file.
func (fs *FileSet) AddVirtual(name string, content []byte) FileID {
	content, flags := normalize(content)
	return fs.Add(name, content, flags|FileVirtual)
}

// Get returns the file for id. It panics on an unknown id.
func (fs *FileSet) Get(id FileID) *File { return &fs.files[id] }

// Lookup returns the latest file added under path.
func (fs *FileSet) Lookup(path string) (*File, bool) {
	id, ok := fs.latest[cleanPath(path)]
	if !ok {
		return nil, false
	}
	return &fs.files[id], true
}

func (fs *FileSet) Len() int { return len(fs.files) }

// Resolve converts a span into line and column positions.
func (fs *FileSet) Resolve(span Span) (start, end LineCol) {
	f := &fs.files[span.File]
	return f.lineCol(span.Start), f.lineCol(span.End)
}

// Position renders a span as path:line:col; spans of unknown files fall back
// to Span.String.
func (fs *FileSet) Position(span Span) string {
	if int(span.File) >= len(fs.files) {
		return span.String()
	}
	start, _ := fs.Resolve(span)
	return fmt.Sprintf("%s:%d:%d", fs.files[span.File].Path, start.Line, start.Col)
}
