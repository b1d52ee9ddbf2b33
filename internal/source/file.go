package source

import (
	"bytes"
	"slices"
)

type (
	// FileID indexes a file inside its FileSet.
	FileID uint32
	// FileFlags records how the content was normalized.
	FileFlags uint8
)

const (
	// FileVirtual marks files added from memory (tests, stdin, module loader).
	FileVirtual FileFlags = 1 << iota
	FileHadBOM
	FileNormalizedCRLF
)

// File captures content and line index for a single source file.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	// LineIdx holds the offset of every '\n'.
	LineIdx []uint32
	// Hash is sha256 of Content; the check caches key on it.
	Hash  [32]byte
	Flags FileFlags
}

// LineCol is a human-readable position, both 1-based.
type LineCol struct {
	Line uint32
	Col  uint32
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// normalize drops a leading BOM and turns \r\n into \n (a lone \r stays).
func normalize(content []byte) ([]byte, FileFlags) {
	var flags FileFlags
	if rest, ok := bytes.CutPrefix(content, utf8BOM); ok {
		content, flags = rest, flags|FileHadBOM
	}
	if bytes.Contains(content, []byte("\r\n")) {
		content, flags = bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n")), flags|FileNormalizedCRLF
	}
	return content, flags
}

// indexLines assumes len(content) fits in uint32; FileSet.Add checks it.
func indexLines(content []byte) []uint32 {
	idx := make([]uint32, 0, bytes.Count(content, []byte{'\n'}))
	for off := 0; ; {
		i := bytes.IndexByte(content[off:], '\n')
		if i < 0 {
			return idx
		}
		off += i
		idx = append(idx, uint32(off))
		off++
	}
}

// lineCol resolves a byte offset. A '\n' belongs to the line it ends.
func (f *File) lineCol(off uint32) LineCol {
	// число '\n' строго до off
	before, _ := slices.BinarySearch(f.LineIdx, off)
	var lineStart uint32
	if before > 0 {
		lineStart = f.LineIdx[before-1] + 1
	}
	return LineCol{Line: uint32(before) + 1, Col: off - lineStart + 1}
}

// GetLine returns line lineNum (1-based) without the trailing newline; ""
// when out of range.
func (f *File) GetLine(lineNum uint32) string {
	if lineNum == 0 || int(lineNum) > len(f.LineIdx)+1 {
		return ""
	}
	start := 0
	if lineNum > 1 {
		start = int(f.LineIdx[lineNum-2]) + 1
	}
	end := len(f.Content)
	if int(lineNum) <= len(f.LineIdx) {
		end = int(f.LineIdx[lineNum-1])
	}
	return string(f.Content[start:end])
}
