package diagfmt

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/term"
)

// PathMode selects how file paths appear in output.
type PathMode uint8

const (
	PathAsGiven PathMode = iota
	PathAbsolute
	PathRelative
	PathBase
)

var pathModeNames = [...]string{
	PathAsGiven:  "auto",
	PathAbsolute: "absolute",
	PathRelative: "relative",
	PathBase:     "basename",
}

func (m PathMode) String() string {
	if int(m) < len(pathModeNames) {
		return pathModeNames[m]
	}
	return fmt.Sprintf("PathMode(%d)", m)
}

// ParsePathMode accepts the names printed by String.
func ParsePathMode(s string) (PathMode, error) {
	for m, name := range pathModeNames {
		if s == name {
			return PathMode(m), nil
		}
	}
	return PathAsGiven, fmt.Errorf("unknown path mode %q (expected auto|absolute|relative|basename)", s)
}

// Render rewrites path for display; base anchors PathRelative and defaults to
// the working directory. Failures fall back to the path as given.
func (m PathMode) Render(path, base string) string {
	switch m {
	case PathAbsolute:
		if abs, err := filepath.Abs(path); err == nil {
			return filepath.ToSlash(abs)
		}
	case PathRelative:
		if base == "" {
			base, _ = os.Getwd()
		}
		if rel, err := filepath.Rel(base, path); err == nil {
			return filepath.ToSlash(rel)
		}
	case PathBase:
		return filepath.Base(path)
	}
	return path
}

// PrettyOpts configures Pretty.
type PrettyOpts struct {
	Color bool
	// Context is the number of source lines shown around the primary line.
	Context   int
	PathMode  PathMode
	BaseDir   string
	ShowNotes bool
}

// JSONOpts configures JSON.
type JSONOpts struct {
	PathMode PathMode
	BaseDir  string
	// Positions adds line:col to every range; offsets are always present.
	Positions bool
	Notes     bool
	// Max trims the output, the bag stays intact.
	Max int
}

// ColorEnabled: терминал и NO_COLOR не задан.
func ColorEnabled(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return f != nil && term.IsTerminal(int(f.Fd()))
}
