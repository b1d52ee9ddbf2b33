package version

import (
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestBanner_DefaultValues(t *testing.T) {
	if Version == "" {
		t.Error("Version should have a default value")
	}
	if got := Banner(false); got != "gard "+Version+"\n" && GitCommit == "" {
		t.Errorf("Banner = %q", got)
	}
}

func TestBanner_OptionalFields(t *testing.T) {
	origVersion, origCommit, origMessage, origDate := Version, GitCommit, GitMessage, BuildDate
	defer func() {
		Version, GitCommit, GitMessage, BuildDate = origVersion, origCommit, origMessage, origDate
	}()

	Version = "1.2.3"
	GitCommit = "abc123def456"
	GitMessage = ""
	BuildDate = "2024-01-15T10:30:00Z"

	want := "gard 1.2.3\ncommit: abc123def456\nbuilt: 2024-01-15T10:30:00Z\n"
	if got := Banner(false); got != want {
		t.Errorf("Banner = %q, want %q", got, want)
	}
}

func TestColored(t *testing.T) {
	origVersion, origNoColor := Version, color.NoColor
	defer func() { Version, color.NoColor = origVersion, origNoColor }()
	color.NoColor = false

	Version = "1.2.3-rc.1"
	got := Colored()
	if !strings.Contains(got, "\x1b[") || !strings.HasSuffix(got, "-rc.1") {
		t.Errorf("Colored = %q", got)
	}

	Version = "nightly"
	if got := Colored(); got != "nightly" {
		t.Errorf("non-semver versions stay plain, got %q", got)
	}
}
