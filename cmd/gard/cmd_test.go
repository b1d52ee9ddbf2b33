package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"gard/internal/config"
	"gard/internal/driver"
)

func TestProgressUI(t *testing.T) {
	cases := []struct {
		in   string
		tty  bool
		want bool
	}{
		{"", true, true},
		{"AUTO", false, false},
		{" on ", false, true},
		{"off", true, false},
	}
	for _, c := range cases {
		got, err := progressUI(c.in, c.tty)
		if err != nil || got != c.want {
			t.Fatalf("progressUI(%q, %v) = %v, %v", c.in, c.tty, got, err)
		}
	}
	if _, err := progressUI("sometimes", true); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func newRunTestCmd(t *testing.T, flags map[string]string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "run"}
	cmd.Flags().String("clock", "", "")
	cmd.Flags().String("deadline", "", "")
	cmd.Flags().String("store", "", "")
	for k, v := range flags {
		if err := cmd.Flags().Set(k, v); err != nil {
			t.Fatalf("set %s: %v", k, err)
		}
	}
	return cmd
}

func TestApplyRunOverrides(t *testing.T) {
	cfg := config.Default()
	cmd := newRunTestCmd(t, map[string]string{"clock": "real", "deadline": "250ms"})
	if err := applyRunOverrides(cmd, &cfg); err != nil {
		t.Fatalf("overrides: %v", err)
	}
	if cfg.Scheduler.Clock != "real" || cfg.Scheduler.DefaultDeadline != "250ms" || cfg.Ledger.Store != "memory" {
		t.Fatalf("cfg = %+v", cfg)
	}

	cfg = config.Default()
	if err := applyRunOverrides(newRunTestCmd(t, map[string]string{"store": "redis"}), &cfg); err == nil {
		t.Fatal("expected validation error for unknown store")
	}
}

func TestOpenCheckCacheInsideProject(t *testing.T) {
	root := t.TempDir()
	dc, err := openCheckCache(filepath.Join(root, config.FileName), root)
	if err != nil || dc == nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, ".gard", "cache")); err != nil {
		t.Fatalf("cache dir not created: %v", err)
	}
}

func TestFmtReporting(t *testing.T) {
	results := []driver.FormatResult{
		{Path: "a.gard"},
		{Path: "b.gard", Changed: true},
		{Path: "c.gard", Err: errors.New("boom")},
	}
	var out, errOut bytes.Buffer
	writeFmtText(&out, &errOut, results, fmtFlags{check: true}, false)
	if out.String() != "b.gard\n" || errOut.String() != "fmt: c.gard: boom\n" {
		t.Fatalf("out = %q, err = %q", out.String(), errOut.String())
	}
	if err := fmtOutcome(results, true); err == nil || err.Error() != "fmt: 1 of 3 files failed" {
		t.Fatalf("outcome = %v", err)
	}
	if err := fmtOutcome(results[:2], true); err == nil {
		t.Fatal("check mode must fail on changed files")
	}
	if err := fmtOutcome(results[:2], false); err != nil {
		t.Fatalf("rewrite mode: %v", err)
	}
}
