package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"gard/internal/diagfmt"
	"gard/internal/driver"
	"gard/internal/ui"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] [path...]",
	Short: "Parse gard sources and report diagnostics without running them",
	Long: `Check lexes and parses every .gard file below the given paths in
parallel, reports unresolved imports and, with --fmt, verifies that the
formatter round-trips each file.`,
	RunE: runCheck,
}

func init() {
	f := checkCmd.Flags()
	f.Int("jobs", 0, "max parallel workers (0=auto)")
	f.Bool("fmt", false, "also verify the formatter round trip")
	f.String("ui", "auto", "progress UI (auto|on|off)")
	f.String("format", "pretty", "diagnostics format (pretty|json)")
	f.Bool("no-cache", false, "ignore and do not update the on-disk cache")
	f.Bool("clear-cache", false, "drop the on-disk cache before checking")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	if len(args) == 0 {
		args = []string{"."}
	}

	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return err
	}
	fmtCheck, err := cmd.Flags().GetBool("fmt")
	if err != nil {
		return err
	}
	uiFlag, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	useTUI, err := progressUI(uiFlag, isTerminal(os.Stdout))
	if err != nil {
		return err
	}
	outFormat, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	if outFormat != "pretty" && outFormat != "json" {
		return fmt.Errorf("check: unsupported format %q", outFormat)
	}
	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return err
	}
	clearCache, err := cmd.Flags().GetBool("clear-cache")
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd, args[0])
	if err != nil {
		return err
	}
	_, cleanup, err := setupTracing(cmd, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	files, err := driver.ListSourceFiles(cmd.Context(), args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("check: no %s files found", driver.SourceExt)
	}

	opts := driver.CheckOptions{
		Jobs:           jobs,
		MaxDiagnostics: maxDiagnostics(cmd),
		FmtCheck:       fmtCheck,
		Cache:          driver.NewModuleCache(len(files)),
	}
	if !noCache {
		opts.DiskCache, err = openCheckCache(cfg.Path, cfg.Root())
		if err != nil && !quiet(cmd) {
			fmt.Fprintf(os.Stderr, "check: cache disabled: %v\n", err)
		}
		if clearCache {
			if err := opts.DiskCache.Clear(); err != nil {
				return err
			}
		}
	}

	var results []*driver.CheckResult
	if outFormat == "pretty" && useTUI {
		results, err = runCheckWithUI(cmd, files, opts)
	} else {
		results, err = driver.Check(cmd.Context(), files, opts)
	}
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.Bag.HasErrors() {
			failed++
		}
	}

	if outFormat == "json" {
		payload := make(map[string]diagfmt.DiagnosticsOutput, len(results))
		for _, r := range results {
			r.Bag.Sort()
			payload[r.Path] = diagfmt.BuildDiagnosticsOutput(r.Bag, r.FileSet, diagfmt.JSONOpts{
				PathMode:  pathMode(cmd),
				Positions: true,
				Notes:     true,
			})
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(payload); err != nil {
			return err
		}
	} else {
		popts := prettyOpts(cmd)
		for _, r := range results {
			if r.Bag.Len() == 0 {
				continue
			}
			r.Bag.Sort()
			diagfmt.Pretty(os.Stderr, r.Bag, r.FileSet, popts)
			fmt.Fprintln(os.Stderr)
		}
		if !quiet(cmd) {
			fmt.Fprintf(os.Stdout, "checked %d files, %d with errors\n", len(results), failed)
		}
	}

	if failed > 0 {
		return errReported
	}
	return nil
}

// openCheckCache keeps the cache inside the project when there is a
// gard.toml and falls back to the user cache directory otherwise.
func openCheckCache(cfgPath, root string) (*driver.DiskCache, error) {
	if cfgPath != "" {
		return driver.OpenDiskCacheAt(filepath.Join(root, ".gard", "cache"))
	}
	return driver.OpenDiskCache("gard")
}

// progressUI decides whether the Bubble Tea view is shown; auto follows tty.
func progressUI(value string, tty bool) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "auto":
		return tty, nil
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
}

// runCheckWithUI feeds driver.Check events into the progress view. Check
// runs in the background; the view quits when the event channel closes.
func runCheckWithUI(cmd *cobra.Command, files []string, opts driver.CheckOptions) ([]*driver.CheckResult, error) {
	events := make(chan driver.Event, 256)
	opts.Events = events
	var (
		results  []*driver.CheckResult
		checkErr error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer close(events)
		results, checkErr = driver.Check(cmd.Context(), files, opts)
	}()

	_, uiErr := tea.NewProgram(ui.NewProgressModel(cmd.CommandPath(), files, events), tea.WithOutput(os.Stdout)).Run()
	<-done
	if uiErr != nil {
		return results, uiErr
	}
	return results, checkErr
}
