package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"gard/internal/driver"
	"gard/internal/format"
)

var fmtCmd = &cobra.Command{
	Use:   "fmt [flags] <path> [path...]",
	Short: "Format gard source files",
	Long: `Fmt rewrites .gard files in canonical layout. With --check nothing is
written and the command fails when a file would change.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFmt,
}

func init() {
	f := fmtCmd.Flags()
	f.Bool("check", false, "list files that need formatting and fail if any")
	f.String("format", "text", "report format (text|json)")
	f.Bool("stdout", false, "print formatted code instead of rewriting files")
	f.Int("indent", 4, "indent width in spaces")
	f.Bool("tabs", false, "indent with tabs")
	f.Int("jobs", 0, "max parallel workers (0=auto)")
}

type fmtFlags struct {
	check, stdout, tabs bool
	report              string
	indent, jobs        int
}

func readFmtFlags(cmd *cobra.Command) (fmtFlags, error) {
	var ff fmtFlags
	f := cmd.Flags()
	var errs [6]error
	ff.check, errs[0] = f.GetBool("check")
	ff.stdout, errs[1] = f.GetBool("stdout")
	ff.tabs, errs[2] = f.GetBool("tabs")
	ff.report, errs[3] = f.GetString("format")
	ff.indent, errs[4] = f.GetInt("indent")
	ff.jobs, errs[5] = f.GetInt("jobs")
	if err := errors.Join(errs[:]...); err != nil {
		return ff, err
	}
	switch {
	case ff.report != "text" && ff.report != "json":
		return ff, fmt.Errorf("fmt: unsupported output format %q", ff.report)
	case ff.stdout && ff.check:
		return ff, errors.New("fmt: --stdout cannot be used with --check")
	case ff.stdout && ff.report != "text":
		return ff, errors.New("fmt: --stdout is only supported with text output")
	}
	return ff, nil
}

func runFmt(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	ff, err := readFmtFlags(cmd)
	if err != nil {
		return err
	}
	results, err := driver.FormatPaths(cmd.Context(), args, driver.FormatOptions{
		Options: format.Options{IndentWidth: ff.indent, UseTabs: ff.tabs},
		Check:   ff.check,
		Stdout:  ff.stdout,
		Jobs:    ff.jobs,
	})
	if err != nil {
		return err
	}

	if ff.report == "json" {
		err = writeFmtJSON(os.Stdout, results, ff.check)
	} else {
		writeFmtText(os.Stdout, os.Stderr, results, ff, quiet(cmd))
	}
	if err != nil {
		return err
	}
	return fmtOutcome(results, ff.check)
}

// fmtOutcome turns per-file results into the command's exit error.
func fmtOutcome(results []driver.FormatResult, check bool) error {
	var failed, changed int
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
		case r.Changed:
			changed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("fmt: %d of %d files failed", failed, len(results))
	}
	if check && changed > 0 {
		return fmt.Errorf("fmt: %d files need formatting", changed)
	}
	return nil
}

func writeFmtText(out, errOut io.Writer, results []driver.FormatResult, ff fmtFlags, quiet bool) {
	for _, r := range results {
		switch {
		case r.Err != nil:
			fmt.Fprintf(errOut, "fmt: %s: %v\n", r.Path, r.Err)
		case ff.stdout:
			_, _ = out.Write(r.Formatted)
		case !r.Changed || quiet:
		case ff.check:
			fmt.Fprintln(out, r.Path)
		default:
			fmt.Fprintf(out, "reformatted %s\n", r.Path)
		}
	}
}

type fmtReport struct {
	Path    string `json:"path"`
	Changed bool   `json:"changed"`
	Check   bool   `json:"check"`
	Error   string `json:"error,omitempty"`
}

func writeFmtJSON(out io.Writer, results []driver.FormatResult, check bool) error {
	rows := make([]fmtReport, len(results))
	for i, r := range results {
		rows[i] = fmtReport{Path: r.Path, Changed: r.Changed, Check: check}
		if r.Err != nil {
			rows[i].Error = r.Err.Error()
		}
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}
