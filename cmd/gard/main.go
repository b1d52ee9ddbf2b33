package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"gard/internal/diagfmt"
	"gard/internal/prof"
	"gard/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "gard",
	Short: "Gard language runner and toolchain",
	Long:  `Gard runs scripts with cooperative tasks and a transactional ledger`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		pf := cmd.Root().PersistentFlags()
		paths, err := pf.GetString("paths")
		if err != nil {
			return err
		}
		if _, err := diagfmt.ParsePathMode(paths); err != nil {
			return err
		}
		var opts prof.Options
		for name, dst := range map[string]*string{
			"cpu-profile":   &opts.CPU,
			"mem-profile":   &opts.Mem,
			"runtime-trace": &opts.RuntimeTrace,
		} {
			v, err := pf.GetString(name)
			if err != nil {
				return err
			}
			*dst = v
		}
		profiling, err = prof.Start(opts)
		return err
	},
}

// profiling останавливается в main после Execute.
var profiling *prof.Session

// errReported означает, что диагностика уже напечатана и cobra не должна
// дублировать сообщение.
var errReported = errors.New("errors reported")

// main registers subcommands and persistent flags, then executes the root
// command. Any error exits with status 1.
func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(tokenizeCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(fmtCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(ledgerCmd)
	rootCmd.AddCommand(versionCmd)

	// Глобальные флаги
	pf := rootCmd.PersistentFlags()
	pf.String("color", "auto", "colorize output (auto|on|off)")
	pf.Bool("quiet", false, "suppress non-essential output")
	pf.Int("max-diagnostics", 100, "maximum number of diagnostics to show")
	pf.String("paths", "auto", "how diagnostics show file paths (auto|absolute|relative|basename)")
	pf.String("config", "", "path to gard.toml (default: search upwards from the input)")
	pf.String("trace", "", "trace output file (- for stderr)")
	pf.String("trace-level", "", "trace level (off|error|phase|detail|debug), overrides [trace] level")
	pf.String("trace-mode", "stream", "trace storage (stream|ring|both)")
	pf.Int("trace-ring-size", 4096, "events kept by the ring tracer")
	pf.Duration("trace-heartbeat", 0, "emit heartbeat events at this interval (0 disables)")
	pf.String("cpu-profile", "", "write a CPU profile to file")
	pf.String("mem-profile", "", "write a heap profile to file on exit")
	pf.String("runtime-trace", "", "write a Go runtime trace to file")

	rootCmd.SilenceErrors = true
	err := rootCmd.Execute()
	if stopErr := profiling.Stop(); stopErr != nil {
		fmt.Fprintln(os.Stderr, "profile:", stopErr)
	}
	if err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
