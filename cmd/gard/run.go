package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"gard/internal/config"
	"gard/internal/diagfmt"
	"gard/internal/driver"
	"gard/internal/trace"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] [file.gard]",
	Short: "Execute a gard program",
	Long: `Run parses a gard file and executes it as the main task. Without an
argument the [run] main entry of gard.toml is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExecution,
}

func init() {
	f := runCmd.Flags()
	f.String("timings", "", "print phase timings to stderr (text|json)")
	f.String("sender", "", "sender for transaction blocks (default: ledger.default_sender)")
	f.String("clock", "", "scheduler clock (virtual|real), overrides gard.toml")
	f.String("deadline", "", "default deadline for awaits, e.g. 500ms")
	f.String("store", "", "ledger store (memory|leveldb), overrides gard.toml")
	f.Bool("receipts", false, "print a table of transaction receipts after the run")
}

func runExecution(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	var path string
	if len(args) == 1 {
		path = args[0]
	}
	cfg, err := loadConfig(cmd, path)
	if err != nil {
		return err
	}
	if path == "" {
		if cfg.Run.Main == "" {
			return fmt.Errorf("run: no file given and gard.toml has no [run] main")
		}
		path = cfg.Run.Main
		if !filepath.IsAbs(path) {
			path = filepath.Join(cfg.Root(), path)
		}
	}
	if err := applyRunOverrides(cmd, &cfg); err != nil {
		return err
	}

	timings, err := cmd.Flags().GetString("timings")
	if err != nil {
		return err
	}
	switch timings {
	case "", "text", "json":
	default:
		return fmt.Errorf("run: unsupported --timings value %q (expected text|json)", timings)
	}
	sender, err := cmd.Flags().GetString("sender")
	if err != nil {
		return err
	}
	showReceipts, err := cmd.Flags().GetBool("receipts")
	if err != nil {
		return err
	}

	tracer, cleanup, err := setupTracing(cmd, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := driver.RunFile(cmd.Context(), path, driver.RunOptions{
		Config:         &cfg,
		Out:            os.Stdout,
		Sender:         sender,
		MaxDiagnostics: maxDiagnostics(cmd),
	})
	if err != nil {
		return err
	}

	switch timings {
	case "text":
		fmt.Fprint(os.Stderr, res.Timing.Summary())
	case "json":
		enc := json.NewEncoder(os.Stderr)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res.Timing); err != nil {
			return err
		}
	}
	if showReceipts && len(res.Receipts) > 0 {
		renderReceipts(os.Stdout, res.Receipts)
	}

	if len(res.Errors) == 0 {
		return nil
	}
	res.Bag.Sort()
	diagfmt.Pretty(os.Stderr, res.Bag, res.FileSet, prettyOpts(cmd))
	// на уровне error события копятся в кольце и показываются только здесь
	if ring := trace.RingOf(tracer); ring != nil {
		fmt.Fprintln(os.Stderr, "\n--- trace ---")
		_ = ring.Dump(os.Stderr, trace.FormatText)
	}
	return errReported
}

func applyRunOverrides(cmd *cobra.Command, cfg *config.Config) error {
	overrides := []struct {
		flag string
		dst  *string
	}{
		{"clock", &cfg.Scheduler.Clock},
		{"deadline", &cfg.Scheduler.DefaultDeadline},
		{"store", &cfg.Ledger.Store},
	}
	for _, o := range overrides {
		v, err := cmd.Flags().GetString(o.flag)
		if err != nil {
			return err
		}
		if v != "" {
			*o.dst = v
		}
	}
	return cfg.Validate()
}
