package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"gard/internal/config"
	"gard/internal/diagfmt"
)

// useColor resolves --color for the given stream.
func useColor(cmd *cobra.Command, f *os.File) bool {
	colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return false
	}
	switch colorFlag {
	case "on":
		return true
	case "off":
		return false
	}
	return diagfmt.ColorEnabled(f)
}

func prettyOpts(cmd *cobra.Command) diagfmt.PrettyOpts {
	return diagfmt.PrettyOpts{
		Color:     useColor(cmd, os.Stderr),
		Context:   2,
		PathMode:  pathMode(cmd),
		ShowNotes: true,
	}
}

// pathMode reads --paths; PersistentPreRunE has already validated it.
func pathMode(cmd *cobra.Command) diagfmt.PathMode {
	v, _ := cmd.Root().PersistentFlags().GetString("paths")
	m, _ := diagfmt.ParsePathMode(v)
	return m
}

func maxDiagnostics(cmd *cobra.Command) int {
	n, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return 100
	}
	return n
}

func quiet(cmd *cobra.Command) bool {
	q, _ := cmd.Root().PersistentFlags().GetBool("quiet")
	return q
}

// loadConfig reads --config, or searches gard.toml upwards from near (a file
// or directory).
func loadConfig(cmd *cobra.Command, near string) (config.Config, error) {
	explicit, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to get config flag: %w", err)
	}
	if explicit != "" {
		return config.Load(explicit)
	}
	dir := near
	if dir == "" {
		dir = "."
	}
	if st, err := os.Stat(dir); err == nil && !st.IsDir() {
		dir = filepath.Dir(dir)
	}
	return config.Discover(dir)
}
