package main

import (
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"gard/internal/ast"
	"gard/internal/diagfmt"
	"gard/internal/driver"
	"gard/internal/format"
)

var parseCmd = &cobra.Command{
	Use:   "parse [flags] file.gard",
	Short: "Parse a gard source file and print its syntax tree",
	Long: `Parse analyzes a gard source file. The default output re-prints the
tree as formatted source; --format dump shows the raw AST structure.`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().String("format", "pretty", "output format (pretty|outline|dump)")
}

// dumpConfig печатает AST без адресов, чтобы вывод был стабильным.
var dumpConfig = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

func runParse(cmd *cobra.Command, args []string) error {
	outFormat, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}

	result, err := driver.Parse(args[0], maxDiagnostics(cmd))
	if err != nil {
		return fmt.Errorf("parsing failed: %w", err)
	}
	if result.Bag.Len() > 0 {
		diagfmt.Pretty(os.Stderr, result.Bag, result.FileSet, prettyOpts(cmd))
	}
	if result.AST == nil {
		return errReported
	}

	switch outFormat {
	case "pretty":
		_, err = fmt.Fprint(os.Stdout, format.File(result.AST, format.Options{}))
	case "outline":
		err = printOutline(result.AST)
	case "dump":
		dumpConfig.Fdump(os.Stdout, result.AST)
	default:
		return fmt.Errorf("unknown format: %s", outFormat)
	}
	return err
}

func printOutline(f *ast.File) error {
	for _, item := range f.Items {
		name := ast.DeclName(item)
		if name == "" {
			name = "-"
		}
		if _, err := fmt.Fprintf(os.Stdout, "%-16T %s\n", item, name); err != nil {
			return err
		}
	}
	return nil
}
