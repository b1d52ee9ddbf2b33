package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gard/internal/diagfmt"
	"gard/internal/driver"
)

var tokenizeCmd = &cobra.Command{
	Use:   "tokenize [flags] file.gard",
	Short: "Print the token stream of a gard file",
	Args:  cobra.ExactArgs(1),
	RunE:  runTokenize,
}

func init() {
	tokenizeCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}

func runTokenize(cmd *cobra.Command, args []string) error {
	outFormat, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	emit := diagfmt.FormatTokensPretty
	switch outFormat {
	case "pretty":
	case "json":
		emit = diagfmt.FormatTokensJSON
	default:
		return fmt.Errorf("tokenize: unknown format %q", outFormat)
	}
	res, err := driver.Tokenize(args[0], maxDiagnostics(cmd))
	if err != nil {
		return err
	}

	// поток токенов обрывается на ошибке, но напечатать его всё равно полезно
	if res.Bag.Len() > 0 {
		diagfmt.Pretty(os.Stderr, res.Bag, res.FileSet, prettyOpts(cmd))
	}
	if err := emit(os.Stdout, res.Tokens, res.FileSet); err != nil {
		return err
	}
	if res.Bag.HasErrors() {
		return errReported
	}
	return nil
}
