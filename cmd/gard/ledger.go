package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"gard/internal/ledger"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect the persisted block chain",
	Long: `Ledger reads the leveldb store configured in gard.toml ([ledger] store
and path) and prints blocks or balances, or verifies the hash chain.`,
}

var ledgerBlocksCmd = &cobra.Command{
	Use:   "blocks [dir]",
	Short: "List blocks and their transactions",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLedgerBlocks,
}

var ledgerBalancesCmd = &cobra.Command{
	Use:   "balances [dir]",
	Short: "List account balances",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLedgerBalances,
}

var ledgerVerifyCmd = &cobra.Command{
	Use:   "verify [dir]",
	Short: "Recompute block hashes and check the prevHash links",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLedgerVerify,
}

func init() {
	ledgerCmd.AddCommand(ledgerBlocksCmd, ledgerBalancesCmd, ledgerVerifyCmd)
	ledgerBlocksCmd.Flags().Bool("txs", false, "list transactions of every block")
}

// openLedgerStore opens the persistent store of the project around dir.
func openLedgerStore(cmd *cobra.Command, args []string) (ledger.Store, error) {
	cmd.SilenceUsage = true
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}
	cfg, err := loadConfig(cmd, dir)
	if err != nil {
		return nil, err
	}
	if cfg.Ledger.Store != "leveldb" {
		return nil, fmt.Errorf("ledger: store is %q, nothing is persisted (set [ledger] store = \"leveldb\")", cfg.Ledger.Store)
	}
	if _, err := os.Stat(cfg.StorePath()); err != nil {
		return nil, fmt.Errorf("ledger: no chain at %s: %w", cfg.StorePath(), err)
	}
	return cfg.OpenStore()
}

func runLedgerBlocks(cmd *cobra.Command, args []string) error {
	showTxs, err := cmd.Flags().GetBool("txs")
	if err != nil {
		return err
	}
	store, err := openLedgerStore(cmd, args)
	if err != nil {
		return err
	}
	defer store.Close()
	blocks, err := store.Blocks()
	if err != nil {
		return err
	}

	table := newTable(os.Stdout, "block", "txs", "sealed", "prev", "hash")
	for _, b := range blocks {
		table.Append([]string{
			fmt.Sprint(b.Number),
			fmt.Sprint(len(b.Txs)),
			fmt.Sprint(b.Sealed),
			b.PrevHash.Short(),
			b.Hash.Short(),
		})
	}
	table.Render()

	if !showTxs {
		return nil
	}
	txs := newTable(os.Stdout, "block", "id", "from", "to", "amount", "call")
	for _, b := range blocks {
		for _, tx := range b.Txs {
			call := tx.Payload.Method
			if call == "" {
				call = "transfer"
			}
			if tx.Code != "" {
				call = "deploy " + tx.Code
			}
			txs.Append([]string{fmt.Sprint(b.Number), tx.ID.String()[:8], tx.From, tx.To, tx.Amount.String(), call})
		}
	}
	fmt.Fprintln(os.Stdout)
	txs.Render()
	return nil
}

func runLedgerBalances(cmd *cobra.Command, args []string) error {
	store, err := openLedgerStore(cmd, args)
	if err != nil {
		return err
	}
	defer store.Close()
	accounts, err := store.Accounts()
	if err != nil {
		return err
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Address < accounts[j].Address })

	table := newTable(os.Stdout, "address", "balance", "nonce", "contract", "storage")
	for _, a := range accounts {
		table.Append([]string{a.Address, a.Balance.String(), fmt.Sprint(a.Nonce), a.Code, fmt.Sprint(len(a.Storage))})
	}
	table.Render()
	return nil
}

func runLedgerVerify(cmd *cobra.Command, args []string) error {
	store, err := openLedgerStore(cmd, args)
	if err != nil {
		return err
	}
	defer store.Close()
	blocks, err := store.Blocks()
	if err != nil {
		return err
	}
	if err := ledger.VerifyBlocks(blocks); err != nil {
		return fmt.Errorf("ledger: chain is broken: %w", err)
	}
	if !quiet(cmd) {
		fmt.Fprintf(os.Stdout, "ok: %d blocks verified\n", len(blocks))
	}
	return nil
}

func renderReceipts(w io.Writer, receipts []*ledger.Receipt) {
	table := newTable(w, "tx", "status", "block", "events", "reason")
	for _, r := range receipts {
		table.Append([]string{r.TxID.String()[:8], r.Status.String(), fmt.Sprint(r.Block), fmt.Sprint(len(r.Events)), r.Reason})
	}
	table.Render()
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}
