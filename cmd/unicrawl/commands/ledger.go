package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/IvanKyuu/university-crawl/internal/ledger"
	"github.com/IvanKyuu/university-crawl/lib/util/serviceutil"
)

var ledgerFilter ledger.Filter

func init() {
	flags := ledgerListCmd.Flags()
	flags.StringVar(&ledgerFilter.Entity, "entity", "", "Only entries of this entity.")
	flags.StringVar(&ledgerFilter.Attribute, "attribute", "", "Only entries of this attribute.")
	flags.StringVar(&ledgerFilter.RunID, "run", "", "Only entries of this run.")
	flags.IntVar(&ledgerFilter.Limit, "limit", 0, "At most this many entries.")
	ledgerCmd.AddCommand(ledgerListCmd, ledgerClearCmd)
	rootCmd.AddCommand(ledgerCmd)
}

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Shows sources that failed in a way that needs attention, such as a changed page layout.",
}

var ledgerListCmd = &cobra.Command{
	Use:   "list [--entity <name>] [--attribute <name>] [--run <id>] [--limit <n>]",
	Short: "Lists trouble ledger entries, oldest first.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		a := openApp(ctx)
		defer a.Close()

		entries, err := a.ledger().List(ctx, ledgerFilter)
		if err != nil {
			serviceutil.Fatal("failed to list ledger", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Time", "Run", "Entity", "Attribute", "Handler", "Message"})
		for _, entry := range entries {
			t.AppendRow(table.Row{
				entry.CreatedAt.Format(time.DateTime),
				entry.RunID,
				entry.Entity,
				entry.Attribute,
				entry.Handler,
				entry.Message,
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}

var ledgerClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Removes every ledger entry.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		a := openApp(ctx)
		defer a.Close()

		if err := a.ledger().Clear(context.WithoutCancel(ctx)); err != nil {
			serviceutil.Fatal("failed to clear ledger", err)
		}
		fmt.Println("ledger cleared")
	},
}
