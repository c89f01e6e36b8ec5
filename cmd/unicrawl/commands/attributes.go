package commands

import (
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/IvanKyuu/university-crawl/internal/profile"
	"github.com/IvanKyuu/university-crawl/internal/telemetry"
	"github.com/IvanKyuu/university-crawl/lib/util/serviceutil"
)

var attributesKind string

func init() {
	attributesCmd.PersistentFlags().StringVar(&attributesKind, "kind", "university", "university or program.")
	attributesCmd.AddCommand(attributesListCmd)
	rootCmd.AddCommand(attributesCmd)
}

var attributesCmd = &cobra.Command{
	Use:   "attributes",
	Short: "Shows attribute metadata.",
}

var attributesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists the attributes of a kind with their handler and breadth.",
	Run: func(cmd *cobra.Command, args []string) {
		kind, err := profile.ParseKind(attributesKind)
		if err != nil {
			serviceutil.Fatal("invalid --kind", err)
		}
		cfg, err := readConfig(configPath)
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		a := &app{cfg: cfg, tel: telemetry.SlogAPI{}}
		store, err := a.attributes(kind)
		if err != nil {
			serviceutil.Fatal("failed to load attributes", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Name", "Handler", "K", "Format", "Mapping", "References"})
		for _, name := range store.Names() {
			desc, err := store.Get(name)
			if err != nil {
				continue
			}
			t.AppendRow(table.Row{
				desc.Name,
				desc.Handler,
				desc.Breadth,
				desc.Format,
				desc.Mapping,
				strings.Join(desc.References, "\n"),
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
