package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/IvanKyuu/university-crawl/internal/profile"
	"github.com/IvanKyuu/university-crawl/internal/resolver"
	"github.com/IvanKyuu/university-crawl/lib/util/serviceutil"
)

var (
	resolveKind       string
	resolveReferences []string
)

func init() {
	resolveCmd.Flags().StringVar(&resolveKind, "kind", "university", "Which attribute set to use, university or program.")
	resolveCmd.Flags().StringSliceVar(&resolveReferences, "ref", nil, "Reference urls tried before the attribute's own.")
	rootCmd.AddCommand(resolveCmd)
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <entity> <attribute>",
	Short: "Resolves one attribute of one entity and prints every stage that was tried.",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		kind, err := profile.ParseKind(resolveKind)
		if err != nil {
			serviceutil.Fatal("invalid --kind", err)
		}

		a := openApp(ctx)
		defer a.Close()

		runID := profile.NewRunID()
		res, err := a.resolver(a.sources(ctx, runID), kind)
		if err != nil {
			serviceutil.Fatal("failed to create resolver", err)
		}

		result, err := res.Resolve(ctx, resolver.Request{
			Entity:     args[0],
			Attribute:  args[1],
			References: resolveReferences,
		})
		a.flush(context.WithoutCancel(ctx))

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Stage", "Source", "Empty", "Filtered", "Error"})
		for _, attempt := range result.Attempts {
			message := ""
			if attempt.Err != nil {
				message = attempt.Err.Error()
			}
			t.AppendRow(table.Row{attempt.Stage, attempt.Source, attempt.Empty, attempt.Filtered, message})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()

		if err != nil {
			serviceutil.Fatal("resolution failed", err)
		}

		value, err := json.MarshalIndent(result.Value, "", "  ")
		if err != nil {
			value = []byte(fmt.Sprint(result.Value))
		}
		fmt.Printf("stage: %s\noutcome: %s\nvalue: %s\n", result.Stage, result.Outcome, value)
		for _, evidence := range result.Evidence {
			fmt.Printf("evidence: %s\n", evidence)
		}
	},
}
