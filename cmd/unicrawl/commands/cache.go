package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/IvanKyuu/university-crawl/internal/respcache"
	"github.com/IvanKyuu/university-crawl/lib/util/serviceutil"
)

var cacheMethod string

func init() {
	cacheCmd.PersistentFlags().StringVar(&cacheMethod, "method", "", "The method tag of the key, ATTRIBUTE_INFO with an attribute and BASIC_INFO without.")
	cacheCmd.AddCommand(cacheStatsCmd, cacheGetCmd, cacheDeleteCmd, cacheImportCmd)
	rootCmd.AddCommand(cacheCmd)
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspects and edits the response cache.",
}

// cacheKey builds the key named by `entity [attribute]` and --method.
func cacheKey(args []string) respcache.Key {
	key := respcache.BasicInfoKey(args[0])
	if len(args) > 1 {
		key = respcache.AttributeKey(args[0], args[1])
	}
	if cacheMethod != "" {
		key.Method = respcache.Method(cacheMethod)
	}
	return key
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Counts cache entries by method.",
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		defer a.Close()

		total := map[respcache.Method]int{}
		empty := map[respcache.Method]int{}
		entities := map[string]bool{}
		for _, key := range a.cache.Keys() {
			total[key.Method]++
			entities[key.Entity] = true
			if entry, ok := a.cache.Get(key); ok && entry.IsEmpty() {
				empty[key.Method]++
			}
		}

		methods := make([]string, 0, len(total))
		for method := range total {
			methods = append(methods, string(method))
		}
		sort.Strings(methods)

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Method", "Entries", "Empty"})
		for _, method := range methods {
			m := respcache.Method(method)
			t.AppendRow(table.Row{method, total[m], empty[m]})
		}
		t.AppendFooter(table.Row{"Total", a.cache.Len(), fmt.Sprintf("%d entities", len(entities))})
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}

var cacheGetCmd = &cobra.Command{
	Use:   "get <entity> [attribute]",
	Short: "Prints a cache entry as [value, [evidence]].",
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		defer a.Close()

		key := cacheKey(args)
		entry, ok := a.cache.Get(key)
		if !ok {
			serviceutil.Fatal(fmt.Sprintf("no entry for %s", key), nil)
		}
		out, err := json.MarshalIndent(entry, "", "  ")
		if err != nil {
			serviceutil.Fatal("failed to encode entry", err)
		}
		fmt.Println(key)
		fmt.Println(string(out))
	},
}

var cacheDeleteCmd = &cobra.Command{
	Use:   "delete <entity> [attribute]",
	Short: "Deletes one entry, or every entry of the entity when no attribute is given.",
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		a := openApp(ctx)
		defer a.Close()

		removed := 0
		if len(args) == 1 && cacheMethod == "" {
			removed = a.cache.DeleteEntity(args[0])
		} else if a.cache.Delete(cacheKey(args)) {
			removed = 1
		}
		a.flush(context.WithoutCancel(ctx))
		fmt.Printf("deleted %d entries\n", removed)
	},
}

var cacheImportCmd = &cobra.Command{
	Use:   "import <file.jsonl>...",
	Short: "Merges other cache files into the response cache, their entries winning.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		a := openApp(ctx)
		defer a.Close()

		for _, path := range args {
			count, err := a.cache.Load(ctx, path)
			if err != nil {
				serviceutil.Fatal(fmt.Sprintf("failed to import %s", path), err)
			}
			fmt.Printf("imported %d entries from %s\n", count, path)
		}
		a.flush(context.WithoutCancel(ctx))
	},
}
