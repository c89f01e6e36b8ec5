package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/IvanKyuu/university-crawl/internal/telemetry"
	"github.com/IvanKyuu/university-crawl/lib/rankings"
	"github.com/IvanKyuu/university-crawl/lib/util/serviceutil"
)

func init() {
	rankingsCmd.AddCommand(rankingsLookupCmd)
	rootCmd.AddCommand(rankingsCmd)
}

var rankingsCmd = &cobra.Command{
	Use:   "rankings",
	Short: "Queries the static ranking tables.",
}

var rankingsLookupCmd = &cobra.Command{
	Use:   "lookup <table> <name>",
	Short: "Prints the rank of a university, or the candidates when the name is ambiguous.",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := readConfig(configPath)
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		a := &app{cfg: cfg, tel: telemetry.SlogAPI{}}
		set := a.rankings()

		table, ok := set[args[0]]
		if !ok {
			names := make([]string, 0, len(set))
			for name := range set {
				names = append(names, name)
			}
			serviceutil.Fatal(fmt.Sprintf("no table %q, have: %s", args[0], strings.Join(names, ", ")), nil)
		}

		if rank, ok := set.Ranking(args[0], args[1]); ok {
			fmt.Println(rank)
			return
		}
		candidates := table.Candidates(args[1])
		switch len(candidates) {
		case 0:
			fmt.Printf("%s is not in %s, closest:\n", args[1], args[0])
			printMatches(table.Closest(args[1], 3))
		case 1:
			fmt.Printf("%s has no rank in %s\n", candidates[0], args[0])
		default:
			fmt.Printf("%s is ambiguous in %s:\n", args[1], args[0])
			printMatches(rankings.Score(args[1], candidates))
		}
	},
}

func printMatches(matches []rankings.Match) {
	for _, match := range matches {
		fmt.Printf("  %.3f  %s\n", match.Score, match.Name)
	}
}
