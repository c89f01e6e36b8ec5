package commands

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/IvanKyuu/university-crawl/internal/chrono"
	"github.com/IvanKyuu/university-crawl/internal/profile"
	"github.com/IvanKyuu/university-crawl/internal/resolver"
	"github.com/IvanKyuu/university-crawl/internal/sheets"
	libtelemetry "github.com/IvanKyuu/university-crawl/lib/telemetry"
	"github.com/IvanKyuu/university-crawl/lib/util/serviceutil"
)

var (
	buildProgram     string
	buildLang        string
	buildOut         string
	buildXlsx        string
	buildConcurrency int
)

func init() {
	buildCmd.Flags().StringVar(&buildProgram, "program", "", "Build this program of every named university instead of the universities.")
	buildCmd.Flags().StringVar(&buildLang, "lang", "en", "The key language of written records, en or ch.")
	buildCmd.Flags().StringVar(&buildOut, "out", "", "Write records to this JSONL file.")
	buildCmd.Flags().StringVar(&buildXlsx, "xlsx", "", "Write records to this spreadsheet.")
	buildCmd.Flags().IntVar(&buildConcurrency, "concurrency", 0, "Attributes resolved at once, the config value when 0.")
	rootCmd.AddCommand(buildCmd)
}

var buildCmd = &cobra.Command{
	Use:   "build [names...] [--program <program>] [--lang en|ch] [--out <file.jsonl>] [--xlsx <file.xlsx>]",
	Short: "Builds the profiles of the named universities, or of every seeded university when none are named.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		lang, err := profile.ParseLang(buildLang)
		if err != nil {
			serviceutil.Fatal("invalid --lang", err)
		}

		a := openApp(ctx)
		defer a.Close()

		names := args
		if len(names) == 0 && a.cfg.Seeds != "" {
			seeds, err := sheets.ReadSeeds(a.cfg.Seeds, "")
			if err != nil {
				serviceutil.Fatal("failed to read seeds", err)
			}
			for _, seed := range seeds {
				names = append(names, seed.Name)
			}
		}
		if len(names) == 0 {
			serviceutil.Fatal("nothing to build, name a university or configure seeds", nil)
		}

		runID := profile.NewRunID()
		slog.Info("starting build", "run_id", runID, "entities", len(names))

		rc := a.sources(ctx, runID)
		universities, err := a.resolver(rc, profile.KindUniversity)
		if err != nil {
			serviceutil.Fatal("failed to create university resolver", err)
		}
		var programs *resolver.Resolver
		if buildProgram != "" {
			programs, err = a.resolver(rc, profile.KindProgram)
			if err != nil {
				serviceutil.Fatal("failed to create program resolver", err)
			}
		}

		concurrency := buildConcurrency
		if concurrency < 1 {
			concurrency = a.cfg.Concurrency
		}
		builder, err := profile.NewBuilder(profile.Options{
			Universities: universities,
			Programs:     programs,
			Seeds:        a.seeds(),
			Concurrency:  concurrency,
			Retry:        a.cfg.Retry.Policy(),
			Telemetry:    a.tel,
		})
		if err != nil {
			serviceutil.Fatal("failed to create builder", err)
		}

		cron := chrono.NewStandardCron(a.tel, nil)
		if a.cfg.FlushSchedule != "" {
			err = cron.Cron(a.cfg.FlushSchedule, func() { a.flush(ctx) })
			if err != nil {
				serviceutil.Fatal("invalid flush_schedule", err)
			}
		}
		libtelemetry.InstrumentPerfStats(ctx, 15*time.Second)

		store := a.profiles()
		var records []profile.Record
		for _, name := range names {
			var record profile.Record
			if buildProgram != "" {
				record, err = builder.BuildProgram(ctx, name, buildProgram)
			} else {
				record, err = builder.Build(ctx, name)
			}
			if ctx.Err() != nil {
				slog.Warn("build interrupted", "at", name)
				break
			}
			if err != nil {
				slog.Error("failed to build profile", "name", name, "err", err)
				continue
			}
			if err := store.Save(ctx, runID, record); err != nil {
				slog.Error("failed to save profile", "name", name, "err", err)
			}
			records = append(records, record)
		}

		<-cron.Stop().Done()
		// the final flush must happen even when interrupted
		a.flush(context.WithoutCancel(ctx))

		printRecords(records)
		if buildOut != "" {
			if err := writeJSONL(buildOut, records, lang); err != nil {
				serviceutil.Fatal("failed to write records", err)
			}
		}
		if buildXlsx != "" {
			if err := sheets.WriteRecords(buildXlsx, "", records, lang); err != nil {
				serviceutil.Fatal("failed to write spreadsheet", err)
			}
		}
	},
}

func writeJSONL(path string, records []profile.Record, lang profile.Lang) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	err = profile.WriteJSONL(f, records, lang)
	return errors.Join(err, f.Close())
}

func printRecords(records []profile.Record) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"ID", "Entity", "Resolved", "Failed"})
	for _, record := range records {
		t.AppendRow(table.Row{
			record.ID,
			record.Entity(),
			len(record.Attributes),
			len(record.Failures),
		})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}
