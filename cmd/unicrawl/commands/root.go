package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/IvanKyuu/university-crawl/lib/configutil"
	libtelemetry "github.com/IvanKyuu/university-crawl/lib/telemetry"
)

var (
	configPath string
	verbose    bool

	otel libtelemetry.Telemetry
)

var rootCmd = &cobra.Command{
	Use:   "unicrawl",
	Short: "unicrawl builds university and program profiles out of crawled, searched and generated attributes.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		libtelemetry.InitSlog(verbose)
		if err := configutil.LoadEnv(); err != nil {
			return err
		}

		var err error
		otel, err = libtelemetry.SetupFromEnv(cmd.Context(), "unicrawl")
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("no telemetry config, running without exporters")
			return nil
		}
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := otel.Shutdown(ctx); err != nil {
			slog.Warn("failed to shut down telemetry", "err", err)
		}
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "unicrawl.json5", "The config file, merged with its .local variant.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level and dump HTTP exchanges.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
