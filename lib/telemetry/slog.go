package telemetry

import (
	"log/slog"
	"os"
)

// InitSlog installs the default text logger on stderr. `verbose` lowers the
// level to debug, which also turns on HTTP exchange dumps.
func InitSlog(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: verbose,
	})
	slog.SetDefault(slog.New(handler))
}
