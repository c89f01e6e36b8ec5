package telemetry

import (
	"fmt"
	"log/slog"
)

// SlogAPI implements API on the default slog logger.
type SlogAPI struct{}

// pairs reports whether params read as key, value, key, value...
func pairs(params []any) bool {
	if len(params)%2 != 0 {
		return false
	}
	for i := 0; i < len(params); i += 2 {
		if _, ok := params[i].(string); !ok {
			return false
		}
	}
	return true
}

// attrs turns report params into slog attributes. Key/value params keep
// their keys, anything else is numbered. Errors are logged by message.
func attrs(id string, params []any) []any {
	out := []any{"id", id}
	if pairs(params) {
		for i := 0; i < len(params); i += 2 {
			value := params[i+1]
			if err, ok := value.(error); ok {
				value = err.Error()
			}
			out = append(out, params[i], value)
		}
		return out
	}
	for i, p := range params {
		if err, ok := p.(error); ok {
			out = append(out, "err", err.Error())
			continue
		}
		out = append(out, fmt.Sprintf("params.%d", i), p)
	}
	return out
}

func (SlogAPI) ReportBroken(id string, params ...any) {
	slog.Error("broken component", attrs(id, params)...)
}

func (SlogAPI) ReportWarning(id string, params ...any) {
	slog.Warn("warning", attrs(id, params)...)
}

func (SlogAPI) ReportDebug(id string, params ...any) {
	slog.Debug("debug", attrs(id, params)...)
}

func (SlogAPI) ReportCount(id string, count int64) {
	slog.Info("count", "id", id, "n", count)
}
