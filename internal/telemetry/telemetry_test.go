package telemetry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScopedAPINests(t *testing.T) {
	recorder := NewRecorder()
	api := NewScopedAPI("resolver", NewScopedAPI("build", recorder))

	api.ReportWarning("k-value", "abc")
	api.ReportCount("resolved", 3)

	reports := recorder.Reports()
	require.Len(t, reports, 2)
	require.Equal(t, "build:resolver:k-value", reports[0].ID)
	require.Equal(t, []any{"abc"}, reports[0].Params)
	require.Equal(t, int64(3), reports[1].Count)

	require.Len(t, recorder.Find(LevelWarning, "k-value"), 1)
	require.Empty(t, recorder.Find(LevelBroken, "k-value"))
}

func TestSlogAttrs(t *testing.T) {
	require.Equal(t,
		[]any{"id", "x", "entity", "UBC", "err", "boom"},
		attrs("x", []any{"entity", "UBC", "err", errors.New("boom")}),
	)
	require.Equal(t,
		[]any{"id", "x", "err", "boom"},
		attrs("x", []any{errors.New("boom")}),
	)
	require.Equal(t,
		[]any{"id", "x", "params.0", 1, "params.1", 2},
		attrs("x", []any{1, 2}),
	)
}
