package profile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/IvanKyuu/university-crawl/internal/chrono"
	"github.com/IvanKyuu/university-crawl/internal/db"
	"github.com/IvanKyuu/university-crawl/lib/testutil"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	conn := testutil.OpenDB(t, db.Schema)
	store := NewStore(conn, chrono.FixedTime(time.Unix(1_700_000_000, 0)))

	record := NewRecord(KindUniversity, 1, ubc)
	record.Attributes["website"] = "https://www.ubc.ca"
	record.Attributes["custom_note"] = "kept"
	record.Evidence["website"] = []string{"https://www.ubc.ca"}
	record.Failures["description"] = "model unavailable"
	require.NoError(t, store.Save(ctx, "run-1", record))

	loaded, err := store.Load(ctx, KindUniversity, ubc)
	require.NoError(t, err)
	require.Equal(t, record, loaded)

	record.Attributes["website"] = "https://ubc.ca"
	require.NoError(t, store.Save(ctx, "run-2", record))

	program := NewRecord(KindProgram, 1, "Computer Science")
	program.University = ubc
	program.UniversityID = 1
	require.NoError(t, store.Save(ctx, "run-2", program))

	universities, err := store.List(ctx, KindUniversity)
	require.NoError(t, err)
	require.Len(t, universities, 1)
	require.Equal(t, "https://ubc.ca", universities[0].Attributes["website"])

	programs, err := store.List(ctx, KindProgram)
	require.NoError(t, err)
	require.Len(t, programs, 1)
	require.Equal(t, ubc, programs[0].University)
	require.Equal(t, int64(1), programs[0].UniversityID)

	_, err = store.Load(ctx, KindUniversity, "Nowhere")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestNewRunID(t *testing.T) {
	require.NotEqual(t, NewRunID(), NewRunID())
	require.Len(t, NewRunID(), 36)
}
