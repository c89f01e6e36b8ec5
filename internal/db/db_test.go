package db

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/IvanKyuu/university-crawl/lib/testutil"
)

func TestMigrateIsIdempotent(t *testing.T) {
	conn := testutil.OpenDB(t, "")
	ctx := context.Background()
	require.NoError(t, Migrate(ctx, conn))
	require.NoError(t, Migrate(ctx, conn))
}

func TestWithTxRollsBack(t *testing.T) {
	conn := testutil.OpenDB(t, Schema)
	ctx := context.Background()

	failure := errors.New("abort")
	err := WithTx(ctx, conn, func(q *Queries) error {
		_, err := q.InsertTrouble(ctx, InsertTroubleParams{RunID: "r", Entity: "UBC", Attribute: "a", Handler: "h", Message: "m"})
		require.NoError(t, err)
		return failure
	})
	require.ErrorIs(t, err, failure)

	items, err := New(conn).ListTrouble(ctx, ListTroubleParams{Limit: 10})
	require.NoError(t, err)
	require.Empty(t, items)
}
