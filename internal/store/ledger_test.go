package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendLedgerItemCreatesAndAccumulates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	l, err := s.AppendLedgerItem(ctx, "chan1", "Zezinho", LedgerItem{
		ReceiptID: "r1", Item: "Milho", Quantity: 200,
		Payment: decimal.RequireFromString("30"), ApprovedBy: "Moderador",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), l.ServiceCount)
	assert.True(t, l.Total.Equal(decimal.RequireFromString("30")))

	l, err = s.AppendLedgerItem(ctx, "chan1", "Zezinho", LedgerItem{
		ReceiptID: "r2", Item: "Vaca", Quantity: 2,
		Payment: decimal.RequireFromString("60"), ApprovedBy: "Moderador",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), l.ServiceCount)
	assert.True(t, l.Total.Equal(decimal.RequireFromString("90")))
}

func TestAppendLedgerItemRejectsDoubleCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	item := LedgerItem{ReceiptID: "r1", Item: "Milho", Payment: decimal.RequireFromString("30")}
	_, err := s.AppendLedgerItem(ctx, "chan1", "Zezinho", item)
	require.NoError(t, err)

	_, err = s.AppendLedgerItem(ctx, "chan1", "Zezinho", item)
	require.Error(t, err, "the same receipt must not enter the ledger twice")

	l, err := s.GetLedger(ctx, "chan1", "Zezinho")
	require.NoError(t, err)
	assert.True(t, l.Total.Equal(decimal.RequireFromString("30")))
}

func TestLedgersAreScopedByChannelAndPlayer(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.AppendLedgerItem(ctx, "chan1", "Ana", LedgerItem{ReceiptID: "r1", Payment: decimal.NewFromInt(10)})
	require.NoError(t, err)
	_, err = s.AppendLedgerItem(ctx, "chan2", "Ana", LedgerItem{ReceiptID: "r1", Payment: decimal.NewFromInt(20)})
	require.NoError(t, err)

	l1, err := s.GetLedger(ctx, "chan1", "Ana")
	require.NoError(t, err)
	l2, err := s.GetLedger(ctx, "chan2", "Ana")
	require.NoError(t, err)
	assert.True(t, l1.Total.Equal(decimal.NewFromInt(10)))
	assert.True(t, l2.Total.Equal(decimal.NewFromInt(20)))
}

func TestMarkLedgerItemPaid(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.AppendLedgerItem(ctx, "chan1", "Ana", LedgerItem{ReceiptID: "r1", Payment: decimal.NewFromInt(10)})
	require.NoError(t, err)

	l, err := s.MarkLedgerItemPaid(ctx, "chan1", "Ana", "r1")
	require.NoError(t, err)
	assert.True(t, l.Items[0].Paid)

	_, err = s.MarkLedgerItemPaid(ctx, "chan1", "Ana", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestArchiveLedger(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.AppendLedgerItem(ctx, "chan1", "Ana", LedgerItem{ReceiptID: "r1", Payment: decimal.NewFromInt(10)})
	require.NoError(t, err)

	archive, err := s.ArchiveLedger(ctx, "chan1", "Ana", "Moderador")
	require.NoError(t, err)
	assert.Equal(t, "Moderador", archive.FinalizedBy)
	assert.False(t, archive.FinalizedAt.IsZero())
	assert.True(t, archive.Total.Equal(decimal.NewFromInt(10)))

	// Working ledger is gone, archive file exists.
	_, err = s.GetLedger(ctx, "chan1", "Ana")
	assert.ErrorIs(t, err, ErrNotFound)

	entries, err := os.ReadDir(filepath.Join(s.root, "archives"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
