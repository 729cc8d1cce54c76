package store

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/fazendarp/fazendabot/internal/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	return s
}

func plantReceipt(id string, player string, quantity int64, payment string) *Receipt {
	return &Receipt{
		ID:            id,
		Timestamp:     time.Now(),
		PlayerName:    player,
		ServiceType:   ServicePlant,
		PlantName:     "Milho",
		Quantity:      quantity,
		PlayerPayment: decimal.RequireFromString(payment),
		Status:        StatusPendingApproval,
	}
}

func TestCreateReceiptUpdatesSummary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateReceipt(ctx, plantReceipt("20260901-120000-aaaa0001", "Zezinho", 200, "30")))

	sum, err := s.GetSummary(ctx, "Zezinho")
	require.NoError(t, err)
	assert.True(t, sum.TotalEarnings.Equal(decimal.RequireFromString("30")))
	assert.Equal(t, int64(1), sum.TotalServices)
	assert.Equal(t, int64(1), sum.PlantServices)
	assert.Equal(t, int64(0), sum.AnimalServices)
}

func TestCreateReceiptRejectsDuplicateID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := plantReceipt("20260901-120000-aaaa0002", "Zezinho", 10, "1.5")
	require.NoError(t, s.CreateReceipt(ctx, r))
	require.Error(t, s.CreateReceipt(ctx, r))

	sum, err := s.GetSummary(ctx, "Zezinho")
	require.NoError(t, err)
	assert.Equal(t, int64(1), sum.TotalServices, "failed create must not move the summary")
}

func TestDeleteReceiptSubtractsExactContribution(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateReceipt(ctx, plantReceipt("20260901-120000-aaaa0003", "Maria", 200, "30")))
	require.NoError(t, s.CreateReceipt(ctx, plantReceipt("20260901-120001-aaaa0004", "Maria", 100, "15")))
	require.NoError(t, s.DeleteReceipt(ctx, "20260901-120000-aaaa0003"))

	sum, err := s.GetSummary(ctx, "Maria")
	require.NoError(t, err)
	assert.True(t, sum.TotalEarnings.Equal(decimal.RequireFromString("15")))
	assert.Equal(t, int64(1), sum.TotalServices)
	assert.Equal(t, int64(1), sum.PlantServices)

	_, err = s.FindReceipt(ctx, "20260901-120000-aaaa0003")
	assert.ErrorIs(t, err, ErrNotFound)
}

// The summary invariant: after any sequence of creates and deletes,
// TotalEarnings equals the sum of the surviving receipts' payments and the
// counters equal their counts.
func TestSummaryInvariantUnderRandomOperations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	type live struct {
		id      string
		payment decimal.Decimal
		service string
	}
	var alive []live

	for i := 0; i < 200; i++ {
		if len(alive) == 0 || rng.Intn(3) > 0 {
			id := NewReceiptID(time.Now())
			service := ServicePlant
			if rng.Intn(2) == 0 {
				service = ServiceAnimal
			}
			payment := decimal.NewFromInt(int64(rng.Intn(500))).Div(decimal.NewFromInt(10))
			r := &Receipt{
				ID:            id,
				Timestamp:     time.Now(),
				PlayerName:    "Invariante",
				ServiceType:   service,
				Quantity:      int64(rng.Intn(100) + 1),
				PlayerPayment: payment,
				Status:        StatusPendingApproval,
			}
			require.NoError(t, s.CreateReceipt(ctx, r))
			alive = append(alive, live{id: id, payment: payment, service: service})
		} else {
			pick := rng.Intn(len(alive))
			require.NoError(t, s.DeleteReceipt(ctx, alive[pick].id))
			alive = append(alive[:pick], alive[pick+1:]...)
		}

		want := decimal.Zero
		var animals, plants int64
		for _, l := range alive {
			want = want.Add(l.payment)
			if l.service == ServiceAnimal {
				animals++
			} else {
				plants++
			}
		}

		sum, err := s.GetSummary(ctx, "Invariante")
		require.NoError(t, err)
		require.True(t, sum.TotalEarnings.Equal(want),
			"step %d: earnings = %s, want %s", i, sum.TotalEarnings, want)
		require.Equal(t, int64(len(alive)), sum.TotalServices, "step %d", i)
		require.Equal(t, animals, sum.AnimalServices, "step %d", i)
		require.Equal(t, plants, sum.PlantServices, "step %d", i)
	}
}

func TestUpdateReceiptQuantityAdjustsSummaryByDelta(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	eco, err := config.LoadEconomy("does-not-exist.json")
	require.NoError(t, err)

	// 200 Milho at the basic rate = 30.
	require.NoError(t, s.CreateReceipt(ctx, plantReceipt("20260901-120000-aaaa0005", "Chico", 200, "30")))

	got, err := s.UpdateReceiptQuantity(ctx, "20260901-120000-aaaa0005", 100, "Moderador", eco)
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.Quantity)
	assert.Equal(t, int64(200), got.OriginalQuantity)
	assert.True(t, got.PlayerPayment.Equal(decimal.RequireFromString("15")))
	assert.Equal(t, "Moderador", got.EditedBy)
	require.NotNil(t, got.EditedAt)

	sum, err := s.GetSummary(ctx, "Chico")
	require.NoError(t, err)
	assert.True(t, sum.TotalEarnings.Equal(decimal.RequireFromString("15")),
		"edit must overwrite, not accumulate: earnings = %s", sum.TotalEarnings)
	assert.Equal(t, int64(1), sum.TotalServices)
}

func TestUpdateReceiptQuantityRejectsNonPositive(t *testing.T) {
	s := newTestStore(t)
	eco, err := config.LoadEconomy("does-not-exist.json")
	require.NoError(t, err)

	_, err = s.UpdateReceiptQuantity(context.Background(), "whatever", 0, "Moderador", eco)
	require.Error(t, err)
}

func TestListReceiptsFilterAndSort(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r1 := plantReceipt("20260901-120000-aaaa0006", "Ana", 200, "30")
	r2 := plantReceipt("20260901-120001-aaaa0007", "Bento", 100, "15")
	r2.Status = StatusApproved
	r3 := &Receipt{
		ID: "20260901-120002-aaaa0008", Timestamp: time.Now(), PlayerName: "Ana",
		ServiceType: ServiceAnimal, Quantity: 3,
		PlayerPayment: decimal.NewFromInt(60), Status: StatusApproved,
	}
	for _, r := range []*Receipt{r1, r2, r3} {
		require.NoError(t, s.CreateReceipt(ctx, r))
	}

	approved, err := s.ListReceipts(ctx, ReceiptFilter{Status: StatusApproved})
	require.NoError(t, err)
	assert.Len(t, approved, 2)

	animals, err := s.ListReceipts(ctx, ReceiptFilter{ServiceType: ServiceAnimal})
	require.NoError(t, err)
	require.Len(t, animals, 1)
	assert.Equal(t, "Ana", animals[0].PlayerName)

	byPayment, err := s.ListReceipts(ctx, ReceiptFilter{SortBy: "payment"})
	require.NoError(t, err)
	require.Len(t, byPayment, 3)
	assert.True(t, byPayment[0].PlayerPayment.GreaterThanOrEqual(byPayment[1].PlayerPayment))
	assert.True(t, byPayment[1].PlayerPayment.GreaterThanOrEqual(byPayment[2].PlayerPayment))
}

func TestNewReceiptID(t *testing.T) {
	now := time.Date(2026, 9, 1, 14, 30, 5, 0, time.UTC)
	id := NewReceiptID(now)
	assert.Regexp(t, `^20260901-143005-[0-9a-f]{8}$`, id)
	assert.NotEqual(t, id, NewReceiptID(now), "ids must not collide for the same instant")
}
