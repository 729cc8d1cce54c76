package settle

import (
	"testing"

	"github.com/fazendarp/fazendabot/internal/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEconomy(t *testing.T) *config.Economy {
	t.Helper()
	eco, err := config.LoadEconomy("does-not-exist.json")
	require.NoError(t, err)
	return eco
}

func TestCalculateAnimal(t *testing.T) {
	eco := testEconomy(t)

	tests := []struct {
		name        string
		income      int64
		wantPayment string
		wantPenalty string
		wantDebt    string
		wantStatus  string
	}{
		{
			name:        "optimal income",
			income:      160,
			wantPayment: "60",
			wantPenalty: "0",
			wantDebt:    "0",
			wantStatus:  StatusOptimal,
		},
		{
			name:        "above optimal",
			income:      200,
			wantPayment: "100",
			wantPenalty: "0",
			wantDebt:    "0",
			wantStatus:  StatusOptimal,
		},
		{
			name:        "suboptimal income",
			income:      120,
			wantPayment: "20",
			wantPenalty: "40",
			wantDebt:    "0",
			wantStatus:  StatusSuboptimal,
		},
		{
			name:        "income exactly at farm needs",
			income:      100,
			wantPayment: "0",
			wantPenalty: "60",
			wantDebt:    "0",
			wantStatus:  StatusSuboptimal,
		},
		{
			name:        "critical income",
			income:      80,
			wantPayment: "0",
			wantPenalty: "0",
			wantDebt:    "20",
			wantStatus:  StatusCritical,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateAnimal(decimal.NewFromInt(tt.income), eco)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.True(t, got.PlayerPayment.Equal(decimal.RequireFromString(tt.wantPayment)),
				"payment = %s, want %s", got.PlayerPayment, tt.wantPayment)
			assert.True(t, got.Penalty.Equal(decimal.RequireFromString(tt.wantPenalty)),
				"penalty = %s, want %s", got.Penalty, tt.wantPenalty)
			assert.True(t, got.PlayerDebt.Equal(decimal.RequireFromString(tt.wantDebt)),
				"debt = %s, want %s", got.PlayerDebt, tt.wantDebt)
		})
	}
}

func TestCalculateAnimalProfit(t *testing.T) {
	eco := testEconomy(t)

	got := CalculateAnimal(decimal.NewFromInt(160), eco)
	assert.True(t, got.FarmCost.Equal(decimal.NewFromInt(100)))
	assert.True(t, got.FarmProfit.Equal(decimal.NewFromInt(60)))
}

func TestCalculatePlant(t *testing.T) {
	eco := testEconomy(t)

	tests := []struct {
		name        string
		quantity    int64
		crop        string
		custom      bool
		wantPayment string
	}{
		{name: "staple crop at basic rate", quantity: 200, crop: "Milho", wantPayment: "30"},
		{name: "custom crop at other rate", quantity: 50, crop: "Batata", custom: true, wantPayment: "10"},
		{name: "unknown crop at other rate", quantity: 100, crop: "Cacau", wantPayment: "20"},
		{name: "custom crop named like a staple still pays other rate", quantity: 100, crop: "Milho", custom: true, wantPayment: "20"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculatePlant(tt.quantity, tt.crop, tt.custom, eco)
			assert.Equal(t, StatusVerified, got.Status)
			assert.True(t, got.PlayerPayment.Equal(decimal.RequireFromString(tt.wantPayment)),
				"payment = %s, want %s", got.PlayerPayment, tt.wantPayment)
		})
	}
}
