package settle

import (
	"github.com/fazendarp/fazendabot/internal/config"
	"github.com/shopspring/decimal"
)

// Settlement status for a verified claim.
const (
	StatusOptimal    = "OPTIMAL"
	StatusSuboptimal = "SUBOPTIMAL"
	StatusCritical   = "CRITICAL"
	StatusVerified   = "VERIFIED"
)

type Animal struct {
	FarmIncome    decimal.Decimal
	FarmCost      decimal.Decimal
	FarmProfit    decimal.Decimal
	PlayerPayment decimal.Decimal
	Penalty       decimal.Decimal
	PlayerDebt    decimal.Decimal
	Status        string
}

type Plant struct {
	UnitPrice     decimal.Decimal
	PlayerPayment decimal.Decimal
	Status        string
}

// CalculateAnimal settles an animal delivery from the income extracted off
// the screenshot. The farm keeps its minimum needs first; the player is paid
// the surplus, penalized when the run was below the optimal income, and put
// in debt when the income did not even cover the farm's needs.
func CalculateAnimal(farmIncome decimal.Decimal, eco *config.Economy) Animal {
	out := Animal{
		FarmIncome: farmIncome,
		FarmCost:   eco.MinimumFarmNeeds,
		FarmProfit: farmIncome.Sub(eco.MinimumFarmNeeds),
	}

	payment := farmIncome.Sub(eco.MinimumFarmNeeds)
	if payment.IsNegative() {
		payment = decimal.Zero
	}
	out.PlayerPayment = payment

	switch {
	case farmIncome.GreaterThanOrEqual(eco.OptimalIncome):
		out.Status = StatusOptimal
	case farmIncome.GreaterThanOrEqual(eco.MinimumFarmNeeds):
		out.Status = StatusSuboptimal
		out.Penalty = eco.SuboptimalBase.Sub(payment)
	default:
		out.Status = StatusCritical
		out.PlayerPayment = decimal.Zero
		out.PlayerDebt = eco.MinimumFarmNeeds.Sub(farmIncome)
	}

	return out
}

// CalculatePlant settles a crop deposit at the configured per-unit rate.
// Custom ("other") crops always settle at the other rate, even when the
// free-text name happens to match a staple.
func CalculatePlant(quantity int64, crop string, custom bool, eco *config.Economy) Plant {
	price := eco.OtherCropPrice
	if !custom && eco.IsStaple(crop) {
		price = eco.BasicCropPrice
	}

	return Plant{
		UnitPrice:     price,
		PlayerPayment: price.Mul(decimal.NewFromInt(quantity)),
		Status:        StatusVerified,
	}
}
