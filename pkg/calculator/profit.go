package calculator

import (
	"github.com/shopspring/decimal"

	"client-manager/pkg/models"
)

// ComputeProfit returns cost minus internal cost and the margin as a ratio of cost.
// A negative profit is kept as is: it marks a cost overrun.
func ComputeProfit(record models.ClientProject) models.ProfitRecord {
	profit := record.Cost.Sub(record.InternalCost())
	margin := decimal.Zero
	if record.Cost.IsPositive() {
		margin = profit.Div(record.Cost)
	}
	return models.ProfitRecord{
		ClientProjectID: record.ID,
		Profit:          profit,
		MarginPct:       margin,
	}
}

// ratio returns num/den, or zero when den is not positive.
func ratio(num, den decimal.Decimal) decimal.Decimal {
	if !den.IsPositive() {
		return decimal.Zero
	}
	return num.Div(den)
}
