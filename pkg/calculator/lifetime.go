package calculator

import (
	"github.com/shopspring/decimal"

	"client-manager/pkg/models"
)

// AggregateLifetimeValue groups records by exact client name and sums revenue and profit.
// Names that do not occur in records have no entry.
func AggregateLifetimeValue(records []models.ClientProject) map[string]models.ClientLifetimeValue {
	out := make(map[string]models.ClientLifetimeValue)
	for _, r := range records {
		ltv, seen := out[r.ClientName]
		if !seen {
			ltv = models.ClientLifetimeValue{
				TotalRevenue: decimal.Zero,
				TotalProfit:  decimal.Zero,
				FirstProject: r.StartDate,
				LastProject:  r.StartDate,
			}
		}
		ltv.TotalRevenue = ltv.TotalRevenue.Add(r.Cost)
		ltv.TotalProfit = ltv.TotalProfit.Add(ComputeProfit(r).Profit)
		ltv.ProjectCount++
		if r.IsPaid() {
			ltv.PaidProjectCount++
		}
		if r.StartDate.Before(ltv.FirstProject) {
			ltv.FirstProject = r.StartDate
		}
		if r.StartDate.After(ltv.LastProject) {
			ltv.LastProject = r.StartDate
		}
		out[r.ClientName] = ltv
	}

	for name, ltv := range out {
		ltv.AvgProjectValue = ltv.TotalRevenue.Div(decimal.NewFromInt(int64(ltv.ProjectCount))).Round(2)
		ltv.AvgProfitMargin = ratio(ltv.TotalProfit, ltv.TotalRevenue).Round(4)
		out[name] = ltv
	}
	return out
}

func groupByClient(records []models.ClientProject) map[string][]models.ClientProject {
	out := make(map[string][]models.ClientProject)
	for _, r := range records {
		out[r.ClientName] = append(out[r.ClientName], r)
	}
	return out
}
