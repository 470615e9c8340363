package calculator

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"client-manager/pkg/models"
)

const (
	forecastMonths = 3

	// ExpiryHorizonDays bounds the renewal window looked at by ExpiringSoon.
	ExpiryHorizonDays = 60
	// HighPriorityDays marks renewals that need attention first.
	HighPriorityDays = 30
)

// forecastDecay is applied once per month past the first forecast month.
var forecastDecay = decimal.RequireFromString("0.9")

// ForecastRevenue projects revenue for the three calendar months after the month of asOf.
// The baseline is the historical average monthly revenue; each later month decays it by
// forecastDecay. Projects whose deadline falls in a forecast month add their cost weighted
// by the client's renewal likelihood. Values are never negative.
func ForecastRevenue(records []models.ClientProject, asOf time.Time) []models.ForecastPoint {
	return forecastWith(records, asOf, renewalLikelihoods(records))
}

func forecastWith(records []models.ClientProject, asOf time.Time, likelihood map[string]float64) []models.ForecastPoint {
	baseline := averageMonthlyRevenue(records)
	if baseline.IsNegative() {
		baseline = decimal.Zero
	}

	points := make([]models.ForecastPoint, 0, forecastMonths)
	factor := decimal.NewFromInt(1)
	current := monthStart(asOf)
	for i := 1; i <= forecastMonths; i++ {
		month := current.AddDate(0, i, 0)

		renewals := 0.0
		renewalRevenue := decimal.Zero
		for _, r := range records {
			if r.Deadline.IsZero() || !monthStart(r.Deadline).Equal(month) {
				continue
			}
			p := likelihood[r.ClientName]
			renewals += p
			renewalRevenue = renewalRevenue.Add(r.Cost.Mul(decimal.NewFromFloat(p)))
		}

		projected := baseline.Mul(factor).Add(renewalRevenue)
		if projected.IsNegative() {
			projected = decimal.Zero
		}

		confidence := "Low"
		if renewals > 0 {
			confidence = "Medium"
		}
		points = append(points, models.ForecastPoint{
			Month:            month.Format("January 2006"),
			ProjectedRevenue: projected.Round(2),
			ExpectedRenewals: math.Round(renewals*10) / 10,
			Confidence:       confidence,
		})
		factor = factor.Mul(forecastDecay)
	}
	return points
}

// averageMonthlyRevenue divides total revenue by the number of calendar months spanned by
// the dated start dates, first to last inclusive, with a floor of one month.
func averageMonthlyRevenue(records []models.ClientProject) decimal.Decimal {
	total := decimal.Zero
	var first, last time.Time
	for _, r := range records {
		total = total.Add(r.Cost)
		if r.StartDate.IsZero() {
			continue
		}
		if first.IsZero() || r.StartDate.Before(first) {
			first = r.StartDate
		}
		if last.IsZero() || r.StartDate.After(last) {
			last = r.StartDate
		}
	}
	months := 1
	if !first.IsZero() {
		if n := len(monthsBetweenInclusive(first, last)); n > months {
			months = n
		}
	}
	return total.Div(decimal.NewFromInt(int64(months)))
}

// ExpiringSoon lists projects whose deadline is between asOf and asOf+horizonDays, soonest first.
func ExpiringSoon(records []models.ClientProject, asOf time.Time, horizonDays int) []models.ExpiringProject {
	return expiringWith(records, asOf, horizonDays, renewalLikelihoods(records))
}

func expiringWith(records []models.ClientProject, asOf time.Time, horizonDays int, likelihood map[string]float64) []models.ExpiringProject {
	var out []models.ExpiringProject
	for _, r := range records {
		if r.Deadline.IsZero() {
			continue
		}
		days := DaysUntil(asOf, r.Deadline)
		if days < 0 || days > horizonDays {
			continue
		}
		out = append(out, models.ExpiringProject{
			ClientProjectID:   r.ID,
			ClientName:        r.ClientName,
			DaysToExpiry:      days,
			RevenueAtRisk:     r.Cost,
			ProfitAtRisk:      ComputeProfit(r).Profit,
			RenewalLikelihood: likelihood[r.ClientName],
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DaysToExpiry != out[j].DaysToExpiry {
			return out[i].DaysToExpiry < out[j].DaysToExpiry
		}
		return out[i].ClientProjectID < out[j].ClientProjectID
	})
	return out
}
