package calculator

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"client-manager/pkg/models"
)

const (
	maxExpiringListed = 10
	maxTopClients     = 10
)

// Summarize computes the full analytics payload for a snapshot. It has no side effects:
// the same records and asOf always produce the same summary. Every rate is zero when its
// denominator is zero.
func Summarize(records []models.ClientProject, asOf time.Time) models.AnalyticsSummary {
	s := models.AnalyticsSummary{
		TotalRevenue:         decimal.Zero,
		TotalProfit:          decimal.Zero,
		TotalProjectCosts:    decimal.Zero,
		OverallProfitMargin:  decimal.Zero,
		PaidRevenue:          decimal.Zero,
		PaidProfit:           decimal.Zero,
		AvgProjectValue:      decimal.Zero,
		AvgProfitPerProject:  decimal.Zero,
		PerClient:            make(map[string]models.ClientMetrics),
		ExpiringSoon:         []models.ExpiringProject{},
		HighPriorityRenewals: []string{},
		TopClients:           []string{},
		AsOf:                 asOf,
	}

	for _, r := range records {
		profit := ComputeProfit(r).Profit
		s.TotalRevenue = s.TotalRevenue.Add(r.Cost)
		s.TotalProjectCosts = s.TotalProjectCosts.Add(r.InternalCost())
		s.TotalProfit = s.TotalProfit.Add(profit)
		if r.IsPaid() {
			s.PaidProjects++
			s.PaidRevenue = s.PaidRevenue.Add(r.Cost)
			s.PaidProfit = s.PaidProfit.Add(profit)
		}
	}
	s.TotalProjects = len(records)
	s.UnpaidProjects = s.TotalProjects - s.PaidProjects
	if s.TotalProjects > 0 {
		n := decimal.NewFromInt(int64(s.TotalProjects))
		s.OverallPaymentRate = float64(s.PaidProjects) / float64(s.TotalProjects)
		s.AvgProjectValue = s.TotalRevenue.Div(n).Round(2)
		s.AvgProfitPerProject = s.TotalProfit.Div(n).Round(2)
	}
	s.OverallProfitMargin = ratio(s.TotalProfit, s.TotalRevenue).Round(4)

	likelihood := make(map[string]float64)
	grouped := groupByClient(records)
	for name, ltv := range AggregateLifetimeValue(records) {
		prediction := PredictRenewal(name, grouped[name])
		likelihood[name] = prediction.Likelihood
		s.PerClient[name] = models.ClientMetrics{
			ClientLifetimeValue: ltv,
			RenewalLikelihood:   prediction.Likelihood,
			RenewalOutlook:      prediction.Outlook,
		}
	}
	s.TotalClients = len(s.PerClient)
	s.TopClients = topClients(s.PerClient, maxTopClients)

	s.Forecast = forecastWith(records, asOf, likelihood)

	expiring := expiringWith(records, asOf, ExpiryHorizonDays, likelihood)
	seen := make(map[string]bool)
	for _, e := range expiring {
		if e.DaysToExpiry <= HighPriorityDays && !seen[e.ClientName] {
			seen[e.ClientName] = true
			s.HighPriorityRenewals = append(s.HighPriorityRenewals, e.ClientName)
		}
	}
	if len(expiring) > maxExpiringListed {
		expiring = expiring[:maxExpiringListed]
	}
	if expiring != nil {
		s.ExpiringSoon = expiring
	}
	return s
}

// topClients returns client names ordered by revenue, highest first, ties by name.
func topClients(perClient map[string]models.ClientMetrics, limit int) []string {
	names := make([]string, 0, len(perClient))
	for name := range perClient {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ri, rj := perClient[names[i]].TotalRevenue, perClient[names[j]].TotalRevenue
		if !ri.Equal(rj) {
			return ri.GreaterThan(rj)
		}
		return names[i] < names[j]
	})
	if len(names) > limit {
		names = names[:limit]
	}
	return names
}
