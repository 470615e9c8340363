package calculator

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"client-manager/pkg/models"
)

var asOf = time.Date(2025, 11, 15, 10, 0, 0, 0, time.UTC)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func project(id int64, name, cost, projectCost string, status models.InvoiceStatus) models.ClientProject {
	p := models.ClientProject{
		ID:            id,
		ClientName:    name,
		Cost:          decimal.RequireFromString(cost),
		InvoiceStatus: status,
		StartDate:     day(2025, 1, 10),
		Deadline:      day(2027, 1, 10),
	}
	if projectCost != "" {
		p.ProjectCost = decimal.NewNullDecimal(decimal.RequireFromString(projectCost))
	}
	return p
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func TestComputeProfit(t *testing.T) {
	t.Run("with project cost", func(t *testing.T) {
		p := ComputeProfit(project(7, "Acme", "1000", "400", models.InvoicePaid))
		assert.Equal(t, int64(7), p.ClientProjectID)
		assertDecimal(t, "600", p.Profit)
		assertDecimal(t, "0.6", p.MarginPct)
	})

	t.Run("absent project cost", func(t *testing.T) {
		p := ComputeProfit(project(1, "Acme", "250.50", "", models.InvoiceUnpaid))
		assertDecimal(t, "250.50", p.Profit)
		assertDecimal(t, "1", p.MarginPct)
	})

	t.Run("overrun stays negative", func(t *testing.T) {
		p := ComputeProfit(project(1, "Acme", "100", "150", models.InvoicePaid))
		assertDecimal(t, "-50", p.Profit)
		assertDecimal(t, "-0.5", p.MarginPct)
	})

	t.Run("zero cost", func(t *testing.T) {
		p := ComputeProfit(project(1, "Acme", "0", "", models.InvoicePaid))
		assertDecimal(t, "0", p.Profit)
		assertDecimal(t, "0", p.MarginPct)
	})
}

func TestAggregateLifetimeValue_AcmeScenario(t *testing.T) {
	records := []models.ClientProject{
		project(1, "Acme", "1000", "400", models.InvoicePaid),
		project(2, "Acme", "500", "100", models.InvoiceUnpaid),
	}

	ltv := AggregateLifetimeValue(records)
	require.Contains(t, ltv, "Acme")
	acme := ltv["Acme"]
	assertDecimal(t, "1500", acme.TotalRevenue)
	assertDecimal(t, "1000", acme.TotalProfit)
	assert.Equal(t, 2, acme.ProjectCount)
	assert.Equal(t, 1, acme.PaidProjectCount)
	assertDecimal(t, "750", acme.AvgProjectValue)

	s := Summarize(records, asOf)
	assert.Equal(t, 0.5, s.OverallPaymentRate)
	assert.Equal(t, 1, s.TotalClients)
}

func TestAggregateLifetimeValue_CaseSensitiveNames(t *testing.T) {
	ltv := AggregateLifetimeValue([]models.ClientProject{
		project(1, "Acme", "10", "", models.InvoicePaid),
		project(2, "acme", "20", "", models.InvoicePaid),
	})
	assert.Len(t, ltv, 2)
	assert.NotContains(t, ltv, "ACME")
}

func TestAggregateLifetimeValue_FirstAndLastProject(t *testing.T) {
	a := project(1, "Acme", "10", "", models.InvoicePaid)
	a.StartDate = day(2024, 3, 1)
	b := project(2, "Acme", "10", "", models.InvoicePaid)
	b.StartDate = day(2025, 6, 1)
	c := project(3, "Acme", "10", "", models.InvoicePaid)
	c.StartDate = day(2024, 9, 1)

	acme := AggregateLifetimeValue([]models.ClientProject{b, a, c})["Acme"]
	assert.Equal(t, a.StartDate, acme.FirstProject)
	assert.Equal(t, b.StartDate, acme.LastProject)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, asOf)
	assert.Equal(t, 0, s.TotalClients)
	assertDecimal(t, "0", s.TotalRevenue)
	assertDecimal(t, "0", s.TotalProfit)
	assert.Equal(t, 0.0, s.OverallPaymentRate)
	assertDecimal(t, "0", s.OverallProfitMargin)
	assert.Empty(t, s.PerClient)
	assert.Len(t, s.Forecast, 3)
	assert.Empty(t, s.ExpiringSoon)
}

func TestSummarize_TotalRevenueIsExactSum(t *testing.T) {
	records := []models.ClientProject{
		project(1, "A", "0.10", "", models.InvoicePaid),
		project(2, "B", "0.20", "0.05", models.InvoiceUnpaid),
		project(3, "C", "0.30", "", models.InvoicePaid),
		project(4, "A", "1999.99", "1000", models.InvoicePaid),
	}
	s := Summarize(records, asOf)
	assertDecimal(t, "2000.59", s.TotalRevenue)
	assertDecimal(t, "1000.05", s.TotalProjectCosts)
	assertDecimal(t, "1000.54", s.TotalProfit)
	assert.Equal(t, 3, s.TotalClients)
	assert.Equal(t, 3, s.PaidProjects)
	assert.Equal(t, 1, s.UnpaidProjects)
	assertDecimal(t, "2000.39", s.PaidRevenue)
}

func TestSummarize_Idempotent(t *testing.T) {
	records := []models.ClientProject{
		project(1, "Acme", "1000", "400", models.InvoicePaid),
		project(2, "Acme", "500", "100", models.InvoiceUnpaid),
		project(3, "Globex", "750", "", models.InvoicePaid),
	}
	records[2].Deadline = day(2025, 12, 1)

	first := Summarize(records, asOf)
	second := Summarize(records, asOf)
	assert.Equal(t, first, second)
	assert.Equal(t, ForecastRevenue(records, asOf), ForecastRevenue(records, asOf))
	assert.Equal(t, AggregateLifetimeValue(records), AggregateLifetimeValue(records))
}

func TestSummarize_TopClientsAndPerClient(t *testing.T) {
	records := []models.ClientProject{
		project(1, "Small", "100", "", models.InvoicePaid),
		project(2, "Big", "900", "", models.InvoicePaid),
		project(3, "Big", "100", "", models.InvoicePaid),
		project(4, "Mid", "500", "", models.InvoiceUnpaid),
	}
	s := Summarize(records, asOf)
	assert.Equal(t, []string{"Big", "Mid", "Small"}, s.TopClients)

	big := s.PerClient["Big"]
	assert.Equal(t, 2, big.ProjectCount)
	assert.InDelta(t, 0.8, big.RenewalLikelihood, 1e-9)
	assert.Equal(t, models.OutlookHigh, big.RenewalOutlook)
	assert.Equal(t, 0.0, s.PerClient["Mid"].RenewalLikelihood)
}

func TestPredictRenewal_Bounds(t *testing.T) {
	for projects := 1; projects <= 20; projects++ {
		for paid := 0; paid <= projects; paid++ {
			score := renewalScore(paid, projects)
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 1.0)
		}
	}
	assert.Equal(t, 0.0, PredictRenewal("Nobody", nil).Likelihood)
}

func TestPredictRenewal_MonotoneInPaidCount(t *testing.T) {
	for projects := 1; projects <= 12; projects++ {
		for paid := 0; paid < projects; paid++ {
			assert.GreaterOrEqualf(t, renewalScore(paid+1, projects), renewalScore(paid, projects),
				"paid %d vs %d of %d", paid+1, paid, projects)
		}
	}
}

func TestPredictRenewal_MonotoneInProjectCount(t *testing.T) {
	for projects := 1; projects <= 8; projects++ {
		for paid := 0; paid <= projects; paid++ {
			for k := 2; k <= 4; k++ {
				assert.GreaterOrEqualf(t, renewalScore(paid*k, projects*k), renewalScore(paid, projects),
					"ratio %d/%d scaled by %d", paid, projects, k)
			}
		}
	}
}

func TestPredictRenewal_FromRecords(t *testing.T) {
	records := []models.ClientProject{
		project(1, "Acme", "10", "", models.InvoicePaid),
		project(2, "Acme", "10", "", models.InvoicePaid),
		project(3, "Acme", "10", "", models.InvoiceUnpaid),
	}
	p := PredictRenewal("Acme", records)
	assert.Equal(t, "Acme", p.ClientName)
	assert.InDelta(t, 0.6*2.0/3.0+0.4*2.0/3.0, p.Likelihood, 1e-9)
	assert.Equal(t, models.OutlookMedium, p.Outlook)
}

func TestForecastRevenue_ThreeFollowingMonths(t *testing.T) {
	points := ForecastRevenue([]models.ClientProject{project(1, "Acme", "1200", "", models.InvoicePaid)}, asOf)
	require.Len(t, points, 3)
	assert.Equal(t, "December 2025", points[0].Month)
	assert.Equal(t, "January 2026", points[1].Month)
	assert.Equal(t, "February 2026", points[2].Month)
}

func TestForecastRevenue_BaselineDecays(t *testing.T) {
	a := project(1, "Acme", "300", "", models.InvoicePaid)
	a.StartDate = day(2025, 1, 5)
	b := project(2, "Globex", "300", "", models.InvoiceUnpaid)
	b.StartDate = day(2025, 3, 28)

	points := ForecastRevenue([]models.ClientProject{a, b}, asOf)
	require.Len(t, points, 3)
	// 600 over Jan..Mar = 200 a month
	assertDecimal(t, "200", points[0].ProjectedRevenue)
	assertDecimal(t, "180", points[1].ProjectedRevenue)
	assertDecimal(t, "162", points[2].ProjectedRevenue)
	assert.Equal(t, "Low", points[0].Confidence)
}

func TestForecastRevenue_AddsExpectedRenewals(t *testing.T) {
	p := project(1, "Acme", "1000", "", models.InvoicePaid)
	p.StartDate = day(2025, 11, 1)
	p.Deadline = day(2025, 12, 20)

	points := ForecastRevenue([]models.ClientProject{p}, asOf)
	require.Len(t, points, 3)
	// baseline 1000 plus 1000 x 0.6 renewal likelihood
	assertDecimal(t, "1600", points[0].ProjectedRevenue)
	assert.Equal(t, 0.6, points[0].ExpectedRenewals)
	assert.Equal(t, "Medium", points[0].Confidence)
	assertDecimal(t, "900", points[1].ProjectedRevenue)
}

func TestForecastRevenue_NonNegativeAndFinite(t *testing.T) {
	inputs := [][]models.ClientProject{
		{project(1, "Acme", "0", "", models.InvoiceUnpaid)},
		{project(1, "Acme", "-500", "", models.InvoicePaid)},
		{project(1, "Acme", "12.34", "99", models.InvoicePaid), project(2, "B", "0.01", "", models.InvoiceUnpaid)},
	}
	undated := project(9, "Undated", "50", "", models.InvoicePaid)
	undated.StartDate = time.Time{}
	undated.Deadline = time.Time{}
	inputs = append(inputs, []models.ClientProject{undated})

	for _, records := range inputs {
		points := ForecastRevenue(records, asOf)
		require.Len(t, points, 3)
		for _, pt := range points {
			assert.False(t, pt.ProjectedRevenue.IsNegative(), "negative forecast %s", pt.ProjectedRevenue)
		}
	}
}

func TestExpiringSoon(t *testing.T) {
	soon := project(1, "Soon", "100", "20", models.InvoicePaid)
	soon.Deadline = day(2025, 11, 20)
	later := project(2, "Later", "200", "", models.InvoiceUnpaid)
	later.Deadline = day(2026, 1, 10)
	past := project(3, "Past", "300", "", models.InvoicePaid)
	past.Deadline = day(2025, 11, 1)
	far := project(4, "Far", "400", "", models.InvoicePaid)
	far.Deadline = day(2026, 6, 1)
	today := project(5, "Today", "10", "", models.InvoicePaid)
	today.Deadline = day(2025, 11, 15)

	got := ExpiringSoon([]models.ClientProject{later, past, soon, far, today}, asOf, ExpiryHorizonDays)
	require.Len(t, got, 3)
	assert.Equal(t, "Today", got[0].ClientName)
	assert.Equal(t, 0, got[0].DaysToExpiry)
	assert.Equal(t, "Soon", got[1].ClientName)
	assert.Equal(t, 5, got[1].DaysToExpiry)
	assertDecimal(t, "80", got[1].ProfitAtRisk)
	assert.Equal(t, "Later", got[2].ClientName)
	assert.Equal(t, 56, got[2].DaysToExpiry)

	s := Summarize([]models.ClientProject{later, past, soon, far, today}, asOf)
	assert.Equal(t, []string{"Today", "Soon"}, s.HighPriorityRenewals)
	assert.Len(t, s.ExpiringSoon, 3)
}
