package calculator

import (
	"context"
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"client-manager/pkg/models"
)

// ClientSource is the read boundary of the engine. Implementations return a consistent
// snapshot of every client project at call time.
type ClientSource interface {
	ListAllClientProjects(ctx context.Context) ([]models.ClientProject, error)
}

// Run loads a snapshot from src and builds the monthly revenue table for the configured
// window, the per-client table and the overall summary.
func Run(ctx context.Context, src ClientSource, cfg models.Config, logger *zap.Logger) (models.Report, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	records, err := src.ListAllClientProjects(ctx)
	if err != nil {
		return models.Report{}, fmt.Errorf("load snapshot: %w", err)
	}

	asOf := cfg.Observation
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	start, end, err := reportWindow(records, cfg)
	if err != nil {
		return models.Report{}, err
	}

	var months []time.Time
	if !start.IsZero() {
		months = monthsBetweenInclusive(start, end)
	}

	bar := progressbar.DefaultSilent(int64(len(months)))
	if cfg.Verbose {
		bar = progressbar.Default(int64(len(months)))
	}

	byMonth := make(map[time.Time][]models.ClientProject)
	for _, r := range records {
		if r.StartDate.IsZero() {
			continue
		}
		m := monthStart(r.StartDate)
		byMonth[m] = append(byMonth[m], r)
	}

	report := models.Report{Months: make([]models.MonthlyRevenue, 0, len(months))}
	for _, m := range months {
		if err := ctx.Err(); err != nil {
			return models.Report{}, err
		}
		row := monthlyRevenue(m, byMonth[m])
		report.Months = append(report.Months, row)

		_ = bar.Add(1)
		if cfg.Verbose {
			logger.Info("month computed",
				zap.String("month", row.MonthYear),
				zap.String("revenue", row.Revenue.StringFixed(2)),
				zap.String("profit", row.Profit.StringFixed(2)),
				zap.Int("projects", row.ProjectCount),
				zap.Int("paid", row.PaidCount))
		}
	}

	report.Summary = Summarize(records, asOf)
	report.Clients = clientRows(report.Summary.PerClient)
	return report, nil
}

// reportWindow resolves the month range, defaulting to the months spanned by the records.
func reportWindow(records []models.ClientProject, cfg models.Config) (time.Time, time.Time, error) {
	var start, end time.Time
	for _, r := range records {
		if r.StartDate.IsZero() {
			continue
		}
		if start.IsZero() || r.StartDate.Before(start) {
			start = r.StartDate
		}
		if end.IsZero() || r.StartDate.After(end) {
			end = r.StartDate
		}
	}

	var err error
	if cfg.StartMonthInclusive != "" {
		if start, err = parseMonth(cfg.StartMonthInclusive); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("start_month: %w", err)
		}
	}
	if cfg.EndMonthInclusive != "" {
		if end, err = parseMonth(cfg.EndMonthInclusive); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("end_month: %w", err)
		}
	}
	if start.IsZero() || end.IsZero() {
		return time.Time{}, time.Time{}, nil
	}
	start, end = monthStart(start), monthStart(end)
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end_month < start_month")
	}
	return start, end, nil
}

func monthlyRevenue(month time.Time, records []models.ClientProject) models.MonthlyRevenue {
	row := models.MonthlyRevenue{
		MonthYear: formatMonth(month),
		Revenue:   decimal.Zero,
		Profit:    decimal.Zero,
	}
	for _, r := range records {
		row.Revenue = row.Revenue.Add(r.Cost)
		row.Profit = row.Profit.Add(ComputeProfit(r).Profit)
		row.ProjectCount++
		if r.IsPaid() {
			row.PaidCount++
		}
	}
	return row
}

func clientRows(perClient map[string]models.ClientMetrics) []models.ClientReportRow {
	names := topClients(perClient, len(perClient))
	rows := make([]models.ClientReportRow, 0, len(names))
	for _, name := range names {
		rows = append(rows, models.ClientReportRow{ClientName: name, ClientMetrics: perClient[name]})
	}
	return rows
}
