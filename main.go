package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"client-manager/pkg/calculator"
	"client-manager/pkg/database"
	"client-manager/pkg/logging"
	"client-manager/pkg/models"
)

func defaultDSN() string {
	if v := os.Getenv("CLIENT_MANAGER_DATABASE_DSN"); v != "" {
		return v
	}
	return os.Getenv("DATABASE_URL")
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	dsn := flag.String("dsn", defaultDSN(), "database DSN (mysql://, mariadb://, postgres:// or native MySQL)")
	startMonth := flag.String("start_month", "", "first month (MMYYYY), defaults to the first project month")
	endMonth := flag.String("end_month", "", "last month (MMYYYY), defaults to the last project month")
	asOf := flag.String("as_of", "", "as-of date (YYYY-MM-DD) for forecasts and renewals, defaults to today")
	verbose := flag.Bool("v", true, "verbose output")
	flag.Parse()

	if *dsn == "" {
		log.Fatalf("Usage: client-manager-report --dsn ... [--start_month MMYYYY] [--end_month MMYYYY] [--as_of YYYY-MM-DD]")
	}

	now := time.Now().UTC()
	obs := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if *asOf != "" {
		t, err := time.Parse("2006-01-02", *asOf)
		if err != nil {
			log.Fatalf("invalid --as_of %q: %v", *asOf, err)
		}
		obs = t
	}

	logger := zap.NewNop()
	if *verbose {
		l, err := logging.New("client-manager-report", "info", logging.FormatConsole)
		if err != nil {
			log.Fatalf("init logger: %v", err)
		}
		logger = l
		defer func() { _ = logger.Sync() }()
	}

	db, _, err := database.Open(*dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()
	if *verbose {
		log.Printf("[INFO] connected driver=%s", db.DriverName())
	}

	ctx := context.Background()
	report, err := calculator.Run(ctx, database.NewClientRepository(db), models.Config{
		StartMonthInclusive: *startMonth,
		EndMonthInclusive:   *endMonth,
		Observation:         obs,
		Verbose:             *verbose,
	}, logger)
	if err != nil {
		log.Fatalf("compute: %v", err)
	}

	// MM/YYYY ; revenue ; profit ; projects ; paid
	for _, m := range report.Months {
		fmt.Printf("%s ; %s ; %s ; projects=%d ; paid=%d\n",
			m.MonthYear, m.Revenue.StringFixed(2), m.Profit.StringFixed(2), m.ProjectCount, m.PaidCount)
	}

	// client ; lifetime revenue ; lifetime profit ; projects ; renewal
	for _, c := range report.Clients {
		fmt.Printf("%s ; %s ; %s ; projects=%d ; paid=%d ; renewal=%.2f (%s)\n",
			c.ClientName, c.TotalRevenue.StringFixed(2), c.TotalProfit.StringFixed(2),
			c.ProjectCount, c.PaidProjectCount, c.RenewalLikelihood, c.RenewalOutlook)
	}

	s := report.Summary
	fmt.Printf("TOTAL ; clients=%d ; revenue=%s ; profit=%s ; payment_rate=%.2f\n",
		s.TotalClients, s.TotalRevenue.StringFixed(2), s.TotalProfit.StringFixed(2), s.OverallPaymentRate)
	for _, f := range s.Forecast {
		fmt.Printf("FORECAST %s ; %s ; %s\n", f.Month, f.ProjectedRevenue.StringFixed(2), f.Confidence)
	}
}
