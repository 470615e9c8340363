package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Money goes over the wire as a JSON number, not a quoted string.
	decimal.MarshalJSONWithoutQuotes = true
}

// ErrInvalidRecord is returned by Validate when a record breaks a data invariant.
var ErrInvalidRecord = errors.New("invalid record")

/*
LOAD → records as persisted by the client record store.
*/

// InvoiceStatus is the payment state of a client project.
type InvoiceStatus string

const (
	InvoicePaid   InvoiceStatus = "Paid"
	InvoiceUnpaid InvoiceStatus = "Unpaid"
)

// Valid reports whether s is one of the two known statuses.
func (s InvoiceStatus) Valid() bool {
	return s == InvoicePaid || s == InvoiceUnpaid
}

// DefaultCurrency is used when a record carries no currency override.
const DefaultCurrency = "GBP"

// ClientProject is one billable engagement. Clients have no entity of their own:
// they are identified by ClientName.
type ClientProject struct {
	ID             int64               `db:"id"`
	ClientName     string              `db:"client_name"`
	ClientEmail    string              `db:"client_email"`
	ClientPhone    string              `db:"client_phone"`
	BillingAddress string              `db:"billing_address"`
	WebsiteURL     string              `db:"website_url"`
	StartDate      time.Time           `db:"start_date"`
	Deadline       time.Time           `db:"deadline"`
	Cost           decimal.Decimal     `db:"cost"`         // billed price
	ProjectCost    decimal.NullDecimal `db:"project_cost"` // internal cost, optional
	InvoiceStatus  InvoiceStatus       `db:"invoice_status"`
	CustomNotes    string              `db:"custom_notes"`
	TaxPercent     decimal.Decimal     `db:"tax_percent"`
	Currency       string              `db:"currency"`
	PublicToken    string              `db:"public_token"`
	ReceiptNumber  string              `db:"receipt_number"`
	CreatedAt      time.Time           `db:"created_at"`
	UpdatedAt      time.Time           `db:"updated_at"`
}

// InternalCost returns the project cost, zero when absent.
func (c ClientProject) InternalCost() decimal.Decimal {
	if !c.ProjectCost.Valid {
		return decimal.Zero
	}
	return c.ProjectCost.Decimal
}

// IsPaid reports whether the invoice has been paid.
func (c ClientProject) IsPaid() bool {
	return c.InvoiceStatus == InvoicePaid
}

// CurrencyCode returns the record currency or the default one.
func (c ClientProject) CurrencyCode() string {
	if c.Currency == "" {
		return DefaultCurrency
	}
	return c.Currency
}

// CurrencySymbol returns the display symbol of a currency code, or the code itself
// followed by a space when unknown.
func CurrencySymbol(code string) string {
	switch strings.ToUpper(code) {
	case "", "GBP":
		return "£"
	case "USD", "CAD", "AUD":
		return "$"
	case "EUR":
		return "€"
	case "NGN":
		return "₦"
	default:
		return strings.ToUpper(code) + " "
	}
}

// Validate checks the record invariants. It is called once, where records enter the store.
func (c ClientProject) Validate() error {
	if strings.TrimSpace(c.ClientName) == "" {
		return fmt.Errorf("%w: clientName is required", ErrInvalidRecord)
	}
	if c.Cost.IsNegative() {
		return fmt.Errorf("%w: cost must be >= 0", ErrInvalidRecord)
	}
	if c.ProjectCost.Valid && c.ProjectCost.Decimal.IsNegative() {
		return fmt.Errorf("%w: projectCost must be >= 0", ErrInvalidRecord)
	}
	if !c.InvoiceStatus.Valid() {
		return fmt.Errorf("%w: invoiceStatus must be %q or %q", ErrInvalidRecord, InvoicePaid, InvoiceUnpaid)
	}
	if c.TaxPercent.IsNegative() {
		return fmt.Errorf("%w: taxPercent must be >= 0", ErrInvalidRecord)
	}
	return nil
}

// BusinessExpense is an overhead cost not tied to a client project.
type BusinessExpense struct {
	ID              int64           `db:"id"`
	ExpenseName     string          `db:"expense_name"`
	Amount          decimal.Decimal `db:"amount"`
	ExpenseDate     time.Time       `db:"expense_date"`
	Category        string          `db:"category"`
	Description     string          `db:"description"`
	ReceiptURL      string          `db:"receipt_url"`
	IsTaxDeductible bool            `db:"is_tax_deductible"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

// Validate checks the expense invariants.
func (e BusinessExpense) Validate() error {
	if strings.TrimSpace(e.ExpenseName) == "" {
		return fmt.Errorf("%w: expenseName is required", ErrInvalidRecord)
	}
	if strings.TrimSpace(e.Category) == "" {
		return fmt.Errorf("%w: category is required", ErrInvalidRecord)
	}
	if e.Amount.IsNegative() {
		return fmt.Errorf("%w: amount must be >= 0", ErrInvalidRecord)
	}
	if e.ExpenseDate.IsZero() {
		return fmt.Errorf("%w: expenseDate is required", ErrInvalidRecord)
	}
	return nil
}

// ReminderType names the renewal window a reminder was sent for.
type ReminderType string

const (
	Reminder60Day ReminderType = "60_day"
	Reminder30Day ReminderType = "30_day"
	Reminder7Day  ReminderType = "7_day"
)

// Reminder delivery states.
const (
	ReminderSent   = "sent"
	ReminderFailed = "failed"
)

// ClientReminder records that a renewal reminder was produced for a project.
type ClientReminder struct {
	ID             int64        `db:"id" json:"id"`
	ClientID       int64        `db:"client_id" json:"client_id"`
	ClientName     string       `db:"client_name" json:"client_name"`
	ReminderType   ReminderType `db:"reminder_type" json:"reminder_type"`
	SentDate       time.Time    `db:"sent_date" json:"sent_date"`
	MessageContent string       `db:"message_content" json:"message_content"`
	Status         string       `db:"status" json:"status"`
}

// ReminderStats summarises reminder history.
type ReminderStats struct {
	TotalSent    int             `json:"total_reminders_sent"`
	RecentSent   int             `json:"recent_reminders_30_days"`
	Pending      int             `json:"pending_reminders"`
	CountsByType []ReminderCount `json:"reminder_breakdown"`
}

// ReminderCount is the number of reminders of one type.
type ReminderCount struct {
	Type  ReminderType `db:"reminder_type" json:"type"`
	Count int          `db:"count" json:"count"`
}

/*
COMPUTE → derived entities, rebuilt from a snapshot on every request.
*/

// ProfitRecord is the profit of a single project. MarginPct is a ratio of cost.
type ProfitRecord struct {
	ClientProjectID int64           `json:"clientProjectId"`
	Profit          decimal.Decimal `json:"profit"`
	MarginPct       decimal.Decimal `json:"marginPct"`
}

// ClientLifetimeValue aggregates every project sharing a client name.
type ClientLifetimeValue struct {
	TotalRevenue     decimal.Decimal `json:"totalRevenue"`
	TotalProfit      decimal.Decimal `json:"totalProfit"`
	ProjectCount     int             `json:"projectCount"`
	PaidProjectCount int             `json:"paidProjectCount"`
	AvgProjectValue  decimal.Decimal `json:"avgProjectValue"`
	AvgProfitMargin  decimal.Decimal `json:"avgProfitMargin"`
	FirstProject     time.Time       `json:"firstProject"`
	LastProject      time.Time       `json:"lastProject"`
}

// RenewalOutlook buckets a renewal likelihood for display.
type RenewalOutlook string

const (
	OutlookHigh   RenewalOutlook = "High"
	OutlookMedium RenewalOutlook = "Medium"
	OutlookLow    RenewalOutlook = "Low"
)

// RenewalPrediction is a deterministic score in [0,1].
type RenewalPrediction struct {
	ClientName string         `json:"clientName"`
	Likelihood float64        `json:"likelihood"`
	Outlook    RenewalOutlook `json:"outlook"`
}

// ClientMetrics is the per-client entry of the analytics payload.
type ClientMetrics struct {
	ClientLifetimeValue
	RenewalLikelihood float64        `json:"renewalLikelihood"`
	RenewalOutlook    RenewalOutlook `json:"renewalOutlook"`
}

// ForecastPoint is the projected revenue of one calendar month.
type ForecastPoint struct {
	Month            string          `json:"month"`
	ProjectedRevenue decimal.Decimal `json:"projectedRevenue"`
	ExpectedRenewals float64         `json:"expectedRenewals"`
	Confidence       string          `json:"confidence"`
}

// ExpiringProject is a project whose deadline falls inside the renewal horizon.
type ExpiringProject struct {
	ClientProjectID   int64           `json:"clientProjectId"`
	ClientName        string          `json:"clientName"`
	DaysToExpiry      int             `json:"daysToExpiry"`
	RevenueAtRisk     decimal.Decimal `json:"revenueAtRisk"`
	ProfitAtRisk      decimal.Decimal `json:"profitAtRisk"`
	RenewalLikelihood float64         `json:"renewalLikelihood"`
}

// AnalyticsSummary is the full analytics payload.
type AnalyticsSummary struct {
	TotalClients       int                      `json:"totalClients"`
	TotalRevenue       decimal.Decimal          `json:"totalRevenue"`
	TotalProfit        decimal.Decimal          `json:"totalProfit"`
	OverallPaymentRate float64                  `json:"overallPaymentRate"`
	PerClient          map[string]ClientMetrics `json:"perClient"`
	Forecast           []ForecastPoint          `json:"forecast"`

	TotalProjectCosts   decimal.Decimal `json:"totalProjectCosts"`
	OverallProfitMargin decimal.Decimal `json:"overallProfitMargin"`
	PaidRevenue         decimal.Decimal `json:"paidRevenue"`
	PaidProfit          decimal.Decimal `json:"paidProfit"`
	TotalProjects       int             `json:"totalProjects"`
	PaidProjects        int             `json:"paidProjects"`
	UnpaidProjects      int             `json:"unpaidProjects"`
	AvgProjectValue     decimal.Decimal `json:"avgProjectValue"`
	AvgProfitPerProject decimal.Decimal `json:"avgProfitPerProject"`

	ExpiringSoon         []ExpiringProject `json:"expiringSoon"`
	HighPriorityRenewals []string          `json:"highPriorityRenewals"`
	TopClients           []string          `json:"topClients"`
	AsOf                 time.Time         `json:"asOf"`
}

// MonthlyRevenue groups projects by the month they started.
type MonthlyRevenue struct {
	MonthYear    string // "MM/YYYY"
	Revenue      decimal.Decimal
	Profit       decimal.Decimal
	ProjectCount int
	PaidCount    int
}

// ClientReportRow is one line of the per-client report.
type ClientReportRow struct {
	ClientName string
	ClientMetrics
}

// Report is the result of a report run.
type Report struct {
	Months  []MonthlyRevenue
	Clients []ClientReportRow
	Summary AnalyticsSummary
}

/*
CONFIG → report parameters
*/

// Config holds the parameters of a report run.
type Config struct {
	StartMonthInclusive string    // "MMYYYY", empty = first project month
	EndMonthInclusive   string    // "MMYYYY", empty = last project month
	Observation         time.Time // as-of date for forecasts and renewals
	Verbose             bool
}
