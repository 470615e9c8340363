package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProject() ClientProject {
	return ClientProject{
		ClientName:    "Acme",
		StartDate:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Deadline:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Cost:          decimal.NewFromInt(1000),
		InvoiceStatus: InvoiceUnpaid,
	}
}

func TestClientProject_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ClientProject)
		ok     bool
	}{
		{"valid", func(*ClientProject) {}, true},
		{"zero cost", func(p *ClientProject) { p.Cost = decimal.Zero }, true},
		{"blank name", func(p *ClientProject) { p.ClientName = "  " }, false},
		{"negative cost", func(p *ClientProject) { p.Cost = decimal.NewFromInt(-1) }, false},
		{"negative project cost", func(p *ClientProject) {
			p.ProjectCost = decimal.NewNullDecimal(decimal.NewFromInt(-5))
		}, false},
		{"unknown status", func(p *ClientProject) { p.InvoiceStatus = "Pending" }, false},
		{"negative tax", func(p *ClientProject) { p.TaxPercent = decimal.NewFromInt(-20) }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validProject()
			tt.mutate(&p)
			err := p.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidRecord)
			}
		})
	}
}

func TestBusinessExpense_Validate(t *testing.T) {
	e := BusinessExpense{
		ExpenseName: "Hosting",
		Amount:      decimal.RequireFromString("12.50"),
		ExpenseDate: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		Category:    "Infrastructure",
	}
	require.NoError(t, e.Validate())

	missingDate := e
	missingDate.ExpenseDate = time.Time{}
	assert.ErrorIs(t, missingDate.Validate(), ErrInvalidRecord)

	negative := e
	negative.Amount = decimal.NewFromInt(-1)
	assert.ErrorIs(t, negative.Validate(), ErrInvalidRecord)
}

func TestClientProject_Helpers(t *testing.T) {
	p := validProject()
	assert.True(t, p.InternalCost().IsZero())
	assert.False(t, p.IsPaid())
	assert.Equal(t, DefaultCurrency, p.CurrencyCode())

	p.ProjectCost = decimal.NewNullDecimal(decimal.NewFromInt(300))
	p.InvoiceStatus = InvoicePaid
	p.Currency = "EUR"
	assert.Equal(t, "300", p.InternalCost().String())
	assert.True(t, p.IsPaid())
	assert.Equal(t, "EUR", p.CurrencyCode())
}

func TestCurrencySymbol(t *testing.T) {
	assert.Equal(t, "£", CurrencySymbol(""))
	assert.Equal(t, "£", CurrencySymbol("GBP"))
	assert.Equal(t, "$", CurrencySymbol("usd"))
	assert.Equal(t, "€", CurrencySymbol("EUR"))
	assert.Equal(t, "₦", CurrencySymbol("NGN"))
	assert.Equal(t, "CHF ", CurrencySymbol("chf"))
}

func TestDecimalMarshalsAsNumber(t *testing.T) {
	b, err := json.Marshal(ProfitRecord{ClientProjectID: 1, Profit: decimal.RequireFromString("400.50"), MarginPct: decimal.RequireFromString("0.4")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"clientProjectId":1,"profit":400.5,"marginPct":0.4}`, string(b))
}
