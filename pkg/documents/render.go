package documents

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"client-manager/pkg/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var hundred = decimal.NewFromInt(100)

// Business is printed in document headers and footers.
type Business struct {
	Name    string
	Contact string
	Phone   string
	Email   string
	Address string
}

// Totals are the money lines of an invoice or receipt.
type Totals struct {
	Subtotal   decimal.Decimal
	TaxPercent decimal.Decimal
	Tax        decimal.Decimal
	Total      decimal.Decimal
}

// ComputeTotals applies the project's tax percent to its billed cost.
func ComputeTotals(p models.ClientProject) Totals {
	t := Totals{
		Subtotal:   p.Cost,
		TaxPercent: p.TaxPercent,
		Tax:        decimal.Zero,
	}
	if p.TaxPercent.IsPositive() {
		t.Tax = p.Cost.Mul(p.TaxPercent).Div(hundred).Round(2)
	}
	t.Total = t.Subtotal.Add(t.Tax)
	return t
}

// Renderer produces invoice and receipt HTML pages.
type Renderer struct {
	business Business
	tpl      *template.Template
	md       goldmark.Markdown
	now      func() time.Time
}

func NewRenderer(b Business) (*Renderer, error) {
	tpl, err := template.New("documents").Funcs(templateFunctions()).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse document templates: %w", err)
	}
	return &Renderer{
		business: b,
		tpl:      tpl,
		md:       goldmark.New(goldmark.WithExtensions(extension.Linkify, extension.Strikethrough)),
		now:      time.Now,
	}, nil
}

type documentData struct {
	Number     string
	Date       time.Time
	Project    models.ClientProject
	Currency   string
	Totals     Totals
	BalanceDue decimal.Decimal
	Receipt    bool
	Notes      template.HTML
	Business   Business
}

// Invoice writes the invoice page of p.
func (r *Renderer) Invoice(w io.Writer, p models.ClientProject) error {
	data, err := r.data(p)
	if err != nil {
		return err
	}
	if !p.IsPaid() {
		data.BalanceDue = data.Totals.Total
	}
	return r.execute(w, "invoice.html", data)
}

// Receipt writes the receipt page of p, or a "not available" page when the
// invoice has not been paid. It reports whether a receipt was produced.
func (r *Renderer) Receipt(w io.Writer, p models.ClientProject) (bool, error) {
	if !p.IsPaid() {
		return false, r.execute(w, "unavailable.html", p)
	}
	data, err := r.data(p)
	if err != nil {
		return false, err
	}
	data.Receipt = true
	if err := r.execute(w, "receipt.html", data); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Renderer) data(p models.ClientProject) (documentData, error) {
	notes, err := r.renderNotes(p.CustomNotes)
	if err != nil {
		return documentData{}, err
	}
	number := p.ReceiptNumber
	if number == "" {
		number = fmt.Sprintf("%04d", p.ID)
	}
	return documentData{
		Number:     number,
		Date:       r.now(),
		Project:    p,
		Currency:   p.CurrencyCode(),
		Totals:     ComputeTotals(p),
		BalanceDue: decimal.Zero,
		Notes:      notes,
		Business:   r.business,
	}, nil
}

// renderNotes converts markdown notes to HTML. Raw HTML in the notes is not passed through.
func (r *Renderer) renderNotes(notes string) (template.HTML, error) {
	if notes == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(notes), &buf); err != nil {
		return "", fmt.Errorf("render notes: %w", err)
	}
	return template.HTML(buf.String()), nil
}

func (r *Renderer) execute(w io.Writer, name string, data any) error {
	// Render to a buffer first so a template error never leaves a half-written page.
	var buf bytes.Buffer
	if err := r.tpl.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

func templateFunctions() template.FuncMap {
	return template.FuncMap{
		"formatCurrency": formatCurrency,
		"formatDate": func(date time.Time) string {
			return date.Format("January 02, 2006")
		},
		"formatPercent": func(rate decimal.Decimal) string {
			return rate.StringFixed(1) + "%"
		},
	}
}

func formatCurrency(amount decimal.Decimal, currency string) string {
	return models.CurrencySymbol(currency) + amount.StringFixed(2)
}
