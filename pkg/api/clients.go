package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"client-manager/pkg/calculator"
	"client-manager/pkg/models"
)

const dateLayout = "2006-01-02"

var hundred = decimal.NewFromInt(100)

// clientJSON is the wire form of a client project.
type clientJSON struct {
	ID             int64                `json:"id"`
	ClientName     string               `json:"clientName"`
	ClientEmail    string               `json:"clientEmail"`
	ClientPhone    string               `json:"clientPhone"`
	BillingAddress string               `json:"billingAddress"`
	WebsiteURL     string               `json:"websiteUrl"`
	StartDate      string               `json:"startDate"`
	Deadline       string               `json:"deadline"`
	Cost           decimal.Decimal      `json:"cost"`
	ProjectCost    decimal.NullDecimal  `json:"projectCost"`
	ProfitMargin   decimal.Decimal      `json:"profitMargin"`
	InvoiceStatus  models.InvoiceStatus `json:"invoiceStatus"`
	CustomNotes    string               `json:"customNotes"`
	TaxPercent     decimal.Decimal      `json:"taxPercent"`
	Currency       string               `json:"currency"`
	ReceiptNumber  string               `json:"receiptNumber,omitempty"`
	PublicToken    string               `json:"publicToken,omitempty"`
}

func toClientJSON(p models.ClientProject) clientJSON {
	margin := calculator.ComputeProfit(p).MarginPct.Mul(hundred).Round(2)
	return clientJSON{
		ID:             p.ID,
		ClientName:     p.ClientName,
		ClientEmail:    p.ClientEmail,
		ClientPhone:    p.ClientPhone,
		BillingAddress: p.BillingAddress,
		WebsiteURL:     p.WebsiteURL,
		StartDate:      p.StartDate.Format(dateLayout),
		Deadline:       p.Deadline.Format(dateLayout),
		Cost:           p.Cost,
		ProjectCost:    p.ProjectCost,
		ProfitMargin:   margin,
		InvoiceStatus:  p.InvoiceStatus,
		CustomNotes:    p.CustomNotes,
		TaxPercent:     p.TaxPercent,
		Currency:       p.CurrencyCode(),
		ReceiptNumber:  p.ReceiptNumber,
		PublicToken:    p.PublicToken,
	}
}

// clientRequest is the body of create and update calls.
type clientRequest struct {
	ClientName     string               `json:"clientName"`
	ClientEmail    string               `json:"clientEmail"`
	ClientPhone    string               `json:"clientPhone"`
	BillingAddress string               `json:"billingAddress"`
	WebsiteURL     string               `json:"websiteUrl"`
	StartDate      string               `json:"startDate"`
	Deadline       string               `json:"deadline"`
	Cost           decimal.NullDecimal  `json:"cost"`
	ProjectCost    decimal.NullDecimal  `json:"projectCost"`
	InvoiceStatus  models.InvoiceStatus `json:"invoiceStatus"`
	CustomNotes    string               `json:"customNotes"`
	TaxPercent     decimal.Decimal      `json:"taxPercent"`
	Currency       string               `json:"currency"`
	ReceiptNumber  string               `json:"receiptNumber"`
}

func (req clientRequest) toModel() (models.ClientProject, error) {
	start, err := parseDate("startDate", req.StartDate)
	if err != nil {
		return models.ClientProject{}, err
	}
	deadline, err := parseDate("deadline", req.Deadline)
	if err != nil {
		return models.ClientProject{}, err
	}
	if !req.Cost.Valid {
		return models.ClientProject{}, fmt.Errorf("%w: cost is required", errBadRequest)
	}
	status := req.InvoiceStatus
	if status == "" {
		status = models.InvoiceUnpaid
	}
	return models.ClientProject{
		ClientName:     strings.TrimSpace(req.ClientName),
		ClientEmail:    strings.TrimSpace(req.ClientEmail),
		ClientPhone:    strings.TrimSpace(req.ClientPhone),
		BillingAddress: req.BillingAddress,
		WebsiteURL:     strings.TrimSpace(req.WebsiteURL),
		StartDate:      start,
		Deadline:       deadline,
		Cost:           req.Cost.Decimal,
		ProjectCost:    req.ProjectCost,
		InvoiceStatus:  status,
		CustomNotes:    req.CustomNotes,
		TaxPercent:     req.TaxPercent,
		Currency:       strings.ToUpper(strings.TrimSpace(req.Currency)),
		ReceiptNumber:  strings.TrimSpace(req.ReceiptNumber),
	}, nil
}

// parseDate accepts YYYY-MM-DD or a full RFC 3339 timestamp.
func parseDate(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: %s is required", errBadRequest, field)
	}
	if t, err := time.Parse(dateLayout, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be a YYYY-MM-DD date", errBadRequest, field)
	}
	return t.UTC(), nil
}

func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	projects, err := s.clients.ListAllClientProjects(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]clientJSON, 0, len(projects))
	for _, p := range projects {
		out = append(out, toClientJSON(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := req.toModel()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	created, err := s.clients.CreateClientProject(r.Context(), p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.analytics.Invalidate(r.Context())
	writeJSON(w, http.StatusCreated, toClientJSON(created))
}

func (s *Server) handleUpdateClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req clientRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := req.toModel()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	p.ID = id
	updated, err := s.clients.UpdateClientProject(r.Context(), p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.analytics.Invalidate(r.Context())
	writeJSON(w, http.StatusOK, toClientJSON(updated))
}

func (s *Server) handleDeleteClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.clients.DeleteClientProject(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	s.analytics.Invalidate(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"message": "Client deleted successfully"})
}
