package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"client-manager/pkg/models"
)

type expenseJSON struct {
	ID              int64           `json:"id"`
	ExpenseName     string          `json:"expenseName"`
	Amount          decimal.Decimal `json:"amount"`
	ExpenseDate     string          `json:"expenseDate"`
	Category        string          `json:"category"`
	Description     string          `json:"description"`
	ReceiptURL      string          `json:"receiptUrl"`
	IsTaxDeductible bool            `json:"isTaxDeductible"`
	CreatedAt       time.Time       `json:"createdAt"`
}

func toExpenseJSON(e models.BusinessExpense) expenseJSON {
	return expenseJSON{
		ID:              e.ID,
		ExpenseName:     e.ExpenseName,
		Amount:          e.Amount,
		ExpenseDate:     e.ExpenseDate.Format(dateLayout),
		Category:        e.Category,
		Description:     e.Description,
		ReceiptURL:      e.ReceiptURL,
		IsTaxDeductible: e.IsTaxDeductible,
		CreatedAt:       e.CreatedAt,
	}
}

type expenseRequest struct {
	ExpenseName     string          `json:"expenseName"`
	Amount          decimal.Decimal `json:"amount"`
	ExpenseDate     string          `json:"expenseDate"`
	Category        string          `json:"category"`
	Description     string          `json:"description"`
	ReceiptURL      string          `json:"receiptUrl"`
	IsTaxDeductible *bool           `json:"isTaxDeductible"`
}

func (req expenseRequest) toModel() (models.BusinessExpense, error) {
	date, err := parseDate("expenseDate", req.ExpenseDate)
	if err != nil {
		return models.BusinessExpense{}, err
	}
	deductible := true
	if req.IsTaxDeductible != nil {
		deductible = *req.IsTaxDeductible
	}
	return models.BusinessExpense{
		ExpenseName:     strings.TrimSpace(req.ExpenseName),
		Amount:          req.Amount,
		ExpenseDate:     date,
		Category:        strings.TrimSpace(req.Category),
		Description:     req.Description,
		ReceiptURL:      strings.TrimSpace(req.ReceiptURL),
		IsTaxDeductible: deductible,
	}, nil
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.expenses.ListExpenses(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]expenseJSON, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toExpenseJSON(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	e, err := s.decodeExpense(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	created, err := s.expenses.CreateExpense(r.Context(), e)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toExpenseJSON(created))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	e, err := s.decodeExpense(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	e.ID = id
	updated, err := s.expenses.UpdateExpense(r.Context(), e)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseJSON(updated))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.expenses.DeleteExpense(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Expense deleted successfully"})
}

func (s *Server) decodeExpense(w http.ResponseWriter, r *http.Request) (models.BusinessExpense, error) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return models.BusinessExpense{}, err
	}
	return req.toModel()
}
