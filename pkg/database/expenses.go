package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"client-manager/pkg/models"
)

const expenseColumns = `id, expense_name, amount, expense_date, category,
	COALESCE(description, '') AS description,
	COALESCE(receipt_url, '') AS receipt_url,
	is_tax_deductible, created_at, updated_at`

// ExpenseRepository persists business expenses.
type ExpenseRepository struct {
	db  *DB
	now func() time.Time
}

func NewExpenseRepository(db *DB) *ExpenseRepository {
	return &ExpenseRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// ListExpenses returns expenses, most recent expense date first.
func (r *ExpenseRepository) ListExpenses(ctx context.Context) ([]models.BusinessExpense, error) {
	out := []models.BusinessExpense{}
	q := `SELECT ` + expenseColumns + ` FROM business_expenses ORDER BY expense_date DESC, id DESC`
	if err := r.db.SelectContext(ctx, &out, q); err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return out, nil
}

func (r *ExpenseRepository) GetExpense(ctx context.Context, id int64) (models.BusinessExpense, error) {
	var e models.BusinessExpense
	q := r.db.Rebind(`SELECT ` + expenseColumns + ` FROM business_expenses WHERE id = ?`)
	if err := r.db.GetContext(ctx, &e, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.BusinessExpense{}, ErrNotFound
		}
		return models.BusinessExpense{}, fmt.Errorf("get expense %d: %w", id, err)
	}
	return e, nil
}

func (r *ExpenseRepository) CreateExpense(ctx context.Context, e models.BusinessExpense) (models.BusinessExpense, error) {
	if err := e.Validate(); err != nil {
		return models.BusinessExpense{}, err
	}
	now := r.now()
	e.CreatedAt, e.UpdatedAt = now, now
	id, err := r.db.insert(ctx, `INSERT INTO business_expenses
		(expense_name, amount, expense_date, category, description, receipt_url,
		 is_tax_deductible, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ExpenseName, e.Amount, e.ExpenseDate, e.Category, e.Description, e.ReceiptURL,
		e.IsTaxDeductible, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return models.BusinessExpense{}, fmt.Errorf("insert expense: %w", err)
	}
	e.ID = id
	return e, nil
}

func (r *ExpenseRepository) UpdateExpense(ctx context.Context, e models.BusinessExpense) (models.BusinessExpense, error) {
	if err := e.Validate(); err != nil {
		return models.BusinessExpense{}, err
	}
	e.UpdatedAt = r.now()
	err := r.db.execOne(ctx, `UPDATE business_expenses SET
		expense_name = ?, amount = ?, expense_date = ?, category = ?, description = ?,
		receipt_url = ?, is_tax_deductible = ?, updated_at = ?
		WHERE id = ?`,
		e.ExpenseName, e.Amount, e.ExpenseDate, e.Category, e.Description,
		e.ReceiptURL, e.IsTaxDeductible, e.UpdatedAt, e.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.BusinessExpense{}, err
		}
		return models.BusinessExpense{}, fmt.Errorf("update expense %d: %w", e.ID, err)
	}
	return r.GetExpense(ctx, e.ID)
}

func (r *ExpenseRepository) DeleteExpense(ctx context.Context, id int64) error {
	err := r.db.execOne(ctx, `DELETE FROM business_expenses WHERE id = ?`, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	return err
}
