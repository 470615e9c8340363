package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"client-manager/pkg/models"
)

const clientColumns = `id, client_name,
	COALESCE(client_email, '') AS client_email,
	COALESCE(client_phone, '') AS client_phone,
	COALESCE(billing_address, '') AS billing_address,
	COALESCE(website_url, '') AS website_url,
	start_date, deadline, cost, project_cost, invoice_status,
	COALESCE(custom_notes, '') AS custom_notes,
	COALESCE(tax_percent, 0) AS tax_percent,
	COALESCE(currency, '') AS currency,
	COALESCE(public_token, '') AS public_token,
	COALESCE(receipt_number, '') AS receipt_number,
	created_at, updated_at`

// ClientRepository persists client projects.
type ClientRepository struct {
	db  *DB
	now func() time.Time
}

func NewClientRepository(db *DB) *ClientRepository {
	return &ClientRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// ListAllClientProjects returns every project, newest first.
func (r *ClientRepository) ListAllClientProjects(ctx context.Context) ([]models.ClientProject, error) {
	out := []models.ClientProject{}
	q := `SELECT ` + clientColumns + ` FROM client_projects ORDER BY created_at DESC, id DESC`
	if err := r.db.SelectContext(ctx, &out, q); err != nil {
		return nil, fmt.Errorf("list client projects: %w", err)
	}
	return out, nil
}

// GetClientProject returns ErrNotFound when id does not exist.
func (r *ClientRepository) GetClientProject(ctx context.Context, id int64) (models.ClientProject, error) {
	var c models.ClientProject
	q := r.db.Rebind(`SELECT ` + clientColumns + ` FROM client_projects WHERE id = ?`)
	if err := r.db.GetContext(ctx, &c, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ClientProject{}, ErrNotFound
		}
		return models.ClientProject{}, fmt.Errorf("get client project %d: %w", id, err)
	}
	return c, nil
}

// CreateClientProject validates and inserts c, assigning a public token when missing.
func (r *ClientRepository) CreateClientProject(ctx context.Context, c models.ClientProject) (models.ClientProject, error) {
	if err := c.Validate(); err != nil {
		return models.ClientProject{}, err
	}
	if c.PublicToken == "" {
		c.PublicToken = uuid.NewString()
	}
	now := r.now()
	c.CreatedAt, c.UpdatedAt = now, now

	id, err := r.db.insert(ctx, `INSERT INTO client_projects
		(client_name, client_email, client_phone, billing_address, website_url,
		 start_date, deadline, cost, project_cost, invoice_status, custom_notes,
		 tax_percent, currency, public_token, receipt_number, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ClientName, c.ClientEmail, c.ClientPhone, c.BillingAddress, c.WebsiteURL,
		c.StartDate, c.Deadline, c.Cost, c.ProjectCost, string(c.InvoiceStatus), c.CustomNotes,
		c.TaxPercent, c.Currency, c.PublicToken, c.ReceiptNumber, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return models.ClientProject{}, fmt.Errorf("insert client project: %w", err)
	}
	c.ID = id
	return c, nil
}

// UpdateClientProject replaces every editable field of the project c.ID.
func (r *ClientRepository) UpdateClientProject(ctx context.Context, c models.ClientProject) (models.ClientProject, error) {
	if err := c.Validate(); err != nil {
		return models.ClientProject{}, err
	}
	c.UpdatedAt = r.now()
	err := r.db.execOne(ctx, `UPDATE client_projects SET
		client_name = ?, client_email = ?, client_phone = ?, billing_address = ?, website_url = ?,
		start_date = ?, deadline = ?, cost = ?, project_cost = ?, invoice_status = ?, custom_notes = ?,
		tax_percent = ?, currency = ?, receipt_number = ?, updated_at = ?
		WHERE id = ?`,
		c.ClientName, c.ClientEmail, c.ClientPhone, c.BillingAddress, c.WebsiteURL,
		c.StartDate, c.Deadline, c.Cost, c.ProjectCost, string(c.InvoiceStatus), c.CustomNotes,
		c.TaxPercent, c.Currency, c.ReceiptNumber, c.UpdatedAt,
		c.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.ClientProject{}, err
		}
		return models.ClientProject{}, fmt.Errorf("update client project %d: %w", c.ID, err)
	}
	return r.GetClientProject(ctx, c.ID)
}

// DeleteClientProject removes the project; its reminders go with it.
func (r *ClientRepository) DeleteClientProject(ctx context.Context, id int64) error {
	err := r.db.execOne(ctx, `DELETE FROM client_projects WHERE id = ?`, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete client project %d: %w", id, err)
	}
	return err
}
