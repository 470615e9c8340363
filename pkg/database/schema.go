package database

import (
	"context"
	"fmt"
)

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS client_projects (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		client_name VARCHAR(255) NOT NULL,
		client_email VARCHAR(255),
		client_phone VARCHAR(255),
		billing_address TEXT,
		website_url VARCHAR(500),
		start_date DATE NOT NULL,
		deadline DATE NOT NULL,
		cost DECIMAL(10,2) NOT NULL,
		project_cost DECIMAL(10,2),
		invoice_status VARCHAR(20) NOT NULL,
		custom_notes TEXT,
		tax_percent DECIMAL(5,2),
		currency VARCHAR(10),
		public_token VARCHAR(255),
		receipt_number VARCHAR(255),
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		INDEX idx_client_projects_name (client_name),
		INDEX idx_client_projects_deadline (deadline)
	)`,
	`CREATE TABLE IF NOT EXISTS business_expenses (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		expense_name VARCHAR(255) NOT NULL,
		amount DECIMAL(10,2) NOT NULL,
		expense_date DATE NOT NULL,
		category VARCHAR(100) NOT NULL,
		description TEXT,
		receipt_url VARCHAR(500),
		is_tax_deductible BOOLEAN NOT NULL DEFAULT TRUE,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS client_reminders (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		client_id BIGINT NOT NULL,
		reminder_type VARCHAR(20) NOT NULL,
		sent_date DATETIME NOT NULL,
		message_content TEXT,
		status VARCHAR(20) NOT NULL DEFAULT 'sent',
		INDEX idx_client_reminders_client (client_id, reminder_type),
		CONSTRAINT fk_client_reminders_client FOREIGN KEY (client_id)
			REFERENCES client_projects(id) ON DELETE CASCADE
	)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS client_projects (
		id BIGSERIAL PRIMARY KEY,
		client_name VARCHAR(255) NOT NULL,
		client_email VARCHAR(255),
		client_phone VARCHAR(255),
		billing_address TEXT,
		website_url VARCHAR(500),
		start_date DATE NOT NULL,
		deadline DATE NOT NULL,
		cost NUMERIC(10,2) NOT NULL,
		project_cost NUMERIC(10,2),
		invoice_status VARCHAR(20) NOT NULL,
		custom_notes TEXT,
		tax_percent NUMERIC(5,2),
		currency VARCHAR(10),
		public_token VARCHAR(255),
		receipt_number VARCHAR(255),
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_client_projects_name ON client_projects (client_name)`,
	`CREATE INDEX IF NOT EXISTS idx_client_projects_deadline ON client_projects (deadline)`,
	`CREATE TABLE IF NOT EXISTS business_expenses (
		id BIGSERIAL PRIMARY KEY,
		expense_name VARCHAR(255) NOT NULL,
		amount NUMERIC(10,2) NOT NULL,
		expense_date DATE NOT NULL,
		category VARCHAR(100) NOT NULL,
		description TEXT,
		receipt_url VARCHAR(500),
		is_tax_deductible BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS client_reminders (
		id BIGSERIAL PRIMARY KEY,
		client_id BIGINT NOT NULL REFERENCES client_projects(id) ON DELETE CASCADE,
		reminder_type VARCHAR(20) NOT NULL,
		sent_date TIMESTAMPTZ NOT NULL,
		message_content TEXT,
		status VARCHAR(20) NOT NULL DEFAULT 'sent'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_client_reminders_client ON client_reminders (client_id, reminder_type)`,
}

// EnsureSchema creates the tables when they do not exist yet. It never alters existing ones.
func (db *DB) EnsureSchema(ctx context.Context) error {
	stmts := mysqlSchema
	if db.isPostgres() {
		stmts = postgresSchema
	}
	for i, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
