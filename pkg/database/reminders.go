package database

import (
	"context"
	"fmt"
	"time"

	"client-manager/pkg/models"
)

// ReminderRepository persists the reminder log.
type ReminderRepository struct {
	db *DB
}

func NewReminderRepository(db *DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

// RecordReminder appends one entry to the reminder log.
func (r *ReminderRepository) RecordReminder(ctx context.Context, rem models.ClientReminder) (models.ClientReminder, error) {
	if rem.Status == "" {
		rem.Status = models.ReminderSent
	}
	id, err := r.db.insert(ctx, `INSERT INTO client_reminders
		(client_id, reminder_type, sent_date, message_content, status)
		VALUES (?, ?, ?, ?, ?)`,
		rem.ClientID, string(rem.ReminderType), rem.SentDate, rem.MessageContent, rem.Status)
	if err != nil {
		return models.ClientReminder{}, fmt.Errorf("insert reminder for client %d: %w", rem.ClientID, err)
	}
	rem.ID = id
	return rem, nil
}

// SentReminderTypes returns, per project id, the reminder types already sent successfully.
func (r *ReminderRepository) SentReminderTypes(ctx context.Context) (map[int64]map[models.ReminderType]bool, error) {
	var rows []struct {
		ClientID     int64               `db:"client_id"`
		ReminderType models.ReminderType `db:"reminder_type"`
	}
	q := r.db.Rebind(`SELECT client_id, reminder_type FROM client_reminders WHERE status = ?`)
	if err := r.db.SelectContext(ctx, &rows, q, models.ReminderSent); err != nil {
		return nil, fmt.Errorf("list sent reminders: %w", err)
	}
	out := make(map[int64]map[models.ReminderType]bool, len(rows))
	for _, row := range rows {
		if out[row.ClientID] == nil {
			out[row.ClientID] = map[models.ReminderType]bool{}
		}
		out[row.ClientID][row.ReminderType] = true
	}
	return out, nil
}

// ReminderHistory returns the latest reminders with the client name joined in.
func (r *ReminderRepository) ReminderHistory(ctx context.Context, limit int) ([]models.ClientReminder, error) {
	out := []models.ClientReminder{}
	q := r.db.Rebind(`SELECT r.id, r.client_id,
		COALESCE(c.client_name, '') AS client_name,
		r.reminder_type, r.sent_date,
		COALESCE(r.message_content, '') AS message_content,
		r.status
		FROM client_reminders r
		LEFT JOIN client_projects c ON c.id = r.client_id
		ORDER BY r.sent_date DESC, r.id DESC
		LIMIT ?`)
	if err := r.db.SelectContext(ctx, &out, q, limit); err != nil {
		return nil, fmt.Errorf("reminder history: %w", err)
	}
	return out, nil
}

// ReminderCounts returns the number of sent reminders overall, since the given
// instant, and per type.
func (r *ReminderRepository) ReminderCounts(ctx context.Context, since time.Time) (total int, recent int, byType []models.ReminderCount, err error) {
	if err = r.db.GetContext(ctx, &total,
		r.db.Rebind(`SELECT COUNT(*) FROM client_reminders WHERE status = ?`), models.ReminderSent); err != nil {
		return 0, 0, nil, fmt.Errorf("count reminders: %w", err)
	}
	if err = r.db.GetContext(ctx, &recent,
		r.db.Rebind(`SELECT COUNT(*) FROM client_reminders WHERE status = ? AND sent_date >= ?`),
		models.ReminderSent, since); err != nil {
		return 0, 0, nil, fmt.Errorf("count recent reminders: %w", err)
	}
	byType = []models.ReminderCount{}
	if err = r.db.SelectContext(ctx, &byType, r.db.Rebind(`SELECT reminder_type, COUNT(*) AS count
		FROM client_reminders WHERE status = ?
		GROUP BY reminder_type ORDER BY reminder_type`), models.ReminderSent); err != nil {
		return 0, 0, nil, fmt.Errorf("count reminders by type: %w", err)
	}
	return total, recent, byType, nil
}
