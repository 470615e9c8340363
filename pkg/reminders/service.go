package reminders

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"client-manager/pkg/metrics"
	"client-manager/pkg/models"
)

// HistoryLimit bounds the reminder history listing.
const HistoryLimit = 50

// ClientSource lists the projects reminders are computed from.
type ClientSource interface {
	ListAllClientProjects(ctx context.Context) ([]models.ClientProject, error)
}

// Log persists reminders.
type Log interface {
	RecordReminder(ctx context.Context, rem models.ClientReminder) (models.ClientReminder, error)
	SentReminderTypes(ctx context.Context) (map[int64]map[models.ReminderType]bool, error)
	ReminderHistory(ctx context.Context, limit int) ([]models.ClientReminder, error)
	ReminderCounts(ctx context.Context, since time.Time) (int, int, []models.ReminderCount, error)
}

// Outcome is the result of recording one reminder.
type Outcome struct {
	ClientID      int64               `json:"client_id"`
	ClientName    string              `json:"client_name"`
	ReminderType  models.ReminderType `json:"reminder_type"`
	DaysRemaining int                 `json:"days_remaining"`
	Message       string              `json:"message"`
	Status        string              `json:"status"`
	WhatsAppURL   string              `json:"whatsapp_url,omitempty"`
	Error         string              `json:"error,omitempty"`
}

// SendReport summarises a Send run.
type SendReport struct {
	Sent      []Outcome `json:"sent_reminders"`
	Failed    []Outcome `json:"failed_reminders"`
	TotalSent int       `json:"total_sent"`
	Message   string    `json:"message"`
}

// Service decides who is due a renewal reminder and records what was sent.
type Service struct {
	clients  ClientSource
	log      Log
	business Business
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(clients ClientSource, log Log, business Business, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		clients:  clients,
		log:      log,
		business: business,
		logger:   logger,
		now:      time.Now,
	}
}

// Check lists projects due a reminder that has not been sent yet, with a message preview.
func (s *Service) Check(ctx context.Context) ([]Candidate, error) {
	candidates, err := s.candidates(ctx)
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		candidates[i].MessagePreview = preview(candidates[i].Message)
	}
	return candidates, nil
}

// Send records a reminder for every eligible project, or only for clientIDs when
// given. A failure on one project is logged and does not stop the others.
func (s *Service) Send(ctx context.Context, clientIDs []int64) (SendReport, error) {
	candidates, err := s.candidates(ctx)
	if err != nil {
		return SendReport{}, err
	}
	wanted := make(map[int64]bool, len(clientIDs))
	for _, id := range clientIDs {
		wanted[id] = true
	}

	report := SendReport{Sent: []Outcome{}, Failed: []Outcome{}}
	for _, c := range candidates {
		if len(wanted) > 0 && !wanted[c.ClientID] {
			continue
		}
		out := Outcome{
			ClientID:      c.ClientID,
			ClientName:    c.ClientName,
			ReminderType:  c.ReminderType,
			DaysRemaining: c.DaysRemaining,
			Message:       c.Message,
		}
		phone := c.ClientPhone
		if phone == "" {
			phone = s.business.Phone
		}
		_, err := s.log.RecordReminder(ctx, models.ClientReminder{
			ClientID:       c.ClientID,
			ReminderType:   c.ReminderType,
			SentDate:       s.now().UTC(),
			MessageContent: c.Message,
			Status:         models.ReminderSent,
		})
		if err != nil {
			s.logger.Error("Failed to record reminder",
				zap.Int64("client_id", c.ClientID),
				zap.String("reminder_type", string(c.ReminderType)),
				zap.Error(err))
			metrics.RecordReminder(string(c.ReminderType), models.ReminderFailed)
			out.Status = models.ReminderFailed
			out.Error = err.Error()
			report.Failed = append(report.Failed, out)
			continue
		}
		metrics.RecordReminder(string(c.ReminderType), models.ReminderSent)
		out.Status = models.ReminderSent
		out.WhatsAppURL = WhatsAppURL(phone, c.Message)
		report.Sent = append(report.Sent, out)
	}
	report.TotalSent = len(report.Sent)
	report.Message = fmt.Sprintf("Recorded %d reminder(s) ready to send", report.TotalSent)

	s.logger.Info("Renewal reminders recorded",
		zap.Int("sent", len(report.Sent)),
		zap.Int("failed", len(report.Failed)))
	return report, nil
}

// History returns the latest reminders, newest first.
func (s *Service) History(ctx context.Context) ([]models.ClientReminder, error) {
	return s.log.ReminderHistory(ctx, HistoryLimit)
}

// Stats reports totals, the last 30 days, the breakdown by type and how many
// projects are currently due a reminder.
func (s *Service) Stats(ctx context.Context) (models.ReminderStats, error) {
	since := s.now().UTC().AddDate(0, 0, -30)
	total, recent, byType, err := s.log.ReminderCounts(ctx, since)
	if err != nil {
		return models.ReminderStats{}, err
	}
	candidates, err := s.candidates(ctx)
	if err != nil {
		return models.ReminderStats{}, err
	}
	return models.ReminderStats{
		TotalSent:    total,
		RecentSent:   recent,
		Pending:      len(candidates),
		CountsByType: byType,
	}, nil
}

func (s *Service) candidates(ctx context.Context) ([]Candidate, error) {
	records, err := s.clients.ListAllClientProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("load clients: %w", err)
	}
	sent, err := s.log.SentReminderTypes(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]models.ClientProject, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}
	candidates := eligible(records, sent, s.now().UTC())
	for i := range candidates {
		msg, err := Message(s.business, byID[candidates[i].ClientID], candidates[i].ReminderType, candidates[i].DaysRemaining)
		if err != nil {
			return nil, err
		}
		candidates[i].Message = msg
	}
	return candidates, nil
}
