package reminders

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"client-manager/pkg/calculator"
	"client-manager/pkg/models"
)

// HorizonDays is how far ahead of a deadline the first reminder goes out.
const HorizonDays = 60

// Candidate is a project due a reminder that has not been sent yet.
type Candidate struct {
	ClientID       int64               `json:"client_id"`
	ClientName     string              `json:"client_name"`
	ClientPhone    string              `json:"client_phone"`
	ExpiryDate     string              `json:"expiry_date"`
	DaysRemaining  int                 `json:"days_remaining"`
	ReminderType   models.ReminderType `json:"reminder_type"`
	MessagePreview string              `json:"message_preview"`
	ProjectValue   decimal.Decimal     `json:"project_value"`

	Message string `json:"-"`
}

// TypeFor maps days to deadline to the reminder window it falls in.
func TypeFor(days int) (models.ReminderType, bool) {
	switch {
	case days < 0:
		return "", false
	case days <= 7:
		return models.Reminder7Day, true
	case days <= 30:
		return models.Reminder30Day, true
	case days <= HorizonDays:
		return models.Reminder60Day, true
	default:
		return "", false
	}
}

// eligible returns the candidates for asOf, soonest deadline first. sent holds the
// reminder types already sent per project id.
func eligible(records []models.ClientProject, sent map[int64]map[models.ReminderType]bool, asOf time.Time) []Candidate {
	out := []Candidate{}
	for _, r := range records {
		if r.Deadline.IsZero() {
			continue
		}
		days := calculator.DaysUntil(asOf, r.Deadline)
		typ, ok := TypeFor(days)
		if !ok || sent[r.ID][typ] {
			continue
		}
		out = append(out, Candidate{
			ClientID:      r.ID,
			ClientName:    r.ClientName,
			ClientPhone:   r.ClientPhone,
			ExpiryDate:    r.Deadline.Format("2006-01-02"),
			DaysRemaining: days,
			ReminderType:  typ,
			ProjectValue:  r.Cost,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DaysRemaining != out[j].DaysRemaining {
			return out[i].DaysRemaining < out[j].DaysRemaining
		}
		return out[i].ClientID < out[j].ClientID
	})
	return out
}
