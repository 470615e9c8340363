package reminders

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"text/template"

	"client-manager/pkg/models"
)

// Business identifies the sender in reminder messages.
type Business struct {
	Name      string
	Contact   string
	Phone     string
	Email     string
	PortalURL string
}

const signature = `{{with .Business.Contact}}{{.}}{{else}}{{.Business.Name}}{{end}}
{{- with .Business.Phone}}
Phone: {{.}}{{end}}
{{- with .Business.Email}}
Email: {{.}}{{end}}`

const accountLine = `{{with .AccountURL}}
View your account: {{.}}
{{end}}`

var messageTemplates = template.Must(template.New("reminders").Parse(`
{{define "60_day"}}Hello {{.ClientName}}!

This is a friendly reminder that your project with us expires in {{.Days}} days on {{.Expiry}}.

To ensure uninterrupted service, we'd love to discuss renewal options with you.

Would you like to schedule a quick call to explore how we can continue supporting your business?
` + accountLine + `
Best regards,
` + signature + `

Reply here to get started!{{end}}

{{define "30_day"}}Hi {{.ClientName}}!

Your project expires in {{.Days}} days ({{.Expiry}}).

We want to ensure seamless continuity of your services. Let's discuss renewal options that work best for your business.

Our team is ready to:
- Review your current setup
- Suggest improvements
- Provide competitive renewal pricing
` + accountLine + `
Ready to secure your renewal?

Best regards,
` + signature + `

Let's talk!{{end}}

{{define "7_day"}}URGENT: {{.ClientName}}

Your project expires in just {{.Days}} days on {{.Expiry}}.

To avoid any service interruption, we need to finalize your renewal immediately.

Current project value: {{.Value}}

Quick action needed:
1. Confirm renewal interest
2. Review updated terms
3. Process payment
` + accountLine + `
Contact us now to secure your services:

` + signature + `

Don't let your project lapse!{{end}}
`))

type messageData struct {
	ClientName string
	Days       int
	Expiry     string
	Value      string
	AccountURL string
	Business   Business
}

// Message renders the reminder text of the given type for a project.
func Message(b Business, p models.ClientProject, typ models.ReminderType, days int) (string, error) {
	data := messageData{
		ClientName: p.ClientName,
		Days:       days,
		Expiry:     p.Deadline.Format("January 02, 2006"),
		Value:      models.CurrencySymbol(p.CurrencyCode()) + p.Cost.StringFixed(2),
		Business:   b,
	}
	if b.PortalURL != "" {
		data.AccountURL = fmt.Sprintf("%s/client/%d", strings.TrimRight(b.PortalURL, "/"), p.ID)
	}

	var buf bytes.Buffer
	if err := messageTemplates.ExecuteTemplate(&buf, string(typ), data); err != nil {
		return "", fmt.Errorf("render %s reminder: %w", typ, err)
	}
	return buf.String(), nil
}

func preview(msg string) string {
	const limit = 100
	r := []rune(msg)
	if len(r) <= limit {
		return msg
	}
	return string(r[:limit]) + "..."
}

// defaultDialCode is prefixed to phone numbers written without one.
const defaultDialCode = "+44"

// WhatsAppURL returns a click-to-chat link that opens msg for phone, or "" when
// phone is empty. Local numbers lose their leading zero and get the default
// dial code.
func WhatsAppURL(phone, msg string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}
	if !strings.HasPrefix(phone, "+") {
		phone = defaultDialCode + strings.TrimLeft(phone, "0")
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	u := url.URL{
		Scheme:   "https",
		Host:     "wa.me",
		Path:     "/" + digits,
		RawQuery: url.Values{"text": {msg}}.Encode(),
	}
	return u.String()
}
