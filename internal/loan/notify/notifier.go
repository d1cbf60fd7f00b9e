// internal/loan/notify/notifier.go
package notify

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	commonaws "loan-workbench/internal/common/aws"
	"loan-workbench/internal/common/errors"
	"loan-workbench/internal/common/logger"
	"loan-workbench/internal/models"
)

// EmailSender delivers one email. *aws.SESClient satisfies it.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) (string, error)
}

// SMSSender delivers one text message. *aws.SNSClient satisfies it.
type SMSSender interface {
	Send(ctx context.Context, phone, message string) (string, error)
}

var templates = map[models.Status]template{
	models.StatusApproved: {
		subject: "Your loan application has been approved",
		body:    "Hello {{name}},\n\nGood news! Your loan application {{applicationId}} has been approved. Our loan officer will contact you about the next steps.",
		sms:     "Hi {{name}}, your loan application {{applicationId}} has been APPROVED.",
	},
	models.StatusDenied: {
		subject: "Update on your loan application",
		body:    "Hello {{name}},\n\nThank you for applying. After review, your loan application {{applicationId}} was not approved at this time.",
		sms:     "Hi {{name}}, your loan application {{applicationId}} was not approved.",
	},
}

// Notifier sends status-change messages through SES and SNS.
type Notifier struct {
	config *Config
	email  EmailSender
	sms    SMSSender
	logger logger.Logger
	now    func() time.Time
}

// New builds AWS clients for the enabled channels only. With both channels
// off no AWS configuration is loaded.
func New(ctx context.Context, cfg *Config, log logger.Logger) (*Notifier, error) {
	var email EmailSender
	var sms SMSSender
	if cfg.Enabled() {
		awsCfg, err := commonaws.LoadConfig(ctx, cfg.AWSRegion)
		if err != nil {
			return nil, err
		}
		if cfg.EmailEnabled {
			email = commonaws.NewSESClient(awsCfg, cfg.FromEmail)
		}
		if cfg.SMSEnabled {
			sms = commonaws.NewSNSClient(awsCfg, cfg.SenderID)
		}
	}
	return NewWithSenders(cfg, email, sms, log), nil
}

func NewWithSenders(cfg *Config, email EmailSender, sms SMSSender, log logger.Logger) *Notifier {
	return &Notifier{
		config: cfg,
		email:  email,
		sms:    sms,
		logger: log.WithFields(map[string]interface{}{"component": "notify"}),
		now:    time.Now,
	}
}

// StatusChanged builds the notification from the record and sends it.
func (n *Notifier) StatusChanged(ctx context.Context, app *models.Application, status models.Status) error {
	if app == nil {
		return nil
	}
	_, err := n.Send(ctx, models.StatusNotification{
		ApplicationID: app.SessionID,
		Status:        status,
		Recipient:     app.Applicant.FullName,
		Email:         strings.TrimSpace(app.Applicant.Email),
		Phone:         strings.TrimSpace(app.Applicant.ContactNumber),
	})
	return err
}

// Send delivers the notification on every enabled channel that has a
// destination. Statuses without a template are skipped.
func (n *Notifier) Send(ctx context.Context, note models.StatusNotification) (*Result, error) {
	result := &Result{
		NotificationID: uuid.NewString(),
		Status:         StatusDisabled,
		SentAt:         n.now().UTC().Format(time.RFC3339),
	}

	tmpl, ok := templates[note.Status]
	if !ok {
		return result, nil
	}
	data := map[string]string{
		"name":          firstNonEmpty(note.Recipient, "Applicant"),
		"applicationId": note.ApplicationID,
		"status":        string(note.Status),
	}

	ctx, cancel := context.WithTimeout(ctx, n.config.Timeout)
	defer cancel()

	if n.config.EmailEnabled && n.email != nil && note.Email != "" {
		if _, err := n.email.Send(ctx, note.Email, renderTemplate(tmpl.subject, data), renderTemplate(tmpl.body, data)); err != nil {
			n.logger.Error("Email send failed", map[string]interface{}{
				"applicationId": note.ApplicationID,
				"error":         err.Error(),
			})
			result.Status = StatusFailed
			return result, errors.NewNotificationSendFailedError("email", err)
		}
		result.EmailSent = true
	}

	if n.config.SMSEnabled && n.sms != nil && note.Phone != "" {
		if _, err := n.sms.Send(ctx, note.Phone, renderTemplate(tmpl.sms, data)); err != nil {
			n.logger.Error("SMS send failed", map[string]interface{}{
				"applicationId": note.ApplicationID,
				"error":         err.Error(),
			})
			result.Status = StatusFailed
			return result, errors.NewNotificationSendFailedError("sms", err)
		}
		result.SMSSent = true
	}

	if result.EmailSent || result.SMSSent {
		result.Status = StatusSent
		n.logger.Info("Status notification sent", map[string]interface{}{
			"applicationId": note.ApplicationID,
			"status":        string(note.Status),
			"email":         result.EmailSent,
			"sms":           result.SMSSent,
		})
	}
	return result, nil
}

// renderTemplate fills {{key}} placeholders and drops any left unfilled.
func renderTemplate(tmpl string, data map[string]string) string {
	result := tmpl
	for k, v := range data {
		result = strings.ReplaceAll(result, "{{"+k+"}}", v)
	}
	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		result = result[:start] + result[start+end+2:]
	}
	return result
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
