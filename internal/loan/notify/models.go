// internal/loan/notify/models.go
package notify

const (
	StatusSent     = "SENT"
	StatusFailed   = "FAILED"
	StatusDisabled = "DISABLED"
)

// Result describes one notification attempt.
type Result struct {
	NotificationID string
	Status         string
	EmailSent      bool
	SMSSent        bool
	SentAt         string
}

type template struct {
	subject string
	body    string
	sms     string
}
