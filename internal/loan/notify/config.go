// internal/loan/notify/config.go
package notify

import (
	"time"

	"loan-workbench/internal/common/config"
)

type Config struct {
	EmailEnabled bool
	SMSEnabled   bool
	FromEmail    string
	SenderID     string
	AWSRegion    string
	Timeout      time.Duration
}

func LoadConfig(cfg config.NotificationConfig) *Config {
	c := &Config{
		EmailEnabled: cfg.Email.Enabled,
		SMSEnabled:   cfg.SMS.Enabled,
		FromEmail:    cfg.Email.FromEmail,
		SenderID:     cfg.SMS.SenderID,
		AWSRegion:    cfg.AWS.Region,
		Timeout:      10 * time.Second,
	}
	if c.AWSRegion == "" {
		c.AWSRegion = "ap-southeast-1"
	}
	return c
}

// Enabled reports whether any channel is switched on.
func (c *Config) Enabled() bool {
	return c.EmailEnabled || c.SMSEnabled
}
