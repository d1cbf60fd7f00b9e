// internal/loan/applicants/config.go
package applicants

import (
	"time"

	"loan-workbench/internal/common/config"
)

const (
	DefaultPageSize       = 10
	DefaultSearchDebounce = 300 * time.Millisecond
)

type Config struct {
	PageSize       int
	SearchDebounce time.Duration
}

func LoadConfig(cfg config.ApplicantsConfig) *Config {
	c := &Config{
		PageSize:       cfg.PageSize,
		SearchDebounce: config.GetDuration(cfg.SearchDebounce),
	}
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.SearchDebounce <= 0 {
		c.SearchDebounce = DefaultSearchDebounce
	}
	return c
}
