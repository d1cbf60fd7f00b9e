// internal/loan/documents/config.go
package documents

import (
	"time"

	"loan-workbench/internal/common/config"
)

const (
	DefaultCheckInterval = 4 * time.Minute
	DefaultExpiryMargin  = 5 * time.Minute
	DefaultCacheSize     = 64
	DefaultCacheTTL      = time.Hour
)

type Config struct {
	CheckInterval time.Duration
	ExpiryMargin  time.Duration
	CacheSize     int
	CacheTTL      time.Duration
}

func LoadConfig(cfg config.DocumentsConfig) *Config {
	c := &Config{
		CheckInterval: config.GetDuration(cfg.CheckInterval),
		ExpiryMargin:  config.GetDuration(cfg.ExpiryMargin),
		CacheSize:     cfg.CacheSize,
		CacheTTL:      config.GetDuration(cfg.CacheTTL),
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = DefaultCheckInterval
	}
	if c.ExpiryMargin <= 0 {
		c.ExpiryMargin = DefaultExpiryMargin
	}
	if c.CacheSize <= 0 {
		c.CacheSize = DefaultCacheSize
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = DefaultCacheTTL
	}
	return c
}
