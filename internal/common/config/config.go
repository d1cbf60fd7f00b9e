package config

import "fmt"

type Config struct {
	App           AppConfig          `mapstructure:"app"`
	API           APIConfig          `mapstructure:"api"`
	Auth          AuthConfig         `mapstructure:"auth"`
	Storage       StorageConfig      `mapstructure:"storage"`
	Documents     DocumentsConfig    `mapstructure:"documents"`
	Applicants    ApplicantsConfig   `mapstructure:"applicants"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Logging       LoggingConfig      `mapstructure:"logging"`
	Metrics       MetricsConfig      `mapstructure:"metrics"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type APIConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

type AuthConfig struct {
	RefreshInterval int `mapstructure:"refresh_interval"` // milliseconds
}

// StorageConfig selects the backend that stands in for browser local storage.
type StorageConfig struct {
	Driver       string         `mapstructure:"driver"` // sqlite | postgres | redis
	SQLitePath   string         `mapstructure:"sqlite_path"`
	KeyPrefix    string         `mapstructure:"key_prefix"`
	MaxFileBytes int64          `mapstructure:"max_file_bytes"`
	Postgres     PostgresConfig `mapstructure:"postgres"`
	Redis        RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DocumentsConfig struct {
	CheckInterval int `mapstructure:"check_interval"` // milliseconds
	ExpiryMargin  int `mapstructure:"expiry_margin"`  // milliseconds
	CacheSize     int `mapstructure:"cache_size"`
	CacheTTL      int `mapstructure:"cache_ttl"` // milliseconds
}

type ApplicantsConfig struct {
	PageSize       int `mapstructure:"page_size"`
	SearchDebounce int `mapstructure:"search_debounce"` // milliseconds
}

type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled  bool   `mapstructure:"enabled"`
		SenderID string `mapstructure:"sender_id"`
	} `mapstructure:"sms"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}
