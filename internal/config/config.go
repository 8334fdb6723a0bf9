package config

import (
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultConfigPath   = "config.toml"
	DefaultHTTPAddr     = ":8080"
	DefaultJWTExpiresIn = "24h"

	// DefaultJWTSecret is an insecure development fallback. Deployments must
	// set auth.jwt_secret; serve logs a warning when this value is in use.
	DefaultJWTSecret = "dev-insecure-jwt-secret"

	DefaultTwilioBaseURL  = "https://api.twilio.com"
	DefaultHubSpotBaseURL = "https://api.hubapi.com"

	DefaultPGHost     = "127.0.0.1"
	DefaultPGPort     = 5432
	DefaultPGUser     = "postgres"
	DefaultPGDatabase = "smsrelay"
	DefaultPGSSLMode  = "disable"

	DefaultSyncQueueSize = 256
	DefaultSyncWorkers   = 4
)

type Config struct {
	Log      LogConfig      `toml:"log"`
	Server   ServerConfig   `toml:"server"`
	Auth     AuthConfig     `toml:"auth"`
	Admin    AdminConfig    `toml:"admin"`
	Twilio   TwilioConfig   `toml:"twilio"`
	HubSpot  HubSpotConfig  `toml:"hubspot"`
	Postgres PostgresConfig `toml:"postgres"`
	Sync     SyncConfig     `toml:"sync"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type AuthConfig struct {
	JWTSecret    string `toml:"jwt_secret"`
	JWTExpiresIn string `toml:"jwt_expires_in"`
}

// AdminConfig seeds the single agent account that can log in and operate the
// gateway.
type AdminConfig struct {
	Email    string `toml:"email"`
	Password string `toml:"password"`
}

type TwilioConfig struct {
	AccountSID string `toml:"account_sid"`
	AuthToken  string `toml:"auth_token"`
	FromNumber string `toml:"from_number"`
	BaseURL    string `toml:"base_url"`
}

// Configured reports whether outbound sends can be attempted.
func (c TwilioConfig) Configured() bool {
	return strings.TrimSpace(c.AccountSID) != "" &&
		strings.TrimSpace(c.AuthToken) != "" &&
		strings.TrimSpace(c.FromNumber) != ""
}

type HubSpotConfig struct {
	AccessToken string `toml:"access_token"`
	BaseURL     string `toml:"base_url"`
}

// Configured reports whether CRM activity mirroring is enabled.
func (c HubSpotConfig) Configured() bool {
	return strings.TrimSpace(c.AccessToken) != ""
}

type PostgresConfig struct {
	Enabled  bool   `toml:"enabled"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

// SyncConfig bounds the activity-sync worker pool.
type SyncConfig struct {
	QueueSize int `toml:"queue_size"`
	Workers   int `toml:"workers"`
}

// Load reads the TOML config at path, falling back to defaults for every
// missing section. A missing file is not an error: the defaults describe a
// runnable development setup (in-memory store, carrier and CRM disabled).
func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Auth: AuthConfig{
			JWTSecret:    DefaultJWTSecret,
			JWTExpiresIn: DefaultJWTExpiresIn,
		},
		Admin: AdminConfig{
			Email:    "agent@example.com",
			Password: "change-your-password-here",
		},
		Twilio: TwilioConfig{
			BaseURL: DefaultTwilioBaseURL,
		},
		HubSpot: HubSpotConfig{
			BaseURL: DefaultHubSpotBaseURL,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		Sync: SyncConfig{
			QueueSize: DefaultSyncQueueSize,
			Workers:   DefaultSyncWorkers,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}
