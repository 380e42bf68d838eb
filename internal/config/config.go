// Package config loads the service configuration from a YAML file with
// environment-variable overrides for secrets and deployment endpoints.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/victorlau/liuren-quota/internal/billing"
)

// Config validation errors.
var (
	ErrMissingAdminSecret = errors.New("config: admin secret is required")
	ErrMissingJWTSecret   = errors.New("config: jwt secret is required")
)

// RedisConfig describes the key-value store connection.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// PayPalConfig describes the payment gateway credentials.
type PayPalConfig struct {
	Mode         string  `yaml:"mode"` // "sandbox" or "live"
	ClientID     string  `yaml:"client_id"`
	ClientSecret string  `yaml:"client_secret"`
	Currency     string  `yaml:"currency"`
	SinglePrice  float64 `yaml:"single_price"`
	TriplePrice  float64 `yaml:"triple_price"`
}

// BillingConfig maps payments to quota grants.
type BillingConfig struct {
	Tiers         []billing.Tier `yaml:"tiers"`
	FallbackQuota int            `yaml:"fallback_quota"`
	Plans         map[string]int `yaml:"plans"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"` // empty means stderr only
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Config is the full service configuration.
type Config struct {
	Listen                string        `yaml:"listen"`
	AdminSecret           string        `yaml:"admin_secret"`
	JWTSecret             string        `yaml:"jwt_secret"`
	AdminTokenExpiryHours int           `yaml:"admin_token_expiry_hours"`
	PurchaseExpiryDays    int           `yaml:"purchase_expiry_days"` // validity of purchased codes
	LogTTLDays            int           `yaml:"log_ttl_days"`         // audit entry retention
	AllowedOrigins        []string      `yaml:"allowed_origins"`
	Redis                 RedisConfig   `yaml:"redis"`
	PayPal                PayPalConfig  `yaml:"paypal"`
	Billing               BillingConfig `yaml:"billing"`
	Log                   LogConfig     `yaml:"log"`
}

// Default returns the configuration used when fields are left unset.
func Default() Config {
	return Config{
		Listen:                ":8080",
		AdminTokenExpiryHours: 12,
		PurchaseExpiryDays:    30,
		LogTTLDays:            90,
		Redis:                 RedisConfig{Addr: "127.0.0.1:6379"},
		PayPal: PayPalConfig{
			Mode:        "sandbox",
			Currency:    "HKD",
			SinglePrice: 399,
			TriplePrice: 1000,
		},
		Billing: BillingConfig{
			Tiers: []billing.Tier{
				{MaxAmount: 1.5, Quota: 1},
				{MaxAmount: 15, Quota: 5},
				{MaxAmount: 500, Quota: 1},
			},
			FallbackQuota: 5,
			Plans:         map[string]int{billing.PlanSingle: 1, billing.PlanTriple: 5},
		},
		Log: LogConfig{Level: "info", MaxSizeMB: 50, MaxBackups: 3, MaxAgeDays: 28},
	}
}

// Load reads the YAML file at path, overlaying defaults and then environment
// overrides. An empty path skips the file and uses defaults plus environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if errDecode := yaml.Unmarshal(raw, &cfg); errDecode != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, errDecode)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overlays secrets and endpoints from the environment. Environment
// values win over file values so deployments never commit credentials.
func (c *Config) applyEnv() {
	overlay(&c.AdminSecret, "ADMIN_PASSWORD")
	overlay(&c.JWTSecret, "JWT_SECRET")
	overlay(&c.Redis.Addr, "REDIS_ADDR")
	overlay(&c.Redis.Password, "REDIS_PASSWORD")
	overlay(&c.PayPal.ClientID, "PAYPAL_CLIENT_ID")
	overlay(&c.PayPal.ClientSecret, "PAYPAL_SECRET")
	overlay(&c.PayPal.Mode, "PAYPAL_MODE")
	overlay(&c.Listen, "LISTEN_ADDR")
}

func overlay(target *string, key string) {
	if value, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			*target = trimmed
		}
	}
}

// Validate checks the fields the service cannot run without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.AdminSecret) == "" {
		return ErrMissingAdminSecret
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return ErrMissingJWTSecret
	}
	return nil
}

// AdminTokenTTL returns the admin session token lifetime.
func (c *Config) AdminTokenTTL() time.Duration {
	return time.Duration(c.AdminTokenExpiryHours) * time.Hour
}

// PurchaseExpiry returns the validity window for purchased codes.
func (c *Config) PurchaseExpiry() time.Duration {
	return time.Duration(c.PurchaseExpiryDays) * 24 * time.Hour
}

// LogTTL returns the audit entry retention window.
func (c *Config) LogTTL() time.Duration {
	return time.Duration(c.LogTTLDays) * 24 * time.Hour
}

// BillingTable builds the runtime tier table.
func (c *Config) BillingTable() *billing.Table {
	return billing.NewTable(c.Billing.Tiers, c.Billing.FallbackQuota, c.Billing.Plans)
}

// PlanPrice returns the checkout price for a named plan.
func (c *Config) PlanPrice(plan string) (float64, bool) {
	switch strings.ToLower(strings.TrimSpace(plan)) {
	case billing.PlanSingle:
		return c.PayPal.SinglePrice, true
	case billing.PlanTriple:
		return c.PayPal.TriplePrice, true
	default:
		return 0, false
	}
}
