// Package config loads gateway settings from flags, environment and an
// optional adsgate.yaml via viper.
package config

import (
	"strings"
	"time"

	apperrors "github.com/pysugar/ads-account-gateway/internal/errors"
	"github.com/spf13/viper"
)

// Config is the resolved, validated process configuration.
type Config struct {
	DatabaseURL string

	ClientID       string
	ClientSecret   string
	DeveloperToken string
	// RefreshToken backs single-user mode when no userId is supplied.
	RefreshToken string
	// LoginCustomerID is the static acting-as override. Empty means resolve dynamically.
	LoginCustomerID string
	// FallbackCustomerID is the top-level account queried when discovery and the
	// association store both come up empty.
	FallbackCustomerID string
	// ValidateOnly forces every mutation in the process into validate-only mode.
	ValidateOnly bool
	APIVersion   string
	APIBaseURL   string
	QPS          float64

	MerchantCenterID string

	PolicyFile string
	RedisURL   string
	// CacheTTL bounds how long a shared login-customer entry lives. Zero keeps
	// entries until they are explicitly forgotten.
	CacheTTL time.Duration

	Host   string
	Port   string
	APIKey string

	LogLevel string
}

// envBindings maps viper keys to the environment variable names the gateway
// has always honoured.
var envBindings = map[string]string{
	"database.url":                "DATABASE_URL",
	"google.client_id":            "GOOGLE_ADS_CLIENT_ID",
	"google.client_secret":        "GOOGLE_ADS_CLIENT_SECRET",
	"google.developer_token":      "GOOGLE_ADS_DEVELOPER_TOKEN",
	"google.refresh_token":        "GOOGLE_ADS_REFRESH_TOKEN",
	"google.login_customer_id":    "GOOGLE_ADS_LOGIN_CUSTOMER_ID",
	"google.fallback_customer_id": "GOOGLE_ADS_FALLBACK_CUSTOMER_ID",
	"google.validate_only":        "GOOGLE_ADS_VALIDATE_ONLY",
	"google.api_version":          "GOOGLE_ADS_API_VERSION",
	"google.api_base_url":         "GOOGLE_ADS_API_BASE_URL",
	"google.qps":                  "GOOGLE_ADS_QPS",
	"merchant_center_id":          "MERCHANT_CENTER_ID",
	"policy.file":                 "ADSGATE_POLICY_FILE",
	"cache.redis_url":             "ADSGATE_REDIS_URL",
	"cache.ttl":                   "ADSGATE_CACHE_TTL",
	"server.host":                 "HOST",
	"server.port":                 "PORT",
	"server.api_key":              "ADSGATE_API_KEY",
	"log.level":                   "LOG_LEVEL",
}

// SetDefaults registers defaults and environment bindings on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.url", "adsgate.db")
	v.SetDefault("google.api_version", "v18")
	v.SetDefault("google.api_base_url", "https://googleads.googleapis.com")
	v.SetDefault("google.qps", 10.0)
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", "8080")
	v.SetDefault("log.level", "info")

	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}
}

// Load reads v into a Config. Only syntactic problems are reported here;
// RequireAdsCredentials checks what the vendor client needs.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DatabaseURL:        strings.TrimSpace(v.GetString("database.url")),
		ClientID:           strings.TrimSpace(v.GetString("google.client_id")),
		ClientSecret:       strings.TrimSpace(v.GetString("google.client_secret")),
		DeveloperToken:     strings.TrimSpace(v.GetString("google.developer_token")),
		LoginCustomerID:    stripDashes(v.GetString("google.login_customer_id")),
		FallbackCustomerID: stripDashes(v.GetString("google.fallback_customer_id")),
		ValidateOnly:       ParseFlag(v.GetString("google.validate_only")),
		APIVersion:         strings.TrimSpace(v.GetString("google.api_version")),
		APIBaseURL:         strings.TrimRight(strings.TrimSpace(v.GetString("google.api_base_url")), "/"),
		QPS:                v.GetFloat64("google.qps"),
		MerchantCenterID:   strings.TrimSpace(v.GetString("merchant_center_id")),
		PolicyFile:         strings.TrimSpace(v.GetString("policy.file")),
		RedisURL:           strings.TrimSpace(v.GetString("cache.redis_url")),
		CacheTTL:           v.GetDuration("cache.ttl"),
		Host:               strings.TrimSpace(v.GetString("server.host")),
		Port:               strings.TrimSpace(v.GetString("server.port")),
		APIKey:             strings.TrimSpace(v.GetString("server.api_key")),
		LogLevel:           strings.ToLower(strings.TrimSpace(v.GetString("log.level"))),
	}

	if v.IsSet("google.refresh_token") {
		cfg.RefreshToken = strings.TrimSpace(v.GetString("google.refresh_token"))
		if cfg.RefreshToken == "" && v.GetString("google.refresh_token") != "" {
			return nil, &apperrors.ConfigError{Field: "GOOGLE_ADS_REFRESH_TOKEN", Reason: "cannot be empty"}
		}
	}

	if cfg.FallbackCustomerID == "" {
		cfg.FallbackCustomerID = cfg.LoginCustomerID
	}

	if cfg.CacheTTL < 0 {
		return nil, &apperrors.ConfigError{Field: "ADSGATE_CACHE_TTL", Reason: "cannot be negative"}
	}

	if cfg.DatabaseURL == "" {
		return nil, &apperrors.ConfigError{Field: "DATABASE_URL", Reason: "is required"}
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, &apperrors.ConfigError{Field: "LOG_LEVEL", Reason: "must be one of debug, info, warn, error"}
	}

	return cfg, nil
}

// RequireOAuthClient reports a missing OAuth client credential.
func (c *Config) RequireOAuthClient() error {
	switch {
	case c.ClientID == "":
		return &apperrors.ConfigError{Field: "GOOGLE_ADS_CLIENT_ID", Reason: "is required"}
	case c.ClientSecret == "":
		return &apperrors.ConfigError{Field: "GOOGLE_ADS_CLIENT_SECRET", Reason: "is required"}
	}
	return nil
}

// RequireAdsCredentials reports the first missing credential needed to talk
// to the advertising API.
func (c *Config) RequireAdsCredentials() error {
	if err := c.RequireOAuthClient(); err != nil {
		return err
	}
	if c.DeveloperToken == "" {
		return &apperrors.ConfigError{Field: "GOOGLE_ADS_DEVELOPER_TOKEN", Reason: "is required"}
	}
	return nil
}

// IsPostgres reports whether DatabaseURL names a PostgreSQL server.
func (c *Config) IsPostgres() bool {
	return strings.HasPrefix(c.DatabaseURL, "postgres://") || strings.HasPrefix(c.DatabaseURL, "postgresql://")
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// ParseFlag accepts the boolean-like spellings used by operators: 1, true, yes.
func ParseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func stripDashes(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "-", "")
}
