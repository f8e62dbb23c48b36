// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// LLMプロバイダー名
const (
	LLMProviderAnthropic = "anthropic"
	LLMProviderOpenAI    = "openai"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
// koanfタグは環境変数名を小文字にしたもの。
type Config struct {
	// Database
	DatabaseURL       string        `koanf:"database_url"`
	DBMaxOpenConns    int           `koanf:"db_max_open_conns"`
	DBMaxIdleConns    int           `koanf:"db_max_idle_conns"`
	DBConnMaxLifetime time.Duration `koanf:"db_conn_max_lifetime"`

	// Server
	ServerPort        string        `koanf:"server_port"`
	BaseURL           string        `koanf:"base_url"`
	CORSAllowedOrigin string        `koanf:"cors_allowed_origin"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`

	// Auth
	AuthJWKSURL        string        `koanf:"auth_jwks_url"`
	AuthDomain         string        `koanf:"auth_domain"`
	AuthIssuer         string        `koanf:"auth_issuer"`
	AuthSigningSecret  string        `koanf:"auth_signing_secret"`
	AuthJWKSTTL        time.Duration `koanf:"auth_jwks_ttl"`
	AuthJWKSMinRefresh time.Duration `koanf:"auth_jwks_min_refresh"`
	AuthLeeway         time.Duration `koanf:"auth_leeway"`
	AuthInsecureDev    bool          `koanf:"auth_insecure_dev"`

	// LLM
	LLMProvider string        `koanf:"llm_provider"`
	LLMAPIKey   string        `koanf:"llm_api_key"`
	LLMModel    string        `koanf:"llm_model"`
	LLMBaseURL  string        `koanf:"llm_base_url"`
	LLMTimeout  time.Duration `koanf:"llm_timeout"`

	// Places
	MapsAPIKey  string        `koanf:"maps_api_key"`
	MapsBaseURL string        `koanf:"maps_base_url"`
	MapsTimeout time.Duration `koanf:"maps_timeout"`

	// Rate Limit（Windowあたりのリクエスト数）
	RateLimitWindow  time.Duration `koanf:"rate_limit_window"`
	RateLimitGeneral int           `koanf:"rate_limit_general"`
	RateLimitAI      int           `koanf:"rate_limit_ai"`

	// Stats
	StatsTimezone string `koanf:"stats_timezone"`

	// Logging
	LogLevel string `koanf:"log_level"`

	statsLocation *time.Location
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数の欠落や不正な値はまとめて1つのエラーとして返す。
func Load() (*Config, error) {
	k := koanf.New(".")

	// DATABASE_URL -> database_url。区切りの"."は環境変数名に現れないため階層化しない
	if err := k.Load(env.Provider("", ".", strings.ToLower), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	setDefault(&c.DBMaxOpenConns, 25)
	setDefault(&c.DBMaxIdleConns, 5)
	setDefault(&c.DBConnMaxLifetime, 5*time.Minute)

	setDefault(&c.ServerPort, "3001")
	setDefault(&c.BaseURL, "http://localhost:3001")
	setDefault(&c.CORSAllowedOrigin, "http://localhost:3000")
	setDefault(&c.ShutdownTimeout, 30*time.Second)

	if c.AuthJWKSURL == "" && c.AuthDomain != "" {
		c.AuthJWKSURL = "https://" + strings.TrimSuffix(c.AuthDomain, "/") + "/.well-known/jwks.json"
	}
	setDefault(&c.AuthJWKSTTL, 10*time.Minute)
	setDefault(&c.AuthJWKSMinRefresh, 30*time.Second)
	setDefault(&c.AuthLeeway, 30*time.Second)

	setDefault(&c.LLMProvider, LLMProviderAnthropic)
	c.LLMProvider = strings.ToLower(c.LLMProvider)
	setDefault(&c.LLMModel, "claude-3-haiku-20240307")
	setDefault(&c.LLMTimeout, 20*time.Second)

	setDefault(&c.MapsBaseURL, "https://maps.googleapis.com")
	setDefault(&c.MapsTimeout, 10*time.Second)

	setDefault(&c.RateLimitWindow, time.Minute)
	setDefault(&c.RateLimitGeneral, 120)
	setDefault(&c.RateLimitAI, 10)

	setDefault(&c.StatsTimezone, "UTC")
	setDefault(&c.LogLevel, "info")
}

func setDefault[T comparable](field *T, def T) {
	var zero T
	if *field == zero {
		*field = def
	}
}

// Validate は設定値を検証する。エラーはすべて集約して返す。
func (c *Config) Validate() error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}

	if !c.AuthInsecureDev && c.AuthJWKSURL == "" && c.AuthSigningSecret == "" {
		errs = append(errs, errors.New("one of AUTH_JWKS_URL, AUTH_DOMAIN or AUTH_SIGNING_SECRET is required unless AUTH_INSECURE_DEV=true"))
	}

	switch c.LLMProvider {
	case LLMProviderAnthropic, LLMProviderOpenAI:
	default:
		errs = append(errs, fmt.Errorf("LLM_PROVIDER must be %q or %q, got %q", LLMProviderAnthropic, LLMProviderOpenAI, c.LLMProvider))
	}

	if c.RateLimitGeneral < 0 || c.RateLimitAI < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_GENERAL and RATE_LIMIT_AI must be positive"))
	}

	loc, err := time.LoadLocation(c.StatsTimezone)
	if err != nil {
		errs = append(errs, fmt.Errorf("STATS_TIMEZONE %q is not a valid IANA time zone: %w", c.StatsTimezone, err))
	} else {
		c.statsLocation = loc
	}

	return errors.Join(errs...)
}

// StatsLocation は統計の暦計算に使うタイムゾーンを返す。
func (c *Config) StatsLocation() *time.Location {
	if c.statsLocation == nil {
		return time.UTC
	}
	return c.statsLocation
}

// AIEnabled はLLMのAPIキーが設定されているかを返す。
func (c *Config) AIEnabled() bool {
	return c.LLMAPIKey != ""
}

// PlacesEnabled は地図APIキーが設定されているかを返す。
func (c *Config) PlacesEnabled() bool {
	return c.MapsAPIKey != ""
}
