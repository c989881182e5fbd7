package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the queue-service settings. Every key is read from the
// environment, optionally seeded from a .env file in the working directory.
type Config struct {
	Env          string
	LogLevel     string
	Port         string
	DatabaseURL  string
	AutoMigrate  bool
	Timezone     string
	OTLPEndpoint string

	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	DisplayCacheTTL time.Duration

	JWTSecret          string
	RateLimitPerMinute int
	RateLimitBurst     int
	RecallLogSize      int
}

// DisplayConfig holds the display-client settings.
type DisplayConfig struct {
	Env          string
	LogLevel     string
	OTLPEndpoint string

	BaseURL      string
	DepartmentID string
	PollInterval time.Duration
	FetchTimeout time.Duration

	RepeatCount int
	RepeatPause time.Duration
	Locale      string
	SpeakCmd    string
	ChimeCmd    string
	Volume      float64
	Muted       bool

	ControlAddr string
}

func newViper() (*viper.Viper, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	v := viper.New()
	v.SetDefault("app_env", "production")
	v.SetDefault("log_level", "info")
	v.SetDefault("otel_exporter_otlp_endpoint", "")
	v.AutomaticEnv()
	return v, nil
}

func Load() (Config, error) {
	v, err := newViper()
	if err != nil {
		return Config{}, err
	}
	v.SetDefault("port", "8080")
	v.SetDefault("db_dsn", "")
	v.SetDefault("db_auto_migrate", false)
	v.SetDefault("timezone", "Asia/Jakarta")
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("display_cache_ttl_ms", 2000)
	v.SetDefault("jwt_secret", "")
	v.SetDefault("rate_limit_per_min", 120)
	v.SetDefault("rate_limit_burst", 30)
	v.SetDefault("recall_log_size", 32)

	cfg := Config{
		Env:                v.GetString("app_env"),
		LogLevel:           v.GetString("log_level"),
		Port:               v.GetString("port"),
		DatabaseURL:        v.GetString("db_dsn"),
		AutoMigrate:        v.GetBool("db_auto_migrate"),
		Timezone:           v.GetString("timezone"),
		OTLPEndpoint:       v.GetString("otel_exporter_otlp_endpoint"),
		RedisAddr:          v.GetString("redis_addr"),
		RedisPassword:      v.GetString("redis_password"),
		RedisDB:            v.GetInt("redis_db"),
		DisplayCacheTTL:    time.Duration(v.GetInt("display_cache_ttl_ms")) * time.Millisecond,
		JWTSecret:          v.GetString("jwt_secret"),
		RateLimitPerMinute: v.GetInt("rate_limit_per_min"),
		RateLimitBurst:     v.GetInt("rate_limit_burst"),
		RecallLogSize:      v.GetInt("recall_log_size"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot start with. Production runs
// must sign operator tokens.
func (c Config) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("config: invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	if c.Env == "production" && c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET is required in production")
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < 16 {
		return errors.New("config: JWT_SECRET must be at least 16 characters")
	}
	if c.AutoMigrate && c.DatabaseURL == "" {
		return errors.New("config: DB_AUTO_MIGRATE needs DB_DSN")
	}
	return nil
}

func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func LoadDisplay() (DisplayConfig, error) {
	v, err := newViper()
	if err != nil {
		return DisplayConfig{}, err
	}
	v.SetDefault("display_base_url", "http://localhost:8080")
	v.SetDefault("display_department_id", "")
	v.SetDefault("display_poll_seconds", 3)
	v.SetDefault("display_fetch_timeout_seconds", 5)
	v.SetDefault("announce_repeat_count", 2)
	v.SetDefault("announce_repeat_pause_ms", 1500)
	v.SetDefault("announce_locale", "id")
	v.SetDefault("announce_speak_cmd", "")
	v.SetDefault("announce_chime_cmd", "")
	v.SetDefault("announce_volume", 1.0)
	v.SetDefault("announce_muted", false)
	v.SetDefault("display_control_addr", "127.0.0.1:8091")

	cfg := DisplayConfig{
		Env:          v.GetString("app_env"),
		LogLevel:     v.GetString("log_level"),
		OTLPEndpoint: v.GetString("otel_exporter_otlp_endpoint"),
		BaseURL:      v.GetString("display_base_url"),
		DepartmentID: strings.TrimSpace(v.GetString("display_department_id")),
		PollInterval: time.Duration(v.GetInt("display_poll_seconds")) * time.Second,
		FetchTimeout: time.Duration(v.GetInt("display_fetch_timeout_seconds")) * time.Second,
		RepeatCount:  v.GetInt("announce_repeat_count"),
		RepeatPause:  time.Duration(v.GetInt("announce_repeat_pause_ms")) * time.Millisecond,
		Locale:       v.GetString("announce_locale"),
		SpeakCmd:     v.GetString("announce_speak_cmd"),
		ChimeCmd:     v.GetString("announce_chime_cmd"),
		Volume:       v.GetFloat64("announce_volume"),
		Muted:        v.GetBool("announce_muted"),
		ControlAddr:  strings.TrimSpace(v.GetString("display_control_addr")),
	}
	if err := cfg.Validate(); err != nil {
		return DisplayConfig{}, err
	}
	return cfg, nil
}

func (c DisplayConfig) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return errors.New("config: DISPLAY_BASE_URL is required")
	}
	if c.PollInterval <= 0 {
		return errors.New("config: DISPLAY_POLL_SECONDS must be positive")
	}
	if c.RepeatCount < 1 {
		return errors.New("config: ANNOUNCE_REPEAT_COUNT must be at least 1")
	}
	if c.Volume < 0 || c.Volume > 1 {
		return fmt.Errorf("config: ANNOUNCE_VOLUME %.2f outside 0..1", c.Volume)
	}
	return nil
}
