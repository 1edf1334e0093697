package config

import (
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	BackendRedis    = "redis"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

type Config struct {
	Env          string
	Port         string
	LogLevel     string
	StoreBackend string
	SeenStore    string
	RedisURL     string
	DatabaseURL  string
	Timezone     string
	Rada         RadaConfig
	SMTP         SMTPConfig
	Secrets      SecretsConfig
	Digest       DigestConfig
}

type RadaConfig struct {
	TokenURL     string
	DatasetURL   string
	RegisteredIP string
}

type SMTPConfig struct {
	Host       string
	Port       int
	User       string
	Password   string
	Recipients []string
}

// Enabled reports whether digests are mailed rather than logged.
func (s SMTPConfig) Enabled() bool {
	return s.Host != ""
}

type SecretsConfig struct {
	Cron      string
	EmailTest string
}

type DigestConfig struct {
	PreviewLimit int
	ResultTTL    time.Duration
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads configuration from the environment. In development a .env
// file is loaded first; CONFIG_FILE optionally points at a yaml/json/toml
// file whose keys use the same names as the variables, lower-cased.
func Load() (*Config, error) {
	if env := os.Getenv("APP_ENV"); env == "" || env == "development" {
		_ = godotenv.Load(".env")
	}

	v := viper.New()
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORE_BACKEND", BackendRedis)
	v.SetDefault("SEEN_STORE", BackendRedis)
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("TIMEZONE", "Europe/Kyiv")
	v.SetDefault("RADA_TOKEN_URL", "https://data.rada.gov.ua/api/token")
	v.SetDefault("RADA_DATASET_URL", "https://data.rada.gov.ua/ogd/zpr/skl9/billinfo-skl9.json")
	v.SetDefault("RADA_REGISTERED_IP", "")
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 465)
	v.SetDefault("SMTP_USER", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("DIGEST_RECIPIENTS", "")
	v.SetDefault("CRON_SECRET", "")
	v.SetDefault("EMAIL_TEST_SECRET", "")
	v.SetDefault("DIGEST_PREVIEW_LIMIT", 100)
	v.SetDefault("RESULT_CACHE_TTL", time.Hour)

	v.AutomaticEnv()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		Env:          v.GetString("APP_ENV"),
		Port:         v.GetString("PORT"),
		LogLevel:     v.GetString("LOG_LEVEL"),
		StoreBackend: strings.ToLower(v.GetString("STORE_BACKEND")),
		SeenStore:    strings.ToLower(v.GetString("SEEN_STORE")),
		RedisURL:     v.GetString("REDIS_URL"),
		DatabaseURL:  v.GetString("DATABASE_URL"),
		Timezone:     v.GetString("TIMEZONE"),
		Rada: RadaConfig{
			TokenURL:     v.GetString("RADA_TOKEN_URL"),
			DatasetURL:   v.GetString("RADA_DATASET_URL"),
			RegisteredIP: v.GetString("RADA_REGISTERED_IP"),
		},
		SMTP: SMTPConfig{
			Host:       v.GetString("SMTP_HOST"),
			Port:       v.GetInt("SMTP_PORT"),
			User:       v.GetString("SMTP_USER"),
			Password:   v.GetString("SMTP_PASSWORD"),
			Recipients: splitList(v.GetString("DIGEST_RECIPIENTS")),
		},
		Secrets: SecretsConfig{
			Cron:      v.GetString("CRON_SECRET"),
			EmailTest: v.GetString("EMAIL_TEST_SECRET"),
		},
		Digest: DigestConfig{
			PreviewLimit: v.GetInt("DIGEST_PREVIEW_LIMIT"),
			ResultTTL:    v.GetDuration("RESULT_CACHE_TTL"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks combinations that would fail only later at runtime.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendRedis, BackendMemory, c.StoreBackend)
	}
	switch c.SeenStore {
	case BackendRedis, BackendPostgres:
	default:
		return fmt.Errorf("SEEN_STORE must be %q or %q, got %q", BackendRedis, BackendPostgres, c.SeenStore)
	}
	if c.SeenStore == BackendPostgres && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required when SEEN_STORE=%s", BackendPostgres)
	}
	if c.SMTP.Enabled() {
		if c.SMTP.User == "" {
			return fmt.Errorf("SMTP_USER is required when SMTP_HOST is set")
		}
		if len(c.SMTP.Recipients) == 0 {
			return fmt.Errorf("DIGEST_RECIPIENTS is required when SMTP_HOST is set")
		}
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
