// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the configuration for the HTTP API, ingestion, and the
// AWS-backed storage/query/model clients.
type Config struct {
	// Static AWS credentials are optional — nil when the default chain is used.
	AWSKeyID  *string
	AWSSecret *string
	AWSRegion string // region for S3/Athena clients (default "us-east-1")

	CuratedBucket string   // S3 bucket holding the partitioned price objects
	Watchlist     []string // tickers ingested on each scheduled run

	AlphaVantageKey string // provider API key
	AlphaVantageURL string // provider base URL (overridable for tests)

	AthenaDB     string // catalog database for query executions
	AthenaOutput string // output location for engine-produced artifacts

	BedrockRegion  string // region of the text-generation service
	BedrockModelID string // hosted model identifier

	QueryPollInterval time.Duration // fixed poll interval (default 2s)
	QueryMaxPolls     int           // poll attempt bound, 0 = unbounded (default 150)
	FetchInterval     time.Duration // minimum spacing between provider calls (default 15s)

	IngestSchedule      string // cron spec for the daily ingestion run
	MaintenanceSchedule string // cron spec for the weekly catalog repair

	ListenAddr string // HTTP listen address (default ":8080")
	LogLevel   string // log level: debug, info, warn, error (default "info")

	// Rate limiting
	RateLimitRPS   float64 // sustained requests per second (default 10)
	RateLimitBurst int     // burst capacity (default 20)

	// CORS
	CORSAllowedOrigins []string // allowed origins (default: ["*"])

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// HasStaticCredentials returns true when explicit AWS credentials are set.
func (c *Config) HasStaticCredentials() bool {
	return c.AWSKeyID != nil && c.AWSSecret != nil
}

// LoadFromEnv loads configuration from environment variables. Credentials
// are optional — the default AWS chain is used when they are absent.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		AWSRegion:           os.Getenv("AWS_REGION"),
		CuratedBucket:       os.Getenv("CURATED_BUCKET"),
		AlphaVantageKey:     os.Getenv("ALPHAVANTAGE_API_KEY"),
		AlphaVantageURL:     os.Getenv("ALPHAVANTAGE_URL"),
		AthenaDB:            os.Getenv("ATHENA_DB"),
		AthenaOutput:        os.Getenv("ATHENA_OUTPUT"),
		BedrockRegion:       os.Getenv("BEDROCK_REGION"),
		BedrockModelID:      os.Getenv("BEDROCK_MODEL_ID"),
		IngestSchedule:      os.Getenv("INGEST_SCHEDULE"),
		MaintenanceSchedule: os.Getenv("MAINTENANCE_SCHEDULE"),
		ListenAddr:          os.Getenv("LISTEN_ADDR"),
		LogLevel:            os.Getenv("LOG_LEVEL"),
	}

	// Credentials are only set if present
	if v := os.Getenv("KEY_ID"); v != "" {
		cfg.AWSKeyID = &v
	}
	if v := os.Getenv("SECRET"); v != "" {
		cfg.AWSSecret = &v
	}

	if v := os.Getenv("WATCHLIST"); v != "" {
		tickers := strings.Split(v, ",")
		for i := range tickers {
			tickers[i] = strings.ToUpper(strings.TrimSpace(tickers[i]))
		}
		cfg.Watchlist = compactNonEmpty(tickers)
	}

	// Polling and pacing
	if v := os.Getenv("QUERY_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid QUERY_POLL_INTERVAL %q: %w", v, err)
		}
		cfg.QueryPollInterval = d
	}
	// 0 disables the bound and restores wait-forever polling.
	cfg.QueryMaxPolls = 150
	if v := os.Getenv("QUERY_MAX_POLLS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid QUERY_MAX_POLLS %q: %w", v, err)
		}
		cfg.QueryMaxPolls = n
	}
	if v := os.Getenv("FETCH_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid FETCH_INTERVAL %q: %w", v, err)
		}
		cfg.FetchInterval = d
	}

	// Rate limiting
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitBurst = n
		}
	}

	// CORS
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSAllowedOrigins = origins
	}

	// Defaults
	if cfg.AWSRegion == "" {
		cfg.AWSRegion = "us-east-1"
	}
	if cfg.AlphaVantageURL == "" {
		cfg.AlphaVantageURL = "https://www.alphavantage.co/query"
	}
	if cfg.BedrockRegion == "" {
		cfg.BedrockRegion = cfg.AWSRegion
	}
	if cfg.BedrockModelID == "" {
		cfg.BedrockModelID = "anthropic.claude-3-haiku-20240307-v1:0"
	}
	if cfg.QueryPollInterval == 0 {
		cfg.QueryPollInterval = 2 * time.Second
	}
	if cfg.FetchInterval == 0 {
		cfg.FetchInterval = 15 * time.Second
	}
	if cfg.IngestSchedule == "" {
		cfg.IngestSchedule = "0 22 * * MON-FRI"
	}
	if cfg.MaintenanceSchedule == "" {
		cfg.MaintenanceSchedule = "0 3 * * SUN"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 10
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 20
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}

	// Required settings: missing values are collected as warnings so the
	// server can still start for local development against fakes.
	if cfg.CuratedBucket == "" {
		cfg.Warnings = append(cfg.Warnings, "CURATED_BUCKET not set — ingestion and backfill will fail")
	}
	if len(cfg.Watchlist) == 0 {
		cfg.Warnings = append(cfg.Warnings, "WATCHLIST not set — scheduled ingestion has nothing to do")
	}
	if cfg.AlphaVantageKey == "" {
		cfg.Warnings = append(cfg.Warnings, "ALPHAVANTAGE_API_KEY not set — provider calls will be rejected")
	}
	if cfg.AthenaDB == "" || cfg.AthenaOutput == "" {
		cfg.Warnings = append(cfg.Warnings, "ATHENA_DB/ATHENA_OUTPUT not set — query execution will fail")
	}

	return cfg, nil
}

func compactNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// LoadDotEnv reads a .env file and sets any variables not already in the
// environment. Lines must be in KEY=VALUE format. Comments (#) and blank
// lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		// Env vars take precedence over the file
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
// Only strips if both the first and last characters are matching quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
