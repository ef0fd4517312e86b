// Package config loads relay configuration from the process environment,
// the same os.Getenv convention the rest of the stack uses for API keys and
// ports.
package config

import (
	"os"
	"strconv"
	"time"
)

// Translation holds the translation-subsystem configuration.
type Translation struct {
	Enabled       bool
	AccountID     string
	Model         string
	CacheSize     int
	CacheTTLHours int
	MaxTokens     int
}

// Config is the relay's full runtime configuration.
type Config struct {
	Port           string
	RequestTimeout time.Duration
	Translation    Translation

	// HealthPort (chi), AdminPort (echo) and StatsPort (fiber) back the admin
	// surfaces, kept on distinct ports so a reverse proxy can expose or
	// firewall them independently of primary ingress.
	AdminPort  string
	HealthPort string
	StatsPort  string

	OTLPEndpoint string
	ServiceName  string

	// AccountsJSON, if set, is a JSON array of account.Account literals used
	// to seed the in-memory reference account store at startup. Real
	// deployments inject accounts through the external control plane
	// instead; this exists purely so cmd/relay can boot standalone.
	AccountsJSON string
}

// FromEnv loads Config from the process environment, applying the defaults
// the specification documents for every unset key.
func FromEnv() Config {
	return Config{
		Port:           getString("PORT", "8080"),
		RequestTimeout: time.Duration(getInt("REQUEST_TIMEOUT_MS", 600_000)) * time.Millisecond,
		AdminPort:      getString("ADMIN_PORT", "8081"),
		HealthPort:     getString("HEALTH_PORT", "8082"),
		StatsPort:      getString("STATS_PORT", "8083"),
		OTLPEndpoint:   getString("OTLP_ENDPOINT", ""),
		ServiceName:    getString("SERVICE_NAME", "llmrelay"),
		AccountsJSON:   getString("ACCOUNTS_JSON", ""),
		Translation: Translation{
			Enabled:       getBool("TRANSLATION_ENABLED", false),
			AccountID:     getString("TRANSLATION_ACCOUNT_ID", ""),
			Model:         getString("TRANSLATION_MODEL", "qwen3-8b"),
			CacheSize:     getInt("TRANSLATION_CACHE_SIZE", 1000),
			CacheTTLHours: getInt("TRANSLATION_CACHE_TTL_HOURS", 24),
			MaxTokens:     getInt("TRANSLATION_MAX_TOKENS", 4096),
		},
	}
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
