package config

import "testing"

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want default 8080", cfg.Port)
	}
	if cfg.RequestTimeout.Seconds() != 600 {
		t.Errorf("RequestTimeout = %v, want 600s default", cfg.RequestTimeout)
	}
	if cfg.Translation.Enabled {
		t.Error("expected Translation.Enabled to default false")
	}
	if cfg.Translation.Model != "qwen3-8b" {
		t.Errorf("Translation.Model = %q, want default qwen3-8b", cfg.Translation.Model)
	}
	if cfg.Translation.CacheSize != 1000 {
		t.Errorf("CacheSize = %d, want default 1000", cfg.Translation.CacheSize)
	}
	if cfg.Translation.CacheTTLHours != 24 {
		t.Errorf("CacheTTLHours = %d, want default 24", cfg.Translation.CacheTTLHours)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("TRANSLATION_ENABLED", "true")
	t.Setenv("TRANSLATION_ACCOUNT_ID", "acct-translator")
	t.Setenv("TRANSLATION_CACHE_SIZE", "500")
	t.Setenv("SERVICE_NAME", "llmrelay-staging")
	t.Setenv("ACCOUNTS_JSON", `[{"id":"a1"}]`)

	cfg := FromEnv()
	if cfg.Port != "9090" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if !cfg.Translation.Enabled {
		t.Error("expected Translation.Enabled = true")
	}
	if cfg.Translation.AccountID != "acct-translator" {
		t.Errorf("AccountID = %q", cfg.Translation.AccountID)
	}
	if cfg.Translation.CacheSize != 500 {
		t.Errorf("CacheSize = %d", cfg.Translation.CacheSize)
	}
	if cfg.ServiceName != "llmrelay-staging" {
		t.Errorf("ServiceName = %q", cfg.ServiceName)
	}
	if cfg.AccountsJSON != `[{"id":"a1"}]` {
		t.Errorf("AccountsJSON = %q", cfg.AccountsJSON)
	}
}

func TestFromEnvServiceNameDefault(t *testing.T) {
	cfg := FromEnv()
	if cfg.ServiceName != "llmrelay" {
		t.Errorf("ServiceName = %q, want default llmrelay", cfg.ServiceName)
	}
	if cfg.AccountsJSON != "" {
		t.Errorf("AccountsJSON = %q, want empty default", cfg.AccountsJSON)
	}
}

func TestFromEnvIgnoresMalformedInt(t *testing.T) {
	t.Setenv("TRANSLATION_CACHE_SIZE", "not-a-number")
	cfg := FromEnv()
	if cfg.Translation.CacheSize != 1000 {
		t.Errorf("CacheSize = %d, want fallback default 1000 on malformed input", cfg.Translation.CacheSize)
	}
}
