package main

import (
	"context"
	"net/http"
	"testing"

	"github.com/llmrelay/llmrelay/internal/refstore"
)

func TestSeedAccountsEmptyIsNoop(t *testing.T) {
	store := refstore.NewAccountStore()
	if err := seedAccounts(store, ""); err != nil {
		t.Fatalf("seedAccounts: %v", err)
	}
	if acct, _ := store.Resolve(context.Background(), "a1"); acct != nil {
		t.Errorf("expected no accounts seeded, got %+v", acct)
	}
}

func TestSeedAccountsParsesAndStoresAccounts(t *testing.T) {
	store := refstore.NewAccountStore()
	raw := `[{"id":"a1","baseApi":"https://api.example.com","apiKey":"secret","dailyQuota":50}]`

	if err := seedAccounts(store, raw); err != nil {
		t.Fatalf("seedAccounts: %v", err)
	}

	acct, err := store.Resolve(context.Background(), "a1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if acct == nil {
		t.Fatal("expected account a1 to be seeded")
	}
	if acct.BaseApi != "https://api.example.com" || acct.ApiKey != "secret" || acct.DailyQuota != 50 {
		t.Errorf("seeded account mismatch: %+v", acct)
	}
}

func TestSeedAccountsRejectsMalformedJSON(t *testing.T) {
	store := refstore.NewAccountStore()
	if err := seedAccounts(store, "not json"); err == nil {
		t.Fatal("expected error for malformed ACCOUNTS_JSON")
	}
}

func TestFilteredHeadersStripsAuthAndHopByHop(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "Bearer secret")
	h.Set("Content-Type", "application/json")
	h.Set("X-Account-Id", "a1")
	h.Set("X-Custom-Header", "keep-me")

	out := filteredHeaders(h)

	if _, ok := out["Authorization"]; ok {
		t.Error("expected Authorization to be stripped")
	}
	if _, ok := out["Content-Type"]; ok {
		t.Error("expected Content-Type to be stripped")
	}
	if _, ok := out["X-Account-Id"]; ok {
		t.Error("expected X-Account-Id to be stripped")
	}
	if out["X-Custom-Header"] != "keep-me" {
		t.Errorf("expected X-Custom-Header to be forwarded, got %q", out["X-Custom-Header"])
	}
}

func TestFirstNonEmptyPrefersHeaderOverBody(t *testing.T) {
	if got := firstNonEmpty("from-header", "from-body"); got != "from-header" {
		t.Errorf("firstNonEmpty = %q, want from-header", got)
	}
}

func TestFirstNonEmptyFallsBackToBody(t *testing.T) {
	if got := firstNonEmpty("", "from-body"); got != "from-body" {
		t.Errorf("firstNonEmpty = %q, want from-body", got)
	}
}

func TestFirstNonEmptyAllEmpty(t *testing.T) {
	if got := firstNonEmpty("", ""); got != "" {
		t.Errorf("firstNonEmpty = %q, want empty", got)
	}
}
