package translate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/llmrelay/llmrelay/pkg/account"
	"github.com/llmrelay/llmrelay/pkg/relayerrors"
)

type fakeResolver struct {
	accounts map[string]*account.Account
}

func (f *fakeResolver) Resolve(ctx context.Context, id string) (*account.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return nil, nil
	}
	return a, nil
}

func newTestService(t *testing.T, srv *httptest.Server, accountID string) *Service {
	t.Helper()
	resolver := &fakeResolver{accounts: map[string]*account.Account{
		accountID: {ID: accountID, BaseApi: srv.URL, ApiKey: "secret", DefaultModel: "gpt-4o-mini"},
	}}
	return NewService(Config{TranslatorAccountID: accountID, CacheTTL: time.Hour, CacheSize: 10}, resolver)
}

func TestTranslateEmptyInputUnchanged(t *testing.T) {
	t.Parallel()
	svc := NewService(Config{}, &fakeResolver{})
	got, err := svc.Translate(context.Background(), "   ", "zh", "en")
	if err != nil || got != "   " {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestTranslateSameLanguageUnchanged(t *testing.T) {
	t.Parallel()
	svc := NewService(Config{}, &fakeResolver{})
	got, err := svc.Translate(context.Background(), "hello", "en", "en")
	if err != nil || got != "hello" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestTranslateUnsupportedLanguagePair(t *testing.T) {
	t.Parallel()
	svc := NewService(Config{}, &fakeResolver{})
	_, err := svc.Translate(context.Background(), "hello", "en", "fr")
	if !relayerrors.Is(err, relayerrors.KindUnsupportedLanguage) {
		t.Fatalf("err = %v, want UnsupportedLanguage", err)
	}
}

func TestTranslateAccountNotConfigured(t *testing.T) {
	t.Parallel()
	svc := NewService(Config{}, &fakeResolver{})
	_, err := svc.Translate(context.Background(), "你好", "zh", "en")
	if !relayerrors.Is(err, relayerrors.KindAccountNotConfigured) {
		t.Fatalf("err = %v, want AccountNotConfigured", err)
	}
}

func TestTranslateCallsUpstreamAndCaches(t *testing.T) {
	t.Parallel()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "hello there"}},
			},
		})
	}))
	defer srv.Close()

	svc := newTestService(t, srv, "translator-1")
	got, err := svc.Translate(context.Background(), "你好", "zh", "en")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != "hello there" {
		t.Errorf("got %q", got)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}

	// Second call with identical args should hit the cache, not upstream.
	got2, err := svc.Translate(context.Background(), "你好", "zh", "en")
	if err != nil || got2 != "hello there" {
		t.Fatalf("got %q, %v", got2, err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (cache hit expected)", calls)
	}
}

func TestTranslateQwen3SetsThinkingFlag(t *testing.T) {
	t.Parallel()

	var received map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&received)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{{"message": map[string]string{"content": "ok"}}},
		})
	}))
	defer srv.Close()

	resolver := &fakeResolver{accounts: map[string]*account.Account{
		"t1": {ID: "t1", BaseApi: srv.URL, ApiKey: "k", DefaultModel: "qwen3-max"},
	}}
	svc := NewService(Config{TranslatorAccountID: "t1", CacheTTL: time.Hour, CacheSize: 10}, resolver)

	if _, err := svc.Translate(context.Background(), "你好", "zh", "en"); err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if enabled, ok := received["enable_thinking"].(bool); !ok || enabled {
		t.Errorf("enable_thinking = %v, want false", received["enable_thinking"])
	}
}

func TestTranslateHttpErrorExtractsMessage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":{"message":"upstream exploded"}}`))
	}))
	defer srv.Close()

	svc := newTestService(t, srv, "t1")
	_, err := svc.Translate(context.Background(), "你好", "zh", "en")
	if !relayerrors.Is(err, relayerrors.KindHttpError) {
		t.Fatalf("err = %v, want HttpError", err)
	}
}

func TestTranslateGenerousRateLimitDoesNotDelayCalls(t *testing.T) {
	t.Parallel()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{{"message": map[string]string{"content": "ok"}}},
		})
	}))
	defer srv.Close()

	resolver := &fakeResolver{accounts: map[string]*account.Account{
		"t1": {ID: "t1", BaseApi: srv.URL, ApiKey: "k", DefaultModel: "gpt-4o-mini"},
	}}
	svc := NewService(Config{TranslatorAccountID: "t1", CacheTTL: time.Hour, CacheSize: 10, RequestsPerSecond: 1000}, resolver)

	start := time.Now()
	for i := 0; i < 3; i++ {
		text := []string{"一", "二", "三"}[i]
		if _, err := svc.Translate(context.Background(), text, "zh", "en"); err != nil {
			t.Fatalf("Translate: %v", err)
		}
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("expected a generous rate limit to not meaningfully delay 3 distinct calls")
	}
}

func TestTranslateAccountMissingKey(t *testing.T) {
	t.Parallel()

	resolver := &fakeResolver{accounts: map[string]*account.Account{
		"t1": {ID: "t1", BaseApi: "https://example.com"},
	}}
	svc := NewService(Config{TranslatorAccountID: "t1"}, resolver)
	_, err := svc.Translate(context.Background(), "你好", "zh", "en")
	if !relayerrors.Is(err, relayerrors.KindAccountMissingKey) {
		t.Fatalf("err = %v, want AccountMissingKey", err)
	}
}
