// Package translate implements the translation subsystem: the upstream
// translation call (C5), the request-side translator (C6), and the
// response-side SSE translator (C7).
package translate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/llmrelay/llmrelay/internal/httpclient"
	"github.com/llmrelay/llmrelay/pkg/account"
	"github.com/llmrelay/llmrelay/pkg/cache"
	"github.com/llmrelay/llmrelay/pkg/codeguard"
	"github.com/llmrelay/llmrelay/pkg/relayerrors"
	"github.com/llmrelay/llmrelay/pkg/telemetry"
)

const systemPrompt = "You are a translation engine. Return only the translation, nothing else. " +
	"Preserve all whitespace exactly. Preserve any __CODE_BLOCK_*__ or __INLINE_CODE_*__ placeholders " +
	"verbatim, unmodified, in their original positions. Maintain the tone of the source text."

const requestTimeout = 60 * time.Second

// Config configures a Service.
type Config struct {
	// TranslatorAccountID identifies the account used to perform upstream
	// translation calls. Empty means translation is unconfigured.
	TranslatorAccountID string

	// CacheTTL is how long a successful translation is memoized.
	CacheTTL time.Duration

	// CacheSize bounds the number of memoized translations.
	CacheSize int

	// Model is the default translation model, used when the translator
	// account itself specifies none.
	Model string

	// MaxTokens is the max_tokens value sent on translation calls.
	MaxTokens int

	// RequestsPerSecond caps the rate of upstream translation calls to
	// protect the translator account from burst load. Zero or negative
	// means unlimited.
	RequestsPerSecond float64
}

// Service performs cached, upstream-backed text translation between zh and
// en.
type Service struct {
	cfg      Config
	accounts account.Resolver
	cache    *cache.LRU
	limiter  *rate.Limiter
	tracer   trace.Tracer
}

// NewService constructs a Service. accounts resolves the translator account
// by id.
func NewService(cfg Config, accounts account.Resolver) *Service {
	limit := rate.Inf
	burst := 1
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
		burst = int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
	}
	return &Service{
		cfg:      cfg,
		accounts: accounts,
		cache:    cache.New(cfg.CacheSize, cfg.CacheTTL),
		limiter:  rate.NewLimiter(limit, burst),
		tracer:   telemetry.GetTracer(nil),
	}
}

// WithTracer overrides the service's default no-op tracer, e.g. with a real
// OTLP-backed one constructed at startup.
func (s *Service) WithTracer(tracer trace.Tracer) *Service {
	s.tracer = tracer
	return s
}

// CacheStats returns a snapshot of the translation cache's activity, for the
// admin stats surface.
func (s *Service) CacheStats() cache.Stats {
	return s.cache.Stats()
}

func isSupportedLang(lang string) bool {
	return lang == "zh" || lang == "en"
}

// Translate converts text from sourceLang to targetLang, consulting the
// cache first and falling back to one upstream chat-completion call.
func (s *Service) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	if sourceLang == targetLang {
		return text, nil
	}
	if !isSupportedLang(sourceLang) || !isSupportedLang(targetLang) {
		return "", relayerrors.UnsupportedLanguage(sourceLang, targetLang)
	}

	key := cacheKey(sourceLang, targetLang, text)
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	translated, err := s.callUpstream(ctx, text, sourceLang, targetLang)
	if err != nil {
		return "", err
	}

	translated = strings.TrimSpace(translated)
	s.cache.Set(key, translated)
	return translated, nil
}

func cacheKey(sourceLang, targetLang, text string) string {
	sum := sha256.Sum256([]byte(sourceLang + ":" + targetLang + ":" + text))
	return "trans:" + hex.EncodeToString(sum[:])[:16]
}

func (s *Service) callUpstream(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if s.cfg.TranslatorAccountID == "" {
		return "", relayerrors.AccountNotConfigured()
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return "", relayerrors.Timeout(err)
	}

	acct, err := s.accounts.Resolve(ctx, s.cfg.TranslatorAccountID)
	if err != nil || acct == nil {
		return "", relayerrors.AccountNotFound(s.cfg.TranslatorAccountID)
	}
	if acct.ApiKey == "" {
		return "", relayerrors.AccountMissingKey(acct.ID)
	}
	if acct.BaseApi == "" {
		return "", relayerrors.AccountMissingBaseUrl(acct.ID)
	}

	model := acct.DefaultModel
	if model == "" {
		model = s.cfg.Model
	}
	if model == "" {
		model = "qwen3-8b"
	}

	maxTokens := s.cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	body := map[string]interface{}{
		"model":      model,
		"stream":     false,
		"max_tokens": maxTokens,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": fmt.Sprintf("Translate the following from %s to %s:\n\n%s", sourceLang, targetLang, text)},
		},
	}
	if strings.HasPrefix(model, "qwen3") {
		body["enable_thinking"] = false
	}

	client, err := httpclient.NewClient(httpclient.Config{
		BaseURL:  acct.BaseApi,
		ProxyURL: acct.Proxy,
		Timeout:  requestTimeout,
		Headers: map[string]string{
			"Authorization": "Bearer " + acct.ApiKey,
		},
	})
	if err != nil {
		return "", relayerrors.UpstreamTransport(acct.ID, err)
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	content, err := telemetry.RecordSpan(ctx, s.tracer, telemetry.SpanOptions{
		Name: "translate.call",
		Attributes: []attribute.KeyValue{
			attribute.String("translate.account_id", acct.ID),
			attribute.String("translate.model", model),
		},
		EndWhenDone: true,
	}, func(ctx context.Context, _ trace.Span) (string, error) {
		resp, err := client.Do(ctx, httpclient.Request{
			Method: http.MethodPost,
			Path:   "/v1/chat/completions",
			Body:   body,
		})
		if err != nil {
			if ctx.Err() != nil {
				return "", relayerrors.Timeout(err)
			}
			return "", relayerrors.UpstreamTransport(acct.ID, err)
		}

		if resp.StatusCode != http.StatusOK {
			return "", relayerrors.HttpError(resp.StatusCode, extractErrorMessage(resp.Body))
		}

		var decoded struct {
			Choices []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			} `json:"choices"`
		}
		if err := json.Unmarshal(resp.Body, &decoded); err != nil || len(decoded.Choices) == 0 {
			return "", relayerrors.ParseError(err)
		}

		return decoded.Choices[0].Message.Content, nil
	})
	return content, err
}

func extractErrorMessage(body []byte) string {
	var parsed map[string]interface{}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return string(body)
	}
	if msg, ok := parsed["message"].(string); ok && msg != "" {
		return msg
	}
	if errObj, ok := parsed["error"].(map[string]interface{}); ok {
		if msg, ok := errObj["message"].(string); ok && msg != "" {
			return msg
		}
	}
	return string(body)
}

// TranslateText applies the placeholder-protection pipeline around a single
// call to Translate: code spans are extracted before the call and restored
// after. Any failure at any step is swallowed and the original text is
// returned, since translation must never block the caller's request.
func TranslateText(ctx context.Context, svc *Service, text, sourceLang, targetLang string, requireSourceChars func(string) bool) string {
	if text == "" {
		return text
	}
	if requireSourceChars != nil && !requireSourceChars(text) {
		return text
	}

	clean, placeholders := codeguard.Extract(text)
	if strings.TrimSpace(clean) == "" {
		return text
	}

	translated, err := svc.Translate(ctx, clean, sourceLang, targetLang)
	if err != nil {
		return text
	}

	return codeguard.Restore(translated, placeholders)
}
