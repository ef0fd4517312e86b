// Package relay implements the end-to-end request lifecycle: account
// lookup, optional request/response translation, upstream dispatch, SSE
// splicing, and usage recording.
package relay

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/llmrelay/llmrelay/internal/httpclient"
	"github.com/llmrelay/llmrelay/internal/rlog"
	"github.com/llmrelay/llmrelay/pkg/account"
	"github.com/llmrelay/llmrelay/pkg/envelope"
	"github.com/llmrelay/llmrelay/pkg/providertag"
	"github.com/llmrelay/llmrelay/pkg/relayerrors"
	"github.com/llmrelay/llmrelay/pkg/sse"
	"github.com/llmrelay/llmrelay/pkg/telemetry"
	"github.com/llmrelay/llmrelay/pkg/translate"
	"github.com/llmrelay/llmrelay/pkg/usage"
)

// rateLimitErrorTypes lists the three spellings different providers use
// for the same in-stream condition.
var rateLimitErrorTypes = map[string]bool{
	"rate_limit_error":    true,
	"usage_limit_reached": true,
	"rate_limit_exceeded": true,
}

// Config configures a Core.
type Config struct {
	// RequestTimeout bounds a single upstream call, streaming or not.
	RequestTimeout time.Duration

	// TranslationEnabled is the global feature flag; a request is only
	// translated when this AND the resolved account's own
	// enableTranslation field are both truthy.
	TranslationEnabled bool
}

// Core implements the end-to-end relay request lifecycle.
type Core struct {
	cfg        Config
	accounts   AccountResolver
	scheduler  Scheduler
	costCalc   CostCalculator
	usageRec   UsageRecorder
	apiKeyRec  ApiKeyRecorder
	translator *translate.Service
	tags       *providertag.Registry
	tracer     trace.Tracer

	requestsTotal atomic.Int64
	errorsTotal   atomic.Int64
}

// Stats is a snapshot of a Core's running request/error counters, for the
// admin stats surface.
type Stats struct {
	RequestsTotal int64
	ErrorsTotal   int64
}

// Stats returns a snapshot of the core's running counters.
func (c *Core) Stats() Stats {
	return Stats{
		RequestsTotal: c.requestsTotal.Load(),
		ErrorsTotal:   c.errorsTotal.Load(),
	}
}

// NewCore wires a relay Core from its collaborators. translator and
// apiKeyRec may be nil: a nil translator disables translation entirely
// regardless of Config.TranslationEnabled, and a nil apiKeyRec simply
// skips per-key usage attribution.
func NewCore(cfg Config, accounts AccountResolver, scheduler Scheduler, costCalc CostCalculator, usageRec UsageRecorder, apiKeyRec ApiKeyRecorder, translator *translate.Service, tags *providertag.Registry) *Core {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 600 * time.Second
	}
	if tags == nil {
		tags = providertag.New()
	}
	return &Core{
		cfg:        cfg,
		accounts:   accounts,
		scheduler:  scheduler,
		costCalc:   costCalc,
		usageRec:   usageRec,
		apiKeyRec:  apiKeyRec,
		translator: translator,
		tags:       tags,
		tracer:     telemetry.GetTracer(nil),
	}
}

// WithTracer overrides the Core's OpenTelemetry tracer, e.g. to supply one
// wired to a real OTLP exporter instead of the default no-op.
func (c *Core) WithTracer(tracer trace.Tracer) *Core {
	c.tracer = tracer
	return c
}

// TestConnection resolves accountID and runs a connection probe against it,
// streaming domain events to sink as the probe progresses.
func (c *Core) TestConnection(ctx context.Context, accountID string, sink ResponseSink) error {
	ctx, span := c.tracer.Start(ctx, "relay.test_connection", trace.WithAttributes(
		attribute.String("relay.account_id", accountID),
	))
	defer span.End()

	acct, err := c.accounts.Resolve(ctx, accountID)
	if err != nil || acct == nil {
		relayErr := relayerrors.AccountNotFound(accountID)
		c.writeClientError(sink, http.StatusNotFound, relayErr)
		return relayErr
	}
	return Probe(ctx, acct, sink)
}

// Request is one inbound relay call, already authenticated and parsed by
// the HTTP layer. Headers must already be filtered by the caller's own
// header-allowlist collaborator; the core does not own that policy.
type Request struct {
	AccountID string
	ApiKeyID  string
	Method    string
	Path      string
	Headers   map[string]string
	Body      envelope.Envelope
	SessionID string
}

// ResponseSink is how the core writes its response, letting the HTTP
// layer supply a framework-specific adapter (gin, chi, ...) while keeping
// this package framework-agnostic.
type ResponseSink interface {
	WriteHeader(statusCode int, headers map[string]string)
	Write(p []byte) (int, error)
	Flush()
}

// Dispatch runs one request through the full relay lifecycle: account
// lookup, optional translation, upstream dispatch, response
// classification, and usage recording. It never returns an error the
// client can see directly — failures are always translated into a
// written error response on sink, and the returned error is for the
// caller's own logging only.
func (c *Core) Dispatch(ctx context.Context, req Request, sink ResponseSink) error {
	c.requestsTotal.Add(1)

	ctx, span := c.tracer.Start(ctx, "relay.dispatch", trace.WithAttributes(
		attribute.String("relay.account_id", req.AccountID),
		attribute.Bool("relay.stream", req.Body.Stream),
	))
	defer span.End()

	acct, err := c.accounts.Resolve(ctx, req.AccountID)
	if err != nil || acct == nil {
		c.errorsTotal.Add(1)
		relayErr := relayerrors.AccountNotFound(req.AccountID)
		c.writeClientError(sink, http.StatusNotFound, relayErr)
		return relayErr
	}

	sessionHash := sessionHashOf(req.SessionID)
	providerTag := c.tags.Resolve(acct.BaseApi)
	ctx = rlog.With(ctx, "account_id", acct.ID, "provider", providerTag)

	body := req.Body
	if c.translator != nil && c.cfg.TranslationEnabled {
		body = translate.TranslateRequest(ctx, c.translator, body, acct)
	}

	client, err := httpclient.NewClient(httpclient.Config{
		BaseURL:  acct.BaseApi,
		ProxyURL: acct.Proxy,
		Timeout:  c.cfg.RequestTimeout,
	})
	if err != nil {
		c.errorsTotal.Add(1)
		relayErr := relayerrors.UpstreamTransport(acct.ID, err)
		c.writeClientError(sink, http.StatusBadGateway, relayErr)
		return relayErr
	}

	headers := mergeHeaders(req.Headers, acct)

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	upstreamReq := httpclient.Request{Method: req.Method, Path: req.Path, Headers: headers, Body: body}

	if body.Stream {
		err = c.dispatchStreaming(callCtx, client, upstreamReq, acct, providerTag, sessionHash, req.ApiKeyID, body.Model, sink)
	} else {
		err = c.dispatchBuffered(callCtx, client, upstreamReq, acct, providerTag, sessionHash, req.ApiKeyID, body.Model, sink)
	}
	if err != nil {
		c.errorsTotal.Add(1)
	}
	return err
}

func mergeHeaders(incoming map[string]string, acct *account.Account) map[string]string {
	headers := make(map[string]string, len(incoming)+3)
	for k, v := range incoming {
		headers[k] = v
	}
	headers["Authorization"] = "Bearer " + acct.ApiKey
	headers["Content-Type"] = "application/json"
	if acct.UserAgent != "" {
		headers["User-Agent"] = acct.UserAgent
	}
	return headers
}

func sessionHashOf(sessionID string) string {
	if sessionID == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(sessionID))
	return hex.EncodeToString(sum[:])
}

// dispatchBuffered handles a non-streaming upstream call.
func (c *Core) dispatchBuffered(ctx context.Context, client *httpclient.Client, upstreamReq httpclient.Request, acct *account.Account, providerTag, sessionHash, apiKeyID, requestedModel string, sink ResponseSink) error {
	resp, err := client.Do(ctx, upstreamReq)
	if err != nil {
		relayErr := c.classifyTransportError(ctx, acct.ID, err)
		c.writeClientError(sink, statusForKind(relayErr), relayErr)
		return relayErr
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return c.handleRateLimited(ctx, acct, providerTag, sessionHash, resp.Body, sink)
	case resp.StatusCode == http.StatusUnauthorized:
		return c.handleUnauthorized(ctx, acct, providerTag, sessionHash, resp.Body, sink)
	case resp.StatusCode >= 400:
		sink.WriteHeader(resp.StatusCode, map[string]string{"Content-Type": "application/json"})
		_, _ = sink.Write(resp.Body)
		sink.Flush()
		return nil
	default:
		sink.WriteHeader(resp.StatusCode, map[string]string{"Content-Type": "application/json"})
		_, _ = sink.Write(resp.Body)
		sink.Flush()

		var decoded map[string]interface{}
		if err := json.Unmarshal(resp.Body, &decoded); err == nil {
			c.recordUsage(ctx, acct, apiKeyID, usage.Extract(decoded, requestedModel))
		}
		return nil
	}
}

// dispatchStreaming handles a streaming upstream call, splicing each SSE
// event either straight through or via the response translator.
func (c *Core) dispatchStreaming(ctx context.Context, client *httpclient.Client, upstreamReq httpclient.Request, acct *account.Account, providerTag, sessionHash, apiKeyID, requestedModel string, sink ResponseSink) error {
	resp, err := client.DoStream(ctx, upstreamReq)
	if err != nil {
		relayErr := c.classifyTransportError(ctx, acct.ID, err)
		c.writeClientError(sink, statusForKind(relayErr), relayErr)
		return relayErr
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		switch resp.StatusCode {
		case http.StatusTooManyRequests:
			return c.handleRateLimited(ctx, acct, providerTag, sessionHash, errBody, sink)
		case http.StatusUnauthorized:
			return c.handleUnauthorized(ctx, acct, providerTag, sessionHash, errBody, sink)
		default:
			sink.WriteHeader(resp.StatusCode, map[string]string{"Content-Type": "application/json"})
			_, _ = sink.Write(errBody)
			sink.Flush()
			return nil
		}
	}

	sink.WriteHeader(http.StatusOK, map[string]string{
		"Content-Type":      "text/event-stream",
		"Cache-Control":     "no-cache",
		"Connection":        "keep-alive",
		"X-Accel-Buffering": "no",
	})

	translating := c.translator != nil && c.cfg.TranslationEnabled && acct.Enabled()
	framer := sse.NewFramer()

	var respTranslator *translate.ResponseTranslator
	if translating {
		respTranslator = translate.NewResponseTranslator(c.translator, acct, sse.NewWriter(sink))
	}

	state := &streamState{}
	buf := make([]byte, 4096)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			if !translating {
				_, _ = sink.Write(chunk)
				sink.Flush()
			}
			for _, ev := range framer.Push(chunk) {
				c.observeEvent(ctx, ev, state, requestedModel)
				if translating {
					if err := respTranslator.ProcessEvent(ctx, ev); err != nil {
						rlog.Errorf(ctx, "response translator write failed: %v", err)
					}
					sink.Flush()
				}
			}
		}
		if readErr != nil {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}

	for _, ev := range framer.Flush() {
		c.observeEvent(ctx, ev, state, requestedModel)
		if translating {
			if err := respTranslator.ProcessEvent(ctx, ev); err != nil {
				rlog.Errorf(ctx, "response translator write failed: %v", err)
			}
			sink.Flush()
		}
	}

	if translating {
		if respTranslator.Finalize() {
			rlog.Warnf(ctx, "response stream ended with unterminated sentence buffer, discarding residual")
		}
	}

	if state.sawRateLimit {
		c.scheduler.MarkRateLimited(ctx, acct.ID, providerTag, sessionHash, state.resetsIn)
	}
	if state.terminalUsage != nil {
		c.recordUsage(ctx, acct, apiKeyID, *state.terminalUsage)
	}
	return nil
}

// streamState accumulates signals observed across a streaming response's
// events, independent of whether those events are also being translated.
type streamState struct {
	sawRateLimit  bool
	resetsIn      *int
	terminalUsage *usage.Usage
}

func (c *Core) observeEvent(ctx context.Context, ev sse.Event, state *streamState, requestedModel string) {
	if ev.Done || ev.Data == nil {
		return
	}

	if sse.EventType(ev) == "response.completed" {
		u := usage.Extract(ev.Data, requestedModel)
		state.terminalUsage = &u
	}

	if _, resets, ok := scanRateLimitSignal(ev.Data); ok {
		state.sawRateLimit = true
		if resets != nil {
			state.resetsIn = resets
		}
	}
}

// scanRateLimitSignal inspects a decoded event for one of the three
// rate-limit error-type strings, at either the top level or nested under
// "error", alongside any resets_in_seconds value.
func scanRateLimitSignal(data map[string]interface{}) (string, *int, bool) {
	if errType, _ := data["type"].(string); rateLimitErrorTypes[errType] {
		return errType, resetsInSecondsOf(data), true
	}
	errObj, ok := data["error"].(map[string]interface{})
	if !ok {
		return "", nil, false
	}
	if errType, _ := errObj["type"].(string); rateLimitErrorTypes[errType] {
		return errType, resetsInSecondsOf(errObj), true
	}
	return "", nil, false
}

func resetsInSecondsOf(m map[string]interface{}) *int {
	for _, key := range []string{"resets_in_seconds", "resets_in"} {
		if v, ok := m[key]; ok {
			if n, ok := v.(float64); ok {
				i := int(n)
				return &i
			}
		}
	}
	return nil
}

func (c *Core) handleRateLimited(ctx context.Context, acct *account.Account, providerTag, sessionHash string, body []byte, sink ResponseSink) error {
	resetsIn := resetsInSecondsFromBody(body)
	c.scheduler.MarkRateLimited(ctx, acct.ID, providerTag, sessionHash, resetsIn)

	var errorData map[string]interface{}
	if err := json.Unmarshal(body, &errorData); err == nil && len(errorData) > 0 {
		sink.WriteHeader(http.StatusTooManyRequests, map[string]string{"Content-Type": "application/json"})
		_, _ = sink.Write(body)
		sink.Flush()
		return relayerrors.RateLimit(acct.ID, providerTag, resetsIn)
	}

	synthetic := map[string]interface{}{"error": map[string]interface{}{"type": "rate_limit_error"}}
	if resetsIn != nil {
		synthetic["error"].(map[string]interface{})["resets_in_seconds"] = *resetsIn
	}
	writeJSON(sink, http.StatusTooManyRequests, synthetic)
	return relayerrors.RateLimit(acct.ID, providerTag, resetsIn)
}

func (c *Core) handleUnauthorized(ctx context.Context, acct *account.Account, providerTag, sessionHash string, body []byte, sink ResponseSink) error {
	reason := unauthorizedReasonOf(body)
	c.scheduler.MarkUnauthorized(ctx, acct.ID, providerTag, sessionHash, reason)

	var errorData map[string]interface{}
	if err := json.Unmarshal(body, &errorData); err == nil && len(errorData) > 0 {
		sink.WriteHeader(http.StatusUnauthorized, map[string]string{"Content-Type": "application/json"})
		_, _ = sink.Write(body)
		sink.Flush()
		return relayerrors.Unauthorized(acct.ID, providerTag, reason)
	}

	writeJSON(sink, http.StatusUnauthorized, map[string]interface{}{
		"error": map[string]interface{}{"type": "unauthorized", "code": "unauthorized", "message": reason},
	})
	return relayerrors.Unauthorized(acct.ID, providerTag, reason)
}

func resetsInSecondsFromBody(body []byte) *int {
	var parsed map[string]interface{}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil
	}
	if errObj, ok := parsed["error"].(map[string]interface{}); ok {
		if n := resetsInSecondsOf(errObj); n != nil {
			return n
		}
	}
	return resetsInSecondsOf(parsed)
}

func unauthorizedReasonOf(body []byte) string {
	var parsed interface{}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return string(body)
	}
	if s, ok := parsed.(string); ok && s != "" {
		return s
	}
	m, ok := parsed.(map[string]interface{})
	if !ok {
		return string(body)
	}
	if errObj, ok := m["error"].(map[string]interface{}); ok {
		if msg, ok := errObj["message"].(string); ok && msg != "" {
			return msg
		}
	}
	if msg, ok := m["message"].(string); ok && msg != "" {
		return msg
	}
	return string(body)
}

func (c *Core) classifyTransportError(ctx context.Context, accountID string, err error) *relayerrors.RelayError {
	if ctx.Err() != nil {
		return relayerrors.Timeout(err)
	}
	return relayerrors.UpstreamTransport(accountID, err)
}

func statusForKind(err *relayerrors.RelayError) int {
	switch err.Kind {
	case relayerrors.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (c *Core) recordUsage(ctx context.Context, acct *account.Account, apiKeyID string, u usage.Usage) {
	if c.usageRec != nil {
		if err := c.usageRec.RecordUsage(ctx, acct.ID, u); err != nil {
			rlog.Errorf(ctx, "usage record failed: %v", err)
		}
	}
	if c.apiKeyRec != nil && apiKeyID != "" {
		if err := c.apiKeyRec.RecordUsage(ctx, apiKeyID, u); err != nil {
			rlog.Errorf(ctx, "api key usage record failed: %v", err)
		}
	}
	if c.usageRec != nil && c.costCalc != nil && acct.DailyQuota > 0 {
		cost := c.costCalc.Calculate(u)
		if err := c.usageRec.UpdateQuota(ctx, acct.ID, cost); err != nil {
			rlog.Errorf(ctx, "quota update failed: %v", err)
		}
	}
}

func (c *Core) writeClientError(sink ResponseSink, status int, err *relayerrors.RelayError) {
	writeJSON(sink, status, map[string]interface{}{
		"error": map[string]interface{}{
			"type":    string(err.Kind),
			"message": err.Message,
		},
	})
}

func writeJSON(sink ResponseSink, status int, v interface{}) {
	data, marshalErr := json.Marshal(v)
	if marshalErr != nil {
		data = []byte(`{"error":{"type":"internal","message":"failed to encode error response"}}`)
	}
	sink.WriteHeader(status, map[string]string{"Content-Type": "application/json"})
	_, _ = sink.Write(data)
	sink.Flush()
}
