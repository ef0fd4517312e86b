package translate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/llmrelay/llmrelay/pkg/account"
	"github.com/llmrelay/llmrelay/pkg/sse"
)

type sliceWriter struct {
	data []byte
}

func (s *sliceWriter) Write(p []byte) (int, error) {
	s.data = append(s.data, p...)
	return len(p), nil
}

func decodeWritten(t *testing.T, w *sliceWriter) []map[string]interface{} {
	t.Helper()
	framer := sse.NewFramer()
	events := framer.Push(w.data)
	events = append(events, framer.Flush()...)
	var out []map[string]interface{}
	for _, ev := range events {
		if ev.Done {
			out = append(out, map[string]interface{}{"type": "done"})
			continue
		}
		out = append(out, ev.Data)
	}
	return out
}

func TestResponseTranslatorDisabledPassesThroughVerbatim(t *testing.T) {
	t.Parallel()

	sink := &sliceWriter{}
	rt := NewResponseTranslator(nil, &account.Account{EnableTranslation: "false"}, sse.NewWriter(sink))

	ev := sse.Event{Raw: `{"type":"content_block_start","index":0,"content_block":{"type":"text"}}`, Data: map[string]interface{}{"type": "content_block_start"}}
	if err := rt.ProcessEvent(context.Background(), ev); err != nil {
		t.Fatalf("ProcessEvent: %v", err)
	}
	if !strings.Contains(string(sink.data), "content_block_start") {
		t.Errorf("expected verbatim pass-through, got %q", sink.data)
	}
	if rt.Counters.PassThroughs != 1 {
		t.Errorf("PassThroughs = %d, want 1", rt.Counters.PassThroughs)
	}
}

func TestResponseTranslatorToolUseDeltaPassesThroughByteIdentical(t *testing.T) {
	t.Parallel()

	sink := &sliceWriter{}
	rt := NewResponseTranslator(nil, &account.Account{EnableTranslation: true}, sse.NewWriter(sink))

	start := sse.Event{
		Raw:  `{"type":"content_block_start","index":0,"content_block":{"type":"tool_use"}}`,
		Data: mustDecode(`{"type":"content_block_start","index":0,"content_block":{"type":"tool_use"}}`),
	}
	delta := sse.Event{
		Raw:  `{"type":"content_block_delta","index":0,"delta":{"type":"input_json_delta","partial_json":"{\"path\":\"/tmp\"}"}}`,
		Data: mustDecode(`{"type":"content_block_delta","index":0,"delta":{"type":"input_json_delta","partial_json":"{\"path\":\"/tmp\"}"}}`),
	}

	ctx := context.Background()
	if err := rt.ProcessEvent(ctx, start); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := rt.ProcessEvent(ctx, delta); err != nil {
		t.Fatalf("delta: %v", err)
	}

	if !strings.Contains(string(sink.data), `"partial_json":"{\"path\":\"/tmp\"}"`) {
		t.Errorf("expected tool_use delta byte-identical, got %q", sink.data)
	}
}

func TestResponseTranslatorTranslatesTextDeltasAtSentenceBoundaries(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{{"message": map[string]string{"content": "翻译后的句子。"}}},
		})
	}))
	defer srv.Close()

	resolver := &fakeResolver{accounts: map[string]*account.Account{
		"t1": {ID: "t1", BaseApi: srv.URL, ApiKey: "k", DefaultModel: "gpt-4o-mini"},
	}}
	svc := NewService(Config{TranslatorAccountID: "t1", CacheTTL: time.Hour, CacheSize: 10}, resolver)

	sink := &sliceWriter{}
	acct := &account.Account{EnableTranslation: true}
	rt := NewResponseTranslator(svc, acct, sse.NewWriter(sink))

	ctx := context.Background()
	events := []sse.Event{
		{Raw: `{"type":"content_block_start","index":0,"content_block":{"type":"text"}}`, Data: mustDecode(`{"type":"content_block_start","index":0,"content_block":{"type":"text"}}`)},
		{Raw: `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Here is "}}`, Data: mustDecode(`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Here is "}}`)},
		{Raw: `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"a server."}}`, Data: mustDecode(`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"a server."}}`)},
		{Raw: `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"\nIt works."}}`, Data: mustDecode(`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"\nIt works."}}`)},
		{Raw: `{"type":"content_block_stop","index":0}`, Data: mustDecode(`{"type":"content_block_stop","index":0}`)},
	}
	for _, ev := range events {
		if err := rt.ProcessEvent(ctx, ev); err != nil {
			t.Fatalf("ProcessEvent: %v", err)
		}
	}
	rt.Finalize()

	decoded := decodeWritten(t, sink)
	var textDeltaCount int
	for _, ev := range decoded {
		if ev["type"] == "content_block_delta" {
			textDeltaCount++
		}
	}
	if textDeltaCount < 2 {
		t.Errorf("expected at least 2 translated text deltas (one per sentence), got %d: %+v", textDeltaCount, decoded)
	}
	if rt.Counters.SentencesTranslated < 2 {
		t.Errorf("SentencesTranslated = %d, want >= 2", rt.Counters.SentencesTranslated)
	}
}

func TestResponseTranslatorFinalizeDiscardsResidual(t *testing.T) {
	t.Parallel()

	sink := &sliceWriter{}
	rt := NewResponseTranslator(nil, &account.Account{EnableTranslation: true}, sse.NewWriter(sink))

	ctx := context.Background()
	_ = rt.ProcessEvent(ctx, sse.Event{
		Raw:  `{"type":"content_block_start","index":0,"content_block":{"type":"text"}}`,
		Data: mustDecode(`{"type":"content_block_start","index":0,"content_block":{"type":"text"}}`),
	})
	_ = rt.ProcessEvent(ctx, sse.Event{
		Raw:  `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"no terminator"}}`,
		Data: mustDecode(`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"no terminator"}}`),
	})
	// Stream ends without content_block_stop.
	rt.Finalize()

	if !rt.buffer.IsEmpty() {
		t.Error("expected Finalize to discard residual buffer content")
	}
}

func mustDecode(s string) map[string]interface{} {
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		panic(err)
	}
	return m
}
