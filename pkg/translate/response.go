package translate

import (
	"context"
	"strings"

	"github.com/llmrelay/llmrelay/pkg/account"
	"github.com/llmrelay/llmrelay/pkg/sentence"
	"github.com/llmrelay/llmrelay/pkg/sse"
)

// ResponseCounters tracks activity for one response's lifetime, useful for
// diagnostics on the admin stats surface.
type ResponseCounters struct {
	TotalEvents         int
	TextDeltas          int
	SentencesTranslated int
	TranslationErrors   int
	PassThroughs        int
}

// ResponseTranslator rewrites assistant text deltas on an SSE stream from
// en to zh, sentence by sentence, while leaving every other event byte-
// identical to what upstream sent. One instance is scoped to a single HTTP
// response.
type ResponseTranslator struct {
	svc    *Service
	acct   *account.Account
	writer *sse.Writer
	source string
	target string

	currentBlockType  string
	currentBlockIndex float64
	buffer            *sentence.Buffer

	Counters ResponseCounters
}

// NewResponseTranslator constructs a translator writing to w. If acct is
// nil or translation is disabled, ProcessEvent becomes a pure pass-through.
func NewResponseTranslator(svc *Service, acct *account.Account, w *sse.Writer) *ResponseTranslator {
	return &ResponseTranslator{
		svc:    svc,
		acct:   acct,
		writer: w,
		source: "en",
		target: "zh",
		buffer: sentence.New(),
	}
}

func (t *ResponseTranslator) enabled() bool {
	return t.acct != nil && t.acct.Enabled()
}

// ProcessEvent advances the state machine for one decoded upstream event
// and writes whatever it produces (verbatim or translated) to the client.
func (t *ResponseTranslator) ProcessEvent(ctx context.Context, ev sse.Event) error {
	t.Counters.TotalEvents++

	if ev.Done {
		return t.writer.WriteDone()
	}
	if !t.enabled() {
		t.Counters.PassThroughs++
		return t.writer.WriteRaw(ev.Raw)
	}

	switch sse.EventType(ev) {
	case "content_block_start":
		t.currentBlockType, t.currentBlockIndex = blockStartType(ev.Data)
		t.buffer.Reset()
		t.Counters.PassThroughs++
		return t.writer.WriteRaw(ev.Raw)

	case "content_block_delta":
		return t.processDelta(ctx, ev)

	case "content_block_stop":
		if err := t.flushRemainder(ctx); err != nil {
			return err
		}
		t.currentBlockType = ""
		t.Counters.PassThroughs++
		return t.writer.WriteRaw(ev.Raw)

	default:
		t.Counters.PassThroughs++
		return t.writer.WriteRaw(ev.Raw)
	}
}

func (t *ResponseTranslator) processDelta(ctx context.Context, ev sse.Event) error {
	deltaType, _ := nestedString(ev.Data, "delta", "type")

	switch {
	case t.currentBlockType == "tool_use":
		t.Counters.PassThroughs++
		return t.writer.WriteRaw(ev.Raw)

	case t.currentBlockType == "text" && deltaType == "text_delta":
		t.Counters.TextDeltas++
		text, _ := nestedString(ev.Data, "delta", "text")
		sentences := t.buffer.Add(text)
		for _, s := range sentences {
			if err := t.emitTranslatedSentence(ctx, s); err != nil {
				return err
			}
		}
		return nil

	default:
		t.Counters.PassThroughs++
		return t.writer.WriteRaw(ev.Raw)
	}
}

func (t *ResponseTranslator) emitTranslatedSentence(ctx context.Context, s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	translated := TranslateText(ctx, t.svc, s, t.source, t.target, nil)
	if translated != s {
		t.Counters.SentencesTranslated++
	}
	return t.writer.WriteJSON(textDeltaEvent(t.currentBlockIndex, translated))
}

func (t *ResponseTranslator) flushRemainder(ctx context.Context) error {
	if t.currentBlockType != "text" {
		return nil
	}
	remainder := t.buffer.Flush()
	if strings.TrimSpace(remainder) == "" {
		return nil
	}
	return t.emitTranslatedSentence(ctx, remainder)
}

// Finalize flushes any residual sentence buffer content and reports
// whether there was any. A non-empty residual means upstream ended the
// stream without a content_block_stop; that content is discarded, never
// silently appended after the fact. The caller is expected to log a
// warning when this returns true.
func (t *ResponseTranslator) Finalize() bool {
	if t.buffer == nil || t.buffer.IsEmpty() {
		return false
	}
	t.buffer.Reset()
	return true
}

func blockStartType(data map[string]interface{}) (string, float64) {
	block, _ := data["content_block"].(map[string]interface{})
	blockType, _ := block["type"].(string)
	index, _ := data["index"].(float64)
	return blockType, index
}

func nestedString(data map[string]interface{}, outer, inner string) (string, bool) {
	nested, ok := data[outer].(map[string]interface{})
	if !ok {
		return "", false
	}
	v, ok := nested[inner].(string)
	return v, ok
}

func textDeltaEvent(index float64, text string) map[string]interface{} {
	return map[string]interface{}{
		"type":  "content_block_delta",
		"index": index,
		"delta": map[string]interface{}{
			"type": "text_delta",
			"text": text,
		},
	}
}
