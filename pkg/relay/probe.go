package relay

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/llmrelay/llmrelay/internal/httpclient"
	"github.com/llmrelay/llmrelay/pkg/account"
	"github.com/llmrelay/llmrelay/pkg/sse"
)

const probeSystemPrompt = "You are a connection test. Reply with a brief acknowledgement."
const probeTimeout = 30 * time.Second

// Probe drives a minimal chat completion against an account's upstream to
// verify the account is reachable and authenticated, emitting domain
// events (test_start, content, message_stop, test_complete) to sink as it
// goes rather than returning a single result at the end — so an admin UI
// can show progress on a slow or hanging upstream.
func Probe(ctx context.Context, acct *account.Account, sink ResponseSink) error {
	sink.WriteHeader(http.StatusOK, map[string]string{
		"Content-Type":      "text/event-stream",
		"Cache-Control":     "no-cache",
		"Connection":        "keep-alive",
		"X-Accel-Buffering": "no",
	})
	writer := sse.NewWriter(sink)
	_ = writer.WriteJSON(map[string]interface{}{"type": "test_start"})
	sink.Flush()

	model := acct.DefaultModel
	if model == "" {
		model = "gpt-4o-mini"
	}

	client, err := httpclient.NewClient(httpclient.Config{
		BaseURL:  acct.BaseApi,
		ProxyURL: acct.Proxy,
		Timeout:  probeTimeout,
	})
	if err != nil {
		return completeProbe(writer, sink, false, err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	resp, err := client.DoStream(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   "/v1/chat/completions",
		Headers: map[string]string{
			"Authorization": "Bearer " + acct.ApiKey,
		},
		Body: map[string]interface{}{
			"model":      model,
			"stream":     true,
			"max_tokens": 100,
			"messages": []map[string]string{
				{"role": "system", "content": probeSystemPrompt},
				{"role": "user", "content": "hi"},
			},
		},
	})
	if err != nil {
		return completeProbe(writer, sink, false, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return completeProbe(writer, sink, false, extractProbeErrorMessage(body))
	}

	framer := sse.NewFramer()
	buf := make([]byte, 2048)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			for _, ev := range framer.Push(buf[:n]) {
				if ev.Done {
					continue
				}
				if text := openAIDeltaContent(ev.Data); text != "" {
					_ = writer.WriteJSON(map[string]interface{}{"type": "content", "text": text})
					sink.Flush()
				}
			}
		}
		if readErr != nil {
			break
		}
		if ctx.Err() != nil {
			return completeProbe(writer, sink, false, "probe timed out")
		}
	}

	_ = writer.WriteJSON(map[string]interface{}{"type": "message_stop"})
	sink.Flush()
	return completeProbe(writer, sink, true, "")
}

func completeProbe(writer *sse.Writer, sink ResponseSink, success bool, errMsg string) error {
	event := map[string]interface{}{"type": "test_complete", "success": success}
	if errMsg != "" {
		event["error"] = errMsg
	}
	err := writer.WriteJSON(event)
	sink.Flush()
	return err
}

func openAIDeltaContent(data map[string]interface{}) string {
	choices, ok := data["choices"].([]interface{})
	if !ok || len(choices) == 0 {
		return ""
	}
	choice, ok := choices[0].(map[string]interface{})
	if !ok {
		return ""
	}
	delta, ok := choice["delta"].(map[string]interface{})
	if !ok {
		return ""
	}
	content, _ := delta["content"].(string)
	return content
}

func extractProbeErrorMessage(body []byte) string {
	var parsed map[string]interface{}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return string(body)
	}
	if errObj, ok := parsed["error"].(map[string]interface{}); ok {
		if msg, ok := errObj["message"].(string); ok && msg != "" {
			return msg
		}
	}
	return string(body)
}
