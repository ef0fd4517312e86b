// Package sse frames and parses Server-Sent Events over a byte stream that
// arrives in arbitrary-sized chunks, and re-emits events toward a client.
package sse

import (
	"bytes"
	"encoding/json"
	"strings"
)

// done is the sentinel payload providers use to close a stream.
const done = "[DONE]"

// Event is one decoded SSE event. Raw holds the payload bytes as received;
// Data holds the json.Unmarshal target when the payload decoded
// successfully and wasn't the [DONE] sentinel.
type Event struct {
	Raw  string
	Done bool
	Data map[string]interface{}
}

// Framer accumulates bytes pushed in from a streaming HTTP response body and
// extracts complete SSE events as soon as their terminating blank line
// arrives. A partial event at the tail of a chunk is retained until the next
// Push call completes it.
type Framer struct {
	buf bytes.Buffer
}

// NewFramer returns an empty Framer.
func NewFramer() *Framer {
	return &Framer{}
}

// Push appends chunk to the accumulator and returns every event that became
// complete as a result, in order. Decode failures on an individual event are
// skipped rather than returned as an error: a malformed or provider-specific
// event must never abort the stream.
func (f *Framer) Push(chunk []byte) []Event {
	if len(chunk) == 0 {
		return nil
	}
	f.buf.Write(chunk)

	var events []Event
	for {
		data := f.buf.Bytes()
		idx := bytes.Index(data, []byte("\n\n"))
		if idx == -1 {
			break
		}
		rawEvent := string(data[:idx])
		f.buf.Next(idx + 2)

		if ev, ok := parseEvent(rawEvent); ok {
			events = append(events, ev)
		}
	}
	return events
}

// Flush returns the decoded event currently sitting in the accumulator, if
// any, and clears it. Used at end-of-stream to drain a final event that
// never received a trailing blank line.
func (f *Framer) Flush() []Event {
	rawEvent := f.buf.String()
	f.buf.Reset()
	if strings.TrimSpace(rawEvent) == "" {
		return nil
	}
	if ev, ok := parseEvent(rawEvent); ok {
		return []Event{ev}
	}
	return nil
}

// parseEvent scans an event's lines for "data:" fields, concatenating
// multi-line payloads with "\n" per the SSE spec, then decodes the result.
func parseEvent(rawEvent string) (Event, bool) {
	var dataLines []string
	for _, line := range strings.Split(rawEvent, "\n") {
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		value := strings.TrimPrefix(line, "data:")
		value = strings.TrimPrefix(value, " ")
		dataLines = append(dataLines, value)
	}
	if len(dataLines) == 0 {
		return Event{}, false
	}

	payload := strings.Join(dataLines, "\n")
	if payload == done {
		return Event{Raw: payload, Done: true}, true
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		return Event{}, false
	}
	return Event{Raw: payload, Data: decoded}, true
}

// Writer re-emits events toward a client as `data: <payload>\n\n` frames.
type Writer struct {
	w interface {
		Write(p []byte) (int, error)
	}
}

// NewWriter wraps w for event emission.
func NewWriter(w interface {
	Write(p []byte) (int, error)
}) *Writer {
	return &Writer{w: w}
}

// WriteRaw writes a pre-serialized payload (including the [DONE] sentinel)
// verbatim as a single SSE frame.
func (w *Writer) WriteRaw(payload string) error {
	_, err := w.w.Write([]byte("data: " + payload + "\n\n"))
	return err
}

// WriteJSON marshals v and writes it as a single SSE frame.
func (w *Writer) WriteJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return w.WriteRaw(string(data))
}

// WriteDone writes the [DONE] sentinel frame.
func (w *Writer) WriteDone() error {
	return w.WriteRaw(done)
}

// EventType returns the decoded event's "type" field, or "" if absent or the
// event was the [DONE] sentinel.
func EventType(ev Event) string {
	if ev.Done || ev.Data == nil {
		return ""
	}
	t, _ := ev.Data["type"].(string)
	return t
}
