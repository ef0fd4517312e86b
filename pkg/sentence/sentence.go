// Package sentence implements a streaming sentence-boundary buffer: text is
// fed in incrementally, and whole sentences are emitted as soon as a
// terminator is seen, so a caller can translate phrase-by-phrase instead of
// waiting for the full response.
package sentence

import "strings"

// terminators is the set of characters (Chinese and English punctuation,
// plus newline) that close a sentence. The terminator is kept as part of
// the emitted sentence.
const terminators = "。？！.?!\n"

// Buffer accumulates streamed text and splits it into sentences at the
// boundaries defined by terminators. It performs no language detection; it
// is a pure delimiter splitter, so a decimal point or abbreviation will
// cause an early break — acceptable since the resulting fragment is still
// translatable as a phrase.
type Buffer struct {
	pending strings.Builder
}

// New returns an empty Buffer.
func New() *Buffer {
	return &Buffer{}
}

func isTerminator(r rune) bool {
	return strings.ContainsRune(terminators, r)
}

// Add appends chunk to the buffer and returns every whole sentence that
// became available as a result, in order. Text after the last terminator
// remains buffered for the next call.
func (b *Buffer) Add(chunk string) []string {
	if chunk == "" {
		return nil
	}
	b.pending.WriteString(chunk)

	runes := []rune(b.pending.String())
	var sentences []string
	start := 0
	for i, r := range runes {
		if isTerminator(r) {
			sentences = append(sentences, string(runes[start:i+1]))
			start = i + 1
		}
	}
	if len(sentences) == 0 {
		return nil
	}

	b.pending.Reset()
	b.pending.WriteString(string(runes[start:]))
	return sentences
}

// Flush returns everything still buffered and empties the buffer.
func (b *Buffer) Flush() string {
	s := b.pending.String()
	b.pending.Reset()
	return s
}

// Reset discards any buffered content without returning it.
func (b *Buffer) Reset() {
	b.pending.Reset()
}

// Peek returns the buffered content without consuming it.
func (b *Buffer) Peek() string {
	return b.pending.String()
}

// IsEmpty reports whether the buffer currently holds no content.
func (b *Buffer) IsEmpty() bool {
	return b.pending.Len() == 0
}

// Length returns the number of buffered bytes.
func (b *Buffer) Length() int {
	return b.pending.Len()
}
