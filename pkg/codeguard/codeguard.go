// Package codeguard protects fenced and inline code spans from translation by
// replacing them with stable placeholders, and restores them afterward.
package codeguard

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	fencedPlaceholderPrefix = "__CODE_BLOCK_"
	inlinePlaceholderPrefix = "__INLINE_CODE_"
	placeholderSuffix       = "__"
)

// fencedBlockPattern matches ``` ... ``` fences, non-greedy, across newlines.
var fencedBlockPattern = regexp.MustCompile("(?s)```.*?```")

// inlineCodePattern matches `...` spans that contain no backtick.
var inlineCodePattern = regexp.MustCompile("`[^`\n]+`")

// Placeholders is an ordered map from synthetic placeholder token to the
// original code substring it replaced. Order is insertion order (fenced
// blocks first, then inline spans), matching the numbering invariant.
type Placeholders struct {
	keys   []string
	values map[string]string
}

// NewPlaceholders returns an empty, ready-to-use Placeholders map.
func NewPlaceholders() *Placeholders {
	return &Placeholders{values: make(map[string]string)}
}

func (p *Placeholders) add(key, value string) {
	if _, exists := p.values[key]; !exists {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

// Len reports the number of placeholders recorded.
func (p *Placeholders) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

// Extract replaces fenced code blocks and inline code spans in text with
// stable placeholder tokens, returning the cleaned text and the map needed
// to restore it. Fenced blocks are extracted first; the placeholder index is
// a single counter shared across both passes.
func Extract(text string) (string, *Placeholders) {
	placeholders := NewPlaceholders()
	if text == "" {
		return "", placeholders
	}

	index := 0

	withoutFenced := fencedBlockPattern.ReplaceAllStringFunc(text, func(match string) string {
		key := fencedPlaceholderPrefix + strconv.Itoa(index) + placeholderSuffix
		placeholders.add(key, match)
		index++
		return key
	})

	withoutInline := inlineCodePattern.ReplaceAllStringFunc(withoutFenced, func(match string) string {
		key := inlinePlaceholderPrefix + strconv.Itoa(index) + placeholderSuffix
		placeholders.add(key, match)
		index++
		return key
	})

	return withoutInline, placeholders
}

// Restore substitutes every placeholder in translated back with its original
// code substring. A naive split-and-join is used per key so that a
// translator echoing a placeholder more than once is still handled.
func Restore(translated string, placeholders *Placeholders) string {
	if placeholders.Len() == 0 {
		return translated
	}
	result := translated
	for _, key := range placeholders.keys {
		result = strings.Join(strings.Split(result, key), placeholders.values[key])
	}
	return result
}

// IsCodeOnly reports whether text, once all code spans are stripped, is
// nothing but whitespace.
func IsCodeOnly(text string) bool {
	clean, placeholders := Extract(text)
	for _, key := range placeholders.keys {
		clean = strings.ReplaceAll(clean, key, "")
	}
	return strings.TrimSpace(clean) == ""
}

// CountCodeBlocks returns the number of fenced blocks and inline spans in
// text. Fenced content is removed before inline spans are counted so that
// backticks inside fenced code are never double-counted.
func CountCodeBlocks(text string) (fenced int, inline int) {
	if text == "" {
		return 0, 0
	}
	fencedMatches := fencedBlockPattern.FindAllString(text, -1)
	fenced = len(fencedMatches)

	withoutFenced := fencedBlockPattern.ReplaceAllString(text, "")
	inline = len(inlineCodePattern.FindAllString(withoutFenced, -1))
	return fenced, inline
}
