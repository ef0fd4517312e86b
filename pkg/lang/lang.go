// Package lang provides heuristic (non-model) detection of Chinese and
// English text ratios, used to decide whether a string is worth translating.
package lang

// Language identifies the detected primary language of a string.
type Language string

const (
	Chinese Language = "chinese"
	English Language = "english"
	Mixed   Language = "mixed"
	Unknown Language = "unknown"
)

const (
	chineseThreshold = 0.30
	englishThreshold = 0.50
)

// Stats holds the raw character counts a detection pass computed.
type Stats struct {
	ChineseCount  int
	EnglishCount  int
	NonSpaceCount int
	ChineseRatio  float64
	EnglishRatio  float64
}

func isChineseRune(r rune) bool {
	return r >= 0x4E00 && r <= 0x9FA5
}

func isEnglishRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	default:
		return false
	}
}

func computeStats(text string) Stats {
	var s Stats
	for _, r := range text {
		if isSpace(r) {
			continue
		}
		s.NonSpaceCount++
		if isChineseRune(r) {
			s.ChineseCount++
		} else if isEnglishRune(r) {
			s.EnglishCount++
		}
	}
	if s.NonSpaceCount > 0 {
		s.ChineseRatio = float64(s.ChineseCount) / float64(s.NonSpaceCount)
		s.EnglishRatio = float64(s.EnglishCount) / float64(s.NonSpaceCount)
	}
	return s
}

// Detect returns the raw character-count statistics for text.
func Detect(text string) Stats {
	if text == "" {
		return Stats{}
	}
	return computeStats(text)
}

// ContainsChinese reports whether text has at least one Chinese character,
// regardless of ratio. Used to skip translation work on text that is
// obviously already English.
func ContainsChinese(text string) bool {
	for _, r := range text {
		if isChineseRune(r) {
			return true
		}
	}
	return false
}

// IsPrimarilyChinese reports whether the Chinese-character ratio (over all
// non-whitespace characters) exceeds 0.30.
func IsPrimarilyChinese(text string) bool {
	if text == "" {
		return false
	}
	return computeStats(text).ChineseRatio > chineseThreshold
}

// IsPrimarilyEnglish reports whether the English-letter ratio (over all
// non-whitespace characters) exceeds 0.50.
func IsPrimarilyEnglish(text string) bool {
	if text == "" {
		return false
	}
	return computeStats(text).EnglishRatio > englishThreshold
}

// DetectPrimaryLanguage classifies text as Chinese, English, Mixed, or
// Unknown using the same thresholds as IsPrimarilyChinese/IsPrimarilyEnglish.
func DetectPrimaryLanguage(text string) Language {
	if text == "" {
		return Unknown
	}
	stats := computeStats(text)
	switch {
	case stats.ChineseRatio > chineseThreshold:
		return Chinese
	case stats.EnglishRatio > englishThreshold:
		return English
	case stats.ChineseCount > 0 && stats.EnglishCount > 0:
		return Mixed
	default:
		return Unknown
	}
}
