// Package usage extracts token accounting from provider usage payloads,
// which vary in field naming across providers and API versions.
package usage

// Usage is the normalized token accounting handed to the usage recorder.
type Usage struct {
	Model        string
	InputTokens  int64
	OutputTokens int64
	CachedRead   int64
	CacheCreate  int64
	ActualInput  int64
	Total        int64
}

// Extract reads a provider usage object (already JSON-decoded into a generic
// map, as it arrives embedded in a response body or a terminal SSE event)
// and normalizes it. requestedModel is used when the payload carries no
// model name of its own.
func Extract(payload map[string]interface{}, requestedModel string) Usage {
	usageObj, _ := field(payload, "usage").(map[string]interface{})

	input := firstInt(usageObj, "input_tokens", "prompt_tokens")
	output := firstInt(usageObj, "output_tokens", "completion_tokens")
	cachedRead := nestedInt(usageObj, "input_tokens_details", "cached_tokens")
	cacheCreate := firstDefinedCacheCreate(usageObj)

	actualInput := input - cachedRead
	if actualInput < 0 {
		actualInput = 0
	}

	total, ok := firstIntOK(usageObj, "total_tokens")
	if !ok {
		total = input + output + cacheCreate
	}

	model := asString(field(payload, "model"))
	if model == "" {
		model = requestedModel
	}
	if model == "" {
		model = "gpt-4"
	}

	return Usage{
		Model:        model,
		InputTokens:  input,
		OutputTokens: output,
		CachedRead:   cachedRead,
		CacheCreate:  cacheCreate,
		ActualInput:  actualInput,
		Total:        total,
	}
}

// firstDefinedCacheCreate returns the first finite, numeric cache-creation
// value present, checking the nested details object before the flat
// provider-level fields.
func firstDefinedCacheCreate(usageObj map[string]interface{}) int64 {
	if details, ok := field(usageObj, "input_tokens_details").(map[string]interface{}); ok {
		if v, ok := firstIntOK(details, "cache_creation_input_tokens", "cache_creation_tokens"); ok {
			return v
		}
	}
	if v, ok := firstIntOK(usageObj, "cache_creation_input_tokens", "cache_creation_tokens"); ok {
		return v
	}
	return 0
}

func field(m map[string]interface{}, key string) interface{} {
	if m == nil {
		return nil
	}
	return m[key]
}

func nestedInt(m map[string]interface{}, outer, inner string) int64 {
	nested, _ := field(m, outer).(map[string]interface{})
	return firstInt(nested, inner)
}

func firstInt(m map[string]interface{}, keys ...string) int64 {
	v, _ := firstIntOK(m, keys...)
	return v
}

// firstIntOK returns the first key present with a finite numeric value, and
// whether any such key was found at all.
func firstIntOK(m map[string]interface{}, keys ...string) (int64, bool) {
	for _, k := range keys {
		if m == nil {
			continue
		}
		raw, present := m[k]
		if !present {
			continue
		}
		if n, ok := toInt64(raw); ok {
			return n, true
		}
	}
	return 0, false
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		if n != n { // NaN
			return 0, false
		}
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}
