// Package account defines the upstream provider account shape the relay
// and translation subsystem consume, and the resolver contract used to look
// accounts up by id.
package account

import "context"

// Account is the set of fields the relay core and translation subsystem
// read off a provider account. The core treats it as opaque and never
// mutates it; accounts are owned and persisted by an external service.
type Account struct {
	ID           string  `json:"id"`
	BaseApi      string  `json:"baseApi"`
	ApiKey       string  `json:"apiKey"`
	UserAgent    string  `json:"userAgent,omitempty"`
	Proxy        string  `json:"proxy,omitempty"`
	DailyQuota   float64 `json:"dailyQuota,omitempty"`
	DefaultModel string  `json:"defaultModel,omitempty"`

	// EnableTranslation is the raw config value as stored: it may be a Go
	// bool, the string "true"/"false", or absent. Use Enabled() rather than
	// reading this field directly.
	EnableTranslation interface{} `json:"enableTranslation,omitempty"`

	TranslationSourceLang string `json:"translationSourceLang,omitempty"`
	TranslationTargetLang string `json:"translationTargetLang,omitempty"`
}

// Enabled resolves EnableTranslation to a boolean. Per the documented
// ambiguity, only the boolean true or the exact string "true" count as
// enabled; everything else — including the string "false" — is disabled.
func (a Account) Enabled() bool {
	switch v := a.EnableTranslation.(type) {
	case bool:
		return v
	case string:
		return v == "true"
	default:
		return false
	}
}

// Resolver looks accounts up by id. Implementations are external to the
// core (account CRUD service, encrypted credential storage); the core only
// ever calls Resolve.
type Resolver interface {
	Resolve(ctx context.Context, accountID string) (*Account, error)
}
