// Package providertag maps an account's base API URL to the provider tag
// the scheduler callbacks (markRateLimited, markUnauthorized) expect, so the
// relay core never has to hardcode provider-detection logic inline.
package providertag

import (
	"net/url"
	"strings"
	"sync"
)

// Registry holds an ordered set of host-substring-to-tag rules. When several
// rules match a host, the one registered last wins, regardless of how long
// or specific its substring is.
type Registry struct {
	mu    sync.RWMutex
	rules []rule
}

type rule struct {
	hostContains string
	tag          string
}

// New returns a Registry seeded with the provider hosts the relay ships
// with support for out of the box.
func New() *Registry {
	r := &Registry{}
	r.Register("anthropic.com", "anthropic")
	r.Register("openai.com", "openai")
	r.Register("dashscope.aliyuncs.com", "alibaba")
	r.Register("bedrock", "bedrock")
	return r
}

// Register adds a rule: any base URL whose host contains hostSubstring
// resolves to tag. Later registrations are preferred over earlier ones when
// both match, so callers can override a default by re-registering.
func (r *Registry) Register(hostSubstring, tag string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, rule{hostContains: hostSubstring, tag: tag})
}

// Resolve returns the provider tag for baseURL, or "unknown" if no rule
// matches.
func (r *Registry) Resolve(baseURL string) string {
	host := hostOf(baseURL)

	r.mu.RLock()
	defer r.mu.RUnlock()

	tag := "unknown"
	for _, rl := range r.rules {
		if strings.Contains(host, rl.hostContains) {
			tag = rl.tag
		}
	}
	return tag
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}
