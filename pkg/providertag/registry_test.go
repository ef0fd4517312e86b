package providertag

import "testing"

func TestResolveBuiltInProviders(t *testing.T) {
	t.Parallel()

	r := New()
	cases := map[string]string{
		"https://api.anthropic.com/v1":                "anthropic",
		"https://api.openai.com/v1":                   "openai",
		"https://dashscope.aliyuncs.com/compatible-mode/v1": "alibaba",
		"https://bedrock-runtime.us-east-1.amazonaws.com": "bedrock",
	}
	for baseURL, want := range cases {
		if got := r.Resolve(baseURL); got != want {
			t.Errorf("Resolve(%q) = %q, want %q", baseURL, got, want)
		}
	}
}

func TestResolveUnknownHost(t *testing.T) {
	t.Parallel()

	r := New()
	if got := r.Resolve("https://self-hosted.example.com/v1"); got != "unknown" {
		t.Errorf("Resolve(unknown host) = %q, want %q", got, "unknown")
	}
}

func TestRegisterOverridesLaterWins(t *testing.T) {
	t.Parallel()

	r := New()
	r.Register("anthropic.com", "custom-anthropic-proxy")
	if got := r.Resolve("https://api.anthropic.com/v1"); got != "custom-anthropic-proxy" {
		t.Errorf("Resolve after override = %q, want %q", got, "custom-anthropic-proxy")
	}
}

func TestResolveMalformedURLFallsBackToRawString(t *testing.T) {
	t.Parallel()

	r := New()
	if got := r.Resolve("not a url but contains openai.com"); got != "openai" {
		t.Errorf("Resolve(malformed) = %q, want %q", got, "openai")
	}
}
