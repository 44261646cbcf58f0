package credentials

import "strings"

// Environment variable names read by FromEnv
const (
	EnvAnthropicAPIKey  = "ANTHROPIC_API_KEY"
	EnvOpenAIAPIKey     = "OPENAI_API_KEY"
	EnvOpenRouterAPIKey = "OPENROUTER_API_KEY"
	EnvBaseURL          = "AI_GATEWAY_BASE_URL"
	EnvGatewayToken     = "OPENCLAW_GATEWAY_TOKEN"
)

// Set is the read-only collection of credentials available to one
// supervisor invocation
type Set struct {
	AnthropicAPIKey  string
	OpenAIAPIKey     string
	OpenRouterAPIKey string

	// BaseURL overrides the catalog base URL of whichever provider is selected
	BaseURL string

	// GatewayToken protects the gateway's own endpoint
	GatewayToken string
}

// FromEnv builds a Set from an environment map. Values are trimmed; blank
// values count as absent.
func FromEnv(env map[string]string) Set {
	get := func(k string) string { return strings.TrimSpace(env[k]) }
	return Set{
		AnthropicAPIKey:  get(EnvAnthropicAPIKey),
		OpenAIAPIKey:     get(EnvOpenAIAPIKey),
		OpenRouterAPIKey: get(EnvOpenRouterAPIKey),
		BaseURL:          get(EnvBaseURL),
		GatewayToken:     get(EnvGatewayToken),
	}
}

// key returns the API key for a catalog provider
func (s Set) key(provider string) string {
	switch provider {
	case "anthropic":
		return s.AnthropicAPIKey
	case "openai":
		return s.OpenAIAPIKey
	case "openrouter":
		return s.OpenRouterAPIKey
	}
	return ""
}

// Empty reports whether no provider key is present
func (s Set) Empty() bool {
	_, ok := Select(s)
	return !ok
}

// Selection is the outcome of Select: one provider with its key and the
// effective base URL
type Selection struct {
	Provider     Provider
	APIKey       string
	BaseURL      string
	DefaultModel string
}

// Select picks the highest priority provider whose key is present.
func Select(s Set) (Selection, bool) {
	for _, p := range Catalog {
		apiKey := s.key(p.Name)
		if apiKey == "" {
			continue
		}

		baseURL := p.BaseURL
		if s.BaseURL != "" {
			baseURL = strings.TrimRight(s.BaseURL, "/")
		}

		return Selection{
			Provider:     p,
			APIKey:       apiKey,
			BaseURL:      baseURL,
			DefaultModel: p.DefaultModel,
		}, true
	}
	return Selection{}, false
}
