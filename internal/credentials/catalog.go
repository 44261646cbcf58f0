package credentials

// Model describes one model entry in a provider section
type Model struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ContextWindow int    `json:"contextWindow"`
	MaxTokens     int    `json:"maxTokens"`
}

// Provider is a fixed catalog entry for one provider family
type Provider struct {
	Name         string  // Provider section key, e.g. "anthropic"
	API          string  // API dialect understood by the gateway
	BaseURL      string  // Default upstream base URL
	Models       []Model // Models advertised to the gateway
	DefaultModel string  // Model ID used for agents.defaults.model
}

// Catalog lists the supported providers in selection priority order.
var Catalog = []Provider{
	{
		Name:    "anthropic",
		API:     "anthropic-messages",
		BaseURL: "https://api.anthropic.com",
		Models: []Model{
			{ID: "claude-opus-4-5", Name: "Claude Opus 4.5", ContextWindow: 200000, MaxTokens: 64000},
			{ID: "claude-sonnet-4-5", Name: "Claude Sonnet 4.5", ContextWindow: 200000, MaxTokens: 64000},
			{ID: "claude-haiku-4-5", Name: "Claude Haiku 4.5", ContextWindow: 200000, MaxTokens: 64000},
		},
		DefaultModel: "claude-opus-4-5",
	},
	{
		Name:    "openai",
		API:     "openai-responses",
		BaseURL: "https://api.openai.com/v1",
		Models: []Model{
			{ID: "gpt-5.2", Name: "GPT-5.2", ContextWindow: 400000, MaxTokens: 128000},
			{ID: "gpt-5", Name: "GPT-5", ContextWindow: 400000, MaxTokens: 128000},
			{ID: "gpt-4.5-preview", Name: "GPT-4.5 Preview", ContextWindow: 128000, MaxTokens: 16384},
		},
		DefaultModel: "gpt-5.2",
	},
	{
		Name:    "openrouter",
		API:     "openai-completions",
		BaseURL: "https://openrouter.ai/api/v1",
		Models: []Model{
			{ID: "anthropic/claude-sonnet-4.5", Name: "Claude Sonnet 4.5 (OpenRouter)", ContextWindow: 200000, MaxTokens: 64000},
			{ID: "openai/gpt-5", Name: "GPT-5 (OpenRouter)", ContextWindow: 400000, MaxTokens: 128000},
		},
		DefaultModel: "anthropic/claude-sonnet-4.5",
	},
}

// Lookup returns the catalog entry for a provider name.
func Lookup(name string) (Provider, bool) {
	for _, p := range Catalog {
		if p.Name == name {
			return p, true
		}
	}
	return Provider{}, false
}
