package seed

import (
	"encoding/json"

	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/credentials"
)

// ServiceConfig is the configuration document read by the gateway
type ServiceConfig struct {
	Gateway  GatewaySection         `json:"gateway"`
	Models   ModelsSection          `json:"models"`
	Agents   AgentsSection          `json:"agents"`
	Channels map[string]interface{} `json:"channels"`
}

// GatewaySection describes network binding and access control
type GatewaySection struct {
	Port           int       `json:"port"`
	Mode           string    `json:"mode"`
	Bind           string    `json:"bind"`
	TrustedProxies []string  `json:"trustedProxies"`
	Auth           *Auth     `json:"auth,omitempty"`
	ControlUI      ControlUI `json:"controlUi"`
}

// Auth holds the gateway token
type Auth struct {
	Token string `json:"token"`
}

// ControlUI configures the gateway's built-in control panel
type ControlUI struct {
	AllowInsecureAuth bool `json:"allowInsecureAuth"`
}

// ModelsSection maps provider names to provider sections
type ModelsSection struct {
	Providers map[string]ProviderSection `json:"providers"`
}

// ProviderSection configures one model provider
type ProviderSection struct {
	BaseURL string              `json:"baseUrl"`
	API     string              `json:"api"`
	APIKey  string              `json:"apiKey"`
	Models  []credentials.Model `json:"models"`
}

// AgentsSection holds agent defaults
type AgentsSection struct {
	Defaults AgentDefaults `json:"defaults"`
}

// AgentDefaults holds the default model reference
type AgentDefaults struct {
	Model ModelRef `json:"model"`
}

// ModelRef names a model as "<provider>/<model id>"
type ModelRef struct {
	Primary string `json:"primary"`
}

// Options carries the gateway settings that do not come from credentials
type Options struct {
	Port              int
	Mode              string
	Bind              string
	TrustedProxies    []string
	GatewayToken      string
	AllowInsecureAuth bool
}

// Build assembles a fresh ServiceConfig for the selected provider.
func Build(sel credentials.Selection, opts Options) *ServiceConfig {
	cfg := &ServiceConfig{
		Gateway: GatewaySection{
			Port:           opts.Port,
			Mode:           opts.Mode,
			Bind:           opts.Bind,
			TrustedProxies: append([]string{}, opts.TrustedProxies...),
			ControlUI:      ControlUI{AllowInsecureAuth: opts.AllowInsecureAuth},
		},
		Models: ModelsSection{
			Providers: map[string]ProviderSection{
				sel.Provider.Name: {
					BaseURL: sel.BaseURL,
					API:     sel.Provider.API,
					APIKey:  sel.APIKey,
					Models:  append([]credentials.Model{}, sel.Provider.Models...),
				},
			},
		},
		Agents: AgentsSection{
			Defaults: AgentDefaults{
				Model: ModelRef{Primary: sel.Provider.Name + "/" + sel.DefaultModel},
			},
		},
		Channels: map[string]interface{}{},
	}

	if opts.GatewayToken != "" {
		cfg.Gateway.Auth = &Auth{Token: opts.GatewayToken}
	}

	return cfg
}

// Marshal serializes the config as indented JSON
func (c *ServiceConfig) Marshal() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// Provider returns the single populated provider section, if any
func (c *ServiceConfig) Provider() (string, ProviderSection, bool) {
	for name, p := range c.Models.Providers {
		return name, p, true
	}
	return "", ProviderSection{}, false
}

// Redacted returns a copy with secrets masked, for display
func (c *ServiceConfig) Redacted() *ServiceConfig {
	out := *c
	out.Models.Providers = make(map[string]ProviderSection, len(c.Models.Providers))
	for name, p := range c.Models.Providers {
		p.APIKey = mask(p.APIKey)
		out.Models.Providers[name] = p
	}
	if c.Gateway.Auth != nil {
		out.Gateway.Auth = &Auth{Token: mask(c.Gateway.Auth.Token)}
	}
	return &out
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "****"
}
