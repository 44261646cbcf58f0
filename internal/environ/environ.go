// Package environ assembles the environment a gateway process is launched
// with. Build is pure: the same input always yields the same map, and the
// result is passed verbatim to the sandbox.
package environ

import (
	"strings"

	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/credentials"
)

// Forwarded lists the variables copied unchanged from the caller's
// environment when present.
var Forwarded = []string{
	credentials.EnvAnthropicAPIKey,
	credentials.EnvOpenAIAPIKey,
	credentials.EnvOpenRouterAPIKey,
	credentials.EnvGatewayToken,
	"TELEGRAM_BOT_TOKEN",
	"DISCORD_BOT_TOKEN",
	"SLACK_BOT_TOKEN",
	"SLACK_APP_TOKEN",
	"OPENCLAW_DEV_MODE",
}

// Build returns the launch environment for the gateway.
//
// A base URL override is mapped onto the variable the selected provider's
// SDK reads, so the gateway honours it even when it ignores the seeded
// config.
func Build(env map[string]string) map[string]string {
	out := make(map[string]string)
	for _, k := range Forwarded {
		if v := strings.TrimSpace(env[k]); v != "" {
			out[k] = v
		}
	}

	set := credentials.FromEnv(env)
	if set.BaseURL != "" {
		if sel, ok := credentials.Select(set); ok {
			switch sel.Provider.Name {
			case "anthropic":
				out["ANTHROPIC_BASE_URL"] = sel.BaseURL
			case "openai":
				out["OPENAI_BASE_URL"] = sel.BaseURL
			case "openrouter":
				out["OPENROUTER_BASE_URL"] = sel.BaseURL
			}
		}
	}

	return out
}
