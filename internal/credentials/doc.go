// Package credentials selects the model provider a fresh gateway is seeded
// with.
//
// A Set holds whichever provider API keys the environment supplies. Select
// walks the static Catalog in priority order (anthropic, openai, openrouter)
// and returns the first provider whose key is present; keys of lower
// priority providers are ignored. No key means no selection, and config
// seeding is skipped entirely.
//
//	set := credentials.FromEnv(env)
//	sel, ok := credentials.Select(set)
//	if ok {
//	    // sel.Provider.Name, sel.DefaultModel ...
//	}
package credentials
