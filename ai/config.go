// Package ai wires the runtime profile to the model client layer.
package ai

import (
	"strings"

	"github.com/davag/ragquery/ai/core/llm"
	"github.com/davag/ragquery/internal/profile"
)

// Config resolves model identifiers to provider configurations. It
// implements llm.ConfigResolver.
type Config struct {
	profile *profile.Profile
}

// NewConfigFromProfile creates the resolver over the runtime profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	return &Config{profile: p}
}

// ConfigFor maps a model id to its provider by prefix. Ids the rules
// don't recognize route to the local inference endpoint, so locally
// served models need no registration. Credentials are not checked here;
// the client layer fails construction when a selected provider has none,
// which surfaces as a per-model failure rather than a batch error.
func (c *Config) ConfigFor(model string) (*llm.Config, error) {
	p := c.profile
	cfg := &llm.Config{
		MaxTokens: p.LLMMaxTokens,
		Timeout:   p.LLMTimeout,
	}

	switch {
	case strings.Contains(model, "/"):
		// Provider-prefixed ids ("anthropic/claude-sonnet-4") go through
		// the aggregator.
		cfg.Provider = "openrouter"
		cfg.APIKey = p.OpenRouterAPIKey
		cfg.BaseURL = p.OpenRouterBaseURL
	case hasAnyPrefix(model, "gpt-", "o1", "o3", "o4", "chatgpt"):
		cfg.Provider = "openai"
		cfg.APIKey = p.OpenAIAPIKey
		cfg.BaseURL = p.OpenAIBaseURL
	case strings.HasPrefix(model, "deepseek-"):
		cfg.Provider = "deepseek"
		cfg.APIKey = p.DeepSeekAPIKey
		cfg.BaseURL = p.DeepSeekBaseURL
	case strings.HasPrefix(model, "glm-"):
		cfg.Provider = "zai"
		cfg.APIKey = p.ZAIAPIKey
		cfg.BaseURL = p.ZAIBaseURL
	case strings.HasPrefix(model, "qwen"):
		cfg.Provider = "dashscope"
		cfg.APIKey = p.DashScopeAPIKey
		cfg.BaseURL = p.DashScopeBaseURL
	default:
		cfg.Provider = "ollama"
		cfg.BaseURL = p.OllamaBaseURL
	}

	return cfg, nil
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
