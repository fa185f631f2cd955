package ai

import (
	"testing"

	"github.com/davag/ragquery/internal/profile"
)

func TestConfigFor_ProviderRouting(t *testing.T) {
	p := &profile.Profile{
		OpenAIAPIKey:     "openai-key",
		DeepSeekAPIKey:   "deepseek-key",
		OpenRouterAPIKey: "openrouter-key",
		ZAIAPIKey:        "zai-key",
		DashScopeAPIKey:  "dashscope-key",
		OllamaBaseURL:    "http://gpu-box:11434/v1",
		LLMMaxTokens:     1024,
		LLMTimeout:       60,
	}
	resolver := NewConfigFromProfile(p)

	tests := []struct {
		model        string
		wantProvider string
		wantKey      string
	}{
		{"gpt-4o", "openai", "openai-key"},
		{"gpt-4o-mini", "openai", "openai-key"},
		{"o3-mini", "openai", "openai-key"},
		{"deepseek-chat", "deepseek", "deepseek-key"},
		{"deepseek-reasoner", "deepseek", "deepseek-key"},
		{"glm-4-plus", "zai", "zai-key"},
		{"qwen-max", "dashscope", "dashscope-key"},
		{"anthropic/claude-sonnet-4", "openrouter", "openrouter-key"},
		{"google/gemini-2.5-pro", "openrouter", "openrouter-key"},
		{"llama3.1", "ollama", ""},
		{"mistral-7b", "ollama", ""},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			cfg, err := resolver.ConfigFor(tt.model)
			if err != nil {
				t.Fatalf("ConfigFor(%q) error = %v", tt.model, err)
			}
			if cfg.Provider != tt.wantProvider {
				t.Errorf("provider = %q, want %q", cfg.Provider, tt.wantProvider)
			}
			if cfg.APIKey != tt.wantKey {
				t.Errorf("api key = %q, want %q", cfg.APIKey, tt.wantKey)
			}
			if cfg.MaxTokens != 1024 || cfg.Timeout != 60 {
				t.Errorf("tuning = %d/%d, want 1024/60", cfg.MaxTokens, cfg.Timeout)
			}
		})
	}
}

func TestConfigFor_LocalEndpointOverride(t *testing.T) {
	p := &profile.Profile{OllamaBaseURL: "http://gpu-box:11434/v1"}
	resolver := NewConfigFromProfile(p)

	cfg, err := resolver.ConfigFor("llama3.1")
	if err != nil {
		t.Fatalf("ConfigFor() error = %v", err)
	}
	if cfg.BaseURL != "http://gpu-box:11434/v1" {
		t.Errorf("base url = %q, want profile override", cfg.BaseURL)
	}
}
