// Package llm provides the model client layer: a go-openai backed
// invoker factory covering every OpenAI-compatible provider the
// orchestrator talks to.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/davag/ragquery/ai/query"
)

// Config represents one provider's client configuration.
type Config struct {
	Provider  string // openai, deepseek, openrouter, zai, dashscope, siliconflow, ollama
	APIKey    string
	BaseURL   string
	MaxTokens int // default: 2048
	Timeout   int // request timeout in seconds (default: 120)
}

// ConfigResolver maps a model identifier to its provider configuration.
type ConfigResolver interface {
	ConfigFor(model string) (*Config, error)
}

// Factory builds invokers over go-openai clients. It implements
// query.InvokerFactory.
type Factory struct {
	resolver ConfigResolver
}

// NewFactory creates an invoker factory over the resolver.
func NewFactory(resolver ConfigResolver) *Factory {
	return &Factory{resolver: resolver}
}

// NewInvoker constructs the client for the model named in opts. Missing
// credentials or an unresolvable model are construction errors; the
// dispatcher turns them into per-model failures.
func (f *Factory) NewInvoker(opts query.InvocationOptions) (query.Invoker, error) {
	cfg, err := f.resolver.ConfigFor(opts.Model)
	if err != nil {
		return nil, err
	}

	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120
	}

	return &invoker{
		client:    client,
		opts:      opts,
		maxTokens: maxTokens,
		timeout:   timeout,
	}, nil
}

// newClient builds a go-openai client for the provider. Every provider
// here speaks the OpenAI chat-completions protocol; only base URL and
// credential requirements differ.
func newClient(cfg *Config) (*openai.Client, error) {
	baseURL := cfg.BaseURL
	requiresKey := true

	switch cfg.Provider {
	case "openai":
		// Default base URL.
	case "deepseek":
		if baseURL == "" {
			baseURL = "https://api.deepseek.com"
		}
	case "openrouter":
		if baseURL == "" {
			baseURL = "https://openrouter.ai/api/v1"
		}
	case "zai":
		if baseURL == "" {
			baseURL = "https://open.bigmodel.cn/api/paas/v4"
		}
	case "dashscope":
		if baseURL == "" {
			baseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
		}
	case "siliconflow":
		if baseURL == "" {
			baseURL = "https://api.siliconflow.cn/v1"
		}
	case "ollama":
		// Local inference: no credentials.
		requiresKey = false
		if baseURL == "" {
			baseURL = "http://localhost:11434/v1"
		}
	default:
		slog.Info("llm: using generic OpenAI-compatible provider", "provider", cfg.Provider)
	}

	if requiresKey && cfg.APIKey == "" {
		return nil, fmt.Errorf("provider %s: missing API key", cfg.Provider)
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	clientConfig.HTTPClient = newHTTPClient()

	return openai.NewClientWithConfig(clientConfig), nil
}

type invoker struct {
	client    *openai.Client
	opts      query.InvocationOptions
	maxTokens int
	timeout   int
}

// Invoke performs one chat completion and returns the response as a
// decoded-JSON value. Handing back the raw field layout (rather than the
// typed struct) lets the extractor's fallback chain see exactly what the
// provider sent, nonstandard fields included.
func (inv *invoker) Invoke(ctx context.Context, prompt string) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(inv.timeout)*time.Second)
	defer cancel()

	messages := []openai.ChatCompletionMessage{}
	if inv.opts.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: inv.opts.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	req := openai.ChatCompletionRequest{
		Model:     inv.opts.Model,
		MaxTokens: inv.maxTokens,
		Messages:  messages,
	}
	if inv.opts.Temperature != nil {
		req.Temperature = *inv.opts.Temperature
	}

	slog.Debug("llm: chat request",
		"model", inv.opts.Model,
		"max_tokens", inv.maxTokens,
		"temperature_set", inv.opts.Temperature != nil)

	start := time.Now()
	resp, err := inv.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	slog.Debug("llm: chat response",
		"model", inv.opts.Model,
		"total_tokens", resp.Usage.TotalTokens,
		"duration_ms", time.Since(start).Milliseconds())

	return rawPayload(resp)
}

// rawPayload round-trips the typed response through encoding/json so the
// caller sees the wire-shaped object.
func rawPayload(resp openai.ChatCompletionResponse) (any, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return raw, nil
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 120 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}
