package query

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// recordingFactory captures the options the adapter resolved.
type recordingFactory struct {
	opts InvocationOptions
	err  error
}

func (f *recordingFactory) NewInvoker(opts InvocationOptions) (Invoker, error) {
	f.opts = opts
	if f.err != nil {
		return nil, f.err
	}
	return InvokerFunc(func(context.Context, string) (any, error) {
		return "ok", nil
	}), nil
}

func TestAdapter_TemperatureSupported(t *testing.T) {
	factory := &recordingFactory{}
	adapter := NewAdapter(factory)

	if _, err := adapter.BuildInvocation("gpt-4o", "be brief", 0.3); err != nil {
		t.Fatalf("BuildInvocation() error = %v", err)
	}

	if factory.opts.Temperature == nil {
		t.Fatal("temperature should be set for a standard model")
	}
	if got := *factory.opts.Temperature; got != 0.3 {
		t.Errorf("temperature = %v, want 0.3", got)
	}
	if factory.opts.SystemPrompt != "be brief" {
		t.Errorf("system prompt = %q, want unchanged", factory.opts.SystemPrompt)
	}
}

func TestAdapter_NoTemperatureFamily(t *testing.T) {
	factory := &recordingFactory{}
	adapter := NewAdapter(factory)

	if _, err := adapter.BuildInvocation("o3-mini", "be brief", 0.7); err != nil {
		t.Fatalf("BuildInvocation() error = %v", err)
	}

	if factory.opts.Temperature != nil {
		t.Errorf("temperature = %v, want omitted entirely", *factory.opts.Temperature)
	}
	if !strings.Contains(factory.opts.SystemPrompt, "detailed reasoning") {
		t.Errorf("system prompt %q missing reasoning directive", factory.opts.SystemPrompt)
	}
	if !strings.HasPrefix(factory.opts.SystemPrompt, "be brief") {
		t.Errorf("system prompt %q lost the original content", factory.opts.SystemPrompt)
	}
}

func TestAdapter_FactoryErrorSurfaces(t *testing.T) {
	factory := &recordingFactory{err: errors.New("missing api key")}
	adapter := NewAdapter(factory)

	if _, err := adapter.BuildInvocation("gpt-4o", "", 0.7); err == nil {
		t.Fatal("BuildInvocation() should propagate factory errors")
	}
}

func TestIsNoTemperatureModel(t *testing.T) {
	tests := []struct {
		model string
		want  bool
	}{
		{"o1", true},
		{"o1-preview", true},
		{"o3-mini", true},
		{"o4-mini", true},
		{"openai/o3-mini", true},
		{"gpt-4o", false},
		{"gpt-4o-mini", false},
		{"deepseek-chat", false},
		{"olympia-7b", false}, // shares a prefix letter, not a family
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			if got := IsNoTemperatureModel(tt.model); got != tt.want {
				t.Errorf("IsNoTemperatureModel(%q) = %v, want %v", tt.model, got, tt.want)
			}
		})
	}
}
