package query

import (
	"context"
	"strings"
)

// Invoker performs one model call. The returned payload is the decoded
// response in whatever shape the backend produced — a plain string or an
// arbitrarily nested object. That variability is absorbed by ExtractText.
type Invoker interface {
	Invoke(ctx context.Context, prompt string) (any, error)
}

// InvokerFunc adapts a plain function to an Invoker.
type InvokerFunc func(ctx context.Context, prompt string) (any, error)

func (f InvokerFunc) Invoke(ctx context.Context, prompt string) (any, error) {
	return f(ctx, prompt)
}

// InvocationOptions are the fully resolved per-call options handed to
// the invoker factory. Temperature is a pointer: nil means the option is
// omitted from the request entirely, which is different from zero.
type InvocationOptions struct {
	Model        string
	SystemPrompt string
	Temperature  *float32
}

// InvokerFactory constructs a ready-to-call Invoker for a model.
// Construction can fail (missing credentials, unknown provider); the
// dispatcher converts such failures into per-model Failed results.
type InvokerFactory interface {
	NewInvoker(opts InvocationOptions) (Invoker, error)
}

// reasoningDirective compensates for weaker instruction-following in
// model families that reject the temperature option.
const reasoningDirective = "Please provide detailed reasoning in your answer."

// noTemperatureFamilies lists model-id prefixes whose backends reject a
// temperature parameter outright. The list is provider-specific tuning,
// kept in one place so new families are a one-line addition.
var noTemperatureFamilies = []string{"o1", "o3", "o4"}

// Adapter builds model-specific invocations, applying per-model
// capability overrides before handing off to the factory.
type Adapter struct {
	factory InvokerFactory
}

// NewAdapter creates an invocation adapter over the given factory.
func NewAdapter(factory InvokerFactory) *Adapter {
	return &Adapter{factory: factory}
}

// BuildInvocation resolves options for the model and constructs its
// invoker. Models in a no-temperature family get the temperature omitted
// (not zeroed) and the reasoning directive appended to the system prompt.
func (a *Adapter) BuildInvocation(model, systemPrompt string, temperature float32) (Invoker, error) {
	opts := InvocationOptions{
		Model:        model,
		SystemPrompt: systemPrompt,
		Temperature:  &temperature,
	}

	if IsNoTemperatureModel(model) {
		opts.Temperature = nil
		opts.SystemPrompt = appendDirective(systemPrompt, reasoningDirective)
	}

	return a.factory.NewInvoker(opts)
}

// IsNoTemperatureModel reports whether the model belongs to a family
// that rejects the temperature option.
func IsNoTemperatureModel(model string) bool {
	// Provider-prefixed ids ("openai/o3-mini") match on the bare name.
	name := model
	if idx := strings.LastIndex(model, "/"); idx >= 0 {
		name = model[idx+1:]
	}
	for _, family := range noTemperatureFamilies {
		if name == family || strings.HasPrefix(name, family+"-") {
			return true
		}
	}
	return false
}

func appendDirective(systemPrompt, directive string) string {
	if systemPrompt == "" {
		return directive
	}
	return strings.TrimRight(systemPrompt, " \n") + "\n\n" + directive
}
