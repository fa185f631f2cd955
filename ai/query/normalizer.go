package query

import (
	"fmt"
)

// fallbackModelSuggestion is named in diagnostics for contentless
// responses so the UI can steer the user toward a model that reliably
// returns text.
const fallbackModelSuggestion = "gpt-4o-mini"

// ExtractText pulls the answer text out of a raw model response of
// unknown shape. It is total: whatever the payload looks like, some
// non-empty string comes back. Providers (and streaming modes of the
// same provider) disagree on where the answer lives, so absence of a
// recognizable field is not an error; the chain below tries each known
// location in order and falls back to a diagnostic message.
func ExtractText(raw any) string {
	// 1. Plain string payload. An empty one still gets a diagnostic so
	// the caller never sees an empty result.
	if s, ok := raw.(string); ok {
		if s != "" {
			return s
		}
		return noContentMessage()
	}

	obj, ok := asObject(raw)
	if !ok {
		return noContentMessage()
	}

	// 2. Known top-level and nested content fields, first match wins.
	if s := stringField(obj, "text"); s != "" {
		return s
	}
	if s := stringField(obj, "content"); s != "" {
		return s
	}
	if s := stringField(obj, "completion"); s != "" {
		return s
	}
	if choice, ok := firstChoice(obj); ok {
		if msg, ok := asObject(choice["message"]); ok {
			if s := stringField(msg, "content"); s != "" {
				return s
			}
		}
		if s := stringField(choice, "content"); s != "" {
			return s
		}
		if delta, ok := asObject(choice["delta"]); ok {
			if s := stringField(delta, "content"); s != "" {
				return s
			}
		}
	}

	// 3. Degenerate case: the backend spent completion tokens but none of
	// them landed in a content field. Reasoning-tuned models can burn the
	// whole budget on hidden reasoning and emit no accepted output.
	if usage, ok := usageObject(obj); ok {
		completion := intField(usage, completionTokenKeys...)
		reasoning := intField(usage, reasoningTokenKeys...)
		if details, ok := asObject(usage["completion_tokens_details"]); ok && reasoning == 0 {
			reasoning = intField(details, reasoningTokenKeys...)
		}
		if completion > 0 || reasoning > 0 {
			used := completion
			if used == 0 {
				used = reasoning
			}
			return fmt.Sprintf(
				"The model generated %d tokens of internal reasoning but returned no answer text. "+
					"This can happen with reasoning-tuned models; try %s instead.",
				used, fallbackModelSuggestion)
		}
	}

	// 4. Truncation: the response was cut off before any content arrived.
	if reason := finishReason(obj); reason == "length" || reason == "max_tokens" {
		total := 0
		if usage, ok := usageObject(obj); ok {
			total = intField(usage, totalTokenKeys...)
		}
		if total > 0 {
			return fmt.Sprintf(
				"The response was truncated at the token limit (%d tokens used) before any answer text was produced. "+
					"Try a shorter prompt or fewer retrieved documents.", total)
		}
		return "The response was truncated at the token limit before any answer text was produced. " +
			"Try a shorter prompt or fewer retrieved documents."
	}

	// 5. Nothing recognizable anywhere.
	return noContentMessage()
}

func noContentMessage() string {
	return fmt.Sprintf("The model returned no content. Try again or switch to %s.", fallbackModelSuggestion)
}

// asObject normalizes the two map shapes json decoding can produce.
func asObject(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[string]string:
		obj := make(map[string]any, len(m))
		for k, s := range m {
			obj[k] = s
		}
		return obj, true
	default:
		return nil, false
	}
}

func stringField(obj map[string]any, key string) string {
	if s, ok := obj[key].(string); ok {
		return s
	}
	return ""
}

func firstChoice(obj map[string]any) (map[string]any, bool) {
	choices, ok := obj["choices"].([]any)
	if !ok || len(choices) == 0 {
		return nil, false
	}
	return asObject(choices[0])
}

func usageObject(obj map[string]any) (map[string]any, bool) {
	return asObject(obj["usage"])
}

func finishReason(obj map[string]any) string {
	if choice, ok := firstChoice(obj); ok {
		if s := stringField(choice, "finish_reason"); s != "" {
			return s
		}
	}
	return stringField(obj, "finish_reason")
}

// intField returns the first present numeric field among keys. JSON
// numbers decode as float64; providers that hand us pre-typed ints are
// tolerated too.
func intField(obj map[string]any, keys ...string) int {
	for _, key := range keys {
		switch n := obj[key].(type) {
		case float64:
			return int(n)
		case int:
			return n
		case int64:
			return int(n)
		}
	}
	return 0
}
