package query

// Accepted field-name spellings for reported token usage. Providers
// disagree on these; the first present spelling wins.
var (
	promptTokenKeys     = []string{"prompt_tokens", "promptTokens", "input_tokens", "inputTokens"}
	completionTokenKeys = []string{"completion_tokens", "completionTokens", "output_tokens", "outputTokens"}
	totalTokenKeys      = []string{"total_tokens", "totalTokens"}
	reasoningTokenKeys  = []string{"reasoning_tokens", "reasoningTokens"}
)

// approxCharsPerToken is the character-length heuristic used when the
// backend reports no usage at all.
const approxCharsPerToken = 4

// ComputeUsage derives token accounting for one call. When the backend
// reports usage it is authoritative; otherwise counts are estimated from
// character lengths. reported is the raw usage object from the response
// (any decoded-JSON shape) or nil.
func ComputeUsage(promptLen int, responseText string, reported any) TokenUsage {
	if usage, ok := asObject(reported); ok {
		if u, ok := normalizeReportedUsage(usage); ok {
			return u
		}
	}

	input := ceilDiv(promptLen, approxCharsPerToken)
	output := ceilDiv(len(responseText), approxCharsPerToken)
	return TokenUsage{
		Estimated: true,
		Input:     input,
		Output:    output,
		Total:     input + output,
	}
}

// normalizeReportedUsage maps the provider's usage object onto TokenUsage.
// Returns false when the object carries no usable counts, in which case
// the caller falls back to estimation.
func normalizeReportedUsage(usage map[string]any) (TokenUsage, bool) {
	input := intField(usage, promptTokenKeys...)
	output := intField(usage, completionTokenKeys...)
	total := intField(usage, totalTokenKeys...)

	switch {
	case input > 0 || output > 0:
		if total != input+output {
			total = input + output
		}
		return TokenUsage{Input: input, Output: output, Total: total}, true
	case total > 0:
		// Only the total is known: split it evenly and flag the split.
		input = total / 2
		return TokenUsage{
			Estimated: true,
			Input:     input,
			Output:    total - input,
			Total:     total,
		}, true
	default:
		return TokenUsage{}, false
	}
}

func ceilDiv(n, d int) int {
	if n <= 0 {
		return 0
	}
	return (n + d - 1) / d
}
