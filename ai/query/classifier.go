package query

import (
	"strings"
)

// Fixed user-facing messages per error kind. The unknown template wraps
// the underlying message so the UI always has something to show.
const (
	msgRateLimited  = "The provider rate-limited this request. Wait a moment and try again, or switch to sequential mode."
	msgOverloaded   = "The provider is overloaded right now. Try again shortly."
	msgTimeout      = "The request timed out before the model responded. Try again or use a faster model."
	msgUnauthorized = "The provider rejected the API credentials. Check the API key configured for this model."
)

var errorPatterns = []struct {
	kind     ErrorKind
	patterns []string
}{
	{ErrRateLimited, []string{"rate limit", "rate_limit", "ratelimit", "429", "too many requests", "quota"}},
	{ErrOverloaded, []string{"overloaded", "503", "service unavailable", "capacity", "server is busy"}},
	{ErrTimeout, []string{"timeout", "timed out", "deadline exceeded", "context canceled"}},
	{ErrUnauthorized, []string{"401", "403", "unauthorized", "forbidden", "invalid api key", "api key", "authentication"}},
}

// Classify maps an invocation error onto the small user-facing taxonomy.
// Pure substring matching on the error text; never errors itself. A nil
// error classifies as unknown with a generic message.
func Classify(err error) ModelError {
	if err == nil {
		return ModelError{Kind: ErrUnknown, Message: "The request failed for an unknown reason."}
	}

	text := strings.ToLower(err.Error())
	for _, entry := range errorPatterns {
		for _, p := range entry.patterns {
			if strings.Contains(text, p) {
				return ModelError{Kind: entry.kind, Message: messageFor(entry.kind)}
			}
		}
	}

	return ModelError{
		Kind:    ErrUnknown,
		Message: "The request failed: " + err.Error(),
	}
}

func messageFor(kind ErrorKind) string {
	switch kind {
	case ErrRateLimited:
		return msgRateLimited
	case ErrOverloaded:
		return msgOverloaded
	case ErrTimeout:
		return msgTimeout
	case ErrUnauthorized:
		return msgUnauthorized
	default:
		return "The request failed for an unknown reason."
	}
}
