// Package query implements the multi-model batch orchestrator: one prompt
// fanned out to N independently configured model backends, every outcome
// (success or failure) folded into a uniform per-model result.
package query

import (
	"time"
)

// Status represents the terminal state of a single model invocation.
type Status string

const (
	// StatusSucceeded means the backend call returned without error.
	// The extracted text may still be a diagnostic message for degenerate
	// responses; the status reflects the transport outcome only.
	StatusSucceeded Status = "succeeded"
	// StatusFailed means the call (or its setup) errored. The result text
	// holds the classified user-facing message.
	StatusFailed Status = "failed"
)

// ErrorKind is the classified cause of a failed invocation.
type ErrorKind string

const (
	ErrRateLimited  ErrorKind = "rate_limited"
	ErrOverloaded   ErrorKind = "overloaded"
	ErrTimeout      ErrorKind = "timeout"
	ErrUnauthorized ErrorKind = "unauthorized"
	ErrUnknown      ErrorKind = "unknown"
)

// TokenUsage holds token accounting for one model call.
// Estimated is true when the counts were derived from character-length
// heuristics (or a total-only split) rather than reported by the backend.
type TokenUsage struct {
	Estimated bool `json:"estimated"`
	Input     int  `json:"input"`
	Output    int  `json:"output"`
	Total     int  `json:"total"`
}

// Metrics holds per-call timing and token telemetry.
type Metrics struct {
	ResponseTimeMs int64      `json:"response_time_ms"`
	TokenUsage     TokenUsage `json:"token_usage"`
}

// ModelError carries the classified failure cause for a Failed result.
type ModelError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// ModelResult is the outcome of one model's invocation within a batch.
// Text is never empty: successes hold the extracted answer (or a
// diagnostic for contentless responses), failures hold the classified
// error message.
type ModelResult struct {
	Model   string      `json:"model"`
	Status  Status      `json:"status"`
	Text    string      `json:"text"`
	Sources []any       `json:"sources,omitempty"`
	Metrics Metrics     `json:"metrics"`
	Cost    float64     `json:"cost"`
	Error   *ModelError `json:"error,omitempty"`
}

// BatchRequest is the immutable input to one orchestration run.
// Prompt already includes the retrieved context; Sources are the opaque
// retrieved-document references, passed through verbatim into every
// result. SystemPromptFor and TemperatureFor are pure per-model lookups
// supplied by the caller.
type BatchRequest struct {
	Prompt          string
	Models          []string
	SystemPromptFor func(model string) string
	TemperatureFor  func(model string) float32
	Sources         []any
	Progress        ProgressSink // optional
	// Sequential runs the models one at a time in the given order
	// instead of concurrently, for rate-limit avoidance.
	Sequential bool
	// RetrievalTimeMs is how long the upstream retrieval step took; it
	// is echoed unchanged into the batch result.
	RetrievalTimeMs int64
}

// BatchResult is the aggregate outcome of one batch. Results is keyed by
// model id; every model in the request has exactly one entry. The struct
// is assembled once after all tasks reach a terminal state and is never
// mutated afterward.
type BatchResult struct {
	QueryID         string                  `json:"query_id"`
	Query           string                  `json:"query"`
	Results         map[string]*ModelResult `json:"results"`
	RetrievalTimeMs int64                   `json:"retrieval_time_ms"`
	StartedAt       time.Time               `json:"started_at"`
	FinishedAt      time.Time               `json:"finished_at"`
}

// ProgressStatus is the lifecycle phase of a progress event.
type ProgressStatus string

const (
	ProgressStarted   ProgressStatus = "started"
	ProgressCompleted ProgressStatus = "completed"
	ProgressError     ProgressStatus = "error"
)

// ProgressEvent is a purely observational lifecycle notification for the
// UI. Delivery is best-effort; dropping or delaying events never affects
// the batch result.
type ProgressEvent struct {
	Model  string         `json:"model"`
	Status ProgressStatus `json:"status"`
	Index  int            `json:"index"`
	Total  int            `json:"total"`
}

// ProgressSink receives lifecycle events. Implementations must not block;
// no acknowledgement or backpressure is provided.
type ProgressSink interface {
	Report(ev ProgressEvent)
}

// ProgressFunc adapts a plain function to a ProgressSink.
type ProgressFunc func(ev ProgressEvent)

func (f ProgressFunc) Report(ev ProgressEvent) { f(ev) }

// UsageRecord is the payload pushed to the cost-tracking sink after each
// model call, success or failure.
type UsageRecord struct {
	QueryID   string     `json:"query_id"`
	Model     string     `json:"model"`
	Operation string     `json:"operation"`
	Usage     TokenUsage `json:"usage"`
	CostUSD   float64    `json:"cost_usd"`
}

// CostSink accepts usage records over a fire-and-forget channel. A
// failing sink is logged and otherwise ignored; it never affects the
// model's result.
type CostSink interface {
	Record(rec UsageRecord) error
}

// NopSink discards every record. Useful default for tests.
type NopSink struct{}

func (NopSink) Record(UsageRecord) error { return nil }

// MultiSink fans each record out to several sinks, returning the first
// error for logging purposes only.
type MultiSink []CostSink

func (m MultiSink) Record(rec UsageRecord) error {
	var firstErr error
	for _, s := range m {
		if err := s.Record(rec); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
