package query

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// InvocationBuilder constructs the invoker for one model in a batch.
// Satisfied by Adapter.
type InvocationBuilder interface {
	BuildInvocation(model, systemPrompt string, temperature float32) (Invoker, error)
}

// DispatcherConfig tunes batch execution.
type DispatcherConfig struct {
	// Limiter spaces out calls in sequential mode. Ignored in concurrent
	// mode, where the point is to launch everything at once.
	Limiter *rate.Limiter
	// DefaultTemperature is used when the request supplies no
	// TemperatureFor function.
	DefaultTemperature float32
}

// DefaultDispatcherConfig returns the stock configuration.
func DefaultDispatcherConfig() *DispatcherConfig {
	return &DispatcherConfig{DefaultTemperature: 0.7}
}

// Dispatcher fans a prompt out to all selected models and folds every
// outcome into one batch result. Per-model errors are contained inside
// their task; RunBatch itself only fails on a malformed request.
type Dispatcher struct {
	builder InvocationBuilder
	sink    CostSink
	config  *DispatcherConfig
}

// NewDispatcher creates a dispatcher. A nil sink discards usage records;
// a nil config takes defaults.
func NewDispatcher(builder InvocationBuilder, sink CostSink, config *DispatcherConfig) *Dispatcher {
	if sink == nil {
		sink = NopSink{}
	}
	if config == nil {
		config = DefaultDispatcherConfig()
	}
	return &Dispatcher{builder: builder, sink: sink, config: config}
}

// RunBatch executes one orchestration run. Every model in the request
// gets exactly one entry in the result map regardless of how many fail.
// The only errors returned are caller-contract violations, raised before
// any task is launched.
func (d *Dispatcher) RunBatch(ctx context.Context, req *BatchRequest) (*BatchResult, error) {
	if req == nil {
		return nil, fmt.Errorf("nil batch request")
	}
	if len(req.Models) == 0 {
		return nil, fmt.Errorf("batch request has no models")
	}
	if req.Prompt == "" {
		return nil, fmt.Errorf("batch request has empty prompt")
	}

	queryID := uuid.NewString()
	startedAt := time.Now()

	slog.Info("dispatcher: starting batch",
		"query_id", queryID,
		"models", len(req.Models),
		"sequential", req.Sequential)

	// One slot per model, written only by its owning task. The map is
	// assembled after the join so no cross-task synchronization is needed.
	results := make([]*ModelResult, len(req.Models))

	if req.Sequential {
		d.runSequential(ctx, req, queryID, results)
	} else {
		d.runConcurrent(ctx, req, queryID, results)
	}

	finishedAt := time.Now()

	resultMap := make(map[string]*ModelResult, len(results))
	var failed int
	for _, res := range results {
		resultMap[res.Model] = res
		if res.Status == StatusFailed {
			failed++
		}
	}

	slog.Info("dispatcher: batch completed",
		"query_id", queryID,
		"models", len(req.Models),
		"failed", failed,
		"duration_ms", finishedAt.Sub(startedAt).Milliseconds())

	return &BatchResult{
		QueryID:         queryID,
		Query:           req.Prompt,
		Results:         resultMap,
		RetrievalTimeMs: req.RetrievalTimeMs,
		StartedAt:       startedAt,
		FinishedAt:      finishedAt,
	}, nil
}

func (d *Dispatcher) runConcurrent(ctx context.Context, req *BatchRequest, queryID string, results []*ModelResult) {
	var g errgroup.Group
	for i, model := range req.Models {
		i, model := i, model
		g.Go(func() error {
			results[i] = d.runModel(ctx, req, queryID, model, i)
			// Always nil: a failing model must not cancel its siblings.
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // tasks never return errors
}

func (d *Dispatcher) runSequential(ctx context.Context, req *BatchRequest, queryID string, results []*ModelResult) {
	for i, model := range req.Models {
		if d.config.Limiter != nil && i > 0 {
			if err := d.config.Limiter.Wait(ctx); err != nil {
				slog.Warn("dispatcher: limiter wait interrupted", "query_id", queryID, "error", err)
			}
		}
		results[i] = d.runModel(ctx, req, queryID, model, i)
	}
}

// runModel is one task: invoke, extract, measure, push cost, in that
// order. Any error or panic along the way becomes a Failed result; it
// never escapes the task.
func (d *Dispatcher) runModel(ctx context.Context, req *BatchRequest, queryID, model string, index int) (res *ModelResult) {
	total := len(req.Models)
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("dispatcher: recovered from task panic",
				"query_id", queryID, "model", model, "panic", rec)
			res = d.failedResult(req, queryID, model, start, fmt.Errorf("internal error: %v", rec))
			d.report(req, ProgressEvent{Model: model, Status: ProgressError, Index: index, Total: total})
		}
	}()

	d.report(req, ProgressEvent{Model: model, Status: ProgressStarted, Index: index, Total: total})

	systemPrompt := ""
	if req.SystemPromptFor != nil {
		systemPrompt = req.SystemPromptFor(model)
	}
	temperature := d.config.DefaultTemperature
	if req.TemperatureFor != nil {
		temperature = req.TemperatureFor(model)
	}

	invoker, err := d.builder.BuildInvocation(model, systemPrompt, temperature)
	if err != nil {
		slog.Warn("dispatcher: invocation setup failed", "query_id", queryID, "model", model, "error", err)
		res = d.failedResult(req, queryID, model, start, err)
		d.report(req, ProgressEvent{Model: model, Status: ProgressError, Index: index, Total: total})
		return res
	}

	raw, err := invoker.Invoke(ctx, req.Prompt)
	if err != nil {
		slog.Warn("dispatcher: model call failed",
			"query_id", queryID, "model", model, "error", err,
			"duration_ms", time.Since(start).Milliseconds())
		res = d.failedResult(req, queryID, model, start, err)
		d.report(req, ProgressEvent{Model: model, Status: ProgressError, Index: index, Total: total})
		return res
	}

	elapsed := time.Since(start)
	text := ExtractText(raw)
	usage := ComputeUsage(len(req.Prompt), text, rawUsage(raw))
	cost := CostFor(model, usage)

	res = &ModelResult{
		Model:   model,
		Status:  StatusSucceeded,
		Text:    text,
		Sources: req.Sources,
		Metrics: Metrics{
			ResponseTimeMs: elapsed.Milliseconds(),
			TokenUsage:     usage,
		},
		Cost: cost,
	}

	d.pushUsage(queryID, model, usage, cost)
	d.report(req, ProgressEvent{Model: model, Status: ProgressCompleted, Index: index, Total: total})

	slog.Debug("dispatcher: model completed",
		"query_id", queryID, "model", model,
		"tokens", usage.Total, "estimated", usage.Estimated,
		"duration_ms", elapsed.Milliseconds())

	return res
}

func (d *Dispatcher) failedResult(req *BatchRequest, queryID, model string, start time.Time, err error) *ModelResult {
	classified := Classify(err)
	usage := ComputeUsage(len(req.Prompt), "", nil)
	cost := CostFor(model, usage)
	d.pushUsage(queryID, model, usage, cost)

	return &ModelResult{
		Model:   model,
		Status:  StatusFailed,
		Text:    classified.Message,
		Sources: req.Sources,
		Metrics: Metrics{
			ResponseTimeMs: time.Since(start).Milliseconds(),
			TokenUsage:     usage,
		},
		Cost:  cost,
		Error: &classified,
	}
}

// pushUsage forwards the usage record to the cost sink without blocking
// the task. Sink failures are logged and otherwise ignored.
func (d *Dispatcher) pushUsage(queryID, model string, usage TokenUsage, cost float64) {
	rec := UsageRecord{
		QueryID:   queryID,
		Model:     model,
		Operation: "query",
		Usage:     usage,
		CostUSD:   cost,
	}
	go func() {
		if err := d.sink.Record(rec); err != nil {
			slog.Warn("dispatcher: cost sink push failed", "query_id", queryID, "model", model, "error", err)
		}
	}()
}

func (d *Dispatcher) report(req *BatchRequest, ev ProgressEvent) {
	if req.Progress != nil {
		req.Progress.Report(ev)
	}
}

// rawUsage pulls the usage object out of a raw response, if any.
func rawUsage(raw any) any {
	if obj, ok := asObject(raw); ok {
		if usage, ok := usageObject(obj); ok {
			return usage
		}
	}
	return nil
}
