package v1

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/davag/ragquery/ai/query"
)

// QueryRequest is the body of POST /api/v1/query and /api/v1/query/stream.
// The prompt should already contain any retrieved context; Sources are
// opaque document references echoed into every model result.
type QueryRequest struct {
	Query   string   `json:"query"`
	Models  []string `json:"models"`
	Sources []any    `json:"sources,omitempty"`

	// SystemPrompt applies to every model unless SystemPrompts overrides
	// it for a specific one.
	SystemPrompt  string            `json:"system_prompt,omitempty"`
	SystemPrompts map[string]string `json:"system_prompts,omitempty"`

	// Temperatures overrides the server default per model.
	Temperatures map[string]float32 `json:"temperatures,omitempty"`

	Sequential      bool  `json:"sequential,omitempty"`
	RetrievalTimeMs int64 `json:"retrieval_time_ms,omitempty"`
}

func (s *APIV1Service) batchRequest(req *QueryRequest) *query.BatchRequest {
	batch := &query.BatchRequest{
		Prompt:          req.Query,
		Models:          req.Models,
		Sources:         req.Sources,
		Sequential:      req.Sequential,
		RetrievalTimeMs: req.RetrievalTimeMs,
	}

	batch.SystemPromptFor = func(model string) string {
		if sp, ok := req.SystemPrompts[model]; ok {
			return sp
		}
		return req.SystemPrompt
	}

	defaultTemperature := s.Profile.DefaultTemperature
	batch.TemperatureFor = func(model string) float32 {
		if t, ok := req.Temperatures[model]; ok {
			return t
		}
		return defaultTemperature
	}

	return batch
}

// HandleQuery runs a batch and returns the aggregate result. Per-model
// failures appear inside the result; only a malformed request yields a
// non-200 response.
func (s *APIV1Service) HandleQuery(c echo.Context) error {
	req := &QueryRequest{}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body").SetInternal(err)
	}

	result, err := s.Dispatcher.RunBatch(c.Request().Context(), s.batchRequest(req))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	s.observeBatch(result)
	return c.JSON(http.StatusOK, result)
}

// HandleQueryStream runs a batch while streaming per-model progress as
// server-sent events, ending with a single "result" event carrying the
// full batch result.
func (s *APIV1Service) HandleQueryStream(c echo.Context) error {
	req := &QueryRequest{}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body").SetInternal(err)
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)

	// The reporter delivers callbacks on its own goroutine while this
	// handler blocks inside RunBatch, so writes are serialized here.
	var mu sync.Mutex
	writeEvent := func(event string, payload any) {
		data, err := json.Marshal(payload)
		if err != nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(resp, "event: %s\ndata: %s\n\n", event, data)
		resp.Flush()
	}

	reporter := query.NewReporter("", func(ev query.ProgressEvent) {
		writeEvent("progress", ev)
	})

	batch := s.batchRequest(req)
	batch.Progress = reporter

	result, err := s.Dispatcher.RunBatch(c.Request().Context(), batch)

	// Drain buffered progress before the terminal event.
	reporter.Close()

	if err != nil {
		writeEvent("error", map[string]string{"message": err.Error()})
		return nil
	}

	s.observeBatch(result)
	writeEvent("result", result)
	return nil
}

func (s *APIV1Service) observeBatch(result *query.BatchResult) {
	if s.Exporter != nil {
		s.Exporter.ObserveBatch(result)
	}
}
