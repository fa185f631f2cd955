package v1

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/davag/ragquery/ai/query"
	"github.com/davag/ragquery/internal/profile"
	"github.com/davag/ragquery/store"
	"github.com/davag/ragquery/store/db/sqlite"
)

// stubRunner returns a canned result and optionally replays progress
// events through the request's sink first.
type stubRunner struct {
	result   *query.BatchResult
	err      error
	progress []query.ProgressEvent

	gotRequest *query.BatchRequest
}

func (r *stubRunner) RunBatch(_ context.Context, req *query.BatchRequest) (*query.BatchResult, error) {
	r.gotRequest = req
	if req.Progress != nil {
		for _, ev := range r.progress {
			req.Progress.Report(ev)
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	return r.result, nil
}

func newTestService(t *testing.T, runner BatchRunner) *APIV1Service {
	t.Helper()

	p := &profile.Profile{
		Mode:               "dev",
		Driver:             "sqlite",
		DSN:                filepath.Join(t.TempDir(), "ragquery_test.db"),
		DefaultTemperature: 0.7,
	}
	driver, err := sqlite.NewDB(p)
	require.NoError(t, err)
	t.Cleanup(func() { _ = driver.Close() })
	require.NoError(t, driver.Migrate(context.Background()))

	return NewAPIV1Service(p, store.New(driver, p), runner, nil)
}

func postJSON(e *echo.Echo, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandleQuery(t *testing.T) {
	now := time.Now()
	runner := &stubRunner{
		result: &query.BatchResult{
			QueryID: "q-1",
			Query:   "what is raft?",
			Results: map[string]*query.ModelResult{
				"gpt-4o": {Model: "gpt-4o", Status: query.StatusSucceeded, Text: "consensus"},
			},
			StartedAt:  now,
			FinishedAt: now,
		},
	}
	svc := newTestService(t, runner)
	e := echo.New()

	c, rec := postJSON(e, "/api/v1/query", `{
		"query": "what is raft?",
		"models": ["gpt-4o", "deepseek-chat"],
		"system_prompt": "be brief",
		"system_prompts": {"gpt-4o": "be thorough"},
		"temperatures": {"deepseek-chat": 0.2},
		"retrieval_time_ms": 42
	}`)
	require.NoError(t, svc.HandleQuery(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"query_id":"q-1"`)
	require.Contains(t, rec.Body.String(), "consensus")

	got := runner.gotRequest
	require.Equal(t, "what is raft?", got.Prompt)
	require.Equal(t, []string{"gpt-4o", "deepseek-chat"}, got.Models)
	require.Equal(t, int64(42), got.RetrievalTimeMs)

	require.Equal(t, "be thorough", got.SystemPromptFor("gpt-4o"))
	require.Equal(t, "be brief", got.SystemPromptFor("deepseek-chat"))
	require.InDelta(t, 0.2, got.TemperatureFor("deepseek-chat"), 1e-6)
	require.InDelta(t, 0.7, got.TemperatureFor("gpt-4o"), 1e-6)
}

func TestHandleQueryMalformedBody(t *testing.T) {
	svc := newTestService(t, &stubRunner{})
	e := echo.New()

	c, _ := postJSON(e, "/api/v1/query", `{"query": `)
	err := svc.HandleQuery(c)
	require.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestHandleQueryDispatchError(t *testing.T) {
	svc := newTestService(t, &stubRunner{err: context.DeadlineExceeded})
	e := echo.New()

	c, _ := postJSON(e, "/api/v1/query", `{"query": "hi", "models": []}`)
	err := svc.HandleQuery(c)
	require.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestHandleQueryStream(t *testing.T) {
	runner := &stubRunner{
		result: &query.BatchResult{
			QueryID: "q-2",
			Query:   "hi",
			Results: map[string]*query.ModelResult{
				"gpt-4o": {Model: "gpt-4o", Status: query.StatusSucceeded, Text: "hello"},
			},
		},
		progress: []query.ProgressEvent{
			{Model: "gpt-4o", Status: query.ProgressStarted, Index: 0, Total: 1},
			{Model: "gpt-4o", Status: query.ProgressCompleted, Index: 0, Total: 1},
		},
	}
	svc := newTestService(t, runner)
	e := echo.New()

	c, rec := postJSON(e, "/api/v1/query/stream", `{"query": "hi", "models": ["gpt-4o"]}`)
	require.NoError(t, svc.HandleQueryStream(c))

	body := rec.Body.String()
	require.Equal(t, "text/event-stream", rec.Header().Get(echo.HeaderContentType))
	require.Contains(t, body, "event: progress")
	require.Contains(t, body, `"status":"started"`)
	require.Contains(t, body, `"status":"completed"`)
	require.Contains(t, body, "event: result")
	require.Contains(t, body, `"query_id":"q-2"`)

	// The terminal event comes after all progress events.
	require.Less(t, strings.LastIndex(body, "event: progress"), strings.Index(body, "event: result"))
}

func TestHandleListUsage(t *testing.T) {
	svc := newTestService(t, &stubRunner{})
	e := echo.New()

	_, err := svc.Store.CreateUsageRecord(context.Background(), &store.UsageRecord{
		QueryID:      "q-3",
		Model:        "gpt-4o",
		Operation:    "query",
		InputTokens:  10,
		OutputTokens: 5,
		TotalTokens:  15,
		CostUSD:      0.0001,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/usage?model=gpt-4o&limit=10", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, svc.HandleListUsage(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"q-3"`)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/usage?limit=bogus", nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	err = svc.HandleListUsage(c)
	require.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusBadRequest, httpErr.Code)
}
