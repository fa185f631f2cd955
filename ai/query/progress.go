package query

import (
	"log/slog"
	"sync"
)

// Reporter delivers progress events to a callback on a single dispatch
// goroutine, decoupling event delivery from the task that produced it.
// Send never blocks: when the buffer is full the event is dropped, since
// progress is purely observational and the batch result must not wait on
// a slow UI.
type Reporter struct {
	callback func(ProgressEvent)
	eventCh  chan ProgressEvent
	wg       sync.WaitGroup
	mu       sync.Mutex
	closed   bool
	queryID  string
}

// NewReporter creates a reporter over the callback. A nil callback
// yields an inert reporter whose Send and Close are no-ops.
func NewReporter(queryID string, callback func(ProgressEvent)) *Reporter {
	if callback == nil {
		return &Reporter{queryID: queryID}
	}

	r := &Reporter{
		callback: callback,
		eventCh:  make(chan ProgressEvent, 64),
		queryID:  queryID,
	}

	r.wg.Add(1)
	go r.dispatchLoop()

	return r
}

func (r *Reporter) dispatchLoop() {
	defer r.wg.Done()
	for ev := range r.eventCh {
		// A panicking callback must not take down the dispatch loop.
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					slog.Error("progress: recovered from callback panic", "panic", rec, "query_id", r.queryID)
				}
			}()
			r.callback(ev)
		}()
	}
}

// Report implements ProgressSink.
func (r *Reporter) Report(ev ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.callback == nil || r.closed {
		return
	}

	select {
	case r.eventCh <- ev:
	default:
		slog.Debug("progress: event dropped, buffer full",
			"query_id", r.queryID, "model", ev.Model, "status", ev.Status)
	}
}

// Close stops accepting events and waits for buffered ones to be
// delivered.
func (r *Reporter) Close() {
	r.mu.Lock()
	if r.callback == nil || r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	close(r.eventCh)
	r.wg.Wait()
}
