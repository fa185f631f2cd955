package store

import (
	"context"
	"time"

	"github.com/davag/ragquery/ai/query"
)

// CostSink adapts the store to the orchestrator's cost-tracking
// interface. Each record becomes one usage row; write errors bubble up
// to the dispatcher, which logs and ignores them.
type CostSink struct {
	store   *Store
	timeout time.Duration
}

// NewCostSink creates a store-backed cost sink.
func NewCostSink(store *Store) *CostSink {
	return &CostSink{store: store, timeout: 5 * time.Second}
}

// Record implements query.CostSink.
func (s *CostSink) Record(rec query.UsageRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	_, err := s.store.CreateUsageRecord(ctx, &UsageRecord{
		QueryID:      rec.QueryID,
		Model:        rec.Model,
		Operation:    rec.Operation,
		InputTokens:  rec.Usage.Input,
		OutputTokens: rec.Usage.Output,
		TotalTokens:  rec.Usage.Total,
		Estimated:    rec.Usage.Estimated,
		CostUSD:      rec.CostUSD,
	})
	return err
}
