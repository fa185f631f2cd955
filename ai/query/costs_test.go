package query

import (
	"math"
	"testing"
)

func TestCostFor_KnownModel(t *testing.T) {
	usage := TokenUsage{Input: 1_000_000, Output: 1_000_000, Total: 2_000_000}
	got := CostFor("gpt-4o-mini", usage)
	want := 0.15 + 0.6
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("CostFor() = %v, want %v", got, want)
	}
}

func TestCostFor_UnknownModelUsesDefaults(t *testing.T) {
	usage := TokenUsage{Input: 2_000_000, Output: 1_000_000, Total: 3_000_000}
	got := CostFor("some-new-model", usage)
	want := 2*defaultInputPrice + defaultOutputPrice
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("CostFor() = %v, want %v", got, want)
	}
}

func TestCostFor_ZeroUsage(t *testing.T) {
	if got := CostFor("gpt-4o", TokenUsage{}); got != 0 {
		t.Errorf("CostFor() = %v, want 0", got)
	}
}

func TestMultiSink(t *testing.T) {
	a := &recordingSink{}
	b := &recordingSink{}
	sink := MultiSink{a, b}

	rec := UsageRecord{QueryID: "q", Model: "m", Operation: "query"}
	if err := sink.Record(rec); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if a.count() != 1 || b.count() != 1 {
		t.Errorf("records fanned out %d/%d times, want 1/1", a.count(), b.count())
	}
}
