package store

// UsageRecord is one persisted token-usage row, written after every
// model invocation regardless of outcome.
type UsageRecord struct {
	ID int64

	// Standard fields
	CreatedTs int64

	// Domain specific fields
	QueryID      string
	Model        string
	Operation    string
	InputTokens  int
	OutputTokens int
	TotalTokens  int
	Estimated    bool
	CostUSD      float64
}

// FindUsageRecord filters usage-record listings.
type FindUsageRecord struct {
	QueryID *string
	Model   *string
	Limit   *int
}
