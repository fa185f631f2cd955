package query

// modelPricing maps model ids to per-million-token prices (input,
// output). Approximate rates for dashboard estimation, not billing.
var modelPricing = map[string][2]float64{
	// OpenAI
	"gpt-4o":      {2.5, 10.0},
	"gpt-4o-mini": {0.15, 0.6},
	"o1":          {15.0, 60.0},
	"o3":          {10.0, 40.0},
	"o3-mini":     {1.1, 4.4},
	"o4-mini":     {1.1, 4.4},
	// Anthropic (via openrouter)
	"anthropic/claude-sonnet-4":  {3.0, 15.0},
	"anthropic/claude-haiku-4-5": {1.0, 5.0},
	// Google (via openrouter)
	"google/gemini-2.5-pro":   {1.25, 10.0},
	"google/gemini-2.0-flash": {0.1, 0.4},
	// DeepSeek
	"deepseek-chat":     {0.14, 0.28},
	"deepseek-reasoner": {0.55, 2.19},
	// Zhipu
	"glm-4-plus": {0.7, 0.7},
}

// Default rates for models missing from the table.
const (
	defaultInputPrice  = 3.0
	defaultOutputPrice = 15.0
)

// CostFor computes the dollar cost of one call from its token usage.
// Estimated usage prices the same as reported usage; the estimate flag
// travels with the record so consumers can discount accordingly.
func CostFor(model string, usage TokenUsage) float64 {
	inputPrice, outputPrice := modelPrice(model)
	return float64(usage.Input)/1_000_000*inputPrice +
		float64(usage.Output)/1_000_000*outputPrice
}

func modelPrice(model string) (float64, float64) {
	if prices, ok := modelPricing[model]; ok {
		return prices[0], prices[1]
	}
	return defaultInputPrice, defaultOutputPrice
}
