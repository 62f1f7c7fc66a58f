package fetcher

import "context"

// Fetcher retrieves a single scalar reference value, such as the risk-free
// rate or a last traded price, and names it with a hierarchical key.
type Fetcher interface {
	// Fetch retrieves the value.
	// Returns an error if the fetch operation fails.
	Fetch(ctx context.Context) (float64, error)

	// Key returns a hierarchical key for this fetcher, used in logs and reports.
	// Format: fetcher:{source}:{identifier}
	// Examples:
	//   - fetcher:yahoo:treasury_yield_10y
	//   - fetcher:alphavantage:AAPL
	Key() string
}
