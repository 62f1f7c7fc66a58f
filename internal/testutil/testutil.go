package testutil

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"intrinsicvalue/internal/fetcher"
	"intrinsicvalue/internal/refdata"
)

// MockFetcher is a mock implementation of the Fetcher interface for testing
type MockFetcher struct {
	FetchFunc func(ctx context.Context) (float64, error)
	KeyFunc   func() string
}

// Fetch implements the Fetcher interface
func (m *MockFetcher) Fetch(ctx context.Context) (float64, error) {
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx)
	}
	return 0, nil
}

// Key implements the Fetcher interface
func (m *MockFetcher) Key() string {
	if m.KeyFunc != nil {
		return m.KeyFunc()
	}
	return "mock:key"
}

// NewMockFetcher creates a simple mock fetcher with predefined values
func NewMockFetcher(key string, value float64, err error) fetcher.Fetcher {
	return &MockFetcher{
		FetchFunc: func(ctx context.Context) (float64, error) {
			return value, err
		},
		KeyFunc: func() string {
			return key
		},
	}
}

// MockFundamentals serves fixed snapshots keyed by symbol
type MockFundamentals struct {
	Snapshots map[string]*refdata.Snapshot
	Err       error
	Calls     atomic.Int32
}

// Snapshot implements refdata.FundamentalsSource
func (m *MockFundamentals) Snapshot(ctx context.Context, symbol string) (*refdata.Snapshot, error) {
	m.Calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}
	snap, ok := m.Snapshots[symbol]
	if !ok {
		return nil, fetcher.NewClientError(404, fmt.Sprintf("no fundamentals for %s", symbol))
	}
	return snap, nil
}

// MockConstituents serves a fixed constituent table
type MockConstituents struct {
	Data *refdata.ReferenceData
	Err  error
}

// Constituents implements refdata.ConstituentSource
func (m *MockConstituents) Constituents(ctx context.Context) (*refdata.ReferenceData, error) {
	return m.Data, m.Err
}

// Constituents returns a small constituent table containing ACME and the given extra symbols
func Constituents(extra ...string) *refdata.ReferenceData {
	data := &refdata.ReferenceData{Constituents: []refdata.Constituent{
		{
			Symbol:       "ACME",
			Name:         "Acme Corporation",
			Sector:       "Industrials",
			SubIndustry:  "Industrial Machinery",
			Headquarters: "Phoenix, Arizona",
		},
	}}
	for _, s := range extra {
		data.Constituents = append(data.Constituents, refdata.Constituent{
			Symbol:       s,
			Name:         s + " Inc.",
			Sector:       "Information Technology",
			SubIndustry:  "Application Software",
			Headquarters: "Austin, Texas",
		})
	}
	return data
}

// FCFYears are the fiscal year ends used by Snapshot
var FCFYears = []time.Time{
	time.Date(2021, 12, 31, 0, 0, 0, 0, time.UTC),
	time.Date(2022, 12, 31, 0, 0, 0, 0, time.UTC),
	time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
}

// Snapshot returns a complete, well-formed snapshot:
// beta 1.2, market cap 1,000,000, 1,000 shares at 500, total debt 250,000,
// cash 50,000, interest 10,000, tax 21,000 on pretax 100,000 and free cash
// flow 100,000 / 90,000 / 120,000 for 2021-2023.
func Snapshot(symbol string) *refdata.Snapshot {
	latest := FCFYears[len(FCFYears)-1]
	prior := FCFYears[len(FCFYears)-2]

	balance := refdata.NewStatement("balance sheet")
	balance.Set(refdata.TotalDebt, latest, 250_000)
	balance.Set(refdata.CashAndInvestments, latest, 50_000)
	balance.Set(refdata.TotalDebt, prior, 999_999)
	balance.Set(refdata.CashAndInvestments, prior, 1)

	income := refdata.NewStatement("income statement")
	income.Set(refdata.InterestExpense, latest, 10_000)
	income.Set(refdata.TaxProvision, latest, 21_000)
	income.Set(refdata.PretaxIncome, latest, 100_000)

	cash := refdata.NewStatement("cash flow")
	for i, v := range []float64{100_000, 90_000, 120_000} {
		cash.Set(refdata.FreeCashFlow, FCFYears[i], v)
	}

	return &refdata.Snapshot{
		Symbol: symbol,
		Profile: refdata.Profile{
			Beta:              refdata.Float(1.2),
			MarketCap:         refdata.Float(1_000_000),
			SharesOutstanding: refdata.Float(1_000),
			CurrentPrice:      refdata.Float(500),
		},
		BalanceSheet:    balance,
		IncomeStatement: income,
		CashFlow:        cash,
	}
}

// Line is one label/value pair shown by a display
type Line struct {
	Label string
	Value string
}

// RecordingDisplay captures everything shown to the user
type RecordingDisplay struct {
	Samples [][]refdata.Constituent
	Lines   []Line
}

// ShowSample records a constituent sample
func (d *RecordingDisplay) ShowSample(records []refdata.Constituent) {
	d.Samples = append(d.Samples, records)
}

// ShowText records a text line
func (d *RecordingDisplay) ShowText(label, value string) {
	d.Lines = append(d.Lines, Line{Label: label, Value: value})
}

// Value returns the value shown for label, or "" when it was not shown
func (d *RecordingDisplay) Value(label string) string {
	for _, l := range d.Lines {
		if l.Label == label {
			return l.Value
		}
	}
	return ""
}
