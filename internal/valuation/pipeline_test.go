package valuation

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intrinsicvalue/internal/directory"
	"intrinsicvalue/internal/fetcher"
	"intrinsicvalue/internal/refdata"
	"intrinsicvalue/internal/testutil"
)

func newTestPipeline(snap *refdata.Snapshot, riskFree float64, riskErr error) (*Pipeline, *testutil.MockFundamentals) {
	fundamentals := &testutil.MockFundamentals{
		Snapshots: map[string]*refdata.Snapshot{"ACME": snap},
	}
	p := NewPipeline(
		directory.New(testutil.Constituents()),
		testutil.NewMockFetcher("fetcher:test:risk_free", riskFree, riskErr),
		fundamentals,
		DefaultParams(),
		zerolog.Nop(),
	)
	return p, fundamentals
}

func TestPipeline_Run(t *testing.T) {
	p, fundamentals := newTestPipeline(testutil.Snapshot("ACME"), 0.04, nil)

	res, err := p.Run(context.Background(), "ACME")
	require.NoError(t, err)
	assert.Equal(t, int32(1), fundamentals.Calls.Load())

	assert.InDelta(t, 0.088, res.CostOfEquity, 1e-12)
	assert.Equal(t, 250_000.0, res.TotalDebt)
	assert.InDelta(t, 0.8, res.Weights.Equity, 1e-12)
	assert.InDelta(t, 0.2, res.Weights.Debt, 1e-12)
	assert.InDelta(t, 0.04, res.CostOfDebt, 1e-12)
	assert.InDelta(t, 0.21, res.EffectiveTaxRate, 1e-12)
	assert.InDelta(t, 0.07672, res.WACC, 1e-12)
	assert.InDelta(t, -0.10, res.GrowthRate, 1e-12)
	assert.Equal(t, 50_000.0, res.Cash, "cash comes from the latest filing")

	require.Len(t, res.History, 3)
	assert.Equal(t, 2021, res.History[0].Year)
	require.Len(t, res.Projection, ProjectionYears)
	assert.Equal(t, 2028, res.Projection[4].Year)

	// Recompute independently from the fixture numbers
	wacc := 0.07672
	fcf := 120_000.0
	var ev float64
	for n := 1; n <= 5; n++ {
		fcf *= 0.9
		cf := fcf
		if n == 5 {
			cf += fcf * 1.02 / (wacc - 0.02)
		}
		ev += cf / math.Pow(1+wacc, float64(n))
	}
	assert.InDelta(t, ev, res.EnterpriseValue, 1e-6)
	assert.InDelta(t, (ev+50_000-250_000)/1_000, res.IntrinsicValue, 1e-9)

	require.NotNil(t, res.CurrentPrice)
	assert.Equal(t, 500.0, *res.CurrentPrice)
}

func TestPipeline_UnknownTicker(t *testing.T) {
	p, fundamentals := newTestPipeline(testutil.Snapshot("ACME"), 0.04, nil)

	_, err := p.Run(context.Background(), "NOPE")
	assert.True(t, errors.Is(err, directory.ErrNotFound))
	assert.Zero(t, fundamentals.Calls.Load(), "nothing is fetched for unknown tickers")
}

func TestPipeline_ZeroDebt(t *testing.T) {
	snap := testutil.Snapshot("ACME")
	snap.BalanceSheet.Set(refdata.TotalDebt, testutil.FCFYears[2], 0)

	w, err := CapitalWeights(*snap.Profile.MarketCap, 0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, w.Equity)
	assert.Equal(t, 0.0, w.Debt)

	p, _ := newTestPipeline(snap, 0.04, nil)
	_, err = p.Run(context.Background(), "ACME")
	assert.True(t, errors.Is(err, ErrDegenerateMath))
	assert.Contains(t, err.Error(), "cost of debt")
}

func TestPipeline_WACCBelowPerpetualGrowth(t *testing.T) {
	snap := testutil.Snapshot("ACME")
	// beta 0 and a 1% risk-free rate push WACC under 2%
	snap.Profile.Beta = refdata.Float(0)

	p, _ := newTestPipeline(snap, 0.01, nil)
	_, err := p.Run(context.Background(), "ACME")
	assert.True(t, errors.Is(err, ErrDegenerateMath))
	assert.Contains(t, err.Error(), "terminal value")
}

func TestPipeline_MissingData(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *refdata.Snapshot)
		want   string
	}{
		{"no beta", func(s *refdata.Snapshot) { s.Profile.Beta = nil }, "beta"},
		{"no market cap", func(s *refdata.Snapshot) { s.Profile.MarketCap = nil }, "market cap"},
		{"no shares", func(s *refdata.Snapshot) { s.Profile.SharesOutstanding = nil }, "shares outstanding"},
		{"no balance sheet", func(s *refdata.Snapshot) { s.BalanceSheet = nil }, "no filings"},
		{"single fcf period", func(s *refdata.Snapshot) {
			cf := refdata.NewStatement("cash flow")
			cf.Set(refdata.FreeCashFlow, testutil.FCFYears[2], 120_000)
			s.CashFlow = cf
		}, "two free cash flow periods"},
		{"no interest line", func(s *refdata.Snapshot) {
			inc := refdata.NewStatement("income statement")
			inc.Set(refdata.TaxProvision, testutil.FCFYears[2], 1)
			inc.Set(refdata.PretaxIncome, testutil.FCFYears[2], 2)
			s.IncomeStatement = inc
		}, refdata.InterestExpense},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := testutil.Snapshot("ACME")
			tt.mutate(snap)

			p, _ := newTestPipeline(snap, 0.04, nil)
			_, err := p.Run(context.Background(), "ACME")
			require.Error(t, err)

			var fe *fetcher.FetchError
			require.True(t, errors.As(err, &fe), "got %v", err)
			assert.Equal(t, fetcher.ErrorTypeDataUnavailable, fe.Type)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestPipeline_ProviderFailure(t *testing.T) {
	p, fundamentals := newTestPipeline(testutil.Snapshot("ACME"), 0, fetcher.NewServerError(503))

	_, err := p.Run(context.Background(), "ACME")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "risk-free rate")
	assert.Zero(t, fundamentals.Calls.Load())

	var fe *fetcher.FetchError
	require.True(t, errors.As(err, &fe))
	assert.True(t, fe.ProviderUnavailable())
}
