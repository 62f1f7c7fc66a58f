package valuation

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"intrinsicvalue/internal/directory"
	"intrinsicvalue/internal/fetcher"
	"intrinsicvalue/internal/refdata"
)

// Params are the fixed assumptions of the model
type Params struct {
	ExpectedMarketReturn float64
	PerpetualGrowthRate  float64
}

// DefaultParams returns an 8% expected market return and 2% perpetual growth
func DefaultParams() Params {
	return Params{
		ExpectedMarketReturn: 0.08,
		PerpetualGrowthRate:  0.02,
	}
}

// Result is the intrinsic value of one ticker with every intermediate step
type Result struct {
	Symbol            string   `json:"symbol"`
	RiskFreeRate      float64  `json:"risk_free_rate"`
	Beta              float64  `json:"beta"`
	CostOfEquity      float64  `json:"cost_of_equity"`
	TotalDebt         float64  `json:"total_debt"`
	MarketCap         float64  `json:"market_cap"`
	Weights           Weights  `json:"weights"`
	CostOfDebt        float64  `json:"cost_of_debt"`
	EffectiveTaxRate  float64  `json:"effective_tax_rate"`
	WACC              float64  `json:"wacc"`
	GrowthRate        float64  `json:"growth_rate"`
	History           []Point  `json:"history"`
	Projection        []Point  `json:"projection"`
	TerminalValue     float64  `json:"terminal_value"`
	EnterpriseValue   float64  `json:"enterprise_value"`
	Cash              float64  `json:"cash"`
	SharesOutstanding float64  `json:"shares_outstanding"`
	IntrinsicValue    float64  `json:"intrinsic_value"`
	CurrentPrice      *float64 `json:"current_price,omitempty"`
}

// Pipeline turns a ticker into an intrinsic value per share
type Pipeline struct {
	directory    *directory.Directory
	riskFree     fetcher.Fetcher
	fundamentals refdata.FundamentalsSource
	params       Params
	log          zerolog.Logger
}

// NewPipeline creates a pipeline over the given directory and providers
func NewPipeline(dir *directory.Directory, riskFree fetcher.Fetcher, fundamentals refdata.FundamentalsSource, params Params, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		directory:    dir,
		riskFree:     riskFree,
		fundamentals: fundamentals,
		params:       params,
		log:          log.With().Str("component", "valuation").Logger(),
	}
}

// Run fetches fresh data for symbol and computes its intrinsic value.
// The symbol must be an index constituent.
func (p *Pipeline) Run(ctx context.Context, symbol string) (*Result, error) {
	if _, err := p.directory.Constituent(p.directory.Resolve(symbol)); err != nil {
		return nil, fmt.Errorf("%s: %w", symbol, err)
	}

	log := p.log.With().Str("symbol", symbol).Logger()

	riskFree, err := p.riskFree.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch risk-free rate: %w", err)
	}

	snap, err := p.fundamentals.Snapshot(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch fundamentals for %s: %w", symbol, err)
	}

	res, err := p.compute(symbol, riskFree, snap)
	if err != nil {
		log.Debug().Err(err).Msg("valuation failed")
		return nil, err
	}

	log.Debug().
		Float64("risk_free_rate", res.RiskFreeRate).
		Float64("cost_of_equity", res.CostOfEquity).
		Float64("wacc", res.WACC).
		Float64("growth_rate", res.GrowthRate).
		Float64("terminal_value", res.TerminalValue).
		Float64("enterprise_value", res.EnterpriseValue).
		Float64("intrinsic_value", res.IntrinsicValue).
		Msg("valuation complete")

	return res, nil
}

func (p *Pipeline) compute(symbol string, riskFree float64, snap *refdata.Snapshot) (*Result, error) {
	if snap == nil {
		return nil, fetcher.NewDataUnavailableError(fmt.Sprintf("no fundamentals for %s", symbol))
	}

	res := &Result{
		Symbol:       symbol,
		RiskFreeRate: riskFree,
		CurrentPrice: snap.Profile.CurrentPrice,
	}

	var err error

	if res.Beta, err = required(snap.Profile.Beta, "beta", symbol); err != nil {
		return nil, err
	}
	res.CostOfEquity = CostOfEquity(riskFree, res.Beta, p.params.ExpectedMarketReturn)

	debt, err := snap.BalanceSheet.Latest(refdata.TotalDebt)
	if err != nil {
		return nil, err
	}
	res.TotalDebt = math.RoundToEven(debt)

	if res.MarketCap, err = required(snap.Profile.MarketCap, "market cap", symbol); err != nil {
		return nil, err
	}

	if res.Weights, err = CapitalWeights(res.MarketCap, res.TotalDebt); err != nil {
		return nil, err
	}

	interest, err := snap.IncomeStatement.Latest(refdata.InterestExpense)
	if err != nil {
		return nil, err
	}
	if res.CostOfDebt, err = CostOfDebt(interest, res.TotalDebt); err != nil {
		return nil, err
	}

	tax, err := snap.IncomeStatement.Latest(refdata.TaxProvision)
	if err != nil {
		return nil, err
	}
	pretax, err := snap.IncomeStatement.Latest(refdata.PretaxIncome)
	if err != nil {
		return nil, err
	}
	if res.EffectiveTaxRate, err = EffectiveTaxRate(tax, pretax); err != nil {
		return nil, err
	}

	res.WACC = WACC(res.Weights, res.CostOfEquity, res.CostOfDebt, res.EffectiveTaxRate)

	observations, err := snap.CashFlow.Series(refdata.FreeCashFlow)
	if err != nil {
		return nil, err
	}
	res.History = make([]Point, len(observations))
	for i, o := range observations {
		res.History[i] = Point{Year: o.Date.Year(), Value: o.Value}
	}

	if res.GrowthRate, err = GrowthRate(res.History); err != nil {
		return nil, err
	}

	projection := Project(res.History[len(res.History)-1], res.GrowthRate, ProjectionYears)

	res.TerminalValue, err = TerminalValue(projection[len(projection)-1].Value, res.WACC, p.params.PerpetualGrowthRate)
	if err != nil {
		return nil, err
	}
	res.Projection = FoldTerminalValue(projection, res.TerminalValue)
	res.EnterpriseValue = PresentValue(res.Projection, res.WACC)

	if res.Cash, err = snap.BalanceSheet.Latest(refdata.CashAndInvestments); err != nil {
		return nil, err
	}
	if res.SharesOutstanding, err = required(snap.Profile.SharesOutstanding, "shares outstanding", symbol); err != nil {
		return nil, err
	}

	if res.IntrinsicValue, err = IntrinsicValue(res.EnterpriseValue, res.Cash, res.TotalDebt, res.SharesOutstanding); err != nil {
		return nil, err
	}
	if math.IsNaN(res.IntrinsicValue) || math.IsInf(res.IntrinsicValue, 0) {
		return nil, degenerate("intrinsic value", "result is not a finite number")
	}

	return res, nil
}

func required(v *float64, field, symbol string) (float64, error) {
	if v == nil {
		return 0, fetcher.NewDataUnavailableError(fmt.Sprintf("%s not reported for %s", field, symbol))
	}
	return *v, nil
}
