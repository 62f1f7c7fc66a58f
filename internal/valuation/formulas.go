package valuation

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"intrinsicvalue/internal/fetcher"
)

// ProjectionYears is the explicit forecast horizon of the DCF model
const ProjectionYears = 5

// Point is one year of free cash flow
type Point struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}

// Weights is the capital structure split between equity and debt
type Weights struct {
	Equity float64 `json:"equity"`
	Debt   float64 `json:"debt"`
}

// CostOfEquity applies CAPM: rf + beta * (market - rf)
func CostOfEquity(riskFreeRate, beta, expectedMarketReturn float64) float64 {
	return riskFreeRate + beta*(expectedMarketReturn-riskFreeRate)
}

// CapitalWeights returns E/(E+D) and D/(E+D)
func CapitalWeights(marketCap, totalDebt float64) (Weights, error) {
	total := marketCap + totalDebt
	if total == 0 {
		return Weights{}, degenerate("capital weights", "market cap plus total debt is zero")
	}
	return Weights{
		Equity: marketCap / total,
		Debt:   totalDebt / total,
	}, nil
}

// CostOfDebt is interest expense over total debt
func CostOfDebt(interestExpense, totalDebt float64) (float64, error) {
	if totalDebt == 0 {
		return 0, degenerate("cost of debt", "total debt is zero")
	}
	return interestExpense / totalDebt, nil
}

// EffectiveTaxRate is the tax provision over pretax income
func EffectiveTaxRate(taxProvision, pretaxIncome float64) (float64, error) {
	if pretaxIncome == 0 {
		return 0, degenerate("effective tax rate", "pretax income is zero")
	}
	return taxProvision / pretaxIncome, nil
}

// WACC weighs the cost of equity and the after-tax cost of debt
func WACC(w Weights, costOfEquity, costOfDebt, taxRate float64) float64 {
	return w.Equity*costOfEquity + w.Debt*costOfDebt*(1-taxRate)
}

// GrowthRate returns the smallest period-over-period change in an ascending
// free cash flow history. Using the minimum keeps the projection conservative.
func GrowthRate(history []Point) (float64, error) {
	if len(history) < 2 {
		return 0, fetcher.NewDataUnavailableError("at least two free cash flow periods are required for a growth rate")
	}

	changes := make([]float64, 0, len(history)-1)
	for i := 1; i < len(history); i++ {
		prev := history[i-1].Value
		if prev == 0 {
			return 0, degenerate("growth rate", "free cash flow for %d is zero", history[i-1].Year)
		}
		changes = append(changes, (history[i].Value-prev)/prev)
	}

	return floats.Min(changes), nil
}

// Project compounds latest forward one year at a time for the given number
// of years. Each value derives from the previous projected value.
func Project(latest Point, growthRate float64, years int) []Point {
	out := make([]Point, 0, years)
	prev := latest
	for i := 0; i < years; i++ {
		next := Point{
			Year:  prev.Year + 1,
			Value: prev.Value * (1 + growthRate),
		}
		out = append(out, next)
		prev = next
	}
	return out
}

// TerminalValue applies the Gordon growth model to the last projected cash flow
func TerminalValue(lastFCF, wacc, perpetualGrowthRate float64) (float64, error) {
	if wacc <= perpetualGrowthRate {
		return 0, degenerate("terminal value", "WACC %.4f does not exceed the perpetual growth rate %.4f",
			wacc, perpetualGrowthRate)
	}
	return lastFCF * (1 + perpetualGrowthRate) / (wacc - perpetualGrowthRate), nil
}

// FoldTerminalValue returns a copy of projection with the terminal value
// added to its final year. No period is appended.
func FoldTerminalValue(projection []Point, terminalValue float64) []Point {
	out := make([]Point, len(projection))
	copy(out, projection)
	if len(out) > 0 {
		out[len(out)-1].Value += terminalValue
	}
	return out
}

// PresentValue discounts the n-th entry (1-based) by (1+wacc)^n and sums them
func PresentValue(projection []Point, wacc float64) float64 {
	if len(projection) == 0 {
		return 0
	}
	discounted := make([]float64, len(projection))
	for i, p := range projection {
		discounted[i] = p.Value / math.Pow(1+wacc, float64(i+1))
	}
	return floats.Sum(discounted)
}

// IntrinsicValue converts enterprise value to equity value per share
func IntrinsicValue(enterpriseValue, cash, totalDebt, sharesOutstanding float64) (float64, error) {
	if sharesOutstanding <= 0 {
		return 0, degenerate("intrinsic value", "shares outstanding is %v", sharesOutstanding)
	}
	return (enterpriseValue + cash - totalDebt) / sharesOutstanding, nil
}
