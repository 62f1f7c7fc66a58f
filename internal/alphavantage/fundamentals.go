package alphavantage

import (
	"context"
	"fmt"
	"time"

	"intrinsicvalue/internal/fetcher"
	"intrinsicvalue/internal/refdata"
)

// OverviewResponse is the subset of the OVERVIEW function the valuation uses
type OverviewResponse struct {
	Symbol               string `json:"Symbol"`
	Name                 string `json:"Name"`
	Beta                 string `json:"Beta"`
	MarketCapitalization string `json:"MarketCapitalization"`
	SharesOutstanding    string `json:"SharesOutstanding"`
}

// ReportsResponse is the shape shared by BALANCE_SHEET, INCOME_STATEMENT and
// CASH_FLOW: one string-valued map per annual filing
type ReportsResponse struct {
	Symbol        string              `json:"symbol"`
	AnnualReports []map[string]string `json:"annualReports"`
}

const fiscalDateEnding = "fiscalDateEnding"

// Snapshot fetches the overview, the three annual statements and the latest
// quote for symbol. Every call goes to the network.
func (c *Client) Snapshot(ctx context.Context, symbol string) (*refdata.Snapshot, error) {
	var overview OverviewResponse
	if err := c.query(ctx, "OVERVIEW", symbol, &overview); err != nil {
		return nil, fmt.Errorf("failed to fetch overview for %s: %w", symbol, err)
	}
	if overview.Symbol == "" {
		return nil, fetcher.NewDataUnavailableError(fmt.Sprintf("no company overview for %s", symbol))
	}

	snap := &refdata.Snapshot{
		Symbol: symbol,
		Profile: refdata.Profile{
			Beta:              amountPtr(overview.Beta),
			MarketCap:         amountPtr(overview.MarketCapitalization),
			SharesOutstanding: amountPtr(overview.SharesOutstanding),
		},
	}

	var err error
	snap.BalanceSheet, err = c.statement(ctx, symbol, "BALANCE_SHEET", "balance sheet", func(r map[string]string, set setter) {
		set(refdata.TotalDebt, amountPtr(r["shortLongTermDebtTotal"]))
		set(refdata.CashAndInvestments, amountPtr(r["cashAndShortTermInvestments"]))
	})
	if err != nil {
		return nil, err
	}

	snap.IncomeStatement, err = c.statement(ctx, symbol, "INCOME_STATEMENT", "income statement", func(r map[string]string, set setter) {
		set(refdata.InterestExpense, amountPtr(r["interestExpense"]))
		set(refdata.TaxProvision, amountPtr(r["incomeTaxExpense"]))
		set(refdata.PretaxIncome, amountPtr(r["incomeBeforeTax"]))
	})
	if err != nil {
		return nil, err
	}

	snap.CashFlow, err = c.statement(ctx, symbol, "CASH_FLOW", "cash flow", func(r map[string]string, set setter) {
		ocf, capex := amountPtr(r["operatingCashflow"]), amountPtr(r["capitalExpenditures"])
		if ocf != nil && capex != nil {
			set(refdata.FreeCashFlow, refdata.Float(*ocf-*capex))
		}
	})
	if err != nil {
		return nil, err
	}

	// A missing quote leaves CurrentPrice unset
	if price, err := NewStockFetcher(c, symbol).Fetch(ctx); err == nil {
		snap.Profile.CurrentPrice = &price
	} else {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("quote unavailable")
	}

	return snap, nil
}

// setter records one line item of the current filing; nil leaves the cell empty
type setter func(item string, v *float64)

func (c *Client) statement(ctx context.Context, symbol, function, name string, extract func(map[string]string, setter)) (*refdata.Statement, error) {
	var reports ReportsResponse
	if err := c.query(ctx, function, symbol, &reports); err != nil {
		return nil, fmt.Errorf("failed to fetch %s for %s: %w", name, symbol, err)
	}

	stmt := refdata.NewStatement(name)
	for _, r := range reports.AnnualReports {
		date, err := time.Parse("2006-01-02", r[fiscalDateEnding])
		if err != nil {
			return nil, fetcher.NewValidationError(fmt.Sprintf("invalid %s %q in %s for %s", fiscalDateEnding, r[fiscalDateEnding], name, symbol))
		}
		stmt.AddPeriod(date)
		extract(r, func(item string, v *float64) {
			if v != nil {
				stmt.Set(item, date, *v)
			}
		})
	}

	return stmt, nil
}
