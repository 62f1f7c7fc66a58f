package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"intrinsicvalue/internal/fetcher"
	"intrinsicvalue/internal/refdata"
)

// timeseriesStart is the earliest period requested from the timeseries API
const timeseriesStart = 493590046

// timeseries type names for each statement line item, without the
// "annual" frequency prefix
var (
	balanceSheetTypes = map[string]string{
		"TotalDebt": refdata.TotalDebt,
		"CashCashEquivalentsAndShortTermInvestments": refdata.CashAndInvestments,
	}
	incomeStatementTypes = map[string]string{
		"InterestExpenseNonOperating": refdata.InterestExpense,
		"TaxProvision":                refdata.TaxProvision,
		"PretaxIncome":                refdata.PretaxIncome,
	}
	cashFlowTypes = map[string]string{
		"FreeCashFlow": refdata.FreeCashFlow,
	}
)

// Snapshot fetches the profile and the three annual statements for symbol.
// Every call goes to the network.
func (c *Client) Snapshot(ctx context.Context, symbol string) (*refdata.Snapshot, error) {
	ysym := toYahooSymbol(symbol)

	profile, err := c.profile(ctx, ysym)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile for %s: %w", symbol, err)
	}

	snap := &refdata.Snapshot{Symbol: symbol, Profile: *profile}

	statements := []struct {
		name  string
		types map[string]string
		dst   **refdata.Statement
	}{
		{"balance sheet", balanceSheetTypes, &snap.BalanceSheet},
		{"income statement", incomeStatementTypes, &snap.IncomeStatement},
		{"cash flow", cashFlowTypes, &snap.CashFlow},
	}
	for _, s := range statements {
		stmt, err := c.statement(ctx, ysym, s.name, s.types)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s for %s: %w", s.name, symbol, err)
		}
		*s.dst = stmt
	}

	c.log.Debug().
		Str("symbol", symbol).
		Int("balance_periods", len(snap.BalanceSheet.Periods())).
		Int("cash_flow_periods", len(snap.CashFlow.Periods())).
		Msg("fetched fundamentals")

	return snap, nil
}

func (c *Client) profile(ctx context.Context, ysym string) (*refdata.Profile, error) {
	var result quoteSummaryResponse
	params := map[string]string{
		"modules": "summaryDetail,defaultKeyStatistics,price",
	}
	if err := c.get(ctx, "/v10/finance/quoteSummary/"+ysym, params, &result); err != nil {
		return nil, err
	}

	if e := result.QuoteSummary.Error; e != nil {
		return nil, fetcher.NewValidationError(fmt.Sprintf("quoteSummary error %s: %s", e.Code, e.Description))
	}
	if len(result.QuoteSummary.Result) == 0 {
		return nil, fetcher.NewDataUnavailableError(fmt.Sprintf("no quote summary for %s", ysym))
	}

	r := result.QuoteSummary.Result[0]
	return &refdata.Profile{
		Beta:              firstRaw(r.SummaryDetail.Beta, r.DefaultKeyStatistics.Beta),
		MarketCap:         firstRaw(r.Price.MarketCap, r.SummaryDetail.MarketCap),
		SharesOutstanding: r.DefaultKeyStatistics.SharesOutstanding.Raw,
		CurrentPrice:      r.Price.RegularMarketPrice.Raw,
	}, nil
}

func (c *Client) statement(ctx context.Context, ysym, name string, types map[string]string) (*refdata.Statement, error) {
	keys := make([]string, 0, len(types))
	for t := range types {
		keys = append(keys, "annual"+t)
	}

	var result timeseriesResponse
	params := map[string]string{
		"symbol":  ysym,
		"type":    strings.Join(keys, ","),
		"period1": strconv.Itoa(timeseriesStart),
		"period2": strconv.FormatInt(time.Now().Unix(), 10),
	}
	if err := c.get(ctx, "/ws/fundamentals-timeseries/v1/finance/timeseries/"+ysym, params, &result); err != nil {
		return nil, err
	}

	if e := result.Timeseries.Error; e != nil {
		return nil, fetcher.NewValidationError(fmt.Sprintf("timeseries error %s: %s", e.Code, e.Description))
	}

	return parseStatement(name, types, result.Timeseries.Result)
}

// parseStatement builds a Statement from raw timeseries results. Null points
// and points without a reported value leave the cell empty.
func parseStatement(name string, types map[string]string, results []json.RawMessage) (*refdata.Statement, error) {
	stmt := refdata.NewStatement(name)

	for _, raw := range results {
		var meta timeseriesMeta
		if err := json.Unmarshal(raw, &meta); err != nil {
			return nil, fetcher.NewValidationError(fmt.Sprintf("malformed timeseries result: %v", err))
		}
		if len(meta.Meta.Type) == 0 {
			continue
		}

		key := meta.Meta.Type[0]
		item, ok := types[strings.TrimPrefix(key, "annual")]
		if !ok {
			continue
		}

		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fetcher.NewValidationError(fmt.Sprintf("malformed timeseries result: %v", err))
		}
		data, ok := fields[key]
		if !ok {
			continue
		}

		var points []*timeseriesPoint
		if err := json.Unmarshal(data, &points); err != nil {
			return nil, fetcher.NewValidationError(fmt.Sprintf("malformed %s series: %v", key, err))
		}

		for _, p := range points {
			if p == nil {
				continue
			}
			date, err := time.Parse("2006-01-02", p.AsOfDate)
			if err != nil {
				return nil, fetcher.NewValidationError(fmt.Sprintf("invalid asOfDate %q in %s", p.AsOfDate, key))
			}
			stmt.AddPeriod(date)
			if p.ReportedValue.Raw != nil {
				stmt.Set(item, date, *p.ReportedValue.Raw)
			}
		}
	}

	return stmt, nil
}

func firstRaw(values ...rawValue) *float64 {
	for _, v := range values {
		if v.Raw != nil {
			return v.Raw
		}
	}
	return nil
}
