package yahoo

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"resty.dev/v3"

	"intrinsicvalue/internal/fetcher"
	"intrinsicvalue/internal/htmltable"
	"intrinsicvalue/internal/ratelimit"
)

// DefaultBondsURL is the Yahoo Finance bonds overview page
const DefaultBondsURL = "https://finance.yahoo.com/bonds"

const (
	bondsNameColumn  = "Name"
	bondsPriceColumn = "Last Price"
	treasury10Y      = "Treasury Yield 10 Years"
)

// RiskFreeRateFetcher reads the 10-year Treasury yield from the bonds page
// and returns it as a fraction.
type RiskFreeRateFetcher struct {
	url     string
	client  *resty.Client
	limiter *ratelimit.Limiter
	log     zerolog.Logger
}

// NewRiskFreeRateFetcher creates a new risk-free rate fetcher
func NewRiskFreeRateFetcher(url string, timeout time.Duration, limiter *ratelimit.Limiter, log zerolog.Logger) *RiskFreeRateFetcher {
	return &RiskFreeRateFetcher{
		url:     url,
		client:  fetcher.NewHTTPClient("", timeout).SetHeader("Accept", "text/html"),
		limiter: limiter,
		log:     log.With().Str("client", "yahoo_bonds").Logger(),
	}
}

// Fetch retrieves the current 10-year Treasury yield divided by 100
func (f *RiskFreeRateFetcher) Fetch(ctx context.Context) (float64, error) {
	if err := f.limiter.Wait(ctx, ratelimit.APIYahoo); err != nil {
		return 0, fetcher.FromTransport(err)
	}

	resp, err := f.client.R().
		SetContext(ctx).
		Get(f.url)

	if err != nil {
		f.log.Debug().Err(err).Msg("bonds page request failed")
		return 0, fmt.Errorf("failed to fetch bonds page: %w", fetcher.FromTransport(err))
	}

	if !resp.IsSuccess() {
		return 0, fmt.Errorf("yahoo bonds page returned status %d: %w", resp.StatusCode(), fetcher.ClassifyHTTPError(resp.StatusCode()))
	}

	tables, err := htmltable.Parse(strings.NewReader(resp.String()))
	if err != nil {
		return 0, fetcher.NewValidationError(err.Error())
	}

	table, ok := htmltable.Find(tables, bondsNameColumn, bondsPriceColumn)
	if !ok {
		return 0, fetcher.NewValidationError("bond yield table not found in page")
	}

	for _, row := range table.Rows {
		if table.Cell(row, bondsNameColumn) != treasury10Y {
			continue
		}

		raw := table.Cell(row, bondsPriceColumn)
		yield, err := parseNumber(raw)
		if err != nil {
			return 0, fetcher.NewValidationError(fmt.Sprintf("failed to parse %s yield %q", treasury10Y, raw))
		}
		return yield / 100, nil
	}

	return 0, fetcher.NewDataUnavailableError(fmt.Sprintf("%q not listed on bonds page", treasury10Y))
}

// Key returns the key for this fetcher
func (f *RiskFreeRateFetcher) Key() string {
	return "fetcher:yahoo:treasury_yield_10y"
}

func parseNumber(s string) (float64, error) {
	cleaned := strings.NewReplacer(",", "", "%", "", "+", "").Replace(strings.TrimSpace(s))
	if cleaned == "" || cleaned == "-" || cleaned == "--" || cleaned == "N/A" {
		return 0, fmt.Errorf("no value")
	}
	return strconv.ParseFloat(cleaned, 64)
}
