package wikipedia

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"resty.dev/v3"

	"intrinsicvalue/internal/fetcher"
	"intrinsicvalue/internal/htmltable"
	"intrinsicvalue/internal/ratelimit"
	"intrinsicvalue/internal/refdata"
)

// DefaultURL is the S&P 500 constituents list
const DefaultURL = "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies"

// Column headers of the constituents table
const (
	colSymbol       = "Symbol"
	colSecurity     = "Security"
	colSector       = "GICS Sector"
	colSubIndustry  = "GICS Sub-Industry"
	colHeadquarters = "Headquarters Location"
)

// ConstituentsFetcher reads the index membership table from Wikipedia
type ConstituentsFetcher struct {
	url     string
	client  *resty.Client
	limiter *ratelimit.Limiter
	log     zerolog.Logger
}

// NewConstituentsFetcher creates a new constituents fetcher
func NewConstituentsFetcher(url string, timeout time.Duration, limiter *ratelimit.Limiter, log zerolog.Logger) *ConstituentsFetcher {
	return &ConstituentsFetcher{
		url:     url,
		client:  fetcher.NewHTTPClient("", timeout).SetHeader("Accept", "text/html"),
		limiter: limiter,
		log:     log.With().Str("client", "wikipedia").Logger(),
	}
}

// Constituents fetches and parses the first table carrying the constituent columns
func (f *ConstituentsFetcher) Constituents(ctx context.Context) (*refdata.ReferenceData, error) {
	if err := f.limiter.Wait(ctx, ratelimit.APIWikipedia); err != nil {
		return nil, fetcher.FromTransport(err)
	}

	resp, err := f.client.R().
		SetContext(ctx).
		Get(f.url)

	if err != nil {
		f.log.Debug().Err(err).Str("url", f.url).Msg("constituents request failed")
		return nil, fmt.Errorf("failed to fetch constituents: %w", fetcher.FromTransport(err))
	}

	if !resp.IsSuccess() {
		return nil, fmt.Errorf("wikipedia returned status %d: %w", resp.StatusCode(), fetcher.ClassifyHTTPError(resp.StatusCode()))
	}

	tables, err := htmltable.Parse(strings.NewReader(resp.String()))
	if err != nil {
		return nil, fetcher.NewValidationError(err.Error())
	}

	table, ok := htmltable.Find(tables, colSymbol, colSecurity, colSector, colSubIndustry, colHeadquarters)
	if !ok {
		return nil, fetcher.NewValidationError("constituents table not found in page")
	}

	data := &refdata.ReferenceData{
		Constituents: make([]refdata.Constituent, 0, len(table.Rows)),
	}
	for _, row := range table.Rows {
		symbol := table.Cell(row, colSymbol)
		if symbol == "" {
			continue
		}
		data.Constituents = append(data.Constituents, refdata.Constituent{
			Symbol:       symbol,
			Name:         table.Cell(row, colSecurity),
			Sector:       table.Cell(row, colSector),
			SubIndustry:  table.Cell(row, colSubIndustry),
			Headquarters: table.Cell(row, colHeadquarters),
		})
	}

	if len(data.Constituents) == 0 {
		return nil, fetcher.NewValidationError("constituents table is empty")
	}

	f.log.Info().Int("constituents", len(data.Constituents)).Msg("loaded index constituents")
	return data, nil
}
