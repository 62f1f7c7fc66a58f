package alphavantage

import (
	"context"
	"fmt"
	"strconv"

	"intrinsicvalue/internal/fetcher"
)

// GlobalQuoteResponse represents the AlphaVantage API response for stock quotes
type GlobalQuoteResponse struct {
	GlobalQuote struct {
		Symbol           string `json:"01. symbol"`
		Open             string `json:"02. open"`
		High             string `json:"03. high"`
		Low              string `json:"04. low"`
		Price            string `json:"05. price"`
		Volume           string `json:"06. volume"`
		LatestTradingDay string `json:"07. latest trading day"`
		PreviousClose    string `json:"08. previous close"`
		Change           string `json:"09. change"`
		ChangePercent    string `json:"10. change percent"`
	} `json:"Global Quote"`
}

// StockFetcher fetches the latest stock price of one ticker from AlphaVantage
type StockFetcher struct {
	client *Client
	ticker string
}

// NewStockFetcher creates a new stock price fetcher
func NewStockFetcher(client *Client, ticker string) *StockFetcher {
	return &StockFetcher{
		client: client,
		ticker: ticker,
	}
}

// Fetch retrieves the current stock price
func (f *StockFetcher) Fetch(ctx context.Context) (float64, error) {
	return f.client.Price(ctx, f.ticker)
}

// Key returns the key for this fetcher
func (f *StockFetcher) Key() string {
	return fmt.Sprintf("fetcher:alphavantage:%s", f.ticker)
}

// Price retrieves the latest traded price of symbol
func (c *Client) Price(ctx context.Context, symbol string) (float64, error) {
	var result GlobalQuoteResponse
	if err := c.query(ctx, "GLOBAL_QUOTE", symbol, &result); err != nil {
		return 0, fmt.Errorf("failed to fetch stock price for %s: %w", symbol, err)
	}

	if result.GlobalQuote.Price == "" {
		return 0, fetcher.NewValidationError(fmt.Sprintf("price not found in response for %s", symbol))
	}

	price, err := strconv.ParseFloat(result.GlobalQuote.Price, 64)
	if err != nil {
		return 0, fetcher.NewValidationError(fmt.Sprintf("failed to parse stock price %q", result.GlobalQuote.Price))
	}

	return price, nil
}
