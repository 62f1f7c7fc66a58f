// Package alphavantage reads quotes and annual fundamentals from the
// AlphaVantage query API.
package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"resty.dev/v3"

	"intrinsicvalue/internal/fetcher"
	"intrinsicvalue/internal/ratelimit"
)

// DefaultBaseURL is the AlphaVantage query endpoint
const DefaultBaseURL = "https://www.alphavantage.co/query"

// envelope holds the informational fields AlphaVantage returns with a 200
// status instead of data
type envelope struct {
	Note         string `json:"Note"`
	Information  string `json:"Information"`
	ErrorMessage string `json:"Error Message"`
}

// Client is an AlphaVantage API client
type Client struct {
	apiKey  string
	client  *resty.Client
	limiter *ratelimit.Limiter
	log     zerolog.Logger
}

// NewClient creates a new AlphaVantage client
func NewClient(apiKey, baseURL string, timeout time.Duration, limiter *ratelimit.Limiter, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		apiKey:  apiKey,
		client:  fetcher.NewHTTPClient(baseURL, timeout).SetHeader("Accept", "application/json"),
		limiter: limiter,
		log:     log.With().Str("client", "alphavantage").Logger(),
	}
}

// query calls one API function for symbol and decodes the body into result
func (c *Client) query(ctx context.Context, function, symbol string, result any) error {
	if err := c.limiter.Wait(ctx, ratelimit.APIAlphaVantage); err != nil {
		return fetcher.FromTransport(err)
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"apikey":   c.apiKey,
			"function": function,
			"symbol":   symbol,
		}).
		Get("")

	if err != nil {
		c.log.Debug().Err(err).Str("function", function).Str("symbol", symbol).Msg("request failed")
		return fetcher.FromTransport(err)
	}

	if !resp.IsSuccess() {
		return fmt.Errorf("alphavantage API returned status %d: %w", resp.StatusCode(), fetcher.ClassifyHTTPError(resp.StatusCode()))
	}

	body := []byte(resp.String())

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fetcher.NewValidationError(fmt.Sprintf("malformed %s response for %s: %v", function, symbol, err))
	}
	switch {
	case env.Note != "" || env.Information != "":
		c.log.Warn().Str("function", function).Msg("alphavantage call frequency exceeded")
		return fetcher.NewRateLimitError(resp.StatusCode())
	case env.ErrorMessage != "":
		return fetcher.NewClientError(resp.StatusCode(), env.ErrorMessage)
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fetcher.NewValidationError(fmt.Sprintf("malformed %s response for %s: %v", function, symbol, err))
	}
	return nil
}

// parseAmount parses an AlphaVantage numeric string. "None", "-" and the
// empty string mean the value was not reported.
func parseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	switch s {
	case "", "None", "-":
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func amountPtr(s string) *float64 {
	v, ok := parseAmount(s)
	if !ok {
		return nil
	}
	return &v
}
