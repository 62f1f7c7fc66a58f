// Package yahoo reads market data from Yahoo Finance: the 10-year Treasury
// yield from the bonds page and per-ticker fundamentals from the JSON APIs.
package yahoo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"resty.dev/v3"

	"intrinsicvalue/internal/fetcher"
	"intrinsicvalue/internal/ratelimit"
)

const (
	// DefaultBaseURL is the Yahoo Finance JSON API host
	DefaultBaseURL = "https://query2.finance.yahoo.com"
	// DefaultCookieURL issues the session cookie the crumb is bound to
	DefaultCookieURL = "https://fc.yahoo.com"

	crumbPath = "/v1/test/getcrumb"
)

// Config holds the endpoints and timeout of a Client
type Config struct {
	BaseURL   string
	CookieURL string
	Timeout   time.Duration
}

// Client is a Yahoo Finance JSON API client. The APIs require a session
// cookie plus a matching crumb query parameter; both are obtained lazily and
// refreshed when Yahoo rejects them.
type Client struct {
	cookieURL string
	client    *resty.Client
	limiter   *ratelimit.Limiter
	log       zerolog.Logger

	mu    sync.Mutex
	crumb string
}

// NewClient creates a new Yahoo Finance client
func NewClient(cfg Config, limiter *ratelimit.Limiter, log zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.CookieURL == "" {
		cfg.CookieURL = DefaultCookieURL
	}

	client := fetcher.NewHTTPClient(cfg.BaseURL, cfg.Timeout).
		SetHeader("Accept", "application/json")
	// cookiejar.New only fails on a bad PublicSuffixList
	jar, _ := cookiejar.New(nil)
	client.SetCookieJar(jar)

	return &Client{
		cookieURL: cfg.CookieURL,
		client:    client,
		limiter:   limiter,
		log:       log.With().Str("client", "yahoo").Logger(),
	}
}

// sessionCrumb returns the cached crumb, fetching a cookie and crumb first if needed
func (c *Client) sessionCrumb(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.crumb != "" {
		return c.crumb, nil
	}

	if err := c.limiter.Wait(ctx, ratelimit.APIYahoo); err != nil {
		return "", fetcher.FromTransport(err)
	}

	// The cookie endpoint answers with an error status but still sets the cookie
	if _, err := c.client.R().SetContext(ctx).Get(c.cookieURL); err != nil {
		return "", fmt.Errorf("failed to obtain yahoo session cookie: %w", fetcher.FromTransport(err))
	}

	if err := c.limiter.Wait(ctx, ratelimit.APIYahoo); err != nil {
		return "", fetcher.FromTransport(err)
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Accept", "text/plain").
		Get(crumbPath)
	if err != nil {
		return "", fmt.Errorf("failed to obtain yahoo crumb: %w", fetcher.FromTransport(err))
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("yahoo crumb request returned status %d: %w", resp.StatusCode(), fetcher.ClassifyHTTPError(resp.StatusCode()))
	}

	crumb := strings.TrimSpace(resp.String())
	if crumb == "" || strings.ContainsAny(crumb, "<> \n") {
		return "", fetcher.NewValidationError("yahoo returned an invalid crumb")
	}

	c.log.Debug().Msg("obtained yahoo crumb")
	c.crumb = crumb
	return crumb, nil
}

func (c *Client) resetCrumb() {
	c.mu.Lock()
	c.crumb = ""
	c.mu.Unlock()
}

// get issues an authenticated GET and decodes the JSON body into result.
// An unauthorized answer drops the crumb and is retried once with a fresh one.
func (c *Client) get(ctx context.Context, path string, params map[string]string, result any) error {
	for attempt := 0; ; attempt++ {
		crumb, err := c.sessionCrumb(ctx)
		if err != nil {
			return err
		}

		if err := c.limiter.Wait(ctx, ratelimit.APIYahoo); err != nil {
			return fetcher.FromTransport(err)
		}

		resp, err := c.client.R().
			SetContext(ctx).
			SetQueryParams(params).
			SetQueryParam("crumb", crumb).
			SetResult(result).
			Get(path)
		if err != nil {
			c.log.Debug().Err(err).Str("path", path).Msg("yahoo request failed")
			return fetcher.FromTransport(err)
		}

		status := resp.StatusCode()
		if (status == http.StatusUnauthorized || status == http.StatusForbidden) && attempt == 0 {
			c.log.Debug().Int("status", status).Msg("yahoo rejected crumb, refreshing session")
			c.resetCrumb()
			continue
		}
		if !resp.IsSuccess() {
			return fetcher.ClassifyHTTPError(status)
		}
		return nil
	}
}

// toYahooSymbol converts an index ticker to Yahoo's notation (BRK.B -> BRK-B)
func toYahooSymbol(symbol string) string {
	return strings.ReplaceAll(symbol, ".", "-")
}
