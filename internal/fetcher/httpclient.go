package fetcher

import (
	"time"

	"resty.dev/v3"
)

const (
	// DefaultTimeout applies when the caller passes a zero timeout
	DefaultTimeout = 30 * time.Second

	// userAgent is sent on every request; the HTML sources reject Go's default agent
	userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// NewHTTPClient creates an HTTP client for one upstream. Failed requests are
// never retried: a failure is reported once to whoever triggered the fetch.
func NewHTTPClient(baseURL string, timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", userAgent)

	if baseURL != "" {
		client.SetBaseURL(baseURL)
	}

	return client
}
