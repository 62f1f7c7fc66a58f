package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"intrinsicvalue/internal/config"
)

const wikipediaPage = `<html><body>
<table class="wikitable sortable" id="constituents"><tbody>
<tr><th>Symbol</th><th>Security</th><th>GICS Sector</th><th>GICS Sub-Industry</th><th>Headquarters Location</th><th>Date added</th></tr>
<tr><td>ACME</td><td>Acme Corporation<sup class="reference">[1]</sup></td><td>Industrials</td><td>Industrial Machinery</td><td>Phoenix, Arizona</td><td>1999-01-01</td></tr>
<tr><td>MSFT</td><td>Microsoft</td><td>Information Technology</td><td>Systems Software</td><td>Redmond, Washington</td><td>1994-06-01</td></tr>
<tr><td>AAPL</td><td>Apple Inc.</td><td>Information Technology</td><td>Technology Hardware, Storage &amp; Peripherals</td><td>Cupertino, California</td><td>1982-11-30</td></tr>
</tbody></table></body></html>`

const yahooBondsPage = `<html><body><table>
<tr><th>Symbol</th><th>Name</th><th>Last Price</th></tr>
<tr><td>^TNX</td><td>Treasury Yield 10 Years</td><td>4.000</td></tr>
</table></body></html>`

// upstreams is a set of fake Wikipedia, Yahoo and AlphaVantage servers
type upstreams struct {
	wikipedia    *httptest.Server
	bonds        *httptest.Server
	yahoo        *httptest.Server
	alphavantage *httptest.Server
}

func timeseriesJSON(types string) string {
	point := func(date string, v float64) string {
		return fmt.Sprintf(`{"asOfDate":%q,"reportedValue":{"raw":%v}}`, date, v)
	}
	series := func(typ string, points ...string) string {
		return fmt.Sprintf(`{"meta":{"type":[%q]},%q:[%s]}`, typ, typ, strings.Join(points, ","))
	}

	var results []string
	if strings.Contains(types, "annualTotalDebt") {
		results = append(results,
			series("annualTotalDebt", point("2023-12-31", 250000)),
			series("annualCashCashEquivalentsAndShortTermInvestments", point("2023-12-31", 50000)))
	}
	if strings.Contains(types, "annualTaxProvision") {
		results = append(results,
			series("annualInterestExpenseNonOperating", point("2023-12-31", 10000)),
			series("annualTaxProvision", point("2023-12-31", 21000)),
			series("annualPretaxIncome", point("2023-12-31", 100000)))
	}
	if strings.Contains(types, "annualFreeCashFlow") {
		results = append(results, series("annualFreeCashFlow",
			point("2021-12-31", 100000), point("2022-12-31", 90000), point("2023-12-31", 120000)))
	}
	return fmt.Sprintf(`{"timeseries":{"result":[%s],"error":null}}`, strings.Join(results, ","))
}

var alphavantageResponses = map[string]string{
	"OVERVIEW":         `{"Symbol":"ACME","Beta":"1.2","MarketCapitalization":"1000000","SharesOutstanding":"1000"}`,
	"BALANCE_SHEET":    `{"annualReports":[{"fiscalDateEnding":"2023-12-31","shortLongTermDebtTotal":"250000","cashAndShortTermInvestments":"50000"}]}`,
	"INCOME_STATEMENT": `{"annualReports":[{"fiscalDateEnding":"2023-12-31","interestExpense":"10000","incomeTaxExpense":"21000","incomeBeforeTax":"100000"}]}`,
	"CASH_FLOW": `{"annualReports":[
		{"fiscalDateEnding":"2023-12-31","operatingCashflow":"150000","capitalExpenditures":"30000"},
		{"fiscalDateEnding":"2022-12-31","operatingCashflow":"100000","capitalExpenditures":"10000"},
		{"fiscalDateEnding":"2021-12-31","operatingCashflow":"110000","capitalExpenditures":"10000"}]}`,
	"GLOBAL_QUOTE": `{"Global Quote":{"01. symbol":"ACME","05. price":"500.00"}}`,
}

func newUpstreams(t *testing.T, bondsStatus int) *upstreams {
	t.Helper()

	html := func(status int, body string) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(status)
			w.Write([]byte(body))
		}))
	}

	yahooMux := http.NewServeMux()
	yahooMux.HandleFunc("/cookie", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "A3", Value: "s", Path: "/"})
		w.WriteHeader(http.StatusNotFound)
	})
	yahooMux.HandleFunc("/v1/test/getcrumb", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("abc123"))
	})
	yahooMux.HandleFunc("/v10/finance/quoteSummary/ACME", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"quoteSummary":{"result":[{"summaryDetail":{"beta":{"raw":1.2}},
			"defaultKeyStatistics":{"sharesOutstanding":{"raw":1000}},
			"price":{"marketCap":{"raw":1000000},"regularMarketPrice":{"raw":500}}}],"error":null}}`))
	})
	yahooMux.HandleFunc("/ws/fundamentals-timeseries/v1/finance/timeseries/ACME", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(timeseriesJSON(r.URL.Query().Get("type"))))
	})

	u := &upstreams{
		wikipedia: html(http.StatusOK, wikipediaPage),
		bonds:     html(bondsStatus, yahooBondsPage),
		yahoo:     httptest.NewServer(yahooMux),
		alphavantage: httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(alphavantageResponses[r.URL.Query().Get("function")]))
		})),
	}
	t.Cleanup(func() {
		u.wikipedia.Close()
		u.bonds.Close()
		u.yahoo.Close()
		u.alphavantage.Close()
	})
	return u
}

func (u *upstreams) config(provider string) *config.Config {
	return &config.Config{
		ListenAddr:           ":0",
		RequestTimeout:       10 * time.Second,
		HTTPTimeout:          5 * time.Second,
		FundamentalsProvider: provider,
		ConstituentsURL:      u.wikipedia.URL,
		BondsURL:             u.bonds.URL,
		YahooBaseURL:         u.yahoo.URL,
		YahooCookieURL:       u.yahoo.URL + "/cookie",
		AlphavantageAPIKey:   "test_key",
		AlphavantageBaseURL:  u.alphavantage.URL,
		ExpectedMarketReturn: 0.08,
		PerpetualGrowthRate:  0.02,
		SampleSize:           2,
	}
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

type valuationReport struct {
	Symbol         string `json:"symbol"`
	Found          bool   `json:"found"`
	IntrinsicValue string `json:"intrinsic_value"`
	CurrentPrice   string `json:"current_price"`
	Status         string `json:"status"`
	ErrorKind      string `json:"error_kind"`
	Info           struct {
		Security string `json:"security"`
	} `json:"info"`
	Valuation struct {
		RiskFreeRate float64 `json:"risk_free_rate"`
		WACC         float64 `json:"wacc"`
		Projection   []struct {
			Year int `json:"year"`
		} `json:"projection"`
	} `json:"valuation"`
}

// TestIntegration_Providers values the same company through each fundamentals
// provider and expects identical results
func TestIntegration_Providers(t *testing.T) {
	for _, provider := range []string{config.ProviderYahoo, config.ProviderAlphaVantage} {
		t.Run(provider, func(t *testing.T) {
			u := newUpstreams(t, http.StatusOK)

			srv, err := newServer(context.Background(), u.config(provider), zerolog.Nop())
			if err != nil {
				t.Fatalf("newServer() returned unexpected error: %v", err)
			}

			rec := get(t, srv.Handler(), "/api/valuations/acme")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
			}

			var report valuationReport
			if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
				t.Fatalf("failed to decode report: %v", err)
			}

			tests := []struct {
				name string
				got  string
				want string
			}{
				{"Symbol", report.Symbol, "ACME"},
				{"Security", report.Info.Security, "Acme Corporation"},
				{"IntrinsicValue", report.IntrinsicValue, "1042.3"},
				{"CurrentPrice", report.CurrentPrice, "500"},
				{"Status", report.Status, "Underpriced"},
			}
			for _, tt := range tests {
				if tt.got != tt.want {
					t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
				}
			}

			if report.Valuation.RiskFreeRate != 0.04 {
				t.Errorf("RiskFreeRate = %v, want 0.04", report.Valuation.RiskFreeRate)
			}
			if got := len(report.Valuation.Projection); got != 5 {
				t.Errorf("len(Projection) = %d, want 5", got)
			}
		})
	}
}

func TestIntegration_Page(t *testing.T) {
	u := newUpstreams(t, http.StatusOK)
	srv, err := newServer(context.Background(), u.config(config.ProviderYahoo), zerolog.Nop())
	if err != nil {
		t.Fatalf("newServer() returned unexpected error: %v", err)
	}

	form := url.Values{"ticker": {"ACME"}}.Encode()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"<dd>Acme Corporation</dd>",
		"<dt>The intrinsic value of the stock is</dt><dd>1042.30</dd>",
		"<dt>Current Price</dt><dd>500.00</dd>",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestIntegration_BondsPageDown(t *testing.T) {
	u := newUpstreams(t, http.StatusServiceUnavailable)
	srv, err := newServer(context.Background(), u.config(config.ProviderYahoo), zerolog.Nop())
	if err != nil {
		t.Fatalf("newServer() returned unexpected error: %v", err)
	}

	rec := get(t, srv.Handler(), "/api/valuations/ACME")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}

	var report valuationReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("failed to decode report: %v", err)
	}
	if report.ErrorKind != "provider_unavailable" {
		t.Errorf("ErrorKind = %q, want provider_unavailable", report.ErrorKind)
	}
	if !report.Found {
		t.Error("Found = false, want true: the ticker resolved before the fetch failed")
	}
}

func TestIntegration_UnknownTicker(t *testing.T) {
	u := newUpstreams(t, http.StatusOK)
	srv, err := newServer(context.Background(), u.config(config.ProviderYahoo), zerolog.Nop())
	if err != nil {
		t.Fatalf("newServer() returned unexpected error: %v", err)
	}

	rec := get(t, srv.Handler(), "/api/valuations/ZZZZ")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}

	rec = get(t, srv.Handler(), "/api/constituents/sample")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"constituents"`) {
		t.Errorf("sample status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestIntegration_ConstituentsUnavailable(t *testing.T) {
	u := newUpstreams(t, http.StatusOK)
	cfg := u.config(config.ProviderYahoo)
	u.wikipedia.Close()

	_, err := newServer(context.Background(), cfg, zerolog.Nop())
	if err == nil {
		t.Fatal("newServer() expected error when constituents cannot be loaded, got nil")
	}
	if !strings.Contains(err.Error(), "failed to load index constituents") {
		t.Errorf("newServer() error = %q", err.Error())
	}
}
