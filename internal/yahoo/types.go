package yahoo

import "encoding/json"

// apiError is the error object embedded in Yahoo JSON envelopes
type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// rawValue is Yahoo's {"raw": 1.23, "fmt": "1.23"} number wrapper.
// Missing values arrive as {} and leave Raw nil.
type rawValue struct {
	Raw *float64 `json:"raw"`
}

// quoteSummaryResponse represents the quoteSummary API response for the
// summaryDetail, defaultKeyStatistics and price modules
type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			SummaryDetail struct {
				Beta      rawValue `json:"beta"`
				MarketCap rawValue `json:"marketCap"`
			} `json:"summaryDetail"`
			DefaultKeyStatistics struct {
				Beta              rawValue `json:"beta"`
				SharesOutstanding rawValue `json:"sharesOutstanding"`
			} `json:"defaultKeyStatistics"`
			Price struct {
				MarketCap          rawValue `json:"marketCap"`
				RegularMarketPrice rawValue `json:"regularMarketPrice"`
			} `json:"price"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"quoteSummary"`
}

// timeseriesResponse represents the fundamentals-timeseries API response.
// Each result carries its type name in meta and its data points under a key
// equal to that type name, so results are decoded in two passes.
type timeseriesResponse struct {
	Timeseries struct {
		Result []json.RawMessage `json:"result"`
		Error  *apiError         `json:"error"`
	} `json:"timeseries"`
}

type timeseriesMeta struct {
	Meta struct {
		Symbol []string `json:"symbol"`
		Type   []string `json:"type"`
	} `json:"meta"`
}

type timeseriesPoint struct {
	AsOfDate      string   `json:"asOfDate"`
	PeriodType    string   `json:"periodType"`
	CurrencyCode  string   `json:"currencyCode"`
	ReportedValue rawValue `json:"reportedValue"`
}
