// Package refdata holds the reference data the valuation runs on: the index
// constituent table and per-ticker financial statement snapshots.
package refdata

import (
	"context"
)

// Balance sheet, income statement and cash flow line items. The spelling is
// the providers' row label and must not be changed.
const (
	TotalDebt          = "Total Debt"
	CashAndInvestments = "Cash Cash Equivalents And Short Term Investments"
	InterestExpense    = "Interest Expense Non Operating"
	TaxProvision       = "Tax Provision"
	PretaxIncome       = "Pretax Income"
	FreeCashFlow       = "Free Cash Flow"
)

// Constituent is one row of the index membership table
type Constituent struct {
	Symbol       string `json:"symbol"`
	Name         string `json:"name"`
	Sector       string `json:"sector"`
	SubIndustry  string `json:"sub_industry"`
	Headquarters string `json:"headquarters"`
}

// ReferenceData is the constituent table fetched once per session
type ReferenceData struct {
	Constituents []Constituent
}

// Profile holds point-in-time descriptive fields for a ticker.
// Nil means the provider did not report the field.
type Profile struct {
	Beta              *float64
	MarketCap         *float64
	SharesOutstanding *float64
	CurrentPrice      *float64
}

// Snapshot is everything fetched for one ticker during one valuation
type Snapshot struct {
	Symbol          string
	Profile         Profile
	BalanceSheet    *Statement
	IncomeStatement *Statement
	CashFlow        *Statement
}

// ConstituentSource supplies the index membership table
type ConstituentSource interface {
	Constituents(ctx context.Context) (*ReferenceData, error)
}

// FundamentalsSource supplies a fresh Snapshot for a ticker
type FundamentalsSource interface {
	Snapshot(ctx context.Context, symbol string) (*Snapshot, error)
}

// Float returns a pointer to v, for building Profiles
func Float(v float64) *float64 {
	return &v
}
