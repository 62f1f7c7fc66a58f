// Package coordinator runs one user confirmation: it describes the chosen
// company, values it and renders the outcome onto a Display.
package coordinator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"intrinsicvalue/internal/directory"
	"intrinsicvalue/internal/fetcher"
	"intrinsicvalue/internal/refdata"
	"intrinsicvalue/internal/valuation"
)

// Display labels
const (
	LabelName           = "Corporation Name"
	LabelSector         = "Sector"
	LabelSubIndustry    = "Sub-Industry"
	LabelHeadquarters   = "Headquarters"
	LabelIntrinsicValue = "The intrinsic value of the stock is"
	LabelCurrentPrice   = "Current Price"
	LabelValuation      = "Valuation"
	LabelError          = "Error"
)

// DefaultSampleSize is the number of constituents shown when none is configured
const DefaultSampleSize = 5

// Display is the user-facing surface a confirmation renders onto
type Display interface {
	ShowSample(records []refdata.Constituent)
	ShowText(label, value string)
}

// Valuer computes the intrinsic value of an index constituent
type Valuer interface {
	Run(ctx context.Context, symbol string) (*valuation.Result, error)
}

// Coordinator ties the directory and the valuation pipeline together
type Coordinator struct {
	directory  *directory.Directory
	valuer     Valuer
	sampleSize int
	log        zerolog.Logger
}

// New creates a new Coordinator. A non-positive sampleSize selects DefaultSampleSize.
func New(dir *directory.Directory, valuer Valuer, sampleSize int, log zerolog.Logger) *Coordinator {
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	return &Coordinator{
		directory:  dir,
		valuer:     valuer,
		sampleSize: sampleSize,
		log:        log.With().Str("component", "coordinator").Logger(),
	}
}

// Normalize turns raw user input into a ticker symbol
func Normalize(input string) string {
	return strings.ToUpper(strings.TrimSpace(input))
}

// Sample returns n random constituents; n <= 0 uses the configured sample size
func (c *Coordinator) Sample(n int) []refdata.Constituent {
	if n <= 0 {
		n = c.sampleSize
	}
	return c.directory.Sample(n, nil)
}

// ShowSample renders a random constituent sample onto d
func (c *Coordinator) ShowSample(d Display) {
	d.ShowSample(c.Sample(0))
}

// Describe returns the metadata of the ticker in input without valuing it
func (c *Coordinator) Describe(input string) (directory.Info, error) {
	return c.directory.Lookup(Normalize(input))
}

// Run describes and values the ticker in input. The returned Report is never
// nil; when the valuation fails it carries the error kind and message and the
// error is returned as well.
func (c *Coordinator) Run(ctx context.Context, input string) (*Report, error) {
	start := time.Now()
	symbol := Normalize(input)

	report := &Report{
		RunID:  uuid.NewString(),
		Symbol: symbol,
	}
	log := c.log.With().Str("run_id", report.RunID).Str("symbol", symbol).Logger()

	info, err := c.directory.Lookup(symbol)
	report.Info = info
	if err != nil {
		report.fail(err)
		log.Info().Err(err).Msg("ticker not in index")
		return report, err
	}
	report.Found = true

	res, err := c.valuer.Run(ctx, symbol)
	if err != nil {
		report.fail(err)
		log.Warn().Err(err).Str("kind", string(report.ErrorKind)).Msg("valuation failed")
		return report, err
	}
	report.succeed(res)

	ev := log.Info().
		Str("intrinsic_value", report.IntrinsicValue.StringFixed(2)).
		Dur("duration", time.Since(start))
	if report.CurrentPrice != nil {
		ev = ev.Str("current_price", report.CurrentPrice.StringFixed(2)).Str("status", string(report.Status))
	}
	ev.Msg("valuation complete")

	return report, nil
}

// Confirm runs the ticker in input and renders the report onto d. The
// company metadata is always shown, with placeholders for unknown tickers.
func (c *Coordinator) Confirm(ctx context.Context, input string, d Display) error {
	report, err := c.Run(ctx, input)
	report.Render(d)
	return err
}

// ErrorKind classifies why a confirmation failed
type ErrorKind string

const (
	KindNotFound            ErrorKind = "not_found"
	KindDataUnavailable     ErrorKind = "data_unavailable"
	KindDegenerateMath      ErrorKind = "degenerate_math"
	KindProviderUnavailable ErrorKind = "provider_unavailable"
	KindInternal            ErrorKind = "internal"
)

// Kind maps an error from Run to its ErrorKind. A nil error has no kind.
func Kind(err error) ErrorKind {
	if err == nil {
		return ""
	}

	if errors.Is(err, directory.ErrNotFound) || errors.Is(err, directory.ErrOutOfRange) {
		return KindNotFound
	}
	if errors.Is(err, valuation.ErrDegenerateMath) {
		return KindDegenerateMath
	}

	var fe *fetcher.FetchError
	if errors.As(err, &fe) {
		if fe.ProviderUnavailable() {
			return KindProviderUnavailable
		}
		return KindDataUnavailable
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindProviderUnavailable
	}

	return KindInternal
}

// Status compares the intrinsic value with the market price
type Status string

const (
	StatusUnderpriced Status = "Underpriced"
	StatusOverpriced  Status = "Overpriced"
	StatusFair        Status = "Fairly priced"
)

// Report is everything one confirmation produced
type Report struct {
	RunID          string            `json:"run_id"`
	Symbol         string            `json:"symbol"`
	Found          bool              `json:"found"`
	Info           directory.Info    `json:"info"`
	Valuation      *valuation.Result `json:"valuation,omitempty"`
	IntrinsicValue *decimal.Decimal  `json:"intrinsic_value,omitempty"`
	CurrentPrice   *decimal.Decimal  `json:"current_price,omitempty"`
	Status         Status            `json:"status,omitempty"`
	ErrorKind      ErrorKind         `json:"error_kind,omitempty"`
	Error          string            `json:"error,omitempty"`
}

func (r *Report) fail(err error) {
	r.ErrorKind = Kind(err)
	r.Error = err.Error()
}

func (r *Report) succeed(res *valuation.Result) {
	r.Valuation = res

	iv := decimal.NewFromFloat(res.IntrinsicValue).Round(2)
	r.IntrinsicValue = &iv

	if res.CurrentPrice == nil {
		return
	}
	price := decimal.NewFromFloat(*res.CurrentPrice).Round(2)
	r.CurrentPrice = &price

	switch iv.Cmp(price) {
	case 1:
		r.Status = StatusUnderpriced
	case -1:
		r.Status = StatusOverpriced
	default:
		r.Status = StatusFair
	}
}

// Render writes the report onto d, one labelled line at a time
func (r *Report) Render(d Display) {
	d.ShowText(LabelName, r.Info.Security)
	d.ShowText(LabelSector, r.Info.Sector)
	d.ShowText(LabelSubIndustry, r.Info.SubIndustry)
	d.ShowText(LabelHeadquarters, r.Info.Headquarters)

	if r.Error != "" {
		d.ShowText(LabelError, r.Error)
		return
	}

	d.ShowText(LabelIntrinsicValue, r.IntrinsicValue.StringFixed(2))
	if r.CurrentPrice != nil {
		d.ShowText(LabelCurrentPrice, r.CurrentPrice.StringFixed(2))
		d.ShowText(LabelValuation, string(r.Status))
	}
}
