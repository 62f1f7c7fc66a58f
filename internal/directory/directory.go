// Package directory resolves ticker symbols against the index constituent
// table and describes the company behind them.
package directory

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"intrinsicvalue/internal/fetcher"
	"intrinsicvalue/internal/refdata"
)

// InvalidTicker is shown in every field of the placeholder Info
const InvalidTicker = "Enter a valid ticker!"

var (
	// ErrNotFound is returned when a symbol is not an index constituent
	ErrNotFound = errors.New("ticker not found")
	// ErrOutOfRange is returned when a position is outside the table
	ErrOutOfRange = errors.New("position out of range")
)

// Position is a row of the constituent table, or NotFound.
type Position struct {
	index int
	found bool
}

// NotFound is the Position of a symbol that is not in the table
var NotFound = Position{}

// At returns the Position of row i. It does not check the table bounds.
func At(i int) Position {
	return Position{index: i, found: true}
}

// Found reports whether the position refers to a row
func (p Position) Found() bool { return p.found }

// Index returns the row index; it is meaningless when !Found()
func (p Position) Index() int { return p.index }

// Info is the descriptive metadata shown for a company
type Info struct {
	Security     string `json:"security"`
	Sector       string `json:"sector"`
	SubIndustry  string `json:"sub_industry"`
	Headquarters string `json:"headquarters"`
}

// Placeholder is the Info returned for unknown tickers
var Placeholder = Info{
	Security:     InvalidTicker,
	Sector:       InvalidTicker,
	SubIndustry:  InvalidTicker,
	Headquarters: InvalidTicker,
}

// Directory looks tickers up in a constituent table
type Directory struct {
	rows []refdata.Constituent
}

// New creates a directory over the given reference data
func New(data *refdata.ReferenceData) *Directory {
	d := &Directory{}
	if data != nil {
		d.rows = data.Constituents
	}
	return d
}

// Load fetches the constituent table from src and builds a directory over it
func Load(ctx context.Context, src refdata.ConstituentSource) (*Directory, error) {
	data, err := src.Constituents(ctx)
	if err == nil && (data == nil || len(data.Constituents) == 0) {
		err = fetcher.NewDataUnavailableError("constituent table is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load index constituents: %w", err)
	}
	return New(data), nil
}

// Len returns the number of constituents
func (d *Directory) Len() int {
	return len(d.rows)
}

// Resolve scans the table for an exact, case-sensitive symbol match
func (d *Directory) Resolve(symbol string) Position {
	for i, row := range d.rows {
		if row.Symbol == symbol {
			return At(i)
		}
	}
	return NotFound
}

// Describe returns the metadata stored at p. NotFound and out-of-range
// positions both yield Placeholder.
func (d *Directory) Describe(p Position) Info {
	row, err := d.row(p)
	if err != nil {
		return Placeholder
	}
	return Info{
		Security:     row.Name,
		Sector:       row.Sector,
		SubIndustry:  row.SubIndustry,
		Headquarters: row.Headquarters,
	}
}

// Lookup resolves and describes symbol. Resolve only yields positions inside
// the table, so the only failure is ErrNotFound.
func (d *Directory) Lookup(symbol string) (Info, error) {
	p := d.Resolve(symbol)
	if !p.Found() {
		return Placeholder, fmt.Errorf("%s: %w", symbol, ErrNotFound)
	}
	return d.Describe(p), nil
}

// Constituent returns the full row at p
func (d *Directory) Constituent(p Position) (refdata.Constituent, error) {
	return d.row(p)
}

// Sample returns n distinct constituents chosen at random, or every
// constituent when n is at least the table size.
func (d *Directory) Sample(n int, rng *rand.Rand) []refdata.Constituent {
	if n <= 0 {
		return nil
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	idx := rng.Perm(len(d.rows))
	if n < len(idx) {
		idx = idx[:n]
	}

	out := make([]refdata.Constituent, len(idx))
	for i, j := range idx {
		out[i] = d.rows[j]
	}
	return out
}

func (d *Directory) row(p Position) (refdata.Constituent, error) {
	if !p.Found() {
		return refdata.Constituent{}, ErrNotFound
	}
	if p.index < 0 || p.index >= len(d.rows) {
		return refdata.Constituent{}, ErrOutOfRange
	}
	return d.rows[p.index], nil
}
