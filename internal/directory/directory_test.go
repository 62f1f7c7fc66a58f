package directory

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intrinsicvalue/internal/fetcher"
	"intrinsicvalue/internal/refdata"
	"intrinsicvalue/internal/testutil"
)

func sampleData() *refdata.ReferenceData {
	return &refdata.ReferenceData{Constituents: []refdata.Constituent{
		{Symbol: "MMM", Name: "3M", Sector: "Industrials", SubIndustry: "Industrial Conglomerates", Headquarters: "Saint Paul, Minnesota"},
		{Symbol: "AAPL", Name: "Apple Inc.", Sector: "Information Technology", SubIndustry: "Technology Hardware, Storage & Peripherals", Headquarters: "Cupertino, California"},
		{Symbol: "MSFT", Name: "Microsoft", Sector: "Information Technology", SubIndustry: "Systems Software", Headquarters: "Redmond, Washington"},
	}}
}

func TestResolve(t *testing.T) {
	d := New(sampleData())

	p := d.Resolve("AAPL")
	require.True(t, p.Found())
	assert.Equal(t, 1, p.Index())

	assert.False(t, d.Resolve("aapl").Found(), "match is case-sensitive")
	assert.Equal(t, NotFound, d.Resolve("ZZZZ"))
}

func TestDescribe_StoredRow(t *testing.T) {
	data := sampleData()
	d := New(data)

	for i, row := range data.Constituents {
		info := d.Describe(d.Resolve(row.Symbol))
		assert.Equal(t, Info{
			Security:     row.Name,
			Sector:       row.Sector,
			SubIndustry:  row.SubIndustry,
			Headquarters: row.Headquarters,
		}, info, "row %d", i)
	}
}

func TestDescribe_Placeholder(t *testing.T) {
	d := New(sampleData())

	tests := []struct {
		name string
		pos  Position
	}{
		{"not found", d.Resolve("NOPE")},
		{"past the end", At(3)},
		{"negative", At(-1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := d.Describe(tt.pos)
			assert.Equal(t, Placeholder, info)
			assert.Equal(t, InvalidTicker, info.Security)
			assert.Equal(t, InvalidTicker, info.Sector)
			assert.Equal(t, InvalidTicker, info.SubIndustry)
			assert.Equal(t, InvalidTicker, info.Headquarters)
		})
	}
}

func TestLookup(t *testing.T) {
	d := New(sampleData())

	info, err := d.Lookup("MSFT")
	require.NoError(t, err)
	assert.Equal(t, "Microsoft", info.Security)

	info, err = d.Lookup("XYZ")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrOutOfRange))
	assert.Equal(t, Placeholder, info)
}

func TestConstituent(t *testing.T) {
	d := New(sampleData())

	row, err := d.Constituent(d.Resolve("MMM"))
	require.NoError(t, err)
	assert.Equal(t, "3M", row.Name)

	_, err = d.Constituent(NotFound)
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = d.Constituent(At(10))
	assert.True(t, errors.Is(err, ErrOutOfRange))
}

func TestLoad(t *testing.T) {
	d, err := Load(context.Background(), &testutil.MockConstituents{Data: sampleData()})
	require.NoError(t, err)
	assert.Equal(t, 3, d.Len())

	tests := []struct {
		name     string
		src      *testutil.MockConstituents
		wantType fetcher.ErrorType
	}{
		{"provider error", &testutil.MockConstituents{Err: fetcher.NewServerError(503)}, fetcher.ErrorTypeServer},
		{"nil table", &testutil.MockConstituents{}, fetcher.ErrorTypeDataUnavailable},
		{"empty table", &testutil.MockConstituents{Data: &refdata.ReferenceData{}}, fetcher.ErrorTypeDataUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(context.Background(), tt.src)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "failed to load index constituents")

			var fe *fetcher.FetchError
			require.True(t, errors.As(err, &fe), "got %v", err)
			assert.Equal(t, tt.wantType, fe.Type)
		})
	}
}

func TestSample(t *testing.T) {
	d := New(sampleData())
	rng := rand.New(rand.NewPCG(1, 2))

	got := d.Sample(2, rng)
	require.Len(t, got, 2)
	assert.NotEqual(t, got[0].Symbol, got[1].Symbol)

	assert.Len(t, d.Sample(10, rng), 3, "sample is capped at the table size")
	assert.Nil(t, d.Sample(0, rng))
}

func TestNew_NilData(t *testing.T) {
	d := New(nil)
	assert.Equal(t, 0, d.Len())
	assert.Equal(t, Placeholder, d.Describe(d.Resolve("AAPL")))
}
