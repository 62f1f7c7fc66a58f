package refdata

import (
	"fmt"
	"sort"
	"time"

	"intrinsicvalue/internal/fetcher"
)

// Statement is one financial statement: values keyed by line item and filing
// date. Periods are kept most recent first regardless of insertion order.
type Statement struct {
	Name    string
	periods []time.Time
	items   map[string]map[time.Time]float64
}

// NewStatement creates an empty statement
func NewStatement(name string) *Statement {
	return &Statement{
		Name:  name,
		items: make(map[string]map[time.Time]float64),
	}
}

// Set records the value of item at the filing date
func (s *Statement) Set(item string, date time.Time, value float64) {
	date = s.AddPeriod(date)

	row, ok := s.items[item]
	if !ok {
		row = make(map[time.Time]float64)
		s.items[item] = row
	}
	row[date] = value
}

// AddPeriod records a filing date even when none of its cells are populated,
// so an empty latest column is reported rather than skipped. It returns the
// normalized date.
func (s *Statement) AddPeriod(date time.Time) time.Time {
	date = date.UTC().Truncate(24 * time.Hour)

	for _, p := range s.periods {
		if p.Equal(date) {
			return date
		}
	}
	s.periods = append(s.periods, date)
	sort.Slice(s.periods, func(i, j int) bool {
		return s.periods[i].After(s.periods[j])
	})
	return date
}

// Periods returns the filing dates, most recent first
func (s *Statement) Periods() []time.Time {
	out := make([]time.Time, len(s.periods))
	copy(out, s.periods)
	return out
}

// Latest returns item at the most recent filing date. A statement with no
// filings or an empty cell in the latest column is a data_unavailable error.
func (s *Statement) Latest(item string) (float64, error) {
	if s == nil || len(s.periods) == 0 {
		return 0, fetcher.NewDataUnavailableError(fmt.Sprintf("%s has no filings", s.name()))
	}

	latest := s.periods[0]
	v, ok := s.items[item][latest]
	if !ok {
		return 0, fetcher.NewDataUnavailableError(fmt.Sprintf("%q missing from %s filed %s",
			item, s.name(), latest.Format("2006-01-02")))
	}
	return v, nil
}

// Observation is one populated cell of a line item
type Observation struct {
	Date  time.Time
	Value float64
}

// Series returns every populated cell of item in ascending date order
func (s *Statement) Series(item string) ([]Observation, error) {
	if s == nil {
		return nil, fetcher.NewDataUnavailableError("statement not fetched")
	}

	row, ok := s.items[item]
	if !ok || len(row) == 0 {
		return nil, fetcher.NewDataUnavailableError(fmt.Sprintf("%q missing from %s", item, s.name()))
	}

	out := make([]Observation, 0, len(row))
	for d, v := range row {
		out = append(out, Observation{Date: d, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

func (s *Statement) name() string {
	if s == nil || s.Name == "" {
		return "statement"
	}
	return s.Name
}
