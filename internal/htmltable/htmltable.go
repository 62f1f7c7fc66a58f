// Package htmltable extracts header/row grids from HTML <table> elements.
package htmltable

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Table is one parsed HTML table: a header row and the body rows as trimmed cell text.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Parse extracts every table in the document that has a header row.
func Parse(r io.Reader) ([]Table, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var tables []Table
	doc.Find("table").Each(func(i int, sel *goquery.Selection) {
		if t, ok := parseTable(sel); ok {
			tables = append(tables, t)
		}
	})

	return tables, nil
}

func parseTable(sel *goquery.Selection) (Table, bool) {
	var t Table

	sel.Find("tr").Each(func(i int, row *goquery.Selection) {
		// Nested tables are parsed on their own
		if row.Closest("table").Get(0) != sel.Get(0) {
			return
		}

		cells := row.ChildrenFiltered("th, td")
		if cells.Length() == 0 {
			return
		}

		var values []string
		cells.Each(func(j int, cell *goquery.Selection) {
			values = append(values, cellText(cell))
		})

		if t.Headers == nil && row.ChildrenFiltered("td").Length() == 0 {
			t.Headers = values
			return
		}
		if t.Headers == nil {
			return
		}
		t.Rows = append(t.Rows, values)
	})

	return t, t.Headers != nil
}

// cellText returns the visible text of a cell with whitespace collapsed and
// footnote markers such as "[3]" dropped.
func cellText(cell *goquery.Selection) string {
	cell = cell.Clone()
	cell.Find("sup.reference, style, script").Remove()
	return strings.Join(strings.Fields(cell.Text()), " ")
}

// Column returns the index of the named header, or -1.
func (t Table) Column(name string) int {
	for i, h := range t.Headers {
		if strings.EqualFold(h, name) {
			return i
		}
	}
	return -1
}

// HasColumns reports whether every named header is present.
func (t Table) HasColumns(names ...string) bool {
	for _, n := range names {
		if t.Column(n) < 0 {
			return false
		}
	}
	return true
}

// Cell returns the value in row at the named column, or "" when absent.
func (t Table) Cell(row []string, name string) string {
	i := t.Column(name)
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// Find returns the first table carrying all the named headers.
func Find(tables []Table, headers ...string) (Table, bool) {
	for _, t := range tables {
		if t.HasColumns(headers...) {
			return t, true
		}
	}
	return Table{}, false
}
