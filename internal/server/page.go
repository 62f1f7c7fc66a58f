package server

import (
	"bytes"
	"html/template"
	"net/http"

	"intrinsicvalue/internal/refdata"
)

// pageDisplay collects what a confirmation shows so it can be rendered as HTML
type pageDisplay struct {
	Ticker string
	Sample []refdata.Constituent
	Lines  []pageLine
}

type pageLine struct {
	Label string
	Value string
}

// ShowSample implements coordinator.Display
func (p *pageDisplay) ShowSample(records []refdata.Constituent) {
	p.Sample = records
}

// ShowText implements coordinator.Display
func (p *pageDisplay) ShowText(label, value string) {
	p.Lines = append(p.Lines, pageLine{Label: label, Value: value})
}

var pageTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>S&amp;P 500 Intrinsic Value</title>
<style>
body { font-family: sans-serif; max-width: 48rem; margin: 2rem auto; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: .25rem .5rem; text-align: left; }
dt { font-weight: bold; margin-top: .5rem; }
</style>
</head>
<body>
<h1>S&amp;P 500 Intrinsic Value</h1>
{{if .Sample}}
<table>
<thead><tr><th>Symbol</th><th>Security</th><th>GICS Sector</th><th>GICS Sub-Industry</th><th>Headquarters Location</th></tr></thead>
<tbody>
{{range .Sample}}<tr><td>{{.Symbol}}</td><td>{{.Name}}</td><td>{{.Sector}}</td><td>{{.SubIndustry}}</td><td>{{.Headquarters}}</td></tr>
{{end}}</tbody>
</table>
{{end}}
<form method="post" action="/">
<label for="ticker">Enter a ticker from the S&amp;P 500</label>
<input id="ticker" name="ticker" value="{{.Ticker}}" autofocus>
<button type="submit">Confirm</button>
</form>
{{if .Lines}}
<dl>
{{range .Lines}}<dt>{{.Label}}</dt><dd>{{.Value}}</dd>
{{end}}</dl>
{{end}}
</body>
</html>
`))

// renderPage renders the page into a buffer before writing any of it
func (s *Server) renderPage(w http.ResponseWriter, status int, page *pageDisplay) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, page); err != nil {
		s.log.Error().Err(err).Msg("Failed to render page")
		s.writeError(w, http.StatusInternalServerError, "failed to render page")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		s.log.Debug().Err(err).Msg("Failed to write page")
	}
}
