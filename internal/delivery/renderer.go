package delivery

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/wonny/folio/backend/internal/contracts"
	"github.com/wonny/folio/backend/internal/report"
)

const dailyTemplate = `# Daily update for {{ date .ReportDate }}

Hi {{ .Name }},

{{ .Summary }}

| Portfolio | |
|---|---:|
| Value | **{{ money .PortfolioValue }}** |
| Change | {{ signed .Change }} |
| Change % | {{ pct .ChangePercent }} |
{{ if .SignificantMovers }}
## Significant movers

| Symbol | Price | Change | Change % | Value |
|---|---:|---:|---:|---:|
{{ range .SignificantMovers }}| {{ .Symbol }} | {{ money .Price }} | {{ signed .Change }} | {{ pct .ChangePercent }} | {{ money .Value }} |
{{ end }}{{ end }}{{ if .SectorPerformance }}
## Sectors

| Sector | Value | Change % | Weight |
|---|---:|---:|---:|
{{ range .SectorPerformance }}| {{ .Sector }} | {{ money .Value }} | {{ pct .ChangePercent }} | {{ weight .Weight }} |
{{ end }}{{ end }}
---

You receive this email because daily updates are enabled for your account.
`

// inline styles applied after markdown conversion; most mail clients drop <style> blocks
var inlineStyles = map[string]string{
	"body":  "font-family:Helvetica,Arial,sans-serif;color:#222;max-width:640px;margin:0 auto;",
	"h1":    "font-size:20px;margin:16px 0;",
	"h2":    "font-size:16px;margin:20px 0 8px;border-bottom:1px solid #eee;",
	"table": "border-collapse:collapse;width:100%;margin:8px 0;",
	"th":    "padding:6px 8px;border-bottom:2px solid #ddd;text-align:left;",
	"td":    "padding:6px 8px;border-bottom:1px solid #eee;",
	"hr":    "border:none;border-top:1px solid #eee;margin:24px 0;",
	"p":     "line-height:1.5;",
}

const (
	gainColor = "color:#1a7f37;"
	lossColor = "color:#cf222e;"
)

// Renderer turns a report into an email body
type Renderer struct {
	tmpl *template.Template
	md   goldmark.Markdown
}

// NewRenderer parses the report template
func NewRenderer() *Renderer {
	funcs := template.FuncMap{
		"money":  report.FormatMoney,
		"signed": report.FormatSignedMoney,
		"pct":    report.FormatPercent,
		"weight": func(w float64) string { return fmt.Sprintf("%.1f%%", w*100) },
		"date":   func(t time.Time) string { return t.Format("Monday, January 2, 2006") },
	}
	return &Renderer{
		tmpl: template.Must(template.New("daily").Funcs(funcs).Parse(dailyTemplate)),
		md:   goldmark.New(goldmark.WithExtensions(extension.Table)),
	}
}

type templateData struct {
	Name string
	*contracts.DailyReportRecord
}

// Markdown renders the report as markdown
func (r *Renderer) Markdown(user *contracts.EligibleUser, record *contracts.DailyReportRecord) (string, error) {
	name := strings.TrimSpace(user.Name)
	if name == "" {
		name = "there"
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, templateData{Name: name, DailyReportRecord: record}); err != nil {
		return "", fmt.Errorf("failed to render report template: %w", err)
	}
	return buf.String(), nil
}

// HTML converts markdown to an HTML document with inline styles
func (r *Renderer) HTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("failed to convert markdown: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(&buf)
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}

	for selector, style := range inlineStyles {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			appendStyle(s, style)
		})
	}

	// colour signed cells
	doc.Find("td").Each(func(_ int, cell *goquery.Selection) {
		text := strings.TrimSpace(cell.Text())
		switch {
		case strings.HasPrefix(text, "+"):
			appendStyle(cell, gainColor)
		case strings.HasPrefix(text, "-"):
			appendStyle(cell, lossColor)
		}
	})

	html, err := doc.Html()
	if err != nil {
		return "", fmt.Errorf("failed to serialize html: %w", err)
	}
	return html, nil
}

// appendStyle keeps styles goldmark already set, such as column alignment
func appendStyle(s *goquery.Selection, style string) {
	cur, _ := s.Attr("style")
	if cur != "" && !strings.HasSuffix(cur, ";") {
		cur += ";"
	}
	s.SetAttr("style", cur+style)
}

// Render builds the complete message for user
func (r *Renderer) Render(user *contracts.EligibleUser, record *contracts.DailyReportRecord) (*Message, error) {
	md, err := r.Markdown(user, record)
	if err != nil {
		return nil, err
	}
	html, err := r.HTML(md)
	if err != nil {
		return nil, err
	}

	return &Message{
		To:      user.Email,
		Subject: Subject(record),
		Text:    md,
		HTML:    html,
	}, nil
}

// Subject is the email subject line for record
func Subject(record *contracts.DailyReportRecord) string {
	return fmt.Sprintf("Your portfolio on %s: %s (%s)",
		record.ReportDate.Format("Jan 2"),
		report.FormatMoney(record.PortfolioValue),
		report.FormatPercent(record.ChangePercent))
}
