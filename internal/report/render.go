// Package report turns generated Markdown into a self-contained HTML page
// suitable for storing and linking to directly.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	ghtml "github.com/yuin/goldmark/renderer/html"
)

// Meta is the header information rendered above the report body.
type Meta struct {
	Title       string
	GeneratedAt time.Time
}

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(ghtml.WithHardWraps()),
)

var pageTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
  body { font-family: Georgia, 'Times New Roman', serif; color: #1f2933; margin: 0; background: #f5f6f8; }
  .page { max-width: 820px; margin: 0 auto; padding: 48px 40px 80px; background: #ffffff; min-height: 100vh; }
  header { border-bottom: 2px solid #1f2933; padding-bottom: 16px; margin-bottom: 32px; }
  header h1 { margin: 0 0 4px; font-size: 28px; }
  header .generated { color: #616e7c; font-size: 14px; }
  h1, h2, h3 { line-height: 1.25; }
  h2 { margin-top: 40px; border-bottom: 1px solid #d3dae3; padding-bottom: 6px; }
  p, li { line-height: 1.6; font-size: 16px; }
  blockquote { border-left: 3px solid #9aa5b1; margin-left: 0; padding-left: 16px; color: #52606d; }
  table { border-collapse: collapse; width: 100%; margin: 16px 0; }
  th, td { border: 1px solid #d3dae3; padding: 8px 12px; text-align: left; font-size: 15px; }
  th { background: #f0f3f6; }
  code { font-family: 'SFMono-Regular', Consolas, monospace; background: #f0f3f6; padding: 1px 5px; border-radius: 3px; font-size: 14px; }
  @media print { body { background: #ffffff; } .page { padding: 0; } }
</style>
</head>
<body>
<div class="page">
<header>
  <h1>{{.Title}}</h1>
  <div class="generated">Generated {{.Generated}}</div>
</header>
{{.Body}}
</div>
</body>
</html>
`))

type pageData struct {
	Title     string
	Generated string
	Body      template.HTML
}

// Render converts report Markdown into a complete standalone HTML document.
func Render(md string, meta Meta) (string, error) {
	if strings.TrimSpace(md) == "" {
		return "", fmt.Errorf("render: empty report body")
	}
	title := meta.Title
	if title == "" {
		title = "Diagnostic Report"
	}
	generatedAt := meta.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now().UTC()
	}

	var body bytes.Buffer
	if err := markdown.Convert([]byte(md), &body); err != nil {
		return "", fmt.Errorf("render: markdown conversion: %w", err)
	}

	var page bytes.Buffer
	err := pageTemplate.Execute(&page, pageData{
		Title:     title,
		Generated: generatedAt.Format("January 2, 2006 15:04 MST"),
		Body:      template.HTML(body.String()),
	})
	if err != nil {
		return "", fmt.Errorf("render: template: %w", err)
	}
	return page.String(), nil
}
