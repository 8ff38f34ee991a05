package report

import (
	_ "embed"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/keithneurodog/az-dcm-poc-sub000/internal/matching"
)

//go:embed style.css
var defaultStyleCSS string

var (
	reMethodology = regexp.MustCompile(`(?i)<h2([^>]*)>\s*` + regexp.QuoteMeta(methodologyHeading) + `\s*</h2>`)
	reCategory    = regexp.MustCompile(`<h2([^>]*)>\s*(` + categoryLabels() + `)\s*</h2>`)
)

func categoryLabels() string {
	labels := make([]string, 0, len(matching.Categories))
	for _, c := range matching.Categories {
		labels = append(labels, regexp.QuoteMeta(c.Label()))
	}
	return strings.Join(labels, "|")
}

// RenderHTML converts report markdown into a standalone HTML page. An empty
// styleCSS uses the built-in stylesheet.
func RenderHTML(markdown string, res *matching.Result, styleCSS string) (string, error) {
	var content strings.Builder
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(markdown), &content); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	if strings.TrimSpace(styleCSS) == "" {
		styleCSS = defaultStyleCSS
	}
	return "<!doctype html><html><head><meta charset='utf-8'><title>Data access timeline</title>" +
		"<style>" + styleCSS + "\n" +
		"html,body,*{-webkit-print-color-adjust:exact !important;print-color-adjust:exact !important;} " +
		`h2[data-page-break-before="true"]{break-before:page;page-break-before:always;} ` +
		"@media print{ @page{size:auto;margin:12mm;} body{padding:0;} }" +
		"</style></head><body><section class='report-viewer'>" +
		"<div class='report-tools'><div class='report-badges'>" + badgeHTML(res) + "</div></div>" +
		"<div class='report-html'>" + applyPrintLayoutHooks(content.String()) + "</div>" +
		"</section></body></html>", nil
}

// applyPrintLayoutHooks starts the methodology section on a new page and
// tags category headings so the stylesheet can colour them.
func applyPrintLayoutHooks(contentHTML string) string {
	out := reMethodology.ReplaceAllString(contentHTML, `<h2$1 data-page-break-before="true">`+methodologyHeading+`</h2>`)
	return reCategory.ReplaceAllString(out, `<h2$1 data-category-heading="true">$2</h2>`)
}

func badgeHTML(res *matching.Result) string {
	if res == nil {
		return ""
	}
	var out strings.Builder
	for _, c := range matching.Categories {
		n := len(res.Bucket(c))
		if n == 0 {
			continue
		}
		fmt.Fprintf(&out, "<span class='report-badge' data-category=%q>%s: %d</span>", string(c), html.EscapeString(c.Label()), n)
	}
	return out.String()
}
