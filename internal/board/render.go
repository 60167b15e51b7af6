package board

import (
	"bytes"
	"html/template"
	"log/slog"
	"time"

	"github.com/araddon/dateparse"
	"github.com/dustin/go-humanize"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Raw HTML in announcements is escaped, not passed through.
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
	),
	goldmark.WithRendererOptions(
		html.WithHardWraps(),
	),
)

// RenderContent converts announcement markdown to HTML.
func RenderContent(markdown string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		slog.Warn("board: failed to render markdown", "error", err)
		return template.HTML(template.HTMLEscapeString(markdown))
	}
	return template.HTML(buf.String())
}

// Age describes date relative to now ("3 minutes ago"). Dates without a zone
// are read in now's location. Unparsable dates give "".
func Age(date string, now time.Time) string {
	if date == "" {
		return ""
	}
	t, err := dateparse.ParseIn(date, now.Location())
	if err != nil {
		return ""
	}
	return humanize.RelTime(t, now, "ago", "from now")
}
