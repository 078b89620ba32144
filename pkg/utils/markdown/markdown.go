// package markdown wraps the markdown source of a video description.
// Only the source text is persisted; rendering happens on demand and the
// result is cached on the value.
package markdown

import (
	"bytes"
	"html/template"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
)

type Markdown struct {
	// Source is the markdown source code.
	Source string
	// renderedHTML caches the sanitized HTML rendered from Source.
	renderedHTML *template.HTML
	// renderedText caches the plain text rendered from Source.
	renderedText *template.HTML
}

var (
	bfRenderer = blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{
		Flags: blackfriday.Safelink | blackfriday.NofollowLinks | blackfriday.HrefTargetBlank | blackfriday.Smartypants,
	})
	bfExtensions = blackfriday.NoIntraEmphasis | blackfriday.FencedCode | blackfriday.Autolink | blackfriday.Strikethrough | blackfriday.SpaceHeadings
	policy       = bluemonday.UGCPolicy()
)

func New(source string) Markdown {
	return Markdown{Source: source}
}

// Render converts the markdown source into sanitized HTML. Feed
// descriptions are untrusted input, so everything goes through bluemonday.
func (m *Markdown) Render() template.HTML {
	if m.renderedHTML != nil {
		return *m.renderedHTML
	}

	unsafe := blackfriday.Run([]byte(m.Source),
		blackfriday.WithRenderer(bfRenderer),
		blackfriday.WithExtensions(bfExtensions),
	)
	safe := policy.SanitizeBytes(unsafe)
	html := template.HTML(bytes.TrimSpace(safe))
	m.renderedHTML = &html
	return html
}

// PlainText strips all markup, for search previews and log lines.
func (m *Markdown) PlainText() string {
	if m.renderedText != nil {
		return string(*m.renderedText)
	}

	unsafe := blackfriday.Run([]byte(m.Source),
		blackfriday.WithRenderer(bfRenderer),
		blackfriday.WithExtensions(bfExtensions),
	)

	safe := bytes.TrimSpace(bluemonday.StrictPolicy().SanitizeBytes(unsafe))
	h := template.HTML(safe)
	m.renderedText = &h

	return string(h)
}

// ScanText implements the pgtype.TextScanner interface for pgx v5.
func (m *Markdown) ScanText(v pgtype.Text) error {
	if !v.Valid {
		*m = Markdown{}
		return nil
	}

	*m = Markdown{Source: v.String}
	return nil
}

// TextValue implements the pgtype.TextValuer interface for pgx v5.
func (m Markdown) TextValue() (pgtype.Text, error) {
	return pgtype.Text{String: m.Source, Valid: true}, nil
}
