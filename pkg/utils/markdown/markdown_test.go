package markdown

import (
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"
)

func TestRender_Basic(t *testing.T) {
	m := New("**bold** and [a link](https://example.com)")
	html := string(m.Render())
	require.Contains(t, html, "<strong>bold</strong>")
	require.Contains(t, html, `href="https://example.com"`)
}

func TestRender_StripsScript(t *testing.T) {
	m := New("hello <script>alert(1)</script> world")
	html := string(m.Render())
	require.NotContains(t, html, "<script>")
	require.Contains(t, html, "hello")
}

func TestPlainText_StripsMarkup(t *testing.T) {
	m := New("# Heading\n\nsome *emphasis* here")
	text := m.PlainText()
	require.NotContains(t, text, "<")
	require.Contains(t, text, "Heading")
	require.Contains(t, text, "emphasis")
}

func TestScanText_Null(t *testing.T) {
	m := New("stale")
	require.NoError(t, m.ScanText(pgtype.Text{Valid: false}))
	require.Equal(t, "", m.Source)
}

func TestTextValue_RoundTrip(t *testing.T) {
	m := New("## notes")
	v, err := m.TextValue()
	require.NoError(t, err)
	require.True(t, v.Valid)
	require.Equal(t, "## notes", v.String)
}
