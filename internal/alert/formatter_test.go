package alert_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/polyexpiry/internal/alert"
	"github.com/alejandrodnm/polyexpiry/internal/domain"
)

var resolves = time.Date(2026, 10, 16, 13, 30, 0, 0, time.UTC)

func sample() []domain.Market {
	return []domain.Market{
		{ID: "501", Question: "Will Bitcoin close above $60,000?", Slug: "bitcoin-above-60k", OutcomePrices: []float64{0.42, 0.58}, ExpiresAt: resolves},
		{ID: "601", Question: "Will Powell say \"recession\"?", Slug: "powell-says-recession", OutcomePrices: []float64{0.3, 0.7}, ExpiresAt: resolves.Add(15 * time.Minute)},
	}
}

func newFormatter(t *testing.T, cfg alert.Config) *alert.Formatter {
	t.Helper()
	f, err := alert.NewFormatter(cfg, domain.DefaultFilterWindow())
	require.NoError(t, err)
	return f
}

func TestRender_EmptyPrintsNoMatchesLine(t *testing.T) {
	f := newFormatter(t, alert.Config{})
	out, err := f.Render(nil)
	require.NoError(t, err)
	assert.Equal(t, "No profitable markets found expiring in the next 2 hours.", out)

	custom := newFormatter(t, alert.Config{NoMatchesText: "nada por ahora"})
	out, err = custom.Render([]domain.Market{})
	require.NoError(t, err)
	assert.Equal(t, "nada por ahora", out)
}

func TestRender_QuietOnEmpty(t *testing.T) {
	for _, format := range []string{alert.FormatText, alert.FormatMarkdown, alert.FormatTable, alert.FormatJSON} {
		f := newFormatter(t, alert.Config{Format: format, QuietOnEmpty: true})
		out, err := f.Render(nil)
		require.NoError(t, err)
		assert.Empty(t, out, format)
	}
}

func TestRender_Text(t *testing.T) {
	f := newFormatter(t, alert.Config{})
	out, err := f.Render(sample())
	require.NoError(t, err)

	want := "📈 Polymarket - Expiring Soon:\n" +
		"\n" +
		"Will Bitcoin close above $60,000?\n" +
		"Resolves: Fri, 16 Oct 2026 13:30 UTC\n" +
		"https://polymarket.com/event/bitcoin-above-60k\n" +
		"---\n" +
		"Will Powell say \"recession\"?\n" +
		"Resolves: Fri, 16 Oct 2026 13:45 UTC\n" +
		"https://polymarket.com/event/powell-says-recession"
	assert.Equal(t, want, out)
}

func TestRender_IsDeterministic(t *testing.T) {
	for _, format := range []string{alert.FormatText, alert.FormatMarkdown, alert.FormatTable, alert.FormatJSON} {
		f := newFormatter(t, alert.Config{Format: format})
		first, err := f.Render(sample())
		require.NoError(t, err)
		second, err := f.Render(sample())
		require.NoError(t, err)
		assert.Equal(t, first, second, format)
	}
}

func TestRender_DateAlwaysUTC(t *testing.T) {
	madrid := time.FixedZone("CEST", 2*3600)
	m := sample()[:1]
	m[0].ExpiresAt = resolves.In(madrid)

	out, err := newFormatter(t, alert.Config{}).Render(m)
	require.NoError(t, err)
	assert.Contains(t, out, "Resolves: Fri, 16 Oct 2026 13:30 UTC")
}

func TestRender_Markdown(t *testing.T) {
	f := newFormatter(t, alert.Config{Format: alert.FormatMarkdown, Header: "Expiring:"})
	out, err := f.Render(sample())
	require.NoError(t, err)

	want := "Expiring:\n" +
		"\n" +
		"- [Will Bitcoin close above $60,000?](https://polymarket.com/event/bitcoin-above-60k) (resolves Fri, 16 Oct 2026 13:30 UTC)\n" +
		"- [Will Powell say \"recession\"?](https://polymarket.com/event/powell-says-recession) (resolves Fri, 16 Oct 2026 13:45 UTC)"
	assert.Equal(t, want, out)
}

func TestRender_Table(t *testing.T) {
	f := newFormatter(t, alert.Config{Format: alert.FormatTable})
	out, err := f.Render(sample())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, alert.DefaultHeader+"\n\n"))
	assert.Contains(t, out, "Will Bitcoin close above $60,000?")
	assert.Contains(t, out, "Fri, 16 Oct 2026 13:45 UTC")
	assert.Contains(t, out, "https://polymarket.com/event/powell-says-recession")
	assert.False(t, strings.HasSuffix(out, "\n"))
}

func TestRender_JSON(t *testing.T) {
	f := newFormatter(t, alert.Config{Format: alert.FormatJSON})
	out, err := f.Render(sample())
	require.NoError(t, err)

	var got []map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)
	assert.Equal(t, map[string]string{
		"id":          "501",
		"question":    "Will Bitcoin close above $60,000?",
		"slug":        "bitcoin-above-60k",
		"link":        "https://polymarket.com/event/bitcoin-above-60k",
		"resolves_at": "2026-10-16T13:30:00Z",
	}, got[0])
}

func TestLink(t *testing.T) {
	f := newFormatter(t, alert.Config{BaseURL: "https://example.test/"})
	assert.Equal(t, "https://example.test/event/some-slug", f.Link("some-slug"))
	assert.Equal(t, "https://example.test/event/a%2Fb", f.Link("a/b"))
}

func TestNoMatchesText(t *testing.T) {
	assert.Equal(t, "No profitable markets found expiring in the next 2 hours.",
		alert.NoMatchesText(domain.DefaultFilterWindow()))
	assert.Equal(t, "No profitable markets found expiring in the next hour.",
		alert.NoMatchesText(domain.FilterWindow{Expiration: time.Hour}))
	assert.Equal(t, "No profitable markets found expiring in the next 90 minutes.",
		alert.NoMatchesText(domain.FilterWindow{Expiration: 90 * time.Minute}))
}

func TestNewFormatter_UnknownFormat(t *testing.T) {
	_, err := alert.NewFormatter(alert.Config{Format: "xml"}, domain.DefaultFilterWindow())
	assert.Error(t, err)
}
