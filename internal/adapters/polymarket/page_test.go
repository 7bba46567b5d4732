package polymarket_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/polyexpiry/internal/adapters/polymarket"
	"github.com/alejandrodnm/polyexpiry/internal/domain"
	"github.com/alejandrodnm/polyexpiry/internal/scanner"
)

func newPageServer(t *testing.T, body []byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Accept"), "text/html")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(body)
	}))
}

func TestPageSource_Fixture(t *testing.T) {
	srv := newPageServer(t, readFixture(t, "next_data_page.html"))
	defer srv.Close()

	src := polymarket.NewPageSource(newTestClient(), srv.URL, "")
	assert.Equal(t, "html", src.Name())

	markets, err := src.FetchMarkets(context.Background(), testIdentity)
	require.NoError(t, err)
	require.Len(t, markets, 3)

	// Orden del documento; el id cae a la key del mapping si falta.
	assert.Equal(t, []string{"h-1", "h-2", "h-3"}, []string{markets[0].ID, markets[1].ID, markets[2].ID})
	assert.Equal(t, time.Date(2026, 10, 16, 10, 59, 0, 0, time.UTC), markets[1].ExpiresAt)

	matches := scanner.NewFilter(domain.DefaultFilterWindow()).Apply(markets, fixedNow)
	require.Len(t, matches, 1)
	assert.Equal(t, domain.Market{
		ID:            "h-1",
		Question:      "Will the S&P 500 close green today?",
		Slug:          "spx-green-oct-16",
		OutcomePrices: []float64{0.61, 0.39},
		ExpiresAt:     time.Date(2026, 10, 16, 13, 0, 0, 0, time.UTC),
	}, matches[0])
}

func TestPageSource_CustomPath(t *testing.T) {
	page := `<html><body><script id="__NEXT_DATA__" type="application/json">
		{"props":{"pageProps":{"markets":[{"id":"x","question":"Q?","slug":"q","outcomePrices":"[\"0.5\",\"0.5\"]"}]}}}
	</script></body></html>`
	srv := newPageServer(t, []byte(page))
	defer srv.Close()

	src := polymarket.NewPageSource(newTestClient(), srv.URL, "props.pageProps.markets")
	markets, err := src.FetchMarkets(context.Background(), testIdentity)
	require.NoError(t, err)
	require.Len(t, markets, 1)
	assert.Equal(t, "x", markets[0].ID)
}

func TestPageSource_BrokenLayoutIsAmbiguous(t *testing.T) {
	tests := []struct {
		name string
		page string
	}{
		{"no marker", `<html><body><script>window.x = 1</script></body></html>`},
		{"malformed json", `<html><script id="__NEXT_DATA__">{"props": </script></html>`},
		{"path missing", `<html><script id="__NEXT_DATA__">{"props":{"pageProps":{}}}</script></html>`},
		{"empty mapping", `<html><script id="__NEXT_DATA__">{"props":{"pageProps":{"initialState":{"markets":{}}}}}</script></html>`},
		{"renamed fields", `<html><script id="__NEXT_DATA__">{"props":{"pageProps":{"initialState":{"markets":{"1":{"title":"Q?","handle":"q"},"2":{"title":"R?","handle":"r"}}}}}}</script></html>`},
		{"mapping is scalar", `<html><script id="__NEXT_DATA__">{"props":{"pageProps":{"initialState":{"markets":"none"}}}}</script></html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newPageServer(t, []byte(tt.page))
			defer srv.Close()

			src := polymarket.NewPageSource(newTestClient(), srv.URL, "")
			markets, err := src.FetchMarkets(context.Background(), testIdentity)
			require.Error(t, err)
			assert.Nil(t, markets)
			assert.False(t, domain.IsConfirmedEmpty(err), "a scraped page never reports confirmed-empty")
			assert.True(t, domain.IsRetryable(err))
		})
	}
}
