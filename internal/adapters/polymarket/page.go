package polymarket

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"

	"github.com/alejandrodnm/polyexpiry/internal/domain"
)

const (
	sourceNamePage = "html"

	nextDataSelector = "script#__NEXT_DATA__"

	// DefaultPagePath es donde la página de Polymarket guarda el mapping id -> mercado.
	DefaultPagePath = "props.pageProps.initialState.markets"
)

// PageSource extrae los mercados del blob JSON que la página embebe en
// <script id="__NEXT_DATA__">. El path depende de la estructura interna de la página:
// si algo no está donde se espera, se asume que upstream cambió y el error es ambiguo.
type PageSource struct {
	client  *Client
	pageURL string
	path    string
}

// NewPageSource crea la fuente HTML. pageURL vacío usa la home de Polymarket;
// path vacío usa DefaultPagePath.
func NewPageSource(client *Client, pageURL, path string) *PageSource {
	if pageURL == "" {
		pageURL = defaultSiteBase + "/markets"
	}
	if path == "" {
		path = DefaultPagePath
	}
	return &PageSource{client: client, pageURL: pageURL, path: path}
}

func (s *PageSource) Name() string { return sourceNamePage }

// FetchMarkets implementa ports.MarketSource.
func (s *PageSource) FetchMarkets(ctx context.Context, identity domain.Identity) ([]domain.Market, error) {
	body, err := s.client.get(ctx, s.pageURL, identity, "text/html,application/xhtml+xml")
	if err != nil {
		return nil, fmt.Errorf("page.FetchMarkets: %w", err)
	}

	markets, err := s.decode(body)
	if err != nil {
		return nil, fmt.Errorf("page.FetchMarkets: %w", err)
	}
	return markets, nil
}

func (s *PageSource) decode(body []byte) ([]domain.Market, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, domain.NewAmbiguousShape(sourceNamePage, "unparseable HTML", err)
	}

	script := doc.Find(nextDataSelector).First()
	if script.Length() == 0 {
		return nil, domain.NewAmbiguousShape(sourceNamePage, "embedded data marker not found", nil)
	}

	blob := strings.TrimSpace(script.Text())
	if !gjson.Valid(blob) {
		return nil, domain.NewAmbiguousShape(sourceNamePage, "embedded data is not valid JSON", nil)
	}

	mapping := gjson.Get(blob, s.path)
	if !mapping.Exists() {
		return nil, domain.NewAmbiguousShape(sourceNamePage, "path "+s.path+" not found", nil)
	}
	if !mapping.IsObject() && !mapping.IsArray() {
		return nil, domain.NewAmbiguousShape(sourceNamePage, "path "+s.path+" is not a collection", nil)
	}

	n := newNormalizer(sourceNamePage)
	var (
		markets []domain.Market
		entries int
	)
	// ForEach respeta el orden del documento, también para objetos.
	mapping.ForEach(func(key, item gjson.Result) bool {
		entries++
		if !item.IsObject() {
			n.skipped++
			return true
		}
		id := item.Get("id").String()
		if id == "" {
			id = key.String()
		}
		m, ok := n.market(
			id,
			item.Get("question").String(),
			item.Get("slug").String(),
			item.Get("outcomePrices"),
			item.Get("endDate"),
		)
		if ok {
			markets = append(markets, m)
		}
		return true
	})

	if entries == 0 {
		return nil, domain.NewAmbiguousShape(sourceNamePage, "path "+s.path+" is empty, page layout likely changed", nil)
	}
	// Entradas presentes pero ninguna usable: campos renombrados upstream, no un poll vacío.
	if len(markets) == 0 {
		return nil, domain.NewAmbiguousShape(sourceNamePage, "no usable markets under "+s.path+", page layout likely changed", nil)
	}

	slog.Debug("page payload normalized",
		"entries", entries,
		"markets", len(markets),
		"skipped", n.skipped,
		"parse_errors", n.parseErrors,
	)
	return markets, nil
}
