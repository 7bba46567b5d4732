package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tidwall/gjson"

	"github.com/alejandrodnm/polyexpiry/internal/domain"
)

const (
	sourceNameGraphQL = "graphql"
	marketsPath       = "data.markets"
)

const marketsQuery = `query ActiveMarkets($limit: Int!) {
  markets(limit: $limit, where: {active: true, closed: false}) {
    id
    question
    slug
    endDate
    outcomePrices { outcome price }
  }
}`

// GraphQLSource consulta mercados activos con una query fija y desenvuelve data.markets.
type GraphQLSource struct {
	client   *Client
	endpoint string
	pageSize int
}

// NewGraphQLSource crea la fuente GraphQL. endpoint es obligatorio: no hay default público.
func NewGraphQLSource(client *Client, endpoint string, pageSize int) *GraphQLSource {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &GraphQLSource{client: client, endpoint: endpoint, pageSize: pageSize}
}

func (s *GraphQLSource) Name() string { return sourceNameGraphQL }

// FetchMarkets implementa ports.MarketSource.
func (s *GraphQLSource) FetchMarkets(ctx context.Context, identity domain.Identity) ([]domain.Market, error) {
	payload, err := json.Marshal(graphqlRequest{
		Query:     marketsQuery,
		Variables: map[string]any{"limit": s.pageSize},
	})
	if err != nil {
		return nil, fmt.Errorf("graphql.FetchMarkets: encode query: %w", err)
	}

	body, err := s.client.post(ctx, s.endpoint, identity, payload)
	if err != nil {
		return nil, fmt.Errorf("graphql.FetchMarkets: %w", err)
	}

	markets, err := decodeGraphQL(body)
	if err != nil {
		return nil, fmt.Errorf("graphql.FetchMarkets: %w", err)
	}
	return markets, nil
}

// decodeGraphQL valida el envelope. Solo data.markets == [] es confirmed-empty:
// un path ausente, null o con errors[] es ambiguo.
func decodeGraphQL(body []byte) ([]domain.Market, error) {
	if !gjson.ValidBytes(body) {
		return nil, domain.NewAmbiguousShape(sourceNameGraphQL, "body is not valid JSON", nil)
	}

	root := gjson.ParseBytes(body)
	if errs := root.Get("errors"); errs.IsArray() && len(errs.Array()) > 0 {
		return nil, domain.NewAmbiguousShape(sourceNameGraphQL,
			"response carries errors: "+errs.Get("0.message").String(), nil)
	}

	list := root.Get(marketsPath)
	if !list.Exists() || list.Type == gjson.Null {
		return nil, domain.NewAmbiguousShape(sourceNameGraphQL, "missing "+marketsPath, nil)
	}
	if !list.IsArray() {
		return nil, domain.NewAmbiguousShape(sourceNameGraphQL, marketsPath+" is not a list", nil)
	}

	items := list.Array()
	if len(items) == 0 {
		return nil, domain.NewConfirmedEmpty(sourceNameGraphQL)
	}

	n := newNormalizer(sourceNameGraphQL)
	markets := make([]domain.Market, 0, len(items))
	for _, item := range items {
		if !item.IsObject() {
			n.skipped++
			continue
		}
		m, ok := n.market(
			item.Get("id").String(),
			item.Get("question").String(),
			item.Get("slug").String(),
			item.Get("outcomePrices"),
			item.Get("endDate"),
		)
		if ok {
			markets = append(markets, m)
		}
	}

	slog.Debug("graphql payload normalized",
		"markets", len(markets),
		"skipped", n.skipped,
		"parse_errors", n.parseErrors,
	)
	return markets, nil
}
