package ports

import (
	"context"

	"github.com/alejandrodnm/polyexpiry/internal/domain"
)

// MarketSource obtiene mercados de una forma concreta de upstream (REST, GraphQL, HTML)
// y los normaliza a domain.Market.
type MarketSource interface {
	// Name identifica la fuente en logs y métricas ("rest" | "graphql" | "html").
	Name() string

	// FetchMarkets hace un único intento con la identidad dada.
	// Devuelve *domain.TransportError o *domain.ShapeError; un ShapeError
	// confirmed-empty significa cero mercados válidos, no un fallo.
	FetchMarkets(ctx context.Context, identity domain.Identity) ([]domain.Market, error)
}
