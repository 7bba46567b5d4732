package polymarket

import "encoding/json"

// DTOs raw de las APIs de Polymarket. Solo se usan dentro de este paquete.
// La conversión a domain.Market se hace en mapping.go.

// --- Gamma REST API ---

// gammaEvent es un evento de GET /events. Eventos y mercados se decodifican uno a uno
// para que un registro con un campo raro no tumbe todo el batch.
type gammaEvent struct {
	ID      string            `json:"id"`
	Slug    string            `json:"slug"`
	Title   string            `json:"title"`
	Markets []json.RawMessage `json:"markets"`
}

// gammaMarket es un mercado anidado dentro de un evento.
// OutcomePrices llega como string JSON: "[\"0.42\", \"0.58\"]".
// EndDate y OutcomePrices se quedan raw: los parsea el normalizer.
type gammaMarket struct {
	ID            string          `json:"id"`
	Question      string          `json:"question"`
	Slug          string          `json:"slug"`
	EndDate       json.RawMessage `json:"endDate"`
	OutcomePrices json.RawMessage `json:"outcomePrices"`
	Active        bool            `json:"active"`
	Closed        bool            `json:"closed"`
}

// --- GraphQL ---

// graphqlRequest es el envelope estándar de una petición GraphQL.
type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}
