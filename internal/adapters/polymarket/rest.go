package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/alejandrodnm/polyexpiry/internal/domain"
)

const (
	gammaEventsPath  = "/events"
	defaultPageSize  = 100
	sourceNameEvents = "rest"
)

// EventsSource lee mercados activos de Gamma GET /events y aplana los mercados
// anidados en cada evento.
type EventsSource struct {
	client    *Client
	eventsURL string
	pageSize  int
}

// NewEventsSource crea la fuente REST. eventsURL vacío usa Gamma de producción.
func NewEventsSource(client *Client, eventsURL string, pageSize int) *EventsSource {
	if eventsURL == "" {
		eventsURL = defaultGammaBase + gammaEventsPath
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &EventsSource{client: client, eventsURL: eventsURL, pageSize: pageSize}
}

func (s *EventsSource) Name() string { return sourceNameEvents }

// FetchMarkets implementa ports.MarketSource.
func (s *EventsSource) FetchMarkets(ctx context.Context, identity domain.Identity) ([]domain.Market, error) {
	q := url.Values{}
	q.Set("active", "true")
	q.Set("closed", "false")
	q.Set("limit", strconv.Itoa(s.pageSize))
	endpoint := s.eventsURL + "?" + q.Encode()

	body, err := s.client.get(ctx, endpoint, identity, "application/json")
	if err != nil {
		return nil, fmt.Errorf("rest.FetchMarkets: %w", err)
	}

	markets, err := s.decode(body)
	if err != nil {
		return nil, fmt.Errorf("rest.FetchMarkets: %w", err)
	}
	return markets, nil
}

// decode convierte el body de /events en mercados normalizados.
// Un array vacío es confirmed-empty; cualquier otra cosa que no sea un array es ambigua.
// Cada evento se decodifica por separado: un evento raro se salta sin tumbar el resto.
func (s *EventsSource) decode(body []byte) ([]domain.Market, error) {
	if !gjson.ValidBytes(body) {
		return nil, domain.NewAmbiguousShape(sourceNameEvents, "body is not valid JSON", nil)
	}
	top := gjson.ParseBytes(body)
	if !top.IsArray() {
		return nil, domain.NewAmbiguousShape(sourceNameEvents, "top level is not a list", nil)
	}

	events := top.Array()
	if len(events) == 0 {
		return nil, domain.NewConfirmedEmpty(sourceNameEvents)
	}

	n := newNormalizer(sourceNameEvents)
	var (
		markets       []domain.Market
		skippedEvents int
	)
	for i, raw := range events {
		var ev gammaEvent
		if err := json.Unmarshal([]byte(raw.Raw), &ev); err != nil {
			skippedEvents++
			slog.Debug("skipping undecodable event", "source", sourceNameEvents, "index", i, "err", err)
			continue
		}
		for _, rm := range ev.Markets {
			var gm gammaMarket
			if err := json.Unmarshal(rm, &gm); err != nil {
				n.skipped++
				slog.Debug("skipping undecodable market", "source", sourceNameEvents, "event", ev.ID, "err", err)
				continue
			}
			if gm.Closed {
				continue
			}

			m, ok := n.market(
				gm.ID,
				gm.Question,
				gm.Slug,
				gjson.ParseBytes(gm.OutcomePrices),
				gjson.ParseBytes(gm.EndDate),
			)
			if ok {
				markets = append(markets, m)
			}
		}
	}

	// Ningún evento decodificable: el formato cambió, no es un listado vacío.
	if skippedEvents == len(events) {
		return nil, domain.NewAmbiguousShape(sourceNameEvents, "no decodable events in list", nil)
	}

	slog.Debug("rest payload normalized",
		"events", len(events),
		"skipped_events", skippedEvents,
		"markets", len(markets),
		"skipped", n.skipped,
		"parse_errors", n.parseErrors,
	)
	return markets, nil
}
