package polymarket

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/alejandrodnm/polyexpiry/internal/domain"
	"github.com/alejandrodnm/polyexpiry/internal/metrics"
)

const (
	fieldOutcomePrices  = "outcome_prices"
	fieldExpirationTime = "expiration_time"
)

// Layouts con zona explícita (Z u offset).
var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04Z07:00",
}

// Layouts sin zona: time.Parse los interpreta como UTC.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// normalizer convierte los campos raw de cualquier fuente a domain.Market.
// Los fallos de parseo por campo se loguean y se cuentan; nunca abortan el batch.
type normalizer struct {
	source      string
	parseErrors int
	skipped     int
}

func newNormalizer(source string) *normalizer {
	return &normalizer{source: source}
}

// market construye un domain.Market. Devuelve false si al mercado le falta
// question o slug, sin los cuales no se puede construir la alerta.
func (n *normalizer) market(id, question, slug string, prices, expiry gjson.Result) (domain.Market, bool) {
	question = strings.TrimSpace(question)
	slug = strings.TrimSpace(slug)
	if question == "" || slug == "" {
		n.skipped++
		slog.Debug("skipping incomplete market", "source", n.source, "market", id)
		return domain.Market{}, false
	}

	m := domain.Market{
		ID:       id,
		Question: question,
		Slug:     slug,
	}

	if exists(prices) {
		p, err := parseOutcomePrices(prices)
		if err != nil {
			n.report(&domain.ParseError{MarketID: id, Field: fieldOutcomePrices, Value: prices.Raw, Err: err})
		} else {
			m.OutcomePrices = p
		}
	}

	if exists(expiry) && !(expiry.Type == gjson.String && strings.TrimSpace(expiry.Str) == "") {
		t, err := parseTimestamp(expiry)
		if err != nil {
			n.report(&domain.ParseError{MarketID: id, Field: fieldExpirationTime, Value: expiry.Raw, Err: err})
		} else {
			m.ExpiresAt = t
		}
	}

	return m, true
}

func (n *normalizer) report(err *domain.ParseError) {
	n.parseErrors++
	metrics.RecordParseError(n.source, err.Field)
	slog.Debug("market field unparseable",
		"source", n.source,
		"market", err.MarketID,
		"field", err.Field,
		"err", err.Err,
	)
}

func exists(v gjson.Result) bool {
	return v.Exists() && v.Type != gjson.Null
}

// parseOutcomePrices acepta una lista JSON o una string que contiene una lista JSON
// (el formato de Gamma: "[\"0.42\",\"0.58\"]"), con elementos numéricos, strings
// numéricas u objetos {outcome, price}. Si un solo elemento falla, falla toda la lista:
// una lista parcial nunca se evalúa como completa.
func parseOutcomePrices(v gjson.Result) ([]float64, error) {
	list := v
	if v.Type == gjson.String {
		if !gjson.Valid(v.Str) {
			return nil, errors.New("outer string is not valid JSON")
		}
		list = gjson.Parse(v.Str)
	}
	if !list.IsArray() {
		return nil, fmt.Errorf("expected a list, got %s", list.Type)
	}

	elems := list.Array()
	prices := make([]float64, 0, len(elems))
	for i, e := range elems {
		p, err := parsePrice(e)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		prices = append(prices, p)
	}
	return prices, nil
}

// parsePrice parsea un elemento de la lista de precios.
func parsePrice(e gjson.Result) (float64, error) {
	if e.IsObject() {
		e = e.Get("price")
	}

	var s string
	switch e.Type {
	case gjson.String:
		s = strings.TrimSpace(e.Str)
	case gjson.Number:
		s = e.Raw
	default:
		return 0, fmt.Errorf("unexpected %s value", e.Type)
	}

	// ParseFloat acepta floats hexadecimales ("0x1p-1"); un precio nunca viene así.
	if unsigned := strings.TrimLeft(s, "+-"); len(unsigned) > 1 && unsigned[0] == '0' && (unsigned[1] == 'x' || unsigned[1] == 'X') {
		return 0, fmt.Errorf("hex price %q", s)
	}
	p, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0, fmt.Errorf("non-finite price %q", s)
	}
	return p, nil
}

// parseTimestamp acepta un Unix timestamp (segundos o milisegundos, número o string)
// o una fecha ISO-8601.
func parseTimestamp(v gjson.Result) (time.Time, error) {
	switch v.Type {
	case gjson.Number:
		return parseUnix(v.Raw)
	case gjson.String:
		s := strings.TrimSpace(v.Str)
		if t, err := parseUnix(s); err == nil {
			return t, nil
		}
		return parseExpiration(s)
	default:
		return time.Time{}, fmt.Errorf("unexpected %s value", v.Type)
	}
}

// parseUnix interpreta s como segundos, o milisegundos si es mayor que 1e12.
func parseUnix(s string) (time.Time, error) {
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		if sec > 1e12 {
			return time.UnixMilli(sec).UTC(), nil
		}
		return time.Unix(sec, 0).UTC(), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return time.Time{}, fmt.Errorf("not a unix timestamp: %q", s)
	}
	if f > 1e12 {
		f /= 1000
	}
	sec := int64(f)
	nsec := int64((f - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC(), nil
}

// parseExpiration parsea una fecha ISO-8601. Acepta Z u offset explícito;
// sin zona se asume UTC.
func parseExpiration(s string) (time.Time, error) {
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}
