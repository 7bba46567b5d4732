package scanner

import (
	"math"
	"time"

	"github.com/alejandrodnm/polyexpiry/internal/domain"
)

// IsProfitable devuelve true si el mercado tiene precios y todos están
// estrictamente entre MinPrice y MaxPrice. Sin precios, nunca es rentable.
func IsProfitable(m domain.Market, w domain.FilterWindow) bool {
	if len(m.OutcomePrices) == 0 {
		return false
	}
	for _, p := range m.OutcomePrices {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return false
		}
		if p <= w.MinPrice || p >= w.MaxPrice {
			return false
		}
	}
	return true
}

// IsExpiringSoon devuelve true si now < ExpiresAt <= now + w.Expiration.
// Un mercado sin fecha de expiración nunca expira pronto.
func IsExpiringSoon(m domain.Market, w domain.FilterWindow, now time.Time) bool {
	if !m.HasExpiration() {
		return false
	}
	return m.ExpiresAt.After(now) && !m.ExpiresAt.After(now.Add(w.Expiration))
}

// Filter aplica los dos predicados con una ventana fija.
type Filter struct {
	window domain.FilterWindow
}

// NewFilter crea un Filter con la ventana dada.
func NewFilter(w domain.FilterWindow) *Filter {
	return &Filter{window: w}
}

// Window devuelve la ventana configurada.
func (f *Filter) Window() domain.FilterWindow { return f.window }

// Apply devuelve los mercados que expiran pronto y son rentables, en el orden de entrada.
// now se captura una vez por poll: todos los mercados se evalúan contra el mismo instante.
func (f *Filter) Apply(markets []domain.Market, now time.Time) []domain.Market {
	result := make([]domain.Market, 0, len(markets))
	for _, m := range markets {
		// expiración primero: es una comparación de fechas, más barata que recorrer precios
		if !IsExpiringSoon(m, f.window, now) {
			continue
		}
		if !IsProfitable(m, f.window) {
			continue
		}
		result = append(result, m)
	}
	return result
}
