package domain

import "time"

// Market es un mercado de predicción normalizado, independiente de la fuente.
// Los adapters lo construyen y nadie lo modifica después.
type Market struct {
	ID            string
	Question      string
	Slug          string
	OutcomePrices []float64 // nil si falta o si algún elemento no se pudo parsear
	ExpiresAt     time.Time // UTC; zero value = fecha desconocida
}

// HasExpiration devuelve true si el mercado tiene fecha de resolución conocida.
func (m Market) HasExpiration() bool {
	return !m.ExpiresAt.IsZero()
}

// FilterWindow define los umbrales de un poll. Ambos precios son exclusivos.
type FilterWindow struct {
	MinPrice   float64
	MaxPrice   float64
	Expiration time.Duration
}

// DefaultFilterWindow devuelve los umbrales por defecto: 5%-95%, 2 horas.
func DefaultFilterWindow() FilterWindow {
	return FilterWindow{
		MinPrice:   0.05,
		MaxPrice:   0.95,
		Expiration: 2 * time.Hour,
	}
}

// TruncateQuestion devuelve la pregunta del mercado truncada a maxLen caracteres.
// Si la pregunta está vacía usa el id como fallback.
func TruncateQuestion(question, id string, maxLen int) string {
	q := []rune(question)
	if len(q) == 0 {
		q = []rune(id)
		if len(q) > 20 {
			q = append(q[:20], []rune("...")...)
		}
	}
	if maxLen > 3 && len(q) > maxLen {
		q = append(q[:maxLen-3], []rune("...")...)
	}
	return string(q)
}
