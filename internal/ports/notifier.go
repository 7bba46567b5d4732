package ports

import (
	"context"

	"github.com/alejandrodnm/polyexpiry/internal/domain"
)

// Renderer convierte los mercados filtrados en el texto de la alerta.
// Un string vacío significa "no enviar nada".
type Renderer interface {
	Render(markets []domain.Market) (string, error)
}

// Sender entrega el texto de una alerta ya renderizada a un destino (consola, webhook, log).
type Sender interface {
	Send(ctx context.Context, text string) error
	// Name devuelve un identificador legible ("console", "webhook", ...).
	Name() string
}
