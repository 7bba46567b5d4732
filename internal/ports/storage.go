package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/polyexpiry/internal/domain"
)

// Storage es el journal de polls. Solo auditoría: el pipeline no consulta
// polls anteriores para decidir qué alertar.
type Storage interface {
	// SavePoll persiste el resumen del poll y los mercados alertados.
	SavePoll(ctx context.Context, poll domain.PollRecord) error

	// GetHistory devuelve los polls iniciados en el rango de tiempo dado.
	GetHistory(ctx context.Context, from, to time.Time) ([]domain.PollRecord, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
