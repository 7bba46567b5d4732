package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alejandrodnm/polyexpiry/internal/metrics"
	"github.com/alejandrodnm/polyexpiry/internal/ports"
)

// Multi reparte la misma alerta entre varios senders en paralelo. Un sender que falla
// no impide la entrega al resto; los errores se devuelven juntos, en el orden de los senders.
type Multi struct {
	senders []ports.Sender
}

// NewMulti crea un Multi con los senders dados, en orden.
func NewMulti(senders ...ports.Sender) *Multi {
	return &Multi{senders: senders}
}

func (m *Multi) Name() string { return "multi" }

func (m *Multi) Send(ctx context.Context, text string) error {
	// Un slot por sender: el resultado no depende de qué goroutine termina antes.
	errs := make([]error, len(m.senders))

	var wg sync.WaitGroup
	for i, s := range m.senders {
		wg.Add(1)
		go func(i int, s ports.Sender) {
			defer wg.Done()
			err := s.Send(ctx, text)
			metrics.RecordAlertSent(s.Name(), err)
			if err != nil {
				slog.Error("sender failed", "sender", s.Name(), "err", err)
				errs[i] = fmt.Errorf("%s: %w", s.Name(), err)
				return
			}
			slog.Debug("alert sent", "sender", s.Name())
		}(i, s)
	}
	wg.Wait()

	return errors.Join(errs...)
}
