package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/polyexpiry/internal/domain"
	"github.com/alejandrodnm/polyexpiry/internal/metrics"
	"github.com/alejandrodnm/polyexpiry/internal/ports"
)

const (
	outcomeOK            = "ok"
	outcomeEmpty         = "empty"
	outcomeFetchError    = "fetch_error"
	outcomePipelineError = "pipeline_error"
)

// Config contiene la configuración del scanner.
type Config struct {
	Interval time.Duration
	Window   domain.FilterWindow
	Once     bool
}

// DefaultConfig devuelve una configuración sensata para producción.
func DefaultConfig() Config {
	return Config{
		Interval: 5 * time.Minute,
		Window:   domain.DefaultFilterWindow(),
	}
}

// Scanner es el orquestador del poll: fetch → filter → render → deliver.
type Scanner struct {
	cfg      Config
	retrier  *Retrier
	filter   *Filter
	renderer ports.Renderer
	sender   ports.Sender
	storage  ports.Storage
	now      func() time.Time
}

// New crea un Scanner con todas las dependencias inyectadas. storage puede ser nil.
func New(
	cfg Config,
	retrier *Retrier,
	renderer ports.Renderer,
	sender ports.Sender,
	storage ports.Storage,
) *Scanner {
	return &Scanner{
		cfg:      cfg,
		retrier:  retrier,
		filter:   NewFilter(cfg.Window),
		renderer: renderer,
		sender:   sender,
		storage:  storage,
		now:      time.Now,
	}
}

// WithClock reemplaza el reloj. Solo para tests.
func (s *Scanner) WithClock(now func() time.Time) *Scanner {
	s.now = now
	return s
}

// Run ejecuta polls hasta que el contexto se cancele.
// Con cfg.Once ejecuta un único poll y devuelve su error.
func (s *Scanner) Run(ctx context.Context) error {
	slog.Info("scanner starting",
		"source", s.retrier.Source(),
		"interval", s.cfg.Interval,
		"once", s.cfg.Once,
	)

	if _, err := s.Poll(ctx); err != nil {
		slog.Error("poll failed", "err", err)
		if s.cfg.Once {
			return err
		}
	}

	if s.cfg.Once {
		return nil
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("scanner stopped")
			return nil
		case <-ticker.C:
			if _, err := s.Poll(ctx); err != nil {
				slog.Error("poll failed", "err", err)
			}
		}
	}
}

// Poll ejecuta un poll completo. now se captura una sola vez al inicio y se usa
// para todo el batch. Un fallo de fetch o de pipeline aborta solo este poll.
func (s *Scanner) Poll(ctx context.Context) (domain.PollRecord, error) {
	began := time.Now()
	now := s.now().UTC()

	rec := domain.PollRecord{
		ID:        uuid.NewString(),
		Source:    s.retrier.Source(),
		StartedAt: now,
	}
	log := slog.With("poll", rec.ID, "source", rec.Source)

	res, err := s.retrier.Fetch(ctx)
	rec.Attempts = res.Attempts
	if err != nil {
		return s.finish(ctx, rec, began, outcomeFetchError, fmt.Errorf("scanner.Poll: %w", err))
	}
	rec.Fetched = len(res.Markets)

	rec.Matched = s.filter.Apply(res.Markets, now)

	text, err := s.renderer.Render(rec.Matched)
	if err != nil {
		return s.finish(ctx, rec, began, outcomePipelineError,
			fmt.Errorf("scanner.Poll: %w", &domain.PipelineError{Stage: "render", Err: err}))
	}

	if text != "" {
		if err := s.sender.Send(ctx, text); err != nil {
			return s.finish(ctx, rec, began, outcomePipelineError,
				fmt.Errorf("scanner.Poll: %w", &domain.PipelineError{Stage: "deliver", Err: err}))
		}
	}

	outcome := outcomeOK
	if len(rec.Matched) == 0 {
		outcome = outcomeEmpty
	}
	rec, _ = s.finish(ctx, rec, began, outcome, nil)

	log.Info("poll complete",
		"attempts", rec.Attempts,
		"fetched", rec.Fetched,
		"matched", len(rec.Matched),
		"confirmed_empty", res.ConfirmedEmpty,
		"duration", rec.Duration.Round(time.Millisecond),
	)
	return rec, nil
}

// finish cierra el registro del poll: duración, métricas y journal.
func (s *Scanner) finish(ctx context.Context, rec domain.PollRecord, began time.Time, outcome string, err error) (domain.PollRecord, error) {
	rec.Duration = time.Since(began)
	if err != nil {
		rec.Err = err.Error()
	}

	metrics.RecordPoll(rec.Source, outcome, rec.Fetched, len(rec.Matched), rec.Duration)

	if s.storage != nil {
		if serr := s.storage.SavePoll(ctx, rec); serr != nil {
			slog.Warn("storage error", "poll", rec.ID, "err", serr)
		}
	}
	return rec, err
}
