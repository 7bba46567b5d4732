package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/polyexpiry/internal/domain"
	"github.com/alejandrodnm/polyexpiry/internal/metrics"
	"github.com/alejandrodnm/polyexpiry/internal/ports"
)

const (
	defaultMaxRetries = 3
	defaultRetryDelay = time.Second
)

// RetryConfig parametriza el Retrier.
type RetryConfig struct {
	MaxRetries int
	Delay      time.Duration
	Identities []domain.Identity
}

// FetchResult es lo que devuelve un fetch exitoso.
type FetchResult struct {
	Markets        []domain.Market
	Attempts       int
	ConfirmedEmpty bool
}

// ExhaustedError se devuelve cuando todos los intentos fallaron.
type ExhaustedError struct {
	Source   string
	Attempts int
	Errs     []error
}

func (e *ExhaustedError) Error() string {
	last := "no attempts made"
	if len(e.Errs) > 0 {
		last = e.Errs[len(e.Errs)-1].Error()
	}
	return fmt.Sprintf("%s: fetch failed after %d attempts: %s", e.Source, e.Attempts, last)
}

// Unwrap permite que errors.As encuentre el TransportError/ShapeError de cualquier intento.
func (e *ExhaustedError) Unwrap() []error { return e.Errs }

// Retrier envuelve el fetch de una MarketSource con reintentos acotados y rotación de identidad.
// Solo reintenta el fetch: filtro, render y entrega nunca se repiten.
type Retrier struct {
	source     ports.MarketSource
	maxRetries int
	delay      time.Duration
	identities []domain.Identity
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewRetrier crea un Retrier. MaxRetries <= 0 usa 3 intentos, Delay <= 0 usa 1s
// y un pool vacío usa domain.DefaultIdentities.
func NewRetrier(source ports.MarketSource, cfg RetryConfig) *Retrier {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.Delay <= 0 {
		cfg.Delay = defaultRetryDelay
	}
	if len(cfg.Identities) == 0 {
		cfg.Identities = domain.DefaultIdentities()
	}
	return &Retrier{
		source:     source,
		maxRetries: cfg.MaxRetries,
		delay:      cfg.Delay,
		identities: cfg.Identities,
		sleep:      sleepCtx,
	}
}

// Source devuelve el nombre de la fuente envuelta.
func (r *Retrier) Source() string { return r.source.Name() }

// Fetch intenta obtener los mercados hasta maxRetries veces.
// Un confirmed-empty es un éxito con cero mercados. Un error no reintentable corta el loop.
func (r *Retrier) Fetch(ctx context.Context) (FetchResult, error) {
	name := r.source.Name()
	var errs []error

	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		identity := r.identities[(attempt-1)%len(r.identities)]

		markets, err := r.source.FetchMarkets(ctx, identity)
		if err == nil {
			metrics.RecordFetchAttempt(name, "success")
			return FetchResult{Markets: markets, Attempts: attempt}, nil
		}
		if domain.IsConfirmedEmpty(err) {
			metrics.RecordFetchAttempt(name, "confirmed_empty")
			slog.Debug("source confirmed zero markets", "source", name, "attempt", attempt)
			return FetchResult{Attempts: attempt, ConfirmedEmpty: true}, nil
		}

		metrics.RecordFetchAttempt(name, attemptResult(err))
		errs = append(errs, err)

		if !domain.IsRetryable(err) {
			return FetchResult{Attempts: attempt}, fmt.Errorf("retry.Fetch: %s: %w", name, err)
		}
		if attempt == r.maxRetries {
			break
		}

		slog.Warn("fetch attempt failed, retrying",
			"source", name,
			"attempt", attempt,
			"max", r.maxRetries,
			"identity", identity.Name,
			"err", err,
		)
		if err := r.sleep(ctx, r.delay); err != nil {
			return FetchResult{Attempts: attempt}, &ExhaustedError{Source: name, Attempts: attempt, Errs: append(errs, err)}
		}
	}

	return FetchResult{Attempts: len(errs)}, &ExhaustedError{Source: name, Attempts: len(errs), Errs: errs}
}

func attemptResult(err error) string {
	var se *domain.ShapeError
	if errors.As(err, &se) {
		return "shape_error"
	}
	return "transport_error"
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
