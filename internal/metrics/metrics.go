package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Poll metrics
	PollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polyexpiry_polls_total",
			Help: "Total number of polls run",
		},
		[]string{"source", "outcome"}, // ok, empty, fetch_error, pipeline_error
	)

	PollDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "polyexpiry_poll_duration_seconds",
			Help:    "Duration of a full poll (fetch, filter, render, deliver)",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Fetch metrics
	FetchAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polyexpiry_fetch_attempts_total",
			Help: "Total number of fetch attempts against a market source",
		},
		[]string{"source", "result"}, // success, confirmed_empty, transport_error, shape_error
	)

	MarketsFetched = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "polyexpiry_markets_fetched",
			Help: "Markets returned by the source in the last poll",
		},
		[]string{"source"},
	)

	MarketsMatched = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "polyexpiry_markets_matched",
			Help: "Markets that passed both filters in the last poll",
		},
		[]string{"source"},
	)

	ParseErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polyexpiry_market_parse_errors_total",
			Help: "Per-market field parse failures (market kept, predicate invalidated)",
		},
		[]string{"source", "field"},
	)

	// Delivery metrics
	AlertsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polyexpiry_alerts_sent_total",
			Help: "Total number of alert deliveries",
		},
		[]string{"sender", "status"}, // success/error
	)
)

// RecordFetchAttempt clasifica el resultado de un intento de fetch.
func RecordFetchAttempt(source, result string) {
	FetchAttempts.WithLabelValues(source, result).Inc()
}

// RecordPoll registra el resultado de un poll completo.
func RecordPoll(source, outcome string, fetched, matched int, duration time.Duration) {
	PollsTotal.WithLabelValues(source, outcome).Inc()
	PollDuration.Observe(duration.Seconds())
	MarketsFetched.WithLabelValues(source).Set(float64(fetched))
	MarketsMatched.WithLabelValues(source).Set(float64(matched))
}

// RecordParseError cuenta un campo que no se pudo parsear.
func RecordParseError(source, field string) {
	ParseErrors.WithLabelValues(source, field).Inc()
}

// RecordAlertSent registra una entrega a un sender.
func RecordAlertSent(sender string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	AlertsSent.WithLabelValues(sender, status).Inc()
}

// Serve expone /metrics y /health en addr hasta que ctx se cancele.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"status":"healthy"}`)
	})

	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	slog.Info("metrics server listening", "addr", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics.Serve: %w", err)
	}
	return nil
}
