package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/polyexpiry/config"
	"github.com/alejandrodnm/polyexpiry/internal/adapters/notify"
	"github.com/alejandrodnm/polyexpiry/internal/adapters/polymarket"
	"github.com/alejandrodnm/polyexpiry/internal/adapters/storage"
	"github.com/alejandrodnm/polyexpiry/internal/alert"
	"github.com/alejandrodnm/polyexpiry/internal/metrics"
	"github.com/alejandrodnm/polyexpiry/internal/ports"
	"github.com/alejandrodnm/polyexpiry/internal/scanner"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one poll and exit (for cron)")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	sourceKind := flag.String("source", "", "market source: rest|graphql|html (overrides config)")
	history := flag.Bool("history", false, "print the polls journaled in the last 24h and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *sourceKind != "" {
		cfg.Source.Kind = *sourceKind
		if err := cfg.Validate(); err != nil {
			slog.Error("invalid -source", "err", err)
			os.Exit(1)
		}
	}
	setupLogger(cfg.Log)

	if *history {
		if err := printHistory(context.Background(), cfg, os.Stdout); err != nil {
			slog.Error("history failed", "err", err)
			os.Exit(1)
		}
		return
	}

	slog.Info("polyexpiry starting",
		"config", *configPath,
		"source", cfg.Source.Kind,
		"interval", cfg.PollInterval(),
		"window", cfg.Window().Expiration,
		"once", *once,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, *once); err != nil {
		slog.Error("scanner exited with error", "err", err)
		cancel()
		os.Exit(1)
	}

	slog.Info("polyexpiry stopped cleanly")
}

// run construye el pipeline y ejecuta el scanner hasta que ctx se cancele (o un solo poll con once).
func run(ctx context.Context, cfg *config.Config, once bool) error {
	if cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr); err != nil {
				slog.Error("metrics server failed", "err", err)
			}
		}()
	}

	client := polymarket.NewClient(cfg.FetchTimeout(), cfg.Source.RatePerSec)
	source, err := buildSource(cfg, client)
	if err != nil {
		return err
	}

	retrier := scanner.NewRetrier(source, scanner.RetryConfig{
		MaxRetries: cfg.Retry.MaxRetries,
		Delay:      cfg.RetryDelay(),
		Identities: cfg.Identities(),
	})

	formatter, err := alert.NewFormatter(alert.Config{
		Format:        cfg.Alert.Format,
		BaseURL:       cfg.Alert.BaseURL,
		Header:        cfg.Alert.Header,
		NoMatchesText: cfg.Alert.NoMatchesText,
		QuietOnEmpty:  cfg.Alert.QuietOnEmpty,
	}, cfg.Window())
	if err != nil {
		return err
	}

	sender, err := buildSender(cfg)
	if err != nil {
		return err
	}

	var store ports.Storage
	if cfg.Storage.DSN != "" {
		db, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
		if err != nil {
			return err
		}
		defer db.Close()
		store = db
	}

	s := scanner.New(scanner.Config{
		Interval: cfg.PollInterval(),
		Window:   cfg.Window(),
		Once:     once,
	}, retrier, formatter, sender, store)

	return s.Run(ctx)
}

func buildSource(cfg *config.Config, client *polymarket.Client) (ports.MarketSource, error) {
	switch cfg.Source.Kind {
	case config.SourceREST:
		return polymarket.NewEventsSource(client, cfg.Source.EventsURL, cfg.Source.PageSize), nil
	case config.SourceGraphQL:
		return polymarket.NewGraphQLSource(client, cfg.Source.GraphQLURL, cfg.Source.PageSize), nil
	case config.SourceHTML:
		return polymarket.NewPageSource(client, cfg.Source.PageURL, cfg.Source.PagePath), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
	}
}

func buildSender(cfg *config.Config) (ports.Sender, error) {
	var senders []ports.Sender
	for _, sink := range cfg.Delivery.Sinks {
		switch sink {
		case config.SinkConsole:
			senders = append(senders, notify.NewConsole())
		case config.SinkLog:
			senders = append(senders, notify.NewLog(nil))
		case config.SinkWebhook:
			wh, err := notify.NewWebhook(cfg.Delivery.WebhookURL, cfg.Delivery.WebhookKind, cfg.WebhookTimeout())
			if err != nil {
				return nil, err
			}
			senders = append(senders, wh)
		default:
			return nil, fmt.Errorf("unknown sink %q", sink)
		}
	}
	if len(senders) == 0 {
		return nil, errors.New("no delivery sinks configured")
	}
	return notify.NewMulti(senders...), nil
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
