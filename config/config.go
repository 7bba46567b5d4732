package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/polyexpiry/internal/domain"
)

const (
	SourceREST    = "rest"
	SourceGraphQL = "graphql"
	SourceHTML    = "html"

	SinkConsole = "console"
	SinkLog     = "log"
	SinkWebhook = "webhook"
)

// Config es la configuración completa del scanner.
type Config struct {
	Scanner  ScannerConfig  `yaml:"scanner"`
	Source   SourceConfig   `yaml:"source"`
	Retry    RetryConfig    `yaml:"retry"`
	Filter   FilterConfig   `yaml:"filter"`
	Alert    AlertConfig    `yaml:"alert"`
	Delivery DeliveryConfig `yaml:"delivery"`
	Storage  StorageConfig  `yaml:"storage"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
}

// ScannerConfig controla el loop de polling.
type ScannerConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
}

// SourceConfig elige el adapter y sus endpoints.
type SourceConfig struct {
	Kind       string           `yaml:"kind"` // rest | graphql | html
	EventsURL  string           `yaml:"events_url"`
	GraphQLURL string           `yaml:"graphql_url"`
	PageURL    string           `yaml:"page_url"`
	PagePath   string           `yaml:"page_path"` // path gjson dentro de __NEXT_DATA__
	PageSize   int              `yaml:"page_size"`
	TimeoutMs  int              `yaml:"timeout_ms"`
	RatePerSec float64          `yaml:"rate_per_sec"`
	Identities []IdentityConfig `yaml:"identities"`
}

// IdentityConfig es un juego de headers para la rotación del Retrier.
type IdentityConfig struct {
	Name    string            `yaml:"name"`
	Headers map[string]string `yaml:"headers"`
}

// RetryConfig controla los reintentos del fetch.
type RetryConfig struct {
	MaxRetries int `yaml:"max_retries"`
	DelayMs    int `yaml:"delay_ms"`
}

// FilterConfig son los umbrales del filtro. Los dos precios son exclusivos.
type FilterConfig struct {
	MinPrice          float64 `yaml:"min_price"`
	MaxPrice          float64 `yaml:"max_price"`
	ExpirationMinutes int     `yaml:"expiration_minutes"`
}

// AlertConfig controla el texto de las alertas.
type AlertConfig struct {
	Format        string `yaml:"format"` // text | markdown | table | json
	BaseURL       string `yaml:"base_url"`
	Header        string `yaml:"header"`
	NoMatchesText string `yaml:"no_matches_text"`
	QuietOnEmpty  bool   `yaml:"quiet_on_empty"`
}

// DeliveryConfig elige a dónde se mandan las alertas.
type DeliveryConfig struct {
	Sinks            []string `yaml:"sinks"` // console | log | webhook
	WebhookURL       string   `yaml:"webhook_url"`
	WebhookKind      string   `yaml:"webhook_kind"` // discord | slack
	WebhookTimeoutMs int      `yaml:"webhook_timeout_ms"`
}

// StorageConfig controla el journal de polls.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, ":memory:", o vacío para desactivar
}

// MetricsConfig controla el endpoint de Prometheus.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // vacío = desactivado
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Las variables de entorno sobreescriben los valores del YAML.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return cfg, nil
}

// Parse construye la configuración a partir de YAML, aplica env y defaults y la valida.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default devuelve la configuración por defecto, sin archivo.
func Default() *Config {
	var cfg Config
	setDefaults(&cfg)
	return &cfg
}

// PollInterval devuelve el intervalo entre polls como time.Duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Scanner.IntervalSeconds) * time.Second
}

// Window devuelve la ventana de filtrado del poll.
func (c *Config) Window() domain.FilterWindow {
	return domain.FilterWindow{
		MinPrice:   c.Filter.MinPrice,
		MaxPrice:   c.Filter.MaxPrice,
		Expiration: time.Duration(c.Filter.ExpirationMinutes) * time.Minute,
	}
}

// FetchTimeout devuelve el timeout de cada petición a la fuente.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Source.TimeoutMs) * time.Millisecond
}

// RetryDelay devuelve la espera entre intentos.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Retry.DelayMs) * time.Millisecond
}

// WebhookTimeout devuelve el timeout del POST al webhook.
func (c *Config) WebhookTimeout() time.Duration {
	return time.Duration(c.Delivery.WebhookTimeoutMs) * time.Millisecond
}

// Identities devuelve el pool de identidades; vacío si no hay ninguna configurada.
func (c *Config) Identities() []domain.Identity {
	ids := make([]domain.Identity, 0, len(c.Source.Identities))
	for i, id := range c.Source.Identities {
		name := id.Name
		if name == "" {
			name = fmt.Sprintf("identity-%d", i+1)
		}
		ids = append(ids, domain.Identity{Name: name, Headers: id.Headers})
	}
	return ids
}

// Validate comprueba que la configuración sea coherente.
func (c *Config) Validate() error {
	var errs []error

	switch c.Source.Kind {
	case SourceREST, SourceHTML:
	case SourceGraphQL:
		if c.Source.GraphQLURL == "" {
			errs = append(errs, errors.New("source.graphql_url is required for kind graphql"))
		}
	default:
		errs = append(errs, fmt.Errorf("source.kind: unknown %q (rest|graphql|html)", c.Source.Kind))
	}

	if c.Filter.MinPrice < 0 || c.Filter.MaxPrice > 1 || c.Filter.MinPrice >= c.Filter.MaxPrice {
		errs = append(errs, fmt.Errorf("filter: need 0 <= min_price < max_price <= 1, got %v / %v",
			c.Filter.MinPrice, c.Filter.MaxPrice))
	}

	switch c.Alert.Format {
	case "text", "markdown", "table", "json":
	default:
		errs = append(errs, fmt.Errorf("alert.format: unknown %q (text|markdown|table|json)", c.Alert.Format))
	}

	for _, sink := range c.Delivery.Sinks {
		switch sink {
		case SinkConsole, SinkLog:
		case SinkWebhook:
			if c.Delivery.WebhookURL == "" {
				errs = append(errs, errors.New("delivery.webhook_url is required for the webhook sink"))
			}
		default:
			errs = append(errs, fmt.Errorf("delivery.sinks: unknown %q (console|log|webhook)", sink))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config.Validate: %w", err)
	}
	return nil
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("SOURCE_KIND"); v != "" {
		cfg.Source.Kind = strings.ToLower(v)
	}
	if v := os.Getenv("WEBHOOK_URL"); v != "" {
		cfg.Delivery.WebhookURL = v
	}
	if v := os.Getenv("STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Scanner.IntervalSeconds <= 0 {
		cfg.Scanner.IntervalSeconds = 300
	}
	if cfg.Source.Kind == "" {
		cfg.Source.Kind = SourceREST
	}
	if cfg.Source.PageSize <= 0 {
		cfg.Source.PageSize = 100
	}
	if cfg.Source.TimeoutMs <= 0 {
		cfg.Source.TimeoutMs = 15_000
	}
	if cfg.Source.RatePerSec <= 0 {
		cfg.Source.RatePerSec = 5
	}
	if cfg.Retry.MaxRetries <= 0 {
		cfg.Retry.MaxRetries = 3
	}
	if cfg.Retry.DelayMs <= 0 {
		cfg.Retry.DelayMs = 1000
	}
	// Sin umbrales en el YAML: 5% y 95%.
	if cfg.Filter.MinPrice == 0 && cfg.Filter.MaxPrice == 0 {
		cfg.Filter.MinPrice = 0.05
		cfg.Filter.MaxPrice = 0.95
	}
	if cfg.Filter.ExpirationMinutes <= 0 {
		cfg.Filter.ExpirationMinutes = 120
	}
	if cfg.Alert.Format == "" {
		cfg.Alert.Format = "text"
	}
	if len(cfg.Delivery.Sinks) == 0 {
		cfg.Delivery.Sinks = []string{SinkConsole}
	}
	if cfg.Delivery.WebhookKind == "" {
		cfg.Delivery.WebhookKind = "discord"
	}
	if cfg.Delivery.WebhookTimeoutMs <= 0 {
		cfg.Delivery.WebhookTimeoutMs = 10_000
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
