// Package alert convierte los mercados filtrados en el texto que se entrega a los senders.
// El output es determinista: mismo input, mismo texto, byte a byte.
package alert

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/polyexpiry/internal/domain"
)

const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatTable    = "table"
	FormatJSON     = "json"

	DefaultBaseURL = "https://polymarket.com"
	DefaultHeader  = "📈 Polymarket - Expiring Soon:"

	// dateLayout siempre se aplica sobre la hora en UTC.
	dateLayout = "Mon, 02 Jan 2006 15:04 UTC"
	separator  = "---"

	tableQuestionMax = 60
)

// Config controla el formato de las alertas.
type Config struct {
	Format        string
	BaseURL       string
	Header        string
	NoMatchesText string // vacío = derivado de la ventana
	QuietOnEmpty  bool
}

// Formatter implementa ports.Renderer.
type Formatter struct {
	format       string
	baseURL      string
	header       string
	noMatches    string
	quietOnEmpty bool
}

// NewFormatter crea un Formatter. La ventana solo se usa para el texto de "sin resultados".
func NewFormatter(cfg Config, w domain.FilterWindow) (*Formatter, error) {
	if cfg.Format == "" {
		cfg.Format = FormatText
	}
	switch cfg.Format {
	case FormatText, FormatMarkdown, FormatTable, FormatJSON:
	default:
		return nil, fmt.Errorf("alert.NewFormatter: unknown format %q", cfg.Format)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Header == "" {
		cfg.Header = DefaultHeader
	}
	if cfg.NoMatchesText == "" {
		cfg.NoMatchesText = NoMatchesText(w)
	}
	return &Formatter{
		format:       cfg.Format,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		header:       cfg.Header,
		noMatches:    cfg.NoMatchesText,
		quietOnEmpty: cfg.QuietOnEmpty,
	}, nil
}

// NoMatchesText devuelve la línea por defecto cuando ningún mercado pasa los filtros.
func NoMatchesText(w domain.FilterWindow) string {
	return fmt.Sprintf("No profitable markets found expiring in the next %s.", humanDuration(w.Expiration))
}

// Render implementa ports.Renderer. Sin mercados devuelve la línea de "sin resultados",
// o "" si QuietOnEmpty está activo.
func (f *Formatter) Render(markets []domain.Market) (string, error) {
	if len(markets) == 0 {
		if f.quietOnEmpty {
			return "", nil
		}
		return f.noMatches, nil
	}

	switch f.format {
	case FormatMarkdown:
		return f.renderMarkdown(markets), nil
	case FormatTable:
		return f.renderTable(markets)
	case FormatJSON:
		return f.renderJSON(markets)
	default:
		return f.renderText(markets), nil
	}
}

// Link construye el enlace público del mercado.
func (f *Formatter) Link(slug string) string {
	return f.baseURL + "/event/" + url.PathEscape(slug)
}

func (f *Formatter) renderText(markets []domain.Market) string {
	blocks := make([]string, len(markets))
	for i, m := range markets {
		blocks[i] = m.Question + "\n" +
			"Resolves: " + resolvesAt(m) + "\n" +
			f.Link(m.Slug)
	}
	return f.header + "\n\n" + strings.Join(blocks, "\n"+separator+"\n")
}

func (f *Formatter) renderMarkdown(markets []domain.Market) string {
	var sb strings.Builder
	sb.WriteString(f.header)
	sb.WriteString("\n")
	for _, m := range markets {
		fmt.Fprintf(&sb, "\n- [%s](%s) (resolves %s)", m.Question, f.Link(m.Slug), resolvesAt(m))
	}
	return sb.String()
}

func (f *Formatter) renderTable(markets []domain.Market) (string, error) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.Header("#", "Market", "Resolves", "Link")

	for i, m := range markets {
		if err := table.Append(
			fmt.Sprintf("%d", i+1),
			domain.TruncateQuestion(m.Question, m.ID, tableQuestionMax),
			resolvesAt(m),
			f.Link(m.Slug),
		); err != nil {
			return "", fmt.Errorf("alert.renderTable: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return "", fmt.Errorf("alert.renderTable: %w", err)
	}

	return f.header + "\n\n" + strings.TrimRight(buf.String(), "\n"), nil
}

type jsonAlert struct {
	ID         string `json:"id"`
	Question   string `json:"question"`
	Slug       string `json:"slug"`
	Link       string `json:"link"`
	ResolvesAt string `json:"resolves_at"`
}

func (f *Formatter) renderJSON(markets []domain.Market) (string, error) {
	out := make([]jsonAlert, len(markets))
	for i, m := range markets {
		out[i] = jsonAlert{
			ID:         m.ID,
			Question:   m.Question,
			Slug:       m.Slug,
			Link:       f.Link(m.Slug),
			ResolvesAt: m.ExpiresAt.UTC().Format(time.RFC3339),
		}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("alert.renderJSON: %w", err)
	}
	return string(data), nil
}

func resolvesAt(m domain.Market) string {
	if !m.HasExpiration() {
		return "unknown"
	}
	return m.ExpiresAt.UTC().Format(dateLayout)
}

// humanDuration: "2 hours", "90 minutes", o el formato de time.Duration si no es redondo.
func humanDuration(d time.Duration) string {
	switch {
	case d == time.Hour:
		return "hour"
	case d > 0 && d%time.Hour == 0:
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	case d > 0 && d%time.Minute == 0:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	default:
		return d.String()
	}
}
