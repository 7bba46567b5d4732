package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	WebhookDiscord = "discord"
	WebhookSlack   = "slack"

	defaultWebhookTimeout = 10 * time.Second

	// Discord rechaza mensajes de más de 2000 caracteres.
	discordMaxContent = 2000
)

// Webhook implementa ports.Sender con un POST JSON a un webhook de Discord o Slack.
type Webhook struct {
	client *resty.Client
	url    string
	kind   string
}

// NewWebhook crea el sender. kind es "discord" (payload {"content"}) o "slack" (payload {"text"}).
func NewWebhook(url, kind string, timeout time.Duration) (*Webhook, error) {
	if url == "" {
		return nil, fmt.Errorf("notify.NewWebhook: empty url")
	}
	if kind == "" {
		kind = WebhookDiscord
	}
	if kind != WebhookDiscord && kind != WebhookSlack {
		return nil, fmt.Errorf("notify.NewWebhook: unknown kind %q", kind)
	}
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}

	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "polyexpiry")

	return &Webhook{client: client, url: url, kind: kind}, nil
}

func (w *Webhook) Name() string { return "webhook" }

// Send publica el texto. Cualquier status fuera de 2xx es un error.
func (w *Webhook) Send(ctx context.Context, text string) error {
	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(w.payload(text)).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("webhook.Send: %w", err)
	}
	if !resp.IsSuccess() {
		body := strings.TrimSpace(resp.String())
		if len(body) > 200 {
			body = body[:200] + "..."
		}
		return fmt.Errorf("webhook.Send: unexpected status %d: %s", resp.StatusCode(), body)
	}
	return nil
}

func (w *Webhook) payload(text string) map[string]string {
	if w.kind == WebhookSlack {
		return map[string]string{"text": text}
	}
	return map[string]string{"content": truncateRunes(text, discordMaxContent)}
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
