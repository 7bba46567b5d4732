package polymarket

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/alejandrodnm/polyexpiry/internal/domain"
)

const (
	defaultGammaBase = "https://gamma-api.polymarket.com"
	defaultSiteBase  = "https://polymarket.com"

	defaultTimeout = 15 * time.Second

	// Gamma permite ~300 req/10s; un poll hace una sola petición, 5/s es de sobra.
	defaultRatePerSec = 5
	rateBurst         = 2

	// Límite de body: la página HTML con __NEXT_DATA__ ronda los 2-3 MB.
	maxBodyBytes = 16 << 20
)

// Client es el transporte HTTP compartido por las tres fuentes.
// No reintenta: los reintentos y la rotación de identidad son cosa del Retrier.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient crea un Client con el timeout y el rate limit dados.
// Valores <= 0 usan los defaults (15s, 5 req/s).
func NewClient(timeout time.Duration, ratePerSec float64) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if ratePerSec <= 0 {
		ratePerSec = defaultRatePerSec
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), rateBurst),
	}
}

// get hace un GET con rate limiting aplicando los headers de la identidad.
func (c *Client) get(ctx context.Context, url string, identity domain.Identity, accept string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, url, identity, nil, accept)
}

// post hace un POST con body JSON ya serializado.
func (c *Client) post(ctx context.Context, url string, identity domain.Identity, body []byte) ([]byte, error) {
	return c.do(ctx, http.MethodPost, url, identity, body, "application/json")
}

// do ejecuta la petición y traduce cualquier fallo de red o status no-2xx a *domain.TransportError.
func (c *Client) do(ctx context.Context, method, url string, identity domain.Identity, body []byte, accept string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &domain.TransportError{URL: url, Err: fmt.Errorf("rate limiter: %w", err)}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, &domain.TransportError{URL: url, Err: err}
	}
	for k, v := range identity.Headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Accept", accept)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &domain.TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &domain.TransportError{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.TransportError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Err:        errors.New(snippet(data, 200)),
		}
	}
	return data, nil
}

// snippet devuelve los primeros n bytes del body para mensajes de error.
func snippet(data []byte, n int) string {
	s := string(bytes.TrimSpace(data))
	if len(s) > n {
		return s[:n] + "..."
	}
	if s == "" {
		return "empty body"
	}
	return s
}
