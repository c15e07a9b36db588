package polymarket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultCLOBBase = "https://clob.polymarket.com"
	defaultDataBase = "https://data-api.polymarket.com"

	// Rate limits al 60% de los límites reales documentados.
	// CLOB /book: 500/10s → 300/10s → 30/s
	booksRatePerSec = 30
	// CLOB general (orders, cancels, etc.): 9000/10s → 5400/10s → 540/s
	generalRatePerSec = 540

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// Client es el HTTP client del CLOB con rate limiting y retries.
type Client struct {
	http         *http.Client
	clobBase     string
	dataBase     string
	clobLimiter  *rate.Limiter
	booksLimiter *rate.Limiter
	signer       *l2Signer // nil = solo endpoints públicos
}

// NewClient crea un Client con los base URLs dados.
// Si clobBase o dataBase están vacíos, usa los URLs de producción.
func NewClient(clobBase, dataBase string) *Client {
	if clobBase == "" {
		clobBase = defaultCLOBBase
	}
	if dataBase == "" {
		dataBase = defaultDataBase
	}
	return &Client{
		http:         &http.Client{Timeout: 10 * time.Second},
		clobBase:     clobBase,
		dataBase:     dataBase,
		clobLimiter:  rate.NewLimiter(generalRatePerSec, 50),
		booksLimiter: rate.NewLimiter(booksRatePerSec, 5),
	}
}

// WithAuth registra las credenciales L2 para los endpoints autenticados.
func (c *Client) WithAuth(apiKey, secret, passphrase, address string) *Client {
	c.signer = newL2Signer(apiKey, secret, passphrase, address)
	return c
}

// get hace un GET con rate limiting y retries.
func (c *Client) get(ctx context.Context, limiter *rate.Limiter, rawURL string, authed bool, out any) error {
	return c.doWithRetry(ctx, limiter, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if authed {
			if err := c.sign(req, nil); err != nil {
				return nil, err
			}
		}
		return c.http.Do(req)
	}, out)
}

// post hace un POST JSON con rate limiting y retries.
func (c *Client) post(ctx context.Context, limiter *rate.Limiter, rawURL string, authed bool, body, out any) error {
	return c.send(ctx, limiter, http.MethodPost, rawURL, authed, body, out)
}

// del hace un DELETE JSON con rate limiting y retries.
func (c *Client) del(ctx context.Context, limiter *rate.Limiter, rawURL string, authed bool, body, out any) error {
	return c.send(ctx, limiter, http.MethodDelete, rawURL, authed, body, out)
}

func (c *Client) send(ctx context.Context, limiter *rate.Limiter, method, rawURL string, authed bool, body, out any) error {
	var b []byte
	if body != nil {
		var err error
		b, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
	}

	return c.doWithRetry(ctx, limiter, func() (*http.Response, error) {
		var reader io.Reader
		if b != nil {
			reader = bytes.NewReader(b)
		}
		req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		if authed {
			if err := c.sign(req, b); err != nil {
				return nil, err
			}
		}
		return c.http.Do(req)
	}, out)
}

// sign añade los headers L2 a un request autenticado.
func (c *Client) sign(req *http.Request, body []byte) error {
	if c.signer == nil {
		return fmt.Errorf("authenticated endpoint without credentials")
	}
	u, err := url.Parse(req.URL.String())
	if err != nil {
		return err
	}
	c.signer.apply(req, u.Path, body)
	return nil
}

// doWithRetry ejecuta la función con backoff exponencial y jitter.
func (c *Client) doWithRetry(ctx context.Context, limiter *rate.Limiter, fn func() (*http.Response, error), out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := fn()
		if err != nil {
			if attempt == maxRetries {
				return fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			slog.Warn("rate limited by API", "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("server error %d after %d retries", resp.StatusCode, maxRetries)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
		}

		defer resp.Body.Close()
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
