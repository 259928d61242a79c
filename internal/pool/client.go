// Package pool fetches pool state and token prices from the external APIs.
package pool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/web3-frozen/sonic-vault/internal/metrics"
)

const maxBodyBytes = 1 << 20

// FetchError is returned for any failure talking to the pool or price API.
// Callers keep their last known state when they see one.
type FetchError struct {
	Endpoint   string // "pool" or "price"
	URL        string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s API status %d: %v", e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s API: %v", e.Endpoint, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Client talks to the pool data endpoint and the price oracle.
type Client struct {
	client   *http.Client
	poolAPI  string
	poolID   string
	priceAPI string
	now      func() time.Time
}

type Option func(*Client)

// WithHTTPClient replaces the default 15s-timeout client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

func NewClient(poolAPI, poolID, priceAPI string, opts ...Option) *Client {
	c := &Client{
		client:   &http.Client{Timeout: 15 * time.Second},
		poolAPI:  strings.TrimRight(poolAPI, "/"),
		poolID:   poolID,
		priceAPI: priceAPI,
		now:      time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// FetchPoolSnapshot issues GET {poolAPI}/{poolID}.
func (c *Client) FetchPoolSnapshot(ctx context.Context) (*PoolSnapshot, error) {
	u := c.poolAPI + "/" + url.PathEscape(c.poolID)

	var resp poolResponse
	if err := c.getJSON(ctx, "pool", u, &resp); err != nil {
		return nil, err
	}
	return resp.snapshot(c.now()), nil
}

// FetchPriceQuote issues GET {priceAPI}?ids=...&vs_currencies=usd. With no
// ids it asks for solana and sonic. Ids missing from the answer are absent
// from the quote and read as 0.
func (c *Client) FetchPriceQuote(ctx context.Context, ids ...string) (PriceQuote, error) {
	if len(ids) == 0 {
		ids = []string{SolanaID, SonicID}
	}
	u, err := url.Parse(c.priceAPI)
	if err != nil {
		return nil, &FetchError{Endpoint: "price", URL: c.priceAPI, Err: err}
	}
	q := u.Query()
	q.Set("ids", strings.Join(ids, ","))
	q.Set("vs_currencies", "usd")
	u.RawQuery = q.Encode()

	var resp priceResponse
	if err := c.getJSON(ctx, "price", u.String(), &resp); err != nil {
		return nil, err
	}

	quote := make(PriceQuote, len(resp))
	for id, p := range resp {
		if p.USD < 0 {
			continue
		}
		quote[id] = float64(p.USD)
	}
	return quote, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, u string, out any) (err error) {
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.UpstreamRequestsTotal.WithLabelValues(endpoint, status).Inc()
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &FetchError{Endpoint: endpoint, URL: u, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &FetchError{Endpoint: endpoint, URL: u, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return &FetchError{Endpoint: endpoint, URL: u, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status")}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return &FetchError{Endpoint: endpoint, URL: u, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}
