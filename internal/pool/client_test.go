package pool

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL+"/pair", "POOL1", srv.URL+"/simple/price", WithHTTPClient(srv.Client()))
	c.now = func() time.Time { return time.Unix(1700000000, 0) }
	return c
}

func TestFetchPoolSnapshot(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pair/POOL1" {
			t.Errorf("path = %q, want /pair/POOL1", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{
			"name": "SONIC-SOL",
			"liquidity": "12345.67",
			"apy": 10.5,
			"trade_volume_24h": 999,
			"fees_24h": 12.5,
			"reserve_x_amount": 2000000000,
			"reserve_y_amount": 1000000000,
			"current_price": 1.05,
			"apr": 3.2,
			"base_fee_percentage": "0.25",
			"cap": 200000000
		}`))
	})

	snap, err := c.FetchPoolSnapshot(context.Background())
	if err != nil {
		t.Fatalf("FetchPoolSnapshot error: %v", err)
	}
	if snap.LiquidityUSD != 12345.67 {
		t.Errorf("LiquidityUSD = %v, want 12345.67", snap.LiquidityUSD)
	}
	if snap.ReserveX != 2e9 || snap.ReserveY != 1e9 {
		t.Errorf("reserves = %v/%v", snap.ReserveX, snap.ReserveY)
	}
	if snap.LPPriceUSD != 1.05 || !snap.LPPriceAvailable() {
		t.Errorf("LPPriceUSD = %v", snap.LPPriceUSD)
	}
	if snap.BaseFeePercent != 0.25 {
		t.Errorf("BaseFeePercent = %v, want 0.25", snap.BaseFeePercent)
	}
	if snap.APR.Trade != 3.2 || snap.APR.Yield != 10.5 || snap.APR.WeeklyBase != 10.5 {
		t.Errorf("APR = %+v", snap.APR)
	}
	if snap.Cap != 200000000 {
		t.Errorf("Cap = %v", snap.Cap)
	}
	if !snap.FetchedAt.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("FetchedAt = %v", snap.FetchedAt)
	}
}

func TestFetchPoolSnapshotMissingFields(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"liquidity": null, "apy": "n/a", "reserve_x_amount": -5, "current_price": "abc"}`))
	})

	snap, err := c.FetchPoolSnapshot(context.Background())
	if err != nil {
		t.Fatalf("FetchPoolSnapshot error: %v", err)
	}
	if snap.Name != DefaultName {
		t.Errorf("Name = %q, want %q", snap.Name, DefaultName)
	}
	if snap.LiquidityUSD != 0 || snap.APYPercent != 0 || snap.ReserveX != 0 || snap.ReserveY != 0 {
		t.Errorf("missing fields not normalized to 0: %+v", snap)
	}
	if snap.LPPriceAvailable() {
		t.Error("LP price should be unavailable")
	}
}

func TestFetchPoolSnapshotErrors(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
	}{
		{
			name: "http 500",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "oops", http.StatusInternalServerError)
			},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"name":`))
			},
			wantStatus: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)
			_, err := c.FetchPoolSnapshot(context.Background())
			var fe *FetchError
			if !errors.As(err, &fe) {
				t.Fatalf("error = %v, want *FetchError", err)
			}
			if fe.Endpoint != "pool" || fe.StatusCode != tt.wantStatus {
				t.Errorf("FetchError = %+v", fe)
			}
		})
	}
}

func TestFetchPoolSnapshotNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	c := NewClient(srv.URL, "POOL1", srv.URL)
	srv.Close()

	_, err := c.FetchPoolSnapshot(context.Background())
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error = %v, want *FetchError", err)
	}
	if fe.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0", fe.StatusCode)
	}
}

func TestFetchPriceQuote(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("ids"); got != "solana,sonic" {
			t.Errorf("ids = %q, want solana,sonic", got)
		}
		if got := r.URL.Query().Get("vs_currencies"); got != "usd" {
			t.Errorf("vs_currencies = %q, want usd", got)
		}
		_, _ = w.Write([]byte(`{"solana":{"usd":150},"sonic":{"usd":"0.02"}}`))
	})

	q, err := c.FetchPriceQuote(context.Background())
	if err != nil {
		t.Fatalf("FetchPriceQuote error: %v", err)
	}
	if q.Price(SolanaID) != 150 {
		t.Errorf("solana = %v, want 150", q.Price(SolanaID))
	}
	if q.Price(SonicID) != 0.02 {
		t.Errorf("sonic = %v, want 0.02", q.Price(SonicID))
	}
	if q.Price("bitcoin") != 0 {
		t.Errorf("missing id should be 0")
	}
}

func TestFetchPriceQuotePartial(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"solana":{"usd":150}}`))
	})

	q, err := c.FetchPriceQuote(context.Background())
	if err != nil {
		t.Fatalf("FetchPriceQuote error: %v", err)
	}
	if q.Price(SonicID) != 0 {
		t.Errorf("sonic = %v, want 0", q.Price(SonicID))
	}
}

func TestFetchPriceQuoteStatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.FetchPriceQuote(context.Background())
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Endpoint != "price" || fe.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("error = %v, want price FetchError 429", err)
	}
}

func TestNilPriceQuote(t *testing.T) {
	var q PriceQuote
	if q.Price(SolanaID) != 0 {
		t.Error("nil quote should price everything at 0")
	}
}
