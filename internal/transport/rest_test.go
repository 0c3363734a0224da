package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/souravmenon1999/usdt-scanner/internal/types"
)

const sampleBody = `[
	{"symbol":"BTCUSDT","lastPrice":"100","highPrice":"110","lowPrice":"100","priceChangePercent":"1.5"},
	{"symbol":"ETHUSDT","lastPrice":"102","highPrice":"108","lowPrice":"100","priceChangePercent":"-0.3"},
	{"symbol":"BADUSDT","lastPrice":"oops","highPrice":"108","lowPrice":"100","priceChangePercent":"0"},
	{"symbol":"FOOBTC","lastPrice":"1","highPrice":"2","lowPrice":"1","priceChangePercent":"0"}
]`

func TestFetch_NormalizesUniverse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleBody))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, 5*time.Second)
	batch, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if batch.Kind != types.BatchFull {
		t.Fatalf("pull batches must be Full, got %v", batch.Kind)
	}
	// BADUSDT is skipped for the parse failure; FOOBTC survives here (the
	// store owns the quote-asset predicate).
	if len(batch.Records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(batch.Records))
	}
	first := batch.Records[0]
	if first.Symbol != "BTCUSDT" || first.Last != 100 || first.High != 110 ||
		first.Low != 100 || first.ChangePct != 1.5 {
		t.Fatalf("unexpected record: %+v", first)
	}
}

func TestFetch_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, 5*time.Second)
	_, err := c.Fetch(context.Background())
	var terr *types.TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if terr.Kind != types.HTTPStatusError || terr.Status != 429 || !terr.RateLimited() {
		t.Fatalf("expected rate-limited 429 error, got %+v", terr)
	}
}

func TestFetch_DecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"an array"`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, 5*time.Second)
	_, err := c.Fetch(context.Background())
	var terr *types.TransportError
	if !errors.As(err, &terr) || terr.Kind != types.DecodeError {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

func TestFetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, 30*time.Millisecond)
	_, err := c.Fetch(context.Background())
	var terr *types.TransportError
	if !errors.As(err, &terr) || terr.Kind != types.NetworkTimeoutError {
		t.Fatalf("expected NetworkTimeoutError, got %v", err)
	}
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, 5*time.Second)
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
}

func TestNormalize_SkipsUnparseable(t *testing.T) {
	if _, ok := normalize("XUSDT", "1.0", "2.0", "bogus", "0"); ok {
		t.Fatal("unparseable low must be rejected")
	}
	rec, ok := normalize("XUSDT", "1.0", "2.0", "0.5", "-3.2")
	if !ok {
		t.Fatal("valid record rejected")
	}
	if rec.Last != 1.0 || rec.High != 2.0 || rec.Low != 0.5 || rec.ChangePct != -3.2 {
		t.Fatalf("unexpected record: %+v", rec)
	}
}
