package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"

	"github.com/souravmenon1999/usdt-scanner/internal/types"
)

var json = jsoniter.ConfigFastest

// Client is the pull adapter: one synchronous request against the 24h
// ticker endpoint returning the full universe. Stateless between calls.
type Client struct {
	httpClient *http.Client
	tickerURL  string
	pingURL    string
}

// NewClient creates a pull adapter for the given endpoints with a bounded
// per-request timeout.
func NewClient(tickerURL, pingURL string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		tickerURL:  tickerURL,
		pingURL:    pingURL,
	}
}

// ticker24h mirrors the fields of one element of the 24hr ticker response
// that the scanner needs.
type ticker24h struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	HighPrice          string `json:"highPrice"`
	LowPrice           string `json:"lowPrice"`
	PriceChangePercent string `json:"priceChangePercent"`
}

// Fetch performs a single request and returns a Full batch covering the
// universe. Records whose numeric fields fail to parse are skipped without
// failing the batch.
func (c *Client) Fetch(ctx context.Context) (types.UpdateBatch, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.tickerURL, nil)
	if err != nil {
		return types.UpdateBatch{}, types.NewOtherTransportError(err.Error())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return types.UpdateBatch{}, classifyHTTPError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.UpdateBatch{}, types.NewHTTPStatusError(resp.StatusCode,
			fmt.Sprintf("GET %s", c.tickerURL))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.UpdateBatch{}, types.NewOtherTransportError(err.Error())
	}

	var tickers []ticker24h
	if err := json.Unmarshal(body, &tickers); err != nil {
		return types.UpdateBatch{}, types.NewDecodeError(err.Error())
	}

	records := make([]types.TickerRecord, 0, len(tickers))
	skipped := 0
	for _, t := range tickers {
		rec, ok := normalize(t.Symbol, t.LastPrice, t.HighPrice, t.LowPrice, t.PriceChangePercent)
		if !ok {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	if skipped > 0 {
		log.Debug().Int("skipped", skipped).Msg("Skipped unparseable ticker records")
	}

	return types.UpdateBatch{Kind: types.BatchFull, Records: records}, nil
}

// Ping hits the exchange liveness endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pingURL, nil)
	if err != nil {
		return types.NewOtherTransportError(err.Error())
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyHTTPError(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return types.NewHTTPStatusError(resp.StatusCode, fmt.Sprintf("GET %s", c.pingURL))
	}
	return nil
}

// classifyHTTPError maps a client error onto the transport taxonomy.
func classifyHTTPError(err error) *types.TransportError {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return types.NewNetworkTimeoutError(err.Error())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return types.NewNetworkTimeoutError(err.Error())
	}
	return types.NewOtherTransportError(err.Error())
}
