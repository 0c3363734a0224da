package transport

import (
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/souravmenon1999/usdt-scanner/internal/types"
)

// receiveTimeout bounds each blocking read so the stop signal is observed
// within one slice even when the stream goes quiet.
const receiveTimeout = 2 * time.Second

// Stream is the push adapter: a long-lived connection to the all-market
// ticker stream. It does not reconnect; any I/O failure is returned to the
// caller, which owns retry policy.
type Stream struct {
	url              string
	handshakeTimeout time.Duration
}

// NewStream creates a push adapter for the given stream endpoint.
func NewStream(url string, handshakeTimeout time.Duration) *Stream {
	return &Stream{url: url, handshakeTimeout: handshakeTimeout}
}

// wsTicker mirrors the per-symbol fields of a stream frame element.
type wsTicker struct {
	Symbol             string `json:"s"`
	LastPrice          string `json:"c"`
	HighPrice          string `json:"h"`
	LowPrice           string `json:"l"`
	PriceChangePercent string `json:"P"`
}

// Run connects and emits one UpdateBatch per received frame until stop is
// closed or the connection fails. Array frames carry the full universe and
// are tagged Full; object frames carry one symbol and are tagged Partial.
// The connection is closed on every exit path. A nil return means a clean
// stop.
func (s *Stream) Run(stop <-chan struct{}, out chan<- types.UpdateBatch) error {
	dialer := *websocket.DefaultDialer
	dialer.Proxy = http.ProxyFromEnvironment
	dialer.HandshakeTimeout = s.handshakeTimeout

	conn, resp, err := dialer.Dial(s.url, nil)
	if err != nil {
		if resp != nil {
			return types.NewHTTPStatusError(resp.StatusCode, err.Error())
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return types.NewNetworkTimeoutError(err.Error())
		}
		return types.NewOtherTransportError(err.Error())
	}
	defer conn.Close()
	log.Info().Str("url", s.url).Msg("Ticker stream connected")

	// The exchange pings roughly every 20s; gorilla answers with a pong by
	// default, we only refresh the deadline bookkeeping here.
	conn.SetPingHandler(func(appData string) error {
		return conn.WriteControl(websocket.PongMessage, []byte(appData),
			time.Now().Add(5*time.Second))
	})

	for {
		select {
		case <-stop:
			log.Info().Msg("Ticker stream stopped")
			return nil
		default:
		}

		if err := conn.SetReadDeadline(time.Now().Add(receiveTimeout)); err != nil {
			return types.NewConnectionClosedError(err.Error())
		}
		_, payload, err := conn.ReadMessage()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				// Quiet slice; loop around to observe stop.
				continue
			}
			return types.NewConnectionClosedError(err.Error())
		}

		batch, ok := decodeFrame(payload)
		if !ok {
			continue
		}
		select {
		case out <- batch:
		case <-stop:
			log.Info().Msg("Ticker stream stopped")
			return nil
		}
	}
}

// decodeFrame turns a stream frame into a tagged batch. Unparseable frames
// and records are dropped.
func decodeFrame(payload []byte) (types.UpdateBatch, bool) {
	trimmed := firstNonSpace(payload)
	switch trimmed {
	case '[':
		var tickers []wsTicker
		if err := json.Unmarshal(payload, &tickers); err != nil {
			log.Debug().Err(err).Msg("Dropped undecodable array frame")
			return types.UpdateBatch{}, false
		}
		records := make([]types.TickerRecord, 0, len(tickers))
		for _, t := range tickers {
			if rec, ok := normalize(t.Symbol, t.LastPrice, t.HighPrice, t.LowPrice, t.PriceChangePercent); ok {
				records = append(records, rec)
			}
		}
		return types.UpdateBatch{Kind: types.BatchFull, Records: records}, true
	case '{':
		var t wsTicker
		if err := json.Unmarshal(payload, &t); err != nil {
			log.Debug().Err(err).Msg("Dropped undecodable object frame")
			return types.UpdateBatch{}, false
		}
		rec, ok := normalize(t.Symbol, t.LastPrice, t.HighPrice, t.LowPrice, t.PriceChangePercent)
		if !ok {
			return types.UpdateBatch{}, false
		}
		return types.UpdateBatch{Kind: types.BatchPartial, Records: []types.TickerRecord{rec}}, true
	default:
		return types.UpdateBatch{}, false
	}
}

func firstNonSpace(payload []byte) byte {
	for _, b := range payload {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			return b
		}
	}
	return 0
}
