package connectors

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	logger "github.com/sirupsen/logrus"

	"tradeledger/src/pricing"
)

const defaultStreamURL = "wss://stream.binance.com:9443/ws"

// TickerStream keeps the PriceCache warm by subscribing to the public
// miniTicker websocket feed. It reconnects with backoff until the context
// is cancelled. Losing the stream is not fatal anywhere: the cache is only
// a fallback tier.
type TickerStream struct {
	url     string
	symbols []string
	cache   *PriceCache
	log     *logger.Entry

	readTimeout time.Duration
}

func NewTickerStream(symbols []string, cache *PriceCache) *TickerStream {
	return &TickerStream{
		url:         defaultStreamURL,
		symbols:     symbols,
		cache:       cache,
		log:         logger.WithField("component", "TickerStream"),
		readTimeout: 90 * time.Second,
	}
}

type miniTickerEvent struct {
	Event  string `json:"e"`
	Symbol string `json:"s"`
	Close  string `json:"c"`
}

// Run blocks, maintaining the subscription until ctx is done.
func (s *TickerStream) Run(ctx context.Context) {
	backoff := time.Second

	for {
		if ctx.Err() != nil {
			return
		}

		err := s.runOnce(ctx)
		if ctx.Err() != nil {
			return
		}

		s.log.WithError(err).
			WithField("backoff", backoff.String()).
			Warn("ticker stream disconnected, reconnecting")

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > 30*time.Second {
			backoff = 30 * time.Second
		}
	}
}

func (s *TickerStream) runOnce(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Close the connection when the context is cancelled so ReadMessage
	// unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	if err := s.subscribe(conn); err != nil {
		return err
	}

	s.log.WithField("symbols", len(s.symbols)).Info("ticker stream connected")

	for {
		_ = conn.SetReadDeadline(time.Now().Add(s.readTimeout))

		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var event miniTickerEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			continue // subscription acks and unknown frames
		}
		if event.Event != "24hrMiniTicker" || event.Symbol == "" {
			continue
		}

		price, err := strconv.ParseFloat(event.Close, 64)
		if err != nil {
			continue
		}

		s.cache.Set(pricing.NormalizeSymbol(event.Symbol), price)
	}
}

func (s *TickerStream) subscribe(conn *websocket.Conn) error {
	params := make([]string, 0, len(s.symbols))
	for _, symbol := range s.symbols {
		params = append(params, strings.ToLower(pricing.NormalizeSymbol(symbol))+"@miniTicker")
	}

	payload := map[string]interface{}{
		"method": "SUBSCRIBE",
		"params": params,
		"id":     time.Now().Unix(),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return conn.WriteMessage(websocket.TextMessage, data)
}
