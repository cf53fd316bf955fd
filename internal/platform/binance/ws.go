package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/basisbot/internal/domain"
)

// reconnectDelay is the pause before redialing a dropped stream.
const reconnectDelay = 2 * time.Second

// TickerHandler is called for each book-ticker update.
type TickerHandler func(ctx context.Context, ticker domain.BookTicker)

// WSFeed subscribes to the combined book-ticker stream for a set of symbols
// and invokes the handler on every update. It reconnects on disconnect and
// runs until its context is cancelled.
type WSFeed struct {
	baseURL  string
	symbols  []string
	onTicker TickerHandler
	logger   *slog.Logger
}

// NewWSFeed creates a feed for the given stream host (e.g.
// "wss://stream.binance.com:9443") and symbols.
func NewWSFeed(baseURL string, symbols []string, onTicker TickerHandler, logger *slog.Logger) *WSFeed {
	return &WSFeed{
		baseURL:  baseURL,
		symbols:  symbols,
		onTicker: onTicker,
		logger:   logger.With(slog.String("component", "binance_ws")),
	}
}

// wsBookTicker is the stream payload inside the combined-stream envelope.
type wsBookTicker struct {
	Symbol   string `json:"s"`
	BidPrice string `json:"b"`
	BidQty   string `json:"B"`
	AskPrice string `json:"a"`
	AskQty   string `json:"A"`
}

// Run connects and dispatches updates until ctx is cancelled.
func (f *WSFeed) Run(ctx context.Context) error {
	if len(f.symbols) == 0 {
		f.logger.Info("no symbols to stream, exiting")
		return nil
	}

	for {
		err := f.runConnection(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.logger.Warn("stream disconnected, reconnecting",
			slog.String("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

// runConnection dials the combined stream and reads until error or cancel.
func (f *WSFeed) runConnection(ctx context.Context) error {
	streams := make([]string, 0, len(f.symbols))
	for _, s := range f.symbols {
		streams = append(streams, strings.ToLower(s)+"@bookTicker")
	}
	u := f.baseURL + "/stream?streams=" + strings.Join(streams, "/")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("binance: dial stream: %w", err)
	}
	defer conn.Close()

	// Close the connection when the context ends so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	f.logger.Info("stream connected", slog.Int("symbols", len(f.symbols)))

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("binance: read stream: %w", domain.ErrWSDisconnect)
		}

		var envelope struct {
			Data wsBookTicker `json:"data"`
		}
		if err := json.Unmarshal(msg, &envelope); err != nil || envelope.Data.Symbol == "" {
			continue
		}

		f.onTicker(ctx, domain.BookTicker{
			Symbol:   envelope.Data.Symbol,
			BidPrice: f2(envelope.Data.BidPrice),
			BidQty:   f2(envelope.Data.BidQty),
			AskPrice: f2(envelope.Data.AskPrice),
			AskQty:   f2(envelope.Data.AskQty),
		})
	}
}

// f2 is f, named apart to avoid shadowing by the feed receiver.
func f2(s string) float64 { return f(s) }
