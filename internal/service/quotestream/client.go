package quotestream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"FxCockpit/internal/domain/models"
	drepo "FxCockpit/internal/domain/repository"
	"FxCockpit/pkg/logger"

	"github.com/gorilla/websocket"
)

// Client implements QuoteStream over a Finnhub-style WebSocket.
// Upstream ticks for feedSymbol are re-labelled with the instrument symbol.
type Client struct {
	apiKey       string
	websocketURL string
	feedSymbol   string
	symbol       string
	pingInterval time.Duration
	log          *logger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

var _ drepo.QuoteStream = (*Client)(nil)

func New(apiKey, websocketURL, feedSymbol, symbol string, pingInterval time.Duration, log *logger.Logger) *Client {
	if feedSymbol == "" {
		feedSymbol = symbol
	}
	if pingInterval <= 0 {
		pingInterval = 20 * time.Second
	}
	return &Client{
		apiKey:       apiKey,
		websocketURL: websocketURL,
		feedSymbol:   feedSymbol,
		symbol:       symbol,
		pingInterval: pingInterval,
		log:          log.With("quotestream"),
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u, err := url.Parse(c.websocketURL)
	if err != nil {
		return fmt.Errorf("feed url: %w", err)
	}
	if c.apiKey != "" {
		q := u.Query()
		q.Set("token", c.apiKey)
		u.RawQuery = q.Encode()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("feed connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()
	c.log.Info("feed connected", logger.String("url", c.websocketURL))
	return nil
}

// Subscribe subscribes to the instrument's upstream ticker.
func (c *Client) Subscribe(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || !c.connected {
		return fmt.Errorf("feed not connected")
	}
	msg := map[string]string{"type": "subscribe", "symbol": c.feedSymbol}
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("subscribe %s: %w", c.feedSymbol, err)
	}
	c.log.Info("feed subscribed", logger.String("symbol", c.feedSymbol))
	return nil
}

type tick struct {
	S string  `json:"s"`
	P float64 `json:"p"`
	T int64   `json:"t"` // ms
}

type frame struct {
	Type string `json:"type"`
	Data []tick `json:"data"`
}

// decodeFrame turns one text frame into quotes. Non-trade frames yield nothing.
func (c *Client) decodeFrame(b []byte) []models.Quote {
	var f frame
	if err := json.Unmarshal(b, &f); err != nil || f.Type != "trade" {
		return nil
	}
	out := make([]models.Quote, 0, len(f.Data))
	for _, d := range f.Data {
		if d.S != c.feedSymbol || d.P <= 0 {
			continue
		}
		out = append(out, models.Quote{Symbol: c.symbol, Price: d.P, Timestamp: time.UnixMilli(d.T).UTC()})
	}
	return out
}

// Read streams quotes until the connection fails or ctx ends.
// Only the newest quote matters, so a full channel drops the tick.
func (c *Client) Read(ctx context.Context) (<-chan models.Quote, <-chan error) {
	quotes := make(chan models.Quote, 256)
	errs := make(chan error, 1)

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		errs <- fmt.Errorf("feed conn nil")
		close(quotes)
		close(errs)
		return quotes, errs
	}

	readCtx, cancel := context.WithCancel(ctx)

	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-readCtx.Done():
				return
			case <-ticker.C:
				c.mu.Lock()
				err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
				c.mu.Unlock()
				if err != nil {
					c.log.Warn("feed ping failed", logger.Error(err))
				}
			}
		}
	}()

	go func() {
		<-readCtx.Done()
		// unblocks ReadMessage
		_ = conn.SetReadDeadline(time.Now())
	}()

	go func() {
		defer cancel()
		defer close(quotes)
		defer close(errs)
		for {
			_, b, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil {
					errs <- fmt.Errorf("feed read: %w", err)
				}
				return
			}
			for _, q := range c.decodeFrame(b) {
				select {
				case quotes <- q:
				default:
				}
			}
		}
	}()

	return quotes, errs
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
