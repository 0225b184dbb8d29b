package live

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/voxstream/voxstream/internal/config"
	"github.com/voxstream/voxstream/internal/metrics"
)

const defaultConnectTimeout = 15 * time.Second

// Handlers receives classified server events. Nil handlers are skipped.
// Handlers run on the read loop goroutine and must not block.
type Handlers struct {
	OnAudio                func(mimeType, data string)
	OnText                 func(text string)
	OnTurnComplete         func()
	OnInterrupted          func()
	OnToolCall             func(call ToolCall)
	OnToolCallCancellation func(cancellation ToolCallCancellation)
}

// Client is a live session over a websocket.
type Client interface {
	// Connect dials the session, performs the setup handshake, and
	// starts dispatching server events to the handlers.
	Connect(ctx context.Context) error

	// SendText submits a complete user text turn.
	SendText(text string) error

	// SendAudio streams a raw PCM chunk to the session.
	SendAudio(pcm []byte) error

	// Close shuts the session down. Safe to call more than once.
	Close() error
}

type client struct {
	logger   *zap.Logger
	cfg      config.LiveConfig
	handlers Handlers
	metrics  *metrics.Metrics
	dialer   *websocket.Dialer

	writeMu sync.Mutex
	conn    *websocket.Conn

	closeOnce sync.Once
	closed    chan struct{}
	done      chan struct{}
}

// NewClient creates a live session client dispatching to handlers.
func NewClient(logger *zap.Logger, cfg *config.Config, handlers Handlers, m *metrics.Metrics) Client {
	return &client{
		logger:   logger,
		cfg:      cfg.Live,
		handlers: handlers,
		metrics:  m,
		dialer:   websocket.DefaultDialer,
		closed:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (c *client) Connect(ctx context.Context) error {
	endpoint, err := c.sessionURL()
	if err != nil {
		return err
	}

	dialCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, defaultConnectTimeout)
		defer cancel()
	}

	conn, resp, err := c.dialer.DialContext(dialCtx, endpoint, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("websocket dial failed: %w", err)
	}

	if err := conn.WriteJSON(clientEnvelope{Setup: &Setup{Model: c.cfg.Model}}); err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to send setup: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(defaultConnectTimeout))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to read setup ack: %w", err)
	}
	_ = conn.SetReadDeadline(time.Time{})

	var event ServerEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to decode setup ack: %w", err)
	}
	if event.SetupComplete == nil {
		_ = conn.Close()
		return fmt.Errorf("expected setup ack, got %s event", event.Kind())
	}

	c.conn = conn
	c.logger.Info("Live session established",
		zap.String("model", c.cfg.Model),
		zap.String("url", c.cfg.URL))

	go c.readLoop()
	return nil
}

func (c *client) SendText(text string) error {
	return c.sendJSON(clientEnvelope{
		ClientContent: &ClientContent{
			Turns: []ClientTurn{
				{Role: "user", Parts: []Part{{Text: text}}},
			},
			TurnComplete: true,
		},
	})
}

func (c *client) SendAudio(pcm []byte) error {
	return c.sendJSON(clientEnvelope{
		RealtimeInput: &RealtimeInput{
			MediaChunks: []Blob{
				{MIMEType: "audio/pcm", Data: base64.StdEncoding.EncodeToString(pcm)},
			},
		},
	})
}

func (c *client) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		if c.conn != nil {
			c.writeMu.Lock()
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(2*time.Second))
			c.writeMu.Unlock()
			_ = c.conn.Close()
			<-c.done
		}
	})
	return nil
}

func (c *client) sendJSON(v any) error {
	if c.conn == nil {
		return fmt.Errorf("live session is not connected")
	}
	select {
	case <-c.closed:
		return fmt.Errorf("live session is closed")
	default:
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *client) readLoop() {
	defer close(c.done)

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.closed:
			default:
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					c.logger.Error("Live session read failed", zap.Error(err))
				}
			}
			return
		}

		var event ServerEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			c.logger.Warn("Dropping undecodable server frame", zap.Error(err))
			continue
		}
		c.metrics.EventsReceived.WithLabelValues(event.Kind()).Inc()
		c.dispatch(event)
	}
}

// dispatch routes one server event to the handlers. Within a content
// event, interruption is handled before any audio so a barge-in never
// schedules stale frames.
func (c *client) dispatch(event ServerEvent) {
	switch {
	case event.ToolCall != nil:
		if c.handlers.OnToolCall != nil {
			c.handlers.OnToolCall(*event.ToolCall)
		}
	case event.ToolCallCancellation != nil:
		if c.handlers.OnToolCallCancellation != nil {
			c.handlers.OnToolCallCancellation(*event.ToolCallCancellation)
		}
	case event.ServerContent != nil:
		content := event.ServerContent
		if content.Interrupted {
			if c.handlers.OnInterrupted != nil {
				c.handlers.OnInterrupted()
			}
			return
		}
		if content.ModelTurn != nil {
			for _, part := range content.ModelTurn.Parts {
				switch {
				case part.InlineData != nil:
					if c.handlers.OnAudio != nil {
						c.handlers.OnAudio(part.InlineData.MIMEType, part.InlineData.Data)
					}
				case part.Text != "":
					if c.handlers.OnText != nil {
						c.handlers.OnText(part.Text)
					}
				}
			}
		}
		if content.TurnComplete && c.handlers.OnTurnComplete != nil {
			c.handlers.OnTurnComplete()
		}
	}
}

func (c *client) sessionURL() (string, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("invalid live URL %s: %w", c.cfg.URL, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("live URL must use http(s) or ws(s), got %s", u.Scheme)
	}
	if c.cfg.APIKey != "" {
		q := u.Query()
		q.Set("key", c.cfg.APIKey)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
