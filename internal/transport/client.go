// Package transport maintains the WebSocket connection to the PMS chat
// gateway. Send is fire-and-forget with a boolean result; inbound pushes
// are published on the event bus, and connection health drives the status
// machine (which in turn triggers outbox flushes).
package transport

import (
	"context"
	"encoding/json"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/scalixity-dev/PMS-Frontend-sub004/internal/bus"
	"github.com/scalixity-dev/PMS-Frontend-sub004/internal/status"
)

const (
	reconnectBaseDelay = time.Second
	reconnectMaxDelay  = 30 * time.Second
	heartbeatInterval  = 25 * time.Second
	sendTimeout        = 5 * time.Second
)

type wireEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type wireMessage struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversationId"`
	Content        string `json:"content"`
	Sender         struct {
		ID       string `json:"id"`
		FullName string `json:"fullName"`
	} `json:"sender"`
	CreatedAt time.Time `json:"createdAt"`
}

type wireCommand struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Client is the live transport. It satisfies the coordinator's Sender
// capability.
type Client struct {
	wsURL   string
	tokens  *TokenSource
	machine *status.Machine
	bus     *bus.Bus
	logger  *zap.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc
	closed bool
}

// NewClient creates a transport client for the given WebSocket endpoint.
func NewClient(wsURL string, tokens *TokenSource, machine *status.Machine, b *bus.Bus, logger *zap.Logger) *Client {
	return &Client{
		wsURL:   wsURL,
		tokens:  tokens,
		machine: machine,
		bus:     b,
		logger:  logger,
	}
}

// WSEndpoint derives a WebSocket URL from an HTTP base URL when no
// explicit endpoint is configured.
func WSEndpoint(apiBaseURL, override string) string {
	if override != "" {
		return override
	}
	url := strings.Replace(apiBaseURL, "https://", "wss://", 1)
	url = strings.Replace(url, "http://", "ws://", 1)
	return url + "/ws/chat"
}

// Start launches the connect/reconnect loop.
func (c *Client) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	go c.run(ctx)
}

// Stop closes the connection and stops reconnecting.
func (c *Client) Stop() {
	c.mu.Lock()
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "client shutdown")
	}
}

// Connected reports whether the transport is currently online.
func (c *Client) Connected() bool {
	return c.machine.Connected()
}

// Send hands a message to the wire. The boolean is a hand-off signal only;
// there is no delivery confirmation. Returns false when disconnected or
// when the write fails.
func (c *Client) Send(conversationID, content string) bool {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil || !c.machine.Connected() {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	cmd := wireCommand{
		Type: "message.send",
		Payload: map[string]string{
			"conversationId": conversationID,
			"content":        content,
		},
	}
	if err := wsjson.Write(ctx, conn, cmd); err != nil {
		c.logger.Warn("send failed", zap.String("conversation_id", conversationID), zap.Error(err))
		return false
	}
	return true
}

func (c *Client) run(ctx context.Context) {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}

		switch c.machine.Current() {
		case status.Starting, status.Reconnecting:
			_ = c.machine.Transition(status.Connecting)
		}

		token, err := c.tokens.Token(ctx)
		if err != nil {
			// Token refresh failure is an auth problem; the toast is
			// raised by the token source and we do not keep retrying.
			c.logger.Error("token refresh failed, transport stopped", zap.Error(err))
			_ = c.machine.Transition(status.AuthRequired)
			return
		}

		conn, _, err := websocket.Dial(ctx, c.wsURL+"?token="+token, nil)
		if err != nil {
			c.logger.Warn("dial failed", zap.Error(err))
			c.tokens.Invalidate()
			_ = c.machine.Transition(status.Reconnecting)
			attempt++
			if !sleepCtx(ctx, backoff(attempt)) {
				return
			}
			continue
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			_ = conn.Close(websocket.StatusNormalClosure, "client shutdown")
			return
		}
		c.conn = conn
		c.mu.Unlock()

		attempt = 0
		_ = c.machine.Transition(status.Online)
		c.logger.Info("live transport connected")

		readCtx, cancelConn := context.WithCancel(ctx)
		go c.heartbeat(readCtx, conn, cancelConn)
		c.readLoop(readCtx, conn)
		cancelConn()

		c.mu.Lock()
		c.conn = nil
		closed := c.closed
		c.mu.Unlock()
		if closed || ctx.Err() != nil {
			return
		}

		c.logger.Warn("live transport disconnected")
		_ = c.machine.Transition(status.Reconnecting)
		attempt++
		if !sleepCtx(ctx, backoff(attempt)) {
			return
		}
	}
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var env wireEnvelope
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			return
		}
		c.dispatch(env)
	}
}

func (c *Client) dispatch(env wireEnvelope) {
	switch env.Type {
	case "message.new":
		var msg wireMessage
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			c.logger.Warn("malformed message payload", zap.Error(err))
			return
		}
		c.bus.Publish(bus.Event{
			Kind:      bus.KindLiveMessage,
			Timestamp: time.Now(),
			Payload: bus.LiveMessage{
				ConversationID: msg.ConversationID,
				MessageID:      msg.ID,
				SenderID:       msg.Sender.ID,
				SenderName:     msg.Sender.FullName,
				Content:        msg.Content,
				SentAt:         msg.CreatedAt,
			},
		})
	case "pong":
		// Heartbeat reply, nothing to do.
	default:
		c.logger.Debug("ignoring event", zap.String("type", env.Type))
	}
}

func (c *Client) heartbeat(ctx context.Context, conn *websocket.Conn, cancel context.CancelFunc) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			pingCtx, pingCancel := context.WithTimeout(ctx, sendTimeout)
			err := conn.Ping(pingCtx)
			pingCancel()
			if err != nil {
				_ = conn.Close(websocket.StatusGoingAway, "heartbeat timeout")
				cancel()
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// backoff returns an exponential delay with jitter, capped at the maximum.
func backoff(attempt int) time.Duration {
	d := float64(reconnectBaseDelay) * math.Pow(2, float64(attempt-1))
	if d > float64(reconnectMaxDelay) {
		d = float64(reconnectMaxDelay)
	}
	jitter := 0.5 + rand.Float64()
	return time.Duration(d * jitter)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
