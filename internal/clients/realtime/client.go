// Package realtime is the client side of the arena websocket channel.
package realtime

//go:generate mockgen -destination=mock/mock_channel.go -package=realtimemock github.com/KirkDiggler/cyber-arena/internal/clients/realtime Channel

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/KirkDiggler/cyber-arena/internal/errors"
	"github.com/KirkDiggler/cyber-arena/internal/protocol"
)

// Channel is the realtime channel used by an online battle. Inbound messages
// arrive on Events in the order the server sent them. There is no implicit
// retry: a failed connection ends with one TransportError event and a closed
// channel.
type Channel interface {
	CreateRoom(ctx context.Context, playerName string) error
	JoinRoom(ctx context.Context, roomCode, playerName string) error
	StartGame(ctx context.Context) error
	// SubmitAction sends the outcome of an answered (or timed out) action
	SubmitAction(ctx context.Context, action *protocol.PlayerAnswer) error
	UpdateHealth(ctx context.Context, health int) error
	LeaveRoom(ctx context.Context) error
	// RequestSync asks the server for the authoritative room state
	RequestSync(ctx context.Context) error
	Events() <-chan protocol.Message
	Close() error
}

// Config configures Dial
type Config struct {
	// URL of the arena websocket endpoint, e.g. ws://localhost:8080/ws
	URL string
	// WriteTimeout bounds each frame write when ctx has no deadline (default 10s)
	WriteTimeout time.Duration
	// EventBuffer is the capacity of the events channel (default 64)
	EventBuffer int
	Header      http.Header
	Dialer      *websocket.Dialer
}

// Validate validates the Config and sets defaults if not provided.
func (cfg *Config) Validate() error {
	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("url", cfg.URL, vb)
	if err := vb.Build(); err != nil {
		return err
	}

	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.EventBuffer == 0 {
		cfg.EventBuffer = 64
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	return nil
}

// Client is a Channel over gorilla/websocket
type Client struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	writeMu sync.Mutex
	events  chan protocol.Message
	done    chan struct{}
	once    sync.Once
}

// Dial connects to the arena server and starts reading
func Dial(ctx context.Context, cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, errors.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	conn, resp, err := cfg.Dialer.DialContext(ctx, cfg.URL, cfg.Header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeUnavailable, "failed to dial arena").
			WithMeta("url", cfg.URL)
	}

	return newClient(conn, cfg), nil
}

func newClient(conn *websocket.Conn, cfg *Config) *Client {
	c := &Client{
		conn:         conn,
		writeTimeout: cfg.WriteTimeout,
		events:       make(chan protocol.Message, cfg.EventBuffer),
		done:         make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Events returns the inbound message stream
func (c *Client) Events() <-chan protocol.Message {
	return c.events
}

func (c *Client) readLoop() {
	defer close(c.events)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				// closed by us, nothing to report
			default:
				slog.Warn("realtime connection lost", "error", err)
				c.deliver(&protocol.TransportError{Message: err.Error()})
			}
			return
		}

		msg, err := protocol.Decode(data)
		if err != nil {
			slog.Warn("dropping undecodable frame", "error", err)
			continue
		}
		if !c.deliver(msg) {
			return
		}
	}
}

// deliver blocks rather than dropping so ordering is never broken
func (c *Client) deliver(msg protocol.Message) bool {
	select {
	case c.events <- msg:
		return true
	case <-c.done:
		return false
	}
}

func (c *Client) send(ctx context.Context, msg protocol.Message) error {
	select {
	case <-c.done:
		return errors.Unavailable("realtime channel is closed")
	default:
	}

	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.writeTimeout)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return errors.WrapWithCode(err, errors.CodeUnavailable, "failed to set write deadline")
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return errors.WrapWithCode(err, errors.CodeUnavailable, "failed to send message").
			WithMeta("type", string(msg.MessageType()))
	}
	return nil
}

func (c *Client) CreateRoom(ctx context.Context, playerName string) error {
	return c.send(ctx, protocol.CreateRoom{PlayerName: playerName})
}

func (c *Client) JoinRoom(ctx context.Context, roomCode, playerName string) error {
	return c.send(ctx, protocol.JoinRoom{RoomCode: roomCode, PlayerName: playerName})
}

func (c *Client) StartGame(ctx context.Context) error {
	return c.send(ctx, protocol.StartGame{})
}

func (c *Client) SubmitAction(ctx context.Context, action *protocol.PlayerAnswer) error {
	if action == nil {
		return errors.InvalidArgument("action is required")
	}
	return c.send(ctx, *action)
}

func (c *Client) UpdateHealth(ctx context.Context, health int) error {
	return c.send(ctx, protocol.UpdateHealth{Health: health})
}

func (c *Client) LeaveRoom(ctx context.Context) error {
	return c.send(ctx, protocol.LeaveRoom{})
}

func (c *Client) RequestSync(ctx context.Context) error {
	return c.send(ctx, protocol.SyncRequest{})
}

// Close closes the connection. The events channel is closed once the read
// loop exits; no TransportError is emitted for a local close.
func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)

		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()

		err = c.conn.Close()
	})
	return err
}
