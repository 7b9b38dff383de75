package arena

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/KirkDiggler/cyber-arena/internal/errors"
	"github.com/KirkDiggler/cyber-arena/internal/pkg/clock"
	"github.com/KirkDiggler/cyber-arena/internal/pkg/idgen"
	"github.com/KirkDiggler/cyber-arena/internal/protocol"
	"github.com/KirkDiggler/cyber-arena/internal/redis"
)

// RoomsKey is the redis hash of open rooms, room code to RoomInfo JSON
const RoomsKey = "arena:rooms"

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4096

	defaultSendBuffer    = 32
	defaultSweepInterval = time.Minute
)

// HubConfig holds the dependencies of a Hub
type HubConfig struct {
	Manager *Manager
	Client  redis.Client
	Clock   clock.Clock
	// ConnIDs names connections (default uuid)
	ConnIDs       idgen.Generator
	SendBuffer    int
	SweepInterval time.Duration
	// CheckOrigin is passed to the websocket upgrader, any origin when nil
	CheckOrigin func(r *http.Request) bool
}

// Validate validates the config and sets defaults
func (cfg *HubConfig) Validate() error {
	vb := errors.NewValidationBuilder()
	if cfg.Manager == nil {
		vb.RequiredField("Manager")
	}
	if cfg.Client == nil {
		vb.RequiredField("Client")
	}
	if err := vb.Build(); err != nil {
		return err
	}

	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.ConnIDs == nil {
		cfg.ConnIDs = idgen.NewUUID("conn")
	}
	if cfg.SendBuffer == 0 {
		cfg.SendBuffer = defaultSendBuffer
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	if cfg.CheckOrigin == nil {
		cfg.CheckOrigin = func(*http.Request) bool { return true }
	}
	return nil
}

type connection struct {
	id   string
	ws   *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *connection) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub serves arena websocket connections. Each connection has a read pump
// feeding the Manager and a buffered write pump.
type Hub struct {
	manager       *Manager
	client        redis.Client
	clock         clock.Clock
	connIDs       idgen.Generator
	sendBuffer    int
	sweepInterval time.Duration
	upgrader      websocket.Upgrader

	mu    sync.RWMutex
	conns map[string]*connection
}

// NewHub creates a hub
func NewHub(cfg *HubConfig) (*Hub, error) {
	if cfg == nil {
		return nil, errors.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &Hub{
		manager:       cfg.Manager,
		client:        cfg.Client,
		clock:         cfg.Clock,
		connIDs:       cfg.ConnIDs,
		sendBuffer:    cfg.SendBuffer,
		sweepInterval: cfg.SweepInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     cfg.CheckOrigin,
		},
		conns: make(map[string]*connection),
	}, nil
}

// ServeWS upgrades the request and serves the connection until it closes
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	c := &connection{
		id:   h.connIDs.Generate(),
		ws:   ws,
		send: make(chan []byte, h.sendBuffer),
	}
	h.mu.Lock()
	h.conns[c.id] = c
	h.mu.Unlock()
	slog.Debug("connection opened", "conn_id", c.id, "remote_addr", r.RemoteAddr)

	go h.writePump(c)
	h.readPump(context.WithoutCancel(r.Context()), c)
}

func (h *Hub) readPump(ctx context.Context, c *connection) {
	defer h.disconnect(ctx, c)

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("connection read failed", "conn_id", c.id, "error", err)
			}
			return
		}

		msg, err := protocol.Decode(data)
		if err != nil {
			h.reject(c.id, err)
			continue
		}
		h.dispatch(ctx, c.id, msg)
	}
}

func (h *Hub) writePump(c *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				slog.Warn("connection write failed", "conn_id", c.id, "error", err)
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dispatch applies msg and delivers the result, keeping the room index in
// step with every room the call touched
func (h *Hub) dispatch(ctx context.Context, conn string, msg protocol.Message) {
	before, _ := h.manager.RoomOf(conn)
	out, err := h.manager.Handle(conn, msg)
	if err != nil {
		slog.Debug("rejected message", "conn_id", conn, "type", msg.MessageType(), "error", err)
		h.reject(conn, err)
		return
	}
	h.deliver(out)

	after, _ := h.manager.RoomOf(conn)
	h.index(ctx, before, after)
}

func (h *Hub) disconnect(ctx context.Context, c *connection) {
	code, _ := h.manager.RoomOf(c.id)
	h.deliver(h.manager.Leave(c.id))
	h.index(ctx, code)

	h.mu.Lock()
	delete(h.conns, c.id)
	c.close()
	h.mu.Unlock()
	slog.Debug("connection closed", "conn_id", c.id)
}

func (h *Hub) reject(conn string, err error) {
	h.deliver([]Outbound{{To: conn, Message: &protocol.Error{Message: errors.GetMessage(err)}}})
}

// deliver queues each message on its connection. A connection whose buffer
// is full is dropped.
func (h *Hub) deliver(out []Outbound) {
	for _, o := range out {
		data, err := protocol.Encode(o.Message)
		if err != nil {
			slog.Error("failed to encode message", "type", o.Message.MessageType(), "error", err)
			continue
		}

		// the read lock keeps disconnect from closing send mid delivery
		h.mu.RLock()
		if c, ok := h.conns[o.To]; ok {
			select {
			case c.send <- data:
			default:
				slog.Warn("send buffer full, dropping connection", "conn_id", c.id)
				_ = c.ws.Close()
			}
		}
		h.mu.RUnlock()
	}
}

// index records open rooms in redis and removes the others
func (h *Hub) index(ctx context.Context, codes ...string) {
	seen := make(map[string]bool, len(codes))
	for _, code := range codes {
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true

		info, ok := h.manager.Room(code)
		if !ok || info.Full {
			if err := h.client.HDel(ctx, RoomsKey, code).Err(); err != nil {
				slog.Warn("failed to unlist room", "room_code", code, "error", err)
			}
			continue
		}

		data, err := json.Marshal(info)
		if err != nil {
			slog.Error("failed to encode room", "room_code", code, "error", err)
			continue
		}
		if err := h.client.HSet(ctx, RoomsKey, code, data).Err(); err != nil {
			slog.Warn("failed to list room", "room_code", code, "error", err)
		}
	}
}

// ListRooms returns the open rooms recorded in redis, oldest first
func (h *Hub) ListRooms(ctx context.Context) ([]RoomInfo, error) {
	values, err := h.client.HGetAll(ctx, RoomsKey).Result()
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeUnavailable, "failed to list rooms")
	}

	rooms := make([]RoomInfo, 0, len(values))
	for code, value := range values {
		var info RoomInfo
		if err := json.Unmarshal([]byte(value), &info); err != nil {
			slog.Warn("skipping corrupt room entry", "room_code", code, "error", err)
			continue
		}
		rooms = append(rooms, info)
	}
	sortRooms(rooms)
	return rooms, nil
}

// Run closes stale rooms every sweep interval until ctx is done
func (h *Hub) Run(ctx context.Context) error {
	ticker := h.clock.NewTicker(h.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C():
			h.Sweep(ctx)
		}
	}
}

// Sweep closes rooms that waited too long for an opponent
func (h *Hub) Sweep(ctx context.Context) {
	codes, out := h.manager.CleanupStale()
	h.deliver(out)
	h.index(ctx, codes...)
}

// Connections returns the number of open connections
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
