// Package arena is the authoritative duel server. The Manager owns room
// state and turn order; the Hub carries its messages over websocket
// connections.
package arena

import (
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/KirkDiggler/cyber-arena/internal/engine/combat"
	"github.com/KirkDiggler/cyber-arena/internal/errors"
	"github.com/KirkDiggler/cyber-arena/internal/pkg/clock"
	"github.com/KirkDiggler/cyber-arena/internal/pkg/idgen"
	"github.com/KirkDiggler/cyber-arena/internal/protocol"
)

const (
	// DefaultRoomTTL is how long a room may wait for an opponent
	DefaultRoomTTL = 10 * time.Minute

	maxCodeAttempts = 16
)

// Outbound is a message addressed to one connection
type Outbound struct {
	To      string
	Message protocol.Message
}

// RoomInfo describes an open room in listings
type RoomInfo struct {
	Code        string    `json:"room_code"`
	CreatorName string    `json:"creator_name"`
	Full        bool      `json:"full"`
	Started     bool      `json:"started"`
	CreatedAt   time.Time `json:"created_at"`
}

type seat struct {
	conn   string
	name   string
	health int
}

func (s *seat) empty() bool {
	return s.conn == ""
}

type room struct {
	code      string
	creator   seat
	opponent  seat
	createdAt time.Time
	started   bool
	// turn is the connection whose action is expected
	turn string
}

func (r *room) full() bool {
	return !r.opponent.empty()
}

// seats returns the caller's seat and the other one
func (r *room) seats(conn string) (self, other *seat) {
	if conn == r.creator.conn {
		return &r.creator, &r.opponent
	}
	return &r.opponent, &r.creator
}

func (r *room) info() RoomInfo {
	return RoomInfo{
		Code:        r.code,
		CreatorName: r.creator.name,
		Full:        r.full(),
		Started:     r.started,
		CreatedAt:   r.createdAt,
	}
}

// ManagerConfig holds the dependencies of a Manager
type ManagerConfig struct {
	Codes   idgen.Generator
	Clock   clock.Clock
	RoomTTL time.Duration
}

// Validate validates the config and sets defaults
func (cfg *ManagerConfig) Validate() error {
	vb := errors.NewValidationBuilder()
	if cfg.RoomTTL < 0 {
		vb.Field("RoomTTL", "must not be negative")
	}
	if err := vb.Build(); err != nil {
		return err
	}

	if cfg.Codes == nil {
		cfg.Codes = idgen.NewRoomCode()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.RoomTTL == 0 {
		cfg.RoomTTL = DefaultRoomTTL
	}
	return nil
}

// Manager tracks rooms and the connection seated in each. Every mutating call
// returns the messages to deliver; an error is meant for the caller only.
type Manager struct {
	codes   idgen.Generator
	clock   clock.Clock
	roomTTL time.Duration

	mu     sync.Mutex
	rooms  map[string]*room
	byConn map[string]string
}

// NewManager creates a room manager
func NewManager(cfg *ManagerConfig) (*Manager, error) {
	if cfg == nil {
		return nil, errors.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &Manager{
		codes:   cfg.Codes,
		clock:   cfg.Clock,
		roomTTL: cfg.RoomTTL,
		rooms:   make(map[string]*room),
		byConn:  make(map[string]string),
	}, nil
}

// Handle dispatches one client message
func (m *Manager) Handle(conn string, msg protocol.Message) ([]Outbound, error) {
	switch t := msg.(type) {
	case *protocol.CreateRoom:
		return m.CreateRoom(conn, t.PlayerName)
	case *protocol.JoinRoom:
		return m.JoinRoom(conn, t.RoomCode, t.PlayerName)
	case *protocol.StartGame:
		return m.StartGame(conn)
	case *protocol.PlayerAnswer:
		return m.SubmitAction(conn, t)
	case *protocol.UpdateHealth:
		return m.UpdateHealth(conn, t.Health)
	case *protocol.LeaveRoom:
		return m.Leave(conn), nil
	case *protocol.SyncRequest:
		return m.Sync(conn), nil
	default:
		return nil, errors.InvalidArgumentf("unexpected message %q", msg.MessageType())
	}
}

// CreateRoom opens a room with conn as its creator
func (m *Manager) CreateRoom(conn, playerName string) ([]Outbound, error) {
	name := strings.TrimSpace(playerName)
	if name == "" {
		return nil, errors.InvalidArgument("player name is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if code, ok := m.byConn[conn]; ok {
		return nil, errors.AlreadyExists("already in room " + code)
	}

	code, err := m.newCode()
	if err != nil {
		return nil, err
	}

	m.rooms[code] = &room{
		code:      code,
		creator:   seat{conn: conn, name: name, health: combat.BaselineHealth},
		createdAt: m.clock.Now(),
	}
	m.byConn[conn] = code

	slog.Info("room created", "room_code", code, "player_name", name)
	return []Outbound{{To: conn, Message: &protocol.RoomCreated{RoomCode: code, PlayerName: name}}}, nil
}

func (m *Manager) newCode() (string, error) {
	for range maxCodeAttempts {
		code := m.codes.Generate()
		if _, taken := m.rooms[code]; !taken {
			return code, nil
		}
	}
	return "", errors.Internal("failed to allocate a room code")
}

// JoinRoom seats conn as the opponent of an open room
func (m *Manager) JoinRoom(conn, roomCode, playerName string) ([]Outbound, error) {
	code := strings.ToUpper(strings.TrimSpace(roomCode))
	name := strings.TrimSpace(playerName)

	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("room_code", code, vb)
	errors.ValidateRequired("player_name", name, vb)
	if err := vb.Build(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if current, ok := m.byConn[conn]; ok {
		return nil, errors.FailedPreconditionf("already in room %s", current)
	}
	r, ok := m.rooms[code]
	if !ok {
		return nil, errors.NotFoundf("room %s not found", code)
	}
	if r.full() {
		return nil, errors.FailedPreconditionf("room %s is full", code)
	}

	r.opponent = seat{conn: conn, name: name, health: combat.BaselineHealth}
	m.byConn[conn] = code

	slog.Info("room joined", "room_code", code, "player_name", name)
	return []Outbound{
		{To: conn, Message: &protocol.RoomJoined{RoomCode: code, PlayerName: name, OpponentName: r.creator.name}},
		{To: r.creator.conn, Message: &protocol.OpponentJoined{OpponentName: name}},
	}, nil
}

// StartGame starts a full room. Only the creator may start and always
// plays first.
func (m *Manager) StartGame(conn string) ([]Outbound, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, err := m.roomOf(conn)
	if err != nil {
		return nil, err
	}
	switch {
	case conn != r.creator.conn:
		return nil, errors.FailedPrecondition("only the room creator can start the game")
	case !r.full():
		return nil, errors.FailedPrecondition("waiting for an opponent to join")
	case r.started:
		return nil, errors.FailedPrecondition("game already started")
	}

	r.started = true
	r.turn = r.creator.conn
	r.creator.health = combat.BaselineHealth
	r.opponent.health = combat.BaselineHealth

	slog.Info("game started", "room_code", r.code)
	return []Outbound{
		{To: r.creator.conn, Message: &protocol.GameStarted{YourTurn: true, PlayerName: r.creator.name, OpponentName: r.opponent.name}},
		{To: r.opponent.conn, Message: &protocol.GameStarted{YourTurn: false, PlayerName: r.opponent.name, OpponentName: r.creator.name}},
	}, nil
}

// SubmitAction applies the acting player's answered action. Damage only
// lands on a correct answer; the victim's health never drops below zero.
func (m *Manager) SubmitAction(conn string, action *protocol.PlayerAnswer) ([]Outbound, error) {
	if action == nil {
		return nil, errors.InvalidArgument("action is required")
	}
	if action.Damage < 0 {
		return nil, errors.InvalidArgumentf("damage must not be negative: %d", action.Damage)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	r, err := m.turnRoom(conn)
	if err != nil {
		return nil, err
	}
	actor, victim := r.seats(conn)

	damage := 0
	if action.IsCorrect {
		damage = min(action.Damage, victim.health)
		victim.health -= damage
	}
	if action.NewHealth != victim.health {
		slog.Debug("client prediction differs from server",
			"room_code", r.code,
			"predicted", action.NewHealth,
			"actual", victim.health)
	}

	out := []Outbound{
		{To: actor.conn, Message: &protocol.AttackConfirmed{VictimNewHealth: victim.health}},
		{To: victim.conn, Message: &protocol.OpponentAttack{Damage: damage, YourNewHealth: victim.health, AttackerHealth: actor.health}},
	}

	if victim.health == 0 {
		r.started = false
		r.turn = ""
		slog.Info("game ended", "room_code", r.code, "winner", actor.name)
		return append(out,
			Outbound{To: actor.conn, Message: &protocol.GameEnded{Winner: true, Message: "You defeated " + victim.name + "!"}},
			Outbound{To: victim.conn, Message: &protocol.GameEnded{Winner: false, Message: actor.name + " wins the duel"}},
		), nil
	}

	r.turn = victim.conn
	return append(out,
		Outbound{To: actor.conn, Message: &protocol.TurnChanged{YourTurn: false}},
		Outbound{To: victim.conn, Message: &protocol.TurnChanged{YourTurn: true}},
	), nil
}

// UpdateHealth sets the acting player's own health after a heal. The turn
// does not change; the following action hands it over.
func (m *Manager) UpdateHealth(conn string, health int) ([]Outbound, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, err := m.turnRoom(conn)
	if err != nil {
		return nil, err
	}
	self, other := r.seats(conn)
	self.health = max(0, min(health, combat.BaselineHealth))

	return []Outbound{
		{To: self.conn, Message: &protocol.HealthConfirmed{Health: self.health}},
		{To: other.conn, Message: &protocol.OpponentHealthUpdate{OpponentHealth: self.health}},
	}, nil
}

// Sync answers with the authoritative state of the caller's room. A caller
// without a room gets a state that is not started.
func (m *Manager) Sync(conn string) []Outbound {
	m.mu.Lock()
	defer m.mu.Unlock()

	code, ok := m.byConn[conn]
	if !ok {
		return []Outbound{{To: conn, Message: &protocol.StateSync{}}}
	}
	r := m.rooms[code]
	self, other := r.seats(conn)

	return []Outbound{{To: conn, Message: &protocol.StateSync{
		RoomCode:       r.code,
		Started:        r.started,
		YourTurn:       r.started && r.turn == conn,
		YourHealth:     self.health,
		OpponentHealth: other.health,
		OpponentName:   other.name,
	}}}
}

// Leave removes conn from its room. A leaving creator closes the room; a
// leaving opponent frees the seat for another player.
func (m *Manager) Leave(conn string) []Outbound {
	m.mu.Lock()
	defer m.mu.Unlock()

	code, ok := m.byConn[conn]
	if !ok {
		return nil
	}
	r := m.rooms[code]
	delete(m.byConn, conn)

	if conn == r.creator.conn {
		delete(m.rooms, code)
		slog.Info("room closed", "room_code", code)
		if r.opponent.empty() {
			return nil
		}
		delete(m.byConn, r.opponent.conn)
		return []Outbound{{To: r.opponent.conn, Message: &protocol.OpponentLeft{Message: "The host closed the room"}}}
	}

	name := r.opponent.name
	r.opponent = seat{}
	r.started = false
	r.turn = ""
	r.creator.health = combat.BaselineHealth
	slog.Info("opponent left room", "room_code", code, "player_name", name)
	return []Outbound{{To: r.creator.conn, Message: &protocol.OpponentLeft{Message: name + " left the room"}}}
}

// CleanupStale closes rooms that waited longer than the room TTL for an
// opponent and returns their codes with the notices for their creators
func (m *Manager) CleanupStale() ([]string, []Outbound) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	var codes []string
	var out []Outbound
	for code, r := range m.rooms {
		if r.full() || now.Sub(r.createdAt) <= m.roomTTL {
			continue
		}
		delete(m.rooms, code)
		delete(m.byConn, r.creator.conn)
		codes = append(codes, code)
		out = append(out, Outbound{To: r.creator.conn, Message: &protocol.RoomClosed{Message: "Room " + code + " expired"}})
	}
	if len(codes) > 0 {
		sort.Strings(codes)
		slog.Info("closed stale rooms", "count", len(codes))
	}
	return codes, out
}

// RoomOf returns the code of the room conn is seated in
func (m *Manager) RoomOf(conn string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	code, ok := m.byConn[conn]
	return code, ok
}

// Room describes one room
func (m *Manager) Room(code string) (RoomInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[code]
	if !ok {
		return RoomInfo{}, false
	}
	return r.info(), true
}

// OpenRooms lists rooms waiting for an opponent, oldest first
func (m *Manager) OpenRooms() []RoomInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	var rooms []RoomInfo
	for _, r := range m.rooms {
		if !r.full() {
			rooms = append(rooms, r.info())
		}
	}
	sortRooms(rooms)
	return rooms
}

func sortRooms(rooms []RoomInfo) {
	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].CreatedAt.Equal(rooms[j].CreatedAt) {
			return rooms[i].Code < rooms[j].Code
		}
		return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
	})
}

func (m *Manager) roomOf(conn string) (*room, error) {
	code, ok := m.byConn[conn]
	if !ok {
		return nil, errors.FailedPrecondition("not in a room")
	}
	return m.rooms[code], nil
}

// turnRoom returns the caller's room when it is the caller's turn
func (m *Manager) turnRoom(conn string) (*room, error) {
	r, err := m.roomOf(conn)
	if err != nil {
		return nil, err
	}
	if !r.started {
		return nil, errors.FailedPrecondition("game has not started")
	}
	if r.turn != conn {
		return nil, errors.FailedPrecondition("not your turn")
	}
	return r, nil
}
