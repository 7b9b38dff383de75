// Package syncbus keeps every consumer of a player's experience record in
// step. It is the only writer of the durable record.
//
// The same fact travels three ways: synchronous in-process delivery, a
// cross-process broadcast, and a periodic reconciliation pull from storage.
// Consistency across processes is last-write-wins by publish time; two
// processes awarding XP at the same moment can lose one increment.
package syncbus

//go:generate mockgen -destination=mock/mock_broadcaster.go -package=syncbusmock github.com/KirkDiggler/cyber-arena/internal/syncbus Broadcaster

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/KirkDiggler/rpg-toolkit/core"
	"github.com/KirkDiggler/rpg-toolkit/events"
	"github.com/google/uuid"

	"github.com/KirkDiggler/cyber-arena/internal/engine/experience"
	"github.com/KirkDiggler/cyber-arena/internal/entities"
	"github.com/KirkDiggler/cyber-arena/internal/errors"
	"github.com/KirkDiggler/cyber-arena/internal/pkg/clock"
	progressrepo "github.com/KirkDiggler/cyber-arena/internal/repositories/progress"
)

// EventExperienceUpdated is the in-process event type carrying an Update
const EventExperienceUpdated = "experience.updated"

// Origin tells a listener how an update reached it
type Origin string

const (
	OriginLocal     Origin = "local"
	OriginRemote    Origin = "remote"
	OriginReconcile Origin = "reconcile"
	OriginReplay    Origin = "replay"
)

// Update is one delivered experience record
type Update struct {
	Record      entities.ExperienceRecord
	Origin      Origin
	PublishedAt time.Time
	// PreviousLevel is the level last known before this update, 0 if unknown
	PreviousLevel int
}

// LeveledUp reports whether this update crossed at least one level
func (u Update) LeveledUp() bool {
	return u.PreviousLevel > 0 && u.Record.Level > u.PreviousLevel
}

// Listener receives updates. Listeners run synchronously on the publishing
// goroutine and must not call Publish themselves.
type Listener func(ctx context.Context, update Update)

// Envelope is what crosses process boundaries
type Envelope struct {
	Instance    string                    `json:"instance"`
	PublishedAt time.Time                 `json:"published_at"`
	Record      entities.ExperienceRecord `json:"record"`
}

// Broadcaster fans records out to other processes
type Broadcaster interface {
	Broadcast(ctx context.Context, env *Envelope) error
	// Receive streams envelopes from every process, including this one,
	// until ctx is done
	Receive(ctx context.Context) (<-chan *Envelope, error)
}

// Config configures a Bus
type Config struct {
	Repository progressrepo.Repository
	// Broadcaster is optional; without it the bus is process local
	Broadcaster Broadcaster
	// EventBus is optional, defaults to events.NewBus()
	EventBus events.EventBus
	// Clock is optional, defaults to the real clock
	Clock             clock.Clock
	ReconcileInterval time.Duration
	// InstanceID is optional, defaults to a random UUID
	InstanceID string
}

// Validate validates the Config and sets defaults if not provided.
func (cfg *Config) Validate() error {
	if cfg.Repository == nil {
		return errors.InvalidArgument("repository is required")
	}
	if cfg.EventBus == nil {
		cfg.EventBus = events.NewBus()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.ReconcileInterval == 0 {
		cfg.ReconcileInterval = 30 * time.Second
	}
	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}
	return nil
}

// Bus is the experience sync bus
type Bus struct {
	repo        progressrepo.Repository
	broadcaster Broadcaster
	eventBus    events.EventBus
	clock       clock.Clock
	interval    time.Duration
	instance    string

	// publishMu serializes persist and delivery so listeners never see an
	// older record after a newer one
	publishMu sync.Mutex

	mu      sync.Mutex
	last    map[string]Update
	watched map[string]string // subscription id -> player id
}

// New creates a Bus
func New(cfg *Config) (*Bus, error) {
	if cfg == nil {
		return nil, errors.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &Bus{
		repo:        cfg.Repository,
		broadcaster: cfg.Broadcaster,
		eventBus:    cfg.EventBus,
		clock:       cfg.Clock,
		interval:    cfg.ReconcileInterval,
		instance:    cfg.InstanceID,
		last:        make(map[string]Update),
		watched:     make(map[string]string),
	}, nil
}

// InstanceID identifies this bus in broadcasts
func (b *Bus) InstanceID() string {
	return b.instance
}

// recordEntity carries an update through the event bus as the event source
type recordEntity struct {
	update Update
}

var _ core.Entity = (*recordEntity)(nil)

func (e *recordEntity) GetID() string   { return e.update.Record.PlayerID }
func (e *recordEntity) GetType() string { return "experience_record" }

// Publish recomputes the derived fields of record, persists it, delivers it
// to in-process listeners and broadcasts it to other processes. A persistence
// failure is returned and nothing is delivered; a broadcast failure is only
// logged since reconciliation will carry the record over.
func (b *Bus) Publish(ctx context.Context, record entities.ExperienceRecord) (Update, error) {
	if record.PlayerID == "" {
		return Update{}, errors.InvalidArgument("player ID is required")
	}
	if record.TotalXP < 0 {
		return Update{}, errors.InvalidArgumentf("total XP cannot be negative: %d", record.TotalXP)
	}

	b.publishMu.Lock()
	defer b.publishMu.Unlock()

	now := b.clock.Now()
	record.UpdatedAt = now
	record = experience.Recompute(record)

	if _, err := b.repo.SaveExperience(ctx, progressrepo.SaveExperienceInput{Record: &record}); err != nil {
		return Update{}, errors.Wrap(err, "failed to persist experience record")
	}

	update := b.remember(Update{Record: record, Origin: OriginLocal, PublishedAt: now})
	b.deliver(ctx, update)

	if b.broadcaster != nil {
		err := b.broadcaster.Broadcast(ctx, &Envelope{Instance: b.instance, PublishedAt: now, Record: record})
		if err != nil {
			slog.Warn("failed to broadcast experience record",
				"player_id", record.PlayerID,
				"error", err)
		}
	}

	return update, nil
}

// remember stores update as the latest known value and fills PreviousLevel
func (b *Bus) remember(update Update) Update {
	b.mu.Lock()
	defer b.mu.Unlock()

	if prev, ok := b.last[update.Record.PlayerID]; ok {
		update.PreviousLevel = prev.Record.Level
	} else if gain := update.Record.LastGain; gain != nil {
		// first update seen by this process: derive the level before the gain
		update.PreviousLevel = experience.LevelFromXP(update.Record.TotalXP - gain.Amount)
	}
	b.last[update.Record.PlayerID] = update
	return update
}

// newer reports whether an update published at t for player should replace
// the latest known value
func (b *Bus) newer(playerID string, t time.Time, record entities.ExperienceRecord) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	prev, ok := b.last[playerID]
	if !ok {
		return true
	}
	if t.Before(prev.PublishedAt) {
		return false
	}
	// same instant and same content is a duplicate, not an update
	return !(t.Equal(prev.PublishedAt) && prev.Record.TotalXP == record.TotalXP && prev.Record.Streak == record.Streak)
}

func (b *Bus) deliver(ctx context.Context, update Update) {
	event := events.NewGameEvent(EventExperienceUpdated, &recordEntity{update: update}, nil)
	if err := b.eventBus.Publish(ctx, event); err != nil {
		slog.Error("failed to deliver experience update",
			"player_id", update.Record.PlayerID,
			"error", err)
	}
}

// Subscribe registers listener for one player, or every player when
// playerID is empty. If a value is already known the listener is invoked
// once with it before Subscribe returns.
func (b *Bus) Subscribe(ctx context.Context, playerID string, listener Listener) string {
	id := b.eventBus.SubscribeFunc(EventExperienceUpdated, 0, func(ctx context.Context, e events.Event) error {
		src, ok := e.Source().(*recordEntity)
		if !ok {
			return nil
		}
		if playerID != "" && src.update.Record.PlayerID != playerID {
			return nil
		}
		invoke(ctx, listener, src.update)
		return nil
	})

	b.mu.Lock()
	b.watched[id] = playerID
	var replay []Update
	for pid, u := range b.last {
		if playerID == "" || pid == playerID {
			u.Origin = OriginReplay
			u.PreviousLevel = 0
			replay = append(replay, u)
		}
	}
	b.mu.Unlock()

	for _, u := range replay {
		invoke(ctx, listener, u)
	}
	return id
}

// invoke isolates listeners from each other
func invoke(ctx context.Context, listener Listener, update Update) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("experience listener panicked",
				"player_id", update.Record.PlayerID,
				"panic", fmt.Sprint(r))
		}
	}()
	listener(ctx, update)
}

// Unsubscribe removes a listener
func (b *Bus) Unsubscribe(id string) error {
	b.mu.Lock()
	delete(b.watched, id)
	b.mu.Unlock()

	if err := b.eventBus.Unsubscribe(id); err != nil {
		return errors.Wrapf(err, "failed to unsubscribe %s", id)
	}
	return nil
}

// Last returns the latest known update of a player
func (b *Bus) Last(playerID string) (Update, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	u, ok := b.last[playerID]
	return u, ok
}

// Reconcile pulls the durable record of a player and delivers it when it is
// newer than what this process knows. Call it periodically and whenever a
// consumer regains focus.
func (b *Bus) Reconcile(ctx context.Context, playerID string) error {
	out, err := b.repo.GetExperience(ctx, progressrepo.GetInput{PlayerID: playerID})
	if err != nil {
		if errors.IsNotFound(err) {
			return nil
		}
		return errors.Wrap(err, "failed to reconcile experience record")
	}

	b.accept(ctx, Update{
		Record:      experience.Recompute(*out.Record),
		Origin:      OriginReconcile,
		PublishedAt: out.Record.UpdatedAt,
	})
	return nil
}

func (b *Bus) handleRemote(ctx context.Context, env *Envelope) {
	if env == nil || env.Instance == b.instance || env.Record.PlayerID == "" {
		return
	}
	b.accept(ctx, Update{
		Record:      experience.Recompute(env.Record),
		Origin:      OriginRemote,
		PublishedAt: env.PublishedAt,
	})
}

// accept merges an update from storage or another process under LWW
func (b *Bus) accept(ctx context.Context, update Update) {
	b.publishMu.Lock()
	defer b.publishMu.Unlock()

	if !b.newer(update.Record.PlayerID, update.PublishedAt, update.Record) {
		slog.Debug("dropping stale experience record",
			"player_id", update.Record.PlayerID,
			"origin", update.Origin,
			"published_at", update.PublishedAt)
		return
	}
	b.deliver(ctx, b.remember(update))
}

// ReconcileAll reconciles every player that has a listener or a known value
func (b *Bus) ReconcileAll(ctx context.Context) {
	for _, playerID := range b.players() {
		if err := b.Reconcile(ctx, playerID); err != nil {
			slog.Warn("reconcile failed", "player_id", playerID, "error", err)
		}
	}
}

func (b *Bus) players() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	seen := make(map[string]struct{})
	var out []string
	add := func(id string) {
		if _, ok := seen[id]; ok || id == "" {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, id := range b.watched {
		add(id)
	}
	for id := range b.last {
		add(id)
	}
	return out
}

// Run receives remote broadcasts and reconciles on a fixed interval until
// ctx is done
func (b *Bus) Run(ctx context.Context) error {
	var remote <-chan *Envelope
	if b.broadcaster != nil {
		ch, err := b.broadcaster.Receive(ctx)
		if err != nil {
			return errors.Wrap(err, "failed to receive broadcasts")
		}
		remote = ch
	}

	ticker := b.clock.NewTicker(b.interval)
	defer ticker.Stop()

	slog.Info("sync bus running",
		"instance", b.instance,
		"reconcile_interval", b.interval)

	for {
		select {
		case <-ctx.Done():
			return nil
		case env, ok := <-remote:
			if !ok {
				slog.Warn("broadcast stream closed, continuing with reconciliation only")
				remote = nil
				continue
			}
			b.handleRemote(ctx, env)
		case <-ticker.C():
			b.ReconcileAll(ctx)
		}
	}
}
