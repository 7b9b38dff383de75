package profile

import (
	"context"
	"log/slog"
	"sync"

	"github.com/KirkDiggler/cyber-arena/internal/entities"
	"github.com/KirkDiggler/cyber-arena/internal/errors"
	progressrepo "github.com/KirkDiggler/cyber-arena/internal/repositories/progress"
	"github.com/KirkDiggler/cyber-arena/internal/syncbus"
)

// Subscriber is the part of the sync bus the syncer listens on
type Subscriber interface {
	Subscribe(ctx context.Context, playerID string, listener syncbus.Listener) string
	Unsubscribe(id string) error
}

// SyncerConfig holds the dependencies for a Syncer
type SyncerConfig struct {
	Bus        Subscriber
	Repository progressrepo.Repository
	Client     Client
}

// Validate ensures all required dependencies are provided
func (cfg *SyncerConfig) Validate() error {
	vb := errors.NewValidationBuilder()
	if cfg.Bus == nil {
		vb.RequiredField("Bus")
	}
	if cfg.Repository == nil {
		vb.RequiredField("Repository")
	}
	if cfg.Client == nil {
		vb.RequiredField("Client")
	}
	return vb.Build()
}

// Syncer forwards every experience update to the profile service. Updates
// are coalesced per player and pushed off the publishing goroutine; a failed
// push is logged and superseded by the next update.
type Syncer struct {
	bus    Subscriber
	repo   progressrepo.Repository
	client Client

	mu      sync.Mutex
	pending map[string]syncbus.Update
	order   []string
	wake    chan struct{}
}

// NewSyncer creates a Syncer
func NewSyncer(cfg *SyncerConfig) (*Syncer, error) {
	if cfg == nil {
		return nil, errors.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &Syncer{
		bus:     cfg.Bus,
		repo:    cfg.Repository,
		client:  cfg.Client,
		pending: make(map[string]syncbus.Update),
		wake:    make(chan struct{}, 1),
	}, nil
}

func (s *Syncer) enqueue(_ context.Context, update syncbus.Update) {
	s.mu.Lock()
	id := update.Record.PlayerID
	if _, ok := s.pending[id]; !ok {
		s.order = append(s.order, id)
	}
	s.pending[id] = update
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Syncer) drain() []syncbus.Update {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]syncbus.Update, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.pending[id])
	}
	s.order = s.order[:0]
	clear(s.pending)
	return out
}

// Run subscribes to every player's updates and pushes them until ctx is done
func (s *Syncer) Run(ctx context.Context) error {
	id := s.bus.Subscribe(ctx, "", s.enqueue)
	defer func() {
		if err := s.bus.Unsubscribe(id); err != nil {
			slog.Warn("failed to unsubscribe profile syncer", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.wake:
			for _, update := range s.drain() {
				if err := s.Push(ctx, update); err != nil {
					slog.Warn("failed to push progress snapshot",
						"player_id", update.Record.PlayerID,
						"error", err)
				}
			}
		}
	}
}

// Push sends the snapshot for one update. Quiz and lesson history comes
// from the repository, totals come from the update itself.
func (s *Syncer) Push(ctx context.Context, update syncbus.Update) error {
	playerID := update.Record.PlayerID
	snapshot := &entities.ProgressSnapshot{PlayerID: playerID}

	out, err := s.repo.GetProgress(ctx, progressrepo.GetInput{PlayerID: playerID})
	switch {
	case err == nil:
		snapshot = out.Snapshot
	case !errors.IsNotFound(err):
		return errors.Wrap(err, "failed to load progress")
	}

	snapshot.TotalXP = update.Record.TotalXP
	snapshot.Level = update.Record.Level
	if snapshot.CompletedQuizzes == nil {
		snapshot.CompletedQuizzes = []entities.QuizCompletion{}
	}
	if snapshot.CompletedLessons == nil {
		snapshot.CompletedLessons = []string{}
	}

	if err := s.client.PushSnapshot(ctx, snapshot); err != nil {
		return err
	}

	slog.Debug("progress snapshot pushed", "player_id", playerID, "total_xp", snapshot.TotalXP)
	return nil
}
