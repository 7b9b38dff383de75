// Package app wires the progression stack shared by the server and client
// commands: redis, the progress repository, the sync bus and the progress
// service.
package app

import (
	"context"
	"log/slog"

	"github.com/KirkDiggler/cyber-arena/internal/clients/profile"
	"github.com/KirkDiggler/cyber-arena/internal/config"
	"github.com/KirkDiggler/cyber-arena/internal/engine/trivia"
	"github.com/KirkDiggler/cyber-arena/internal/errors"
	"github.com/KirkDiggler/cyber-arena/internal/pkg/clock"
	"github.com/KirkDiggler/cyber-arena/internal/redis"
	progressrepo "github.com/KirkDiggler/cyber-arena/internal/repositories/progress"
	"github.com/KirkDiggler/cyber-arena/internal/services/progress"
	"github.com/KirkDiggler/cyber-arena/internal/syncbus"
)

// App holds the wired components
type App struct {
	Config     *config.Config
	Clock      clock.Clock
	Redis      redis.Client
	Repository progressrepo.Repository
	Bus        *syncbus.Bus
	Progress   progress.Service
	Questions  *trivia.Bank
	// Syncer is nil unless a profile service URL is configured
	Syncer *profile.Syncer
}

// New connects to redis and builds the stack. The caller owns Close.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.InvalidArgument("config is required")
	}

	client, err := redis.NewClient(cfg.RedisAddr, cfg.RedisOptions())
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeInvalidArgument, "failed to create redis client")
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.WrapWithCode(err, errors.CodeUnavailable, "redis is unreachable").
			WithMeta("addr", cfg.RedisAddr)
	}

	a, err := build(cfg, client, clock.New())
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return a, nil
}

func build(cfg *config.Config, client redis.Client, clk clock.Clock) (*App, error) {
	repo, err := progressrepo.NewRedisRepository(&progressrepo.Config{Client: client})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create progress repository")
	}

	broadcaster, err := syncbus.NewRedisBroadcaster(client, cfg.SyncChannel)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create broadcaster")
	}

	bus, err := syncbus.New(&syncbus.Config{
		Repository:        repo,
		Broadcaster:       broadcaster,
		Clock:             clk,
		ReconcileInterval: cfg.ReconcileInterval,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create sync bus")
	}

	svc, err := progress.NewService(&progress.Config{
		Bus:        bus,
		Repository: repo,
		Clock:      clk,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create progress service")
	}

	var bank *trivia.Bank
	if cfg.QuestionBank != "" {
		bank, err = trivia.LoadBankFile(cfg.QuestionBank, nil)
	} else {
		bank, err = trivia.DefaultBank(nil)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load question bank")
	}

	a := &App{
		Config:     cfg,
		Clock:      clk,
		Redis:      client,
		Repository: repo,
		Bus:        bus,
		Progress:   svc,
		Questions:  bank,
	}

	if cfg.ProfileURL != "" {
		profileClient, err := profile.New(&profile.Config{BaseURL: cfg.ProfileURL})
		if err != nil {
			return nil, errors.Wrap(err, "failed to create profile client")
		}
		a.Syncer, err = profile.NewSyncer(&profile.SyncerConfig{
			Bus:        bus,
			Repository: repo,
			Client:     profileClient,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to create profile syncer")
		}
	}

	slog.Debug("progression stack ready",
		"redis_addr", cfg.RedisAddr,
		"instance_id", bus.InstanceID(),
		"profile_sync", a.Syncer != nil)
	return a, nil
}

// Run runs the background loops (bus reconciliation and remote delivery,
// profile pushes) until ctx is done
func (a *App) Run(ctx context.Context) error {
	errc := make(chan error, 2)
	running := 1
	go func() { errc <- a.Bus.Run(ctx) }()
	if a.Syncer != nil {
		running++
		go func() { errc <- a.Syncer.Run(ctx) }()
	}

	var first error
	for range running {
		if err := <-errc; err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close releases the redis connection
func (a *App) Close() error {
	return a.Redis.Close()
}
