package progress

import (
	"context"
	"encoding/json"

	redis "github.com/redis/go-redis/v9"

	"github.com/KirkDiggler/cyber-arena/internal/entities"
	"github.com/KirkDiggler/cyber-arena/internal/errors"
	redisclient "github.com/KirkDiggler/cyber-arena/internal/redis"
)

const (
	// Key patterns, one JSON document per key
	experienceKeyPrefix = "experience:"
	progressKeyPrefix   = "progress:"
	labKeyPrefix        = "ctf_progress:"

	errPlayerIDEmpty = "player ID cannot be empty"
)

// Config holds the configuration for the Redis repository
type Config struct {
	Client redisclient.Client
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	if c.Client == nil {
		return errors.InvalidArgument("redis client is required")
	}
	return nil
}

type redisRepository struct {
	client redisclient.Client
}

// NewRedisRepository creates a new Redis repository for progression documents
func NewRedisRepository(cfg *Config) (Repository, error) {
	if cfg == nil {
		return nil, errors.InvalidArgument("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &redisRepository{client: cfg.Client}, nil
}

// Ensure redisRepository implements Repository
var _ Repository = (*redisRepository)(nil)

// ExperienceKey returns the key of a player's experience record
func ExperienceKey(playerID string) string { return experienceKeyPrefix + playerID }

// ProgressKey returns the key of a player's learning progress
func ProgressKey(playerID string) string { return progressKeyPrefix + playerID }

// LabProgressKey returns the key of a player's CTF progress
func LabProgressKey(playerID string) string { return labKeyPrefix + playerID }

func (r *redisRepository) GetExperience(ctx context.Context, input GetInput) (*GetExperienceOutput, error) {
	if input.PlayerID == "" {
		return nil, errors.InvalidArgument(errPlayerIDEmpty)
	}

	var record entities.ExperienceRecord
	if err := r.load(ctx, ExperienceKey(input.PlayerID), &record); err != nil {
		return nil, err
	}
	return &GetExperienceOutput{Record: &record}, nil
}

func (r *redisRepository) SaveExperience(ctx context.Context, input SaveExperienceInput) (*SaveExperienceOutput, error) {
	if input.Record == nil {
		return nil, errors.InvalidArgument("record cannot be nil")
	}
	if input.Record.PlayerID == "" {
		return nil, errors.InvalidArgument(errPlayerIDEmpty)
	}
	if input.Record.TotalXP < 0 {
		return nil, errors.InvalidArgumentf("total XP cannot be negative: %d", input.Record.TotalXP)
	}

	if err := r.store(ctx, ExperienceKey(input.Record.PlayerID), input.Record); err != nil {
		return nil, err
	}
	return &SaveExperienceOutput{Record: input.Record}, nil
}

func (r *redisRepository) GetProgress(ctx context.Context, input GetInput) (*GetProgressOutput, error) {
	if input.PlayerID == "" {
		return nil, errors.InvalidArgument(errPlayerIDEmpty)
	}

	var snapshot entities.ProgressSnapshot
	if err := r.load(ctx, ProgressKey(input.PlayerID), &snapshot); err != nil {
		return nil, err
	}
	return &GetProgressOutput{Snapshot: &snapshot}, nil
}

func (r *redisRepository) SaveProgress(ctx context.Context, input SaveProgressInput) error {
	if input.Snapshot == nil {
		return errors.InvalidArgument("snapshot cannot be nil")
	}
	if input.Snapshot.PlayerID == "" {
		return errors.InvalidArgument(errPlayerIDEmpty)
	}
	return r.store(ctx, ProgressKey(input.Snapshot.PlayerID), input.Snapshot)
}

func (r *redisRepository) GetLabProgress(ctx context.Context, input GetInput) (*GetLabProgressOutput, error) {
	if input.PlayerID == "" {
		return nil, errors.InvalidArgument(errPlayerIDEmpty)
	}

	var lab entities.LabProgress
	if err := r.load(ctx, LabProgressKey(input.PlayerID), &lab); err != nil {
		return nil, err
	}
	return &GetLabProgressOutput{Progress: &lab}, nil
}

func (r *redisRepository) SaveLabProgress(ctx context.Context, input SaveLabProgressInput) error {
	if input.Progress == nil {
		return errors.InvalidArgument("lab progress cannot be nil")
	}
	if input.Progress.PlayerID == "" {
		return errors.InvalidArgument(errPlayerIDEmpty)
	}
	return r.store(ctx, LabProgressKey(input.Progress.PlayerID), input.Progress)
}

func (r *redisRepository) load(ctx context.Context, key string, dest any) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return errors.NotFoundf("%s not found", key)
		}
		return errors.WrapWithCode(err, errors.CodeUnavailable, "failed to read from redis").
			WithMeta("key", key)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return errors.Wrapf(err, "failed to unmarshal %s", key)
	}
	return nil
}

func (r *redisRepository) store(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal %s", key)
	}

	// no TTL, progression is durable
	if err := r.client.Set(ctx, key, data, 0).Err(); err != nil {
		return errors.WrapWithCode(err, errors.CodeUnavailable, "failed to write to redis").
			WithMeta("key", key)
	}
	return nil
}
