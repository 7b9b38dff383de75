// Package config loads cyber-arena settings from CYBER_ARENA_* environment
// variables. Command flags override the parsed values.
package config

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/KirkDiggler/cyber-arena/internal/errors"
	"github.com/KirkDiggler/cyber-arena/internal/redis"
)

// Config is the process configuration of both the server and the client
// commands
type Config struct {
	HTTPAddr string `env:"CYBER_ARENA_HTTP_ADDR" envDefault:":8080"`
	GRPCPort int    `env:"CYBER_ARENA_GRPC_PORT" envDefault:"50051"`

	RedisAddr     string `env:"CYBER_ARENA_REDIS_ADDR"      envDefault:"localhost:6379"`
	RedisPoolSize int    `env:"CYBER_ARENA_REDIS_POOL_SIZE" envDefault:"10"`
	RedisTLS      bool   `env:"CYBER_ARENA_REDIS_TLS"       envDefault:"false"`
	// SyncChannel is the pub/sub channel experience updates are broadcast on
	SyncChannel string `env:"CYBER_ARENA_SYNC_CHANNEL" envDefault:"cyber-arena:experience"`

	RoomTTL           time.Duration `env:"CYBER_ARENA_ROOM_TTL"           envDefault:"10m"`
	ReconcileInterval time.Duration `env:"CYBER_ARENA_RECONCILE_INTERVAL" envDefault:"30s"`
	AnswerTimeout     time.Duration `env:"CYBER_ARENA_ANSWER_TIMEOUT"     envDefault:"5s"`
	ConfirmTimeout    time.Duration `env:"CYBER_ARENA_CONFIRM_TIMEOUT"    envDefault:"10s"`

	// ProfileURL enables pushing progress snapshots when set
	ProfileURL string `env:"CYBER_ARENA_PROFILE_URL"`
	// QuestionBank is a YAML bank replacing the embedded one
	QuestionBank string `env:"CYBER_ARENA_QUESTION_BANK"`

	LogLevel  string `env:"CYBER_ARENA_LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"CYBER_ARENA_LOG_FORMAT" envDefault:"text"`
}

// Load parses the environment and validates the result
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeInvalidArgument, "failed to parse environment")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values, including any flag overrides
func (cfg *Config) Validate() error {
	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("HTTPAddr", cfg.HTTPAddr, vb)
	errors.ValidateRequired("RedisAddr", cfg.RedisAddr, vb)
	errors.ValidatePositive("GRPCPort", cfg.GRPCPort, vb)
	errors.ValidatePositive("RedisPoolSize", cfg.RedisPoolSize, vb)
	errors.ValidatePositive("RoomTTL", cfg.RoomTTL, vb)
	errors.ValidatePositive("ReconcileInterval", cfg.ReconcileInterval, vb)
	errors.ValidatePositive("AnswerTimeout", cfg.AnswerTimeout, vb)
	errors.ValidatePositive("ConfirmTimeout", cfg.ConfirmTimeout, vb)
	errors.ValidateEnum("LogLevel", strings.ToLower(cfg.LogLevel), []string{"debug", "info", "warn", "error"}, vb)
	errors.ValidateEnum("LogFormat", strings.ToLower(cfg.LogFormat), []string{"text", "json"}, vb)
	if cfg.GRPCPort > 65535 {
		vb.Fieldf("GRPCPort", "must be a port number, got %d", cfg.GRPCPort)
	}
	return vb.Build()
}

// RedisOptions returns the client options for the configured pool
func (cfg *Config) RedisOptions() *redis.Options {
	return &redis.Options{
		PoolSize: cfg.RedisPoolSize,
		UseTLS:   cfg.RedisTLS,
	}
}

// SlogLevel maps LogLevel onto slog
func (cfg *Config) SlogLevel() slog.Level {
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogHandler builds the slog handler for LogFormat and LogLevel
func (cfg *Config) LogHandler(w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if strings.ToLower(cfg.LogFormat) == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
