package syncbus

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/KirkDiggler/cyber-arena/internal/errors"
	redisclient "github.com/KirkDiggler/cyber-arena/internal/redis"
)

// DefaultChannel is the pub/sub channel experience records travel on
const DefaultChannel = "experience_updates"

// RedisBroadcaster is a Broadcaster over redis pub/sub
type RedisBroadcaster struct {
	client  redisclient.Client
	channel string
}

// NewRedisBroadcaster creates a broadcaster. An empty channel uses DefaultChannel.
func NewRedisBroadcaster(client redisclient.Client, channel string) (*RedisBroadcaster, error) {
	if client == nil {
		return nil, errors.InvalidArgument("redis client is required")
	}
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBroadcaster{client: client, channel: channel}, nil
}

var _ Broadcaster = (*RedisBroadcaster)(nil)

func (r *RedisBroadcaster) Broadcast(ctx context.Context, env *Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return errors.Wrap(err, "failed to marshal envelope")
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return errors.WrapWithCode(err, errors.CodeUnavailable, "failed to publish envelope")
	}
	return nil
}

// Receive subscribes and waits for the subscription to be confirmed, so a
// broadcast sent after Receive returns is never missed
func (r *RedisBroadcaster) Receive(ctx context.Context) (<-chan *Envelope, error) {
	pubsub := r.client.Subscribe(ctx, r.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, errors.WrapWithCode(err, errors.CodeUnavailable, "failed to subscribe").
			WithMeta("channel", r.channel)
	}

	out := make(chan *Envelope)
	go func() {
		defer close(out)
		defer pubsub.Close()

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var env Envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					slog.Warn("dropping malformed experience broadcast", "error", err)
					continue
				}
				select {
				case out <- &env:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
