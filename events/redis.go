package events

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

// DefaultChannel for published statements
const DefaultChannel = "openedx-ai-extensions/xapi"

// RedisEmitter publishes xAPI statements on a Redis channel
type RedisEmitter struct {
	client      redis.UniversalClient
	channel     string
	transformer *Transformer
}

// NewRedisEmitter returns an emitter publishing to the channel
func NewRedisEmitter(client redis.UniversalClient, channel, platformURL string) *RedisEmitter {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisEmitter{
		client:      client,
		channel:     channel,
		transformer: &Transformer{PlatformURL: platformURL},
	}
}

// Emit implements Emitter
func (r *RedisEmitter) Emit(ctx context.Context, e *Event) error {
	st := r.transformer.Transform(e)
	data, err := json.Marshal(st)
	if err != nil {
		return errors.Wrap(err, "failed to marshal statement")
	}
	if err = r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return errors.Wrapf(err, "failed to publish %s", e.Name)
	}
	return nil
}
