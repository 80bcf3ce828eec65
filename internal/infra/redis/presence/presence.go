package infra_redis_presence

import (
	"context"
	"time"

	"github.com/go-redis/redis"
	"github.com/google/uuid"
)

const (
	keyPrefix = "dinevote:presence:"

	// DefaultTTL bounds how long sessions of a crashed instance stay counted
	// in a room nobody enters or leaves any more.
	DefaultTTL = 6 * time.Hour
)

// Driver keeps the set of connected sessions of every room in Redis, so
// several gateway instances agree on participant counts.
type Driver struct {
	client *redis.Client
	ttl    time.Duration
}

type Option func(*Driver)

func WithTTL(ttl time.Duration) Option {
	return func(d *Driver) {
		if ttl > 0 {
			d.ttl = ttl
		}
	}
}

func New(client *redis.Client, opts ...Option) *Driver {
	d := &Driver{client: client, ttl: DefaultTTL}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func key(roomID uuid.UUID) string {
	return keyPrefix + roomID.String()
}

func (d *Driver) Enter(ctx context.Context, roomID uuid.UUID, sessionID string) (int, error) {
	pipe := d.client.WithContext(ctx).TxPipeline()
	pipe.SAdd(key(roomID), sessionID)
	pipe.Expire(key(roomID), d.ttl)
	card := pipe.SCard(key(roomID))
	if _, err := pipe.Exec(); err != nil {
		return 0, err
	}
	return int(card.Val()), nil
}

func (d *Driver) Leave(ctx context.Context, roomID uuid.UUID, sessionID string) (int, error) {
	pipe := d.client.WithContext(ctx).TxPipeline()
	pipe.SRem(key(roomID), sessionID)
	pipe.Expire(key(roomID), d.ttl)
	card := pipe.SCard(key(roomID))
	if _, err := pipe.Exec(); err != nil {
		return 0, err
	}
	return int(card.Val()), nil
}

func (d *Driver) Count(ctx context.Context, roomID uuid.UUID) (int, error) {
	n, err := d.client.WithContext(ctx).SCard(key(roomID)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
