package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/mcdev12/auctionhouse/go/internal/auction/events"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string // every event goes to this pub/sub channel
}

func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:    "localhost:6379",
		Channel: "auction:events",
	}
}

// RedisPublisher mirrors events onto a Redis pub/sub channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(ctx context.Context, cfg RedisConfig) (*RedisPublisher, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisPublisherFromClient(rdb, cfg.Channel), nil
}

func NewRedisPublisherFromClient(client *redis.Client, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultRedisConfig().Channel
	}
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, event events.Event) error {
	data, err := event.Marshal()
	if err != nil {
		return err
	}

	receivers, err := p.client.Publish(ctx, p.channel, data).Result()
	if err != nil {
		return fmt.Errorf("failed to publish to Redis: %w", err)
	}

	log.Debug().
		Str("channel", p.channel).
		Str("event_id", event.ID).
		Int64("receivers", receivers).
		Msg("published to Redis")
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
