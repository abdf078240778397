package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const redisChannelPrefix = "chatql:events:"

// RedisHub fans events out across server instances. Local subscribers are
// served by an embedded Hub; every publish is also pushed to Redis tagged
// with this server's id so peers can replay it to their own subscribers.
type RedisHub struct {
	local       *Hub
	redisClient *redis.Client
	pubsub      *redis.PubSub
	serverID    string
	logger      *slog.Logger
}

type RedisMessage struct {
	FromServerID string `json:"fromServerId"`
	Topic        string `json:"topic"`
	Payload      []byte `json:"payload"`
}

// NewRedisHub subscribes to the shared event channels and waits for Redis
// to confirm the subscription.
func NewRedisHub(ctx context.Context, rdb *redis.Client, serverID string, logger *slog.Logger) (*RedisHub, error) {
	ps := rdb.PSubscribe(ctx, redisChannelPrefix+"*")
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis: psubscribe: %w", err)
	}

	return &RedisHub{
		local:       NewHub(logger),
		redisClient: rdb,
		pubsub:      ps,
		serverID:    serverID,
		logger:      logger.With("server", serverID),
	}, nil
}

func (h *RedisHub) Run() {
	go h.subscribeRedis()
	h.local.Run()
}

// subscribeRedis replays events published by other servers locally.
func (h *RedisHub) subscribeRedis() {
	ch := h.pubsub.Channel()

	h.logger.Info("redis subscriber started")

	for msg := range ch {
		var redisMsg RedisMessage
		if err := json.Unmarshal([]byte(msg.Payload), &redisMsg); err != nil {
			h.logger.Error("unmarshaling redis message", "error", err)
			continue
		}

		// Already delivered locally on publish.
		if redisMsg.FromServerID == h.serverID {
			continue
		}

		if err := h.local.Publish(context.Background(), redisMsg.Topic, redisMsg.Payload); err != nil {
			h.logger.Warn("replaying redis event", "topic", redisMsg.Topic, "error", err)
			return
		}
	}
}

func (h *RedisHub) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := h.local.Publish(ctx, topic, payload); err != nil {
		return err
	}

	msgBytes, err := json.Marshal(RedisMessage{
		FromServerID: h.serverID,
		Topic:        topic,
		Payload:      payload,
	})
	if err != nil {
		return fmt.Errorf("marshaling redis message: %w", err)
	}

	if err := h.redisClient.Publish(ctx, redisChannelPrefix+topic, msgBytes).Err(); err != nil {
		return fmt.Errorf("redis: publish: %w", err)
	}
	return nil
}

func (h *RedisHub) Subscribe(ctx context.Context, topics ...string) (<-chan Event, error) {
	return h.local.Subscribe(ctx, topics...)
}

func (h *RedisHub) SubscriberCount() int {
	return h.local.SubscriberCount()
}

func (h *RedisHub) Close() error {
	err := h.pubsub.Close()
	_ = h.local.Close()
	return err
}
