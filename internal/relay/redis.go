package relay

import (
	"context"
	"encoding/json"
	"time"

	"atkform/internal/model"
	"atkform/internal/repository"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const publishTimeout = 3 * time.Second

// Message is what travels on the redis channel. Origin identifies the publishing process so
// it can skip its own messages when listening.
type Message struct {
	Origin string          `json:"origin"`
	Event  string          `json:"event"`
	Data   []model.Request `json:"data"`
}

// Publisher is the subset of *redis.Client the relay needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisRelay pushes record snapshots to a redis channel so other processes can follow the
// store without polling it.
type RedisRelay struct {
	client  Publisher
	channel string
	origin  string
	logger  *zap.Logger
}

func NewRedisRelay(client Publisher, channel string, logger *zap.Logger) *RedisRelay {
	return &RedisRelay{
		client:  client,
		channel: channel,
		origin:  repository.NewBackendID(),
		logger:  logger,
	}
}

// Origin returns the id stamped on every message this relay publishes.
func (r *RedisRelay) Origin() string { return r.origin }

// OnRecordsChanged publishes the snapshot. It is registered as a store subscriber; a failed
// publish is logged and never reaches the mutation that triggered it.
func (r *RedisRelay) OnRecordsChanged(records []model.Request) {
	payload, err := json.Marshal(Message{Origin: r.origin, Event: "records_changed", Data: records})
	if err != nil {
		r.logger.Error("encode relay message", zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		r.logger.Warn("redis publish failed", zap.String("channel", r.channel), zap.Error(err))
		return
	}
	r.logger.Debug("snapshot relayed", zap.String("channel", r.channel), zap.Int("records", len(records)))
}

// Listen forwards snapshots published by other processes to fn until ctx is done.
func (r *RedisRelay) Listen(ctx context.Context, rdb *redis.Client, fn func([]model.Request)) {
	sub := rdb.Subscribe(ctx, r.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			r.handle(msg.Payload, fn)
		}
	}
}

func (r *RedisRelay) handle(payload string, fn func([]model.Request)) {
	var m Message
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		r.logger.Warn("decode relay message", zap.Error(err))
		return
	}
	if m.Origin == r.origin {
		return
	}
	fn(m.Data)
}
