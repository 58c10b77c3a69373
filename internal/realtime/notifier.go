package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	EventNewPost    = "new-post"
	EventUpdatePost = "update-post"
	EventDeletePost = "delete-post"
	EventUpdateLike = "update-like"
	EventNewComment = "new-comment"
	EventNewMessage = "new-message"

	// ChannelPosts is delivered to every connected client.
	ChannelPosts = "posts"
)

func UserChannel(userID string) string {
	return "user-" + userID
}

type Event struct {
	Channel string `json:"channel"`
	Name    string `json:"event"`
	Data    any    `json:"data"`
}

// Notifier broadcasts mutation events to connected clients. Delivery is best
// effort: implementations may drop events but never report failure to the
// caller.
type Notifier interface {
	Notify(ctx context.Context, channel, event string, data any)
}

type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, string, string, any) {}

type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisNotifier publishes events to a redis pub/sub channel that every API
// instance's Hub subscribes to.
type RedisNotifier struct {
	client  publisher
	channel string
	timeout time.Duration
	log     *zap.Logger
}

func NewRedisNotifier(client *redis.Client, channel string, log *zap.Logger) *RedisNotifier {
	return &RedisNotifier{
		client:  client,
		channel: channel,
		timeout: 2 * time.Second,
		log:     log,
	}
}

func (n *RedisNotifier) Notify(ctx context.Context, channel, event string, data any) {
	payload, err := json.Marshal(Event{Channel: channel, Name: event, Data: data})
	if err != nil {
		n.log.Warn("failed to encode event", zap.String("event", event), zap.Error(err))
		return
	}

	// the request may finish before the publish does
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()

	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		n.log.Warn("failed to publish event",
			zap.String("channel", channel),
			zap.String("event", event),
			zap.Error(err),
		)
	}
}
