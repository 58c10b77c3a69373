package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakePublisher struct {
	channel string
	payload []byte
	err     error
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.channel = channel
	f.payload, _ = message.([]byte)
	return redis.NewIntResult(1, f.err)
}

func TestRedisNotifier_Notify(t *testing.T) {
	pub := &fakePublisher{}
	n := &RedisNotifier{client: pub, channel: "microsocial:events", log: zap.NewNop()}

	n.Notify(context.Background(), ChannelPosts, EventDeletePost, map[string]string{"postId": "p1"})

	assert.Equal(t, "microsocial:events", pub.channel)

	var ev Event
	require.NoError(t, json.Unmarshal(pub.payload, &ev))
	assert.Equal(t, ChannelPosts, ev.Channel)
	assert.Equal(t, EventDeletePost, ev.Name)
}

func TestRedisNotifier_FailureIsOnlyLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	pub := &fakePublisher{err: errors.New("connection refused")}
	n := &RedisNotifier{client: pub, channel: "events", log: zap.New(core)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NotPanics(t, func() {
		n.Notify(ctx, UserChannel("bob"), EventNewMessage, nil)
	})
	assert.Equal(t, 1, logs.FilterMessage("failed to publish event").Len())
}

func TestNopNotifier(t *testing.T) {
	var n Notifier = NopNotifier{}
	assert.NotPanics(t, func() { n.Notify(context.Background(), ChannelPosts, EventNewPost, nil) })
}
