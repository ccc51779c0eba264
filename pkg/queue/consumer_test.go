package queue

import (
	"context"
	"testing"
	"time"

	"canvas-mirror-backend/pkg/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) (*miniredis.Miniredis, *RedisClient, *config.Config) {
	t.Helper()
	mr := miniredis.RunT(t)
	cfg := &config.Config{
		RedisAddr:         mr.Addr(),
		SyncStream:        "canvas:sync:jobs",
		SyncConsumerGroup: "sync-workers",
		SyncConsumerName:  "worker-a",
		GuardTTL:          30 * time.Minute,
	}
	redisClient, err := NewRedisClient(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { redisClient.Close() })
	return mr, redisClient, cfg
}

// deliverTo reads one entry into the named consumer's pending list without
// acknowledging it, as a crash between claim and ack would leave it.
func deliverTo(t *testing.T, client *redis.Client, cfg *config.Config, consumerName string) {
	t.Helper()
	_, err := client.XReadGroup(context.Background(), &redis.XReadGroupArgs{
		Group:    cfg.SyncConsumerGroup,
		Consumer: consumerName,
		Streams:  []string{cfg.SyncStream, ">"},
		Count:    1,
		Block:    -1,
	}).Result()
	require.NoError(t, err)
}

func pendingCount(t *testing.T, client *redis.Client, cfg *config.Config) int64 {
	t.Helper()
	pending, err := client.XPending(context.Background(), cfg.SyncStream, cfg.SyncConsumerGroup).Result()
	require.NoError(t, err)
	return pending.Count
}

func TestEnsureGroupIsIdempotent(t *testing.T) {
	_, redisClient, cfg := newTestQueue(t)
	consumer := NewConsumer(redisClient, cfg)

	require.NoError(t, consumer.ensureGroup(context.Background()))
	// second creation hits BUSYGROUP, which is not an error
	require.NoError(t, consumer.ensureGroup(context.Background()))
}

func TestReplayPendingRedeliversOwnEntries(t *testing.T) {
	_, redisClient, cfg := newTestQueue(t)
	ctx := context.Background()

	producer := NewProducer(redisClient, cfg)
	consumer := NewConsumer(redisClient, cfg)
	require.NoError(t, consumer.ensureGroup(ctx))

	require.NoError(t, producer.EnqueueSyncJob(ctx, SyncMessage{JobID: "job-1", UserID: "u1"}))
	deliverTo(t, redisClient.Client(), cfg, cfg.SyncConsumerName)
	require.Equal(t, int64(1), pendingCount(t, redisClient.Client(), cfg))

	var handled []SyncMessage
	consumer.replayPending(ctx, func(_ context.Context, msg SyncMessage) {
		handled = append(handled, msg)
	})

	require.Len(t, handled, 1)
	assert.Equal(t, "job-1", handled[0].JobID)
	assert.Equal(t, int64(0), pendingCount(t, redisClient.Client(), cfg))
}

func TestClaimStaleRescuesDeadConsumerEntries(t *testing.T) {
	mr, redisClient, cfg := newTestQueue(t)
	ctx := context.Background()

	producer := NewProducer(redisClient, cfg)
	consumer := NewConsumer(redisClient, cfg)
	require.NoError(t, consumer.ensureGroup(ctx))

	// a previous worker instance under another hostname claimed the entry
	// and died before acknowledging it
	require.NoError(t, producer.EnqueueSyncJob(ctx, SyncMessage{JobID: "job-9", UserID: "u1", CourseID: "5"}))
	deliverTo(t, redisClient.Client(), cfg, "worker-dead")

	// its own replay never sees the other consumer's pending list
	var handled []SyncMessage
	record := func(_ context.Context, msg SyncMessage) {
		handled = append(handled, msg)
	}
	consumer.replayPending(ctx, record)
	require.Empty(t, handled)

	// once the entry has idled past the guard TTL it is claimable
	mr.SetTime(time.Now().Add(cfg.GuardTTL + time.Minute))
	consumer.claimStale(ctx, record)

	require.Len(t, handled, 1)
	assert.Equal(t, "job-9", handled[0].JobID)
	assert.Equal(t, int64(0), pendingCount(t, redisClient.Client(), cfg))
}

func TestClaimStaleLeavesFreshEntriesAlone(t *testing.T) {
	_, redisClient, cfg := newTestQueue(t)
	ctx := context.Background()

	producer := NewProducer(redisClient, cfg)
	consumer := NewConsumer(redisClient, cfg)
	require.NoError(t, consumer.ensureGroup(ctx))

	require.NoError(t, producer.EnqueueSyncJob(ctx, SyncMessage{JobID: "job-2", UserID: "u1"}))
	deliverTo(t, redisClient.Client(), cfg, "worker-b")

	// worker-b may still be working on it; idle time is under the TTL
	var handled []SyncMessage
	consumer.claimStale(ctx, func(_ context.Context, msg SyncMessage) {
		handled = append(handled, msg)
	})

	assert.Empty(t, handled)
	assert.Equal(t, int64(1), pendingCount(t, redisClient.Client(), cfg))
}

func TestMalformedEntryIsAcknowledged(t *testing.T) {
	_, redisClient, cfg := newTestQueue(t)
	ctx := context.Background()

	consumer := NewConsumer(redisClient, cfg)
	require.NoError(t, consumer.ensureGroup(ctx))

	require.NoError(t, redisClient.Client().XAdd(ctx, &redis.XAddArgs{
		Stream: cfg.SyncStream,
		Values: map[string]interface{}{"payload": "{not json"},
	}).Err())

	deliverTo(t, redisClient.Client(), cfg, cfg.SyncConsumerName)

	var handled []SyncMessage
	consumer.replayPending(ctx, func(_ context.Context, msg SyncMessage) {
		handled = append(handled, msg)
	})

	// the poison entry is dropped with an ack, never dispatched
	assert.Empty(t, handled)
	assert.Equal(t, int64(0), pendingCount(t, redisClient.Client(), cfg))
}

func TestHandlerPanicStillAcknowledges(t *testing.T) {
	_, redisClient, cfg := newTestQueue(t)
	ctx := context.Background()

	producer := NewProducer(redisClient, cfg)
	consumer := NewConsumer(redisClient, cfg)
	require.NoError(t, consumer.ensureGroup(ctx))

	require.NoError(t, producer.EnqueueSyncJob(ctx, SyncMessage{JobID: "job-3", UserID: "u1"}))
	deliverTo(t, redisClient.Client(), cfg, cfg.SyncConsumerName)

	consumer.replayPending(ctx, func(context.Context, SyncMessage) {
		panic("handler blew up")
	})

	assert.Equal(t, int64(0), pendingCount(t, redisClient.Client(), cfg))
}

func TestConsumerNamePrefersConfig(t *testing.T) {
	_, redisClient, cfg := newTestQueue(t)

	consumer := NewConsumer(redisClient, cfg)
	assert.Equal(t, "worker-a", consumer.consumerName)
}
