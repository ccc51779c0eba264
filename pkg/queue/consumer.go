package queue

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"strings"
	"time"

	"canvas-mirror-backend/pkg/config"

	"github.com/redis/go-redis/v9"
)

const blockTimeout = 15 * time.Second

// MessageHandler processes one claimed sync message. It must not panic
// the loop: the consumer acknowledges the entry when the handler returns,
// whatever the job outcome was — a job-level failure lives in the ledger,
// not in the stream.
type MessageHandler func(ctx context.Context, msg SyncMessage)

// Consumer claims sync messages from the stream through a named consumer
// group, so additional worker instances could share the group without
// double-processing acknowledged entries.
type Consumer struct {
	client       *redis.Client
	cfg          *config.Config
	consumerName string
}

func NewConsumer(redisClient *RedisClient, cfg *config.Config) *Consumer {
	// A stable name (SYNC_CONSUMER_NAME) keeps the pending list addressable
	// across restarts; the hostname fallback covers single-host setups.
	name := cfg.SyncConsumerName
	if name == "" {
		if hostname, err := os.Hostname(); err == nil && hostname != "" {
			name = hostname
		} else {
			name = "sync-worker"
		}
	}
	return &Consumer{
		client:       redisClient.Client(),
		cfg:          cfg,
		consumerName: name,
	}
}

// Run blocks until ctx is cancelled. On startup it first replays this
// consumer's pending (delivered but never acknowledged) entries, so a
// crash mid-job leads to redelivery rather than a lost message.
func (c *Consumer) Run(ctx context.Context, handler MessageHandler) error {
	if err := c.ensureGroup(ctx); err != nil {
		return err
	}

	c.claimStale(ctx, handler)
	c.replayPending(ctx, handler)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
				Group:    c.cfg.SyncConsumerGroup,
				Consumer: c.consumerName,
				Streams:  []string{c.cfg.SyncStream, ">"},
				Count:    1,
				Block:    blockTimeout,
			}).Result()
			if err != nil {
				if err == redis.Nil {
					continue // block timed out, keep looping for liveness
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Printf("[SyncQueue] Read failed: %v", err)
				time.Sleep(time.Second)
				continue
			}

			for _, stream := range streams {
				for _, entry := range stream.Messages {
					c.handleEntry(ctx, entry, handler)
				}
			}
		}
	}
}

// handleEntry runs the handler and acknowledges the entry afterwards in a
// deferred region, so the ack happens even if the handler panics.
func (c *Consumer) handleEntry(ctx context.Context, entry redis.XMessage, handler MessageHandler) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[SyncQueue] Handler panicked on entry %s: %v", entry.ID, r)
		}
		if err := c.client.XAck(ctx, c.cfg.SyncStream, c.cfg.SyncConsumerGroup, entry.ID).Err(); err != nil {
			log.Printf("[SyncQueue] Ack failed for entry %s: %v", entry.ID, err)
		}
	}()

	payload, ok := entry.Values["payload"].(string)
	if !ok {
		log.Printf("[SyncQueue] Entry %s has no payload, acknowledging and skipping", entry.ID)
		return
	}

	var msg SyncMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		log.Printf("[SyncQueue] Entry %s is not a valid sync message: %v", entry.ID, err)
		return
	}

	handler(ctx, msg)
}

// claimStale takes over entries left pending under any other consumer
// name — a worker that crashed (or restarted under a new hostname) leaves
// its claimed entries in that dead consumer's pending list, where neither
// XREADGROUP form would ever return them to us. Min idle is the guard TTL:
// an entry pending longer than that cannot be live work.
func (c *Consumer) claimStale(ctx context.Context, handler MessageHandler) {
	start := "0-0"
	for {
		entries, next, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   c.cfg.SyncStream,
			Group:    c.cfg.SyncConsumerGroup,
			Consumer: c.consumerName,
			MinIdle:  c.cfg.GuardTTL,
			Start:    start,
			Count:    100,
		}).Result()
		if err != nil {
			if err != redis.Nil {
				log.Printf("[SyncQueue] Stale-entry claim failed: %v", err)
			}
			return
		}

		for _, entry := range entries {
			log.Printf("[SyncQueue] Claimed stale entry %s from a dead consumer", entry.ID)
			c.handleEntry(ctx, entry, handler)
		}

		if next == "0-0" || len(entries) == 0 {
			return
		}
		start = next
	}
}

// replayPending re-reads entries this consumer claimed before a restart
// but never acknowledged (XREADGROUP with id 0 returns the consumer's
// pending history).
func (c *Consumer) replayPending(ctx context.Context, handler MessageHandler) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.cfg.SyncConsumerGroup,
		Consumer: c.consumerName,
		Streams:  []string{c.cfg.SyncStream, "0"},
		Count:    100,
	}).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("[SyncQueue] Pending replay read failed: %v", err)
		}
		return
	}

	for _, stream := range streams {
		for _, entry := range stream.Messages {
			log.Printf("[SyncQueue] Redelivering unacknowledged entry %s", entry.ID)
			c.handleEntry(ctx, entry, handler)
		}
	}
}

func (c *Consumer) ensureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.cfg.SyncStream, c.cfg.SyncConsumerGroup, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}
