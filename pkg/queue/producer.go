package queue

import (
	"context"
	"encoding/json"

	"canvas-mirror-backend/pkg/config"

	"github.com/redis/go-redis/v9"
)

// SyncMessage is the wire format of one queued sync job. CourseID is
// empty for the all-courses scope.
type SyncMessage struct {
	JobID    string `json:"job_id"`
	UserID   string `json:"user_id"`
	CourseID string `json:"course_id,omitempty"`
}

type Producer struct {
	client *redis.Client
	cfg    *config.Config
}

func NewProducer(redisClient *RedisClient, cfg *config.Config) *Producer {
	return &Producer{
		client: redisClient.Client(),
		cfg:    cfg,
	}
}

// EnqueueSyncJob appends one message to the durable sync stream.
func (p *Producer) EnqueueSyncJob(ctx context.Context, msg SyncMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.cfg.SyncStream,
		Values: map[string]interface{}{"payload": string(data)},
	}).Err()
}
