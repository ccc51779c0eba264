package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	domain "canvas-mirror-backend/internal/canvas/domain"

	"github.com/redis/go-redis/v9"
)

const ledgerKeyPrefix = "canvas:sync:job:"

// jobLedgerRepository stores one JSON blob per job under a TTL key. The
// single worker is the only writer after creation, so read-modify-write
// updates need no locking.
type jobLedgerRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewJobLedgerRepository(client *redis.Client, ttl time.Duration) JobLedger {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &jobLedgerRepository{
		client: client,
		ttl:    ttl,
	}
}

func ledgerKey(jobID string) string {
	return ledgerKeyPrefix + jobID
}

func (r *jobLedgerRepository) Create(ctx context.Context, job *domain.SyncJob) error {
	return r.write(ctx, job)
}

func (r *jobLedgerRepository) Get(ctx context.Context, jobID string) (*domain.SyncJob, error) {
	raw, err := r.client.Get(ctx, ledgerKey(jobID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var job domain.SyncJob
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return nil, fmt.Errorf("corrupt ledger entry for job %s: %w", jobID, err)
	}
	return &job, nil
}

func (r *jobLedgerRepository) MarkRunning(ctx context.Context, jobID string) error {
	return r.update(ctx, jobID, func(job *domain.SyncJob) {
		now := time.Now()
		job.Status = domain.JobStatusRunning
		job.StartedAt = &now
	})
}

func (r *jobLedgerRepository) MarkCompleted(ctx context.Context, jobID string, processed, skipped, errs int) error {
	return r.update(ctx, jobID, func(job *domain.SyncJob) {
		now := time.Now()
		job.Status = domain.JobStatusCompleted
		job.Processed = processed
		job.Skipped = skipped
		job.Errors = errs
		job.FinishedAt = &now
	})
}

func (r *jobLedgerRepository) MarkFailed(ctx context.Context, jobID string, errorMessage string, processed, skipped, errs int) error {
	return r.update(ctx, jobID, func(job *domain.SyncJob) {
		now := time.Now()
		job.Status = domain.JobStatusFailed
		job.ErrorMessage = errorMessage
		job.Processed = processed
		job.Skipped = skipped
		job.Errors = errs
		job.FinishedAt = &now
	})
}

func (r *jobLedgerRepository) update(ctx context.Context, jobID string, mutate func(*domain.SyncJob)) error {
	job, err := r.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("ledger entry for job %s has expired", jobID)
	}
	mutate(job)
	return r.write(ctx, job)
}

func (r *jobLedgerRepository) write(ctx context.Context, job *domain.SyncJob) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, ledgerKey(job.JobID), raw, r.ttl).Err()
}
