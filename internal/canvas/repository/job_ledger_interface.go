package repository

import (
	"context"

	domain "canvas-mirror-backend/internal/canvas/domain"
)

// JobLedger is the durable per-job lifecycle record, read by status
// polling. Entries expire once polling interest lapses.
type JobLedger interface {
	Create(ctx context.Context, job *domain.SyncJob) error
	// Get returns nil when the entry is absent or expired.
	Get(ctx context.Context, jobID string) (*domain.SyncJob, error)
	MarkRunning(ctx context.Context, jobID string) error
	MarkCompleted(ctx context.Context, jobID string, processed, skipped, errs int) error
	MarkFailed(ctx context.Context, jobID string, errorMessage string, processed, skipped, errs int) error
}

// ActiveJobGuard is the time-boxed exclusive marker preventing duplicate
// concurrent syncs for one (user, scope). Acquire is a single atomic
// check-and-set.
type ActiveJobGuard interface {
	// Acquire returns acquired=true when no job holds the scope; otherwise
	// it returns the job id of the holder.
	Acquire(ctx context.Context, userID, scope, jobID string) (existingJobID string, acquired bool, err error)
	// Release removes the marker only while jobID still holds it, so a job
	// that outlived the guard TTL cannot delete its successor's guard.
	Release(ctx context.Context, userID, scope, jobID string) error
}
