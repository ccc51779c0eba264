package worker

import (
	"context"
	"fmt"
	"log"
	"strconv"

	domain "canvas-mirror-backend/internal/canvas/domain"
	"canvas-mirror-backend/internal/canvas/repository"
	"canvas-mirror-backend/internal/canvas/usecase"
	"canvas-mirror-backend/pkg/canvasapi"
	"canvas-mirror-backend/pkg/queue"
)

// Worker executes sync jobs claimed from the queue, strictly one at a
// time. Fetches inside a job run sequentially per walker — no limiter is
// layered on top of the external API's implicit rate limits.
type Worker struct {
	ledger       repository.JobLedger
	guard        repository.ActiveJobGuard
	courseRepo   repository.CourseRepository
	credResolver usecase.CredentialResolver
	walker       *usecase.Walker
	api          *canvasapi.Client
}

func New(
	ledger repository.JobLedger,
	guard repository.ActiveJobGuard,
	courseRepo repository.CourseRepository,
	credResolver usecase.CredentialResolver,
	walker *usecase.Walker,
	api *canvasapi.Client,
) *Worker {
	return &Worker{
		ledger:       ledger,
		guard:        guard,
		courseRepo:   courseRepo,
		credResolver: credResolver,
		walker:       walker,
		api:          api,
	}
}

// Run blocks on the consumer loop until ctx is cancelled.
func (w *Worker) Run(ctx context.Context, consumer *queue.Consumer) error {
	log.Println("[SyncWorker] Worker loop starting")
	return consumer.Run(ctx, w.HandleMessage)
}

// HandleMessage processes one claimed sync job. The guard is released in
// a deferred region so it happens whatever the job outcome; the consumer
// acknowledges the stream entry the same way after this returns.
func (w *Worker) HandleMessage(ctx context.Context, msg queue.SyncMessage) {
	scope := domain.ScopeAll
	if msg.CourseID != "" {
		scope = msg.CourseID
	}
	defer func() {
		if err := w.guard.Release(ctx, msg.UserID, scope, msg.JobID); err != nil {
			log.Printf("[SyncWorker] Failed to release guard for job %s: %v", msg.JobID, err)
		}
	}()

	if err := w.ledger.MarkRunning(ctx, msg.JobID); err != nil {
		log.Printf("[SyncWorker] Could not mark job %s running: %v", msg.JobID, err)
	}

	creds, err := w.credResolver.Resolve(msg.UserID)
	if err != nil {
		log.Printf("[SyncWorker] Credential resolution failed for job %s: %v", msg.JobID, err)
		w.markFailed(ctx, msg.JobID, fmt.Sprintf("credential resolution failed: %v", err), usecase.WalkStats{})
		return
	}

	stats, runErr := w.runWalkers(ctx, creds, msg)
	if runErr != nil {
		log.Printf("[SyncWorker] Job %s failed: %v", msg.JobID, runErr)
		w.markFailed(ctx, msg.JobID, runErr.Error(), stats)
		return
	}

	if err := w.ledger.MarkCompleted(ctx, msg.JobID, stats.Processed, stats.Skipped, stats.Errors); err != nil {
		log.Printf("[SyncWorker] Could not mark job %s completed: %v", msg.JobID, err)
	}
	log.Printf("[SyncWorker] Job %s completed: processed=%d skipped=%d errors=%d", msg.JobID, stats.Processed, stats.Skipped, stats.Errors)
}

// runWalkers walks one course or every course. Per-item failures are
// absorbed inside the walkers; only an unexpected panic escaping them
// fails the whole job.
func (w *Worker) runWalkers(ctx context.Context, creds canvasapi.Credentials, msg queue.SyncMessage) (stats usecase.WalkStats, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected failure: %v", r)
		}
	}()

	courseIDs, err := w.resolveCourses(ctx, creds, msg)
	if err != nil {
		return stats, err
	}

	// No checkpoint across courses: a redelivered all-scope job restarts
	// at the first course and relies on the dedup store to skip through.
	for _, courseID := range courseIDs {
		stats.Add(w.walker.WalkCourse(ctx, creds, courseID))
	}

	return stats, nil
}

func (w *Worker) resolveCourses(ctx context.Context, creds canvasapi.Credentials, msg queue.SyncMessage) ([]string, error) {
	if msg.CourseID != "" {
		return []string{msg.CourseID}, nil
	}

	live := w.api.ListCourses(ctx, creds)
	courses := make([]*domain.Course, 0, len(live))
	ids := make([]string, 0, len(live))
	for _, c := range live {
		id := strconv.FormatInt(c.ID, 10)
		course := &domain.Course{ID: id, Name: c.Name}
		if c.Term != nil && c.Term.Name != "" {
			term := c.Term.Name
			course.Term = &term
		}
		courses = append(courses, course)
		ids = append(ids, id)
	}

	if err := w.courseRepo.UpsertAll(courses); err != nil {
		log.Printf("[SyncWorker] Course upsert failed for job %s: %v", msg.JobID, err)
	}

	return ids, nil
}

func (w *Worker) markFailed(ctx context.Context, jobID, message string, stats usecase.WalkStats) {
	if err := w.ledger.MarkFailed(ctx, jobID, message, stats.Processed, stats.Skipped, stats.Errors); err != nil {
		log.Printf("[SyncWorker] Could not mark job %s failed: %v", jobID, err)
	}
}
