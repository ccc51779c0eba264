package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	domain "canvas-mirror-backend/internal/canvas/domain"
	"canvas-mirror-backend/internal/canvas/repository"
	"canvas-mirror-backend/pkg/apperrors"
	"canvas-mirror-backend/pkg/canvasapi"
	"canvas-mirror-backend/pkg/queue"

	"github.com/google/uuid"
)

// syncUsecase implements SyncUsecase
type syncUsecase struct {
	ledger       repository.JobLedger
	guard        repository.ActiveJobGuard
	courseRepo   repository.CourseRepository
	docRepo      repository.DocumentRepository
	credResolver CredentialResolver
	enqueuer     JobEnqueuer
	api          *canvasapi.Client
}

func NewSyncUsecase(
	ledger repository.JobLedger,
	guard repository.ActiveJobGuard,
	courseRepo repository.CourseRepository,
	docRepo repository.DocumentRepository,
	credResolver CredentialResolver,
	enqueuer JobEnqueuer,
	api *canvasapi.Client,
) SyncUsecase {
	return &syncUsecase{
		ledger:       ledger,
		guard:        guard,
		courseRepo:   courseRepo,
		docRepo:      docRepo,
		credResolver: credResolver,
		enqueuer:     enqueuer,
		api:          api,
	}
}

// StartSync resolves credentials first (no ledger row and no message when
// the user has none), then runs the guard's atomic check-and-set before
// creating the pending ledger entry and enqueueing exactly one message.
func (u *syncUsecase) StartSync(ctx context.Context, userID, courseID string) (string, bool, error) {
	if _, err := u.credResolver.Resolve(userID); err != nil {
		return "", false, err
	}

	jobID := uuid.New().String()
	scope := domain.ScopeAll
	if courseID != "" {
		scope = courseID
	}

	existingJobID, acquired, err := u.guard.Acquire(ctx, userID, scope, jobID)
	if err != nil {
		return "", false, fmt.Errorf("guard check failed: %w", err)
	}
	if !acquired {
		log.Printf("[Sync] Job %s already active for user %s scope %s", existingJobID, userID, scope)
		return existingJobID, true, nil
	}

	job := &domain.SyncJob{
		JobID:     jobID,
		UserID:    userID,
		CourseID:  courseID,
		Status:    domain.JobStatusPending,
		CreatedAt: time.Now(),
		RequestID: uuid.New().String(),
	}
	if err := u.ledger.Create(ctx, job); err != nil {
		u.releaseGuard(ctx, userID, scope, jobID)
		return "", false, fmt.Errorf("failed to create ledger entry: %w", err)
	}

	if err := u.enqueuer.EnqueueSyncJob(ctx, queue.SyncMessage{
		JobID:    jobID,
		UserID:   userID,
		CourseID: courseID,
	}); err != nil {
		u.releaseGuard(ctx, userID, scope, jobID)
		return "", false, fmt.Errorf("failed to enqueue sync job: %w", err)
	}

	log.Printf("[Sync] Enqueued job %s for user %s scope %s", jobID, userID, scope)
	return jobID, false, nil
}

func (u *syncUsecase) releaseGuard(ctx context.Context, userID, scope, jobID string) {
	if err := u.guard.Release(ctx, userID, scope, jobID); err != nil {
		log.Printf("[Sync] Failed to release guard for user %s scope %s: %v", userID, scope, err)
	}
}

// GetJobStatus returns nil when the ledger entry is absent or expired.
func (u *syncUsecase) GetJobStatus(ctx context.Context, jobID string) (*domain.SyncJob, error) {
	return u.ledger.Get(ctx, jobID)
}

// ListCourses is a read-through cache: with live credentials the Canvas
// list is fetched and upserted, otherwise the cached rows (seeded with
// fixtures when empty) are served.
func (u *syncUsecase) ListCourses(ctx context.Context, userID string) ([]*domain.Course, error) {
	creds, err := u.credResolver.Resolve(userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUnauthenticated) {
			if seedErr := u.courseRepo.SeedFixtures(); seedErr != nil {
				return nil, seedErr
			}
			return u.courseRepo.ListAll()
		}
		return nil, err
	}

	live := u.api.ListCourses(ctx, creds)
	if len(live) > 0 {
		courses := make([]*domain.Course, 0, len(live))
		for _, c := range live {
			course := &domain.Course{
				ID:   strconv.FormatInt(c.ID, 10),
				Name: c.Name,
			}
			if c.Term != nil && c.Term.Name != "" {
				term := c.Term.Name
				course.Term = &term
			}
			courses = append(courses, course)
		}
		if err := u.courseRepo.UpsertAll(courses); err != nil {
			return nil, err
		}
	}

	return u.courseRepo.ListAll()
}

func (u *syncUsecase) ListDocuments(courseID string, limit int) ([]*domain.IngestedDocument, error) {
	return u.docRepo.List(courseID, limit)
}

func (u *syncUsecase) StoreCredentials(userID, token, baseURL string) error {
	if token == "" || baseURL == "" {
		return apperrors.New(apperrors.CodeInvalidArgument, "token and base_url are required")
	}
	return u.credResolver.Store(userID, token, baseURL)
}
