package usecase

import (
	"context"

	domain "canvas-mirror-backend/internal/canvas/domain"
	"canvas-mirror-backend/pkg/canvasapi"
	"canvas-mirror-backend/pkg/queue"
)

// SyncUsecase is the HTTP-facing surface of the sync engine.
type SyncUsecase interface {
	// StartSync kicks off a sync job for one course (courseID set) or all
	// courses (courseID empty). When a job is already pending or running
	// for the same scope, the existing job id is returned with
	// existing=true instead of creating a duplicate.
	StartSync(ctx context.Context, userID, courseID string) (jobID string, existing bool, err error)
	GetJobStatus(ctx context.Context, jobID string) (*domain.SyncJob, error)
	ListCourses(ctx context.Context, userID string) ([]*domain.Course, error)
	ListDocuments(courseID string, limit int) ([]*domain.IngestedDocument, error)
	StoreCredentials(userID, token, baseURL string) error
}

// CredentialResolver is the narrow lookup contract against the credential
// store.
type CredentialResolver interface {
	Resolve(userID string) (canvasapi.Credentials, error)
	Store(userID, token, baseURL string) error
}

// JobEnqueuer appends one sync message to the durable queue.
type JobEnqueuer interface {
	EnqueueSyncJob(ctx context.Context, msg queue.SyncMessage) error
}

// DispatchRequest references one extracted payload, either remotely (URL
// plus bearer token for the extraction service to download itself) or
// inline (page HTML).
type DispatchRequest struct {
	PayloadURL  string
	InlineData  []byte
	Filename    string
	DocID       string
	BearerToken string
	Context     map[string]string
}

// Dispatcher posts one payload to the extraction collaborator and then
// best-effort triggers embedding.
type Dispatcher interface {
	Dispatch(ctx context.Context, req DispatchRequest) error
}
