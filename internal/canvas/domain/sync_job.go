package domain

import "time"

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// ScopeAll is the guard-key scope for "every course the user can see".
// A single-course scope uses the course id itself.
const ScopeAll = "all"

// SyncJob is the ledger record of one sync job's lifecycle. Status moves
// strictly pending -> running -> completed|failed and counters only ever
// grow within a job.
type SyncJob struct {
	JobID        string     `json:"job_id"`
	UserID       string     `json:"user_id"`
	CourseID     string     `json:"course_id,omitempty"` // empty = all courses
	Status       JobStatus  `json:"status"`
	Processed    int        `json:"processed"`
	Skipped      int        `json:"skipped"`
	Errors       int        `json:"errors"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	RequestID    string     `json:"request_id"`
}

// Scope returns the guard-key scope of this job.
func (j *SyncJob) Scope() string {
	if j.CourseID == "" {
		return ScopeAll
	}
	return j.CourseID
}
