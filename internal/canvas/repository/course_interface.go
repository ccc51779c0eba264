package repository

import domain "canvas-mirror-backend/internal/canvas/domain"

// CourseRepository is the local course cache. Rows are upserted from the
// live Canvas API and never deleted.
type CourseRepository interface {
	UpsertAll(courses []*domain.Course) error
	ListAll() ([]*domain.Course, error)
	// SeedFixtures inserts the fixture course set when the table is empty,
	// so the API has something to show without live credentials.
	SeedFixtures() error
}
