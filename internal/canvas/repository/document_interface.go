package repository

import domain "canvas-mirror-backend/internal/canvas/domain"

// DocumentRepository is the content dedup store: the single source of
// truth for "has this exact byte sequence ever been ingested".
type DocumentRepository interface {
	// EnsureIngested inserts the document unless a row with the same
	// content hash already exists. Returns whether the hash was already
	// known.
	EnsureIngested(doc *domain.IngestedDocument) (alreadyIngested bool, err error)
	List(courseID string, limit int) ([]*domain.IngestedDocument, error)
}
