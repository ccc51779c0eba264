package repository

import (
	"time"

	domain "canvas-mirror-backend/internal/canvas/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// documentRepository implements DocumentRepository
type documentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{
		db: db,
	}
}

// EnsureIngested uses FirstOrCreate on the unique content_hash index so
// the check and the insert are one query. Two writers racing on the same
// hash resolve to a single row; the loser observes it as already ingested.
func (r *documentRepository) EnsureIngested(doc *domain.IngestedDocument) (bool, error) {
	var existing domain.IngestedDocument

	doc.ID = uuid.New().String()
	doc.CreatedAt = time.Now()

	result := r.db.Where(&domain.IngestedDocument{ContentHash: doc.ContentHash}).Attrs(*doc).FirstOrCreate(&existing)
	if result.Error != nil {
		return false, result.Error
	}

	// RowsAffected == 0 means the hash was already present
	return result.RowsAffected == 0, nil
}

func (r *documentRepository) List(courseID string, limit int) ([]*domain.IngestedDocument, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := r.db.Order("created_at DESC").Limit(limit)
	if courseID != "" {
		query = query.Where("course_id = ?", courseID)
	}

	var docs []*domain.IngestedDocument
	if err := query.Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}
