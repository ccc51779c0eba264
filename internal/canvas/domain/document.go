package domain

import "time"

// IngestedDocument records one ingested payload. ContentHash (SHA-256 of
// the raw bytes) is the true identity: a byte-identical file reachable
// through two different module items is ingested exactly once. Rows are
// append-only — changed upstream content yields a new hash and a new row.
type IngestedDocument struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	ContentHash  string    `json:"content_hash" gorm:"uniqueIndex;not null"`
	DocID        string    `json:"doc_id" gorm:"index;not null"`
	CourseID     string    `json:"course_id" gorm:"index;not null"`
	ModuleID     *string   `json:"module_id,omitempty"`
	ModuleItemID *string   `json:"module_item_id,omitempty"`
	AttachmentID *string   `json:"attachment_id,omitempty"`
	Title        string    `json:"title"`
	MimeType     *string   `json:"mime_type,omitempty"`
	SizeBytes    *int64    `json:"size_bytes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
