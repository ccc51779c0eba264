package domain

import "time"

// Course mirrors one Canvas course. Rows are upserted from the live API
// (read-through) and never deleted; without live credentials a fixture
// seed stands in.
type Course struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null"`
	Term      *string   `json:"term,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
