package domain

import "time"

// Credential stores a user's Canvas access token encrypted at rest. The
// token is decrypted only inside the resolver and never logged or
// returned to a caller.
type Credential struct {
	UserID         string    `json:"user_id" gorm:"primaryKey"`
	EncryptedToken string    `json:"-" gorm:"not null"`
	BaseURL        string    `json:"base_url" gorm:"not null"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
