package repository

import domain "canvas-mirror-backend/internal/credential/domain"

type CredentialRepository interface {
	// FindByUserID returns nil when no credential is stored.
	FindByUserID(userID string) (*domain.Credential, error)
	Upsert(cred *domain.Credential) error
}
