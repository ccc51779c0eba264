package resolver

import (
	"fmt"

	"canvas-mirror-backend/internal/credential/domain"
	"canvas-mirror-backend/internal/credential/repository"
	"canvas-mirror-backend/pkg/apperrors"
	"canvas-mirror-backend/pkg/canvasapi"
	"canvas-mirror-backend/pkg/utils/crypto"
)

// Resolver turns a user id into live Canvas access values. Decryption
// happens only here; the plaintext token never touches a log line or an
// API response.
type Resolver struct {
	credRepo      repository.CredentialRepository
	encryptionKey string
}

func New(credRepo repository.CredentialRepository, encryptionKey string) *Resolver {
	return &Resolver{
		credRepo:      credRepo,
		encryptionKey: encryptionKey,
	}
}

// Resolve returns apperrors.ErrUnauthenticated when no usable credential
// is stored for the user.
func (r *Resolver) Resolve(userID string) (canvasapi.Credentials, error) {
	cred, err := r.credRepo.FindByUserID(userID)
	if err != nil {
		return canvasapi.Credentials{}, fmt.Errorf("credential lookup failed: %w", err)
	}
	if cred == nil || cred.EncryptedToken == "" {
		return canvasapi.Credentials{}, apperrors.ErrUnauthenticated
	}

	token, err := crypto.Decrypt(cred.EncryptedToken, r.encryptionKey)
	if err != nil {
		return canvasapi.Credentials{}, fmt.Errorf("failed to decrypt stored token: %w", err)
	}

	return canvasapi.Credentials{
		AccessToken: token,
		BaseURL:     cred.BaseURL,
	}, nil
}

// Store encrypts and persists a token + base URL for the user.
func (r *Resolver) Store(userID, token, baseURL string) error {
	encrypted, err := crypto.Encrypt(token, r.encryptionKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt token: %w", err)
	}
	return r.credRepo.Upsert(&domain.Credential{
		UserID:         userID,
		EncryptedToken: encrypted,
		BaseURL:        baseURL,
	})
}
