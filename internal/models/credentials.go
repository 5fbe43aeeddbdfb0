package models

import (
	"time"

	"github.com/google/uuid"
)

// ProviderCredentials holds a dashboard user's provider API access, token
// sealed at rest (see credentials.Encryptor).
type ProviderCredentials struct {
	UserID         uuid.UUID `json:"user_id"`
	ProviderUserID string    `json:"provider_user_id"` // provider account id or "me"
	AccessToken    string    `json:"-"`                // plaintext in memory only
	SealedToken    []byte    `json:"-"`                // ciphertext as stored
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
