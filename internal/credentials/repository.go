package credentials

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumenlabs/webinsight/internal/models"
)

var ErrNotFound = errors.New("credentials not found")

// Repository handles the provider_credentials table. Tokens are stored
// sealed; the plaintext never reaches a row.
type Repository struct {
	pool *pgxpool.Pool
	enc  *Encryptor
}

// NewRepository creates a credentials repository.
func NewRepository(pool *pgxpool.Pool, enc *Encryptor) *Repository {
	return &Repository{pool: pool, enc: enc}
}

// Save upserts the provider credentials for a user, sealing the access token.
func (r *Repository) Save(ctx context.Context, c *models.ProviderCredentials) error {
	sealed, err := r.enc.Seal(c.AccessToken)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO provider_credentials (user_id, provider_user_id, sealed_token, created_at, updated_at)
		 VALUES ($1, $2, $3, NOW(), NOW())
		 ON CONFLICT (user_id) DO UPDATE SET
			provider_user_id = EXCLUDED.provider_user_id,
			sealed_token = EXCLUDED.sealed_token,
			updated_at = NOW()`,
		c.UserID, c.ProviderUserID, sealed)
	return err
}

// Get returns the credentials for a user with the access token unsealed.
func (r *Repository) Get(ctx context.Context, userID uuid.UUID) (*models.ProviderCredentials, error) {
	var c models.ProviderCredentials
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, provider_user_id, sealed_token, created_at, updated_at
		 FROM provider_credentials WHERE user_id = $1`,
		userID).Scan(&c.UserID, &c.ProviderUserID, &c.SealedToken, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	token, err := r.enc.Open(c.SealedToken)
	if err != nil {
		return nil, err
	}
	c.AccessToken = token
	return &c, nil
}
