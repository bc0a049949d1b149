package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sgml/firebase-steam-login/internal/domain"
	"github.com/sgml/firebase-steam-login/pkg/database"
)

// providerTokenRepository implements ProviderTokenRepository interface
type providerTokenRepository struct {
	db *database.Postgres
}

// NewProviderTokenRepository creates a new provider token repository
func NewProviderTokenRepository(db *database.Postgres) ProviderTokenRepository {
	return &providerTokenRepository{db: db}
}

// Put stores the token set for a (user, provider) pair. The write replaces
// the whole row, so a reader never sees a new access token paired with a
// stale refresh token.
func (r *providerTokenRepository) Put(ctx context.Context, token *domain.ProviderToken) error {
	query := `
		INSERT INTO provider_tokens (user_id, provider, access_token, refresh_token, token_type, scope, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, provider) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_type = EXCLUDED.token_type,
			scope = EXCLUDED.scope,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at
	`

	token.UpdatedAt = time.Now()

	_, err := r.db.DB.ExecContext(ctx, query,
		token.UserID,
		string(token.Provider),
		token.AccessToken,
		token.RefreshToken,
		token.TokenType,
		token.Scope,
		token.ExpiresAt,
		token.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to put provider token: %w", err)
	}

	return nil
}

// Get retrieves the stored token set for a (user, provider) pair
func (r *providerTokenRepository) Get(ctx context.Context, userID string, provider domain.Kind) (*domain.ProviderToken, error) {
	query := `
		SELECT user_id, provider, access_token, refresh_token, token_type, scope, expires_at, updated_at
		FROM provider_tokens
		WHERE user_id = $1 AND provider = $2
	`

	token := &domain.ProviderToken{}

	err := r.db.DB.QueryRowContext(ctx, query, userID, string(provider)).Scan(
		&token.UserID,
		&token.Provider,
		&token.AccessToken,
		&token.RefreshToken,
		&token.TokenType,
		&token.Scope,
		&token.ExpiresAt,
		&token.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s token for user %s not found: %w", provider, userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get provider token: %w", err)
	}

	return token, nil
}
