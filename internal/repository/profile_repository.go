package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sgml/firebase-steam-login/internal/domain"
	"github.com/sgml/firebase-steam-login/pkg/database"
)

// profileRepository implements ProfileRepository interface
type profileRepository struct {
	db *database.Postgres
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *database.Postgres) ProfileRepository {
	return &profileRepository{db: db}
}

// GetOrCreate returns the profile for a user, creating an empty one if none
// exists yet. Safe to call concurrently for the same user.
func (r *profileRepository) GetOrCreate(ctx context.Context, userID string) (*domain.Profile, error) {
	insert := `
		INSERT INTO profiles (user_id, display_name, photo_url, providers, created_at, updated_at)
		VALUES ($1, '', '', '{}'::jsonb, $2, $2)
		ON CONFLICT (user_id) DO NOTHING
	`

	if _, err := r.db.DB.ExecContext(ctx, insert, userID, time.Now()); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	return r.GetByUserID(ctx, userID)
}

// GetByUserID retrieves the profile for a user
func (r *profileRepository) GetByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	query := `
		SELECT user_id, display_name, photo_url, providers, created_at, updated_at
		FROM profiles
		WHERE user_id = $1
	`

	profile, err := r.scanProfile(r.db.DB.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile for user %s not found: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get profile by user id: %w", err)
	}

	return profile, nil
}

// GetByProviderExternalID retrieves the profile that has the given provider
// account linked. When more than one profile carries the same link the
// earliest-created one wins, so repeated sign-ins stay pinned to one user.
func (r *profileRepository) GetByProviderExternalID(ctx context.Context, kind domain.Kind, externalID string) (*domain.Profile, error) {
	query := `
		SELECT user_id, display_name, photo_url, providers, created_at, updated_at
		FROM profiles
		WHERE providers @> jsonb_build_object($1::text, jsonb_build_object('external_id', $2::text))
		ORDER BY created_at, user_id
		LIMIT 1
	`

	profile, err := r.scanProfile(r.db.DB.QueryRowContext(ctx, query, string(kind), externalID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile with %s account %s not found: %w", kind, externalID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get profile by provider account: %w", err)
	}

	return profile, nil
}

// Update replaces the mutable profile fields, including the provider map
func (r *profileRepository) Update(ctx context.Context, profile *domain.Profile) error {
	query := `
		UPDATE profiles
		SET display_name = $2, photo_url = $3, providers = $4, updated_at = $5
		WHERE user_id = $1
	`

	providers, err := json.Marshal(profile.Providers)
	if err != nil {
		return fmt.Errorf("failed to marshal providers: %w", err)
	}

	profile.UpdatedAt = time.Now()

	result, err := r.db.DB.ExecContext(ctx, query,
		profile.UserID,
		profile.DisplayName,
		profile.PhotoURL,
		providers,
		profile.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("profile for user %s not found: %w", profile.UserID, ErrNotFound)
	}

	return nil
}

// scanProfile scans one profile row and decodes the providers blob
func (r *profileRepository) scanProfile(row *sql.Row) (*domain.Profile, error) {
	profile := &domain.Profile{}
	var providers []byte

	err := row.Scan(
		&profile.UserID,
		&profile.DisplayName,
		&profile.PhotoURL,
		&providers,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	profile.Providers = make(map[domain.Kind]domain.ProviderProfile)
	if len(providers) > 0 {
		if err := json.Unmarshal(providers, &profile.Providers); err != nil {
			return nil, fmt.Errorf("failed to unmarshal providers: %w", err)
		}
	}

	return profile, nil
}
