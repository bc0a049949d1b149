package repository

import (
	"context"

	"github.com/sgml/firebase-steam-login/internal/domain"
)

// UserRepository defines methods for canonical user record operations
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
}

// ProfileRepository defines methods for profile record operations
type ProfileRepository interface {
	GetOrCreate(ctx context.Context, userID string) (*domain.Profile, error)
	GetByUserID(ctx context.Context, userID string) (*domain.Profile, error)
	GetByProviderExternalID(ctx context.Context, kind domain.Kind, externalID string) (*domain.Profile, error)
	Update(ctx context.Context, profile *domain.Profile) error
}

// ProviderTokenRepository defines methods for stored upstream OAuth token sets
type ProviderTokenRepository interface {
	Put(ctx context.Context, token *domain.ProviderToken) error
	Get(ctx context.Context, userID string, provider domain.Kind) (*domain.ProviderToken, error)
}
