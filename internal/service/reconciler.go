package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sgml/firebase-steam-login/internal/domain"
	"github.com/sgml/firebase-steam-login/internal/repository"
)

// reconciler implements Reconciler interface
type reconciler struct {
	users    repository.UserRepository
	profiles repository.ProfileRepository
}

// NewReconciler creates a new identity reconciler
func NewReconciler(users repository.UserRepository, profiles repository.ProfileRepository) Reconciler {
	return &reconciler{
		users:    users,
		profiles: profiles,
	}
}

// Reconcile finds or creates the canonical user behind a verified provider
// profile. Repeat logins with the same external id converge on one user;
// every login refreshes the display data (most recent write wins).
func (s *reconciler) Reconcile(ctx context.Context, kind domain.Kind, profile domain.ProviderProfile) (*domain.Account, error) {
	if _, err := kind.Spec(); err != nil {
		return nil, err
	}
	if profile.ExternalID == "" {
		return nil, fmt.Errorf("%w: profile carries no external id", domain.ErrInvalidProfile)
	}

	existing, err := s.profiles.GetByProviderExternalID(ctx, kind, profile.ExternalID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up provider account: %w", err)
	}

	if existing != nil {
		return s.refresh(ctx, existing, kind, profile)
	}

	return s.create(ctx, kind, profile)
}

// refresh updates an already-known user with the latest profile data
func (s *reconciler) refresh(ctx context.Context, prof *domain.Profile, kind domain.Kind, profile domain.ProviderProfile) (*domain.Account, error) {
	user, err := s.users.GetByID(ctx, prof.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.DisplayName = profile.DisplayName
	user.PhotoURL = profile.AvatarURL
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	prof.DisplayName = profile.DisplayName
	prof.PhotoURL = profile.AvatarURL
	prof.Providers[kind] = profile
	if err := s.profiles.Update(ctx, prof); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return &domain.Account{User: *user, Profile: *prof}, nil
}

// create provisions a new canonical user and its profile for a first-seen
// external id. The placeholder email is deterministic, so a concurrent first
// login for the same identity collides on it and adopts the winner's record.
func (s *reconciler) create(ctx context.Context, kind domain.Kind, profile domain.ProviderProfile) (*domain.Account, error) {
	email, err := domain.PlaceholderEmail(kind, profile.ExternalID)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:         email,
		EmailVerified: false,
		DisplayName:   profile.DisplayName,
		PhotoURL:      profile.AvatarURL,
		Disabled:      false,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if !errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		user, err = s.users.GetByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("failed to adopt existing user: %w", err)
		}
		user.DisplayName = profile.DisplayName
		user.PhotoURL = profile.AvatarURL
		if err := s.users.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
	}

	prof, err := s.profiles.GetOrCreate(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	prof.DisplayName = profile.DisplayName
	prof.PhotoURL = profile.AvatarURL
	prof.Providers[kind] = profile
	if err := s.profiles.Update(ctx, prof); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return &domain.Account{User: *user, Profile: *prof}, nil
}
