package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sgml/firebase-steam-login/internal/domain"
	"github.com/sgml/firebase-steam-login/internal/repository"
	"golang.org/x/sync/errgroup"
)

// linker implements Linker interface
type linker struct {
	users     repository.UserRepository
	profiles  repository.ProfileRepository
	tokens    repository.ProviderTokenRepository
	exchanger TokenExchanger
}

// NewLinker creates a new linking orchestrator
func NewLinker(
	users repository.UserRepository,
	profiles repository.ProfileRepository,
	tokens repository.ProviderTokenRepository,
	exchanger TokenExchanger,
) Linker {
	return &linker{
		users:     users,
		profiles:  profiles,
		tokens:    tokens,
		exchanger: exchanger,
	}
}

// LinkSecondaryProvider attaches a verified secondary-provider account to the
// given user. The profile write and the token exchange run concurrently and
// both settle before any failure is surfaced; a partial outcome is retryable
// because re-linking the same external id never conflicts.
func (s *linker) LinkSecondaryProvider(ctx context.Context, userID string, kind domain.Kind, profile domain.ProviderProfile, refreshToken string) error {
	spec, err := kind.Spec()
	if err != nil {
		return err
	}
	if profile.ExternalID == "" {
		return fmt.Errorf("%w: profile carries no external id", domain.ErrInvalidProfile)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: user %s does not exist", domain.ErrSessionInvalid, userID)
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	prof, err := s.profiles.GetByUserID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: user %s has no profile", domain.ErrSessionInvalid, userID)
		}
		return fmt.Errorf("failed to get profile: %w", err)
	}

	// At most one external identity per provider kind. Re-linking the same
	// identity is allowed and idempotent.
	if linked, ok := prof.Providers[kind]; ok && linked.ExternalID != profile.ExternalID {
		return domain.ErrAlreadyLinked
	}

	prof.Providers[kind] = profile

	// Fan out the two writes and join both results. No cancellation: a
	// failure on one side must not abort the other, and partial persistence
	// stays retryable.
	var g errgroup.Group

	g.Go(func() error {
		if err := s.profiles.Update(ctx, prof); err != nil {
			return fmt.Errorf("failed to update profile: %w", err)
		}
		return nil
	})

	if spec.StoresTokens && refreshToken != "" {
		g.Go(func() error {
			token, err := s.exchanger.ExchangeRefreshToken(ctx, refreshToken)
			if err != nil {
				return err
			}
			token.UserID = user.ID
			token.Provider = kind
			if err := s.tokens.Put(ctx, token); err != nil {
				return fmt.Errorf("failed to store provider token: %w", err)
			}
			return nil
		})
	}

	return g.Wait()
}
