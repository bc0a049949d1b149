package service

import (
	"context"

	"github.com/sgml/firebase-steam-login/internal/domain"
	"github.com/sgml/firebase-steam-login/internal/dto"
)

// Reconciler resolves a verified provider profile into the canonical user it
// belongs to, creating the user on first sight
type Reconciler interface {
	Reconcile(ctx context.Context, kind domain.Kind, profile domain.ProviderProfile) (*domain.Account, error)
}

// Linker attaches a secondary provider account to an already-authenticated
// canonical user and stores the provider's token set
type Linker interface {
	LinkSecondaryProvider(ctx context.Context, userID string, kind domain.Kind, profile domain.ProviderProfile, refreshToken string) error
}

// Issuer mints the service's signed credentials and assembles the post-login
// redirect
type Issuer interface {
	IssueRedirectCredential(kind domain.Kind, clientID, userID string) (string, error)
	IssueLongLivedCredential(assertionToken string) (*dto.SessionResponse, error)
	PublicVerificationMaterial() string
}

// TokenExchanger performs the refresh-token grant against the secondary
// provider's token endpoint
type TokenExchanger interface {
	ExchangeRefreshToken(ctx context.Context, refreshToken string) (*domain.ProviderToken, error)
}
