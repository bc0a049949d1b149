package provider

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/sgml/firebase-steam-login/internal/config"
	"github.com/sgml/firebase-steam-login/internal/domain"
	"golang.org/x/oauth2"
)

// RefreshClient performs the refresh-token grant against the secondary
// provider's token endpoint and normalizes the response into a storable
// token record with absolute expiry.
type RefreshClient struct {
	conf *oauth2.Config
}

// NewRefreshClient creates a refresh client with the configured client
// credentials. The redirect URL plays no part in the refresh grant.
func NewRefreshClient(cfg config.DiscordConfig) *RefreshClient {
	return &RefreshClient{conf: oauthConfig(cfg, "")}
}

// ExchangeRefreshToken redeems a refresh token for a fresh token set. When
// the provider does not rotate the refresh token, the caller-supplied one is
// preserved in the result.
func (c *RefreshClient) ExchangeRefreshToken(ctx context.Context, refreshToken string) (*domain.ProviderToken, error) {
	source := c.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})

	token, err := source.Token()
	if err != nil {
		return nil, mapTokenError(err)
	}

	return normalizeToken(token, refreshToken), nil
}

// normalizeToken converts a provider token response into the stored record
// shape. The provider reports a relative expires_in in seconds; the oauth2
// client has already converted it into the absolute Expiry carried here.
func normalizeToken(token *oauth2.Token, fallbackRefresh string) *domain.ProviderToken {
	refresh := token.RefreshToken
	if refresh == "" {
		refresh = fallbackRefresh
	}

	scope, _ := token.Extra("scope").(string)

	return &domain.ProviderToken{
		AccessToken:  token.AccessToken,
		RefreshToken: refresh,
		TokenType:    token.TokenType,
		Scope:        scope,
		ExpiresAt:    token.Expiry,
	}
}

// mapTokenError sorts token-endpoint failures into the retryable and
// non-retryable buckets. A transport failure may succeed on retry; a rejected
// grant will not until the caller obtains a new refresh token.
func mapTokenError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return fmt.Errorf("%w: token endpoint returned %d", domain.ErrTokenExchange, retrieveErr.Response.StatusCode)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}

	return fmt.Errorf("%w: %v", domain.ErrTokenExchange, err)
}
