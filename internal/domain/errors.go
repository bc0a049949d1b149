package domain

import "errors"

// Core error taxonomy. The boundary layer maps these to redirects and HTTP
// status codes; the core never suppresses them.
var (
	// ErrInvalidProfile is returned when a provider profile lacks a stable
	// external id.
	ErrInvalidProfile = errors.New("provider profile has no external id")

	// ErrSessionInvalid is returned when a link flow references a user that
	// does not exist.
	ErrSessionInvalid = errors.New("session does not reference a known user")

	// ErrAlreadyLinked is returned when a provider kind is already linked to a
	// different external account. This is the one error end users are expected
	// to see and act on.
	ErrAlreadyLinked = errors.New("provider account is linked to a different user")

	// ErrProviderUnavailable is returned when the provider cannot be reached.
	// Callers may retry.
	ErrProviderUnavailable = errors.New("provider is unreachable")

	// ErrTokenExchange is returned when the provider rejects a token exchange.
	// Not retryable without a fresh refresh token.
	ErrTokenExchange = errors.New("provider rejected the token exchange")

	// ErrUnknownProvider is returned for provider names outside the fixed set.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrMissingRedirectTarget is returned when no redirect URL is configured
	// for the requesting client.
	ErrMissingRedirectTarget = errors.New("no redirect target configured for client")

	// ErrInvalidAssertion is returned when an identity assertion fails
	// verification.
	ErrInvalidAssertion = errors.New("identity assertion could not be verified")
)
