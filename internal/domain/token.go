package domain

import "time"

// ProviderToken is the stored OAuth2 token set for one (user, provider) pair.
// A refresh either fully replaces the record or leaves it untouched.
type ProviderToken struct {
	UserID       string    `json:"user_id" db:"user_id"`
	Provider     Kind      `json:"provider" db:"provider"`
	AccessToken  string    `json:"access_token" db:"access_token"`
	RefreshToken string    `json:"refresh_token" db:"refresh_token"`
	TokenType    string    `json:"token_type" db:"token_type"`
	Scope        string    `json:"scope" db:"scope"`
	ExpiresAt    time.Time `json:"expires_at" db:"expires_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// ExpiresAtEpochMillis is the absolute expiry in epoch milliseconds, the unit
// used on the wire.
func (t ProviderToken) ExpiresAtEpochMillis() int64 {
	return t.ExpiresAt.UnixMilli()
}

// Assertion is a verified short-lived identity assertion presented by a
// client that already completed a primary-provider login.
type Assertion struct {
	Subject   string
	Audience  string
	ExpiresAt time.Time
}

// SessionContext is the ephemeral state of one authentication round trip,
// persisted only for the duration of the provider handshake.
type SessionContext struct {
	// UserID is set for link flows: the authenticated user the secondary
	// provider will be attached to. Empty for primary logins.
	UserID string `json:"user_id,omitempty"`

	// ClientID identifies the requesting client application; it selects the
	// redirect target from the configured allow-list.
	ClientID string `json:"client_id"`

	// Provider is the kind this round trip was started for. The callback
	// rejects a state replayed against a different provider.
	Provider Kind `json:"provider"`
}
