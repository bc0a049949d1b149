package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// User is the canonical user record. ID is immutable and is the join key for
// every other record.
type User struct {
	ID            string    `json:"id" db:"id"`
	Email         string    `json:"email" db:"email"`
	EmailVerified bool      `json:"email_verified" db:"email_verified"`
	DisplayName   string    `json:"display_name" db:"display_name"`
	PhotoURL      string    `json:"photo_url" db:"photo_url"`
	Disabled      bool      `json:"disabled" db:"disabled"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// ProviderProfile is a verified profile as produced by a provider handshake.
// Raw keeps the provider's payload verbatim for the per-provider blob.
type ProviderProfile struct {
	ExternalID  string          `json:"external_id"`
	DisplayName string          `json:"display_name"`
	AvatarURL   string          `json:"avatar_url"`
	Raw         json.RawMessage `json:"raw,omitempty"`
}

// Profile is the per-user profile record, one-to-one with User. Providers maps
// each linked provider kind to the raw verified profile it last presented.
type Profile struct {
	UserID      string                   `json:"user_id" db:"user_id"`
	DisplayName string                   `json:"display_name" db:"display_name"`
	PhotoURL    string                   `json:"photo_url" db:"photo_url"`
	Providers   map[Kind]ProviderProfile `json:"providers" db:"providers"`
	CreatedAt   time.Time                `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time                `json:"updated_at" db:"updated_at"`
}

// Account is the merged view returned by reconciliation: the canonical user
// plus its profile record.
type Account struct {
	User    User
	Profile Profile
}

// PlaceholderEmail derives the deterministic placeholder email for a user
// first seen through the given provider. Stable and collision-free per
// provider kind.
func PlaceholderEmail(kind Kind, externalID string) (string, error) {
	spec, err := kind.Spec()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s@%s", externalID, spec.EmailDomain), nil
}
