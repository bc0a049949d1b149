package domain

// Kind identifies one of the supported identity providers.
type Kind string

const (
	// KindSteam is the primary provider: a successful Steam login may create
	// the canonical user and receives a redirect custom token.
	KindSteam Kind = "steam"

	// KindDiscord is the secondary provider: a Discord account can only be
	// linked to an already-authenticated canonical user.
	KindDiscord Kind = "discord"
)

// KindSpec carries the per-provider behavior as data, so callers switch on
// fields instead of on provider names.
type KindSpec struct {
	// Primary providers establish the canonical user and are handed a redirect
	// custom token after login; secondary providers are link-only.
	Primary bool

	// EmailDomain is the domain of the synthesized placeholder email for users
	// first seen through this provider.
	EmailDomain string

	// StoresTokens marks OAuth2 providers whose access/refresh tokens are
	// persisted per user.
	StoresTokens bool
}

// kindSpecs is the closed set of supported providers. Adding a provider means
// adding exactly one entry here.
var kindSpecs = map[Kind]KindSpec{
	KindSteam: {
		Primary:     true,
		EmailDomain: "steamcommunity.com",
	},
	KindDiscord: {
		EmailDomain:  "discordapp.com",
		StoresTokens: true,
	},
}

// ParseKind converts a raw provider name into a Kind.
func ParseKind(name string) (Kind, error) {
	k := Kind(name)
	if _, ok := kindSpecs[k]; !ok {
		return "", ErrUnknownProvider
	}
	return k, nil
}

// Spec returns the provider's behavior descriptor.
func (k Kind) Spec() (KindSpec, error) {
	spec, ok := kindSpecs[k]
	if !ok {
		return KindSpec{}, ErrUnknownProvider
	}
	return spec, nil
}

// String returns the wire name of the provider.
func (k Kind) String() string {
	return string(k)
}
