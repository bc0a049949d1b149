package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sgml/firebase-steam-login/internal/config"
	"github.com/sgml/firebase-steam-login/internal/domain"
	"golang.org/x/oauth2"
)

const discordCDN = "https://cdn.discordapp.com"

// Discord is the secondary-provider adapter: a standard OAuth2 code flow
// followed by an identity lookup against the provider's API.
type Discord struct {
	oauth  *oauth2.Config
	apiURL string
	client *http.Client
}

// NewDiscord creates a Discord adapter. redirectURL is this service's
// callback URL registered with the provider.
func NewDiscord(cfg config.DiscordConfig, redirectURL string) *Discord {
	return &Discord{
		oauth:  oauthConfig(cfg, redirectURL),
		apiURL: cfg.APIURL,
		client: &http.Client{},
	}
}

// LoginURL builds the authorization URL carrying the round-trip state
func (d *Discord) LoginURL(state string) string {
	return d.oauth.AuthCodeURL(state)
}

// Exchange redeems an authorization code for a token set
func (d *Discord) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := d.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, mapTokenError(err)
	}
	return token, nil
}

// FetchProfile resolves the authenticated account behind an access token
func (d *Discord) FetchProfile(ctx context.Context, accessToken string) (domain.ProviderProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.apiURL+"/users/@me", nil)
	if err != nil {
		return domain.ProviderProfile{}, fmt.Errorf("failed to build identity request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := d.client.Do(req)
	if err != nil {
		return domain.ProviderProfile{}, fmt.Errorf("%w: identity lookup: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.ProviderProfile{}, fmt.Errorf("%w: identity lookup returned %d", domain.ErrProviderUnavailable, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.ProviderProfile{}, fmt.Errorf("%w: identity lookup: %v", domain.ErrProviderUnavailable, err)
	}

	var user struct {
		ID         string `json:"id"`
		Username   string `json:"username"`
		GlobalName string `json:"global_name"`
		Avatar     string `json:"avatar"`
	}
	if err := json.Unmarshal(raw, &user); err != nil {
		return domain.ProviderProfile{}, fmt.Errorf("%w: malformed identity payload: %v", domain.ErrInvalidProfile, err)
	}
	if user.ID == "" {
		return domain.ProviderProfile{}, fmt.Errorf("%w: identity payload carries no account id", domain.ErrInvalidProfile)
	}

	displayName := user.GlobalName
	if displayName == "" {
		displayName = user.Username
	}

	var avatarURL string
	if user.Avatar != "" {
		avatarURL = fmt.Sprintf("%s/avatars/%s/%s.png", discordCDN, user.ID, user.Avatar)
	}

	return domain.ProviderProfile{
		ExternalID:  user.ID,
		DisplayName: displayName,
		AvatarURL:   avatarURL,
		Raw:         raw,
	}, nil
}

// oauthConfig builds the provider's OAuth2 endpoint description. Client
// credentials go in the form body, which is what the token endpoint expects.
func oauthConfig(cfg config.DiscordConfig, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  redirectURL,
		Scopes:       strings.Fields(cfg.Scopes),
		Endpoint: oauth2.Endpoint{
			AuthURL:   cfg.AuthURL,
			TokenURL:  cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}
