package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sgml/firebase-steam-login/internal/config"
	"github.com/sgml/firebase-steam-login/internal/domain"
)

const (
	openIDNS               = "http://specs.openid.net/auth/2.0"
	openIDIdentifierSelect = "http://specs.openid.net/auth/2.0/identifier_select"

	// Claimed identities come back as <community URL>/openid/id/<steam id>.
	steamIDPathMarker = "/openid/id/"
)

// Steam is the primary-provider adapter. It drives the OpenID 2.0 handshake
// against the Steam community endpoint and resolves the authenticated steam
// id into a verified profile through the Web API.
type Steam struct {
	cfg    config.SteamConfig
	client *http.Client
}

// NewSteam creates a Steam adapter from configured endpoints
func NewSteam(cfg config.SteamConfig) *Steam {
	return &Steam{
		cfg:    cfg,
		client: &http.Client{},
	}
}

// LoginURL builds the checkid_setup URL the client is redirected to. returnTo
// is this service's callback URL, realm the trust root shown to the user.
func (s *Steam) LoginURL(returnTo, realm string) string {
	q := url.Values{
		"openid.ns":         {openIDNS},
		"openid.mode":       {"checkid_setup"},
		"openid.return_to":  {returnTo},
		"openid.realm":      {realm},
		"openid.identity":   {openIDIdentifierSelect},
		"openid.claimed_id": {openIDIdentifierSelect},
	}
	return s.cfg.OpenIDURL + "?" + q.Encode()
}

// Verify replays the callback parameters to the provider in check_authentication
// mode and returns the asserted steam id. The signature check happens entirely
// on the provider side; the response only says whether it held.
func (s *Steam) Verify(ctx context.Context, query url.Values) (string, error) {
	if query.Get("openid.mode") != "id_res" {
		return "", fmt.Errorf("%w: unexpected openid mode %q", domain.ErrInvalidProfile, query.Get("openid.mode"))
	}

	steamID, err := steamIDFromClaimedID(query.Get("openid.claimed_id"))
	if err != nil {
		return "", err
	}

	form := url.Values{}
	for key, values := range query {
		if strings.HasPrefix(key, "openid.") {
			form[key] = values
		}
	}
	form.Set("openid.mode", "check_authentication")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.OpenIDURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build verification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: openid verification: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: openid verification: %v", domain.ErrProviderUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: openid verification returned %d", domain.ErrProviderUnavailable, resp.StatusCode)
	}

	if parseKeyValues(string(body))["is_valid"] != "true" {
		return "", fmt.Errorf("%w: openid signature rejected", domain.ErrInvalidProfile)
	}

	return steamID, nil
}

// FetchProfile resolves a steam id into a verified profile via GetPlayerSummaries
func (s *Steam) FetchProfile(ctx context.Context, steamID string) (domain.ProviderProfile, error) {
	endpoint := fmt.Sprintf("%s/ISteamUser/GetPlayerSummaries/v2/?key=%s&steamids=%s",
		s.cfg.APIURL, url.QueryEscape(s.cfg.APIKey), url.QueryEscape(steamID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.ProviderProfile{}, fmt.Errorf("failed to build summaries request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return domain.ProviderProfile{}, fmt.Errorf("%w: player summaries: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.ProviderProfile{}, fmt.Errorf("%w: player summaries returned %d", domain.ErrProviderUnavailable, resp.StatusCode)
	}

	var payload struct {
		Response struct {
			Players []json.RawMessage `json:"players"`
		} `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.ProviderProfile{}, fmt.Errorf("%w: malformed player summaries: %v", domain.ErrInvalidProfile, err)
	}
	if len(payload.Response.Players) == 0 {
		return domain.ProviderProfile{}, fmt.Errorf("%w: no player found for steam id %s", domain.ErrInvalidProfile, steamID)
	}

	raw := payload.Response.Players[0]
	var player struct {
		SteamID     string `json:"steamid"`
		PersonaName string `json:"personaname"`
		AvatarFull  string `json:"avatarfull"`
	}
	if err := json.Unmarshal(raw, &player); err != nil {
		return domain.ProviderProfile{}, fmt.Errorf("%w: malformed player entry: %v", domain.ErrInvalidProfile, err)
	}
	if player.SteamID == "" {
		player.SteamID = steamID
	}

	return domain.ProviderProfile{
		ExternalID:  player.SteamID,
		DisplayName: player.PersonaName,
		AvatarURL:   player.AvatarFull,
		Raw:         raw,
	}, nil
}

// steamIDFromClaimedID extracts the numeric steam id from a claimed identity URL
func steamIDFromClaimedID(claimedID string) (string, error) {
	idx := strings.LastIndex(claimedID, steamIDPathMarker)
	if idx < 0 {
		return "", fmt.Errorf("%w: claimed id %q is not a steam identity", domain.ErrInvalidProfile, claimedID)
	}

	steamID := claimedID[idx+len(steamIDPathMarker):]
	if steamID == "" || strings.ContainsFunc(steamID, func(r rune) bool { return r < '0' || r > '9' }) {
		return "", fmt.Errorf("%w: claimed id %q carries no steam id", domain.ErrInvalidProfile, claimedID)
	}

	return steamID, nil
}

// parseKeyValues decodes the line-oriented key:value body of an OpenID
// direct response
func parseKeyValues(body string) map[string]string {
	kv := make(map[string]string)
	for _, line := range strings.Split(body, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		kv[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return kv
}
