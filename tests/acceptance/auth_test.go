package acceptance

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/sgml/firebase-steam-login/internal/dto"
)

const (
	defaultSteamID = "76561198000000001"
	testClientID   = "webapp"
)

// get performs a GET without following redirects, with an optional bearer
// credential.
func (s *Suite) get(target, bearer string) *http.Response {
	req, err := http.NewRequest(http.MethodGet, target, nil)
	s.Require().NoError(err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := s.client.Do(req)
	s.Require().NoError(err)
	return resp
}

// location parses the redirect target of a 302 response
func (s *Suite) location(resp *http.Response) *url.URL {
	loc, err := url.Parse(resp.Header.Get("Location"))
	s.Require().NoError(err, "Redirect location should parse")
	return loc
}

// steamCallbackURL starts a login round trip and builds the redirect the
// provider would send back to the callback after asserting the given steam id.
func (s *Suite) steamCallbackURL(steamID string) string {
	resp := s.get(s.BaseURL+"/api/v1/auth/steam/login?client_id="+testClientID, "")
	resp.Body.Close()
	s.Require().Equal(http.StatusFound, resp.StatusCode, "Login should redirect to the provider")

	q := s.location(resp).Query()
	s.Require().Equal("checkid_setup", q.Get("openid.mode"))
	s.Require().Equal(s.BaseURL, q.Get("openid.realm"))

	returnTo, err := url.Parse(q.Get("openid.return_to"))
	s.Require().NoError(err, "return_to should carry the callback URL")
	s.Require().NotEmpty(returnTo.Query().Get("state"), "return_to should carry the round-trip state")

	claimedID := "https://steamcommunity.com/openid/id/" + steamID

	callback := returnTo.Query()
	callback.Set("openid.ns", "http://specs.openid.net/auth/2.0")
	callback.Set("openid.mode", "id_res")
	callback.Set("openid.op_endpoint", s.steam.OpenIDURL())
	callback.Set("openid.claimed_id", claimedID)
	callback.Set("openid.identity", claimedID)
	callback.Set("openid.return_to", q.Get("openid.return_to"))
	callback.Set("openid.response_nonce", time.Now().UTC().Format(time.RFC3339)+"n0nce")
	callback.Set("openid.assoc_handle", "1234567890")
	callback.Set("openid.signed", "signed,op_endpoint,claimed_id,identity,return_to,response_nonce,assoc_handle")
	callback.Set("openid.sig", "c2lnbmF0dXJl")
	returnTo.RawQuery = callback.Encode()

	return returnTo.String()
}

// steamLogin drives the full primary-provider round trip and returns the
// callback response carrying the redirect back to the client application
func (s *Suite) steamLogin(steamID string) *http.Response {
	return s.get(s.steamCallbackURL(steamID), "")
}

// loginForToken completes a steam login and returns the created user's id and
// the custom token handed back through the redirect
func (s *Suite) loginForToken(steamID string) (userID, token string) {
	resp := s.steamLogin(steamID)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusFound, resp.StatusCode)

	token = s.location(resp).Query().Get("token")
	s.Require().NotEmpty(token, "Primary logins should carry a custom token")
	return s.tokenSubject(token), token
}

// discordCallbackURL starts a link round trip under the given credential and
// builds the provider's redirect back to the callback.
func (s *Suite) discordCallbackURL(bearer string) string {
	resp := s.get(s.BaseURL+"/api/v1/auth/discord/login?client_id="+testClientID, bearer)
	resp.Body.Close()
	s.Require().Equal(http.StatusFound, resp.StatusCode, "Link should redirect to the provider")

	q := s.location(resp).Query()
	s.Require().NotEmpty(q.Get("state"), "Authorization URL should carry the round-trip state")

	redirectURI, err := url.Parse(q.Get("redirect_uri"))
	s.Require().NoError(err, "Authorization URL should carry the callback URL")

	query := redirectURI.Query()
	query.Set("state", q.Get("state"))
	query.Set("code", "acceptance-code")
	redirectURI.RawQuery = query.Encode()

	return redirectURI.String()
}

func (s *Suite) linkDiscord(bearer string) *http.Response {
	return s.get(s.discordCallbackURL(bearer), "")
}

func (s *Suite) TestSteamLogin_CreatesUser() {
	resp := s.steamLogin(defaultSteamID)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusFound, resp.StatusCode)

	loc := s.location(resp)
	s.Equal("app.example.com", loc.Host, "Callback should redirect to the configured client target")
	s.Equal("steam", loc.Query().Get("provider"))

	token := loc.Query().Get("token")
	s.Require().NotEmpty(token, "Primary logins should carry a custom token")

	user := s.findUserByEmail(defaultSteamID + "@steamcommunity.com")
	s.Equal(user.ID, s.tokenSubject(token), "Custom token should bind to the created user")
	s.Equal("Ana", user.DisplayName)
	s.Equal("https://avatars.example.com/ana_full.jpg", user.PhotoURL)
	s.False(user.EmailVerified)

	s.Equal(defaultSteamID, s.linkedExternalID(user.ID, "steam"))
}

func (s *Suite) TestSteamLogin_RepeatLoginUpdatesSameUser() {
	first := s.steamLogin(defaultSteamID)
	first.Body.Close()
	s.Require().Equal(http.StatusFound, first.StatusCode)

	s.steam.setPersona("Ana2")

	second := s.steamLogin(defaultSteamID)
	second.Body.Close()
	s.Require().Equal(http.StatusFound, second.StatusCode)

	s.Equal(1, s.countUsers(), "Repeat logins must not create a second user")

	user := s.findUserByEmail(defaultSteamID + "@steamcommunity.com")
	s.Equal("Ana2", user.DisplayName, "Login refreshes display data")
}

func (s *Suite) TestSteamLogin_UnknownClient() {
	resp := s.get(s.BaseURL+"/api/v1/auth/steam/login?client_id=unknown", "")
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestLogin_UnknownProvider() {
	resp := s.get(s.BaseURL+"/api/v1/auth/google/login?client_id="+testClientID, "")
	defer resp.Body.Close()

	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *Suite) TestSteamCallback_RejectedSignature() {
	s.steam.setRejectSignature(true)

	resp := s.steamLogin(defaultSteamID)
	defer resp.Body.Close()

	s.Equal(http.StatusBadGateway, resp.StatusCode)
	s.Equal(0, s.countUsers(), "A rejected assertion must not create a user")
}

func (s *Suite) TestSteamCallback_StateConsumedOnce() {
	callback := s.steamCallbackURL(defaultSteamID)

	first := s.get(callback, "")
	first.Body.Close()
	s.Require().Equal(http.StatusFound, first.StatusCode)

	second := s.get(callback, "")
	defer second.Body.Close()
	s.Equal(http.StatusUnauthorized, second.StatusCode, "A state must not be redeemable twice")

	s.Equal(1, s.countUsers())
}

func (s *Suite) TestDiscordLink_StoresAccountAndToken() {
	userID, custom := s.loginForToken(defaultSteamID)

	resp := s.linkDiscord(custom)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusFound, resp.StatusCode)

	loc := s.location(resp)
	s.Equal("app.example.com", loc.Host)
	s.Equal("discord", loc.Query().Get("provider"))
	s.Empty(loc.Query().Get("token"), "Link flows issue no credential")

	s.Equal(defaultDiscordAccountID, s.linkedExternalID(userID, "discord"))
	s.Equal(defaultSteamID, s.linkedExternalID(userID, "steam"), "Linking must not displace other providers")

	token := s.storedToken(userID, "discord")
	s.Equal(discordRotatedAccessToken, token.AccessToken, "The stored token comes from the refresh grant")
	s.Equal(discordRotatedRefreshToken, token.RefreshToken)
	s.Equal("identify", token.Scope)
	s.Greater(token.ExpiresAtEpochMillis(), time.Now().UnixMilli(), "Stored expiry is absolute and in the future")
	s.Equal(1, s.discord.refreshGrantCount())
}

func (s *Suite) TestDiscordLink_RequiresCredential() {
	resp := s.get(s.BaseURL+"/api/v1/auth/discord/login?client_id="+testClientID, "")
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestDiscordLink_SameAccountTwiceIsIdempotent() {
	userID, custom := s.loginForToken(defaultSteamID)

	first := s.linkDiscord(custom)
	first.Body.Close()
	s.Require().Equal(http.StatusFound, first.StatusCode)

	second := s.linkDiscord(custom)
	second.Body.Close()
	s.Require().Equal(http.StatusFound, second.StatusCode, "Relinking the same account is allowed")

	var tokenRows int
	err := s.Postgres.DB.QueryRow(
		`SELECT COUNT(*) FROM provider_tokens WHERE user_id = $1`, userID,
	).Scan(&tokenRows)
	s.Require().NoError(err)
	s.Equal(1, tokenRows, "Relinking replaces the stored token instead of adding one")
	s.Equal(2, s.discord.refreshGrantCount())
}

func (s *Suite) TestDiscordLink_ConflictingAccount() {
	userID, custom := s.loginForToken(defaultSteamID)

	first := s.linkDiscord(custom)
	first.Body.Close()
	s.Require().Equal(http.StatusFound, first.StatusCode)

	s.discord.setAccount("190000000000000999", "eve_dc")

	resp := s.linkDiscord(custom)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusConflict, resp.StatusCode)

	var errResp dto.ErrorResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&errResp))
	s.Equal("Conflict", errResp.Error)
	s.NotEmpty(errResp.Details, "The conflict should tell the user what to do")

	s.Equal(defaultDiscordAccountID, s.linkedExternalID(userID, "discord"),
		"The existing link must survive a conflicting attempt")
}
