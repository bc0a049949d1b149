package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sgml/firebase-steam-login/internal/domain"
	"github.com/sgml/firebase-steam-login/internal/service"
	"golang.org/x/oauth2"
)

// SteamAuthenticator drives the primary provider's OpenID handshake
type SteamAuthenticator interface {
	LoginURL(returnTo, realm string) string
	Verify(ctx context.Context, query url.Values) (string, error)
	FetchProfile(ctx context.Context, steamID string) (domain.ProviderProfile, error)
}

// DiscordAuthenticator drives the secondary provider's OAuth2 handshake
type DiscordAuthenticator interface {
	LoginURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	FetchProfile(ctx context.Context, accessToken string) (domain.ProviderProfile, error)
}

// SessionStateStore carries one round trip's context across the provider
// redirect
type SessionStateStore interface {
	Create(ctx context.Context, session domain.SessionContext) (string, error)
	Consume(ctx context.Context, state string) (*domain.SessionContext, error)
}

// AuthHandler handles the provider login and callback routes
type AuthHandler struct {
	steam      SteamAuthenticator
	discord    DiscordAuthenticator
	states     SessionStateStore
	reconciler service.Reconciler
	linker     service.Linker
	issuer     service.Issuer
	verifier   AssertionVerifier
	targets    map[string]string
	publicURL  string
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(
	steam SteamAuthenticator,
	discord DiscordAuthenticator,
	states SessionStateStore,
	reconciler service.Reconciler,
	linker service.Linker,
	issuer service.Issuer,
	verifier AssertionVerifier,
	targets map[string]string,
	publicURL string,
) *AuthHandler {
	return &AuthHandler{
		steam:      steam,
		discord:    discord,
		states:     states,
		reconciler: reconciler,
		linker:     linker,
		issuer:     issuer,
		verifier:   verifier,
		targets:    targets,
		publicURL:  strings.TrimRight(publicURL, "/"),
	}
}

// Login starts a provider handshake
// @Summary Start a provider login
// @Description Redirect the caller to the provider's authorization page. Secondary providers require a bearer credential and link to its user.
// @Tags auth
// @Produce json
// @Param provider path string true "Provider name"
// @Param client_id query string true "Client identifier from the redirect allow-list"
// @Success 302
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /auth/{provider}/login [get]
func (h *AuthHandler) Login(c *gin.Context) {
	kind, err := domain.ParseKind(c.Param("provider"))
	if err != nil {
		writeError(c, err)
		return
	}
	spec, err := kind.Spec()
	if err != nil {
		writeError(c, err)
		return
	}

	clientID := c.Query("client_id")
	if _, ok := h.targets[clientID]; !ok {
		writeError(c, fmt.Errorf("%w: unknown client %q", domain.ErrMissingRedirectTarget, clientID))
		return
	}

	session := domain.SessionContext{
		ClientID: clientID,
		Provider: kind,
	}

	// Secondary providers attach to an existing user, so the caller must
	// already hold a valid credential.
	if !spec.Primary {
		token, err := bearerToken(c)
		if err != nil {
			writeError(c, fmt.Errorf("%w: %v", domain.ErrSessionInvalid, err))
			return
		}
		assertion, err := h.verifier.VerifyAssertion(token)
		if err != nil {
			writeError(c, err)
			return
		}
		session.UserID = assertion.Subject
	}

	state, err := h.states.Create(c.Request.Context(), session)
	if err != nil {
		writeError(c, err)
		return
	}

	var authURL string
	switch kind {
	case domain.KindSteam:
		returnTo := h.callbackURL(kind) + "?state=" + url.QueryEscape(state)
		authURL = h.steam.LoginURL(returnTo, h.publicURL)
	case domain.KindDiscord:
		authURL = h.discord.LoginURL(state)
	default:
		writeError(c, fmt.Errorf("%w: %s", domain.ErrUnknownProvider, kind))
		return
	}

	c.Redirect(http.StatusFound, authURL)
}

// Callback completes a provider handshake
// @Summary Complete a provider login
// @Description Consume the round-trip state, verify the provider's response and redirect to the client's configured target.
// @Tags auth
// @Produce json
// @Param provider path string true "Provider name"
// @Param state query string true "Round-trip state issued by the login route"
// @Success 302
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /auth/{provider}/callback [get]
func (h *AuthHandler) Callback(c *gin.Context) {
	kind, err := domain.ParseKind(c.Param("provider"))
	if err != nil {
		writeError(c, err)
		return
	}

	state := c.Query("state")
	if state == "" {
		writeError(c, fmt.Errorf("%w: missing state", domain.ErrSessionInvalid))
		return
	}

	session, err := h.states.Consume(c.Request.Context(), state)
	if err != nil {
		writeError(c, err)
		return
	}
	if session.Provider != kind {
		writeError(c, fmt.Errorf("%w: state was issued for provider %s", domain.ErrSessionInvalid, session.Provider))
		return
	}

	switch kind {
	case domain.KindSteam:
		h.completeSteam(c, session)
	case domain.KindDiscord:
		h.completeDiscord(c, session)
	default:
		writeError(c, fmt.Errorf("%w: %s", domain.ErrUnknownProvider, kind))
	}
}

// completeSteam verifies the OpenID response, reconciles the asserted steam
// identity into a canonical user and redirects with a custom token.
func (h *AuthHandler) completeSteam(c *gin.Context, session *domain.SessionContext) {
	ctx := c.Request.Context()

	steamID, err := h.steam.Verify(ctx, c.Request.URL.Query())
	if err != nil {
		writeError(c, err)
		return
	}

	profile, err := h.steam.FetchProfile(ctx, steamID)
	if err != nil {
		writeError(c, err)
		return
	}

	account, err := h.reconciler.Reconcile(ctx, domain.KindSteam, profile)
	if err != nil {
		writeError(c, err)
		return
	}

	redirect, err := h.issuer.IssueRedirectCredential(domain.KindSteam, session.ClientID, account.User.ID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Redirect(http.StatusFound, redirect)
}

// completeDiscord exchanges the authorization code, links the account to the
// session's user and redirects without a credential.
func (h *AuthHandler) completeDiscord(c *gin.Context, session *domain.SessionContext) {
	ctx := c.Request.Context()

	if errParam := c.Query("error"); errParam != "" {
		writeError(c, fmt.Errorf("%w: provider returned %q", domain.ErrTokenExchange, errParam))
		return
	}

	code := c.Query("code")
	if code == "" {
		writeError(c, fmt.Errorf("%w: provider returned no authorization code", domain.ErrTokenExchange))
		return
	}

	if session.UserID == "" {
		writeError(c, fmt.Errorf("%w: link flow started without an authenticated user", domain.ErrSessionInvalid))
		return
	}

	token, err := h.discord.Exchange(ctx, code)
	if err != nil {
		writeError(c, err)
		return
	}

	profile, err := h.discord.FetchProfile(ctx, token.AccessToken)
	if err != nil {
		writeError(c, err)
		return
	}

	if err := h.linker.LinkSecondaryProvider(ctx, session.UserID, domain.KindDiscord, profile, token.RefreshToken); err != nil {
		writeError(c, err)
		return
	}

	redirect, err := h.issuer.IssueRedirectCredential(domain.KindDiscord, session.ClientID, session.UserID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Redirect(http.StatusFound, redirect)
}

func (h *AuthHandler) callbackURL(kind domain.Kind) string {
	return fmt.Sprintf("%s/api/v1/auth/%s/callback", h.publicURL, kind)
}
