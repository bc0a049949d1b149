package handler

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/sgml/firebase-steam-login/internal/domain"
	"github.com/sgml/firebase-steam-login/internal/dto"
	"golang.org/x/oauth2"
)

type fakeSteam struct {
	returnTo string
	realm    string

	verifiedQuery url.Values
	steamID       string
	verifyErr     error

	fetchedID  string
	profile    domain.ProviderProfile
	profileErr error
}

func (f *fakeSteam) LoginURL(returnTo, realm string) string {
	f.returnTo = returnTo
	f.realm = realm
	return "https://steamcommunity.example/openid/login?return_to=" + url.QueryEscape(returnTo)
}

func (f *fakeSteam) Verify(_ context.Context, query url.Values) (string, error) {
	f.verifiedQuery = query
	if f.verifyErr != nil {
		return "", f.verifyErr
	}
	return f.steamID, nil
}

func (f *fakeSteam) FetchProfile(_ context.Context, steamID string) (domain.ProviderProfile, error) {
	f.fetchedID = steamID
	if f.profileErr != nil {
		return domain.ProviderProfile{}, f.profileErr
	}
	return f.profile, nil
}

type fakeDiscord struct {
	loginState string

	exchangedCode string
	token         *oauth2.Token
	exchangeErr   error

	fetchedAccessToken string
	profile            domain.ProviderProfile
	profileErr         error
}

func (f *fakeDiscord) LoginURL(state string) string {
	f.loginState = state
	return "https://discord.example/oauth2/authorize?state=" + state
}

func (f *fakeDiscord) Exchange(_ context.Context, code string) (*oauth2.Token, error) {
	f.exchangedCode = code
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return f.token, nil
}

func (f *fakeDiscord) FetchProfile(_ context.Context, accessToken string) (domain.ProviderProfile, error) {
	f.fetchedAccessToken = accessToken
	if f.profileErr != nil {
		return domain.ProviderProfile{}, f.profileErr
	}
	return f.profile, nil
}

// fakeStates hands out sequential state values and consumes each at most once
type fakeStates struct {
	entries   map[string]domain.SessionContext
	created   []domain.SessionContext
	lastState string
	createErr error
}

func newFakeStates() *fakeStates {
	return &fakeStates{entries: make(map[string]domain.SessionContext)}
}

func (f *fakeStates) Create(_ context.Context, session domain.SessionContext) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, session)
	state := fmt.Sprintf("state-%d", len(f.created))
	f.entries[state] = session
	f.lastState = state
	return state, nil
}

func (f *fakeStates) Consume(_ context.Context, state string) (*domain.SessionContext, error) {
	session, ok := f.entries[state]
	if !ok {
		return nil, fmt.Errorf("%w: unknown or expired state", domain.ErrSessionInvalid)
	}
	delete(f.entries, state)
	return &session, nil
}

func (f *fakeStates) seed(state string, session domain.SessionContext) {
	f.entries[state] = session
}

type fakeReconciler struct {
	kind    domain.Kind
	profile domain.ProviderProfile
	userID  string
	err     error
}

func (f *fakeReconciler) Reconcile(_ context.Context, kind domain.Kind, profile domain.ProviderProfile) (*domain.Account, error) {
	f.kind = kind
	f.profile = profile
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Account{
		User:    domain.User{ID: f.userID},
		Profile: domain.Profile{UserID: f.userID},
	}, nil
}

type fakeLinker struct {
	userID       string
	kind         domain.Kind
	profile      domain.ProviderProfile
	refreshToken string
	calls        int
	err          error
}

func (f *fakeLinker) LinkSecondaryProvider(_ context.Context, userID string, kind domain.Kind, profile domain.ProviderProfile, refreshToken string) error {
	f.calls++
	f.userID = userID
	f.kind = kind
	f.profile = profile
	f.refreshToken = refreshToken
	return f.err
}

type fakeIssuer struct {
	redirectKind   domain.Kind
	redirectClient string
	redirectUser   string
	redirectURL    string
	redirectErr    error

	extendedToken string
	session       *dto.SessionResponse
	extendErr     error

	publicKey string
}

func (f *fakeIssuer) IssueRedirectCredential(kind domain.Kind, clientID, userID string) (string, error) {
	f.redirectKind = kind
	f.redirectClient = clientID
	f.redirectUser = userID
	if f.redirectErr != nil {
		return "", f.redirectErr
	}
	return f.redirectURL, nil
}

func (f *fakeIssuer) IssueLongLivedCredential(assertionToken string) (*dto.SessionResponse, error) {
	f.extendedToken = assertionToken
	if f.extendErr != nil {
		return nil, f.extendErr
	}
	return f.session, nil
}

func (f *fakeIssuer) PublicVerificationMaterial() string {
	return f.publicKey
}

type fakeVerifier struct {
	token   string
	subject string
	err     error
}

func (f *fakeVerifier) VerifyAssertion(token string) (*domain.Assertion, error) {
	f.token = token
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Assertion{
		Subject:   f.subject,
		Audience:  "webapp",
		ExpiresAt: time.Now().Add(5 * time.Minute),
	}, nil
}
