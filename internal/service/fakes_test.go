package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sgml/firebase-steam-login/internal/domain"
	"github.com/sgml/firebase-steam-login/internal/repository"
)

// fakeUsers is an in-memory UserRepository
type fakeUsers struct {
	mu          sync.Mutex
	users       map[string]*domain.User
	createCalls int
	updateCalls int
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: make(map[string]*domain.User)}
}

func (f *fakeUsers) Create(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++

	for _, existing := range f.users {
		if existing.Email == user.Email {
			return fmt.Errorf("user with email %s already exists: %w", user.Email, repository.ErrDuplicateEmail)
		}
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	user, ok := f.users[id]
	if !ok {
		return nil, fmt.Errorf("user with id %s not found: %w", id, repository.ErrNotFound)
	}
	clone := *user
	return &clone, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, user := range f.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("user with email %s not found: %w", email, repository.ErrNotFound)
}

func (f *fakeUsers) Update(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++

	if _, ok := f.users[user.ID]; !ok {
		return fmt.Errorf("user with id %s not found: %w", user.ID, repository.ErrNotFound)
	}
	user.UpdatedAt = time.Now()
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

// fakeProfiles is an in-memory ProfileRepository
type fakeProfiles struct {
	mu          sync.Mutex
	profiles    map[string]*domain.Profile
	order       []string
	updateCalls int
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{profiles: make(map[string]*domain.Profile)}
}

func (f *fakeProfiles) GetOrCreate(_ context.Context, userID string) (*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if prof, ok := f.profiles[userID]; ok {
		return cloneProfile(prof), nil
	}

	now := time.Now()
	prof := &domain.Profile{
		UserID:    userID,
		Providers: make(map[domain.Kind]domain.ProviderProfile),
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.profiles[userID] = prof
	f.order = append(f.order, userID)
	return cloneProfile(prof), nil
}

func (f *fakeProfiles) GetByUserID(_ context.Context, userID string) (*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	prof, ok := f.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("profile for user %s not found: %w", userID, repository.ErrNotFound)
	}
	return cloneProfile(prof), nil
}

func (f *fakeProfiles) GetByProviderExternalID(_ context.Context, kind domain.Kind, externalID string) (*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	// Insertion order stands in for the created-at tie-break.
	for _, userID := range f.order {
		prof := f.profiles[userID]
		if linked, ok := prof.Providers[kind]; ok && linked.ExternalID == externalID {
			return cloneProfile(prof), nil
		}
	}
	return nil, fmt.Errorf("profile with %s account %s not found: %w", kind, externalID, repository.ErrNotFound)
}

func (f *fakeProfiles) Update(_ context.Context, profile *domain.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++

	if _, ok := f.profiles[profile.UserID]; !ok {
		return fmt.Errorf("profile for user %s not found: %w", profile.UserID, repository.ErrNotFound)
	}
	profile.UpdatedAt = time.Now()
	f.profiles[profile.UserID] = cloneProfile(profile)
	return nil
}

func cloneProfile(prof *domain.Profile) *domain.Profile {
	clone := *prof
	clone.Providers = make(map[domain.Kind]domain.ProviderProfile, len(prof.Providers))
	for kind, linked := range prof.Providers {
		clone.Providers[kind] = linked
	}
	return &clone
}

// fakeTokens is an in-memory ProviderTokenRepository
type fakeTokens struct {
	mu       sync.Mutex
	tokens   map[string]*domain.ProviderToken
	putCalls int
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{tokens: make(map[string]*domain.ProviderToken)}
}

func (f *fakeTokens) Put(_ context.Context, token *domain.ProviderToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putCalls++

	token.UpdatedAt = time.Now()
	clone := *token
	f.tokens[token.UserID+"/"+string(token.Provider)] = &clone
	return nil
}

func (f *fakeTokens) Get(_ context.Context, userID string, provider domain.Kind) (*domain.ProviderToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	token, ok := f.tokens[userID+"/"+string(provider)]
	if !ok {
		return nil, fmt.Errorf("%s token for user %s not found: %w", provider, userID, repository.ErrNotFound)
	}
	clone := *token
	return &clone, nil
}

func (f *fakeTokens) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tokens)
}

// fakeExchanger satisfies TokenExchanger with a pluggable response
type fakeExchanger struct {
	mu    sync.Mutex
	calls int
	token *domain.ProviderToken
	err   error
}

func (f *fakeExchanger) ExchangeRefreshToken(_ context.Context, refreshToken string) (*domain.ProviderToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	if f.err != nil {
		return nil, f.err
	}
	if f.token != nil {
		clone := *f.token
		if clone.RefreshToken == "" {
			clone.RefreshToken = refreshToken
		}
		return &clone, nil
	}
	return &domain.ProviderToken{
		AccessToken:  "at-" + refreshToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		Scope:        "identify",
		ExpiresAt:    time.Now().Add(7 * 24 * time.Hour),
	}, nil
}
