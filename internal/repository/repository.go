package repository

import (
	"github.com/sgml/firebase-steam-login/pkg/database"
)

// Repositories holds all repository interfaces
type Repositories struct {
	User          UserRepository
	Profile       ProfileRepository
	ProviderToken ProviderTokenRepository
}

// NewRepositories creates all repositories
func NewRepositories(db *database.Postgres) *Repositories {
	return &Repositories{
		User:          NewUserRepository(db),
		Profile:       NewProfileRepository(db),
		ProviderToken: NewProviderTokenRepository(db),
	}
}
