package config

import (
	"context"
	"fmt"
	"net/url"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Server    ServerConfig   `env:",prefix=SERVER_"`
	Postgres  PostgresConfig `env:",prefix=POSTGRES_"`
	Redis     RedisConfig    `env:",prefix=REDIS_"`
	Signing   SigningConfig  `env:",prefix=SIGNING_"`
	Steam     SteamConfig    `env:",prefix=STEAM_"`
	Discord   DiscordConfig  `env:",prefix=DISCORD_"`
	Session   SessionConfig  `env:",prefix=SESSION_"`
	Redirects RedirectConfig `env:",prefix=REDIRECT_"`
	CORS      CORSConfig     `env:",prefix=CORS_"`
	Env       string         `env:"ENV,default=development"`
}

type ServerConfig struct {
	Port         string   `env:"PORT,default=8080"`
	Host         string   `env:"HOST,default=0.0.0.0"`
	ReadTimeout  Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout Duration `env:"WRITE_TIMEOUT,default=15s"`

	// PublicURL is the externally reachable base URL of this service. It is
	// the OpenID realm and the base of the provider callback URLs.
	PublicURL string `env:"PUBLIC_URL,default=http://localhost:8080"`
}

type PostgresConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=5432"`
	User     string `env:"USER,default=steam_login"`
	Password string `env:"PASSWORD,default=steam_login_password"`
	DBName   string `env:"DB,default=steam_login_db"`
	SSLMode  string `env:"SSLMODE,default=disable"`
}

type RedisConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=6379"`
	Password string `env:"PASSWORD,default="`
	DB       int    `env:"DB,default=0"`
}

type SigningConfig struct {
	// PrivateKeyFile is the PEM-encoded RSA private key used to sign custom
	// tokens and bearer credentials.
	PrivateKeyFile string `env:"PRIVATE_KEY_FILE,required"`

	// AssertionPublicKeyFile verifies incoming identity assertions. When
	// empty, the service's own public key is used, so self-issued custom
	// tokens can be redeemed as assertions.
	AssertionPublicKeyFile string `env:"ASSERTION_PUBLIC_KEY_FILE"`

	Issuer         string   `env:"ISSUER,default=firebase-steam-login"`
	CustomTokenTTL Duration `env:"CUSTOM_TOKEN_TTL,default=5m"`
}

type SteamConfig struct {
	APIKey string `env:"API_KEY,required"`

	// Endpoint overrides exist for tests; the defaults are the live Steam
	// endpoints.
	OpenIDURL string `env:"OPENID_URL,default=https://steamcommunity.com/openid/login"`
	APIURL    string `env:"API_URL,default=https://api.steampowered.com"`
}

type DiscordConfig struct {
	ClientID     string `env:"CLIENT_ID,required"`
	ClientSecret string `env:"CLIENT_SECRET,required"`
	AuthURL      string `env:"AUTH_URL,default=https://discord.com/api/oauth2/authorize"`
	TokenURL     string `env:"TOKEN_URL,default=https://discord.com/api/oauth2/token"`
	APIURL       string `env:"API_URL,default=https://discord.com/api"`
	Scopes       string `env:"SCOPES,default=identify"`
}

type SessionConfig struct {
	// StateTTL bounds one authentication round trip through a provider.
	StateTTL Duration `env:"STATE_TTL,default=10m"`
}

type RedirectConfig struct {
	// Targets is the allow-list of client identifiers to redirect base URLs,
	// e.g. "webapp:https://app.example.com/auth,beta:https://beta.example.com/auth".
	Targets map[string]string `env:"TARGETS,required"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS,default=http://localhost:3000"`
	AllowedMethods []string `env:"ALLOWED_METHODS,default=GET,POST,OPTIONS"`
	AllowedHeaders []string `env:"ALLOWED_HEADERS,default=Content-Type,Authorization"`
}

// DSN returns PostgreSQL connection string
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// Address returns Redis connection address
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// Load loads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	var config Config

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Every redirect target must be an absolute URL; a relative target would
	// bounce the custom token back to this service.
	for client, target := range config.Redirects.Targets {
		u, err := url.Parse(target)
		if err != nil || !u.IsAbs() {
			return nil, fmt.Errorf("redirect target for client %q must be an absolute URL, got %q", client, target)
		}
	}

	return &config, nil
}
