package utils

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sgml/firebase-steam-login/internal/domain"
)

// BearerTokenTTL is the fixed lifetime of a bearer credential. Callers learn
// the absolute expiry from the response body, never from this constant.
const BearerTokenTTL = 30 * 24 * time.Hour

// Signer mints and verifies the service's RS256 credentials. Custom tokens
// are short-lived and carry the requesting client as audience; bearer tokens
// are the long-lived session credential.
type Signer struct {
	privateKey     *rsa.PrivateKey
	verifyKey      *rsa.PublicKey
	publicPEM      string
	issuer         string
	customTokenTTL time.Duration
}

// NewSigner loads the RS256 signing key from privateKeyFile. Incoming
// assertions are verified against assertionKeyFile when given, otherwise
// against the signing key's own public half.
func NewSigner(privateKeyFile, assertionKeyFile, issuer string, customTokenTTL time.Duration) (*Signer, error) {
	keyPEM, err := os.ReadFile(privateKeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(keyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	verifyKey := &privateKey.PublicKey
	if assertionKeyFile != "" {
		pubPEM, err := os.ReadFile(assertionKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read assertion key: %w", err)
		}
		verifyKey, err = jwt.ParseRSAPublicKeyFromPEM(pubPEM)
		if err != nil {
			return nil, fmt.Errorf("failed to parse assertion key: %w", err)
		}
	}

	publicPEM, err := encodePublicKey(&privateKey.PublicKey)
	if err != nil {
		return nil, err
	}

	return &Signer{
		privateKey:     privateKey,
		verifyKey:      verifyKey,
		publicPEM:      publicPEM,
		issuer:         issuer,
		customTokenTTL: customTokenTTL,
	}, nil
}

// SignCustomToken mints the short-lived token handed back through the
// post-login redirect. The audience names the client that started the flow.
func (s *Signer) SignCustomToken(userID, audience string) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(s.customTokenTTL)

	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    s.issuer,
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
		ID:        uuid.New().String(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.privateKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign custom token: %w", err)
	}

	return signed, exp, nil
}

// SignBearer mints a session bearer credential valid for BearerTokenTTL. The
// audience carries over from the assertion the credential extends.
func (s *Signer) SignBearer(userID, audience string) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(BearerTokenTTL)

	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
		ID:        uuid.New().String(),
	}
	if audience != "" {
		claims.Audience = jwt.ClaimStrings{audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.privateKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign bearer token: %w", err)
	}

	return signed, exp, nil
}

// VerifyAssertion validates an incoming identity assertion and extracts its
// claims. Expired, unsigned, or malformed tokens all map to the same error.
func (s *Signer) VerifyAssertion(tokenString string) (*domain.Assertion, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.verifyKey, nil
	}, jwt.WithExpirationRequired())

	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidAssertion, err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return nil, domain.ErrInvalidAssertion
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", domain.ErrInvalidAssertion)
	}

	assertion := &domain.Assertion{
		Subject:   claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if len(claims.Audience) > 0 {
		assertion.Audience = claims.Audience[0]
	}

	return assertion, nil
}

// PublicKeyPEM returns the PEM-encoded public half of the signing key
func (s *Signer) PublicKeyPEM() string {
	return s.publicPEM
}

func encodePublicKey(key *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return "", fmt.Errorf("failed to encode public key: %w", err)
	}

	block := &pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: der,
	}

	return string(pem.EncodeToMemory(block)), nil
}
