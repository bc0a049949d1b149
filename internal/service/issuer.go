package service

import (
	"fmt"
	"net/url"

	"github.com/sgml/firebase-steam-login/internal/domain"
	"github.com/sgml/firebase-steam-login/internal/dto"
	"github.com/sgml/firebase-steam-login/internal/utils"
)

// issuer implements Issuer interface
type issuer struct {
	signer  *utils.Signer
	targets map[string]string
}

// NewIssuer creates a credential issuer over the signing keys and the
// configured redirect allow-list
func NewIssuer(signer *utils.Signer, targets map[string]string) Issuer {
	return &issuer{
		signer:  signer,
		targets: targets,
	}
}

// IssueRedirectCredential assembles the post-login redirect for the given
// client. Primary-provider logins carry a one-time custom token; link flows
// carry only the provider marker, the linked data travels through the
// client's own session.
func (s *issuer) IssueRedirectCredential(kind domain.Kind, clientID, userID string) (string, error) {
	spec, err := kind.Spec()
	if err != nil {
		return "", err
	}

	base, ok := s.targets[clientID]
	if !ok {
		return "", fmt.Errorf("%w: no redirect target for client %q", domain.ErrMissingRedirectTarget, clientID)
	}

	target, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("failed to parse redirect target: %w", err)
	}

	q := target.Query()
	q.Set("provider", kind.String())
	if spec.Primary {
		token, _, err := s.signer.SignCustomToken(userID, clientID)
		if err != nil {
			return "", err
		}
		q.Set("token", token)
	}
	target.RawQuery = q.Encode()

	return target.String(), nil
}

// IssueLongLivedCredential exchanges a valid identity assertion for a bearer
// credential with a fixed 30-day lifetime
func (s *issuer) IssueLongLivedCredential(assertionToken string) (*dto.SessionResponse, error) {
	assertion, err := s.signer.VerifyAssertion(assertionToken)
	if err != nil {
		return nil, err
	}

	token, exp, err := s.signer.SignBearer(assertion.Subject, assertion.Audience)
	if err != nil {
		return nil, err
	}

	return &dto.SessionResponse{
		Token:   token,
		Expires: exp.UnixMilli(),
	}, nil
}

// PublicVerificationMaterial returns the PEM public key clients verify
// credentials against
func (s *issuer) PublicVerificationMaterial() string {
	return s.signer.PublicKeyPEM()
}
