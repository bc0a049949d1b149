package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sgml/firebase-steam-login/internal/domain"
	"github.com/sgml/firebase-steam-login/internal/dto"
)

// AssertionVerifier validates a signed identity assertion and yields its
// claims
type AssertionVerifier interface {
	VerifyAssertion(token string) (*domain.Assertion, error)
}

// AuthMiddleware validates the bearer assertion and adds the caller's
// identity to the request context
func AuthMiddleware(verifier AssertionVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error:   "Unauthorized",
				Message: err.Error(),
			})
			c.Abort()
			return
		}

		assertion, err := verifier.VerifyAssertion(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error:   "Unauthorized",
				Message: "Invalid or expired credential",
			})
			c.Abort()
			return
		}

		c.Set("user_id", assertion.Subject)
		c.Set("audience", assertion.Audience)
		c.Set("assertion", token)

		c.Next()
	}
}

// bearerToken extracts the credential from "Authorization: Bearer <token>"
func bearerToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", errors.New("authorization header is required")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errors.New("invalid authorization header format")
	}

	return parts[1], nil
}
