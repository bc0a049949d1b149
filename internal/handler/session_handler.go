package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sgml/firebase-steam-login/internal/domain"
	"github.com/sgml/firebase-steam-login/internal/dto"
	"github.com/sgml/firebase-steam-login/internal/service"
)

// SessionHandler handles credential extension and key discovery
type SessionHandler struct {
	issuer service.Issuer
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(issuer service.Issuer) *SessionHandler {
	return &SessionHandler{
		issuer: issuer,
	}
}

// Extend swaps a short-lived identity assertion for a 30-day bearer credential
// @Summary Extend a session
// @Description Exchange the presented identity assertion for a long-lived bearer credential
// @Tags session
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.SessionResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /session/extend [post]
func (h *SessionHandler) Extend(c *gin.Context) {
	assertion, exists := c.Get("assertion")
	if !exists {
		writeError(c, fmt.Errorf("%w: credential not found in context", domain.ErrInvalidAssertion))
		return
	}

	session, err := h.issuer.IssueLongLivedCredential(assertion.(string))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// PublicKey serves the key clients verify issued credentials against
// @Summary Get the credential verification key
// @Tags session
// @Produce json
// @Success 200 {object} dto.PublicKeyResponse
// @Router /session/publickey [get]
func (h *SessionHandler) PublicKey(c *gin.Context) {
	c.JSON(http.StatusOK, dto.PublicKeyResponse{
		Key: h.issuer.PublicVerificationMaterial(),
	})
}
