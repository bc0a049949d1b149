package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sgml/firebase-steam-login/internal/domain"
	"github.com/sgml/firebase-steam-login/internal/dto"
)

// statusFor maps a domain error to its boundary status. Anything outside the
// taxonomy is an internal error.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrMissingRedirectTarget):
		return http.StatusBadRequest, "Bad request"
	case errors.Is(err, domain.ErrSessionInvalid),
		errors.Is(err, domain.ErrInvalidAssertion):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, domain.ErrUnknownProvider):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, domain.ErrAlreadyLinked):
		return http.StatusConflict, "Conflict"
	case errors.Is(err, domain.ErrInvalidProfile),
		errors.Is(err, domain.ErrTokenExchange):
		return http.StatusBadGateway, "Bad gateway"
	case errors.Is(err, domain.ErrProviderUnavailable):
		return http.StatusServiceUnavailable, "Service unavailable"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	status, label := statusFor(err)
	resp := dto.ErrorResponse{
		Error:   label,
		Message: err.Error(),
	}

	// The linking conflict is the one failure an end user can act on.
	if errors.Is(err, domain.ErrAlreadyLinked) {
		resp.Details = "this account is already linked to a different user; unlink it from that user before linking it here"
	}

	c.JSON(status, resp)
	c.Abort()
}
