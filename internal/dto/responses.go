package dto

// SessionResponse carries a freshly minted bearer credential. Expires is an
// absolute epoch-millisecond timestamp.
type SessionResponse struct {
	Token   string `json:"token"`
	Expires int64  `json:"expires"`
}

// PublicKeyResponse carries the PEM-encoded verification key for the
// service's signed credentials
type PublicKeyResponse struct {
	Key string `json:"key"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}
