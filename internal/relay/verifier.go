package relay

import "errors"

// ErrUnauthorized must be wrapped by TokenVerifier implementations when the
// credential itself is invalid, expired, or carries no usable identity. Any
// other error from Verify is treated as an internal verifier fault.
var ErrUnauthorized = errors.New("unauthorized")

// Identity is the claim a verifier extracts from a valid credential.
type Identity struct {
	UserID string
}

// TokenVerifier validates an opaque bearer credential. The relay consumes this
// interface and never retries verification; one call decides the connection.
type TokenVerifier interface {
	Verify(token string) (Identity, error)
}
