package auth

import (
	"errors"
	"time"

	"qrclock/internal/domain/accounts"
)

var (
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidSignature = errors.New("token signature is invalid")
)

// Authenticator issues and verifies stateless session tokens. Tokens are
// not revocable: a token of a deleted account stays valid until it expires.
type Authenticator interface {
	Issue(a *accounts.Account) (token string, expiresAt time.Time, err error)
	Verify(token string) (*Claims, error)
}
