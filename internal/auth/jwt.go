package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"qrclock/internal/domain/accounts"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload of a session token.
type Claims struct {
	Role       accounts.Role `json:"role"`
	CompanyID  *int64        `json:"company_id,omitempty"`
	EmployeeID *int64        `json:"employee_id,omitempty"`
	jwt.RegisteredClaims
}

// AccountID decodes the subject claim.
func (c *Claims) AccountID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad subject", ErrInvalidSignature)
	}
	return id, nil
}

type JWTAuthenticator struct {
	secret []byte
	ttl    time.Duration
	aud    string
	iss    string
	now    func() time.Time
}

func NewJWTAuthenticator(secret string, ttl time.Duration, aud, iss string) *JWTAuthenticator {
	return &JWTAuthenticator{
		secret: []byte(secret),
		ttl:    ttl,
		aud:    aud,
		iss:    iss,
		now:    time.Now,
	}
}

// WithClock replaces the time source used for both issuing and verifying.
func (a *JWTAuthenticator) WithClock(now func() time.Time) *JWTAuthenticator {
	a.now = now
	return a
}

func (a *JWTAuthenticator) Issue(acc *accounts.Account) (string, time.Time, error) {
	now := a.now()
	exp := now.Add(a.ttl)

	claims := Claims{
		Role: acc.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(acc.ID, 10),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    a.iss,
			Audience:  jwt.ClaimStrings{a.aud},
		},
	}
	if acc.Role != accounts.RoleOwner {
		claims.CompanyID = acc.CompanyID
		claims.EmployeeID = acc.EmployeeID
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, claims.ExpiresAt.Time, nil
}

// Verify checks the signature first, then the registered claims.
func (a *JWTAuthenticator) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithIssuer(a.iss),
		jwt.WithAudience(a.aud),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	if _, err := claims.AccountID(); err != nil {
		return nil, err
	}
	if _, err := accounts.ParseRole(string(claims.Role)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return claims, nil
}
