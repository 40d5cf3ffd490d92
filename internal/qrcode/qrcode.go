// Package qrcode issues the opaque codes printed on employee badges.
package qrcode

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base32"
	"errors"
	"fmt"
	"strings"

	"qrclock/internal/domain/employees"
	"qrclock/internal/domain/storage"

	"github.com/google/uuid"
)

const (
	Prefix = "EMP-"
	// tagLen is the number of base32 characters kept from the HMAC: 100 bits.
	tagLen      = 20
	maxAttempts = 5
)

var (
	ErrAlreadyIssued = errors.New("employee already has a qr code")
	ErrExhausted     = errors.New("could not find a free qr code")
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

type Issuer struct {
	secret []byte
	store  *storage.Container
	nonce  func() string
}

func NewIssuer(secret string, store *storage.Container) *Issuer {
	return &Issuer{
		secret: []byte(secret),
		store:  store,
		nonce:  uuid.NewString,
	}
}

// newCode derives a code from the employee id and a random nonce. Without
// the secret the code reveals nothing about the id.
func (i *Issuer) newCode(employeeID int64) string {
	return i.newCodeWith(employeeID, i.nonce())
}

func (i *Issuer) newCodeWith(employeeID int64, nonce string) string {
	mac := hmac.New(sha256.New, i.secret)
	fmt.Fprintf(mac, "emp:%d|nonce:%s", employeeID, nonce)
	tag := encoding.EncodeToString(mac.Sum(nil))
	return Prefix + tag[:tagLen]
}

// Generate assigns the first code of an employee.
func (i *Issuer) Generate(ctx context.Context, employeeID int64) (string, error) {
	return i.assign(ctx, employeeID, true)
}

// Regenerate replaces the employee's code. The previous code stops resolving
// as soon as the update commits. It holds the employee lock, so a scan in
// progress finishes before the swap and later scans see the new code.
func (i *Issuer) Regenerate(ctx context.Context, employeeID int64) (string, error) {
	return i.assign(ctx, employeeID, false)
}

// assign draws codes until one is free. Every attempt is its own locked
// unit so a unique violation in postgres only aborts that attempt.
func (i *Issuer) assign(ctx context.Context, employeeID int64, onlyIfUnset bool) (string, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		code := i.newCode(employeeID)

		err := i.store.WithEmployeeLock(ctx, employeeID, func(repos storage.Repos) error {
			exists, err := repos.Employees.CodeExists(ctx, code)
			if err != nil {
				return err
			}
			if exists {
				return employees.ErrCodeTaken
			}
			return repos.Employees.SetCode(ctx, employeeID, code, onlyIfUnset)
		})
		switch {
		case err == nil:
			return code, nil
		case errors.Is(err, employees.ErrCodeTaken):
			// drawn before or lost a race against another issuer
			continue
		case errors.Is(err, employees.ErrCodeAlreadySet):
			return "", ErrAlreadyIssued
		default:
			return "", err
		}
	}
	return "", fmt.Errorf("%w after %d attempts", ErrExhausted, maxAttempts)
}

// Valid reports whether s has the shape of an issued code. It does not
// consult the store.
func Valid(s string) bool {
	tag, ok := strings.CutPrefix(s, Prefix)
	if !ok || len(tag) != tagLen {
		return false
	}
	for _, r := range tag {
		if !(r >= 'A' && r <= 'Z' || r >= '2' && r <= '7') {
			return false
		}
	}
	return true
}
