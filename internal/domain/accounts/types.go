package accounts

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound          = errors.New("account not found")
	ErrDuplicateUsername = errors.New("an account with that username already exists")
	ErrInvalidRole       = errors.New("invalid role")
	QueryTimeoutDuration = time.Second * 5
)

type Role string

const (
	RoleOwner Role = "owner"
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleOwner, RoleAdmin, RoleUser:
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

type Account struct {
	ID         int64     `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Password   password  `json:"-"`
	Role       Role      `json:"role"`
	CompanyID  *int64    `json:"company_id"`
	EmployeeID *int64    `json:"employee_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Password struct to store plain text and hash
type password struct {
	text *string
	hash []byte
}

func (p *password) Set(text string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(text), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	p.text = &text
	p.hash = hash

	return nil
}

func (p *password) Compare(text string) error {
	return bcrypt.CompareHashAndPassword(p.hash, []byte(text))
}

// Hash exposes the stored digest for non-postgres stores.
func (p *password) Hash() []byte { return p.hash }

// SetHash restores a digest loaded from storage.
func (p *password) SetHash(h []byte) { p.hash = h }

// Summary is the public view of an account returned by "who am I" and at
// login. Type is "owner" for owner accounts and "user" for everybody else;
// Role carries the finer tier.
type Summary struct {
	ID         int64  `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Type       string `json:"type"`
	Role       Role   `json:"role,omitempty"`
	CompanyID  *int64 `json:"company_id,omitempty"`
	EmployeeID *int64 `json:"employee_id,omitempty"`
}

const (
	TypeOwner = "owner"
	TypeUser  = "user"
)

func (a *Account) Summary() Summary {
	s := Summary{
		ID:       a.ID,
		Username: a.Username,
		Email:    a.Email,
		Type:     TypeUser,
		Role:     a.Role,
	}
	if a.Role == RoleOwner {
		s.Type = TypeOwner
		return s
	}
	s.CompanyID = a.CompanyID
	s.EmployeeID = a.EmployeeID
	return s
}
