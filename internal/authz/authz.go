// Package authz decides whether a verified principal may perform an action
// and narrows every data access to the principal's company.
package authz

import (
	"context"
	"errors"
	"fmt"

	"qrclock/internal/auth"
	"qrclock/internal/domain/accounts"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbiddenScope  = errors.New("not allowed for this principal")
)

// Principal is the caller as established by a verified token.
type Principal struct {
	AccountID  int64
	Role       accounts.Role
	CompanyID  *int64
	EmployeeID *int64
}

// FromClaims builds the principal once per request. Non-owner claims without
// a company are rejected: they cannot be scoped.
func FromClaims(c *auth.Claims) (*Principal, error) {
	if c == nil {
		return nil, ErrUnauthenticated
	}
	id, err := c.AccountID()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	role, err := accounts.ParseRole(string(c.Role))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	p := &Principal{AccountID: id, Role: role}
	if role == accounts.RoleOwner {
		return p, nil
	}
	if c.CompanyID == nil {
		return nil, fmt.Errorf("%w: %s token without company", ErrUnauthenticated, role)
	}
	p.CompanyID = c.CompanyID
	p.EmployeeID = c.EmployeeID
	return p, nil
}

func rank(r accounts.Role) int {
	switch r {
	case accounts.RoleOwner:
		return 3
	case accounts.RoleAdmin:
		return 2
	case accounts.RoleUser:
		return 1
	}
	return 0
}

// Authorize succeeds when the principal's role is at least required.
func Authorize(p *Principal, required accounts.Role) error {
	if p == nil {
		return ErrUnauthenticated
	}
	if rank(p.Role) == 0 || rank(p.Role) < rank(required) {
		return fmt.Errorf("%w: %s requires %s", ErrForbiddenScope, p.Role, required)
	}
	return nil
}

func (p *Principal) IsOwner() bool { return p != nil && p.Role == accounts.RoleOwner }

// OwnsEmployee reports whether p may read data of the given employee
// beyond what its role grants: a user only sees itself.
func (p *Principal) OwnsEmployee(employeeID int64) bool {
	if p == nil {
		return false
	}
	if p.Role != accounts.RoleUser {
		return true
	}
	return p.EmployeeID != nil && *p.EmployeeID == employeeID
}

// Scope returns the data scope of p. Only owners are unscoped; a principal
// that is not an owner and has no company sees nothing.
func (p *Principal) Scope() Scope {
	if p == nil {
		return Denied()
	}
	if p.Role == accounts.RoleOwner {
		return Unscoped()
	}
	if p.CompanyID == nil {
		return Denied()
	}
	return CompanyScope(*p.CompanyID)
}

type ctxKey struct{}

func NewContext(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(*Principal)
	return p, ok && p != nil
}
