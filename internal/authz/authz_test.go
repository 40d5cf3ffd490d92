package authz

import (
	"context"
	"errors"
	"testing"

	"qrclock/internal/auth"
	"qrclock/internal/domain/accounts"

	"github.com/golang-jwt/jwt/v5"
)

func ptr(v int64) *int64 { return &v }

func TestAuthorizeRanks(t *testing.T) {
	tests := []struct {
		role     accounts.Role
		required accounts.Role
		allowed  bool
	}{
		{accounts.RoleOwner, accounts.RoleOwner, true},
		{accounts.RoleOwner, accounts.RoleAdmin, true},
		{accounts.RoleOwner, accounts.RoleUser, true},
		{accounts.RoleAdmin, accounts.RoleOwner, false},
		{accounts.RoleAdmin, accounts.RoleAdmin, true},
		{accounts.RoleAdmin, accounts.RoleUser, true},
		{accounts.RoleUser, accounts.RoleOwner, false},
		{accounts.RoleUser, accounts.RoleAdmin, false},
		{accounts.RoleUser, accounts.RoleUser, true},
		{accounts.Role("root"), accounts.RoleUser, false},
	}

	for _, tt := range tests {
		err := Authorize(&Principal{Role: tt.role, CompanyID: ptr(1)}, tt.required)
		if tt.allowed && err != nil {
			t.Errorf("%s -> %s: unexpected error %v", tt.role, tt.required, err)
		}
		if !tt.allowed && !errors.Is(err, ErrForbiddenScope) {
			t.Errorf("%s -> %s: expected ErrForbiddenScope, got %v", tt.role, tt.required, err)
		}
	}
}

func TestAuthorizeNilPrincipal(t *testing.T) {
	if err := Authorize(nil, accounts.RoleUser); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestScopeCheck(t *testing.T) {
	if err := Unscoped().Check(42); err != nil {
		t.Errorf("unscoped should allow any company: %v", err)
	}
	s := CompanyScope(1)
	if err := s.Check(1); err != nil {
		t.Errorf("own company rejected: %v", err)
	}
	if err := s.Check(2); !errors.Is(err, ErrForbiddenScope) {
		t.Errorf("expected ErrForbiddenScope, got %v", err)
	}
	if Unscoped().CompanyID() != nil {
		t.Error("unscoped must not filter")
	}
	if id := s.CompanyID(); id == nil || *id != 1 {
		t.Errorf("unexpected filter %v", id)
	}
}

func TestScopeNarrow(t *testing.T) {
	n, err := Unscoped().Narrow(5)
	if err != nil || n.IsUnscoped() || *n.CompanyID() != 5 {
		t.Fatalf("narrow unscoped: %v %v", n, err)
	}
	if _, err := CompanyScope(1).Narrow(5); !errors.Is(err, ErrForbiddenScope) {
		t.Errorf("expected ErrForbiddenScope, got %v", err)
	}
}

func TestFromClaims(t *testing.T) {
	owner := &auth.Claims{Role: accounts.RoleOwner, CompanyID: ptr(9), RegisteredClaims: jwt.RegisteredClaims{Subject: "1"}}
	p, err := FromClaims(owner)
	if err != nil {
		t.Fatal(err)
	}
	if !p.IsOwner() || !p.Scope().IsUnscoped() || p.CompanyID != nil {
		t.Errorf("owner principal should be unscoped: %+v", p)
	}

	user := &auth.Claims{Role: accounts.RoleUser, CompanyID: ptr(2), EmployeeID: ptr(7), RegisteredClaims: jwt.RegisteredClaims{Subject: "4"}}
	p, err = FromClaims(user)
	if err != nil {
		t.Fatal(err)
	}
	if p.AccountID != 4 || p.Scope().String() != "company:2" {
		t.Errorf("unexpected principal %+v scope %s", p, p.Scope())
	}

	orphan := &auth.Claims{Role: accounts.RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{Subject: "5"}}
	if _, err := FromClaims(orphan); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated, got %v", err)
	}
	if _, err := FromClaims(nil); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestOwnsEmployee(t *testing.T) {
	user := &Principal{Role: accounts.RoleUser, CompanyID: ptr(1), EmployeeID: ptr(7)}
	if !user.OwnsEmployee(7) || user.OwnsEmployee(8) {
		t.Error("user must see only its own employee")
	}
	unlinked := &Principal{Role: accounts.RoleUser, CompanyID: ptr(1)}
	if unlinked.OwnsEmployee(7) {
		t.Error("unlinked user owns nothing")
	}
	admin := &Principal{Role: accounts.RoleAdmin, CompanyID: ptr(1)}
	if !admin.OwnsEmployee(8) {
		t.Error("admin is not restricted to one employee")
	}
}

func TestContextRoundTrip(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Error("empty context must not carry a principal")
	}
	p := &Principal{AccountID: 3, Role: accounts.RoleAdmin, CompanyID: ptr(1)}
	got, ok := FromContext(NewContext(context.Background(), p))
	if !ok || got != p {
		t.Errorf("got %+v, %v", got, ok)
	}
}

func TestScopeWithoutCompanyDeniesEverything(t *testing.T) {
	for name, p := range map[string]*Principal{
		"nil":          nil,
		"admin":        {AccountID: 1, Role: accounts.RoleAdmin},
		"user":         {AccountID: 2, Role: accounts.RoleUser},
		"unknown role": {AccountID: 3, Role: accounts.Role("guest")},
	} {
		s := p.Scope()
		if s.IsUnscoped() {
			t.Errorf("%s: principal without a company must not be unscoped", name)
		}
		if err := s.Check(1); !errors.Is(err, ErrForbiddenScope) {
			t.Errorf("%s: expected ErrForbiddenScope, got %v", name, err)
		}
		if id := s.CompanyID(); id == nil || *id != 0 {
			t.Errorf("%s: expected a filter matching no company, got %v", name, id)
		}
		if s.String() != "denied" {
			t.Errorf("%s: unexpected scope %s", name, s)
		}
	}

	if _, err := Denied().Narrow(1); !errors.Is(err, ErrForbiddenScope) {
		t.Errorf("denied scope must not narrow, got %v", err)
	}
}
