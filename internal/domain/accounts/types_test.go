package accounts

import (
	"errors"
	"testing"
)

func TestParseRole(t *testing.T) {
	for _, s := range []string{"owner", "admin", "user"} {
		if _, err := ParseRole(s); err != nil {
			t.Errorf("ParseRole(%q): %v", s, err)
		}
	}
	if _, err := ParseRole("superuser"); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("expected ErrInvalidRole, got %v", err)
	}
}

func TestPasswordRoundTrip(t *testing.T) {
	var a Account
	if err := a.Password.Set("owner123"); err != nil {
		t.Fatal(err)
	}
	if err := a.Password.Compare("owner123"); err != nil {
		t.Errorf("correct password rejected: %v", err)
	}
	if err := a.Password.Compare("owner124"); err == nil {
		t.Error("wrong password accepted")
	}
}

func TestSummaryOwnerHasNoCompany(t *testing.T) {
	cid := int64(7)
	owner := Account{ID: 1, Username: "owner", Role: RoleOwner, CompanyID: &cid}
	s := owner.Summary()
	if s.Type != TypeOwner || s.CompanyID != nil {
		t.Errorf("unexpected owner summary: %+v", s)
	}

	admin := Account{ID: 2, Username: "ann", Role: RoleAdmin, CompanyID: &cid}
	s = admin.Summary()
	if s.Type != TypeUser || s.Role != RoleAdmin || s.CompanyID == nil || *s.CompanyID != cid {
		t.Errorf("unexpected admin summary: %+v", s)
	}
}
