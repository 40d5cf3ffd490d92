package authz

import "fmt"

// Scope filters data access by company. The zero value is unscoped.
type Scope struct {
	companyID int64
	scoped    bool
	denied    bool
}

func Unscoped() Scope { return Scope{} }

// Denied matches no company. Company ids start at 1, so its filter selects
// nothing and Check always fails.
func Denied() Scope { return Scope{scoped: true, denied: true} }

func CompanyScope(companyID int64) Scope {
	return Scope{companyID: companyID, scoped: true}
}

func (s Scope) IsUnscoped() bool { return !s.scoped }

// CompanyID returns the company filter, or nil when unscoped. The result is
// what the repositories take as their company argument.
func (s Scope) CompanyID() *int64 {
	if !s.scoped {
		return nil
	}
	id := s.companyID
	return &id
}

// Check fails when companyID lies outside the scope.
func (s Scope) Check(companyID int64) error {
	if s.denied || s.scoped && s.companyID != companyID {
		return fmt.Errorf("%w: company %d", ErrForbiddenScope, companyID)
	}
	return nil
}

// Narrow restricts an unscoped scope to a single company. A scoped scope
// may only be narrowed to its own company.
func (s Scope) Narrow(companyID int64) (Scope, error) {
	if err := s.Check(companyID); err != nil {
		return s, err
	}
	return CompanyScope(companyID), nil
}

func (s Scope) String() string {
	if s.denied {
		return "denied"
	}
	if !s.scoped {
		return "unscoped"
	}
	return fmt.Sprintf("company:%d", s.companyID)
}
