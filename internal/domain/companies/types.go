package companies

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("company not found")
	ErrDuplicateName     = errors.New("a company with that name already exists")
	QueryTimeoutDuration = time.Second * 5
)

type Company struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Overview is a company row as listed on the owner dashboard.
type Overview struct {
	Company
	EmployeeCount int `json:"employee_count"`
	AccountCount  int `json:"account_count"`
}
