package employees

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("employee not found")
	ErrDuplicateNumber   = errors.New("an employee with that number already exists in this company")
	ErrCodeTaken         = errors.New("qr code already in use")
	ErrCodeAlreadySet    = errors.New("employee already has a qr code")
	QueryTimeoutDuration = time.Second * 5
)

type Employee struct {
	ID         int64      `json:"id"`
	CompanyID  int64      `json:"company_id"`
	Name       string     `json:"name"`
	Surname    string     `json:"surname"`
	Position   string     `json:"position"`
	Number     string     `json:"number"`
	QRCode     *string    `json:"qr_code"`
	ArchivedAt *time.Time `json:"archived_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (e *Employee) FullName() string {
	if e.Surname == "" {
		return e.Name
	}
	return e.Name + " " + e.Surname
}
