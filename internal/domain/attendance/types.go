package attendance

import (
	"errors"
	"time"
)

var (
	ErrNoEvents          = errors.New("no attendance events")
	QueryTimeoutDuration = time.Second * 5
)

type EventType string

const (
	ClockIn  EventType = "clock_in"
	ClockOut EventType = "clock_out"
)

// Event is one entry of an employee's append-only attendance log.
type Event struct {
	ID              int64      `json:"id"`
	EmployeeID      int64      `json:"employee_id"`
	CompanyID       int64      `json:"company_id"`
	Type            EventType  `json:"type"`
	OccurredAt      time.Time  `json:"timestamp"`
	ClientTimestamp *time.Time `json:"client_timestamp,omitempty"`
	RecordedBy      *int64     `json:"recorded_by,omitempty"`
}

// NextType returns the type the next event must have given the most recent
// one. A nil last event means the log is empty.
func NextType(last *Event) EventType {
	if last == nil || last.Type == ClockOut {
		return ClockIn
	}
	return ClockOut
}

// Filter narrows List and Range. Nil fields are not applied; From is
// inclusive and To exclusive.
type Filter struct {
	CompanyID  *int64
	EmployeeID *int64
	From       *time.Time
	To         *time.Time
}

func (f Filter) Match(e *Event) bool {
	if f.CompanyID != nil && e.CompanyID != *f.CompanyID {
		return false
	}
	if f.EmployeeID != nil && e.EmployeeID != *f.EmployeeID {
		return false
	}
	if f.From != nil && e.OccurredAt.Before(*f.From) {
		return false
	}
	if f.To != nil && !e.OccurredAt.Before(*f.To) {
		return false
	}
	return true
}
