// Package recorder turns badge scans into an alternating clock-in/clock-out
// log per employee.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"qrclock/internal/authz"
	"qrclock/internal/domain/attendance"
	"qrclock/internal/domain/companies"
	"qrclock/internal/domain/employees"
	"qrclock/internal/domain/storage"

	"go.uber.org/zap"
)

const DefaultCooldown = 5 * time.Second

var (
	ErrUnknownCode     = errors.New("unknown qr code")
	ErrInactiveCompany = errors.New("company is inactive")
	ErrScanTooSoon     = errors.New("scan too soon after the previous one")
)

// TooSoonError is returned when a scan falls inside the cooldown of the
// previous event. It matches ErrScanTooSoon.
type TooSoonError struct {
	Wait time.Duration
}

func (e *TooSoonError) Error() string {
	return fmt.Sprintf("%s: wait %s", ErrScanTooSoon, e.Wait.Round(time.Second))
}

func (e *TooSoonError) Is(target error) bool { return target == ErrScanTooSoon }

type Recorder struct {
	store    *storage.Container
	cooldown time.Duration
	now      func() time.Time
	logger   *zap.SugaredLogger
}

type Option func(*Recorder)

func WithCooldown(d time.Duration) Option {
	return func(r *Recorder) { r.cooldown = d }
}

func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(r *Recorder) { r.logger = l }
}

func New(store *storage.Container, opts ...Option) *Recorder {
	r := &Recorder{
		store:    store,
		cooldown: DefaultCooldown,
		now:      time.Now,
		logger:   zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Scan is one badge read. A zero At is stamped with the server clock while
// the employee is locked, so concurrent scans get ordered timestamps.
type Scan struct {
	Code            string
	At              time.Time
	ClientTimestamp *time.Time
	RecordedBy      *int64
}

// RecordScan appends the next event for the employee the code belongs to.
// Codes outside scope are reported as unknown.
func (r *Recorder) RecordScan(ctx context.Context, scope authz.Scope, s Scan) (*attendance.Event, error) {
	emp, err := r.resolve(ctx, r.store.Repos, scope, s.Code)
	if err != nil {
		return nil, err
	}

	company, err := r.store.Companies.GetByID(ctx, emp.CompanyID)
	if err != nil {
		if errors.Is(err, companies.ErrNotFound) {
			return nil, ErrUnknownCode
		}
		return nil, err
	}
	if !company.Active {
		return nil, ErrInactiveCompany
	}

	var event *attendance.Event
	err = r.store.WithEmployeeLock(ctx, emp.ID, func(repos storage.Repos) error {
		// the code may have been regenerated while we waited for the lock
		current, err := r.resolve(ctx, repos, scope, s.Code)
		if err != nil {
			return err
		}
		if current.ID != emp.ID {
			return ErrUnknownCode
		}

		last, err := repos.Attendance.Latest(ctx, emp.ID)
		if err != nil && !errors.Is(err, attendance.ErrNoEvents) {
			return err
		}

		at := s.At
		if at.IsZero() {
			at = r.now()
		}
		if err := r.checkCooldown(last, at); err != nil {
			return err
		}

		event = &attendance.Event{
			EmployeeID:      emp.ID,
			CompanyID:       emp.CompanyID,
			Type:            attendance.NextType(last),
			OccurredAt:      at,
			ClientTimestamp: s.ClientTimestamp,
			RecordedBy:      s.RecordedBy,
		}
		return repos.Attendance.Append(ctx, event)
	})
	if err != nil {
		if errors.Is(err, employees.ErrNotFound) {
			return nil, ErrUnknownCode
		}
		return nil, err
	}

	r.logger.Infow("attendance recorded",
		"employee_id", event.EmployeeID,
		"company_id", event.CompanyID,
		"type", event.Type,
		"at", event.OccurredAt,
	)
	return event, nil
}

func (r *Recorder) resolve(ctx context.Context, repos storage.Repos, scope authz.Scope, code string) (*employees.Employee, error) {
	if code == "" {
		return nil, ErrUnknownCode
	}
	emp, err := repos.Employees.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, employees.ErrNotFound) {
			return nil, ErrUnknownCode
		}
		return nil, err
	}
	if scope.Check(emp.CompanyID) != nil {
		return nil, ErrUnknownCode
	}
	return emp, nil
}

func (r *Recorder) checkCooldown(last *attendance.Event, at time.Time) error {
	if last == nil {
		return nil
	}
	elapsed := at.Sub(last.OccurredAt)
	if elapsed <= 0 {
		return &TooSoonError{Wait: r.cooldown}
	}
	if elapsed < r.cooldown {
		return &TooSoonError{Wait: r.cooldown - elapsed}
	}
	return nil
}

// Status is the derived presence of one employee.
type Status struct {
	EmployeeID int64             `json:"employee_id"`
	ClockedIn  bool              `json:"clocked_in"`
	Last       *attendance.Event `json:"last_event,omitempty"`
}

// Status reads the latest event only; presence is never stored.
func (r *Recorder) Status(ctx context.Context, scope authz.Scope, employeeID int64) (*Status, error) {
	emp, err := r.employee(ctx, scope, employeeID)
	if err != nil {
		return nil, err
	}

	st := &Status{EmployeeID: emp.ID}
	last, err := r.store.Attendance.Latest(ctx, emp.ID)
	if err != nil {
		if errors.Is(err, attendance.ErrNoEvents) {
			return st, nil
		}
		return nil, err
	}
	st.Last = last
	st.ClockedIn = last.Type == attendance.ClockIn
	return st, nil
}

// employee fetches an employee within scope. A scoped miss is reported as a
// scope violation so callers cannot discover other tenants.
func (r *Recorder) employee(ctx context.Context, scope authz.Scope, id int64) (*employees.Employee, error) {
	emp, err := r.store.Employees.GetByID(ctx, id, scope.CompanyID())
	if err != nil {
		if errors.Is(err, employees.ErrNotFound) && !scope.IsUnscoped() {
			return nil, authz.ErrForbiddenScope
		}
		return nil, err
	}
	return emp, nil
}

// Events lists the log newest first, restricted to scope.
func (r *Recorder) Events(ctx context.Context, scope authz.Scope, f attendance.Filter, limit, offset int) ([]attendance.Event, int, error) {
	f, err := scoped(scope, f)
	if err != nil {
		return nil, 0, err
	}
	return r.store.Attendance.List(ctx, f, limit, offset)
}

func scoped(scope authz.Scope, f attendance.Filter) (attendance.Filter, error) {
	if scope.IsUnscoped() {
		return f, nil
	}
	if f.CompanyID != nil {
		if err := scope.Check(*f.CompanyID); err != nil {
			return f, err
		}
	}
	f.CompanyID = scope.CompanyID()
	return f, nil
}

func roundHours(d time.Duration) float64 {
	return math.Round(d.Hours()*100) / 100
}
