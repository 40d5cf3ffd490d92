package recorder

import (
	"context"
	"sort"
	"time"

	"qrclock/internal/authz"
	"qrclock/internal/domain/attendance"
)

// Session is a clock-in with its matching clock-out. Open sessions have no
// Out and no Hours.
type Session struct {
	EmployeeID int64      `json:"employee_id"`
	In         time.Time  `json:"check_in"`
	Out        *time.Time `json:"check_out"`
	Hours      *float64   `json:"hours_worked"`
}

type EmployeeReport struct {
	EmployeeID int64     `json:"employee_id"`
	Name       string    `json:"name,omitempty"`
	Sessions   []Session `json:"sessions"`
	TotalHours float64   `json:"total_hours"`
	Open       bool      `json:"open"`
}

type Report struct {
	From      *time.Time       `json:"from,omitempty"`
	To        *time.Time       `json:"to,omitempty"`
	Employees []EmployeeReport `json:"employees"`
}

// BuildSessions pairs events of a single employee given oldest first. A
// clock-out without a preceding clock-in inside the window is skipped.
func BuildSessions(events []attendance.Event) []Session {
	var (
		sessions []Session
		open     *Session
	)
	for _, e := range events {
		switch e.Type {
		case attendance.ClockIn:
			if open != nil {
				sessions = append(sessions, *open)
			}
			open = &Session{EmployeeID: e.EmployeeID, In: e.OccurredAt}
		case attendance.ClockOut:
			if open == nil {
				continue
			}
			out := e.OccurredAt
			hours := roundHours(out.Sub(open.In))
			open.Out = &out
			open.Hours = &hours
			sessions = append(sessions, *open)
			open = nil
		}
	}
	if open != nil {
		sessions = append(sessions, *open)
	}
	return sessions
}

// Report groups the events in f by employee and totals the closed sessions.
func (r *Recorder) Report(ctx context.Context, scope authz.Scope, f attendance.Filter) (*Report, error) {
	f, err := scoped(scope, f)
	if err != nil {
		return nil, err
	}
	events, err := r.store.Attendance.Range(ctx, f)
	if err != nil {
		return nil, err
	}

	byEmployee := make(map[int64][]attendance.Event)
	for _, e := range events {
		byEmployee[e.EmployeeID] = append(byEmployee[e.EmployeeID], e)
	}

	ids := make([]int64, 0, len(byEmployee))
	for id := range byEmployee {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	names, err := r.store.Employees.Names(ctx, ids)
	if err != nil {
		return nil, err
	}

	rep := &Report{From: f.From, To: f.To, Employees: make([]EmployeeReport, 0, len(ids))}
	for _, id := range ids {
		er := EmployeeReport{EmployeeID: id, Name: names[id], Sessions: BuildSessions(byEmployee[id])}
		var total time.Duration
		for _, s := range er.Sessions {
			if s.Out == nil {
				er.Open = true
				continue
			}
			total += s.Out.Sub(s.In)
		}
		er.TotalHours = roundHours(total)
		rep.Employees = append(rep.Employees, er)
	}
	return rep, nil
}
