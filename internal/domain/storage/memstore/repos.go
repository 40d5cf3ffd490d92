package memstore

import (
	"context"
	"sort"
	"strings"

	"qrclock/internal/domain/accounts"
	"qrclock/internal/domain/attendance"
	"qrclock/internal/domain/companies"
	"qrclock/internal/domain/employees"
)

type accountRepo struct{ *session }

func (r *accountRepo) Create(_ context.Context, a *accounts.Account) error {
	defer r.lock()()
	for _, existing := range r.st().accounts {
		if existing.Username == a.Username {
			return accounts.ErrDuplicateUsername
		}
	}
	a.ID = r.st().next("accounts")
	a.CreatedAt = r.db.now()
	r.st().accounts[a.ID] = *a
	return nil
}

func (r *accountRepo) GetByID(_ context.Context, id int64) (*accounts.Account, error) {
	defer r.lock()()
	a, ok := r.st().accounts[id]
	if !ok {
		return nil, accounts.ErrNotFound
	}
	return &a, nil
}

func (r *accountRepo) GetByUsername(_ context.Context, username string) (*accounts.Account, error) {
	defer r.lock()()
	for _, a := range r.st().accounts {
		if a.Username == username {
			return &a, nil
		}
	}
	return nil, accounts.ErrNotFound
}

func (r *accountRepo) ListByCompany(_ context.Context, companyID int64) ([]accounts.Account, error) {
	defer r.lock()()
	var out []accounts.Account
	for _, a := range r.st().accounts {
		if a.CompanyID != nil && *a.CompanyID == companyID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (r *accountRepo) Delete(_ context.Context, id, companyID int64) error {
	defer r.lock()()
	a, ok := r.st().accounts[id]
	if !ok || a.CompanyID == nil || *a.CompanyID != companyID {
		return accounts.ErrNotFound
	}
	delete(r.st().accounts, id)
	return nil
}

type companyRepo struct{ *session }

func (r *companyRepo) Create(_ context.Context, c *companies.Company) error {
	defer r.lock()()
	for _, existing := range r.st().companies {
		if existing.Name == c.Name {
			return companies.ErrDuplicateName
		}
	}
	c.ID = r.st().next("companies")
	c.CreatedAt = r.db.now()
	c.UpdatedAt = c.CreatedAt
	r.st().companies[c.ID] = *c
	return nil
}

func (r *companyRepo) GetByID(_ context.Context, id int64) (*companies.Company, error) {
	defer r.lock()()
	c, ok := r.st().companies[id]
	if !ok {
		return nil, companies.ErrNotFound
	}
	return &c, nil
}

func (r *companyRepo) List(_ context.Context) ([]companies.Overview, error) {
	defer r.lock()()
	var out []companies.Overview
	for _, c := range r.st().companies {
		o := companies.Overview{Company: c}
		for _, e := range r.st().employees {
			if e.CompanyID == c.ID && e.ArchivedAt == nil {
				o.EmployeeCount++
			}
		}
		for _, a := range r.st().accounts {
			if a.CompanyID != nil && *a.CompanyID == c.ID {
				o.AccountCount++
			}
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *companyRepo) Update(_ context.Context, c *companies.Company) error {
	defer r.lock()()
	current, ok := r.st().companies[c.ID]
	if !ok {
		return companies.ErrNotFound
	}
	for id, existing := range r.st().companies {
		if id != c.ID && existing.Name == c.Name {
			return companies.ErrDuplicateName
		}
	}
	current.Name = c.Name
	current.Active = c.Active
	current.UpdatedAt = r.db.now()
	r.st().companies[c.ID] = current
	*c = current
	return nil
}

type employeeRepo struct{ *session }

func (r *employeeRepo) numberTaken(companyID int64, number string, except int64) bool {
	for id, e := range r.st().employees {
		if id != except && e.CompanyID == companyID && e.ArchivedAt == nil && e.Number == number {
			return true
		}
	}
	return false
}

func (r *employeeRepo) codeTaken(code string) bool {
	for _, e := range r.st().employees {
		if e.QRCode != nil && *e.QRCode == code {
			return true
		}
	}
	return false
}

func (r *employeeRepo) Create(_ context.Context, e *employees.Employee) error {
	defer r.lock()()
	if r.numberTaken(e.CompanyID, e.Number, 0) {
		return employees.ErrDuplicateNumber
	}
	if e.QRCode != nil && r.codeTaken(*e.QRCode) {
		return employees.ErrCodeTaken
	}
	e.ID = r.st().next("employees")
	e.CreatedAt = r.db.now()
	e.UpdatedAt = e.CreatedAt
	r.st().employees[e.ID] = *e
	return nil
}

func (r *employeeRepo) visible(id int64, companyID *int64) (employees.Employee, bool) {
	e, ok := r.st().employees[id]
	if !ok || e.ArchivedAt != nil {
		return e, false
	}
	if companyID != nil && e.CompanyID != *companyID {
		return e, false
	}
	return e, true
}

func (r *employeeRepo) GetByID(_ context.Context, id int64, companyID *int64) (*employees.Employee, error) {
	defer r.lock()()
	e, ok := r.visible(id, companyID)
	if !ok {
		return nil, employees.ErrNotFound
	}
	return &e, nil
}

func (r *employeeRepo) GetByCode(_ context.Context, code string) (*employees.Employee, error) {
	defer r.lock()()
	for _, e := range r.st().employees {
		if e.ArchivedAt == nil && e.QRCode != nil && *e.QRCode == code {
			return &e, nil
		}
	}
	return nil, employees.ErrNotFound
}

func (r *employeeRepo) List(_ context.Context, companyID int64) ([]employees.Employee, error) {
	defer r.lock()()
	var out []employees.Employee
	for _, e := range r.st().employees {
		if e.CompanyID == companyID && e.ArchivedAt == nil {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if c := strings.Compare(a.Surname, b.Surname); c != 0 {
			return c < 0
		}
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c < 0
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (r *employeeRepo) Names(_ context.Context, ids []int64) (map[int64]string, error) {
	defer r.lock()()
	out := make(map[int64]string, len(ids))
	for _, id := range ids {
		if e, ok := r.st().employees[id]; ok {
			out[id] = e.FullName()
		}
	}
	return out, nil
}

func (r *employeeRepo) Update(_ context.Context, e *employees.Employee) error {
	defer r.lock()()
	current, ok := r.visible(e.ID, &e.CompanyID)
	if !ok {
		return employees.ErrNotFound
	}
	if r.numberTaken(e.CompanyID, e.Number, e.ID) {
		return employees.ErrDuplicateNumber
	}
	current.Name = e.Name
	current.Surname = e.Surname
	current.Position = e.Position
	current.Number = e.Number
	current.UpdatedAt = r.db.now()
	r.st().employees[e.ID] = current
	*e = current
	return nil
}

func (r *employeeRepo) Archive(_ context.Context, id int64, companyID *int64) error {
	defer r.lock()()
	e, ok := r.visible(id, companyID)
	if !ok {
		return employees.ErrNotFound
	}
	now := r.db.now()
	e.ArchivedAt = &now
	e.QRCode = nil
	e.UpdatedAt = now
	r.st().employees[id] = e
	return nil
}

func (r *employeeRepo) CodeExists(_ context.Context, code string) (bool, error) {
	defer r.lock()()
	return r.codeTaken(code), nil
}

func (r *employeeRepo) SetCode(_ context.Context, id int64, code string, onlyIfUnset bool) error {
	defer r.lock()()
	e, ok := r.visible(id, nil)
	if !ok {
		return employees.ErrNotFound
	}
	if onlyIfUnset && e.QRCode != nil {
		return employees.ErrCodeAlreadySet
	}
	if r.codeTaken(code) {
		return employees.ErrCodeTaken
	}
	c := code
	e.QRCode = &c
	e.UpdatedAt = r.db.now()
	r.st().employees[id] = e
	return nil
}

type eventRepo struct{ *session }

func (r *eventRepo) Latest(_ context.Context, employeeID int64) (*attendance.Event, error) {
	defer r.lock()()
	var latest *attendance.Event
	for i := range r.st().events {
		e := &r.st().events[i]
		if e.EmployeeID != employeeID {
			continue
		}
		if latest == nil || e.OccurredAt.After(latest.OccurredAt) ||
			(e.OccurredAt.Equal(latest.OccurredAt) && e.ID > latest.ID) {
			latest = e
		}
	}
	if latest == nil {
		return nil, attendance.ErrNoEvents
	}
	out := *latest
	return &out, nil
}

func (r *eventRepo) Append(_ context.Context, e *attendance.Event) error {
	defer r.lock()()
	e.ID = r.st().next("attendance_events")
	r.st().events = append(r.st().events, *e)
	return nil
}

func (r *eventRepo) matching(f attendance.Filter) []attendance.Event {
	var out []attendance.Event
	for i := range r.st().events {
		if f.Match(&r.st().events[i]) {
			out = append(out, r.st().events[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].OccurredAt.Before(out[j].OccurredAt)
	})
	return out
}

func (r *eventRepo) List(_ context.Context, f attendance.Filter, limit, offset int) ([]attendance.Event, int, error) {
	defer r.lock()()
	all := r.matching(f)
	total := len(all)

	// newest first
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	if offset >= len(all) {
		return nil, total, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

func (r *eventRepo) Range(_ context.Context, f attendance.Filter) ([]attendance.Event, error) {
	defer r.lock()()
	return r.matching(f), nil
}
