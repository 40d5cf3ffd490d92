package recorder

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"qrclock/internal/authz"
	"qrclock/internal/domain/attendance"
	"qrclock/internal/domain/companies"
	"qrclock/internal/domain/employees"
	"qrclock/internal/domain/storage"
	"qrclock/internal/domain/storage/memstore"
	"qrclock/internal/qrcode"
)

var epoch = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

// tickingClock advances by one second on every read.
type tickingClock struct{ n atomic.Int64 }

func (c *tickingClock) Now() time.Time {
	return epoch.Add(time.Duration(c.n.Add(1)) * time.Second)
}

type fixture struct {
	store   *storage.Container
	issuer  *qrcode.Issuer
	company *companies.Company
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	c := &companies.Company{Name: "Acme", Active: true}
	if err := store.Companies.Create(context.Background(), c); err != nil {
		t.Fatal(err)
	}
	return &fixture{store: store, issuer: qrcode.NewIssuer("secret", store), company: c}
}

func (f *fixture) employee(t *testing.T, companyID int64, number string) (*employees.Employee, string) {
	t.Helper()
	ctx := context.Background()
	e := &employees.Employee{CompanyID: companyID, Name: "Jan", Surname: "Kowalski", Number: number}
	if err := f.store.Employees.Create(ctx, e); err != nil {
		t.Fatal(err)
	}
	code, err := f.issuer.Generate(ctx, e.ID)
	if err != nil {
		t.Fatal(err)
	}
	return e, code
}

func TestRecordScanAlternates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	emp, code := f.employee(t, f.company.ID, "1")
	rec := New(f.store)

	want := []attendance.EventType{attendance.ClockIn, attendance.ClockOut, attendance.ClockIn}
	for i, typ := range want {
		at := epoch.Add(time.Duration(i) * time.Hour)
		ev, err := rec.RecordScan(ctx, authz.CompanyScope(f.company.ID), Scan{Code: code, At: at})
		if err != nil {
			t.Fatalf("scan %d: %v", i, err)
		}
		if ev.Type != typ {
			t.Errorf("scan %d: expected %s, got %s", i, typ, ev.Type)
		}
		if ev.EmployeeID != emp.ID || ev.CompanyID != f.company.ID || !ev.OccurredAt.Equal(at) {
			t.Errorf("scan %d: unexpected event %+v", i, ev)
		}
	}

	st, err := rec.Status(ctx, authz.CompanyScope(f.company.ID), emp.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !st.ClockedIn || st.Last == nil || st.Last.Type != attendance.ClockIn {
		t.Errorf("expected clocked in, got %+v", st)
	}
}

func TestConcurrentScansStayAlternating(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	emp, code := f.employee(t, f.company.ID, "1")
	clock := &tickingClock{}
	rec := New(f.store, WithCooldown(0), WithClock(clock.Now))

	const scans = 50
	var wg sync.WaitGroup
	errs := make(chan error, scans)
	for i := 0; i < scans; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := rec.RecordScan(ctx, authz.Unscoped(), Scan{Code: code}); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("scan failed: %v", err)
	}

	empID := emp.ID
	events, err := f.store.Attendance.Range(ctx, attendance.Filter{EmployeeID: &empID})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != scans {
		t.Fatalf("expected %d events, got %d", scans, len(events))
	}
	var last *attendance.Event
	for i := range events {
		if events[i].Type != attendance.NextType(last) {
			t.Fatalf("event %d breaks alternation: %s after %+v", i, events[i].Type, last)
		}
		last = &events[i]
	}
}

func TestCooldown(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, code := f.employee(t, f.company.ID, "1")
	rec := New(f.store, WithCooldown(5*time.Second))
	scope := authz.CompanyScope(f.company.ID)

	if _, err := rec.RecordScan(ctx, scope, Scan{Code: code, At: epoch}); err != nil {
		t.Fatal(err)
	}

	_, err := rec.RecordScan(ctx, scope, Scan{Code: code, At: epoch.Add(2 * time.Second)})
	var tooSoon *TooSoonError
	if !errors.As(err, &tooSoon) || !errors.Is(err, ErrScanTooSoon) {
		t.Fatalf("expected TooSoonError, got %v", err)
	}
	if tooSoon.Wait != 3*time.Second {
		t.Errorf("expected 3s wait, got %s", tooSoon.Wait)
	}

	if _, err := rec.RecordScan(ctx, scope, Scan{Code: code, At: epoch.Add(-time.Minute)}); !errors.Is(err, ErrScanTooSoon) {
		t.Errorf("scan before the last event must be rejected, got %v", err)
	}

	ev, err := rec.RecordScan(ctx, scope, Scan{Code: code, At: epoch.Add(5 * time.Second)})
	if err != nil {
		t.Fatal(err)
	}
	if ev.Type != attendance.ClockOut {
		t.Errorf("expected clock_out, got %s", ev.Type)
	}
}

func TestUnknownCodes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	rec := New(f.store)

	other := &companies.Company{Name: "Globex", Active: true}
	if err := f.store.Companies.Create(ctx, other); err != nil {
		t.Fatal(err)
	}
	_, foreign := f.employee(t, other.ID, "1")

	for name, code := range map[string]string{
		"empty":         "",
		"never issued":  "EMP-AAAAAAAAAAAAAAAAAAAA",
		"other company": foreign,
	} {
		_, err := rec.RecordScan(ctx, authz.CompanyScope(f.company.ID), Scan{Code: code, At: epoch})
		if !errors.Is(err, ErrUnknownCode) {
			t.Errorf("%s: expected ErrUnknownCode, got %v", name, err)
		}
	}
}

func TestRegenerateInvalidatesScans(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	emp, old := f.employee(t, f.company.ID, "1")
	rec := New(f.store)
	scope := authz.CompanyScope(f.company.ID)

	fresh, err := f.issuer.Regenerate(ctx, emp.ID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := rec.RecordScan(ctx, scope, Scan{Code: old, At: epoch}); !errors.Is(err, ErrUnknownCode) {
		t.Errorf("old code: expected ErrUnknownCode, got %v", err)
	}
	if _, err := rec.RecordScan(ctx, scope, Scan{Code: fresh, At: epoch}); err != nil {
		t.Errorf("new code: %v", err)
	}
}

func TestArchivedEmployeeCodeIsUnknown(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	emp, code := f.employee(t, f.company.ID, "1")
	rec := New(f.store)

	if err := f.store.Employees.Archive(ctx, emp.ID, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := rec.RecordScan(ctx, authz.Unscoped(), Scan{Code: code, At: epoch}); !errors.Is(err, ErrUnknownCode) {
		t.Errorf("expected ErrUnknownCode, got %v", err)
	}
}

func TestInactiveCompany(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, code := f.employee(t, f.company.ID, "1")
	rec := New(f.store)

	f.company.Active = false
	if err := f.store.Companies.Update(ctx, f.company); err != nil {
		t.Fatal(err)
	}
	if _, err := rec.RecordScan(ctx, authz.Unscoped(), Scan{Code: code, At: epoch}); !errors.Is(err, ErrInactiveCompany) {
		t.Errorf("expected ErrInactiveCompany, got %v", err)
	}
}

func TestStatusScope(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	emp, _ := f.employee(t, f.company.ID, "1")
	rec := New(f.store)

	st, err := rec.Status(ctx, authz.CompanyScope(f.company.ID), emp.ID)
	if err != nil {
		t.Fatal(err)
	}
	if st.ClockedIn || st.Last != nil {
		t.Errorf("no events yet, got %+v", st)
	}

	if _, err := rec.Status(ctx, authz.CompanyScope(f.company.ID+1), emp.ID); !errors.Is(err, authz.ErrForbiddenScope) {
		t.Errorf("expected ErrForbiddenScope, got %v", err)
	}
	if _, err := rec.Status(ctx, authz.Unscoped(), 999); !errors.Is(err, employees.ErrNotFound) {
		t.Errorf("expected ErrNotFound for owner, got %v", err)
	}
}

func TestEventsAreScoped(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, code := f.employee(t, f.company.ID, "1")
	rec := New(f.store)

	other := &companies.Company{Name: "Globex", Active: true}
	if err := f.store.Companies.Create(ctx, other); err != nil {
		t.Fatal(err)
	}
	_, foreign := f.employee(t, other.ID, "1")

	if _, err := rec.RecordScan(ctx, authz.Unscoped(), Scan{Code: code, At: epoch}); err != nil {
		t.Fatal(err)
	}
	if _, err := rec.RecordScan(ctx, authz.Unscoped(), Scan{Code: foreign, At: epoch}); err != nil {
		t.Fatal(err)
	}

	list, total, err := rec.Events(ctx, authz.CompanyScope(f.company.ID), attendance.Filter{}, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || len(list) != 1 || list[0].CompanyID != f.company.ID {
		t.Errorf("expected only own company events, got %d %+v", total, list)
	}

	otherID := other.ID
	if _, _, err := rec.Events(ctx, authz.CompanyScope(f.company.ID), attendance.Filter{CompanyID: &otherID}, 10, 0); !errors.Is(err, authz.ErrForbiddenScope) {
		t.Errorf("expected ErrForbiddenScope, got %v", err)
	}

	_, total, err = rec.Events(ctx, authz.Unscoped(), attendance.Filter{}, 10, 0)
	if err != nil || total != 2 {
		t.Errorf("owner should see both events, got %d %v", total, err)
	}
}

// pausingBackend holds the first scan inside its locked unit until release
// is closed.
type pausingBackend struct {
	storage.Backend
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *pausingBackend) WithEmployeeLock(ctx context.Context, employeeID int64, fn func(r storage.Repos) error) error {
	return b.Backend.WithEmployeeLock(ctx, employeeID, func(r storage.Repos) error {
		r.Attendance = &pausingLog{Store: r.Attendance, b: b}
		return fn(r)
	})
}

type pausingLog struct {
	attendance.Store
	b *pausingBackend
}

func (l *pausingLog) Latest(ctx context.Context, employeeID int64) (*attendance.Event, error) {
	l.b.once.Do(func() {
		close(l.b.entered)
		<-l.b.release
	})
	return l.Store.Latest(ctx, employeeID)
}

func TestRegenerateWaitsForScanInProgress(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	emp, old := f.employee(t, f.company.ID, "1")

	pb := &pausingBackend{
		Backend: f.store.Backend,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	store := &storage.Container{Repos: f.store.Repos, Backend: pb}
	rec := New(store, WithCooldown(0))
	issuer := qrcode.NewIssuer("secret", store)
	scope := authz.CompanyScope(f.company.ID)

	scanDone := make(chan error, 1)
	go func() {
		_, err := rec.RecordScan(ctx, scope, Scan{Code: old, At: epoch})
		scanDone <- err
	}()
	<-pb.entered

	type result struct {
		code string
		err  error
	}
	regenDone := make(chan result, 1)
	go func() {
		code, err := issuer.Regenerate(ctx, emp.ID)
		regenDone <- result{code, err}
	}()

	select {
	case res := <-regenDone:
		t.Fatalf("regenerate committed %q while a scan held the employee", res.code)
	case <-time.After(50 * time.Millisecond):
	}

	close(pb.release)
	if err := <-scanDone; err != nil {
		t.Fatalf("scan in progress: %v", err)
	}
	res := <-regenDone
	if res.err != nil {
		t.Fatal(res.err)
	}

	if _, err := rec.RecordScan(ctx, scope, Scan{Code: old, At: epoch.Add(time.Hour)}); !errors.Is(err, ErrUnknownCode) {
		t.Errorf("old code after regenerate: expected ErrUnknownCode, got %v", err)
	}
	ev, err := rec.RecordScan(ctx, scope, Scan{Code: res.code, At: epoch.Add(time.Hour)})
	if err != nil {
		t.Fatal(err)
	}
	if ev.Type != attendance.ClockOut {
		t.Errorf("expected clock_out with the new code, got %s", ev.Type)
	}

	events, total, err := rec.Events(ctx, scope, attendance.Filter{}, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(events) != 2 {
		t.Errorf("expected 2 events, got %d", total)
	}
}
