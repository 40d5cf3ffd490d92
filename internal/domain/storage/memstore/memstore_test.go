package memstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"qrclock/internal/domain/accounts"
	"qrclock/internal/domain/companies"
	"qrclock/internal/domain/employees"
	"qrclock/internal/domain/storage"
)

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := New()
	boom := errors.New("boom")

	err := store.WithTx(ctx, func(r storage.Repos) error {
		if err := r.Companies.Create(ctx, &companies.Company{Name: "Acme", Active: true}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	list, err := store.Companies.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Errorf("expected rollback, found %d companies", len(list))
	}
}

func TestWithTxCommits(t *testing.T) {
	ctx := context.Background()
	store := New()

	err := store.WithTx(ctx, func(r storage.Repos) error {
		c := &companies.Company{Name: "Acme", Active: true}
		if err := r.Companies.Create(ctx, c); err != nil {
			return err
		}
		a := &accounts.Account{Username: "ann", Role: accounts.RoleAdmin, CompanyID: &c.ID}
		return r.Accounts.Create(ctx, a)
	})
	if err != nil {
		t.Fatal(err)
	}

	a, err := store.Accounts.GetByUsername(ctx, "ann")
	if err != nil {
		t.Fatal(err)
	}
	if a.CompanyID == nil || *a.CompanyID != 1 {
		t.Errorf("unexpected company on account: %v", a.CompanyID)
	}
}

func TestEmployeeScopeAndCodes(t *testing.T) {
	ctx := context.Background()
	store := New()

	e := &employees.Employee{CompanyID: 1, Name: "Jan", Number: "001"}
	if err := store.Employees.Create(ctx, e); err != nil {
		t.Fatal(err)
	}

	other := int64(2)
	if _, err := store.Employees.GetByID(ctx, e.ID, &other); !errors.Is(err, employees.ErrNotFound) {
		t.Errorf("cross-company read must miss, got %v", err)
	}

	if err := store.Employees.SetCode(ctx, e.ID, "EMP-A", true); err != nil {
		t.Fatal(err)
	}
	if err := store.Employees.SetCode(ctx, e.ID, "EMP-B", true); !errors.Is(err, employees.ErrCodeAlreadySet) {
		t.Errorf("expected ErrCodeAlreadySet, got %v", err)
	}

	dup := &employees.Employee{CompanyID: 1, Name: "Ola", Number: "001"}
	if err := store.Employees.Create(ctx, dup); !errors.Is(err, employees.ErrDuplicateNumber) {
		t.Errorf("expected ErrDuplicateNumber, got %v", err)
	}

	if err := store.Employees.Archive(ctx, e.ID, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Employees.GetByCode(ctx, "EMP-A"); !errors.Is(err, employees.ErrNotFound) {
		t.Errorf("archived employee code must stop resolving, got %v", err)
	}
}

func TestWithEmployeeLockIsExclusive(t *testing.T) {
	ctx := context.Background()
	store := New()
	e := &employees.Employee{CompanyID: 1, Name: "Jan", Number: "001"}
	if err := store.Employees.Create(ctx, e); err != nil {
		t.Fatal(err)
	}

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.WithEmployeeLock(ctx, e.ID, func(storage.Repos) error {
				mu.Lock()
				inside++
				if inside > maxSeen {
					maxSeen = inside
				}
				mu.Unlock()

				time.Sleep(2 * time.Millisecond)

				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Errorf("expected at most one holder, saw %d", maxSeen)
	}
}

func TestWithEmployeeLockUnknownEmployee(t *testing.T) {
	store := New()
	err := store.WithEmployeeLock(context.Background(), 42, func(storage.Repos) error { return nil })
	if !errors.Is(err, employees.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
