// Package memstore is an in-process implementation of the storage
// container. It backs local development (STORE_DRIVER=memory) and tests.
package memstore

import (
	"context"
	"sync"
	"time"

	"qrclock/internal/domain/accounts"
	"qrclock/internal/domain/attendance"
	"qrclock/internal/domain/companies"
	"qrclock/internal/domain/employees"
	"qrclock/internal/domain/storage"
)

type state struct {
	seq       map[string]int64
	accounts  map[int64]accounts.Account
	companies map[int64]companies.Company
	employees map[int64]employees.Employee
	events    []attendance.Event
}

func newState() *state {
	return &state{
		seq:       make(map[string]int64),
		accounts:  make(map[int64]accounts.Account),
		companies: make(map[int64]companies.Company),
		employees: make(map[int64]employees.Employee),
	}
}

func (s *state) next(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.seq {
		c.seq[k] = v
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.companies {
		c.companies[k] = v
	}
	for k, v := range s.employees {
		c.employees[k] = v
	}
	c.events = append([]attendance.Event(nil), s.events...)
	return c
}

// DB owns the data shared by every repository of one container.
type DB struct {
	mu    sync.Mutex
	st    *state
	locks keyedMutex
	now   func() time.Time
}

// session binds repositories to a DB. Inside WithTx the DB mutex is already
// held, so the repositories must not take it again.
type session struct {
	db   *DB
	inTx bool
}

func (s *session) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.db.mu.Lock()
	return s.db.mu.Unlock
}

func (s *session) st() *state { return s.db.st }

// New returns an empty container.
func New() *storage.Container {
	return NewWithClock(time.Now)
}

// NewWithClock is New with a custom clock for created_at columns.
func NewWithClock(now func() time.Time) *storage.Container {
	db := &DB{st: newState(), now: now}
	return &storage.Container{
		Repos:   db.repos(false),
		Backend: db,
	}
}

func (db *DB) repos(inTx bool) storage.Repos {
	s := &session{db: db, inTx: inTx}
	return storage.Repos{
		Accounts:   &accountRepo{s},
		Companies:  &companyRepo{s},
		Employees:  &employeeRepo{s},
		Attendance: &eventRepo{s},
	}
}

// WithTx serializes fn against every other access and restores the
// previous state when fn fails.
func (db *DB) WithTx(ctx context.Context, fn func(r storage.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	snapshot := db.st.clone()
	if err := fn(db.repos(true)); err != nil {
		db.st = snapshot
		return err
	}
	return nil
}

func (db *DB) WithEmployeeLock(ctx context.Context, employeeID int64, fn func(r storage.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	db.mu.Lock()
	_, ok := db.st.employees[employeeID]
	db.mu.Unlock()
	if !ok {
		return employees.ErrNotFound
	}

	unlock := db.locks.Lock(employeeID)
	defer unlock()

	return fn(db.repos(false))
}

type keyedMutex struct {
	mu sync.Mutex
	m  map[int64]*keyedEntry
}

type keyedEntry struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) Lock(key int64) func() {
	k.mu.Lock()
	if k.m == nil {
		k.m = make(map[int64]*keyedEntry)
	}
	e, ok := k.m[key]
	if !ok {
		e = &keyedEntry{}
		k.m[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.Lock()
	return func() {
		e.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.m, key)
		}
		k.mu.Unlock()
	}
}
