package storage

import (
	"context"
	"errors"
	"fmt"

	"qrclock/internal/apperr"
	"qrclock/internal/domain/accounts"
	"qrclock/internal/domain/attendance"
	"qrclock/internal/domain/companies"
	"qrclock/internal/domain/employees"
	"qrclock/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repos is the set of repositories the service works with.
type Repos struct {
	Accounts   accounts.Store
	Companies  companies.Store
	Employees  employees.Store
	Attendance attendance.Store
}

// Backend provides the units of work that must be atomic.
type Backend interface {
	// WithTx runs fn atomically.
	WithTx(ctx context.Context, fn func(r Repos) error) error
	// WithEmployeeLock runs fn exclusively with respect to every other
	// WithEmployeeLock call for the same employee.
	WithEmployeeLock(ctx context.Context, employeeID int64, fn func(r Repos) error) error
}

type Container struct {
	Repos
	Backend
}

func reposFor(q dbx.Querier) Repos {
	return Repos{
		Accounts:   accounts.NewRepository(q),
		Companies:  companies.NewRepository(q),
		Employees:  employees.NewRepository(q),
		Attendance: attendance.NewRepository(q),
	}
}

// NewContainer wires the postgres repositories.
func NewContainer(pool *pgxpool.Pool) *Container {
	return &Container{
		Repos:   reposFor(pool),
		Backend: &pgBackend{pool: pool},
	}
}

type pgBackend struct {
	pool *pgxpool.Pool
}

func (b *pgBackend) WithTx(ctx context.Context, fn func(r Repos) error) error {
	return b.inTx(ctx, func(tx pgx.Tx) error {
		return fn(reposFor(tx))
	})
}

// WithEmployeeLock takes a row lock on the employee for the duration of the
// transaction. Concurrent scans of the same employee queue on that lock.
func (b *pgBackend) WithEmployeeLock(ctx context.Context, employeeID int64, fn func(r Repos) error) error {
	return b.inTx(ctx, func(tx pgx.Tx) error {
		lockCtx, cancel := context.WithTimeout(ctx, employees.QueryTimeoutDuration)
		defer cancel()

		var id int64
		err := tx.QueryRow(lockCtx, `SELECT id FROM employees WHERE id = $1 FOR UPDATE`, employeeID).Scan(&id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return employees.ErrNotFound
			}
			return apperr.Classify(fmt.Errorf("lock employee %d: %w", employeeID, err))
		}
		return fn(reposFor(tx))
	})
}

func (b *pgBackend) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	if b.pool == nil {
		return fmt.Errorf("storage container pool is nil")
	}

	tx, err := b.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return apperr.Classify(err)
	}

	defer func() {
		_ = tx.Rollback(ctx) // no-op after commit
	}()

	if err := fn(tx); err != nil {
		return err
	}

	return apperr.Classify(tx.Commit(ctx))
}
