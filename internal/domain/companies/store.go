package companies

import (
	"context"
	"errors"
	"fmt"

	"qrclock/internal/apperr"
	"qrclock/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
)

type Store interface {
	Create(ctx context.Context, c *Company) error
	GetByID(ctx context.Context, id int64) (*Company, error)
	List(ctx context.Context) ([]Overview, error)
	Update(ctx context.Context, c *Company) error
}

type Repository struct {
	db dbx.Querier
}

func NewRepository(db dbx.Querier) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, c *Company) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	err := r.db.QueryRow(ctx, `
		INSERT INTO companies (name, active)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`, c.Name, c.Active).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err, "companies_name_key") {
			return ErrDuplicateName
		}
		return apperr.Classify(fmt.Errorf("create company: %w", err))
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*Company, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	c := &Company{}
	err := r.db.QueryRow(ctx, `
		SELECT id, name, active, created_at, updated_at
		FROM companies
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, apperr.Classify(err)
	}
	return c, nil
}

func (r *Repository) List(ctx context.Context) ([]Overview, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT c.id, c.name, c.active, c.created_at, c.updated_at,
		       (SELECT COUNT(*) FROM employees e WHERE e.company_id = c.id AND e.archived_at IS NULL),
		       (SELECT COUNT(*) FROM accounts a WHERE a.company_id = c.id)
		FROM companies c
		ORDER BY c.name
	`)
	if err != nil {
		return nil, apperr.Classify(err)
	}
	defer rows.Close()

	var out []Overview
	for rows.Next() {
		var o Overview
		if err := rows.Scan(
			&o.ID, &o.Name, &o.Active, &o.CreatedAt, &o.UpdatedAt,
			&o.EmployeeCount, &o.AccountCount,
		); err != nil {
			return nil, apperr.Classify(err)
		}
		out = append(out, o)
	}
	return out, apperr.Classify(rows.Err())
}

func (r *Repository) Update(ctx context.Context, c *Company) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	err := r.db.QueryRow(ctx, `
		UPDATE companies
		SET name = $2, active = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, c.ID, c.Name, c.Active).Scan(&c.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return ErrNotFound
		case dbx.IsUniqueViolation(err, "companies_name_key"):
			return ErrDuplicateName
		}
		return apperr.Classify(err)
	}
	return nil
}
