package accounts

import (
	"context"
	"errors"
	"fmt"

	"qrclock/internal/apperr"
	"qrclock/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
)

type Store interface {
	Create(ctx context.Context, a *Account) error
	GetByID(ctx context.Context, id int64) (*Account, error)
	GetByUsername(ctx context.Context, username string) (*Account, error)
	ListByCompany(ctx context.Context, companyID int64) ([]Account, error)
	Delete(ctx context.Context, id, companyID int64) error
}

type Repository struct {
	db dbx.Querier
}

func NewRepository(db dbx.Querier) *Repository {
	return &Repository{db: db}
}

const accountColumns = `id, username, email, password, role, company_id, employee_id, created_at`

func scanAccount(row pgx.Row) (*Account, error) {
	a := &Account{}
	err := row.Scan(
		&a.ID,
		&a.Username,
		&a.Email,
		&a.Password.hash,
		&a.Role,
		&a.CompanyID,
		&a.EmployeeID,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, apperr.Classify(err)
	}
	return a, nil
}

func (r *Repository) Create(ctx context.Context, a *Account) error {
	query := `
	  INSERT INTO accounts (username, email, password, role, company_id, employee_id)
	  VALUES ($1, $2, $3, $4, $5, $6)
	  RETURNING id, created_at
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	err := r.db.QueryRow(
		ctx, query, a.Username, a.Email, a.Password.hash, a.Role, a.CompanyID, a.EmployeeID,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err, "accounts_username_key") {
			return ErrDuplicateUsername
		}
		return apperr.Classify(fmt.Errorf("create account: %w", err))
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*Account, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	return scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
}

func (r *Repository) GetByUsername(ctx context.Context, username string) (*Account, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	return scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE username = $1`, username))
}

func (r *Repository) ListByCompany(ctx context.Context, companyID int64) ([]Account, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE company_id = $1
		ORDER BY username
	`, companyID)
	if err != nil {
		return nil, apperr.Classify(err)
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, apperr.Classify(rows.Err())
}

// Delete removes an account of the given company. Accounts of other
// companies are reported as ErrNotFound.
func (r *Repository) Delete(ctx context.Context, id, companyID int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.db.Exec(ctx, `DELETE FROM accounts WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		return apperr.Classify(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
