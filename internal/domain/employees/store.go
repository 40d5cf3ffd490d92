package employees

import (
	"context"
	"errors"
	"fmt"

	"qrclock/internal/apperr"
	"qrclock/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
)

// Store reads and writes employees. Methods taking a companyID pointer
// filter by it when it is non-nil; nil means unscoped (owner access).
// Archived employees are invisible to every read.
type Store interface {
	Create(ctx context.Context, e *Employee) error
	GetByID(ctx context.Context, id int64, companyID *int64) (*Employee, error)
	GetByCode(ctx context.Context, code string) (*Employee, error)
	List(ctx context.Context, companyID int64) ([]Employee, error)
	// Names resolves display names including archived employees. Unknown
	// ids are left out of the result.
	Names(ctx context.Context, ids []int64) (map[int64]string, error)
	Update(ctx context.Context, e *Employee) error
	Archive(ctx context.Context, id int64, companyID *int64) error
	CodeExists(ctx context.Context, code string) (bool, error)
	SetCode(ctx context.Context, id int64, code string, onlyIfUnset bool) error
}

type Repository struct {
	db dbx.Querier
}

func NewRepository(db dbx.Querier) *Repository {
	return &Repository{db: db}
}

const employeeColumns = `id, company_id, name, surname, position, number, qr_code, archived_at, created_at, updated_at`

func scanEmployee(row pgx.Row) (*Employee, error) {
	e := &Employee{}
	err := row.Scan(
		&e.ID,
		&e.CompanyID,
		&e.Name,
		&e.Surname,
		&e.Position,
		&e.Number,
		&e.QRCode,
		&e.ArchivedAt,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, apperr.Classify(err)
	}
	return e, nil
}

func (r *Repository) Create(ctx context.Context, e *Employee) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	err := r.db.QueryRow(ctx, `
		INSERT INTO employees (company_id, name, surname, position, number, qr_code)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, e.CompanyID, e.Name, e.Surname, e.Position, e.Number, e.QRCode).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		switch {
		case dbx.IsUniqueViolation(err, "employees_company_number_key"):
			return ErrDuplicateNumber
		case dbx.IsUniqueViolation(err, "employees_qr_code_key"):
			return ErrCodeTaken
		}
		return apperr.Classify(fmt.Errorf("create employee: %w", err))
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id int64, companyID *int64) (*Employee, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	return scanEmployee(r.db.QueryRow(ctx, `
		SELECT `+employeeColumns+`
		FROM employees
		WHERE id = $1
		  AND archived_at IS NULL
		  AND ($2::BIGINT IS NULL OR company_id = $2)
	`, id, companyID))
}

func (r *Repository) GetByCode(ctx context.Context, code string) (*Employee, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	return scanEmployee(r.db.QueryRow(ctx, `
		SELECT `+employeeColumns+`
		FROM employees
		WHERE qr_code = $1 AND archived_at IS NULL
	`, code))
}

func (r *Repository) List(ctx context.Context, companyID int64) ([]Employee, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT `+employeeColumns+`
		FROM employees
		WHERE company_id = $1 AND archived_at IS NULL
		ORDER BY surname, name, id
	`, companyID)
	if err != nil {
		return nil, apperr.Classify(err)
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, apperr.Classify(rows.Err())
}

func (r *Repository) Names(ctx context.Context, ids []int64) (map[int64]string, error) {
	out := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT id, name, surname
		FROM employees
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, apperr.Classify(err)
	}
	defer rows.Close()

	for rows.Next() {
		var e Employee
		if err := rows.Scan(&e.ID, &e.Name, &e.Surname); err != nil {
			return nil, apperr.Classify(err)
		}
		out[e.ID] = e.FullName()
	}
	return out, apperr.Classify(rows.Err())
}

// Update writes the mutable profile fields. CompanyID and the qr code are
// never changed here.
func (r *Repository) Update(ctx context.Context, e *Employee) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	err := r.db.QueryRow(ctx, `
		UPDATE employees
		SET name = $3, surname = $4, position = $5, number = $6, updated_at = NOW()
		WHERE id = $1 AND company_id = $2 AND archived_at IS NULL
		RETURNING updated_at
	`, e.ID, e.CompanyID, e.Name, e.Surname, e.Position, e.Number).Scan(&e.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return ErrNotFound
		case dbx.IsUniqueViolation(err, "employees_company_number_key"):
			return ErrDuplicateNumber
		}
		return apperr.Classify(err)
	}
	return nil
}

// Archive hides the employee and releases its qr code. Attendance history
// stays in place.
func (r *Repository) Archive(ctx context.Context, id int64, companyID *int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE employees
		SET archived_at = NOW(), qr_code = NULL, updated_at = NOW()
		WHERE id = $1
		  AND archived_at IS NULL
		  AND ($2::BIGINT IS NULL OR company_id = $2)
	`, id, companyID)
	if err != nil {
		return apperr.Classify(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) CodeExists(ctx context.Context, code string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM employees WHERE qr_code = $1)`, code).Scan(&exists)
	return exists, apperr.Classify(err)
}

// SetCode replaces the employee's code in a single statement, so the old
// code stops resolving in the same instant the new one starts.
func (r *Repository) SetCode(ctx context.Context, id int64, code string, onlyIfUnset bool) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE employees
		SET qr_code = $2, updated_at = NOW()
		WHERE id = $1
		  AND archived_at IS NULL
		  AND (NOT $3 OR qr_code IS NULL)
	`, id, code, onlyIfUnset)
	if err != nil {
		if dbx.IsUniqueViolation(err, "employees_qr_code_key") {
			return ErrCodeTaken
		}
		return apperr.Classify(err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	current, err := r.GetByID(ctx, id, nil)
	if err != nil {
		return err
	}
	if onlyIfUnset && current.QRCode != nil {
		return ErrCodeAlreadySet
	}
	return ErrNotFound
}
