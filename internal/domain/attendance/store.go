package attendance

import (
	"context"
	"errors"
	"fmt"

	"qrclock/internal/apperr"
	"qrclock/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
)

// Store is append-only: there is no update or delete.
type Store interface {
	Latest(ctx context.Context, employeeID int64) (*Event, error)
	Append(ctx context.Context, e *Event) error
	List(ctx context.Context, f Filter, limit, offset int) ([]Event, int, error)
	Range(ctx context.Context, f Filter) ([]Event, error)
}

type Repository struct {
	db dbx.Querier
}

func NewRepository(db dbx.Querier) *Repository {
	return &Repository{db: db}
}

const eventColumns = `id, employee_id, company_id, type, occurred_at, client_timestamp, recorded_by`

func scanEvent(row pgx.Row) (*Event, error) {
	e := &Event{}
	err := row.Scan(&e.ID, &e.EmployeeID, &e.CompanyID, &e.Type, &e.OccurredAt, &e.ClientTimestamp, &e.RecordedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoEvents
		}
		return nil, apperr.Classify(err)
	}
	return e, nil
}

// Latest uses the (employee_id, occurred_at) index.
func (r *Repository) Latest(ctx context.Context, employeeID int64) (*Event, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	return scanEvent(r.db.QueryRow(ctx, `
		SELECT `+eventColumns+`
		FROM attendance_events
		WHERE employee_id = $1
		ORDER BY occurred_at DESC, id DESC
		LIMIT 1
	`, employeeID))
}

func (r *Repository) Append(ctx context.Context, e *Event) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	err := r.db.QueryRow(ctx, `
		INSERT INTO attendance_events (employee_id, company_id, type, occurred_at, client_timestamp, recorded_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, e.EmployeeID, e.CompanyID, e.Type, e.OccurredAt, e.ClientTimestamp, e.RecordedBy).Scan(&e.ID)
	if err != nil {
		return apperr.Classify(fmt.Errorf("append attendance event: %w", err))
	}
	return nil
}

const filterClause = `
	WHERE ($1::BIGINT IS NULL OR company_id = $1)
	  AND ($2::BIGINT IS NULL OR employee_id = $2)
	  AND ($3::TIMESTAMPTZ IS NULL OR occurred_at >= $3)
	  AND ($4::TIMESTAMPTZ IS NULL OR occurred_at < $4)
`

// List returns one page of events, newest first, and the total match count.
func (r *Repository) List(ctx context.Context, f Filter, limit, offset int) ([]Event, int, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var total int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM attendance_events`+filterClause,
		f.CompanyID, f.EmployeeID, f.From, f.To).Scan(&total)
	if err != nil {
		return nil, 0, apperr.Classify(err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+eventColumns+` FROM attendance_events`+filterClause+`
		ORDER BY occurred_at DESC, id DESC
		LIMIT $5 OFFSET $6
	`, f.CompanyID, f.EmployeeID, f.From, f.To, limit, offset)
	if err != nil {
		return nil, 0, apperr.Classify(err)
	}
	defer rows.Close()

	events, err := collect(rows)
	return events, total, err
}

// Range returns every matching event, oldest first.
func (r *Repository) Range(ctx context.Context, f Filter) ([]Event, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT `+eventColumns+` FROM attendance_events`+filterClause+`
		ORDER BY occurred_at, id
	`, f.CompanyID, f.EmployeeID, f.From, f.To)
	if err != nil {
		return nil, apperr.Classify(err)
	}
	defer rows.Close()

	return collect(rows)
}

func collect(rows pgx.Rows) ([]Event, error) {
	var out []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, apperr.Classify(rows.Err())
}
