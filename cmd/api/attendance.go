package main

import (
	"net/http"
	"time"

	"qrclock/internal/authz"
	"qrclock/internal/domain/accounts"
	"qrclock/internal/domain/attendance"
	"qrclock/internal/params"
	"qrclock/internal/recorder"
)

type ScanPayload struct {
	Code            string     `json:"code" validate:"required,max=128"`
	ClientTimestamp *time.Time `json:"client_timestamp"`
}

// scanHandler godoc
//
//	@Summary		Record a scan
//	@Description	Resolves the code and appends the employee's next event: clock_in when absent, clock_out when present.
//	@Tags			attendance
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		ScanPayload	true	"Scanned code"
//	@Success		201		{object}	attendance.Event
//	@Failure		404		{object}	ErrorResponse	"unknown_code"
//	@Failure		423		{object}	ErrorResponse	"inactive_company"
//	@Failure		429		{object}	ErrorResponse	"scan_too_soon"
//	@Failure		503		{object}	ErrorResponse	"transient"
//	@Security		ApiKeyAuth
//	@Router			/attendance/scan [post]
func (app *application) scanHandler(w http.ResponseWriter, r *http.Request) {
	var payload ScanPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	p := getPrincipal(r)
	event, err := app.recorder.RecordScan(r.Context(), p.Scope(), recorder.Scan{
		Code:            payload.Code,
		ClientTimestamp: payload.ClientTimestamp,
		RecordedBy:      &p.AccountID,
	})
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusCreated, event); err != nil {
		app.internalServerError(w, r, err)
	}
}

// eventFilter builds the filter for the list and report endpoints. Users are
// pinned to the employee their account is linked to.
func (app *application) eventFilter(r *http.Request) (attendance.Filter, error) {
	var f attendance.Filter
	q := r.URL.Query()

	from, to, err := params.ParseTimeRange(q)
	if err != nil {
		return f, err
	}
	f.From, f.To = from, to

	if f.EmployeeID, err = params.OptionalID(q, "employee_id"); err != nil {
		return f, err
	}

	p := getPrincipal(r)
	switch p.Role {
	case accounts.RoleOwner:
		if f.CompanyID, err = params.OptionalID(q, "company_id"); err != nil {
			return f, err
		}
	case accounts.RoleUser:
		if p.EmployeeID == nil {
			return f, authz.ErrForbiddenScope
		}
		if f.EmployeeID != nil && *f.EmployeeID != *p.EmployeeID {
			return f, authz.ErrForbiddenScope
		}
		f.EmployeeID = p.EmployeeID
	}
	return f, nil
}

type EventsResponse struct {
	Events     []attendance.Event `json:"events"`
	Pagination params.Pagination  `json:"pagination"`
}

// listEventsHandler godoc
//
//	@Summary		List attendance events
//	@Description	Newest first. Admins see their company, users their own employee, owners any company.
//	@Tags			attendance
//	@Produce		json
//	@Param			employee_id	query		int		false	"Employee ID"
//	@Param			company_id	query		int		false	"Company ID (owner only)"
//	@Param			from		query		string	false	"RFC 3339 timestamp or YYYY-MM-DD"
//	@Param			to			query		string	false	"RFC 3339 timestamp or YYYY-MM-DD (inclusive day)"
//	@Param			page		query		int		false	"Page"
//	@Param			limit		query		int		false	"Page size"
//	@Success		200			{object}	EventsResponse
//	@Failure		400			{object}	ErrorResponse
//	@Failure		403			{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/attendance/events [get]
func (app *application) listEventsHandler(w http.ResponseWriter, r *http.Request) {
	f, err := app.eventFilter(r)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	pg := params.ParsePagination(r.URL.Query())
	events, total, err := app.recorder.Events(r.Context(), getPrincipal(r).Scope(), f, pg.Limit, pg.Offset)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	pg.ComputeMeta(total)
	if events == nil {
		events = []attendance.Event{}
	}

	if err := app.jsonResponse(w, http.StatusOK, EventsResponse{Events: events, Pagination: pg}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// reportHandler godoc
//
//	@Summary		Hours worked
//	@Description	Pairs clock-ins with the following clock-outs and totals closed sessions per employee.
//	@Tags			attendance
//	@Produce		json
//	@Param			employee_id	query		int		false	"Employee ID"
//	@Param			company_id	query		int		false	"Company ID (owner only)"
//	@Param			from		query		string	false	"RFC 3339 timestamp or YYYY-MM-DD"
//	@Param			to			query		string	false	"RFC 3339 timestamp or YYYY-MM-DD (inclusive day)"
//	@Success		200			{object}	recorder.Report
//	@Failure		400			{object}	ErrorResponse
//	@Failure		403			{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/attendance/report [get]
func (app *application) reportHandler(w http.ResponseWriter, r *http.Request) {
	f, err := app.eventFilter(r)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	rep, err := app.recorder.Report(r.Context(), getPrincipal(r).Scope(), f)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, rep); err != nil {
		app.internalServerError(w, r, err)
	}
}
