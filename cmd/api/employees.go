package main

import (
	"context"
	"net/http"
	"strconv"

	"qrclock/internal/authz"
	"qrclock/internal/badge"
	"qrclock/internal/domain/employees"
	"qrclock/internal/params"
)

// scopedEmployee loads an employee the caller may see. Users only see the
// employee their account is linked to.
func (app *application) scopedEmployee(r *http.Request) (*employees.Employee, error) {
	id, err := idParam(r, "employeeID")
	if err != nil {
		return nil, err
	}

	p := getPrincipal(r)
	if !p.OwnsEmployee(id) {
		return nil, authz.ErrForbiddenScope
	}

	emp, err := app.store.Employees.GetByID(r.Context(), id, p.Scope().CompanyID())
	if err != nil {
		return nil, err
	}
	return emp, nil
}

// listEmployeesHandler godoc
//
//	@Summary	List employees
//	@Tags		employees
//	@Produce	json
//	@Param		company_id	query		int	false	"Company ID (owner only)"
//	@Success	200			{array}		employees.Employee
//	@Failure	403			{object}	ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/employees [get]
func (app *application) listEmployeesHandler(w http.ResponseWriter, r *http.Request) {
	companyID, err := app.targetCompany(r)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	list, err := app.store.Employees.List(r.Context(), companyID)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	if list == nil {
		list = []employees.Employee{}
	}

	if err := app.jsonResponse(w, http.StatusOK, list); err != nil {
		app.internalServerError(w, r, err)
	}
}

type CreateEmployeePayload struct {
	Name     string `json:"name" validate:"required,max=100"`
	Surname  string `json:"surname" validate:"max=100"`
	Position string `json:"position" validate:"max=100"`
	Number   string `json:"number" validate:"required,max=50"`
}

// createEmployeeHandler godoc
//
//	@Summary		Create an employee
//	@Description	Creates an employee and issues its first QR code. The hosted badge, when configured, is uploaded in the background.
//	@Tags			employees
//	@Accept			json
//	@Produce		json
//	@Param			company_id	query		int						false	"Company ID (owner only)"
//	@Param			payload		body		CreateEmployeePayload	true	"Employee"
//	@Success		201			{object}	employees.Employee
//	@Failure		400			{object}	ErrorResponse
//	@Failure		409			{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/employees [post]
func (app *application) createEmployeeHandler(w http.ResponseWriter, r *http.Request) {
	companyID, err := app.targetCompany(r)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	var payload CreateEmployeePayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if _, err := app.store.Companies.GetByID(r.Context(), companyID); err != nil {
		app.errorResponse(w, r, err)
		return
	}

	emp := &employees.Employee{
		CompanyID: companyID,
		Name:      payload.Name,
		Surname:   payload.Surname,
		Position:  payload.Position,
		Number:    payload.Number,
	}

	ctx := r.Context()
	if err := app.store.Employees.Create(ctx, emp); err != nil {
		app.errorResponse(w, r, err)
		return
	}

	// the code is issued after the insert commits; a failure leaves the
	// employee without a code, which POST /employees/{id}/qr repairs
	code, err := app.issuer.Generate(ctx, emp.ID)
	if err != nil {
		app.logger.Errorw("qr code issuance failed", "employee_id", emp.ID, "error", err)
	} else {
		emp.QRCode = &code
		app.publishBadgeAsync(emp.ID, code)
	}

	app.logger.Infow("employee created", "employee_id", emp.ID, "company_id", emp.CompanyID)

	if err := app.jsonResponse(w, http.StatusCreated, emp); err != nil {
		app.internalServerError(w, r, err)
	}
}

// getEmployeeHandler godoc
//
//	@Summary	Get an employee
//	@Tags		employees
//	@Produce	json
//	@Param		employeeID	path		int	true	"Employee ID"
//	@Success	200			{object}	employees.Employee
//	@Failure	403			{object}	ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/employees/{employeeID} [get]
func (app *application) getEmployeeHandler(w http.ResponseWriter, r *http.Request) {
	emp, err := app.scopedEmployee(r)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, emp); err != nil {
		app.internalServerError(w, r, err)
	}
}

type UpdateEmployeePayload struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=100"`
	Surname  *string `json:"surname" validate:"omitempty,max=100"`
	Position *string `json:"position" validate:"omitempty,max=100"`
	Number   *string `json:"number" validate:"omitempty,min=1,max=50"`
}

// updateEmployeeHandler godoc
//
//	@Summary	Update an employee
//	@Tags		employees
//	@Accept		json
//	@Produce	json
//	@Param		employeeID	path		int						true	"Employee ID"
//	@Param		payload		body		UpdateEmployeePayload	true	"Fields to change"
//	@Success	200			{object}	employees.Employee
//	@Failure	400			{object}	ErrorResponse
//	@Failure	403			{object}	ErrorResponse
//	@Failure	409			{object}	ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/employees/{employeeID} [patch]
func (app *application) updateEmployeeHandler(w http.ResponseWriter, r *http.Request) {
	emp, err := app.scopedEmployee(r)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	var payload UpdateEmployeePayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if payload.Name != nil {
		emp.Name = *payload.Name
	}
	if payload.Surname != nil {
		emp.Surname = *payload.Surname
	}
	if payload.Position != nil {
		emp.Position = *payload.Position
	}
	if payload.Number != nil {
		emp.Number = *payload.Number
	}

	if err := app.store.Employees.Update(r.Context(), emp); err != nil {
		app.errorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, emp); err != nil {
		app.internalServerError(w, r, err)
	}
}

// deleteEmployeeHandler godoc
//
//	@Summary		Archive an employee
//	@Description	The employee disappears from listings and its code stops resolving. Attendance history is kept.
//	@Tags			employees
//	@Param			employeeID	path	int	true	"Employee ID"
//	@Success		204
//	@Failure		403	{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/employees/{employeeID} [delete]
func (app *application) deleteEmployeeHandler(w http.ResponseWriter, r *http.Request) {
	emp, err := app.scopedEmployee(r)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	if err := app.store.Employees.Archive(r.Context(), emp.ID, getPrincipal(r).Scope().CompanyID()); err != nil {
		app.errorResponse(w, r, err)
		return
	}

	app.removeHostedBadge(emp.ID)

	w.WriteHeader(http.StatusNoContent)
}

type CodeResponse struct {
	EmployeeID int64  `json:"employee_id"`
	Code       string `json:"code"`
	BadgeURL   string `json:"badge_url,omitempty"`
}

// regenerateCodeHandler godoc
//
//	@Summary		Regenerate an employee's QR code
//	@Description	The previous code stops resolving immediately.
//	@Tags			employees
//	@Produce		json
//	@Param			employeeID	path		int	true	"Employee ID"
//	@Success		200			{object}	CodeResponse
//	@Failure		403			{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/employees/{employeeID}/qr [post]
func (app *application) regenerateCodeHandler(w http.ResponseWriter, r *http.Request) {
	emp, err := app.scopedEmployee(r)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	code, err := app.issuer.Regenerate(r.Context(), emp.ID)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	app.logger.Infow("qr code regenerated", "employee_id", emp.ID, "by", getPrincipal(r).AccountID)

	resp := CodeResponse{EmployeeID: emp.ID, Code: code}
	if url, err := app.publishBadge(r.Context(), emp.ID, code); err != nil {
		app.logger.Errorw("badge upload failed", "employee_id", emp.ID, "error", err)
	} else {
		resp.BadgeURL = url
	}

	if err := app.jsonResponse(w, http.StatusOK, resp); err != nil {
		app.internalServerError(w, r, err)
	}
}

// employeeBadgeHandler godoc
//
//	@Summary	Employee badge
//	@Tags		employees
//	@Produce	png
//	@Param		employeeID	path	int	true	"Employee ID"
//	@Param		size		query	int	false	"Edge length in pixels"
//	@Success	200
//	@Failure	403	{object}	ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/employees/{employeeID}/badge.png [get]
func (app *application) employeeBadgeHandler(w http.ResponseWriter, r *http.Request) {
	emp, err := app.scopedEmployee(r)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	if emp.QRCode == nil {
		app.notFoundResponse(w, r, employees.ErrNotFound)
		return
	}

	size := 0
	if s := r.URL.Query().Get("size"); s != "" {
		if size, err = strconv.Atoi(s); err != nil {
			app.badRequestResponse(w, r, params.ErrInvalidParam)
			return
		}
	}

	png, err := badge.Render(*emp.QRCode, size)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// employeeStatusHandler godoc
//
//	@Summary		Clocked-in status
//	@Description	Derived from the employee's latest attendance event.
//	@Tags			employees
//	@Produce		json
//	@Param			employeeID	path		int	true	"Employee ID"
//	@Success		200			{object}	recorder.Status
//	@Failure		403			{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/employees/{employeeID}/status [get]
func (app *application) employeeStatusHandler(w http.ResponseWriter, r *http.Request) {
	emp, err := app.scopedEmployee(r)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	st, err := app.recorder.Status(r.Context(), getPrincipal(r).Scope(), emp.ID)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, st); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) removeHostedBadge(employeeID int64) {
	if app.badges == nil {
		return
	}
	app.background(func() {
		ctx, cancel := context.WithTimeout(context.Background(), badgeUploadTimeout)
		defer cancel()
		if err := app.badges.Remove(ctx, employeeID); err != nil {
			app.logger.Errorw("badge removal failed", "employee_id", employeeID, "error", err)
		}
	})
}

func (app *application) publishBadgeAsync(employeeID int64, code string) {
	if app.badges == nil {
		return
	}
	app.background(func() {
		if _, err := app.publishBadge(context.Background(), employeeID, code); err != nil {
			app.logger.Errorw("badge upload failed", "employee_id", employeeID, "error", err)
		}
	})
}
