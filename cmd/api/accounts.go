package main

import (
	"errors"
	"net/http"

	"qrclock/internal/domain/accounts"
	"qrclock/internal/mailer"
)

// listAccountsHandler godoc
//
//	@Summary	List company accounts
//	@Tags		company
//	@Produce	json
//	@Param		company_id	query		int	false	"Company ID (owner only)"
//	@Success	200			{array}		accounts.Summary
//	@Failure	403			{object}	ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/company/accounts [get]
func (app *application) listAccountsHandler(w http.ResponseWriter, r *http.Request) {
	companyID, err := app.targetCompany(r)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	list, err := app.store.Accounts.ListByCompany(r.Context(), companyID)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	out := make([]accounts.Summary, 0, len(list))
	for i := range list {
		out = append(out, list[i].Summary())
	}

	if err := app.jsonResponse(w, http.StatusOK, out); err != nil {
		app.internalServerError(w, r, err)
	}
}

type CreateAccountPayload struct {
	Username   string `json:"username" validate:"required,min=3,max=100"`
	Email      string `json:"email" validate:"omitempty,email,max=255"`
	Password   string `json:"password" validate:"required,min=6,max=72"`
	Role       string `json:"role" validate:"required,oneof=admin user"`
	EmployeeID *int64 `json:"employee_id" validate:"omitempty,gt=0"`
}

// createAccountHandler godoc
//
//	@Summary		Create a company account
//	@Description	Creates an admin or user account in the company. User accounts may be linked to an employee.
//	@Tags			company
//	@Accept			json
//	@Produce		json
//	@Param			company_id	query		int						false	"Company ID (owner only)"
//	@Param			payload		body		CreateAccountPayload	true	"Account"
//	@Success		201			{object}	accounts.Summary
//	@Failure		400			{object}	ErrorResponse
//	@Failure		403			{object}	ErrorResponse
//	@Failure		409			{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/company/accounts [post]
func (app *application) createAccountHandler(w http.ResponseWriter, r *http.Request) {
	companyID, err := app.targetCompany(r)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	var payload CreateAccountPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	role, err := accounts.ParseRole(payload.Role)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	company, err := app.store.Companies.GetByID(r.Context(), companyID)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	if payload.EmployeeID != nil {
		// the employee must belong to the same company
		if _, err := app.store.Employees.GetByID(r.Context(), *payload.EmployeeID, &companyID); err != nil {
			app.errorResponse(w, r, err)
			return
		}
	}

	account := &accounts.Account{
		Username:   payload.Username,
		Email:      payload.Email,
		Role:       role,
		CompanyID:  &companyID,
		EmployeeID: payload.EmployeeID,
	}
	if err := account.Password.Set(payload.Password); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.store.Accounts.Create(r.Context(), account); err != nil {
		app.errorResponse(w, r, err)
		return
	}

	app.sendMail(mailer.AccountCreateTemplate, account, company.Name)

	if err := app.jsonResponse(w, http.StatusCreated, account.Summary()); err != nil {
		app.internalServerError(w, r, err)
	}
}

var errDeleteSelf = errors.New("cannot delete your own account")

// deleteAccountHandler godoc
//
//	@Summary	Delete a company account
//	@Tags		company
//	@Param		accountID	path	int	true	"Account ID"
//	@Param		company_id	query	int	false	"Company ID (owner only)"
//	@Success	204
//	@Failure	400	{object}	ErrorResponse
//	@Failure	403	{object}	ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/company/accounts/{accountID} [delete]
func (app *application) deleteAccountHandler(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "accountID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if id == getPrincipal(r).AccountID {
		app.badRequestResponse(w, r, errDeleteSelf)
		return
	}

	companyID, err := app.targetCompany(r)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	if err := app.store.Accounts.Delete(r.Context(), id, companyID); err != nil {
		app.errorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
