package main

import (
	"net/http"
	"strconv"

	"qrclock/internal/domain/companies"
	"qrclock/internal/params"

	"github.com/go-chi/chi/v5"
)

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, params.ErrInvalidParam
	}
	return id, nil
}

// targetCompany is the company an admin endpoint acts on. Owners pick it
// with ?company_id=, everyone else is pinned to their own.
func (app *application) targetCompany(r *http.Request) (int64, error) {
	p := getPrincipal(r)
	if !p.IsOwner() {
		return *p.CompanyID, nil
	}
	id, err := params.OptionalID(r.URL.Query(), "company_id")
	if err != nil {
		return 0, err
	}
	if id == nil {
		return 0, errMissingCompany
	}
	return *id, nil
}

// listCompaniesHandler godoc
//
//	@Summary		List companies
//	@Description	All companies with employee and account counts. Owner only.
//	@Tags			companies
//	@Produce		json
//	@Success		200	{array}		companies.Overview
//	@Failure		403	{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/companies [get]
func (app *application) listCompaniesHandler(w http.ResponseWriter, r *http.Request) {
	list, err := app.store.Companies.List(r.Context())
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	if list == nil {
		list = []companies.Overview{}
	}

	if err := app.jsonResponse(w, http.StatusOK, list); err != nil {
		app.internalServerError(w, r, err)
	}
}

// createCompanyHandler godoc
//
//	@Summary		Create a company
//	@Description	Creates a company together with its first admin account.
//	@Tags			companies
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		CreateCompanyPayload	true	"Company and admin"
//	@Success		201		{object}	CompanyWithAdmin
//	@Failure		400		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/companies [post]
func (app *application) createCompanyHandler(w http.ResponseWriter, r *http.Request) {
	var payload CreateCompanyPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	out, err := app.provisionCompany(r, payload)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	app.logger.Infow("company created", "company_id", out.Company.ID, "by", getPrincipal(r).AccountID)

	if err := app.jsonResponse(w, http.StatusCreated, out); err != nil {
		app.internalServerError(w, r, err)
	}
}

// getCompanyHandler godoc
//
//	@Summary	Get a company
//	@Tags		companies
//	@Produce	json
//	@Param		companyID	path		int	true	"Company ID"
//	@Success	200			{object}	companies.Company
//	@Failure	404			{object}	ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/companies/{companyID} [get]
func (app *application) getCompanyHandler(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "companyID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	company, err := app.store.Companies.GetByID(r.Context(), id)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, company); err != nil {
		app.internalServerError(w, r, err)
	}
}

type UpdateCompanyPayload struct {
	Name   *string `json:"name" validate:"omitempty,min=2,max=200"`
	Active *bool   `json:"active"`
}

// updateCompanyHandler godoc
//
//	@Summary		Update a company
//	@Description	Renames, deactivates or reactivates a company. Companies are never deleted.
//	@Tags			companies
//	@Accept			json
//	@Produce		json
//	@Param			companyID	path		int						true	"Company ID"
//	@Param			payload		body		UpdateCompanyPayload	true	"Fields to change"
//	@Success		200			{object}	companies.Company
//	@Failure		400			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		409			{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/companies/{companyID} [patch]
func (app *application) updateCompanyHandler(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "companyID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var payload UpdateCompanyPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	company, err := app.store.Companies.GetByID(r.Context(), id)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	if payload.Name != nil {
		company.Name = *payload.Name
	}
	if payload.Active != nil {
		company.Active = *payload.Active
	}

	if err := app.store.Companies.Update(r.Context(), company); err != nil {
		app.errorResponse(w, r, err)
		return
	}

	app.logger.Infow("company updated", "company_id", company.ID, "active", company.Active)

	if err := app.jsonResponse(w, http.StatusOK, company); err != nil {
		app.internalServerError(w, r, err)
	}
}

// getOwnCompanyHandler godoc
//
//	@Summary		Current company
//	@Description	The caller's company. Owners pass company_id.
//	@Tags			company
//	@Produce		json
//	@Param			company_id	query		int	false	"Company ID (owner only)"
//	@Success		200			{object}	companies.Company
//	@Failure		403			{object}	ErrorResponse
//	@Failure		423			{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/company [get]
func (app *application) getOwnCompanyHandler(w http.ResponseWriter, r *http.Request) {
	companyID, err := app.targetCompany(r)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	company, err := app.store.Companies.GetByID(r.Context(), companyID)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, company); err != nil {
		app.internalServerError(w, r, err)
	}
}
