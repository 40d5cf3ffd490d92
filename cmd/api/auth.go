package main

import (
	"errors"
	"net/http"
	"time"

	"qrclock/internal/domain/accounts"
	"qrclock/internal/domain/companies"
	"qrclock/internal/domain/storage"
	"qrclock/internal/mailer"
)

type CreateTokenPayload struct {
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required,max=72"`
}

// TokenResponse is the login result.
type TokenResponse struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	Account   accounts.Summary `json:"account"`
}

// createTokenHandler godoc
//
//	@Summary		Login to get a token
//	@Description	Exchanges username and password for a session token.
//	@Tags			authentication
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		CreateTokenPayload	true	"Credentials"
//	@Success		201		{object}	TokenResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/authentication/token [post]
func (app *application) createTokenHandler(w http.ResponseWriter, r *http.Request) {
	var payload CreateTokenPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	account, err := app.store.Accounts.GetByUsername(r.Context(), payload.Username)
	if err != nil {
		switch {
		case errors.Is(err, accounts.ErrNotFound):
			app.unauthorizedErrorResponse(w, r, err)
		default:
			app.errorResponse(w, r, err)
		}
		return
	}

	if err := account.Password.Compare(payload.Password); err != nil {
		app.unauthorizedErrorResponse(w, r, err)
		return
	}

	token, exp, err := app.authenticator.Issue(account)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	app.logger.Infow("token issued", "account_id", account.ID, "role", account.Role)

	resp := TokenResponse{Token: token, ExpiresAt: exp, Account: account.Summary()}
	if err := app.jsonResponse(w, http.StatusCreated, resp); err != nil {
		app.internalServerError(w, r, err)
	}
}

// meHandler godoc
//
//	@Summary		Who am I
//	@Description	Returns the public fields of the caller's account. A token of a deleted account is rejected here.
//	@Tags			authentication
//	@Produce		json
//	@Success		200	{object}	accounts.Summary
//	@Failure		401	{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/authentication/me [get]
func (app *application) meHandler(w http.ResponseWriter, r *http.Request) {
	p := getPrincipal(r)

	account, err := app.store.Accounts.GetByID(r.Context(), p.AccountID)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			app.unauthorizedErrorResponse(w, r, err)
			return
		}
		app.errorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, account.Summary()); err != nil {
		app.internalServerError(w, r, err)
	}
}

type AdminPayload struct {
	Username string `json:"username" validate:"required,min=3,max=100"`
	Email    string `json:"email" validate:"omitempty,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type CreateCompanyPayload struct {
	Name  string       `json:"name" validate:"required,min=2,max=200"`
	Admin AdminPayload `json:"admin" validate:"required"`
}

type CompanyWithAdmin struct {
	Company *companies.Company `json:"company"`
	Admin   accounts.Summary   `json:"admin"`
}

// provisionCompany creates a company and its first admin atomically.
func (app *application) provisionCompany(r *http.Request, payload CreateCompanyPayload) (*CompanyWithAdmin, error) {
	company := &companies.Company{Name: payload.Name, Active: true}
	admin := &accounts.Account{
		Username: payload.Admin.Username,
		Email:    payload.Admin.Email,
		Role:     accounts.RoleAdmin,
	}
	if err := admin.Password.Set(payload.Admin.Password); err != nil {
		return nil, err
	}

	err := app.store.WithTx(r.Context(), func(repos storage.Repos) error {
		if err := repos.Companies.Create(r.Context(), company); err != nil {
			return err
		}
		admin.CompanyID = &company.ID
		return repos.Accounts.Create(r.Context(), admin)
	})
	if err != nil {
		return nil, err
	}

	app.sendMail(mailer.AdminWelcomeTemplate, admin, company.Name)
	return &CompanyWithAdmin{Company: company, Admin: admin.Summary()}, nil
}

// registerCompanyHandler godoc
//
//	@Summary		Self-register a company
//	@Description	Creates a company with its first admin. Only mounted when ALLOW_SELF_REGISTRATION is set.
//	@Tags			authentication
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		CreateCompanyPayload	true	"Company and admin"
//	@Success		201		{object}	CompanyWithAdmin
//	@Failure		400		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Router			/authentication/register-company [post]
func (app *application) registerCompanyHandler(w http.ResponseWriter, r *http.Request) {
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

	if err := app.jsonResponse(w, http.StatusCreated, out); err != nil {
		app.internalServerError(w, r, err)
	}
}
