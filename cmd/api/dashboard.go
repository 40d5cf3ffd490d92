package main

import (
	"errors"
	"net/http"

	"qrclock/internal/authz"
	"qrclock/internal/dashboard"
	"qrclock/internal/domain/accounts"
	"qrclock/internal/domain/companies"
)

type DashboardResponse struct {
	View    dashboard.View   `json:"view" example:"admin"`
	Account accounts.Summary `json:"account"`
	Data    any              `json:"data,omitempty"`
}

// AdminDashboard is the landing data of a company admin.
type AdminDashboard struct {
	Company       *companies.Company `json:"company"`
	EmployeeCount int                `json:"employee_count"`
	ClockedIn     int                `json:"clocked_in"`
}

// dashboardHandler godoc
//
//	@Summary		Resolve the caller's dashboard
//	@Description	Returns the view the caller lands on (owner, admin or user) with its summary data.
//	@Tags			dashboard
//	@Produce		json
//	@Success		200	{object}	DashboardResponse
//	@Failure		401	{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/dashboard [get]
func (app *application) dashboardHandler(w http.ResponseWriter, r *http.Request) {
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

	summary := account.Summary()
	resp := DashboardResponse{View: dashboard.ViewFor(summary), Account: summary}

	switch resp.View {
	case dashboard.ViewOwner:
		list, err := app.store.Companies.List(r.Context())
		if err != nil {
			app.errorResponse(w, r, err)
			return
		}
		if list == nil {
			list = []companies.Overview{}
		}
		resp.Data = list

	case dashboard.ViewAdmin:
		data, err := app.adminDashboard(r, p)
		if err != nil {
			app.errorResponse(w, r, err)
			return
		}
		resp.Data = data

	case dashboard.ViewUser:
		if p.EmployeeID != nil {
			st, err := app.recorder.Status(r.Context(), p.Scope(), *p.EmployeeID)
			if err != nil {
				app.errorResponse(w, r, err)
				return
			}
			resp.Data = st
		}
	}

	if err := app.jsonResponse(w, http.StatusOK, resp); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) adminDashboard(r *http.Request, p *authz.Principal) (*AdminDashboard, error) {
	ctx := r.Context()

	company, err := app.store.Companies.GetByID(ctx, *p.CompanyID)
	if err != nil {
		return nil, err
	}

	list, err := app.store.Employees.List(ctx, company.ID)
	if err != nil {
		return nil, err
	}

	data := &AdminDashboard{Company: company, EmployeeCount: len(list)}
	for _, emp := range list {
		st, err := app.recorder.Status(ctx, p.Scope(), emp.ID)
		if err != nil {
			return nil, err
		}
		if st.ClockedIn {
			data.ClockedIn++
		}
	}
	return data, nil
}

